// SPDX-License-Identifier: Apache-2.0
//
// Copyright 2025 Jeremy Hahn
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"

	"github.com/jeremyhahn/go-thresholdkms/pkg/codec"
	"github.com/jeremyhahn/go-thresholdkms/pkg/ecies"
	"github.com/spf13/cobra"
)

var (
	partialShare      string
	partialCiphertext string
	partialQuorum     string
	partialOutput     string
)

// partialCmd represents the partial command
var partialCmd = &cobra.Command{
	Use:   "partial",
	Short: "Compute a partial decryption",
	Long: `Compute this participant's partial decryption of a ciphertext for a
given quorum. Every member of the quorum must produce a partial for the
same quorum; the partials are then combined with 'tkms decrypt'.

Examples:
  tkms partial --share participant-3.json --ciphertext ct.json \
    --quorum 1,3,5 --output partial-3.json`,
	RunE: runPartial,
}

func init() {
	partialCmd.Flags().StringVarP(&partialShare, "share", "s", "", "key share file")
	partialCmd.Flags().StringVarP(&partialCiphertext, "ciphertext", "c", "", "ciphertext file")
	partialCmd.Flags().StringVarP(&partialQuorum, "quorum", "q", "", "comma-separated participant ids taking part")
	partialCmd.Flags().StringVarP(&partialOutput, "output", "o", "", "partial decryption output file")

	for _, name := range []string{"share", "ciphertext", "quorum", "output"} {
		if err := partialCmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}
}

func runPartial(cmd *cobra.Command, args []string) error {
	quorum, err := parseIDs(partialQuorum)
	if err != nil {
		return err
	}

	var f codec.KeyShareFile
	if _, err := readArtifact(partialShare, codec.MsgTypeKeyShare, &f); err != nil {
		return err
	}
	k, err := f.Open()
	if err != nil {
		return fmt.Errorf("key share is invalid: %w", err)
	}
	defer k.Zeroize()

	var cm codec.CiphertextMessage
	if _, err := readArtifact(partialCiphertext, codec.MsgTypeCiphertext, &cm); err != nil {
		return err
	}
	c, _, ct, _, err := cm.Open()
	if err != nil {
		return err
	}
	if c.Name != k.Curve.Name {
		return fmt.Errorf("ciphertext is on %s but the key share is on %s", c.Name, k.Curve.Name)
	}

	p, err := ecies.PartialDecrypt(c, ct, k.ID, k.Share, quorum)
	if err != nil {
		return fmt.Errorf("partial decryption failed: %w", err)
	}
	msg := codec.NewPartialMessage(c, p)
	if err := writeArtifact(partialOutput, codec.MsgTypePartial, k.SessionID, k.ID, msg, 0644); err != nil {
		return err
	}
	fmt.Printf("Partial decryption of participant %d written to %s\n", k.ID, partialOutput)
	return nil
}
