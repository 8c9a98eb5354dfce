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
	"os"
	"path/filepath"

	"github.com/jeremyhahn/go-thresholdkms/pkg/codec"
	"github.com/jeremyhahn/go-thresholdkms/pkg/ecies"
	"github.com/jeremyhahn/go-thresholdkms/pkg/metrics"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	decryptCiphertext string
	decryptPartials   []string
	decryptThreshold  int
	decryptOutput     string
)

// decryptCmd represents the decrypt command
var decryptCmd = &cobra.Command{
	Use:   "decrypt",
	Short: "Combine partial decryptions and decrypt",
	Long: `Combine partial decryptions from a quorum and decrypt the ciphertext.
The tag is checked before any plaintext is written; a tampered ciphertext
or a wrong partial fails without output.

Examples:
  tkms decrypt --ciphertext ct.json --threshold 3 \
    --partial partial-1.json --partial partial-3.json --partial partial-5.json`,
	RunE: runDecrypt,
}

func init() {
	decryptCmd.Flags().StringVarP(&decryptCiphertext, "ciphertext", "c", "", "ciphertext file")
	decryptCmd.Flags().StringSliceVarP(&decryptPartials, "partial", "p", nil, "partial decryption file (repeatable)")
	decryptCmd.Flags().IntVarP(&decryptThreshold, "threshold", "t", 0, "key threshold")
	decryptCmd.Flags().StringVarP(&decryptOutput, "output", "o", "", "plaintext output file (default: stdout)")

	for _, name := range []string{"ciphertext", "partial", "threshold"} {
		if err := decryptCmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}
}

func runDecrypt(cmd *cobra.Command, args []string) error {
	var cm codec.CiphertextMessage
	if _, err := readArtifact(decryptCiphertext, codec.MsgTypeCiphertext, &cm); err != nil {
		return err
	}
	c, suite, ct, aad, err := cm.Open()
	if err != nil {
		return err
	}

	partials := make([]*ecies.Partial, 0, len(decryptPartials))
	for _, path := range decryptPartials {
		var pm codec.PartialMessage
		if _, err := readArtifact(path, codec.MsgTypePartial, &pm); err != nil {
			return err
		}
		p, err := pm.Partial(c)
		if err != nil {
			return err
		}
		partials = append(partials, p)
	}

	pt, err := ecies.DecryptWithPartials(c, suite, ct, partials, decryptThreshold, aad)
	if err != nil {
		if errors.Is(err, ecies.ErrMACMismatch) {
			collector.RecordDecryption(metrics.OutcomeMACMismatch)
		} else {
			collector.RecordDecryption(metrics.OutcomeError)
		}
		return fmt.Errorf("decryption failed: %w", err)
	}
	collector.RecordDecryption(metrics.OutcomeSuccess)

	if decryptOutput == "" {
		_, err = cmd.OutOrStdout().Write(pt)
		return err
	}
	if err := os.WriteFile(filepath.Clean(decryptOutput), pt, 0600); err != nil {
		return fmt.Errorf("failed to write plaintext: %w", err)
	}
	fmt.Printf("Decrypted %d bytes to %s\n", len(pt), decryptOutput)
	return nil
}
