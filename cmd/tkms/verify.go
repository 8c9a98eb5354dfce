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
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/jeremyhahn/go-thresholdkms/pkg/codec"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	verifyShare    string
	verifyGroupKey string
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify key shares",
	Long: `Verify that a key share file is valid and optionally check against a group public key.

This command validates:
  - The file decodes and carries a key share envelope
  - The share matches the dealer commitments recorded in the file
  - The public key equals the sum of the dealers' constant commitments
  - The public key matches the expected value (if --group-key provided)

Examples:
  # Verify a key share file
  tkms verify --share participant-1.json

  # Verify and check against expected group key
  tkms verify --share participant-1.json \
    --group-key 79be667e...`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyShare, "share", "s", "", "path to key share file")
	verifyCmd.Flags().StringVar(&verifyGroupKey, "group-key", "", "expected group public key (hex) to verify against")

	if err := verifyCmd.MarkFlagRequired("share"); err != nil {
		panic(fmt.Sprintf("failed to mark share flag as required: %v", err))
	}

	if err := viper.BindPFlag("verify.group_key", verifyCmd.Flags().Lookup("group-key")); err != nil {
		panic(fmt.Sprintf("failed to bind group_key flag: %v", err))
	}
}

func runVerify(cmd *cobra.Command, args []string) error {
	if verbose {
		fmt.Printf("Verifying key share: %s\n", verifyShare)
	}

	var f codec.KeyShareFile
	if _, err := readArtifact(verifyShare, codec.MsgTypeKeyShare, &f); err != nil {
		return err
	}
	k, err := f.Open()
	if err != nil {
		return fmt.Errorf("key share is invalid: %w", err)
	}
	defer k.Zeroize()

	if verbose {
		fmt.Println("Share matches commitments: OK")
	}

	groupKey := hex.EncodeToString(k.Curve.Marshal(k.PublicKey))
	if expected := viper.GetString("verify.group_key"); expected != "" {
		if _, err := hex.DecodeString(expected); err != nil {
			return fmt.Errorf("invalid group-key hex: %w", err)
		}
		if !strings.EqualFold(expected, groupKey) {
			return fmt.Errorf("threshold public key mismatch:\n  got:      %s\n  expected: %s", groupKey, expected)
		}
		fmt.Println("Group key verification: OK")
	}

	fmt.Println("\nVerification Summary:")
	fmt.Printf("  Participant: %d\n", k.ID)
	fmt.Printf("  Curve: %s\n", k.Curve.Name)
	fmt.Printf("  Suite: %s\n", k.Suite.Name())
	fmt.Printf("  Threshold: %d of %d\n", k.Params.T, k.Params.N)
	fmt.Printf("  Session ID: %s\n", k.SessionID)
	fmt.Printf("  Public Key: %s\n", groupKey)

	fmt.Println("\nKey share is VALID")
	return nil
}
