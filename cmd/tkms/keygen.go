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
	"os"
	"path/filepath"

	"github.com/jeremyhahn/go-thresholdkms/pkg/codec"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	keygenParticipants int
	keygenThreshold    int
	keygenOutputDir    string
	keygenSeed         string
)

// keygenCmd represents the keygen command
var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Run a distributed key generation",
	Long: `Run a joint Feldman key generation for all participants in-process and
write one key share file per participant.

Every participant deals a random polynomial, verifies every share it
receives against the dealer's commitments, and sums them. Any failed
check aborts the run and names the dealer and recipient.

Examples:
  # 3-of-5 key on secp256k1
  tkms keygen -n 5 -t 3 --output-dir ./shares

  # P-256 with BLAKE3, key share files in YAML
  tkms keygen -n 3 -t 2 --curve P-256 --suite blake3 --codec yaml`,
	RunE: runKeygen,
}

func init() {
	keygenCmd.Flags().IntVarP(&keygenParticipants, "participants", "n", 3, "number of participants")
	keygenCmd.Flags().IntVarP(&keygenThreshold, "threshold", "t", 2, "number of shares needed to use the key")
	keygenCmd.Flags().StringVarP(&keygenOutputDir, "output-dir", "o", ".", "directory for key share files")
	keygenCmd.Flags().StringVar(&keygenSeed, "seed", "", "deterministic randomness seed (testing only)")

	if err := viper.BindPFlag("keygen.participants", keygenCmd.Flags().Lookup("participants")); err != nil {
		panic(fmt.Sprintf("failed to bind participants flag: %v", err))
	}
	if err := viper.BindPFlag("keygen.threshold", keygenCmd.Flags().Lookup("threshold")); err != nil {
		panic(fmt.Sprintf("failed to bind threshold flag: %v", err))
	}
	if err := viper.BindPFlag("keygen.output_dir", keygenCmd.Flags().Lookup("output-dir")); err != nil {
		panic(fmt.Sprintf("failed to bind output-dir flag: %v", err))
	}
}

func runKeygen(cmd *cobra.Command, args []string) error {
	n := viper.GetInt("keygen.participants")
	t := viper.GetInt("keygen.threshold")
	dir := viper.GetString("keygen.output_dir")

	s, err := newScheme(n, t, keygenSeed)
	if err != nil {
		return err
	}
	defer s.Zeroize()

	res, err := s.GenerateKeys()
	if err != nil {
		return fmt.Errorf("key generation failed: %w", err)
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	suite := s.Suite().Name()
	for _, id := range res.Params.IDs() {
		f, err := codec.NewKeyShareFile(res, suite, id)
		if err != nil {
			return err
		}
		path := artifactPath(dir, fmt.Sprintf("participant-%d", id))
		if err := writeArtifact(path, codec.MsgTypeKeyShare, f.SessionID, id, f, 0600); err != nil {
			return err
		}
		if verbose {
			fmt.Printf("Wrote %s\n", path)
		}
	}

	fmt.Println("Key generation complete")
	fmt.Printf("  Session ID: %s\n", res.SessionID)
	fmt.Printf("  Curve: %s\n", s.Curve().Name)
	fmt.Printf("  Threshold: %d of %d\n", t, n)
	fmt.Printf("  Public Key: %s\n", hex.EncodeToString(s.Curve().Marshal(res.PublicKey)))
	fmt.Printf("  Key shares: %s\n", filepath.Clean(dir))
	return nil
}
