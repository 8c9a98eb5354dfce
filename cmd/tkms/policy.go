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
	"github.com/jeremyhahn/go-thresholdkms/pkg/policy"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	policyFile         string
	policyParticipants int
	policyThreshold    int
	policyOutputDir    string
	policySeed         string
)

// policyCmd represents the policy command
var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Generate keys under a group policy and issue recovery tokens",
	Long: `Run key generation, set up the group policy from a policy file and
issue approve/veto recovery tokens for the policy epoch.

Writes one key share file and one token file per participant, and the
policy ledger holding the token commitments. Token files are secret and
belong only to their participant.

The policy file format follows its extension: .yaml/.yml, .json, .toml,
.msgpack, .cbor or .bson. Veto weights are keyed by participant id:

  groups:
    audit: [1, 2, 3]
    legal: [4, 5]
    ops: [6, 7, 8, 9]
  outer_threshold: 2
  inner_threshold: 2
  veto_group: audit
  required_weight: 2
  veto_threshold: 2
  veto_weights:
    "1": 2
  epoch: "2026-q4"

Examples:
  tkms policy --policy policy.yaml -n 9 -t 3 --output-dir ./keys`,
	RunE: runPolicy,
}

func init() {
	policyCmd.Flags().StringVarP(&policyFile, "policy", "p", "", "policy file (yaml, json, toml, msgpack, cbor or bson)")
	policyCmd.Flags().IntVarP(&policyParticipants, "participants", "n", 0, "total number of participants")
	policyCmd.Flags().IntVarP(&policyThreshold, "threshold", "t", 0, "key threshold")
	policyCmd.Flags().StringVarP(&policyOutputDir, "output-dir", "o", ".", "output directory")
	policyCmd.Flags().StringVar(&policySeed, "seed", "", "deterministic seed (testing only)")

	if err := viper.BindPFlag("policy.file", policyCmd.Flags().Lookup("policy")); err != nil {
		panic(fmt.Sprintf("failed to bind policy flag: %v", err))
	}
}

// loadPolicy reads a policy configuration with the codec matching the
// file extension.
func loadPolicy(path string) (policy.Config, error) {
	var cfg policy.Config
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath) //nolint:gosec // G304: Path is cleaned above
	if err != nil {
		return cfg, fmt.Errorf("failed to read policy: %w", err)
	}
	if err := codec.ForPath(cleanPath).Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse policy: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runPolicy(cmd *cobra.Command, args []string) error {
	path := viper.GetString("policy.file")
	if path == "" {
		return fmt.Errorf("a policy file is required (--policy)")
	}
	cfg, err := loadPolicy(path)
	if err != nil {
		return err
	}

	n := policyParticipants
	if n == 0 {
		for _, members := range cfg.Groups {
			for _, id := range members {
				if id > n {
					n = id
				}
			}
		}
	}
	t := policyThreshold
	if t == 0 {
		t = cfg.EffectiveRequiredWeight()
	}

	s, err := newScheme(n, t, policySeed)
	if err != nil {
		return err
	}
	defer s.Zeroize()

	res, err := s.GenerateKeys()
	if err != nil {
		return fmt.Errorf("key generation failed: %w", err)
	}
	if _, err := s.SetupPolicy(cfg); err != nil {
		return fmt.Errorf("policy setup failed: %w", err)
	}
	l, tokens, err := s.IssueTokens(nil)
	if err != nil {
		return fmt.Errorf("token issuance failed: %w", err)
	}

	if err := os.MkdirAll(policyOutputDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	suite := s.Suite().Name()
	sessionID := res.SessionID.String()
	for id := 1; id <= n; id++ {
		f, err := codec.NewKeyShareFile(res, suite, id)
		if err != nil {
			return err
		}
		path := artifactPath(policyOutputDir, fmt.Sprintf("participant-%d", id))
		if err := writeArtifact(path, codec.MsgTypeKeyShare, sessionID, id, f, 0600); err != nil {
			return err
		}

		tm, err := codec.NewTokenMessage(l, tokens[id])
		if err != nil {
			return err
		}
		path = artifactPath(policyOutputDir, fmt.Sprintf("token-%d", id))
		if err := writeArtifact(path, codec.MsgTypeToken, sessionID, id, tm, 0600); err != nil {
			return err
		}
	}

	ledgerPath := artifactPath(policyOutputDir, "ledger")
	if err := writeArtifact(ledgerPath, codec.MsgTypeLedger, sessionID, 0, codec.NewLedgerMessage(l), 0644); err != nil {
		return err
	}

	pub := res.Curve.Marshal(res.PublicKey)
	fmt.Printf("Policy set up for %d participants (threshold %d)\n", n, t)
	fmt.Printf("  %s\n", cfg.String())
	fmt.Printf("  Epoch:       %s\n", cfg.Epoch)
	fmt.Printf("  Ledger root: %s\n", hex.EncodeToString(l.Root()))
	fmt.Printf("  Public key:  %s\n", hex.EncodeToString(pub))
	fmt.Printf("  Ledger:      %s\n", ledgerPath)
	return nil
}
