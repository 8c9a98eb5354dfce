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

	"github.com/jeremyhahn/go-thresholdkms/pkg/codec"
	"github.com/jeremyhahn/go-thresholdkms/pkg/ledger"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	tokenFile     string
	tokenLedger   string
	tokenPolicy   string
	tokenApproves []string
	tokenVetoes   []string
)

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Verify recovery tokens and decide recovery",
	Long: `Check recovery tokens against a published policy ledger.

Examples:
  # Check a participant's token file against the ledger
  tkms token verify --token token-3.json --ledger ledger.json

  # Decide whether a set of presented tokens permits key recovery
  tkms token decide --ledger ledger.json --policy policy.yaml \
    --approve token-1.json --approve token-4.json --veto token-2.json`,
}

var tokenVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a token file against a ledger",
	Long:  `Verify both tokens of a participant's token file against the ledger root using their Merkle proofs.`,
	RunE:  runTokenVerify,
}

var tokenDecideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Decide recovery from presented tokens",
	Long: `Classify presented approve and veto tokens against the ledger and apply
the policy rules. Vetoes are checked first; approving weight never
overrides a veto.`,
	RunE: runTokenDecide,
}

func init() {
	tokenVerifyCmd.Flags().StringVar(&tokenFile, "token", "", "token file")
	tokenVerifyCmd.Flags().StringVarP(&tokenLedger, "ledger", "l", "", "ledger file")
	for _, name := range []string{"token", "ledger"} {
		if err := tokenVerifyCmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}

	tokenDecideCmd.Flags().StringVarP(&tokenLedger, "ledger", "l", "", "ledger file")
	tokenDecideCmd.Flags().StringVarP(&tokenPolicy, "policy", "p", "", "policy file")
	tokenDecideCmd.Flags().StringSliceVar(&tokenApproves, "approve", nil, "token file presented as approval (repeatable)")
	tokenDecideCmd.Flags().StringSliceVar(&tokenVetoes, "veto", nil, "token file presented as veto (repeatable)")
	for _, name := range []string{"ledger", "policy"} {
		if err := tokenDecideCmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}

	tokenCmd.AddCommand(tokenVerifyCmd)
	tokenCmd.AddCommand(tokenDecideCmd)
}

func loadLedger(path string) (*ledger.Ledger, error) {
	var lm codec.LedgerMessage
	if _, err := readArtifact(path, codec.MsgTypeLedger, &lm); err != nil {
		return nil, err
	}
	return lm.Ledger()
}

func runTokenVerify(cmd *cobra.Command, args []string) error {
	l, err := loadLedger(tokenLedger)
	if err != nil {
		return err
	}
	var tm codec.TokenMessage
	if _, err := readArtifact(tokenFile, codec.MsgTypeToken, &tm); err != nil {
		return err
	}
	if err := tm.Verify(l.Suite(), l.Root()); err != nil {
		collector.RecordToken("invalid")
		return err
	}
	collector.RecordToken(ledger.KindApprove.String())
	collector.RecordToken(ledger.KindVeto.String())

	fmt.Printf("Tokens of participant %d: VALID\n", tm.ID)
	fmt.Printf("  Ledger root: %s\n", hex.EncodeToString(l.Root()))
	return nil
}

func presentations(paths []string, kind ledger.Kind) ([]ledger.Presentation, error) {
	out := make([]ledger.Presentation, 0, len(paths))
	for _, path := range paths {
		var tm codec.TokenMessage
		if _, err := readArtifact(path, codec.MsgTypeToken, &tm); err != nil {
			return nil, err
		}
		p, err := tm.Presentation(kind)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func runTokenDecide(cmd *cobra.Command, args []string) error {
	l, err := loadLedger(tokenLedger)
	if err != nil {
		return err
	}
	cfg, err := loadPolicy(tokenPolicy)
	if err != nil {
		return err
	}

	approves, err := presentations(tokenApproves, ledger.KindApprove)
	if err != nil {
		return err
	}
	vetoes, err := presentations(tokenVetoes, ledger.KindVeto)
	if err != nil {
		return err
	}

	rules := ledger.Rules{
		Roster:         &cfg,
		RequiredWeight: cfg.EffectiveRequiredWeight(),
		VetoThreshold:  cfg.VetoThreshold,
		Metrics:        collector,
	}
	d, err := l.Recover(append(approves, vetoes...), rules)
	if err != nil {
		var veto *ledger.VetoError
		if errors.As(err, &veto) {
			fmt.Printf("Recovery VETOED by %v (weight %d of %d)\n", veto.Vetoers, veto.Weight, veto.Threshold)
		}
		return err
	}

	fmt.Println("Recovery PERMITTED")
	fmt.Printf("  Approvers:   %v\n", d.Approvers)
	fmt.Printf("  Groups:      %v\n", d.Groups)
	fmt.Printf("  Weight:      %d (required %d)\n", d.Weight, rules.RequiredWeight)
	fmt.Printf("  Veto weight: %d\n", d.VetoWeight)
	for _, r := range d.Rejected {
		fmt.Printf("  Rejected:    participant %d\n", r.ID)
	}
	return nil
}
