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
	"github.com/jeremyhahn/go-thresholdkms/pkg/curve"
	"github.com/jeremyhahn/go-thresholdkms/pkg/ecies"
	"github.com/jeremyhahn/go-thresholdkms/pkg/kdf"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	encryptPublicKey string
	encryptShare     string
	encryptMessage   string
	encryptInput     string
	encryptAAD       string
	encryptOutput    string
)

// encryptCmd represents the encrypt command
var encryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Encrypt to a threshold public key",
	Long: `Encrypt a message with ECIES to a threshold public key. Decryption
needs partial decryptions from a quorum of shareholders.

The public key is taken from --public-key, or from the key share file
given with --share.

Examples:
  tkms encrypt --share participant-1.json --message "hello" \
    --aad "doc-42" --output ct.json

  tkms encrypt --public-key 04ab... --curve P-256 --in secret.txt --output ct.cbor`,
	RunE: runEncrypt,
}

func init() {
	encryptCmd.Flags().StringVar(&encryptPublicKey, "public-key", "", "threshold public key (hex)")
	encryptCmd.Flags().StringVarP(&encryptShare, "share", "s", "", "key share file to take the public key from")
	encryptCmd.Flags().StringVarP(&encryptMessage, "message", "m", "", "message to encrypt")
	encryptCmd.Flags().StringVarP(&encryptInput, "in", "i", "", "file to encrypt")
	encryptCmd.Flags().StringVar(&encryptAAD, "aad", "", "associated data, authenticated but not encrypted")
	encryptCmd.Flags().StringVarP(&encryptOutput, "output", "o", "", "ciphertext output file")

	if err := encryptCmd.MarkFlagRequired("output"); err != nil {
		panic(fmt.Sprintf("failed to mark output flag as required: %v", err))
	}
}

func runEncrypt(cmd *cobra.Command, args []string) error {
	c, suite, q, err := encryptionKey()
	if err != nil {
		return err
	}

	plaintext := []byte(encryptMessage)
	if encryptInput != "" {
		plaintext, err = os.ReadFile(filepath.Clean(encryptInput))
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
	}

	aad := []byte(encryptAAD)
	ct, err := ecies.Encrypt(c, suite, q, plaintext, aad, randomness(""))
	if err != nil {
		return fmt.Errorf("encryption failed: %w", err)
	}
	msg := codec.NewCiphertextMessage(c, suite.Name(), ct, aad)
	if err := writeArtifact(encryptOutput, codec.MsgTypeCiphertext, "", 0, msg, 0644); err != nil {
		return err
	}
	fmt.Printf("Encrypted %d bytes to %s\n", len(plaintext), encryptOutput)
	return nil
}

func encryptionKey() (*curve.Curve, kdf.Suite, *curve.Point, error) {
	if encryptShare != "" {
		var f codec.KeyShareFile
		if _, err := readArtifact(encryptShare, codec.MsgTypeKeyShare, &f); err != nil {
			return nil, nil, nil, err
		}
		k, err := f.Open()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("key share is invalid: %w", err)
		}
		k.Zeroize()
		return k.Curve, k.Suite, k.PublicKey, nil
	}
	if encryptPublicKey == "" {
		return nil, nil, nil, fmt.Errorf("either --public-key or --share is required")
	}
	c, err := curve.ByName(viper.GetString("curve"))
	if err != nil {
		return nil, nil, nil, err
	}
	suite, err := kdf.Lookup(viper.GetString("suite"))
	if err != nil {
		return nil, nil, nil, err
	}
	raw, err := hex.DecodeString(encryptPublicKey)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid public-key hex: %w", err)
	}
	q, err := c.Unmarshal(raw)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid public key: %w", err)
	}
	return c, suite, q, nil
}
