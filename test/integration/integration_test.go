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

//go:build integration

// Package integration provides end-to-end tests of the threshold key
// management flow. These tests validate:
//
// 1. Key generation, policy setup and token issuance for every curve and hash suite
// 2. Artifacts surviving a round trip through every codec
// 3. Recovery decisions and threshold decryption from decoded artifacts
package integration

import (
	"fmt"
	"testing"

	"github.com/jeremyhahn/go-thresholdkms/pkg/codec"
	"github.com/jeremyhahn/go-thresholdkms/pkg/curve"
	"github.com/jeremyhahn/go-thresholdkms/pkg/ecies"
	"github.com/jeremyhahn/go-thresholdkms/pkg/kdf"
	"github.com/jeremyhahn/go-thresholdkms/pkg/ledger"
	"github.com/jeremyhahn/go-thresholdkms/pkg/policy"
	"github.com/jeremyhahn/go-thresholdkms/pkg/rng"
	"github.com/jeremyhahn/go-thresholdkms/pkg/scheme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func integrationPolicy() policy.Config {
	return policy.Config{
		Groups: map[string][]int{
			"audit": {1, 2, 3},
			"legal": {4, 5},
			"ops":   {6, 7, 8, 9},
		},
		OuterThreshold:    2,
		InnerThreshold:    2,
		VetoGroup:         "audit",
		RequiredWeight:    2,
		VetoThreshold:     2,
		Epoch:             "integration",
		VerifyInnerShares: true,
	}
}

// roundTrip encodes msg in an envelope and decodes it into out.
func roundTrip(t *testing.T, s *codec.Serializer, msgType codec.MessageType, msg, out any) {
	t.Helper()
	data, err := s.MarshalEnvelope("integration", msgType, 0, msg, 1)
	require.NoError(t, err)
	_, err = s.Open(data, msgType, out)
	require.NoError(t, err)
}

// TestThresholdKMSIntegration runs the full flow for every curve, suite and
// codec combination.
func TestThresholdKMSIntegration(t *testing.T) {
	for _, curveName := range []string{curve.NameSecp256k1, curve.NameP256} {
		for _, suiteName := range []string{kdf.SHA2, kdf.SHA2SIMD, kdf.BLAKE2b, kdf.SHA3, kdf.BLAKE3} {
			for _, codecName := range codec.Codecs {
				name := fmt.Sprintf("%s/%s/%s", curveName, suiteName, codecName)
				t.Run(name, func(t *testing.T) {
					runFlow(t, curveName, suiteName, codecName)
				})
			}
		}
	}
}

func runFlow(t *testing.T, curveName, suiteName, codecName string) {
	ser, err := codec.NewSerializer(codecName)
	require.NoError(t, err)

	s, err := scheme.New(scheme.Config{
		Curve:        curveName,
		Suite:        suiteName,
		Participants: 9,
		Threshold:    3,
	}, scheme.WithRand(rng.Deterministic([]byte(t.Name()))))
	require.NoError(t, err)
	defer s.Zeroize()

	res, err := s.GenerateKeys()
	require.NoError(t, err)
	_, err = s.SetupPolicy(integrationPolicy())
	require.NoError(t, err)
	l, tokens, err := s.IssueTokens(nil)
	require.NoError(t, err)

	// key shares
	shares := make(map[int]*codec.KeyShare)
	for _, id := range res.Params.IDs() {
		f, err := codec.NewKeyShareFile(res, suiteName, id)
		require.NoError(t, err)
		var decoded codec.KeyShareFile
		roundTrip(t, ser, codec.MsgTypeKeyShare, f, &decoded)
		k, err := decoded.Open()
		require.NoError(t, err)
		shares[id] = k
	}
	defer func() {
		for _, k := range shares {
			k.Zeroize()
		}
	}()

	// ledger and tokens
	var lm codec.LedgerMessage
	roundTrip(t, ser, codec.MsgTypeLedger, codec.NewLedgerMessage(l), &lm)
	published, err := lm.Ledger()
	require.NoError(t, err)
	assert.Equal(t, l.Root(), published.Root())

	present := func(kind ledger.Kind, ids ...int) []ledger.Presentation {
		var out []ledger.Presentation
		for _, id := range ids {
			tm, err := codec.NewTokenMessage(l, tokens[id])
			require.NoError(t, err)
			var decoded codec.TokenMessage
			roundTrip(t, ser, codec.MsgTypeToken, tm, &decoded)
			require.NoError(t, decoded.Verify(published.Suite(), published.Root()))
			p, err := decoded.Presentation(kind)
			require.NoError(t, err)
			out = append(out, p)
		}
		return out
	}

	secret, _, err := s.RecoverKey(present(ledger.KindApprove, 1, 4, 6))
	require.NoError(t, err)
	assert.True(t, s.Curve().ScalarBaseMult(secret).Equal(res.PublicKey))

	_, _, err = s.RecoverKey(append(present(ledger.KindApprove, 1, 4, 6), present(ledger.KindVeto, 2, 3)...))
	assert.ErrorIs(t, err, ledger.ErrVetoTriggered)

	// threshold decryption from decoded artifacts only
	aad := []byte(t.Name())
	ct, err := ecies.Encrypt(shares[1].Curve, shares[1].Suite, shares[1].PublicKey, []byte("integration"), aad, rng.Secure())
	require.NoError(t, err)

	var cm codec.CiphertextMessage
	roundTrip(t, ser, codec.MsgTypeCiphertext, codec.NewCiphertextMessage(shares[1].Curve, suiteName, ct, aad), &cm)
	c, suite, decodedCT, decodedAAD, err := cm.Open()
	require.NoError(t, err)

	quorum := []int{3, 5, 9}
	var partials []*ecies.Partial
	for _, id := range quorum {
		p, err := ecies.PartialDecrypt(c, decodedCT, id, shares[id].Share, quorum)
		require.NoError(t, err)
		var pm codec.PartialMessage
		roundTrip(t, ser, codec.MsgTypePartial, codec.NewPartialMessage(c, p), &pm)
		decoded, err := pm.Partial(c)
		require.NoError(t, err)
		partials = append(partials, decoded)
	}
	pt, err := ecies.DecryptWithPartials(c, suite, decodedCT, partials, 3, decodedAAD)
	require.NoError(t, err)
	assert.Equal(t, "integration", string(pt))

	// policy evaluation needs the veto group
	_, err = s.EvaluatePolicy(1, aad, map[string][]int{"legal": {4, 5}, "ops": {6, 7}})
	assert.ErrorIs(t, err, policy.ErrMissingMandatoryGroup)
	_, err = s.EvaluatePolicy(1, aad, map[string][]int{"audit": {1, 3}, "ops": {6, 7}})
	assert.NoError(t, err)
}
