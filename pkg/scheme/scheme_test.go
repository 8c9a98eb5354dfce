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

package scheme

import (
	"bytes"
	"testing"

	"github.com/jeremyhahn/go-thresholdkms/pkg/curve"
	"github.com/jeremyhahn/go-thresholdkms/pkg/dkg"
	"github.com/jeremyhahn/go-thresholdkms/pkg/ecies"
	"github.com/jeremyhahn/go-thresholdkms/pkg/kdf"
	"github.com/jeremyhahn/go-thresholdkms/pkg/ledger"
	"github.com/jeremyhahn/go-thresholdkms/pkg/metrics"
	"github.com/jeremyhahn/go-thresholdkms/pkg/policy"
	"github.com/jeremyhahn/go-thresholdkms/pkg/rng"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func testPolicy() policy.Config {
	return policy.Config{
		Groups: map[string][]int{
			"audit": {1, 2, 3},
			"legal": {4, 5},
			"ops":   {6, 7, 8, 9},
		},
		OuterThreshold:  2,
		InnerThreshold:  2,
		InnerThresholds: map[string]int{"ops": 3},
		GroupWeights:    map[string]int{"ops": 2},
		VetoGroup:       "audit",
		RequiredWeight:  3,
		VetoThreshold:   2,
		Epoch:           "2026-q4",
	}
}

func newScheme(t *testing.T, opts ...Option) *Scheme {
	t.Helper()
	cfg := Config{Curve: curve.NameSecp256k1, Suite: kdf.SHA2, Participants: 9, Threshold: 3}
	opts = append([]Option{WithRand(rng.Deterministic([]byte(t.Name())))}, opts...)
	s, err := New(cfg, opts...)
	require.NoError(t, err)
	_, err = s.GenerateKeys()
	require.NoError(t, err)
	return s
}

func approve(tokens map[int]*ledger.TokenPair, ids ...int) []ledger.Presentation {
	out := make([]ledger.Presentation, len(ids))
	for i, id := range ids {
		out[i] = ledger.Presentation{ID: id, Token: tokens[id].Approve}
	}
	return out
}

func veto(tokens map[int]*ledger.TokenPair, ids ...int) []ledger.Presentation {
	out := make([]ledger.Presentation, len(ids))
	for i, id := range ids {
		out[i] = ledger.Presentation{ID: id, Token: tokens[id].Veto}
	}
	return out
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown curve", Config{Curve: "ed448", Participants: 3, Threshold: 2}},
		{"unknown suite", Config{Curve: curve.NameP256, Suite: "md5", Participants: 3, Threshold: 2}},
		{"threshold above n", Config{Curve: curve.NameP256, Participants: 3, Threshold: 4}},
		{"zero threshold", Config{Curve: curve.NameP256, Participants: 3, Threshold: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestRequiresKeys(t *testing.T) {
	s, err := New(DefaultConfig())
	require.NoError(t, err)

	_, err = s.PublicKey()
	assert.ErrorIs(t, err, ErrNoKeys)
	_, err = s.Encrypt([]byte("m"), nil)
	assert.ErrorIs(t, err, ErrNoKeys)
	_, _, err = s.IssueTokens([]byte("e"))
	assert.ErrorIs(t, err, ErrNoKeys)
	_, err = s.PartialDecrypt(&ecies.Ciphertext{}, 1, []int{1, 2})
	assert.ErrorIs(t, err, ErrNoKeys)
	_, _, err = s.RecoverKey(nil)
	assert.ErrorIs(t, err, ErrNoKeys)
	_, err = s.EvaluatePolicy(0, nil, nil)
	assert.ErrorIs(t, err, ErrNoPolicy)
	_, err = s.VerifyToken([]byte("t"), nil)
	assert.ErrorIs(t, err, ErrNoLedger)
}

func TestThresholdEncryption(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m, err := metrics.New(nil)
	require.NoError(t, err)
	s := newScheme(t, WithLogger(zap.New(core)), WithMetrics(m))
	assert.Equal(t, 1, logs.FilterMessage("keys generated").Len())

	msg := []byte("quarterly numbers")
	aad := []byte("report/7")
	ct, err := s.Encrypt(msg, aad)
	require.NoError(t, err)

	for _, quorum := range [][]int{{2, 5, 9}, {1, 3, 4, 8}} {
		var partials []*ecies.Partial
		for _, id := range quorum {
			p, err := s.PartialDecrypt(ct, id, quorum)
			require.NoError(t, err)
			partials = append(partials, p)
		}
		pt, err := s.Decrypt(ct, partials, aad)
		require.NoError(t, err)
		assert.Equal(t, msg, pt)

		ct2 := *ct
		ct2.CT = bytes.Clone(ct.CT)
		ct2.CT[0] ^= 0xff
		pt, err = s.Decrypt(&ct2, partials, aad)
		assert.ErrorIs(t, err, ecies.ErrMACMismatch)
		assert.Nil(t, pt)
	}

	p1, err := s.PartialDecrypt(ct, 1, []int{1, 2})
	require.NoError(t, err)
	p2, err := s.PartialDecrypt(ct, 2, []int{1, 2})
	require.NoError(t, err)
	_, err = s.Decrypt(ct, []*ecies.Partial{p1, p2}, aad)
	assert.ErrorIs(t, err, dkg.ErrInsufficientQuorum)

	_, err = s.PartialDecrypt(ct, 10, []int{10, 1, 2})
	assert.ErrorIs(t, err, dkg.ErrInvalidParticipantID)
}

func TestRecoverKeyWithPolicy(t *testing.T) {
	s := newScheme(t)
	_, err := s.SetupPolicy(testPolicy())
	require.NoError(t, err)

	l, tokens, err := s.IssueTokens(nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("2026-q4"), l.Epoch())
	assert.Equal(t, 18, l.Size())

	q, err := s.PublicKey()
	require.NoError(t, err)

	secret, d, err := s.RecoverKey(approve(tokens, 1, 4, 6))
	require.NoError(t, err)
	assert.True(t, s.Curve().ScalarBaseMult(secret).Equal(q))
	assert.Equal(t, []string{"audit", "legal", "ops"}, d.Groups)
	assert.Equal(t, 4, d.Weight)

	// veto precedence: enough weight, but two vetoes
	_, _, err = s.RecoverKey(append(approve(tokens, 1, 4, 6, 7), veto(tokens, 2, 5)...))
	assert.ErrorIs(t, err, ledger.ErrVetoTriggered)

	// one group carries too little weight
	_, _, err = s.RecoverKey(approve(tokens, 1, 2, 3))
	assert.ErrorIs(t, err, ledger.ErrInsufficientWeight)

	// weight met by two approvers, but t = 3 shares are needed
	_, _, err = s.RecoverKey(approve(tokens, 4, 6))
	assert.ErrorIs(t, err, dkg.ErrInsufficientQuorum)
	var qe *dkg.QuorumError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, 2, qe.Have)

	// forged tokens are excluded from the count
	forged := approve(tokens, 1, 4)
	forged = append(forged, ledger.Presentation{ID: 6, Token: tokens[7].Approve})
	_, _, err = s.RecoverKey(forged)
	assert.ErrorIs(t, err, dkg.ErrInsufficientQuorum)
}

func TestRecoverKeyWithoutPolicy(t *testing.T) {
	s := newScheme(t)
	_, tokens, err := s.IssueTokens([]byte("epoch-1"))
	require.NoError(t, err)

	rules := s.Rules()
	assert.Nil(t, rules.Roster)
	assert.Equal(t, 3, rules.RequiredWeight)

	secret, _, err := s.RecoverKey(approve(tokens, 2, 5, 8))
	require.NoError(t, err)
	keys, err := s.Keys()
	require.NoError(t, err)
	expected, err := keys.Reconstruct([]int{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 0, expected.Cmp(secret))

	_, _, err = s.RecoverKey(approve(tokens, 2, 5))
	assert.ErrorIs(t, err, ledger.ErrInsufficientWeight)

	// vetoes are disabled without a policy
	_, _, err = s.RecoverKey(append(approve(tokens, 2, 5, 8), veto(tokens, 1, 3, 4)...))
	assert.NoError(t, err)
}

func TestVerifyToken(t *testing.T) {
	s := newScheme(t)
	l, tokens, err := s.IssueTokens([]byte("epoch-1"))
	require.NoError(t, err)

	for id, pair := range tokens {
		for _, kind := range ledger.Kinds {
			p, err := l.Proof(id, kind)
			require.NoError(t, err)
			ok, err := s.VerifyToken(pair.Token(kind), p)
			require.NoError(t, err)
			assert.True(t, ok)
		}
	}

	p, err := l.Proof(1, ledger.KindApprove)
	require.NoError(t, err)
	ok, err := s.VerifyToken(tokens[2].Approve, p)
	require.NoError(t, err)
	assert.False(t, ok)

	// re-issuing under a new epoch invalidates old proofs
	_, _, err = s.IssueTokens([]byte("epoch-2"))
	require.NoError(t, err)
	ok, err = s.VerifyToken(tokens[1].Approve, p)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluatePolicy(t *testing.T) {
	s := newScheme(t)
	p, err := s.SetupPolicy(testPolicy())
	require.NoError(t, err)

	a, err := s.EvaluatePolicy(3, []byte("doc"), map[string][]int{"audit": {1, 2}, "legal": {4, 5}})
	require.NoError(t, err)
	b, err := s.EvaluatePolicy(3, []byte("doc"), map[string][]int{"audit": {2, 3}, "ops": {6, 8, 9}})
	require.NoError(t, err)
	assert.True(t, a.Equal(b))

	c, err := s.EvaluatePolicy(4, []byte("doc"), map[string][]int{"audit": {2, 3}, "ops": {6, 8, 9}})
	require.NoError(t, err)
	assert.False(t, a.Equal(c))

	_, err = s.EvaluatePolicy(3, []byte("doc"), map[string][]int{"legal": {4, 5}, "ops": {6, 7, 8}})
	assert.ErrorIs(t, err, policy.ErrMissingMandatoryGroup)

	got, err := s.Policy()
	require.NoError(t, err)
	assert.Same(t, p, got)

	bad := testPolicy()
	bad.Groups["ops"] = []int{6, 7, 8, 10}
	_, err = s.SetupPolicy(bad)
	assert.ErrorIs(t, err, policy.ErrInvalidConfig)
}

func TestHistory(t *testing.T) {
	h := ledger.NewHistory()
	s := newScheme(t, WithHistory(h))

	l1, _, err := s.IssueTokens([]byte("e1"))
	require.NoError(t, err)
	l2, _, err := s.IssueTokens([]byte("e2"))
	require.NoError(t, err)
	require.Equal(t, uint64(2), h.Size())

	root, err := h.Root()
	require.NoError(t, err)
	for i, l := range []*ledger.Ledger{l1, l2} {
		proof, err := h.InclusionProof(uint64(i))
		require.NoError(t, err)
		assert.NoError(t, ledger.VerifyHistoryInclusion(uint64(i), 2, l.Epoch(), l.Root(), proof, root))
	}

	_, _, err = s.IssueTokens([]byte("e1"))
	assert.ErrorIs(t, err, ledger.ErrDuplicateEntry)
}

func TestZeroize(t *testing.T) {
	s := newScheme(t)
	_, _, err := s.IssueTokens([]byte("e"))
	require.NoError(t, err)
	s.Zeroize()
	_, err = s.PublicKey()
	assert.ErrorIs(t, err, ErrNoKeys)
	_, err = s.Ledger()
	assert.ErrorIs(t, err, ErrNoLedger)
}

func TestRefreshShares(t *testing.T) {
	s := newScheme(t)
	before, err := s.PublicKey()
	require.NoError(t, err)

	aad := []byte("refresh")
	ct, err := s.Encrypt([]byte("still readable"), aad)
	require.NoError(t, err)
	_, _, err = s.IssueTokens([]byte("e"))
	require.NoError(t, err)

	res, err := s.RefreshShares()
	require.NoError(t, err)
	assert.True(t, res.PublicKey.Equal(before))

	_, err = s.Ledger()
	assert.ErrorIs(t, err, ErrNoLedger)

	quorum := []int{2, 5, 7}
	var partials []*ecies.Partial
	for _, id := range quorum {
		p, err := s.PartialDecrypt(ct, id, quorum)
		require.NoError(t, err)
		partials = append(partials, p)
	}
	pt, err := s.Decrypt(ct, partials, aad)
	require.NoError(t, err)
	assert.Equal(t, "still readable", string(pt))
}

func TestRepairShare(t *testing.T) {
	s := newScheme(t)
	keys, err := s.Keys()
	require.NoError(t, err)
	want, err := keys.Share(6)
	require.NoError(t, err)

	got, err := s.RepairShare(6, []int{1, 4, 9})
	require.NoError(t, err)
	assert.Equal(t, 0, want.Cmp(got))

	_, err = s.RepairShare(6, []int{1, 4})
	assert.ErrorIs(t, err, dkg.ErrInsufficientQuorum)

	s.Zeroize()
	_, err = s.RepairShare(6, []int{1, 4, 9})
	assert.ErrorIs(t, err, ErrNoKeys)
}
