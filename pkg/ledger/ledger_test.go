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

package ledger

import (
	"bytes"
	"math/big"
	"strings"
	"testing"

	"github.com/jeremyhahn/go-thresholdkms/pkg/curve"
	"github.com/jeremyhahn/go-thresholdkms/pkg/dkg"
	"github.com/jeremyhahn/go-thresholdkms/pkg/kdf"
	"github.com/jeremyhahn/go-thresholdkms/pkg/metrics"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEpoch = []byte("epoch-7")

func testShares(n int) map[int]*big.Int {
	shares := make(map[int]*big.Int, n)
	for id := 1; id <= n; id++ {
		shares[id] = big.NewInt(int64(1000 + 37*id))
	}
	return shares
}

func issue(t *testing.T, n int) (*Ledger, map[int]*TokenPair) {
	t.Helper()
	l, tokens, err := Issue(kdf.Default(), curve.Secp256k1(), testEpoch, testShares(n))
	require.NoError(t, err)
	return l, tokens
}

// fixedRoster: ids 1-2 in "a", 3-4 in "b", 5-6 in "c" (weight 2); 7 is
// ungrouped; participant 6 has veto weight 3.
type fixedRoster struct{}

func (fixedRoster) GroupOf(id int) (string, bool) {
	switch {
	case id <= 2:
		return "a", true
	case id <= 4:
		return "b", true
	case id <= 6:
		return "c", true
	}
	return "", false
}

func (fixedRoster) GroupWeight(g string) int {
	if g == "c" {
		return 2
	}
	return 1
}

func (fixedRoster) VetoWeight(id int) int {
	if id == 6 {
		return 3
	}
	return 1
}

func TestDeriveToken(t *testing.T) {
	s, c := kdf.Default(), curve.Secp256k1()
	share := big.NewInt(12345)

	a, err := DeriveToken(s, c, testEpoch, 1, share, KindApprove)
	require.NoError(t, err)
	assert.Len(t, a, kdf.Size256)

	again, err := DeriveToken(s, c, testEpoch, 1, share, KindApprove)
	require.NoError(t, err)
	assert.Equal(t, a, again)

	v, err := DeriveToken(s, c, testEpoch, 1, share, KindVeto)
	require.NoError(t, err)
	assert.NotEqual(t, a, v)

	otherID, _ := DeriveToken(s, c, testEpoch, 2, share, KindApprove)
	otherEpoch, _ := DeriveToken(s, c, []byte("epoch-8"), 1, share, KindApprove)
	otherShare, _ := DeriveToken(s, c, testEpoch, 1, big.NewInt(12346), KindApprove)
	assert.NotEqual(t, a, otherID)
	assert.NotEqual(t, a, otherEpoch)
	assert.NotEqual(t, a, otherShare)

	// H256("no" || epoch || u32be(id) || share_bytes)
	want := kdf.Sum256(s, []byte("no"), testEpoch, []byte{0, 0, 0, 1}, c.MarshalScalar(share))
	assert.Equal(t, want, a)

	_, err = DeriveToken(s, c, testEpoch, 1, share, Kind(9))
	assert.Error(t, err)
	_, err = DeriveToken(s, c, testEpoch, 0, share, KindApprove)
	assert.Error(t, err)
}

func TestKind(t *testing.T) {
	k, err := ParseKind("approve")
	require.NoError(t, err)
	assert.Equal(t, KindApprove, k)
	k, err = ParseKind("veto")
	require.NoError(t, err)
	assert.Equal(t, KindVeto, k)
	_, err = ParseKind("maybe")
	assert.Error(t, err)

	assert.Equal(t, "no", KindApprove.Tag())
	assert.Equal(t, "veto", KindVeto.Tag())
	assert.Equal(t, "unknown", Kind(0).String())
}

func TestProofSoundness(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 8} {
		l, tokens := issue(t, n)
		s := l.Suite()
		root := l.Root()
		require.Equal(t, 2*n, l.Size())

		for id := 1; id <= n; id++ {
			for _, kind := range Kinds {
				tok := tokens[id].Token(kind)
				p, err := l.Proof(id, kind)
				require.NoError(t, err)
				assert.True(t, VerifyProof(s, root, tok, p), "n=%d id=%d kind=%s", n, id, kind)

				mutated := bytes.Clone(tok)
				mutated[0] ^= 0x80
				assert.False(t, VerifyProof(s, root, mutated, p))

				for i := range p.Steps {
					bad := &Proof{ID: p.ID, Kind: p.Kind, Steps: make([]Step, len(p.Steps))}
					copy(bad.Steps, p.Steps)
					bad.Steps[i].Sibling = bytes.Clone(p.Steps[i].Sibling)
					bad.Steps[i].Sibling[5] ^= 0x01
					assert.False(t, VerifyProof(s, root, tok, bad))
				}

				// a token proves only its own kind
				wrongKind := &Proof{ID: p.ID, Kind: otherKind(kind), Steps: p.Steps}
				assert.False(t, VerifyProof(s, root, tok, wrongKind))
			}
		}
	}
}

func otherKind(k Kind) Kind {
	if k == KindApprove {
		return KindVeto
	}
	return KindApprove
}

func TestProofShape(t *testing.T) {
	l, _ := issue(t, 3) // 6 leaves -> levels of 6, 3, 2, 1
	p, err := l.Proof(3, KindVeto) // leaf index 5
	require.NoError(t, err)
	require.Len(t, p.Steps, 3)
	assert.Equal(t, Left, p.Steps[0].Direction)
	// index 2 on the second level is odd-out and paired with itself
	assert.Equal(t, Right, p.Steps[1].Direction)
	assert.Equal(t, Left, p.Steps[2].Direction)

	_, err = l.Proof(9, KindApprove)
	assert.ErrorIs(t, err, ErrUnknownEntry)
	assert.False(t, VerifyProof(l.Suite(), l.Root(), []byte("x"), nil))
	assert.False(t, VerifyLeaf(l.Suite(), l.Root(), l.Root(), []Step{{Sibling: l.Root(), Direction: Direction(7)}}))
	assert.Equal(t, "LEFT", Left.String())
}

func TestNewFromEntries(t *testing.T) {
	l, _ := issue(t, 4)
	entries := l.Entries()

	// order of published entries does not matter
	reversed := make([]Entry, len(entries))
	for i, e := range entries {
		reversed[len(entries)-1-i] = e
	}
	rebuilt, err := New(l.Suite(), l.Epoch(), reversed)
	require.NoError(t, err)
	assert.Equal(t, l.Root(), rebuilt.Root())

	_, err = New(nil, testEpoch, nil)
	assert.ErrorIs(t, err, ErrEmptyLedger)
	_, err = New(nil, testEpoch, append(entries, entries[0]))
	assert.ErrorIs(t, err, ErrDuplicateEntry)
	_, err = New(nil, testEpoch, []Entry{{ID: 1, Kind: KindApprove, Commitment: []byte{1}}})
	assert.Error(t, err)
	_, err = New(nil, testEpoch, []Entry{{ID: 0, Kind: KindApprove, Commitment: make([]byte, 32)}})
	assert.Error(t, err)

	c, ok := l.Commitment(2, KindVeto)
	assert.True(t, ok)
	assert.Len(t, c, kdf.Size256)
	_, ok = l.Commitment(9, KindVeto)
	assert.False(t, ok)
}

func TestSuitesProduceDifferentRoots(t *testing.T) {
	b2, err := kdf.Lookup(kdf.BLAKE2b)
	require.NoError(t, err)
	l1, _, err := Issue(kdf.Default(), curve.Secp256k1(), testEpoch, testShares(3))
	require.NoError(t, err)
	l2, tokens, err := Issue(b2, curve.Secp256k1(), testEpoch, testShares(3))
	require.NoError(t, err)
	assert.NotEqual(t, l1.Root(), l2.Root())

	p, err := l2.Proof(1, KindApprove)
	require.NoError(t, err)
	assert.True(t, VerifyProof(b2, l2.Root(), tokens[1].Approve, p))
}

func TestClassify(t *testing.T) {
	l, tokens := issue(t, 4)
	cls := l.Classify([]Presentation{
		{ID: 1, Token: tokens[1].Approve},
		{ID: 1, Token: tokens[1].Approve},
		{ID: 2, Token: tokens[2].Veto},
		{ID: 3, Token: tokens[4].Approve}, // someone else's token
		{ID: 9, Token: tokens[1].Approve}, // unknown id
		{ID: 4, Token: nil},
	})
	assert.Equal(t, []int{1}, cls.Approvers)
	assert.Equal(t, []int{2}, cls.Vetoers)
	require.Len(t, cls.Rejected, 3)
	assert.Equal(t, 3, cls.Rejected[0].Index)
	assert.Equal(t, 3, cls.Rejected[0].ID)
	for _, r := range cls.Rejected {
		assert.ErrorIs(t, r.Err, ErrInvalidToken)
	}
}

func TestRecoverVetoPrecedence(t *testing.T) {
	l, tokens := issue(t, 7)
	rules := Rules{Roster: fixedRoster{}, RequiredWeight: 2, VetoThreshold: 2}

	approveAll := []Presentation{
		{ID: 1, Token: tokens[1].Approve},
		{ID: 3, Token: tokens[3].Approve},
		{ID: 5, Token: tokens[5].Approve},
	}
	d, err := l.Recover(approveAll, rules)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, d.Groups)
	assert.Equal(t, 4, d.Weight)

	// weight alone would suffice, but two vetoes reach the threshold
	withVetoes := append([]Presentation{
		{ID: 2, Token: tokens[2].Veto},
		{ID: 4, Token: tokens[4].Veto},
	}, approveAll...)
	_, err = l.Recover(withVetoes, rules)
	assert.ErrorIs(t, err, ErrVetoTriggered)
	var ve *VetoError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []int{2, 4}, ve.Vetoers)
	assert.Equal(t, 2, ve.Weight)

	// one weighted veto is enough
	_, err = l.Recover(append([]Presentation{{ID: 6, Token: tokens[6].Veto}}, approveAll...), rules)
	assert.ErrorIs(t, err, ErrVetoTriggered)

	// vetoes are counted even when approval weight is short
	_, err = l.Recover([]Presentation{{ID: 6, Token: tokens[6].Veto}}, rules)
	assert.ErrorIs(t, err, ErrVetoTriggered)

	// a single veto stays below the threshold
	d, err = l.Recover(append([]Presentation{{ID: 2, Token: tokens[2].Veto}}, approveAll...), rules)
	require.NoError(t, err)
	assert.Equal(t, 1, d.VetoWeight)

	// an invalid veto token is excluded, not counted
	forged := []Presentation{{ID: 2, Token: tokens[3].Veto}, {ID: 4, Token: tokens[4].Veto}}
	_, err = l.Recover(append(forged, approveAll...), rules)
	require.NoError(t, err)
}

func TestRecoverWeight(t *testing.T) {
	l, tokens := issue(t, 7)
	m, err := metrics.New(nil)
	require.NoError(t, err)
	rules := Rules{Roster: fixedRoster{}, RequiredWeight: 3, Metrics: m}

	// two members of one group count once
	_, err = l.Recover([]Presentation{
		{ID: 1, Token: tokens[1].Approve},
		{ID: 2, Token: tokens[2].Approve},
		{ID: 3, Token: tokens[3].Approve},
	}, rules)
	assert.ErrorIs(t, err, ErrInsufficientWeight)
	assert.ErrorIs(t, err, dkg.ErrInsufficientQuorum)
	var we *WeightError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, 2, we.Weight)

	// the weighted group tips it over
	d, err := l.Recover([]Presentation{
		{ID: 1, Token: tokens[1].Approve},
		{ID: 6, Token: tokens[6].Approve},
	}, rules)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Weight)

	// ungrouped participants carry no weight
	_, err = l.Recover([]Presentation{
		{ID: 1, Token: tokens[1].Approve},
		{ID: 7, Token: tokens[7].Approve},
		{ID: 3, Token: tokens[3].Approve},
	}, rules)
	assert.ErrorIs(t, err, ErrInsufficientWeight)

	// invalid tokens drop the valid set below the requirement
	_, err = l.Recover([]Presentation{
		{ID: 1, Token: tokens[1].Approve},
		{ID: 5, Token: tokens[1].Approve},
	}, rules)
	assert.ErrorIs(t, err, ErrInsufficientWeight)
}

// recoveries reads the recovery counter for outcome from m's registry.
func recoveries(t *testing.T, m *metrics.Collector, outcome string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if !strings.HasSuffix(f.GetName(), "recoveries_total") {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "outcome" && label.GetValue() == outcome {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestRecoverMetrics(t *testing.T) {
	l, tokens := issue(t, 4)
	m, err := metrics.New(nil)
	require.NoError(t, err)
	rules := Rules{RequiredWeight: 2, VetoThreshold: 1, Metrics: m}

	_, err = l.Recover([]Presentation{
		{ID: 1, Token: tokens[1].Approve},
		{ID: 2, Token: tokens[2].Approve},
	}, rules)
	require.NoError(t, err)

	_, err = l.Recover([]Presentation{{ID: 1, Token: tokens[1].Approve}}, rules)
	assert.ErrorIs(t, err, ErrInsufficientWeight)

	_, err = l.Recover([]Presentation{
		{ID: 1, Token: tokens[1].Approve},
		{ID: 2, Token: tokens[2].Approve},
		{ID: 3, Token: tokens[3].Veto},
	}, rules)
	assert.ErrorIs(t, err, ErrVetoTriggered)

	assert.Equal(t, 1.0, recoveries(t, m, metrics.OutcomeSuccess))
	assert.Equal(t, 1.0, recoveries(t, m, metrics.OutcomeQuorum))
	assert.Equal(t, 1.0, recoveries(t, m, metrics.OutcomeVeto))
}

func TestRecoverRejectsZeroWeight(t *testing.T) {
	l, tokens := issue(t, 3)
	for _, rules := range []Rules{
		{},
		{RequiredWeight: -1},
		{RequiredWeight: 1, VetoThreshold: -1},
		{RequiredWeight: 1, MinApprovers: -1},
	} {
		_, err := l.Recover(nil, rules)
		assert.ErrorIs(t, err, ErrInvalidRules)
		_, err = l.Recover([]Presentation{{ID: 1, Token: tokens[1].Approve}}, rules)
		assert.ErrorIs(t, err, ErrInvalidRules)
	}
}

func TestRecoverMinApprovers(t *testing.T) {
	l, tokens := issue(t, 7)
	rules := Rules{Roster: fixedRoster{}, RequiredWeight: 2, MinApprovers: 3}

	// enough weight, too few participants
	_, err := l.Recover([]Presentation{
		{ID: 1, Token: tokens[1].Approve},
		{ID: 6, Token: tokens[6].Approve},
	}, rules)
	assert.ErrorIs(t, err, dkg.ErrInsufficientQuorum)
	var qe *dkg.QuorumError
	require.True(t, errors.As(err, &qe))

	d, err := l.Recover([]Presentation{
		{ID: 1, Token: tokens[1].Approve},
		{ID: 2, Token: tokens[2].Approve},
		{ID: 6, Token: tokens[6].Approve},
	}, rules)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 6}, d.Approvers)
}

func TestRecoverSoloRoster(t *testing.T) {
	l, tokens := issue(t, 3)
	d, err := l.Recover([]Presentation{
		{ID: 1, Token: tokens[1].Approve},
		{ID: 2, Token: tokens[2].Approve},
	}, Rules{RequiredWeight: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, d.Weight)
	assert.Equal(t, []int{1, 2}, d.Approvers)
}

func TestTokenPairZeroize(t *testing.T) {
	_, tokens := issue(t, 1)
	p := tokens[1]
	p.Zeroize()
	assert.Equal(t, make([]byte, kdf.Size256), p.Approve)
	assert.Equal(t, make([]byte, kdf.Size256), p.Veto)
}
