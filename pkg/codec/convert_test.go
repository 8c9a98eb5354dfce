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

package codec

import (
	"testing"

	"github.com/jeremyhahn/go-thresholdkms/pkg/curve"
	"github.com/jeremyhahn/go-thresholdkms/pkg/dkg"
	"github.com/jeremyhahn/go-thresholdkms/pkg/ecies"
	"github.com/jeremyhahn/go-thresholdkms/pkg/kdf"
	"github.com/jeremyhahn/go-thresholdkms/pkg/ledger"
	"github.com/jeremyhahn/go-thresholdkms/pkg/rng"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keygen(t *testing.T) *dkg.Result {
	t.Helper()
	res, err := dkg.Run(curve.Secp256k1(), dkg.Params{N: 4, T: 3}, rng.Deterministic([]byte("codec")))
	require.NoError(t, err)
	return res
}

func TestKeyShareFileAcrossCodecs(t *testing.T) {
	res := keygen(t)
	f, err := NewKeyShareFile(res, kdf.SHA2, 2)
	require.NoError(t, err)

	for _, codec := range Codecs {
		t.Run(codec, func(t *testing.T) {
			s, err := NewSerializer(codec)
			require.NoError(t, err)
			data, err := s.Marshal(f)
			require.NoError(t, err)

			var decoded KeyShareFile
			require.NoError(t, s.Unmarshal(data, &decoded))
			k, err := decoded.Open()
			require.NoError(t, err)
			assert.Equal(t, 2, k.ID)
			assert.Equal(t, 0, k.Share.Cmp(res.Shares[2]))
			assert.True(t, k.PublicKey.Equal(res.PublicKey))
			assert.Equal(t, res.SessionID.String(), k.SessionID)
			assert.Len(t, k.Commitments, 4)
		})
	}
}

func TestKeyShareFileRejectsTampering(t *testing.T) {
	res := keygen(t)

	f, err := NewKeyShareFile(res, "", 1)
	require.NoError(t, err)
	other, err := NewKeyShareFile(res, "", 2)
	require.NoError(t, err)

	swapped := *f
	swapped.Share = other.Share
	_, err = swapped.Open()
	assert.ErrorIs(t, err, ErrShareMismatch)

	wrongKey := *f
	wrongKey.PublicKey = other.PublicShare
	_, err = wrongKey.Open()
	assert.ErrorIs(t, err, ErrShareMismatch)

	short := *f
	short.Commitments = f.Commitments[:3]
	_, err = short.Open()
	assert.ErrorIs(t, err, ErrInvalidMessage)

	duplicate := *f
	duplicate.Commitments = append([]CommitmentMessage(nil), f.Commitments...)
	duplicate.Commitments[0] = duplicate.Commitments[1]
	_, err = duplicate.Open()
	assert.ErrorIs(t, err, dkg.ErrDuplicateCommitment)

	outside := *f
	outside.Commitments = append([]CommitmentMessage(nil), f.Commitments...)
	outside.Commitments[0].Dealer = 7
	_, err = outside.Open()
	assert.ErrorIs(t, err, dkg.ErrInvalidParticipantID)

	badHex := *f
	badHex.Share = "zz"
	_, err = badHex.Open()
	assert.ErrorIs(t, err, ErrInvalidMessage)

	badID := *f
	badID.ID = 9
	_, err = badID.Open()
	assert.ErrorIs(t, err, dkg.ErrInvalidParticipantID)

	_, err = NewKeyShareFile(res, "", 9)
	assert.Error(t, err)
}

func TestCommitmentMessage(t *testing.T) {
	res := keygen(t)
	c := res.Curve
	m := NewCommitmentMessage(c, 3, res.Commitments[3])
	assert.Equal(t, c.Name, m.Curve)
	assert.Len(t, m.Points, 3)

	cm, err := m.Commitment(c)
	require.NoError(t, err)
	for i, p := range cm.Points {
		assert.True(t, p.Equal(res.Commitments[3].Points[i]))
	}

	_, err = m.Commitment(curve.P256())
	assert.ErrorIs(t, err, ErrCurveMismatch)

	m.Points[1] = m.Points[1][:10]
	_, err = m.Commitment(c)
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestShareAndComplaintMessages(t *testing.T) {
	res := keygen(t)
	c := res.Curve
	m := NewShareMessage(c, 1, 2, res.Shares[2])
	k, err := m.Scalar(c)
	require.NoError(t, err)
	assert.Equal(t, 0, k.Cmp(res.Shares[2]))

	complaints := []dkg.Complaint{{Dealer: 2, Recipient: 1}, {Dealer: 2, Recipient: 4}}
	assert.Equal(t, complaints, NewComplaintMessage(complaints).List())
}

func TestCiphertextAndPartials(t *testing.T) {
	res := keygen(t)
	c := res.Curve
	aad := []byte("file-7")
	ct, err := ecies.Encrypt(c, nil, res.PublicKey, []byte("hello"), aad, nil)
	require.NoError(t, err)

	yaml, err := NewSerializer(YAML)
	require.NoError(t, err)
	data, err := yaml.Marshal(NewCiphertextMessage(c, kdf.SHA2, ct, aad))
	require.NoError(t, err)
	var cm CiphertextMessage
	require.NoError(t, yaml.Unmarshal(data, &cm))
	c2, suite, ct2, aad2, err := cm.Open()
	require.NoError(t, err)
	assert.Equal(t, c.Name, c2.Name)
	assert.Equal(t, kdf.SHA2, suite.Name())
	assert.Equal(t, aad, aad2)

	quorum := []int{1, 2, 4}
	cbor, err := NewSerializer(CBOR)
	require.NoError(t, err)
	var partials []*ecies.Partial
	for _, id := range quorum {
		p, err := ecies.PartialDecrypt(c2, ct2, id, res.Shares[id], quorum)
		require.NoError(t, err)
		data, err := cbor.Marshal(NewPartialMessage(c2, p))
		require.NoError(t, err)
		var pm PartialMessage
		require.NoError(t, cbor.Unmarshal(data, &pm))
		decoded, err := pm.Partial(c2)
		require.NoError(t, err)
		partials = append(partials, decoded)
	}
	pt, err := ecies.DecryptWithPartials(c2, suite, ct2, partials, 3, aad2)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), pt)

	bad := NewCiphertextMessage(c, "nope", ct, aad)
	_, _, _, _, err = bad.Open()
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestLedgerAndTokens(t *testing.T) {
	res := keygen(t)
	l, tokens, err := ledger.Issue(kdf.Default(), res.Curve, []byte("epoch-3"), res.Shares)
	require.NoError(t, err)

	msg := NewLedgerMessage(l)
	assert.Len(t, msg.Entries, 8)
	rebuilt, err := msg.Ledger()
	require.NoError(t, err)
	assert.Equal(t, l.Root(), rebuilt.Root())

	tampered := *msg
	tampered.Entries = append([]EntryMessage(nil), msg.Entries...)
	tampered.Entries[0].Kind = "veto"
	tampered.Entries[1].Kind = "approve"
	_, err = tampered.Ledger()
	assert.ErrorIs(t, err, ErrRootMismatch)

	tm, err := NewTokenMessage(l, tokens[3])
	require.NoError(t, err)
	require.NoError(t, tm.Verify(l.Suite(), l.Root()))

	approve, err := tm.Presentation(ledger.KindApprove)
	require.NoError(t, err)
	assert.Equal(t, tokens[3].Approve, approve.Token)

	forged := *tm
	forged.ID = 2
	assert.ErrorIs(t, forged.Verify(l.Suite(), l.Root()), ledger.ErrInvalidToken)

	swapped := *tm
	swapped.Approve, swapped.Veto = tm.Veto, tm.Approve
	assert.ErrorIs(t, swapped.Verify(l.Suite(), l.Root()), ledger.ErrInvalidToken)

	pm := NewProofMessage(&ledger.Proof{ID: 1, Kind: ledger.KindApprove, Steps: []ledger.Step{{Sibling: []byte{1}, Direction: ledger.Left}}})
	pm.Steps[0].Direction = "UP"
	_, err = pm.Proof()
	assert.ErrorIs(t, err, ErrInvalidMessage)
}
