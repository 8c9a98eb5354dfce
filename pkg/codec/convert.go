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
	"encoding/hex"
	"math/big"
	"sort"

	"github.com/jeremyhahn/go-thresholdkms/pkg/curve"
	"github.com/jeremyhahn/go-thresholdkms/pkg/dkg"
	"github.com/jeremyhahn/go-thresholdkms/pkg/ecies"
	"github.com/jeremyhahn/go-thresholdkms/pkg/kdf"
	"github.com/jeremyhahn/go-thresholdkms/pkg/ledger"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidMessage indicates a field that does not decode.
	ErrInvalidMessage = errors.New("codec: invalid message")

	// ErrCurveMismatch indicates a message for a different curve.
	ErrCurveMismatch = errors.New("codec: curve mismatch")

	// ErrRootMismatch indicates ledger entries that do not hash to the
	// published root.
	ErrRootMismatch = errors.New("codec: ledger root mismatch")

	// ErrShareMismatch indicates a key share file whose share or public
	// key disagrees with its commitments.
	ErrShareMismatch = errors.New("codec: key share does not match commitments")
)

func decodeHex(field, s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidMessage, "%s: %v", field, err)
	}
	return b, nil
}

func decodePoint(c *curve.Curve, field, s string) (*curve.Point, error) {
	b, err := decodeHex(field, s)
	if err != nil {
		return nil, err
	}
	p, err := c.Unmarshal(b)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidMessage, "%s: %v", field, err)
	}
	return p, nil
}

func decodeScalar(c *curve.Curve, field, s string) (*big.Int, error) {
	b, err := decodeHex(field, s)
	if err != nil {
		return nil, err
	}
	defer dkg.ZeroBytes(b)
	k, err := c.UnmarshalScalar(b)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidMessage, "%s: %v", field, err)
	}
	return k, nil
}

func lookupCurve(name string) (*curve.Curve, error) {
	c, err := curve.ByName(name)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidMessage, err.Error())
	}
	return c, nil
}

// NewCommitmentMessage encodes a dealer's commitment.
func NewCommitmentMessage(c *curve.Curve, dealer int, cm *dkg.Commitment) *CommitmentMessage {
	points := make([]string, len(cm.Points))
	for i, p := range cm.Points {
		points[i] = hex.EncodeToString(c.Marshal(p))
	}
	return &CommitmentMessage{Curve: c.Name, Dealer: dealer, Points: points}
}

// Commitment decodes the commitment for curve c.
func (m *CommitmentMessage) Commitment(c *curve.Curve) (*dkg.Commitment, error) {
	if m.Curve != c.Name {
		return nil, errors.Wrapf(ErrCurveMismatch, "%q, want %q", m.Curve, c.Name)
	}
	points := make([]*curve.Point, len(m.Points))
	for i, s := range m.Points {
		p, err := decodePoint(c, "points", s)
		if err != nil {
			return nil, err
		}
		points[i] = p
	}
	cm := &dkg.Commitment{Points: points}
	if err := cm.Validate(c, len(points)); err != nil {
		return nil, err
	}
	return cm, nil
}

// NewShareMessage encodes a round 2 share.
func NewShareMessage(c *curve.Curve, dealer, recipient int, share *big.Int) *ShareMessage {
	return &ShareMessage{
		Dealer:    dealer,
		Recipient: recipient,
		Share:     hex.EncodeToString(c.MarshalScalar(share)),
	}
}

// Scalar decodes the share.
func (m *ShareMessage) Scalar(c *curve.Curve) (*big.Int, error) {
	return decodeScalar(c, "share", m.Share)
}

// NewComplaintMessage encodes a complaint list.
func NewComplaintMessage(complaints []dkg.Complaint) *ComplaintMessage {
	m := &ComplaintMessage{Complaints: make([]ComplaintEntry, len(complaints))}
	for i, c := range complaints {
		m.Complaints[i] = ComplaintEntry{Dealer: c.Dealer, Recipient: c.Recipient}
	}
	return m
}

// List returns the decoded complaints.
func (m *ComplaintMessage) List() []dkg.Complaint {
	out := make([]dkg.Complaint, len(m.Complaints))
	for i, c := range m.Complaints {
		out[i] = dkg.Complaint{Dealer: c.Dealer, Recipient: c.Recipient}
	}
	return out
}

// KeyShare is a decoded and verified KeyShareFile.
type KeyShare struct {
	Curve       *curve.Curve
	Suite       kdf.Suite
	SessionID   string
	ID          int
	Params      dkg.Params
	Share       *big.Int
	PublicKey   *curve.Point
	Commitments []*dkg.Commitment
}

// Zeroize clears the share.
func (k *KeyShare) Zeroize() {
	dkg.ZeroInt(k.Share)
}

// NewKeyShareFile extracts participant id's key share file from a result.
func NewKeyShareFile(res *dkg.Result, suite string, id int) (*KeyShareFile, error) {
	c := res.Curve
	share, err := res.Share(id)
	if err != nil {
		return nil, err
	}
	defer dkg.ZeroInt(share)
	pub, err := res.PublicShare(id)
	if err != nil {
		return nil, err
	}
	f := &KeyShareFile{
		Curve:       c.Name,
		Suite:       suite,
		SessionID:   res.SessionID.String(),
		ID:          id,
		N:           res.Params.N,
		T:           res.Params.T,
		Share:       hex.EncodeToString(c.MarshalScalar(share)),
		PublicKey:   hex.EncodeToString(c.Marshal(res.PublicKey)),
		PublicShare: hex.EncodeToString(c.Marshal(pub)),
	}
	for _, dealer := range dkg.SortedIDs(res.Commitments) {
		f.Commitments = append(f.Commitments, *NewCommitmentMessage(c, dealer, res.Commitments[dealer]))
	}
	return f, nil
}

// Open decodes the file and checks the share and public key against the
// dealer commitments it carries.
func (f *KeyShareFile) Open() (*KeyShare, error) {
	c, err := lookupCurve(f.Curve)
	if err != nil {
		return nil, err
	}
	suiteName := f.Suite
	if suiteName == "" {
		suiteName = kdf.DefaultSuite
	}
	suite, err := kdf.Lookup(suiteName)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidMessage, err.Error())
	}
	params := dkg.Params{N: f.N, T: f.T}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if !params.ValidID(f.ID) {
		return nil, errors.Wrapf(dkg.ErrInvalidParticipantID, "id %d", f.ID)
	}
	if len(f.Commitments) != f.N {
		return nil, errors.Wrapf(ErrInvalidMessage, "%d commitments for %d participants", len(f.Commitments), f.N)
	}

	k := &KeyShare{Curve: c, Suite: suite, SessionID: f.SessionID, ID: f.ID, Params: params}
	k.Share, err = decodeScalar(c, "share", f.Share)
	if err != nil {
		return nil, err
	}
	k.PublicKey, err = decodePoint(c, "public_key", f.PublicKey)
	if err != nil {
		return nil, err
	}

	msgs := append([]CommitmentMessage(nil), f.Commitments...)
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Dealer < msgs[j].Dealer })
	constant := curve.Infinity()
	seen := make(map[int]bool, len(msgs))
	for _, m := range msgs {
		if !params.ValidID(m.Dealer) {
			return nil, errors.Wrapf(dkg.ErrInvalidParticipantID, "commitment dealer %d", m.Dealer)
		}
		if seen[m.Dealer] {
			return nil, errors.Wrapf(dkg.ErrDuplicateCommitment, "dealer %d", m.Dealer)
		}
		seen[m.Dealer] = true
		cm, err := m.Commitment(c)
		if err != nil {
			return nil, err
		}
		if cm.Threshold() != f.T {
			return nil, errors.Wrapf(dkg.ErrInvalidCommitmentLength, "dealer %d", m.Dealer)
		}
		k.Commitments = append(k.Commitments, cm)
		constant = c.Add(constant, cm.CommitmentToSecret())
	}
	if !constant.Equal(k.PublicKey) {
		return nil, errors.Wrap(ErrShareMismatch, "public key")
	}
	if !dkg.VerifyFinalShare(c, k.Commitments, k.ID, k.Share) {
		return nil, errors.Wrapf(ErrShareMismatch, "share of participant %d", k.ID)
	}
	return k, nil
}

// NewCiphertextMessage encodes a ciphertext and its associated data.
func NewCiphertextMessage(c *curve.Curve, suite string, ct *ecies.Ciphertext, aad []byte) *CiphertextMessage {
	return &CiphertextMessage{
		Curve: c.Name,
		Suite: suite,
		R:     hex.EncodeToString(c.Marshal(ct.R)),
		CT:    hex.EncodeToString(ct.CT),
		Tag:   hex.EncodeToString(ct.Tag),
		AAD:   hex.EncodeToString(aad),
	}
}

// Open decodes the ciphertext, its curve, suite and associated data.
func (m *CiphertextMessage) Open() (*curve.Curve, kdf.Suite, *ecies.Ciphertext, []byte, error) {
	c, err := lookupCurve(m.Curve)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	suiteName := m.Suite
	if suiteName == "" {
		suiteName = kdf.DefaultSuite
	}
	suite, err := kdf.Lookup(suiteName)
	if err != nil {
		return nil, nil, nil, nil, errors.Wrap(ErrInvalidMessage, err.Error())
	}
	r, err := decodePoint(c, "r", m.R)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	ct, err := decodeHex("ct", m.CT)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	tag, err := decodeHex("tag", m.Tag)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	aad, err := decodeHex("aad", m.AAD)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return c, suite, &ecies.Ciphertext{R: r, CT: ct, Tag: tag}, aad, nil
}

// NewPartialMessage encodes a partial decryption.
func NewPartialMessage(c *curve.Curve, p *ecies.Partial) *PartialMessage {
	return &PartialMessage{
		ID:     p.ID,
		Quorum: append([]int(nil), p.Quorum...),
		Point:  hex.EncodeToString(c.Marshal(p.Point)),
	}
}

// Partial decodes the partial decryption.
func (m *PartialMessage) Partial(c *curve.Curve) (*ecies.Partial, error) {
	p, err := decodePoint(c, "point", m.Point)
	if err != nil {
		return nil, err
	}
	return &ecies.Partial{ID: m.ID, Quorum: append([]int(nil), m.Quorum...), Point: p}, nil
}

// NewLedgerMessage encodes a ledger with its root.
func NewLedgerMessage(l *ledger.Ledger) *LedgerMessage {
	m := &LedgerMessage{
		Suite: l.Suite().Name(),
		Epoch: hex.EncodeToString(l.Epoch()),
		Root:  hex.EncodeToString(l.Root()),
	}
	for _, e := range l.Entries() {
		m.Entries = append(m.Entries, EntryMessage{
			ID:         e.ID,
			Kind:       e.Kind.String(),
			Commitment: hex.EncodeToString(e.Commitment),
		})
	}
	return m
}

// Ledger rebuilds the tree and checks it against the published root.
func (m *LedgerMessage) Ledger() (*ledger.Ledger, error) {
	suite, err := kdf.Lookup(m.Suite)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidMessage, err.Error())
	}
	epoch, err := decodeHex("epoch", m.Epoch)
	if err != nil {
		return nil, err
	}
	root, err := decodeHex("root", m.Root)
	if err != nil {
		return nil, err
	}
	entries := make([]ledger.Entry, len(m.Entries))
	for i, e := range m.Entries {
		kind, err := ledger.ParseKind(e.Kind)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidMessage, err.Error())
		}
		commitment, err := decodeHex("commitment", e.Commitment)
		if err != nil {
			return nil, err
		}
		entries[i] = ledger.Entry{ID: e.ID, Kind: kind, Commitment: commitment}
	}
	l, err := ledger.New(suite, epoch, entries)
	if err != nil {
		return nil, err
	}
	if !kdf.Equal(l.Root(), root) {
		return nil, ErrRootMismatch
	}
	return l, nil
}

// NewProofMessage encodes a proof.
func NewProofMessage(p *ledger.Proof) ProofMessage {
	m := ProofMessage{ID: p.ID, Kind: p.Kind.String(), Steps: make([]StepMessage, len(p.Steps))}
	for i, st := range p.Steps {
		m.Steps[i] = StepMessage{Sibling: hex.EncodeToString(st.Sibling), Direction: st.Direction.String()}
	}
	return m
}

// Proof decodes the proof.
func (m ProofMessage) Proof() (*ledger.Proof, error) {
	kind, err := ledger.ParseKind(m.Kind)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidMessage, err.Error())
	}
	p := &ledger.Proof{ID: m.ID, Kind: kind, Steps: make([]ledger.Step, len(m.Steps))}
	for i, st := range m.Steps {
		sib, err := decodeHex("sibling", st.Sibling)
		if err != nil {
			return nil, err
		}
		var dir ledger.Direction
		switch st.Direction {
		case "LEFT":
			dir = ledger.Left
		case "RIGHT":
			dir = ledger.Right
		default:
			return nil, errors.Wrapf(ErrInvalidMessage, "direction %q", st.Direction)
		}
		p.Steps[i] = ledger.Step{Sibling: sib, Direction: dir}
	}
	return p, nil
}

// NewTokenMessage bundles a participant's tokens with proofs from l.
func NewTokenMessage(l *ledger.Ledger, pair *ledger.TokenPair) (*TokenMessage, error) {
	approve, err := l.Proof(pair.ID, ledger.KindApprove)
	if err != nil {
		return nil, err
	}
	veto, err := l.Proof(pair.ID, ledger.KindVeto)
	if err != nil {
		return nil, err
	}
	return &TokenMessage{
		ID:           pair.ID,
		Epoch:        hex.EncodeToString(l.Epoch()),
		Root:         hex.EncodeToString(l.Root()),
		Approve:      hex.EncodeToString(pair.Approve),
		Veto:         hex.EncodeToString(pair.Veto),
		ApproveProof: NewProofMessage(approve),
		VetoProof:    NewProofMessage(veto),
	}, nil
}

// Token returns the decoded token of the given kind and its proof.
func (m *TokenMessage) Token(kind ledger.Kind) ([]byte, *ledger.Proof, error) {
	field, pm := m.Approve, m.ApproveProof
	if kind == ledger.KindVeto {
		field, pm = m.Veto, m.VetoProof
	}
	tok, err := decodeHex(kind.String(), field)
	if err != nil {
		return nil, nil, err
	}
	p, err := pm.Proof()
	if err != nil {
		return nil, nil, err
	}
	return tok, p, nil
}

// Verify checks both tokens against root. The root must come from a
// trusted copy of the ledger, not from the message itself.
func (m *TokenMessage) Verify(s kdf.Suite, root []byte) error {
	for _, kind := range ledger.Kinds {
		tok, p, err := m.Token(kind)
		if err != nil {
			return err
		}
		if p.ID != m.ID || p.Kind != kind || !ledger.VerifyProof(s, root, tok, p) {
			return errors.Wrapf(ledger.ErrInvalidToken, "participant %d %s", m.ID, kind)
		}
	}
	return nil
}

// Presentation returns the approve or veto presentation for recovery.
func (m *TokenMessage) Presentation(kind ledger.Kind) (ledger.Presentation, error) {
	tok, _, err := m.Token(kind)
	if err != nil {
		return ledger.Presentation{}, err
	}
	return ledger.Presentation{ID: m.ID, Token: tok}, nil
}
