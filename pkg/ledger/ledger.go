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
	"crypto/subtle"
	"encoding/binary"
	"math/big"
	"sort"

	"github.com/jeremyhahn/go-thresholdkms/pkg/curve"
	"github.com/jeremyhahn/go-thresholdkms/pkg/dkg"
	"github.com/jeremyhahn/go-thresholdkms/pkg/kdf"
	"github.com/pkg/errors"
)

// LeafTag domain-separates leaf digests.
const LeafTag = "tkms/ledger/leaf"

const (
	leafPrefix byte = 0x00
	nodePrefix byte = 0x01
)

// Direction tells on which side of the running digest a sibling sits.
type Direction uint8

const (
	// Left means the sibling is the left child: parent = H(sibling, current).
	Left Direction = iota
	// Right means the sibling is the right child: parent = H(current, sibling).
	Right
)

func (d Direction) String() string {
	if d == Left {
		return "LEFT"
	}
	return "RIGHT"
}

// Entry is one published leaf: a commitment to a participant's token.
type Entry struct {
	ID         int
	Kind       Kind
	Commitment []byte
}

// Step is one level of an inclusion proof.
type Step struct {
	Sibling   []byte
	Direction Direction
}

// Proof is an inclusion proof for one entry, ordered from leaf to root.
type Proof struct {
	ID    int
	Kind  Kind
	Steps []Step
}

type entryKey struct {
	id   int
	kind Kind
}

// Ledger is the Merkle tree over all token commitments of one epoch.
// Leaves are ordered by participant id, approve before veto. An odd node at
// any level is paired with itself.
type Ledger struct {
	suite   kdf.Suite
	epoch   []byte
	entries []Entry
	index   map[entryKey]int
	levels  [][][]byte
}

// LeafHash returns H256(0x00 || LeafTag || u32be(id) || kind || commitment).
func LeafHash(s kdf.Suite, id int, kind Kind, commitment []byte) []byte {
	var hdr [5]byte
	binary.BigEndian.PutUint32(hdr[:4], uint32(id))
	hdr[4] = byte(kind)
	return kdf.Sum256(s, []byte{leafPrefix}, []byte(LeafTag), hdr[:], commitment)
}

// NodeHash returns H256(0x01 || left || right).
func NodeHash(s kdf.Suite, left, right []byte) []byte {
	return kdf.Sum256(s, []byte{nodePrefix}, left, right)
}

// New builds a ledger from published entries. A verifier can rebuild the
// tree from the commitments alone.
func New(s kdf.Suite, epoch []byte, entries []Entry) (*Ledger, error) {
	if s == nil {
		s = kdf.Default()
	}
	if len(entries) == 0 {
		return nil, ErrEmptyLedger
	}
	sorted := make([]Entry, len(entries))
	for i, e := range entries {
		if e.ID < 1 || !e.Kind.Valid() {
			return nil, errors.Errorf("ledger: invalid entry (id %d, kind %d)", e.ID, e.Kind)
		}
		if len(e.Commitment) != kdf.Size256 {
			return nil, errors.Errorf("ledger: entry (%d, %s) has a %d-byte commitment", e.ID, e.Kind, len(e.Commitment))
		}
		sorted[i] = Entry{ID: e.ID, Kind: e.Kind, Commitment: append([]byte(nil), e.Commitment...)}
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ID != sorted[j].ID {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].Kind < sorted[j].Kind
	})

	l := &Ledger{
		suite:   s,
		epoch:   append([]byte(nil), epoch...),
		entries: sorted,
		index:   make(map[entryKey]int, len(sorted)),
	}
	leaves := make([][]byte, len(sorted))
	for i, e := range sorted {
		key := entryKey{e.ID, e.Kind}
		if _, dup := l.index[key]; dup {
			return nil, errors.Wrapf(ErrDuplicateEntry, "id %d kind %s", e.ID, e.Kind)
		}
		l.index[key] = i
		leaves[i] = LeafHash(s, e.ID, e.Kind, e.Commitment)
	}

	l.levels = [][][]byte{leaves}
	for level := leaves; len(level) > 1; {
		next := make([][]byte, (len(level)+1)/2)
		for i := range next {
			left := level[2*i]
			right := left
			if 2*i+1 < len(level) {
				right = level[2*i+1]
			}
			next[i] = NodeHash(s, left, right)
		}
		l.levels = append(l.levels, next)
		level = next
	}
	return l, nil
}

// Issue derives both tokens for every participant from its final share and
// builds the ledger over their commitments. The returned tokens are
// secrets to be handed to their owners; only the ledger is published.
func Issue(s kdf.Suite, c *curve.Curve, epoch []byte, shares map[int]*big.Int) (*Ledger, map[int]*TokenPair, error) {
	if s == nil {
		s = kdf.Default()
	}
	if len(shares) == 0 {
		return nil, nil, ErrEmptyLedger
	}
	tokens := make(map[int]*TokenPair, len(shares))
	entries := make([]Entry, 0, 2*len(shares))
	for _, id := range dkg.SortedIDs(shares) {
		pair := &TokenPair{ID: id}
		for _, kind := range Kinds {
			tok, err := DeriveToken(s, c, epoch, id, shares[id], kind)
			if err != nil {
				return nil, nil, err
			}
			if kind == KindApprove {
				pair.Approve = tok
			} else {
				pair.Veto = tok
			}
			entries = append(entries, Entry{ID: id, Kind: kind, Commitment: TokenCommitment(s, tok)})
		}
		tokens[id] = pair
	}
	l, err := New(s, epoch, entries)
	if err != nil {
		return nil, nil, err
	}
	return l, tokens, nil
}

// Root returns a copy of the root digest.
func (l *Ledger) Root() []byte {
	top := l.levels[len(l.levels)-1]
	return append([]byte(nil), top[0]...)
}

// Epoch returns the epoch the ledger was issued for.
func (l *Ledger) Epoch() []byte {
	return append([]byte(nil), l.epoch...)
}

// Suite returns the hash suite of the tree.
func (l *Ledger) Suite() kdf.Suite {
	return l.suite
}

// Size returns the number of leaves.
func (l *Ledger) Size() int {
	return len(l.entries)
}

// Entries returns copies of all entries in leaf order.
func (l *Ledger) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[i] = Entry{ID: e.ID, Kind: e.Kind, Commitment: append([]byte(nil), e.Commitment...)}
	}
	return out
}

// Commitment returns the published commitment for (id, kind).
func (l *Ledger) Commitment(id int, kind Kind) ([]byte, bool) {
	i, ok := l.index[entryKey{id, kind}]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), l.entries[i].Commitment...), true
}

// Proof returns the inclusion proof of the (id, kind) leaf.
func (l *Ledger) Proof(id int, kind Kind) (*Proof, error) {
	idx, ok := l.index[entryKey{id, kind}]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownEntry, "id %d kind %s", id, kind)
	}
	p := &Proof{ID: id, Kind: kind}
	for _, level := range l.levels[:len(l.levels)-1] {
		var step Step
		if idx%2 == 0 {
			sib := level[idx]
			if idx+1 < len(level) {
				sib = level[idx+1]
			}
			step = Step{Sibling: append([]byte(nil), sib...), Direction: Right}
		} else {
			step = Step{Sibling: append([]byte(nil), level[idx-1]...), Direction: Left}
		}
		p.Steps = append(p.Steps, step)
		idx /= 2
	}
	return p, nil
}

// VerifyLeaf walks the proof steps from leaf and compares the result with
// root in constant time.
func VerifyLeaf(s kdf.Suite, root, leaf []byte, steps []Step) bool {
	h := leaf
	for _, st := range steps {
		switch st.Direction {
		case Left:
			h = NodeHash(s, st.Sibling, h)
		case Right:
			h = NodeHash(s, h, st.Sibling)
		default:
			return false
		}
	}
	return len(h) == len(root) && subtle.ConstantTimeCompare(h, root) == 1
}

// VerifyProof recomputes the leaf from a presented token and checks it
// against root. It needs no secret besides the token itself.
func VerifyProof(s kdf.Suite, root []byte, token []byte, proof *Proof) bool {
	if proof == nil || !proof.Kind.Valid() || len(token) == 0 {
		return false
	}
	leaf := LeafHash(s, proof.ID, proof.Kind, TokenCommitment(s, token))
	return VerifyLeaf(s, root, leaf, proof.Steps)
}
