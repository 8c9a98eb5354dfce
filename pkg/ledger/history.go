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
	"encoding/binary"
	"sync"

	"github.com/pkg/errors"
	"github.com/transparency-dev/merkle/compact"
	"github.com/transparency-dev/merkle/proof"
	"github.com/transparency-dev/merkle/rfc6962"
)

// History is an append-only RFC 6962 log of ledger roots, one leaf per
// epoch. It lets a verifier holding a history root check that a ledger
// root was published without trusting whoever serves it. The log always
// hashes with SHA-256 independent of the ledger's suite.
type History struct {
	mu     sync.RWMutex
	tree   *compact.Range
	leaves [][]byte
	epochs map[string]uint64
}

// NewHistory returns an empty history.
func NewHistory() *History {
	rf := &compact.RangeFactory{Hash: rfc6962.DefaultHasher.HashChildren}
	return &History{
		tree:   rf.NewEmptyRange(0),
		epochs: make(map[string]uint64),
	}
}

// HistoryLeaf returns the leaf data for (epoch, root): u32be(len(epoch)) ||
// epoch || root.
func HistoryLeaf(epoch, root []byte) []byte {
	out := make([]byte, 0, 4+len(epoch)+len(root))
	out = binary.BigEndian.AppendUint32(out, uint32(len(epoch)))
	out = append(out, epoch...)
	return append(out, root...)
}

// Append logs a ledger root and returns its leaf index. Each epoch may be
// logged once.
func (h *History) Append(epoch, root []byte) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.epochs[string(epoch)]; ok {
		return 0, errors.Wrapf(ErrDuplicateEntry, "epoch %q already logged", epoch)
	}
	leaf := rfc6962.DefaultHasher.HashLeaf(HistoryLeaf(epoch, root))
	if err := h.tree.Append(leaf, nil); err != nil {
		return 0, errors.Wrap(err, "ledger: append history leaf")
	}
	index := uint64(len(h.leaves))
	h.leaves = append(h.leaves, leaf)
	h.epochs[string(epoch)] = index
	return index, nil
}

// AppendLedger logs l's root under its epoch.
func (h *History) AppendLedger(l *Ledger) (uint64, error) {
	return h.Append(l.Epoch(), l.Root())
}

// Size returns the number of logged roots.
func (h *History) Size() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return uint64(len(h.leaves))
}

// Index returns the leaf index of an epoch.
func (h *History) Index(epoch []byte) (uint64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	i, ok := h.epochs[string(epoch)]
	return i, ok
}

// Root returns the current log root.
func (h *History) Root() ([]byte, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.leaves) == 0 {
		return rfc6962.DefaultHasher.EmptyRoot(), nil
	}
	return h.tree.GetRootHash(nil)
}

// InclusionProof returns the proof that leaf index is in the log at its
// current size.
func (h *History) InclusionProof(index uint64) ([][]byte, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	size := uint64(len(h.leaves))
	if index >= size {
		return nil, errors.Wrapf(ErrUnknownEntry, "history index %d of %d", index, size)
	}
	nodes, err := proof.Inclusion(index, size)
	if err != nil {
		return nil, errors.Wrap(err, "ledger: inclusion nodes")
	}
	hashes := make([][]byte, len(nodes.IDs))
	for i, id := range nodes.IDs {
		hash, err := h.subtreeHash(id)
		if err != nil {
			return nil, err
		}
		hashes[i] = hash
	}
	return nodes.Rehash(hashes, rfc6962.DefaultHasher.HashChildren)
}

// subtreeHash returns the hash of the perfect subtree id.
func (h *History) subtreeHash(id compact.NodeID) ([]byte, error) {
	begin, end := id.Coverage()
	if end > uint64(len(h.leaves)) {
		return nil, errors.Errorf("ledger: node %+v outside the log", id)
	}
	return h.hashPerfect(begin, end), nil
}

// hashPerfect hashes leaves [begin, end); end-begin is a power of two.
func (h *History) hashPerfect(begin, end uint64) []byte {
	if end-begin == 1 {
		return h.leaves[begin]
	}
	mid := begin + (end-begin)/2
	return rfc6962.DefaultHasher.HashChildren(h.hashPerfect(begin, mid), h.hashPerfect(mid, end))
}

// VerifyHistoryInclusion checks that (epoch, root) is leaf index of a log
// of the given size with root historyRoot.
func VerifyHistoryInclusion(index, size uint64, epoch, root []byte, inclusion [][]byte, historyRoot []byte) error {
	leaf := rfc6962.DefaultHasher.HashLeaf(HistoryLeaf(epoch, root))
	if err := proof.VerifyInclusion(rfc6962.DefaultHasher, index, size, leaf, inclusion, historyRoot); err != nil {
		return errors.Wrap(ErrInvalidProof, err.Error())
	}
	return nil
}
