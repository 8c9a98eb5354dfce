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

// Package ledger publishes hash commitments to per-participant
// authorization tokens in a binary Merkle tree and applies the recovery
// rule to presented tokens: vetoes are weighed first, then the distinct
// approving groups.
package ledger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jeremyhahn/go-thresholdkms/pkg/dkg"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidToken indicates a presented token matching neither of the
	// participant's published commitments.
	ErrInvalidToken = errors.New("ledger: invalid token")

	// ErrVetoTriggered indicates the veto weight reached the threshold.
	ErrVetoTriggered = errors.New("ledger: veto triggered")

	// ErrInsufficientWeight indicates too little approving group weight.
	ErrInsufficientWeight = errors.New("ledger: insufficient approving weight")

	// ErrUnknownEntry indicates a proof request for a leaf not in the tree.
	ErrUnknownEntry = errors.New("ledger: unknown entry")

	// ErrDuplicateEntry indicates two leaves for the same (id, kind).
	ErrDuplicateEntry = errors.New("ledger: duplicate entry")

	// ErrEmptyLedger indicates a ledger without leaves.
	ErrEmptyLedger = errors.New("ledger: no entries")

	// ErrInvalidProof indicates a malformed proof.
	ErrInvalidProof = errors.New("ledger: invalid proof")

	// ErrInvalidRules indicates recovery rules that could permit recovery
	// without any approval.
	ErrInvalidRules = errors.New("ledger: invalid recovery rules")
)

// VetoError reports the vetoing participants and their combined weight.
type VetoError struct {
	Vetoers   []int
	Weight    int
	Threshold int
}

func (e *VetoError) Error() string {
	ids := make([]string, len(e.Vetoers))
	for i, id := range e.Vetoers {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("ledger: veto triggered: weight %d >= %d (participants %s)",
		e.Weight, e.Threshold, strings.Join(ids, ","))
}

func (e *VetoError) Is(target error) bool {
	return target == ErrVetoTriggered
}

// WeightError reports the approving groups and their combined weight.
type WeightError struct {
	Groups   []string
	Weight   int
	Required int
}

func (e *WeightError) Error() string {
	return fmt.Sprintf("ledger: insufficient approving weight: %d < %d (groups %s)",
		e.Weight, e.Required, strings.Join(e.Groups, ","))
}

// Is matches ErrInsufficientWeight and dkg.ErrInsufficientQuorum.
func (e *WeightError) Is(target error) bool {
	return target == ErrInsufficientWeight || target == dkg.ErrInsufficientQuorum
}

// Rejection records one presentation that was excluded from counting.
type Rejection struct {
	// Index is the position of the presentation in the input.
	Index int
	ID    int
	Err   error
}

func sortedInts(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
