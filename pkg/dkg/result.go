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

package dkg

import (
	"math/big"

	"github.com/google/uuid"
	"github.com/jeremyhahn/go-thresholdkms/pkg/curve"
	"github.com/pkg/errors"
)

// Result is the outcome of a successful session. Shares holds every
// participant's final share and exists only in-process; a real deployment
// keeps one entry per party.
type Result struct {
	SessionID uuid.UUID
	Curve     *curve.Curve
	Params    Params

	// PublicKey is Q = sum_j C_{j,0}.
	PublicKey *curve.Point

	// Commitments are the per-dealer commitment vectors.
	Commitments map[int]*Commitment

	// Aggregate is the element-wise sum of all dealer commitments.
	Aggregate *Commitment

	// Shares maps participant id to its final share s_i.
	Shares map[int]*big.Int
}

// Share returns a copy of participant id's final share.
func (r *Result) Share(id int) (*big.Int, error) {
	s, ok := r.Shares[id]
	if !ok {
		return nil, errors.Wrapf(ErrInvalidParticipantID, "no share for %d", id)
	}
	return new(big.Int).Set(s), nil
}

// PublicShare returns s_id*G computed from public commitments only.
func (r *Result) PublicShare(id int) (*curve.Point, error) {
	if err := r.Params.checkID(id); err != nil {
		return nil, err
	}
	return r.Aggregate.Pubshare(r.Curve, id)
}

// VerifyShare checks share*G == sum_j sum_k C_{j,k} * id^k. Any party
// holding the public commitments and its own share can run it.
func (r *Result) VerifyShare(id int, share *big.Int) bool {
	if !r.Params.ValidID(id) {
		return false
	}
	return VerifyFinalShare(r.Curve, r.dealerCommitments(), id, share)
}

func (r *Result) dealerCommitments() []*Commitment {
	out := make([]*Commitment, 0, len(r.Commitments))
	for _, id := range SortedIDs(r.Commitments) {
		out = append(out, r.Commitments[id])
	}
	return out
}

// VerifyFinalShare checks a final share against the per-dealer commitment
// vectors published in round 1.
func VerifyFinalShare(c *curve.Curve, commitments []*Commitment, id int, share *big.Int) bool {
	expected := curve.Infinity()
	for _, cm := range commitments {
		p, err := cm.Pubshare(c, id)
		if err != nil {
			return false
		}
		expected = c.Add(expected, p)
	}
	return VerifyShare(c, share, expected)
}

// Reconstruct interpolates the joint secret from the shares of ids. It is
// meant for tests and recovery flows; the secret never exists during
// normal operation.
func (r *Result) Reconstruct(ids []int) (*big.Int, error) {
	subset := make(map[int]*big.Int, len(ids))
	for _, id := range ids {
		if _, dup := subset[id]; dup {
			return nil, errors.Wrapf(ErrDuplicateID, "id %d", id)
		}
		s, err := r.Share(id)
		if err != nil {
			return nil, err
		}
		subset[id] = s
	}
	return Reconstruct(r.Curve.N, subset, r.Params.T)
}

// Zeroize clears all final shares.
func (r *Result) Zeroize() {
	if r == nil {
		return
	}
	ZeroShares(r.Shares)
}
