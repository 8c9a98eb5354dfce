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
	"io"
	"math/big"

	"github.com/jeremyhahn/go-thresholdkms/pkg/curve"
	"github.com/pkg/errors"
)

// Share repair lets a set of helpers rebuild a lost share f(target)
// without any party learning the joint secret or another helper's share.
//
//  1. Each helper i splits lambda_i(target) * s_i into random deltas, one
//     per helper (RepairDeltas).
//  2. Each helper sums the deltas it received into sigma (RepairSigma).
//  3. The recovering participant sums all sigmas (RepairShare).
//
// At least t helpers are needed. Deltas and sigmas are secret and must
// travel over confidential channels.

// RepairDeltas is step 1 for helper self. The returned map holds one delta
// per helper id, including self.
func RepairDeltas(c *curve.Curve, helpers []int, self int, share *big.Int, target int, r io.Reader) (map[int]*big.Int, error) {
	if share == nil {
		return nil, errors.Wrap(ErrZeroScalar, "nil share")
	}
	if target < 1 {
		return nil, errors.Wrapf(ErrInvalidParticipantID, "target %d", target)
	}
	lambda, err := LagrangeCoefficientAt(c.N, target, self, helpers)
	if err != nil {
		return nil, err
	}
	contribution := new(big.Int).Mul(lambda, share)
	contribution.Mod(contribution, c.N)

	deltas := make(map[int]*big.Int, len(helpers))
	last := helpers[len(helpers)-1]
	for _, h := range helpers[:len(helpers)-1] {
		d, err := c.RandomScalar(r)
		if err != nil {
			ZeroShares(deltas)
			ZeroInt(contribution)
			return nil, err
		}
		deltas[h] = d
		contribution.Sub(contribution, d)
	}
	deltas[last] = contribution.Mod(contribution, c.N)
	return deltas, nil
}

// RepairSigma is step 2: the sum of the deltas a helper received from
// every helper.
func RepairSigma(q *big.Int, deltas []*big.Int) (*big.Int, error) {
	if len(deltas) == 0 {
		return nil, errors.Wrap(ErrRoundIncomplete, "no deltas")
	}
	sigma := new(big.Int)
	for _, d := range deltas {
		if d == nil {
			return nil, errors.Wrap(ErrRoundIncomplete, "nil delta")
		}
		sigma.Add(sigma, d)
	}
	return sigma.Mod(sigma, q), nil
}

// RepairShare is step 3: the recovered share is the sum of all sigmas. It
// is checked against the per-dealer commitments and rejected with
// ErrRepairFailed on mismatch, which also catches too few helpers.
func RepairShare(c *curve.Curve, sigmas []*big.Int, commitments []*Commitment, target int) (*big.Int, error) {
	share, err := RepairSigma(c.N, sigmas)
	if err != nil {
		return nil, err
	}
	if !VerifyFinalShare(c, commitments, target, share) {
		ZeroInt(share)
		return nil, errors.Wrapf(ErrRepairFailed, "participant %d", target)
	}
	return share, nil
}

// Repair runs all three steps in-process for participant target using the
// shares of helpers.
func (r *Result) Repair(target int, helpers []int, rnd io.Reader) (*big.Int, error) {
	if err := r.Params.checkID(target); err != nil {
		return nil, err
	}
	if len(helpers) < r.Params.T {
		return nil, NewQuorumError(len(helpers), r.Params.T)
	}

	received := make(map[int][]*big.Int, len(helpers))
	for _, h := range helpers {
		s, err := r.Share(h)
		if err != nil {
			return nil, err
		}
		deltas, err := RepairDeltas(r.Curve, helpers, h, s, target, rnd)
		ZeroInt(s)
		if err != nil {
			return nil, err
		}
		for to, d := range deltas {
			received[to] = append(received[to], d)
		}
	}

	sigmas := make([]*big.Int, 0, len(helpers))
	for _, h := range helpers {
		sigma, err := RepairSigma(r.Curve.N, received[h])
		if err != nil {
			return nil, err
		}
		for _, d := range received[h] {
			ZeroInt(d)
		}
		sigmas = append(sigmas, sigma)
	}
	defer func() {
		for _, s := range sigmas {
			ZeroInt(s)
		}
	}()
	return RepairShare(r.Curve, sigmas, r.dealerCommitments(), target)
}
