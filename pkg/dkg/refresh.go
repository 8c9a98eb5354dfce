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

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Refresh re-randomizes every share without changing the joint secret.
// Each participant deals a polynomial with constant term zero; recipients
// verify their refresh shares against its commitment and add them to their
// current share. The public key is unchanged and every per-dealer
// commitment becomes old + refresh, so refreshed shares still verify with
// VerifyFinalShare.
//
// The returned Result carries a new session id. Shares from before and
// after a refresh cannot be mixed; the caller should zeroize the old
// Result.
func (r *Result) Refresh(rnd io.Reader) (*Result, error) {
	c := r.Curve
	ids := r.Params.IDs()

	polys := make(map[int]*Polynomial, len(ids))
	defer func() {
		for _, f := range polys {
			f.Zeroize()
		}
	}()

	commitments := make(map[int]*Commitment, len(ids))
	for _, dealer := range ids {
		f, err := RandomPolynomial(c, r.Params.T, new(big.Int), rnd)
		if err != nil {
			return nil, err
		}
		polys[dealer] = f
		cm := Commit(c, f)
		if !cm.CommitmentToSecret().IsInfinity() {
			return nil, errors.Wrapf(ErrInvalidCommitment, "refresh dealer %d: non-zero constant term", dealer)
		}
		commitments[dealer] = cm
	}

	shares := make(map[int]*big.Int, len(ids))
	var complaints []Complaint
	for _, recipient := range ids {
		s, err := r.Share(recipient)
		if err != nil {
			return nil, err
		}
		for _, dealer := range ids {
			delta := polys[dealer].EvalAt(recipient)
			if !commitments[dealer].Verify(c, recipient, delta) {
				complaints = append(complaints, Complaint{Dealer: dealer, Recipient: recipient})
			}
			s.Add(s, delta)
			ZeroInt(delta)
		}
		shares[recipient] = s.Mod(s, c.N)
	}
	if len(complaints) > 0 {
		ZeroShares(shares)
		return nil, &VerificationError{Complaints: complaints}
	}

	out := &Result{
		SessionID:   uuid.New(),
		Curve:       c,
		Params:      r.Params,
		PublicKey:   r.PublicKey.Copy(),
		Commitments: make(map[int]*Commitment, len(ids)),
		Shares:      shares,
	}
	for _, dealer := range ids {
		old, ok := r.Commitments[dealer]
		if !ok {
			return nil, errors.Wrapf(ErrRoundIncomplete, "no commitment from dealer %d", dealer)
		}
		sum, err := old.Add(c, commitments[dealer])
		if err != nil {
			return nil, err
		}
		out.Commitments[dealer] = sum
		if out.Aggregate == nil {
			out.Aggregate = sum
			continue
		}
		if out.Aggregate, err = out.Aggregate.Add(c, sum); err != nil {
			return nil, err
		}
	}
	return out, nil
}
