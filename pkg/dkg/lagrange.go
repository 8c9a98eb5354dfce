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
	"sort"

	"github.com/jeremyhahn/go-thresholdkms/pkg/curve"
	"github.com/pkg/errors"
)

// LagrangeCoefficient returns lambda_id for interpolation at x = 0 over the
// index set ids:
//
//	lambda_i = prod_{j in S, j != i} (0 - j) / (i - j)  mod q
//
// ids must be distinct, positive and contain id.
func LagrangeCoefficient(q *big.Int, id int, ids []int) (*big.Int, error) {
	if err := checkIDs(q, ids); err != nil {
		return nil, err
	}
	return lagrange(q, id, ids)
}

func lagrange(q *big.Int, id int, ids []int) (*big.Int, error) {
	return lagrangeAt(q, new(big.Int), id, ids)
}

// LagrangeCoefficientAt returns lambda_id for interpolation at x = at over
// ids. at must not be in ids.
func LagrangeCoefficientAt(q *big.Int, at, id int, ids []int) (*big.Int, error) {
	if err := checkIDs(q, ids); err != nil {
		return nil, err
	}
	for _, j := range ids {
		if j == at {
			return nil, errors.Wrapf(ErrDuplicateID, "evaluation point %d is in the index set", at)
		}
	}
	return lagrangeAt(q, big.NewInt(int64(at)), id, ids)
}

func lagrangeAt(q, x *big.Int, id int, ids []int) (*big.Int, error) {
	num := big.NewInt(1)
	den := big.NewInt(1)
	xi := big.NewInt(int64(id))
	found := false
	for _, j := range ids {
		if j == id {
			found = true
			continue
		}
		xj := big.NewInt(int64(j))
		// (x - j)
		num.Mul(num, new(big.Int).Sub(x, xj))
		num.Mod(num, q)
		// (i - j)
		d := new(big.Int).Sub(xi, xj)
		d.Mod(d, q)
		if d.Sign() == 0 {
			return nil, errors.Wrapf(ErrDuplicateID, "ids %d and %d collide mod q", id, j)
		}
		den.Mul(den, d)
		den.Mod(den, q)
	}
	if !found {
		return nil, errors.Wrapf(ErrInvalidParticipantID, "id %d not in index set", id)
	}
	num.Mul(num, curve.ModInverse(den, q))
	return num.Mod(num, q), nil
}

// LagrangeCoefficients returns lambda_i for every i in ids.
func LagrangeCoefficients(q *big.Int, ids []int) (map[int]*big.Int, error) {
	if err := checkIDs(q, ids); err != nil {
		return nil, err
	}
	out := make(map[int]*big.Int, len(ids))
	for _, id := range ids {
		l, err := lagrange(q, id, ids)
		if err != nil {
			return nil, err
		}
		out[id] = l
	}
	return out, nil
}

// SortedIDs returns the keys of a share map in ascending order.
func SortedIDs[V any](m map[int]V) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Interpolate recovers f(0) from shares {id: f(id)} mod q. It does not know
// the degree of f: with fewer than t shares the result is simply wrong. Use
// Reconstruct to enforce a threshold.
func Interpolate(q *big.Int, shares map[int]*big.Int) (*big.Int, error) {
	ids := SortedIDs(shares)
	lambdas, err := LagrangeCoefficients(q, ids)
	if err != nil {
		return nil, err
	}
	acc := new(big.Int)
	term := new(big.Int)
	for _, id := range ids {
		term.Mul(lambdas[id], shares[id])
		acc.Add(acc, term)
		acc.Mod(acc, q)
	}
	return acc, nil
}

// Reconstruct is Interpolate with a quorum check: it fails with a
// *QuorumError when fewer than t shares are supplied.
func Reconstruct(q *big.Int, shares map[int]*big.Int, t int) (*big.Int, error) {
	if len(shares) < t {
		return nil, NewQuorumError(len(shares), t)
	}
	return Interpolate(q, shares)
}

// InterpolatePoints recovers f(0)*P from points {id: f(id)*P}.
func InterpolatePoints(c *curve.Curve, points map[int]*curve.Point) (*curve.Point, error) {
	ids := SortedIDs(points)
	lambdas, err := LagrangeCoefficients(c.N, ids)
	if err != nil {
		return nil, err
	}
	ps := make([]*curve.Point, len(ids))
	ks := make([]*big.Int, len(ids))
	for i, id := range ids {
		ps[i] = points[id]
		ks[i] = lambdas[id]
	}
	return c.LinearCombination(ps, ks)
}
