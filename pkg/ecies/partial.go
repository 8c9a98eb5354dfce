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

package ecies

import (
	"fmt"
	"math/big"
	"slices"
	"sort"

	"github.com/jeremyhahn/go-thresholdkms/pkg/curve"
	"github.com/jeremyhahn/go-thresholdkms/pkg/dkg"
	"github.com/jeremyhahn/go-thresholdkms/pkg/kdf"
	"github.com/pkg/errors"
)

// Partial is participant ID's contribution λ_ID(Quorum)·s_ID·R.
type Partial struct {
	ID     int
	Quorum []int
	Point  *curve.Point
}

// PartialDecrypt computes the partial decryption of ct for participant id
// holding share, as a member of quorum.
func PartialDecrypt(c *curve.Curve, ct *Ciphertext, id int, share *big.Int, quorum []int) (*Partial, error) {
	if ct == nil || !checkPoint(c, ct.R) {
		return nil, ErrInvalidCiphertext
	}
	if share == nil || share.Sign() == 0 {
		return nil, dkg.ErrZeroScalar
	}
	q := sortedQuorum(quorum)
	lambda, err := dkg.LagrangeCoefficient(c.N, id, q)
	if err != nil {
		return nil, err
	}
	k := new(big.Int).Mul(lambda, share)
	k.Mod(k, c.N)
	defer dkg.ZeroInt(k)

	return &Partial{ID: id, Quorum: q, Point: c.ScalarMult(ct.R, k)}, nil
}

func sortedQuorum(ids []int) []int {
	q := append([]int(nil), ids...)
	sort.Ints(q)
	return q
}

// Combine sums partials into the shared point. All partials must be for
// the same quorum, every quorum member must contribute exactly once, and
// the quorum must hold at least t members.
func Combine(c *curve.Curve, partials []*Partial, t int) (*curve.Point, error) {
	seen := make(map[int]bool, len(partials))
	for _, p := range partials {
		if p == nil {
			return nil, ErrInvalidPartial
		}
		if seen[p.ID] {
			return nil, errors.Wrapf(ErrDuplicatePartial, "participant %d", p.ID)
		}
		seen[p.ID] = true
	}
	if len(partials) < t {
		return nil, dkg.NewQuorumError(len(partials), t)
	}

	quorum := sortedQuorum(partials[0].Quorum)
	points := make([]*curve.Point, 0, len(partials))
	for _, p := range partials {
		if !slices.Equal(sortedQuorum(p.Quorum), quorum) {
			return nil, errors.Wrapf(ErrQuorumMismatch, "participant %d", p.ID)
		}
		if !checkPoint(c, p.Point) {
			return nil, errors.Wrapf(ErrInvalidPartial, "participant %d", p.ID)
		}
		points = append(points, p.Point)
	}
	if len(quorum) != len(partials) {
		return nil, errors.Wrap(ErrQuorumMismatch, fmt.Sprintf("%d partials for a quorum of %d", len(partials), len(quorum)))
	}
	for _, id := range quorum {
		if !seen[id] {
			return nil, errors.Wrapf(ErrQuorumMismatch, "participant %d did not contribute", id)
		}
	}
	return c.Sum(points...), nil
}

// DecryptWithPartials combines partials and decrypts ct.
func DecryptWithPartials(c *curve.Curve, s kdf.Suite, ct *Ciphertext, partials []*Partial, t int, aad []byte) ([]byte, error) {
	z, err := Combine(c, partials, t)
	if err != nil {
		return nil, err
	}
	return Decrypt(c, s, ct, z, aad)
}
