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
	"crypto/subtle"
	"io"
	"math/big"
	"sort"

	"github.com/jeremyhahn/go-thresholdkms/pkg/curve"
	"github.com/pkg/errors"
)

// Commitment is a Feldman commitment to a polynomial: C_k = a_k * G for
// each coefficient a_k.
type Commitment struct {
	Points []*curve.Point
}

// Commit returns the commitment to f.
func Commit(c *curve.Curve, f *Polynomial) *Commitment {
	points := make([]*curve.Point, len(f.coeffs))
	for i, a := range f.coeffs {
		points[i] = c.ScalarBaseMult(a)
	}
	return &Commitment{Points: points}
}

// Threshold returns t, the number of committed coefficients.
func (cm *Commitment) Threshold() int {
	return len(cm.Points)
}

// Validate checks the commitment has t points, all on the curve.
func (cm *Commitment) Validate(c *curve.Curve, t int) error {
	if cm == nil || len(cm.Points) != t {
		return errors.Wrapf(ErrInvalidCommitmentLength, "expected %d points", t)
	}
	for k, p := range cm.Points {
		if p == nil || !c.IsOnCurve(p) {
			return errors.Wrapf(ErrInvalidCommitment, "point %d not on curve", k)
		}
	}
	return nil
}

// Pubshare computes sum_k C_k * id^k, the public image of the share f(id).
func (cm *Commitment) Pubshare(c *curve.Curve, id int) (*curve.Point, error) {
	if id < 1 {
		return nil, errors.Wrapf(ErrInvalidParticipantID, "id %d", id)
	}
	x := big.NewInt(int64(id))
	power := big.NewInt(1)
	result := curve.Infinity()
	for k, p := range cm.Points {
		result = c.Add(result, c.ScalarMult(p, power))
		if k < len(cm.Points)-1 {
			power.Mul(power, x)
			power.Mod(power, c.N)
		}
	}
	return result, nil
}

// Verify reports whether share*G equals the commitment evaluated at id.
func (cm *Commitment) Verify(c *curve.Curve, id int, share *big.Int) bool {
	expected, err := cm.Pubshare(c, id)
	if err != nil {
		return false
	}
	return VerifyShare(c, share, expected)
}

// VerifyShare checks share*G == pubshare, comparing encodings in constant
// time.
func VerifyShare(c *curve.Curve, share *big.Int, pubshare *curve.Point) bool {
	if share == nil {
		return false
	}
	actual := c.Marshal(c.ScalarBaseMult(share))
	expected := c.Marshal(pubshare)
	return subtle.ConstantTimeCompare(actual, expected) == 1
}

// CommitmentToSecret returns a copy of C_0.
func (cm *Commitment) CommitmentToSecret() *curve.Point {
	if len(cm.Points) == 0 {
		return nil
	}
	return cm.Points[0].Copy()
}

// Add returns the element-wise sum of two commitments of equal length.
func (cm *Commitment) Add(c *curve.Curve, other *Commitment) (*Commitment, error) {
	if cm.Threshold() != other.Threshold() {
		return nil, ErrMismatchedThreshold
	}
	points := make([]*curve.Point, len(cm.Points))
	for i := range cm.Points {
		points[i] = c.Add(cm.Points[i], other.Points[i])
	}
	return &Commitment{Points: points}, nil
}

// Marshal concatenates the fixed-width encodings of all points.
func (cm *Commitment) Marshal(c *curve.Curve) []byte {
	out := make([]byte, 0, len(cm.Points)*c.PointLen())
	for _, p := range cm.Points {
		out = append(out, c.Marshal(p)...)
	}
	return out
}

// CommitmentFromBytes decodes t points produced by Marshal.
func CommitmentFromBytes(c *curve.Curve, b []byte, t int) (*Commitment, error) {
	size := c.PointLen()
	if t < 1 || len(b) != t*size {
		return nil, ErrInvalidCommitmentLength
	}
	points := make([]*curve.Point, t)
	for i := range points {
		p, err := c.Unmarshal(b[i*size : (i+1)*size])
		if err != nil {
			return nil, errors.Wrapf(err, "commitment point %d", i)
		}
		points[i] = p
	}
	return &Commitment{Points: points}, nil
}

// Dealing is the output of a single dealer sharing a secret: public
// commitments and one share per recipient id.
type Dealing struct {
	Commitment *Commitment
	Shares     map[int]*big.Int
}

// Deal shares secret among ids with threshold t. The dealer is trusted: it
// knows the secret and the whole polynomial.
func Deal(c *curve.Curve, secret *big.Int, t int, ids []int, r io.Reader) (*Dealing, error) {
	if t < MinThreshold || t > len(ids) {
		return nil, errors.Wrapf(ErrInvalidThreshold, "t=%d for %d recipients", t, len(ids))
	}
	if err := checkIDs(c.N, ids); err != nil {
		return nil, err
	}
	f, err := RandomPolynomial(c, t, secret, r)
	if err != nil {
		return nil, err
	}
	defer f.Zeroize()

	shares := make(map[int]*big.Int, len(ids))
	for _, id := range ids {
		shares[id] = f.EvalAt(id)
	}
	return &Dealing{Commitment: Commit(c, f), Shares: shares}, nil
}

// VerifyAll checks every share of the dealing and returns the ids whose
// share does not match the commitment, in ascending order.
func (d *Dealing) VerifyAll(c *curve.Curve) []int {
	var bad []int
	for id, s := range d.Shares {
		if !d.Commitment.Verify(c, id, s) {
			bad = append(bad, id)
		}
	}
	sort.Ints(bad)
	return bad
}

// checkIDs rejects empty sets, non-positive ids, ids that vanish mod q and
// duplicates.
func checkIDs(q *big.Int, ids []int) error {
	if len(ids) == 0 {
		return errors.Wrap(ErrInsufficientQuorum, "empty index set")
	}
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if id < 1 || new(big.Int).Mod(big.NewInt(int64(id)), q).Sign() == 0 {
			return errors.Wrapf(ErrInvalidParticipantID, "id %d", id)
		}
		if _, dup := seen[id]; dup {
			return errors.Wrapf(ErrDuplicateID, "id %d", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
