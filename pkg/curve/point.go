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

package curve

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/pkg/errors"
)

var (
	one   = big.NewInt(1)
	two   = big.NewInt(2)
	three = big.NewInt(3)
)

// Point is an affine curve point. The point at infinity has both
// coordinates nil.
type Point struct {
	X *big.Int
	Y *big.Int
}

// NewPoint returns a point with copies of x and y.
func NewPoint(x, y *big.Int) *Point {
	return &Point{X: new(big.Int).Set(x), Y: new(big.Int).Set(y)}
}

// Infinity returns the group identity.
func Infinity() *Point {
	return &Point{}
}

// IsInfinity reports whether p is the identity. A nil point is treated as
// the identity.
func (p *Point) IsInfinity() bool {
	return p == nil || p.X == nil || p.Y == nil
}

// Equal reports whether two points are the same group element.
func (p *Point) Equal(q *Point) bool {
	if p.IsInfinity() || q.IsInfinity() {
		return p.IsInfinity() && q.IsInfinity()
	}
	return p.X.Cmp(q.X) == 0 && p.Y.Cmp(q.Y) == 0
}

// Copy returns a deep copy of p.
func (p *Point) Copy() *Point {
	if p.IsInfinity() {
		return Infinity()
	}
	return NewPoint(p.X, p.Y)
}

// mod reduces v into [0, m).
func mod(v, m *big.Int) *big.Int {
	return v.Mod(v, m)
}

// ModInverse returns a^(m-2) mod m. The modulus m must be prime; for a
// composite modulus the result is not an inverse. Inverting zero yields zero.
func ModInverse(a, m *big.Int) *big.Int {
	e := new(big.Int).Sub(m, two)
	base := new(big.Int).Mod(a, m)
	return base.Exp(base, e, m)
}

// IsOnCurve reports whether p satisfies y^2 = x^3 + ax + b with both
// coordinates in [0, P). The identity is on the curve.
func (c *Curve) IsOnCurve(p *Point) bool {
	if p.IsInfinity() {
		return true
	}
	if p.X.Sign() < 0 || p.X.Cmp(c.P) >= 0 || p.Y.Sign() < 0 || p.Y.Cmp(c.P) >= 0 {
		return false
	}
	lhs := new(big.Int).Mul(p.Y, p.Y)
	mod(lhs, c.P)
	return lhs.Cmp(c.rhs(p.X)) == 0
}

// rhs returns x^3 + ax + b mod P.
func (c *Curve) rhs(x *big.Int) *big.Int {
	r := new(big.Int).Mul(x, x)
	r.Mul(r, x)
	ax := new(big.Int).Mul(c.A, x)
	r.Add(r, ax)
	r.Add(r, c.B)
	return mod(r, c.P)
}

// Neg returns -p.
func (c *Curve) Neg(p *Point) *Point {
	if p.IsInfinity() {
		return Infinity()
	}
	y := new(big.Int).Sub(c.P, p.Y)
	return &Point{X: new(big.Int).Set(p.X), Y: mod(y, c.P)}
}

// Add returns p1 + p2.
func (c *Curve) Add(p1, p2 *Point) *Point {
	if p1.IsInfinity() {
		return p2.Copy()
	}
	if p2.IsInfinity() {
		return p1.Copy()
	}
	if p1.X.Cmp(p2.X) == 0 {
		sum := new(big.Int).Add(p1.Y, p2.Y)
		if mod(sum, c.P).Sign() == 0 {
			return Infinity()
		}
		return c.Double(p1)
	}

	// lambda = (y2 - y1) / (x2 - x1)
	num := new(big.Int).Sub(p2.Y, p1.Y)
	den := new(big.Int).Sub(p2.X, p1.X)
	mod(den, c.P)
	lambda := num.Mul(num, ModInverse(den, c.P))
	mod(lambda, c.P)

	return c.chord(p1, p2.X, lambda)
}

// Double returns 2p.
func (c *Curve) Double(p *Point) *Point {
	if p.IsInfinity() || p.Y.Sign() == 0 {
		return Infinity()
	}

	// lambda = (3x^2 + a) / 2y
	num := new(big.Int).Mul(p.X, p.X)
	num.Mul(num, three)
	num.Add(num, c.A)
	den := new(big.Int).Mul(p.Y, two)
	mod(den, c.P)
	lambda := num.Mul(num, ModInverse(den, c.P))
	mod(lambda, c.P)

	return c.chord(p, p.X, lambda)
}

// chord completes addition given the slope through p1 and a second point
// with x-coordinate x2.
func (c *Curve) chord(p1 *Point, x2, lambda *big.Int) *Point {
	x3 := new(big.Int).Mul(lambda, lambda)
	x3.Sub(x3, p1.X)
	x3.Sub(x3, x2)
	mod(x3, c.P)

	y3 := new(big.Int).Sub(p1.X, x3)
	y3.Mul(y3, lambda)
	y3.Sub(y3, p1.Y)
	mod(y3, c.P)

	return &Point{X: x3, Y: y3}
}

// ScalarMult returns k*p with k reduced modulo N. It walks a Montgomery
// ladder over the bits of the reduced scalar.
func (c *Curve) ScalarMult(p *Point, k *big.Int) *Point {
	e := new(big.Int).Mod(k, c.N)
	if p.IsInfinity() || e.Sign() == 0 {
		return Infinity()
	}
	r0, r1 := Infinity(), p.Copy()
	for i := e.BitLen() - 1; i >= 0; i-- {
		if e.Bit(i) == 0 {
			r1 = c.Add(r0, r1)
			r0 = c.Double(r0)
		} else {
			r0 = c.Add(r0, r1)
			r1 = c.Double(r1)
		}
	}
	return r0
}

// ScalarBaseMult returns k*G.
func (c *Curve) ScalarBaseMult(k *big.Int) *Point {
	return c.ScalarMult(c.Generator(), k)
}

// LinearCombination returns sum(scalars[i] * points[i]).
func (c *Curve) LinearCombination(points []*Point, scalars []*big.Int) (*Point, error) {
	if len(points) != len(scalars) {
		return nil, errors.Wrapf(ErrLengthMismatch, "%d points, %d scalars", len(points), len(scalars))
	}
	acc := Infinity()
	for i := range points {
		acc = c.Add(acc, c.ScalarMult(points[i], scalars[i]))
	}
	return acc, nil
}

// Sum adds all points.
func (c *Curve) Sum(points ...*Point) *Point {
	acc := Infinity()
	for _, p := range points {
		acc = c.Add(acc, p)
	}
	return acc
}

// Marshal encodes p as big-endian x || y, each padded to L bytes. The
// identity encodes as 2L zero bytes.
func (c *Curve) Marshal(p *Point) []byte {
	out := make([]byte, 2*c.byteLen)
	if p.IsInfinity() {
		return out
	}
	p.X.FillBytes(out[:c.byteLen])
	p.Y.FillBytes(out[c.byteLen:])
	return out
}

// Unmarshal decodes a point produced by Marshal. It rejects encodings of the
// wrong length, coordinates outside the field and points off the curve.
func (c *Curve) Unmarshal(data []byte) (*Point, error) {
	if len(data) != 2*c.byteLen {
		return nil, errors.Wrapf(ErrInvalidEncoding, "expected %d bytes, got %d", 2*c.byteLen, len(data))
	}
	allZero := true
	for _, b := range data {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return Infinity(), nil
	}
	x := new(big.Int).SetBytes(data[:c.byteLen])
	y := new(big.Int).SetBytes(data[c.byteLen:])
	if x.Cmp(c.P) >= 0 || y.Cmp(c.P) >= 0 {
		return nil, errors.Wrap(ErrInvalidEncoding, "coordinate exceeds field modulus")
	}
	p := &Point{X: x, Y: y}
	if !c.IsOnCurve(p) {
		return nil, ErrNotOnCurve
	}
	return p, nil
}

// MarshalScalar encodes k mod N as L big-endian bytes.
func (c *Curve) MarshalScalar(k *big.Int) []byte {
	out := make([]byte, c.byteLen)
	new(big.Int).Mod(k, c.N).FillBytes(out)
	return out
}

// UnmarshalScalar decodes an L-byte scalar and rejects values >= N.
func (c *Curve) UnmarshalScalar(data []byte) (*big.Int, error) {
	if len(data) != c.byteLen {
		return nil, errors.Wrapf(ErrInvalidScalar, "expected %d bytes, got %d", c.byteLen, len(data))
	}
	k := new(big.Int).SetBytes(data)
	if k.Cmp(c.N) >= 0 {
		return nil, errors.Wrap(ErrInvalidScalar, "scalar exceeds group order")
	}
	return k, nil
}

// RandomScalar returns a uniform scalar in [1, N) read from r. A nil reader
// uses crypto/rand.
func (c *Curve) RandomScalar(r io.Reader) (*big.Int, error) {
	if r == nil {
		r = rand.Reader
	}
	limit := new(big.Int).Sub(c.N, one)
	k, err := rand.Int(r, limit)
	if err != nil {
		return nil, errors.Wrap(err, "curve: read random scalar")
	}
	return k.Add(k, one), nil
}

// ReduceScalar returns k mod N as a new value.
func (c *Curve) ReduceScalar(k *big.Int) *big.Int {
	return new(big.Int).Mod(k, c.N)
}
