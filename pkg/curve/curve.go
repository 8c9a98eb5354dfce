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

// Package curve implements affine arithmetic on short Weierstrass curves
// y^2 = x^3 + a*x + b over a prime field, together with a fixed-width point
// encoding and a counter-based hash-to-curve map.
//
// All arithmetic is done with math/big and reduced into [0, p) or [0, n).
// Inversion in the field uses Fermat's little theorem and is therefore only
// correct when P is prime; NewCurve rejects a composite field modulus.
package curve

import (
	"crypto/elliptic"
	"math/big"
	"sync"

	"github.com/pkg/errors"
)

// Curve holds the domain parameters of a prime-order curve.
type Curve struct {
	Name string
	P    *big.Int // field modulus
	A    *big.Int
	B    *big.Int
	N    *big.Int // order of the base point
	Gx   *big.Int
	Gy   *big.Int

	byteLen int
}

// primality rounds for domain parameter validation
const primeRounds = 32

// NewCurve validates the domain parameters and returns a curve.
// P and N must be prime, G must lie on the curve and have order N.
func NewCurve(name string, p, a, b, n, gx, gy *big.Int) (*Curve, error) {
	if p == nil || a == nil || b == nil || n == nil || gx == nil || gy == nil {
		return nil, errors.Wrap(ErrInvalidParameters, "missing parameter")
	}
	if !p.ProbablyPrime(primeRounds) {
		return nil, errors.Wrap(ErrInvalidParameters, "field modulus is not prime")
	}
	if !n.ProbablyPrime(primeRounds) {
		return nil, errors.Wrap(ErrInvalidParameters, "group order is not prime")
	}
	c := &Curve{
		Name: name,
		P:    new(big.Int).Set(p),
		A:    new(big.Int).Mod(a, p),
		B:    new(big.Int).Mod(b, p),
		N:    new(big.Int).Set(n),
		Gx:   new(big.Int).Set(gx),
		Gy:   new(big.Int).Set(gy),
	}
	c.byteLen = (n.BitLen() + 7) / 8
	if (p.BitLen()+7)/8 > c.byteLen {
		return nil, errors.Wrap(ErrInvalidParameters, "field elements do not fit the scalar width")
	}
	g := c.Generator()
	if !c.IsOnCurve(g) {
		return nil, errors.Wrap(ErrInvalidParameters, "base point is not on the curve")
	}
	// (n-1)G == -G iff nG is the identity
	if !c.ScalarMult(g, new(big.Int).Sub(c.N, one)).Equal(c.Neg(g)) {
		return nil, errors.Wrap(ErrInvalidParameters, "base point order mismatch")
	}
	return c, nil
}

// ByteLen returns L, the width of one encoded coordinate and of an encoded
// scalar.
func (c *Curve) ByteLen() int {
	return c.byteLen
}

// PointLen returns the encoded size of a point, 2L.
func (c *Curve) PointLen() int {
	return 2 * c.byteLen
}

// Generator returns a copy of the base point G.
func (c *Curve) Generator() *Point {
	return NewPoint(c.Gx, c.Gy)
}

func mustHex(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("curve: bad hex constant " + s)
	}
	return v
}

var (
	secp256k1Once  sync.Once
	secp256k1Curve *Curve
	p256Once       sync.Once
	p256Curve      *Curve
)

// Curve names accepted by ByName.
const (
	NameSecp256k1 = "secp256k1"
	NameP256      = "P-256"
)

// Secp256k1 returns the secp256k1 curve (a = 0, b = 7).
func Secp256k1() *Curve {
	secp256k1Once.Do(func() {
		c, err := NewCurve(NameSecp256k1,
			mustHex("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEFFFFFC2F"),
			big.NewInt(0),
			big.NewInt(7),
			mustHex("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141"),
			mustHex("79BE667EF9DCBBAC55A06295CE870B07029BFCDB2DCE28D959F2815B16F81798"),
			mustHex("483ADA7726A3C4655DA4FBFC0E1108A8FD17B448A68554199C47D08FFB10D4B8"),
		)
		if err != nil {
			panic(err)
		}
		secp256k1Curve = c
	})
	return secp256k1Curve
}

// P256 returns NIST P-256 with parameters taken from crypto/elliptic.
func P256() *Curve {
	p256Once.Do(func() {
		params := elliptic.P256().Params()
		c, err := NewCurve(NameP256,
			params.P,
			new(big.Int).Sub(params.P, big.NewInt(3)),
			params.B,
			params.N,
			params.Gx,
			params.Gy,
		)
		if err != nil {
			panic(err)
		}
		p256Curve = c
	})
	return p256Curve
}

// ByName returns a built-in curve.
func ByName(name string) (*Curve, error) {
	switch name {
	case NameSecp256k1, "":
		return Secp256k1(), nil
	case NameP256, "p256", "P256":
		return P256(), nil
	default:
		return nil, errors.Wrapf(ErrUnknownCurve, "%q", name)
	}
}
