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
)

// Polynomial is a polynomial over the scalar field Z_q.
//
// A polynomial f of degree at most t-1 is represented by t coefficients:
// f(x) = coeffs[0] + coeffs[1]*x + ... + coeffs[t-1]*x^(t-1)
type Polynomial struct {
	coeffs []*big.Int
	q      *big.Int
}

// NewPolynomial copies coeffs, reduced mod q, into a polynomial.
// Returns ErrInvalidPolynomial if coeffs is empty.
func NewPolynomial(q *big.Int, coeffs []*big.Int) (*Polynomial, error) {
	if len(coeffs) == 0 {
		return nil, ErrInvalidPolynomial
	}
	copied := make([]*big.Int, len(coeffs))
	for i, c := range coeffs {
		copied[i] = new(big.Int).Mod(c, q)
	}
	return &Polynomial{coeffs: copied, q: new(big.Int).Set(q)}, nil
}

// RandomPolynomial samples a polynomial with t coefficients uniform in
// [1, q). If secret is non-nil it becomes the constant term.
func RandomPolynomial(c *curve.Curve, t int, secret *big.Int, r io.Reader) (*Polynomial, error) {
	if t < MinThreshold {
		return nil, ErrInvalidThreshold
	}
	coeffs := make([]*big.Int, t)
	for i := range coeffs {
		if i == 0 && secret != nil {
			coeffs[0] = new(big.Int).Mod(secret, c.N)
			continue
		}
		k, err := c.RandomScalar(r)
		if err != nil {
			return nil, err
		}
		coeffs[i] = k
	}
	p := &Polynomial{coeffs: coeffs, q: new(big.Int).Set(c.N)}
	return p, nil
}

// Degree returns t-1.
func (p *Polynomial) Degree() int {
	return len(p.coeffs) - 1
}

// Threshold returns t, the number of coefficients.
func (p *Polynomial) Threshold() int {
	return len(p.coeffs)
}

// Eval evaluates the polynomial at x with Horner's method.
//
// Panics if x is zero mod q: f(0) is the secret. Use ConstantTerm for
// explicit access.
func (p *Polynomial) Eval(x *big.Int) *big.Int {
	xr := new(big.Int).Mod(x, p.q)
	if xr.Sign() == 0 {
		panic("Polynomial.Eval: evaluation at zero would reveal secret - use ConstantTerm()")
	}
	value := new(big.Int)
	for i := len(p.coeffs) - 1; i >= 0; i-- {
		value.Mul(value, xr)
		value.Add(value, p.coeffs[i])
		value.Mod(value, p.q)
	}
	return value
}

// EvalAt evaluates the polynomial at participant id.
func (p *Polynomial) EvalAt(id int) *big.Int {
	return p.Eval(big.NewInt(int64(id)))
}

// ConstantTerm returns a copy of f(0).
func (p *Polynomial) ConstantTerm() *big.Int {
	if len(p.coeffs) == 0 {
		return new(big.Int)
	}
	return new(big.Int).Set(p.coeffs[0])
}

// Coefficients returns a deep copy of the coefficients.
func (p *Polynomial) Coefficients() []*big.Int {
	out := make([]*big.Int, len(p.coeffs))
	for i, c := range p.coeffs {
		out[i] = new(big.Int).Set(c)
	}
	return out
}

// Zeroize overwrites the coefficient words and drops the references.
func (p *Polynomial) Zeroize() {
	if p == nil {
		return
	}
	for _, c := range p.coeffs {
		ZeroInt(c)
	}
	p.coeffs = nil
}
