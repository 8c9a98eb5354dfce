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

// Participant is one dealer of a DKG session. It holds its secret
// polynomial between round 1 and round 2 and should be zeroized once its
// shares are sent.
type Participant struct {
	id         int
	params     Params
	curve      *curve.Curve
	poly       *Polynomial
	commitment *Commitment
}

// NewParticipant samples a fresh degree t-1 polynomial for participant id.
func NewParticipant(c *curve.Curve, params Params, id int, r io.Reader) (*Participant, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := params.checkID(id); err != nil {
		return nil, err
	}
	f, err := RandomPolynomial(c, params.T, nil, r)
	if err != nil {
		return nil, errors.Wrapf(err, "dkg: participant %d polynomial", id)
	}
	return &Participant{
		id:         id,
		params:     params,
		curve:      c,
		poly:       f,
		commitment: Commit(c, f),
	}, nil
}

// ID returns the participant id.
func (p *Participant) ID() int {
	return p.id
}

// Commitment returns the round 1 broadcast: commitments to all t
// coefficients.
func (p *Participant) Commitment() *Commitment {
	points := make([]*curve.Point, len(p.commitment.Points))
	for i, pt := range p.commitment.Points {
		points[i] = pt.Copy()
	}
	return &Commitment{Points: points}
}

// ShareFor returns the round 2 private share f(recipient).
func (p *Participant) ShareFor(recipient int) (*big.Int, error) {
	if p.poly == nil {
		return nil, errors.Wrapf(ErrInvalidPolynomial, "participant %d zeroized", p.id)
	}
	if err := p.params.checkID(recipient); err != nil {
		return nil, err
	}
	return p.poly.EvalAt(recipient), nil
}

// Shares returns f(i) for every recipient 1..n, including itself.
func (p *Participant) Shares() (map[int]*big.Int, error) {
	out := make(map[int]*big.Int, p.params.N)
	for _, id := range p.params.IDs() {
		s, err := p.ShareFor(id)
		if err != nil {
			return nil, err
		}
		out[id] = s
	}
	return out, nil
}

// Zeroize destroys the secret polynomial. The commitment stays available.
func (p *Participant) Zeroize() {
	if p == nil {
		return
	}
	p.poly.Zeroize()
	p.poly = nil
}
