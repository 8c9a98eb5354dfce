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

	"github.com/jeremyhahn/go-thresholdkms/pkg/curve"
)

// Run executes all three rounds in-process: every participant commits,
// deals one share to every recipient, and the session verifies and
// aggregates. Participant polynomials are zeroized before returning. A
// failure in any round aborts the session.
func Run(c *curve.Curve, params Params, r io.Reader, opts ...Option) (_ *Result, err error) {
	session, err := NewSession(c, params, opts...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			session.Abort(err)
		}
	}()

	participants := make([]*Participant, 0, params.N)
	defer func() {
		for _, p := range participants {
			p.Zeroize()
		}
	}()

	// round 1
	for _, id := range params.IDs() {
		p, err := NewParticipant(c, params, id, r)
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
		if err := session.AddCommitment(id, p.Commitment()); err != nil {
			return nil, err
		}
	}

	// round 2
	for _, p := range participants {
		for _, recipient := range params.IDs() {
			share, err := p.ShareFor(recipient)
			if err != nil {
				return nil, err
			}
			if err := session.AddShare(p.ID(), recipient, share); err != nil {
				return nil, err
			}
		}
	}

	// round 3
	return session.Finalize()
}
