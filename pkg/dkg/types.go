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

import "github.com/pkg/errors"

// Params are the public parameters of a session: n participants with ids
// 1..n and reconstruction threshold t (polynomial degree t-1).
type Params struct {
	N int `json:"n" yaml:"n" mapstructure:"n"`
	T int `json:"t" yaml:"t" mapstructure:"t"`
}

// Validate checks 1 <= t <= n <= MaxParticipants.
func (p Params) Validate() error {
	if p.N < MinParticipants || p.N > MaxParticipants {
		return errors.Wrapf(ErrInvalidParticipantCount, "n=%d", p.N)
	}
	if p.T < MinThreshold || p.T > p.N {
		return errors.Wrapf(ErrInvalidThreshold, "t=%d, n=%d", p.T, p.N)
	}
	return nil
}

// ValidID reports whether id is in the roster 1..n.
func (p Params) ValidID(id int) bool {
	return id >= 1 && id <= p.N
}

// IDs returns the roster 1..n.
func (p Params) IDs() []int {
	ids := make([]int, p.N)
	for i := range ids {
		ids[i] = i + 1
	}
	return ids
}

func (p Params) checkID(id int) error {
	if !p.ValidID(id) {
		return errors.Wrapf(ErrInvalidParticipantID, "id %d outside 1..%d", id, p.N)
	}
	return nil
}
