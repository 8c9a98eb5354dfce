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

import "github.com/pkg/errors"

var (
	// ErrInvalidParameters is returned by NewCurve for unusable domain
	// parameters.
	ErrInvalidParameters = errors.New("curve: invalid domain parameters")

	// ErrUnknownCurve is returned by ByName.
	ErrUnknownCurve = errors.New("curve: unknown curve")
)

var (
	// ErrInvalidEncoding indicates a point encoding of the wrong length or
	// with a coordinate outside the field.
	ErrInvalidEncoding = errors.New("curve: invalid point encoding")

	// ErrNotOnCurve indicates a decoded point that does not satisfy the
	// curve equation.
	ErrNotOnCurve = errors.New("curve: point is not on the curve")

	// ErrLengthMismatch is returned by LinearCombination when the point and
	// scalar slices differ in length.
	ErrLengthMismatch = errors.New("curve: points and scalars length mismatch")

	// ErrInvalidScalar indicates a scalar encoding of the wrong length.
	ErrInvalidScalar = errors.New("curve: invalid scalar encoding")
)

var (
	// ErrHashToCurveExhausted is returned when the hash-to-curve counter
	// search ran out of attempts.
	ErrHashToCurveExhausted = errors.New("curve: hash-to-curve attempts exhausted")

	// ErrUnsupportedField is returned by HashToCurve for fields where
	// p is not 3 mod 4.
	ErrUnsupportedField = errors.New("curve: hash-to-curve requires p = 3 mod 4")
)
