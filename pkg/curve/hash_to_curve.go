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
	"encoding/binary"
	"math/big"

	"github.com/jeremyhahn/go-thresholdkms/pkg/kdf"
	"github.com/pkg/errors"
)

// MaxHashToCurveAttempts bounds the counter search in HashToCurve.
const MaxHashToCurveAttempts = 1 << 16

// HashToCurveTag is the domain separation prefix of the hash-to-curve input.
const HashToCurveTag = "tkms/h2c/v1"

// HashToCurve deterministically maps (epoch, j, aad) to a curve point. It
// hashes the domain tag, the length-prefixed inputs and a 32-bit counter
// with the suite's 512-bit function, reduces the digest mod P and accepts
// the first x for which x^3 + ax + b is zero or a quadratic residue.
//
// The field must satisfy p = 3 mod 4 so the square root is one
// exponentiation by (p+1)/4.
func (c *Curve) HashToCurve(s kdf.Suite, epoch []byte, j uint32, aad []byte) (*Point, error) {
	pt, _, err := c.hashToCurve(s, epoch, j, aad, MaxHashToCurveAttempts)
	return pt, err
}

// hashToCurve also reports how many candidates were tried.
func (c *Curve) hashToCurve(s kdf.Suite, epoch []byte, j uint32, aad []byte, limit int) (*Point, int, error) {
	if new(big.Int).Mod(c.P, big.NewInt(4)).Int64() != 3 {
		return nil, 0, ErrUnsupportedField
	}
	sqrtExp := new(big.Int).Add(c.P, one)
	sqrtExp.Rsh(sqrtExp, 2)

	prefix := make([]byte, 0, len(HashToCurveTag)+12+len(epoch)+len(aad))
	prefix = append(prefix, HashToCurveTag...)
	prefix = binary.BigEndian.AppendUint32(prefix, uint32(len(epoch)))
	prefix = append(prefix, epoch...)
	prefix = binary.BigEndian.AppendUint32(prefix, j)
	prefix = binary.BigEndian.AppendUint32(prefix, uint32(len(aad)))
	prefix = append(prefix, aad...)

	var ctr [4]byte
	for attempt := 0; attempt < limit; attempt++ {
		binary.BigEndian.PutUint32(ctr[:], uint32(attempt))
		digest := kdf.Sum512(s, prefix, ctr[:])

		x := new(big.Int).SetBytes(digest)
		x.Mod(x, c.P)
		rhs := c.rhs(x)
		if rhs.Sign() == 0 {
			return &Point{X: x, Y: new(big.Int)}, attempt + 1, nil
		}
		y := new(big.Int).Exp(rhs, sqrtExp, c.P)
		pt := &Point{X: x, Y: y}
		if c.IsOnCurve(pt) {
			return pt, attempt + 1, nil
		}
	}
	return nil, limit, errors.Wrapf(ErrHashToCurveExhausted, "after %d attempts", limit)
}
