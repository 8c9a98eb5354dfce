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
	"math/big"
)

// ZeroBytes securely zeros a byte slice.
// ConstantTimeCopy keeps the compiler from removing the write.
func ZeroBytes(b []byte) {
	if len(b) == 0 {
		return
	}
	zeros := make([]byte, len(b))
	subtle.ConstantTimeCopy(1, b, zeros)
}

// ZeroSlices zeros multiple byte slices.
func ZeroSlices(slices ...[]byte) {
	for _, s := range slices {
		ZeroBytes(s)
	}
}

// ZeroInt overwrites the backing words of v and sets it to zero.
func ZeroInt(v *big.Int) {
	if v == nil {
		return
	}
	words := v.Bits()
	for i := range words {
		words[i] = 0
	}
	v.SetInt64(0)
}

// ZeroShares zeros every scalar in a share map and empties it.
func ZeroShares(shares map[int]*big.Int) {
	for id, s := range shares {
		ZeroInt(s)
		delete(shares, id)
	}
}
