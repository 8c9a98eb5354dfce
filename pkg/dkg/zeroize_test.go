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
	"math/big"
	"testing"
)

func TestZeroBytes(t *testing.T) {
	t.Run("zeros_non_empty_slice", func(t *testing.T) {
		data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
		ZeroBytes(data)

		for i, b := range data {
			if b != 0 {
				t.Errorf("Byte at index %d is not zero: %x", i, b)
			}
		}
	})

	t.Run("handles_empty_slice", func(t *testing.T) {
		ZeroBytes([]byte{})
		ZeroBytes(nil)
	})

	t.Run("zero_slices", func(t *testing.T) {
		a, b := []byte{1, 2}, []byte{3}
		ZeroSlices(a, b)
		if a[0] != 0 || a[1] != 0 || b[0] != 0 {
			t.Error("Expected all slices to be zeroed")
		}
	})
}

func TestZeroInt(t *testing.T) {
	v, _ := new(big.Int).SetString("123456789abcdef0123456789abcdef", 16)
	words := v.Bits()
	ZeroInt(v)
	if v.Sign() != 0 {
		t.Error("Expected zero value")
	}
	for i, w := range words {
		if w != 0 {
			t.Errorf("word %d not cleared", i)
		}
	}
	ZeroInt(nil)
}

func TestZeroShares(t *testing.T) {
	shares := map[int]*big.Int{1: big.NewInt(5), 2: big.NewInt(6)}
	ZeroShares(shares)
	if len(shares) != 0 {
		t.Errorf("Expected empty map, got %d entries", len(shares))
	}
}
