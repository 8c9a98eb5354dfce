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

package kdf

import (
	"crypto/cipher"
	"crypto/hmac"
	"encoding/binary"
	"hash"
)

// keystream is a counter-mode stream cipher whose block function is
// HMAC(key, nonce || u64be(counter)).
type keystream struct {
	mac     hash.Hash
	nonce   []byte
	counter uint64
	block   []byte
	used    int
}

// NewStream returns a cipher.Stream producing the keystream for key and
// nonce. Encryption and decryption are the same XOR operation.
func NewStream(s Suite, key, nonce []byte) cipher.Stream {
	n := make([]byte, len(nonce))
	copy(n, nonce)
	return &keystream{
		mac:   hmac.New(s.New256, key),
		nonce: n,
	}
}

func (k *keystream) refill() {
	var ctr [8]byte
	binary.BigEndian.PutUint64(ctr[:], k.counter)
	k.counter++

	k.mac.Reset()
	k.mac.Write(k.nonce)
	k.mac.Write(ctr[:])
	k.block = k.mac.Sum(k.block[:0])
	k.used = 0
}

// XORKeyStream implements cipher.Stream.
func (k *keystream) XORKeyStream(dst, src []byte) {
	if len(dst) < len(src) {
		panic("kdf: output smaller than input")
	}
	for i := range src {
		if k.used == len(k.block) {
			k.refill()
		}
		dst[i] = src[i] ^ k.block[k.used]
		k.used++
	}
}

// XOR applies the keystream for key and nonce to src and returns a new slice.
func XOR(s Suite, key, nonce, src []byte) []byte {
	out := make([]byte, len(src))
	NewStream(s, key, nonce).XORKeyStream(out, src)
	return out
}
