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

// Package rng provides randomness sources for the engine. Production code
// uses crypto/rand; tests and reproducible vectors use a seeded ChaCha20
// keystream.
package rng

import (
	"crypto/rand"
	"crypto/sha256"
	"io"
	"sync"

	"golang.org/x/crypto/chacha20"
)

// Secure returns the operating system CSPRNG.
func Secure() io.Reader {
	return rand.Reader
}

// deterministic is an io.Reader over a ChaCha20 keystream. It is safe for
// concurrent use.
type deterministic struct {
	mu     sync.Mutex
	cipher *chacha20.Cipher
}

// Deterministic returns a reader whose output is fully determined by seed.
// The seed is hashed to a 256-bit ChaCha20 key with an all-zero nonce.
// Never use it for real keys.
func Deterministic(seed []byte) io.Reader {
	key := sha256.Sum256(seed)
	nonce := make([]byte, chacha20.NonceSize)
	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce)
	if err != nil {
		// key and nonce sizes are fixed above
		panic(err)
	}
	return &deterministic{cipher: c}
}

func (d *deterministic) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range p {
		p[i] = 0
	}
	d.cipher.XORKeyStream(p, p)
	return len(p), nil
}
