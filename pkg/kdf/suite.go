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

// Package kdf provides the keyed-hash layer of the engine: named hash
// suites exposing the 256-bit and 512-bit digest functions, HMAC, an HKDF
// expansion and a keystream cipher built from repeated HMAC blocks.
//
// Nothing in this package depends on the internals of a hash function. Every
// construction is generic over a Suite.
package kdf

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"sort"
	"sync"

	sha256simd "github.com/minio/sha256-simd"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
	"lukechampine.com/blake3"
)

// Suite names.
const (
	SHA2     = "sha2"
	SHA2SIMD = "sha2-simd"
	BLAKE2b  = "blake2b"
	SHA3     = "sha3"
	BLAKE3   = "blake3"

	// DefaultSuite is used when callers do not pick a suite.
	DefaultSuite = SHA2
)

// Digest sizes in bytes.
const (
	Size256 = 32
	Size512 = 64
)

// ErrUnknownSuite is returned by Lookup for unregistered suite names.
var ErrUnknownSuite = errors.New("kdf: unknown hash suite")

// Suite is the external hash primitive: two deterministic, fixed-length,
// collision-resistant digest functions.
type Suite interface {
	// Name returns the registered suite name.
	Name() string

	// H256 returns the 32-byte digest of data.
	H256(data []byte) []byte

	// H512 returns the 64-byte digest of data.
	H512(data []byte) []byte

	// New256 returns a fresh streaming hash producing 32-byte digests.
	New256() hash.Hash

	// New512 returns a fresh streaming hash producing 64-byte digests.
	New512() hash.Hash
}

type suite struct {
	name   string
	new256 func() hash.Hash
	new512 func() hash.Hash
}

func (s *suite) Name() string         { return s.name }
func (s *suite) New256() hash.Hash    { return s.new256() }
func (s *suite) New512() hash.Hash    { return s.new512() }
func (s *suite) H256(d []byte) []byte { return sum(s.new256(), d) }
func (s *suite) H512(d []byte) []byte { return sum(s.new512(), d) }

func sum(h hash.Hash, parts ...[]byte) []byte {
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// Sum256 hashes the concatenation of parts with the suite's 256-bit function.
func Sum256(s Suite, parts ...[]byte) []byte {
	return sum(s.New256(), parts...)
}

// Sum512 hashes the concatenation of parts with the suite's 512-bit function.
func Sum512(s Suite, parts ...[]byte) []byte {
	return sum(s.New512(), parts...)
}

func blake2b256() hash.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// unkeyed construction cannot fail
		panic(err)
	}
	return h
}

func blake2b512() hash.Hash {
	h, err := blake2b.New512(nil)
	if err != nil {
		panic(err)
	}
	return h
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Suite{
		SHA2:     &suite{name: SHA2, new256: sha256.New, new512: sha512.New},
		SHA2SIMD: &suite{name: SHA2SIMD, new256: sha256simd.New, new512: sha512.New},
		BLAKE2b:  &suite{name: BLAKE2b, new256: blake2b256, new512: blake2b512},
		SHA3:     &suite{name: SHA3, new256: sha3.New256, new512: sha3.New512},
		BLAKE3: &suite{
			name:   BLAKE3,
			new256: func() hash.Hash { return blake3.New(Size256, nil) },
			new512: func() hash.Hash { return blake3.New(Size512, nil) },
		},
	}
)

// Lookup returns the suite registered under name.
func Lookup(name string) (Suite, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownSuite, "%q", name)
	}
	return s, nil
}

// Default returns the default suite (SHA-256 / SHA-512).
func Default() Suite {
	s, _ := Lookup(DefaultSuite)
	return s
}

// Register adds a custom suite built from two hash constructors. The
// constructors must produce 32-byte and 64-byte digests respectively.
func Register(name string, new256, new512 func() hash.Hash) error {
	if name == "" || new256 == nil || new512 == nil {
		return errors.New("kdf: invalid suite registration")
	}
	if new256().Size() != Size256 || new512().Size() != Size512 {
		return errors.Errorf("kdf: suite %q has wrong digest sizes", name)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		return errors.Errorf("kdf: suite %q already registered", name)
	}
	registry[name] = &suite{name: name, new256: new256, new512: new512}
	return nil
}

// Suites lists the registered suite names in sorted order.
func Suites() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
