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
	"crypto/hmac"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"
)

// MAC returns HMAC over the concatenation of parts, keyed with key and built
// on the suite's 256-bit hash.
func MAC(s Suite, key []byte, parts ...[]byte) []byte {
	m := hmac.New(s.New256, key)
	for _, p := range parts {
		m.Write(p)
	}
	return m.Sum(nil)
}

// Equal compares two MAC tags in constant time.
func Equal(a, b []byte) bool {
	return hmac.Equal(a, b)
}

// Expand derives len(outs) keys from secret with HKDF over the suite's
// 256-bit hash. Each output slice is filled completely.
// Same secret, salt and info always yield the same keys.
func Expand(s Suite, secret, salt, info []byte, outs ...[]byte) error {
	r := hkdf.New(s.New256, secret, salt, info)
	for i := range outs {
		if _, err := io.ReadFull(r, outs[i]); err != nil {
			return errors.Wrap(err, "kdf: read from hkdf reader")
		}
	}
	return nil
}
