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

package testvectors

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/jeremyhahn/go-thresholdkms/pkg/curve"
	"github.com/jeremyhahn/go-thresholdkms/pkg/kdf"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("invalid hex %q: %v", s, err)
	}
	return b
}

func TestHMACVectors(t *testing.T) {
	vectors, err := GetKDFVectors()
	if err != nil {
		t.Fatalf("GetKDFVectors failed: %v", err)
	}
	s, err := kdf.Lookup(vectors.Suite)
	if err != nil {
		t.Fatal(err)
	}
	if len(vectors.HMAC) == 0 {
		t.Fatal("no HMAC vectors")
	}
	for _, v := range vectors.HMAC {
		t.Run(v.Name, func(t *testing.T) {
			got := kdf.MAC(s, mustHex(t, v.Key), mustHex(t, v.Data))
			if hex.EncodeToString(got) != v.Tag {
				t.Errorf("tag = %x, want %s", got, v.Tag)
			}
		})
	}
}

func TestHKDFVectors(t *testing.T) {
	vectors, err := GetKDFVectors()
	if err != nil {
		t.Fatalf("GetKDFVectors failed: %v", err)
	}
	s, err := kdf.Lookup(vectors.Suite)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range vectors.HKDF {
		t.Run(v.Name, func(t *testing.T) {
			want := mustHex(t, v.OKM)
			out := make([]byte, len(want))
			if err := kdf.Expand(s, mustHex(t, v.IKM), mustHex(t, v.Salt), mustHex(t, v.Info), out); err != nil {
				t.Fatal(err)
			}
			if hex.EncodeToString(out) != v.OKM {
				t.Errorf("okm = %x, want %s", out, v.OKM)
			}

			// split outputs continue the same stream
			a, b := make([]byte, 10), make([]byte, len(want)-10)
			if err := kdf.Expand(s, mustHex(t, v.IKM), mustHex(t, v.Salt), mustHex(t, v.Info), a, b); err != nil {
				t.Fatal(err)
			}
			if hex.EncodeToString(append(a, b...)) != v.OKM {
				t.Error("split expansion differs from single expansion")
			}
		})
	}
}

func TestCurveVectors(t *testing.T) {
	all, err := GetCurveVectors()
	if err != nil {
		t.Fatalf("GetCurveVectors failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 curves, got %d", len(all))
	}
	for _, cv := range all {
		t.Run(cv.Curve, func(t *testing.T) {
			c, err := curve.ByName(cv.Curve)
			if err != nil {
				t.Fatal(err)
			}
			for _, m := range cv.Multiples {
				k, ok := new(big.Int).SetString(m.K, 10)
				if !ok {
					t.Fatalf("invalid k %q", m.K)
				}
				p := c.ScalarBaseMult(k)
				if !c.IsOnCurve(p) {
					t.Errorf("%s*G not on curve", m.K)
				}

				want := append(mustHex(t, m.X), mustHex(t, m.Y)...)
				if got := c.Marshal(p); hex.EncodeToString(got) != hex.EncodeToString(want) {
					t.Errorf("%s*G = %x, want %x", m.K, got, want)
				}

				decoded, err := c.Unmarshal(want)
				if err != nil {
					t.Fatalf("Unmarshal(%s*G) failed: %v", m.K, err)
				}
				if !decoded.Equal(p) {
					t.Errorf("Unmarshal(%s*G) returned a different point", m.K)
				}
			}
		})
	}
}

func TestInvalidVectorFile(t *testing.T) {
	var v KDFVectors
	if err := load("nonexistent.json", &v); err == nil {
		t.Error("expected error for missing vector file")
	}
}
