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

// Package testvectors provides published known-answer vectors for the
// primitives the threshold scheme is built on.
//
// The vectors are embedded JSON:
//
// - HMAC-SHA256 from RFC 4231
// - HKDF-SHA256 from RFC 5869
// - scalar multiples of the base point for secp256k1 and P-256
package testvectors

import (
	"embed"
	"encoding/json"
	"fmt"
)

//go:embed vectors_kdf.json
//go:embed vectors_curve.json
var vectorsFS embed.FS

// HMACVector is one keyed-hash known answer. All fields are hex.
type HMACVector struct {
	Name string `json:"name"`
	Key  string `json:"key"`
	Data string `json:"data"`
	Tag  string `json:"tag"`
}

// HKDFVector is one extract-and-expand known answer. All byte fields are
// hex; the output length is len(OKM)/2.
type HKDFVector struct {
	Name string `json:"name"`
	IKM  string `json:"ikm"`
	Salt string `json:"salt"`
	Info string `json:"info"`
	OKM  string `json:"okm"`
}

// KDFVectors groups the vectors of one hash suite.
type KDFVectors struct {
	// Suite is the kdf suite name the vectors apply to.
	Suite string       `json:"suite"`
	HMAC  []HMACVector `json:"hmac"`
	HKDF  []HKDFVector `json:"hkdf"`
}

// Multiple is k*G in affine coordinates. K is decimal, X and Y are hex.
type Multiple struct {
	K string `json:"k"`
	X string `json:"x"`
	Y string `json:"y"`
}

// CurveVectors holds base point multiples for one curve.
type CurveVectors struct {
	Curve     string     `json:"curve"`
	Multiples []Multiple `json:"multiples"`
}

// GetKDFVectors returns the HMAC and HKDF vectors.
func GetKDFVectors() (*KDFVectors, error) {
	var v KDFVectors
	if err := load("vectors_kdf.json", &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetCurveVectors returns the base point multiples of every curve.
func GetCurveVectors() ([]CurveVectors, error) {
	var v struct {
		Curves []CurveVectors `json:"curves"`
	}
	if err := load("vectors_curve.json", &v); err != nil {
		return nil, err
	}
	return v.Curves, nil
}

func load(filename string, v any) error {
	data, err := vectorsFS.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	return nil
}
