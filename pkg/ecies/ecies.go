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

// Package ecies implements hybrid encryption to a distributed public key.
// Decryption never materializes the private key: each shareholder in a
// quorum contributes a Lagrange-weighted partial point and the partials
// sum to the shared secret point.
package ecies

import (
	"encoding/binary"
	"io"
	"math/big"

	"github.com/jeremyhahn/go-thresholdkms/pkg/curve"
	"github.com/jeremyhahn/go-thresholdkms/pkg/dkg"
	"github.com/jeremyhahn/go-thresholdkms/pkg/kdf"
	"github.com/pkg/errors"
)

// Info is the HKDF info prefix. The caller's associated data is appended.
const Info = "tkms/ecies/v1"

const (
	KeySize    = 32
	NonceSize  = 16
	MACKeySize = 32
)

// Ciphertext is an ECIES ciphertext: the ephemeral point R, the encrypted
// payload and its tag.
type Ciphertext struct {
	R   *curve.Point
	CT  []byte
	Tag []byte
}

// Marshal encodes the ciphertext as R || tag || ct.
func (ct *Ciphertext) Marshal(c *curve.Curve) []byte {
	out := make([]byte, 0, c.PointLen()+len(ct.Tag)+len(ct.CT))
	out = append(out, c.Marshal(ct.R)...)
	out = append(out, ct.Tag...)
	return append(out, ct.CT...)
}

// ParseCiphertext decodes the output of Ciphertext.Marshal.
func ParseCiphertext(c *curve.Curve, b []byte) (*Ciphertext, error) {
	pl := c.PointLen()
	if len(b) < pl+kdf.Size256 {
		return nil, errors.Wrapf(ErrInvalidCiphertext, "%d bytes is too short", len(b))
	}
	r, err := c.Unmarshal(b[:pl])
	if err != nil {
		return nil, errors.Wrap(ErrInvalidCiphertext, err.Error())
	}
	return &Ciphertext{
		R:   r,
		Tag: append([]byte(nil), b[pl:pl+kdf.Size256]...),
		CT:  append([]byte(nil), b[pl+kdf.Size256:]...),
	}, nil
}

type keys struct {
	enc, nonce, mac []byte
}

func (k *keys) zeroize() {
	dkg.ZeroBytes(k.enc)
	dkg.ZeroBytes(k.nonce)
	dkg.ZeroBytes(k.mac)
}

// deriveKeys runs HKDF with the shared point as secret, the ephemeral
// point as salt and Info || aad as info.
func deriveKeys(c *curve.Curve, s kdf.Suite, z, r *curve.Point, aad []byte) (*keys, error) {
	secret := c.Marshal(z)
	defer dkg.ZeroBytes(secret)
	info := append([]byte(Info), aad...)
	k := &keys{
		enc:   make([]byte, KeySize),
		nonce: make([]byte, NonceSize),
		mac:   make([]byte, MACKeySize),
	}
	if err := kdf.Expand(s, secret, c.Marshal(r), info, k.enc, k.nonce, k.mac); err != nil {
		return nil, err
	}
	return k, nil
}

func computeTag(c *curve.Curve, s kdf.Suite, macKey []byte, aad []byte, r *curve.Point, ct []byte) []byte {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(aad)))
	return kdf.MAC(s, macKey, n[:], aad, c.Marshal(r), ct)
}

func checkPoint(c *curve.Curve, p *curve.Point) bool {
	return p != nil && !p.IsInfinity() && c.IsOnCurve(p)
}

// GenerateKey returns a standalone key pair. It is not a threshold key
// and is meant for transport keys and tests.
func GenerateKey(c *curve.Curve, r io.Reader) (*big.Int, *curve.Point, error) {
	d, err := c.RandomScalar(r)
	if err != nil {
		return nil, nil, err
	}
	return d, c.ScalarBaseMult(d), nil
}

// Encrypt encrypts plaintext to the public key q. aad is authenticated but
// not encrypted and must be supplied again to decrypt.
func Encrypt(c *curve.Curve, s kdf.Suite, q *curve.Point, plaintext, aad []byte, r io.Reader) (*Ciphertext, error) {
	if s == nil {
		s = kdf.Default()
	}
	if !checkPoint(c, q) {
		return nil, ErrInvalidPublicKey
	}
	k, err := c.RandomScalar(r)
	if err != nil {
		return nil, errors.Wrap(err, "ecies: ephemeral scalar")
	}
	defer dkg.ZeroInt(k)

	ephemeral := c.ScalarBaseMult(k)
	z := c.ScalarMult(q, k)
	if z.IsInfinity() {
		return nil, ErrInvalidPublicKey
	}
	keys, err := deriveKeys(c, s, z, ephemeral, aad)
	if err != nil {
		return nil, err
	}
	defer keys.zeroize()

	ct := kdf.XOR(s, keys.enc, keys.nonce, plaintext)
	return &Ciphertext{
		R:   ephemeral,
		CT:  ct,
		Tag: computeTag(c, s, keys.mac, aad, ephemeral, ct),
	}, nil
}

// Decrypt opens ct with the shared point z, which is r·Q recombined from
// partials or computed with a full private key. The tag is checked before
// any plaintext is produced.
func Decrypt(c *curve.Curve, s kdf.Suite, ct *Ciphertext, z *curve.Point, aad []byte) ([]byte, error) {
	if s == nil {
		s = kdf.Default()
	}
	if ct == nil || !checkPoint(c, ct.R) || len(ct.Tag) != kdf.Size256 {
		return nil, ErrInvalidCiphertext
	}
	if !checkPoint(c, z) {
		return nil, ErrMACMismatch
	}
	keys, err := deriveKeys(c, s, z, ct.R, aad)
	if err != nil {
		return nil, err
	}
	defer keys.zeroize()

	if !kdf.Equal(computeTag(c, s, keys.mac, aad, ct.R, ct.CT), ct.Tag) {
		return nil, ErrMACMismatch
	}
	return kdf.XOR(s, keys.enc, keys.nonce, ct.CT), nil
}

// DecryptWithKey opens ct with a whole private scalar.
func DecryptWithKey(c *curve.Curve, s kdf.Suite, ct *Ciphertext, d *big.Int, aad []byte) ([]byte, error) {
	if ct == nil || !checkPoint(c, ct.R) {
		return nil, ErrInvalidCiphertext
	}
	return Decrypt(c, s, ct, c.ScalarMult(ct.R, d), aad)
}
