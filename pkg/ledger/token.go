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

package ledger

import (
	"encoding/binary"
	"math/big"

	"github.com/jeremyhahn/go-thresholdkms/pkg/curve"
	"github.com/jeremyhahn/go-thresholdkms/pkg/dkg"
	"github.com/jeremyhahn/go-thresholdkms/pkg/kdf"
	"github.com/pkg/errors"
)

// Kind is the type of an authorization token.
type Kind uint8

const (
	// KindApprove tokens count toward the approving group weight.
	KindApprove Kind = iota + 1

	// KindVeto tokens count toward the veto weight.
	KindVeto
)

// Tag returns the derivation tag of the kind.
func (k Kind) Tag() string {
	switch k {
	case KindApprove:
		return "no"
	case KindVeto:
		return "veto"
	default:
		return ""
	}
}

func (k Kind) String() string {
	switch k {
	case KindApprove:
		return "approve"
	case KindVeto:
		return "veto"
	default:
		return "unknown"
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindApprove || k == KindVeto
}

// ParseKind parses "approve" or "veto".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "approve", "no":
		return KindApprove, nil
	case "veto":
		return KindVeto, nil
	default:
		return 0, errors.Errorf("ledger: unknown token kind %q", s)
	}
}

// Kinds lists both kinds in leaf order.
var Kinds = []Kind{KindApprove, KindVeto}

// DeriveToken returns H256(tag || epoch || u32be(id) || share), where share
// is the L-byte big-endian encoding of the participant's final share.
func DeriveToken(s kdf.Suite, c *curve.Curve, epoch []byte, id int, share *big.Int, kind Kind) ([]byte, error) {
	if !kind.Valid() {
		return nil, errors.Errorf("ledger: invalid token kind %d", kind)
	}
	if id < 1 {
		return nil, errors.Errorf("ledger: invalid participant id %d", id)
	}
	var idb [4]byte
	binary.BigEndian.PutUint32(idb[:], uint32(id))
	shareBytes := c.MarshalScalar(share)
	defer dkg.ZeroBytes(shareBytes)
	return kdf.Sum256(s, []byte(kind.Tag()), epoch, idb[:], shareBytes), nil
}

// TokenCommitment returns H256(token), the value published in the ledger.
func TokenCommitment(s kdf.Suite, token []byte) []byte {
	return s.H256(token)
}

// TokenPair holds one participant's two tokens. Tokens are secrets.
type TokenPair struct {
	ID      int
	Approve []byte
	Veto    []byte
}

// Token returns the token of the given kind.
func (p *TokenPair) Token(kind Kind) []byte {
	if kind == KindVeto {
		return p.Veto
	}
	return p.Approve
}

// Zeroize clears both tokens.
func (p *TokenPair) Zeroize() {
	dkg.ZeroBytes(p.Approve)
	dkg.ZeroBytes(p.Veto)
}
