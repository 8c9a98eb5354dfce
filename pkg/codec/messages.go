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

package codec

// EnvelopeVersion is the current envelope format.
const EnvelopeVersion = 1

// MessageType identifies the artifact carried in an envelope.
type MessageType uint8

const (
	MsgTypeCommitment MessageType = 1 // Round 1 broadcast
	MsgTypeShare      MessageType = 2 // Round 2 dealer-to-recipient share
	MsgTypeComplaint  MessageType = 3 // Failed share verification
	MsgTypeKeyShare   MessageType = 4 // Participant key share file
	MsgTypeCiphertext MessageType = 5 // ECIES ciphertext
	MsgTypePartial    MessageType = 6 // Partial decryption
	MsgTypeLedger     MessageType = 7 // Published token ledger
	MsgTypeToken      MessageType = 8 // Participant token bundle
	MsgTypeError      MessageType = 9 // Error message
)

// String returns the message type name.
func (t MessageType) String() string {
	switch t {
	case MsgTypeCommitment:
		return "commitment"
	case MsgTypeShare:
		return "share"
	case MsgTypeComplaint:
		return "complaint"
	case MsgTypeKeyShare:
		return "key-share"
	case MsgTypeCiphertext:
		return "ciphertext"
	case MsgTypePartial:
		return "partial"
	case MsgTypeLedger:
		return "ledger"
	case MsgTypeToken:
		return "token"
	case MsgTypeError:
		return "error"
	default:
		return "unknown"
	}
}

// Envelope wraps every encoded artifact.
type Envelope struct {
	Version   int         `json:"version" msgpack:"version" cbor:"1,keyasint" yaml:"version" bson:"version" toml:"version"`
	SessionID string      `json:"session_id" msgpack:"session_id" cbor:"2,keyasint" yaml:"session_id" bson:"session_id" toml:"session_id"`
	Type      MessageType `json:"type" msgpack:"type" cbor:"3,keyasint" yaml:"type" bson:"type" toml:"type"`
	SenderIdx int         `json:"sender_idx" msgpack:"sender_idx" cbor:"4,keyasint" yaml:"sender_idx" bson:"sender_idx" toml:"sender_idx"`
	Payload   []byte      `json:"payload" msgpack:"payload" cbor:"5,keyasint" yaml:"payload" bson:"payload" toml:"payload"`
	Timestamp int64       `json:"timestamp" msgpack:"timestamp" cbor:"6,keyasint" yaml:"timestamp" bson:"timestamp" toml:"timestamp"`
}

// CommitmentMessage is a dealer's round 1 broadcast. Points are hex
// encoded fixed-length curve points.
type CommitmentMessage struct {
	Curve  string   `json:"curve" msgpack:"curve" cbor:"1,keyasint" yaml:"curve" bson:"curve" toml:"curve"`
	Dealer int      `json:"dealer" msgpack:"dealer" cbor:"2,keyasint" yaml:"dealer" bson:"dealer" toml:"dealer"`
	Points []string `json:"points" msgpack:"points" cbor:"3,keyasint" yaml:"points" bson:"points" toml:"points"`
}

// ShareMessage is a round 2 share from a dealer to one recipient.
type ShareMessage struct {
	Dealer    int    `json:"dealer" msgpack:"dealer" cbor:"1,keyasint" yaml:"dealer" bson:"dealer" toml:"dealer"`
	Recipient int    `json:"recipient" msgpack:"recipient" cbor:"2,keyasint" yaml:"recipient" bson:"recipient" toml:"recipient"`
	Share     string `json:"share" msgpack:"share" cbor:"3,keyasint" yaml:"share" bson:"share" toml:"share"`
}

// ComplaintMessage names every dealer whose share failed verification.
type ComplaintMessage struct {
	Complaints []ComplaintEntry `json:"complaints" msgpack:"complaints" cbor:"1,keyasint" yaml:"complaints" bson:"complaints" toml:"complaints"`
}

// ComplaintEntry is one failed (dealer, recipient) check.
type ComplaintEntry struct {
	Dealer    int `json:"dealer" msgpack:"dealer" cbor:"1,keyasint" yaml:"dealer" bson:"dealer" toml:"dealer"`
	Recipient int `json:"recipient" msgpack:"recipient" cbor:"2,keyasint" yaml:"recipient" bson:"recipient" toml:"recipient"`
}

// KeyShareFile is what one participant keeps after key generation.
type KeyShareFile struct {
	Curve       string              `json:"curve" msgpack:"curve" cbor:"1,keyasint" yaml:"curve" bson:"curve" toml:"curve"`
	Suite       string              `json:"suite" msgpack:"suite" cbor:"2,keyasint" yaml:"suite" bson:"suite" toml:"suite"`
	SessionID   string              `json:"session_id" msgpack:"session_id" cbor:"3,keyasint" yaml:"session_id" bson:"session_id" toml:"session_id"`
	ID          int                 `json:"id" msgpack:"id" cbor:"4,keyasint" yaml:"id" bson:"id" toml:"id"`
	N           int                 `json:"n" msgpack:"n" cbor:"5,keyasint" yaml:"n" bson:"n" toml:"n"`
	T           int                 `json:"t" msgpack:"t" cbor:"6,keyasint" yaml:"t" bson:"t" toml:"t"`
	Share       string              `json:"share" msgpack:"share" cbor:"7,keyasint" yaml:"share" bson:"share" toml:"share"`
	PublicKey   string              `json:"public_key" msgpack:"public_key" cbor:"8,keyasint" yaml:"public_key" bson:"public_key" toml:"public_key"`
	PublicShare string              `json:"public_share" msgpack:"public_share" cbor:"9,keyasint" yaml:"public_share" bson:"public_share" toml:"public_share"`
	Commitments []CommitmentMessage `json:"commitments" msgpack:"commitments" cbor:"10,keyasint" yaml:"commitments" bson:"commitments" toml:"commitments"`
}

// CiphertextMessage is an ECIES ciphertext with its associated data.
type CiphertextMessage struct {
	Curve string `json:"curve" msgpack:"curve" cbor:"1,keyasint" yaml:"curve" bson:"curve" toml:"curve"`
	Suite string `json:"suite" msgpack:"suite" cbor:"2,keyasint" yaml:"suite" bson:"suite" toml:"suite"`
	R     string `json:"r" msgpack:"r" cbor:"3,keyasint" yaml:"r" bson:"r" toml:"r"`
	CT    string `json:"ct" msgpack:"ct" cbor:"4,keyasint" yaml:"ct" bson:"ct" toml:"ct"`
	Tag   string `json:"tag" msgpack:"tag" cbor:"5,keyasint" yaml:"tag" bson:"tag" toml:"tag"`
	AAD   string `json:"aad,omitempty" msgpack:"aad,omitempty" cbor:"6,keyasint,omitempty" yaml:"aad,omitempty" bson:"aad,omitempty" toml:"aad,omitempty"`
}

// PartialMessage is one participant's partial decryption.
type PartialMessage struct {
	ID     int    `json:"id" msgpack:"id" cbor:"1,keyasint" yaml:"id" bson:"id" toml:"id"`
	Quorum []int  `json:"quorum" msgpack:"quorum" cbor:"2,keyasint" yaml:"quorum" bson:"quorum" toml:"quorum"`
	Point  string `json:"point" msgpack:"point" cbor:"3,keyasint" yaml:"point" bson:"point" toml:"point"`
}

// LedgerMessage is a published token ledger.
type LedgerMessage struct {
	Suite   string         `json:"suite" msgpack:"suite" cbor:"1,keyasint" yaml:"suite" bson:"suite" toml:"suite"`
	Epoch   string         `json:"epoch" msgpack:"epoch" cbor:"2,keyasint" yaml:"epoch" bson:"epoch" toml:"epoch"`
	Root    string         `json:"root" msgpack:"root" cbor:"3,keyasint" yaml:"root" bson:"root" toml:"root"`
	Entries []EntryMessage `json:"entries" msgpack:"entries" cbor:"4,keyasint" yaml:"entries" bson:"entries" toml:"entries"`
}

// EntryMessage is one ledger leaf.
type EntryMessage struct {
	ID         int    `json:"id" msgpack:"id" cbor:"1,keyasint" yaml:"id" bson:"id" toml:"id"`
	Kind       string `json:"kind" msgpack:"kind" cbor:"2,keyasint" yaml:"kind" bson:"kind" toml:"kind"`
	Commitment string `json:"commitment" msgpack:"commitment" cbor:"3,keyasint" yaml:"commitment" bson:"commitment" toml:"commitment"`
}

// ProofMessage is a Merkle path from a token leaf to the ledger root.
type ProofMessage struct {
	ID    int           `json:"id" msgpack:"id" cbor:"1,keyasint" yaml:"id" bson:"id" toml:"id"`
	Kind  string        `json:"kind" msgpack:"kind" cbor:"2,keyasint" yaml:"kind" bson:"kind" toml:"kind"`
	Steps []StepMessage `json:"steps" msgpack:"steps" cbor:"3,keyasint" yaml:"steps" bson:"steps" toml:"steps"`
}

// StepMessage is one proof step.
type StepMessage struct {
	Sibling   string `json:"sibling" msgpack:"sibling" cbor:"1,keyasint" yaml:"sibling" bson:"sibling" toml:"sibling"`
	Direction string `json:"direction" msgpack:"direction" cbor:"2,keyasint" yaml:"direction" bson:"direction" toml:"direction"`
}

// TokenMessage bundles a participant's tokens with their proofs.
type TokenMessage struct {
	ID           int          `json:"id" msgpack:"id" cbor:"1,keyasint" yaml:"id" bson:"id" toml:"id"`
	Epoch        string       `json:"epoch" msgpack:"epoch" cbor:"2,keyasint" yaml:"epoch" bson:"epoch" toml:"epoch"`
	Root         string       `json:"root" msgpack:"root" cbor:"3,keyasint" yaml:"root" bson:"root" toml:"root"`
	Approve      string       `json:"approve" msgpack:"approve" cbor:"4,keyasint" yaml:"approve" bson:"approve" toml:"approve"`
	Veto         string       `json:"veto" msgpack:"veto" cbor:"5,keyasint" yaml:"veto" bson:"veto" toml:"veto"`
	ApproveProof ProofMessage `json:"approve_proof" msgpack:"approve_proof" cbor:"6,keyasint" yaml:"approve_proof" bson:"approve_proof" toml:"approve_proof"`
	VetoProof    ProofMessage `json:"veto_proof" msgpack:"veto_proof" cbor:"7,keyasint" yaml:"veto_proof" bson:"veto_proof" toml:"veto_proof"`
}

// ErrorMessage reports a failure to a peer.
type ErrorMessage struct {
	Code    int    `json:"code" msgpack:"code" cbor:"1,keyasint" yaml:"code" bson:"code" toml:"code"`
	Message string `json:"message" msgpack:"message" cbor:"2,keyasint" yaml:"message" bson:"message" toml:"message"`
}
