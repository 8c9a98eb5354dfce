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

// Package codec encodes engine artifacts (commitments, shares, key share
// files, ciphertexts, partial decryptions, ledgers and proofs) for storage
// or for whatever transport the caller runs between parties.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
	"go.mongodb.org/mongo-driver/bson"
	"gopkg.in/yaml.v3"
)

// Supported codecs.
const (
	JSON    = "json"
	MsgPack = "msgpack"
	CBOR    = "cbor"
	YAML    = "yaml"
	BSON    = "bson"
	TOML    = "toml"
)

// Codecs lists the supported codec names.
var Codecs = []string{JSON, MsgPack, CBOR, YAML, BSON, TOML}

// SerializerError represents a serialization or deserialization error.
type SerializerError struct {
	Operation string
	CodecType string
	Err       error
}

// Error implements the error interface.
func (e *SerializerError) Error() string {
	return fmt.Sprintf("serializer: %s failed for codec %s: %v", e.Operation, e.CodecType, e.Err)
}

// Unwrap returns the underlying error.
func (e *SerializerError) Unwrap() error {
	return e.Err
}

// Serializer encodes and decodes messages with one codec.
type Serializer struct {
	codecType string
}

// NewSerializer creates a serializer for codecType.
func NewSerializer(codecType string) (*Serializer, error) {
	switch codecType {
	case JSON, MsgPack, CBOR, YAML, BSON, TOML:
		return &Serializer{
			codecType: codecType,
		}, nil
	default:
		return nil, &SerializerError{
			Operation: "create",
			CodecType: codecType,
			Err:       fmt.Errorf("unsupported codec type: %s", codecType),
		}
	}
}

// ForPath returns the serializer matching a file extension. Unknown
// extensions fall back to JSON.
func ForPath(path string) *Serializer {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "yaml", "yml":
		return &Serializer{codecType: YAML}
	case "msgpack", "mp":
		return &Serializer{codecType: MsgPack}
	case "cbor":
		return &Serializer{codecType: CBOR}
	case "bson":
		return &Serializer{codecType: BSON}
	case "toml":
		return &Serializer{codecType: TOML}
	default:
		return &Serializer{codecType: JSON}
	}
}

// Codec returns the codec name.
func (s *Serializer) Codec() string {
	return s.codecType
}

// Marshal encodes msg.
func (s *Serializer) Marshal(msg any) ([]byte, error) {
	var data []byte
	var err error

	switch s.codecType {
	case JSON:
		data, err = json.MarshalIndent(msg, "", "  ")
	case MsgPack:
		data, err = msgpack.Marshal(msg)
	case CBOR:
		data, err = cbor.Marshal(msg)
	case YAML:
		data, err = yaml.Marshal(msg)
	case BSON:
		data, err = bson.Marshal(msg)
	case TOML:
		buf := new(bytes.Buffer)
		err = toml.NewEncoder(buf).Encode(msg)
		data = buf.Bytes()
	default:
		return nil, &SerializerError{
			Operation: "marshal",
			CodecType: s.codecType,
			Err:       fmt.Errorf("unsupported codec type: %s", s.codecType),
		}
	}

	if err != nil {
		return nil, &SerializerError{
			Operation: "marshal",
			CodecType: s.codecType,
			Err:       err,
		}
	}
	return data, nil
}

// Unmarshal decodes data into msg.
func (s *Serializer) Unmarshal(data []byte, msg any) error {
	var err error

	switch s.codecType {
	case JSON:
		err = json.Unmarshal(data, msg)
	case MsgPack:
		err = msgpack.Unmarshal(data, msg)
	case CBOR:
		err = cbor.Unmarshal(data, msg)
	case YAML:
		err = yaml.Unmarshal(data, msg)
	case BSON:
		err = bson.Unmarshal(data, msg)
	case TOML:
		err = toml.Unmarshal(data, msg)
	default:
		return &SerializerError{
			Operation: "unmarshal",
			CodecType: s.codecType,
			Err:       fmt.Errorf("unsupported codec type: %s", s.codecType),
		}
	}

	if err != nil {
		return &SerializerError{
			Operation: "unmarshal",
			CodecType: s.codecType,
			Err:       err,
		}
	}
	return nil
}

// MarshalEnvelope wraps msg in an envelope tagged with its type.
func (s *Serializer) MarshalEnvelope(sessionID string, msgType MessageType, senderIdx int, msg any, timestamp int64) ([]byte, error) {
	payload, err := s.Marshal(msg)
	if err != nil {
		return nil, err
	}

	envelope := &Envelope{
		Version:   EnvelopeVersion,
		SessionID: sessionID,
		Type:      msgType,
		SenderIdx: senderIdx,
		Payload:   payload,
		Timestamp: timestamp,
	}
	return s.Marshal(envelope)
}

// UnmarshalEnvelope decodes an envelope without its payload.
func (s *Serializer) UnmarshalEnvelope(data []byte, envelope *Envelope) error {
	if err := s.Unmarshal(data, envelope); err != nil {
		return err
	}
	if envelope.Version != EnvelopeVersion {
		return &SerializerError{
			Operation: "unmarshal",
			CodecType: s.codecType,
			Err:       fmt.Errorf("unsupported envelope version %d", envelope.Version),
		}
	}
	return nil
}

// UnmarshalPayload decodes the envelope payload into msg.
func (s *Serializer) UnmarshalPayload(envelope *Envelope, msg any) error {
	return s.Unmarshal(envelope.Payload, msg)
}

// Open decodes an envelope, checks its type and decodes the payload.
func (s *Serializer) Open(data []byte, want MessageType, msg any) (*Envelope, error) {
	var envelope Envelope
	if err := s.UnmarshalEnvelope(data, &envelope); err != nil {
		return nil, err
	}
	if envelope.Type != want {
		return nil, &SerializerError{
			Operation: "open",
			CodecType: s.codecType,
			Err:       fmt.Errorf("expected %s, got %s", want, envelope.Type),
		}
	}
	if err := s.UnmarshalPayload(&envelope, msg); err != nil {
		return nil, err
	}
	return &envelope, nil
}
