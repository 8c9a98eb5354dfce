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

import (
	"errors"
	"testing"
	"time"
)

func TestNewSerializer_ValidCodecs(t *testing.T) {
	for _, codec := range Codecs {
		t.Run(codec, func(t *testing.T) {
			s, err := NewSerializer(codec)
			if err != nil {
				t.Fatalf("expected no error for codec %s, got: %v", codec, err)
			}
			if s.Codec() != codec {
				t.Errorf("expected codec %s, got %s", codec, s.Codec())
			}
		})
	}
}

func TestNewSerializer_InvalidCodec(t *testing.T) {
	s, err := NewSerializer("invalid")
	if err == nil {
		t.Fatal("expected error for invalid codec, got nil")
	}
	if s != nil {
		t.Errorf("expected nil serializer, got %v", s)
	}

	var serErr *SerializerError
	if !errors.As(err, &serErr) {
		t.Fatalf("expected SerializerError, got %T", err)
	}
	if serErr.Operation != "create" {
		t.Errorf("expected operation 'create', got %s", serErr.Operation)
	}
	if serErr.CodecType != "invalid" {
		t.Errorf("expected codecType 'invalid', got %s", serErr.CodecType)
	}
}

func TestForPath(t *testing.T) {
	tests := map[string]string{
		"share.json":    JSON,
		"policy.yaml":   YAML,
		"policy.YML":    YAML,
		"partial.cbor":  CBOR,
		"ct.msgpack":    MsgPack,
		"ledger.bson":   BSON,
		"config.toml":   TOML,
		"no-extension":  JSON,
		"weird.unknown": JSON,
	}
	for path, want := range tests {
		if got := ForPath(path).Codec(); got != want {
			t.Errorf("ForPath(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestSerializer_Envelope(t *testing.T) {
	msg := &PartialMessage{ID: 3, Quorum: []int{1, 3, 4}, Point: "abcd"}
	timestamp := time.Now().Unix()

	for _, codec := range []string{JSON, MsgPack, CBOR, BSON} {
		t.Run(codec, func(t *testing.T) {
			s, err := NewSerializer(codec)
			if err != nil {
				t.Fatalf("failed to create serializer: %v", err)
			}

			data, err := s.MarshalEnvelope("session-123", MsgTypePartial, 3, msg, timestamp)
			if err != nil {
				t.Fatalf("MarshalEnvelope failed: %v", err)
			}

			var decoded PartialMessage
			envelope, err := s.Open(data, MsgTypePartial, &decoded)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			if envelope.SessionID != "session-123" {
				t.Errorf("expected SessionID 'session-123', got %s", envelope.SessionID)
			}
			if envelope.SenderIdx != 3 {
				t.Errorf("expected SenderIdx 3, got %d", envelope.SenderIdx)
			}
			if envelope.Timestamp != timestamp {
				t.Errorf("expected Timestamp %d, got %d", timestamp, envelope.Timestamp)
			}
			if decoded.ID != 3 || decoded.Point != "abcd" || len(decoded.Quorum) != 3 {
				t.Errorf("unexpected payload %+v", decoded)
			}

			if _, err := s.Open(data, MsgTypeLedger, &decoded); err == nil {
				t.Error("expected type mismatch error")
			}
		})
	}
}

func TestSerializer_EnvelopeVersion(t *testing.T) {
	s, err := NewSerializer(JSON)
	if err != nil {
		t.Fatalf("failed to create serializer: %v", err)
	}
	data, err := s.Marshal(&Envelope{Version: 99, Type: MsgTypeError})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var envelope Envelope
	err = s.UnmarshalEnvelope(data, &envelope)
	var serErr *SerializerError
	if !errors.As(err, &serErr) {
		t.Fatalf("expected SerializerError, got %v", err)
	}
}

func TestSerializer_Unmarshal_InvalidData(t *testing.T) {
	s, err := NewSerializer(JSON)
	if err != nil {
		t.Fatalf("failed to create serializer: %v", err)
	}

	var msg ShareMessage
	err = s.Unmarshal([]byte("invalid json data"), &msg)
	if err == nil {
		t.Fatal("expected error for invalid data, got nil")
	}

	var serErr *SerializerError
	if !errors.As(err, &serErr) {
		t.Fatalf("expected SerializerError, got %T", err)
	}
	if serErr.Operation != "unmarshal" {
		t.Errorf("expected operation 'unmarshal', got %s", serErr.Operation)
	}
}

func TestSerializerError(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &SerializerError{
		Operation: "test-op",
		CodecType: "test-codec",
		Err:       underlying,
	}

	expected := "serializer: test-op failed for codec test-codec: underlying error"
	if err.Error() != expected {
		t.Errorf("expected error message '%s', got '%s'", expected, err.Error())
	}
	if !errors.Is(err, underlying) {
		t.Error("expected unwrapped error to be underlying error")
	}
}

func TestMessageType_String(t *testing.T) {
	if MsgTypeKeyShare.String() != "key-share" {
		t.Errorf("unexpected name %s", MsgTypeKeyShare)
	}
	if MessageType(200).String() != "unknown" {
		t.Errorf("unexpected name %s", MessageType(200))
	}
}
