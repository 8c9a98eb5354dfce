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

package dkg

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestVerificationError(t *testing.T) {
	err := &VerificationError{Complaints: []Complaint{
		{Dealer: 2, Recipient: 1},
		{Dealer: 2, Recipient: 3},
		{Dealer: 4, Recipient: 1},
	}}

	t.Run("message_names_pairs", func(t *testing.T) {
		msg := err.Error()
		if !strings.Contains(msg, "dealer 2 -> recipient 3") {
			t.Errorf("Error message should name the pair, got: %s", msg)
		}
		if !strings.Contains(msg, "dealer 4 -> recipient 1") {
			t.Errorf("Error message should name the pair, got: %s", msg)
		}
	})

	t.Run("is_sentinel", func(t *testing.T) {
		if !errors.Is(err, ErrVerificationFailed) {
			t.Error("Expected errors.Is to match ErrVerificationFailed")
		}
		var target *VerificationError
		if !errors.As(errors.Wrap(err, "wrapped"), &target) {
			t.Fatal("Expected errors.As to find VerificationError")
		}
		if len(target.Complaints) != 3 {
			t.Errorf("Expected 3 complaints, got %d", len(target.Complaints))
		}
	})

	t.Run("distinct_dealers", func(t *testing.T) {
		dealers := err.Dealers()
		if len(dealers) != 2 || dealers[0] != 2 || dealers[1] != 4 {
			t.Errorf("Unexpected dealers %v", dealers)
		}
	})
}

func TestQuorumError(t *testing.T) {
	err := NewQuorumError(2, 3)
	if !errors.Is(err, ErrInsufficientQuorum) {
		t.Error("Expected errors.Is to match ErrInsufficientQuorum")
	}
	if !strings.Contains(err.Error(), "have 2, need 3") {
		t.Errorf("Unexpected message: %s", err.Error())
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr error
	}{
		{"valid", Params{N: 5, T: 3}, nil},
		{"t_equals_one", Params{N: 3, T: 1}, nil},
		{"t_equals_n", Params{N: 4, T: 4}, nil},
		{"zero_n", Params{N: 0, T: 0}, ErrInvalidParticipantCount},
		{"too_many", Params{N: MaxParticipants + 1, T: 2}, ErrInvalidParticipantCount},
		{"zero_t", Params{N: 3, T: 0}, ErrInvalidThreshold},
		{"t_above_n", Params{N: 3, T: 4}, ErrInvalidThreshold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
