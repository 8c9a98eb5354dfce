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

// Package dkg implements dealerless distributed key generation: a joint
// Feldman VSS in which every participant deals a random polynomial and all
// shares are verified against public commitments before aggregation.
package dkg

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Parameter limits.
const (
	// MinThreshold is the smallest allowed threshold. With t = 1 every
	// participant holds the joint secret itself.
	MinThreshold = 1

	// MinParticipants is the smallest allowed participant count.
	MinParticipants = 1

	// MaxParticipants bounds n so share tables stay a reasonable size and
	// ids fit in 32 bits on the wire.
	MaxParticipants = 65535
)

// Parameter and input validation errors.
var (
	// ErrInvalidParticipantID indicates an id outside the declared roster 1..n.
	ErrInvalidParticipantID = errors.New("dkg: invalid participant id")

	// ErrInvalidThreshold indicates t outside [MinThreshold, n].
	ErrInvalidThreshold = errors.New("dkg: invalid threshold")

	// ErrInvalidParticipantCount indicates n outside [MinParticipants, MaxParticipants].
	ErrInvalidParticipantCount = errors.New("dkg: invalid participant count")

	// ErrInvalidCommitmentLength indicates a commitment with a number of
	// points different from the threshold.
	ErrInvalidCommitmentLength = errors.New("dkg: invalid commitment length")

	// ErrInvalidCommitment indicates a commitment containing a point that
	// is not on the curve.
	ErrInvalidCommitment = errors.New("dkg: invalid commitment")

	// ErrInvalidPolynomial indicates a polynomial without coefficients.
	ErrInvalidPolynomial = errors.New("dkg: invalid polynomial")

	// ErrMismatchedThreshold indicates two commitments of different length.
	ErrMismatchedThreshold = errors.New("dkg: mismatched threshold")

	// ErrDuplicateID indicates the same id appeared twice in an index set.
	ErrDuplicateID = errors.New("dkg: duplicate participant id")

	// ErrZeroScalar indicates a scalar that reduces to zero where a
	// non-zero value is required.
	ErrZeroScalar = errors.New("dkg: zero scalar")
)

// Session state errors.
var (
	// ErrDuplicateCommitment indicates a second commitment from one dealer.
	ErrDuplicateCommitment = errors.New("dkg: duplicate commitment")

	// ErrDuplicateShare indicates a second share for one (dealer, recipient) pair.
	ErrDuplicateShare = errors.New("dkg: duplicate share")

	// ErrRoundIncomplete indicates an attempt to cross a round barrier
	// before every input of the previous round is present.
	ErrRoundIncomplete = errors.New("dkg: round incomplete")

	// ErrSessionFinalized indicates use of a session after Finalize.
	ErrSessionFinalized = errors.New("dkg: session already finalized")

	// ErrSessionAborted indicates a session ended by Abort.
	ErrSessionAborted = errors.New("dkg: session aborted")
)

// Protocol failures.
var (
	// ErrVerificationFailed indicates at least one share failed its Feldman
	// check. The returned error is a *VerificationError naming every
	// offending (dealer, recipient) pair.
	ErrVerificationFailed = errors.New("dkg: share verification failed")

	// ErrInsufficientQuorum indicates fewer contributors than the threshold.
	ErrInsufficientQuorum = errors.New("dkg: insufficient quorum")

	// ErrRepairFailed indicates a repaired share that does not match the
	// public commitments.
	ErrRepairFailed = errors.New("dkg: repaired share does not match commitments")
)

// Complaint names a share that failed verification.
type Complaint struct {
	Dealer    int
	Recipient int
}

func (c Complaint) String() string {
	return fmt.Sprintf("dealer %d -> recipient %d", c.Dealer, c.Recipient)
}

// VerificationError lists every complaint raised by a verification pass.
type VerificationError struct {
	Complaints []Complaint
}

func (e *VerificationError) Error() string {
	parts := make([]string, len(e.Complaints))
	for i, c := range e.Complaints {
		parts[i] = c.String()
	}
	return fmt.Sprintf("dkg: share verification failed: %s", strings.Join(parts, ", "))
}

func (e *VerificationError) Is(target error) bool {
	return target == ErrVerificationFailed
}

// Dealers returns the distinct dealers named by the complaints.
func (e *VerificationError) Dealers() []int {
	seen := make(map[int]bool)
	var out []int
	for _, c := range e.Complaints {
		if !seen[c.Dealer] {
			seen[c.Dealer] = true
			out = append(out, c.Dealer)
		}
	}
	return out
}

// QuorumError reports how many contributors were available and how many the
// threshold requires.
type QuorumError struct {
	Have int
	Need int
}

func (e *QuorumError) Error() string {
	return fmt.Sprintf("dkg: insufficient quorum: have %d, need %d", e.Have, e.Need)
}

func (e *QuorumError) Is(target error) bool {
	return target == ErrInsufficientQuorum
}

// NewQuorumError returns a *QuorumError.
func NewQuorumError(have, need int) *QuorumError {
	return &QuorumError{Have: have, Need: need}
}
