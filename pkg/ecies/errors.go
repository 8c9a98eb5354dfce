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

package ecies

import "github.com/pkg/errors"

var (
	// ErrMACMismatch indicates a ciphertext whose tag does not verify under
	// the combined point. No plaintext is returned.
	ErrMACMismatch = errors.New("ecies: mac mismatch")

	// ErrInvalidCiphertext indicates a malformed ciphertext.
	ErrInvalidCiphertext = errors.New("ecies: invalid ciphertext")

	// ErrInvalidPublicKey indicates a recipient key that is not a valid
	// curve point.
	ErrInvalidPublicKey = errors.New("ecies: invalid public key")

	// ErrInvalidPartial indicates a partial decryption that is not a valid
	// curve point or names an id outside its quorum.
	ErrInvalidPartial = errors.New("ecies: invalid partial decryption")

	// ErrDuplicatePartial indicates two partials from the same participant.
	ErrDuplicatePartial = errors.New("ecies: duplicate partial decryption")

	// ErrQuorumMismatch indicates partials computed for different quorums,
	// or a quorum whose members did not all contribute.
	ErrQuorumMismatch = errors.New("ecies: partials disagree on quorum")
)
