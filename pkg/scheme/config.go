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

package scheme

import (
	"github.com/jeremyhahn/go-thresholdkms/pkg/curve"
	"github.com/jeremyhahn/go-thresholdkms/pkg/dkg"
	"github.com/jeremyhahn/go-thresholdkms/pkg/kdf"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidConfig indicates an unusable scheme configuration.
	ErrInvalidConfig = errors.New("scheme: invalid configuration")

	// ErrNoKeys indicates an operation that needs GenerateKeys first.
	ErrNoKeys = errors.New("scheme: keys not generated")

	// ErrNoPolicy indicates an operation that needs SetupPolicy first.
	ErrNoPolicy = errors.New("scheme: policy not configured")

	// ErrNoLedger indicates an operation that needs IssueTokens first.
	ErrNoLedger = errors.New("scheme: tokens not issued")

	// ErrRecoveryMismatch indicates a reconstructed secret whose public
	// point is not the group key.
	ErrRecoveryMismatch = errors.New("scheme: recovered key does not match public key")
)

// Config selects the curve, hash suite and threshold parameters.
type Config struct {
	Curve        string `json:"curve" yaml:"curve" mapstructure:"curve"`
	Suite        string `json:"suite" yaml:"suite" mapstructure:"suite"`
	Participants int    `json:"participants" yaml:"participants" mapstructure:"participants"`
	Threshold    int    `json:"threshold" yaml:"threshold" mapstructure:"threshold"`
}

// DefaultConfig returns a 2-of-3 configuration on secp256k1 with SHA-2.
func DefaultConfig() Config {
	return Config{
		Curve:        curve.NameSecp256k1,
		Suite:        kdf.DefaultSuite,
		Participants: 3,
		Threshold:    2,
	}
}

// Params returns the DKG parameters.
func (c Config) Params() dkg.Params {
	return dkg.Params{N: c.Participants, T: c.Threshold}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if _, err := curve.ByName(c.Curve); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if _, err := kdf.Lookup(c.suiteName()); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if err := c.Params().Validate(); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	return nil
}

func (c Config) suiteName() string {
	if c.Suite == "" {
		return kdf.DefaultSuite
	}
	return c.Suite
}
