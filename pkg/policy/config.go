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

// Package policy implements a two-level hierarchical threshold structure:
// an outer DKG in which every group acts as one participant, and inside
// each group a dealing that redistributes the group's outer share among its
// members. Evaluating the policy at a base point B needs t_in members in
// each of at least t_out groups, and always the designated veto group.
package policy

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/jeremyhahn/go-thresholdkms/pkg/dkg"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidConfig indicates an unusable policy configuration.
	ErrInvalidConfig = errors.New("policy: invalid configuration")

	// ErrUnknownGroup indicates a group name not in the configuration.
	ErrUnknownGroup = errors.New("policy: unknown group")

	// ErrNotMember indicates a member id that does not belong to the group
	// it was presented for.
	ErrNotMember = errors.New("policy: not a group member")

	// ErrMissingMandatoryGroup indicates the veto group did not take part
	// in a combination. Weight never compensates for it.
	ErrMissingMandatoryGroup = errors.New("policy: mandatory group missing")

	// ErrInnerShareInvalid indicates a member share that failed its check
	// against the group's dealing commitment.
	ErrInnerShareInvalid = errors.New("policy: inner share verification failed")
)

// Config describes groups, thresholds and weights. Member ids are
// participant ids of the main key generation and must be unique across
// groups.
type Config struct {
	// Groups maps group name to member ids.
	Groups map[string][]int `json:"groups" msgpack:"groups" cbor:"groups" yaml:"groups" bson:"groups" toml:"groups" mapstructure:"groups"`

	// OuterThreshold is t_out, the number of groups needed.
	OuterThreshold int `json:"outer_threshold" msgpack:"outer_threshold" cbor:"outer_threshold" yaml:"outer_threshold" bson:"outer_threshold" toml:"outer_threshold" mapstructure:"outer_threshold"`

	// InnerThreshold is the default t_in for groups without an entry in
	// InnerThresholds.
	InnerThreshold int `json:"inner_threshold" msgpack:"inner_threshold" cbor:"inner_threshold" yaml:"inner_threshold" bson:"inner_threshold" toml:"inner_threshold" mapstructure:"inner_threshold"`

	// InnerThresholds overrides t_in per group.
	InnerThresholds map[string]int `json:"inner_thresholds,omitempty" msgpack:"inner_thresholds,omitempty" cbor:"inner_thresholds,omitempty" yaml:"inner_thresholds,omitempty" bson:"inner_thresholds,omitempty" toml:"inner_thresholds,omitempty" mapstructure:"inner_thresholds"`

	// GroupWeights assigns an approval weight per group (default 1).
	GroupWeights map[string]int `json:"group_weights,omitempty" msgpack:"group_weights,omitempty" cbor:"group_weights,omitempty" yaml:"group_weights,omitempty" bson:"group_weights,omitempty" toml:"group_weights,omitempty" mapstructure:"group_weights"`

	// VetoWeights assigns a veto weight per participant, keyed by the
	// decimal participant id (default 1).
	VetoWeights map[string]int `json:"veto_weights,omitempty" msgpack:"veto_weights,omitempty" cbor:"veto_weights,omitempty" yaml:"veto_weights,omitempty" bson:"veto_weights,omitempty" toml:"veto_weights,omitempty" mapstructure:"veto_weights"`

	// VetoGroup names the group whose participation is mandatory.
	VetoGroup string `json:"veto_group,omitempty" msgpack:"veto_group,omitempty" cbor:"veto_group,omitempty" yaml:"veto_group,omitempty" bson:"veto_group,omitempty" toml:"veto_group,omitempty" mapstructure:"veto_group"`

	// RequiredWeight is the approving group weight needed for recovery.
	// Zero means OuterThreshold.
	RequiredWeight int `json:"required_weight,omitempty" msgpack:"required_weight,omitempty" cbor:"required_weight,omitempty" yaml:"required_weight,omitempty" bson:"required_weight,omitempty" toml:"required_weight,omitempty" mapstructure:"required_weight"`

	// VetoThreshold is the veto weight that blocks recovery. Zero disables
	// vetoes.
	VetoThreshold int `json:"veto_threshold,omitempty" msgpack:"veto_threshold,omitempty" cbor:"veto_threshold,omitempty" yaml:"veto_threshold,omitempty" bson:"veto_threshold,omitempty" toml:"veto_threshold,omitempty" mapstructure:"veto_threshold"`

	// Epoch domain-separates evaluation points and tokens.
	Epoch string `json:"epoch" msgpack:"epoch" cbor:"epoch" yaml:"epoch" bson:"epoch" toml:"epoch" mapstructure:"epoch"`

	// VerifyInnerShares makes every member check its share against the
	// group dealer's Feldman commitment. When false, members trust their
	// group as dealer and only the outer layer is verified.
	VerifyInnerShares bool `json:"verify_inner_shares" msgpack:"verify_inner_shares" cbor:"verify_inner_shares" yaml:"verify_inner_shares" bson:"verify_inner_shares" toml:"verify_inner_shares" mapstructure:"verify_inner_shares"`
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c == nil || len(c.Groups) == 0 {
		return errors.Wrap(ErrInvalidConfig, "no groups")
	}
	if len(c.Groups) > dkg.MaxParticipants {
		return errors.Wrap(ErrInvalidConfig, "too many groups")
	}
	if c.OuterThreshold < 1 || c.OuterThreshold > len(c.Groups) {
		return errors.Wrapf(ErrInvalidConfig, "outer threshold %d for %d groups", c.OuterThreshold, len(c.Groups))
	}

	owner := make(map[int]string)
	for _, name := range c.GroupNames() {
		if name == "" {
			return errors.Wrap(ErrInvalidConfig, "empty group name")
		}
		members := c.Groups[name]
		if len(members) == 0 {
			return errors.Wrapf(ErrInvalidConfig, "group %q has no members", name)
		}
		for _, id := range members {
			if id < 1 {
				return errors.Wrapf(ErrInvalidConfig, "group %q: invalid member id %d", name, id)
			}
			if prev, ok := owner[id]; ok {
				return errors.Wrapf(ErrInvalidConfig, "member %d in both %q and %q", id, prev, name)
			}
			owner[id] = name
		}
		tIn := c.InnerThresholdOf(name)
		if tIn < 1 || tIn > len(members) {
			return errors.Wrapf(ErrInvalidConfig, "group %q: inner threshold %d for %d members", name, tIn, len(members))
		}
		if w, ok := c.GroupWeights[name]; ok && w < 0 {
			return errors.Wrapf(ErrInvalidConfig, "group %q: negative weight", name)
		}
	}
	for name := range c.InnerThresholds {
		if _, ok := c.Groups[name]; !ok {
			return errors.Wrapf(ErrInvalidConfig, "inner threshold for unknown group %q", name)
		}
	}
	for name := range c.GroupWeights {
		if _, ok := c.Groups[name]; !ok {
			return errors.Wrapf(ErrInvalidConfig, "weight for unknown group %q", name)
		}
	}
	for key, w := range c.VetoWeights {
		id, err := strconv.Atoi(key)
		if err != nil || id < 1 || strconv.Itoa(id) != key {
			return errors.Wrapf(ErrInvalidConfig, "veto weight for invalid participant id %q", key)
		}
		if w < 0 {
			return errors.Wrapf(ErrInvalidConfig, "participant %d: negative veto weight", id)
		}
	}
	if c.VetoGroup != "" {
		if _, ok := c.Groups[c.VetoGroup]; !ok {
			return errors.Wrapf(ErrInvalidConfig, "veto group %q is not configured", c.VetoGroup)
		}
	}
	if c.RequiredWeight < 0 || c.VetoThreshold < 0 {
		return errors.Wrap(ErrInvalidConfig, "negative recovery threshold")
	}
	return nil
}

// ValidateRoster checks every member id lies in 1..n.
func (c *Config) ValidateRoster(n int) error {
	for _, name := range c.GroupNames() {
		for _, id := range c.Groups[name] {
			if id < 1 || id > n {
				return errors.Wrapf(ErrInvalidConfig, "group %q: member %d outside 1..%d", name, id, n)
			}
		}
	}
	return nil
}

// GroupNames returns the group names in sorted order. The position in this
// list plus one is the group's outer participant id.
func (c Config) GroupNames() []string {
	names := make([]string, 0, len(c.Groups))
	for name := range c.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InnerThresholdOf returns t_in for a group.
func (c Config) InnerThresholdOf(name string) int {
	if t, ok := c.InnerThresholds[name]; ok {
		return t
	}
	return c.InnerThreshold
}

// GroupOf returns the group a participant belongs to.
func (c Config) GroupOf(id int) (string, bool) {
	for name, members := range c.Groups {
		for _, m := range members {
			if m == id {
				return name, true
			}
		}
	}
	return "", false
}

// GroupWeight returns a group's approval weight.
func (c Config) GroupWeight(name string) int {
	if w, ok := c.GroupWeights[name]; ok {
		return w
	}
	return 1
}

// VetoWeight returns a participant's veto weight.
func (c Config) VetoWeight(id int) int {
	if w, ok := c.VetoWeights[strconv.Itoa(id)]; ok {
		return w
	}
	return 1
}

// EffectiveRequiredWeight returns RequiredWeight, defaulting to t_out.
func (c Config) EffectiveRequiredWeight() int {
	if c.RequiredWeight > 0 {
		return c.RequiredWeight
	}
	return c.OuterThreshold
}

// String summarizes the configuration without member lists.
func (c Config) String() string {
	return fmt.Sprintf("groups=%d t_out=%d veto_group=%q epoch=%q", len(c.Groups), c.OuterThreshold, c.VetoGroup, c.Epoch)
}
