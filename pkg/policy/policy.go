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

package policy

import (
	"io"
	"math/big"

	"github.com/jeremyhahn/go-thresholdkms/pkg/curve"
	"github.com/jeremyhahn/go-thresholdkms/pkg/dkg"
	"github.com/jeremyhahn/go-thresholdkms/pkg/kdf"
	"github.com/jeremyhahn/go-thresholdkms/pkg/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Group is the per-group state after setup.
type Group struct {
	Name string

	// Index is the group's participant id in the outer DKG.
	Index int

	Members        []int
	InnerThreshold int
	Weight         int

	// Commitment is the Feldman commitment of the inner dealing. Its
	// constant term equals y_g*G, the group's outer public share.
	Commitment *dkg.Commitment

	shares map[int]*big.Int
}

// MemberShare returns a copy of a member's inner share.
func (g *Group) MemberShare(id int) (*big.Int, error) {
	s, ok := g.shares[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotMember, "%d in group %q", id, g.Name)
	}
	return new(big.Int).Set(s), nil
}

// Policy is a configured hierarchical threshold structure.
type Policy struct {
	curve   *curve.Curve
	suite   kdf.Suite
	config  Config
	logger  *zap.Logger
	metrics *metrics.Collector

	outerKey         *curve.Point
	outerCommitments map[int]*dkg.Commitment
	groups           map[string]*Group
	byIndex          map[int]*Group
}

// Option configures Setup.
type Option func(*Policy)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Policy) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(p *Policy) {
		p.metrics = m
	}
}

// Setup runs the outer DKG across groups and the inner dealing inside each
// group. Group-level outer shares are zeroized once redistributed.
func Setup(c *curve.Curve, suite kdf.Suite, cfg Config, r io.Reader, opts ...Option) (*Policy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if suite == nil {
		suite = kdf.Default()
	}
	p := &Policy{
		curve:   c,
		suite:   suite,
		config:  cfg,
		logger:  zap.NewNop(),
		groups:  make(map[string]*Group, len(cfg.Groups)),
		byIndex: make(map[int]*Group, len(cfg.Groups)),
	}
	for _, opt := range opts {
		opt(p)
	}

	names := cfg.GroupNames()
	outer, err := dkg.Run(c, dkg.Params{N: len(names), T: cfg.OuterThreshold}, r,
		dkg.WithLogger(p.logger.Named("outer")), dkg.WithMetrics(p.metrics))
	if err != nil {
		return nil, errors.Wrap(err, "policy: outer key generation")
	}
	defer outer.Zeroize()

	p.outerKey = outer.PublicKey.Copy()
	p.outerCommitments = outer.Commitments

	for i, name := range names {
		index := i + 1
		members := append([]int(nil), cfg.Groups[name]...)
		tIn := cfg.InnerThresholdOf(name)

		dealing, err := dkg.Deal(c, outer.Shares[index], tIn, members, r)
		if err != nil {
			return nil, errors.Wrapf(err, "policy: group %q dealing", name)
		}
		if cfg.VerifyInnerShares {
			if bad := dealing.VerifyAll(c); len(bad) > 0 {
				return nil, errors.Wrapf(ErrInnerShareInvalid, "group %q members %v", name, bad)
			}
		}

		g := &Group{
			Name:           name,
			Index:          index,
			Members:        members,
			InnerThreshold: tIn,
			Weight:         cfg.GroupWeight(name),
			Commitment:     dealing.Commitment,
			shares:         dealing.Shares,
		}
		p.groups[name] = g
		p.byIndex[index] = g
	}

	p.logger.Info("policy setup complete",
		zap.Int("groups", len(names)),
		zap.Int("outer_threshold", cfg.OuterThreshold),
		zap.String("veto_group", cfg.VetoGroup),
		zap.Bool("verify_inner_shares", cfg.VerifyInnerShares))
	return p, nil
}

// Config returns the configuration the policy was built from.
func (p *Policy) Config() Config {
	return p.config
}

// Group returns the state of a named group.
func (p *Policy) Group(name string) (*Group, error) {
	g, ok := p.groups[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownGroup, "%q", name)
	}
	return g, nil
}

// OuterPublicKey returns s*G for the outer joint secret s.
func (p *Policy) OuterPublicKey() *curve.Point {
	return p.outerKey.Copy()
}

// GroupPublicShare returns y_g*G for a group, derived from the outer DKG
// commitments.
func (p *Policy) GroupPublicShare(name string) (*curve.Point, error) {
	g, err := p.Group(name)
	if err != nil {
		return nil, err
	}
	acc := curve.Infinity()
	for _, dealer := range dkg.SortedIDs(p.outerCommitments) {
		ps, err := p.outerCommitments[dealer].Pubshare(p.curve, g.Index)
		if err != nil {
			return nil, err
		}
		acc = p.curve.Add(acc, ps)
	}
	return acc, nil
}

// VerifyMemberShare checks a member's inner share against the group's
// dealing commitment and that the commitment binds the group's verified
// outer share.
func (p *Policy) VerifyMemberShare(name string, id int, share *big.Int) (bool, error) {
	g, err := p.Group(name)
	if err != nil {
		return false, err
	}
	expected, err := p.GroupPublicShare(name)
	if err != nil {
		return false, err
	}
	if !g.Commitment.CommitmentToSecret().Equal(expected) {
		return false, nil
	}
	return g.Commitment.Verify(p.curve, id, share), nil
}

// BasePoint derives the evaluation base B_j from the epoch, index j and aad
// with hash-to-curve.
func (p *Policy) BasePoint(j uint32, aad []byte) (*curve.Point, error) {
	return p.curve.HashToCurve(p.suite, []byte(p.config.Epoch), j, aad)
}

// GroupContribution reconstructs y_g*B from at least t_in members of the
// group: sum over members of lambda_in(member) * share(member) * B. The
// outer weight lambda_out(group) depends on which groups participate and is
// applied by CombineGroups.
func (p *Policy) GroupContribution(name string, members []int, base *curve.Point) (*curve.Point, error) {
	g, err := p.Group(name)
	if err != nil {
		return nil, err
	}
	if len(members) < g.InnerThreshold {
		return nil, errors.Wrapf(dkg.NewQuorumError(len(members), g.InnerThreshold), "group %q", name)
	}
	partials := make(map[int]*curve.Point, len(members))
	for _, id := range members {
		if _, dup := partials[id]; dup {
			return nil, errors.Wrapf(dkg.ErrDuplicateID, "group %q member %d", name, id)
		}
		share, ok := g.shares[id]
		if !ok {
			return nil, errors.Wrapf(ErrNotMember, "%d in group %q", id, name)
		}
		partials[id] = p.curve.ScalarMult(base, share)
	}
	return dkg.InterpolatePoints(p.curve, partials)
}

// CombineGroups applies lambda_out over the participating groups and sums
// the weighted contributions. It fails with ErrMissingMandatoryGroup when a
// veto group is configured and absent, before any quorum or weight
// consideration.
func (p *Policy) CombineGroups(contributions map[string]*curve.Point) (*curve.Point, error) {
	if v := p.config.VetoGroup; v != "" {
		if _, ok := contributions[v]; !ok {
			return nil, errors.Wrapf(ErrMissingMandatoryGroup, "%q", v)
		}
	}
	if len(contributions) < p.config.OuterThreshold {
		return nil, dkg.NewQuorumError(len(contributions), p.config.OuterThreshold)
	}
	byIndex := make(map[int]*curve.Point, len(contributions))
	for name, pt := range contributions {
		g, err := p.Group(name)
		if err != nil {
			return nil, err
		}
		byIndex[g.Index] = pt
	}
	return dkg.InterpolatePoints(p.curve, byIndex)
}

// EvaluateAt evaluates the policy at an explicit base point with the given
// members per participating group.
func (p *Policy) EvaluateAt(base *curve.Point, quorum map[string][]int) (*curve.Point, error) {
	if v := p.config.VetoGroup; v != "" {
		if _, ok := quorum[v]; !ok {
			p.metrics.RecordEvaluation(metrics.OutcomeMissingMandatory)
			return nil, errors.Wrapf(ErrMissingMandatoryGroup, "%q", v)
		}
	}
	contributions := make(map[string]*curve.Point, len(quorum))
	for name, members := range quorum {
		pt, err := p.GroupContribution(name, members, base)
		if err != nil {
			p.metrics.RecordEvaluation(outcomeOf(err))
			return nil, err
		}
		contributions[name] = pt
	}
	out, err := p.CombineGroups(contributions)
	if err != nil {
		p.metrics.RecordEvaluation(outcomeOf(err))
		return nil, err
	}
	p.metrics.RecordEvaluation(metrics.OutcomeSuccess)
	return out, nil
}

// Evaluate derives B_j and evaluates the policy there. The result equals
// s*B_j for the outer joint secret s.
func (p *Policy) Evaluate(j uint32, aad []byte, quorum map[string][]int) (*curve.Point, error) {
	base, err := p.BasePoint(j, aad)
	if err != nil {
		return nil, err
	}
	return p.EvaluateAt(base, quorum)
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrMissingMandatoryGroup):
		return metrics.OutcomeMissingMandatory
	case errors.Is(err, dkg.ErrInsufficientQuorum):
		return metrics.OutcomeQuorum
	default:
		return metrics.OutcomeError
	}
}
