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
	"encoding/hex"
	"math/big"
	"runtime"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jeremyhahn/go-thresholdkms/pkg/curve"
	"github.com/jeremyhahn/go-thresholdkms/pkg/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ShareKey addresses one cell of the share table.
type ShareKey struct {
	Dealer    int
	Recipient int
}

// Session collects the public commitments and the n x n share table of a
// joint Feldman DKG and turns them into a Result once every share has been
// verified.
//
// Round barriers are enforced: shares are accepted only after all n
// commitments are present, and verification or aggregation only run on a
// complete share table.
type Session struct {
	id      uuid.UUID
	curve   *curve.Curve
	params  Params
	logger  *zap.Logger
	metrics *metrics.Collector

	mu          sync.Mutex
	commitments map[int]*Commitment
	shares      map[ShareKey]*big.Int
	done        bool
	result      *Result
	err         error
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. Only public data is logged.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithSessionID overrides the random session id.
func WithSessionID(id uuid.UUID) Option {
	return func(s *Session) {
		s.id = id
	}
}

// NewSession creates an empty session.
func NewSession(c *curve.Curve, params Params, opts ...Option) (*Session, error) {
	if c == nil {
		return nil, errors.New("dkg: curve is required")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		id:          uuid.New(),
		curve:       c,
		params:      params,
		logger:      zap.NewNop(),
		commitments: make(map[int]*Commitment, params.N),
		shares:      make(map[ShareKey]*big.Int, params.N*params.N),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("session", s.id.String()))
	s.metrics.SessionStarted()
	s.logger.Debug("dkg session created", zap.Int("n", params.N), zap.Int("t", params.T))
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Params returns the session parameters.
func (s *Session) Params() Params {
	return s.params
}

// AddCommitment records dealer's round 1 commitment.
func (s *Session) AddCommitment(dealer int, cm *Commitment) error {
	if err := s.params.checkID(dealer); err != nil {
		return err
	}
	if err := cm.Validate(s.curve, s.params.T); err != nil {
		return errors.Wrapf(err, "dealer %d", dealer)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return ErrSessionFinalized
	}
	if _, ok := s.commitments[dealer]; ok {
		return errors.Wrapf(ErrDuplicateCommitment, "dealer %d", dealer)
	}
	s.commitments[dealer] = cm
	return nil
}

// CommitmentsComplete reports whether all n commitments are present.
func (s *Session) CommitmentsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.commitments) == s.params.N
}

// AddShare records the round 2 share from dealer to recipient. It fails
// with ErrRoundIncomplete until every commitment has been added.
func (s *Session) AddShare(dealer, recipient int, share *big.Int) error {
	if err := s.params.checkID(dealer); err != nil {
		return err
	}
	if err := s.params.checkID(recipient); err != nil {
		return err
	}
	if share == nil {
		return errors.Wrapf(ErrZeroScalar, "nil share from %d to %d", dealer, recipient)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return ErrSessionFinalized
	}
	if len(s.commitments) != s.params.N {
		return errors.Wrapf(ErrRoundIncomplete, "have %d of %d commitments", len(s.commitments), s.params.N)
	}
	key := ShareKey{Dealer: dealer, Recipient: recipient}
	if _, ok := s.shares[key]; ok {
		return errors.Wrapf(ErrDuplicateShare, "dealer %d, recipient %d", dealer, recipient)
	}
	s.shares[key] = new(big.Int).Mod(share, s.curve.N)
	return nil
}

// SharesComplete reports whether the share table is full.
func (s *Session) SharesComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.shares) == s.params.N*s.params.N
}

// Verify runs the Feldman check on every cell of the share table and
// returns the complaints sorted by dealer then recipient. An empty list
// means every share verified. It does not modify the session.
func (s *Session) Verify() ([]Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verifyLocked()
}

func (s *Session) verifyLocked() ([]Complaint, error) {
	if len(s.commitments) != s.params.N {
		return nil, errors.Wrapf(ErrRoundIncomplete, "have %d of %d commitments", len(s.commitments), s.params.N)
	}
	if len(s.shares) != s.params.N*s.params.N {
		return nil, errors.Wrapf(ErrRoundIncomplete, "have %d of %d shares", len(s.shares), s.params.N*s.params.N)
	}

	ids := s.params.IDs()
	perDealer := make([][]Complaint, len(ids))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for idx, dealer := range ids {
		idx, dealer := idx, dealer
		cm := s.commitments[dealer]
		g.Go(func() error {
			for _, recipient := range ids {
				share := s.shares[ShareKey{Dealer: dealer, Recipient: recipient}]
				if !cm.Verify(s.curve, recipient, share) {
					perDealer[idx] = append(perDealer[idx], Complaint{Dealer: dealer, Recipient: recipient})
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var complaints []Complaint
	for _, cs := range perDealer {
		complaints = append(complaints, cs...)
	}
	sort.Slice(complaints, func(i, j int) bool {
		if complaints[i].Dealer != complaints[j].Dealer {
			return complaints[i].Dealer < complaints[j].Dealer
		}
		return complaints[i].Recipient < complaints[j].Recipient
	})
	return complaints, nil
}

// Finalize verifies the complete share table and, if no complaint was
// raised, aggregates the joint public key Q = sum_j C_{j,0} and each final
// share s_i = sum_j s_{j->i}. Any complaint fails the session with a
// *VerificationError. The outcome is fixed after the first call.
func (s *Session) Finalize() (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		if s.err != nil {
			return nil, s.err
		}
		return s.result, nil
	}

	complaints, err := s.verifyLocked()
	if err != nil {
		// incomplete rounds do not end the session
		return nil, err
	}

	s.done = true
	if len(complaints) > 0 {
		s.err = &VerificationError{Complaints: complaints}
		s.metrics.SessionFinished(metrics.OutcomeComplaint, len(complaints))
		s.logger.Warn("dkg share verification failed",
			zap.Int("complaints", len(complaints)),
			zap.Ints("dealers", s.err.(*VerificationError).Dealers()))
		return nil, s.err
	}

	result, err := s.aggregateLocked()
	if err != nil {
		s.err = err
		s.metrics.SessionFinished(metrics.OutcomeError, 0)
		return nil, err
	}
	s.result = result
	s.metrics.SessionFinished(metrics.OutcomeSuccess, 0)
	s.logger.Info("dkg session finalized",
		zap.Int("n", s.params.N),
		zap.Int("t", s.params.T),
		zap.String("public_key", shortHex(s.curve.Marshal(result.PublicKey))))
	return result, nil
}

// Abort ends the session without a result; later calls to Finalize return
// reason, or ErrSessionAborted when reason is nil. A finished session is
// left unchanged.
func (s *Session) Abort(reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	if reason == nil {
		reason = ErrSessionAborted
	}
	s.done = true
	s.err = reason
	s.metrics.SessionFinished(metrics.OutcomeError, 0)
	s.logger.Warn("dkg session aborted", zap.Error(reason))
}

func (s *Session) aggregateLocked() (*Result, error) {
	ids := s.params.IDs()

	commitments := make(map[int]*Commitment, len(ids))
	var aggregate *Commitment
	for _, dealer := range ids {
		cm := s.commitments[dealer]
		commitments[dealer] = cm
		if aggregate == nil {
			aggregate = &Commitment{Points: make([]*curve.Point, len(cm.Points))}
			for k, p := range cm.Points {
				aggregate.Points[k] = p.Copy()
			}
			continue
		}
		sum, err := aggregate.Add(s.curve, cm)
		if err != nil {
			return nil, err
		}
		aggregate = sum
	}

	shares := make(map[int]*big.Int, len(ids))
	for _, recipient := range ids {
		acc := new(big.Int)
		for _, dealer := range ids {
			acc.Add(acc, s.shares[ShareKey{Dealer: dealer, Recipient: recipient}])
			acc.Mod(acc, s.curve.N)
		}
		shares[recipient] = acc
	}

	result := &Result{
		SessionID:   s.id,
		Curve:       s.curve,
		Params:      s.params,
		PublicKey:   aggregate.CommitmentToSecret(),
		Commitments: commitments,
		Aggregate:   aggregate,
		Shares:      shares,
	}

	// s_i*G must equal the aggregate commitment evaluated at i
	for _, id := range ids {
		if !result.VerifyShare(id, shares[id]) {
			return nil, errors.Wrapf(ErrVerificationFailed, "aggregate check failed for participant %d", id)
		}
	}
	return result, nil
}

func shortHex(b []byte) string {
	if len(b) > 8 {
		b = b[:8]
	}
	return hex.EncodeToString(b)
}
