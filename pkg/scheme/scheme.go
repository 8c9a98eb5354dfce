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

// Package scheme ties key generation, the group policy, the token ledger
// and threshold encryption together behind one object. It runs every
// participant in-process and is meant for simulation, tooling and tests;
// deployments drive the dkg, ledger and ecies packages per party.
package scheme

import (
	"encoding/hex"
	"io"
	"math/big"
	"sync"

	"github.com/jeremyhahn/go-thresholdkms/pkg/curve"
	"github.com/jeremyhahn/go-thresholdkms/pkg/dkg"
	"github.com/jeremyhahn/go-thresholdkms/pkg/ecies"
	"github.com/jeremyhahn/go-thresholdkms/pkg/kdf"
	"github.com/jeremyhahn/go-thresholdkms/pkg/ledger"
	"github.com/jeremyhahn/go-thresholdkms/pkg/metrics"
	"github.com/jeremyhahn/go-thresholdkms/pkg/policy"
	"github.com/jeremyhahn/go-thresholdkms/pkg/rng"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Scheme holds the state of one key: its shares, the optional policy and
// the current token ledger.
type Scheme struct {
	config  Config
	curve   *curve.Curve
	suite   kdf.Suite
	rand    io.Reader
	logger  *zap.Logger
	metrics *metrics.Collector
	history *ledger.History

	mu     sync.RWMutex
	key    *dkg.Result
	policy *policy.Policy
	ledger *ledger.Ledger
	tokens map[int]*ledger.TokenPair
}

// Option configures a Scheme.
type Option func(*Scheme)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scheme) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Scheme) {
		s.metrics = m
	}
}

// WithRand sets the randomness source. Default is crypto/rand.
func WithRand(r io.Reader) Option {
	return func(s *Scheme) {
		if r != nil {
			s.rand = r
		}
	}
}

// WithHistory logs every issued ledger root into h.
func WithHistory(h *ledger.History) Option {
	return func(s *Scheme) {
		s.history = h
	}
}

// New validates config and returns a scheme without keys.
func New(config Config, opts ...Option) (*Scheme, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	c, _ := curve.ByName(config.Curve)
	suite, _ := kdf.Lookup(config.suiteName())
	s := &Scheme{
		config: config,
		curve:  c,
		suite:  suite,
		rand:   rng.Secure(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Curve returns the scheme's curve.
func (s *Scheme) Curve() *curve.Curve {
	return s.curve
}

// Suite returns the scheme's hash suite.
func (s *Scheme) Suite() kdf.Suite {
	return s.suite
}

// Config returns the scheme configuration.
func (s *Scheme) Config() Config {
	return s.config
}

// GenerateKeys runs the DKG for all participants. It replaces any previous
// key and discards the tokens derived from it.
func (s *Scheme) GenerateKeys() (*dkg.Result, error) {
	timer := s.metrics.NewTimer("generate_keys")
	defer timer.Stop()

	res, err := dkg.Run(s.curve, s.config.Params(), s.rand,
		dkg.WithLogger(s.logger.Named("dkg")), dkg.WithMetrics(s.metrics))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.zeroizeLocked()
	s.key = res
	s.logger.Info("keys generated",
		zap.String("session", res.SessionID.String()),
		zap.Int("n", res.Params.N),
		zap.Int("t", res.Params.T))
	return res, nil
}

// RefreshShares re-randomizes all key shares while keeping the public key.
// Tokens are bound to the old shares and are discarded; issue new ones.
func (s *Scheme) RefreshShares() (*dkg.Result, error) {
	timer := s.metrics.NewTimer("refresh_shares")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return nil, ErrNoKeys
	}
	res, err := s.key.Refresh(s.rand)
	if err != nil {
		return nil, err
	}
	s.zeroizeLocked()
	s.key = res
	s.logger.Info("shares refreshed", zap.String("session", res.SessionID.String()))
	return res, nil
}

// RepairShare rebuilds participant target's share from the shares of
// helpers, without reconstructing the secret.
func (s *Scheme) RepairShare(target int, helpers []int) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return nil, ErrNoKeys
	}
	share, err := s.key.Repair(target, helpers, s.rand)
	if err != nil {
		return nil, err
	}
	s.logger.Info("share repaired", zap.Int("participant", target), zap.Ints("helpers", helpers))
	return share, nil
}

// PublicKey returns the group public key Q.
func (s *Scheme) PublicKey() (*curve.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return nil, ErrNoKeys
	}
	return s.key.PublicKey.Copy(), nil
}

// Keys returns the key generation result.
func (s *Scheme) Keys() (*dkg.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return nil, ErrNoKeys
	}
	return s.key, nil
}

// SetupPolicy builds the hierarchical group policy. Member ids must be
// participant ids of this scheme.
func (s *Scheme) SetupPolicy(cfg policy.Config) (*policy.Policy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.ValidateRoster(s.config.Participants); err != nil {
		return nil, err
	}
	timer := s.metrics.NewTimer("setup_policy")
	defer timer.Stop()

	p, err := policy.Setup(s.curve, s.suite, cfg, s.rand,
		policy.WithLogger(s.logger.Named("policy")), policy.WithMetrics(s.metrics))
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.policy = p
	s.mu.Unlock()
	return p, nil
}

// Policy returns the configured policy.
func (s *Scheme) Policy() (*policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.policy == nil {
		return nil, ErrNoPolicy
	}
	return s.policy, nil
}

// IssueTokens derives approve and veto tokens for every participant from
// its key share and publishes their commitments in a new ledger. A nil
// epoch selects the policy epoch. Tokens of the previous issuance are
// zeroized.
func (s *Scheme) IssueTokens(epoch []byte) (*ledger.Ledger, map[int]*ledger.TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return nil, nil, ErrNoKeys
	}
	if epoch == nil && s.policy != nil {
		cfg := s.policy.Config()
		epoch = []byte(cfg.Epoch)
	}
	l, tokens, err := ledger.Issue(s.suite, s.curve, epoch, s.key.Shares)
	if err != nil {
		return nil, nil, err
	}
	if s.history != nil {
		if _, err := s.history.AppendLedger(l); err != nil {
			return nil, nil, err
		}
	}
	for _, pair := range s.tokens {
		pair.Zeroize()
	}
	s.ledger = l
	s.tokens = tokens
	s.logger.Info("tokens issued",
		zap.Int("entries", l.Size()),
		zap.String("root", shortHex(l.Root())))
	return l, tokens, nil
}

// Ledger returns the current ledger.
func (s *Scheme) Ledger() (*ledger.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ledger == nil {
		return nil, ErrNoLedger
	}
	return s.ledger, nil
}

// VerifyToken checks a token and its inclusion proof against the current
// ledger root.
func (s *Scheme) VerifyToken(token []byte, proof *ledger.Proof) (bool, error) {
	l, err := s.Ledger()
	if err != nil {
		return false, err
	}
	ok := ledger.VerifyProof(s.suite, l.Root(), token, proof)
	if ok {
		s.metrics.RecordToken(proof.Kind.String())
	} else {
		s.metrics.RecordToken("invalid")
	}
	return ok, nil
}

// Rules returns the recovery rules: the policy roster and weights when a
// policy is configured, otherwise t approving participants and no veto.
func (s *Scheme) Rules() ledger.Rules {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rulesLocked()
}

func (s *Scheme) rulesLocked() ledger.Rules {
	if s.policy == nil {
		return ledger.Rules{RequiredWeight: s.config.Threshold, MinApprovers: s.config.Threshold, Metrics: s.metrics}
	}
	cfg := s.policy.Config()
	return ledger.Rules{
		Roster:         &cfg,
		RequiredWeight: cfg.EffectiveRequiredWeight(),
		MinApprovers:   s.config.Threshold,
		VetoThreshold:  cfg.VetoThreshold,
		Metrics:        s.metrics,
	}
}

// RecoverKey reconstructs the private key from the shares of the
// participants presenting valid approve tokens. Vetoes are evaluated
// first, then approving weight, then the t-of-n share threshold. The
// caller owns the returned scalar and should zeroize it.
func (s *Scheme) RecoverKey(presented []ledger.Presentation) (*big.Int, *ledger.Decision, error) {
	timer := s.metrics.NewTimer("recover_key")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return nil, nil, ErrNoKeys
	}
	if s.ledger == nil {
		return nil, nil, ErrNoLedger
	}

	d, err := s.ledger.Recover(presented, s.rulesLocked())
	if err != nil {
		s.logger.Warn("recovery refused", zap.Error(err))
		return nil, nil, err
	}

	shares := make(map[int]*big.Int, len(d.Approvers))
	defer dkg.ZeroShares(shares)
	for _, id := range d.Approvers {
		share, err := s.key.Share(id)
		if err != nil {
			return nil, nil, err
		}
		shares[id] = share
	}
	secret, err := dkg.Reconstruct(s.curve.N, shares, s.config.Threshold)
	if err != nil {
		s.logger.Error("permitted recovery failed to reconstruct", zap.Error(err))
		return nil, nil, err
	}
	if !s.curve.ScalarBaseMult(secret).Equal(s.key.PublicKey) {
		dkg.ZeroInt(secret)
		s.logger.Error("recovered key does not match the public key")
		return nil, nil, ErrRecoveryMismatch
	}
	s.logger.Info("key recovered",
		zap.Ints("approvers", d.Approvers),
		zap.Strings("groups", d.Groups),
		zap.Int("weight", d.Weight))
	return secret, d, nil
}

// Encrypt encrypts plaintext to the group public key.
func (s *Scheme) Encrypt(plaintext, aad []byte) (*ecies.Ciphertext, error) {
	q, err := s.PublicKey()
	if err != nil {
		return nil, err
	}
	return ecies.Encrypt(s.curve, s.suite, q, plaintext, aad, s.rand)
}

// PartialDecrypt computes participant id's partial decryption of ct for the
// given quorum.
func (s *Scheme) PartialDecrypt(ct *ecies.Ciphertext, id int, quorum []int) (*ecies.Partial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return nil, ErrNoKeys
	}
	share, err := s.key.Share(id)
	if err != nil {
		return nil, err
	}
	defer dkg.ZeroInt(share)
	return ecies.PartialDecrypt(s.curve, ct, id, share, quorum)
}

// Decrypt combines partials from at least t participants and decrypts ct.
func (s *Scheme) Decrypt(ct *ecies.Ciphertext, partials []*ecies.Partial, aad []byte) ([]byte, error) {
	timer := s.metrics.NewTimer("decrypt")
	defer timer.Stop()

	pt, err := ecies.DecryptWithPartials(s.curve, s.suite, ct, partials, s.config.Threshold, aad)
	switch {
	case err == nil:
		s.metrics.RecordDecryption(metrics.OutcomeSuccess)
	case errors.Is(err, ecies.ErrMACMismatch):
		s.metrics.RecordDecryption(metrics.OutcomeMACMismatch)
	case errors.Is(err, dkg.ErrInsufficientQuorum):
		s.metrics.RecordDecryption(metrics.OutcomeQuorum)
	default:
		s.metrics.RecordDecryption(metrics.OutcomeError)
	}
	return pt, err
}

// EvaluatePolicy evaluates the group policy at the base point for index j
// and aad, with the given members per participating group.
func (s *Scheme) EvaluatePolicy(j uint32, aad []byte, quorum map[string][]int) (*curve.Point, error) {
	p, err := s.Policy()
	if err != nil {
		return nil, err
	}
	return p.Evaluate(j, aad, quorum)
}

// Zeroize drops the key shares, tokens and policy.
func (s *Scheme) Zeroize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zeroizeLocked()
	s.policy = nil
}

func (s *Scheme) zeroizeLocked() {
	if s.key != nil {
		s.key.Zeroize()
	}
	for _, pair := range s.tokens {
		pair.Zeroize()
	}
	s.key = nil
	s.ledger = nil
	s.tokens = nil
}

func shortHex(b []byte) string {
	if len(b) > 8 {
		b = b[:8]
	}
	return hex.EncodeToString(b)
}
