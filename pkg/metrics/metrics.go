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

// Package metrics provides Prometheus instrumentation for the key
// management engine. A nil *Collector is valid and records nothing.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrRegistrationFailed indicates a collector could not be registered.
var ErrRegistrationFailed = errors.New("metrics: registration failed")

// Outcome label values shared by the counters.
const (
	OutcomeSuccess          = "success"
	OutcomeComplaint        = "complaint"
	OutcomeQuorum           = "insufficient_quorum"
	OutcomeVeto             = "veto"
	OutcomeMACMismatch      = "mac_mismatch"
	OutcomeMissingMandatory = "missing_mandatory_group"
	OutcomeError            = "error"
)

// Config holds configuration for the collector.
type Config struct {
	// Enabled controls whether metrics collection is active.
	Enabled bool

	// Namespace is the Prometheus namespace (default: "tkms").
	Namespace string

	// Subsystem is the Prometheus subsystem (default: "engine").
	Subsystem string

	// DurationBuckets defines histogram buckets for operation durations.
	DurationBuckets []float64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:   true,
		Namespace: "tkms",
		Subsystem: "engine",
		DurationBuckets: []float64{
			0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0,
		},
	}
}

// Collector collects engine metrics on its own registry.
type Collector struct {
	config   *Config
	registry *prometheus.Registry

	dkgSessions        *prometheus.CounterVec
	complaints         prometheus.Counter
	tokenVerifications *prometheus.CounterVec
	recoveries         *prometheus.CounterVec
	decryptions        *prometheus.CounterVec
	evaluations        *prometheus.CounterVec
	duration           *prometheus.HistogramVec

	activeSessions      atomic.Int64
	activeSessionsGauge prometheus.GaugeFunc
}

// New creates a collector. A nil config selects DefaultConfig.
func New(config *Config) (*Collector, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if !config.Enabled {
		return &Collector{config: config}, nil
	}

	defaults := DefaultConfig()
	namespace := config.Namespace
	if namespace == "" {
		namespace = defaults.Namespace
	}
	subsystem := config.Subsystem
	if subsystem == "" {
		subsystem = defaults.Subsystem
	}
	buckets := config.DurationBuckets
	if buckets == nil {
		buckets = defaults.DurationBuckets
	}

	c := &Collector{
		config:   config,
		registry: prometheus.NewRegistry(),
	}

	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	}

	c.dkgSessions = counterVec("dkg_sessions_total", "DKG sessions finalized, by outcome.", "outcome")
	c.tokenVerifications = counterVec("token_verifications_total", "Authorization token checks, by result.", "result")
	c.recoveries = counterVec("recoveries_total", "Key recovery attempts, by outcome.", "outcome")
	c.decryptions = counterVec("decryptions_total", "Threshold decryptions, by outcome.", "outcome")
	c.evaluations = counterVec("policy_evaluations_total", "Group policy evaluations, by outcome.", "outcome")

	c.complaints = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "dkg_complaints_total",
		Help:      "Feldman share verification failures.",
	})

	c.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "operation_duration_seconds",
		Help:      "Operation duration distribution in seconds.",
		Buckets:   buckets,
	}, []string{"operation"})

	c.activeSessionsGauge = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "active_dkg_sessions",
		Help:      "DKG sessions created but not yet finalized.",
	}, func() float64 {
		return float64(c.activeSessions.Load())
	})

	collectors := []prometheus.Collector{
		c.dkgSessions,
		c.complaints,
		c.tokenVerifications,
		c.recoveries,
		c.decryptions,
		c.evaluations,
		c.duration,
		c.activeSessionsGauge,
	}
	for _, col := range collectors {
		if err := c.registry.Register(col); err != nil {
			return nil, errors.Wrap(ErrRegistrationFailed, err.Error())
		}
	}
	return c, nil
}

// Registry returns the registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Enabled reports whether the collector records anything.
func (c *Collector) Enabled() bool {
	return c != nil && c.config != nil && c.config.Enabled
}

// WriteTextfile writes the current values in the Prometheus text format,
// suitable for the node exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if !c.Enabled() {
		return nil
	}
	return errors.Wrap(prometheus.WriteToTextfile(path, c.registry), "metrics: write textfile")
}

// SessionStarted increments the active session gauge.
func (c *Collector) SessionStarted() {
	if !c.Enabled() {
		return
	}
	c.activeSessions.Add(1)
}

// SessionFinished decrements the active session gauge and counts the
// outcome together with any complaints raised.
func (c *Collector) SessionFinished(outcome string, complaints int) {
	if !c.Enabled() {
		return
	}
	if c.activeSessions.Add(-1) < 0 {
		c.activeSessions.Store(0)
	}
	c.dkgSessions.WithLabelValues(outcome).Inc()
	c.complaints.Add(float64(complaints))
}

// ActiveSessions returns the active session gauge value.
func (c *Collector) ActiveSessions() int64 {
	if c == nil {
		return 0
	}
	return c.activeSessions.Load()
}

// RecordToken counts one token classification result.
func (c *Collector) RecordToken(result string) {
	if !c.Enabled() {
		return
	}
	c.tokenVerifications.WithLabelValues(result).Inc()
}

// RecordRecovery counts one recovery outcome.
func (c *Collector) RecordRecovery(outcome string) {
	if !c.Enabled() {
		return
	}
	c.recoveries.WithLabelValues(outcome).Inc()
}

// RecordDecryption counts one decryption outcome.
func (c *Collector) RecordDecryption(outcome string) {
	if !c.Enabled() {
		return
	}
	c.decryptions.WithLabelValues(outcome).Inc()
}

// RecordEvaluation counts one policy evaluation outcome.
func (c *Collector) RecordEvaluation(outcome string) {
	if !c.Enabled() {
		return
	}
	c.evaluations.WithLabelValues(outcome).Inc()
}

// RecordDuration observes the duration of an operation.
func (c *Collector) RecordDuration(operation string, d time.Duration) {
	if !c.Enabled() {
		return
	}
	c.duration.WithLabelValues(operation).Observe(d.Seconds())
}

// Timer measures one operation.
type Timer struct {
	collector *Collector
	operation string
	start     time.Time
}

// NewTimer starts a timer for operation.
func (c *Collector) NewTimer(operation string) *Timer {
	return &Timer{collector: c, operation: operation, start: time.Now()}
}

// Stop records the elapsed time.
func (t *Timer) Stop() {
	if t != nil && t.collector != nil {
		t.collector.RecordDuration(t.operation, time.Since(t.start))
	}
}
