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

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jeremyhahn/go-thresholdkms/pkg/codec"
	"github.com/jeremyhahn/go-thresholdkms/pkg/rng"
	"github.com/jeremyhahn/go-thresholdkms/pkg/scheme"
	"github.com/spf13/viper"
)

// artifactPath returns dir/name with the extension of the output codec.
func artifactPath(dir, name string) string {
	ext := viper.GetString("codec")
	if ext == "" {
		ext = codec.JSON
	}
	return filepath.Join(dir, name+"."+ext)
}

// writeArtifact encodes msg in an envelope with the codec matching the
// file extension.
func writeArtifact(path string, msgType codec.MessageType, sessionID string, sender int, msg any, perm os.FileMode) error {
	s := codec.ForPath(path)
	data, err := s.MarshalEnvelope(sessionID, msgType, sender, msg, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", msgType, err)
	}
	if err := os.WriteFile(filepath.Clean(path), data, perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// readArtifact decodes an envelope of the expected type from path.
func readArtifact(path string, msgType codec.MessageType, msg any) (*codec.Envelope, error) {
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath) //nolint:gosec // G304: Path is cleaned above
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	env, err := codec.ForPath(cleanPath).Open(data, msgType, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return env, nil
}

// parseIDs parses a comma-separated participant id list.
func parseIDs(s string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid participant id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("empty participant list")
	}
	return ids, nil
}

// randomness returns crypto/rand, or a deterministic stream when a seed is
// given.
func randomness(seed string) io.Reader {
	if seed == "" {
		return rng.Secure()
	}
	logger.Warn("using deterministic randomness; keys are reproducible from the seed")
	return rng.Deterministic([]byte(seed))
}

// newScheme builds a scheme from the global curve and suite settings.
func newScheme(n, t int, seed string) (*scheme.Scheme, error) {
	cfg := scheme.Config{
		Curve:        viper.GetString("curve"),
		Suite:        viper.GetString("suite"),
		Participants: n,
		Threshold:    t,
	}
	return scheme.New(cfg,
		scheme.WithLogger(logger),
		scheme.WithMetrics(collector),
		scheme.WithRand(randomness(seed)))
}
