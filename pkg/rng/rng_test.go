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

package rng

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministic(t *testing.T) {
	a, b := make([]byte, 100), make([]byte, 100)
	_, err := io.ReadFull(Deterministic([]byte("seed")), a)
	require.NoError(t, err)
	_, err = io.ReadFull(Deterministic([]byte("seed")), b)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c := make([]byte, 100)
	_, err = io.ReadFull(Deterministic([]byte("other")), c)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestDeterministicStreams(t *testing.T) {
	whole := make([]byte, 64)
	_, err := io.ReadFull(Deterministic([]byte("seed")), whole)
	require.NoError(t, err)

	r := Deterministic([]byte("seed"))
	parts := make([]byte, 64)
	_, err = io.ReadFull(r, parts[:10])
	require.NoError(t, err)
	_, err = io.ReadFull(r, parts[10:])
	require.NoError(t, err)
	assert.Equal(t, whole, parts)
}

func TestSecure(t *testing.T) {
	buf := make([]byte, 32)
	_, err := io.ReadFull(Secure(), buf)
	require.NoError(t, err)
	assert.NotEqual(t, make([]byte, 32), buf)
}
