// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()
	assert.Equal(t, "daid", cmd.Use)

	names := make([]string, 0, len(cmd.Commands()))
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "run")
	assert.Contains(t, names, "status")
	assert.Contains(t, names, "validate")
	assert.Contains(t, names, "schema")

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestRunCmdFlags(t *testing.T) {
	cmd := newRunCmd()
	for _, name := range []string{"log-format", "metrics-addr", "data-dir", "world"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag %s", name)
	}
}
