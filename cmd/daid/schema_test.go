// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaCmd_PrintsAllBuiltins(t *testing.T) {
	var out bytes.Buffer
	cmd := newSchemaCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	require.NoError(t, runSchema(cmd, nil))

	assert.Contains(t, out.String(), "// apply_damage (state)")
	assert.Contains(t, out.String(), "// roll (combat)")
	assert.Contains(t, out.String(), "\"properties\"")
}

func TestSchemaCmd_SelectsNamedTool(t *testing.T) {
	var out bytes.Buffer
	cmd := newSchemaCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	require.NoError(t, runSchema(cmd, []string{"roll"}))
	assert.Contains(t, out.String(), "// roll")
	assert.NotContains(t, out.String(), "// apply_damage")
}

func TestSchemaCmd_RejectsUnknownTool(t *testing.T) {
	var out bytes.Buffer
	cmd := newSchemaCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	err := runSchema(cmd, []string{"summon_tarrasque"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "summon_tarrasque")
}
