// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package tool

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moushegh/daid/pkg/errutil"
)

func TestDescriptor_SchemaJSON(t *testing.T) {
	d := &Descriptor{Name: "roll", Description: "Roll dice.", Endpoint: EndpointCombat, Args: RollArgs{}}

	raw, err := d.SchemaJSON()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(raw, &schema))
	assert.Equal(t, "roll", schema["title"])
	assert.Equal(t, "object", schema["type"])

	props := schema["properties"].(map[string]any)
	assert.Contains(t, props, "notation")
	assert.Contains(t, props, "purpose")

	required, _ := schema["required"].([]any)
	assert.Contains(t, required, "notation")
	assert.NotContains(t, required, "purpose")
}

func TestDescriptor_ValidateRequired(t *testing.T) {
	d := &Descriptor{Name: "roll", Endpoint: EndpointCombat, Args: RollArgs{}}

	require.NoError(t, d.Validate(map[string]any{"notation": "2d6"}))

	err := d.Validate(map[string]any{"purpose": "to hit"})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, CodeSchemaMismatch)
}

func TestDescriptor_ValidateWrongType(t *testing.T) {
	d := &Descriptor{Name: "roll", Endpoint: EndpointCombat, Args: RollArgs{}}

	err := d.Validate(map[string]any{"notation": []any{"2d6"}})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, CodeSchemaMismatch)
}

func TestDescriptor_ValidateToleratesUnknownKeys(t *testing.T) {
	d := &Descriptor{Name: "roll", Endpoint: EndpointCombat, Args: RollArgs{}}
	assert.NoError(t, d.Validate(map[string]any{"notation": "1d8", "mood": "confident"}))
}

func TestDescriptor_NilArgsAcceptsAnything(t *testing.T) {
	d := &Descriptor{Name: "ping", Endpoint: "fake"}
	assert.NoError(t, d.Validate(map[string]any{"whatever": 1}))
}

func TestRegistry_OverwriteAndNames(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Descriptor{Name: "roll", Endpoint: EndpointCombat})
	reg.Register(&Descriptor{Name: "attack", Endpoint: EndpointCombat})
	reg.Register(&Descriptor{Name: "roll", Endpoint: EndpointScript})

	d, ok := reg.Get("roll")
	require.True(t, ok)
	assert.Equal(t, EndpointScript, d.Endpoint, "last registration wins")
	assert.Equal(t, []string{"attack", "roll"}, reg.Names())

	_, ok = reg.Get("missing")
	assert.False(t, ok)
}
