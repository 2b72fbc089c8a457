// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode asserts that err carries the given code. Plain errors
// fail: every error path in daid is expected to be coded.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	_, ok := oops.AsOops(err)
	require.Truef(t, ok, "expected a coded error, got %T: %v", err, err)
	assert.Equal(t, code, Code(err))
}

// AssertErrorContext asserts that err carries the given context key/value
// pair (world id, tool name, version numbers, ...).
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.Truef(t, ok, "expected a coded error, got %T: %v", err, err)
	ctx := oopsErr.Context()
	require.Containsf(t, ctx, key, "error context has no %q", key)
	assert.Equal(t, value, ctx[key])
}
