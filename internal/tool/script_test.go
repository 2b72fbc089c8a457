// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scriptCall(t *testing.T, tool string, args map[string]any) Result {
	t.Helper()
	tr := NewScriptTransport(EndpointScript)
	res, err := tr.Call(context.Background(), tool, args)
	require.NoError(t, err)
	return res
}

func TestScript_EvalExpr(t *testing.T) {
	res := scriptCall(t, "eval_expr", map[string]any{"expr": "2 + 3 * 4"})
	require.False(t, res.IsError, res.Text)
	assert.Equal(t, float64(14), res.Data["value"])
}

func TestScript_EvalExprMathLibrary(t *testing.T) {
	res := scriptCall(t, "eval_expr", map[string]any{"expr": "math.max(3, 11)"})
	require.False(t, res.IsError, res.Text)
	assert.Equal(t, float64(11), res.Data["value"])
}

func TestScript_EvalExprErrorIsInBand(t *testing.T) {
	res := scriptCall(t, "eval_expr", map[string]any{"expr": "1 +"})
	assert.True(t, res.IsError)
}

func TestScript_SandboxBlocksOSAndIO(t *testing.T) {
	for _, expr := range []string{"os.time()", `io.open("/etc/passwd")`, `dofile("x.lua")`} {
		res := scriptCall(t, "eval_expr", map[string]any{"expr": expr})
		assert.True(t, res.IsError, "expected sandbox to reject %s", expr)
	}
}

func TestScript_CheckThreshold(t *testing.T) {
	res := scriptCall(t, "check_threshold", map[string]any{"value": 15.0, "threshold": 13.0})
	require.False(t, res.IsError, res.Text)
	assert.Equal(t, true, res.Data["value"], "default comparison is >=")

	res = scriptCall(t, "check_threshold", map[string]any{"value": 12.0, "threshold": 13.0, "op": ">="})
	assert.Equal(t, false, res.Data["value"])

	res = scriptCall(t, "check_threshold", map[string]any{"value": 12.0, "threshold": 13.0, "op": "<"})
	assert.Equal(t, true, res.Data["value"])

	res = scriptCall(t, "check_threshold", map[string]any{"value": 1.0, "threshold": 2.0, "op": "spaceship"})
	assert.True(t, res.IsError)
}

func TestScript_ComputeModifier(t *testing.T) {
	cases := map[float64]float64{16: 3, 10: 0, 9: -1, 1: -5}
	for score, want := range cases {
		res := scriptCall(t, "compute_modifier", map[string]any{"score": score})
		require.False(t, res.IsError, res.Text)
		assert.Equal(t, want, res.Data["value"], "score %v", score)
	}
}

func TestScript_SumDamage(t *testing.T) {
	res := scriptCall(t, "sum_damage", map[string]any{"rolls": []any{3.0, 5.0, 1.0}})
	require.False(t, res.IsError, res.Text)
	assert.Equal(t, float64(9), res.Data["value"])
}

func TestScript_UnknownTool(t *testing.T) {
	res := scriptCall(t, "summon", map[string]any{})
	assert.True(t, res.IsError)
}
