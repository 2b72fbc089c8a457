// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package tool

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// EndpointScript is the one-shot endpoint hosting scripted calculator
// tools.
const EndpointScript = "script"

// EvalExprArgs evaluates an arithmetic expression.
type EvalExprArgs struct {
	Expr string `json:"expr" jsonschema:"required"`
}

// ThresholdArgs compares a value against a threshold.
type ThresholdArgs struct {
	Value     float64 `json:"value" jsonschema:"required"`
	Threshold float64 `json:"threshold" jsonschema:"required"`
	Op        string  `json:"op,omitempty"`
}

// ModifierArgs computes an ability modifier from a raw score.
type ModifierArgs struct {
	Score int `json:"score"`
}

// SumDamageArgs totals a list of damage rolls.
type SumDamageArgs struct {
	Rolls []float64 `json:"rolls" jsonschema:"required"`
}

// ScriptTransport evaluates calculator tools in a sandboxed Lua state. It
// is a one-shot endpoint: every call gets a fresh state, so a runaway
// script never poisons the channel.
type ScriptTransport struct {
	name string
}

// NewScriptTransport creates the scripted calculator endpoint.
func NewScriptTransport(name string) *ScriptTransport {
	return &ScriptTransport{name: name}
}

// Name returns the endpoint name.
func (t *ScriptTransport) Name() string { return t.name }

// Close is a no-op; states are per-call.
func (t *ScriptTransport) Close() error { return nil }

// safeLibraries are the Lua libraries loaded into the sandbox. os, io,
// debug, and package stay blocked.
var safeLibraries = []struct {
	name string
	fn   lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// unsafeBaseFunctions are base-library functions that reach the filesystem
// and must be removed from the sandbox.
var unsafeBaseFunctions = []string{"dofile", "loadfile", "loadstring", "load"}

func newSandbox(ctx context.Context) (*lua.LState, error) {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})
	for _, lib := range safeLibraries {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("failed to open library %s: %w", lib.name, err)
		}
	}
	for _, fn := range unsafeBaseFunctions {
		L.SetGlobal(fn, lua.LNil)
	}
	L.SetContext(ctx)
	return L, nil
}

// Call evaluates the named calculator tool. Script errors are relayed
// in-band as tool errors; only sandbox construction failures are treated
// as transport errors.
func (t *ScriptTransport) Call(ctx context.Context, tool string, args map[string]any) (Result, error) {
	L, err := newSandbox(ctx)
	if err != nil {
		return Result{}, err
	}
	defer L.Close()

	script, err := t.buildScript(L, tool, args)
	if err != nil {
		return Result{Text: err.Error(), IsError: true}, nil
	}
	if err := L.DoString(script); err != nil {
		return Result{Text: err.Error(), IsError: true}, nil
	}

	value := luaToGo(L.Get(-1))
	return marshalResult(map[string]any{"value": value})
}

// buildScript decodes arguments, binds them as globals on the state, and
// returns the script body to run.
func (t *ScriptTransport) buildScript(L *lua.LState, tool string, args map[string]any) (string, error) {
	switch tool {
	case "eval_expr":
		var a EvalExprArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		if a.Expr == "" {
			return "", fmt.Errorf("expr is empty")
		}
		return "return (" + a.Expr + ")", nil

	case "check_threshold":
		var a ThresholdArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		op, err := thresholdOp(a.Op)
		if err != nil {
			return "", err
		}
		L.SetGlobal("value", lua.LNumber(a.Value))
		L.SetGlobal("threshold", lua.LNumber(a.Threshold))
		return "return value " + op + " threshold", nil

	case "compute_modifier":
		var a ModifierArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		L.SetGlobal("score", lua.LNumber(a.Score))
		return "return math.floor((score - 10) / 2)", nil

	case "sum_damage":
		var a SumDamageArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		rolls := L.NewTable()
		for _, r := range a.Rolls {
			rolls.Append(lua.LNumber(r))
		}
		L.SetGlobal("rolls", rolls)
		script := `
local total = 0
for _, v in ipairs(rolls) do total = total + v end
return total`
		return script, nil

	default:
		return "", fmt.Errorf("unknown script tool %q", tool)
	}
}

func thresholdOp(op string) (string, error) {
	switch op {
	case "", ">=":
		return ">=", nil
	case "<=", ">", "<", "==":
		return op, nil
	case "!=":
		return "~=", nil
	default:
		return "", fmt.Errorf("unsupported comparison %q", op)
	}
}

func luaToGo(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case lua.LBool:
		return bool(val)
	case *lua.LNilType:
		return nil
	default:
		return v.String()
	}
}

// RegisterScriptTools registers the calculator tool descriptors for the
// given script endpoint.
func RegisterScriptTools(reg *Registry, t *ScriptTransport) {
	for _, d := range []*Descriptor{
		{Name: "eval_expr", Description: "Evaluate an arithmetic expression.", Endpoint: t.Name(), Args: EvalExprArgs{}},
		{Name: "check_threshold", Description: "Compare a value against a threshold.", Endpoint: t.Name(), Args: ThresholdArgs{}},
		{Name: "compute_modifier", Description: "Compute an ability modifier from a raw score.", Endpoint: t.Name(), Args: ModifierArgs{}},
		{Name: "sum_damage", Description: "Total a list of damage rolls.", Endpoint: t.Name(), Args: SumDamageArgs{}},
	} {
		reg.Register(d)
	}
}
