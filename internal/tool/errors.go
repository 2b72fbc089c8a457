// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package tool

import "github.com/samber/oops"

// Error codes attached via oops for programmatic matching.
const (
	CodeToolNotFound   = "tool_not_found"
	CodeSchemaMismatch = "schema_mismatch"
	CodeTransport      = "transport_error"
	CodeTimeout        = "timeout"
	CodeForbidden      = "tool_forbidden"
	CodeParse          = "parse_error"
)

func notFoundErr(name string) error {
	return oops.
		Code(CodeToolNotFound).
		With("tool", name).
		Errorf("tool %q is not registered", name)
}

func schemaErr(name string, err error, detail string) error {
	b := oops.
		Code(CodeSchemaMismatch).
		With("tool", name)
	if err != nil {
		return b.Wrapf(err, "arguments for %q do not match the tool schema", name)
	}
	return b.Errorf("arguments for %q do not match the tool schema: %s", name, detail)
}

func transportErr(endpoint string, err error) error {
	return oops.
		Code(CodeTransport).
		With("endpoint", endpoint).
		Wrapf(err, "tool endpoint %q failed after retries", endpoint)
}

func timeoutErr(name string, err error) error {
	return oops.
		Code(CodeTimeout).
		With("tool", name).
		Wrapf(err, "tool call %q timed out", name)
}

func forbiddenErr(caller, name string) error {
	return oops.
		Code(CodeForbidden).
		With("caller", caller).
		With("tool", name).
		Errorf("caller %q is not allowed to invoke %q", caller, name)
}

func parseErr(format string, args ...any) error {
	return oops.
		Code(CodeParse).
		Errorf(format, args...)
}
