// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

// Package errutil provides helpers for logging and asserting on the
// structured oops errors used across daid.
package errutil

import (
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs an error with structured context if it's an oops error.
// For oops errors, it extracts and logs the message, code, and context.
// For standard errors, it logs the error string.
func LogError(logger *slog.Logger, msg string, err error) {
	if oopsErr, ok := oops.AsOops(err); ok {
		attrs := []any{
			"error", oopsErr.Error(),
		}
		if code := oopsErr.Code(); code != nil {
			attrs = append(attrs, "code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			attrs = append(attrs, "context", ctx)
		}
		logger.Error(msg, attrs...)
	} else {
		logger.Error(msg, "error", err)
	}
}

// Code returns the oops error code, or "" for plain errors. Useful when a
// caller branches on the error taxonomy (validation, not_found, transport,
// timeout, ...) without importing the producing package.
func Code(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, isString := oopsErr.Code().(string); isString {
			return code
		}
	}
	return ""
}
