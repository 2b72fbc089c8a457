// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package world

import (
	"errors"

	"github.com/samber/oops"
)

// Sentinel errors for programmatic checks with errors.Is.
var (
	// ErrNotFound is returned for unknown worlds or entities.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict is returned when an optimistic patch is stale.
	ErrVersionConflict = errors.New("version conflict")
	// ErrTerminalState is returned when mutating a completed world.
	ErrTerminalState = errors.New("world is completed")
	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")
)

// Error codes attached to oops errors, matching the project-wide taxonomy.
const (
	CodeNotFound        = "not_found"
	CodeVersionConflict = "version_conflict"
	CodeTerminalState   = "terminal_state"
	CodeValidation      = "validation"
)

func notFoundErr(kind, name string) error {
	return oops.Code(CodeNotFound).With(kind, name).Wrapf(ErrNotFound, "%s %q", kind, name)
}

func versionConflictErr(id string, expected, current uint64) error {
	return oops.Code(CodeVersionConflict).
		With("world_id", id).
		With("expected_version", expected).
		With("current_version", current).
		Wrapf(ErrVersionConflict, "expected version %d, world is at %d", expected, current)
}

func terminalStateErr(id string, result Result) error {
	return oops.Code(CodeTerminalState).
		With("world_id", id).
		With("result", string(result)).
		Wrapf(ErrTerminalState, "world %s already completed", id)
}

func validationErr(format string, args ...any) error {
	return oops.Code(CodeValidation).Wrapf(ErrValidation, format, args...)
}
