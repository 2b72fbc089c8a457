// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

// Package xdg resolves the XDG Base Directory paths daid stores its
// configuration and world files under.
package xdg

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "daid"

// resolve joins the app directory onto the env override, or onto the
// home-relative fallback when the override is unset.
func resolve(envVar string, fallback ...string) string {
	base := os.Getenv(envVar)
	if base == "" {
		parts := append([]string{os.Getenv("HOME")}, fallback...)
		base = filepath.Join(parts...)
	}
	return filepath.Join(base, appName)
}

// ConfigDir is where daid.yaml lives: $XDG_CONFIG_HOME/daid, defaulting
// to ~/.config/daid.
func ConfigDir() string {
	return resolve("XDG_CONFIG_HOME", ".config")
}

// DataDir is the root data directory: $XDG_DATA_HOME/daid, defaulting to
// ~/.local/share/daid.
func DataDir() string {
	return resolve("XDG_DATA_HOME", ".local", "share")
}

// WorldsDir is where world documents are persisted, one JSON file per
// world, under DataDir.
func WorldsDir() string {
	return filepath.Join(DataDir(), "worlds")
}

// StateDir is $XDG_STATE_HOME/daid, defaulting to ~/.local/state/daid.
func StateDir() string {
	return resolve("XDG_STATE_HOME", ".local", "state")
}

// EnsureDir creates the directory and any parents with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}
