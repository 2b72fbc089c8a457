// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/moushegh/daid/internal/scheduler"
)

// consoleActor plays one cast member from an interactive terminal. The
// whole cast shares one reader and one transcript cursor, so system
// messages print exactly once and typed lines are not echoed back.
type consoleActor struct {
	name string
	in   *bufio.Reader
	out  io.Writer
	seen *int
	cast map[string]bool
}

// newConsoleCast builds an interactive actor for every name.
func newConsoleCast(names []string, in io.Reader, out io.Writer) []scheduler.Actor {
	reader := bufio.NewReader(in)
	seen := new(int)
	cast := make(map[string]bool, len(names))
	for _, name := range names {
		cast[name] = true
	}

	actors := make([]scheduler.Actor, 0, len(names))
	for _, name := range names {
		actors = append(actors, &consoleActor{
			name: name,
			in:   reader,
			out:  out,
			seen: seen,
			cast: cast,
		})
	}
	return actors
}

func (a *consoleActor) Name() string { return a.name }

func (a *consoleActor) Generate(ctx context.Context, transcript []scheduler.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	for _, m := range transcript[*a.seen:] {
		if a.cast[m.Speaker] {
			continue
		}
		fmt.Fprintf(a.out, "%s: %s\n", m.Speaker, m.Text)
	}
	*a.seen = len(transcript)

	fmt.Fprintf(a.out, "%s> ", a.name)
	line, err := a.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && strings.TrimSpace(line) != "" {
			return strings.TrimSpace(line), nil
		}
		// Closed input ends the session instead of spinning on empty
		// turns until the step budget runs out.
		return "", fmt.Errorf("input closed: %w", context.Canceled)
	}
	return strings.TrimSpace(line), nil
}
