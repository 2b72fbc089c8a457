// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

// Package scheduler decides which actor speaks next, detects stalls and
// loops, and evaluates termination. The core is a pure selector over the
// transcript and a world snapshot; everything impure (tool execution, the
// narrator's end-of-turn hook) lives in the session runner.
package scheduler

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/moushegh/daid/internal/tool"
	"github.com/moushegh/daid/internal/world"
)

// GameOverPrefix marks a terminal line in actor or system text. Detection
// is case-insensitive and per line.
const GameOverPrefix = "GAME_OVER:"

// loopLimit is the occurrence count at which an identical call is
// suppressed: three consecutive repeats of the same call mean the fourth
// occurrence never executes.
const loopLimit = 4

// Message is one transcript entry.
type Message struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// DecisionKind tags what the session runner should do next.
type DecisionKind int

const (
	// DecideNextActor hands the turn to Decision.NextActor.
	DecideNextActor DecisionKind = iota
	// DecideRunTool executes Decision.Invocation and relays the result.
	DecideRunTool
	// DecideEndOfTurn runs the narrator's end-of-turn hook.
	DecideEndOfTurn
	// DecideTerminate ends the session.
	DecideTerminate
)

// Decision is the outcome of one Select step.
type Decision struct {
	Kind       DecisionKind
	NextActor  string
	Invocation tool.Invocation
	// Suppressed is set when an invocation was present but refused by
	// loop detection.
	Suppressed bool
	// Reason explains a termination or suppression.
	Reason string
}

// Memory is the scheduler's explicit mutable state, carried across Select
// calls by the session runner.
type Memory struct {
	// PendingCaller is the actor whose tool call is in flight; results
	// route back to it.
	PendingCaller string
	// TurnAdvanced records that the narrator already called advance_turn
	// this turn, so the hook must not advance again.
	TurnAdvanced bool

	loopSig   string
	loopCount int
}

// Config names the fixed cast of a session.
type Config struct {
	// Narrator is the actor allowed to mutate the world and whose plain
	// turns trigger the end-of-turn hook.
	Narrator string
	// Actors is the rotation order, narrator included.
	Actors []string
	// Executor is the transcript speaker used for relayed tool results.
	Executor string
}

// DefaultExecutor is the speaker name for relayed tool results.
const DefaultExecutor = "System"

// Select decides the next step from the transcript tail and a world
// snapshot. It is pure apart from the explicit Memory it updates.
func Select(cfg Config, snapshot *world.World, history []Message, mem *Memory) Decision {
	if len(history) == 0 {
		return Decision{Kind: DecideNextActor, NextActor: cfg.first()}
	}
	last := history[len(history)-1]

	if reason, over := GameOverLine(last.Text); over {
		return Decision{Kind: DecideTerminate, Reason: reason}
	}

	inv, err := tool.Parse(last.Text)
	if err == nil && inv.Kind != tool.KindNone && last.Speaker != cfg.executor() {
		sig := fingerprint(last.Speaker, inv)
		if sig == mem.loopSig {
			mem.loopCount++
		} else {
			mem.loopSig = sig
			mem.loopCount = 1
		}
		if mem.loopCount >= loopLimit {
			mem.loopSig = ""
			mem.loopCount = 0
			return Decision{
				Kind:       DecideNextActor,
				NextActor:  cfg.breakLoopActor(last.Speaker),
				Suppressed: true,
				Reason:     "identical call repeated; control forced away from " + last.Speaker,
			}
		}
		mem.PendingCaller = last.Speaker
		return Decision{Kind: DecideRunTool, Invocation: inv}
	}

	if last.Speaker == cfg.executor() {
		// Relayed results sit between an actor's repeats and must not
		// reset the chain.
		return Decision{Kind: DecideNextActor, NextActor: routeResult(cfg, history, mem)}
	}

	// A non-call message from an actor resets the repeat chain.
	mem.loopSig = ""
	mem.loopCount = 0

	if last.Speaker == cfg.Narrator {
		return Decision{Kind: DecideEndOfTurn}
	}

	return Decision{Kind: DecideNextActor, NextActor: nextFromWorld(cfg, snapshot, last.Speaker)}
}

// routeResult returns the actor a tool result is relayed to: the pending
// caller when tracked, otherwise the most recent transcript speaker that
// issued a tool call, otherwise the first actor.
func routeResult(cfg Config, history []Message, mem *Memory) string {
	if caller := mem.PendingCaller; caller != "" {
		mem.PendingCaller = ""
		return caller
	}
	for i := len(history) - 2; i >= 0; i-- {
		msg := history[i]
		if msg.Speaker == cfg.executor() {
			continue
		}
		if inv, err := tool.Parse(msg.Text); err == nil && inv.Kind != tool.KindNone {
			return msg.Speaker
		}
	}
	return cfg.first()
}

// nextFromWorld prefers the snapshot's next_actor when it names a known
// actor, falling back to the round-robin successor of the last speaker.
func nextFromWorld(cfg Config, snapshot *world.World, lastSpeaker string) string {
	if snapshot != nil {
		for _, a := range cfg.Actors {
			if strings.EqualFold(a, snapshot.NextActor) {
				return a
			}
		}
	}
	return cfg.successor(lastSpeaker)
}

// GameOverLine scans text for a terminal marker line and returns the
// trailing result text.
func GameOverLine(text string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) >= len(GameOverPrefix) &&
			strings.EqualFold(trimmed[:len(GameOverPrefix)], GameOverPrefix) {
			return strings.TrimSpace(trimmed[len(GameOverPrefix):]), true
		}
	}
	return "", false
}

// fingerprint canonicalizes (caller, tool, arguments) so argument order
// never defeats loop detection.
func fingerprint(caller string, inv tool.Invocation) string {
	var b strings.Builder
	b.WriteString(caller)
	b.WriteByte('|')
	b.WriteString(inv.Name)
	b.WriteByte('|')

	keys := make([]string, 0, len(inv.Arguments))
	for k := range inv.Arguments {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		raw, _ := json.Marshal(inv.Arguments[k])
		b.WriteString(k)
		b.WriteByte('=')
		b.Write(raw)
		b.WriteByte(';')
	}
	return b.String()
}

func (c Config) first() string {
	if len(c.Actors) == 0 {
		return c.Narrator
	}
	return c.Actors[0]
}

func (c Config) executor() string {
	if c.Executor == "" {
		return DefaultExecutor
	}
	return c.Executor
}

// successor returns the actor after the given one in rotation order.
func (c Config) successor(name string) string {
	for i, a := range c.Actors {
		if strings.EqualFold(a, name) {
			return c.Actors[(i+1)%len(c.Actors)]
		}
	}
	return c.first()
}

// breakLoopActor is where control goes when a loop is suppressed: the
// narrator, or the narrator's successor when the narrator itself looped.
func (c Config) breakLoopActor(caller string) string {
	if strings.EqualFold(caller, c.Narrator) {
		return c.successor(c.Narrator)
	}
	return c.Narrator
}
