// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/moushegh/daid/internal/world"
)

const (
	// DefaultSceneRoundFactor forces a scene change once the round count
	// exceeds factor*(scene+1), so a stalled story still moves.
	DefaultSceneRoundFactor = 8
	// DefaultNudgeWindow is how many trailing events are scanned for
	// combat activity before nudging the narrator.
	DefaultNudgeWindow = 10
)

// Hook is the narrator's end-of-turn pass: it advances the turn when the
// narrator forgot to, force-advances a dragging scene, nudges stalled
// combat, and evaluates end conditions. It mutates the store directly; it
// is trusted system code, not an actor call.
type Hook struct {
	store            *world.Store
	logger           *slog.Logger
	sceneRoundFactor int
	nudgeWindow      int
}

// HookOption configures a Hook.
type HookOption func(*Hook)

// WithSceneRoundFactor overrides the forced-scene-advance threshold.
func WithSceneRoundFactor(n int) HookOption {
	return func(h *Hook) {
		if n > 0 {
			h.sceneRoundFactor = n
		}
	}
}

// WithNudgeWindow overrides the combat-activity scan window.
func WithNudgeWindow(n int) HookOption {
	return func(h *Hook) {
		if n > 0 {
			h.nudgeWindow = n
		}
	}
}

// WithHookLogger sets the logger.
func WithHookLogger(l *slog.Logger) HookOption {
	return func(h *Hook) { h.logger = l }
}

// NewHook creates the end-of-turn hook over the given store.
func NewHook(store *world.Store, opts ...HookOption) *Hook {
	h := &Hook{
		store:            store,
		logger:           slog.Default(),
		sceneRoundFactor: DefaultSceneRoundFactor,
		nudgeWindow:      DefaultNudgeWindow,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HookResult is what the hook feeds back into the session: injected system
// messages and an optional termination signal.
type HookResult struct {
	Messages  []Message
	Terminate bool
	Result    world.Result
}

// Run executes the end-of-turn pass for the given world. Memory's
// turn-advance flag is consumed and reset.
func (h *Hook) Run(ctx context.Context, worldID string, mem *Memory) (HookResult, error) {
	var out HookResult

	if !mem.TurnAdvanced {
		if _, err := h.store.AdvanceTurn(ctx, worldID); err != nil && !errors.Is(err, world.ErrTerminalState) {
			return out, err
		}
	}
	mem.TurnAdvanced = false

	w, err := h.store.Get(ctx, worldID)
	if err != nil {
		return out, err
	}

	if msg, advanced := h.maybeAdvanceScene(ctx, w); advanced {
		out.Messages = append(out.Messages, msg)
		if w, err = h.store.Get(ctx, worldID); err != nil {
			return out, err
		}
	}

	if msg, nudge := h.maybeNudgeCombat(ctx, w); nudge {
		out.Messages = append(out.Messages, msg)
	}

	report, err := h.store.CheckEndConditions(ctx, worldID, BossName)
	if err != nil && !errors.Is(err, world.ErrTerminalState) {
		return out, err
	}
	if report.Ended {
		out.Terminate = true
		out.Result = report.Result
		out.Messages = append(out.Messages, Message{
			Speaker: DefaultExecutor,
			Text:    fmt.Sprintf("%s %s", GameOverPrefix, report.Result),
		})
	}
	return out, nil
}

// maybeAdvanceScene force-advances the scene once the round count has
// outrun it, seeding the new scene's encounter.
func (h *Hook) maybeAdvanceScene(ctx context.Context, w *world.World) (Message, bool) {
	lastScene := len(SceneTitles) - 1
	if w.SceneID >= lastScene || w.Round <= h.sceneRoundFactor*(w.SceneID+1) {
		return Message{}, false
	}

	next := w.SceneID + 1
	narration := fmt.Sprintf("[auto] The story moves on: %s.", SceneTitle(next))
	if _, err := h.store.SetScene(ctx, w.ID, next, SceneTitle(next), narration, ""); err != nil {
		h.logger.Warn("forced scene advance failed", "world_id", w.ID, "scene_id", next, "error", err)
		return Message{}, false
	}
	if enemies := EncounterFor(next); len(enemies) > 0 {
		if _, err := h.store.SetEnemies(ctx, w.ID, enemies, "scene advance"); err != nil {
			h.logger.Warn("encounter seeding failed", "world_id", w.ID, "scene_id", next, "error", err)
		}
	}
	h.logger.Info("scene force-advanced", "world_id", w.ID, "scene_id", next, "round", w.Round)
	return Message{Speaker: DefaultExecutor, Text: narration}, true
}

// maybeNudgeCombat injects a reminder when enemies are up but nothing has
// hurt or healed anyone across the trailing event window.
func (h *Hook) maybeNudgeCombat(ctx context.Context, w *world.World) (Message, bool) {
	enemiesAlive := false
	for _, e := range w.Enemies {
		if e.IsAlive() {
			enemiesAlive = true
			break
		}
	}
	if !enemiesAlive {
		return Message{}, false
	}

	events, err := h.store.RecentEvents(ctx, w.ID, h.nudgeWindow)
	if err != nil {
		return Message{}, false
	}
	for _, ev := range events {
		if ev.Type == world.EventTypeDamage || ev.Type == world.EventTypeHeal {
			return Message{}, false
		}
	}
	return Message{
		Speaker: DefaultExecutor,
		Text:    "[reminder] Enemies are still standing; resolve the fight with attack rolls and apply_damage.",
	}, true
}
