// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/moushegh/daid/internal/logging"
	"github.com/moushegh/daid/internal/tool"
	"github.com/moushegh/daid/internal/world"
)

// Actor produces one turn of text given the transcript so far. The text
// may embed a tool invocation. Implementations are external collaborators;
// the session treats them as opaque.
type Actor interface {
	Name() string
	Generate(ctx context.Context, transcript []Message) (string, error)
}

// DefaultMaxSteps bounds a session so a misbehaving cast cannot spin
// forever; hitting it force-defeats the world.
const DefaultMaxSteps = 400

// Session drives one game to completion: it rotates actors, executes their
// tool calls through the gateway, runs the narrator hook, and stops on a
// terminal result or cancellation.
type Session struct {
	cfg      Config
	store    *world.Store
	gateway  *tool.Gateway
	hook     *Hook
	actors   map[string]Actor
	logger   *slog.Logger
	worldID  string
	maxSteps int

	transcript []Message
	mem        Memory
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithMaxSteps overrides the session step budget.
func WithMaxSteps(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.maxSteps = n
		}
	}
}

// WithSessionLogger sets the logger.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// NewSession wires a session over the given cast. The actor set must cover
// every name in cfg.Actors.
func NewSession(cfg Config, worldID string, store *world.Store, gateway *tool.Gateway, hook *Hook, actors []Actor, opts ...SessionOption) (*Session, error) {
	byName := make(map[string]Actor, len(actors))
	for _, a := range actors {
		byName[a.Name()] = a
	}
	for _, name := range cfg.Actors {
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("no actor provided for %q", name)
		}
	}

	s := &Session{
		cfg:      cfg,
		store:    store,
		gateway:  gateway,
		hook:     hook,
		actors:   byName,
		logger:   slog.Default(),
		worldID:  worldID,
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Bootstrap creates the session's world with the canonical party and
// initiative order and posts the opening instruction. Re-running against
// an existing world only fills gaps.
func (s *Session) Bootstrap(ctx context.Context) error {
	party := DefaultParty()
	scene := 0
	round := 1
	_, err := s.store.Init(ctx, s.worldID, world.InitConfig{
		SceneID:         &scene,
		Round:           &round,
		NextActor:       &s.cfg.Narrator,
		Party:           party,
		InitiativeOrder: DefaultInitiative(s.cfg.Narrator, party),
		Flags:           map[string]any{"adventure": "The Shadow Over Millhaven"},
	})
	if err != nil {
		return err
	}

	s.transcript = append(s.transcript, Message{
		Speaker: DefaultExecutor,
		Text: fmt.Sprintf(
			"The adventure begins in %s. %s sets the scene; party members act on their turn and may call tools.",
			SceneTitle(0), s.cfg.Narrator),
	})
	return nil
}

// Run drives the session until a terminal result, the step budget, or
// context cancellation. Cancellation force-defeats the world so no game is
// left dangling.
func (s *Session) Run(ctx context.Context) (world.Result, error) {
	ctx = logging.WithWorldID(ctx, s.worldID)
	if len(s.transcript) == 0 {
		if err := s.Bootstrap(ctx); err != nil {
			return "", err
		}
	}

	speaker := s.cfg.first()
	for step := 0; step < s.maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return s.abort(err)
		}

		text, err := s.actors[speaker].Generate(ctx, s.transcript)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return s.abort(err)
			}
			s.logger.Warn("actor turn failed, skipping", "actor", speaker, "error", err)
			text = ""
		}
		s.append(Message{Speaker: speaker, Text: text})

		next, result, done, err := s.step(ctx)
		if err != nil {
			return "", err
		}
		if done {
			return result, nil
		}
		speaker = next
	}

	s.logger.Warn("session step budget exhausted", "world_id", s.worldID, "max_steps", s.maxSteps)
	return s.abort(errors.New("step budget exhausted"))
}

// step applies Select decisions until one yields the next speaker or a
// terminal state. Tool executions and hook runs append to the transcript
// and loop back into Select.
func (s *Session) step(ctx context.Context) (string, world.Result, bool, error) {
	for {
		snapshot, err := s.store.Get(ctx, s.worldID)
		if err != nil {
			return "", "", false, err
		}

		d := Select(s.cfg, snapshot, s.transcript, &s.mem)
		switch d.Kind {
		case DecideNextActor:
			if d.Suppressed {
				s.logger.Info("repeated call suppressed", "world_id", s.worldID, "reason", d.Reason)
				s.append(Message{Speaker: DefaultExecutor, Text: "[loop] " + d.Reason})
			}
			return d.NextActor, "", false, nil

		case DecideRunTool:
			s.runTool(ctx, d.Invocation)

		case DecideEndOfTurn:
			hr, err := s.hook.Run(ctx, s.worldID, &s.mem)
			if err != nil {
				return "", "", false, err
			}
			for _, msg := range hr.Messages {
				s.append(msg)
			}
			if hr.Terminate {
				return "", hr.Result, true, nil
			}
			// Hook injections are context, not tool results; the next
			// speaker comes from the world, not from result routing.
			refreshed, err := s.store.Get(ctx, s.worldID)
			if err != nil {
				return "", "", false, err
			}
			return nextFromWorld(s.cfg, refreshed, s.cfg.Narrator), "", false, nil

		case DecideTerminate:
			return "", s.finalResult(ctx, d.Reason), true, nil
		}
	}
}

// runTool executes one invocation through the gateway and relays the
// outcome as a system message addressed back to the caller.
func (s *Session) runTool(ctx context.Context, inv tool.Invocation) {
	caller := s.mem.PendingCaller

	res, err := s.gateway.Call(ctx, caller, inv.Name, inv.Arguments)
	var text string
	switch {
	case err != nil:
		text = fmt.Sprintf("[tool %s failed] %v", inv.Name, err)
	case res.IsError:
		text = fmt.Sprintf("[tool %s refused] %s", inv.Name, res.Text)
	default:
		text = fmt.Sprintf("[tool %s] %s", inv.Name, res.Text)
	}

	if err == nil && !res.IsError &&
		inv.Name == "advance_turn" && strings.EqualFold(caller, s.cfg.Narrator) {
		s.mem.TurnAdvanced = true
	}
	s.append(Message{Speaker: DefaultExecutor, Text: text})
}

// finalResult reads the recorded result after a GAME_OVER line, falling
// back to the line's own text when the world was never closed out.
func (s *Session) finalResult(ctx context.Context, reason string) world.Result {
	if w, err := s.store.Get(ctx, s.worldID); err == nil && w.Result != "" {
		return w.Result
	}
	switch strings.ToUpper(strings.TrimSpace(reason)) {
	case string(world.ResultVictory):
		return world.ResultVictory
	default:
		return world.ResultDefeat
	}
}

// abort force-defeats the world with the failure reason.
func (s *Session) abort(cause error) (world.Result, error) {
	dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.store.ForceDefeat(dctx, s.worldID, cause.Error(), "scheduler"); err != nil {
		s.logger.Error("force defeat failed", "world_id", s.worldID, "error", err)
	}
	return world.ResultDefeat, cause
}

func (s *Session) append(msg Message) {
	s.transcript = append(s.transcript, msg)
	s.logger.Debug("transcript", "speaker", msg.Speaker, "text", msg.Text)
}

// Transcript returns a copy of the session transcript.
func (s *Session) Transcript() []Message {
	out := make([]Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}
