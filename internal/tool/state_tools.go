// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package tool

import (
	"context"

	"github.com/moushegh/daid/internal/world"
)

// EndpointState is the in-process endpoint hosting world-mutation tools.
const EndpointState = "state"

// GameArgs addresses a world. An empty game_id falls back to the store's
// most recent running world.
type GameArgs struct {
	GameID string `json:"game_id,omitempty"`
}

// InitGameArgs creates or updates a world.
type InitGameArgs struct {
	GameID          string         `json:"game_id,omitempty"`
	Party           []world.Entity `json:"party,omitempty"`
	Enemies         []world.Entity `json:"enemies,omitempty"`
	SceneID         *int           `json:"scene_id,omitempty"`
	Round           *int           `json:"round,omitempty"`
	NextActor       string         `json:"next_actor,omitempty"`
	InitiativeOrder []string       `json:"initiative_order,omitempty"`
	Flags           map[string]any `json:"flags,omitempty"`
}

// TurnContextArgs fetches the compact turn prompt for an actor.
type TurnContextArgs struct {
	GameID string `json:"game_id,omitempty"`
	Actor  string `json:"actor" jsonschema:"required"`
}

// RecentEventsArgs fetches the trailing slice of the event log.
type RecentEventsArgs struct {
	GameID string `json:"game_id,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// AppendEventArgs records a narrative event.
type AppendEventArgs struct {
	GameID      string         `json:"game_id,omitempty"`
	EventType   string         `json:"event_type,omitempty"`
	Description string         `json:"description,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
}

// ApplyPatchArgs merges fields into the world with optional optimistic
// concurrency.
type ApplyPatchArgs struct {
	GameID          string         `json:"game_id,omitempty"`
	Fields          map[string]any `json:"fields" jsonschema:"required"`
	ExpectedVersion *uint64        `json:"expected_version,omitempty"`
	Reason          string         `json:"reason,omitempty"`
}

// SetSceneArgs transitions the world to a new scene.
type SetSceneArgs struct {
	GameID    string `json:"game_id,omitempty"`
	SceneID   int    `json:"scene_id" jsonschema:"required"`
	Title     string `json:"title,omitempty"`
	Narration string `json:"narration,omitempty"`
	NextActor string `json:"next_actor,omitempty"`
}

// SetEnemiesArgs replaces the enemy roster.
type SetEnemiesArgs struct {
	GameID  string         `json:"game_id,omitempty"`
	Enemies []world.Entity `json:"enemies" jsonschema:"required"`
	Reason  string         `json:"reason,omitempty"`
}

// AdjustHPArgs damages or heals a named entity.
type AdjustHPArgs struct {
	GameID     string `json:"game_id,omitempty"`
	TargetName string `json:"target_name" jsonschema:"required"`
	Amount     int    `json:"amount" jsonschema:"required"`
	Source     string `json:"source,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// EndConditionsArgs evaluates victory and defeat.
type EndConditionsArgs struct {
	GameID   string `json:"game_id,omitempty"`
	BossName string `json:"boss_name,omitempty"`
}

// SetResultArgs force-completes a world with an explicit result.
type SetResultArgs struct {
	GameID  string `json:"game_id,omitempty"`
	Result  string `json:"result" jsonschema:"required"`
	Summary string `json:"summary,omitempty"`
}

// InitiativeArgs replaces the initiative order.
type InitiativeArgs struct {
	GameID          string   `json:"game_id,omitempty"`
	InitiativeOrder []string `json:"initiative_order" jsonschema:"required"`
}

// RegisterStateTools binds the world store's operations as tools on the
// given in-process endpoint and registers their descriptors.
func RegisterStateTools(reg *Registry, t *LocalTransport, store *world.Store) {
	bind := func(name, desc string, args any, h Handler) {
		reg.Register(&Descriptor{
			Name:        name,
			Description: desc,
			Endpoint:    t.Name(),
			Args:        args,
		})
		t.Handle(name, h)
	}

	bind("init_game", "Create a world or merge config into an existing one.", InitGameArgs{},
		func(ctx context.Context, args map[string]any) (any, error) {
			var a InitGameArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return store.Init(ctx, a.GameID, world.InitConfig{
				Party:           a.Party,
				Enemies:         a.Enemies,
				SceneID:         a.SceneID,
				Round:           a.Round,
				NextActor:       optString(a.NextActor),
				InitiativeOrder: a.InitiativeOrder,
				Flags:           a.Flags,
			})
		})

	bind("get_state", "Fetch the full world snapshot.", GameArgs{},
		func(ctx context.Context, args map[string]any) (any, error) {
			var a GameArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return store.Get(ctx, a.GameID)
		})

	bind("get_summary", "Fetch the diagnostic summary of a world.", GameArgs{},
		func(ctx context.Context, args map[string]any) (any, error) {
			var a GameArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return store.Summary(ctx, a.GameID)
		})

	bind("get_turn_context", "Fetch the compact turn context for an actor.", TurnContextArgs{},
		func(ctx context.Context, args map[string]any) (any, error) {
			var a TurnContextArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return store.TurnContext(ctx, a.GameID, a.Actor)
		})

	bind("get_recent_events", "Fetch the trailing events of the world log.", RecentEventsArgs{},
		func(ctx context.Context, args map[string]any) (any, error) {
			var a RecentEventsArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return store.RecentEvents(ctx, a.GameID, a.Limit)
		})

	bind("append_event", "Record a narrative event in the world log.", AppendEventArgs{},
		func(ctx context.Context, args map[string]any) (any, error) {
			var a AppendEventArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			fields := a.Fields
			if a.Description != "" {
				if fields == nil {
					fields = map[string]any{}
				}
				fields["description"] = a.Description
			}
			return store.AppendEvent(ctx, a.GameID, world.Event{
				Type:   world.EventType(a.EventType),
				Fields: fields,
			})
		})

	bind("apply_patch", "Merge fields into the world with optimistic concurrency.", ApplyPatchArgs{},
		func(ctx context.Context, args map[string]any) (any, error) {
			var a ApplyPatchArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return store.ApplyPatch(ctx, a.GameID, a.Fields, a.ExpectedVersion, a.Reason)
		})

	bind("advance_turn", "Advance to the next actor in initiative order.", GameArgs{},
		func(ctx context.Context, args map[string]any) (any, error) {
			var a GameArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return store.AdvanceTurn(ctx, a.GameID)
		})

	bind("set_scene", "Transition the world to a new scene.", SetSceneArgs{},
		func(ctx context.Context, args map[string]any) (any, error) {
			var a SetSceneArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return store.SetScene(ctx, a.GameID, a.SceneID, a.Title, a.Narration, a.NextActor)
		})

	bind("set_enemies", "Replace the enemy roster.", SetEnemiesArgs{},
		func(ctx context.Context, args map[string]any) (any, error) {
			var a SetEnemiesArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return store.SetEnemies(ctx, a.GameID, a.Enemies, a.Reason)
		})

	bind("apply_damage", "Apply damage to a named entity.", AdjustHPArgs{},
		func(ctx context.Context, args map[string]any) (any, error) {
			var a AdjustHPArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return store.ApplyDamage(ctx, a.GameID, a.TargetName, a.Amount, a.Source, a.Reason)
		})

	bind("apply_heal", "Heal a named entity.", AdjustHPArgs{},
		func(ctx context.Context, args map[string]any) (any, error) {
			var a AdjustHPArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return store.ApplyHeal(ctx, a.GameID, a.TargetName, a.Amount, a.Source, a.Reason)
		})

	bind("check_end_conditions", "Evaluate victory and defeat conditions.", EndConditionsArgs{},
		func(ctx context.Context, args map[string]any) (any, error) {
			var a EndConditionsArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return store.CheckEndConditions(ctx, a.GameID, a.BossName)
		})

	bind("set_game_result", "Force-complete a world with an explicit result.", SetResultArgs{},
		func(ctx context.Context, args map[string]any) (any, error) {
			var a SetResultArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return store.SetResult(ctx, a.GameID, world.Result(a.Result), a.Summary)
		})

	bind("update_initiative_order", "Replace the initiative order.", InitiativeArgs{},
		func(ctx context.Context, args map[string]any) (any, error) {
			var a InitiativeArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return store.SetInitiative(ctx, a.GameID, a.InitiativeOrder)
		})
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
