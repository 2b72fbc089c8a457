// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package tool

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moushegh/daid/internal/combat"
	"github.com/moushegh/daid/internal/world"
)

// newSessionGateway wires a full in-process session: store, combat engine,
// and script endpoints behind one gateway, the way the session runner does.
func newSessionGateway(t *testing.T) (*Gateway, *world.Store) {
	t.Helper()

	store, err := world.NewStore(world.NewMemoryPersister())
	require.NoError(t, err)

	reg := NewRegistry()
	state := NewLocalTransport(EndpointState)
	RegisterStateTools(reg, state, store)
	engine := NewLocalTransport(EndpointCombat)
	RegisterCombatTools(reg, engine, combat.NewRoller(rand.NewSource(11)))
	script := NewScriptTransport(EndpointScript)
	RegisterScriptTools(reg, script)

	g := NewGateway(reg, Sanitizer{DefaultGameID: "session"}, []Transport{state, engine, script})
	t.Cleanup(func() { _ = g.Close() })

	_, err = store.Init(context.Background(), "session", world.InitConfig{
		Party: []world.Entity{
			{Name: "Thorin", MaxHP: 28, CurrentHP: 28, ArmorClass: 16, Strength: 16},
		},
		Enemies: []world.Entity{
			{Name: "Skeleton", MaxHP: 13, CurrentHP: 13, ArmorClass: 13},
		},
		InitiativeOrder: []string{"DungeonMaster", "Thorin"},
	})
	require.NoError(t, err)
	return g, store
}

func TestStateTools_DamageRoundTrip(t *testing.T) {
	g, store := newSessionGateway(t)
	ctx := context.Background()

	res, err := g.Call(ctx, "dm", "apply_damage", map[string]any{
		"target": "skeleton",
		"amount": float64(-5),
		"source": "Thorin",
	})
	require.NoError(t, err)
	require.False(t, res.IsError, res.Text)
	assert.Equal(t, float64(8), res.Data["remaining_hp"], "alias, sign, and case all repaired")

	w, err := store.Get(ctx, "session")
	require.NoError(t, err)
	enemy := w.FindEntity("Skeleton")
	require.NotNil(t, enemy)
	assert.Equal(t, 8, enemy.CurrentHP)
}

func TestStateTools_DomainErrorIsInBand(t *testing.T) {
	g, _ := newSessionGateway(t)

	res, err := g.Call(context.Background(), "dm", "apply_damage", map[string]any{
		"target_name": "Nobody",
		"amount":      3,
	})
	require.NoError(t, err, "domain errors are relayed, not transport failures")
	assert.True(t, res.IsError)
	assert.Contains(t, res.Text, "Nobody")
}

func TestStateTools_AdvanceTurnAndScene(t *testing.T) {
	g, store := newSessionGateway(t)
	ctx := context.Background()

	res, err := g.Call(ctx, "dm", "advance_turn", map[string]any{})
	require.NoError(t, err)
	require.False(t, res.IsError, res.Text)
	assert.Equal(t, "Thorin", res.Data["next_actor"])

	res, err = g.Call(ctx, "dm", "set_scene", map[string]any{
		"scene_id":  float64(1),
		"title":     "Crypt Entrance",
		"narration": "The doors groan open.",
	})
	require.NoError(t, err)
	require.False(t, res.IsError, res.Text)

	w, err := store.Get(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, w.SceneID)
	assert.Equal(t, "Crypt Entrance", w.Flags["scene_title"])
}

func TestStateTools_EndToEndRollParse(t *testing.T) {
	g, _ := newSessionGateway(t)

	inv, res, found, err := g.CallText(context.Background(), "Thorin",
		`Use tool: {"name":"roll","parameters":{"notation":"2d6+3"}}`)
	require.NoError(t, err)
	require.True(t, found)
	require.False(t, res.IsError, res.Text)

	assert.Equal(t, "roll", inv.Name)
	assert.Equal(t, map[string]any{"notation": "2d6+3"}, inv.Arguments)
	assert.Equal(t, "2d6+3", res.Data["notation"])
	total := res.Data["total"].(float64)
	assert.GreaterOrEqual(t, total, float64(5))
	assert.LessOrEqual(t, total, float64(15))
}

func TestStateTools_SetResultAndTerminalGuard(t *testing.T) {
	g, _ := newSessionGateway(t)
	ctx := context.Background()

	res, err := g.Call(ctx, "dm", "set_game_result", map[string]any{
		"result":  "victory",
		"summary": "The Shadow Lord falls.",
	})
	require.NoError(t, err)
	require.False(t, res.IsError, res.Text)
	assert.Equal(t, "VICTORY", res.Data["result"])

	res, err = g.Call(ctx, "dm", "advance_turn", map[string]any{})
	require.NoError(t, err)
	assert.True(t, res.IsError, "mutating a completed world is refused in-band")
}

func TestStateTools_InitiativeFromString(t *testing.T) {
	g, store := newSessionGateway(t)
	ctx := context.Background()

	res, err := g.Call(ctx, "dm", "update_initiative_order", map[string]any{
		"initiative_order": "Thorin, DungeonMaster",
	})
	require.NoError(t, err)
	require.False(t, res.IsError, res.Text)

	w, err := store.Get(ctx, "session")
	require.NoError(t, err)
	assert.Equal(t, []string{"Thorin", "DungeonMaster"}, w.InitiativeOrder)
}

func TestCombatTools_AttackThroughGateway(t *testing.T) {
	g, _ := newSessionGateway(t)

	res, err := g.Call(context.Background(), "Thorin", "attack", map[string]any{
		"attacker": map[string]any{
			"name": "Thorin", "strength": float64(16), "proficiency_bonus": float64(2),
			"max_hp": float64(28), "current_hp": float64(28), "alive": true,
		},
		"target": map[string]any{
			"name": "Skeleton", "armor_class": float64(13),
			"max_hp": float64(13), "current_hp": float64(13), "alive": true,
		},
		"weapon": map[string]any{"name": "longsword", "damage_dice": "1d8"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError, res.Text)
	assert.Equal(t, "Thorin", res.Data["attacker"])
	assert.Equal(t, "Skeleton", res.Data["target"])
	assert.Contains(t, res.Data, "hit")
}
