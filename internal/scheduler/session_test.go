// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package scheduler

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/moushegh/daid/internal/combat"
	"github.com/moushegh/daid/internal/tool"
	"github.com/moushegh/daid/internal/world"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedActor replays a fixed set of lines, repeating the last one if
// the session outlives the script.
type scriptedActor struct {
	name  string
	lines []string
	pos   int
}

func (a *scriptedActor) Name() string { return a.name }

func (a *scriptedActor) Generate(ctx context.Context, _ []Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	i := a.pos
	if i >= len(a.lines) {
		i = len(a.lines) - 1
	} else {
		a.pos++
	}
	return a.lines[i], nil
}

func newTestSession(t *testing.T, actors []Actor, opts ...SessionOption) (*Session, *world.Store) {
	t.Helper()

	store, err := world.NewStore(world.NewMemoryPersister())
	require.NoError(t, err)

	reg := tool.NewRegistry()
	state := tool.NewLocalTransport(tool.EndpointState)
	tool.RegisterStateTools(reg, state, store)
	engine := tool.NewLocalTransport(tool.EndpointCombat)
	tool.RegisterCombatTools(reg, engine, combat.NewRoller(rand.NewSource(7)))
	script := tool.NewScriptTransport(tool.EndpointScript)
	tool.RegisterScriptTools(reg, script)

	gateway := tool.NewGateway(reg, tool.Sanitizer{DefaultGameID: "millhaven"},
		[]tool.Transport{state, engine, script})
	t.Cleanup(func() { _ = gateway.Close() })

	cfg := Config{Narrator: "DungeonMaster", Actors: []string{"DungeonMaster", "Thorin"}}
	sess, err := NewSession(cfg, "millhaven", store, gateway, NewHook(store), actors, opts...)
	require.NoError(t, err)
	return sess, store
}

func transcriptContains(t *testing.T, sess *Session, fragment string) bool {
	t.Helper()
	for _, m := range sess.Transcript() {
		if strings.Contains(m.Text, fragment) {
			return true
		}
	}
	return false
}

func TestSession_RunsToVictory(t *testing.T) {
	dm := &scriptedActor{name: "DungeonMaster", lines: []string{
		`The chamber opens. Use tool: {"name":"set_scene","arguments":{"scene_id":2,"title":"The Shadow Lord's Chamber","next_actor":"DungeonMaster"}}`,
		`Use tool: {"name":"set_enemies","arguments":{"enemies":[{"name":"Shadow Lord","max_hp":55,"current_hp":3,"armor_class":15}],"reason":"the boss emerges"}}`,
		`Use tool: {"name":"apply_damage","arguments":{"target":"Shadow Lord","amount":5}}`,
		`The Shadow Lord crumbles to dust.`,
	}}
	thorin := &scriptedActor{name: "Thorin", lines: []string{"I stand ready."}}

	sess, store := newTestSession(t, []Actor{dm, thorin})
	result, err := sess.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, world.ResultVictory, result)

	w, err := store.Get(context.Background(), "millhaven")
	require.NoError(t, err)
	assert.True(t, w.Completed())
	assert.Equal(t, world.ResultVictory, w.Result)
	assert.Equal(t, 2, w.SceneID)

	boss := w.FindEntity(BossName)
	require.NotNil(t, boss)
	assert.False(t, boss.IsAlive())

	assert.True(t, transcriptContains(t, sess, "GAME_OVER: VICTORY"))
}

func TestSession_LoopSuppressionHandsControlToNarrator(t *testing.T) {
	roll := `Use tool: {"name":"roll","parameters":{"notation":"1d20"}}`
	dm := &scriptedActor{name: "DungeonMaster", lines: []string{
		"You stand before the crypt door.",
		"GAME_OVER: DEFEAT - the party loses its nerve and flees.",
	}}
	thorin := &scriptedActor{name: "Thorin", lines: []string{roll, roll, roll, roll}}

	sess, _ := newTestSession(t, []Actor{dm, thorin})
	result, err := sess.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, world.ResultDefeat, result)

	assert.True(t, transcriptContains(t, sess, "[loop]"),
		"the fourth identical roll is suppressed")
	assert.True(t, transcriptContains(t, sess, "[tool roll]"),
		"earlier rolls executed normally")
}

func TestSession_CancellationForcesDefeat(t *testing.T) {
	dm := &scriptedActor{name: "DungeonMaster", lines: []string{"The wind howls."}}
	thorin := &scriptedActor{name: "Thorin", lines: []string{"I wait."}}

	sess, store := newTestSession(t, []Actor{dm, thorin})
	require.NoError(t, sess.Bootstrap(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := sess.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, world.ResultDefeat, result)

	w, err := store.Get(context.Background(), "millhaven")
	require.NoError(t, err)
	assert.True(t, w.Completed())
	assert.Equal(t, world.ResultDefeat, w.Result)
}

func TestSession_StepBudgetForcesDefeat(t *testing.T) {
	dm := &scriptedActor{name: "DungeonMaster", lines: []string{"The wind howls."}}
	thorin := &scriptedActor{name: "Thorin", lines: []string{"I wait."}}

	sess, store := newTestSession(t, []Actor{dm, thorin}, WithMaxSteps(5))
	result, err := sess.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step budget")
	assert.Equal(t, world.ResultDefeat, result)

	w, err := store.Get(context.Background(), "millhaven")
	require.NoError(t, err)
	assert.True(t, w.Completed())
}

func TestNewSession_RejectsMissingActor(t *testing.T) {
	store, err := world.NewStore(world.NewMemoryPersister())
	require.NoError(t, err)

	cfg := Config{Narrator: "DungeonMaster", Actors: []string{"DungeonMaster", "Thorin"}}
	dm := &scriptedActor{name: "DungeonMaster", lines: []string{"..."}}

	_, err = NewSession(cfg, "millhaven", store, nil, NewHook(store), []Actor{dm})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Thorin")
}
