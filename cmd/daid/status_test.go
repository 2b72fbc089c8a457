// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moushegh/daid/internal/world"
)

func seedWorld(t *testing.T, dir string) {
	t.Helper()
	persister, err := world.NewFilePersister(dir)
	require.NoError(t, err)
	store, err := world.NewStore(persister)
	require.NoError(t, err)
	_, err = store.Init(context.Background(), "crypt", world.InitConfig{
		Party: []world.Entity{
			{Name: "Thorin", MaxHP: 28, CurrentHP: 28},
		},
		Enemies: []world.Entity{
			{Name: "Skeleton", MaxHP: 13, CurrentHP: 13},
		},
		InitiativeOrder: []string{"DungeonMaster", "Thorin"},
	})
	require.NoError(t, err)
}

func TestStatus_JSONOutput(t *testing.T) {
	dir := t.TempDir()
	seedWorld(t, dir)

	out := &bytes.Buffer{}
	cmd := newStatusCmd()
	cmd.SetOut(out)
	cmd.SetContext(context.Background())

	err := runStatus(cmd, &statusConfig{jsonOutput: true, dataDir: dir})
	require.NoError(t, err)

	var summaries []world.Summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "crypt", summaries[0].ID)
	assert.Equal(t, world.StatusRunning, summaries[0].Status)
	assert.Equal(t, 1, summaries[0].PartyAlive)
	assert.Equal(t, 1, summaries[0].EnemiesAlive)
}

func TestStatus_TableOutput(t *testing.T) {
	dir := t.TempDir()
	seedWorld(t, dir)

	out := &bytes.Buffer{}
	cmd := newStatusCmd()
	cmd.SetOut(out)
	cmd.SetContext(context.Background())

	err := runStatus(cmd, &statusConfig{dataDir: dir})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "WORLD")
	assert.Contains(t, out.String(), "crypt")
	assert.Contains(t, out.String(), "running")
}

func TestStatus_EmptyDataDir(t *testing.T) {
	out := &bytes.Buffer{}
	cmd := newStatusCmd()
	cmd.SetOut(out)
	cmd.SetContext(context.Background())

	err := runStatus(cmd, &statusConfig{dataDir: t.TempDir()})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "no worlds found")
}
