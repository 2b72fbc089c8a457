// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package world

import "context"

// Summary is the read-only diagnostic view of a world, for the
// administrative surface. It never exposes mutable references.
type Summary struct {
	ID           string `json:"id"`
	Status       Status `json:"status"`
	Result       Result `json:"result"`
	SceneID      int    `json:"scene_id"`
	Round        int    `json:"round"`
	NextActor    string `json:"next_actor"`
	Version      uint64 `json:"version"`
	EventCount   int    `json:"event_count"`
	PartyAlive   int    `json:"party_alive"`
	PartyTotal   int    `json:"party_total"`
	EnemiesAlive int    `json:"enemies_alive"`
	EnemiesTotal int    `json:"enemies_total"`
}

// Summary returns the diagnostic summary of a world.
func (s *Store) Summary(ctx context.Context, id string) (Summary, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{
		ID:           w.ID,
		Status:       w.Status,
		Result:       w.Result,
		SceneID:      w.SceneID,
		Round:        w.Round,
		NextActor:    w.NextActor,
		Version:      w.Version,
		EventCount:   len(w.Events),
		PartyTotal:   len(w.Party),
		EnemiesTotal: len(w.Enemies),
	}
	for i := range w.Party {
		if w.Party[i].IsAlive() {
			sum.PartyAlive++
		}
	}
	for i := range w.Enemies {
		if w.Enemies[i].IsAlive() {
			sum.EnemiesAlive++
		}
	}
	return sum, nil
}

// IDs returns every known world id, for diagnostics.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.worlds))
	for id := range s.worlds {
		ids = append(ids, id)
	}
	return ids
}

// TurnContext is the per-turn digest an actor reads before acting.
type TurnContext struct {
	WorldID      string         `json:"world_id"`
	Actor        string         `json:"actor"`
	Version      uint64         `json:"version"`
	SceneID      int            `json:"scene_id"`
	Round        int            `json:"round"`
	TurnIndex    int            `json:"turn_index"`
	LastActor    string         `json:"last_actor"`
	NextActor    string         `json:"next_actor"`
	Party        []Entity       `json:"party"`
	Enemies      []Entity       `json:"enemies"`
	Flags        map[string]any `json:"flags"`
	RecentEvents []Event        `json:"recent_events"`
}

// turnContextEvents is how many trailing events a turn context includes.
const turnContextEvents = 5

// TurnContext returns the digest of the world the named actor needs at the
// start of its turn.
func (s *Store) TurnContext(ctx context.Context, id, actor string) (TurnContext, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return TurnContext{}, err
	}
	return TurnContext{
		WorldID:      w.ID,
		Actor:        actor,
		Version:      w.Version,
		SceneID:      w.SceneID,
		Round:        w.Round,
		TurnIndex:    w.TurnIndex,
		LastActor:    w.LastActor,
		NextActor:    w.NextActor,
		Party:        w.Party,
		Enemies:      w.Enemies,
		Flags:        w.Flags,
		RecentEvents: tailEvents(w.Events, turnContextEvents),
	}, nil
}

// RecentEvents returns the last limit events; limit is clamped to [1, 100].
func (s *Store) RecentEvents(ctx context.Context, id string, limit int) ([]Event, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}
	return tailEvents(w.Events, limit), nil
}

func tailEvents(events []Event, n int) []Event {
	if len(events) <= n {
		return events
	}
	return events[len(events)-n:]
}
