// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package world

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultActor is the canonical fallback actor: the narrator that opens
// every session and receives control whenever no better choice exists.
const DefaultActor = "DungeonMaster"

// defaultFinalScene is the scene id of the last stage of an adventure.
const defaultFinalScene = 2

// Store owns every world. Operations are fully serialized per world: the
// per-world lock is held across the read-compute-persist sequence of one
// mutation and never across a network call. A mutation is applied to a
// private copy and the copy is published only after a successful persist,
// so published worlds are immutable and snapshot reads never observe a
// half-applied or failed mutation.
type Store struct {
	mu        sync.RWMutex
	worlds    map[string]*World
	locks     map[string]*sync.Mutex
	persister Persister

	defaultActor string
	finalScene   int
	logger       *slog.Logger
	metrics      *Metrics
	now          func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithDefaultActor overrides the canonical fallback actor.
func WithDefaultActor(name string) StoreOption {
	return func(s *Store) { s.defaultActor = name }
}

// WithFinalScene overrides the scene id that counts as the adventure's end.
func WithFinalScene(id int) StoreOption {
	return func(s *Store) { s.finalScene = id }
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = logger }
}

// WithMetrics sets the store metrics recorder.
func WithMetrics(m *Metrics) StoreOption {
	return func(s *Store) { s.metrics = m }
}

// NewStore loads all persisted worlds and returns a ready store.
func NewStore(p Persister, opts ...StoreOption) (*Store, error) {
	s := &Store{
		worlds:       make(map[string]*World),
		locks:        make(map[string]*sync.Mutex),
		persister:    p,
		defaultActor: DefaultActor,
		finalScene:   defaultFinalScene,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	worlds, err := p.LoadAll()
	if err != nil {
		return nil, err
	}
	for _, w := range worlds {
		s.worlds[w.ID] = w
		s.locks[w.ID] = &sync.Mutex{}
	}
	return s, nil
}

// InitConfig carries the fields of an Init call. Nil fields are absent and
// never overwrite existing state on re-init.
type InitConfig struct {
	Status          *Status        `json:"status,omitempty"`
	SceneID         *int           `json:"scene_id,omitempty"`
	Round           *int           `json:"round,omitempty"`
	TurnIndex       *int           `json:"turn_index,omitempty"`
	LastActor       *string        `json:"last_actor,omitempty"`
	NextActor       *string        `json:"next_actor,omitempty"`
	Party           []Entity       `json:"party,omitempty"`
	Enemies         []Entity       `json:"enemies,omitempty"`
	InitiativeOrder []string       `json:"initiative_order,omitempty"`
	Flags           map[string]any `json:"flags,omitempty"`
}

// Init creates the world if absent and merges only the supplied fields over
// the existing (or default) state. Idempotent: re-initializing never clears
// fields the config does not name. Init on a completed world fails with a
// terminal-state error; completed worlds are read through Get and Summary.
func (s *Store) Init(ctx context.Context, id string, cfg InitConfig) (*World, error) {
	id = normalizeID(id)
	if id == "" {
		return nil, validationErr("world id is required for init")
	}
	// Ids become file names under the data directory; anything that could
	// escape it is rejected before a world exists.
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return nil, validationErr("world id %q must not contain path elements", id)
	}

	s.ensureWorld(id)

	return s.mutate(ctx, id, "init", false, func(w *World) (bool, error) {
		if cfg.Status != nil {
			w.Status = *cfg.Status
		}
		if w.Status == StatusNew || w.Status == "" {
			w.Status = StatusRunning
		}
		if cfg.SceneID != nil {
			w.SceneID = *cfg.SceneID
		}
		if cfg.Round != nil {
			w.Round = *cfg.Round
		}
		if w.Round == 0 {
			w.Round = 1
		}
		if cfg.TurnIndex != nil {
			w.TurnIndex = *cfg.TurnIndex
		}
		if cfg.LastActor != nil {
			w.LastActor = *cfg.LastActor
		}
		if cfg.NextActor != nil && *cfg.NextActor != "" {
			w.NextActor = *cfg.NextActor
		}
		if w.NextActor == "" {
			w.NextActor = s.defaultActor
		}
		if cfg.Party != nil {
			w.Party = normalizeEntities(cfg.Party)
		}
		if cfg.Enemies != nil {
			w.Enemies = normalizeEntities(cfg.Enemies)
		}
		if cfg.InitiativeOrder != nil {
			w.InitiativeOrder = append([]string(nil), cfg.InitiativeOrder...)
		}
		if cfg.Flags != nil {
			for k, v := range cfg.Flags {
				w.Flags[k] = v
			}
		}
		return true, nil
	})
}

// Get returns a snapshot of the world. An empty id resolves to the most
// recently updated running world, or any world if none is running; this
// fallback is ambiguous under concurrent sessions and deliberately kept as
// documented behavior.
func (s *Store) Get(_ context.Context, id string) (*World, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, err := s.resolveLocked(id)
	if err != nil {
		return nil, err
	}
	return w.clone(), nil
}

// AppendEvent appends an event, assigning an id and a default timestamp if
// absent, and bumps the version.
func (s *Store) AppendEvent(ctx context.Context, id string, ev Event) (*World, error) {
	return s.mutate(ctx, id, "append_event", false, func(w *World) (bool, error) {
		s.appendEventLocked(w, ev)
		return true, nil
	})
}

// protectedFields are managed exclusively by the store and silently skipped
// by ApplyPatch: the version counter, the append-only log, identity, and the
// update timestamp.
var protectedFields = map[string]struct{}{
	"id":         {},
	"version":    {},
	"updated_at": {},
	"event_log":  {},
}

// ApplyPatch merges arbitrary top-level fields into the world document.
// When expected is non-nil and does not match the current version the patch
// fails with a version conflict and nothing is mutated. A non-empty reason
// additionally appends a patch event.
func (s *Store) ApplyPatch(ctx context.Context, id string, fields map[string]any, expected *uint64, reason string) (*World, error) {
	if len(fields) == 0 {
		return nil, validationErr("patch has no fields")
	}
	return s.mutate(ctx, id, "apply_patch", false, func(w *World) (bool, error) {
		if expected != nil && *expected != w.Version {
			if s.metrics != nil {
				s.metrics.VersionConflicts.Inc()
			}
			return false, versionConflictErr(w.ID, *expected, w.Version)
		}

		doc := map[string]any{}
		raw, err := json.Marshal(w)
		if err != nil {
			return false, oops.Wrapf(err, "encode world %s", w.ID)
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return false, oops.Wrapf(err, "decode world %s", w.ID)
		}
		for k, v := range fields {
			if _, protected := protectedFields[k]; protected {
				continue
			}
			doc[k] = v
		}
		merged, err := json.Marshal(doc)
		if err != nil {
			return false, oops.Wrapf(err, "encode patched world %s", w.ID)
		}
		var next World
		if err := json.Unmarshal(merged, &next); err != nil {
			return false, validationErr("patch does not fit the world document: %v", err)
		}
		next.ID = w.ID
		next.Version = w.Version
		next.UpdatedAt = w.UpdatedAt
		next.Events = w.Events
		if next.Flags == nil {
			next.Flags = map[string]any{}
		}
		*w = next

		if reason != "" {
			s.appendEventLocked(w, Event{Type: EventTypePatch, Fields: map[string]any{
				"reason": reason,
				"patch":  fields,
			}})
		}
		return true, nil
	})
}

// SetInitiative replaces the initiative order.
func (s *Store) SetInitiative(ctx context.Context, id string, order []string) (*World, error) {
	return s.mutate(ctx, id, "set_initiative", false, func(w *World) (bool, error) {
		w.InitiativeOrder = append([]string(nil), order...)
		if w.TurnIndex >= len(order) {
			w.TurnIndex = 0
		}
		return true, nil
	})
}

// AdvanceTurn rotates the turn index through the initiative order, setting
// last and next actor. Wrapping around to index 0 increments the round. An
// empty initiative order degenerates to bumping round and turn index only.
func (s *Store) AdvanceTurn(ctx context.Context, id string) (*World, error) {
	return s.mutate(ctx, id, "advance_turn", false, func(w *World) (bool, error) {
		if len(w.InitiativeOrder) == 0 {
			w.TurnIndex++
			w.Round++
			return true, nil
		}
		current := w.TurnIndex
		if current < 0 || current >= len(w.InitiativeOrder) {
			current = 0
		}
		next := (current + 1) % len(w.InitiativeOrder)
		w.LastActor = w.InitiativeOrder[current]
		w.NextActor = w.InitiativeOrder[next]
		w.TurnIndex = next
		if next == 0 {
			w.Round++
		}
		return true, nil
	})
}

// SetScene sets the scene id, stores the title under flags, and hands
// control to nextActor if it is a member of the initiative order (or the
// order is empty); otherwise control falls back to the canonical default
// actor. A non-empty narration appends a scene event.
func (s *Store) SetScene(ctx context.Context, id string, sceneID int, title, narration, nextActor string) (*World, error) {
	return s.mutate(ctx, id, "set_scene", false, func(w *World) (bool, error) {
		w.SceneID = sceneID
		if title != "" {
			w.Flags["scene_title"] = title
		}
		if len(w.InitiativeOrder) == 0 || w.inInitiative(nextActor) {
			w.NextActor = nextActor
		} else {
			w.NextActor = s.defaultActor
		}
		if narration != "" {
			s.appendEventLocked(w, Event{Type: EventTypeScene, Fields: map[string]any{
				"scene_id":    sceneID,
				"scene_title": title,
				"narration":   narration,
			}})
		}
		return true, nil
	})
}

// SetEnemies replaces the enemy collection wholesale. A non-empty reason
// appends an enemies event recording the new count.
func (s *Store) SetEnemies(ctx context.Context, id string, enemies []Entity, reason string) (*World, error) {
	return s.mutate(ctx, id, "set_enemies", false, func(w *World) (bool, error) {
		w.Enemies = normalizeEntities(enemies)
		if reason != "" {
			s.appendEventLocked(w, Event{Type: EventTypeEnemies, Fields: map[string]any{
				"reason": reason,
				"count":  len(w.Enemies),
			}})
		}
		return true, nil
	})
}

// HPReport describes the outcome of a damage or heal mutation.
type HPReport struct {
	Target        string `json:"target"`
	Amount        int    `json:"amount"`
	RemainingHP   int    `json:"remaining_hp"`
	Alive         bool   `json:"alive"`
	Incapacitated bool   `json:"incapacitated"`
	Version       uint64 `json:"version"`
}

// ApplyDamage subtracts up to amount hit points from the named entity,
// clamping at zero, updating the alive and incapacitated flags, and
// appending a damage event with the remaining hit points.
func (s *Store) ApplyDamage(ctx context.Context, id, targetName string, amount int, source, reason string) (HPReport, error) {
	return s.adjustHP(ctx, id, "apply_damage", targetName, amount, source, reason, false)
}

// ApplyHeal restores up to amount hit points to the named entity, clamping
// at max HP. Healing an incapacitated entity revives it.
func (s *Store) ApplyHeal(ctx context.Context, id, targetName string, amount int, source, reason string) (HPReport, error) {
	return s.adjustHP(ctx, id, "apply_heal", targetName, amount, source, reason, true)
}

func (s *Store) adjustHP(ctx context.Context, id, op, targetName string, amount int, source, reason string, heal bool) (HPReport, error) {
	if strings.TrimSpace(targetName) == "" {
		return HPReport{}, validationErr("target name is required")
	}
	var report HPReport
	after, err := s.mutate(ctx, id, op, false, func(w *World) (bool, error) {
		target := w.FindEntity(targetName)
		if target == nil {
			return false, notFoundErr("entity", targetName)
		}
		delta := clampAmount(amount)
		if heal {
			target.CurrentHP = min(target.MaxHP, target.CurrentHP+delta)
		} else {
			target.CurrentHP = max(0, target.CurrentHP-delta)
		}
		target.Alive = target.CurrentHP > 0
		target.Incapacitated = target.CurrentHP <= 0

		evType := EventTypeDamage
		if heal {
			evType = EventTypeHeal
		}
		s.appendEventLocked(w, Event{Type: evType, Fields: map[string]any{
			"target":       target.Name,
			"amount":       delta,
			"source":       source,
			"reason":       reason,
			"remaining_hp": target.CurrentHP,
		}})

		report = HPReport{
			Target:        target.Name,
			Amount:        delta,
			RemainingHP:   target.CurrentHP,
			Alive:         target.Alive,
			Incapacitated: target.Incapacitated,
		}
		return true, nil
	})
	if err != nil {
		return HPReport{}, err
	}
	report.Version = after.Version
	return report, nil
}

// EndReport is the outcome of an end-condition evaluation.
type EndReport struct {
	Ended   bool   `json:"ended"`
	Result  Result `json:"result"`
	Summary string `json:"summary"`
}

// CheckEndConditions evaluates the terminal conditions: DEFEAT when no party
// member is alive, VICTORY when the world is at the final scene and the boss
// (or all enemies, when no name matches) is down. The status transition and
// the single game_over event happen in the same critical section as the
// check, so concurrent evaluations append exactly one event.
func (s *Store) CheckEndConditions(ctx context.Context, id, bossName string) (EndReport, error) {
	var report EndReport
	_, err := s.mutate(ctx, id, "check_end_conditions", true, func(w *World) (bool, error) {
		if w.Completed() {
			report = EndReport{Ended: true, Result: w.Result}
			return false, nil
		}
		report = s.evaluateEnd(w, bossName)
		if !report.Ended {
			return false, nil
		}
		w.Status = StatusCompleted
		w.Result = report.Result
		s.appendEventLocked(w, Event{Type: EventTypeGameOver, Fields: map[string]any{
			"result":  string(report.Result),
			"summary": report.Summary,
			"source":  "check_end_conditions",
		}})
		return true, nil
	})
	if err != nil {
		return EndReport{}, err
	}
	return report, nil
}

func (s *Store) evaluateEnd(w *World, bossName string) EndReport {
	if !w.PartyAlive() {
		return EndReport{Ended: true, Result: ResultDefeat, Summary: "All party members are down."}
	}
	if w.SceneID < s.finalScene || len(w.Enemies) == 0 {
		return EndReport{}
	}
	bossAlive := false
	matched := false
	for i := range w.Enemies {
		if strings.EqualFold(w.Enemies[i].Name, bossName) {
			matched = true
			if w.Enemies[i].IsAlive() {
				bossAlive = true
			}
		}
	}
	if !matched {
		for i := range w.Enemies {
			if w.Enemies[i].IsAlive() {
				bossAlive = true
			}
		}
	}
	if bossAlive {
		return EndReport{}
	}
	return EndReport{Ended: true, Result: ResultVictory, Summary: "The final boss is defeated."}
}

// SetResult records an explicit terminal outcome. Idempotent: a world that
// is already completed is returned unchanged with no extra game_over event.
func (s *Store) SetResult(ctx context.Context, id string, result Result, summary string) (*World, error) {
	if result != ResultVictory && result != ResultDefeat {
		return nil, validationErr("result must be VICTORY or DEFEAT, got %q", result)
	}
	return s.mutate(ctx, id, "set_result", true, func(w *World) (bool, error) {
		if w.Completed() {
			return false, nil
		}
		w.Status = StatusCompleted
		w.Result = result
		s.appendEventLocked(w, Event{Type: EventTypeGameOver, Fields: map[string]any{
			"result":  string(result),
			"summary": summary,
			"source":  "set_result",
		}})
		return true, nil
	})
}

// ForceDefeat terminates a world that can no longer make progress, recording
// the reason and the component that declared termination. Used for
// cooperative cancellation and crash recovery; idempotent on completed
// worlds.
func (s *Store) ForceDefeat(ctx context.Context, id, reason, source string) error {
	_, err := s.mutate(ctx, id, "force_defeat", true, func(w *World) (bool, error) {
		if w.Completed() {
			return false, nil
		}
		w.Status = StatusCompleted
		w.Result = ResultDefeat
		s.appendEventLocked(w, Event{Type: EventTypeGameOver, Fields: map[string]any{
			"result":  string(ResultDefeat),
			"summary": reason,
			"source":  source,
		}})
		return true, nil
	})
	return err
}

// Reconcile force-completes every non-terminal world. Called on startup: a
// partially completed session cannot be safely resumed, so anything still
// marked running is closed out as a DEFEAT with a reconciliation tag.
// Returns the number of worlds reconciled.
func (s *Store) Reconcile(ctx context.Context, source string) (int, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.worlds))
	for id, w := range s.worlds {
		if !w.Completed() {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	for _, id := range ids {
		if err := s.ForceDefeat(ctx, id, "reconciled after restart: session was not terminal", source); err != nil {
			return 0, err
		}
		if s.metrics != nil {
			s.metrics.Reconciliations.Inc()
		}
		s.logger.Warn("reconciled stale world to terminal state", "world_id", id, "source", source)
	}
	return len(ids), nil
}

// mutate runs fn on a copy of the identified world under its lock, then
// bumps the version, stamps the update time, persists the copy, and
// publishes it, but only when fn reports that it mutated the world. On any
// failure the published world is untouched.
func (s *Store) mutate(ctx context.Context, id, op string, allowTerminal bool, fn func(*World) (bool, error)) (*World, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.Wrapf(err, "%s cancelled", op)
	}

	s.mu.RLock()
	w, err := s.resolveLocked(id)
	var lock *sync.Mutex
	if err == nil {
		lock = s.locks[w.ID]
	}
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	lock.Lock()
	defer lock.Unlock()

	// Re-read the published pointer: another mutation may have swapped it
	// between resolving and acquiring the per-world lock.
	s.mu.RLock()
	w = s.worlds[w.ID]
	s.mu.RUnlock()

	if !allowTerminal && w.Completed() {
		return nil, terminalStateErr(w.ID, w.Result)
	}

	next := w.clone()
	mutated, err := fn(next)
	if err != nil {
		return nil, err
	}
	if !mutated {
		return next, nil
	}

	next.Version++
	next.UpdatedAt = s.now().UTC()
	if err := s.persister.Save(next); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.worlds[next.ID] = next
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.Mutations.WithLabelValues(op).Inc()
	}
	s.logger.Debug("world mutated", "world_id", next.ID, "op", op, "version", next.Version)
	return next.clone(), nil
}

// ensureWorld creates the in-memory skeleton for a new world id.
func (s *Store) ensureWorld(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.worlds[id]; ok {
		return
	}
	s.worlds[id] = &World{
		ID:        id,
		Status:    StatusNew,
		NextActor: s.defaultActor,
		Party:     []Entity{},
		Enemies:   []Entity{},
		Flags:     map[string]any{},
		Events:    []Event{},
		UpdatedAt: s.now().UTC(),
	}
	s.locks[id] = &sync.Mutex{}
}

// resolveLocked maps an id (possibly empty) to a live world. Caller holds
// at least the read lock.
func (s *Store) resolveLocked(id string) (*World, error) {
	id = normalizeID(id)
	if id != "" {
		w, ok := s.worlds[id]
		if !ok {
			return nil, notFoundErr("world", id)
		}
		return w, nil
	}

	var best *World
	for _, w := range s.worlds {
		if w.Status != StatusRunning {
			continue
		}
		if best == nil || w.UpdatedAt.After(best.UpdatedAt) {
			best = w
		}
	}
	if best == nil {
		for _, w := range s.worlds {
			if best == nil || w.UpdatedAt.After(best.UpdatedAt) {
				best = w
			}
		}
	}
	if best == nil {
		return nil, notFoundErr("world", "(latest)")
	}
	return best, nil
}

func (s *Store) appendEventLocked(w *World, ev Event) {
	if ev.ID.Compare(ulid.ULID{}) == 0 {
		ev.ID = ulid.Make()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.now().UTC()
	}
	if ev.Type == "" {
		ev.Type = EventTypeNote
	}
	w.Events = append(w.Events, ev)
}

// normalizeID trims whitespace and one layer of stray quoting that sloppy
// callers tend to wrap ids in.
func normalizeID(id string) string {
	id = strings.TrimSpace(id)
	for _, q := range []string{`"`, `'`} {
		if len(id) >= 2 && strings.HasPrefix(id, q) && strings.HasSuffix(id, q) {
			id = strings.TrimSpace(id[1 : len(id)-1])
		}
	}
	return id
}

// normalizeEntities repairs the derived entity fields so the HP invariants
// hold no matter what the caller supplied.
func normalizeEntities(in []Entity) []Entity {
	out := make([]Entity, len(in))
	copy(out, in)
	for i := range out {
		if out[i].MaxHP < 0 {
			out[i].MaxHP = 0
		}
		if out[i].CurrentHP > out[i].MaxHP {
			out[i].CurrentHP = out[i].MaxHP
		}
		if out[i].CurrentHP < 0 {
			out[i].CurrentHP = 0
		}
		out[i].Alive = out[i].CurrentHP > 0
		out[i].Incapacitated = out[i].CurrentHP <= 0
	}
	return out
}

func clampAmount(amount int) int {
	if amount < 0 {
		return -amount
	}
	return amount
}
