// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

// Package world owns the authoritative, versioned, event-sourced state of
// every game session. All mutations go through the Store, which serializes
// them per world and persists each world document by atomic replace.
package world

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Status is the lifecycle state of a world.
type Status string

const (
	StatusNew       Status = "new"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
)

// Result is the terminal outcome of a completed world.
type Result string

const (
	ResultNone    Result = ""
	ResultVictory Result = "VICTORY"
	ResultDefeat  Result = "DEFEAT"
)

// EventType identifies the kind of event.
type EventType string

const (
	EventTypeDamage   EventType = "damage"
	EventTypeHeal     EventType = "heal"
	EventTypeScene    EventType = "scene"
	EventTypePatch    EventType = "patch"
	EventTypeEnemies  EventType = "enemies"
	EventTypeGameOver EventType = "game_over"
	EventTypeNote     EventType = "note"
)

// Event is one entry in a world's append-only log. Fields holds the
// type-specific payload (target, amount, reason, ...).
type Event struct {
	ID        ulid.ULID      `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Entity is a character or monster. Names are unique within their
// collection, compared case-insensitively. Equipment and ability lists are
// opaque to the store beyond name lookup.
type Entity struct {
	Name             string   `json:"name"`
	Class            string   `json:"char_class,omitempty"`
	Race             string   `json:"race,omitempty"`
	Level            int      `json:"level,omitempty"`
	Strength         int      `json:"strength"`
	Dexterity        int      `json:"dexterity"`
	Constitution     int      `json:"constitution"`
	Intelligence     int      `json:"intelligence"`
	Wisdom           int      `json:"wisdom"`
	Charisma         int      `json:"charisma"`
	MaxHP            int      `json:"max_hp"`
	CurrentHP        int      `json:"current_hp"`
	ArmorClass       int      `json:"armor_class"`
	ProficiencyBonus int      `json:"proficiency_bonus,omitempty"`
	Alive            bool     `json:"alive"`
	Incapacitated    bool     `json:"incapacitated"`
	Conditions       []string `json:"conditions,omitempty"`
	IsPlayer         bool     `json:"is_player,omitempty"`
	Weapons          []string `json:"weapons,omitempty"`
	Spells           []string `json:"spells,omitempty"`
	Abilities        []string `json:"abilities,omitempty"`
	Inventory        []string `json:"inventory,omitempty"`
}

// IsAlive reports whether the entity is up: alive flag not cleared and
// positive hit points.
func (e *Entity) IsAlive() bool {
	return e.Alive && e.CurrentHP > 0
}

// AbilityScore returns the named ability score, or 10 when unknown.
func (e *Entity) AbilityScore(ability string) int {
	switch strings.ToLower(strings.TrimSpace(ability)) {
	case "strength", "str":
		return e.Strength
	case "dexterity", "dex":
		return e.Dexterity
	case "constitution", "con":
		return e.Constitution
	case "intelligence", "int":
		return e.Intelligence
	case "wisdom", "wis":
		return e.Wisdom
	case "charisma", "cha":
		return e.Charisma
	default:
		return 10
	}
}

// World is the persisted record of one game session.
type World struct {
	ID              string         `json:"id"`
	Status          Status         `json:"status"`
	SceneID         int            `json:"scene_id"`
	Round           int            `json:"round"`
	TurnIndex       int            `json:"turn_index"`
	LastActor       string         `json:"last_actor"`
	NextActor       string         `json:"next_actor"`
	Party           []Entity       `json:"party"`
	Enemies         []Entity       `json:"enemies"`
	InitiativeOrder []string       `json:"initiative_order"`
	Flags           map[string]any `json:"flags"`
	Events          []Event        `json:"event_log"`
	Result          Result         `json:"result"`
	Version         uint64         `json:"version"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Completed reports whether the world reached a terminal state.
func (w *World) Completed() bool {
	return w.Status == StatusCompleted
}

// FindEntity locates an entity by case-insensitive name, searching the party
// first and then the enemies. Returns nil when no entity matches.
func (w *World) FindEntity(name string) *Entity {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return nil
	}
	for i := range w.Party {
		if strings.ToLower(w.Party[i].Name) == want {
			return &w.Party[i]
		}
	}
	for i := range w.Enemies {
		if strings.ToLower(w.Enemies[i].Name) == want {
			return &w.Enemies[i]
		}
	}
	return nil
}

// PartyAlive reports whether any party member is still up.
func (w *World) PartyAlive() bool {
	for i := range w.Party {
		if w.Party[i].IsAlive() {
			return true
		}
	}
	return false
}

// inInitiative reports whether name is a member of the initiative order.
func (w *World) inInitiative(name string) bool {
	for _, n := range w.InitiativeOrder {
		if n == name {
			return true
		}
	}
	return false
}

// clone returns a deep copy so snapshots never alias store-owned memory.
func (w *World) clone() *World {
	cp := *w
	cp.Party = append([]Entity(nil), w.Party...)
	cp.Enemies = append([]Entity(nil), w.Enemies...)
	cp.InitiativeOrder = append([]string(nil), w.InitiativeOrder...)
	cp.Events = append([]Event(nil), w.Events...)
	cp.Flags = make(map[string]any, len(w.Flags))
	for k, v := range w.Flags {
		cp.Flags[k] = v
	}
	for i := range cp.Party {
		cp.Party[i].Conditions = append([]string(nil), w.Party[i].Conditions...)
	}
	for i := range cp.Enemies {
		cp.Enemies[i].Conditions = append([]string(nil), w.Enemies[i].Conditions...)
	}
	return &cp
}
