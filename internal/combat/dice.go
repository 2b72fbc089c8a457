// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package combat

import (
	"math/rand"
	"sync"
	"time"
)

// Roll is the outcome of rolling one dice notation. Nat20 and Nat1 are only
// flagged for a single d20 die.
type Roll struct {
	Notation string `json:"notation"`
	Rolls    []int  `json:"rolls"`
	Modifier int    `json:"modifier"`
	Total    int    `json:"total"`
	Nat20    bool   `json:"nat20"`
	Nat1     bool   `json:"nat1"`
}

// Dice rolls dice notation. Implemented by Roller; tests substitute
// scripted implementations to force specific die faces.
type Dice interface {
	Roll(notation string) (Roll, error)
}

// Roller is the production Dice implementation. It is safe for concurrent
// use; outcomes are deterministic given the seed source.
type Roller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRoller creates a roller from the given source. A nil source seeds from
// the current time.
func NewRoller(src rand.Source) *Roller {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Roller{rng: rand.New(src)}
}

// Roll parses the notation and rolls it.
func (r *Roller) Roll(notation string) (Roll, error) {
	spec, err := ParseNotation(notation)
	if err != nil {
		return Roll{}, err
	}
	return r.RollSpec(spec), nil
}

// RollSpec rolls an already-validated spec.
func (r *Roller) RollSpec(spec Spec) Roll {
	r.mu.Lock()
	defer r.mu.Unlock()

	rolls := make([]int, spec.Count)
	total := spec.Modifier
	for i := range rolls {
		rolls[i] = r.rng.Intn(spec.Sides) + 1
		total += rolls[i]
	}
	return Roll{
		Notation: spec.Notation(),
		Rolls:    rolls,
		Modifier: spec.Modifier,
		Total:    total,
		Nat20:    spec.Sides == 20 && spec.Count == 1 && rolls[0] == 20,
		Nat1:     spec.Sides == 20 && spec.Count == 1 && rolls[0] == 1,
	}
}
