// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package tool

import (
	"context"

	"github.com/moushegh/daid/internal/combat"
)

// EndpointCombat is the in-process endpoint hosting the rules engine.
const EndpointCombat = "combat"

// RollArgs rolls dice notation. Purpose is a free-text label carried
// through to the result for the narrative log.
type RollArgs struct {
	Notation string `json:"notation" jsonschema:"required"`
	Purpose  string `json:"purpose,omitempty"`
}

// RollReport is the roll result with its purpose echoed back.
type RollReport struct {
	combat.Roll
	Purpose string `json:"purpose,omitempty"`
}

// AttackArgs resolves a weapon attack between two combatants.
type AttackArgs struct {
	Attacker combat.Combatant `json:"attacker" jsonschema:"required"`
	Target   combat.Combatant `json:"target" jsonschema:"required"`
	Weapon   combat.Weapon    `json:"weapon,omitempty"`
}

// CastSpellArgs resolves a spell cast.
type CastSpellArgs struct {
	Caster combat.Combatant `json:"caster" jsonschema:"required"`
	Spell  combat.Spell     `json:"spell" jsonschema:"required"`
	Target combat.Combatant `json:"target,omitempty"`
}

// CheckArgs resolves an ability check or saving throw.
type CheckArgs struct {
	Combatant combat.Combatant `json:"combatant" jsonschema:"required"`
	Ability   string           `json:"ability" jsonschema:"required"`
	DC        int              `json:"dc"`
	Bonus     int              `json:"bonus,omitempty"`
}

// InitiativeRollArgs rolls initiative for a set of combatants.
type InitiativeRollArgs struct {
	Combatants []combat.Combatant `json:"combatants" jsonschema:"required"`
}

// RegisterCombatTools binds the rules engine as tools on the given
// in-process endpoint and registers their descriptors.
func RegisterCombatTools(reg *Registry, t *LocalTransport, dice combat.Dice) {
	bind := func(name, desc string, args any, h Handler) {
		reg.Register(&Descriptor{
			Name:        name,
			Description: desc,
			Endpoint:    t.Name(),
			Args:        args,
		})
		t.Handle(name, h)
	}

	bind("roll", "Roll dice notation such as 2d6+3.", RollArgs{},
		func(_ context.Context, args map[string]any) (any, error) {
			var a RollArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			roll, err := dice.Roll(a.Notation)
			if err != nil {
				return nil, err
			}
			return RollReport{Roll: roll, Purpose: a.Purpose}, nil
		})

	bind("attack", "Resolve a weapon attack against a target.", AttackArgs{},
		func(_ context.Context, args map[string]any) (any, error) {
			var a AttackArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return combat.Attack(dice, a.Attacker, a.Target, a.Weapon)
		})

	bind("cast_spell", "Resolve a spell cast.", CastSpellArgs{},
		func(_ context.Context, args map[string]any) (any, error) {
			var a CastSpellArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return combat.Cast(dice, a.Caster, &a.Spell, a.Target)
		})

	bind("ability_check", "Resolve an ability check against a DC.", CheckArgs{},
		func(_ context.Context, args map[string]any) (any, error) {
			var a CheckArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return combat.AbilityCheck(dice, a.Combatant, a.Ability, a.DC, a.Bonus)
		})

	bind("saving_throw", "Resolve a saving throw against a DC.", CheckArgs{},
		func(_ context.Context, args map[string]any) (any, error) {
			var a CheckArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return combat.SavingThrow(dice, a.Combatant, a.Ability, a.DC)
		})

	bind("roll_initiative", "Roll initiative for a set of combatants.", InitiativeRollArgs{},
		func(_ context.Context, args map[string]any) (any, error) {
			var a InitiativeRollArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return combat.RollInitiative(dice, a.Combatants)
		})
}
