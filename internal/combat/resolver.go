// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package combat

import (
	"math"
	"sort"
	"strings"
)

// Combatant is the slice of an entity the rules engine needs. The engine
// never mutates a combatant; damage and healing are reported to the caller,
// which owns state changes.
type Combatant struct {
	Name             string `json:"name"`
	Strength         int    `json:"strength"`
	Dexterity        int    `json:"dexterity"`
	Constitution     int    `json:"constitution"`
	Intelligence     int    `json:"intelligence"`
	Wisdom           int    `json:"wisdom"`
	Charisma         int    `json:"charisma"`
	MaxHP            int    `json:"max_hp"`
	CurrentHP        int    `json:"current_hp"`
	ArmorClass       int    `json:"armor_class"`
	ProficiencyBonus int    `json:"proficiency_bonus"`
	Alive            bool   `json:"alive"`
	Incapacitated    bool   `json:"incapacitated"`
}

// AbilityScore returns the named ability score, or 10 when unknown.
func (c Combatant) AbilityScore(ability string) int {
	switch strings.ToLower(strings.TrimSpace(ability)) {
	case "strength", "str":
		return c.Strength
	case "dexterity", "dex":
		return c.Dexterity
	case "constitution", "con":
		return c.Constitution
	case "intelligence", "int":
		return c.Intelligence
	case "wisdom", "wis":
		return c.Wisdom
	case "charisma", "cha":
		return c.Charisma
	default:
		return 10
	}
}

// CanAct reports whether the combatant may take actions.
func (c Combatant) CanAct() bool {
	return c.Alive && !c.Incapacitated
}

// AbilityModifier computes floor((score - 10) / 2).
func AbilityModifier(score int) int {
	return int(math.Floor(float64(score-10) / 2))
}

// Weapon describes the attack a combatant swings with. An empty DamageDice
// falls back to an unarmed 1d4.
type Weapon struct {
	Name       string `json:"name"`
	DamageDice string `json:"damage_dice"`
	Ability    string `json:"ability"`
}

const unarmedDice = "1d4"

// AttackResult reports one attack resolution.
type AttackResult struct {
	Attacker    string `json:"attacker"`
	Target      string `json:"target"`
	AttackRoll  Roll   `json:"attack_roll"`
	AttackTotal int    `json:"attack_total"`
	Hit         bool   `json:"hit"`
	Critical    bool   `json:"critical"`
	Fumble      bool   `json:"fumble"`
	Damage      int    `json:"damage"`
	DamageRolls []Roll `json:"damage_rolls,omitempty"`
}

// Attack resolves a weapon attack: 1d20 + ability modifier + proficiency vs
// the target's armor class. A natural 1 always misses; a natural 20 always
// hits and rolls the damage dice twice. Damage is the dice total plus the
// attacker's ability modifier, never below 1 on a hit.
func Attack(d Dice, attacker, target Combatant, weapon Weapon) (AttackResult, error) {
	ability := weapon.Ability
	if ability == "" {
		ability = "strength"
	}
	abilityMod := AbilityModifier(attacker.AbilityScore(ability))

	atkRoll, err := d.Roll("1d20")
	if err != nil {
		return AttackResult{}, err
	}
	result := AttackResult{
		Attacker:    attacker.Name,
		Target:      target.Name,
		AttackRoll:  atkRoll,
		AttackTotal: atkRoll.Total + abilityMod + attacker.ProficiencyBonus,
		Critical:    atkRoll.Nat20,
		Fumble:      atkRoll.Nat1,
	}

	if atkRoll.Nat1 {
		return result, nil
	}
	if !atkRoll.Nat20 && result.AttackTotal < target.ArmorClass {
		return result, nil
	}
	result.Hit = true

	dice := weapon.DamageDice
	if dice == "" {
		dice = unarmedDice
	}
	dmgRoll, err := d.Roll(dice)
	if err != nil {
		return AttackResult{}, err
	}
	damage := dmgRoll.Total
	result.DamageRolls = append(result.DamageRolls, dmgRoll)
	if atkRoll.Nat20 {
		extra, err := d.Roll(dice)
		if err != nil {
			return AttackResult{}, err
		}
		damage += extra.Total
		result.DamageRolls = append(result.DamageRolls, extra)
	}
	damage += abilityMod
	if damage < 1 {
		damage = 1
	}
	result.Damage = damage
	return result, nil
}

// SpellType selects the resolution path for a spell.
type SpellType string

const (
	SpellAttack  SpellType = "attack"
	SpellSave    SpellType = "save"
	SpellHeal    SpellType = "heal"
	SpellUtility SpellType = "utility"
)

// Spell describes a castable spell. UsesRemaining is decremented by Cast;
// the caller owns the value.
type Spell struct {
	Name          string    `json:"name"`
	Type          SpellType `json:"type"`
	DamageDice    string    `json:"damage_dice,omitempty"`
	HealDice      string    `json:"heal_dice,omitempty"`
	SaveAbility   string    `json:"save_ability,omitempty"`
	SaveDC        int       `json:"save_dc,omitempty"`
	CastAbility   string    `json:"cast_ability,omitempty"`
	UsesRemaining int       `json:"uses_remaining"`
}

// SpellResult reports one spell resolution. Damage and Healed are amounts
// for the caller to apply; the engine does not touch the target.
type SpellResult struct {
	Spell    string `json:"spell"`
	Caster   string `json:"caster"`
	Target   string `json:"target"`
	Success  bool   `json:"success"`
	Damage   int    `json:"damage"`
	Healed   int    `json:"healed"`
	Rolls    []Roll `json:"rolls,omitempty"`
	SaveRoll *Roll  `json:"save_roll,omitempty"`
	Saved    bool   `json:"saved"`
}

// defaultSpellDamage is the fallback when an attack spell carries no dice.
const defaultSpellDamage = 4

// Cast resolves a spell. Attack spells roll against armor class like
// weapon attacks. Save spells make the target roll vs the spell DC: on a
// success the target takes half damage rounded down (minimum 1), or nothing
// when the spell has no damage dice; on a failure, full damage. Heal spells
// report the restorable amount. Utility spells have no numeric effect.
func Cast(d Dice, caster Combatant, spell *Spell, target Combatant) (SpellResult, error) {
	result := SpellResult{Spell: spell.Name, Caster: caster.Name, Target: target.Name}

	if !caster.CanAct() {
		return result, validationErr(spell.Name, "%s is incapacitated and cannot cast", caster.Name)
	}
	if spell.UsesRemaining <= 0 {
		return result, validationErr(spell.Name, "%s has no more uses of %s", caster.Name, spell.Name)
	}
	spell.UsesRemaining--

	switch spell.Type {
	case SpellHeal:
		amount := defaultSpellDamage + AbilityModifier(caster.AbilityScore("wisdom"))
		if spell.HealDice != "" {
			roll, err := d.Roll(spell.HealDice)
			if err != nil {
				return result, err
			}
			result.Rolls = append(result.Rolls, roll)
			amount = roll.Total
		}
		if amount < 1 {
			amount = 1
		}
		result.Success = true
		result.Healed = amount
		return result, nil

	case SpellAttack:
		castMod := AbilityModifier(caster.AbilityScore(spell.CastAbility)) + caster.ProficiencyBonus
		atkRoll, err := d.Roll("1d20")
		if err != nil {
			return result, err
		}
		result.Rolls = append(result.Rolls, atkRoll)
		if atkRoll.Nat1 {
			return result, nil
		}
		if !atkRoll.Nat20 && atkRoll.Total+castMod < target.ArmorClass {
			return result, nil
		}
		result.Success = true
		damage := defaultSpellDamage
		if spell.DamageDice != "" {
			dmgRoll, err := d.Roll(spell.DamageDice)
			if err != nil {
				return result, err
			}
			result.Rolls = append(result.Rolls, dmgRoll)
			damage = dmgRoll.Total
			if atkRoll.Nat20 {
				extra, err := d.Roll(spell.DamageDice)
				if err != nil {
					return result, err
				}
				result.Rolls = append(result.Rolls, extra)
				damage += extra.Total
			}
		}
		if damage < 1 {
			damage = 1
		}
		result.Damage = damage
		return result, nil

	case SpellSave:
		saveRoll, err := d.Roll("1d20")
		if err != nil {
			return result, err
		}
		saveTotal := saveRoll.Total + AbilityModifier(target.AbilityScore(spell.SaveAbility))
		result.SaveRoll = &saveRoll
		result.Saved = saveTotal >= spell.SaveDC

		if spell.DamageDice == "" {
			result.Success = !result.Saved
			return result, nil
		}
		dmgRoll, err := d.Roll(spell.DamageDice)
		if err != nil {
			return result, err
		}
		result.Rolls = append(result.Rolls, dmgRoll)
		damage := dmgRoll.Total
		if result.Saved {
			damage /= 2
		} else {
			result.Success = true
		}
		if damage < 1 {
			damage = 1
		}
		result.Damage = damage
		return result, nil

	default: // utility
		result.Success = true
		return result, nil
	}
}

// CheckResult reports an ability check or saving throw.
type CheckResult struct {
	Name     string `json:"name"`
	Ability  string `json:"ability"`
	DC       int    `json:"dc"`
	Roll     Roll   `json:"roll"`
	Modifier int    `json:"modifier"`
	Bonus    int    `json:"bonus"`
	Total    int    `json:"total"`
	Success  bool   `json:"success"`
	Critical bool   `json:"critical"`
	Fumble   bool   `json:"fumble"`
}

// AbilityCheck resolves 1d20 + ability modifier + bonus vs DC. A natural 20
// auto-succeeds and a natural 1 auto-fails regardless of the total.
func AbilityCheck(d Dice, c Combatant, ability string, dc, bonus int) (CheckResult, error) {
	roll, err := d.Roll("1d20")
	if err != nil {
		return CheckResult{}, err
	}
	mod := AbilityModifier(c.AbilityScore(ability))
	result := CheckResult{
		Name:     c.Name,
		Ability:  ability,
		DC:       dc,
		Roll:     roll,
		Modifier: mod,
		Bonus:    bonus,
		Total:    roll.Total + mod + bonus,
		Critical: roll.Nat20,
		Fumble:   roll.Nat1,
	}
	switch {
	case roll.Nat20:
		result.Success = true
	case roll.Nat1:
		result.Success = false
	default:
		result.Success = result.Total >= dc
	}
	return result, nil
}

// SavingThrow is an ability check without a skill bonus.
func SavingThrow(d Dice, c Combatant, ability string, dc int) (CheckResult, error) {
	return AbilityCheck(d, c, ability, dc, 0)
}

// InitiativeEntry pairs a combatant with its initiative roll.
type InitiativeEntry struct {
	Name  string `json:"name"`
	Roll  Roll   `json:"roll"`
	Total int    `json:"total"`
}

// RollInitiative rolls 1d20 + dexterity modifier for every combatant that
// can act and returns the order sorted highest first. Ties keep the input
// order.
func RollInitiative(d Dice, combatants []Combatant) ([]InitiativeEntry, error) {
	entries := make([]InitiativeEntry, 0, len(combatants))
	for _, c := range combatants {
		if !c.CanAct() {
			continue
		}
		roll, err := d.Roll("1d20")
		if err != nil {
			return nil, err
		}
		entries = append(entries, InitiativeEntry{
			Name:  c.Name,
			Roll:  roll,
			Total: roll.Total + AbilityModifier(c.Dexterity),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Total > entries[j].Total
	})
	return entries, nil
}
