// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moushegh/daid/pkg/errutil"
)

// scriptedDice pops queued die faces for each roll, applying the parsed
// modifier so attack/spell totals stay faithful to the notation.
type scriptedDice struct {
	t     *testing.T
	faces []int
}

func (s *scriptedDice) Roll(notation string) (Roll, error) {
	spec, err := ParseNotation(notation)
	if err != nil {
		return Roll{}, err
	}
	require.GreaterOrEqual(s.t, len(s.faces), spec.Count, "scripted dice exhausted rolling %s", notation)

	rolls := make([]int, spec.Count)
	total := spec.Modifier
	for i := range rolls {
		rolls[i] = s.faces[0]
		s.faces = s.faces[1:]
		total += rolls[i]
	}
	return Roll{
		Notation: spec.Notation(),
		Rolls:    rolls,
		Modifier: spec.Modifier,
		Total:    total,
		Nat20:    spec.Sides == 20 && spec.Count == 1 && rolls[0] == 20,
		Nat1:     spec.Sides == 20 && spec.Count == 1 && rolls[0] == 1,
	}, nil
}

func fighter() Combatant {
	return Combatant{
		Name:             "Thorin",
		Strength:         16,
		Dexterity:        12,
		Constitution:     15,
		Wisdom:           10,
		MaxHP:            28,
		CurrentHP:        28,
		ArmorClass:       16,
		ProficiencyBonus: 2,
		Alive:            true,
	}
}

func skeleton() Combatant {
	return Combatant{
		Name:       "Skeleton",
		Strength:   10,
		Dexterity:  14,
		MaxHP:      13,
		CurrentHP:  13,
		ArmorClass: 13,
		Alive:      true,
	}
}

func TestAbilityModifier(t *testing.T) {
	cases := map[int]int{
		1:  -5,
		8:  -1,
		9:  -1,
		10: 0,
		11: 0,
		12: 1,
		15: 2,
		16: 3,
		20: 5,
	}
	for score, want := range cases {
		assert.Equal(t, want, AbilityModifier(score), "score %d", score)
	}
}

func TestAttack_Nat1AlwaysMisses(t *testing.T) {
	// Attack total would be 1+3+2=6 anyway, but even vs AC 1 a natural 1
	// must miss.
	target := skeleton()
	target.ArmorClass = 1

	d := &scriptedDice{t: t, faces: []int{1}}
	res, err := Attack(d, fighter(), target, Weapon{Name: "longsword", DamageDice: "1d8"})
	require.NoError(t, err)

	assert.False(t, res.Hit)
	assert.True(t, res.Fumble)
	assert.False(t, res.Critical)
	assert.Zero(t, res.Damage)
	assert.Empty(t, res.DamageRolls)
}

func TestAttack_Nat20AlwaysHitsAndDoublesDice(t *testing.T) {
	// Natural 20 vs an unhittable AC still lands and rolls damage twice.
	target := skeleton()
	target.ArmorClass = 40

	d := &scriptedDice{t: t, faces: []int{20, 8, 8}}
	res, err := Attack(d, fighter(), target, Weapon{Name: "longsword", DamageDice: "1d8"})
	require.NoError(t, err)

	assert.True(t, res.Hit)
	assert.True(t, res.Critical)
	require.Len(t, res.DamageRolls, 2)
	// 8 + 8 dice plus strength modifier 3.
	assert.Equal(t, 19, res.Damage)
}

func TestAttack_HitVsMissAgainstArmorClass(t *testing.T) {
	// Skeleton AC 13; fighter attack bonus is +5 (str +3, prof +2).
	d := &scriptedDice{t: t, faces: []int{8, 5}}
	res, err := Attack(d, fighter(), skeleton(), Weapon{Name: "longsword", DamageDice: "1d8"})
	require.NoError(t, err)
	assert.True(t, res.Hit, "8+5 = 13 meets AC 13")
	assert.Equal(t, 13, res.AttackTotal)
	assert.Equal(t, 8, res.Damage)

	d = &scriptedDice{t: t, faces: []int{7}}
	res, err = Attack(d, fighter(), skeleton(), Weapon{Name: "longsword", DamageDice: "1d8"})
	require.NoError(t, err)
	assert.False(t, res.Hit, "7+5 = 12 misses AC 13")
	assert.Zero(t, res.Damage)
}

func TestAttack_MinimumDamageOne(t *testing.T) {
	attacker := fighter()
	attacker.Strength = 1 // modifier -5

	d := &scriptedDice{t: t, faces: []int{20, 1, 1}}
	res, err := Attack(d, attacker, skeleton(), Weapon{Name: "shiv", DamageDice: "1d4"})
	require.NoError(t, err)
	assert.True(t, res.Hit)
	assert.Equal(t, 1, res.Damage, "1+1-5 floors at 1")
}

func TestAttack_UnarmedFallback(t *testing.T) {
	d := &scriptedDice{t: t, faces: []int{15, 3}}
	res, err := Attack(d, fighter(), skeleton(), Weapon{Name: "fists"})
	require.NoError(t, err)
	assert.True(t, res.Hit)
	require.Len(t, res.DamageRolls, 1)
	assert.Equal(t, "1d4", res.DamageRolls[0].Notation)
	assert.Equal(t, 6, res.Damage)
}

func TestCast_HealUsesDiceOrWisdomFallback(t *testing.T) {
	caster := fighter()
	caster.Wisdom = 16

	spell := &Spell{Name: "Cure Wounds", Type: SpellHeal, HealDice: "1d8+3", UsesRemaining: 2}
	d := &scriptedDice{t: t, faces: []int{5}}
	res, err := Cast(d, caster, spell, fighter())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 8, res.Healed)
	assert.Equal(t, 1, spell.UsesRemaining)

	noDice := &Spell{Name: "Prayer", Type: SpellHeal, UsesRemaining: 1}
	res, err = Cast(&scriptedDice{t: t}, caster, noDice, fighter())
	require.NoError(t, err)
	assert.Equal(t, 4+3, res.Healed, "default amount plus wisdom modifier")
}

func TestCast_SaveHalvesDamageRoundedDown(t *testing.T) {
	spell := &Spell{
		Name:          "Burning Hands",
		Type:          SpellSave,
		DamageDice:    "3d6",
		SaveAbility:   "dexterity",
		SaveDC:        13,
		UsesRemaining: 3,
	}
	target := skeleton() // dex 14, save modifier +2

	// Save roll 11 + 2 = 13 meets DC: half of 9 rounds down to 4.
	d := &scriptedDice{t: t, faces: []int{11, 3, 3, 3}}
	res, err := Cast(d, fighter(), spell, target)
	require.NoError(t, err)
	assert.True(t, res.Saved)
	assert.False(t, res.Success)
	assert.Equal(t, 4, res.Damage)

	// Save roll 10 + 2 = 12 fails: full damage.
	d = &scriptedDice{t: t, faces: []int{10, 3, 3, 3}}
	res, err = Cast(d, fighter(), spell, target)
	require.NoError(t, err)
	assert.False(t, res.Saved)
	assert.True(t, res.Success)
	assert.Equal(t, 9, res.Damage)
}

func TestCast_SaveMinimumDamageOne(t *testing.T) {
	spell := &Spell{
		Name:          "Spark",
		Type:          SpellSave,
		DamageDice:    "1d4",
		SaveAbility:   "dexterity",
		SaveDC:        5,
		UsesRemaining: 1,
	}
	d := &scriptedDice{t: t, faces: []int{19, 1}}
	res, err := Cast(d, fighter(), spell, skeleton())
	require.NoError(t, err)
	assert.True(t, res.Saved)
	assert.Equal(t, 1, res.Damage, "half of 1 floors at 1")
}

func TestCast_AttackSpellCritAndFumble(t *testing.T) {
	caster := fighter()
	caster.Intelligence = 16

	spell := &Spell{
		Name:          "Fire Bolt",
		Type:          SpellAttack,
		DamageDice:    "1d10",
		CastAbility:   "intelligence",
		UsesRemaining: 5,
	}

	d := &scriptedDice{t: t, faces: []int{20, 7, 7}}
	res, err := Cast(d, caster, spell, skeleton())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 14, res.Damage, "crit doubles the dice")

	d = &scriptedDice{t: t, faces: []int{1}}
	res, err = Cast(d, caster, spell, skeleton())
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Zero(t, res.Damage)
}

func TestCast_ExhaustedUses(t *testing.T) {
	spell := &Spell{Name: "Fire Bolt", Type: SpellAttack, UsesRemaining: 0}
	_, err := Cast(&scriptedDice{t: t}, fighter(), spell, skeleton())
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, CodeValidation)
}

func TestCast_IncapacitatedCaster(t *testing.T) {
	caster := fighter()
	caster.Incapacitated = true
	spell := &Spell{Name: "Cure Wounds", Type: SpellHeal, UsesRemaining: 1}
	_, err := Cast(&scriptedDice{t: t}, caster, spell, fighter())
	require.Error(t, err)
	assert.Equal(t, 1, spell.UsesRemaining, "uses not consumed on refusal")
}

func TestAbilityCheck_CritRules(t *testing.T) {
	c := fighter() // str 16, +3

	d := &scriptedDice{t: t, faces: []int{20}}
	res, err := AbilityCheck(d, c, "strength", 99, 0)
	require.NoError(t, err)
	assert.True(t, res.Success, "natural 20 beats any DC")
	assert.True(t, res.Critical)

	d = &scriptedDice{t: t, faces: []int{1}}
	res, err = AbilityCheck(d, c, "strength", 2, 5)
	require.NoError(t, err)
	assert.False(t, res.Success, "natural 1 fails any DC")
	assert.True(t, res.Fumble)

	d = &scriptedDice{t: t, faces: []int{10}}
	res, err = AbilityCheck(d, c, "strength", 13, 0)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 13, res.Total)
}

func TestSavingThrow_NoBonus(t *testing.T) {
	d := &scriptedDice{t: t, faces: []int{9}}
	res, err := SavingThrow(d, skeleton(), "dexterity", 12)
	require.NoError(t, err)
	assert.Equal(t, 11, res.Total, "9 + dex modifier 2")
	assert.False(t, res.Success)
}

func TestRollInitiative_SortsHighestFirstAndSkipsDowned(t *testing.T) {
	downed := skeleton()
	downed.Alive = false

	combatants := []Combatant{fighter(), skeleton(), downed}
	// Thorin: 10 + dex 1 = 11. Skeleton: 12 + dex 2 = 14.
	d := &scriptedDice{t: t, faces: []int{10, 12}}
	order, err := RollInitiative(d, combatants)
	require.NoError(t, err)

	require.Len(t, order, 2)
	assert.Equal(t, "Skeleton", order[0].Name)
	assert.Equal(t, 14, order[0].Total)
	assert.Equal(t, "Thorin", order[1].Name)
	assert.Equal(t, 11, order[1].Total)
}
