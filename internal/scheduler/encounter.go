// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package scheduler

import "github.com/moushegh/daid/internal/world"

// BossName is the final adversary; its death at the last scene is the
// victory condition.
const BossName = "Shadow Lord"

// SceneTitles names the acts of the default adventure, indexed by scene id.
var SceneTitles = []string{
	"The Village of Millhaven",
	"Crypt Entrance",
	"The Shadow Lord's Chamber",
}

// SceneTitle returns the title for a scene id, empty when out of range.
func SceneTitle(sceneID int) string {
	if sceneID < 0 || sceneID >= len(SceneTitles) {
		return ""
	}
	return SceneTitles[sceneID]
}

// DefaultParty is the canonical four-member party used when a session
// starts without an explicit roster.
func DefaultParty() []world.Entity {
	return []world.Entity{
		{
			Name: "Thorin", Class: "Fighter", Race: "Dwarf", Level: 3,
			Strength: 16, Dexterity: 12, Constitution: 15,
			Intelligence: 10, Wisdom: 11, Charisma: 9,
			MaxHP: 28, CurrentHP: 28, ArmorClass: 16, ProficiencyBonus: 2,
			Alive: true, IsPlayer: true,
			Weapons: []string{"warhammer", "handaxe"},
		},
		{
			Name: "Elara", Class: "Wizard", Race: "Elf", Level: 3,
			Strength: 8, Dexterity: 14, Constitution: 12,
			Intelligence: 17, Wisdom: 12, Charisma: 11,
			MaxHP: 18, CurrentHP: 18, ArmorClass: 12, ProficiencyBonus: 2,
			Alive: true, IsPlayer: true,
			Spells: []string{"fire bolt", "magic missile", "shield"},
		},
		{
			Name: "Shadow", Class: "Rogue", Race: "Halfling", Level: 3,
			Strength: 10, Dexterity: 17, Constitution: 13,
			Intelligence: 12, Wisdom: 13, Charisma: 14,
			MaxHP: 22, CurrentHP: 22, ArmorClass: 14, ProficiencyBonus: 2,
			Alive: true, IsPlayer: true,
			Weapons: []string{"shortsword", "dagger"},
		},
		{
			Name: "Aldric", Class: "Cleric", Race: "Human", Level: 3,
			Strength: 14, Dexterity: 10, Constitution: 14,
			Intelligence: 11, Wisdom: 16, Charisma: 12,
			MaxHP: 24, CurrentHP: 24, ArmorClass: 15, ProficiencyBonus: 2,
			Alive: true, IsPlayer: true,
			Weapons: []string{"mace"},
			Spells:  []string{"cure wounds", "sacred flame"},
		},
	}
}

// EncounterFor returns the enemies seeded when a scene begins. The village
// opening has none; the crypt has skeleton guards; the final chamber has
// the boss.
func EncounterFor(sceneID int) []world.Entity {
	switch sceneID {
	case 1:
		return []world.Entity{
			skeleton("Skeleton Guard"),
			skeleton("Skeleton Archer"),
		}
	case 2:
		return []world.Entity{
			{
				Name: "Shadow Lord", Class: "Wraith", Level: 7,
				Strength: 16, Dexterity: 14, Constitution: 16,
				Intelligence: 14, Wisdom: 12, Charisma: 17,
				MaxHP: 55, CurrentHP: 55, ArmorClass: 15, ProficiencyBonus: 3,
				Alive:     true,
				Abilities: []string{"life drain", "shadow bolt"},
			},
		}
	default:
		return nil
	}
}

func skeleton(name string) world.Entity {
	return world.Entity{
		Name: name, Class: "Undead", Level: 1,
		Strength: 10, Dexterity: 14, Constitution: 15,
		Intelligence: 6, Wisdom: 8, Charisma: 5,
		MaxHP: 13, CurrentHP: 13, ArmorClass: 13, ProficiencyBonus: 2,
		Alive:   true,
		Weapons: []string{"shortsword", "shortbow"},
	}
}

// DefaultInitiative is the canonical initiative order: the narrator first,
// then the party.
func DefaultInitiative(narrator string, party []world.Entity) []string {
	order := make([]string, 0, len(party)+1)
	order = append(order, narrator)
	for _, p := range party {
		order = append(order, p.Name)
	}
	return order
}
