// Starting forces. A fresh world gets a small squad so the map has something
// to path and fight with before any player commands arrive.
package units

import (
	"github.com/talgya/skirmish/internal/social"
	"github.com/talgya/skirmish/internal/world"
)

// WarriorStats is the sheet for the starting melee squad.
func WarriorStats() Statsheet {
	return NewStatsheet(
		Attributes{Strength: 20, Agility: 15, Intelligence: 10},
		BaseStats{Health: 100, Mana: 0, Damage: 10, Armor: 0, AttackSpeed: 1.0, MoveSpeed: 3.0},
	)
}

// StartingSquad lists the squad's grid positions. They are walkable on the
// default and classic layouts.
var StartingSquad = []world.GridCoord{
	{X: 10, Y: 10},
	{X: 12, Y: 10},
	{X: 10, Y: 12},
}

// SpawnStartingForces creates the starting squad for player 1 when the store
// is empty and returns the spawned units. Positions that are not walkable on
// the given map are skipped.
func SpawnStartingForces(store *Store, m *world.MapGrid) []Unit {
	if store.Len() > 0 {
		return nil
	}
	owner := social.Ownership{
		Faction:    social.Player(1),
		Team:       social.Team(1),
		Controller: social.ControllerHuman,
	}

	var spawned []Unit
	for _, pos := range StartingSquad {
		if m != nil && !m.Walkable(pos) {
			continue
		}
		spawned = append(spawned, store.Spawn(SpawnSpec{
			Name:     "Warrior",
			Type:     TypeMelee,
			Position: pos,
			Stats:    WarriorStats(),
			Owner:    owner,
		}))
	}
	return spawned
}
