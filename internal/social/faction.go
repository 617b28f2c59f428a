// Package social models who controls an entity: faction, team alliance, and
// controller type.
package social

import "fmt"

// FactionKind tags a FactionID.
type FactionKind uint8

const (
	FactionNeutral     FactionKind = iota // Passive units
	FactionPlayer                         // A numbered player
	FactionCreep                          // Hostile non-player units
	FactionEnvironment                    // Map elements
)

// FactionID identifies who owns an entity. N is only meaningful for players.
type FactionID struct {
	Kind FactionKind `json:"kind"`
	N    uint32      `json:"n,omitempty"`
}

// Player returns the faction of player n.
func Player(n uint32) FactionID { return FactionID{Kind: FactionPlayer, N: n} }

var (
	Neutral     = FactionID{Kind: FactionNeutral}
	Creep       = FactionID{Kind: FactionCreep}
	Environment = FactionID{Kind: FactionEnvironment}
)

func (f FactionID) String() string {
	switch f.Kind {
	case FactionPlayer:
		return fmt.Sprintf("Player(%d)", f.N)
	case FactionCreep:
		return "Creep"
	case FactionEnvironment:
		return "Environment"
	default:
		return "Neutral"
	}
}

// TeamKind tags a TeamID.
type TeamKind uint8

const (
	TeamNeutral TeamKind = iota // No team affiliation
	TeamNumbered                // A numbered team
	TeamFFA                     // Free-for-all, hostile to everyone
)

// TeamID groups factions into alliances.
type TeamID struct {
	Kind TeamKind `json:"kind"`
	N    uint32   `json:"n,omitempty"`
}

// Team returns numbered team n.
func Team(n uint32) TeamID { return TeamID{Kind: TeamNumbered, N: n} }

var (
	NoTeam = TeamID{Kind: TeamNeutral}
	FFA    = TeamID{Kind: TeamFFA}
)

func (t TeamID) String() string {
	switch t.Kind {
	case TeamNumbered:
		return fmt.Sprintf("Team(%d)", t.N)
	case TeamFFA:
		return "FFA"
	default:
		return "Neutral"
	}
}

// AreAllied reports whether two teams are allies: they match and are not FFA.
func AreAllied(a, b TeamID) bool {
	return a == b && a.Kind != TeamFFA
}

// ControllerType says what drives an entity's decisions.
type ControllerType uint8

const (
	ControllerAutomatic ControllerType = iota // Map logic
	ControllerHuman
	ControllerAI
)

func (c ControllerType) String() string {
	switch c {
	case ControllerHuman:
		return "Human"
	case ControllerAI:
		return "AI"
	default:
		return "Automatic"
	}
}
