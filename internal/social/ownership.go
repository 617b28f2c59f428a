package social

// Ownership is the faction/team/controller triple attached to every
// controllable entity. It is a value: transfers replace the whole triple.
// The zero value is the default owner (Neutral, no team, Automatic).
type Ownership struct {
	Faction    FactionID      `json:"faction"`
	Team       TeamID         `json:"team"`
	Controller ControllerType `json:"controller"`
}

// DefaultOwnership is assigned to entities with no explicit owner.
func DefaultOwnership() Ownership {
	return Ownership{Faction: Neutral, Team: NoTeam, Controller: ControllerAutomatic}
}

// Allied reports whether two owners are on the same non-FFA team.
func (o Ownership) Allied(other Ownership) bool {
	return AreAllied(o.Team, other.Team)
}

// Hostile reports whether two owners should fight. FFA entities are hostile
// to everyone. Otherwise Neutral-faction entities are passive and everyone
// else not allied is hostile.
func (o Ownership) Hostile(other Ownership) bool {
	if o.Team == FFA || other.Team == FFA {
		return true
	}
	if o.Faction == Neutral || other.Faction == Neutral {
		return false
	}
	return !o.Allied(other)
}
