// Package units provides the unit data model: stat sheets with derived stats,
// the unit lifecycle state machine, and the authoritative unit store.
package units

import (
	"errors"
	"fmt"

	"github.com/talgya/skirmish/internal/social"
	"github.com/talgya/skirmish/internal/world"
)

var (
	// ErrUnitDead is returned for any state change attempted on a dead unit.
	ErrUnitDead = errors.New("unit is dead")
	// ErrUnknownUnit is returned when an ID is not in the store.
	ErrUnknownUnit = errors.New("unknown unit")
	// ErrInvalidTransition is returned for state changes the machine forbids.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// UnitID is a unique identifier for a unit.
type UnitID uint64

// UnitType is the fixed unit taxonomy.
type UnitType uint8

const (
	TypeMelee UnitType = iota
	TypeHero
	TypeBuilding
	TypeRanged
	TypeCaster
	TypeWorker
)

func (t UnitType) String() string {
	switch t {
	case TypeHero:
		return "Hero"
	case TypeBuilding:
		return "Building"
	case TypeMelee:
		return "Melee"
	case TypeRanged:
		return "Ranged"
	case TypeCaster:
		return "Caster"
	case TypeWorker:
		return "Worker"
	default:
		return "Unknown"
	}
}

// State is a unit's lifecycle state.
type State uint8

const (
	StateIdle State = iota
	StateMoving
	StateAttacking
	StateCasting
	StateConstructing
	StateHarvesting
	StateDead // Absorbing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateMoving:
		return "Moving"
	case StateAttacking:
		return "Attacking"
	case StateCasting:
		return "Casting"
	case StateConstructing:
		return "Constructing"
	case StateHarvesting:
		return "Harvesting"
	case StateDead:
		return "Dead"
	default:
		return "Unknown"
	}
}

// Unit is a simulated actor. Every unit carries a Statsheet and an Ownership
// by construction. Target is a weak reference: it names another unit in the
// Store and must be resolved through the Store before use.
type Unit struct {
	ID       UnitID          `json:"id"`
	Name     string          `json:"name"`
	Type     UnitType        `json:"unit_type"`
	State    State           `json:"state"`
	Target   *UnitID         `json:"target,omitempty"`
	Position world.GridCoord `json:"position"`

	Stats Statsheet        `json:"stats"`
	Owner social.Ownership `json:"owner"`
}

// Alive reports whether the unit has not died.
func (u *Unit) Alive() bool {
	return u.State != StateDead
}

// SetState moves the unit to a new non-dead state. Dead units never leave
// Dead, and Dead is only entered through health reaching zero.
func (u *Unit) SetState(to State) error {
	if u.State == StateDead {
		return fmt.Errorf("unit %d -> %s: %w", u.ID, to, ErrUnitDead)
	}
	if to == StateDead || to > StateDead {
		return fmt.Errorf("unit %d %s -> %s: %w", u.ID, u.State, to, ErrInvalidTransition)
	}
	u.State = to
	return nil
}

// TakeDamage lowers health, never below zero. It reports whether this hit
// killed the unit. Damage to a dead unit is ignored.
func (u *Unit) TakeDamage(amount float64) bool {
	if u.State == StateDead || amount <= 0 {
		return false
	}
	u.Stats.SetHealth(u.Stats.Health - amount)
	return u.checkDeath()
}

// Kill drives health to zero.
func (u *Unit) Kill() bool {
	if u.State == StateDead {
		return false
	}
	u.Stats.SetHealth(0)
	return u.checkDeath()
}

// checkDeath applies the terminal rule: zero health means Dead.
func (u *Unit) checkDeath() bool {
	if u.State == StateDead || u.Stats.Health > 0 {
		return false
	}
	u.State = StateDead
	u.Target = nil
	return true
}
