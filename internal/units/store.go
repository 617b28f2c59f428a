package units

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/talgya/skirmish/internal/social"
	"github.com/talgya/skirmish/internal/world"
)

// SpawnSpec describes a unit to create.
type SpawnSpec struct {
	Name     string
	Type     UnitType
	Position world.GridCoord
	Stats    Statsheet
	Owner    social.Ownership
}

// Store is the authoritative unit registry. All mutation goes through it so
// ownership transfers and target invalidation are never observed half-done.
// It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	units  map[UnitID]*Unit
	nextID UnitID
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		units:  make(map[UnitID]*Unit),
		nextID: 1,
	}
}

// SetNextID sets the next ID to be issued (used when restoring from DB).
func (s *Store) SetNextID(id UnitID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = id
}

// Spawn creates a unit in the Idle state. A sheet that has not been spawned
// yet gets its derived stats computed and is filled to full health.
func (s *Store) Spawn(spec SpawnSpec) Unit {
	stats := spec.Stats
	if !stats.Spawned() {
		stats.CalculateDerivedStats()
		stats.Initialize()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	u := &Unit{
		ID:       id,
		Name:     spec.Name,
		Type:     spec.Type,
		State:    StateIdle,
		Position: spec.Position,
		Stats:    stats,
		Owner:    spec.Owner,
	}
	u.checkDeath()
	s.units[id] = u
	return *u
}

// Insert adds a previously saved unit under its existing ID.
func (s *Store) Insert(u Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.units[u.ID]; exists {
		return fmt.Errorf("insert unit %d: duplicate id", u.ID)
	}
	u.Stats.MarkSpawned()
	u.Stats.CalculateDerivedStats()
	u.checkDeath()
	s.units[u.ID] = &u
	if u.ID >= s.nextID {
		s.nextID = u.ID + 1
	}
	return nil
}

// Get returns a copy of the unit.
func (s *Store) Get(id UnitID) (Unit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.units[id]
	if !ok {
		return Unit{}, false
	}
	return *u, true
}

// Len returns the number of units, dead or alive.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.units)
}

// All returns copies of every unit ordered by ID.
func (s *Store) All() []Unit {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Unit, 0, len(s.units))
	for _, u := range s.units {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Update runs fn on the unit under the store's write lock.
func (s *Store) Update(id UnitID, fn func(*Unit) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.units[id]
	if !ok {
		return fmt.Errorf("unit %d: %w", id, ErrUnknownUnit)
	}
	return fn(u)
}

// Transfer replaces a unit's ownership in one step. Dead units cannot change
// hands.
func (s *Store) Transfer(id UnitID, owner social.Ownership) error {
	return s.Update(id, func(u *Unit) error {
		if !u.Alive() {
			return fmt.Errorf("transfer unit %d: %w", id, ErrUnitDead)
		}
		u.Owner = owner
		return nil
	})
}

// Damage applies damage and reports whether the unit died from it.
func (s *Store) Damage(id UnitID, amount float64) (bool, error) {
	var died bool
	err := s.Update(id, func(u *Unit) error {
		died = u.TakeDamage(amount)
		return nil
	})
	if died {
		slog.Debug("unit died", "unit", id)
	}
	return died, err
}

// SetState changes a unit's lifecycle state.
func (s *Store) SetState(id UnitID, to State) error {
	return s.Update(id, func(u *Unit) error { return u.SetState(to) })
}

// MoveTo records a unit's new grid position and marks it Moving. Dead units
// are left where they fell.
func (s *Store) MoveTo(id UnitID, to world.GridCoord) error {
	return s.Update(id, func(u *Unit) error {
		if !u.Alive() {
			return fmt.Errorf("move unit %d: %w", id, ErrUnitDead)
		}
		u.Position = to
		return u.SetState(StateMoving)
	})
}

// SetTarget points a unit at another living unit.
func (s *Store) SetTarget(id, target UnitID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.units[id]
	if !ok {
		return fmt.Errorf("unit %d: %w", id, ErrUnknownUnit)
	}
	if !u.Alive() {
		return fmt.Errorf("unit %d: %w", id, ErrUnitDead)
	}
	t, ok := s.units[target]
	if !ok {
		return fmt.Errorf("target %d: %w", target, ErrUnknownUnit)
	}
	if !t.Alive() {
		return fmt.Errorf("target %d: %w", target, ErrUnitDead)
	}
	if target == id {
		return fmt.Errorf("unit %d cannot target itself", id)
	}
	tid := target
	u.Target = &tid
	return nil
}

// ResolveTarget returns the unit's target if it still exists and is alive.
// A stale reference is cleared as a side effect.
func (s *Store) ResolveTarget(id UnitID) (UnitID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.units[id]
	if !ok || u.Target == nil {
		return 0, false
	}
	if s.targetableLocked(*u.Target) {
		return *u.Target, true
	}
	u.Target = nil
	return 0, false
}

// Targetable reports whether a unit exists and is alive.
func (s *Store) Targetable(id UnitID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.targetableLocked(id)
}

func (s *Store) targetableLocked(id UnitID) bool {
	t, ok := s.units[id]
	return ok && t.Alive()
}

// SweepTargets clears every target reference that points at a dead or removed
// unit and returns how many were cleared.
func (s *Store) SweepTargets() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cleared := 0
	for _, u := range s.units {
		if u.Target != nil && !s.targetableLocked(*u.Target) {
			u.Target = nil
			cleared++
		}
	}
	return cleared
}

// Despawn removes a unit. References to it become stale and are cleared the
// next time they are resolved or swept.
func (s *Store) Despawn(id UnitID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.units[id]; !ok {
		return false
	}
	delete(s.units, id)
	return true
}

// Reset removes every unit. IDs keep increasing.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units = make(map[UnitID]*Unit)
}
