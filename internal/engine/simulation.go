// Simulation ties together the map, units, and bus, and runs the systems
// each tick.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/skirmish/internal/social"
	"github.com/talgya/skirmish/internal/units"
	"github.com/talgya/skirmish/internal/world"
)

// maxJournal bounds the in-memory notification journal. A full journal is
// flushed to the JournalSink when one is configured.
const maxJournal = 1000

// MapSource supplies saved map layouts by name. ok is false when the source
// has no map under that name.
type MapSource interface {
	LoadMapLayout(name string) (m *world.MapGrid, ok bool, err error)
}

// JournalSink stores journal entries. It reports how many were newly stored.
type JournalSink interface {
	SaveEvents(entries []JournalEntry) (int, error)
}

// Options configure a Simulation.
type Options struct {
	Seed         int64         // Seed for generated layouts
	TickDuration time.Duration // Simulation time per tick
	PathWorkers  int
	NodeBudget   int
	Maps         MapSource   // Optional
	Journal      JournalSink // Optional; receives the journal when it fills
}

// Building is a placed footprint recorded from BuildingPlaced notifications.
type Building struct {
	Entity   units.UnitID     `json:"entity"`
	Faction  social.FactionID `json:"faction"`
	Position world.GridCoord  `json:"position"`
	Width    int              `json:"width"`
	Height   int              `json:"height"`
	Tick     uint64           `json:"tick"`
}

// Simulation holds the authoritative simulation state.
//
// mu guards the grid and everything tied to its generation. Terrain changes
// and map loads take it exclusively; path searches and queries share it.
type Simulation struct {
	mu         sync.RWMutex
	grid       *world.MapGrid
	generation uint64
	buildings  []Building

	Units *units.Store
	Fog   *world.FogOfWar[social.FactionID]
	Bus   *Bus
	Paths PathService

	tick atomic.Uint64 // Most recent tick processed

	opts Options

	journalMu sync.Mutex
	journal   []JournalEntry
	dropped   int // Entries lost to a full journal with no sink

	loadMaps    *Reader[LoadMap]
	terrainMods *Reader[ModifyTerrain]
	pathReqs    *Reader[PathfindingRequest]
	moves       *Reader[UnitMove]
	placements  *Reader[BuildingPlaced]
	reveals     *Reader[TerrainRevealed]
}

// NewSimulation creates a simulation with an empty placeholder map. Load a
// real map with LoadMapNow or a LoadMap command.
func NewSimulation(store *units.Store, opts Options) *Simulation {
	if store == nil {
		store = units.NewStore()
	}
	if opts.TickDuration <= 0 {
		opts.TickDuration = 100 * time.Millisecond
	}
	bus := NewBus()
	return &Simulation{
		grid:        world.NewMapGrid(0, 0, 1.0),
		Units:       store,
		Fog:         world.NewFogOfWar[social.FactionID](),
		Bus:         bus,
		Paths:       PathService{Workers: opts.PathWorkers, NodeBudget: opts.NodeBudget},
		opts:        opts,
		loadMaps:    bus.LoadMap.Reader(),
		terrainMods: bus.ModifyTerrain.Reader(),
		pathReqs:    bus.PathRequests.Reader(),
		moves:       bus.UnitMoves.Reader(),
		placements:  bus.BuildingsPlaced.Reader(),
		reveals:     bus.TerrainReveals.Reader(),
	}
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	return s.tick.Load()
}

// SetTick sets the current tick, for resuming a saved simulation.
func (s *Simulation) SetTick(tick uint64) {
	s.tick.Store(tick)
}

func (s *Simulation) header() Header {
	tick := s.tick.Load()
	return Header{
		ID:        uuid.New(),
		Tick:      tick,
		Timestamp: time.Duration(tick) * s.opts.TickDuration,
	}
}

// ── Command API ────────────────────────────────────────────────────────

// LoadMap queues a whole-map replacement for the next tick.
func (s *Simulation) LoadMap(name string) uuid.UUID {
	cmd := LoadMap{Header: s.header(), MapName: name}
	s.Bus.LoadMap.Send(cmd)
	return cmd.ID
}

// ModifyTerrain queues a terrain change for the next tick.
func (s *Simulation) ModifyTerrain(c world.GridCoord, t world.Terrain) uuid.UUID {
	cmd := ModifyTerrain{Header: s.header(), Coord: c, Terrain: t}
	s.Bus.ModifyTerrain.Send(cmd)
	return cmd.ID
}

// RequestPath queues a path search. The returned ID is echoed in the
// result's Request field.
func (s *Simulation) RequestPath(entity units.UnitID, from, to world.GridCoord) uuid.UUID {
	req := PathfindingRequest{Header: s.header(), Entity: entity, From: from, To: to}
	s.Bus.PathRequests.Send(req)
	return req.ID
}

// MoveUnit publishes a unit move notification.
func (s *Simulation) MoveUnit(entity units.UnitID, from, to world.GridCoord) uuid.UUID {
	ev := UnitMove{Header: s.header(), Entity: entity, From: from, To: to}
	s.Bus.UnitMoves.Send(ev)
	return ev.ID
}

// PlaceBuilding publishes a building placement notification.
func (s *Simulation) PlaceBuilding(entity units.UnitID, faction social.FactionID, pos world.GridCoord, width, height int) uuid.UUID {
	ev := BuildingPlaced{Header: s.header(), Entity: entity, Faction: faction, Position: pos, Width: width, Height: height}
	s.Bus.BuildingsPlaced.Send(ev)
	return ev.ID
}

// RevealTerrain publishes a fog-of-war reveal notification.
func (s *Simulation) RevealTerrain(center world.GridCoord, radius int, faction social.FactionID) uuid.UUID {
	ev := TerrainRevealed{Header: s.header(), Center: center, Radius: radius, Faction: faction}
	s.Bus.TerrainReveals.Send(ev)
	return ev.ID
}

// ── Queries ────────────────────────────────────────────────────────────

// MapInfo describes the current map.
type MapInfo struct {
	Name       string  `json:"name"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	CellSize   float64 `json:"cell_size"`
	Generation uint64  `json:"generation"`
}

// MapInfo returns the current map's dimensions and generation.
func (s *Simulation) MapInfo() MapInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return MapInfo{
		Name:       s.grid.Name,
		Width:      s.grid.Width,
		Height:     s.grid.Height,
		CellSize:   s.grid.CellSize,
		Generation: s.generation,
	}
}

// Cell returns the cell at a coordinate, or ErrOutOfBounds /
// ErrUnregisteredCell.
func (s *Simulation) Cell(c world.GridCoord) (world.Cell, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grid.Lookup(c)
}

// WithGrid runs fn with shared access to the current grid. fn must not keep
// the grid or mutate it.
func (s *Simulation) WithGrid(fn func(*world.MapGrid)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.grid)
}

// Buildings returns the recorded building footprints for the current map.
func (s *Simulation) Buildings() []Building {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Building, len(s.buildings))
	copy(out, s.buildings)
	return out
}

// Journal returns the notifications not yet flushed, oldest first.
func (s *Simulation) Journal() []JournalEntry {
	s.journalMu.Lock()
	defer s.journalMu.Unlock()
	out := make([]JournalEntry, len(s.journal))
	copy(out, s.journal)
	return out
}

// JournalDropped returns how many entries were discarded because the journal
// filled with no sink to flush to.
func (s *Simulation) JournalDropped() int {
	s.journalMu.Lock()
	defer s.journalMu.Unlock()
	return s.dropped
}

// FlushJournal hands every pending entry to sink and clears them once sink
// accepts them. On error the entries stay pending.
func (s *Simulation) FlushJournal(sink JournalSink) (int, error) {
	s.journalMu.Lock()
	defer s.journalMu.Unlock()
	return s.flushLocked(sink)
}

func (s *Simulation) flushLocked(sink JournalSink) (int, error) {
	if len(s.journal) == 0 {
		return 0, nil
	}
	n, err := sink.SaveEvents(s.journal)
	if err != nil {
		return 0, fmt.Errorf("flush journal: %w", err)
	}
	s.journal = nil
	return n, nil
}

func (s *Simulation) record(h Header, kind EventKind, payload any) {
	s.journalMu.Lock()
	defer s.journalMu.Unlock()
	s.journal = append(s.journal, JournalEntry{Header: h, Kind: kind, Payload: payload})
	if len(s.journal) < maxJournal {
		return
	}

	if s.opts.Journal != nil {
		n, err := s.flushLocked(s.opts.Journal)
		if err == nil {
			slog.Debug("journal flushed", "tick", h.Tick, "saved", n)
			return
		}
		slog.Error("journal flush failed", "error", err)
	}
	if over := len(s.journal) - maxJournal; over > 0 {
		if s.dropped == 0 {
			slog.Warn("journal full, dropping oldest entries", "limit", maxJournal)
		}
		s.dropped += over
		s.journal = s.journal[over:]
	}
}

// ── Systems ────────────────────────────────────────────────────────────

// Step runs every system once for the given tick.
func (s *Simulation) Step(tick uint64) {
	s.tick.Store(tick)
	s.Bus.Advance()

	s.processLoadMaps()
	s.processTerrain()
	s.processPathRequests()
	s.processUnitMoves()
	s.processBuildings()
	s.processReveals()
	s.sweepUnits()
}

// LoadMapNow builds the named map and swaps it in immediately, emitting
// MapLoaded. It waits for every reader of the previous grid to finish.
func (s *Simulation) LoadMapNow(name string) error {
	m, source, err := s.buildMap(name)
	if err != nil {
		return fmt.Errorf("load map %q: %w", name, err)
	}

	s.mu.Lock()
	s.grid = m
	s.generation++
	s.buildings = nil
	generation := s.generation
	s.mu.Unlock()
	s.Fog.Reset()

	ev := MapLoaded{Header: s.header(), MapName: name, Width: m.Width, Height: m.Height}
	s.Bus.MapLoaded.Send(ev)
	s.record(ev.Header, KindMapLoaded, ev)

	slog.Info("map loaded",
		"name", name,
		"source", source,
		"width", m.Width,
		"height", m.Height,
		"cells", m.CellCount(),
		"generation", generation,
	)
	return nil
}

func (s *Simulation) buildMap(name string) (*world.MapGrid, string, error) {
	if s.opts.Maps != nil {
		m, ok, err := s.opts.Maps.LoadMapLayout(name)
		if err != nil {
			return nil, "", err
		}
		if ok {
			return m, "saved", nil
		}
	}
	return world.BuildLayout(name, s.opts.Seed), "layout", nil
}

func (s *Simulation) processLoadMaps() {
	for _, cmd := range s.loadMaps.Read() {
		if err := s.LoadMapNow(cmd.MapName); err != nil {
			slog.Error("map load failed", "name", cmd.MapName, "error", err)
		}
	}
}

func (s *Simulation) processTerrain() {
	cmds := s.terrainMods.Read()
	if len(cmds) == 0 {
		return
	}

	var applied []ModifyTerrain
	s.mu.Lock()
	for _, cmd := range cmds {
		if !cmd.Terrain.Valid() {
			slog.Debug("ignoring unknown terrain", "coord", cmd.Coord, "terrain", cmd.Terrain)
			continue
		}
		if !s.grid.SetTerrain(cmd.Coord, cmd.Terrain) {
			// No registered cell: documented no-op.
			slog.Debug("terrain change on missing cell ignored", "coord", cmd.Coord)
			continue
		}
		applied = append(applied, cmd)
	}
	s.mu.Unlock()

	for _, cmd := range applied {
		ev := TerrainModified{Header: s.header(), Coord: cmd.Coord, Terrain: cmd.Terrain}
		s.Bus.TerrainModified.Send(ev)
		s.record(ev.Header, KindTerrainModified, ev)
	}
}

// processPathRequests runs after every grid write of the tick has committed,
// and holds the shared lock for the whole batch.
func (s *Simulation) processPathRequests() {
	reqs := s.pathReqs.Read()
	if len(reqs) == 0 {
		return
	}

	s.mu.RLock()
	results := s.Paths.Resolve(context.Background(), s.grid, reqs)
	s.mu.RUnlock()

	failed := 0
	for _, res := range results {
		res.Header = s.header()
		if !res.Success {
			failed++
		}
		s.Bus.PathResults.Send(res)
		s.record(res.Header, KindPathfindingResult, res)
	}
	slog.Debug("path requests resolved", "tick", s.CurrentTick(), "requests", len(reqs), "failed", failed)
}

func (s *Simulation) processUnitMoves() {
	for _, ev := range s.moves.Read() {
		s.record(ev.Header, KindUnitMove, ev)
		if err := s.Units.MoveTo(ev.Entity, ev.To); err != nil {
			slog.Debug("unit move not applied", "entity", ev.Entity, "error", err)
		}
	}
}

func (s *Simulation) processBuildings() {
	evs := s.placements.Read()
	if len(evs) == 0 {
		return
	}
	s.mu.Lock()
	for _, ev := range evs {
		s.buildings = append(s.buildings, Building{
			Entity:   ev.Entity,
			Faction:  ev.Faction,
			Position: ev.Position,
			Width:    ev.Width,
			Height:   ev.Height,
			Tick:     ev.Tick,
		})
	}
	s.mu.Unlock()
	for _, ev := range evs {
		s.record(ev.Header, KindBuildingPlaced, ev)
	}
}

func (s *Simulation) processReveals() {
	for _, ev := range s.reveals.Read() {
		s.record(ev.Header, KindTerrainRevealed, ev)

		s.mu.RLock()
		visible := world.VisibleCells(s.grid, ev.Center, ev.Radius)
		s.mu.RUnlock()

		added := s.Fog.Reveal(ev.Faction, visible)
		slog.Debug("terrain revealed", "faction", ev.Faction, "center", ev.Center, "radius", ev.Radius, "new_cells", added)
	}
}

// sweepUnits clears target references to units that died or were removed.
func (s *Simulation) sweepUnits() {
	if n := s.Units.SweepTargets(); n > 0 {
		slog.Debug("stale targets cleared", "tick", s.CurrentTick(), "count", n)
	}
}
