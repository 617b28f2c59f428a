package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/talgya/skirmish/internal/social"
	"github.com/talgya/skirmish/internal/units"
	"github.com/talgya/skirmish/internal/world"
)

// Header stamps every record on the bus.
type Header struct {
	ID        uuid.UUID     `json:"id"`
	Tick      uint64        `json:"tick"`
	Timestamp time.Duration `json:"timestamp"` // Simulation time
}

// Commands consumed by the core.

// LoadMap replaces the whole grid with the named layout.
type LoadMap struct {
	Header
	MapName string `json:"map_name"`
}

// ModifyTerrain changes one cell's terrain.
type ModifyTerrain struct {
	Header
	Coord   world.GridCoord `json:"coord"`
	Terrain world.Terrain   `json:"new_terrain"`
}

// PathfindingRequest asks for a route for an entity.
type PathfindingRequest struct {
	Header
	Entity units.UnitID    `json:"entity"`
	From   world.GridCoord `json:"from"`
	To     world.GridCoord `json:"to"`
}

// Notifications produced by the core.

// MapLoaded announces a completed map (re)load.
type MapLoaded struct {
	Header
	MapName string `json:"map_name"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// TerrainModified announces an applied terrain change.
type TerrainModified struct {
	Header
	Coord   world.GridCoord `json:"coord"`
	Terrain world.Terrain   `json:"new_terrain"`
}

// PathfindingResult answers exactly one PathfindingRequest. Path is empty
// unless Success. Readers must not modify Path.
type PathfindingResult struct {
	Header
	Request uuid.UUID         `json:"request"`
	Entity  units.UnitID      `json:"entity"`
	Path    []world.GridCoord `json:"path"`
	Success bool              `json:"success"`
	Reason  string            `json:"reason,omitempty"`
}

// Notifications written by presentation/AI callers and bookkept by the core.

// UnitMove records a unit stepping between cells.
type UnitMove struct {
	Header
	Entity units.UnitID    `json:"entity"`
	From   world.GridCoord `json:"from"`
	To     world.GridCoord `json:"to"`
}

// BuildingPlaced records a building footprint. Size is width×height in cells.
type BuildingPlaced struct {
	Header
	Entity   units.UnitID     `json:"entity"`
	Faction  social.FactionID `json:"faction"`
	Position world.GridCoord  `json:"position"`
	Width    int              `json:"width"`
	Height   int              `json:"height"`
}

// TerrainRevealed records a faction uncovering fog around a point.
type TerrainRevealed struct {
	Header
	Center  world.GridCoord  `json:"center"`
	Radius  int              `json:"radius"`
	Faction social.FactionID `json:"faction"`
}

// EventKind names a record type in the journal.
type EventKind string

const (
	KindMapLoaded         EventKind = "map_loaded"
	KindTerrainModified   EventKind = "terrain_modified"
	KindPathfindingResult EventKind = "pathfinding_result"
	KindUnitMove          EventKind = "unit_move"
	KindBuildingPlaced    EventKind = "building_placed"
	KindTerrainRevealed   EventKind = "terrain_revealed"
)

// JournalEntry is a notification kept for persistence.
type JournalEntry struct {
	Header
	Kind    EventKind `json:"kind"`
	Payload any       `json:"payload"`
}
