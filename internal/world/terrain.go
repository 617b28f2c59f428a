package world

import (
	"fmt"
	"strings"
)

// Terrain classifies a cell.
type Terrain uint8

const (
	TerrainGrass    Terrain = iota // Open ground
	TerrainDirt                    // Bare ground
	TerrainStone                   // Rocky flats
	TerrainWater                   // Impassable, cannot be built on
	TerrainForest                  // Passable, blocks construction and sight
	TerrainMountain                // Impassable, raised
)

// terrainCount is the number of defined terrain kinds.
const terrainCount = int(TerrainMountain) + 1

// MountainElevation is the elevation given to mountain cells.
const MountainElevation = 2.0

// Cell is one grid square's terrain record. Walkable, Buildable, and
// Elevation are derived from Terrain and must only be set through NewCell or
// Cell.SetTerrain.
type Cell struct {
	Terrain   Terrain `json:"terrain"`
	Walkable  bool    `json:"walkable"`
	Buildable bool    `json:"buildable"`
	Elevation float64 `json:"elevation"`
}

type terrainPolicy struct {
	walkable  bool
	buildable bool
	elevation float64
}

var terrainPolicies = [terrainCount]terrainPolicy{
	TerrainGrass:    {walkable: true, buildable: true},
	TerrainDirt:     {walkable: true, buildable: true},
	TerrainStone:    {walkable: true, buildable: true},
	TerrainWater:    {},
	TerrainForest:   {walkable: true},
	TerrainMountain: {elevation: MountainElevation},
}

// NewCell returns a cell with flags derived from the terrain.
func NewCell(t Terrain) Cell {
	var c Cell
	c.SetTerrain(t)
	return c
}

// SetTerrain replaces the terrain and re-derives every dependent flag.
// Unknown terrain values are treated as Grass.
func (c *Cell) SetTerrain(t Terrain) {
	if !t.Valid() {
		t = TerrainGrass
	}
	p := terrainPolicies[t]
	c.Terrain = t
	c.Walkable = p.walkable
	c.Buildable = p.buildable
	c.Elevation = p.elevation
}

// BlocksSight reports whether the cell stops line of sight.
func (c Cell) BlocksSight() bool {
	return c.Terrain == TerrainMountain || c.Terrain == TerrainForest
}

// Valid reports whether t is a defined terrain kind.
func (t Terrain) Valid() bool {
	return int(t) < terrainCount
}

// String returns a human-readable name for a terrain type.
func (t Terrain) String() string {
	switch t {
	case TerrainGrass:
		return "Grass"
	case TerrainDirt:
		return "Dirt"
	case TerrainStone:
		return "Stone"
	case TerrainWater:
		return "Water"
	case TerrainForest:
		return "Forest"
	case TerrainMountain:
		return "Mountain"
	default:
		return "Unknown"
	}
}

// ParseTerrain converts a case-insensitive name into a Terrain.
func ParseTerrain(name string) (Terrain, error) {
	for t := Terrain(0); t.Valid(); t++ {
		if strings.EqualFold(name, t.String()) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown terrain %q", name)
}
