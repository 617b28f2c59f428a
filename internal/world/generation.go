// Map layouts. Built-in layouts are fixed; any other name is generated from
// layered simplex noise seeded by the configured seed and the map name.
package world

import (
	"hash/fnv"
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Built-in layout names.
const (
	LayoutDefault = "default"
	LayoutClassic = "classic"
)

// GenConfig holds noise map generation parameters.
type GenConfig struct {
	Width       int
	Height      int
	CellSize    float64
	Seed        int64
	WaterLvl    float64 // Elevation below which cells are water (0.0–1.0)
	MountainLvl float64 // Elevation above which cells are mountain (0.0–1.0)
}

// DefaultGenConfig returns the configuration used for named noise maps.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:       64,
		Height:      64,
		CellSize:    1.0,
		Seed:        42,
		WaterLvl:    0.28,
		MountainLvl: 0.74,
	}
}

// BuildLayout constructs the grid for a named map. It never returns nil.
func BuildLayout(name string, seed int64) *MapGrid {
	var m *MapGrid
	switch name {
	case LayoutDefault:
		m = NewMapGrid(32, 32, 1.0)
		m.Populate(func(GridCoord) Terrain { return TerrainGrass })
	case LayoutClassic:
		m = NewMapGrid(64, 64, 1.0)
		m.Populate(classicTerrain(64, 64))
	default:
		cfg := DefaultGenConfig()
		cfg.Seed = seed ^ nameSeed(name)
		m = Generate(cfg)
	}
	m.Name = name
	return m
}

// classicTerrain rings the map with water, drops a mountain disk near the
// upper third, and stripes forest diagonally.
func classicTerrain(width, height int) func(GridCoord) Terrain {
	cx := float64(width) / 3.0
	cy := float64(height) / 3.0
	return func(c GridCoord) Terrain {
		switch {
		case c.X <= 3 || c.Y <= 3:
			return TerrainWater
		case c.X >= width-4 || c.Y >= height-4:
			return TerrainWater
		}
		dx := float64(c.X) - cx
		dy := float64(c.Y) - cy
		if dx*dx+dy*dy < 10.0 {
			return TerrainMountain
		}
		if (c.X+c.Y)%7 == 0 {
			return TerrainForest
		}
		return TerrainGrass
	}
}

// Generate creates a fully populated grid from simplex noise.
func Generate(cfg GenConfig) *MapGrid {
	elevNoise := opensimplex.NewNormalized(cfg.Seed)
	moistNoise := opensimplex.NewNormalized(cfg.Seed + 1)

	m := NewMapGrid(cfg.Width, cfg.Height, cfg.CellSize)
	m.Populate(func(c GridCoord) Terrain {
		x, y := float64(c.X), float64(c.Y)
		elev := octaveNoise(elevNoise, x, y, 4, 0.06, 0.5)
		moist := octaveNoise(moistNoise, x, y, 3, 0.05, 0.5)
		return deriveTerrain(elev, moist, cfg)
	})
	return m
}

// deriveTerrain determines terrain type from elevation and moisture.
func deriveTerrain(elev, moist float64, cfg GenConfig) Terrain {
	if elev < cfg.WaterLvl {
		return TerrainWater
	}
	if elev > cfg.MountainLvl {
		return TerrainMountain
	}
	if elev > cfg.MountainLvl-0.08 {
		return TerrainStone
	}
	if moist > 0.62 {
		return TerrainForest
	}
	if moist < 0.3 {
		return TerrainDirt
	}
	return TerrainGrass
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return math.Max(0, math.Min(1, total/maxVal))
}

func nameSeed(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return int64(h.Sum64() >> 1)
}

// FromTerrains rebuilds a grid from a row-major terrain slice, as produced by
// MapGrid.Terrains. Extra entries are ignored; missing ones become Grass.
func FromTerrains(name string, width, height int, cellSize float64, terrains []Terrain) *MapGrid {
	m := NewMapGrid(width, height, cellSize)
	m.Name = name
	m.Populate(func(c GridCoord) Terrain {
		i := c.Y*width + c.X
		if i < len(terrains) {
			return terrains[i]
		}
		return TerrainGrass
	})
	return m
}
