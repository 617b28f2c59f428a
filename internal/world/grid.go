// Package world provides the grid coordinate system, terrain registry, map
// layouts, and fog-of-war visibility for the simulation.
// Cells are addressed by integer (x, y); world space uses X/Z as the ground plane
// and Y as up.
package world

import "math"

// GridCoord identifies one cell on the map grid.
type GridCoord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Less orders coordinates by x, then y.
func (c GridCoord) Less(o GridCoord) bool {
	if c.X != o.X {
		return c.X < o.X
	}
	return c.Y < o.Y
}

// Add returns the coordinate offset by (dx, dy).
func (c GridCoord) Add(dx, dy int) GridCoord {
	return GridCoord{X: c.X + dx, Y: c.Y + dy}
}

// Vec3 is a continuous world-space position.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"` // Up
	Z float64 `json:"z"`
}

// CardinalDirections are the four grid neighbour offsets, in expansion order.
var CardinalDirections = [4]GridCoord{
	{X: 1, Y: 0},
	{X: 0, Y: 1},
	{X: -1, Y: 0},
	{X: 0, Y: -1},
}

// Neighbors returns the four orthogonally adjacent coordinates.
// Results may lie outside any map; callers bounds-check.
func (c GridCoord) Neighbors() [4]GridCoord {
	var result [4]GridCoord
	for i, dir := range CardinalDirections {
		result[i] = GridCoord{X: c.X + dir.X, Y: c.Y + dir.Y}
	}
	return result
}

// ManhattanDistance returns |dx| + |dy|.
func ManhattanDistance(a, b GridCoord) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

// WorldToGrid floors the ground-plane components of pos divided by cellSize.
// No clamping: the result may be out of bounds for any particular map.
func WorldToGrid(pos Vec3, cellSize float64) GridCoord {
	return GridCoord{
		X: int(math.Floor(pos.X / cellSize)),
		Y: int(math.Floor(pos.Z / cellSize)),
	}
}

// GridToWorld returns the centre of the cell at the given elevation.
func GridToWorld(coord GridCoord, elevation, cellSize float64) Vec3 {
	return Vec3{
		X: (float64(coord.X) + 0.5) * cellSize,
		Y: elevation,
		Z: (float64(coord.Y) + 0.5) * cellSize,
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
