package world

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfBounds is returned for coordinates outside [0,width)×[0,height).
	ErrOutOfBounds = errors.New("coordinate out of bounds")
	// ErrUnregisteredCell is returned for in-bounds coordinates with no cell yet.
	ErrUnregisteredCell = errors.New("cell not registered")
)

// CellRef is the storage slot of a cell in a MapGrid's arena.
type CellRef int32

// NoCell marks an unregistered coordinate.
const NoCell CellRef = -1

// MapGrid is the authoritative terrain registry. Cells live in a dense arena;
// a row-major index (y*width+x) maps each coordinate to its arena slot.
//
// A MapGrid is not safe for concurrent mutation. The simulation serializes
// writers against readers.
type MapGrid struct {
	Name     string  `json:"name"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	CellSize float64 `json:"cell_size"` // World units per cell

	cells []Cell
	index []CellRef
}

// NewMapGrid creates an empty grid descriptor. No cells are registered until
// the caller populates them with AddCell and RegisterCell (or Populate).
func NewMapGrid(width, height int, cellSize float64) *MapGrid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	if cellSize <= 0 {
		cellSize = 1.0
	}
	index := make([]CellRef, width*height)
	for i := range index {
		index[i] = NoCell
	}
	return &MapGrid{
		Width:    width,
		Height:   height,
		CellSize: cellSize,
		index:    index,
	}
}

// InBounds returns true if the coordinate lies within the grid.
func (m *MapGrid) InBounds(c GridCoord) bool {
	return c.X >= 0 && c.X < m.Width && c.Y >= 0 && c.Y < m.Height
}

func (m *MapGrid) slot(c GridCoord) int {
	return c.Y*m.Width + c.X
}

// AddCell stores a cell in the arena and returns its slot. The cell is not
// reachable by coordinate until registered.
func (m *MapGrid) AddCell(cell Cell) CellRef {
	m.cells = append(m.cells, cell)
	return CellRef(len(m.cells) - 1)
}

// RegisterCell binds a coordinate to an arena slot, overwriting any previous
// binding. It reports false, changing nothing, if the coordinate is out of
// bounds or the slot does not exist.
func (m *MapGrid) RegisterCell(c GridCoord, ref CellRef) bool {
	if !m.InBounds(c) || ref < 0 || int(ref) >= len(m.cells) {
		return false
	}
	m.index[m.slot(c)] = ref
	return true
}

// CellRefAt returns the arena slot registered for a coordinate.
func (m *MapGrid) CellRefAt(c GridCoord) (CellRef, bool) {
	if !m.InBounds(c) {
		return NoCell, false
	}
	ref := m.index[m.slot(c)]
	return ref, ref != NoCell
}

// GetCell returns a copy of the cell at the coordinate.
func (m *MapGrid) GetCell(c GridCoord) (Cell, bool) {
	ref, ok := m.CellRefAt(c)
	if !ok {
		return Cell{}, false
	}
	return m.cells[ref], true
}

// Lookup is GetCell with the failure reason.
func (m *MapGrid) Lookup(c GridCoord) (Cell, error) {
	if !m.InBounds(c) {
		return Cell{}, fmt.Errorf("%w: (%d,%d) on %dx%d", ErrOutOfBounds, c.X, c.Y, m.Width, m.Height)
	}
	cell, ok := m.GetCell(c)
	if !ok {
		return Cell{}, fmt.Errorf("%w: (%d,%d)", ErrUnregisteredCell, c.X, c.Y)
	}
	return cell, nil
}

// SetTerrain changes the terrain of a registered cell and re-derives its
// flags. Coordinates without a registered cell are a no-op and report false.
func (m *MapGrid) SetTerrain(c GridCoord, t Terrain) bool {
	ref, ok := m.CellRefAt(c)
	if !ok {
		return false
	}
	m.cells[ref].SetTerrain(t)
	return true
}

// Walkable reports whether a unit may stand on the coordinate. Unknown and
// out-of-bounds cells are not walkable.
func (m *MapGrid) Walkable(c GridCoord) bool {
	cell, ok := m.GetCell(c)
	return ok && cell.Walkable
}

// Buildable reports whether construction is allowed on the coordinate.
func (m *MapGrid) Buildable(c GridCoord) bool {
	cell, ok := m.GetCell(c)
	return ok && cell.Buildable
}

// Populate registers a fresh cell for every coordinate in bounds, taking the
// terrain from fn.
func (m *MapGrid) Populate(fn func(GridCoord) Terrain) {
	m.cells = make([]Cell, 0, m.Width*m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			c := GridCoord{X: x, Y: y}
			m.RegisterCell(c, m.AddCell(NewCell(fn(c))))
		}
	}
}

// CellCount returns the number of registered coordinates.
func (m *MapGrid) CellCount() int {
	n := 0
	for _, ref := range m.index {
		if ref != NoCell {
			n++
		}
	}
	return n
}

// Complete reports whether every in-bounds coordinate has a cell.
func (m *MapGrid) Complete() bool {
	return m.CellCount() == len(m.index)
}

// WorldToGrid converts a world position to a grid coordinate on this map.
func (m *MapGrid) WorldToGrid(pos Vec3) GridCoord {
	return WorldToGrid(pos, m.CellSize)
}

// GridToWorld returns the world-space centre of a cell.
func (m *MapGrid) GridToWorld(c GridCoord, elevation float64) Vec3 {
	return GridToWorld(c, elevation, m.CellSize)
}

// Terrains returns the terrain of every cell in row-major order. Unregistered
// coordinates report Grass.
func (m *MapGrid) Terrains() []Terrain {
	out := make([]Terrain, len(m.index))
	for i, ref := range m.index {
		if ref != NoCell {
			out[i] = m.cells[ref].Terrain
		}
	}
	return out
}

// TerrainCounts returns a summary of terrain type distribution.
func (m *MapGrid) TerrainCounts() map[Terrain]int {
	counts := make(map[Terrain]int)
	for _, ref := range m.index {
		if ref != NoCell {
			counts[m.cells[ref].Terrain]++
		}
	}
	return counts
}

// String returns a summary of the map.
func (m *MapGrid) String() string {
	return fmt.Sprintf("MapGrid(%q %dx%d, cell=%.2f, cells=%d)", m.Name, m.Width, m.Height, m.CellSize, m.CellCount())
}
