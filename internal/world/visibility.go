package world

import "sync"

// Octant transforms for recursive shadowcasting.
var octants = [4][8]int{
	{1, 0, 0, -1, -1, 0, 0, 1},
	{0, 1, -1, 0, 0, -1, 1, 0},
	{0, 1, 1, 0, 0, -1, -1, 0},
	{1, 0, 0, 1, -1, 0, 0, -1},
}

// VisibleCells returns the coordinates visible from center within radius.
// Mountains and forests block sight but are themselves visible. The center is
// always visible if it is in bounds. A radius <= 0 sees only the center.
func VisibleCells(m *MapGrid, center GridCoord, radius int) map[GridCoord]bool {
	visible := make(map[GridCoord]bool)
	if !m.InBounds(center) {
		return visible
	}
	visible[center] = true
	if radius <= 0 {
		return visible
	}

	for i := 0; i < 8; i++ {
		castLight(m, center, 1, 1.0, 0.0, radius,
			octants[0][i], octants[1][i], octants[2][i], octants[3][i], visible)
	}
	return visible
}

func castLight(m *MapGrid, center GridCoord, row int, start, end float64, radius, xx, xy, yx, yy int, visible map[GridCoord]bool) {
	if start < end {
		return
	}
	radiusSq := radius * radius

	for j := row; j <= radius; j++ {
		dx, dy := -j-1, -j
		blocked := false
		newStart := start

		for {
			dx++
			if dx > 0 {
				break
			}

			lSlope := (float64(dx) - 0.5) / (float64(dy) + 0.5)
			rSlope := (float64(dx) + 0.5) / (float64(dy) - 0.5)
			if start < rSlope {
				continue
			}
			if end > lSlope {
				break
			}

			c := GridCoord{X: center.X + dx*xx + dy*xy, Y: center.Y + dx*yx + dy*yy}
			if m.InBounds(c) && dx*dx+dy*dy <= radiusSq {
				visible[c] = true
			}

			if blocked {
				if blocksSight(m, c) {
					newStart = rSlope
					continue
				}
				blocked = false
				start = newStart
			} else if blocksSight(m, c) && j < radius {
				blocked = true
				castLight(m, center, j+1, start, lSlope, radius, xx, xy, yx, yy, visible)
				newStart = rSlope
			}
		}
		if blocked {
			break
		}
	}
}

// blocksSight treats out-of-bounds and unregistered cells as opaque.
func blocksSight(m *MapGrid, c GridCoord) bool {
	cell, ok := m.GetCell(c)
	return !ok || cell.BlocksSight()
}

// FogOfWar tracks which cells each faction has revealed. It is safe for
// concurrent use.
type FogOfWar[K comparable] struct {
	mu       sync.RWMutex
	revealed map[K]map[GridCoord]bool
}

// NewFogOfWar creates an empty fog-of-war tracker.
func NewFogOfWar[K comparable]() *FogOfWar[K] {
	return &FogOfWar[K]{revealed: make(map[K]map[GridCoord]bool)}
}

// Reveal marks cells as seen by the faction and returns how many were new.
func (f *FogOfWar[K]) Reveal(faction K, cells map[GridCoord]bool) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	seen, ok := f.revealed[faction]
	if !ok {
		seen = make(map[GridCoord]bool, len(cells))
		f.revealed[faction] = seen
	}
	added := 0
	for c := range cells {
		if !seen[c] {
			seen[c] = true
			added++
		}
	}
	return added
}

// Revealed reports whether the faction has seen the cell.
func (f *FogOfWar[K]) Revealed(faction K, c GridCoord) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.revealed[faction][c]
}

// RevealedCount returns how many cells the faction has seen.
func (f *FogOfWar[K]) RevealedCount(faction K) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.revealed[faction])
}

// Reset forgets everything, e.g. when the map is replaced.
func (f *FogOfWar[K]) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revealed = make(map[K]map[GridCoord]bool)
}
