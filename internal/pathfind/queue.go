package pathfind

import "github.com/talgya/skirmish/internal/world"

// node is an entry in the A* open set.
type node struct {
	coord world.GridCoord
	g     float64 // Cost from start
	h     float64 // Heuristic to goal
	index int     // Position in the heap
}

func (n *node) f() float64 { return n.g + n.h }

// openSet implements heap.Interface as a min-heap ordered by (f, h, x, y).
type openSet []*node

func (pq openSet) Len() int { return len(pq) }

func (pq openSet) Less(i, j int) bool {
	a, b := pq[i], pq[j]
	if a.f() != b.f() {
		return a.f() < b.f()
	}
	if a.h != b.h {
		return a.h < b.h
	}
	return a.coord.Less(b.coord)
}

func (pq openSet) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *openSet) Push(x any) {
	item := x.(*node)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *openSet) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}
