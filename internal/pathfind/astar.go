// Package pathfind finds shortest paths across the walkable cells of a grid.
//
// Search is A* over the 4-connected grid with unit step cost and the
// Manhattan heuristic. Among equal-cost candidates the open set prefers the
// node closest to the goal by heuristic, then the smaller x, then the smaller
// y, so identical inputs always yield identical paths.
package pathfind

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/talgya/skirmish/internal/world"
)

var (
	// ErrNoPath means both endpoints are valid but no walkable route joins them.
	ErrNoPath = errors.New("no path")
	// ErrBudgetExhausted means the search gave up after its node budget.
	ErrBudgetExhausted = errors.New("search budget exhausted")
)

// StepCost is the cost of moving to an adjacent cell.
const StepCost = 1.0

// Grid is the read-only view a search needs.
type Grid interface {
	InBounds(c world.GridCoord) bool
	Walkable(c world.GridCoord) bool
}

// Options bound a search.
type Options struct {
	// MaxNodes caps the number of expanded nodes. Zero means unbounded.
	MaxNodes int
}

// Result describes a finished search.
type Result struct {
	Path     []world.GridCoord
	Cost     float64
	Expanded int
}

// FindPath returns the shortest path from `from` to `to`, both included.
// Every cell on the path, the start included, must be walkable.
func FindPath(g Grid, from, to world.GridCoord, opts Options) (Result, error) {
	if !g.InBounds(from) || !g.InBounds(to) {
		return Result{}, fmt.Errorf("path (%d,%d)->(%d,%d): %w", from.X, from.Y, to.X, to.Y, world.ErrOutOfBounds)
	}
	if !g.Walkable(from) {
		return Result{}, fmt.Errorf("path from (%d,%d): start blocked: %w", from.X, from.Y, ErrNoPath)
	}
	if from == to {
		return Result{Path: []world.GridCoord{from}}, nil
	}
	if !g.Walkable(to) {
		return Result{}, fmt.Errorf("path to (%d,%d): destination blocked: %w", to.X, to.Y, ErrNoPath)
	}

	gScore := map[world.GridCoord]float64{from: 0}
	cameFrom := make(map[world.GridCoord]world.GridCoord)
	closed := make(map[world.GridCoord]bool)

	open := &openSet{}
	heap.Push(open, &node{coord: from, g: 0, h: heuristic(from, to)})

	expanded := 0
	for open.Len() > 0 {
		cur := heap.Pop(open).(*node)
		if closed[cur.coord] {
			continue
		}
		if cur.coord == to {
			return Result{Path: reconstruct(cameFrom, from, to), Cost: cur.g, Expanded: expanded}, nil
		}
		if opts.MaxNodes > 0 && expanded >= opts.MaxNodes {
			return Result{Expanded: expanded}, fmt.Errorf("path (%d,%d)->(%d,%d) after %d nodes: %w",
				from.X, from.Y, to.X, to.Y, expanded, ErrBudgetExhausted)
		}
		closed[cur.coord] = true
		expanded++

		for _, next := range cur.coord.Neighbors() {
			if closed[next] || !g.InBounds(next) || !g.Walkable(next) {
				continue
			}
			tentative := cur.g + StepCost
			if best, seen := gScore[next]; seen && tentative >= best {
				continue
			}
			gScore[next] = tentative
			cameFrom[next] = cur.coord
			heap.Push(open, &node{coord: next, g: tentative, h: heuristic(next, to)})
		}
	}

	return Result{Expanded: expanded}, fmt.Errorf("path (%d,%d)->(%d,%d): %w", from.X, from.Y, to.X, to.Y, ErrNoPath)
}

func heuristic(a, b world.GridCoord) float64 {
	return float64(world.ManhattanDistance(a, b)) * StepCost
}

func reconstruct(cameFrom map[world.GridCoord]world.GridCoord, from, to world.GridCoord) []world.GridCoord {
	var rev []world.GridCoord
	for c := to; c != from; c = cameFrom[c] {
		rev = append(rev, c)
	}
	rev = append(rev, from)

	path := make([]world.GridCoord, len(rev))
	for i, c := range rev {
		path[len(rev)-1-i] = c
	}
	return path
}

// ValidPath reports whether path is a contiguous 4-connected walk over
// walkable cells.
func ValidPath(g Grid, path []world.GridCoord) bool {
	for i, c := range path {
		if !g.InBounds(c) || !g.Walkable(c) {
			return false
		}
		if i > 0 && world.ManhattanDistance(path[i-1], c) != 1 {
			return false
		}
	}
	return len(path) > 0
}
