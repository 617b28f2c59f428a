package engine

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/skirmish/internal/pathfind"
	"github.com/talgya/skirmish/internal/world"
)

// PathService answers path requests against a stable grid view.
type PathService struct {
	Workers    int // Concurrent searches per batch; <= 0 means 1
	NodeBudget int // Expanded-node cap per search; 0 means unbounded
}

// Resolve answers every request, in order. Each request yields exactly one
// result; failures are results with Success false and an empty path. The
// grid must not change until Resolve returns.
func (p PathService) Resolve(ctx context.Context, g pathfind.Grid, reqs []PathfindingRequest) []PathfindingResult {
	results := make([]PathfindingResult, len(reqs))
	if len(reqs) == 0 {
		return results
	}

	workers := p.Workers
	if workers <= 0 {
		workers = 1
	}
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i := range reqs {
		eg.Go(func() error {
			results[i] = p.resolveOne(g, reqs[i])
			return nil
		})
	}
	// Workers never return errors; failures are carried in the results.
	_ = eg.Wait()
	return results
}

func (p PathService) resolveOne(g pathfind.Grid, req PathfindingRequest) PathfindingResult {
	res := PathfindingResult{
		Request: req.ID,
		Entity:  req.Entity,
		Path:    []world.GridCoord{},
	}

	found, err := pathfind.FindPath(g, req.From, req.To, pathfind.Options{MaxNodes: p.NodeBudget})
	switch {
	case err == nil:
		res.Path = found.Path
		res.Success = true
	case errors.Is(err, world.ErrOutOfBounds):
		res.Reason = "out_of_bounds"
	case errors.Is(err, pathfind.ErrBudgetExhausted):
		res.Reason = "budget_exhausted"
		slog.Debug("path search budget exhausted", "entity", req.Entity, "from", req.From, "to", req.To, "expanded", found.Expanded)
	default:
		res.Reason = "no_path"
	}
	return res
}
