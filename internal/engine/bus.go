package engine

import "sync"

// Channel is a typed, double-buffered broadcast queue.
//
// Records sent during tick N sit in the pending buffer and become readable
// when the bus advances at the start of tick N+1. They stay readable for that
// one tick and are dropped at the next advance. Every Reader sees each
// readable record once, no matter how often it reads. Records are values and
// are never modified after Send.
type Channel[T any] struct {
	mu       sync.Mutex
	readable []T
	base     uint64 // Sequence number of readable[0]
	pending  []T
	next     uint64 // Sequence number of the next Send
}

// Send queues a record for the next tick. Safe for concurrent use.
func (c *Channel[T]) Send(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, v)
	c.next++
}

// advance promotes pending records to readable and drops the old ones.
func (c *Channel[T]) advance() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = c.next - uint64(len(c.pending))
	c.readable = c.pending
	c.pending = nil
}

// Readable returns a copy of the records readable this tick.
func (c *Channel[T]) Readable() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.readable))
	copy(out, c.readable)
	return out
}

// Pending returns how many records wait for the next tick.
func (c *Channel[T]) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Reader creates an independent cursor that starts at the records currently
// readable.
func (c *Channel[T]) Reader() *Reader[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &Reader[T]{ch: c, cursor: c.base}
}

// Reader is one consumer's position in a Channel. A Reader is not safe for
// concurrent use; give each consumer its own.
type Reader[T any] struct {
	ch     *Channel[T]
	cursor uint64
}

// Read returns readable records this reader has not seen yet. Records that
// expired before the reader got to them are skipped.
func (r *Reader[T]) Read() []T {
	c := r.ch
	c.mu.Lock()
	defer c.mu.Unlock()

	end := c.base + uint64(len(c.readable))
	start := r.cursor
	if start < c.base {
		start = c.base
	}
	r.cursor = end
	if start >= end {
		return nil
	}
	out := make([]T, end-start)
	copy(out, c.readable[start-c.base:])
	return out
}

// Bus owns one channel per record kind.
type Bus struct {
	LoadMap       Channel[LoadMap]
	ModifyTerrain Channel[ModifyTerrain]
	PathRequests  Channel[PathfindingRequest]

	MapLoaded       Channel[MapLoaded]
	TerrainModified Channel[TerrainModified]
	PathResults     Channel[PathfindingResult]

	UnitMoves       Channel[UnitMove]
	BuildingsPlaced Channel[BuildingPlaced]
	TerrainReveals  Channel[TerrainRevealed]
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Advance moves every channel to the next tick. Call once per tick, before
// any system reads.
func (b *Bus) Advance() {
	b.LoadMap.advance()
	b.ModifyTerrain.advance()
	b.PathRequests.advance()
	b.MapLoaded.advance()
	b.TerrainModified.advance()
	b.PathResults.advance()
	b.UnitMoves.advance()
	b.BuildingsPlaced.advance()
	b.TerrainReveals.advance()
}
