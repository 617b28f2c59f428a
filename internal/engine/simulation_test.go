package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/talgya/skirmish/internal/pathfind"
	"github.com/talgya/skirmish/internal/social"
	"github.com/talgya/skirmish/internal/units"
	"github.com/talgya/skirmish/internal/world"
)

func newTestSim(t *testing.T) *Simulation {
	t.Helper()
	sim := NewSimulation(nil, Options{Seed: 42, PathWorkers: 4, TickDuration: 100 * time.Millisecond})
	if err := sim.LoadMapNow(world.LayoutDefault); err != nil {
		t.Fatalf("LoadMapNow: %v", err)
	}
	return sim
}

func grassField(name string, w, h int) *world.MapGrid {
	terrains := make([]world.Terrain, w*h)
	for i := range terrains {
		terrains[i] = world.TerrainGrass
	}
	return world.FromTerrains(name, w, h, 1.0, terrains)
}

func TestTerrainChangeVisibleToSameTickPaths(t *testing.T) {
	sim := NewSimulation(nil, Options{PathWorkers: 4, Maps: stubMaps{m: grassField("field", 64, 64)}})
	if err := sim.LoadMapNow("field"); err != nil {
		t.Fatal(err)
	}
	if info := sim.MapInfo(); info.Width != 64 || info.Height != 64 {
		t.Fatalf("MapInfo = %+v", info)
	}
	results := sim.Bus.PathResults.Reader()
	modified := sim.Bus.TerrainModified.Reader()

	sim.ModifyTerrain(world.GridCoord{X: 5, Y: 5}, world.TerrainWater)
	id := sim.RequestPath(1, world.GridCoord{X: 0, Y: 0}, world.GridCoord{X: 10, Y: 10})

	sim.Step(1)
	if got := results.Read(); len(got) != 0 {
		t.Fatalf("results visible in the tick they were produced: %+v", got)
	}
	sim.Step(2)

	got := results.Read()
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}
	res := got[0]
	if res.Request != id || res.Entity != 1 {
		t.Errorf("result not correlated: %+v", res)
	}
	if !res.Success {
		t.Fatalf("path failed: %s", res.Reason)
	}
	if len(res.Path) != 21 {
		t.Errorf("path length = %d, want 21", len(res.Path))
	}
	for _, c := range res.Path {
		if c == (world.GridCoord{X: 5, Y: 5}) {
			t.Fatal("path crosses the new water cell")
		}
	}
	sim.WithGrid(func(m *world.MapGrid) {
		if !pathfind.ValidPath(m, res.Path) {
			t.Error("path is not a valid walk")
		}
	})

	mods := modified.Read()
	if len(mods) != 1 || mods[0].Terrain != world.TerrainWater {
		t.Errorf("TerrainModified = %+v", mods)
	}

	cell, err := sim.Cell(world.GridCoord{X: 5, Y: 5})
	if err != nil {
		t.Fatal(err)
	}
	if cell.Walkable || cell.Buildable {
		t.Errorf("water cell flags = %+v", cell)
	}
}

func TestPathRequestFailures(t *testing.T) {
	sim := newTestSim(t)
	results := sim.Bus.PathResults.Reader()

	oob := sim.RequestPath(1, world.GridCoord{X: 0, Y: 0}, world.GridCoord{X: 999, Y: 999})
	same := sim.RequestPath(2, world.GridCoord{X: 2, Y: 2}, world.GridCoord{X: 2, Y: 2})
	neg := sim.RequestPath(3, world.GridCoord{X: -1, Y: 0}, world.GridCoord{X: 3, Y: 3})

	sim.Step(1)
	sim.Step(2)

	got := results.Read()
	if len(got) != 3 {
		t.Fatalf("got %d results, want exactly one per request", len(got))
	}
	if got[0].Request != oob || got[1].Request != same || got[2].Request != neg {
		t.Fatal("results out of request order")
	}

	if got[0].Success || len(got[0].Path) != 0 || got[0].Reason != "out_of_bounds" {
		t.Errorf("out-of-bounds result = %+v", got[0])
	}
	if !got[1].Success || len(got[1].Path) != 1 || got[1].Path[0] != (world.GridCoord{X: 2, Y: 2}) {
		t.Errorf("same-cell result = %+v", got[1])
	}
	if got[2].Success || got[2].Path == nil || len(got[2].Path) != 0 {
		t.Errorf("negative-coordinate result = %+v", got[2])
	}
}

func TestDestinationBlocked(t *testing.T) {
	sim := newTestSim(t)
	results := sim.Bus.PathResults.Reader()

	sim.ModifyTerrain(world.GridCoord{X: 4, Y: 4}, world.TerrainMountain)
	sim.RequestPath(1, world.GridCoord{X: 0, Y: 0}, world.GridCoord{X: 4, Y: 4})
	sim.Step(1)
	sim.Step(2)

	got := results.Read()
	if len(got) != 1 || got[0].Success || got[0].Reason != "no_path" {
		t.Fatalf("result = %+v, want no_path failure", got)
	}
}

func TestNodeBudget(t *testing.T) {
	sim := NewSimulation(nil, Options{Seed: 1, NodeBudget: 3})
	if err := sim.LoadMapNow(world.LayoutDefault); err != nil {
		t.Fatal(err)
	}
	results := sim.Bus.PathResults.Reader()

	sim.RequestPath(1, world.GridCoord{X: 0, Y: 0}, world.GridCoord{X: 20, Y: 20})
	sim.Step(1)
	sim.Step(2)

	got := results.Read()
	if len(got) != 1 || got[0].Success || got[0].Reason != "budget_exhausted" {
		t.Fatalf("result = %+v, want budget failure", got)
	}
}

func TestModifyMissingCellIsNoop(t *testing.T) {
	sim := newTestSim(t)
	modified := sim.Bus.TerrainModified.Reader()

	sim.ModifyTerrain(world.GridCoord{X: 500, Y: 500}, world.TerrainStone)
	sim.Step(1)
	sim.Step(2)

	if got := modified.Read(); len(got) != 0 {
		t.Errorf("TerrainModified emitted for missing cell: %+v", got)
	}
}

func TestLoadMapCommand(t *testing.T) {
	sim := newTestSim(t)
	loaded := sim.Bus.MapLoaded.Reader()
	before := sim.MapInfo()

	sim.PlaceBuilding(9, social.Player(1), world.GridCoord{X: 3, Y: 3}, 2, 2)
	sim.Step(1)
	if n := len(sim.Buildings()); n != 1 {
		t.Fatalf("buildings = %d, want 1", n)
	}

	sim.LoadMap(world.LayoutClassic)
	sim.Step(2)
	info := sim.MapInfo()
	if info.Name != world.LayoutClassic || info.Width != 64 || info.Height != 64 {
		t.Errorf("MapInfo = %+v", info)
	}
	if info.Generation != before.Generation+1 {
		t.Errorf("generation = %d, want %d", info.Generation, before.Generation+1)
	}
	if n := len(sim.Buildings()); n != 0 {
		t.Errorf("buildings survived map load: %d", n)
	}

	sim.Step(3)
	var names []string
	for _, ev := range loaded.Read() {
		names = append(names, ev.MapName)
	}
	if len(names) != 1 || names[0] != world.LayoutClassic {
		t.Errorf("MapLoaded names = %v", names)
	}
}

func TestUnitMoveBookkeeping(t *testing.T) {
	sim := newTestSim(t)
	u := sim.Units.Spawn(units.SpawnSpec{Name: "scout", Position: world.GridCoord{X: 1, Y: 1}, Stats: units.DefaultStatsheet()})

	sim.MoveUnit(u.ID, u.Position, world.GridCoord{X: 2, Y: 1})
	sim.Step(1)

	got, ok := sim.Units.Get(u.ID)
	if !ok {
		t.Fatal("unit missing")
	}
	if got.Position != (world.GridCoord{X: 2, Y: 1}) || got.State != units.StateMoving {
		t.Errorf("unit after move = %+v", got)
	}

	// Unknown entities are ignored.
	sim.MoveUnit(999, world.GridCoord{}, world.GridCoord{X: 1, Y: 0})
	sim.Step(2)
}

func TestRevealBookkeeping(t *testing.T) {
	sim := newTestSim(t)
	p1 := social.Player(1)

	sim.RevealTerrain(world.GridCoord{X: 16, Y: 16}, 3, p1)
	sim.Step(1)

	if !sim.Fog.Revealed(p1, world.GridCoord{X: 16, Y: 16}) {
		t.Error("center not revealed")
	}
	if sim.Fog.Revealed(social.Player(2), world.GridCoord{X: 16, Y: 16}) {
		t.Error("reveal leaked to another faction")
	}
	if sim.Fog.Revealed(p1, world.GridCoord{X: 0, Y: 0}) {
		t.Error("far cell revealed")
	}
}

func TestSweepClearsDeadTargets(t *testing.T) {
	sim := newTestSim(t)
	a := sim.Units.Spawn(units.SpawnSpec{Name: "a", Stats: units.DefaultStatsheet()})
	b := sim.Units.Spawn(units.SpawnSpec{Name: "b", Stats: units.DefaultStatsheet()})
	if err := sim.Units.SetTarget(a.ID, b.ID); err != nil {
		t.Fatal(err)
	}
	if !sim.Units.Despawn(b.ID) {
		t.Fatal("despawn failed")
	}

	sim.Step(1)

	got, _ := sim.Units.Get(a.ID)
	if got.Target != nil {
		t.Errorf("stale target kept: %v", *got.Target)
	}
}

func TestJournalAndHeaders(t *testing.T) {
	sim := newTestSim(t)
	sim.Step(5)
	id := sim.RequestPath(1, world.GridCoord{X: 0, Y: 0}, world.GridCoord{X: 1, Y: 0})
	sim.Step(6)

	var found *JournalEntry
	for _, e := range sim.Journal() {
		if e.Kind == KindPathfindingResult {
			e := e
			found = &e
		}
	}
	if found == nil {
		t.Fatal("path result not journaled")
	}
	res, ok := found.Payload.(PathfindingResult)
	if !ok || res.Request != id {
		t.Fatalf("payload = %+v", found.Payload)
	}
	if found.Tick != 6 || found.Timestamp != 600*time.Millisecond {
		t.Errorf("header tick=%d timestamp=%v", found.Tick, found.Timestamp)
	}
}

type stubMaps struct {
	m   *world.MapGrid
	err error
}

func (s stubMaps) LoadMapLayout(name string) (*world.MapGrid, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	if s.m != nil && s.m.Name == name {
		return s.m, true, nil
	}
	return nil, false, nil
}

func TestMapSource(t *testing.T) {
	saved := world.FromTerrains("arena", 2, 2, 1.0, []world.Terrain{
		world.TerrainGrass, world.TerrainWater,
		world.TerrainDirt, world.TerrainStone,
	})
	sim := NewSimulation(nil, Options{Maps: stubMaps{m: saved}})

	if err := sim.LoadMapNow("arena"); err != nil {
		t.Fatal(err)
	}
	if info := sim.MapInfo(); info.Width != 2 || info.Height != 2 {
		t.Errorf("saved map not used: %+v", info)
	}

	// Names the source does not know fall back to built-in layouts.
	if err := sim.LoadMapNow(world.LayoutDefault); err != nil {
		t.Fatal(err)
	}
	if info := sim.MapInfo(); info.Width != 32 {
		t.Errorf("fallback layout width = %d", info.Width)
	}

	broken := NewSimulation(nil, Options{Maps: stubMaps{err: errors.New("disk gone")}})
	if err := broken.LoadMapNow("arena"); err == nil {
		t.Error("expected source error")
	}
}

func TestEngineHooks(t *testing.T) {
	eng := NewEngine(time.Millisecond)
	var ticks, hooks int
	eng.OnTick = func(uint64) { ticks++ }
	eng.Hooks = []Hook{{Every: 5, Fn: func(uint64) { hooks++ }}}

	eng.Advance(12)
	if eng.Tick != 12 || ticks != 12 || hooks != 2 {
		t.Errorf("tick=%d ticks=%d hooks=%d", eng.Tick, ticks, hooks)
	}
}

func TestEngineRunStop(t *testing.T) {
	eng := NewEngine(time.Millisecond)
	if eng.Running() {
		t.Fatal("engine running before Run")
	}
	stepped := make(chan struct{}, 1)
	eng.OnTick = func(uint64) {
		select {
		case stepped <- struct{}{}:
		default:
		}
	}

	done := make(chan struct{})
	go func() {
		eng.Run()
		close(done)
	}()
	select {
	case <-stepped:
	case <-time.After(2 * time.Second):
		t.Fatal("engine never ticked")
	}
	if !eng.Running() {
		t.Error("Running = false while ticking")
	}
	eng.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}
	if eng.Running() {
		t.Error("Running = true after Stop")
	}
}

func TestSimTime(t *testing.T) {
	if got := SimTime(36000, 100*time.Millisecond); got != "1:00:00.000 (tick 36000)" {
		t.Errorf("SimTime = %q", got)
	}
}

func TestConcurrentProducers(t *testing.T) {
	sim := newTestSim(t)
	results := sim.Bus.PathResults.Reader()

	const sent = 200
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < sent; i++ {
			sim.RequestPath(units.UnitID(i), world.GridCoord{X: 0, Y: 0}, world.GridCoord{X: 4, Y: 4})
			sim.MoveUnit(units.UnitID(i), world.GridCoord{}, world.GridCoord{X: 1})
		}
	}()

	received := 0
	tick := uint64(1)
	for ; tick <= 50; tick++ {
		sim.Step(tick)
		received += len(results.Read())
	}
	wg.Wait()
	// Requests sent during the last step need two more to surface.
	for i := 0; i < 3; i++ {
		sim.Step(tick)
		tick++
		received += len(results.Read())
	}
	if received != sent {
		t.Errorf("received %d results, want %d", received, sent)
	}
}

type memorySink struct {
	mu      sync.Mutex
	entries []JournalEntry
	fail    error
}

func (m *memorySink) SaveEvents(entries []JournalEntry) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return 0, m.fail
	}
	m.entries = append(m.entries, entries...)
	return len(entries), nil
}

func TestJournalFlushesWhenFull(t *testing.T) {
	sink := &memorySink{}
	sim := NewSimulation(nil, Options{Journal: sink})
	if err := sim.LoadMapNow(world.LayoutDefault); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 1500; i++ {
		sim.RequestPath(units.UnitID(i), world.GridCoord{X: 0, Y: 0}, world.GridCoord{X: 0, Y: 1})
	}
	sim.Step(1)

	if _, err := sim.FlushJournal(sink); err != nil {
		t.Fatal(err)
	}
	if got := len(sink.entries); got != 1501 {
		t.Errorf("sink holds %d entries, want 1501", got)
	}
	if sim.JournalDropped() != 0 || len(sim.Journal()) != 0 {
		t.Errorf("dropped=%d pending=%d", sim.JournalDropped(), len(sim.Journal()))
	}
}

func TestJournalWithoutSinkCountsDrops(t *testing.T) {
	sim := newTestSim(t)
	for i := 0; i < 1500; i++ {
		sim.RequestPath(units.UnitID(i), world.GridCoord{X: 0, Y: 0}, world.GridCoord{X: 0, Y: 1})
	}
	sim.Step(1)

	if got := len(sim.Journal()); got != maxJournal {
		t.Errorf("journal holds %d, want %d", got, maxJournal)
	}
	if got := sim.JournalDropped(); got != 1501-maxJournal {
		t.Errorf("dropped = %d, want %d", got, 1501-maxJournal)
	}
}

func TestJournalFlushErrorKeepsEntries(t *testing.T) {
	sim := newTestSim(t)
	sink := &memorySink{fail: errors.New("disk full")}
	if _, err := sim.FlushJournal(sink); err == nil {
		t.Fatal("expected flush error")
	}
	if len(sim.Journal()) != 1 {
		t.Errorf("pending = %d, want the MapLoaded entry kept", len(sim.Journal()))
	}
}
