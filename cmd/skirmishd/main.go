// Command skirmishd runs the skirmish simulation core headless.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/talgya/skirmish/internal/config"
	"github.com/talgya/skirmish/internal/engine"
	"github.com/talgya/skirmish/internal/persistence"
	"github.com/talgya/skirmish/internal/units"
	"github.com/talgya/skirmish/internal/world"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	slog.SetDefault(newLogger(cfg))

	slog.Info("skirmish simulation core starting",
		"map", cfg.Map,
		"seed", cfg.Seed,
		"tick_interval", cfg.TickInterval,
		"path_workers", cfg.PathWorkers,
	)

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("failed to create data directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Simulation ────────────────────────────────────────────────────
	sim := engine.NewSimulation(units.NewStore(), engine.Options{
		Seed:         cfg.Seed,
		TickDuration: cfg.TickInterval,
		PathWorkers:  cfg.PathWorkers,
		NodeBudget:   cfg.PathNodeBudget,
		Maps:         db,
		Journal:      db,
	})

	var startTick uint64
	mapName := cfg.Map
	if db.HasWorldState() {
		slog.Info("found saved world state, loading...")
		startTick = db.LastTick()
		if saved, err := db.GetMeta(persistence.MetaMapName); err == nil && saved != "" {
			mapName = saved
		}

		saved, err := db.LoadUnits()
		if err != nil {
			slog.Error("failed to load units", "error", err)
			os.Exit(1)
		}
		for _, u := range saved {
			if err := sim.Units.Insert(u); err != nil {
				slog.Warn("skipping saved unit", "id", u.ID, "error", err)
			}
		}
	}

	sim.SetTick(startTick)
	if err := sim.LoadMapNow(mapName); err != nil {
		slog.Error("failed to load map", "error", err)
		os.Exit(1)
	}

	var spawned []units.Unit
	sim.WithGrid(func(m *world.MapGrid) {
		for t, n := range m.TerrainCounts() {
			slog.Info("terrain", "type", t, "cells", humanize.Comma(int64(n)))
		}
		spawned = units.SpawnStartingForces(sim.Units, m)
	})
	info := sim.MapInfo()
	slog.Info("world ready",
		"map", info.Name,
		"size", fmt.Sprintf("%dx%d", info.Width, info.Height),
		"cells", humanize.Comma(int64(info.Width*info.Height)),
		"units", sim.Units.Len(),
		"spawned", len(spawned),
	)

	// Fresh worlds are saved immediately; loaded worlds already are.
	if startTick == 0 {
		if err := db.SaveWorldState(sim); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine(cfg.TickInterval)
	eng.Tick = startTick
	eng.SetSpeed(cfg.Speed)
	eng.OnTick = sim.Step
	if cfg.SaveEvery > 0 {
		eng.Hooks = append(eng.Hooks, engine.Hook{
			Every: cfg.SaveEvery,
			Fn: func(tick uint64) {
				if err := db.SaveWorldState(sim); err != nil {
					slog.Error("periodic save failed", "tick", tick, "error", err)
				}
			},
		})
	}

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	if startTick > 0 {
		slog.Info("resuming", "sim_time", engine.SimTime(startTick, cfg.TickInterval))
	}

	eng.Run()

	// Final save on shutdown.
	slog.Info("final save...")
	if err := db.SaveWorldState(sim); err != nil {
		slog.Error("final save failed", "error", err)
	}
	slog.Info("simulation stopped",
		"tick", eng.Tick,
		"sim_time", engine.SimTime(eng.Tick, cfg.TickInterval),
		"journal_dropped", humanize.Comma(int64(sim.JournalDropped())),
	)
}

// newLogger picks a handler from the configured format. In auto mode
// terminals get text and everything else gets JSON.
func newLogger(cfg config.Config) *slog.Logger {
	level, _ := cfg.Level()
	opts := &slog.HandlerOptions{Level: level}

	format := strings.ToLower(cfg.LogFormat)
	if format == config.FormatAuto {
		format = config.FormatJSON
		if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			format = config.FormatText
		}
	}

	if format == config.FormatJSON {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
