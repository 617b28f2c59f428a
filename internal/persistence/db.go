// Package persistence provides SQLite-based simulation state storage.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/skirmish/internal/engine"
	"github.com/talgya/skirmish/internal/social"
	"github.com/talgya/skirmish/internal/units"
	"github.com/talgya/skirmish/internal/world"
)

// Metadata keys.
const (
	MetaLastTick = "last_tick"
	MetaMapName  = "map_name"
)

// DB wraps a SQLite connection for simulation state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS maps (
		name TEXT PRIMARY KEY,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		cell_size REAL NOT NULL,
		terrain TEXT NOT NULL,
		saved_tick INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS units (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		unit_type INTEGER NOT NULL,
		state INTEGER NOT NULL,
		pos_x INTEGER NOT NULL,
		pos_y INTEGER NOT NULL,
		target_id INTEGER,
		stats_json TEXT NOT NULL,
		owner_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		tick INTEGER NOT NULL,
		sim_time_ns INTEGER NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_units_state ON units(state);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// ── Maps ───────────────────────────────────────────────────────────────

type mapRow struct {
	Name      string  `db:"name"`
	Width     int     `db:"width"`
	Height    int     `db:"height"`
	CellSize  float64 `db:"cell_size"`
	Terrain   string  `db:"terrain"`
	SavedTick uint64  `db:"saved_tick"`
}

// encodeTerrain packs terrains one digit per cell.
func encodeTerrain(ts []world.Terrain) string {
	buf := make([]byte, len(ts))
	for i, t := range ts {
		buf[i] = '0' + byte(t)
	}
	return string(buf)
}

func decodeTerrain(s string) ([]world.Terrain, error) {
	out := make([]world.Terrain, len(s))
	for i := 0; i < len(s); i++ {
		t := world.Terrain(s[i] - '0')
		if s[i] < '0' || !t.Valid() {
			return nil, fmt.Errorf("terrain byte %q at %d", s[i], i)
		}
		out[i] = t
	}
	return out, nil
}

// SaveMap writes a grid under its name, replacing any earlier save.
func (db *DB) SaveMap(m *world.MapGrid, tick uint64) error {
	_, err := db.conn.Exec(`INSERT OR REPLACE INTO maps
		(name, width, height, cell_size, terrain, saved_tick)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.Name, m.Width, m.Height, m.CellSize, encodeTerrain(m.Terrains()), tick,
	)
	if err != nil {
		return fmt.Errorf("save map %q: %w", m.Name, err)
	}
	return nil
}

// LoadMapLayout rebuilds a saved grid. ok is false when no map has that name.
func (db *DB) LoadMapLayout(name string) (*world.MapGrid, bool, error) {
	var row mapRow
	err := db.conn.Get(&row, "SELECT name, width, height, cell_size, terrain, saved_tick FROM maps WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load map %q: %w", name, err)
	}

	terrains, err := decodeTerrain(row.Terrain)
	if err != nil {
		return nil, false, fmt.Errorf("load map %q: %w", name, err)
	}
	if len(terrains) != row.Width*row.Height {
		return nil, false, fmt.Errorf("load map %q: %d cells for %dx%d", name, len(terrains), row.Width, row.Height)
	}
	return world.FromTerrains(row.Name, row.Width, row.Height, row.CellSize, terrains), true, nil
}

// ── Units ──────────────────────────────────────────────────────────────

type unitRow struct {
	ID        uint64        `db:"id"`
	Name      string        `db:"name"`
	Type      int           `db:"unit_type"`
	State     int           `db:"state"`
	PosX      int           `db:"pos_x"`
	PosY      int           `db:"pos_y"`
	TargetID  sql.NullInt64 `db:"target_id"`
	StatsJSON string        `db:"stats_json"`
	OwnerJSON string        `db:"owner_json"`
}

// SaveUnits writes all units to the database (full replace).
func (db *DB) SaveUnits(unitList []units.Unit) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM units"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO units
		(id, name, unit_type, state, pos_x, pos_y, target_id, stats_json, owner_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range unitList {
		statsJSON, err := json.Marshal(u.Stats)
		if err != nil {
			return fmt.Errorf("encode unit %d stats: %w", u.ID, err)
		}
		ownerJSON, err := json.Marshal(u.Owner)
		if err != nil {
			return fmt.Errorf("encode unit %d owner: %w", u.ID, err)
		}

		var target sql.NullInt64
		if u.Target != nil {
			target = sql.NullInt64{Int64: int64(*u.Target), Valid: true}
		}

		_, err = stmt.Exec(
			uint64(u.ID), u.Name, int(u.Type), int(u.State),
			u.Position.X, u.Position.Y, target,
			string(statsJSON), string(ownerJSON),
		)
		if err != nil {
			return fmt.Errorf("insert unit %d: %w", u.ID, err)
		}
	}

	return tx.Commit()
}

// LoadUnits reads every saved unit, ordered by ID.
func (db *DB) LoadUnits() ([]units.Unit, error) {
	var rows []unitRow
	if err := db.conn.Select(&rows, "SELECT * FROM units ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load units: %w", err)
	}

	out := make([]units.Unit, 0, len(rows))
	for _, r := range rows {
		u := units.Unit{
			ID:       units.UnitID(r.ID),
			Name:     r.Name,
			Type:     units.UnitType(r.Type),
			State:    units.State(r.State),
			Position: world.GridCoord{X: r.PosX, Y: r.PosY},
		}
		if r.TargetID.Valid {
			target := units.UnitID(r.TargetID.Int64)
			u.Target = &target
		}
		if err := json.Unmarshal([]byte(r.StatsJSON), &u.Stats); err != nil {
			return nil, fmt.Errorf("decode unit %d stats: %w", r.ID, err)
		}
		var owner social.Ownership
		if err := json.Unmarshal([]byte(r.OwnerJSON), &owner); err != nil {
			return nil, fmt.Errorf("decode unit %d owner: %w", r.ID, err)
		}
		u.Owner = owner
		out = append(out, u)
	}
	return out, nil
}

// ── Events ─────────────────────────────────────────────────────────────

// StoredEvent is a journal entry as read back from the database. Payload is
// the entry's JSON encoding.
type StoredEvent struct {
	ID        string `db:"id"`
	Tick      uint64 `db:"tick"`
	SimTimeNs int64  `db:"sim_time_ns"`
	Kind      string `db:"kind"`
	Payload   string `db:"payload"`
}

// SaveEvents appends journal entries. Entries already saved are skipped, so
// the same journal can be saved repeatedly.
func (db *DB) SaveEvents(entries []engine.JournalEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	added := 0
	for _, e := range entries {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return 0, fmt.Errorf("encode event %s: %w", e.ID, err)
		}
		res, err := tx.Exec(
			"INSERT OR IGNORE INTO events (id, tick, sim_time_ns, kind, payload) VALUES (?, ?, ?, ?, ?)",
			e.ID.String(), e.Tick, int64(e.Timestamp), string(e.Kind), string(payload),
		)
		if err != nil {
			return 0, err
		}
		if n, err := res.RowsAffected(); err == nil {
			added += int(n)
		}
	}

	return added, tx.Commit()
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]StoredEvent, error) {
	var events []StoredEvent
	err := db.conn.Select(&events,
		"SELECT id, tick, sim_time_ns, kind, payload FROM events ORDER BY tick DESC, rowid DESC LIMIT ?",
		limit,
	)
	return events, err
}

// ── Metadata ───────────────────────────────────────────────────────────

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// LastTick returns the saved tick, or 0 when none was saved.
func (db *DB) LastTick() uint64 {
	s, err := db.GetMeta(MetaLastTick)
	if err != nil {
		return 0
	}
	t, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		slog.Warn("ignoring malformed last_tick", "value", s, "error", err)
		return 0
	}
	return t
}

// HasWorldState reports whether a previous run saved its state.
func (db *DB) HasWorldState() bool {
	_, err := db.GetMeta(MetaLastTick)
	return err == nil
}

// ── Whole state ────────────────────────────────────────────────────────

// SaveWorldState performs a full save of the simulation: current map, all
// units, pending journal entries, and metadata. Saved entries leave the
// simulation's journal.
func (db *DB) SaveWorldState(sim *engine.Simulation) error {
	tick := sim.CurrentTick()
	unitList := sim.Units.All()

	var mapErr error
	var mapName string
	sim.WithGrid(func(m *world.MapGrid) {
		mapName = m.Name
		mapErr = db.SaveMap(m, tick)
	})
	if mapErr != nil {
		return mapErr
	}
	if err := db.SaveUnits(unitList); err != nil {
		return fmt.Errorf("save units: %w", err)
	}
	added, err := sim.FlushJournal(db)
	if err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := db.SaveMeta(MetaMapName, mapName); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	if err := db.SaveMeta(MetaLastTick, strconv.FormatUint(tick, 10)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Info("world state saved", "tick", tick, "map", mapName, "units", len(unitList), "new_events", added)
	return nil
}
