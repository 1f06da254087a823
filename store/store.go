// Package store persists movement state between runs: per-agent path and
// stuck memory plus the durable structure layer of the surface cache. Blobs
// are JSON compressed with zstd in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"rover"
	"rover/costsurface"
)

// ErrNotFound reports that nothing was saved under a world name.
var ErrNotFound = errors.New("store: not found")

type Store struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens or creates the database at path. ":memory:" keeps everything
// in a single private connection.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %s: %w", p, err)
		}
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create zstd writer: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}

	s := &Store{db: db, enc: enc, dec: dec}
	if err := s.migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	s.dec.Close()
	s.enc.Close()
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS agent_states (
			world       TEXT NOT NULL,
			handle      TEXT NOT NULL,
			tick        INTEGER NOT NULL,
			state       BLOB NOT NULL,
			updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (world, handle)
		)`,
		`CREATE TABLE IF NOT EXISTS surface_caches (
			world       TEXT PRIMARY KEY,
			cycle       INTEGER NOT NULL,
			regions     INTEGER NOT NULL,
			data        BLOB NOT NULL,
			updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) encode(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return s.enc.EncodeAll(raw, nil), nil
}

func (s *Store) decode(blob []byte, v any) error {
	raw, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return fmt.Errorf("decompress: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}

// SaveStates replaces every state saved for world with the contents of
// states.
func (s *Store) SaveStates(ctx context.Context, world string, tick uint64, states *rover.MapStore[string]) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM agent_states WHERE world = ?`, world); err != nil {
		return fmt.Errorf("clear states: %w", err)
	}
	for _, h := range states.Handles() {
		st, _ := states.Lookup(h)
		blob, err := s.encode(st)
		if err != nil {
			return fmt.Errorf("state %s: %w", h, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO agent_states (world, handle, tick, state) VALUES (?, ?, ?, ?)`,
			world, h, int64(tick), blob,
		)
		if err != nil {
			return fmt.Errorf("insert state %s: %w", h, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadStates returns the states saved for world and the tick they were
// saved at.
func (s *Store) LoadStates(ctx context.Context, world string) (*rover.MapStore[string], uint64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT handle, tick, state FROM agent_states WHERE world = ? ORDER BY handle`, world)
	if err != nil {
		return nil, 0, fmt.Errorf("query states: %w", err)
	}
	defer rows.Close()

	states := rover.NewMapStore[string]()
	var tick uint64
	for rows.Next() {
		var (
			handle string
			saved  int64
			blob   []byte
		)
		if err := rows.Scan(&handle, &saved, &blob); err != nil {
			return nil, 0, fmt.Errorf("scan state: %w", err)
		}
		var st rover.AgentState
		if err := s.decode(blob, &st); err != nil {
			return nil, 0, fmt.Errorf("state %s: %w", handle, err)
		}
		states.Put(handle, st)
		tick = max(tick, uint64(saved))
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate states: %w", err)
	}
	if states.Len() == 0 {
		return nil, 0, ErrNotFound
	}
	return states, tick, nil
}

// SaveSurfaceCache persists the durable structure layers of cache. The
// per-cycle layers are never written.
func (s *Store) SaveSurfaceCache(ctx context.Context, world string, cache *costsurface.Cache) error {
	blob, err := s.encode(cache)
	if err != nil {
		return fmt.Errorf("surface cache: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO surface_caches (world, cycle, regions, data) VALUES (?, ?, ?, ?)
		 ON CONFLICT(world) DO UPDATE SET
		   cycle = excluded.cycle,
		   regions = excluded.regions,
		   data = excluded.data,
		   updated_at = CURRENT_TIMESTAMP`,
		world, int64(cache.Cycle()), len(cache.Regions), blob,
	)
	if err != nil {
		return fmt.Errorf("upsert surface cache: %w", err)
	}
	return nil
}

// LoadSurfaceCache restores a cache saved by SaveSurfaceCache, positioned at
// the cycle it was saved in.
func (s *Store) LoadSurfaceCache(ctx context.Context, world string) (*costsurface.Cache, error) {
	var (
		cycle int64
		blob  []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT cycle, data FROM surface_caches WHERE world = ?`, world).Scan(&cycle, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query surface cache: %w", err)
	}

	cache := costsurface.NewCache()
	if err := s.decode(blob, cache); err != nil {
		return nil, fmt.Errorf("surface cache: %w", err)
	}
	cache.Advance(uint64(cycle))
	return cache, nil
}
