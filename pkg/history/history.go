// Package history records finished builds in a local SQLite database.
//
// Each build, successful or not, is stored with its inputs, box, ion plan
// and outcome so earlier systems can be traced back to the options that
// produced them.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Status values.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Record is one build.
type Record struct {
	ID          string
	StartedAt   time.Time
	Duration    time.Duration
	Status      string
	Error       string
	Version     string
	Solute      string
	Membrane    string
	Output      string
	Box         [3]float64
	Atoms       int
	Waters      int
	Cations     int
	Anions      int
	FinalCharge float64
	ExtraFiles  []string
	Options     json.RawMessage // options as given, for reproduction
}

// Store is a build history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty history path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		version TEXT NOT NULL DEFAULT '',
		solute TEXT NOT NULL,
		membrane TEXT NOT NULL,
		output TEXT NOT NULL,
		box_x REAL NOT NULL DEFAULT 0,
		box_y REAL NOT NULL DEFAULT 0,
		box_z REAL NOT NULL DEFAULT 0,
		atoms INTEGER NOT NULL DEFAULT 0,
		waters INTEGER NOT NULL DEFAULT 0,
		cations INTEGER NOT NULL DEFAULT 0,
		anions INTEGER NOT NULL DEFAULT 0,
		final_charge REAL NOT NULL DEFAULT 0,
		extra_files TEXT NOT NULL DEFAULT '[]',
		options TEXT NOT NULL DEFAULT '{}'
	);`,
		`CREATE INDEX IF NOT EXISTS builds_started ON builds(started_at);`,
	}
	for _, q := range stmts {
		if _, err := db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// Add stores r. Adding a record with an existing ID replaces it.
func (s *Store) Add(ctx context.Context, r Record) error {
	if r.ID == "" {
		return fmt.Errorf("history record needs an id")
	}
	extra, err := json.Marshal(r.ExtraFiles)
	if err != nil {
		return err
	}
	opts := string(r.Options)
	if opts == "" {
		opts = "{}"
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO builds
		(id, started_at, duration_ms, status, error, version, solute, membrane, output,
		 box_x, box_y, box_z, atoms, waters, cations, anions, final_charge, extra_files, options)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UnixMilli(), r.Duration.Milliseconds(), r.Status, r.Error, r.Version,
		r.Solute, r.Membrane, r.Output, r.Box[0], r.Box[1], r.Box[2],
		r.Atoms, r.Waters, r.Cations, r.Anions, r.FinalCharge, string(extra), opts)
	if err != nil {
		return fmt.Errorf("record build %s: %w", r.ID, err)
	}
	return nil
}

const columns = `id, started_at, duration_ms, status, error, version, solute, membrane, output,
	box_x, box_y, box_z, atoms, waters, cations, anions, final_charge, extra_files, options`

// List returns the most recent records first. A non-positive limit
// returns all records.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	q := `SELECT ` + columns + ` FROM builds ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, id string) (Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM builds WHERE id = ?`, id)
	r, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return r, true, nil
}

// Prune deletes records older than before and returns how many went.
func (s *Store) Prune(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM builds WHERE started_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(sc scanner) (Record, error) {
	var (
		r              Record
		started, durMS int64
		extra, opts    string
	)
	err := sc.Scan(&r.ID, &started, &durMS, &r.Status, &r.Error, &r.Version,
		&r.Solute, &r.Membrane, &r.Output, &r.Box[0], &r.Box[1], &r.Box[2],
		&r.Atoms, &r.Waters, &r.Cations, &r.Anions, &r.FinalCharge, &extra, &opts)
	if err != nil {
		return Record{}, err
	}
	r.StartedAt = time.UnixMilli(started)
	r.Duration = time.Duration(durMS) * time.Millisecond
	if err := json.Unmarshal([]byte(extra), &r.ExtraFiles); err != nil {
		return Record{}, fmt.Errorf("decode extra files of %s: %w", r.ID, err)
	}
	r.Options = json.RawMessage(opts)
	return r, nil
}
