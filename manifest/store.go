package manifest

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Run statuses.
const (
	StatusRunning  = "running"
	StatusSuccess  = "success"
	StatusFailed   = "failed"
	StatusCanceled = "canceled"
)

// ErrNotFound is returned when a run or configuration does not exist.
var ErrNotFound = errors.New("manifest: not found")

// Run is one row of generation_run.
type Run struct {
	RunID      string
	Label      string
	Status     string
	Total      int
	Emitted    int
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
}

// Value is a gjson path evaluated against one stored configuration.
type Value struct {
	PipeIndex int
	Result    gjson.Result
}

// Store reads and writes the manifest database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", path, err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)
	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New returns a Store over an open database. Call Migrate before first use.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the manifest tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("manifest: migrate: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// BeginRun inserts or resets a run with status running.
func (s *Store) BeginRun(ctx context.Context, runID, label string, total int, started time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generation_run (run_id, label, status, total, emitted, started_at)
		VALUES (?, ?, ?, ?, 0, ?)
		ON CONFLICT (run_id) DO UPDATE SET
			label = excluded.label, status = excluded.status, total = excluded.total,
			emitted = 0, error = NULL, started_at = excluded.started_at, finished_at = NULL`,
		runID, label, StatusRunning, total, formatTime(started))
	if err != nil {
		return fmt.Errorf("manifest: begin run %s: %w", runID, err)
	}
	return nil
}

// SaveConfig stores one configuration of a run. The document must be JSON.
func (s *Store) SaveConfig(ctx context.Context, runID string, index int, dataset string, components []string, doc []byte) error {
	if !gjson.ValidBytes(doc) {
		return fmt.Errorf("manifest: config %d of run %s is not valid JSON", index, runID)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO generated_config (run_id, pipe_index, dataset, components, config)
		VALUES (?, ?, ?, ?, ?)`,
		runID, index, dataset, strings.Join(components, ","), string(doc))
	if err != nil {
		return fmt.Errorf("manifest: save config %d of run %s: %w", index, runID, err)
	}
	return nil
}

// FinishRun records the final status of a run.
func (s *Store) FinishRun(ctx context.Context, runID, status string, emitted int, runErr error, finished time.Time) error {
	var errText sql.NullString
	if runErr != nil {
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE generation_run SET status = ?, emitted = ?, error = ?, finished_at = ?
		WHERE run_id = ?`,
		status, emitted, errText, formatTime(finished), runID)
	if err != nil {
		return fmt.Errorf("manifest: finish run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("manifest: finish run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// Runs lists all runs, most recent first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, label, status, total, emitted, error, started_at, finished_at
		FROM generation_run ORDER BY started_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("manifest: runs: %w", err)
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Run returns one run.
func (s *Store) Run(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, label, status, total, emitted, error, started_at, finished_at
		FROM generation_run WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r        Run
		errText  sql.NullString
		started  string
		finished sql.NullString
	)
	if err := sc.Scan(&r.RunID, &r.Label, &r.Status, &r.Total, &r.Emitted, &errText, &started, &finished); err != nil {
		return Run{}, err
	}
	r.Error = errText.String
	var err error
	if r.StartedAt, err = parseTime(started); err != nil {
		return Run{}, err
	}
	if finished.Valid {
		if r.FinishedAt, err = parseTime(finished.String); err != nil {
			return Run{}, err
		}
	}
	return r, nil
}

// Config returns the stored JSON of configuration index (0-based) of a run.
func (s *Store) Config(ctx context.Context, runID string, index int) ([]byte, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT config FROM generated_config WHERE run_id = ? AND pipe_index = ?`, runID, index).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("config %d of run %s: %w", index, runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("manifest: config %d of run %s: %w", index, runID, err)
	}
	return []byte(doc), nil
}

// Query evaluates a gjson path (e.g. "chainer.pipe.#.component_name") against
// one stored configuration. A path that matches nothing returns a Result whose
// Exists() is false and no error.
func (s *Store) Query(ctx context.Context, runID string, index int, path string) (gjson.Result, error) {
	doc, err := s.Config(ctx, runID, index)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.GetBytes(doc, path), nil
}

// Values evaluates path against every configuration of a run, in pipe order.
func (s *Store) Values(ctx context.Context, runID, path string) ([]Value, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pipe_index, config FROM generated_config WHERE run_id = ? ORDER BY pipe_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("manifest: values of run %s: %w", runID, err)
	}
	defer rows.Close()
	var out []Value
	for rows.Next() {
		var (
			idx int
			doc string
		)
		if err := rows.Scan(&idx, &doc); err != nil {
			return nil, fmt.Errorf("manifest: values of run %s: %w", runID, err)
		}
		out = append(out, Value{PipeIndex: idx, Result: gjson.Get(doc, path)})
	}
	return out, rows.Err()
}

// timeLayout has fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("manifest: bad timestamp %q: %w", s, err)
	}
	return t, nil
}
