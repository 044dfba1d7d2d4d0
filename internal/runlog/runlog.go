// Package runlog persists a ledger of rename runs in SQLite so past
// batches can be inspected after the fact.
package runlog

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/kmordal/namelens/internal/errors"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Run is one recorded invocation of the rename pipeline.
type Run struct {
	ID               string `json:"id"`
	StartedAt        int64  `json:"started_at"`
	FinishedAt       int64  `json:"finished_at"`
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	Root             string `json:"root"`
	Mode             string `json:"mode"`
	DryRun           bool   `json:"dry_run"`
	Unchanged        int    `json:"unchanged"`
	Renamed          int    `json:"renamed"`
	ConflictResolved int    `json:"conflict_resolved"`
	Skipped          int    `json:"skipped"`
	Errored          int    `json:"errored"`
	OracleCalls      int    `json:"oracle_calls"`
	RefFiles         int    `json:"ref_files"`
	RefReplacements  int    `json:"ref_replacements"`
}

// NewRun returns a Run with a fresh ULID and StartedAt set to now.
func NewRun(provider, model, root, mode string, dryRun bool) *Run {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return &Run{
		ID:        ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String(),
		StartedAt: time.Now().Unix(),
		Provider:  provider,
		Model:     model,
		Root:      root,
		Mode:      mode,
		DryRun:    dryRun,
	}
}

// Init initializes the SQLite database at baseDir/runs.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.namelens.
func Init(baseDir string) (*sql.DB, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	// Open database with pragmas in connection string (applies to all connections)
	dbPath := filepath.Join(baseDir, "runs.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	// Run migrations (this creates the file if it doesn't exist)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS runs (
		  id                TEXT PRIMARY KEY,
		  started_at        INTEGER NOT NULL,
		  finished_at       INTEGER NOT NULL,
		  provider          TEXT NOT NULL,
		  model             TEXT NOT NULL,
		  root              TEXT NOT NULL,
		  mode              TEXT NOT NULL,
		  dry_run           INTEGER NOT NULL,
		  unchanged         INTEGER NOT NULL,
		  renamed           INTEGER NOT NULL,
		  conflict_resolved INTEGER NOT NULL,
		  skipped           INTEGER NOT NULL,
		  errored           INTEGER NOT NULL,
		  oracle_calls      INTEGER NOT NULL,
		  ref_files         INTEGER NOT NULL,
		  ref_replacements  INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_runs_started_at
		ON runs(started_at DESC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// Insert stores a finished run. FinishedAt is set to now if the caller
// left it zero.
func Insert(db *sql.DB, r *Run) error {
	if r.FinishedAt == 0 {
		r.FinishedAt = time.Now().Unix()
	}

	query := `
		INSERT INTO runs (
			id, started_at, finished_at, provider, model, root, mode, dry_run,
			unchanged, renamed, conflict_resolved, skipped, errored,
			oracle_calls, ref_files, ref_replacements
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query,
		r.ID, r.StartedAt, r.FinishedAt, r.Provider, r.Model, r.Root, r.Mode, boolToInt(r.DryRun),
		r.Unchanged, r.Renamed, r.ConflictResolved, r.Skipped, r.Errored,
		r.OracleCalls, r.RefFiles, r.RefReplacements,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	return nil
}

// GetByID retrieves a run by its ULID.
func GetByID(db *sql.DB, id string) (*Run, error) {
	row := db.QueryRow(selectColumns+" FROM runs WHERE id = ?", id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return r, nil
}

// ListRecent returns up to limit runs, newest first.
func ListRecent(db *sql.DB, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.Query(selectColumns+" FROM runs ORDER BY started_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return runs, nil
}

const selectColumns = `
	SELECT id, started_at, finished_at, provider, model, root, mode, dry_run,
		unchanged, renamed, conflict_resolved, skipped, errored,
		oracle_calls, ref_files, ref_replacements
`

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		r      Run
		dryRun int
	)

	err := row.Scan(
		&r.ID, &r.StartedAt, &r.FinishedAt, &r.Provider, &r.Model, &r.Root, &r.Mode, &dryRun,
		&r.Unchanged, &r.Renamed, &r.ConflictResolved, &r.Skipped, &r.Errored,
		&r.OracleCalls, &r.RefFiles, &r.RefReplacements,
	)
	if err != nil {
		return nil, err
	}
	r.DryRun = dryRun != 0

	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
