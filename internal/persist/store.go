// Package persist keeps a SQLite history of generation runs.
package persist

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kayz/ctf-assets/internal/logger"
)

const defaultListLimit = 20

// timeLayout has a fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store handles persistence of generation runs using SQLite
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore creates a new SQLite-backed store at the given path
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	s := &Store{db: db}

	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS generation_runs (
			id               TEXT PRIMARY KEY,
			kind             TEXT NOT NULL,
			function         TEXT NOT NULL,
			requested_model  TEXT,
			model            TEXT NOT NULL,
			substituted      INTEGER NOT NULL DEFAULT 0,
			theme            TEXT,
			tone             TEXT,
			language         TEXT,
			quantity         INTEGER NOT NULL,
			item_count       INTEGER NOT NULL,
			items            TEXT,
			created_at       TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_runs_created ON generation_runs(created_at);
		CREATE INDEX IF NOT EXISTS idx_runs_kind ON generation_runs(kind);
	`)
	return err
}

// RecordRun stores run. ID and CreatedAt are filled in when empty. items is
// marshalled to JSON when run.Items is unset.
func (s *Store) RecordRun(run *Run, items any) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if len(run.Items) == 0 && items != nil {
		data, err := json.Marshal(items)
		if err != nil {
			return fmt.Errorf("marshal run items: %w", err)
		}
		run.Items = data
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	substituted := 0
	if run.Substituted {
		substituted = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO generation_runs
			(id, kind, function, requested_model, model, substituted, theme, tone, language, quantity, item_count, items, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Kind, run.Function, run.RequestedModel, run.Model, substituted,
		run.Theme, run.Tone, run.Language, run.Quantity, run.ItemCount, string(run.Items),
		run.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	logger.Debug("Recorded %s run %s (%d items)", run.Function, run.ID, run.ItemCount)
	return nil
}

// ErrAmbiguousID is returned by GetRun when a prefix matches several runs.
var ErrAmbiguousID = errors.New("run id prefix matches more than one run")

// GetRun returns the run whose id equals or starts with id, or sql.ErrNoRows.
func (s *Store) GetRun(id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, sql.ErrNoRows
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, kind, function, requested_model, model, substituted, theme, tone, language, quantity, item_count, items, created_at
		FROM generation_runs
		WHERE substr(id, 1, ?) = ?
		ORDER BY created_at DESC
		LIMIT 2
	`, len(id), id)
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	var found []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(found) {
	case 0:
		return nil, sql.ErrNoRows
	case 1:
		return found[0], nil
	default:
		for _, run := range found {
			if run.ID == id {
				return run, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
	}
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(filter RunFilter) ([]*Run, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT id, kind, function, requested_model, model, substituted, theme, tone, language, quantity, item_count, items, created_at
		FROM generation_runs`
	args := []any{}
	if kind := strings.TrimSpace(filter.Kind); kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var requested, theme, tone, language, items sql.NullString
	var substituted int
	var createdAt string

	err := row.Scan(&run.ID, &run.Kind, &run.Function, &requested, &run.Model, &substituted,
		&theme, &tone, &language, &run.Quantity, &run.ItemCount, &items, &createdAt)
	if err != nil {
		return nil, err
	}

	run.RequestedModel = requested.String
	run.Substituted = substituted != 0
	run.Theme = theme.String
	run.Tone = tone.String
	run.Language = language.String
	if items.String != "" {
		run.Items = json.RawMessage(items.String)
	}
	if t, err := time.Parse(timeLayout, createdAt); err == nil {
		run.CreatedAt = t
	}
	return &run, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
