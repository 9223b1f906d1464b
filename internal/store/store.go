// Package store provides the SQLite storage layer for the canon registry.
//
// One database file holds every registered story-bible entry plus the
// latest scan result per edited unit (chapter, scene). The scan engine
// itself never touches this package; the CLI and MCP layers read entries
// out, run a scan, and write results back.
package store

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

	"github.com/quillside/canon/internal/canon"
)

// ErrDuplicateEntry is returned when an entry's (project, normalized key)
// pair is already registered.
var ErrDuplicateEntry = errors.New("entry already registered for project")

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// ListOpts controls filtering for ListEntries.
type ListOpts struct {
	Project  string
	Category canon.Category // empty = all categories
}

// ScanRecord is the persisted form of one scan result, attached to the
// edited unit it was produced for. Transient metadata: each save replaces
// the previous record for the same (project, unit).
type ScanRecord struct {
	ID        int64           `json:"id"`
	Project   string          `json:"project"`
	Unit      string          `json:"unit"`
	ScannedAt time.Time       `json:"scanned_at"`
	Result    json.RawMessage `json:"result"`
}

// Stats holds observability counters about the registry.
type Stats struct {
	EntryCount  int64            `json:"entry_count"`
	ByCategory  map[string]int64 `json:"by_category"`
	ScanCount   int64            `json:"scan_count"`
	DBSizeBytes int64            `json:"db_size_bytes"`
}

// Store defines the canon registry interface.
type Store interface {
	// Entries
	AddEntry(ctx context.Context, e *canon.Entry) (int64, error)
	GetEntry(ctx context.Context, id int64) (*canon.Entry, error)
	FindEntry(ctx context.Context, project, key string) (*canon.Entry, error)
	ListEntries(ctx context.Context, opts ListOpts) ([]*canon.Entry, error)
	DeleteEntry(ctx context.Context, id int64) error

	// Scan metadata
	SaveScan(ctx context.Context, rec *ScanRecord) (int64, error)
	LatestScan(ctx context.Context, project, unit string) (*ScanRecord, error)

	// Observability
	Stats(ctx context.Context, project string) (*Stats, error)

	Close() error
}

// StoreConfig holds configuration for NewStore.
type StoreConfig struct {
	DBPath string
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewStore creates a new SQLite-backed Store.
// Pass ":memory:" for in-memory databases (testing).
func NewStore(cfg StoreConfig) (Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("store: db path is required")
	}

	if cfg.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, dbPath: cfg.DBPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Stats reports registry counters, optionally scoped to one project.
func (s *SQLiteStore) Stats(ctx context.Context, project string) (*Stats, error) {
	st := &Stats{ByCategory: make(map[string]int64)}

	where, args := "", []any{}
	if project != "" {
		where = " WHERE project = ?"
		args = append(args, project)
	}

	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries"+where, args...)
	if err := row.Scan(&st.EntryCount); err != nil {
		return nil, fmt.Errorf("counting entries: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT category, COUNT(*) FROM entries"+where+" GROUP BY category", args...)
	if err != nil {
		return nil, fmt.Errorf("counting by category: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cat string
		var n int64
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, fmt.Errorf("scanning category count: %w", err)
		}
		st.ByCategory[cat] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	row = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM scans"+where, args...)
	if err := row.Scan(&st.ScanCount); err != nil {
		return nil, fmt.Errorf("counting scans: %w", err)
	}

	if s.dbPath != ":memory:" {
		if fi, err := os.Stat(s.dbPath); err == nil {
			st.DBSizeBytes = fi.Size()
		}
	}
	return st, nil
}
