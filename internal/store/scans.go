package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveScan upserts the scan result for one (project, unit). Only the
// latest result is kept: scan output is advisory metadata, not history.
func (s *SQLiteStore) SaveScan(ctx context.Context, rec *ScanRecord) (int64, error) {
	if rec.ScannedAt.IsZero() {
		rec.ScannedAt = time.Now().UTC()
	}
	if len(rec.Result) == 0 {
		return 0, fmt.Errorf("scan record has no result payload")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO scans (project, unit, scanned_at, result)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(project, unit) DO UPDATE SET
			scanned_at = excluded.scanned_at,
			result     = excluded.result`,
		rec.Project, rec.Unit, rec.ScannedAt.UTC().Format(time.RFC3339Nano), string(rec.Result))
	if err != nil {
		return 0, fmt.Errorf("saving scan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading scan id: %w", err)
	}
	rec.ID = id
	return id, nil
}

// LatestScan returns the stored scan result for one (project, unit), or
// ErrNotFound if the unit has never been scanned.
func (s *SQLiteStore) LatestScan(ctx context.Context, project, unit string) (*ScanRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project, unit, scanned_at, result
		 FROM scans WHERE project = ? AND unit = ?`, project, unit)

	var rec ScanRecord
	var scanned, result string
	err := row.Scan(&rec.ID, &rec.Project, &rec.Unit, &scanned, &result)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading scan: %w", err)
	}
	rec.ScannedAt, _ = time.Parse(time.RFC3339Nano, scanned)
	rec.Result = []byte(result)
	return &rec, nil
}
