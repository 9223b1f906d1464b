package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/quillside/canon/internal/canon"
)

// AddEntry registers a new canon entry. The name is kept as given (it is
// what the matcher counts in prose) but uniqueness is enforced on the
// normalized key, so "the Gardener" and "Gardener" cannot both register.
func (s *SQLiteStore) AddEntry(ctx context.Context, e *canon.Entry) (int64, error) {
	if canon.NormalizeName(e.Name) == "" {
		return 0, fmt.Errorf("entry name is empty after normalization")
	}
	if _, err := canon.ParseCategory(string(e.Category)); err != nil {
		return 0, err
	}

	key := canon.Key(e.Name)
	if existing, err := s.FindEntry(ctx, e.Project, key); err == nil && existing != nil {
		return 0, fmt.Errorf("%w: %q (id %d)", ErrDuplicateEntry, existing.Name, existing.ID)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (project, category, name, normalized_key, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Project, string(e.Category), e.Name, key,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("inserting entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading entry id: %w", err)
	}
	e.ID = id
	e.CreatedAt = now
	e.UpdatedAt = now
	return id, nil
}

// GetEntry fetches one entry by id.
func (s *SQLiteStore) GetEntry(ctx context.Context, id int64) (*canon.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project, category, name, created_at, updated_at
		 FROM entries WHERE id = ?`, id)
	return scanEntry(row)
}

// FindEntry fetches an entry by project and normalized key.
func (s *SQLiteStore) FindEntry(ctx context.Context, project, key string) (*canon.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project, category, name, created_at, updated_at
		 FROM entries WHERE project = ? AND normalized_key = ?`, project, key)
	return scanEntry(row)
}

// ListEntries returns entries in registration order, optionally filtered
// by category.
func (s *SQLiteStore) ListEntries(ctx context.Context, opts ListOpts) ([]*canon.Entry, error) {
	query := `SELECT id, project, category, name, created_at, updated_at
		 FROM entries WHERE project = ?`
	args := []any{opts.Project}
	if opts.Category != "" {
		query += ` AND category = ?`
		args = append(args, string(opts.Category))
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	var out []*canon.Entry
	for rows.Next() {
		e, err := scanEntryRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteEntry removes an entry by id.
func (s *SQLiteStore) DeleteEntry(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("entry %d: %w", id, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row *sql.Row) (*canon.Entry, error) {
	e, err := scanEntryRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

func scanEntryRow(r rowScanner) (*canon.Entry, error) {
	var e canon.Entry
	var cat, created, updated string
	if err := r.Scan(&e.ID, &e.Project, &cat, &e.Name, &created, &updated); err != nil {
		return nil, err
	}
	e.Category = canon.Category(cat)
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &e, nil
}
