package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// timestamps are stored as fixed-width UTC text so ORDER BY sorts them
// chronologically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS funnels (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	funnel_data  TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'draft'
	             CHECK (status IN ('draft', 'published', 'archived')),
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL,
	published_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_funnels_status_created ON funnels(status, created_at DESC);
`

// SQLiteRepo stores records in a single funnels table.
type SQLiteRepo struct {
	db *sql.DB
}

// NewSQLiteRepo opens dsn (a file path or ":memory:") and creates the schema.
func NewSQLiteRepo(ctx context.Context, dsn string) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection: a second one would see a separate :memory: database,
	// and sqlite serializes writers anyway
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteRepo{db: db}, nil
}

func (s *SQLiteRepo) Close() error { return s.db.Close() }

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) { return time.Parse(timeLayout, s) }

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

func (s *SQLiteRepo) Create(ctx context.Context, r *Record) error {
	stamp(r)
	var published any
	if r.PublishedAt != nil {
		published = formatTime(*r.PublishedAt)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO funnels (id, name, funnel_data, status, created_at, updated_at, published_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, string(r.FunnelData), string(r.Status),
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt), published,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

const selectColumns = `SELECT id, name, funnel_data, status, created_at, updated_at, published_at FROM funnels`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		r                Record
		data, status     string
		created, updated string
		published        sql.NullString
	)
	if err := row.Scan(&r.ID, &r.Name, &data, &status, &created, &updated, &published); err != nil {
		return nil, err
	}
	r.FunnelData = []byte(data)
	r.Status = Status(status)
	var err error
	if r.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("created_at of %s: %w", r.ID, err)
	}
	if r.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("updated_at of %s: %w", r.ID, err)
	}
	if published.Valid {
		t, err := parseTime(published.String)
		if err != nil {
			return nil, fmt.Errorf("published_at of %s: %w", r.ID, err)
		}
		r.PublishedAt = &t
	}
	return &r, nil
}

func (s *SQLiteRepo) Get(ctx context.Context, id string) (*Record, error) {
	r, err := scanRecord(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func (s *SQLiteRepo) List(ctx context.Context, status Status) ([]*Record, error) {
	query, args := selectColumns, []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteRepo) Update(ctx context.Context, id string, u Update) (*Record, error) {
	sets := []string{"updated_at = ?"}
	args := []any{formatTime(now())}
	if u.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *u.Name)
	}
	if u.FunnelData != nil {
		sets = append(sets, "funnel_data = ?")
		args = append(args, string(u.FunnelData))
	}
	if u.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*u.Status))
	}
	if u.PublishedAt != nil {
		sets = append(sets, "published_at = ?")
		args = append(args, formatTime(u.PublishedAt.Truncate(time.Millisecond)))
	}
	args = append(args, id)
	res, err := s.db.ExecContext(ctx, `UPDATE funnels SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *SQLiteRepo) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM funnels WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
