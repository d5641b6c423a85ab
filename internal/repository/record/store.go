// Package record resolves search hits to CMS records stored in SQLite.
package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/kailas-cloud/appsearch/internal/domain"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS records (
	class_name     TEXT    NOT NULL,
	id             TEXT    NOT NULL,
	title          TEXT    NOT NULL DEFAULT '',
	link           TEXT    NOT NULL DEFAULT '',
	view_groups    TEXT    NOT NULL DEFAULT '',
	show_in_search INTEGER,
	archived       INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (class_name, id)
)`

// Row is the stored form of a record.
type Row struct {
	ClassName string
	ID        string
	Title     string
	Link      string
	// ViewGroups restricts viewing to members of any group. Empty means public.
	ViewGroups []string
	// ShowInSearch nil means the record has no search-specific rule.
	ShowInSearch *bool
	Archived     bool
}

// Store loads records by base class and ID.
type Store struct {
	db      *sql.DB
	classes map[string]struct{}
}

// Open opens the database at dsn and ensures the schema exists.
// classes restricts resolvable base classes; empty allows any.
func Open(ctx context.Context, dsn string, classes []string) (*Store, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open records database: %w", err)
	}
	// In-memory databases are per connection.
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect records database: %w", err)
	}
	s, err := NewStore(ctx, db, classes)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an open database and ensures the schema exists.
func NewStore(ctx context.Context, db *sql.DB, classes []string) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("migrate records schema: %w", err)
	}
	s := &Store{db: db}
	if len(classes) > 0 {
		s.classes = make(map[string]struct{}, len(classes))
		for _, c := range classes {
			s.classes[c] = struct{}{}
		}
	}
	return s, nil
}

// Resolve returns the record className/id. An unknown class yields
// ErrRecordResolution, an absent row ErrNotFound.
func (s *Store) Resolve(ctx context.Context, className, id string) (domain.Record, error) {
	if s.classes != nil {
		if _, ok := s.classes[className]; !ok {
			return nil, fmt.Errorf("%w: unknown class %q", domain.ErrRecordResolution, className)
		}
	}

	var (
		r          Record
		viewGroups string
		show       sql.NullBool
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT class_name, id, title, link, view_groups, show_in_search, archived
		 FROM records WHERE class_name = ? AND id = ?`,
		className, id,
	).Scan(&r.className, &r.id, &r.title, &r.link, &viewGroups, &show, &r.archived)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s#%s: %w", className, id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: record %s#%s: %w", domain.ErrRecordResolution, className, id, err)
	}

	r.viewGroups = splitGroups(viewGroups)
	if show.Valid {
		v := show.Bool
		r.showInSearch = &v
	}
	return &r, nil
}

// Upsert inserts or replaces a record row.
func (s *Store) Upsert(ctx context.Context, row Row) error {
	var show any
	if row.ShowInSearch != nil {
		show = *row.ShowInSearch
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (class_name, id, title, link, view_groups, show_in_search, archived)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(class_name, id) DO UPDATE SET
		   title = excluded.title,
		   link = excluded.link,
		   view_groups = excluded.view_groups,
		   show_in_search = excluded.show_in_search,
		   archived = excluded.archived`,
		row.ClassName, row.ID, row.Title, row.Link,
		strings.Join(row.ViewGroups, ","), show, row.Archived,
	)
	if err != nil {
		return fmt.Errorf("upsert record %s#%s: %w", row.ClassName, row.ID, err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func splitGroups(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, g := range strings.Split(s, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}
