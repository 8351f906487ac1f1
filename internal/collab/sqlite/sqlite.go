// Package sqlite implements the persistent collaborator on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rcliao/agentcore/internal/collab"
	"github.com/rcliao/agentcore/internal/model"
)

// Store implements collab.Store using SQLite. Documents live in one table
// keyed by (collection, id); filters are pushed down with json_extract.
type Store struct {
	db   *sql.DB
	path string
}

// New opens or creates a SQLite database at the given path.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		collection  TEXT NOT NULL,
		id          TEXT NOT NULL,
		data        TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	);

	CREATE TABLE IF NOT EXISTS migrations (
		seq         INTEGER PRIMARY KEY AUTOINCREMENT,
		plugin      TEXT NOT NULL,
		hash        TEXT NOT NULL,
		applied_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_migrations_plugin ON migrations(plugin, seq DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Get(ctx context.Context, collection, id string) (*collab.Document, error) {
	if err := collab.CheckKey(collection, &id); err != nil {
		return nil, err
	}
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", model.ErrNotFound, collection, id)
	}
	if err != nil {
		return nil, err
	}
	return &collab.Document{ID: id, Data: json.RawMessage(data)}, nil
}

func (s *Store) GetAll(ctx context.Context, collection string) ([]collab.Document, error) {
	return s.GetWhere(ctx, collection, nil)
}

func (s *Store) GetWhere(ctx context.Context, collection string, f collab.Filter) ([]collab.Document, error) {
	where, args, err := whereClause(collection, f)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data FROM documents WHERE `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []collab.Document{}
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		docs = append(docs, collab.Document{ID: id, Data: json.RawMessage(data)})
	}
	return docs, rows.Err()
}

func (s *Store) Set(ctx context.Context, collection, id string, data json.RawMessage) error {
	if err := collab.CheckKey(collection, &id); err != nil {
		return err
	}
	if !json.Valid(data) {
		return fmt.Errorf("%w: %s/%s is not valid JSON", model.ErrInvalidInput, collection, id)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		collection, id, string(data), now)
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := collab.CheckKey(collection, &id); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s/%s", model.ErrNotFound, collection, id)
	}
	return nil
}

func (s *Store) Count(ctx context.Context, collection string, f collab.Filter) (int, error) {
	where, args, err := whereClause(collection, f)
	if err != nil {
		return 0, err
	}
	var n int
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE `+where, args...).Scan(&n)
	return n, err
}

func (s *Store) GetLastMigration(ctx context.Context, plugin string) (*collab.Migration, error) {
	var m collab.Migration
	var appliedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT plugin, hash, applied_at FROM migrations WHERE plugin = ? ORDER BY seq DESC LIMIT 1`,
		plugin).Scan(&m.Plugin, &m.Hash, &appliedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: migration for %s", model.ErrNotFound, plugin)
	}
	if err != nil {
		return nil, err
	}
	m.AppliedAt, _ = time.Parse(time.RFC3339Nano, appliedAt)
	return &m, nil
}

func (s *Store) RecordMigration(ctx context.Context, plugin, hash string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO migrations (plugin, hash, applied_at) VALUES (?, ?, ?)`,
		plugin, hash, at.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// whereClause builds the collection match plus one json_extract term per
// filter field. Keys are sorted so the statement text is stable.
func whereClause(collection string, f collab.Filter) (string, []any, error) {
	if err := collab.CheckKey(collection, nil); err != nil {
		return "", nil, err
	}
	if err := collab.CheckFilter(f); err != nil {
		return "", nil, err
	}

	where := []string{"collection = ?"}
	args := []any{collection}

	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		path := "$." + k
		where = append(where, "json_type(data, ?) = 'text'", "json_extract(data, ?) = ?")
		args = append(args, path, path, f[k])
	}
	return strings.Join(where, " AND "), args, nil
}

var _ collab.Store = (*Store)(nil)
