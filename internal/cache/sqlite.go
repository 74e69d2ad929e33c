package cache

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// SQLite is a Storage persisted to a SQLite database, so cache generations
// survive restarts the way a browser's cache storage survives reloads.
type SQLite struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
	now    func() time.Time
}

// NewSQLite opens (creating if needed) the database at path.
func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply cache schema: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

// DSN adds the pragmas every connection to path needs.
func DSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (s *SQLite) conn() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.db, nil
}

func (s *SQLite) Open(ctx context.Context, name string) (Cache, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO namespaces (name) VALUES (?)`, name); err != nil {
		return nil, err
	}
	return &sqliteCache{store: s, name: name}, nil
}

func (s *SQLite) Names(ctx context.Context) ([]string, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	return queryStrings(ctx, db, `SELECT name FROM namespaces ORDER BY name`)
}

func (s *SQLite) Delete(ctx context.Context, name string) (bool, error) {
	db, err := s.conn()
	if err != nil {
		return false, err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE namespace = ?`, name); err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM namespaces WHERE name = ?`, name)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, tx.Commit()
}

func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

type sqliteCache struct {
	store *SQLite
	name  string
}

func (c *sqliteCache) Name() string { return c.name }

func (c *sqliteCache) Match(ctx context.Context, key string) (*Entry, bool, error) {
	db, err := c.store.conn()
	if err != nil {
		return nil, false, err
	}
	var (
		e        Entry
		header   string
		storedAt int64
	)
	err = db.QueryRowContext(ctx,
		`SELECT status, header, body, stored_at FROM entries WHERE namespace = ? AND key = ?`,
		c.name, key,
	).Scan(&e.Status, &header, &e.Body, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal([]byte(header), &e.Header); err != nil {
		return nil, false, fmt.Errorf("decode header for %s %s: %w", c.name, key, err)
	}
	if e.Body == nil {
		e.Body = []byte{}
	}
	e.StoredAt = time.Unix(0, storedAt)
	return &e, true, nil
}

func (c *sqliteCache) Put(ctx context.Context, key string, e *Entry) error {
	if e == nil {
		return ErrNilEntry
	}
	db, err := c.store.conn()
	if err != nil {
		return err
	}
	header, err := json.Marshal(e.Header)
	if err != nil {
		return err
	}
	storedAt := e.StoredAt
	if storedAt.IsZero() {
		storedAt = c.store.now()
	}
	body := e.Body
	if body == nil {
		body = []byte{}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO namespaces (name) VALUES (?)`, c.name); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO entries (namespace, key, status, header, body, stored_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (namespace, key) DO UPDATE SET
		   status = excluded.status, header = excluded.header, body = excluded.body, stored_at = excluded.stored_at`,
		c.name, key, e.Status, string(header), body, storedAt.UnixNano(),
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (c *sqliteCache) Delete(ctx context.Context, key string) (bool, error) {
	db, err := c.store.conn()
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM entries WHERE namespace = ? AND key = ?`, c.name, key)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (c *sqliteCache) Keys(ctx context.Context) ([]string, error) {
	db, err := c.store.conn()
	if err != nil {
		return nil, err
	}
	return queryStrings(ctx, db, `SELECT key FROM entries WHERE namespace = ? ORDER BY key`, c.name)
}

func queryStrings(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
