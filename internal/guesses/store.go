// Package guesses persists the words a player has found, keyed by day.
package guesses

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

	_ "modernc.org/sqlite"

	"openbee/internal/cache"
)

//go:embed schema.sql
var schemaSQL string

var ErrClosed = errors.New("guess store is closed")

// Store keeps one ordered word list per day key.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool

	// writes serializes Append; SQLite cannot upgrade two concurrent read
	// transactions to writers.
	writes sync.Mutex
}

// Open opens (creating if needed) the store at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", cache.DSN(path))
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply guess schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) conn() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.db, nil
}

// Get returns the words accepted on dayKey in the order they were found.
// A day with no record yields an empty list.
func (s *Store) Get(ctx context.Context, dayKey int) ([]string, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	return readWords(ctx, db, dayKey)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readWords(ctx context.Context, q querier, dayKey int) ([]string, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT words FROM guesses WHERE day = ?`, dayKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	words := []string{}
	if err := json.Unmarshal([]byte(raw), &words); err != nil {
		return nil, fmt.Errorf("decode guesses for %d: %w", dayKey, err)
	}
	return words, nil
}

// Append adds word to dayKey's list. The read and the write happen in one
// transaction so concurrent appends never drop a word. Duplicates are kept;
// callers reject already-found words before appending.
func (s *Store) Append(ctx context.Context, dayKey int, word string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	s.writes.Lock()
	defer s.writes.Unlock()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	words, err := readWords(ctx, tx, dayKey)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(append(words, word))
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO guesses (day, words) VALUES (?, ?)
		 ON CONFLICT (day) DO UPDATE SET words = excluded.words`,
		dayKey, string(raw),
	); err != nil {
		return err
	}
	return tx.Commit()
}

// Prune deletes every day except today and yesterday and returns how many
// days were removed.
func (s *Store) Prune(ctx context.Context, today, yesterday int) (int, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM guesses WHERE day NOT IN (?, ?)`, today, yesterday)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Days lists the stored day keys in ascending order.
func (s *Store) Days(ctx context.Context) ([]int, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT day FROM guesses ORDER BY day`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	days := []int{}
	for rows.Next() {
		var d int
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
