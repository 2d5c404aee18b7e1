// Package sqlite is a tokenstore.Store backed by a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ministrylearn/ministrylearn/pkg/tokenstore"
	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ tokenstore.Store = (*Store)(nil)

// NewStore opens the database at dsn. Call ApplyMigrations before use.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

// DSN builds a file DSN with a busy timeout and WAL journal.
func DSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Get(ctx context.Context, key tokenstore.Key) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_tokens WHERE key = ?`, string(key),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("select %s token: %w", key, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key tokenstore.Key, value string) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if value == "" {
		return s.Delete(ctx, key)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_tokens (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		string(key), value, s.now().UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert %s token: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...tokenstore.Key) error {
	for _, k := range keys {
		if err := k.Validate(); err != nil {
			return err
		}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, k := range keys {
			if _, err := tx.ExecContext(ctx, `DELETE FROM session_tokens WHERE key = ?`, string(k)); err != nil {
				return fmt.Errorf("delete %s token: %w", k, err)
			}
		}
		return nil
	})
}

// withTx executes fn within a transaction, committing only when fn succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
