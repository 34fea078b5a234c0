// Package store persists the small bits of client state that must survive a
// restart. V1: a single key-value table in a sqlite file under the state dir,
// holding the access token.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// AccessTokenKey is the well-known key the session token is stored under.
// Absence means unauthenticated.
const AccessTokenKey = "access_token"

type Store struct {
	Dir string
}

// DefaultDir resolves the state directory: $TECHBLOK_STATE_DIR when set,
// otherwise ~/.techblok.
func DefaultDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("TECHBLOK_STATE_DIR")); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve state dir: %w", err)
	}
	return filepath.Join(home, ".techblok"), nil
}

func (s Store) dbPath() string {
	return filepath.Join(filepath.Clean(s.Dir), "state.sqlite")
}

func (s Store) open(ctx context.Context) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Clean(s.Dir), 0o755); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", s.dbPath())
	if err != nil {
		return nil, err
	}
	// WAL enables one writer + many readers; busy_timeout avoids "database is
	// locked" flakiness when a CLI command races the TUI.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %s: %w", strings.TrimSuffix(p, ";"), err)
		}
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	    );`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (s Store) Get(ctx context.Context, key string) (string, bool, error) {
	db, err := s.open(ctx)
	if err != nil {
		return "", false, err
	}
	defer db.Close()

	var value string
	err = db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s Store) Set(ctx context.Context, key, value string) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func (s Store) Delete(ctx context.Context, key string) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

// AccessToken returns the persisted token, if any.
func (s Store) AccessToken(ctx context.Context) (string, bool, error) {
	return s.Get(ctx, AccessTokenKey)
}

func (s Store) SaveAccessToken(ctx context.Context, token string) error {
	return s.Set(ctx, AccessTokenKey, token)
}

func (s Store) ClearAccessToken(ctx context.Context) error {
	return s.Delete(ctx, AccessTokenKey)
}
