package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteTier is a SecondTier persisted in a local SQLite file.
type SQLiteTier struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLiteTier opens (or creates) the cache database at path.
func OpenSQLiteTier(path string) (*SQLiteTier, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("cache: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initCacheSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: init schema: %w", err)
	}
	return &SQLiteTier{db: db, now: time.Now}, nil
}

func initCacheSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS cache_entries (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		expires_at INTEGER NOT NULL
	)`)
	return err
}

func (t *SQLiteTier) Get(ctx context.Context, key string) ([]byte, time.Duration, bool, error) {
	var (
		value     []byte
		expiresAt int64
	)
	now := t.now()
	err := t.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM cache_entries WHERE key = ? AND expires_at > ?`,
		key, now.UnixMilli(),
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, err
	}
	return value, time.UnixMilli(expiresAt).Sub(now), true, nil
}

func (t *SQLiteTier) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, t.now().Add(ttl).UnixMilli(),
	)
	return err
}

func (t *SQLiteTier) Delete(ctx context.Context, key string) error {
	_, err := t.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
	return err
}

func (t *SQLiteTier) Clear(ctx context.Context) error {
	_, err := t.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	return err
}

// Prune deletes expired rows and returns how many were removed.
func (t *SQLiteTier) Prune(ctx context.Context) (int64, error) {
	res, err := t.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= ?`, t.now().UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PruneLoop periodically removes expired rows until ctx is done.
func (t *SQLiteTier) PruneLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := t.Prune(ctx); err != nil {
				slog.Debug("cache: L2 prune failed", slog.Any("error", err))
			} else if n > 0 {
				slog.Debug("cache: L2 pruned", slog.Int64("rows", n))
			}
		}
	}
}

func (t *SQLiteTier) Close() error { return t.db.Close() }
