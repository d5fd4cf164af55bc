package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps cache entries in a local database file. Expired rows
// read as misses and are removed by Prune.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite pragmas: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) AutoMigrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS cache_entries (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			expires_at_unix INTEGER NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);`,
		`CREATE INDEX IF NOT EXISTS idx_cache_entries_expiry ON cache_entries(expires_at_unix);`,
	}
	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("migrate cache: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		value     []byte
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at_unix FROM cache_entries WHERE key = ?`,
		key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if expiresAt <= s.now().UTC().Unix() {
		return nil, false, nil
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	expiresAt := s.now().UTC().Add(ttl).Unix()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, value, expires_at_unix, updated_at)
		 VALUES (?, ?, ?, datetime('now'))
		 ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at_unix = excluded.expires_at_unix,
			updated_at = excluded.updated_at`,
		key, value, expiresAt,
	)
	return err
}

// Prune deletes expired rows and reports how many were removed.
func (s *SQLiteStore) Prune(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE expires_at_unix <= ?`,
		s.now().UTC().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	return result.RowsAffected()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
