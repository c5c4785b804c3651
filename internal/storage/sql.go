package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"intan/internal/database"
)

// SQLStorage keeps values in the kv_store table
type SQLStorage struct {
	db *database.DB
}

// NewSQLStorage creates a store over a migrated database
func NewSQLStorage(db *database.DB) *SQLStorage {
	return &SQLStorage{db: db}
}

func (s *SQLStorage) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	query := "SELECT kv_value FROM kv_store WHERE kv_key = ?"
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLStorage) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, s.db.Dialect.UpsertKV(), key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (s *SQLStorage) Remove(ctx context.Context, key string) error {
	query := "DELETE FROM kv_store WHERE kv_key = ?"
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Keys uses LIKE to narrow the scan; '_' and '%' in prefix act as wildcards
// there, so the exact prefix check happens here.
func (s *SQLStorage) Keys(ctx context.Context, prefix string) ([]string, error) {
	query := "SELECT kv_key FROM kv_store WHERE kv_key LIKE ? ORDER BY kv_key"
	rows, err := s.db.QueryContext(ctx, query, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}

	return keys, rows.Err()
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}
