package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/iudanet/nautilus/internal/server/storage"
)

// Get returns the value stored under key
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM kv WHERE key = ?`

	var value []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %q: %w", key, err)
	}

	if value == nil {
		value = []byte{}
	}
	return value, nil
}

// Put creates or replaces key
func (s *Storage) Put(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, key, blob(value), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to put %q: %w", key, err)
	}

	return nil
}

// PutIfAbsent writes key only when it is not present
func (s *Storage) PutIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	query := `
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query, key, blob(value), time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to put %q: %w", key, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows == 1, nil
}

// Delete removes key
func (s *Storage) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// Keys returns keys with the given prefix in ascending order
func (s *Storage) Keys(ctx context.Context, prefix string) ([]string, error) {
	// substr вместо LIKE: в ключах встречаются '_' и '%'
	query := `SELECT key FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key`

	rows, err := s.db.QueryContext(ctx, query, utf8.RuneCountInString(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return keys, nil
}

// NOT NULL колонка: nil из вызывающего кода превращаем в пустой blob
func blob(value []byte) []byte {
	if value == nil {
		return []byte{}
	}
	return value
}
