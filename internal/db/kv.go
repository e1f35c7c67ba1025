package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// KVGet returns the value stored under key.
func (db *DB) KVGet(key string) (string, bool, error) {
	var value string
	err := db.QueryRowContext(context.Background(),
		"SELECT value FROM kv_store WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read key: %w", err)
	}
	return value, true, nil
}

// KVSet stores value under key.
func (db *DB) KVSet(key, value string) error {
	query := `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`
	if _, err := db.ExecContext(context.Background(), query, key, value); err != nil {
		return fmt.Errorf("failed to write key: %w", err)
	}
	return nil
}

// KVDelete removes key. Deleting a missing key is not an error.
func (db *DB) KVDelete(key string) error {
	if _, err := db.ExecContext(context.Background(), "DELETE FROM kv_store WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// KVKeys lists keys starting with prefix in ascending order.
func (db *DB) KVKeys(prefix string) ([]string, error) {
	rows, err := db.QueryContext(context.Background(),
		"SELECT key FROM kv_store WHERE substr(key, 1, length(?)) = ? ORDER BY key",
		prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
