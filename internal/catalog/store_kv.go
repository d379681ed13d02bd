package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crate/internal/kvstore"
)

// KV exposes the kv_state table as a kvstore.Store. It outlives a single
// process, so state published here (scan progress, for one) is readable
// from other commands while a scan runs elsewhere.
type KV struct {
	db *sql.DB
}

var _ kvstore.Store = (*KV)(nil)

// KV returns the store's persistent key-value state.
func (s *Store) KV() *KV {
	return &KV{db: s.db}
}

func (k *KV) Put(ctx context.Context, key string, value []byte) error {
	_, err := k.db.ExecContext(
		ctx,
		`INSERT INTO kv_state (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key,
		value,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put kv %q: %w", key, err)
	}
	return nil
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	row := k.db.QueryRowContext(ctx, `SELECT value FROM kv_state WHERE key = ?`, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get kv %q: %w", key, err)
	}
	return value, true, nil
}

func (k *KV) Delete(ctx context.Context, key string) error {
	if _, err := k.db.ExecContext(ctx, `DELETE FROM kv_state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete kv %q: %w", key, err)
	}
	return nil
}

func (k *KV) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := k.db.QueryContext(
		ctx,
		`SELECT key FROM kv_state WHERE substr(key, 1, length(?)) = ? ORDER BY key`,
		prefix,
		prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("list kv keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan kv key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kv keys: %w", err)
	}
	return keys, nil
}
