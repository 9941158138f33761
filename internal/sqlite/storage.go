package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aipms/client/internal/repository"
)

// KeyValueRepository implements repository.KeyValueRepository for SQLite
type KeyValueRepository struct {
	db *DB
}

var _ repository.KeyValueRepository = (*KeyValueRepository)(nil)

// NewKeyValueRepository creates a new KeyValueRepository
func NewKeyValueRepository(db *DB) *KeyValueRepository {
	return &KeyValueRepository{db: db}
}

// Load returns the stored values for keys and the current revision
func (r *KeyValueRepository) Load(ctx context.Context, keys []string) (map[string]string, int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	values := make(map[string]string, len(keys))
	if len(keys) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
		args := make([]any, len(keys))
		for i, k := range keys {
			args[i] = k
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT key, value FROM client_storage WHERE key IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to load values: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var key, value string
			if err := rows.Scan(&key, &value); err != nil {
				return nil, 0, fmt.Errorf("failed to scan value: %w", err)
			}
			values[key] = value
		}
		if err := rows.Err(); err != nil {
			return nil, 0, fmt.Errorf("error iterating value rows: %w", err)
		}
	}

	rev, err := revision(ctx, tx)
	if err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return values, rev, nil
}

// Replace upserts values, deletes removed keys and bumps the revision
func (r *KeyValueRepository) Replace(ctx context.Context, values map[string]string, removed []string) (int64, error) {
	for key := range values {
		if strings.TrimSpace(key) == "" {
			return 0, repository.ErrInvalidInput
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for key, value := range values {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO client_storage (key, value, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, key, value, now)
		if err != nil {
			return 0, fmt.Errorf("failed to store %s: %w", key, err)
		}
	}

	for _, key := range removed {
		if _, err := tx.ExecContext(ctx, `DELETE FROM client_storage WHERE key = ?`, key); err != nil {
			return 0, fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}

	result, err := tx.ExecContext(ctx, `UPDATE storage_meta SET revision = revision + 1 WHERE id = 1`)
	if err != nil {
		return 0, fmt.Errorf("failed to bump revision: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	} else if n == 0 {
		return 0, repository.ErrNotFound
	}

	rev, err := revision(ctx, tx)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return rev, nil
}

// Revision returns the current storage revision
func (r *KeyValueRepository) Revision(ctx context.Context) (int64, error) {
	var rev int64
	err := r.db.QueryRowContext(ctx, `SELECT revision FROM storage_meta WHERE id = 1`).Scan(&rev)
	if err == sql.ErrNoRows {
		return 0, repository.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read revision: %w", err)
	}
	return rev, nil
}

func revision(ctx context.Context, tx *sql.Tx) (int64, error) {
	var rev int64
	err := tx.QueryRowContext(ctx, `SELECT revision FROM storage_meta WHERE id = 1`).Scan(&rev)
	if err == sql.ErrNoRows {
		return 0, repository.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read revision: %w", err)
	}
	return rev, nil
}
