package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type SQLiteBlobRepository struct {
	db *sql.DB
}

func NewSQLiteBlobRepository(db *sql.DB) *SQLiteBlobRepository {
	return &SQLiteBlobRepository{db: db}
}

func (r *SQLiteBlobRepository) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT blob_value FROM blobs WHERE blob_key = ?`

	var value []byte
	err := r.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get blob %s: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteBlobRepository) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO blobs (blob_key, blob_value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(blob_key) DO UPDATE SET blob_value = excluded.blob_value, updated_at = CURRENT_TIMESTAMP
	`

	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("set blob %s: %w", key, err)
	}
	return nil
}
