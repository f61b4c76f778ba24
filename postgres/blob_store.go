package postgres

import (
	"context"
	"fmt"

	"github.com/linchengweiii/fxlots"
)

// BlobStore is a PostgreSQL implementation of fxlots.BlobStore.
// Every key is one row of fx_blobs; values are stored as raw bytes.
type BlobStore struct {
	pool *Pool
}

var _ fxlots.BlobStore = (*BlobStore)(nil)

// NewBlobStore creates a new PostgreSQL blob store.
func NewBlobStore(pool *Pool) *BlobStore {
	return &BlobStore{pool: pool}
}

// Get returns fxlots.ErrNotFound when the key has no row.
func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM fx_blobs WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if isNotFoundError(err) {
			return nil, fxlots.ErrNotFound
		}
		return nil, fmt.Errorf("get blob %s: %w", key, err)
	}
	return value, nil
}

// Put upserts all entries in one transaction.
func (s *BlobStore) Put(ctx context.Context, blobs map[string][]byte) error {
	if len(blobs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO fx_blobs (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    updated_at = NOW()
	`
	for key, value := range blobs {
		if value == nil {
			value = []byte{}
		}
		if _, err := tx.Exec(ctx, query, key, value); err != nil {
			return fmt.Errorf("put blob %s: %w", key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Delete removes the given keys. Missing keys are ignored.
func (s *BlobStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM fx_blobs WHERE key = ANY($1)`, keys); err != nil {
		return fmt.Errorf("delete blobs: %w", err)
	}
	return nil
}
