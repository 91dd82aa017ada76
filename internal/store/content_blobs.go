package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kgruel/siftd-sub000/internal/content"
)

// StoreContent upserts payload into content_blobs keyed by its SHA-256
// hash, incrementing ref_count, and returns the hash (spec.md §4.3
// "store_content(payload) -> hash").
func StoreContent(ctx context.Context, q querier, payload []byte) (string, error) {
	hash := content.Hash(payload)
	_, err := q.ExecContext(ctx, `INSERT INTO content_blobs (hash, payload, ref_count) VALUES (?, ?, 1)
		ON CONFLICT(hash) DO UPDATE SET ref_count = ref_count + 1`, hash, payload)
	if err != nil {
		return "", fmt.Errorf("storing content blob: %w", err)
	}
	return hash, nil
}

// ReleaseContent decrements a blob's ref_count and deletes the row once
// it reaches zero. Releasing a hash with no matching row is a no-op:
// callers that already deleted their own referencing row may retry.
func ReleaseContent(ctx context.Context, q querier, hash string) error {
	if hash == "" {
		return nil
	}
	if _, err := q.ExecContext(ctx, `UPDATE content_blobs SET ref_count = ref_count - 1 WHERE hash = ?`, hash); err != nil {
		return fmt.Errorf("decrementing content blob %s: %w", hash, err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM content_blobs WHERE hash = ? AND ref_count <= 0`, hash); err != nil {
		return fmt.Errorf("pruning content blob %s: %w", hash, err)
	}
	return nil
}

// GetContent fetches a blob's payload by hash.
func (s *Store) GetContent(ctx context.Context, hash string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM content_blobs WHERE hash = ?`, hash).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("content blob %s not found", hash)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching content blob %s: %w", hash, err)
	}
	return payload, nil
}

// AdjustRefCount is the backfill primitive spec.md §4.11 requires when a
// tool call's result_hash is rewritten in place: it decrements the old
// blob by the number of callers being moved off it and increments the
// new blob by (moved - 1), since StoreContent already bumped the new
// blob once per call.
func AdjustRefCount(ctx context.Context, q querier, hash string, delta int) error {
	if hash == "" || delta == 0 {
		return nil
	}
	if _, err := q.ExecContext(ctx, `UPDATE content_blobs SET ref_count = ref_count + ? WHERE hash = ?`, delta, hash); err != nil {
		return fmt.Errorf("adjusting content blob %s ref_count: %w", hash, err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM content_blobs WHERE hash = ? AND ref_count <= 0`, hash); err != nil {
		return fmt.Errorf("pruning content blob %s: %w", hash, err)
	}
	return nil
}
