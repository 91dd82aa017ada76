package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kgruel/siftd-sub000/internal/idgen"
)

// RegisterSession upserts an active_sessions row, stamping last_seen_at
// to now on both insert and update (spec.md §4.8).
func RegisterSession(ctx context.Context, q querier, harnessSessionID, adapterName, workspacePath string) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := q.ExecContext(ctx, `
		INSERT INTO active_sessions (harness_session_id, adapter_name, workspace_path, started_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(harness_session_id) DO UPDATE SET last_seen_at = excluded.last_seen_at
	`, harnessSessionID, adapterName, workspacePath, now, now)
	if err != nil {
		return fmt.Errorf("registering session %s: %w", harnessSessionID, err)
	}
	return nil
}

// QueueTag inserts a pending_tags row unless an identical one already
// exists. exchangeIndex is nil for entity_type="conversation". Because
// SQLite's UNIQUE constraint does not deduplicate NULLs, the duplicate
// check is done explicitly up front rather than relying on the index
// (spec.md §4.8).
func QueueTag(ctx context.Context, q querier, harnessSessionID, tagName, entityType string, exchangeIndex *int) error {
	var existing int
	var err error
	if exchangeIndex == nil {
		err = q.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM pending_tags
			WHERE harness_session_id = ? AND tag_name = ? AND entity_type = ? AND exchange_index IS NULL
		`, harnessSessionID, tagName, entityType).Scan(&existing)
	} else {
		err = q.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM pending_tags
			WHERE harness_session_id = ? AND tag_name = ? AND entity_type = ? AND exchange_index = ?
		`, harnessSessionID, tagName, entityType, *exchangeIndex).Scan(&existing)
	}
	if err != nil {
		return fmt.Errorf("checking pending_tags duplicate: %w", err)
	}
	if existing > 0 {
		return nil
	}

	var idxArg any
	if exchangeIndex != nil {
		idxArg = *exchangeIndex
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO pending_tags (id, harness_session_id, tag_name, entity_type, exchange_index, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, idgen.New("ptag"), harnessSessionID, tagName, entityType, idxArg, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("queueing tag %q for session %s: %w", tagName, harnessSessionID, err)
	}
	return nil
}

// PendingTag is one row consumed by ConsumePendingTags.
type PendingTag struct {
	TagName       string
	EntityType    string
	ExchangeIndex *int
}

// ConsumePendingTags atomically fetches and deletes every pending_tags
// row for harnessSessionID, returning them for the caller to apply.
func ConsumePendingTags(ctx context.Context, tx *sql.Tx, harnessSessionID string) ([]PendingTag, error) {
	rows, err := tx.QueryContext(ctx, `SELECT tag_name, entity_type, exchange_index FROM pending_tags WHERE harness_session_id = ?`, harnessSessionID)
	if err != nil {
		return nil, fmt.Errorf("fetching pending tags: %w", err)
	}
	var out []PendingTag
	for rows.Next() {
		var pt PendingTag
		var idx sql.NullInt64
		if err := rows.Scan(&pt.TagName, &pt.EntityType, &idx); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning pending tag: %w", err)
		}
		if idx.Valid {
			v := int(idx.Int64)
			pt.ExchangeIndex = &v
		}
		out = append(out, pt)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_tags WHERE harness_session_id = ?`, harnessSessionID); err != nil {
		return nil, fmt.Errorf("deleting pending tags: %w", err)
	}
	return out, nil
}

// UnregisterSession removes a session from active_sessions after
// reconciliation (step 3 of spec.md §4.8's reconciliation sequence).
func UnregisterSession(ctx context.Context, q querier, harnessSessionID string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM active_sessions WHERE harness_session_id = ?`, harnessSessionID); err != nil {
		return fmt.Errorf("unregistering session %s: %w", harnessSessionID, err)
	}
	return nil
}

// ReconcileSession applies spec.md §4.8's reconciliation sequence for a
// conversation whose external_id just matched a registered session:
// consume pending tags, apply conversation-level tags directly and
// exchange-level tags to the i'th prompt (by prompt_index order,
// out-of-range indices skipped), then unregister the session.
func ReconcileSession(ctx context.Context, tx *sql.Tx, harnessSessionID, conversationID string) error {
	pending, err := ConsumePendingTags(ctx, tx, harnessSessionID)
	if err != nil {
		return err
	}

	for _, pt := range pending {
		switch pt.EntityType {
		case "conversation":
			if err := AddTag(ctx, tx, "conversation", conversationID, pt.TagName); err != nil {
				return err
			}
		case "exchange":
			if pt.ExchangeIndex == nil {
				continue
			}
			var promptID string
			err := tx.QueryRowContext(ctx, `SELECT id FROM prompts WHERE conversation_id = ? ORDER BY prompt_index LIMIT 1 OFFSET ?`,
				conversationID, *pt.ExchangeIndex).Scan(&promptID)
			if err == sql.ErrNoRows {
				continue
			}
			if err != nil {
				return fmt.Errorf("resolving exchange %d for session %s: %w", *pt.ExchangeIndex, harnessSessionID, err)
			}
			if err := AddTag(ctx, tx, "prompt", promptID, pt.TagName); err != nil {
				return err
			}
		}
	}

	return UnregisterSession(ctx, tx, harnessSessionID)
}

// CleanupStaleSessions deletes active_sessions rows whose last known
// activity predates now minus maxAge, plus orphaned pending_tags rows
// older than the same cutoff (spec.md §4.8 "Staleness").
func (s *Store) CleanupStaleSessions(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format(timeLayout)
	var removed int64
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM active_sessions WHERE COALESCE(last_seen_at, started_at) < ?`, cutoff)
		if err != nil {
			return fmt.Errorf("cleaning stale sessions: %w", err)
		}
		removed, _ = res.RowsAffected()

		if _, err := tx.ExecContext(ctx, `DELETE FROM pending_tags WHERE created_at < ?`, cutoff); err != nil {
			return fmt.Errorf("cleaning orphaned pending tags: %w", err)
		}
		return nil
	})
	return removed, err
}
