// Package session is the CLI-facing facade over the live session layer
// (spec.md §4.8): it pairs internal/store's active_sessions/pending_tags
// primitives with the on-disk session-id pointer file
// ($XDG_STATE_HOME/siftd/sessions/<hash>/session-id) that lets a later
// `tag --session` invocation in the same workspace find the session a
// `register` call started, without the caller having to pass the
// harness session id around by hand.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kgruel/siftd-sub000/internal/paths"
	"github.com/kgruel/siftd-sub000/internal/store"
)

// DefaultStaleAge is spec.md §4.8's default cleanup_stale_sessions cutoff.
const DefaultStaleAge = 48 * time.Hour

// Register upserts an active_sessions row for harnessSessionID and
// points the workspace's session-id file at it, so subsequent
// `tag --session` calls in the same workspace resolve to this session
// without repeating the id.
func Register(ctx context.Context, db *sql.DB, harnessSessionID, adapterName, workspacePath string) error {
	if err := store.RegisterSession(ctx, db, harnessSessionID, adapterName, workspacePath); err != nil {
		return err
	}
	p, err := paths.SessionIDPath(workspacePath)
	if err != nil {
		return fmt.Errorf("resolving session-id pointer path: %w", err)
	}
	if err := os.WriteFile(p, []byte(harnessSessionID+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing session-id pointer: %w", err)
	}
	return nil
}

// Current reads the workspace's session-id pointer file, returning ""
// (not an error) if no session has been registered for this workspace.
func Current(workspacePath string) (string, error) {
	p, err := paths.SessionIDPath(workspacePath)
	if err != nil {
		return "", fmt.Errorf("resolving session-id pointer path: %w", err)
	}
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading session-id pointer: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// QueueCurrentTag resolves the workspace's current live session (via
// Current) and queues tagName against it. Tag-queued-without-register
// is legal per spec.md §4.8 only when a harness session id is already
// known; callers with a bare tag name and no registered session should
// call store.QueueTag directly against the harness session id they
// already have instead.
func QueueCurrentTag(ctx context.Context, db *sql.DB, workspacePath, tagName, entityType string, exchangeIndex *int) error {
	sessionID, err := Current(workspacePath)
	if err != nil {
		return err
	}
	if sessionID == "" {
		return fmt.Errorf("no live session registered for workspace %s", workspacePath)
	}
	return store.QueueTag(ctx, db, sessionID, tagName, entityType, exchangeIndex)
}

// CleanupStale runs spec.md §4.8's staleness sweep with the default
// 48-hour cutoff, exposed here so both the `doctor` check and a direct
// CLI invocation share one entry point.
func CleanupStale(ctx context.Context, st *store.Store) (int64, error) {
	return st.CleanupStaleSessions(ctx, DefaultStaleAge)
}
