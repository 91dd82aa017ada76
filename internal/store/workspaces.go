package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kgruel/siftd-sub000/internal/idgen"
	"github.com/kgruel/siftd-sub000/internal/workspace"
)

// GetOrCreateWorkspace implements spec.md's workspace-identity rule:
// normalize path via worktree resolution, look up by git_remote first
// (when computable) and fall back to path, creating a new row only
// when neither lookup hits. A hit on git_remote with a previously-null
// remote on the path-matched row backfills it rather than creating a
// duplicate (testable scenario S6).
func GetOrCreateWorkspace(ctx context.Context, q querier, path string) (string, error) {
	root, err := workspace.MainRepoRoot(path)
	if err != nil {
		root = path
	}
	remote := workspace.GitRemote(root)

	if remote != "" {
		var id string
		err := q.QueryRowContext(ctx, `SELECT id FROM workspaces WHERE git_remote = ?`, remote).Scan(&id)
		if err == nil {
			return id, nil
		}
		if err != sql.ErrNoRows {
			return "", fmt.Errorf("looking up workspace by git_remote: %w", err)
		}
	}

	var id string
	var existingRemote sql.NullString
	err = q.QueryRowContext(ctx, `SELECT id, git_remote FROM workspaces WHERE path = ?`, root).Scan(&id, &existingRemote)
	if err == nil {
		if remote != "" && !existingRemote.Valid {
			if _, err := q.ExecContext(ctx, `UPDATE workspaces SET git_remote = ? WHERE id = ?`, remote, id); err != nil {
				return "", fmt.Errorf("backfilling workspace git_remote: %w", err)
			}
		}
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("looking up workspace by path: %w", err)
	}

	id = idgen.New("ws")
	var remoteArg any
	if remote != "" {
		remoteArg = remote
	}
	if _, err := q.ExecContext(ctx, `INSERT INTO workspaces (id, path, git_remote) VALUES (?, ?, ?)`, id, root, remoteArg); err != nil {
		return "", fmt.Errorf("inserting workspace: %w", err)
	}
	return id, nil
}
