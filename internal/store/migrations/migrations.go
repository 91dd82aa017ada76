// Package migrations applies the idempotent schema migrations spec.md
// §4.3 "Opening semantics" requires on every open, even against a
// database created by an older version of this program. Each migration
// is its own small function guarded by an existence check against
// sqlite_master/PRAGMA table_info, the way beads' internal/storage/sqlite/migrations
// package lays out one numbered file per schema change rather than a
// single monolithic upgrade script.
package migrations

import (
	"database/sql"
	"fmt"
)

// migration is one idempotent upgrade step.
type migration struct {
	name string
	fn   func(db *sql.DB) error
}

var all = []migration{
	{"rename_legacy_labels_tables", renameLegacyLabelsTables},
	{"ingested_files_error_column", addIngestedFilesErrorColumn},
	{"active_sessions_last_seen_at", addActiveSessionsLastSeenAt},
	{"ensure_tool_call_tags", ensureToolCallTags},
}

// Run applies every migration in order. Each step is individually
// idempotent, so Run is safe to call on every process start.
func Run(db *sql.DB) error {
	for _, m := range all {
		if err := m.fn(db); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
	}
	return nil
}

func tableExists(db *sql.DB, name string) (bool, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table','view') AND name = ?`, name).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid        int
			name, ctyp string
			notnull    int
			dflt       sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &ctyp, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// renameLegacyLabelsTables migrates pre-rename databases whose tag
// tables were still called "labels*" (spec.md §4.3).
func renameLegacyLabelsTables(db *sql.DB) error {
	renames := map[string]string{
		"labels":               "tags",
		"conversation_labels":  "conversation_tags",
		"workspace_labels":     "workspace_tags",
		"tool_call_labels":     "tool_call_tags",
		"prompt_labels":        "prompt_tags",
	}
	for legacy, current := range renames {
		legacyExists, err := tableExists(db, legacy)
		if err != nil {
			return err
		}
		if !legacyExists {
			continue
		}
		currentExists, err := tableExists(db, current)
		if err != nil {
			return err
		}
		if currentExists {
			// Both present from a partially-migrated database; leave the
			// legacy table for manual inspection rather than guessing
			// which one is authoritative.
			continue
		}
		if _, err := db.Exec(fmt.Sprintf(`ALTER TABLE %s RENAME TO %s`, legacy, current)); err != nil {
			return err
		}
	}
	return nil
}

func addIngestedFilesErrorColumn(db *sql.DB) error {
	exists, err := tableExists(db, "ingested_files")
	if err != nil || !exists {
		return err
	}
	has, err := columnExists(db, "ingested_files", "error")
	if err != nil || has {
		return err
	}
	_, err = db.Exec(`ALTER TABLE ingested_files ADD COLUMN error TEXT`)
	return err
}

func addActiveSessionsLastSeenAt(db *sql.DB) error {
	exists, err := tableExists(db, "active_sessions")
	if err != nil || !exists {
		return err
	}
	has, err := columnExists(db, "active_sessions", "last_seen_at")
	if err != nil || has {
		return err
	}
	if _, err := db.Exec(`ALTER TABLE active_sessions ADD COLUMN last_seen_at TEXT`); err != nil {
		return err
	}
	_, err = db.Exec(`UPDATE active_sessions SET last_seen_at = started_at WHERE last_seen_at IS NULL`)
	return err
}

func ensureToolCallTags(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS tool_call_tags (
		tool_call_id TEXT NOT NULL REFERENCES tool_calls(id) ON DELETE CASCADE,
		tag_id TEXT NOT NULL REFERENCES tags(id),
		PRIMARY KEY (tool_call_id, tag_id)
	)`)
	return err
}
