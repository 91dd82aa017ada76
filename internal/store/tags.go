package store

import (
	"context"
	"database/sql"
	"fmt"
)

// entityTagTable maps an entity_type (as used by pending_tags and the
// CLI's `tag` command) to its join table and foreign-key column.
var entityTagTable = map[string]struct {
	table  string
	column string
}{
	"conversation": {"conversation_tags", "conversation_id"},
	"workspace":    {"workspace_tags", "workspace_id"},
	"tool_call":    {"tool_call_tags", "tool_call_id"},
	"prompt":       {"prompt_tags", "prompt_id"},
}

// AddTag resolves tagName to a tag row and links it to entityID under
// entityType, creating the tag if it does not already exist. Re-adding
// an existing link is a no-op.
func AddTag(ctx context.Context, q querier, entityType, entityID, tagName string) error {
	spec, ok := entityTagTable[entityType]
	if !ok {
		return fmt.Errorf("unknown tag entity type %q", entityType)
	}
	tagID, err := GetOrCreateTag(ctx, q, tagName)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT OR IGNORE INTO %s (%s, tag_id) VALUES (?, ?)`, spec.table, spec.column)
	if _, err := q.ExecContext(ctx, query, entityID, tagID); err != nil {
		return fmt.Errorf("tagging %s %s: %w", entityType, entityID, err)
	}
	return nil
}

// RemoveTag unlinks tagName from entityID under entityType, if linked.
func RemoveTag(ctx context.Context, q querier, entityType, entityID, tagName string) error {
	spec, ok := entityTagTable[entityType]
	if !ok {
		return fmt.Errorf("unknown tag entity type %q", entityType)
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = ? AND tag_id = (SELECT id FROM tags WHERE name = ?)`, spec.table, spec.column)
	if _, err := q.ExecContext(ctx, query, entityID, tagName); err != nil {
		return fmt.Errorf("untagging %s %s: %w", entityType, entityID, err)
	}
	return nil
}

// ListTags returns the tag names linked to entityID under entityType.
func ListTags(ctx context.Context, db *sql.DB, entityType, entityID string) ([]string, error) {
	spec, ok := entityTagTable[entityType]
	if !ok {
		return nil, fmt.Errorf("unknown tag entity type %q", entityType)
	}
	query := fmt.Sprintf(`SELECT t.name FROM tags t JOIN %s j ON j.tag_id = t.id WHERE j.%s = ? ORDER BY t.name`, spec.table, spec.column)
	rows, err := db.QueryContext(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("listing tags for %s %s: %w", entityType, entityID, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning tag name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
