package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kgruel/siftd-sub000/internal/idgen"
)

// querier is satisfied by both *sql.DB and *sql.Tx, so the identity
// helpers below work whether called inside an ingest transaction or
// standalone (e.g. from doctor checks).
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// GetOrCreateHarness resolves a harness by name, inserting it with the
// given metadata if absent. Existing rows are not overwritten: the
// first adapter to register a harness name wins its display metadata.
func GetOrCreateHarness(ctx context.Context, q querier, name, provider, logFormat, displayName string) (string, error) {
	var id string
	err := q.QueryRowContext(ctx, `SELECT id FROM harnesses WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("looking up harness %q: %w", name, err)
	}
	id = idgen.New("harness")
	_, err = q.ExecContext(ctx, `INSERT INTO harnesses (id, name, provider, log_format, display_name) VALUES (?, ?, ?, ?, ?)`,
		id, name, provider, logFormat, displayName)
	if err != nil {
		return "", fmt.Errorf("inserting harness %q: %w", name, err)
	}
	return id, nil
}

// GetOrCreateProvider resolves a provider by name.
func GetOrCreateProvider(ctx context.Context, q querier, name string) (string, error) {
	if name == "" {
		return "", nil
	}
	var id string
	err := q.QueryRowContext(ctx, `SELECT id FROM providers WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("looking up provider %q: %w", name, err)
	}
	id = idgen.New("prov")
	if _, err := q.ExecContext(ctx, `INSERT INTO providers (id, name) VALUES (?, ?)`, id, name); err != nil {
		return "", fmt.Errorf("inserting provider %q: %w", name, err)
	}
	return id, nil
}

// GetOrCreateModel resolves a model by its raw, as-logged name. Parsed
// fields (creator/family/version/variant/released) are best-effort and
// only set at insertion time; re-parsing an existing model's name is
// backfill's job (internal/backfill), not this lookup's.
func GetOrCreateModel(ctx context.Context, q querier, rawName, creator, family, version, variant, released string) (string, error) {
	if rawName == "" {
		return "", nil
	}
	var id string
	err := q.QueryRowContext(ctx, `SELECT id FROM models WHERE raw_name = ?`, rawName).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("looking up model %q: %w", rawName, err)
	}
	id = idgen.New("model")
	_, err = q.ExecContext(ctx, `INSERT INTO models (id, raw_name, creator, family, version, variant, released) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, rawName, creator, family, version, variant, released)
	if err != nil {
		return "", fmt.Errorf("inserting model %q: %w", rawName, err)
	}
	return id, nil
}

// GetOrCreateTool resolves rawName to a canonical tool row, consulting
// tool_aliases for the harness first (spec.md: adapters may register
// harness-specific raw tool names that map onto a shared canonical
// tool, e.g. claudecode's "Bash" and codexcli's "shell" both resolving
// to "shell.execute").
func GetOrCreateTool(ctx context.Context, q querier, harnessID, rawName string) (string, error) {
	canonical := rawName
	var aliased string
	err := q.QueryRowContext(ctx, `SELECT canonical_name FROM tool_aliases WHERE harness_id = ? AND raw_name = ?`, harnessID, rawName).Scan(&aliased)
	if err == nil {
		canonical = aliased
	} else if err != sql.ErrNoRows {
		return "", fmt.Errorf("looking up tool alias %q: %w", rawName, err)
	}

	var id string
	err = q.QueryRowContext(ctx, `SELECT id FROM tools WHERE name = ?`, canonical).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("looking up tool %q: %w", canonical, err)
	}
	id = idgen.New("tool")
	if _, err := q.ExecContext(ctx, `INSERT INTO tools (id, name) VALUES (?, ?)`, id, canonical); err != nil {
		return "", fmt.Errorf("inserting tool %q: %w", canonical, err)
	}
	return id, nil
}

// RegisterToolAlias records that an adapter's raw tool name should
// resolve to canonicalName for a given harness. Re-registering the
// same (harness, raw_name) pair updates the mapping.
func RegisterToolAlias(ctx context.Context, q querier, harnessID, rawName, canonicalName string) error {
	_, err := q.ExecContext(ctx, `INSERT INTO tool_aliases (harness_id, raw_name, canonical_name) VALUES (?, ?, ?)
		ON CONFLICT(harness_id, raw_name) DO UPDATE SET canonical_name = excluded.canonical_name`,
		harnessID, rawName, canonicalName)
	if err != nil {
		return fmt.Errorf("registering tool alias %q: %w", rawName, err)
	}
	return nil
}

// GetOrCreateTag resolves a tag by name, creating it if absent. Tag
// names are free-form but conventionally namespaced ("research:auth",
// "shell:git", "siftd:derivative").
func GetOrCreateTag(ctx context.Context, q querier, name string) (string, error) {
	var id string
	err := q.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("looking up tag %q: %w", name, err)
	}
	id = idgen.New("tag")
	if _, err := q.ExecContext(ctx, `INSERT INTO tags (id, name) VALUES (?, ?)`, id, name); err != nil {
		return "", fmt.Errorf("inserting tag %q: %w", name, err)
	}
	return id, nil
}
