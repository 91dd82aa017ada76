// Package backfill implements spec.md §4.11's idempotent maintenance
// operations: operations that re-derive data already implied by what's
// in the store, safe to run repeatedly against a corpus ingested by an
// older version of an adapter. Grounded on beads' migration style
// (internal/store/migrations): each operation is a small, independently
// idempotent pass rather than one monolithic rewrite.
package backfill

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kgruel/siftd-sub000/internal/content"
	"github.com/kgruel/siftd-sub000/internal/store"
)

// Result tallies how many rows one operation touched.
type Result struct {
	Scanned int
	Updated int
}

// ReparseCacheTokens re-reads claude-style NDJSON session logs already
// recorded in ingested_files and recovers cache-token usage that an
// older adapter version didn't parse into response_attributes.
// Matching is best-effort: assistant "usage" objects are read off the
// file in order and zipped against that conversation's responses in
// timestamp order, since neither side carries a shared external id for
// a single response.
func ReparseCacheTokens(ctx context.Context, st *store.Store) (Result, error) {
	rows, err := st.DB().QueryContext(ctx, `
		SELECT f.path, f.conversation_id
		FROM ingested_files f
		JOIN conversations c ON c.id = f.conversation_id
		JOIN harnesses h ON h.id = c.harness_id
		WHERE f.error IS NULL AND h.log_format = 'ndjson'
	`)
	if err != nil {
		return Result{}, fmt.Errorf("listing claude-style ingested files: %w", err)
	}
	defer rows.Close()

	type target struct{ path, conversationID string }
	var targets []target
	for rows.Next() {
		var t target
		if err := rows.Scan(&t.path, &t.conversationID); err != nil {
			return Result{}, fmt.Errorf("scanning ingested file row: %w", err)
		}
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return Result{}, err
	}

	var res Result
	for _, t := range targets {
		res.Scanned++
		usages, err := scanCacheUsage(t.path)
		if err != nil || len(usages) == 0 {
			continue
		}
		n, err := applyCacheUsage(ctx, st, t.conversationID, usages)
		if err != nil {
			return res, fmt.Errorf("applying cache usage for %s: %w", t.conversationID, err)
		}
		res.Updated += n
	}
	return res, nil
}

type cacheUsage struct {
	creationTokens int
	readTokens     int
}

// scanCacheUsage walks an NDJSON file line by line, collecting any
// "usage" object carrying cache_creation_input_tokens/
// cache_read_input_tokens fields, in file order.
func scanCacheUsage(path string) ([]cacheUsage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []cacheUsage
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		usage, ok := rec["usage"].(map[string]any)
		if !ok {
			continue
		}
		var cu cacheUsage
		cu.creationTokens = intField(usage["cache_creation_input_tokens"])
		cu.readTokens = intField(usage["cache_read_input_tokens"])
		if cu.creationTokens == 0 && cu.readTokens == 0 {
			continue
		}
		out = append(out, cu)
	}
	return out, sc.Err()
}

func intField(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	}
	return 0
}

func applyCacheUsage(ctx context.Context, st *store.Store, conversationID string, usages []cacheUsage) (int, error) {
	respRows, err := st.DB().QueryContext(ctx, `
		SELECT id FROM responses WHERE conversation_id = ? ORDER BY timestamp
	`, conversationID)
	if err != nil {
		return 0, err
	}
	var responseIDs []string
	for respRows.Next() {
		var id string
		if err := respRows.Scan(&id); err != nil {
			respRows.Close()
			return 0, err
		}
		responseIDs = append(responseIDs, id)
	}
	respRows.Close()
	if err := respRows.Err(); err != nil {
		return 0, err
	}

	n := len(responseIDs)
	if len(usages) < n {
		n = len(usages)
	}
	updated := 0
	err = st.WithTx(ctx, func(tx *sql.Tx) error {
		for i := 0; i < n; i++ {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO response_attributes (response_id, key, value) VALUES (?, 'cache_creation_tokens', ?)
				ON CONFLICT(response_id, key) DO UPDATE SET value = excluded.value
			`, responseIDs[i], strconv.Itoa(usages[i].creationTokens)); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO response_attributes (response_id, key, value) VALUES (?, 'cache_read_tokens', ?)
				ON CONFLICT(response_id, key) DO UPDATE SET value = excluded.value
			`, responseIDs[i], strconv.Itoa(usages[i].readTokens)); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	return updated, err
}

// shellCategory classifies an invoked shell command line into one of
// spec.md SPEC_FULL.md §C.5's shell:* tags by matching the first token
// (the invoked binary or subcommand) against known categories.
func shellCategory(cmdline string) string {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return "shell:other"
	}
	bin := fields[0]
	rest := ""
	if len(fields) > 1 {
		rest = fields[1]
	}
	switch bin {
	case "git", "hg", "svn":
		return "shell:vcs"
	case "go", "cargo":
		switch rest {
		case "test":
			return "shell:test"
		case "build", "vet":
			return "shell:build"
		case "get", "install", "mod":
			return "shell:package-manager"
		}
		return "shell:other"
	case "npm", "yarn", "pnpm", "pip", "pip3", "gem", "bundle", "apt", "apt-get", "brew":
		return "shell:package-manager"
	case "pytest", "jest", "vitest", "rspec", "mocha", "go-test":
		return "shell:test"
	case "make", "cmake", "ninja", "cc", "gcc", "clang", "tsc", "webpack", "vite":
		return "shell:build"
	}
	if rest == "test" || strings.Contains(cmdline, "pytest") || strings.Contains(cmdline, " test") {
		return "shell:test"
	}
	return "shell:other"
}

// CategorizeShellTags walks tool_calls invoking a shell tool and tags
// each with its derived shell:* category, skipping calls already
// carrying any shell:* tag.
func CategorizeShellTags(ctx context.Context, st *store.Store) (Result, error) {
	rows, err := st.DB().QueryContext(ctx, `
		SELECT id, input_json FROM tool_calls WHERE tool_name = 'shell.execute'
	`)
	if err != nil {
		return Result{}, fmt.Errorf("listing shell tool calls: %w", err)
	}
	type row struct{ id, inputJSON string }
	var targets []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.inputJSON); err != nil {
			rows.Close()
			return Result{}, err
		}
		targets = append(targets, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Result{}, err
	}

	var res Result
	for _, t := range targets {
		res.Scanned++
		already, err := hasShellTag(ctx, st, t.id)
		if err != nil {
			return res, err
		}
		if already {
			continue
		}
		var input map[string]any
		if err := json.Unmarshal([]byte(t.inputJSON), &input); err != nil {
			continue
		}
		cmdline, _ := input["command"].(string)
		if cmdline == "" {
			continue
		}
		tag := shellCategory(cmdline)
		if err := st.WithTx(ctx, func(tx *sql.Tx) error {
			return store.AddTag(ctx, tx, "tool_call", t.id, tag)
		}); err != nil {
			return res, fmt.Errorf("tagging tool call %s: %w", t.id, err)
		}
		res.Updated++
	}
	return res, nil
}

func hasShellTag(ctx context.Context, st *store.Store, toolCallID string) (bool, error) {
	names, err := store.ListTags(ctx, st.DB(), "tool_call", toolCallID)
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if strings.HasPrefix(n, "shell:") {
			return true, nil
		}
	}
	return false, nil
}

// derivativeMarkers are the invocation phrases spec.md's GLOSSARY
// defines a "derivative conversation" by: a conversation that itself
// contains invocations of this tool.
var derivativeMarkers = []string{"siftd ask", "siftd query"}

// TagDerivatives finds conversations whose prompt text contains an
// invocation of this tool itself and tags them "siftd:derivative"
// (excluded from search by default, spec.md §4.6 Stage A). Tool-call
// inputs and response text are not scanned.
func TagDerivatives(ctx context.Context, st *store.Store) (Result, error) {
	seen := map[string]bool{}
	var res Result

	rows, err := st.DB().QueryContext(ctx, `
		SELECT DISTINCT p.conversation_id FROM prompt_content pc
		JOIN prompts p ON p.id = pc.prompt_id
		WHERE pc.block_type = 'text'
	`)
	if err != nil {
		return Result{}, fmt.Errorf("scanning prompt content for derivative markers: %w", err)
	}
	var candidates []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return Result{}, err
		}
		candidates = append(candidates, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Result{}, err
	}

	for _, convID := range candidates {
		res.Scanned++
		if seen[convID] {
			continue
		}
		text, err := conversationText(ctx, st, convID)
		if err != nil {
			return res, err
		}
		if !containsDerivativeMarker(text) {
			continue
		}
		seen[convID] = true
		if err := st.WithTx(ctx, func(tx *sql.Tx) error {
			return store.AddTag(ctx, tx, "conversation", convID, "siftd:derivative")
		}); err != nil {
			return res, fmt.Errorf("tagging conversation %s as derivative: %w", convID, err)
		}
		res.Updated++
	}
	return res, nil
}

func conversationText(ctx context.Context, st *store.Store, conversationID string) (string, error) {
	var b strings.Builder
	rows, err := st.DB().QueryContext(ctx, `
		SELECT pc.text FROM prompt_content pc
		JOIN prompts p ON p.id = pc.prompt_id
		WHERE p.conversation_id = ? AND pc.block_type = 'text'
	`, conversationID)
	if err != nil {
		return "", err
	}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			rows.Close()
			return "", err
		}
		b.WriteString(t)
		b.WriteByte('\n')
	}
	rows.Close()
	return b.String(), rows.Err()
}

func containsDerivativeMarker(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range derivativeMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// FilterBinaryContent retroactively applies internal/content's binary/
// base64 detection to prompt_content/response_content rows stored
// before that filtering existed (or by an adapter version that skipped
// it), replacing matching rows' text with a placeholder and moving the
// original payload into content_blobs.
func FilterBinaryContent(ctx context.Context, st *store.Store) (Result, error) {
	var res Result
	for _, table := range []string{"prompt_content", "response_content"} {
		n, updated, err := filterTable(ctx, st, table)
		if err != nil {
			return res, fmt.Errorf("filtering %s: %w", table, err)
		}
		res.Scanned += n
		res.Updated += updated
	}
	return res, nil
}

func filterTable(ctx context.Context, st *store.Store, table string) (int, int, error) {
	rows, err := st.DB().QueryContext(ctx, fmt.Sprintf(`
		SELECT id, block_type, text FROM %s WHERE content_hash IS NULL AND text != ''
	`, table))
	if err != nil {
		return 0, 0, err
	}
	type row struct{ id, blockType, text string }
	var targets []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.blockType, &r.text); err != nil {
			rows.Close()
			return 0, 0, err
		}
		targets = append(targets, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, 0, err
	}

	updated := 0
	for _, t := range targets {
		result := content.DetectAndFilter(t.blockType, []byte(t.text))
		if !result.Filtered {
			continue
		}
		placeholderJSON, err := json.Marshal(result.Placeholder)
		if err != nil {
			return len(targets), updated, err
		}
		err = st.WithTx(ctx, func(tx *sql.Tx) error {
			hash, err := store.StoreContent(ctx, tx, []byte(t.text))
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
				UPDATE %s SET text = ?, content_hash = ? WHERE id = ?
			`, table), string(placeholderJSON), hash, t.id); err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, `DELETE FROM content_fts WHERE content_id = ?`, t.id)
			return err
		})
		if err != nil {
			return len(targets), updated, err
		}
		updated++
	}
	return len(targets), updated, nil
}
