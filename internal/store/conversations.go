package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kgruel/siftd-sub000/internal/content"
	"github.com/kgruel/siftd-sub000/internal/domain"
	"github.com/kgruel/siftd-sub000/internal/idgen"
)

// FindConversationByExternalID looks up an existing conversation row by
// (harness_id, external_id), the dedup key spec.md §4.2 defines for
// file-strategy adapters.
func FindConversationByExternalID(ctx context.Context, q querier, harnessID, externalID string) (string, error) {
	var id string
	err := q.QueryRowContext(ctx, `SELECT id FROM conversations WHERE harness_id = ? AND external_id = ?`, harnessID, externalID).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("looking up conversation by external_id: %w", err)
	}
	return id, nil
}

// InsertConversation persists a fully-populated domain.Conversation
// (with its Prompts, Responses, and ToolCalls already attached) inside
// tx, assigning IDs as it goes, routing blob-addressed content through
// StoreContent, filtering binary payloads via internal/content, and
// writing FTS rows for every text-bearing block. Per-file atomicity
// (spec.md §4.2) is the caller's responsibility: run this inside a
// single Store.WithTx call per ingested file/session.
func InsertConversation(ctx context.Context, tx *sql.Tx, conv *domain.Conversation) error {
	if conv.ID == "" {
		conv.ID = idgen.New("conv")
	}

	var startedAt, endedAt any
	if !conv.StartedAt.IsZero() {
		startedAt = conv.StartedAt.UTC().Format(timeLayout)
	}
	if !conv.EndedAt.IsZero() {
		endedAt = conv.EndedAt.UTC().Format(timeLayout)
	}
	var workspaceID, modelID any
	if conv.WorkspaceID != "" {
		workspaceID = conv.WorkspaceID
	}
	if conv.ModelID != "" {
		modelID = conv.ModelID
	}

	_, err := tx.ExecContext(ctx, `INSERT INTO conversations (id, harness_id, workspace_id, model_id, external_id, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.HarnessID, workspaceID, modelID, conv.ExternalID, startedAt, endedAt)
	if err != nil {
		return fmt.Errorf("inserting conversation: %w", err)
	}

	for _, p := range conv.Prompts {
		if err := insertPrompt(ctx, tx, conv.ID, p); err != nil {
			return err
		}
	}
	return nil
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

func insertPrompt(ctx context.Context, tx *sql.Tx, conversationID string, p *domain.Prompt) error {
	if p.ID == "" {
		p.ID = idgen.New("prompt")
	}
	var ts any
	if !p.Timestamp.IsZero() {
		ts = p.Timestamp.UTC().Format(timeLayout)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO prompts (id, conversation_id, prompt_index, timestamp) VALUES (?, ?, ?, ?)`,
		p.ID, conversationID, p.Index, ts); err != nil {
		return fmt.Errorf("inserting prompt: %w", err)
	}

	for _, block := range p.Content {
		if err := insertContentBlock(ctx, tx, "prompt_content", "prompt_id", p.ID, conversationID, "prompt", block); err != nil {
			return err
		}
	}

	for _, r := range p.Responses {
		if err := insertResponse(ctx, tx, conversationID, p.ID, r); err != nil {
			return err
		}
	}
	return nil
}

func insertResponse(ctx context.Context, tx *sql.Tx, conversationID, promptID string, r *domain.Response) error {
	if r.ID == "" {
		r.ID = idgen.New("resp")
	}
	var ts any
	if !r.Timestamp.IsZero() {
		ts = r.Timestamp.UTC().Format(timeLayout)
	}
	var modelID, providerID any
	if r.ModelID != "" {
		modelID = r.ModelID
	}
	if r.ProviderID != "" {
		providerID = r.ProviderID
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO responses (id, prompt_id, conversation_id, model_id, provider_id, timestamp, input_tokens, output_tokens)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, promptID, conversationID, modelID, providerID, ts, r.Usage.InputTokens, r.Usage.OutputTokens)
	if err != nil {
		return fmt.Errorf("inserting response: %w", err)
	}

	for k, v := range r.Attributes {
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding response attribute %q: %w", k, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO response_attributes (response_id, key, value) VALUES (?, ?, ?)`,
			r.ID, k, string(encoded)); err != nil {
			return fmt.Errorf("inserting response attribute %q: %w", k, err)
		}
	}

	for _, block := range r.Content {
		if err := insertContentBlock(ctx, tx, "response_content", "response_id", r.ID, conversationID, "response", block); err != nil {
			return err
		}
	}

	for i := range r.ToolCalls {
		if err := insertToolCall(ctx, tx, r.ID, &r.ToolCalls[i]); err != nil {
			return err
		}
	}
	return nil
}

// insertContentBlock writes one ContentBlock row into table (prompt_content
// or response_content), applying binary filtering, routing large/binary
// payloads through the content-blob store, and indexing text-bearing
// blocks into content_fts.
func insertContentBlock(ctx context.Context, tx *sql.Tx, table, fkColumn, fkID, conversationID, side string, block domain.ContentBlock) error {
	id := idgen.New("blk")

	var rawJSON any
	if block.Raw != nil {
		encoded, err := json.Marshal(block.Raw)
		if err != nil {
			return fmt.Errorf("encoding content block raw payload: %w", err)
		}
		rawJSON = string(encoded)
	}

	result := content.DetectAndFilter(string(block.Type), []byte(block.Text))
	text := block.Text
	var contentHash any
	if result.Filtered {
		text = string(result.Payload)
		hash, err := StoreContent(ctx, tx, []byte(block.Text))
		if err != nil {
			return err
		}
		contentHash = hash
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, %s, block_index, block_type, text, content_hash, raw_json) VALUES (?, ?, ?, ?, ?, ?, ?)`, table, fkColumn)
	if _, err := tx.ExecContext(ctx, query, id, fkID, block.Index, string(block.Type), text, contentHash, rawJSON); err != nil {
		return fmt.Errorf("inserting content block into %s: %w", table, err)
	}

	if block.Type == domain.BlockText && !result.Filtered {
		if err := InsertFTSContent(ctx, tx, id, side, conversationID, text); err != nil {
			return err
		}
	}
	return nil
}

func insertToolCall(ctx context.Context, tx *sql.Tx, responseID string, tc *domain.ToolCall) error {
	if tc.ID == "" {
		tc.ID = idgen.New("tc")
	}
	inputJSON := "{}"
	if tc.Input != nil {
		encoded, err := json.Marshal(tc.Input)
		if err != nil {
			return fmt.Errorf("encoding tool call input: %w", err)
		}
		inputJSON = string(encoded)
	}

	resultHash := tc.ResultHash
	resultInline := tc.Result
	if resultHash == "" && resultInline != "" {
		filtered := content.DetectAndFilter("tool_result", []byte(resultInline))
		switch {
		case filtered.Filtered:
			hash, err := StoreContent(ctx, tx, []byte(resultInline))
			if err != nil {
				return err
			}
			resultHash = hash
			resultInline = string(filtered.Payload)
		case len(resultInline) >= content.LargeResultThreshold:
			hash, err := StoreContent(ctx, tx, []byte(resultInline))
			if err != nil {
				return err
			}
			resultHash = hash
			resultInline = ""
		}
	}

	var externalID, hashArg, inlineArg any
	if tc.ExternalID != "" {
		externalID = tc.ExternalID
	}
	if resultHash != "" {
		hashArg = resultHash
	}
	if resultInline != "" {
		inlineArg = resultInline
	}
	status := tc.Status
	if status == "" {
		status = domain.ToolCallSuccess
	}

	_, err := tx.ExecContext(ctx, `INSERT INTO tool_calls (id, response_id, external_id, tool_name, input_json, result_hash, result_inline, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tc.ID, responseID, externalID, tc.ToolName, inputJSON, hashArg, inlineArg, string(status))
	if err != nil {
		return fmt.Errorf("inserting tool call: %w", err)
	}
	return nil
}

// DeleteConversation implements spec.md §4.3's deletion clause in full:
// cascading to prompts/responses/content rows/tool_calls/tag joins
// (via the schema's ON DELETE CASCADE foreign keys), plus the three
// things SQLite's cascade cannot do on its own — decrementing (and
// GC'ing) every content_blobs row the deleted conversation referenced,
// removing its ingested_files rows (that table has no cascade path so
// it would otherwise violate the foreign_keys pragma on delete), and
// purging its content_fts rows, since content_fts is a standalone FTS5
// copy with no external-content trigger to keep it in sync.
func DeleteConversation(ctx context.Context, tx *sql.Tx, conversationID string) error {
	hashes, err := referencedBlobHashes(ctx, tx, conversationID)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM ingested_files WHERE conversation_id = ?`, conversationID); err != nil {
		return fmt.Errorf("deleting ingested_files for conversation %s: %w", conversationID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM content_fts WHERE conversation_id = ?`, conversationID); err != nil {
		return fmt.Errorf("deleting content_fts for conversation %s: %w", conversationID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, conversationID); err != nil {
		return fmt.Errorf("deleting conversation %s: %w", conversationID, err)
	}

	for _, hash := range hashes {
		if err := ReleaseContent(ctx, tx, hash); err != nil {
			return err
		}
	}
	return nil
}

// referencedBlobHashes collects every content_blobs hash a conversation's
// prompt/response content blocks and tool-call results reference, one
// entry per referencing row (not deduplicated), so the caller can
// release each reference exactly once.
func referencedBlobHashes(ctx context.Context, tx *sql.Tx, conversationID string) ([]string, error) {
	var hashes []string
	queries := []string{
		`SELECT pc.content_hash FROM prompt_content pc
			JOIN prompts p ON p.id = pc.prompt_id
			WHERE p.conversation_id = ? AND pc.content_hash IS NOT NULL`,
		`SELECT rc.content_hash FROM response_content rc
			JOIN responses r ON r.id = rc.response_id
			WHERE r.conversation_id = ? AND rc.content_hash IS NOT NULL`,
		`SELECT tc.result_hash FROM tool_calls tc
			JOIN responses r ON r.id = tc.response_id
			WHERE r.conversation_id = ? AND tc.result_hash IS NOT NULL`,
	}
	for _, q := range queries {
		rows, err := tx.QueryContext(ctx, q, conversationID)
		if err != nil {
			return nil, fmt.Errorf("collecting referenced blob hashes: %w", err)
		}
		for rows.Next() {
			var hash string
			if err := rows.Scan(&hash); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning referenced blob hash: %w", err)
			}
			hashes = append(hashes, hash)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return hashes, nil
}
