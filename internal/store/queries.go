package store

import (
	"context"
	"fmt"
	"strings"
)

// Exchange is one fetch_exchanges row (spec.md §4.9).
type Exchange struct {
	ConversationID  string
	PromptID        string
	PromptTimestamp string
	PromptText      string
	ResponseText    string
}

// FetchExchanges returns the prompt/response text pairs for either a
// whole conversation (conversationID set, promptIDs empty) or a
// specific set of prompts (promptIDs set). Supplying neither returns an
// empty slice immediately rather than scanning every prompt in the
// database.
func (s *Store) FetchExchanges(ctx context.Context, conversationID string, promptIDs []string) ([]Exchange, error) {
	if conversationID == "" && len(promptIDs) == 0 {
		return nil, nil
	}

	var rows *sqlRows
	var err error
	if conversationID != "" {
		rows, err = s.queryPrompts(ctx, `SELECT id, conversation_id, prompt_index, timestamp FROM prompts WHERE conversation_id = ? ORDER BY prompt_index`, conversationID)
	} else {
		placeholders := make([]string, len(promptIDs))
		args := make([]any, len(promptIDs))
		for i, id := range promptIDs {
			placeholders[i] = "?"
			args[i] = id
		}
		query := fmt.Sprintf(`SELECT id, conversation_id, prompt_index, timestamp FROM prompts WHERE id IN (%s) ORDER BY prompt_index`, strings.Join(placeholders, ","))
		rows, err = s.queryPrompts(ctx, query, args...)
	}
	if err != nil {
		return nil, err
	}

	var out []Exchange
	for _, p := range rows.prompts {
		promptText, err := s.blockText(ctx, "prompt_content", "prompt_id", p.id)
		if err != nil {
			return nil, err
		}
		responseText, err := s.responseText(ctx, p.id)
		if err != nil {
			return nil, err
		}
		out = append(out, Exchange{
			ConversationID:  p.conversationID,
			PromptID:        p.id,
			PromptTimestamp: p.timestamp,
			PromptText:      strings.TrimSpace(promptText),
			ResponseText:    strings.TrimSpace(responseText),
		})
	}
	return out, nil
}

type promptRow struct {
	id             string
	conversationID string
	index          int
	timestamp      string
}

type sqlRows struct {
	prompts []promptRow
}

func (s *Store) queryPrompts(ctx context.Context, query string, args ...any) (*sqlRows, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching prompts: %w", err)
	}
	defer rows.Close()

	var out sqlRows
	for rows.Next() {
		var p promptRow
		var ts, convID any
		var idx int
		if err := rows.Scan(&p.id, &convID, &idx, &ts); err != nil {
			return nil, fmt.Errorf("scanning prompt row: %w", err)
		}
		p.index = idx
		if convID != nil {
			p.conversationID = fmt.Sprintf("%v", convID)
		}
		if ts != nil {
			p.timestamp = fmt.Sprintf("%v", ts)
		}
		out.prompts = append(out.prompts, p)
	}
	return &out, rows.Err()
}

// blockText joins a row's text blocks (from prompt_content or
// response_content) in block_index order with newlines, treating a
// missing/empty text column as "".
func (s *Store) blockText(ctx context.Context, table, fkColumn, fkID string) (string, error) {
	query := fmt.Sprintf(`SELECT text FROM %s WHERE %s = ? AND block_type = 'text' ORDER BY block_index`, table, fkColumn)
	rows, err := s.db.QueryContext(ctx, query, fkID)
	if err != nil {
		return "", fmt.Errorf("fetching %s text: %w", table, err)
	}
	defer rows.Close()

	var parts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return "", fmt.Errorf("scanning %s text: %w", table, err)
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n"), rows.Err()
}

// responseText aggregates every response attached to promptID: each
// response's own text blocks join with newlines, and multiple responses
// join in response-timestamp order separated by a blank line.
func (s *Store) responseText(ctx context.Context, promptID string) (string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM responses WHERE prompt_id = ? ORDER BY timestamp`, promptID)
	if err != nil {
		return "", fmt.Errorf("fetching responses for prompt: %w", err)
	}
	var responseIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return "", fmt.Errorf("scanning response id: %w", err)
		}
		responseIDs = append(responseIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return "", err
	}
	rows.Close()

	var parts []string
	for _, id := range responseIDs {
		text, err := s.blockText(ctx, "response_content", "response_id", id)
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n"), nil
}

// WorkspaceCount is one fetch_top_workspaces row.
type WorkspaceCount struct {
	WorkspaceID string
	Path        string
	Count       int
}

// FetchTopWorkspaces returns workspaces ordered by conversation count
// descending, excluding workspaces with zero conversations.
func (s *Store) FetchTopWorkspaces(ctx context.Context, limit int) ([]WorkspaceCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.path, COUNT(c.id) AS n
		FROM workspaces w
		JOIN conversations c ON c.workspace_id = w.id
		GROUP BY w.id
		HAVING n >= 1
		ORDER BY n DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching top workspaces: %w", err)
	}
	defer rows.Close()

	var out []WorkspaceCount
	for rows.Next() {
		var w WorkspaceCount
		if err := rows.Scan(&w.WorkspaceID, &w.Path, &w.Count); err != nil {
			return nil, fmt.Errorf("scanning workspace count: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ToolCount is one fetch_top_tools row.
type ToolCount struct {
	ToolID string
	Name   string
	Count  int
}

// FetchTopTools returns tools ordered by call count descending,
// excluding tools with zero calls.
func (s *Store) FetchTopTools(ctx context.Context, limit int) ([]ToolCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, COUNT(tc.id) AS n
		FROM tools t
		JOIN tool_calls tc ON tc.tool_name = t.name
		GROUP BY t.id
		HAVING n >= 1
		ORDER BY n DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching top tools: %w", err)
	}
	defer rows.Close()

	var out []ToolCount
	for rows.Next() {
		var t ToolCount
		if err := rows.Scan(&t.ToolID, &t.Name, &t.Count); err != nil {
			return nil, fmt.Errorf("scanning tool count: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TagCount is one row of FetchAllTagCounts.
type TagCount struct {
	Name  string
	Count int
}

// FetchAllTagCounts returns every tag ordered by total usage across all
// four tag-join tables (conversation/workspace/tool_call/prompt),
// descending, backing `siftd tags`.
func (s *Store) FetchAllTagCounts(ctx context.Context) ([]TagCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.name, (
			(SELECT COUNT(*) FROM conversation_tags ct WHERE ct.tag_id = t.id) +
			(SELECT COUNT(*) FROM workspace_tags wt WHERE wt.tag_id = t.id) +
			(SELECT COUNT(*) FROM tool_call_tags tt WHERE tt.tag_id = t.id) +
			(SELECT COUNT(*) FROM prompt_tags pt WHERE pt.tag_id = t.id)
		) AS n
		FROM tags t
		HAVING n >= 1
		ORDER BY n DESC, t.name
	`)
	if err != nil {
		return nil, fmt.Errorf("fetching tag counts: %w", err)
	}
	defer rows.Close()

	var out []TagCount
	for rows.Next() {
		var t TagCount
		if err := rows.Scan(&t.Name, &t.Count); err != nil {
			return nil, fmt.Errorf("scanning tag count: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountRow runs a single-value COUNT(*)-shaped query.
func (s *Store) CountRow(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting rows: %w", err)
	}
	return n, nil
}

// ConversationDetail is the identity-field projection behind
// `siftd query <id>`/`siftd peek`.
type ConversationDetail struct {
	ID          string
	HarnessName string
	Workspace   string
	ModelRaw    string
	StartedAt   string
	EndedAt     string
}

// GetConversation fetches one conversation's identity fields joined
// across harnesses/workspaces/models, or an error wrapping
// sql.ErrNoRows if id doesn't exist.
func (s *Store) GetConversation(ctx context.Context, id string) (ConversationDetail, error) {
	d := ConversationDetail{ID: id}
	err := s.db.QueryRowContext(ctx, `
		SELECT h.name, COALESCE(w.path, ''), COALESCE(m.raw_name, ''),
		       COALESCE(c.started_at, ''), COALESCE(c.ended_at, '')
		FROM conversations c
		JOIN harnesses h ON h.id = c.harness_id
		LEFT JOIN workspaces w ON w.id = c.workspace_id
		LEFT JOIN models m ON m.id = c.model_id
		WHERE c.id = ?
	`, id).Scan(&d.HarnessName, &d.Workspace, &d.ModelRaw, &d.StartedAt, &d.EndedAt)
	if err != nil {
		return ConversationDetail{}, fmt.Errorf("fetching conversation %s: %w", id, err)
	}
	return d, nil
}

// ToolCallDetail is one tool call enriching `siftd query`/`siftd peek`
// exchange output.
type ToolCallDetail struct {
	ToolName     string
	Status       string
	ResultInline string
	ResultHash   string
}

// FetchToolCalls returns the tool calls belonging to a single prompt's
// responses, in response-then-call order.
func (s *Store) FetchToolCalls(ctx context.Context, promptID string) ([]ToolCallDetail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tc.tool_name, tc.status, COALESCE(tc.result_inline, ''), COALESCE(tc.result_hash, '')
		FROM tool_calls tc
		JOIN responses r ON r.id = tc.response_id
		WHERE r.prompt_id = ?
		ORDER BY r.timestamp, tc.id
	`, promptID)
	if err != nil {
		return nil, fmt.Errorf("fetching tool calls for prompt %s: %w", promptID, err)
	}
	defer rows.Close()

	var out []ToolCallDetail
	for rows.Next() {
		var t ToolCallDetail
		if err := rows.Scan(&t.ToolName, &t.Status, &t.ResultInline, &t.ResultHash); err != nil {
			return nil, fmt.Errorf("scanning tool call: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
