package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// InsertFTSContent writes one row into content_fts. contentID is the
// prompt_content/response_content row's id, side is "prompt" or
// "response" (spec.md §4.3's content_fts column set).
func InsertFTSContent(ctx context.Context, q querier, contentID, side, conversationID, text string) error {
	_, err := q.ExecContext(ctx, `INSERT INTO content_fts (content_id, side, conversation_id, text) VALUES (?, ?, ?, ?)`,
		contentID, side, conversationID, text)
	if err != nil {
		return fmt.Errorf("indexing fts content: %w", err)
	}
	return nil
}

// RebuildFTSIndex drops and repopulates content_fts from prompt_content
// and response_content, skipping blocks that were binary-filtered
// (content_hash IS NOT NULL marks a filtered/placeholder block) or have
// no text. Used by doctor's rebuild-index fix and by the migrate path
// after a schema change touches indexed columns.
func (s *Store) RebuildFTSIndex(ctx context.Context) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM content_fts`); err != nil {
			return fmt.Errorf("clearing content_fts: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO content_fts (content_id, side, conversation_id, text)
			SELECT pc.id, 'prompt', p.conversation_id, pc.text
			FROM prompt_content pc
			JOIN prompts p ON p.id = pc.prompt_id
			WHERE pc.block_type = 'text' AND pc.content_hash IS NULL
		`)
		if err != nil {
			return fmt.Errorf("repopulating content_fts from prompt_content: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO content_fts (content_id, side, conversation_id, text)
			SELECT rc.id, 'response', r.conversation_id, rc.text
			FROM response_content rc
			JOIN responses r ON r.id = rc.response_id
			WHERE rc.block_type = 'text' AND rc.content_hash IS NULL
		`)
		if err != nil {
			return fmt.Errorf("repopulating content_fts from response_content: %w", err)
		}
		return nil
	})
}

// SearchResult is one row of a SearchContent/FTS5Recall result.
type SearchResult struct {
	ConversationID string
	Side           string
	Snippet        string
	Rank           float64
}

// matchExpr turns a user query into an FTS5 MATCH expression. A bare
// query is passed through as an implicit AND of its terms (FTS5's
// default); queries already containing FTS5 operators (AND/OR/NOT/
// quotes/prefix "*") are passed through unchanged.
func matchExpr(query string) string {
	return strings.TrimSpace(query)
}

// SearchContent implements spec.md §4.3's search_content(query, limit):
// returns (conversation_id, side, snippet, rank) ordered by rank, using
// FTS5's bm25 ranking and snippet() highlighting.
func (s *Store) SearchContent(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT conversation_id, side, snippet(content_fts, 3, '[', ']', '...', 10) AS snip, rank
		FROM content_fts
		WHERE content_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, matchExpr(query), limit)
	if err != nil {
		return nil, fmt.Errorf("searching content_fts: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ConversationID, &r.Side, &r.Snippet, &r.Rank); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// tokenizeQuery splits a user query into bare FTS5 terms: whitespace-
// delimited words with surrounding punctuation stripped, empties
// dropped.
func tokenizeQuery(query string) []string {
	fields := strings.Fields(query)
	var terms []string
	for _, f := range fields {
		trimmed := strings.TrimFunc(f, func(r rune) bool {
			return !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_')
		})
		if trimmed != "" {
			terms = append(terms, trimmed)
		}
	}
	return terms
}

func (s *Store) recallConversations(ctx context.Context, matchQuery string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT conversation_id, MIN(rank) AS best_rank
		FROM content_fts
		WHERE content_fts MATCH ?
		GROUP BY conversation_id
		ORDER BY best_rank
		LIMIT ?
	`, matchQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("recalling conversations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		var rank float64
		if err := rows.Scan(&id, &rank); err != nil {
			return nil, fmt.Errorf("scanning recall row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FTS5RecallConversations implements retrieval Stage B's keyword
// recall (spec.md §4.4): tokenize query, try AND semantics first, fall
// back to OR if AND matches nothing, and report which mode matched
// ("and", "or", or "none" for an empty result).
func (s *Store) FTS5RecallConversations(ctx context.Context, query string, limit int) ([]string, string, error) {
	terms := tokenizeQuery(query)
	if len(terms) == 0 {
		return nil, "none", nil
	}

	andQuery := strings.Join(terms, " ")
	ids, err := s.recallConversations(ctx, andQuery, limit)
	if err != nil {
		return nil, "", err
	}
	if len(ids) > 0 {
		return ids, "and", nil
	}

	orQuery := strings.Join(terms, " OR ")
	ids, err = s.recallConversations(ctx, orQuery, limit)
	if err != nil {
		return nil, "", err
	}
	if len(ids) > 0 {
		return ids, "or", nil
	}
	return nil, "none", nil
}
