package retrieval

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// CandidateSet is Stage A's result: nil means "no filter, everything is
// a candidate"; a non-nil set restricts later stages to these ids.
type CandidateSet map[string]bool

func (c CandidateSet) has(id string) bool {
	if c == nil {
		return true
	}
	return c[id]
}

// intersect returns c ∩ other, or other unchanged if c is nil (no filter yet).
func (c CandidateSet) intersect(other CandidateSet) CandidateSet {
	if c == nil {
		return other
	}
	out := CandidateSet{}
	for id := range other {
		if c[id] {
			out[id] = true
		}
	}
	return out
}

// buildCandidateSet implements spec.md §4.6 Stage A: compose every
// structural filter (workspace/model substring, since/before, tag
// boolean logic), then subtract active_conversation_ids and the
// siftd:derivative tag unless the caller opted out.
func buildCandidateSet(ctx context.Context, db *sql.DB, opts Options) (CandidateSet, error) {
	var set CandidateSet // nil = unfiltered so far

	applyFilter := func(query string, args ...any) error {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("building candidate filter: %w", err)
		}
		defer rows.Close()
		matched := CandidateSet{}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("scanning candidate id: %w", err)
			}
			matched[id] = true
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if set == nil {
			set = matched
		} else {
			set = set.intersect(matched)
		}
		return nil
	}

	if opts.Workspace != "" {
		if err := applyFilter(`
			SELECT c.id FROM conversations c
			JOIN workspaces w ON w.id = c.workspace_id
			WHERE w.path LIKE '%' || ? || '%'
		`, opts.Workspace); err != nil {
			return nil, err
		}
	}

	if opts.Model != "" {
		if err := applyFilter(`
			SELECT c.id FROM conversations c
			JOIN models m ON m.id = c.model_id
			WHERE m.raw_name LIKE '%' || ? || '%'
		`, opts.Model); err != nil {
			return nil, err
		}
	}

	if opts.Since != "" {
		if err := applyFilter(`SELECT id FROM conversations WHERE started_at >= ?`, opts.Since); err != nil {
			return nil, err
		}
	}
	if opts.Before != "" {
		if err := applyFilter(`SELECT id FROM conversations WHERE started_at < ?`, opts.Before); err != nil {
			return nil, err
		}
	}

	if len(opts.TagsAny) > 0 {
		if err := applyTagsOR(ctx, db, opts.TagsAny, &set); err != nil {
			return nil, err
		}
	}
	if len(opts.TagsAll) > 0 {
		if err := applyTagsAND(ctx, db, opts.TagsAll, &set); err != nil {
			return nil, err
		}
	}
	if len(opts.TagsNone) > 0 {
		if err := excludeTags(ctx, db, opts.TagsNone, &set); err != nil {
			return nil, err
		}
	}

	if !opts.IncludeActive {
		if err := excludeFilter(ctx, db, &set, `
			SELECT c.id FROM conversations c
			JOIN active_sessions a ON a.harness_session_id = c.external_id
		`); err != nil {
			return nil, err
		}
	}
	if !opts.IncludeDerivative {
		if err := excludeFilter(ctx, db, &set, `
			SELECT ct.conversation_id FROM conversation_tags ct
			JOIN tags t ON t.id = ct.tag_id
			WHERE t.name = 'siftd:derivative'
		`); err != nil {
			return nil, err
		}
	}

	return set, nil
}

func tagCondition(name string) (string, string) {
	if strings.HasSuffix(name, ":") {
		return "t.name LIKE ?", name + "%"
	}
	return "t.name = ?", name
}

func applyTagsOR(ctx context.Context, db *sql.DB, names []string, set *CandidateSet) error {
	matched := CandidateSet{}
	for _, name := range names {
		cond, arg := tagCondition(name)
		rows, err := db.QueryContext(ctx, `
			SELECT ct.conversation_id FROM conversation_tags ct
			JOIN tags t ON t.id = ct.tag_id
			WHERE `+cond, arg)
		if err != nil {
			return fmt.Errorf("applying tag OR filter %q: %w", name, err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			matched[id] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
	}
	if *set == nil {
		*set = matched
	} else {
		*set = (*set).intersect(matched)
	}
	return nil
}

func applyTagsAND(ctx context.Context, db *sql.DB, names []string, set *CandidateSet) error {
	for _, name := range names {
		cond, arg := tagCondition(name)
		rows, err := db.QueryContext(ctx, `
			SELECT ct.conversation_id FROM conversation_tags ct
			JOIN tags t ON t.id = ct.tag_id
			WHERE `+cond, arg)
		if err != nil {
			return fmt.Errorf("applying tag AND filter %q: %w", name, err)
		}
		matched := CandidateSet{}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			matched[id] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
		if *set == nil {
			*set = matched
		} else {
			*set = (*set).intersect(matched)
		}
	}
	return nil
}

func excludeTags(ctx context.Context, db *sql.DB, names []string, set *CandidateSet) error {
	excluded := CandidateSet{}
	for _, name := range names {
		cond, arg := tagCondition(name)
		rows, err := db.QueryContext(ctx, `
			SELECT ct.conversation_id FROM conversation_tags ct
			JOIN tags t ON t.id = ct.tag_id
			WHERE `+cond, arg)
		if err != nil {
			return fmt.Errorf("applying tag NOT filter %q: %w", name, err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			excluded[id] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
	}
	return subtract(ctx, db, set, excluded)
}

func excludeFilter(ctx context.Context, db *sql.DB, set *CandidateSet, query string, args ...any) error {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("building exclusion filter: %w", err)
	}
	defer rows.Close()
	excluded := CandidateSet{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		excluded[id] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return subtract(ctx, db, set, excluded)
}

// subtract removes excluded ids from *set. If *set is still nil (no
// positive filter applied yet), this materializes it from every
// conversation id first so NOT-only filters still narrow the set.
func subtract(ctx context.Context, db *sql.DB, set *CandidateSet, excluded CandidateSet) error {
	if len(excluded) == 0 {
		return nil
	}
	if *set == nil {
		all := CandidateSet{}
		rows, err := db.QueryContext(ctx, `SELECT id FROM conversations`)
		if err != nil {
			return fmt.Errorf("materializing full candidate set: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			all[id] = true
		}
		if err := rows.Err(); err != nil {
			return err
		}
		*set = all
	}
	for id := range excluded {
		delete(*set, id)
	}
	return nil
}
