package retrieval

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/kgruel/siftd-sub000/internal/embed"
	"github.com/kgruel/siftd-sub000/internal/embedstore"
	"github.com/kgruel/siftd-sub000/internal/store"
)

// Result is one chunk-level hit after Stage H enrichment.
type Result struct {
	ConversationID  string
	ChunkID         string
	Text            string
	Score           float64
	WorkspacePath   string
	ConversationStart string
	FileReferences  []string
}

// ConversationResult is one row of Stage G's `--conversations` mode.
type ConversationResult struct {
	ConversationID string
	MaxScore       float64
	MeanScore      float64
	ChunkCount     int
	BestExcerpt    string
	WorkspacePath  string
}

// Output is what Run returns: exactly one of Results or Conversations
// is populated, depending on Options.Mode.
type Output struct {
	Results       []Result
	Conversations []ConversationResult
	FTSMode       string // "and", "or", "none", or "" if --semantic
}

// Run executes the full hybrid search pipeline (spec.md §4.6 stages A-H).
func Run(ctx context.Context, st *store.Store, es *embedstore.Store, backend embed.Backend, opts Options) (*Output, error) {
	candidates, err := buildCandidateSet(ctx, st.DB(), opts)
	if err != nil {
		return nil, fmt.Errorf("stage A (candidate set): %w", err)
	}

	ftsMode := ""
	if !opts.Semantic && opts.Query != "" {
		ids, mode, err := st.FTS5RecallConversations(ctx, opts.Query, opts.recallLimit())
		if err != nil {
			return nil, fmt.Errorf("stage B (fts recall): %w", err)
		}
		ftsMode = mode
		if len(ids) > 0 {
			recalled := CandidateSet{}
			for _, id := range ids {
				recalled[id] = true
			}
			intersected := candidates.intersect(recalled)
			if len(intersected) > 0 || candidates == nil {
				candidates = intersected
			}
			// else: intersection empty, keep the pre-FTS candidates
			// (spec.md §4.6 Stage B "prevents over-filtering to nothing").
		} else {
			fmt.Fprintln(os.Stderr, "siftd: fts recall found nothing, falling back to pure embeddings")
		}
	}

	sourceIDs, err := roleSourceIDs(ctx, st.DB(), opts.Role, candidates)
	if err != nil {
		return nil, fmt.Errorf("stage C (role filter): %w", err)
	}
	if opts.Role != RoleAny && len(sourceIDs) == 0 {
		return &Output{FTSMode: ftsMode}, nil
	}

	queryVec, err := backend.EmbedOne(ctx, opts.Query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	scored, err := vectorSearch(ctx, es, queryVec, candidates, sourceIDs, opts.searchLimit())
	if err != nil {
		return nil, fmt.Errorf("stage D (vector search): %w", err)
	}

	if !opts.NoDiversity {
		scored = mmrRerank(scored, opts.mmrLambda(), opts.mmrLimit())
	}

	scored = applyThreshold(scored, opts.Threshold)

	out, err := postProcess(ctx, st, scored, opts)
	if err != nil {
		return nil, fmt.Errorf("stage G (mode post-processing): %w", err)
	}
	out.FTSMode = ftsMode
	return out, nil
}

// postProcess implements Stage G, then Stage H's enrichment for
// whichever rows it keeps.
func postProcess(ctx context.Context, st *store.Store, scored []scoredChunk, opts Options) (*Output, error) {
	switch opts.mode() {
	case ModeFirst:
		return postProcessFirst(ctx, st, scored)
	case ModeConversations:
		limit := -1
		if !opts.isUnlimited() {
			limit = opts.limit()
		}
		return postProcessConversations(ctx, st, scored, limit)
	default:
		if !opts.isUnlimited() && len(scored) > opts.limit() {
			scored = scored[:opts.limit()]
		}
		results, err := enrich(ctx, st, scored)
		if err != nil {
			return nil, err
		}
		return &Output{Results: results}, nil
	}
}

// firstModeRelevanceFloor is spec.md §4.6 Stage G's fixed threshold for `--first`.
const firstModeRelevanceFloor = 0.65

func postProcessFirst(ctx context.Context, st *store.Store, scored []scoredChunk) (*Output, error) {
	var eligible []scoredChunk
	for _, s := range scored {
		if s.Score >= firstModeRelevanceFloor {
			eligible = append(eligible, s)
		}
	}
	if len(eligible) == 0 {
		return &Output{}, nil
	}

	timestamps, err := promptTimestamps(ctx, st, eligible)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		ti, tj := timestamps[eligible[i].Chunk.ID], timestamps[eligible[j].Chunk.ID]
		return ti < tj
	})

	results, err := enrich(ctx, st, eligible[:1])
	if err != nil {
		return nil, err
	}
	return &Output{Results: results}, nil
}

// promptTimestamps resolves each chunk's earliest source prompt
// timestamp (falling back to the conversation start) for `--first`'s
// ordering requirement.
func promptTimestamps(ctx context.Context, st *store.Store, scored []scoredChunk) (map[string]string, error) {
	out := map[string]string{}
	for _, s := range scored {
		var ts string
		for _, srcID := range s.Chunk.SourceIDs {
			var t string
			err := st.DB().QueryRowContext(ctx, `SELECT timestamp FROM prompts WHERE id = ?`, srcID).Scan(&t)
			if err == nil && t != "" && (ts == "" || t < ts) {
				ts = t
			}
		}
		if ts == "" {
			_ = st.DB().QueryRowContext(ctx, `SELECT started_at FROM conversations WHERE id = ?`, s.Chunk.ConversationID).Scan(&ts)
		}
		out[s.Chunk.ID] = ts
	}
	return out, nil
}

// postProcessConversations implements `--mode conversations`' aggregation
// and final trim. limit < 0 means no trim (an explicit --limit 0).
func postProcessConversations(ctx context.Context, st *store.Store, scored []scoredChunk, limit int) (*Output, error) {
	type agg struct {
		sum, max float64
		count    int
		best     scoredChunk
	}
	byConv := map[string]*agg{}
	order := []string{}
	for _, s := range scored {
		a, ok := byConv[s.Chunk.ConversationID]
		if !ok {
			a = &agg{}
			byConv[s.Chunk.ConversationID] = a
			order = append(order, s.Chunk.ConversationID)
		}
		a.sum += s.Score
		a.count++
		if s.Score > a.max || a.count == 1 {
			a.max = s.Score
			a.best = s
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return byConv[order[i]].max > byConv[order[j]].max
	})
	if limit >= 0 && len(order) > limit {
		order = order[:limit]
	}

	var out []ConversationResult
	for _, convID := range order {
		a := byConv[convID]
		path, _ := workspacePathForConversation(ctx, st, convID)
		excerpt := a.best.Chunk.Text
		if len(excerpt) > 200 {
			excerpt = excerpt[:200]
		}
		out = append(out, ConversationResult{
			ConversationID: convID,
			MaxScore:       a.max,
			MeanScore:      a.sum / float64(a.count),
			ChunkCount:     a.count,
			BestExcerpt:    excerpt,
			WorkspacePath:  path,
		})
	}
	return &Output{Conversations: out}, nil
}

var fileRefPattern = regexp.MustCompile(`\b[\w./-]+\.(go|py|js|ts|tsx|jsx|md|json|yaml|yml|toml|sql|rs|rb|sh)\b`)

func extractFileReferences(text string) []string {
	matches := fileRefPattern.FindAllString(text, -1)
	seen := map[string]bool{}
	var out []string
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

func workspacePathForConversation(ctx context.Context, st *store.Store, conversationID string) (string, error) {
	var path string
	err := st.DB().QueryRowContext(ctx, `
		SELECT w.path FROM conversations c
		JOIN workspaces w ON w.id = c.workspace_id
		WHERE c.id = ?
	`, conversationID).Scan(&path)
	if err != nil {
		return "", nil // no workspace linked; not an error
	}
	return path, nil
}

// enrich implements Stage H: join workspace path + conversation start,
// extract file references from the chunk text.
func enrich(ctx context.Context, st *store.Store, scored []scoredChunk) ([]Result, error) {
	var out []Result
	for _, s := range scored {
		path, _ := workspacePathForConversation(ctx, st, s.Chunk.ConversationID)
		var startedAt string
		_ = st.DB().QueryRowContext(ctx, `SELECT COALESCE(started_at, '') FROM conversations WHERE id = ?`, s.Chunk.ConversationID).Scan(&startedAt)

		out = append(out, Result{
			ConversationID:    s.Chunk.ConversationID,
			ChunkID:           s.Chunk.ID,
			Text:              strings.TrimSpace(s.Chunk.Text),
			Score:             s.Score,
			WorkspacePath:     path,
			ConversationStart: startedAt,
			FileReferences:    extractFileReferences(s.Chunk.Text),
		})
	}
	return out, nil
}
