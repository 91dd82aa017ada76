package retrieval

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/kgruel/siftd-sub000/internal/embedstore"
)

// cosineSimilarity is spec.md §4.6.2's "classic formula": zero-norm
// either side scores 0, and both norms are divided out here, since the
// embeddings store keeps vectors exactly as the backend returned them
// and never normalizes them itself.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// scoredChunk is one chunk scored against the query vector.
type scoredChunk struct {
	Chunk embedstore.Chunk
	Score float64
}

// roleSourceIDs implements Stage C: when a role filter is set, resolve
// the set of prompt (role=user) or response (role=assistant) ids
// constrained to candidates, used to filter chunks by their source_ids
// in Stage D.
func roleSourceIDs(ctx context.Context, db *sql.DB, role Role, candidates CandidateSet) (map[string]bool, error) {
	if role == RoleAny {
		return nil, nil
	}

	var query string
	switch role {
	case RoleUser:
		query = `SELECT id, conversation_id FROM prompts`
	case RoleAssistant:
		query = `SELECT id, conversation_id FROM responses`
	default:
		return nil, fmt.Errorf("unknown role %q", role)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("resolving role source ids: %w", err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var id, convID string
		if err := rows.Scan(&id, &convID); err != nil {
			return nil, err
		}
		if candidates.has(convID) {
			out[id] = true
		}
	}
	return out, rows.Err()
}

// vectorSearch implements Stage D: embed the query once, cosine-score
// every chunk restricted to candidates (and sourceIDs when the role
// filter produced one), and return the top searchLimit by score.
func vectorSearch(ctx context.Context, es *embedstore.Store, queryVec []float32, candidates CandidateSet, sourceIDs map[string]bool, searchLimit int) ([]scoredChunk, error) {
	chunks, err := es.AllChunks()
	if err != nil {
		return nil, fmt.Errorf("loading chunks: %w", err)
	}

	var scored []scoredChunk
	for _, c := range chunks {
		if !candidates.has(c.ConversationID) {
			continue
		}
		if sourceIDs != nil && !chunkMatchesSources(c, sourceIDs) {
			continue
		}
		score := cosineSimilarity(queryVec, c.Embedding)
		scored = append(scored, scoredChunk{Chunk: c, Score: score})
	}

	sortByScoreDesc(scored)
	if len(scored) > searchLimit {
		scored = scored[:searchLimit]
	}
	return scored, nil
}

func chunkMatchesSources(c embedstore.Chunk, sourceIDs map[string]bool) bool {
	for _, id := range c.SourceIDs {
		if sourceIDs[id] {
			return true
		}
	}
	return false
}

func sortByScoreDesc(scored []scoredChunk) {
	// Small result sets (recall-bounded); insertion sort is plenty and
	// keeps ties in stable, discovery order rather than reshuffling them.
	for i := 1; i < len(scored); i++ {
		j := i
		for j > 0 && scored[j-1].Score < scored[j].Score {
			scored[j-1], scored[j] = scored[j], scored[j-1]
			j--
		}
	}
}

// applyThreshold implements Stage F: drop items scoring below the
// configured threshold.
func applyThreshold(scored []scoredChunk, threshold float64) []scoredChunk {
	if threshold <= 0 {
		return scored
	}
	out := scored[:0]
	for _, s := range scored {
		if s.Score >= threshold {
			out = append(out, s)
		}
	}
	return out
}
