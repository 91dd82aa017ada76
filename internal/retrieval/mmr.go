package retrieval

import "math"

// mmrRerank implements spec.md §4.6 Stage E: greedily select items
// maximizing λ·relevance − (1−λ)·max_sim_to_selected until mmrLimit
// items are chosen or candidates run out. relevance is each item's
// already-computed query-cosine score; max_sim_to_selected is
// recomputed against every previously-picked item's vector.
func mmrRerank(scored []scoredChunk, lambda float64, mmrLimit int) []scoredChunk {
	if mmrLimit <= 0 || len(scored) == 0 {
		return nil
	}
	if mmrLimit >= len(scored) {
		mmrLimit = len(scored)
	}

	remaining := make([]scoredChunk, len(scored))
	copy(remaining, scored)
	selected := make([]scoredChunk, 0, mmrLimit)

	for len(selected) < mmrLimit && len(remaining) > 0 {
		bestIdx := -1
		bestValue := math.Inf(-1)
		for i, cand := range remaining {
			maxSim := 0.0
			for _, s := range selected {
				if sim := cosineSimilarity(cand.Chunk.Embedding, s.Chunk.Embedding); sim > maxSim {
					maxSim = sim
				}
			}
			value := lambda*cand.Score - (1-lambda)*maxSim
			if value > bestValue {
				bestValue = value
				bestIdx = i
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}
