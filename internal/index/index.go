// Package index builds and incrementally refreshes the embeddings
// store from the main store's conversations (spec.md §4.5 "Indexer").
package index

import (
	"context"
	"fmt"
	"time"

	"github.com/kgruel/siftd-sub000/internal/chunk"
	"github.com/kgruel/siftd-sub000/internal/embed"
	"github.com/kgruel/siftd-sub000/internal/embedstore"
	"github.com/kgruel/siftd-sub000/internal/store"
)

// Options controls one indexing run.
type Options struct {
	Rebuild   bool
	Backend   string
	Model     string
	BatchSize int
	Chunk     chunk.Options
}

// Result summarizes what one Run did.
type Result struct {
	ConversationsIndexed int
	ChunksInserted        int
}

// Run performs an index build or incremental update: validate backend/
// model compatibility (or clear everything on rebuild), skip already-
// indexed conversations, chunk and batch-embed the rest, and refresh
// index_meta (spec.md §4.5 steps 1-5).
func Run(ctx context.Context, mainStore *store.Store, embedDB *embedstore.Store, opts Options) (Result, error) {
	backend, err := embed.Open(opts.Backend, opts.Model)
	if err != nil {
		return Result{}, fmt.Errorf("opening embedding backend: %w", err)
	}

	if opts.Rebuild {
		if err := clearAll(embedDB); err != nil {
			return Result{}, err
		}
	} else {
		totalChunks, err := countChunks(embedDB)
		if err != nil {
			return Result{}, err
		}
		// spec.md's resolved open question: an empty index has no
		// meaningful prior backend/model to compare against, so treat it
		// as trivially compatible rather than comparing against absent keys.
		if totalChunks > 0 {
			if err := embedDB.CheckCompatible(backend.Name(), backend.Model(), backend.Dimension()); err != nil {
				return Result{}, err
			}
		}
	}

	indexed, err := indexedConversationIDs(embedDB)
	if err != nil {
		return Result{}, err
	}

	convIDs, err := unindexedConversationIDs(ctx, mainStore, indexed)
	if err != nil {
		return Result{}, err
	}

	var res Result
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}
	chunkOpts := opts.Chunk
	if chunkOpts == (chunk.Options{}) {
		chunkOpts = chunk.DefaultOptions
	}

	for _, convID := range convIDs {
		exchanges, err := mainStore.FetchExchanges(ctx, convID, nil)
		if err != nil {
			return res, fmt.Errorf("fetching exchanges for %s: %w", convID, err)
		}
		windows := chunk.Windows(exchanges, chunkOpts)
		if len(windows) == 0 {
			continue
		}

		texts := make([]string, len(windows))
		for i, w := range windows {
			texts[i] = w.Text
		}
		vecs, err := embed.EmbedBatch(ctx, backend, texts, batchSize)
		if err != nil {
			return res, fmt.Errorf("embedding conversation %s: %w", convID, err)
		}

		for i, w := range windows {
			c := &embedstore.Chunk{
				ConversationID: convID,
				ChunkType:      "exchange_window",
				Text:           w.Text,
				Embedding:      vecs[i],
				TokenCount:     w.TokenLen,
				SourceIDs:      w.SourceIDs,
				CreatedAt:      time.Now().UTC().Format(time.RFC3339),
			}
			if err := embedDB.InsertChunk(c); err != nil {
				return res, fmt.Errorf("inserting chunk for %s: %w", convID, err)
			}
			res.ChunksInserted++
		}
		res.ConversationsIndexed++
	}

	if err := writeMeta(embedDB, backend, chunkOpts); err != nil {
		return res, err
	}
	return res, nil
}

func clearAll(embedDB *embedstore.Store) error {
	_, err := embedDB.DB().Exec(`DELETE FROM chunks`)
	if err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}
	_, err = embedDB.DB().Exec(`DELETE FROM index_meta`)
	if err != nil {
		return fmt.Errorf("clearing index_meta: %w", err)
	}
	return nil
}

func countChunks(embedDB *embedstore.Store) (int, error) {
	var n int
	err := embedDB.DB().QueryRow(`SELECT COUNT(*) FROM chunks`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

func indexedConversationIDs(embedDB *embedstore.Store) (map[string]bool, error) {
	rows, err := embedDB.DB().Query(`SELECT DISTINCT conversation_id FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("listing indexed conversations: %w", err)
	}
	defer rows.Close()
	set := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning indexed conversation id: %w", err)
		}
		set[id] = true
	}
	return set, rows.Err()
}

func unindexedConversationIDs(ctx context.Context, mainStore *store.Store, indexed map[string]bool) ([]string, error) {
	rows, err := mainStore.DB().QueryContext(ctx, `SELECT id FROM conversations ORDER BY started_at`)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning conversation id: %w", err)
		}
		if !indexed[id] {
			out = append(out, id)
		}
	}
	return out, rows.Err()
}

func writeMeta(embedDB *embedstore.Store, backend embed.Backend, chunkOpts chunk.Options) error {
	meta := map[string]string{
		"schema_version":  "1",
		"backend":         backend.Name(),
		"model":           backend.Model(),
		"dimension":       fmt.Sprint(backend.Dimension()),
		"strategy":        "exchange_window",
		"target_tokens":   fmt.Sprint(chunkOpts.TargetTokens),
		"max_tokens":      fmt.Sprint(chunkOpts.MaxTokens),
		"overlap_tokens":  fmt.Sprint(chunkOpts.OverlapTokens),
		"built_at":        time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if err := embedDB.SetMeta(k, v); err != nil {
			return err
		}
	}
	return nil
}
