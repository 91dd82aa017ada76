package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kgruel/siftd-sub000/internal/chunk"
	"github.com/kgruel/siftd-sub000/internal/config"
	"github.com/kgruel/siftd-sub000/internal/index"
)

var (
	indexRebuild   bool
	indexBackend   string
	indexModel     string
	indexBatchSize int
)

var indexCmd = &cobra.Command{
	Use:     "index",
	GroupID: "corpus",
	Short:   "Chunk and embed conversations not yet in the embeddings store",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := openClient(false)
		if err != nil {
			fatalf("%v", err)
		}
		defer c.Close()

		backend := indexBackend
		if backend == "" {
			backend = config.GetString("embed.backend")
		}
		opts := index.Options{
			Rebuild:   indexRebuild,
			Backend:   backend,
			Model:     indexModel,
			BatchSize: indexBatchSize,
			Chunk: chunk.Options{
				TargetTokens:  config.GetInt("indexer.target-tokens"),
				MaxTokens:     config.GetInt("indexer.max-tokens"),
				OverlapTokens: config.GetInt("indexer.overlap-tokens"),
			},
		}
		if opts.BatchSize == 0 {
			opts.BatchSize = config.GetInt("indexer.batch-size")
		}

		result, err := c.Index(rootCtx, opts)
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			printJSON(result)
			return
		}
		fmt.Printf("indexed %d conversations, inserted %d chunks\n", result.ConversationsIndexed, result.ChunksInserted)
	},
}

func init() {
	indexCmd.Flags().BoolVar(&indexRebuild, "rebuild", false, "clear the embeddings store and rebuild from scratch")
	indexCmd.Flags().StringVar(&indexBackend, "backend", "", "embedding backend (default: configured embed.backend, then openai, then local)")
	indexCmd.Flags().StringVar(&indexModel, "model", "", "embedding model name (backend default if empty)")
	indexCmd.Flags().IntVar(&indexBatchSize, "batch-size", 0, "chunk texts embedded per backend call (0 = indexer.batch-size)")
	rootCmd.AddCommand(indexCmd)
}
