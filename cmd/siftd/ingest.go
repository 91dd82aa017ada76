package main

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/kgruel/siftd-sub000/internal/api"
)

var (
	ingestAdapters []string
	ingestWatch    bool
)

var ingestCmd = &cobra.Command{
	Use:     "ingest",
	GroupID: "corpus",
	Short:   "Discover and ingest harness conversation logs",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := openClient(false)
		if err != nil {
			fatalf("%v", err)
		}
		defer c.Close()

		runIngestOnce(c)
		if !ingestWatch {
			return
		}
		watchAndReingest(c)
	},
}

func init() {
	ingestCmd.Flags().StringSliceVar(&ingestAdapters, "adapter", nil, "only ingest these adapters (repeatable)")
	ingestCmd.Flags().BoolVar(&ingestWatch, "watch", false, "keep running, re-ingesting whenever a source changes")
	rootCmd.AddCommand(ingestCmd)
}

func runIngestOnce(c *api.Client) {
	stats, err := c.Ingest(rootCtx, ingestAdapters, func(adapterName, path string, err error) {
		if err != nil && !jsonOutput {
			fmt.Printf("  %s: %s: %v\n", adapterName, path, err)
		}
	})
	if err != nil {
		fatalf("%v", err)
	}
	if jsonOutput {
		printJSON(stats)
		return
	}
	fmt.Printf("found %d files, ingested %d, replaced %d, skipped %d\n", stats.FilesFound, stats.FilesIngested, stats.FilesReplaced, stats.FilesSkipped)
	for name, hc := range stats.ByHarness {
		fmt.Printf("  %-14s conversations=%-5d prompts=%-5d responses=%-5d tool_calls=%-5d\n", name, hc.Conversations, hc.Prompts, hc.Responses, hc.ToolCalls)
	}
	for _, e := range stats.Errors {
		fmt.Println("  error:", e)
	}
}

// watchAndReingest mirrors the fsnotify debounce loop beads' `bd list
// --watch` runs against its own data directory: watch the data dir for
// writes and re-run ingest shortly after the last one, rather than on
// every single write event.
func watchAndReingest(c *api.Client) {
	dir, err := api.Path("data")
	if err != nil {
		fatalf("%v", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fatalf("creating watcher: %v", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		fatalf("watching %s: %v", dir, err)
	}

	const debounce = 2 * time.Second
	var timer *time.Timer
	fmt.Println("watching for changes... (Ctrl+C to exit)")
	for {
		select {
		case <-rootCtx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() { runIngestOnce(c) })
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			fmt.Println("watch error:", err)
		}
	}
}
