package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kgruel/siftd-sub000/internal/api"
	"github.com/kgruel/siftd-sub000/internal/config"
)

var (
	jsonOutput   bool
	dbOverride   string
	embedsOverride string

	rootCtx    context.Context
	rootCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "siftd",
	Short: "siftd - aggregate and query AI coding-assistant conversation logs",
	Long:  "siftd ingests Claude Code, Codex CLI, Aider, and generic-session conversation logs into one store, indexes them for hybrid keyword and vector search, and serves query/tag/export commands over the result.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

		if err := config.Initialize(); err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		// Initialize replaced the viper instance init() bound the
		// persistent flags to, so bind them again.
		for _, key := range []string{"json", "db", "embeddings-db"} {
			_ = config.BindFlag(key, cmd.Root().PersistentFlags().Lookup(key))
		}
		if !cmd.Flags().Changed("json") {
			jsonOutput = config.GetBool("json")
		}
		if !cmd.Flags().Changed("db") && dbOverride == "" {
			dbOverride = config.GetString("db")
		}
		if !cmd.Flags().Changed("embeddings-db") && embedsOverride == "" {
			embedsOverride = config.GetString("embeddings-db")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit structured JSON instead of the default text format")
	rootCmd.PersistentFlags().StringVar(&dbOverride, "db", "", "path to the main store (overrides config/XDG default)")
	rootCmd.PersistentFlags().StringVar(&embedsOverride, "embeddings-db", "", "path to the embeddings store (overrides config/XDG default)")

	_ = config.BindFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = config.BindFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	_ = config.BindFlag("embeddings-db", rootCmd.PersistentFlags().Lookup("embeddings-db"))

	rootCmd.AddGroup(
		&cobra.Group{ID: "corpus", Title: "Building the Corpus:"},
		&cobra.Group{ID: "search", Title: "Querying:"},
		&cobra.Group{ID: "tagging", Title: "Tags & Tools:"},
		&cobra.Group{ID: "live", Title: "Live Sessions:"},
		&cobra.Group{ID: "maint", Title: "Maintenance:"},
		&cobra.Group{ID: "setup", Title: "Setup & Configuration:"},
	)
}

// openClient opens the api facade honoring --db/--embeddings-db, read
// only for commands that never write (search/status/query/peek/tags/
// tools/adapters/export/doctor other than `doctor fix`).
func openClient(readOnly bool) (*api.Client, error) {
	c, err := api.Open(dbOverride, readOnly)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// formatterName resolves which output.Formatter a read-only command
// renders through: --json always wins, otherwise the configured
// search.formatter.
func formatterName() string {
	if jsonOutput {
		return "json"
	}
	return config.GetString("search.formatter")
}

// fatalf reports an error the way spec.md §6.2 requires: stderr plus
// exit(1), or (with --json) a single structured error object, so a
// scripted caller can rely on one shape regardless of which command
// failed.
func fatalf(format string, args ...any) {
	err := fmt.Errorf(format, args...)
	if jsonOutput {
		data, _ := json.Marshal(map[string]string{"error": err.Error()})
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(1)
}

// printJSON marshals v with a trailing newline, for commands whose
// --json payload isn't already one of the output package's formatters
// (ingest/backfill/index/session-id stats, config get, doctor fix).
func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatalf("encoding JSON: %v", err)
	}
	fmt.Println(string(data))
}

// exitCodeFor maps a top-level Execute error to spec.md §6.2's exit
// codes: 130 when the run was cancelled by SIGINT, 1 otherwise.
func exitCodeFor(err error) int {
	if errors.Is(err, context.Canceled) {
		return 130
	}
	return 1
}
