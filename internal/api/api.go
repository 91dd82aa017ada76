// Package api is the facade cmd/siftd calls into instead of reaching
// into storage directly (spec.md §6.5's layering rule): cmd never
// imports internal/store, and every store, index, search, session and
// doctor operation it runs is a Client method here. Besides api, config
// and output, cmd imports internal/chunk, internal/index,
// internal/retrieval and internal/doctor only for their option/result
// types and pure helpers. It opens the main store and the adapter registry
// once per invocation and composes the lower packages' exported
// functions into one call per CLI verb, the way beads' cmd/bd package
// leans on a thin internal/storage facade rather than hand-rolling SQL
// in its command files.
package api

import (
	"context"
	"fmt"

	"github.com/kgruel/siftd-sub000/internal/adapter"
	"github.com/kgruel/siftd-sub000/internal/adapter/aiderchat"
	"github.com/kgruel/siftd-sub000/internal/adapter/claudecode"
	"github.com/kgruel/siftd-sub000/internal/adapter/cline"
	"github.com/kgruel/siftd-sub000/internal/adapter/codexcli"
	"github.com/kgruel/siftd-sub000/internal/adapter/genericsession"
	"github.com/kgruel/siftd-sub000/internal/config"
	"github.com/kgruel/siftd-sub000/internal/embed"
	"github.com/kgruel/siftd-sub000/internal/embedstore"
	"github.com/kgruel/siftd-sub000/internal/ingest"
	"github.com/kgruel/siftd-sub000/internal/paths"
	"github.com/kgruel/siftd-sub000/internal/store"
)

// Client holds the open handles one CLI invocation needs. EmbedDB opens
// lazily on first use since most commands (tag, tags, status without
// embeddings) never touch it.
type Client struct {
	Store    *store.Store
	Registry *adapter.Registry

	dbPath       string
	embedDBPath  string
	embedDB      *embedstore.Store
	dropInDir    string
}

// Open opens the main store at the configured path (or override) and
// builds the adapter registry: built-ins first, then a drop-in scan
// (spec.md §4.1's override order), matching beads' cmd/bd loading its
// storage backend once in PersistentPreRun.
func Open(dbOverride string, readOnly bool) (*Client, error) {
	dbPath := dbOverride
	if dbPath == "" {
		dbPath = config.GetString("db")
	}
	if dbPath == "" {
		p, err := paths.MainDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolving database path: %w", err)
		}
		dbPath = p
	}

	st, err := store.Open(dbPath, readOnly)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	reg := adapter.NewRegistry()
	reg.RegisterBuiltin(claudecode.New())
	reg.RegisterBuiltin(codexcli.New())
	reg.RegisterBuiltin(aiderchat.New())
	reg.RegisterBuiltin(genericsession.New())
	reg.RegisterBuiltin(cline.New())
	dropInDir, err := paths.DropInDir("adapters")
	if err == nil {
		_ = reg.LoadDropins(dropInDir)
	}

	return &Client{Store: st, Registry: reg, dbPath: dbPath, dropInDir: dropInDir}, nil
}

// Close releases the main store and, if opened, the embeddings store.
func (c *Client) Close() error {
	var firstErr error
	if c.embedDB != nil {
		if err := c.embedDB.Close(); err != nil {
			firstErr = err
		}
	}
	if err := c.Store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// EmbedDB lazily opens the embeddings store at the configured path (or
// override), reusing the same handle for the rest of the invocation.
func (c *Client) EmbedDB(pathOverride string) (*embedstore.Store, error) {
	if c.embedDB != nil {
		return c.embedDB, nil
	}
	p := pathOverride
	if p == "" {
		p = config.GetString("embeddings-db")
	}
	if p == "" {
		resolved, err := paths.EmbeddingsDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolving embeddings path: %w", err)
		}
		p = resolved
	}
	es, err := embedstore.Open(p)
	if err != nil {
		return nil, err
	}
	c.embedDB = es
	c.embedDBPath = p
	return es, nil
}

// Backend resolves an embedding backend by name, falling back through
// spec.md §4.4's {"openai","local"} chain when name is empty.
func Backend(name, model string) (embed.Backend, error) {
	if name != "" {
		return embed.Open(name, model)
	}
	configured := config.GetString("embed.backend")
	if configured != "" {
		return embed.Open(configured, model)
	}
	var lastErr error
	for _, candidate := range []string{"openai", "local"} {
		b, err := embed.Open(candidate, model)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no embedding backend available: %w", lastErr)
}

// Ingest runs the adapter discovery/parse/store pipeline. An empty
// only ingests every registered adapter; otherwise only the named
// adapters run, matching `siftd ingest --adapter NAME`.
func (c *Client) Ingest(ctx context.Context, only []string, progress ingest.Progress) (*ingest.Stats, error) {
	adapters := c.Registry.All()
	if len(only) > 0 {
		wanted := map[string]bool{}
		for _, name := range only {
			wanted[name] = true
		}
		var filtered []adapter.Adapter
		for _, a := range adapters {
			if wanted[a.Name()] {
				filtered = append(filtered, a)
			}
		}
		adapters = filtered
	}
	return ingest.Run(ctx, c.Store, adapters, progress)
}
