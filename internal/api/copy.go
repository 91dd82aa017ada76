package api

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kgruel/siftd-sub000/internal/paths"
)

// adapterTemplate is `siftd copy adapter`'s starting point: a minimal
// Adapter implementation a user fleshes out and builds with
// `go build -buildmode=plugin`, per internal/adapter/registry.go's
// drop-in contract.
const adapterTemplate = `package main

import (
	"github.com/kgruel/siftd-sub000/internal/adapter"
	"github.com/kgruel/siftd-sub000/internal/domain"
)

type myAdapter struct{}

func New() adapter.Adapter { return &myAdapter{} }

func (myAdapter) Name() string                    { return "%s" }
func (myAdapter) InterfaceVersion() int            { return adapter.CurrentInterfaceVersion }
func (myAdapter) DefaultLocations() []string       { return nil }
func (myAdapter) DedupStrategy() adapter.DedupStrategy { return adapter.DedupByFile }
func (myAdapter) HarnessSource() string            { return "%s" }
func (myAdapter) HarnessLogFormat() string         { return "ndjson" }
func (myAdapter) SupportsLiveRegistration() bool    { return false }

func (a myAdapter) Discover(locations []string) ([]adapter.Source, error) {
	return adapter.GlobDiscover(locations, a.DefaultLocations())
}

func (myAdapter) CanHandle(src adapter.Source) bool { return true }

func (myAdapter) Parse(src adapter.Source) ([]*domain.Conversation, error) {
	return nil, nil
}
`

// queryTemplate is `siftd copy query`'s starting point: a saved-query
// TOML file under the "queries" drop-in directory holding the query
// text plus the retrieval.Options fields it fixes (mode, limit).
const queryTemplate = `# saved query: %s
query = ""
mode = "default"
limit = 20
`

// Copy scaffolds a new drop-in file of kind ("adapter" or "query")
// named name into the matching drop-in directory, refusing to
// overwrite an existing file.
func (c *Client) Copy(kind, name string) (string, error) {
	var dirKind, template, ext string
	switch kind {
	case "adapter":
		dirKind, ext = "adapters", ".go"
		template = fmt.Sprintf(adapterTemplate, name, name)
	case "query":
		dirKind, ext = "queries", ".toml"
		template = fmt.Sprintf(queryTemplate, name)
	default:
		return "", fmt.Errorf("unknown copy kind %q, want \"adapter\" or \"query\"", kind)
	}

	dir, err := paths.DropInDir(dirKind)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(dir, name+ext)
	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("%s already exists", dest)
	}
	if err := os.WriteFile(dest, []byte(template), 0o644); err != nil {
		return "", fmt.Errorf("writing scaffold: %w", err)
	}
	return dest, nil
}
