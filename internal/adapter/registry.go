//go:build linux || darwin

// Registry loading uses Go's plugin package for drop-ins, which only
// builds on linux/darwin; this is the Go-native analogue of spec.md
// §4.1's "Python-style modules in a configured directory" — a drop-in
// is a .so built with `go build -buildmode=plugin` exposing a New()
// Adapter symbol, validated the same way a Python loader would check
// for the expected attributes before trusting the module.
package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"
)

// origin records where a registered adapter came from, for diagnostics
// (`siftd adapters` lists this).
type origin string

const (
	originBuiltin    origin = "builtin"
	originEntrypoint origin = "entrypoint"
	originDropin     origin = "dropin"
)

// Registry holds the merged, active set of adapters: drop-in overrides
// entry-point overrides built-in, by NAME (spec.md §4.1).
type Registry struct {
	adapters map[string]Adapter
	origins  map[string]origin
	warnings []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: map[string]Adapter{}, origins: map[string]origin{}}
}

func (r *Registry) register(o origin, a Adapter) {
	if a.InterfaceVersion() != CurrentInterfaceVersion {
		r.warnings = append(r.warnings, fmt.Sprintf("adapter %q: unsupported interface version %d, skipped", a.Name(), a.InterfaceVersion()))
		return
	}
	r.adapters[a.Name()] = a
	r.origins[a.Name()] = o
}

// RegisterBuiltin adds a built-in adapter (lowest priority).
func (r *Registry) RegisterBuiltin(a Adapter) { r.register(originBuiltin, a) }

// RegisterEntrypoint adds an adapter sourced from a Go-side entry point
// (a statically linked, non-built-in adapter registered by the host
// program); it overrides a built-in of the same NAME.
func (r *Registry) RegisterEntrypoint(a Adapter) { r.register(originEntrypoint, a) }

// LoadDropins scans dir for *.so plugins, opens each, looks up a New()
// func() Adapter symbol, and registers the result, overriding any
// built-in/entry-point adapter with the same NAME. A malformed or
// incompatible plugin emits a warning (retrievable via Warnings) and is
// skipped rather than aborting the load.
func (r *Registry) LoadDropins(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading drop-in directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".so" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		p, err := plugin.Open(path)
		if err != nil {
			r.warnings = append(r.warnings, fmt.Sprintf("drop-in %s: %v, skipped", entry.Name(), err))
			continue
		}
		sym, err := p.Lookup("New")
		if err != nil {
			r.warnings = append(r.warnings, fmt.Sprintf("drop-in %s: missing New() symbol, skipped", entry.Name()))
			continue
		}
		ctor, ok := sym.(func() Adapter)
		if !ok {
			r.warnings = append(r.warnings, fmt.Sprintf("drop-in %s: New() has wrong signature, skipped", entry.Name()))
			continue
		}
		r.register(originDropin, ctor())
	}
	return nil
}

// Get returns the active adapter for name, if any.
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// All returns every active adapter.
func (r *Registry) All() []Adapter {
	out := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	return out
}

// Warnings returns validation/load warnings accumulated so far.
func (r *Registry) Warnings() []string { return r.warnings }

// Origin reports where the active adapter registered under name came
// from ("builtin", "entrypoint", or "dropin"), for `siftd adapters`.
func (r *Registry) Origin(name string) string {
	return string(r.origins[name])
}
