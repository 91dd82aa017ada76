//go:build !linux && !darwin

package adapter

import "fmt"

type origin string

const (
	originBuiltin    origin = "builtin"
	originEntrypoint origin = "entrypoint"
)

// Registry holds the merged, active set of adapters: entry-point
// overrides built-in, by NAME. Drop-in loading needs Go's plugin
// package, which is unsupported on this platform, so LoadDropins is a
// documented no-op rather than a build failure.
type Registry struct {
	adapters map[string]Adapter
	origins  map[string]origin
	warnings []string
}

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

func (r *Registry) RegisterBuiltin(a Adapter) { r.register(originBuiltin, a) }

func (r *Registry) RegisterEntrypoint(a Adapter) { r.register(originEntrypoint, a) }

// LoadDropins is unavailable on this platform (Go plugins require
// linux/darwin); it records a warning and returns nil rather than error
// so callers don't need platform-specific branching.
func (r *Registry) LoadDropins(dir string) error {
	r.warnings = append(r.warnings, "drop-in adapters are unavailable on this platform")
	return nil
}

func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

func (r *Registry) All() []Adapter {
	out := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	return out
}

func (r *Registry) Warnings() []string { return r.warnings }

// Origin reports where the active adapter registered under name came
// from ("builtin" or "entrypoint"; drop-ins are unavailable on this
// platform).
func (r *Registry) Origin(name string) string {
	return string(r.origins[name])
}
