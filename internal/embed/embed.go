// Package embed defines the embedding backend contract (spec.md §4.7,
// "the only external capability with state") and a small registry of
// concrete backends, selected by explicit name or a fallback chain.
package embed

import (
	"context"
	"fmt"
)

// Backend is an embedding provider: a name, the model it serves, a
// fixed output dimension, and batch/single embed operations returning
// vectors in the same order as the input.
type Backend interface {
	Name() string
	Model() string
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// factory constructs a Backend from the configured model name (backend-
// specific, may be "" for a backend's default).
type factory func(model string) (Backend, error)

var registry = map[string]factory{}

// fallbackChain is the fixed order backends are tried in when no
// explicit name is requested (spec.md §4.7): the hosted OpenAI backend
// first since it gives real embeddings, falling back to the
// always-available local hash backend.
var fallbackChain = []string{"openai", "local"}

// Register adds a backend constructor under name. Called from each
// backend's init().
func Register(name string, f factory) {
	registry[name] = f
}

// Open selects a backend: the explicitly requested name if non-empty,
// otherwise the first available entry in the fallback chain.
func Open(name, model string) (Backend, error) {
	if name != "" {
		f, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("unknown embedding backend %q", name)
		}
		return f(model)
	}
	if len(fallbackChain) == 0 {
		return nil, fmt.Errorf("no embedding backends registered")
	}
	var lastErr error
	for _, n := range fallbackChain {
		b, err := registry[n](model)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no embedding backend available: %w", lastErr)
}

// EmbedBatch embeds texts in batches of at most batchSize, preserving
// order, and returns an empty slice immediately for an empty input
// (spec.md §4.7 "Empty batch returns empty").
func EmbedBatch(ctx context.Context, b Backend, texts []string, batchSize int) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if batchSize <= 0 {
		batchSize = len(texts)
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := b.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding batch [%d:%d]: %w", start, end, err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}
