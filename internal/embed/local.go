package embed

import (
	"context"
	"crypto/sha256"
	"math"
)

func init() {
	Register("local", newLocalBackend)
}

// localDimension is fixed so a local index is always self-consistent;
// it never changes, so CheckCompatible never rejects a run against it.
const localDimension = 64

// localBackend is a dependency-free fallback: each text is hashed
// repeatedly to fill a fixed-size vector, then L2-normalized. It gives
// no semantic meaning across distinct vocabulary, only deterministic,
// offline embeddings so ingestion/indexing/retrieval are exercisable
// without network access or an API key.
type localBackend struct{}

func newLocalBackend(model string) (Backend, error) {
	return &localBackend{}, nil
}

func (b *localBackend) Name() string   { return "local" }
func (b *localBackend) Model() string  { return "hash-64" }
func (b *localBackend) Dimension() int { return localDimension }

func (b *localBackend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashEmbed(t)
	}
	return out, nil
}

func (b *localBackend) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	return hashEmbed(text), nil
}

func hashEmbed(text string) []float32 {
	vec := make([]float32, localDimension)
	seed := []byte(text)
	block := sha256.Sum256(seed)
	for i := 0; i < localDimension; i++ {
		if i > 0 && i%32 == 0 {
			block = sha256.Sum256(block[:])
		}
		b := block[i%32]
		vec[i] = float32(b)/127.5 - 1
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
