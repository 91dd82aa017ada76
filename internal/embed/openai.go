package embed

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

func init() {
	Register("openai", newOpenAIBackend)
}

// openaiBackend wraps the OpenAI embeddings API, grounded on
// haasonsaas-nexus's internal/memory/embeddings/openai provider: same
// client construction, same batch-call shape re-indexed by
// resp.Data[i].Index to preserve input order.
type openaiBackend struct {
	client *openai.Client
	model  string
}

var openAIDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

func newOpenAIBackend(model string) (Backend, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	cfg := openai.DefaultConfig(apiKey)
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		cfg.BaseURL = base
	}
	return &openaiBackend{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

func (b *openaiBackend) Name() string { return "openai" }
func (b *openaiBackend) Model() string { return b.model }

func (b *openaiBackend) Dimension() int {
	if d, ok := openAIDimensions[b.model]; ok {
		return d
	}
	return 1536
}

func (b *openaiBackend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := b.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(b.model),
	})
	if err != nil {
		return nil, fmt.Errorf("creating embeddings: %w", err)
	}
	out := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		out[d.Index] = d.Embedding
	}
	return out, nil
}

func (b *openaiBackend) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := b.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return vecs[0], nil
}
