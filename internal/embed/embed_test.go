package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalBackendDeterministicAndNormalized(t *testing.T) {
	b, err := Open("local", "")
	require.NoError(t, err)
	require.Equal(t, "local", b.Name())
	require.Equal(t, 64, b.Dimension())

	v1, err := b.EmbedOne(context.Background(), "hello world")
	require.NoError(t, err)
	v2, err := b.EmbedOne(context.Background(), "hello world")
	require.NoError(t, err)
	require.Equal(t, v1, v2)

	v3, err := b.EmbedOne(context.Background(), "something else entirely")
	require.NoError(t, err)
	require.NotEqual(t, v1, v3)
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	b, err := Open("local", "")
	require.NoError(t, err)
	vecs, err := EmbedBatch(context.Background(), b, nil, 8)
	require.NoError(t, err)
	require.Empty(t, vecs)
}

func TestEmbedBatchPreservesOrder(t *testing.T) {
	b, err := Open("local", "")
	require.NoError(t, err)
	texts := []string{"a", "b", "c", "d", "e"}
	vecs, err := EmbedBatch(context.Background(), b, texts, 2)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))

	direct, err := b.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Equal(t, direct, vecs)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open("nonexistent", "")
	require.Error(t, err)
}
