package embedstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "embeddings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEncodeDecodeVectorRoundTrips(t *testing.T) {
	v := []float32{0.5, -1.25, 3.0, 0}
	require.Equal(t, v, DecodeVector(EncodeVector(v)))
}

func TestInsertChunkAssignsIDAndAllChunksReturnsIt(t *testing.T) {
	s := openTestStore(t)

	c := &Chunk{
		ConversationID: "conv-1",
		ChunkType:      "exchange",
		Text:           "hello world",
		Embedding:      []float32{1, 2, 3},
		TokenCount:     3,
		SourceIDs:      []string{"prompt-1", "response-1"},
		CreatedAt:      "2026-01-01T00:00:00Z",
	}
	require.NoError(t, s.InsertChunk(c))
	require.NotEmpty(t, c.ID)

	all, err := s.AllChunks()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, c.Embedding, all[0].Embedding)
	require.Equal(t, []string{"prompt-1", "response-1"}, all[0].SourceIDs)
}

func TestDeleteChunksForConversationOnlyRemovesThatConversation(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.InsertChunk(&Chunk{ConversationID: "conv-1", ChunkType: "t", Text: "a", Embedding: []float32{1}, CreatedAt: "x"}))
	require.NoError(t, s.InsertChunk(&Chunk{ConversationID: "conv-2", ChunkType: "t", Text: "b", Embedding: []float32{2}, CreatedAt: "x"}))

	require.NoError(t, s.DeleteChunksForConversation("conv-1"))

	all, err := s.AllChunks()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "conv-2", all[0].ConversationID)
}

func TestMetaUnsetReturnsEmptyString(t *testing.T) {
	s := openTestStore(t)
	v, err := s.Meta("backend")
	require.NoError(t, err)
	require.Equal(t, "", v)
}

func TestSetMetaUpserts(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SetMeta("backend", "local"))
	require.NoError(t, s.SetMeta("backend", "openai"))

	v, err := s.Meta("backend")
	require.NoError(t, err)
	require.Equal(t, "openai", v)
}

func TestCheckCompatibleAllowsAnythingOnEmptyStore(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CheckCompatible("local", "hash-v1", 64))
}

func TestCheckCompatibleRejectsMismatch(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SetMeta("backend", "local"))
	require.NoError(t, s.SetMeta("model", "hash-v1"))
	require.NoError(t, s.SetMeta("dimension", "64"))

	require.NoError(t, s.CheckCompatible("local", "hash-v1", 64))
	require.Error(t, s.CheckCompatible("openai", "text-embedding-3-small", 1536))
}
