package retrieval

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgruel/siftd-sub000/internal/embed"
	"github.com/kgruel/siftd-sub000/internal/embedstore"
	"github.com/kgruel/siftd-sub000/internal/store"
)

func setupRetrievalFixture(t *testing.T) (*store.Store, *embedstore.Store, embed.Backend) {
	t.Helper()
	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "siftd.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	es, err := embedstore.Open(filepath.Join(dir, "embeddings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = es.Close() })

	backend, err := embed.Open("local", "")
	require.NoError(t, err)

	ctx := context.Background()
	_, err = st.DB().ExecContext(ctx, `INSERT INTO harnesses (id, name, provider, log_format, display_name) VALUES ('h1', 'test', 'test', 'test', 'test')`)
	require.NoError(t, err)
	_, err = st.DB().ExecContext(ctx, `INSERT INTO workspaces (id, path, git_remote) VALUES ('w1', '/home/dev/project', NULL)`)
	require.NoError(t, err)
	_, err = st.DB().ExecContext(ctx, `INSERT INTO conversations (id, harness_id, workspace_id, external_id, started_at) VALUES ('c1', 'h1', 'w1', 'ext-1', '2026-01-01T00:00:00.000Z')`)
	require.NoError(t, err)
	_, err = st.DB().ExecContext(ctx, `INSERT INTO prompts (id, conversation_id, prompt_index, timestamp) VALUES ('p1', 'c1', 0, '2026-01-01T00:00:00.000Z')`)
	require.NoError(t, err)

	text := "fix the login bug in auth.go"
	vec, err := backend.EmbedOne(ctx, text)
	require.NoError(t, err)
	err = es.InsertChunk(&embedstore.Chunk{
		ConversationID: "c1",
		ChunkType:      "exchange",
		Text:           text,
		Embedding:      vec,
		TokenCount:     6,
		SourceIDs:      []string{"p1"},
		CreatedAt:      "2026-01-01T00:00:00.000Z",
	})
	require.NoError(t, err)

	return st, es, backend
}

func TestRunSemanticFindsMatchingChunk(t *testing.T) {
	st, es, backend := setupRetrievalFixture(t)

	out, err := Run(context.Background(), st, es, backend, Options{
		Query:    "fix the login bug in auth.go",
		Semantic: true,
		Limit:    5,
	})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	require.Equal(t, "c1", out.Results[0].ConversationID)
	require.Equal(t, "/home/dev/project", out.Results[0].WorkspacePath)
	require.Contains(t, out.Results[0].FileReferences, "auth.go")
}

func TestRunExcludesActiveConversationsByDefault(t *testing.T) {
	st, es, backend := setupRetrievalFixture(t)
	ctx := context.Background()

	_, err := st.DB().ExecContext(ctx, `INSERT INTO active_sessions (harness_session_id, adapter_name, workspace_path, started_at, last_seen_at) VALUES ('ext-1', 'test', '/home/dev/project', '2026-01-01T00:00:00.000Z', '2026-01-01T00:00:00.000Z')`)
	require.NoError(t, err)

	out, err := Run(ctx, st, es, backend, Options{
		Query:    "fix the login bug in auth.go",
		Semantic: true,
		Limit:    5,
	})
	require.NoError(t, err)
	require.Empty(t, out.Results)
}

func TestRunConversationsMode(t *testing.T) {
	st, es, backend := setupRetrievalFixture(t)

	out, err := Run(context.Background(), st, es, backend, Options{
		Query:    "fix the login bug in auth.go",
		Semantic: true,
		Mode:     ModeConversations,
		Limit:    5,
	})
	require.NoError(t, err)
	require.Len(t, out.Conversations, 1)
	require.Equal(t, "c1", out.Conversations[0].ConversationID)
}

func TestCosineSimilarityZeroNormScoresZero(t *testing.T) {
	require.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	require.Equal(t, 0.0, cosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}))
}
