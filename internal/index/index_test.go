package index

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgruel/siftd-sub000/internal/embedstore"
	"github.com/kgruel/siftd-sub000/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "siftd.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func openTestEmbedStore(t *testing.T) *embedstore.Store {
	t.Helper()
	s, err := embedstore.Open(filepath.Join(t.TempDir(), "embeddings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedConversation(t *testing.T, st *store.Store, convID string) {
	t.Helper()
	db := st.DB()
	_, err := db.Exec(`INSERT OR IGNORE INTO harnesses (id, name, log_format) VALUES ('h1', 'claudecode', 'ndjson')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO conversations (id, harness_id, external_id, started_at) VALUES (?, 'h1', ?, '2026-01-01T00:00:00Z')`, convID, convID)
	require.NoError(t, err)
	promptID := convID + "-p1"
	_, err = db.Exec(`INSERT INTO prompts (id, conversation_id, prompt_index, timestamp) VALUES (?, ?, 0, '2026-01-01T00:00:00Z')`, promptID, convID)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO prompt_content (id, prompt_id, block_index, block_type, text) VALUES (?, ?, 0, 'text', 'how do channels work in go')`, promptID+"-c1", promptID)
	require.NoError(t, err)
	responseID := convID + "-r1"
	_, err = db.Exec(`INSERT INTO responses (id, prompt_id, conversation_id) VALUES (?, ?, ?)`, responseID, promptID, convID)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO response_content (id, response_id, block_index, block_type, text) VALUES (?, ?, 0, 'text', 'channels are typed conduits for goroutines')`, responseID+"-c1", responseID)
	require.NoError(t, err)
}

func TestRunIndexesUnindexedConversations(t *testing.T) {
	mainStore := openTestStore(t)
	embedDB := openTestEmbedStore(t)
	seedConversation(t, mainStore, "conv-1")

	res, err := Run(context.Background(), mainStore, embedDB, Options{Backend: "local"})
	require.NoError(t, err)
	require.Equal(t, 1, res.ConversationsIndexed)
	require.Greater(t, res.ChunksInserted, 0)

	backend, err := embedDB.Meta("backend")
	require.NoError(t, err)
	require.Equal(t, "local", backend)
}

func TestRunSkipsAlreadyIndexedConversations(t *testing.T) {
	mainStore := openTestStore(t)
	embedDB := openTestEmbedStore(t)
	seedConversation(t, mainStore, "conv-1")

	_, err := Run(context.Background(), mainStore, embedDB, Options{Backend: "local"})
	require.NoError(t, err)

	seedConversation(t, mainStore, "conv-2")
	res, err := Run(context.Background(), mainStore, embedDB, Options{Backend: "local"})
	require.NoError(t, err)
	require.Equal(t, 1, res.ConversationsIndexed, "only the newly added conversation should be indexed")
}

func TestRunRebuildClearsPriorChunks(t *testing.T) {
	mainStore := openTestStore(t)
	embedDB := openTestEmbedStore(t)
	seedConversation(t, mainStore, "conv-1")

	_, err := Run(context.Background(), mainStore, embedDB, Options{Backend: "local"})
	require.NoError(t, err)

	res, err := Run(context.Background(), mainStore, embedDB, Options{Backend: "local", Rebuild: true})
	require.NoError(t, err)
	require.Equal(t, 1, res.ConversationsIndexed, "rebuild clears the store so the same conversation is reindexed")
}

func TestRunRejectsIncompatibleBackendWithoutRebuild(t *testing.T) {
	mainStore := openTestStore(t)
	embedDB := openTestEmbedStore(t)
	seedConversation(t, mainStore, "conv-1")

	_, err := Run(context.Background(), mainStore, embedDB, Options{Backend: "local"})
	require.NoError(t, err)

	require.NoError(t, embedDB.SetMeta("dimension", "9999"))
	_, err = Run(context.Background(), mainStore, embedDB, Options{Backend: "local"})
	require.Error(t, err)
}
