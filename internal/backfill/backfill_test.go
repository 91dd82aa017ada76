package backfill

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgruel/siftd-sub000/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "siftd.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// seedConversation inserts the minimal row chain one prompt/response
// pair needs: a harness, a conversation, a prompt, and a response, so
// each backfill operation has somewhere to look.
func seedConversation(t *testing.T, st *store.Store, convID string) (promptID, responseID string) {
	t.Helper()
	db := st.DB()
	_, err := db.Exec(`INSERT OR IGNORE INTO harnesses (id, name, log_format) VALUES ('h1', 'claudecode', 'ndjson')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO conversations (id, harness_id, external_id) VALUES (?, 'h1', ?)`, convID, convID)
	require.NoError(t, err)
	promptID = convID + "-p1"
	_, err = db.Exec(`INSERT INTO prompts (id, conversation_id, prompt_index) VALUES (?, ?, 0)`, promptID, convID)
	require.NoError(t, err)
	responseID = convID + "-r1"
	_, err = db.Exec(`INSERT INTO responses (id, prompt_id, conversation_id) VALUES (?, ?, ?)`, responseID, promptID, convID)
	require.NoError(t, err)
	return promptID, responseID
}

func TestShellCategoryClassifiesKnownBinaries(t *testing.T) {
	cases := map[string]string{
		"git status":        "shell:vcs",
		"go test ./...":     "shell:test",
		"go build ./...":    "shell:build",
		"npm install":        "shell:package-manager",
		"pytest -k foo":      "shell:test",
		"make all":           "shell:build",
		"echo hello":         "shell:other",
		"":                   "shell:other",
	}
	for cmd, want := range cases {
		require.Equal(t, want, shellCategory(cmd), "cmd=%q", cmd)
	}
}

func TestCategorizeShellTagsTagsAndSkipsAlreadyTagged(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	_, respID := seedConversation(t, st, "conv-1")

	_, err := st.DB().Exec(`
		INSERT INTO tool_calls (id, response_id, tool_name, input_json) VALUES
		('tc-1', ?, 'shell.execute', '{"command":"git commit -m x"}'),
		('tc-2', ?, 'shell.execute', '{"command":"npm test"}'),
		('tc-3', ?, 'read_file', '{}')
	`, respID, respID, respID)
	require.NoError(t, err)

	res, err := CategorizeShellTags(ctx, st)
	require.NoError(t, err)
	require.Equal(t, 2, res.Scanned)
	require.Equal(t, 2, res.Updated)

	tags, err := store.ListTags(ctx, st.DB(), "tool_call", "tc-1")
	require.NoError(t, err)
	require.Contains(t, tags, "shell:vcs")

	// Re-running is idempotent: already-tagged calls are skipped.
	res2, err := CategorizeShellTags(ctx, st)
	require.NoError(t, err)
	require.Equal(t, 0, res2.Updated)
}

func TestContainsDerivativeMarker(t *testing.T) {
	require.True(t, containsDerivativeMarker("let's run siftd query abc123 to check"))
	require.True(t, containsDerivativeMarker("SIFTD ASK about the bug"))
	require.False(t, containsDerivativeMarker("just a normal prompt about go"))
}

func TestTagDerivativesTagsMatchingConversations(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	promptID, _ := seedConversation(t, st, "conv-derived")
	seedConversation(t, st, "conv-plain")

	_, err := st.DB().Exec(`
		INSERT INTO prompt_content (id, prompt_id, block_index, block_type, text) VALUES
		(?, ?, 0, 'text', 'please run siftd query conv-1 for me')
	`, promptID+"-c1", promptID)
	require.NoError(t, err)

	res, err := TagDerivatives(ctx, st)
	require.NoError(t, err)
	require.Equal(t, 1, res.Updated)

	tags, err := store.ListTags(ctx, st.DB(), "conversation", "conv-derived")
	require.NoError(t, err)
	require.Contains(t, tags, "siftd:derivative")

	plainTags, err := store.ListTags(ctx, st.DB(), "conversation", "conv-plain")
	require.NoError(t, err)
	require.NotContains(t, plainTags, "siftd:derivative")
}
