package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kgruel/siftd-sub000/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "siftd.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenSeedsCanonicalTools(t *testing.T) {
	s := openTestStore(t)

	var count int
	err := s.DB().QueryRow(`SELECT COUNT(*) FROM tools`).Scan(&count)
	require.NoError(t, err)
	require.GreaterOrEqual(t, count, len(canonicalTools))
}

func TestStoreContentRefCounting(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	hash, err := StoreContent(ctx, s.DB(), []byte("hello world"))
	require.NoError(t, err)

	var refCount int
	require.NoError(t, s.DB().QueryRow(`SELECT ref_count FROM content_blobs WHERE hash = ?`, hash).Scan(&refCount))
	require.Equal(t, 1, refCount)

	_, err = StoreContent(ctx, s.DB(), []byte("hello world"))
	require.NoError(t, err)
	require.NoError(t, s.DB().QueryRow(`SELECT ref_count FROM content_blobs WHERE hash = ?`, hash).Scan(&refCount))
	require.Equal(t, 2, refCount)

	require.NoError(t, ReleaseContent(ctx, s.DB(), hash))
	require.NoError(t, ReleaseContent(ctx, s.DB(), hash))

	err = s.DB().QueryRow(`SELECT ref_count FROM content_blobs WHERE hash = ?`, hash).Scan(&refCount)
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestGetOrCreateWorkspaceByPath(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	dir := t.TempDir()
	id1, err := GetOrCreateWorkspace(ctx, s.DB(), dir)
	require.NoError(t, err)
	require.NotEmpty(t, id1)

	id2, err := GetOrCreateWorkspace(ctx, s.DB(), dir)
	require.NoError(t, err)
	require.Equal(t, id1, id2)
}

func TestTagDedup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	harnessID, err := GetOrCreateHarness(ctx, s.DB(), "claude-code", "anthropic", "ndjson", "Claude Code")
	require.NoError(t, err)

	conv := &domain.Conversation{
		HarnessID:  harnessID,
		ExternalID: "claude-code::sess-1::item-1",
		StartedAt:  time.Now(),
		Prompts: []*domain.Prompt{
			{
				Index:     0,
				Timestamp: time.Now(),
				Content:   []domain.ContentBlock{{Index: 0, Type: domain.BlockText, Text: "hello"}},
			},
		},
	}

	tx, err := s.DB().BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, InsertConversation(ctx, tx, conv))
	require.NoError(t, tx.Commit())

	require.NoError(t, AddTag(ctx, s.DB(), "conversation", conv.ID, "research:auth"))
	require.NoError(t, AddTag(ctx, s.DB(), "conversation", conv.ID, "research:auth"))

	tags, err := ListTags(ctx, s.DB(), "conversation", conv.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"research:auth"}, tags)
}

func TestSessionQueueTagDedupAndReconcile(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, RegisterSession(ctx, s.DB(), "sess-X", "live_test", "/tmp/ws"))
	require.NoError(t, QueueTag(ctx, s.DB(), "sess-X", "decision:auth", "conversation", nil))
	require.NoError(t, QueueTag(ctx, s.DB(), "sess-X", "decision:auth", "conversation", nil))

	var pendingCount int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM pending_tags WHERE harness_session_id = ?`, "sess-X").Scan(&pendingCount))
	require.Equal(t, 1, pendingCount)

	harnessID, err := GetOrCreateHarness(ctx, s.DB(), "live_test", "", "", "")
	require.NoError(t, err)
	conv := &domain.Conversation{
		HarnessID:  harnessID,
		ExternalID: "sess-X",
		StartedAt:  time.Now(),
		Prompts: []*domain.Prompt{{Index: 0, Timestamp: time.Now()}},
	}

	tx, err := s.DB().BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, InsertConversation(ctx, tx, conv))
	require.NoError(t, ReconcileSession(ctx, tx, "sess-X", conv.ID))
	require.NoError(t, tx.Commit())

	tags, err := ListTags(ctx, s.DB(), "conversation", conv.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"decision:auth"}, tags)

	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM pending_tags WHERE harness_session_id = ?`, "sess-X").Scan(&pendingCount))
	require.Equal(t, 0, pendingCount)

	var sessionCount int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM active_sessions WHERE harness_session_id = ?`, "sess-X").Scan(&sessionCount))
	require.Equal(t, 0, sessionCount)
}

func TestSearchContentReturnsSnippets(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	harnessID, err := GetOrCreateHarness(ctx, s.DB(), "claude-code", "anthropic", "ndjson", "")
	require.NoError(t, err)
	conv := &domain.Conversation{
		HarnessID:  harnessID,
		ExternalID: "claude-code::sess-2::item-1",
		StartedAt:  time.Now(),
		Prompts: []*domain.Prompt{
			{
				Index:     0,
				Timestamp: time.Now(),
				Content:   []domain.ContentBlock{{Index: 0, Type: domain.BlockText, Text: "let's refactor the authentication middleware"}},
			},
		},
	}
	tx, err := s.DB().BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, InsertConversation(ctx, tx, conv))
	require.NoError(t, tx.Commit())

	results, err := s.SearchContent(ctx, "authentication", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, conv.ID, results[0].ConversationID)
}
