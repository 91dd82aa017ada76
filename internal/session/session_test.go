package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgruel/siftd-sub000/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "siftd.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func withStateHome(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)
}

func TestRegisterWritesPointerAndCurrentReadsIt(t *testing.T) {
	withStateHome(t)
	st := openTestStore(t)
	ctx := context.Background()

	workspace := "/home/dev/project"
	require.NoError(t, Register(ctx, st.DB(), "sess-abc", "claudecode", workspace))

	got, err := Current(workspace)
	require.NoError(t, err)
	require.Equal(t, "sess-abc", got)

	var count int
	require.NoError(t, st.DB().QueryRow(`SELECT COUNT(*) FROM active_sessions WHERE harness_session_id = ?`, "sess-abc").Scan(&count))
	require.Equal(t, 1, count)
}

func TestCurrentEmptyWhenUnregistered(t *testing.T) {
	withStateHome(t)
	got, err := Current("/home/dev/unregistered")
	require.NoError(t, err)
	require.Equal(t, "", got)
}

func TestQueueCurrentTagRequiresRegistration(t *testing.T) {
	withStateHome(t)
	st := openTestStore(t)
	ctx := context.Background()

	err := QueueCurrentTag(ctx, st.DB(), "/home/dev/none", "decision:auth", "conversation", nil)
	require.Error(t, err)
}

func TestQueueCurrentTagAfterRegister(t *testing.T) {
	withStateHome(t)
	st := openTestStore(t)
	ctx := context.Background()

	workspace := "/home/dev/project2"
	require.NoError(t, Register(ctx, st.DB(), "sess-xyz", "codexcli", workspace))
	require.NoError(t, QueueCurrentTag(ctx, st.DB(), workspace, "decision:auth", "conversation", nil))

	var count int
	require.NoError(t, st.DB().QueryRow(`SELECT COUNT(*) FROM pending_tags WHERE harness_session_id = ?`, "sess-xyz").Scan(&count))
	require.Equal(t, 1, count)
}

func TestCleanupStale(t *testing.T) {
	withStateHome(t)
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, Register(ctx, st.DB(), "sess-old", "claudecode", "/home/dev/old"))
	_, err := st.DB().ExecContext(ctx, `UPDATE active_sessions SET last_seen_at = '2000-01-01T00:00:00.000Z' WHERE harness_session_id = ?`, "sess-old")
	require.NoError(t, err)

	removed, err := CleanupStale(ctx, st)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
}
