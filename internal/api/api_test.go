package api

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgruel/siftd-sub000/internal/config"
)

// openTestClient isolates XDG_* under a fresh temp dir per test and
// opens a brand-new store/registry through the same path api.Open a
// CLI invocation would use.
func openTestClient(t *testing.T) *Client {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	require.NoError(t, config.Initialize())

	c, err := Open("", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestOpenRegistersBuiltinAdapters(t *testing.T) {
	c := openTestClient(t)
	names := map[string]bool{}
	for _, a := range c.Adapters() {
		names[a.Name] = true
		require.Equal(t, "builtin", a.Origin)
	}
	require.True(t, names["claudecode"])
	require.True(t, names["codexcli"])
	require.True(t, names["aiderchat"])
	require.True(t, names["genericsession"])
	require.True(t, names["cline"])
}

func TestTagUntagListTagsRoundTrip(t *testing.T) {
	c := openTestClient(t)
	ctx := context.Background()

	_, err := c.Store.DB().Exec(`INSERT INTO harnesses (id, name) VALUES ('h1', 'claudecode')`)
	require.NoError(t, err)
	_, err = c.Store.DB().Exec(`INSERT INTO conversations (id, harness_id, external_id) VALUES ('conv-1', 'h1', 'conv-1')`)
	require.NoError(t, err)

	require.NoError(t, c.Tag(ctx, "conversation", "conv-1", "decision:auth"))
	tags, err := c.ListTags(ctx, "conversation", "conv-1")
	require.NoError(t, err)
	require.Contains(t, tags, "decision:auth")

	require.NoError(t, c.Untag(ctx, "conversation", "conv-1", "decision:auth"))
	tags, err = c.ListTags(ctx, "conversation", "conv-1")
	require.NoError(t, err)
	require.NotContains(t, tags, "decision:auth")
}

func TestTagsAndToolsEmptyCorpus(t *testing.T) {
	c := openTestClient(t)
	ctx := context.Background()

	tags, err := c.Tags(ctx)
	require.NoError(t, err)
	require.Empty(t, tags)

	tools, err := c.Tools(ctx)
	require.NoError(t, err)
	require.Empty(t, tools)
}

func TestStatusOnEmptyCorpus(t *testing.T) {
	c := openTestClient(t)
	st, err := c.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, st.Conversations)
	require.Equal(t, 0, st.IndexedChunks)
}

func TestDoctorRunsAllChecksAndRejectsUnknownName(t *testing.T) {
	c := openTestClient(t)
	ctx := context.Background()

	require.NotEmpty(t, c.DoctorChecks())

	// A brand-new, empty corpus is healthy: Doctor must not error even
	// though it may legitimately report zero findings.
	_, err := c.Doctor(ctx, "")
	require.NoError(t, err)

	_, err = c.Doctor(ctx, "not-a-real-check")
	require.Error(t, err)
}

func TestBackfillRejectsUnknownOperation(t *testing.T) {
	c := openTestClient(t)
	_, err := c.Backfill(context.Background(), "not-a-real-op")
	require.Error(t, err)
	require.NotEmpty(t, BackfillOperations())
}

func TestCopyScaffoldsAndRefusesOverwrite(t *testing.T) {
	c := openTestClient(t)

	dest, err := c.Copy("query", "my-query")
	require.NoError(t, err)
	require.FileExists(t, dest)
	require.Equal(t, "my-query.toml", filepath.Base(dest))

	_, err = c.Copy("query", "my-query")
	require.Error(t, err, "copy must refuse to overwrite an existing scaffold")

	_, err = c.Copy("not-a-kind", "whatever")
	require.Error(t, err)
}

func TestPathResolvesKnownKindsAndRejectsUnknown(t *testing.T) {
	openTestClient(t)

	p, err := Path("db")
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(p))

	_, err = Path("not-a-kind")
	require.Error(t, err)
}

func TestLoadSavedQueryMissingFile(t *testing.T) {
	openTestClient(t)
	_, err := LoadSavedQuery("does-not-exist")
	require.Error(t, err)
}

func TestLoadSavedQueryReadsScaffoldedFile(t *testing.T) {
	c := openTestClient(t)
	dest, err := c.Copy("query", "recent-bugs")
	require.NoError(t, err)
	require.NotEmpty(t, dest)

	q, err := LoadSavedQuery("recent-bugs")
	require.NoError(t, err)
	require.Equal(t, "default", q.Mode)
	require.Equal(t, 20, q.Limit)
}

func TestExportJSONAndMarkdown(t *testing.T) {
	c := openTestClient(t)
	ctx := context.Background()

	_, err := c.Store.DB().Exec(`INSERT INTO harnesses (id, name) VALUES ('h1', 'claudecode')`)
	require.NoError(t, err)
	_, err = c.Store.DB().Exec(`INSERT INTO conversations (id, harness_id, external_id) VALUES ('conv-1', 'h1', 'conv-1')`)
	require.NoError(t, err)

	jsonOut, err := c.Export(ctx, "conv-1", "json")
	require.NoError(t, err)
	require.Contains(t, jsonOut, `"conv-1"`)

	mdOut, err := c.Export(ctx, "conv-1", "markdown")
	require.NoError(t, err)
	require.Contains(t, mdOut, "# conv-1")

	_, err = c.Export(ctx, "conv-1", "xml")
	require.Error(t, err)
}

func TestBackendFallsBackToLocalWhenUnconfigured(t *testing.T) {
	openTestClient(t)
	b, err := Backend("", "")
	require.NoError(t, err)
	require.NotNil(t, b)
}

func TestRegisterSessionAndCurrentSessionID(t *testing.T) {
	c := openTestClient(t)
	ctx := context.Background()

	wd, err := os.Getwd()
	require.NoError(t, err)

	require.NoError(t, c.RegisterSession(ctx, "harness-sess-1", "claudecode", wd))
	got, err := c.CurrentSessionID(wd)
	require.NoError(t, err)
	require.Equal(t, "harness-sess-1", got)
}
