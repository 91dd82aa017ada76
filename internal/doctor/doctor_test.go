package doctor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kgruel/siftd-sub000/internal/embedstore"
	"github.com/kgruel/siftd-sub000/internal/store"
)

func openTestDeps(t *testing.T) Deps {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "siftd.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	es, err := embedstore.Open(filepath.Join(dir, "embeddings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = es.Close() })

	return Deps{Store: st, EmbedStore: es}
}

func TestEmbeddingsStaleReportsMissingCoverage(t *testing.T) {
	deps := openTestDeps(t)
	ctx := context.Background()

	_, err := deps.Store.DB().ExecContext(ctx, `INSERT INTO harnesses (id, name, provider, log_format, display_name) VALUES ('h1', 'test', 'test', 'test', 'test')`)
	require.NoError(t, err)
	_, err = deps.Store.DB().ExecContext(ctx, `INSERT INTO conversations (id, harness_id, external_id) VALUES ('c1', 'h1', 'e1')`)
	require.NoError(t, err)

	findings, err := (embeddingsStaleCheck{}).Run(ctx, deps)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	require.Equal(t, SeverityWarning, findings[0].Severity)
}

func TestPendingTagsStaleDetectsOldRows(t *testing.T) {
	deps := openTestDeps(t)
	ctx := context.Background()

	old := time.Now().UTC().Add(-72 * time.Hour).Format(timeLayout)
	_, err := deps.Store.DB().ExecContext(ctx, `
		INSERT INTO pending_tags (id, harness_session_id, tag_name, entity_type, created_at)
		VALUES ('p1', 'sess-1', 'decision:auth', 'conversation', ?)
	`, old)
	require.NoError(t, err)

	findings, err := (pendingTagsStaleCheck{}).Run(ctx, deps)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	require.True(t, findings[0].FixAvailable)
}

func TestRunAggregatesFindingsAndStrictPromotion(t *testing.T) {
	deps := openTestDeps(t)
	ctx := context.Background()

	old := time.Now().UTC().Add(-72 * time.Hour).Format(timeLayout)
	_, err := deps.Store.DB().ExecContext(ctx, `
		INSERT INTO pending_tags (id, harness_session_id, tag_name, entity_type, created_at)
		VALUES ('p1', 'sess-1', 'decision:auth', 'conversation', ?)
	`, old)
	require.NoError(t, err)

	reg := NewRegistry()
	findings := Run(ctx, reg.All(), deps)
	require.NotEmpty(t, findings)
	require.False(t, HasFailure(findings, false))
	require.True(t, HasFailure(findings, true))
}
