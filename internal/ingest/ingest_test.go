package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kgruel/siftd-sub000/internal/adapter"
	"github.com/kgruel/siftd-sub000/internal/domain"
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

// fakeFileAdapter is a file-strategy adapter stub returning a fixed
// conversation for every discovered source, for exercising the
// ingested_files dedup path without a real harness log format.
type fakeFileAdapter struct {
	path string
	conv func() *domain.Conversation
}

func (a *fakeFileAdapter) Name() string                 { return "fakefile" }
func (a *fakeFileAdapter) InterfaceVersion() int         { return adapter.CurrentInterfaceVersion }
func (a *fakeFileAdapter) DefaultLocations() []string    { return nil }
func (a *fakeFileAdapter) DedupStrategy() adapter.DedupStrategy { return adapter.DedupByFile }
func (a *fakeFileAdapter) HarnessSource() string         { return "test" }
func (a *fakeFileAdapter) HarnessLogFormat() string      { return "test" }
func (a *fakeFileAdapter) SupportsLiveRegistration() bool { return false }
func (a *fakeFileAdapter) Discover(locations []string) ([]adapter.Source, error) {
	return []adapter.Source{{Path: a.path}}, nil
}
func (a *fakeFileAdapter) CanHandle(src adapter.Source) bool { return true }
func (a *fakeFileAdapter) Parse(src adapter.Source) ([]*domain.Conversation, error) {
	return []*domain.Conversation{a.conv()}, nil
}

func newConv(externalID string, endedAt time.Time) *domain.Conversation {
	return &domain.Conversation{
		ExternalID: externalID,
		StartedAt:  endedAt.Add(-time.Minute),
		EndedAt:    endedAt,
		Prompts: []*domain.Prompt{
			{
				Content: []domain.ContentBlock{{Type: domain.BlockText, Text: "hello"}},
				Responses: []*domain.Response{
					{Content: []domain.ContentBlock{{Type: domain.BlockText, Text: "hi"}}},
				},
			},
		},
	}
}

func TestRunFileStrategySkipsUnchangedFile(t *testing.T) {
	st := openTestStore(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "log.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("unchanged"), 0o644))

	ad := &fakeFileAdapter{path: path, conv: func() *domain.Conversation {
		return newConv("ext-1", time.Now())
	}}

	stats, err := Run(context.Background(), st, []adapter.Adapter{ad}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, stats.FilesIngested)
	require.Equal(t, 1, stats.ByHarness["fakefile"].Conversations)

	stats2, err := Run(context.Background(), st, []adapter.Adapter{ad}, nil)
	require.NoError(t, err)
	require.Equal(t, 0, stats2.FilesIngested)
	require.Equal(t, 1, stats2.FilesSkipped)
}

// fakeSessionAdapter is a session-strategy adapter stub whose Parse
// result is swappable between calls, to exercise insert/replace/skip.
type fakeSessionAdapter struct {
	convs []*domain.Conversation
}

func (a *fakeSessionAdapter) Name() string                 { return "fakesession" }
func (a *fakeSessionAdapter) InterfaceVersion() int         { return adapter.CurrentInterfaceVersion }
func (a *fakeSessionAdapter) DefaultLocations() []string    { return nil }
func (a *fakeSessionAdapter) DedupStrategy() adapter.DedupStrategy {
	return adapter.DedupBySession
}
func (a *fakeSessionAdapter) HarnessSource() string          { return "test" }
func (a *fakeSessionAdapter) HarnessLogFormat() string       { return "test" }
func (a *fakeSessionAdapter) SupportsLiveRegistration() bool { return false }
func (a *fakeSessionAdapter) Discover(locations []string) ([]adapter.Source, error) {
	return []adapter.Source{{Path: "session://x"}}, nil
}
func (a *fakeSessionAdapter) CanHandle(src adapter.Source) bool { return true }
func (a *fakeSessionAdapter) Parse(src adapter.Source) ([]*domain.Conversation, error) {
	return a.convs, nil
}

func TestRunSessionStrategyReplacesNewerEndedAt(t *testing.T) {
	st := openTestStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	ad := &fakeSessionAdapter{convs: []*domain.Conversation{newConv("sess-1", base)}}
	stats, err := Run(context.Background(), st, []adapter.Adapter{ad}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, stats.ByHarness["fakesession"].Conversations)

	// Older ended_at: skipped.
	ad.convs = []*domain.Conversation{newConv("sess-1", base.Add(-time.Hour))}
	stats2, err := Run(context.Background(), st, []adapter.Adapter{ad}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, stats2.FilesSkipped)

	// Newer ended_at: replaced.
	ad.convs = []*domain.Conversation{newConv("sess-1", base.Add(time.Hour))}
	stats3, err := Run(context.Background(), st, []adapter.Adapter{ad}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, stats3.ByHarness["fakesession"].Replaced)

	var count int
	require.NoError(t, st.DB().QueryRow(`SELECT COUNT(*) FROM conversations`).Scan(&count))
	require.Equal(t, 1, count)
}
