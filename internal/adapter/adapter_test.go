package adapter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGlobDiscoverDefaultsWhenNoLocations(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "a.jsonl")
	require.NoError(t, os.WriteFile(f, []byte("{}\n"), 0o644))

	sources, err := GlobDiscover(nil, []string{filepath.Join(dir, "*.jsonl")})
	require.NoError(t, err)
	require.Len(t, sources, 1)
	require.Equal(t, f, sources[0].Path)
}

func TestLoadNDJSONLineNumberedError(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "bad.jsonl")
	require.NoError(t, os.WriteFile(f, []byte("{\"a\":1}\nnot json\n{\"a\":2}\n"), 0o644))

	var seen []map[string]any
	err := LoadNDJSON(f, func(lineNo int, record map[string]any) error {
		seen = append(seen, record)
		return nil
	})
	require.Error(t, err)
	var lineErr *NDJSONLineError
	require.ErrorAs(t, err, &lineErr)
	require.Equal(t, 2, lineErr.Line)
}

func TestToolCallLinkerPairsAndPending(t *testing.T) {
	l := NewToolCallLinker()
	l.AddUse("1", map[string]any{"name": "read"})
	l.AddUse("2", map[string]any{"name": "write"})
	l.AddResult("1", map[string]any{"output": "ok"})

	pairs := l.Pairs()
	require.Len(t, pairs, 2)
	require.True(t, pairs[0].HasResult)
	require.False(t, pairs[1].HasResult)

	pending := l.Pending()
	require.Len(t, pending, 1)
	require.Equal(t, "2", pending[0].ID)
}
