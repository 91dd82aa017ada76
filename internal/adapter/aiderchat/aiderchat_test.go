package aiderchat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgruel/siftd-sub000/internal/adapter"
)

const sample = `# aider chat started at 2026-01-02 03:04:05

#### fix the login bug
Looking at the auth module now.
I found the issue in middleware.go.

#### thanks, looks good
Glad it works!
`

func TestParseChatHistory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".aider.chat.history.md")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	a := New()
	convs, err := a.Parse(adapter.Source{Path: path})
	require.NoError(t, err)
	require.Len(t, convs, 1)

	conv := convs[0]
	require.Len(t, conv.Prompts, 2)
	require.Contains(t, conv.Prompts[0].Content[0].Text, "fix the login bug")
	require.Len(t, conv.Prompts[0].Responses, 1)
	require.Contains(t, conv.Prompts[0].Responses[0].Content[0].Text, "middleware.go")
}

func TestCanHandle(t *testing.T) {
	a := New()
	require.True(t, a.CanHandle(adapter.Source{Path: "/tmp/proj/.aider.chat.history.md"}))
	require.False(t, a.CanHandle(adapter.Source{Path: "/tmp/proj/notes.md"}))
}
