package cline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgruel/siftd-sub000/internal/adapter"
	"github.com/kgruel/siftd-sub000/internal/domain"
)

func writeHistory(t *testing.T, dir string, messages []map[string]any) string {
	t.Helper()
	taskDir := filepath.Join(dir, "task-1")
	require.NoError(t, os.MkdirAll(taskDir, 0o755))
	path := filepath.Join(taskDir, historyFileName)
	raw, err := json.Marshal(messages)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func TestParseTaskHistory(t *testing.T) {
	dir := t.TempDir()
	path := writeHistory(t, dir, []map[string]any{
		{"role": "user", "content": "list the files in src/"},
		{
			"role": "assistant",
			"content": []any{
				map[string]any{"type": "text", "text": "I'll list them now."},
				map[string]any{"type": "tool_use", "id": "call-1", "name": "list_files", "input": map[string]any{"path": "src/"}},
			},
			"usage": map[string]any{"input_tokens": 12.0, "output_tokens": 8.0},
		},
		{
			"role": "user",
			"content": []any{
				map[string]any{"type": "tool_result", "tool_use_id": "call-1", "content": "main.go\nutil.go"},
			},
		},
		{"role": "assistant", "content": "Found main.go and util.go."},
	})

	a := New()
	convs, err := a.Parse(adapter.Source{Path: path})
	require.NoError(t, err)
	require.Len(t, convs, 1)

	conv := convs[0]
	require.Len(t, conv.Prompts, 1)
	require.Contains(t, conv.Prompts[0].Content[0].Text, "list the files")
	require.Len(t, conv.Prompts[0].Responses, 2)

	first := conv.Prompts[0].Responses[0]
	require.Equal(t, 12, first.Usage.InputTokens)
	require.Len(t, first.ToolCalls, 1)
	require.Equal(t, domain.ToolCallSuccess, first.ToolCalls[0].Status)
	require.Equal(t, "main.go\nutil.go", first.ToolCalls[0].Result)

	second := conv.Prompts[0].Responses[1]
	require.Contains(t, second.Content[0].Text, "Found main.go")
}

func TestCanHandle(t *testing.T) {
	a := New()
	require.True(t, a.CanHandle(adapter.Source{Path: "/tmp/tasks/task-1/api_conversation_history.json"}))
	require.False(t, a.CanHandle(adapter.Source{Path: "/tmp/tasks/task-1/ui_messages.json"}))
}

func TestParseEmptyHistory(t *testing.T) {
	dir := t.TempDir()
	path := writeHistory(t, dir, nil)

	a := New()
	convs, err := a.Parse(adapter.Source{Path: path})
	require.NoError(t, err)
	require.Nil(t, convs)
}
