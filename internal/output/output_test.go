package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgruel/siftd-sub000/internal/doctor"
)

func TestGetResolvesKnownAndFallsBackOnUnknown(t *testing.T) {
	require.Equal(t, "json", Get("json").Name())
	require.Equal(t, "default", Get("default").Name())
	require.Equal(t, "default", Get("nonsense").Name(), "unknown formatter names fall back rather than panic")
	require.Equal(t, "default", Get("").Name())
}

func TestJSONFormatterRoundTripsViewModels(t *testing.T) {
	f := NewJSONFormatter()

	var buf bytes.Buffer
	require.NoError(t, f.FormatTags(&buf, []TagCount{{Name: "decision:auth", Count: 3}}))
	require.Contains(t, buf.String(), `"decision:auth"`)

	buf.Reset()
	require.NoError(t, f.FormatStatus(&buf, Status{Conversations: 5, IndexBackend: "local"}))
	require.Contains(t, buf.String(), `"Conversations": 5`)
	require.Contains(t, buf.String(), `"local"`)

	buf.Reset()
	conv := ConversationView{ID: "conv-1", Harness: "claudecode", Tags: []string{"decision:auth"}}
	require.NoError(t, f.FormatConversation(&buf, conv))
	require.Contains(t, buf.String(), `"conv-1"`)
}

func TestTextFormatterRendersTagsAndTools(t *testing.T) {
	f := NewTextFormatter()

	var buf bytes.Buffer
	require.NoError(t, f.FormatTags(&buf, []TagCount{{Name: "decision:auth", Count: 2}}))
	out := buf.String()
	require.Contains(t, out, "decision:auth")
	require.Contains(t, out, "2")

	buf.Reset()
	require.NoError(t, f.FormatTools(&buf, []ToolCount{{Name: "read_file", Count: 10}}))
	require.Contains(t, buf.String(), "read_file")
}

func TestTextFormatterDoctorShowsSeverity(t *testing.T) {
	f := NewTextFormatter()
	findings := []doctor.Finding{
		{Check: "pricing-gaps", Severity: doctor.SeverityWarning, Message: "model gpt-9 has no pricing row"},
	}
	var buf bytes.Buffer
	require.NoError(t, f.FormatDoctor(&buf, findings))
	require.True(t, strings.Contains(buf.String(), "pricing-gaps"))
	require.True(t, strings.Contains(buf.String(), "model gpt-9 has no pricing row"))
}

func TestTextFormatterAdaptersShowsOrigin(t *testing.T) {
	f := NewTextFormatter()
	adapters := []AdapterView{
		{Name: "claudecode", HarnessSource: "claude-code", DedupStrategy: "file", Origin: "builtin"},
	}
	var buf bytes.Buffer
	require.NoError(t, f.FormatAdapters(&buf, adapters))
	out := buf.String()
	require.Contains(t, out, "claudecode")
	require.Contains(t, out, "builtin")
}
