package output

import (
	"encoding/json"
	"io"

	"github.com/kgruel/siftd-sub000/internal/doctor"
	"github.com/kgruel/siftd-sub000/internal/retrieval"
)

// jsonFormatter implements spec.md §6.2's "--json on read-only
// commands emits a well-defined structured payload": every view type
// is marshaled as-is, one JSON value per call, newline-terminated so
// output composes with line-oriented tools.
type jsonFormatter struct{}

// NewJSONFormatter returns the `--json` formatter.
func NewJSONFormatter() Formatter { return jsonFormatter{} }

func (jsonFormatter) Name() string { return "json" }

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (jsonFormatter) FormatSearch(w io.Writer, out *retrieval.Output) error {
	return writeJSON(w, out)
}

func (jsonFormatter) FormatStatus(w io.Writer, st Status) error {
	return writeJSON(w, st)
}

func (jsonFormatter) FormatDoctor(w io.Writer, findings []doctor.Finding) error {
	return writeJSON(w, findings)
}

func (jsonFormatter) FormatTags(w io.Writer, tags []TagCount) error {
	return writeJSON(w, tags)
}

func (jsonFormatter) FormatTools(w io.Writer, tools []ToolCount) error {
	return writeJSON(w, tools)
}

func (jsonFormatter) FormatConversation(w io.Writer, conv ConversationView) error {
	return writeJSON(w, conv)
}

func (jsonFormatter) FormatAdapters(w io.Writer, adapters []AdapterView) error {
	return writeJSON(w, adapters)
}
