// Package output implements the formatter contract spec.md §6.4
// describes and the two built-in implementations every command renders
// through (no drop-in formatter is loaded): a human-readable
// terminal formatter and a machine-readable `--json` formatter. Every
// exported view type here is a plain value struct assembled by
// internal/api so this package never needs to import internal/store
// directly (spec.md §6.5's layering rule keeps storage access behind
// the api facade).
package output

import (
	"io"

	"github.com/kgruel/siftd-sub000/internal/doctor"
	"github.com/kgruel/siftd-sub000/internal/retrieval"
)

// TagCount is one row of `siftd tags`.
type TagCount struct {
	Name  string
	Count int
}

// ToolCount is one row of `siftd tools`.
type ToolCount struct {
	Name  string
	Count int
}

// WorkspaceCount is one row of a status report's top-workspaces table.
type WorkspaceCount struct {
	Path  string
	Count int
}

// Status is the view model for `siftd status`.
type Status struct {
	DBPath           string
	EmbeddingsDBPath string
	Conversations    int
	Prompts          int
	Responses        int
	ToolCalls        int
	IngestedFiles    int
	PendingTags      int
	ActiveSessions   int
	IndexedChunks    int
	IndexBackend     string
	IndexModel       string
	TopWorkspaces    []WorkspaceCount
	TopTools         []ToolCount
}

// ContentBlockView is one rendered content block of a peeked
// conversation.
type ContentBlockView struct {
	Type string
	Text string
}

// ExchangeView is one prompt/response pair of a peeked conversation.
type ExchangeView struct {
	PromptTimestamp string
	Prompt          []ContentBlockView
	Response        []ContentBlockView
	ToolCalls       []ToolCallView
}

// ToolCallView is one rendered tool call.
type ToolCallView struct {
	ToolName string
	Status   string
	Result   string
}

// ConversationView is the view model for `siftd query <id>`/`siftd peek`.
type ConversationView struct {
	ID            string
	Harness       string
	Workspace     string
	Model         string
	StartedAt     string
	EndedAt       string
	Tags          []string
	Exchanges     []ExchangeView
}

// AdapterView is one row of `siftd adapters`.
type AdapterView struct {
	Name                      string
	HarnessSource             string
	DedupStrategy             string
	SupportsLiveRegistration  bool
	Origin                    string
}

// Formatter renders every read-only command's output, either for a
// human terminal or as structured data. The two built-ins below cover
// `search.formatter` = "default" | "json"; Get resolves only these two,
// and no formatter is loaded from the formatters drop-in directory.
type Formatter interface {
	Name() string
	FormatSearch(w io.Writer, out *retrieval.Output) error
	FormatStatus(w io.Writer, st Status) error
	FormatDoctor(w io.Writer, findings []doctor.Finding) error
	FormatTags(w io.Writer, tags []TagCount) error
	FormatTools(w io.Writer, tools []ToolCount) error
	FormatConversation(w io.Writer, conv ConversationView) error
	FormatAdapters(w io.Writer, adapters []AdapterView) error
}

var registry = map[string]func() Formatter{
	"default": func() Formatter { return NewTextFormatter() },
	"json":    func() Formatter { return NewJSONFormatter() },
}

// Get resolves a formatter by name (spec.md `search.formatter` config
// key / `--json` flag), defaulting to "default" for an unknown or
// empty name rather than erroring — an unrecognized formatter name is
// a config typo, not grounds to abort a read-only command.
func Get(name string) Formatter {
	if f, ok := registry[name]; ok {
		return f()
	}
	return NewTextFormatter()
}
