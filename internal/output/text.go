package output

import (
	"fmt"
	"io"
	"strings"

	"charm.land/glamour/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/kgruel/siftd-sub000/internal/doctor"
	"github.com/kgruel/siftd-sub000/internal/retrieval"
)

// Styles grounded on cmd/bd-examples/main.go's adaptive-color palette:
// one style per semantic meaning (good/warn/bad/muted/accent), reused
// here for search scores, doctor severities, and section headers.
var (
	scoreStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"})
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"})
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"})
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"})
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"})
	headerStyle = lipgloss.NewStyle().Bold(true)
)

// textFormatter is the default human-readable terminal formatter.
type textFormatter struct{}

// NewTextFormatter returns the "default" formatter.
func NewTextFormatter() Formatter { return textFormatter{} }

func (textFormatter) Name() string { return "default" }

func (textFormatter) FormatSearch(w io.Writer, out *retrieval.Output) error {
	if len(out.Results) == 0 && len(out.Conversations) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No results"))
		return nil
	}
	for i, r := range out.Results {
		fmt.Fprintf(w, "%s %s  %s\n", headerStyle.Render(fmt.Sprintf("[%d]", i+1)), scoreStyle.Render(fmt.Sprintf("%.3f", r.Score)), accentStyle.Render(r.ConversationID))
		if r.WorkspacePath != "" {
			fmt.Fprintf(w, "    %s\n", mutedStyle.Render(r.WorkspacePath))
		}
		fmt.Fprintln(w, "    "+truncate(oneLine(r.Text), 200))
		if len(r.FileReferences) > 0 {
			fmt.Fprintf(w, "    %s %s\n", mutedStyle.Render("files:"), strings.Join(r.FileReferences, ", "))
		}
	}
	for i, c := range out.Conversations {
		fmt.Fprintf(w, "%s %s  %s  (%d chunks, mean %.3f)\n", headerStyle.Render(fmt.Sprintf("[%d]", i+1)), scoreStyle.Render(fmt.Sprintf("%.3f", c.MaxScore)), accentStyle.Render(c.ConversationID), c.ChunkCount, c.MeanScore)
		if c.WorkspacePath != "" {
			fmt.Fprintf(w, "    %s\n", mutedStyle.Render(c.WorkspacePath))
		}
		fmt.Fprintln(w, "    "+truncate(oneLine(c.BestExcerpt), 200))
	}
	return nil
}

func (textFormatter) FormatStatus(w io.Writer, st Status) error {
	fmt.Fprintf(w, "%s %s\n", headerStyle.Render("database:"), st.DBPath)
	fmt.Fprintf(w, "%s %s\n", headerStyle.Render("embeddings:"), st.EmbeddingsDBPath)
	fmt.Fprintf(w, "%s %d  %s %d  %s %d  %s %d\n",
		headerStyle.Render("conversations"), st.Conversations,
		headerStyle.Render("prompts"), st.Prompts,
		headerStyle.Render("responses"), st.Responses,
		headerStyle.Render("tool_calls"), st.ToolCalls)
	fmt.Fprintf(w, "%s %d  %s %d  %s %d\n",
		headerStyle.Render("ingested_files"), st.IngestedFiles,
		headerStyle.Render("pending_tags"), st.PendingTags,
		headerStyle.Render("active_sessions"), st.ActiveSessions)
	if st.IndexBackend != "" {
		fmt.Fprintf(w, "%s %d chunks (%s/%s)\n", headerStyle.Render("indexed:"), st.IndexedChunks, st.IndexBackend, st.IndexModel)
	} else {
		fmt.Fprintf(w, "%s %d chunks\n", headerStyle.Render("indexed:"), st.IndexedChunks)
	}
	if len(st.TopWorkspaces) > 0 {
		fmt.Fprintln(w, headerStyle.Render("top workspaces:"))
		for _, ws := range st.TopWorkspaces {
			fmt.Fprintf(w, "  %-6d %s\n", ws.Count, ws.Path)
		}
	}
	if len(st.TopTools) > 0 {
		fmt.Fprintln(w, headerStyle.Render("top tools:"))
		for _, t := range st.TopTools {
			fmt.Fprintf(w, "  %-6d %s\n", t.Count, t.Name)
		}
	}
	return nil
}

func severityStyle(sev doctor.Severity) lipgloss.Style {
	switch sev {
	case doctor.SeverityError:
		return errStyle
	case doctor.SeverityWarning:
		return warnStyle
	default:
		return mutedStyle
	}
}

func (textFormatter) FormatDoctor(w io.Writer, findings []doctor.Finding) error {
	if len(findings) == 0 {
		fmt.Fprintln(w, scoreStyle.Render("all checks passed"))
		return nil
	}
	for _, f := range findings {
		fmt.Fprintf(w, "%s %s: %s\n", severityStyle(f.Severity).Render(strings.ToUpper(string(f.Severity))), headerStyle.Render(f.Check), f.Message)
		if f.FixAvailable && f.FixCommand != "" {
			fmt.Fprintf(w, "    %s %s\n", mutedStyle.Render("fix:"), f.FixCommand)
		}
	}
	return nil
}

func (textFormatter) FormatTags(w io.Writer, tags []TagCount) error {
	for _, t := range tags {
		fmt.Fprintf(w, "%-6d %s\n", t.Count, t.Name)
	}
	return nil
}

func (textFormatter) FormatTools(w io.Writer, tools []ToolCount) error {
	for _, t := range tools {
		fmt.Fprintf(w, "%-6d %s\n", t.Count, t.Name)
	}
	return nil
}

func (textFormatter) FormatAdapters(w io.Writer, adapters []AdapterView) error {
	for _, a := range adapters {
		live := ""
		if a.SupportsLiveRegistration {
			live = " live"
		}
		fmt.Fprintf(w, "%-16s %-10s dedup=%-8s origin=%s%s\n", a.Name, a.HarnessSource, a.DedupStrategy, a.Origin, live)
	}
	return nil
}

// FormatConversation renders a peeked conversation as markdown through
// glamour, the way `siftd peek`'s output is meant to read like a chat
// transcript rather than a flat field dump.
func (textFormatter) FormatConversation(w io.Writer, conv ConversationView) error {
	var md strings.Builder
	fmt.Fprintf(&md, "# %s\n\n", conv.ID)
	fmt.Fprintf(&md, "- harness: %s\n- workspace: %s\n- model: %s\n- started: %s\n- ended: %s\n",
		conv.Harness, conv.Workspace, conv.Model, conv.StartedAt, conv.EndedAt)
	if len(conv.Tags) > 0 {
		fmt.Fprintf(&md, "- tags: %s\n", strings.Join(conv.Tags, ", "))
	}
	md.WriteString("\n")
	for _, ex := range conv.Exchanges {
		fmt.Fprintf(&md, "### %s\n\n", ex.PromptTimestamp)
		for _, b := range ex.Prompt {
			fmt.Fprintf(&md, "**user** (%s):\n\n%s\n\n", b.Type, b.Text)
		}
		for _, b := range ex.Response {
			fmt.Fprintf(&md, "**assistant** (%s):\n\n%s\n\n", b.Type, b.Text)
		}
		for _, tc := range ex.ToolCalls {
			fmt.Fprintf(&md, "> tool `%s` (%s): %s\n\n", tc.ToolName, tc.Status, truncate(oneLine(tc.Result), 300))
		}
	}

	rendered, err := glamour.Render(md.String(), "auto")
	if err != nil {
		// glamour failing (e.g. no terminal) degrades to plain markdown
		// rather than losing the conversation's content.
		_, werr := io.WriteString(w, md.String())
		return werr
	}
	_, err = io.WriteString(w, rendered)
	return err
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
