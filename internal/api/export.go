package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kgruel/siftd-sub000/internal/output"
)

// Export renders a conversation as JSON or markdown, preserving block
// order (spec.md's dropped `export` command semantics, §C.1).
func (c *Client) Export(ctx context.Context, conversationID, format string) (string, error) {
	view, err := c.Query(ctx, conversationID)
	if err != nil {
		return "", err
	}
	switch format {
	case "json", "":
		data, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	case "markdown", "md":
		return exportMarkdown(view), nil
	default:
		return "", fmt.Errorf("unknown export format %q, want \"json\" or \"markdown\"", format)
	}
}

func exportMarkdown(conv output.ConversationView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", conv.ID)
	fmt.Fprintf(&b, "- harness: %s\n- workspace: %s\n- model: %s\n- started: %s\n- ended: %s\n",
		conv.Harness, conv.Workspace, conv.Model, conv.StartedAt, conv.EndedAt)
	if len(conv.Tags) > 0 {
		fmt.Fprintf(&b, "- tags: %s\n", strings.Join(conv.Tags, ", "))
	}
	b.WriteString("\n")
	for _, ex := range conv.Exchanges {
		fmt.Fprintf(&b, "## %s\n\n", ex.PromptTimestamp)
		for _, block := range ex.Prompt {
			fmt.Fprintf(&b, "**user**:\n\n%s\n\n", block.Text)
		}
		for _, block := range ex.Response {
			fmt.Fprintf(&b, "**assistant**:\n\n%s\n\n", block.Text)
		}
		for _, tc := range ex.ToolCalls {
			fmt.Fprintf(&b, "> `%s` (%s): %s\n\n", tc.ToolName, tc.Status, tc.Result)
		}
	}
	return b.String()
}
