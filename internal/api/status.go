package api

import (
	"context"

	"github.com/kgruel/siftd-sub000/internal/output"
)

// Status assembles `siftd status`'s view model: row counts across the
// event tables, live-session state, and the embeddings index summary
// when an embeddings store is reachable.
func (c *Client) Status(ctx context.Context) (output.Status, error) {
	var st output.Status
	st.DBPath = c.dbPath

	counts := []struct {
		query string
		dst   *int
	}{
		{`SELECT COUNT(*) FROM conversations`, &st.Conversations},
		{`SELECT COUNT(*) FROM prompts`, &st.Prompts},
		{`SELECT COUNT(*) FROM responses`, &st.Responses},
		{`SELECT COUNT(*) FROM tool_calls`, &st.ToolCalls},
		{`SELECT COUNT(*) FROM ingested_files`, &st.IngestedFiles},
		{`SELECT COUNT(*) FROM pending_tags`, &st.PendingTags},
		{`SELECT COUNT(*) FROM active_sessions`, &st.ActiveSessions},
	}
	for _, cnt := range counts {
		n, err := c.Store.CountRow(ctx, cnt.query)
		if err != nil {
			return output.Status{}, err
		}
		*cnt.dst = n
	}

	workspaces, err := c.Store.FetchTopWorkspaces(ctx, 5)
	if err != nil {
		return output.Status{}, err
	}
	for _, w := range workspaces {
		st.TopWorkspaces = append(st.TopWorkspaces, output.WorkspaceCount{Path: w.Path, Count: w.Count})
	}

	tools, err := c.Store.FetchTopTools(ctx, 5)
	if err != nil {
		return output.Status{}, err
	}
	for _, t := range tools {
		st.TopTools = append(st.TopTools, output.ToolCount{Name: t.Name, Count: t.Count})
	}

	es, err := c.EmbedDB("")
	if err == nil {
		st.EmbeddingsDBPath = c.embedDBPath
		if chunks, err := es.AllChunks(); err == nil {
			st.IndexedChunks = len(chunks)
		}
		st.IndexBackend, _ = es.Meta("backend")
		st.IndexModel, _ = es.Meta("model")
	}

	return st, nil
}
