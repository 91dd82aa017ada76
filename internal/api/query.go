package api

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/kgruel/siftd-sub000/internal/config"
	"github.com/kgruel/siftd-sub000/internal/index"
	"github.com/kgruel/siftd-sub000/internal/output"
	"github.com/kgruel/siftd-sub000/internal/retrieval"
)

// SavedQuery is the shape a `siftd copy query` scaffold produces: a
// fixed subset of retrieval.Options a user can hand-tune without
// writing Go, backing `siftd query sql <name>`.
type SavedQuery struct {
	Query string `toml:"query"`
	Mode  string `toml:"mode"`
	Limit int    `toml:"limit"`
}

// LoadSavedQuery reads a saved query TOML file from the "queries"
// drop-in directory.
func LoadSavedQuery(name string) (SavedQuery, error) {
	dir, err := Path("queries")
	if err != nil {
		return SavedQuery{}, err
	}
	path := filepath.Join(dir, name+".toml")
	var q SavedQuery
	if _, err := toml.DecodeFile(path, &q); err != nil {
		return SavedQuery{}, fmt.Errorf("loading saved query %s: %w", path, err)
	}
	return q, nil
}

// Search runs the hybrid retrieval pipeline, opening the embeddings
// store and backend on demand (spec.md §4.6).
func (c *Client) Search(ctx context.Context, opts retrieval.Options) (*retrieval.Output, error) {
	es, err := c.EmbedDB("")
	if err != nil {
		return nil, fmt.Errorf("opening embeddings store: %w", err)
	}
	backendName, model := "", ""
	if m, err := es.Meta("backend"); err == nil {
		backendName = m
	}
	if m, err := es.Meta("model"); err == nil {
		model = m
	}
	if backendName == "" {
		backendName = config.GetString("embed.backend")
	}
	backend, err := Backend(backendName, model)
	if err != nil {
		return nil, err
	}
	return retrieval.Run(ctx, c.Store, es, backend, opts)
}

// Index builds or incrementally refreshes the embeddings store.
func (c *Client) Index(ctx context.Context, opts index.Options) (index.Result, error) {
	es, err := c.EmbedDB("")
	if err != nil {
		return index.Result{}, fmt.Errorf("opening embeddings store: %w", err)
	}
	return index.Run(ctx, c.Store, es, opts)
}

// Query fetches one conversation's full transcript for `siftd query
// <id>`/`siftd peek`, assembling it directly into the output view
// model so cmd never touches internal/store.
func (c *Client) Query(ctx context.Context, conversationID string) (output.ConversationView, error) {
	det, err := c.Store.GetConversation(ctx, conversationID)
	if err != nil {
		return output.ConversationView{}, err
	}
	tags, err := listTags(ctx, c, "conversation", conversationID)
	if err != nil {
		return output.ConversationView{}, err
	}
	exchanges, err := c.Store.FetchExchanges(ctx, conversationID, nil)
	if err != nil {
		return output.ConversationView{}, err
	}

	view := output.ConversationView{
		ID:        det.ID,
		Harness:   det.HarnessName,
		Workspace: det.Workspace,
		Model:     det.ModelRaw,
		StartedAt: det.StartedAt,
		EndedAt:   det.EndedAt,
		Tags:      tags,
	}
	for _, ex := range exchanges {
		toolCalls, err := c.Store.FetchToolCalls(ctx, ex.PromptID)
		if err != nil {
			return output.ConversationView{}, err
		}
		ev := output.ExchangeView{
			PromptTimestamp: ex.PromptTimestamp,
			Prompt:          []output.ContentBlockView{{Type: "text", Text: ex.PromptText}},
			Response:        []output.ContentBlockView{{Type: "text", Text: ex.ResponseText}},
		}
		for _, tc := range toolCalls {
			result := tc.ResultInline
			if result == "" && tc.ResultHash != "" {
				result = "<blob:" + tc.ResultHash + ">"
			}
			ev.ToolCalls = append(ev.ToolCalls, output.ToolCallView{ToolName: tc.ToolName, Status: tc.Status, Result: result})
		}
		view.Exchanges = append(view.Exchanges, ev)
	}
	return view, nil
}
