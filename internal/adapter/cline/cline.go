// Package cline adapts Cline's (the VS Code extension) per-task JSON
// array logs into domain.Conversations. Each task directory under
// Cline's globalStorage holds an "api_conversation_history.json" file
// containing a JSON array of raw Anthropic-format messages — the
// adapter contract's third on-disk shape alongside NDJSON and
// SQLite-kv, read whole rather than line-by-line. tool_use/tool_result
// blocks are linked across messages the same way claudecode's adapter
// links them, via adapter.ToolCallLinker.
package cline

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/kgruel/siftd-sub000/internal/adapter"
	"github.com/kgruel/siftd-sub000/internal/domain"
	"github.com/kgruel/siftd-sub000/internal/idgen"
)

const (
	name               = "cline"
	harnessSource      = "anthropic"
	harnessLogFormat   = "json"
	harnessDisplayName = "Cline"
	historyFileName    = "api_conversation_history.json"
)

var defaultLocations = []string{
	"~/Library/Application Support/Code/User/globalStorage/saoudrizwan.claude-dev/tasks/*/" + historyFileName,
	"~/.config/Code/User/globalStorage/saoudrizwan.claude-dev/tasks/*/" + historyFileName,
}

// Adapter implements adapter.Adapter for Cline task histories.
type Adapter struct{}

// New returns a fresh Cline adapter instance.
func New() adapter.Adapter { return &Adapter{} }

func (Adapter) Name() string                       { return name }
func (Adapter) InterfaceVersion() int               { return adapter.CurrentInterfaceVersion }
func (Adapter) DefaultLocations() []string          { return defaultLocations }
func (Adapter) DedupStrategy() adapter.DedupStrategy { return adapter.DedupByFile }
func (Adapter) HarnessSource() string               { return harnessSource }
func (Adapter) HarnessLogFormat() string            { return harnessLogFormat }
func (Adapter) SupportsLiveRegistration() bool      { return false }

func (a Adapter) Discover(locations []string) ([]adapter.Source, error) {
	return adapter.GlobDiscover(locations, a.DefaultLocations())
}

func (Adapter) CanHandle(src adapter.Source) bool {
	return filepath.Base(src.Path) == historyFileName
}

// loadJSONArray reads path as a top-level JSON array of message
// objects, mirroring the original adapter's _load_json_array: any
// decode failure yields an empty slice rather than an error, since a
// partially-written history file is expected during a live session.
func loadJSONArray(path string) []map[string]any {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var msgs []map[string]any
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil
	}
	return msgs
}

func asString(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func asFloat(m map[string]any, key string) (float64, bool) {
	v, ok := m[key].(float64)
	return v, ok
}

// normalizeContent accepts either a bare string (a plain-text message)
// or a list of typed content blocks, matching the raw Anthropic wire
// format Cline persists verbatim.
func normalizeContent(raw any) []map[string]any {
	switch v := raw.(type) {
	case string:
		return []map[string]any{{"type": "text", "text": v}}
	case []any:
		var out []map[string]any
		for _, item := range v {
			if b, ok := item.(map[string]any); ok {
				out = append(out, b)
			}
		}
		return out
	default:
		return nil
	}
}

// Parse reads one task's api_conversation_history.json and emits a
// single conversation: alternating user/assistant messages in raw
// Anthropic format, with tool_result-bearing user messages resolving a
// prior tool_use by id instead of opening a new prompt.
func (a Adapter) Parse(src adapter.Source) ([]*domain.Conversation, error) {
	messages := loadJSONArray(src.Path)
	if len(messages) == 0 {
		return nil, nil
	}

	taskID := filepath.Base(filepath.Dir(src.Path))
	conv := &domain.Conversation{
		ExternalID: idgen.ExternalID(name, taskID, "task"),
	}

	linker := adapter.NewToolCallLinker()
	var cur *domain.Prompt
	var curResponse *domain.Response

	for _, msg := range messages {
		role := asString(msg, "role")
		blocks := normalizeContent(msg["content"])

		switch role {
		case "user":
			hasToolResult := false
			for _, b := range blocks {
				if asString(b, "type") == "tool_result" {
					hasToolResult = true
					if id := asString(b, "tool_use_id"); id != "" {
						linker.AddResult(id, b)
					}
				}
			}
			if hasToolResult {
				continue
			}
			cur = &domain.Prompt{Index: len(conv.Prompts)}
			for i, b := range blocks {
				if asString(b, "type") == "tool_result" {
					continue
				}
				cur.Content = append(cur.Content, domain.ContentBlock{
					Index: i,
					Type:  domain.BlockText,
					Text:  asString(b, "text"),
					Raw:   b,
				})
			}
			conv.Prompts = append(conv.Prompts, cur)
			curResponse = nil

		case "assistant":
			if cur == nil {
				continue
			}
			curResponse = &domain.Response{Attributes: map[string]any{}}
			if usage, ok := msg["usage"].(map[string]any); ok {
				if v, ok := asFloat(usage, "input_tokens"); ok {
					curResponse.Usage.InputTokens = int(v)
				}
				if v, ok := asFloat(usage, "output_tokens"); ok {
					curResponse.Usage.OutputTokens = int(v)
				}
				if v, ok := asFloat(usage, "cache_creation_input_tokens"); ok && v > 0 {
					curResponse.Attributes["cache_creation_input_tokens"] = v
				}
				if v, ok := asFloat(usage, "cache_read_input_tokens"); ok && v > 0 {
					curResponse.Attributes["cache_read_input_tokens"] = v
				}
			}
			for i, b := range blocks {
				blockType := asString(b, "type")
				if blockType == "tool_use" {
					id := asString(b, "id")
					linker.AddUse(id, b)
					input, _ := b["input"].(map[string]any)
					curResponse.ToolCalls = append(curResponse.ToolCalls, domain.ToolCall{
						ExternalID: id,
						ToolName:   asString(b, "name"),
						Input:      input,
						Status:     domain.ToolCallPending,
					})
					continue
				}
				curResponse.Content = append(curResponse.Content, domain.ContentBlock{
					Index: i,
					Type:  domain.BlockText,
					Text:  asString(b, "text"),
					Raw:   b,
				})
			}
			cur.Responses = append(cur.Responses, curResponse)
		}
	}

	for _, pair := range linker.Pairs() {
		if !pair.HasResult {
			continue
		}
		for _, p := range conv.Prompts {
			for _, r := range p.Responses {
				for i := range r.ToolCalls {
					if r.ToolCalls[i].ExternalID == pair.ID {
						isError := false
						if v, ok := pair.Result["is_error"].(bool); ok {
							isError = v
						}
						if isError {
							r.ToolCalls[i].Status = domain.ToolCallError
						} else {
							r.ToolCalls[i].Status = domain.ToolCallSuccess
						}
						r.ToolCalls[i].Result = asString(pair.Result, "content")
					}
				}
			}
		}
	}

	if len(conv.Prompts) == 0 {
		return nil, nil
	}
	return []*domain.Conversation{conv}, nil
}
