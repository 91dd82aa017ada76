// Package claudecode adapts Claude Code's NDJSON session transcripts
// (one file per session under ~/.claude/projects/<project>/<session>.jsonl)
// into domain.Conversations. Each line is a message event: a "user" line
// carries the human turn's content blocks, an "assistant" line carries
// the model's content blocks including tool_use, and a "tool_result"-
// bearing user line answers a prior tool_use by id — paired via
// adapter.ToolCallLinker.
package claudecode

import (
	"fmt"
	"time"

	"github.com/kgruel/siftd-sub000/internal/adapter"
	"github.com/kgruel/siftd-sub000/internal/domain"
	"github.com/kgruel/siftd-sub000/internal/idgen"
)

const (
	name                 = "claudecode"
	harnessSource        = "anthropic"
	harnessLogFormat     = "ndjson"
	harnessDisplayName   = "Claude Code"
	interfaceVersion     = adapter.CurrentInterfaceVersion
)

var defaultLocations = []string{"~/.claude/projects/**/*.jsonl"}

// Adapter implements adapter.Adapter for Claude Code session logs.
type Adapter struct{}

// New returns a fresh Claude Code adapter instance.
func New() adapter.Adapter { return &Adapter{} }

func (Adapter) Name() string                     { return name }
func (Adapter) InterfaceVersion() int             { return interfaceVersion }
func (Adapter) DefaultLocations() []string        { return defaultLocations }
func (Adapter) DedupStrategy() adapter.DedupStrategy { return adapter.DedupByFile }
func (Adapter) HarnessSource() string             { return harnessSource }
func (Adapter) HarnessLogFormat() string          { return harnessLogFormat }
func (Adapter) SupportsLiveRegistration() bool    { return true }

func (a Adapter) Discover(locations []string) ([]adapter.Source, error) {
	return adapter.GlobDiscover(locations, a.DefaultLocations())
}

func (Adapter) CanHandle(src adapter.Source) bool {
	return len(src.Path) > len(".jsonl") && src.Path[len(src.Path)-len(".jsonl"):] == ".jsonl"
}

func parseTimestamp(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func asString(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Parse reads one session file and emits a single conversation: one
// Prompt per "user" message (each paired with the assistant messages
// that follow until the next user message), with tool_use/tool_result
// blocks linked across turns by the shared ToolCallLinker.
func (a Adapter) Parse(src adapter.Source) ([]*domain.Conversation, error) {
	sessionID := src.Path
	conv := &domain.Conversation{
		ExternalID: idgen.ExternalID(name, sessionID, "session"),
	}

	var prompts []*domain.Prompt
	var cur *domain.Prompt
	var curResponse *domain.Response
	linker := adapter.NewToolCallLinker()
	var timestamps []time.Time

	err := adapter.LoadNDJSON(src.Path, func(lineNo int, record map[string]any) error {
		role := asString(record, "role")
		ts := parseTimestamp(record["timestamp"])
		if !ts.IsZero() {
			timestamps = append(timestamps, ts)
		}

		blocks, _ := record["content"].([]any)

		switch role {
		case "user":
			cur = &domain.Prompt{
				Index:     len(prompts),
				Timestamp: ts,
			}
			for i, raw := range blocks {
				b, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				blockType := asString(b, "type")
				if blockType == "tool_result" {
					if id := asString(b, "tool_use_id"); id != "" {
						linker.AddResult(id, b)
					}
					continue
				}
				cur.Content = append(cur.Content, domain.ContentBlock{
					Index: i,
					Type:  domain.BlockText,
					Text:  asString(b, "text"),
					Raw:   b,
				})
			}
			prompts = append(prompts, cur)
			curResponse = nil

		case "assistant":
			if cur == nil {
				return nil // assistant turn before any user turn; skip
			}
			curResponse = &domain.Response{Timestamp: ts}
			for i, raw := range blocks {
				b, ok := raw.(map[string]any)
				if !ok {
					continue
				}
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
			if usage, ok := record["usage"].(map[string]any); ok {
				if v, ok := usage["input_tokens"].(float64); ok {
					curResponse.Usage.InputTokens = int(v)
				}
				if v, ok := usage["output_tokens"].(float64); ok {
					curResponse.Usage.OutputTokens = int(v)
				}
			}
			cur.Responses = append(cur.Responses, curResponse)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing claude code session %s: %w", src.Path, err)
	}

	for _, pair := range linker.Pairs() {
		if !pair.HasResult {
			continue
		}
		for _, p := range prompts {
			for _, r := range p.Responses {
				for i := range r.ToolCalls {
					if r.ToolCalls[i].ExternalID == pair.ID {
						r.ToolCalls[i].Status = domain.ToolCallSuccess
						r.ToolCalls[i].Result = asString(pair.Result, "text")
					}
				}
			}
		}
	}

	if len(prompts) == 0 {
		return nil, nil
	}
	conv.Prompts = prompts
	conv.StartedAt, conv.EndedAt = adapter.TimestampBounds(timestamps)
	return []*domain.Conversation{conv}, nil
}
