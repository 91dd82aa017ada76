// Package codexcli adapts OpenAI Codex CLI's NDJSON rollout logs
// (~/.codex/sessions/**/*.jsonl) into domain.Conversations. Each line is
// a typed event; "message" events carry role + content parts
// (input_text/output_text), "function_call"/"function_call_output"
// events carry tool invocations linked by call_id.
package codexcli

import (
	"fmt"
	"time"

	"github.com/kgruel/siftd-sub000/internal/adapter"
	"github.com/kgruel/siftd-sub000/internal/domain"
	"github.com/kgruel/siftd-sub000/internal/idgen"
)

const (
	name               = "codexcli"
	harnessSource      = "openai"
	harnessLogFormat   = "ndjson"
	harnessDisplayName = "Codex CLI"
)

var defaultLocations = []string{"~/.codex/sessions/**/*.jsonl"}

// Adapter implements adapter.Adapter for Codex CLI rollout logs.
type Adapter struct{}

// New returns a fresh Codex CLI adapter instance.
func New() adapter.Adapter { return &Adapter{} }

func (Adapter) Name() string                        { return name }
func (Adapter) InterfaceVersion() int                { return adapter.CurrentInterfaceVersion }
func (Adapter) DefaultLocations() []string           { return defaultLocations }
func (Adapter) DedupStrategy() adapter.DedupStrategy  { return adapter.DedupByFile }
func (Adapter) HarnessSource() string                { return harnessSource }
func (Adapter) HarnessLogFormat() string             { return harnessLogFormat }
func (Adapter) SupportsLiveRegistration() bool       { return true }

func (a Adapter) Discover(locations []string) ([]adapter.Source, error) {
	return adapter.GlobDiscover(locations, a.DefaultLocations())
}

func (Adapter) CanHandle(src adapter.Source) bool {
	return len(src.Path) > len(".jsonl") && src.Path[len(src.Path)-len(".jsonl"):] == ".jsonl"
}

func asString(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
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

// Parse reads one rollout file into a single conversation, pairing
// function_call/function_call_output events by call_id via
// ToolCallLinker the same way claudecode links tool_use/tool_result.
func (a Adapter) Parse(src adapter.Source) ([]*domain.Conversation, error) {
	conv := &domain.Conversation{
		ExternalID: idgen.ExternalID(name, src.Path, "session"),
	}

	var prompts []*domain.Prompt
	var cur *domain.Prompt
	linker := adapter.NewToolCallLinker()
	var timestamps []time.Time

	err := adapter.LoadNDJSON(src.Path, func(lineNo int, record map[string]any) error {
		eventType := asString(record, "type")
		ts := parseTimestamp(record["timestamp"])
		if !ts.IsZero() {
			timestamps = append(timestamps, ts)
		}

		switch eventType {
		case "message":
			role := asString(record, "role")
			parts, _ := record["content"].([]any)
			blocks := make([]domain.ContentBlock, 0, len(parts))
			for i, raw := range parts {
				p, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				blocks = append(blocks, domain.ContentBlock{
					Index: i,
					Type:  domain.BlockText,
					Text:  asString(p, "text"),
					Raw:   p,
				})
			}
			switch role {
			case "user":
				cur = &domain.Prompt{Index: len(prompts), Timestamp: ts, Content: blocks}
				prompts = append(prompts, cur)
			case "assistant":
				if cur == nil {
					return nil
				}
				cur.Responses = append(cur.Responses, &domain.Response{Timestamp: ts, Content: blocks})
			}

		case "function_call":
			if cur == nil || len(cur.Responses) == 0 {
				return nil
			}
			resp := cur.Responses[len(cur.Responses)-1]
			callID := asString(record, "call_id")
			input, _ := record["arguments"].(map[string]any)
			resp.ToolCalls = append(resp.ToolCalls, domain.ToolCall{
				ExternalID: callID,
				ToolName:   asString(record, "name"),
				Input:      input,
				Status:     domain.ToolCallPending,
			})
			linker.AddUse(callID, record)

		case "function_call_output":
			callID := asString(record, "call_id")
			linker.AddResult(callID, record)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing codex cli session %s: %w", src.Path, err)
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
						r.ToolCalls[i].Result = asString(pair.Result, "output")
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
