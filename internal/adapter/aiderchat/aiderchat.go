// Package aiderchat adapts Aider's ".aider.chat.history.md" transcript
// files into domain.Conversations. Parsing logic mirrors the original
// Python adapter: a line starting with "# aider chat started at ..."
// opens a new session, "#### " lines are user turns, and any
// non-"#### " text following a user turn is the assistant's reply up to
// the next "#### " line.
package aiderchat

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/kgruel/siftd-sub000/internal/adapter"
	"github.com/kgruel/siftd-sub000/internal/domain"
	"github.com/kgruel/siftd-sub000/internal/idgen"
)

const (
	name               = "aiderchat"
	harnessSource      = "multi"
	harnessLogFormat   = "markdown"
	harnessDisplayName = "Aider"
)

var defaultLocations = []string{"**/.aider.chat.history.md"}

// Adapter implements adapter.Adapter for Aider chat history files.
type Adapter struct{}

// New returns a fresh Aider chat-history adapter instance.
func New() adapter.Adapter { return &Adapter{} }

func (Adapter) Name() string                        { return name }
func (Adapter) InterfaceVersion() int                { return adapter.CurrentInterfaceVersion }
func (Adapter) DefaultLocations() []string           { return defaultLocations }
func (Adapter) DedupStrategy() adapter.DedupStrategy  { return adapter.DedupByFile }
func (Adapter) HarnessSource() string                { return harnessSource }
func (Adapter) HarnessLogFormat() string             { return harnessLogFormat }
func (Adapter) SupportsLiveRegistration() bool       { return false }

func (a Adapter) Discover(locations []string) ([]adapter.Source, error) {
	return adapter.GlobDiscover(locations, a.DefaultLocations())
}

func (Adapter) CanHandle(src adapter.Source) bool {
	return filepath.Base(src.Path) == ".aider.chat.history.md"
}

var sessionHeader = regexp.MustCompile(`(?m)^# aider chat started at (\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})`)

func parseSessionTimestamp(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Parse splits the file into sessions by header line and emits one
// conversation per session with at least one user message.
func (a Adapter) Parse(src adapter.Source) ([]*domain.Conversation, error) {
	raw, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, fmt.Errorf("reading aider chat history %s: %w", src.Path, err)
	}
	text := string(raw)

	matches := sessionHeader.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil, nil
	}

	var conversations []*domain.Conversation
	stem := strings.TrimSuffix(filepath.Base(src.Path), filepath.Ext(src.Path))

	for i, m := range matches {
		start := m[1]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		sessionText := strings.TrimSpace(text[start:end])
		if sessionText == "" {
			continue
		}
		timestampStr := text[m[2]:m[3]]
		ts := parseSessionTimestamp(timestampStr)
		externalID := idgen.ExternalID(name, stem, timestampStr)

		conv := &domain.Conversation{
			ExternalID: externalID,
			StartedAt:  ts,
		}
		parseMarkdownMessages(sessionText, conv)
		if len(conv.Prompts) > 0 {
			conv.EndedAt = ts
			conversations = append(conversations, conv)
		}
	}
	return conversations, nil
}

func parseMarkdownMessages(text string, conv *domain.Conversation) {
	lines := strings.Split(text, "\n")
	var role string
	var buf []string
	var cur *domain.Prompt

	flush := func() {
		if len(buf) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(buf, "\n"))
		if content == "" {
			return
		}
		switch role {
		case "user":
			cur = &domain.Prompt{
				Index:   len(conv.Prompts),
				Content: []domain.ContentBlock{{Index: 0, Type: domain.BlockText, Text: content}},
			}
			conv.Prompts = append(conv.Prompts, cur)
		case "assistant":
			if cur != nil {
				cur.Responses = append(cur.Responses, &domain.Response{
					Content: []domain.ContentBlock{{Index: 0, Type: domain.BlockText, Text: content}},
				})
			}
		}
	}

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "#### "):
			flush()
			role = "user"
			buf = []string{strings.TrimPrefix(line, "#### ")}
		case role == "user":
			flush()
			role = "assistant"
			buf = []string{line}
		case role == "assistant":
			buf = append(buf, line)
		default:
			continue
		}
	}
	flush()
}
