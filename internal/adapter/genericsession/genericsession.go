// Package genericsession adapts harnesses that persist sessions in a
// simple SQLite key-value store (a "sessions" table of session_id ->
// JSON blob) rather than a log file per conversation. It is the
// catch-all adapter for harnesses with no dedicated integration:
// dedup is by session (not file), since a single store file holds many
// sessions that each get appended to independently, and it declares
// live-registration support since such harnesses typically expose a
// "current session id" the way Claude Code/Codex CLI do.
package genericsession

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kgruel/siftd-sub000/internal/adapter"
	"github.com/kgruel/siftd-sub000/internal/domain"
	"github.com/kgruel/siftd-sub000/internal/idgen"
)

const (
	name               = "genericsession"
	harnessSource      = "generic"
	harnessLogFormat   = "sqlite-kv"
	harnessDisplayName = "Generic Session Store"
)

var defaultLocations = []string{"~/.local/share/*/sessions.db", "~/.config/*/sessions.db"}

// Adapter implements adapter.Adapter for generic SQLite-kv session
// stores.
type Adapter struct{}

// New returns a fresh generic-session adapter instance.
func New() adapter.Adapter { return &Adapter{} }

func (Adapter) Name() string                        { return name }
func (Adapter) InterfaceVersion() int                { return adapter.CurrentInterfaceVersion }
func (Adapter) DefaultLocations() []string           { return defaultLocations }
func (Adapter) DedupStrategy() adapter.DedupStrategy  { return adapter.DedupBySession }
func (Adapter) HarnessSource() string                { return harnessSource }
func (Adapter) HarnessLogFormat() string             { return harnessLogFormat }
func (Adapter) SupportsLiveRegistration() bool       { return true }

func (a Adapter) Discover(locations []string) ([]adapter.Source, error) {
	return adapter.GlobDiscover(locations, a.DefaultLocations())
}

func (Adapter) CanHandle(src adapter.Source) bool {
	db, err := sql.Open("sqlite", "file:"+src.Path+"?mode=ro")
	if err != nil {
		return false
	}
	defer db.Close()
	var n int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'sessions'`).Scan(&n)
	return err == nil && n > 0
}

// sessionPayload is the generic JSON shape a "sessions" table's value
// column is expected to hold: a minimal prompt/response list with no
// harness-specific structure, suited to any harness that merely logs
// turn text without rich content blocks.
type sessionPayload struct {
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at"`
	Turns     []struct {
		PromptText   string `json:"prompt_text"`
		ResponseText string `json:"response_text"`
		Timestamp    string `json:"timestamp"`
	} `json:"turns"`
}

func parseRFC3339(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Parse opens the sessions table and yields one conversation per row.
func (a Adapter) Parse(src adapter.Source) ([]*domain.Conversation, error) {
	db, err := sql.Open("sqlite", "file:"+src.Path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening generic session store %s: %w", src.Path, err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT session_id, value FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("querying sessions table in %s: %w", src.Path, err)
	}
	defer rows.Close()

	var out []*domain.Conversation
	for rows.Next() {
		var sessionID, value string
		if err := rows.Scan(&sessionID, &value); err != nil {
			return nil, fmt.Errorf("scanning session row in %s: %w", src.Path, err)
		}

		var payload sessionPayload
		if err := json.Unmarshal([]byte(value), &payload); err != nil {
			continue // malformed row; skip, don't abort the batch
		}

		conv := &domain.Conversation{
			ExternalID: idgen.ExternalID(name, sessionID, "session"),
			StartedAt:  parseRFC3339(payload.StartedAt),
			EndedAt:    parseRFC3339(payload.EndedAt),
		}
		for i, turn := range payload.Turns {
			ts := parseRFC3339(turn.Timestamp)
			prompt := &domain.Prompt{
				Index:     i,
				Timestamp: ts,
				Content:   []domain.ContentBlock{{Index: 0, Type: domain.BlockText, Text: turn.PromptText}},
			}
			if turn.ResponseText != "" {
				prompt.Responses = append(prompt.Responses, &domain.Response{
					Timestamp: ts,
					Content:   []domain.ContentBlock{{Index: 0, Type: domain.BlockText, Text: turn.ResponseText}},
				})
			}
			conv.Prompts = append(conv.Prompts, prompt)
		}
		if len(conv.Prompts) > 0 {
			out = append(out, conv)
		}
	}
	return out, rows.Err()
}
