// Package adapter defines the harness-adapter contract (spec.md §4.1)
// and the shared SDK helpers every concrete adapter builds on: a
// glob-based discoverer, an NDJSON loader with line-numbered parse
// errors, a timestamp-bounds scanner, and a ToolCallLinker pairing
// tool_use/tool_result blocks across messages.
package adapter

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kgruel/siftd-sub000/internal/domain"
)

// Source is one discoverable unit an adapter can parse: a log file for
// file-strategy adapters, or a session record for session-strategy ones.
type Source struct {
	Path    string
	ModTime time.Time
}

// DedupStrategy is spec.md §4.1's DEDUP_STRATEGY.
type DedupStrategy string

const (
	DedupByFile    DedupStrategy = "file"
	DedupBySession DedupStrategy = "session"
)

// Adapter is the contract every harness integration implements
// (spec.md §4.1). Field-style metadata becomes methods since Go has no
// module-level constant attributes to mirror Python's.
type Adapter interface {
	Name() string
	InterfaceVersion() int
	DefaultLocations() []string
	DedupStrategy() DedupStrategy
	HarnessSource() string
	HarnessLogFormat() string
	SupportsLiveRegistration() bool
	Discover(locations []string) ([]Source, error)
	CanHandle(src Source) bool
	Parse(src Source) ([]*domain.Conversation, error)
}

// CurrentInterfaceVersion is the interface version this package
// validates adapters against (spec.md §4.1).
const CurrentInterfaceVersion = 1

// GlobDiscover is the shared glob-based discoverer: it expands each
// pattern in locations (or defaults if locations is empty) and returns
// a Source per matching regular file.
func GlobDiscover(locations, defaults []string) ([]Source, error) {
	patterns := locations
	if len(patterns) == 0 {
		patterns = defaults
	}
	var out []Source
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("globbing %q: %w", pattern, err)
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			out = append(out, Source{Path: m, ModTime: info.ModTime()})
		}
	}
	return out, nil
}

// NDJSONLineError reports a line-numbered parse failure (spec.md §4.1
// "NDJSON loader with line-numbered parse errors").
type NDJSONLineError struct {
	Path string
	Line int
	Err  error
}

func (e *NDJSONLineError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
}

func (e *NDJSONLineError) Unwrap() error { return e.Err }

// LoadNDJSON reads path line by line, unmarshaling each non-blank line
// as JSON into a map. A malformed line is passed to fn with a nil
// record and does not stop the scan unless fn returns an error; once
// the whole file has been read, the first decode failure is returned
// wrapped in *NDJSONLineError. Callers may choose to abort on first
// error (by returning one from fn) or collect all of them.
func LoadNDJSON(path string, fn func(lineNo int, record map[string]any) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	var firstErr error
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record map[string]any
		if err := json.Unmarshal(line, &record); err != nil {
			if ferr := fn(lineNo, nil); ferr != nil {
				return &NDJSONLineError{Path: path, Line: lineNo, Err: ferr}
			}
			if firstErr == nil {
				firstErr = &NDJSONLineError{Path: path, Line: lineNo, Err: err}
			}
			continue
		}
		if err := fn(lineNo, record); err != nil {
			return &NDJSONLineError{Path: path, Line: lineNo, Err: err}
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("scanning %s: %w", path, err)
	}
	return firstErr
}

// TimestampBounds scans a slice of parsed timestamps and returns the
// earliest and latest, or zero values if ts is empty.
func TimestampBounds(ts []time.Time) (start, end time.Time) {
	for _, t := range ts {
		if t.IsZero() {
			continue
		}
		if start.IsZero() || t.Before(start) {
			start = t
		}
		if end.IsZero() || t.After(end) {
			end = t
		}
	}
	return start, end
}

// ToolUsePair is one linked (or unlinked) tool_use/tool_result pair
// produced by ToolCallLinker.
type ToolUsePair struct {
	ID         string
	Use        map[string]any
	Result     map[string]any // nil if unmatched
	HasResult  bool
}

// ToolCallLinker pairs tool_use blocks with their later tool_result
// blocks by id, across however many messages separate them (spec.md
// §4.1). order is an append-only list of use ids so Pending() preserves
// first-seen order for unmatched calls.
type ToolCallLinker struct {
	order   []string
	uses    map[string]map[string]any
	results map[string]map[string]any
}

// NewToolCallLinker returns an empty linker.
func NewToolCallLinker() *ToolCallLinker {
	return &ToolCallLinker{
		uses:    map[string]map[string]any{},
		results: map[string]map[string]any{},
	}
}

// AddUse records a tool_use block keyed by id.
func (l *ToolCallLinker) AddUse(id string, data map[string]any) {
	if _, seen := l.uses[id]; !seen {
		l.order = append(l.order, id)
	}
	l.uses[id] = data
}

// AddResult records a tool_result block keyed by the id of the use it
// answers.
func (l *ToolCallLinker) AddResult(id string, data map[string]any) {
	l.results[id] = data
}

// Pairs returns every tool_use seen, each with its matched result (or
// nil) in first-use order.
func (l *ToolCallLinker) Pairs() []ToolUsePair {
	out := make([]ToolUsePair, 0, len(l.order))
	for _, id := range l.order {
		result, ok := l.results[id]
		out = append(out, ToolUsePair{ID: id, Use: l.uses[id], Result: result, HasResult: ok})
	}
	return out
}

// Pending returns tool_use blocks with no matching tool_result yet.
func (l *ToolCallLinker) Pending() []ToolUsePair {
	var out []ToolUsePair
	for _, p := range l.Pairs() {
		if !p.HasResult {
			out = append(out, p)
		}
	}
	return out
}
