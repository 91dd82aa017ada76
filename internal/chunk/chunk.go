// Package chunk implements the "exchange-window" chunking strategy
// (spec.md §4.6): walk a conversation's exchanges in prompt order,
// grouping adjacent (prompt_text, response_text) pairs into windows
// that target TargetTokens, never exceed MaxTokens, and overlap by
// OverlapTokens with the next window. Short texts pass through
// unchanged.
package chunk

import (
	"strings"

	"github.com/kgruel/siftd-sub000/internal/store"
)

// Options controls window sizing (spec.md defaults: 256/512/25).
type Options struct {
	TargetTokens  int
	MaxTokens     int
	OverlapTokens int
}

// DefaultOptions matches spec.md §4.6's stated defaults.
var DefaultOptions = Options{TargetTokens: 256, MaxTokens: 512, OverlapTokens: 25}

// Window is one chunk-to-be: the concatenated text of one or more
// exchanges, plus the prompt ids it was built from (chunks.source_ids).
type Window struct {
	Text      string
	TokenLen  int
	SourceIDs []string
}

// countTokens approximates token count by whitespace-delimited word
// count. No tokenizer library appears among the retrieved example
// repos' dependencies; this is a deliberate stdlib fallback (see
// DESIGN.md), adjusted by a small constant to leave headroom for a
// model's special tokens the way a real tokenizer-aware splitter would.
func countTokens(s string) int {
	return len(strings.Fields(s)) + 2
}

func exchangeText(ex store.Exchange) string {
	var b strings.Builder
	if ex.PromptText != "" {
		b.WriteString(ex.PromptText)
	}
	if ex.ResponseText != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(ex.ResponseText)
	}
	return b.String()
}

// Windows groups exchanges into token-bounded windows. A single
// exchange exceeding MaxTokens on its own lands unsplit in a window,
// together with any overlap carried over from the previous window
// (short texts passthrough; oversized ones are not further split, left
// for the embedding backend's own truncation).
func Windows(exchanges []store.Exchange, opts Options) []Window {
	var out []Window
	var cur []store.Exchange
	curTokens := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		texts := make([]string, 0, len(cur))
		ids := make([]string, 0, len(cur))
		tokens := 0
		for _, ex := range cur {
			texts = append(texts, exchangeText(ex))
			ids = append(ids, ex.PromptID)
			tokens += countTokens(exchangeText(ex))
		}
		out = append(out, Window{
			Text:      strings.Join(texts, "\n\n"),
			TokenLen:  tokens,
			SourceIDs: ids,
		})
	}

	// carryOverlap takes the just-flushed window and returns the trailing
	// exchanges (in original order) whose combined token count is <=
	// OverlapTokens, to seed the next window with (spec.md §4.5
	// "overlap_tokens (25) between adjacent windows").
	carryOverlap := func(window Window) ([]store.Exchange, int) {
		overlapTokens := 0
		var carry []store.Exchange
		for j := len(window.SourceIDs) - 1; j >= 0; j-- {
			id := window.SourceIDs[j]
			var match store.Exchange
			for _, e := range exchanges {
				if e.PromptID == id {
					match = e
					break
				}
			}
			tk := countTokens(exchangeText(match))
			if overlapTokens+tk > opts.OverlapTokens {
				break
			}
			overlapTokens += tk
			carry = append([]store.Exchange{match}, carry...)
		}
		tokens := 0
		for _, c := range carry {
			tokens += countTokens(exchangeText(c))
		}
		return carry, tokens
	}

	for i := 0; i < len(exchanges); i++ {
		ex := exchanges[i]
		t := countTokens(exchangeText(ex))

		if curTokens > 0 && curTokens+t > opts.MaxTokens {
			flush()
			cur, curTokens = carryOverlap(out[len(out)-1])
		}

		cur = append(cur, ex)
		curTokens += t

		if curTokens >= opts.TargetTokens {
			flush()
			cur, curTokens = nil, 0
			// Only seed the next window with overlap if there is more
			// content coming; otherwise the carried exchanges would
			// flush as a trailing window that just repeats the tail of
			// the one before it.
			if i+1 < len(exchanges) {
				cur, curTokens = carryOverlap(out[len(out)-1])
			}
		}
	}
	flush()

	return out
}
