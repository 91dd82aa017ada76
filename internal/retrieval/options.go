// Package retrieval implements the hybrid search engine (spec.md
// §4.6): FTS keyword recall narrows a candidate set, a dense-vector
// cosine reranker scores it, optional MMR reranking diversifies the
// top results, and a final mode stage either keeps the earliest strong
// hit (first), groups by conversation (conversations), or trims the
// chunk-level list (default, thread, context, full). Stage naming in file and
// function names mirrors spec.md §4.6's own stage letters (A-H) so the
// ordering is traceable end to end.
package retrieval

// Mode selects Stage G's post-processing behavior.
type Mode string

const (
	ModeDefault       Mode = "default"
	ModeFirst         Mode = "first"
	ModeConversations Mode = "conversations"
	ModeThread        Mode = "thread"
	ModeContext       Mode = "context"
	ModeFull          Mode = "full"
)

// Role restricts Stage C's candidate source_ids.
type Role string

const (
	RoleAny       Role = ""
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TagFilter is one tag-matching clause; prefix matching applies when
// Name ends in ":" (spec.md §4.6 Stage A).
type TagFilter struct {
	Name string
}

// Options configures a single Run call (spec.md §4.6's filter knobs).
type Options struct {
	Query     string
	Workspace string // substring match against workspaces.path
	Model     string // substring match against models.raw_name
	Since     string // ISO date, inclusive
	Before    string // ISO date, exclusive

	TagsAny  []string // OR: -l
	TagsAll  []string // AND: --all-tags
	TagsNone []string // NOT: --no-tag

	IncludeActive     bool // opt out of excluding active_conversation_ids
	IncludeDerivative bool // opt out of excluding siftd:derivative

	Role Role

	Semantic     bool // skip Stage B, go straight to vector search
	NoDiversity  bool // skip Stage E
	MMRLambda    float64
	Threshold    float64 // Stage F cutoff; 0 = no threshold
	Mode         Mode
	Limit        int // final result count; 0 = no trim, return all (spec.md §8 property #12)
	RecallLimit  int // Stage B's FTS recall limit
}

// DefaultMMRLambda is spec.md §4.6 Stage E's default λ.
const DefaultMMRLambda = 0.7

// DefaultLimit is the CLI's --limit flag default (cmd/siftd/search.go);
// a caller that leaves Options.Limit at its Go zero value gets "0=all"
// the same as an explicit --limit 0, matching the original's own
// "-n/--limit … (0=all)" (original_source/src/siftd/cli_query.py:500).
const DefaultLimit = 10

// DefaultRecallLimit bounds Stage B's FTS recall set size.
const DefaultRecallLimit = 200

// isUnlimited reports whether Stage G's final trim should be skipped
// entirely: an explicit Limit of 0 means "all" (spec.md §8 property #12).
func (o Options) isUnlimited() bool {
	return o.Limit == 0
}

// limit returns the final result count, clamped away from zero so
// widening-stage math (searchLimit/mmrLimit) never multiplies by zero.
// Callers performing the actual Stage G trim must check isUnlimited
// first rather than relying on this return value.
func (o Options) limit() int {
	if o.Limit > 0 {
		return o.Limit
	}
	return DefaultLimit
}

func (o Options) mmrLambda() float64 {
	if o.MMRLambda > 0 {
		return o.MMRLambda
	}
	return DefaultMMRLambda
}

func (o Options) recallLimit() int {
	if o.RecallLimit > 0 {
		return o.RecallLimit
	}
	return DefaultRecallLimit
}

func (o Options) mode() Mode {
	if o.Mode == "" {
		return ModeDefault
	}
	return o.Mode
}

// searchLimit implements Stage D's widening rule: modes that filter
// post-hoc need a larger vector-search pool than the final answer size.
// An unlimited (Limit==0) query widens to the full Stage B recall pool
// instead of multiplying a zero limit.
func (o Options) searchLimit() int {
	if o.isUnlimited() {
		return o.recallLimit()
	}
	limit := o.limit()
	switch o.mode() {
	case ModeThread:
		return 40
	case ModeFirst, ModeConversations:
		return 10 * limit
	}
	if !o.NoDiversity {
		return 3 * limit
	}
	return limit
}

// mmrLimit implements Stage E's widening rule (same factor as Stage D
// for first/conversations modes, otherwise the plain limit).
func (o Options) mmrLimit() int {
	if o.isUnlimited() {
		return o.recallLimit()
	}
	limit := o.limit()
	switch o.mode() {
	case ModeFirst, ModeConversations:
		return 10 * limit
	}
	return limit
}
