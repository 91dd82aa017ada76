// Package doctor implements the uniform health-check system (spec.md
// §4.10): a registry of named checks, each declaring its cost and data
// requirements, each producing a list of Findings. Doctor never
// executes a fix itself; a Finding only advertises the command a user
// would run. The Finding shape (name/status/message/detail/fix) is
// grounded on beads' cmd/bd/doctor.DoctorCheck; Severity here replaces
// beads' bare status string with an enum since doctor --strict
// (spec.md §6.2) needs to distinguish warning from error programmatically.
package doctor

import (
	"context"
	"fmt"

	"github.com/kgruel/siftd-sub000/internal/adapter"
	"github.com/kgruel/siftd-sub000/internal/embedstore"
	"github.com/kgruel/siftd-sub000/internal/store"
)

// Severity is a Finding's urgency.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Cost is a check's declared running cost, used by `doctor run` to
// decide whether to include it by default versus only on request.
type Cost string

const (
	CostFast Cost = "fast"
	CostSlow Cost = "slow"
)

// Finding is one diagnostic result (spec.md §4.10).
type Finding struct {
	Check        string         `json:"check"`
	Severity     Severity       `json:"severity"`
	Message      string         `json:"message"`
	FixAvailable bool           `json:"fix_available"`
	FixCommand   string         `json:"fix_command,omitempty"`
	Context      map[string]any `json:"context,omitempty"`
}

// Deps is what a Check's Run receives; fields are nil unless the
// check's RequiresDB/RequiresEmbedDB flags are honored by the caller.
type Deps struct {
	Store      *store.Store
	EmbedStore *embedstore.Store
	Registry   *adapter.Registry
}

// Check is one diagnostic (spec.md §4.10's uniform check system).
type Check interface {
	Name() string
	Description() string
	Cost() Cost
	RequiresDB() bool
	RequiresEmbedDB() bool
	HasFix() bool
	Run(ctx context.Context, deps Deps) ([]Finding, error)
}

// Registry holds the built-in checks plus any registered by the host
// command, indexed by name so `doctor <check>` can target one.
type Registry struct {
	checks map[string]Check
	order  []string
}

// NewRegistry returns a registry pre-populated with the five built-in
// checks spec.md §4.10 names.
func NewRegistry() *Registry {
	r := &Registry{checks: map[string]Check{}}
	for _, c := range []Check{
		ingestPendingCheck{},
		embeddingsStaleCheck{},
		pricingGapsCheck{},
		dropInsValidCheck{},
		pendingTagsStaleCheck{},
	} {
		r.Register(c)
	}
	return r
}

// Register adds or replaces a check by name.
func (r *Registry) Register(c Check) {
	if _, exists := r.checks[c.Name()]; !exists {
		r.order = append(r.order, c.Name())
	}
	r.checks[c.Name()] = c
}

// All returns every registered check in registration order.
func (r *Registry) All() []Check {
	out := make([]Check, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.checks[name])
	}
	return out
}

// Get returns a single check by name.
func (r *Registry) Get(name string) (Check, bool) {
	c, ok := r.checks[name]
	return c, ok
}

// Run executes every check in checks against deps, collecting findings
// and surfacing per-check errors as error-severity findings rather than
// aborting the whole run (one broken check shouldn't hide the rest).
func Run(ctx context.Context, checks []Check, deps Deps) []Finding {
	var out []Finding
	for _, c := range checks {
		if c.RequiresDB() && deps.Store == nil {
			out = append(out, Finding{Check: c.Name(), Severity: SeverityError, Message: "main store not available"})
			continue
		}
		if c.RequiresEmbedDB() && deps.EmbedStore == nil {
			out = append(out, Finding{Check: c.Name(), Severity: SeverityError, Message: "embeddings store not available"})
			continue
		}
		findings, err := c.Run(ctx, deps)
		if err != nil {
			out = append(out, Finding{Check: c.Name(), Severity: SeverityError, Message: fmt.Sprintf("check failed: %v", err)})
			continue
		}
		out = append(out, findings...)
	}
	return out
}

// HasFailure reports whether any finding is error severity, or warning
// severity when strict is set (spec.md §6.2 "doctor --strict promotes
// warnings to failure").
func HasFailure(findings []Finding, strict bool) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
		if strict && f.Severity == SeverityWarning {
			return true
		}
	}
	return false
}
