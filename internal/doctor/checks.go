package doctor

import (
	"context"
	"fmt"
	"time"

	"github.com/kgruel/siftd-sub000/internal/session"
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// ingestPendingCheck reports harnesses with discoverable sources that
// don't yet have a matching ingested_files/conversations row, i.e. an
// `ingest` run is overdue.
type ingestPendingCheck struct{}

func (ingestPendingCheck) Name() string          { return "ingest-pending" }
func (ingestPendingCheck) Description() string   { return "checks for harness sources not yet ingested" }
func (ingestPendingCheck) Cost() Cost            { return CostSlow }
func (ingestPendingCheck) RequiresDB() bool      { return true }
func (ingestPendingCheck) RequiresEmbedDB() bool  { return false }
func (ingestPendingCheck) HasFix() bool          { return true }

func (c ingestPendingCheck) Run(ctx context.Context, deps Deps) ([]Finding, error) {
	if deps.Registry == nil {
		return nil, nil
	}
	var findings []Finding
	for _, ad := range deps.Registry.All() {
		sources, err := ad.Discover(nil)
		if err != nil {
			return nil, fmt.Errorf("discovering sources for %s: %w", ad.Name(), err)
		}
		var pending int
		for _, src := range sources {
			if !ad.CanHandle(src) {
				continue
			}
			var n int
			err := deps.Store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM ingested_files WHERE path = ?`, src.Path).Scan(&n)
			if err != nil {
				return nil, fmt.Errorf("checking ingested_files for %s: %w", src.Path, err)
			}
			if n == 0 {
				pending++
			}
		}
		if pending > 0 {
			findings = append(findings, Finding{
				Check:        c.Name(),
				Severity:     SeverityWarning,
				Message:      fmt.Sprintf("%s has %d source(s) not yet ingested", ad.Name(), pending),
				FixAvailable: true,
				FixCommand:   "siftd ingest",
				Context:      map[string]any{"adapter": ad.Name(), "pending": pending},
			})
		}
	}
	return findings, nil
}

// embeddingsStaleCheck reports conversations with no chunk coverage in
// the embeddings store, i.e. an `index` run is overdue.
type embeddingsStaleCheck struct{}

func (embeddingsStaleCheck) Name() string         { return "embeddings-stale" }
func (embeddingsStaleCheck) Description() string  { return "checks for conversations missing embedding chunks" }
func (embeddingsStaleCheck) Cost() Cost           { return CostSlow }
func (embeddingsStaleCheck) RequiresDB() bool     { return true }
func (embeddingsStaleCheck) RequiresEmbedDB() bool { return true }
func (embeddingsStaleCheck) HasFix() bool         { return true }

func (c embeddingsStaleCheck) Run(ctx context.Context, deps Deps) ([]Finding, error) {
	var total int
	if err := deps.Store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting conversations: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	var indexed int
	err := deps.EmbedStore.DB().QueryRowContext(ctx, `SELECT COUNT(DISTINCT conversation_id) FROM chunks`).Scan(&indexed)
	if err != nil {
		return nil, fmt.Errorf("counting indexed conversations: %w", err)
	}

	if missing := total - indexed; missing > 0 {
		return []Finding{{
			Check:        c.Name(),
			Severity:     SeverityWarning,
			Message:      fmt.Sprintf("%d of %d conversations have no embedding chunks", missing, total),
			FixAvailable: true,
			FixCommand:   "siftd index",
			Context:      map[string]any{"missing": missing, "total": total},
		}}, nil
	}
	return nil, nil
}

// pricingGapsCheck reports models that appear in responses but have no
// matching pricing row, which would leave cost reporting silently zero.
type pricingGapsCheck struct{}

func (pricingGapsCheck) Name() string         { return "pricing-gaps" }
func (pricingGapsCheck) Description() string  { return "checks for models used without a pricing table entry" }
func (pricingGapsCheck) Cost() Cost           { return CostFast }
func (pricingGapsCheck) RequiresDB() bool     { return true }
func (pricingGapsCheck) RequiresEmbedDB() bool { return false }
func (pricingGapsCheck) HasFix() bool         { return false }

func (c pricingGapsCheck) Run(ctx context.Context, deps Deps) ([]Finding, error) {
	rows, err := deps.Store.DB().QueryContext(ctx, `
		SELECT DISTINCT m.raw_name, p.name
		FROM responses r
		JOIN models m ON m.id = r.model_id
		JOIN providers p ON p.id = r.provider_id
		WHERE NOT EXISTS (
			SELECT 1 FROM pricing pr WHERE pr.model = m.raw_name AND pr.provider = p.name
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("querying unpriced models: %w", err)
	}
	defer rows.Close()

	var findings []Finding
	for rows.Next() {
		var model, provider string
		if err := rows.Scan(&model, &provider); err != nil {
			return nil, fmt.Errorf("scanning unpriced model row: %w", err)
		}
		findings = append(findings, Finding{
			Check:    c.Name(),
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("no pricing entry for %s/%s", provider, model),
			Context:  map[string]any{"provider": provider, "model": model},
		})
	}
	return findings, rows.Err()
}

// dropInsValidCheck surfaces adapter-registry load warnings (malformed
// or version-incompatible drop-in plugins) as doctor findings.
type dropInsValidCheck struct{}

func (dropInsValidCheck) Name() string         { return "drop-ins-valid" }
func (dropInsValidCheck) Description() string  { return "checks that drop-in adapter plugins loaded cleanly" }
func (dropInsValidCheck) Cost() Cost           { return CostFast }
func (dropInsValidCheck) RequiresDB() bool     { return false }
func (dropInsValidCheck) RequiresEmbedDB() bool { return false }
func (dropInsValidCheck) HasFix() bool         { return false }

func (c dropInsValidCheck) Run(ctx context.Context, deps Deps) ([]Finding, error) {
	if deps.Registry == nil {
		return nil, nil
	}
	var findings []Finding
	for _, w := range deps.Registry.Warnings() {
		findings = append(findings, Finding{
			Check:    c.Name(),
			Severity: SeverityWarning,
			Message:  w,
		})
	}
	return findings, nil
}

// pendingTagsStaleCheck reports pending_tags rows whose own created_at
// is older than session.DefaultStaleAge, which are likely to sit
// forever with no session left to trigger reconciliation;
// session.CleanupStale (exposed here as the advisory fix) drops pending
// tags past the same cutoff along with stale active_sessions rows.
type pendingTagsStaleCheck struct{}

func (pendingTagsStaleCheck) Name() string         { return "pending-tags-stale" }
func (pendingTagsStaleCheck) Description() string  { return "checks for pending tags older than the session staleness cutoff" }
func (pendingTagsStaleCheck) Cost() Cost           { return CostFast }
func (pendingTagsStaleCheck) RequiresDB() bool     { return true }
func (pendingTagsStaleCheck) RequiresEmbedDB() bool { return false }
func (pendingTagsStaleCheck) HasFix() bool         { return true }

func (c pendingTagsStaleCheck) Run(ctx context.Context, deps Deps) ([]Finding, error) {
	cutoff := time.Now().UTC().Add(-session.DefaultStaleAge).Format(timeLayout)
	var stale int
	err := deps.Store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_tags WHERE created_at < ?`, cutoff).Scan(&stale)
	if err != nil {
		return nil, fmt.Errorf("counting stale pending tags: %w", err)
	}
	if stale == 0 {
		return nil, nil
	}
	return []Finding{{
		Check:        c.Name(),
		Severity:     SeverityWarning,
		Message:      fmt.Sprintf("%d pending tag(s) older than %s with no reconciling session", stale, session.DefaultStaleAge),
		FixAvailable: true,
		FixCommand:   "siftd doctor fix pending-tags-stale",
		Context:      map[string]any{"stale": stale},
	}}, nil
}
