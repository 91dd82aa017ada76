package api

import (
	"context"
	"fmt"

	"github.com/kgruel/siftd-sub000/internal/backfill"
)

// Backfill runs one named backfill operation (spec.md §4.11's four
// operations) against the open store, for `siftd backfill <op>`.
func (c *Client) Backfill(ctx context.Context, op string) (backfill.Result, error) {
	switch op {
	case "reparse-cache-tokens":
		return backfill.ReparseCacheTokens(ctx, c.Store)
	case "categorize-shell-tags":
		return backfill.CategorizeShellTags(ctx, c.Store)
	case "tag-derivatives":
		return backfill.TagDerivatives(ctx, c.Store)
	case "filter-binary-content":
		return backfill.FilterBinaryContent(ctx, c.Store)
	default:
		return backfill.Result{}, fmt.Errorf("unknown backfill operation %q", op)
	}
}

// BackfillOperations lists the operation names Backfill accepts, for
// `siftd backfill` with no argument.
func BackfillOperations() []string {
	return []string{"reparse-cache-tokens", "categorize-shell-tags", "tag-derivatives", "filter-binary-content"}
}
