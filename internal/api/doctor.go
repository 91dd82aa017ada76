package api

import (
	"context"
	"fmt"

	"github.com/kgruel/siftd-sub000/internal/doctor"
	"github.com/kgruel/siftd-sub000/internal/session"
)

// doctorDeps builds a fresh Deps per call; it's cheap and keeps Client
// from carrying doctor state it otherwise never uses.
func (c *Client) doctorDeps() doctor.Deps {
	es, _ := c.EmbedDB("")
	return doctor.Deps{Store: c.Store, EmbedStore: es, Registry: c.Registry}
}

// DoctorChecks lists every registered check (`siftd doctor list`).
func (c *Client) DoctorChecks() []doctor.Check {
	return doctor.NewRegistry().All()
}

// Doctor runs either every check (only == "") or a single named one,
// returning its findings (`siftd doctor [run|<check>]`).
func (c *Client) Doctor(ctx context.Context, only string) ([]doctor.Finding, error) {
	reg := doctor.NewRegistry()
	var checks []doctor.Check
	if only == "" {
		checks = reg.All()
	} else {
		check, ok := reg.Get(only)
		if !ok {
			return nil, fmt.Errorf("unknown check %q", only)
		}
		checks = []doctor.Check{check}
	}
	return doctor.Run(ctx, checks, c.doctorDeps()), nil
}

// DoctorFix runs the mutating counterpart of pending-tags-stale
// (spec.md §4.10's `doctor fix`): ingest-pending and embeddings-stale
// are fixed by running `ingest`/`index` directly rather than through
// doctor, so the only fix this applies standalone is the live-session
// staleness sweep.
func (c *Client) DoctorFix(ctx context.Context) (int64, error) {
	return session.CleanupStale(ctx, c.Store)
}
