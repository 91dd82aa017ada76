package api

import "context"

// Migrate rebuilds the FTS5 index from the prompt_content and
// response_content text blocks (`siftd migrate`).
// Schema migrations themselves already run on every Open; this is the
// one migration-adjacent operation a user triggers by hand, for a
// store whose FTS table has drifted (e.g. after a manual schema edit
// or a restored backup).
func (c *Client) Migrate(ctx context.Context) error {
	return c.Store.RebuildFTSIndex(ctx)
}
