package api

import (
	"context"

	"github.com/kgruel/siftd-sub000/internal/output"
	"github.com/kgruel/siftd-sub000/internal/store"
)

// listTags is the shared helper behind Query and ListTags; the entity
// kinds mirror spec.md §4.8's four taggable tables.
func listTags(ctx context.Context, c *Client, entityType, entityID string) ([]string, error) {
	return store.ListTags(ctx, c.Store.DB(), entityType, entityID)
}

// Tag attaches tagName to an entity (`siftd tag add`).
func (c *Client) Tag(ctx context.Context, entityType, entityID, tagName string) error {
	return store.AddTag(ctx, c.Store.DB(), entityType, entityID, tagName)
}

// Untag removes tagName from an entity (`siftd tag remove`).
func (c *Client) Untag(ctx context.Context, entityType, entityID, tagName string) error {
	return store.RemoveTag(ctx, c.Store.DB(), entityType, entityID, tagName)
}

// ListTags returns the tags attached to one entity.
func (c *Client) ListTags(ctx context.Context, entityType, entityID string) ([]string, error) {
	return listTags(ctx, c, entityType, entityID)
}

// Tags returns every tag in use, ordered by total usage (`siftd tags`).
func (c *Client) Tags(ctx context.Context) ([]output.TagCount, error) {
	rows, err := c.Store.FetchAllTagCounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]output.TagCount, len(rows))
	for i, r := range rows {
		out[i] = output.TagCount{Name: r.Name, Count: r.Count}
	}
	return out, nil
}

// Tools returns every tool with at least one call, ordered by call
// count (`siftd tools`).
func (c *Client) Tools(ctx context.Context) ([]output.ToolCount, error) {
	rows, err := c.Store.FetchTopTools(ctx, 1<<30)
	if err != nil {
		return nil, err
	}
	out := make([]output.ToolCount, len(rows))
	for i, r := range rows {
		out[i] = output.ToolCount{Name: r.Name, Count: r.Count}
	}
	return out, nil
}

// Adapters lists every registered adapter for `siftd adapters`.
func (c *Client) Adapters() []output.AdapterView {
	all := c.Registry.All()
	out := make([]output.AdapterView, 0, len(all))
	for _, a := range all {
		out = append(out, output.AdapterView{
			Name:                     a.Name(),
			HarnessSource:            a.HarnessSource(),
			DedupStrategy:            string(a.DedupStrategy()),
			SupportsLiveRegistration: a.SupportsLiveRegistration(),
			Origin:                   c.Registry.Origin(a.Name()),
		})
	}
	return out
}
