package api

import (
	"context"

	"github.com/kgruel/siftd-sub000/internal/session"
)

// RegisterSession upserts a live session and points the workspace's
// session-id pointer file at it (`siftd register`).
func (c *Client) RegisterSession(ctx context.Context, harnessSessionID, adapterName, workspacePath string) error {
	return session.Register(ctx, c.Store.DB(), harnessSessionID, adapterName, workspacePath)
}

// CurrentSessionID reads the workspace's session-id pointer file
// (`siftd session-id`), returning "" if none is registered.
func (c *Client) CurrentSessionID(workspacePath string) (string, error) {
	return session.Current(workspacePath)
}

// QueueSessionTag queues tagName against the workspace's current live
// session (`siftd tag --session`).
func (c *Client) QueueSessionTag(ctx context.Context, workspacePath, tagName, entityType string, exchangeIndex *int) error {
	return session.QueueCurrentTag(ctx, c.Store.DB(), workspacePath, tagName, entityType, exchangeIndex)
}
