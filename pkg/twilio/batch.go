package twilio

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"twilioasync/internal/observability"
)

// SendMessageBatch sends every message concurrently and returns the results
// in input order. Each item resolves From and the messaging service SID on
// its own. If any send fails the first error observed is returned and no
// results are; sends already in flight still run to completion.
func (c *Client) SendMessageBatch(ctx context.Context, msgs []MessageSend) ([]Message, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	observability.TwilioBatchSize.Observe(float64(len(msgs)))

	out := make([]Message, len(msgs))
	var g errgroup.Group
	if c.batchLimit > 0 {
		g.SetLimit(c.batchLimit)
	}
	for i, msg := range msgs {
		i, msg := i, msg
		g.Go(func() error {
			m, err := c.SendMessage(ctx, msg)
			if err != nil {
				return fmt.Errorf("batch item %d: %w", i, err)
			}
			out[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.log.Warn("twilio batch send failed", "size", len(msgs), "err", err)
		return nil, err
	}
	return out, nil
}
