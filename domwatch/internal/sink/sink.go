// Package sink delivers domain events to output backends.
package sink

import (
	"context"

	"github.com/hazyhaar/streamermode/domwatch/event"
)

// Envelope is one published event with its delivery metadata.
type Envelope struct {
	ID        string      `json:"id"` // UUIDv7
	Seq       uint64      `json:"seq"`
	Topic     event.Topic `json:"topic"`
	PageID    string      `json:"page_id"`
	Timestamp int64       `json:"timestamp"` // epoch milliseconds
	Data      event.Event `json:"data"`
}

// Sink is the output interface. Implementations deliver envelopes to
// different backends (stdout, webhook, SQLite journal).
type Sink interface {
	Send(ctx context.Context, env Envelope) error
	Close() error
}
