package sink

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/streamermode/domwatch/event"
	"github.com/hazyhaar/streamermode/domwatch/eventbus"
	"github.com/hazyhaar/streamermode/idgen"
)

// Route is a sink restricted to some topics. No topics means every topic.
type Route struct {
	Sink   Sink
	Topics []event.Topic
}

func (r Route) accepts(t event.Topic) bool {
	return len(r.Topics) == 0 || slices.Contains(r.Topics, t)
}

// Router fans out events to all configured sinks. One sink error does not
// block the others: errors are logged and joined.
type Router struct {
	pageID string
	routes []Route
	logger *slog.Logger
	seq    atomic.Uint64
}

// NewRouter creates a fan-out router delivering to routes.
func NewRouter(pageID string, logger *slog.Logger, routes ...Route) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{pageID: pageID, routes: routes, logger: logger}
}

// Attach subscribes the router to every topic of bus.
func (r *Router) Attach(bus *eventbus.Bus) {
	for _, t := range event.Topics {
		bus.Subscribe(t, r.Publish)
	}
}

// Publish wraps ev in an envelope and sends it to every interested sink.
// It has the eventbus.Listener signature.
func (r *Router) Publish(ctx context.Context, ev event.Event) error {
	env := Envelope{
		ID:        idgen.New(),
		Seq:       r.seq.Add(1),
		Topic:     ev.Topic(),
		PageID:    r.pageID,
		Timestamp: time.Now().UnixMilli(),
		Data:      ev,
	}
	return r.Send(ctx, env)
}

// Send delivers env as is.
func (r *Router) Send(ctx context.Context, env Envelope) error {
	var errs []error
	for _, route := range r.routes {
		if !route.accepts(env.Topic) {
			continue
		}
		if err := route.Sink.Send(ctx, env); err != nil {
			r.logger.Warn("sink: send failed", "topic", env.Topic, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Router) Close() error {
	var errs []error
	for _, route := range r.routes {
		if err := route.Sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
