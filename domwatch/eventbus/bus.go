// Package eventbus is the publish/subscribe registry between the translator
// and its consumers: named topics, listeners invoked synchronously in
// registration order.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hazyhaar/streamermode/domwatch/event"
)

// Listener handles one event. A returned error (or a panic) is logged and
// reported by Publish, but never prevents the next listener from running.
type Listener func(ctx context.Context, ev event.Event) error

// Bus holds the listeners of every topic. The zero value is not usable;
// create one with New and hand it to whoever assembles the consumers.
type Bus struct {
	mu        sync.RWMutex
	listeners map[event.Topic][]Listener
	logger    *slog.Logger
}

// New creates an empty Bus.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		listeners: make(map[event.Topic][]Listener),
		logger:    logger,
	}
}

// Subscribe appends l to the topic's listeners. Registering the same
// listener twice makes it run twice.
func (b *Bus) Subscribe(topic event.Topic, l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[topic] = append(b.listeners[topic], l)
}

// On subscribes fn to the topic of T, passing events already typed.
func On[T event.Event](b *Bus, fn func(ctx context.Context, ev T) error) {
	var zero T
	b.Subscribe(zero.Topic(), func(ctx context.Context, ev event.Event) error {
		typed, ok := ev.(T)
		if !ok {
			return fmt.Errorf("eventbus: %s: unexpected event type %T", zero.Topic(), ev)
		}
		return fn(ctx, typed)
	})
}

// Listeners returns the number of listeners registered on topic.
func (b *Bus) Listeners(topic event.Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[topic])
}

// Publish delivers ev to every listener of its topic, in order. Publishing on
// a topic without listeners is a no-op. The returned error joins every
// listener failure.
func (b *Bus) Publish(ctx context.Context, ev event.Event) error {
	topic := ev.Topic()

	b.mu.RLock()
	ls := b.listeners[topic]
	b.mu.RUnlock()

	if len(ls) == 0 {
		return nil
	}
	b.logger.Debug("eventbus: publish", "topic", topic, "listeners", len(ls))

	var errs []error
	for i, l := range ls {
		if err := invoke(ctx, l, ev); err != nil {
			b.logger.Error("eventbus: listener failed", "topic", topic, "index", i, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func invoke(ctx context.Context, l Listener, ev event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("eventbus: listener panic: %v", r)
		}
	}()
	return l(ctx, ev)
}
