// Package translate turns raw mutation batches into domain events.
//
// One handler per concern (current word, word list, chat, players, drawing)
// keeps its own suppression and dedup state; all of them share the resolved
// anchors. Batches are processed to completion, one at a time, from a single
// goroutine: events of a concern are published in the order its mutations
// happened.
package translate

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/hazyhaar/streamermode/domwatch/anchor"
	"github.com/hazyhaar/streamermode/domwatch/event"
	"github.com/hazyhaar/streamermode/domwatch/eventbus"
	"github.com/hazyhaar/streamermode/domwatch/mutation"
)

// ChangeSource delivers mutation batches in the order they occurred. The
// channel is closed when the source stops.
type ChangeSource interface {
	Batches() <-chan mutation.Batch
}

// visibility is a tri-state cache: unknown until the first observation.
type visibility int8

const (
	visUnknown visibility = iota
	visShown
	visHidden
)

// Translator is the mutation-to-event layer.
type Translator struct {
	anchors *anchor.Set
	bus     *eventbus.Bus
	logger  *slog.Logger

	// currentWord: set right before we redact the word ourselves, consumed
	// by the next record delivered for that anchor.
	awaitingEcho bool

	// wordList: last published visibility.
	lastVisible visibility

	// players: side-table from a player's node to its record. Guarded by mu
	// because Players may be called from other goroutines.
	mu      sync.Mutex
	players map[mutation.NodeKey]event.Player

	// drawing: node key of the player currently drawing, 0 for nobody.
	drawer mutation.NodeKey
}

// Option configures a Translator.
type Option func(*Translator)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Translator) {
		if l != nil {
			t.logger = l
		}
	}
}

// New creates a Translator publishing on bus.
func New(anchors *anchor.Set, bus *eventbus.Bus, opts ...Option) *Translator {
	t := &Translator{
		anchors: anchors,
		bus:     bus,
		logger:  slog.Default(),
		players: make(map[mutation.NodeKey]event.Player),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Run handles batches from src until ctx is cancelled or src is closed.
// Handling errors are logged; they never stop the loop.
func (t *Translator) Run(ctx context.Context, src ChangeSource) error {
	batches := src.Batches()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b, ok := <-batches:
			if !ok {
				return nil
			}
			if err := t.Handle(ctx, b); err != nil {
				t.logger.Error("translate: handle batch",
					"concern", b.Concern, "seq", b.Seq, "error", err)
			}
		}
	}
}

// Handle processes one batch synchronously. Errors are anchor read/write
// failures; malformed records are dropped with a warning instead.
func (t *Translator) Handle(ctx context.Context, b mutation.Batch) error {
	switch b.Concern {
	case mutation.ConcernCurrentWord:
		return t.handleCurrentWord(ctx, b.Records)
	case mutation.ConcernWordList:
		return t.handleWordList(ctx, b.Records)
	case mutation.ConcernChat:
		t.handleChat(ctx, b.Records)
	case mutation.ConcernPlayers:
		t.handlePlayers(ctx, b.Records)
	case mutation.ConcernDrawing:
		t.handleDrawing(ctx, b.Records)
	default:
		return errors.New("translate: unknown concern " + string(b.Concern))
	}
	return nil
}

// Players returns the players currently known, keyed by node.
func (t *Translator) Players() map[mutation.NodeKey]event.Player {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[mutation.NodeKey]event.Player, len(t.players))
	for k, p := range t.players {
		out[k] = p
	}
	return out
}

// publish hands ev to the bus. Listener failures are already logged there
// and must not interrupt translation.
func (t *Translator) publish(ctx context.Context, ev event.Event) {
	_ = t.bus.Publish(ctx, ev)
}
