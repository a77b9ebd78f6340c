package domwatch

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/streamermode/domwatch/event"
	"github.com/hazyhaar/streamermode/domwatch/eventbus"
	"github.com/hazyhaar/streamermode/relay"
)

// WordSelector clicks an offered word on the page.
type WordSelector interface {
	SelectWord(ctx context.Context, word string) (bool, error)
}

// Streamer is the page side of the relay: word events go up as updates,
// selections come back down as clicks.
type Streamer struct {
	hub    *relay.Hub
	sel    WordSelector
	logger *slog.Logger
	unsub  func()
}

// NewStreamer creates a Streamer between hub and the page behind sel.
func NewStreamer(hub *relay.Hub, sel WordSelector, logger *slog.Logger) *Streamer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Streamer{hub: hub, sel: sel, logger: logger}
}

// Attach subscribes to the word topics of bus and registers the page with
// the hub.
func (s *Streamer) Attach(bus *eventbus.Bus) {
	eventbus.On(bus, s.onCurrentWord)
	eventbus.On(bus, s.onWordList)
	s.unsub = s.hub.OnSelect(s.selectWord)
}

// Detach stops acting on selections. Bus subscriptions stay for the bus
// lifetime.
func (s *Streamer) Detach() {
	if s.unsub != nil {
		s.unsub()
	}
}

func (s *Streamer) onCurrentWord(_ context.Context, ev event.CurrentWord) error {
	word := ev.Word
	s.hub.Update(nil, &word)
	return nil
}

func (s *Streamer) onWordList(_ context.Context, ev event.WordList) error {
	words := append([]string{}, ev.Words...)
	s.hub.Update(&words, nil)
	return nil
}

// selectWord never fails: a click that could not be performed is logged
// and reported as not selected.
func (s *Streamer) selectWord(ctx context.Context, word string) (bool, error) {
	ok, err := s.sel.SelectWord(ctx, word)
	if err != nil {
		s.logger.Error("domwatch: select word", "word", word, "error", err)
		return false, nil
	}
	return ok, nil
}
