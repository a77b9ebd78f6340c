// Package relay is the background side of streamer mode: it keeps the last
// known word state, pushes it to every connected client (popups, page
// sessions) and forwards word selections back to the page.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// MessageType names a relay message.
type MessageType string

const (
	// TypeUpdate reports a change of any subset of the state.
	TypeUpdate MessageType = "update"
	// TypeRequest asks for the full state to be broadcast.
	TypeRequest MessageType = "request"
	// TypeSelect carries the word chosen by the user.
	TypeSelect MessageType = "select"
	// TypeState carries the full state.
	TypeState MessageType = "state"
)

var (
	// ErrUnknownMessage is returned by Handle for a message it cannot route.
	ErrUnknownMessage = errors.New("relay: unknown message")
	// ErrEmptyWord rejects a selection without a word.
	ErrEmptyWord = errors.New("relay: empty word")
)

// State is the state mirrored to clients.
type State struct {
	WordList    []string `json:"wordList"`
	CurrentWord string   `json:"currentWord"`
}

func (s State) clone() State {
	s.WordList = slices.Clone(s.WordList)
	if s.WordList == nil {
		s.WordList = []string{}
	}
	return s
}

// Message is the envelope exchanged with clients. In an update, a nil field
// means "unchanged" and a non-nil empty one clears the field.
type Message struct {
	Type        MessageType `json:"type"`
	WordList    *[]string   `json:"wordList,omitempty"`
	CurrentWord *string     `json:"currentWord,omitempty"`
	Word        string      `json:"word,omitempty"`
	State       *State      `json:"state,omitempty"`
}

// Hub holds the state and the subscribed clients.
type Hub struct {
	logger *slog.Logger

	// sendMu serialises broadcasts so clients see states in update order.
	sendMu sync.Mutex

	mu        sync.Mutex
	state     State
	subs      map[uint64]func(Message)
	selectors map[uint64]SelectFunc
	next      uint64
}

// SelectFunc performs a word selection on a page and reports whether the
// word was offered there.
type SelectFunc func(ctx context.Context, word string) (bool, error)

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:    logger,
		state:     State{WordList: []string{}},
		subs:      make(map[uint64]func(Message)),
		selectors: make(map[uint64]SelectFunc),
	}
}

// Subscribe registers fn for every broadcast and returns a function that
// removes it. fn runs on the broadcasting goroutine and must not block.
func (h *Hub) Subscribe(fn func(Message)) (unsubscribe func()) {
	h.mu.Lock()
	h.next++
	id := h.next
	h.subs[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// OnSelect registers a page client: fn runs for every selection and its
// result is reported to the caller of Select.
func (h *Hub) OnSelect(fn SelectFunc) (unsubscribe func()) {
	h.mu.Lock()
	h.next++
	id := h.next
	h.selectors[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.selectors, id)
			h.mu.Unlock()
		})
	}
}

// State returns a copy of the current state.
func (h *Hub) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.clone()
}

// Update applies the present fields and broadcasts the resulting state.
func (h *Hub) Update(wordList *[]string, currentWord *string) {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	h.mu.Lock()
	if wordList != nil {
		h.state.WordList = slices.Clone(*wordList)
	}
	if currentWord != nil {
		h.state.CurrentWord = *currentWord
	}
	st := h.state.clone()
	subs := h.snapshot()
	h.mu.Unlock()

	h.logger.Debug("relay: update", "words", len(st.WordList), "has_word", st.CurrentWord != "")
	deliver(subs, Message{Type: TypeState, State: &st})
}

// Request broadcasts the current state to every client.
func (h *Hub) Request() {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	h.mu.Lock()
	st := h.state.clone()
	subs := h.snapshot()
	h.mu.Unlock()

	deliver(subs, Message{Type: TypeState, State: &st})
}

// Select broadcasts a word selection to every client, then asks each page
// client to perform it. It reports whether any page offered the word.
func (h *Hub) Select(ctx context.Context, word string) (bool, error) {
	h.sendMu.Lock()
	h.mu.Lock()
	subs := h.snapshot()
	selectors := make([]SelectFunc, 0, len(h.selectors))
	for _, id := range sortedIDs(h.selectors) {
		selectors = append(selectors, h.selectors[id])
	}
	h.mu.Unlock()

	h.logger.Info("relay: select", "word", word, "pages", len(selectors))
	deliver(subs, Message{Type: TypeSelect, Word: word})
	h.sendMu.Unlock()

	// Page clients may trigger updates of their own while selecting.

	var (
		selected bool
		errs     []error
	)
	for _, fn := range selectors {
		ok, err := fn(ctx, word)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		selected = selected || ok
	}
	return selected, errors.Join(errs...)
}

// Handle routes a message received from a client.
func (h *Hub) Handle(ctx context.Context, msg Message) error {
	switch msg.Type {
	case TypeUpdate:
		h.Update(msg.WordList, msg.CurrentWord)
	case TypeRequest:
		h.Request()
	case TypeSelect:
		if msg.Word == "" {
			return ErrEmptyWord
		}
		ok, err := h.Select(ctx, msg.Word)
		if err != nil {
			return err
		}
		if !ok {
			h.logger.Warn("relay: word not selected", "word", msg.Word)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
	return nil
}

func (h *Hub) snapshot() []func(Message) {
	ids := sortedIDs(h.subs)
	out := make([]func(Message), len(ids))
	for i, id := range ids {
		out[i] = h.subs[id]
	}
	return out
}

func sortedIDs[V any](m map[uint64]V) []uint64 {
	ids := make([]uint64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func deliver(subs []func(Message), msg Message) {
	for _, fn := range subs {
		fn(msg)
	}
}
