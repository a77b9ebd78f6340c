// Package moderation keeps the streamer's mute and hide lists and applies
// them to the page: muted players' chat lines disappear, and the canvas is
// covered while a hidden player draws.
//
// Both lists are keyed by display name and outlive the players themselves,
// so a player who leaves and rejoins stays muted or hidden.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/hazyhaar/streamermode/domwatch/event"
	"github.com/hazyhaar/streamermode/domwatch/eventbus"
	"github.com/hazyhaar/streamermode/domwatch/mutation"
)

// MutedClass marks a muted player's row.
const MutedClass = "muted"

// maxLinesPerSender bounds the chat lines remembered for each sender.
const maxLinesPerSender = 500

var (
	// ErrSelf is returned when moderating the local player.
	ErrSelf = errors.New("moderation: cannot moderate yourself")
	// ErrUnknownPlayer is returned for a name not currently in the game.
	ErrUnknownPlayer = errors.New("moderation: unknown player")
)

// Page is the visual side of moderation.
type Page interface {
	SetHidden(ctx context.Context, key mutation.NodeKey, hidden bool) error
	SetClass(ctx context.Context, key mutation.NodeKey, class string, on bool) error
	SetCanvasHidden(ctx context.Context, hidden bool) error
}

// State is a snapshot of the moderation lists.
type State struct {
	Muted  []string `json:"muted"`
	Hidden []string `json:"hidden"`
}

// Controller owns the mute and hide lists.
type Controller struct {
	page   Page
	logger *slog.Logger

	mu      sync.Mutex
	muted   map[string]bool
	hidden  map[string]bool
	players map[string]event.Player
	lines   map[string][]mutation.NodeKey // chat lines by sender
	drawing string
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Controller acting on page.
func New(page Page, opts ...Option) *Controller {
	c := &Controller{
		page:    page,
		logger:  slog.Default(),
		muted:   make(map[string]bool),
		hidden:  make(map[string]bool),
		players: make(map[string]event.Player),
		lines:   make(map[string][]mutation.NodeKey),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Attach subscribes the controller to the player, chat and drawing topics.
func (c *Controller) Attach(bus *eventbus.Bus) {
	eventbus.On(bus, c.onPlayersJoined)
	eventbus.On(bus, c.onPlayersLeft)
	eventbus.On(bus, c.onChat)
	eventbus.On(bus, c.onDrawing)
}

// State returns the sorted mute and hide lists.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Muted: sortedKeys(c.muted), Hidden: sortedKeys(c.hidden)}
}

// Players returns the players currently in the game, sorted by name.
func (c *Controller) Players() []event.Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]event.Player, 0, len(c.players))
	for _, p := range c.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ToggleMute flips the muted state of name and returns the new state. The
// player's row and every chat line they sent are updated.
func (c *Controller) ToggleMute(ctx context.Context, name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.target(name)
	if err != nil {
		return false, err
	}
	on := !c.muted[name]
	setFlag(c.muted, name, on)

	var errs []error
	if err := c.page.SetClass(ctx, p.Key, MutedClass, on); err != nil {
		errs = append(errs, err)
	}
	for _, k := range c.lines[name] {
		if err := c.page.SetHidden(ctx, k, on); err != nil {
			errs = append(errs, err)
		}
	}
	c.logger.Info("moderation: mute toggled", "player", name, "muted", on)
	return on, errors.Join(errs...)
}

// ToggleHide flips the hidden state of name and returns the new state. The
// canvas follows immediately when name is drawing.
func (c *Controller) ToggleHide(ctx context.Context, name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.target(name); err != nil {
		return false, err
	}
	on := !c.hidden[name]
	setFlag(c.hidden, name, on)

	c.logger.Info("moderation: hide toggled", "player", name, "hidden", on)
	if c.drawing == name {
		if err := c.page.SetCanvasHidden(ctx, on); err != nil {
			return on, err
		}
	}
	return on, nil
}

// target returns the remote player called name. Callers hold mu.
func (c *Controller) target(name string) (event.Player, error) {
	p, ok := c.players[name]
	if !ok {
		return event.Player{}, fmt.Errorf("%w %q", ErrUnknownPlayer, name)
	}
	if p.IsUs {
		return event.Player{}, ErrSelf
	}
	return p, nil
}

func (c *Controller) onPlayersJoined(ctx context.Context, ev event.PlayersJoined) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, p := range ev.Players {
		c.players[p.Name] = p
		if p.IsUs || !c.muted[p.Name] {
			continue
		}
		if err := c.page.SetClass(ctx, p.Key, MutedClass, true); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Controller) onPlayersLeft(_ context.Context, ev event.PlayersLeft) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range ev.Players {
		if cur, ok := c.players[p.Name]; ok && cur.Key == p.Key {
			delete(c.players, p.Name)
		}
	}
	return nil
}

func (c *Controller) onChat(ctx context.Context, ev event.ChatMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := append(c.lines[ev.Sender], ev.Key)
	if len(lines) > maxLinesPerSender {
		lines = lines[len(lines)-maxLinesPerSender:]
	}
	c.lines[ev.Sender] = lines

	if c.muted[ev.Sender] {
		return c.page.SetHidden(ctx, ev.Key, true)
	}
	return nil
}

// onDrawing covers the canvas for hidden players. When nobody draws the
// page keeps the last drawing on screen, so the cover stays as it is until
// the next drawer.
func (c *Controller) onDrawing(ctx context.Context, ev event.DrawingChanged) error {
	if ev.Player == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drawing = ev.Player.Name
	return c.page.SetCanvasHidden(ctx, c.hidden[c.drawing])
}

func setFlag(m map[string]bool, name string, on bool) {
	if on {
		m[name] = true
		return
	}
	delete(m, name)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
