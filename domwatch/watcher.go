// Package domwatch drives the game page in Chrome and turns what happens on
// it into domain events. The Watcher owns the browser, the tab, the
// mutation observers and the translator, and wires their events to the
// relay, the moderation controller and the sinks.
package domwatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/hazyhaar/streamermode/domwatch/anchor"
	"github.com/hazyhaar/streamermode/domwatch/eventbus"
	"github.com/hazyhaar/streamermode/domwatch/internal/browser"
	"github.com/hazyhaar/streamermode/domwatch/internal/observer"
	"github.com/hazyhaar/streamermode/domwatch/translate"
	"github.com/hazyhaar/streamermode/moderation"
	"github.com/hazyhaar/streamermode/relay"
)

// Watcher is the top-level orchestrator. It is started once.
type Watcher struct {
	cfg     *Config
	logger  *slog.Logger
	mgr     *browser.Manager
	bus     *eventbus.Bus
	hub     *relay.Hub
	routes  []Route
	router  *Router
	capture io.Writer

	mu        sync.Mutex
	started   bool
	stopped   bool
	tab       *browser.Tab
	obs       *observer.Observer
	tr        *translate.Translator
	mod       *moderation.Controller
	streamer  *Streamer
	runCancel context.CancelFunc
	runDone   chan error
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithHub relays word state through hub instead of a private one.
func WithHub(hub *relay.Hub) Option {
	return func(w *Watcher) { w.hub = hub }
}

// WithRoutes sends every domain event to routes.
func WithRoutes(routes ...Route) Option {
	return func(w *Watcher) { w.routes = append(w.routes, routes...) }
}

// WithCapture writes every mutation batch to out as JSON lines, the format
// Replay reads back.
func WithCapture(out io.Writer) Option {
	return func(w *Watcher) { w.capture = out }
}

// New creates a Watcher from configuration.
func New(cfg *Config, opts ...Option) *Watcher {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	w := &Watcher{cfg: cfg, logger: slog.Default()}
	for _, o := range opts {
		o(w)
	}
	if w.hub == nil {
		w.hub = relay.NewHub(w.logger)
	}
	w.router = NewRouter(cfg.Page.ID, w.logger, w.routes...)
	w.bus = eventbus.New(w.logger)
	w.mgr = browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		Bin:              cfg.Browser.Bin,
		MemoryLimit:      cfg.Browser.MemoryLimit,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		Stealth:          browser.ParseStealth(cfg.Browser.Stealth),
		XvfbDisplay:      cfg.Browser.XvfbDisplay,
		Logger:           w.logger,
	})
	return w
}

// Bus returns the event bus the translator publishes on. Subscribe before
// Start to see every event.
func (w *Watcher) Bus() *eventbus.Bus { return w.bus }

// Hub returns the relay hub fed by the watcher.
func (w *Watcher) Hub() *relay.Hub { return w.hub }

// Moderation returns the moderation controller, nil before Start.
func (w *Watcher) Moderation() *moderation.Controller {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mod
}

// Start launches the browser, opens the game, resolves the anchors and
// starts translating. A missing anchor is fatal: the error is a
// *anchor.MissingAnchorError and nothing keeps running.
func (w *Watcher) Start(ctx context.Context) (err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return errors.New("domwatch: already started")
	}
	w.started = true

	defer func() {
		if err != nil {
			w.teardown()
		}
	}()

	if _, err := w.mgr.Start(ctx); err != nil {
		return fmt.Errorf("domwatch: start browser: %w", err)
	}
	tab, err := browser.OpenTab(ctx, w.mgr, w.cfg.Page.URL, w.cfg.Page.ID)
	if err != nil {
		return fmt.Errorf("domwatch: open tab: %w", err)
	}
	w.tab = tab

	if err := tab.InstallBridge(ctx); err != nil {
		return fmt.Errorf("domwatch: %w", err)
	}
	doc := tab.Document()
	anchors, err := anchor.NewRegistry(w.cfg.Anchors).Resolve(ctx, doc)
	if err != nil {
		return fmt.Errorf("domwatch: %w", err)
	}

	w.tr = translate.New(anchors, w.bus, translate.WithLogger(w.logger))
	w.mod = moderation.New(doc, moderation.WithLogger(w.logger))
	w.mod.Attach(w.bus)
	w.streamer = NewStreamer(w.hub, w.tr, w.logger)
	w.streamer.Attach(w.bus)
	w.router.Attach(w.bus)

	w.obs = observer.New(observer.Config{
		Tab:    tab,
		Buffer: w.cfg.Page.Buffer,
		Logger: w.logger,
	})

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w.runCancel = cancel
	var src translate.ChangeSource = w.obs
	if w.capture != nil {
		src = Capture(runCtx, w.obs, w.capture, w.logger)
	}
	w.runDone = make(chan error, 1)
	go func() { w.runDone <- w.tr.Run(runCtx, src) }()

	if err := w.obs.Start(runCtx, anchors); err != nil {
		return fmt.Errorf("domwatch: %w", err)
	}

	w.logger.Info("domwatch: watching", "url", w.cfg.Page.URL, "id", w.cfg.Page.ID,
		"stealth", tab.Stealth)
	return nil
}

// Wait blocks until translation stops: the page went away or Stop was
// called.
func (w *Watcher) Wait() error {
	w.mu.Lock()
	done := w.runDone
	w.mu.Unlock()
	if done == nil {
		return nil
	}
	err := <-done
	done <- err
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop detaches from the page and shuts the browser and sinks down.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.teardown()
}

// teardown releases whatever Start acquired. Callers hold mu.
func (w *Watcher) teardown() {
	if w.stopped {
		return
	}
	w.stopped = true
	if w.streamer != nil {
		w.streamer.Detach()
	}
	if w.obs != nil {
		w.obs.Stop()
	}
	if w.runCancel != nil {
		w.runCancel()
	}
	if w.runDone != nil {
		err := <-w.runDone
		w.runDone <- err
	}
	if w.tab != nil {
		if err := w.tab.Close(); err != nil {
			w.logger.Debug("domwatch: close tab", "error", err)
		}
		w.tab = nil
	}
	if err := w.router.Close(); err != nil {
		w.logger.Warn("domwatch: close sinks", "error", err)
	}
	if err := w.mgr.Close(); err != nil {
		w.logger.Warn("domwatch: close browser", "error", err)
	}
	w.logger.Info("domwatch: stopped")
}
