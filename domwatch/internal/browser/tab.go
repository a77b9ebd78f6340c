package browser

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/streamermode/domwatch/mutation"
)

// BindingName is the runtime binding the bridge posts deliveries through.
const BindingName = "__streamermode_binding"

//go:embed bridge.js
var bridgeJS string

// Tab wraps the Rod page the game runs in.
type Tab struct {
	Page    *rod.Page
	PageURL string
	PageID  string
	Stealth StealthLevel

	router *rod.HijackRouter
	logger *slog.Logger
}

// OpenTab creates a stealth tab, applies resource blocking and navigates to
// the game.
func OpenTab(ctx context.Context, mgr *Manager, pageURL, pageID string) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	t := &Tab{
		Page:    page,
		PageURL: pageURL,
		PageID:  pageID,
		Stealth: mgr.cfg.Stealth,
		logger:  mgr.cfg.Logger,
	}
	if len(mgr.cfg.ResourceBlocking) > 0 {
		t.router = applyResourceBlocking(page, mgr.cfg.ResourceBlocking)
	}

	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		t.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		t.logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}
	return t, nil
}

// InstallBridge exposes the binding and evaluates the bridge script. It is
// idempotent.
func (t *Tab) InstallBridge(ctx context.Context) error {
	if err := (proto.RuntimeAddBinding{Name: BindingName}).Call(t.Page.Context(ctx)); err != nil {
		t.logger.Warn("browser: addBinding failed (may already exist)", "error", err)
	}
	res, err := proto.RuntimeEvaluate{Expression: bridgeJS}.Call(t.Page.Context(ctx))
	if err != nil {
		return fmt.Errorf("browser: install bridge: %w", err)
	}
	if res.ExceptionDetails != nil {
		return fmt.Errorf("browser: install bridge: %s", res.ExceptionDetails.Text)
	}
	t.logger.Debug("browser: bridge installed", "url", t.PageURL)
	return nil
}

// call invokes a bridge helper. fn is a JS arrow function receiving args.
func (t *Tab) call(ctx context.Context, fn string, args ...any) (*proto.RuntimeRemoteObject, error) {
	return t.Page.Context(ctx).Eval(fn, args...)
}

// ObserveOptions mirrors MutationObserverInit.
type ObserveOptions struct {
	ChildList         bool     `json:"childList,omitempty"`
	Attributes        bool     `json:"attributes,omitempty"`
	CharacterData     bool     `json:"characterData,omitempty"`
	Subtree           bool     `json:"subtree,omitempty"`
	AttributeOldValue bool     `json:"attributeOldValue,omitempty"`
	AttributeFilter   []string `json:"attributeFilter,omitempty"`
}

// WatchTarget is one node a concern's observer is attached to. Seed reports
// the node's existing children as an initial addition.
type WatchTarget struct {
	Key     mutation.NodeKey `json:"key"`
	Options ObserveOptions   `json:"options"`
	Seed    bool             `json:"seed,omitempty"`
}

// Watch (re)attaches the MutationObserver of concern to targets.
func (t *Tab) Watch(ctx context.Context, concern string, targets []WatchTarget) error {
	if _, err := t.call(ctx, `(c, ts) => window.__streamermode.watch(c, ts)`, concern, targets); err != nil {
		return fmt.Errorf("browser: watch %s: %w", concern, err)
	}
	return nil
}

// Unwatch disconnects every observer.
func (t *Tab) Unwatch(ctx context.Context) error {
	_, err := t.call(ctx, `() => window.__streamermode && window.__streamermode.stop()`)
	return err
}

// HTML serialises the current document.
func (t *Tab) HTML(ctx context.Context) (string, error) {
	res, err := t.call(ctx, `() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("browser: get DOM: %w", err)
	}
	return res.Value.Str(), nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.router != nil {
		_ = t.router.Stop()
	}
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
