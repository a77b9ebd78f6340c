package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/streamermode/domwatch/anchor"
	"github.com/hazyhaar/streamermode/domwatch/mutation"
)

// Document is the live page seen through the bridge. It implements
// anchor.Document and the page operations moderation needs. The bridge must
// be installed first.
type Document struct {
	tab *Tab
}

// Document returns the tab's page document.
func (t *Tab) Document() *Document {
	return &Document{tab: t}
}

// Find implements anchor.Document.
func (d *Document) Find(ctx context.Context, l anchor.Lookup) (anchor.Element, error) {
	res, err := d.tab.call(ctx, `(id, sel, parent) => window.__streamermode.find(id, sel, parent)`,
		l.ID, l.Selector, l.Parent)
	if err != nil {
		return nil, fmt.Errorf("browser: find %s: %w", l, err)
	}
	key := mutation.NodeKey(res.Value.Int())
	if key == 0 {
		return nil, nil
	}
	return &Element{tab: d.tab, key: key}, nil
}

// SetHidden shows or hides a node through its inline display style.
func (d *Document) SetHidden(ctx context.Context, key mutation.NodeKey, hidden bool) error {
	if _, err := d.tab.call(ctx, `(k, h) => window.__streamermode.setHidden(k, h)`, key, hidden); err != nil {
		return fmt.Errorf("browser: set hidden %d: %w", key, err)
	}
	return nil
}

// SetClass adds or removes a class on a node.
func (d *Document) SetClass(ctx context.Context, key mutation.NodeKey, class string, on bool) error {
	if _, err := d.tab.call(ctx, `(k, c, on) => window.__streamermode.setClass(k, c, on)`, key, class, on); err != nil {
		return fmt.Errorf("browser: set class %q on %d: %w", class, key, err)
	}
	return nil
}

// SetCanvasHidden shows or hides the overlay covering the drawing canvas.
func (d *Document) SetCanvasHidden(ctx context.Context, hidden bool) error {
	res, err := d.tab.call(ctx, `(h) => window.__streamermode.canvasHider(h)`, hidden)
	if err != nil {
		return fmt.Errorf("browser: canvas hider: %w", err)
	}
	if !res.Value.Bool() {
		return fmt.Errorf("browser: canvas hider: no canvas on page")
	}
	return nil
}

// Element is a page node addressed by its bridge key.
type Element struct {
	tab *Tab
	key mutation.NodeKey
}

// Key returns the node's bridge key.
func (e *Element) Key() mutation.NodeKey { return e.key }

func (e *Element) Text(ctx context.Context) (string, error) {
	res, err := e.tab.call(ctx, `(k) => window.__streamermode.text(k)`, e.key)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (e *Element) SetText(ctx context.Context, text string) error {
	_, err := e.tab.call(ctx, `(k, s) => window.__streamermode.setText(k, s)`, e.key, text)
	return err
}

func (e *Element) Style(ctx context.Context, prop string) (string, error) {
	res, err := e.tab.call(ctx, `(k, p) => window.__streamermode.style(k, p)`, e.key, prop)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (e *Element) ChildTexts(ctx context.Context) ([]string, error) {
	res, err := e.tab.call(ctx, `(k) => window.__streamermode.childTexts(k)`, e.key)
	if err != nil {
		return nil, err
	}
	var out []string
	if err := json.Unmarshal([]byte(res.Value.Str()), &out); err != nil {
		return nil, fmt.Errorf("browser: decode child texts: %w", err)
	}
	return out, nil
}

func (e *Element) ClickChild(ctx context.Context, text string) (bool, error) {
	res, err := e.tab.call(ctx, `(k, t) => window.__streamermode.clickChild(k, t)`, e.key, text)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

var (
	_ anchor.Document = (*Document)(nil)
	_ anchor.Element  = (*Element)(nil)
)
