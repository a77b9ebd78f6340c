package memdom

import (
	"context"
	"fmt"

	"golang.org/x/net/html"

	"github.com/hazyhaar/streamermode/domwatch/mutation"
)

// element is an anchor.Element over a node of the Document.
type element struct {
	d *Document
	n *html.Node
}

func (e *element) Text(context.Context) (string, error) {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	return textContent(e.n), nil
}

func (e *element) SetText(_ context.Context, text string) error {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	rec := e.d.replaceText(e.n, text)
	if len(rec.Added) > 0 || len(rec.Removed) > 0 {
		e.d.writes = append(e.d.writes, rec)
	}
	return nil
}

func (e *element) Style(_ context.Context, prop string) (string, error) {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	return styleOf(e.n, prop), nil
}

func (e *element) ChildTexts(context.Context) ([]string, error) {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	kids := elementChildren(e.n)
	out := make([]string, len(kids))
	for i, c := range kids {
		out[i] = textContent(c)
	}
	return out, nil
}

func (e *element) ClickChild(_ context.Context, text string) (bool, error) {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	for _, c := range elementChildren(e.n) {
		if textContent(c) == text {
			e.d.clicks = append(e.d.clicks, e.d.keyOf(c))
			return true, nil
		}
	}
	return false, nil
}

// SetHidden shows or hides the node with the given key through its inline
// display style.
func (d *Document) SetHidden(_ context.Context, key mutation.NodeKey, hidden bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.nodes[key]
	if !ok {
		return fmt.Errorf("memdom: unknown node %d", key)
	}
	value := ""
	if hidden {
		value = "none"
	}
	raw, _ := getAttr(n, "style")
	setAttr(n, "style", setStyleProp(raw, "display", value))
	return nil
}

// SetClass adds or removes a class on the node with the given key.
func (d *Document) SetClass(_ context.Context, key mutation.NodeKey, class string, on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.nodes[key]
	if !ok {
		return fmt.Errorf("memdom: unknown node %d", key)
	}
	raw, _ := getAttr(n, "class")
	setAttr(n, "class", toggleClass(raw, class, on))
	return nil
}

// SetCanvasHidden toggles the canvas hider overlay.
func (d *Document) SetCanvasHidden(_ context.Context, hidden bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.canvasHidden = hidden
	return nil
}

// CanvasHidden reports the canvas hider state.
func (d *Document) CanvasHidden() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.canvasHidden
}

// Hidden reports whether the node with the given key has display none.
func (d *Document) Hidden(key mutation.NodeKey) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.nodes[key]
	return ok && styleOf(n, "display") == "none"
}

// HasClass reports whether the node with the given key carries class.
func (d *Document) HasClass(key mutation.NodeKey, class string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.nodes[key]
	if !ok {
		return false
	}
	raw, _ := getAttr(n, "class")
	for _, c := range fieldsOf(raw) {
		if c == class {
			return true
		}
	}
	return false
}
