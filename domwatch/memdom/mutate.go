package memdom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/streamermode/domwatch/mutation"
)

// Append parses fragment and appends its nodes to the first match of
// selector, the way the host page adds chat lines or players.
func (d *Document) Append(selector, fragment string) (mutation.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	parent, err := d.first(selector)
	if err != nil {
		return mutation.Record{}, err
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent)
	if err != nil {
		return mutation.Record{}, fmt.Errorf("memdom: parse fragment: %w", err)
	}

	rec := mutation.Record{
		Kind:      mutation.KindChildList,
		Target:    d.shallow(parent),
		Ancestors: d.ancestors(parent),
	}
	for _, n := range nodes {
		parent.AppendChild(n)
		rec.Added = append(rec.Added, d.snapshot(n))
	}
	return rec, nil
}

// Remove detaches the first match of selector from its parent.
func (d *Document) Remove(selector string) (mutation.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.first(selector)
	if err != nil {
		return mutation.Record{}, err
	}
	parent := n.Parent
	if parent == nil {
		return mutation.Record{}, fmt.Errorf("memdom: %q has no parent", selector)
	}
	removed := d.snapshot(n)
	parent.RemoveChild(n)
	return mutation.Record{
		Kind:      mutation.KindChildList,
		Target:    d.shallow(parent),
		Ancestors: d.ancestors(parent),
		Removed:   []mutation.Node{removed},
	}, nil
}

// SetAttr sets an attribute on the first match of selector.
func (d *Document) SetAttr(selector, name, value string) (mutation.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.first(selector)
	if err != nil {
		return mutation.Record{}, err
	}
	return d.setAttr(n, name, value), nil
}

// SetStyle sets one inline style property on the first match of selector.
// An empty value removes the property.
func (d *Document) SetStyle(selector, prop, value string) (mutation.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.first(selector)
	if err != nil {
		return mutation.Record{}, err
	}
	raw, _ := getAttr(n, "style")
	return d.setAttr(n, "style", setStyleProp(raw, prop, value)), nil
}

func (d *Document) setAttr(n *html.Node, name, value string) mutation.Record {
	old, _ := getAttr(n, name)
	setAttr(n, name, value)
	return mutation.Record{
		Kind:      mutation.KindAttributes,
		Target:    d.shallow(n),
		Ancestors: d.ancestors(n),
		Attribute: name,
		OldValue:  old,
	}
}

// SetText replaces the content of the first match of selector, as the host
// page does when it reveals a word.
func (d *Document) SetText(selector, text string) (mutation.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.first(selector)
	if err != nil {
		return mutation.Record{}, err
	}
	return d.replaceText(n, text), nil
}

func (d *Document) replaceText(n *html.Node, text string) mutation.Record {
	rec := mutation.Record{
		Kind:      mutation.KindChildList,
		Target:    d.shallow(n),
		Ancestors: d.ancestors(n),
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		rec.Removed = append(rec.Removed, d.snapshot(c))
		n.RemoveChild(c)
		c = next
	}
	if text != "" {
		t := &html.Node{Type: html.TextNode, Data: text}
		n.AppendChild(t)
		rec.Added = append(rec.Added, d.snapshot(t))
	}
	return rec
}

// Drain returns and forgets the records caused by writes made through
// anchor elements: what the page would echo back to the writer's observer.
func (d *Document) Drain() []mutation.Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.writes
	d.writes = nil
	return out
}

// Clicks returns the keys of the elements clicked so far, in order.
func (d *Document) Clicks() []mutation.NodeKey {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]mutation.NodeKey(nil), d.clicks...)
}
