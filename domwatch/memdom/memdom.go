// Package memdom is an in-memory page: an x/net/html tree that can be
// located with anchor lookups, mutated like the host page would, and that
// reports each change as the mutation.Record a MutationObserver would have
// delivered. It stands in for the browser in tests and in replay mode.
package memdom

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"

	"github.com/hazyhaar/streamermode/domwatch/anchor"
	"github.com/hazyhaar/streamermode/domwatch/mutation"
)

// Document is a mutable page. It is safe for concurrent use.
type Document struct {
	mu    sync.Mutex
	doc   *goquery.Document
	keys  map[*html.Node]mutation.NodeKey
	nodes map[mutation.NodeKey]*html.Node
	next  mutation.NodeKey

	writes       []mutation.Record // records caused by anchor writes
	clicks       []mutation.NodeKey
	canvasHidden bool
}

// Parse reads a full HTML document.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("memdom: parse: %w", err)
	}
	return &Document{
		doc:   doc,
		keys:  make(map[*html.Node]mutation.NodeKey),
		nodes: make(map[mutation.NodeKey]*html.Node),
	}, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Find implements anchor.Document.
func (d *Document) Find(_ context.Context, l anchor.Lookup) (anchor.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := d.lookup(l)
	if n == nil {
		return nil, nil
	}
	return &element{d: d, n: n}, nil
}

func (d *Document) lookup(l anchor.Lookup) *html.Node {
	var sel *goquery.Selection
	switch {
	case l.ID != "":
		sel = d.doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			id, _ := s.Attr("id")
			return id == l.ID
		})
	case l.Parent != "":
		sel = d.doc.Find(l.Parent).First().Find(l.Selector)
	default:
		sel = d.doc.Find(l.Selector)
	}
	if sel.Length() == 0 {
		return nil
	}
	return sel.Get(0)
}

func (d *Document) first(selector string) (*html.Node, error) {
	sel := d.doc.Find(selector)
	if sel.Length() == 0 {
		return nil, fmt.Errorf("memdom: no match for %q", selector)
	}
	return sel.Get(0), nil
}

// Key returns the identity of the first node matching selector, assigning
// one if needed. Zero when nothing matches.
func (d *Document) Key(selector string) mutation.NodeKey {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.first(selector)
	if err != nil {
		return 0
	}
	return d.keyOf(n)
}

// HTML renders the first node matching selector.
func (d *Document) HTML(selector string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.first(selector)
	if err != nil {
		return ""
	}
	return render(n)
}

func (d *Document) keyOf(n *html.Node) mutation.NodeKey {
	if k, ok := d.keys[n]; ok {
		return k
	}
	d.next++
	d.keys[n] = d.next
	d.nodes[d.next] = n
	return d.next
}

func (d *Document) snapshot(n *html.Node) mutation.Node {
	out := mutation.Node{Key: d.keyOf(n)}
	switch n.Type {
	case html.TextNode:
		out.Type = mutation.TextNode
		out.HTML = n.Data
	default:
		out.Type = mutation.ElementNode
		out.Tag = n.Data
		out.HTML = render(n)
	}
	return out
}

// shallow serialises the element without its children, as the bridge does
// for attribute targets.
func (d *Document) shallow(n *html.Node) mutation.Node {
	clone := &html.Node{Type: n.Type, Data: n.Data, DataAtom: n.DataAtom, Attr: append([]html.Attribute(nil), n.Attr...)}
	return mutation.Node{Key: d.keyOf(n), Type: mutation.ElementNode, Tag: n.Data, HTML: render(clone)}
}

func (d *Document) ancestors(n *html.Node) []mutation.NodeKey {
	var out []mutation.NodeKey
	for p := n; p != nil && p.Type == html.ElementNode; p = p.Parent {
		out = append(out, d.keyOf(p))
	}
	return out
}

func render(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

func textContent(n *html.Node) string {
	return goquery.NewDocumentFromNode(n).Text()
}

func elementChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

func getAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, name, value string) {
	for i, a := range n.Attr {
		if a.Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

// setStyleProp rewrites an inline style with prop set to value, keeping the
// other declarations in order. An empty value removes prop.
func setStyleProp(raw, prop, value string) string {
	if raw = strings.TrimSpace(raw); raw != "" && !strings.HasSuffix(raw, ";") {
		raw += ";"
	}
	decls, _ := parser.ParseDeclarations(raw)
	var parts []string
	replaced := false
	for _, decl := range decls {
		if strings.EqualFold(strings.TrimSpace(decl.Property), prop) {
			replaced = true
			if value == "" {
				continue
			}
			parts = append(parts, prop+": "+value)
			continue
		}
		parts = append(parts, strings.TrimSpace(decl.Property)+": "+strings.TrimSpace(decl.Value))
	}
	if !replaced && value != "" {
		parts = append(parts, prop+": "+value)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "; ") + ";"
}

func styleOf(n *html.Node, prop string) string {
	return mutation.InlineStyle(goquery.NewDocumentFromNode(n).Selection)[prop]
}
