package mutation

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Fragments are parsed as if they were children of a <div>, which is where
// every observed subtree of the game lives.
var fragmentContext = &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}

// Parse returns the node as a single-node goquery selection. Text nodes yield
// a selection over a detached text node.
func (n Node) Parse() (*goquery.Selection, error) {
	if n.Type == TextNode {
		return goquery.NewDocumentFromNode(&html.Node{Type: html.TextNode, Data: n.HTML}).Selection, nil
	}
	nodes, err := html.ParseFragment(strings.NewReader(n.HTML), fragmentContext)
	if err != nil {
		return nil, fmt.Errorf("mutation: parse node %d: %w", n.Key, err)
	}
	for _, h := range nodes {
		if h.Type == html.ElementNode {
			return goquery.NewDocumentFromNode(h).Selection, nil
		}
	}
	return nil, fmt.Errorf("mutation: node %d has no element", n.Key)
}

// IsElement reports whether the node is an element.
func (n Node) IsElement() bool { return n.Type == ElementNode }

// InlineStyle returns the declarations of the element's style attribute keyed
// by lower-case property name. An absent or unparsable attribute yields an
// empty map.
func InlineStyle(sel *goquery.Selection) map[string]string {
	out := make(map[string]string)
	raw, ok := sel.Attr("style")
	if !ok || strings.TrimSpace(raw) == "" {
		return out
	}
	decls, err := parser.ParseDeclarations(terminate(raw))
	if err != nil {
		return out
	}
	for _, d := range decls {
		out[strings.ToLower(strings.TrimSpace(d.Property))] = strings.TrimSpace(d.Value)
	}
	return out
}

// terminate closes the last declaration. The parser drops the value of a
// trailing declaration that has no semicolon.
func terminate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "" && !strings.HasSuffix(raw, ";") {
		raw += ";"
	}
	return raw
}

// Hidden reports whether the element's inline display is "none".
func Hidden(sel *goquery.Selection) bool {
	return InlineStyle(sel)["display"] == "none"
}
