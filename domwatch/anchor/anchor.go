// Package anchor resolves the fixed set of page nodes the translator watches
// or writes to. Resolution happens once, at startup: a page missing any of
// them is not the layout this program understands.
package anchor

import (
	"context"
	"fmt"
	"strings"
)

// Name is the logical name of an anchor.
type Name string

const (
	Overlay        Name = "overlay"
	WordContainer  Name = "wordContainer"
	CurrentWord    Name = "currentWord"
	DrawingToolbar Name = "drawingToolbar"
	Chat           Name = "chat"
	Players        Name = "players"
)

// Names lists every anchor the translator needs.
var Names = []Name{Overlay, WordContainer, CurrentWord, DrawingToolbar, Chat, Players}

// Lookup is how an anchor is located: by element id, by CSS selector, or by
// CSS selector scoped under the first match of Parent.
type Lookup struct {
	ID       string `yaml:"id"`
	Selector string `yaml:"selector"`
	Parent   string `yaml:"parent"`
}

func (l Lookup) String() string {
	switch {
	case l.ID != "":
		return "#" + l.ID
	case l.Parent != "":
		return l.Parent + " " + l.Selector
	default:
		return l.Selector
	}
}

// Empty reports whether the lookup names nothing to look for.
func (l Lookup) Empty() bool { return l.ID == "" && l.Selector == "" }

// DefaultLookups returns the lookups matching the game's layout.
func DefaultLookups() map[Name]Lookup {
	return map[Name]Lookup{
		Overlay:        {ID: "overlay"},
		WordContainer:  {Selector: ".wordContainer"},
		CurrentWord:    {ID: "currentWord"},
		DrawingToolbar: {Selector: ".containerToolbar"},
		Chat:           {ID: "boxMessages"},
		Players:        {Parent: ".containerGame", Selector: "#containerGamePlayers"},
	}
}

// Element is a live handle on one anchor.
type Element interface {
	// Text returns the element's textContent.
	Text(ctx context.Context) (string, error)
	// SetText replaces the element's content with a single text node.
	SetText(ctx context.Context, text string) error
	// Style returns the element's inline style value for prop ("" when unset).
	Style(ctx context.Context, prop string) (string, error)
	// ChildTexts returns the textContent of each child element, in order.
	ChildTexts(ctx context.Context) ([]string, error)
	// ClickChild clicks the first child element whose textContent equals
	// text. It reports false, without side effects, when none matches.
	ClickChild(ctx context.Context, text string) (bool, error)
}

// Document locates elements in the observed page.
type Document interface {
	// Find returns (nil, nil) when nothing matches.
	Find(ctx context.Context, l Lookup) (Element, error)
}

// MissingAnchorError names every anchor that could not be found.
type MissingAnchorError struct {
	Names []Name
}

func (e *MissingAnchorError) Error() string {
	parts := make([]string, len(e.Names))
	for i, n := range e.Names {
		parts[i] = string(n)
	}
	return fmt.Sprintf("anchor: missing %s", strings.Join(parts, ", "))
}
