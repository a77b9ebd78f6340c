package translate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hazyhaar/streamermode/domwatch/event"
	"github.com/hazyhaar/streamermode/domwatch/mutation"
)

// errNotElement marks text/comment nodes: routine noise in child lists.
var errNotElement = errors.New("not an element")

const localSuffix = " (You)"

// ParseChatMessage decomposes a chat line into sender and message. A line is
// exactly two child nodes: the "Sender: " label and the text.
func ParseChatMessage(n mutation.Node) (event.ChatMessage, error) {
	if !n.IsElement() {
		return event.ChatMessage{}, errNotElement
	}
	sel, err := n.Parse()
	if err != nil {
		return event.ChatMessage{}, err
	}
	parts := sel.Contents()
	if parts.Length() != 2 {
		return event.ChatMessage{}, fmt.Errorf("chat node has %d parts, want 2", parts.Length())
	}
	return event.ChatMessage{
		Sender:  strings.TrimSuffix(parts.Eq(0).Text(), ": "),
		Message: parts.Eq(1).Text(),
		Key:     n.Key,
	}, nil
}

// ParsePlayer derives a player record from a row of the player list. The
// local player is the one whose name carries an inline color; their name
// loses the " (You)" suffix the page appends.
func ParsePlayer(n mutation.Node) (event.Player, error) {
	if !n.IsElement() {
		return event.Player{}, errNotElement
	}
	sel, err := n.Parse()
	if err != nil {
		return event.Player{}, err
	}
	name := sel.Find(".name").First()
	if name.Length() == 0 {
		return event.Player{}, errors.New("player node has no name")
	}

	isUs := mutation.InlineStyle(name)["color"] != ""
	text := name.Text()
	if isUs {
		text = strings.TrimSuffix(text, localSuffix)
	}
	return event.Player{Name: text, IsUs: isUs, Key: n.Key}, nil
}
