package observer

import (
	"fmt"

	"github.com/hazyhaar/streamermode/domwatch/anchor"
	"github.com/hazyhaar/streamermode/domwatch/internal/browser"
	"github.com/hazyhaar/streamermode/domwatch/mutation"
)

// keyed is implemented by elements the bridge can address.
type keyed interface {
	Key() mutation.NodeKey
}

// Targets maps each concern to the anchors its observer watches and how.
func Targets(anchors *anchor.Set) (map[mutation.Concern][]browser.WatchTarget, error) {
	key := func(n anchor.Name) (mutation.NodeKey, error) {
		k, ok := anchors.Get(n).(keyed)
		if !ok {
			return 0, fmt.Errorf("anchor %s is not a page element", n)
		}
		return k.Key(), nil
	}
	keys := make(map[anchor.Name]mutation.NodeKey, len(anchor.Names))
	for _, n := range anchor.Names {
		k, err := key(n)
		if err != nil {
			return nil, err
		}
		keys[n] = k
	}

	style := []string{"style"}
	return map[mutation.Concern][]browser.WatchTarget{
		mutation.ConcernCurrentWord: {
			{Key: keys[anchor.CurrentWord], Options: browser.ObserveOptions{ChildList: true, CharacterData: true, Subtree: true}},
		},
		mutation.ConcernWordList: {
			{Key: keys[anchor.WordContainer], Options: browser.ObserveOptions{ChildList: true, Attributes: true, AttributeFilter: style}},
			{Key: keys[anchor.Overlay], Options: browser.ObserveOptions{Attributes: true, AttributeFilter: style}},
		},
		mutation.ConcernChat: {
			{Key: keys[anchor.Chat], Options: browser.ObserveOptions{ChildList: true}},
		},
		mutation.ConcernPlayers: {
			{Key: keys[anchor.Players], Options: browser.ObserveOptions{ChildList: true}, Seed: true},
		},
		mutation.ConcernDrawing: {
			{Key: keys[anchor.Players], Options: browser.ObserveOptions{
				Attributes: true, Subtree: true, AttributeOldValue: true,
				AttributeFilter: []string{"style", "class"},
			}},
		},
	}, nil
}
