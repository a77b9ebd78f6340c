package translate

import (
	"context"
	"errors"

	"github.com/hazyhaar/streamermode/domwatch/event"
	"github.com/hazyhaar/streamermode/domwatch/mutation"
)

// handlePlayers resolves the rows added to and removed from the player list.
// A delivery publishes at most one PlayersLeft followed by one PlayersJoined.
// Added rows whose drawing indicator is already shown take over as drawer,
// since the page re-renders rows without touching the indicator again.
func (t *Translator) handlePlayers(ctx context.Context, recs []mutation.Record) {
	var joined, left []event.Player
	var drawer *event.Player

	t.mu.Lock()
	prev := t.drawer
	for _, rec := range recs {
		if rec.Kind != mutation.KindChildList {
			continue
		}
		for _, n := range rec.Added {
			p, err := ParsePlayer(n)
			if err != nil {
				t.dropPlayerNode(n, err)
				continue
			}
			t.players[n.Key] = p
			joined = append(joined, p)
			if indicatorShown(n) {
				t.drawer = n.Key
				drawer = &p
			}
		}
		for _, n := range rec.Removed {
			p, ok := t.players[n.Key]
			if !ok {
				var err error
				if p, err = ParsePlayer(n); err != nil {
					t.dropPlayerNode(n, err)
					continue
				}
			}
			delete(t.players, n.Key)
			left = append(left, p)
			if t.drawer != 0 && t.drawer == n.Key {
				t.drawer = 0
			}
		}
	}
	cur := t.drawer
	t.mu.Unlock()

	if len(left) > 0 {
		t.publish(ctx, event.PlayersLeft{Players: left})
	}
	if len(joined) > 0 {
		t.publish(ctx, event.PlayersJoined{Players: joined})
	}
	switch {
	case cur == prev:
	case cur == 0:
		// The drawing indicator of a removed row never turns off.
		t.publish(ctx, event.DrawingChanged{})
	default:
		t.publish(ctx, event.DrawingChanged{Player: drawer})
	}
}

// indicatorShown reports whether a player row carries a visible drawing
// indicator.
func indicatorShown(n mutation.Node) bool {
	sel, err := n.Parse()
	if err != nil {
		return false
	}
	ind := sel.Find("." + drawingClass).First()
	return ind.Length() > 0 && !mutation.Hidden(ind)
}

func (t *Translator) dropPlayerNode(n mutation.Node, err error) {
	if errors.Is(err, errNotElement) {
		return
	}
	t.logger.Warn("translate: dropping player node", "key", n.Key, "error", err)
}
