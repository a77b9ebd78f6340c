package translate

import (
	"context"

	"github.com/hazyhaar/streamermode/domwatch/event"
	"github.com/hazyhaar/streamermode/domwatch/mutation"
)

const drawingClass = "drawing"

// handleDrawing watches attribute changes across the whole player list and
// keeps only those on a drawing indicator. The page re-renders broadly, so
// most records are noise and the same indicator change may arrive several
// times; only changes of drawer are published.
func (t *Translator) handleDrawing(ctx context.Context, recs []mutation.Record) {
	for _, rec := range recs {
		if rec.Kind != mutation.KindAttributes || !rec.Target.IsElement() {
			continue
		}
		sel, err := rec.Target.Parse()
		if err != nil || !sel.HasClass(drawingClass) {
			continue
		}
		drawing := !mutation.Hidden(sel)

		owner, ok := t.owner(rec.Ancestors)
		if !ok {
			t.logger.Warn("translate: unable to find player for drawing update", "key", rec.Target.Key)
			continue
		}

		switch {
		case drawing && t.drawer != owner.Key:
			t.drawer = owner.Key
			t.publish(ctx, event.DrawingChanged{Player: &owner})
		case !drawing && t.drawer == owner.Key:
			t.drawer = 0
			t.publish(ctx, event.DrawingChanged{})
		default:
			t.logger.Debug("translate: drawing state unchanged", "player", owner.Name, "drawing", drawing)
		}
	}
}

// owner walks from the target up to the nearest node with a player record.
func (t *Translator) owner(ancestors []mutation.NodeKey) (event.Player, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, k := range ancestors {
		if p, ok := t.players[k]; ok {
			return p, true
		}
	}
	return event.Player{}, false
}
