package translate

import (
	"context"
	"fmt"

	"github.com/hazyhaar/streamermode/domwatch/anchor"
	"github.com/hazyhaar/streamermode/domwatch/event"
	"github.com/hazyhaar/streamermode/domwatch/mutation"
)

// handleWordList recomputes the word list once per delivery and publishes
// only when its visibility flips. The page emits many intermediate records
// for a single show/hide; the words themselves are read when it does.
func (t *Translator) handleWordList(ctx context.Context, recs []mutation.Record) error {
	if len(recs) == 0 {
		return nil
	}

	overlay, err := t.anchors.Get(anchor.Overlay).Style(ctx, "display")
	if err != nil {
		return fmt.Errorf("translate: read overlay: %w", err)
	}
	container := t.anchors.Get(anchor.WordContainer)
	shown, err := container.Style(ctx, "display")
	if err != nil {
		return fmt.Errorf("translate: read word container: %w", err)
	}

	vis := visHidden
	if overlay != "none" && shown != "none" {
		vis = visShown
	}
	if vis == t.lastVisible {
		t.logger.Debug("translate: skipping word list, visibility unchanged")
		return nil
	}

	words := []string{}
	if vis == visShown {
		words, err = container.ChildTexts(ctx)
		if err != nil {
			return fmt.Errorf("translate: read words: %w", err)
		}
	}
	t.lastVisible = vis
	t.publish(ctx, event.WordList{Words: words})
	return nil
}
