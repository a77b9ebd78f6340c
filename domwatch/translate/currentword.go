package translate

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/hazyhaar/streamermode/domwatch/anchor"
	"github.com/hazyhaar/streamermode/domwatch/event"
	"github.com/hazyhaar/streamermode/domwatch/mutation"
)

// Mask replaces every non-whitespace rune of word with an underscore.
func Mask(word string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return r
		}
		return '_'
	}, word)
}

// handleCurrentWord redacts and reports the word while the local player
// draws. Each record is one change of the anchor: the first one after our
// own write is its echo and is swallowed, whatever it contains.
func (t *Translator) handleCurrentWord(ctx context.Context, recs []mutation.Record) error {
	for range recs {
		if t.awaitingEcho {
			t.awaitingEcho = false
			t.logger.Debug("translate: current word echo consumed")
			continue
		}
		if err := t.revealCurrentWord(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (t *Translator) revealCurrentWord(ctx context.Context) error {
	display, err := t.anchors.Get(anchor.DrawingToolbar).Style(ctx, "display")
	if err != nil {
		return fmt.Errorf("translate: read toolbar: %w", err)
	}
	if display == "none" {
		t.logger.Debug("translate: ignoring current word, not drawing")
		return nil
	}

	cur := t.anchors.Get(anchor.CurrentWord)
	word, err := cur.Text(ctx)
	if err != nil {
		return fmt.Errorf("translate: read current word: %w", err)
	}

	if strings.TrimSpace(word) == "" {
		t.publish(ctx, event.CurrentWord{})
		return nil
	}
	masked := Mask(word)
	if masked == word {
		// Already redacted: a second record of our own write.
		t.logger.Debug("translate: current word already masked")
		return nil
	}

	t.awaitingEcho = true
	if err := cur.SetText(ctx, masked); err != nil {
		t.awaitingEcho = false
		t.publish(ctx, event.CurrentWord{Word: word})
		return fmt.Errorf("translate: redact current word: %w", err)
	}
	t.publish(ctx, event.CurrentWord{Word: word})
	return nil
}
