package translate

import (
	"context"
	"fmt"

	"github.com/hazyhaar/streamermode/domwatch/anchor"
)

// SelectWord clicks the offered word whose text equals word. It reports
// false when no such word is on offer.
func (t *Translator) SelectWord(ctx context.Context, word string) (bool, error) {
	ok, err := t.anchors.Get(anchor.WordContainer).ClickChild(ctx, word)
	if err != nil {
		return false, fmt.Errorf("translate: select word %q: %w", word, err)
	}
	if !ok {
		t.logger.Warn("translate: word not offered", "word", word)
	}
	return ok, nil
}
