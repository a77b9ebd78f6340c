package translate

import (
	"context"
	"errors"

	"github.com/hazyhaar/streamermode/domwatch/mutation"
)

// handleChat publishes one event per well-formed line added to the chat, in
// document order. Malformed lines are dropped.
func (t *Translator) handleChat(ctx context.Context, recs []mutation.Record) {
	for _, rec := range recs {
		if rec.Kind != mutation.KindChildList {
			continue
		}
		for _, n := range rec.Added {
			msg, err := ParseChatMessage(n)
			if errors.Is(err, errNotElement) {
				continue
			}
			if err != nil {
				t.logger.Warn("translate: dropping chat node", "key", n.Key, "error", err)
				continue
			}
			t.publish(ctx, msg)
		}
	}
}
