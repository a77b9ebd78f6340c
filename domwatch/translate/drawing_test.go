package translate

import (
	"testing"

	"github.com/hazyhaar/streamermode/domwatch/event"
	"github.com/hazyhaar/streamermode/domwatch/mutation"
)

func (h *harness) indicator(player, display string) mutation.Record {
	h.t.Helper()
	return h.rec(h.doc.SetStyle("#"+player+" .drawing", "display", display))
}

func wantDrawer(t *testing.T, evs []event.Event, name string) {
	t.Helper()
	if len(evs) != 1 {
		t.Fatalf("events: got %d (%v), want 1", len(evs), evs)
	}
	dc, ok := evs[0].(event.DrawingChanged)
	if !ok {
		t.Fatalf("got %T, want DrawingChanged", evs[0])
	}
	switch {
	case name == "" && dc.Player != nil:
		t.Errorf("drawer: got %q, want nobody", dc.Player.Name)
	case name != "" && dc.Player == nil:
		t.Errorf("drawer: got nobody, want %q", name)
	case name != "" && dc.Player.Name != name:
		t.Errorf("drawer: got %q, want %q", dc.Player.Name, name)
	}
}

func TestDrawing_ShowHideSequence(t *testing.T) {
	h := newHarness(t)
	h.join(aliceRow, bobRow)
	h.take()

	h.feed(mutation.ConcernDrawing, h.indicator("p-bob", "block"))
	wantDrawer(t, h.take(), "Bob")

	// Repeated notifications for the same state are swallowed.
	h.feed(mutation.ConcernDrawing, h.indicator("p-bob", "block"), h.indicator("p-bob", "block"))
	if evs := h.take(); len(evs) != 0 {
		t.Fatalf("duplicate produced %v", evs)
	}

	h.feed(mutation.ConcernDrawing, h.indicator("p-bob", "none"))
	wantDrawer(t, h.take(), "")

	h.feed(mutation.ConcernDrawing, h.indicator("p-bob", "none"))
	if evs := h.take(); len(evs) != 0 {
		t.Fatalf("second hide produced %v", evs)
	}
}

func TestDrawing_HandOver(t *testing.T) {
	h := newHarness(t)
	h.join(aliceRow, bobRow)
	h.take()

	h.feed(mutation.ConcernDrawing, h.indicator("p-bob", "block"))
	wantDrawer(t, h.take(), "Bob")

	// Alice starts before Bob's indicator is turned off.
	h.feed(mutation.ConcernDrawing, h.indicator("p-alice", "block"))
	evs := h.take()
	wantDrawer(t, evs, "Alice")
	if !evs[0].(event.DrawingChanged).Player.IsUs {
		t.Error("Alice must be the local player")
	}

	// Bob's stale indicator going away says nothing about Alice.
	h.feed(mutation.ConcernDrawing, h.indicator("p-bob", "none"))
	if evs := h.take(); len(evs) != 0 {
		t.Fatalf("stale hide produced %v", evs)
	}
}

func TestDrawing_IgnoresNoise(t *testing.T) {
	h := newHarness(t)
	h.join(aliceRow, bobRow)
	h.take()

	h.feed(mutation.ConcernDrawing,
		h.rec(h.doc.SetAttr("#p-bob .name", "class", "name highlighted")),
		h.rec(h.doc.SetStyle("#p-bob", "opacity", "0.5")),
		h.rec(h.doc.Append("#p-bob .info", `<span class="drawing">x</span>`)),
	)
	if evs := h.take(); len(evs) != 0 {
		t.Fatalf("noise produced %v", evs)
	}
}

func TestDrawing_UnknownOwnerDropped(t *testing.T) {
	h := newHarness(t)
	// The row exists in the page but was never announced as a player.
	h.rec(h.doc.Append("#containerGamePlayers", bobRow))

	h.feed(mutation.ConcernDrawing, h.indicator("p-bob", "block"))
	if evs := h.take(); len(evs) != 0 {
		t.Fatalf("got %v, want no event", evs)
	}
}

func TestDrawing_DrawerLeaves(t *testing.T) {
	h := newHarness(t)
	h.join(aliceRow, bobRow)
	h.take()
	h.feed(mutation.ConcernDrawing, h.indicator("p-bob", "block"))
	h.take()

	h.feed(mutation.ConcernPlayers, h.rec(h.doc.Remove("#p-bob")))
	evs := h.take()
	if len(evs) != 2 {
		t.Fatalf("events: got %d (%v), want 2", len(evs), evs)
	}
	if _, ok := evs[0].(event.PlayersLeft); !ok {
		t.Errorf("first: got %T, want PlayersLeft", evs[0])
	}
	wantDrawer(t, evs[1:], "")
}

func TestDrawing_DrawerRowRerendered(t *testing.T) {
	h := newHarness(t)
	h.join(aliceRow, bobRow)
	h.take()
	h.feed(mutation.ConcernDrawing, h.indicator("p-bob", "block"))
	h.take()

	shown := `<div class="player" id="p-bob2"><div class="info"><div class="name">Bob</div></div>` +
		`<div class="drawing" style="display: block"></div></div>`
	h.feed(mutation.ConcernPlayers,
		h.rec(h.doc.Remove("#p-bob")),
		h.rec(h.doc.Append("#containerGamePlayers", shown)),
	)
	evs := h.take()
	if len(evs) != 3 {
		t.Fatalf("events: got %d (%v), want 3", len(evs), evs)
	}
	if _, ok := evs[0].(event.PlayersLeft); !ok {
		t.Errorf("first: got %T, want PlayersLeft", evs[0])
	}
	if _, ok := evs[1].(event.PlayersJoined); !ok {
		t.Errorf("second: got %T, want PlayersJoined", evs[1])
	}
	wantDrawer(t, evs[2:], "Bob")

	// The restored drawer is the new row: its indicator turning off ends the turn.
	h.feed(mutation.ConcernDrawing, h.indicator("p-bob2", "none"))
	wantDrawer(t, h.take(), "")
}

func TestDrawing_JoinedHiddenIndicatorIgnored(t *testing.T) {
	h := newHarness(t)
	h.join(aliceRow, bobRow)
	evs := h.take()
	if len(evs) != 1 {
		t.Fatalf("events: got %d (%v), want only PlayersJoined", len(evs), evs)
	}
}
