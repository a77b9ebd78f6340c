package domwatch

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/hazyhaar/streamermode/domwatch/anchor"
	"github.com/hazyhaar/streamermode/domwatch/event"
	"github.com/hazyhaar/streamermode/domwatch/eventbus"
	"github.com/hazyhaar/streamermode/domwatch/memdom"
	"github.com/hazyhaar/streamermode/domwatch/mutation"
)

// record plays a short game on a fresh page and returns it as a capture.
func record(t *testing.T) []byte {
	t.Helper()
	doc := memdom.NewSkeleton()
	must := func(r mutation.Record, err error) mutation.Record {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
		return r
	}

	batches := []mutation.Batch{
		{Concern: mutation.ConcernPlayers, Seq: 1, Records: []mutation.Record{
			must(doc.Append("#containerGamePlayers",
				`<div class="player"><div class="info"><div class="name">Bob</div></div><div class="drawing" style="display: none;"></div></div>`)),
		}},
		{Concern: mutation.ConcernChat, Seq: 2, Records: []mutation.Record{
			must(doc.Append("#boxMessages", `<p><b>Bob: </b><span>hello</span></p>`)),
			must(doc.Append("#boxMessages", `<p>Bob guessed the word!</p>`)),
		}},
	}

	var buf bytes.Buffer
	for i := range batches {
		if err := writeBatch(&buf, &batches[i]); err != nil {
			t.Fatal(err)
		}
	}
	return buf.Bytes()
}

func TestReplay(t *testing.T) {
	bus := eventbus.New(nil)
	var got []event.Event
	for _, topic := range event.Topics {
		bus.Subscribe(topic, func(_ context.Context, ev event.Event) error {
			got = append(got, ev)
			return nil
		})
	}

	tr, _, err := Replay(context.Background(), ReplayConfig{
		Batches: bytes.NewReader(record(t)),
		Bus:     bus,
	})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("events: got %d (%+v), want 2", len(got), got)
	}
	joined, ok := got[0].(event.PlayersJoined)
	if !ok || len(joined.Players) != 1 || joined.Players[0].Name != "Bob" {
		t.Errorf("event[0]: %+v", got[0])
	}
	msg, ok := got[1].(event.ChatMessage)
	if !ok || msg.Sender != "Bob" || msg.Message != "hello" {
		t.Errorf("event[1]: %+v", got[1])
	}
	if len(tr.Players()) != 1 {
		t.Errorf("translator players: %v", tr.Players())
	}
}

func TestReplay_MissingAnchor(t *testing.T) {
	_, _, err := Replay(context.Background(), ReplayConfig{
		Page:    strings.NewReader(`<html><body><div id="currentWord"></div></body></html>`),
		Batches: strings.NewReader(""),
	})
	var missing *anchor.MissingAnchorError
	if !errors.As(err, &missing) {
		t.Fatalf("error: got %v, want MissingAnchorError", err)
	}
	if len(missing.Names) == 0 {
		t.Error("missing anchors must be named")
	}
}

func TestReplay_BadCapture(t *testing.T) {
	_, _, err := Replay(context.Background(), ReplayConfig{Batches: strings.NewReader("{not json")})
	if err == nil {
		t.Fatal("expected decode error")
	}
}

func TestCapture(t *testing.T) {
	data := record(t)
	batches, err := mutation.ReadBatches(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	src := Capture(context.Background(), newSliceSource(batches), &buf, nil)
	var passed []mutation.Batch
	for b := range src.Batches() {
		passed = append(passed, b)
	}

	if !reflect.DeepEqual(passed, batches) {
		t.Errorf("forwarded batches differ")
	}
	if !bytes.Equal(buf.Bytes(), data) {
		t.Errorf("capture:\n%s\nwant:\n%s", buf.Bytes(), data)
	}
}

type failingWriter struct{ n int }

func (w *failingWriter) Write(p []byte) (int, error) {
	w.n++
	return 0, errors.New("disk full")
}

func TestCapture_WriteFailureKeepsFlowing(t *testing.T) {
	batches, _ := mutation.ReadBatches(bytes.NewReader(record(t)))
	w := &failingWriter{}
	n := 0
	for range Capture(context.Background(), newSliceSource(batches), w, nil).Batches() {
		n++
	}
	if n != len(batches) {
		t.Errorf("forwarded %d of %d batches", n, len(batches))
	}
	if w.n != 1 {
		t.Errorf("writes attempted: %d, want 1", w.n)
	}
}
