package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/streamermode/dbopen"
	"github.com/hazyhaar/streamermode/domwatch/event"
	"github.com/hazyhaar/streamermode/domwatch/eventbus"
)

func envelope(seq uint64, ev event.Event) Envelope {
	return Envelope{ID: "id", Seq: seq, Topic: ev.Topic(), PageID: "p", Timestamp: 1, Data: ev}
}

func TestStdout(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf)
	if err := s.Send(context.Background(), envelope(1, event.ChatMessage{Sender: "Alice", Message: "hi"})); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := s.Send(context.Background(), envelope(2, event.DrawingChanged{})); err != nil {
		t.Fatalf("Send: %v", err)
	}

	dec := json.NewDecoder(&buf)
	var first struct {
		Topic string `json:"topic"`
		Data  struct {
			Sender string `json:"sender"`
		} `json:"data"`
	}
	if err := dec.Decode(&first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.Topic != "chat" || first.Data.Sender != "Alice" {
		t.Errorf("first line: got %+v", first)
	}
	var second map[string]any
	if err := dec.Decode(&second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data := second["data"].(map[string]any); data["player"] != nil {
		t.Errorf("drawing(none) must encode a null player, got %v", data["player"])
	}
}

func TestWebhook_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Event-Topic") != "currentWord" {
			t.Errorf("topic header: got %q", r.Header.Get("X-Event-Topic"))
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookBackoff(time.Millisecond))
	if err := w.Send(context.Background(), envelope(1, event.CurrentWord{Word: "apple"})); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls: got %d, want 3", n)
	}
}

func TestWebhook_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookBackoff(time.Millisecond))
	if err := w.Send(context.Background(), envelope(1, event.CurrentWord{})); err == nil {
		t.Fatal("expected error")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls: got %d, want 1", n)
	}
}

func TestWebhook_Exhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookRetries(2), WithWebhookBackoff(time.Millisecond))
	if err := w.Send(context.Background(), envelope(1, event.CurrentWord{})); err == nil {
		t.Fatal("expected error after retries")
	}
}

func TestJournal(t *testing.T) {
	db := dbopen.OpenMemory(t)
	j, err := NewJournal(db)
	if err != nil {
		t.Fatalf("NewJournal: %v", err)
	}
	ctx := context.Background()

	evs := []event.Event{
		event.ChatMessage{Sender: "Alice", Message: "one"},
		event.CurrentWord{Word: "apple"},
		event.ChatMessage{Sender: "Bob", Message: "two"},
		event.ChatMessage{Sender: "Carol", Message: "three"},
	}
	for i, ev := range evs {
		env := envelope(uint64(i+1), ev)
		env.ID = string(rune('a' + i))
		if err := j.Send(ctx, env); err != nil {
			t.Fatalf("Send %d: %v", i, err)
		}
	}

	chat, err := j.Recent(ctx, event.TopicChat, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(chat) != 2 || chat[0].Seq != 3 || chat[1].Seq != 4 {
		t.Fatalf("recent chat: got %+v", chat)
	}
	var msg event.ChatMessage
	if err := json.Unmarshal(chat[1].Data, &msg); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if msg.Sender != "Carol" {
		t.Errorf("last chat sender: got %q", msg.Sender)
	}

	all, err := j.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("Recent all: %v", err)
	}
	if len(all) != 4 || all[1].Topic != event.TopicCurrentWord {
		t.Errorf("all: got %+v", all)
	}

	if err := j.Send(ctx, envelope(9, event.CurrentWord{})); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := j.Send(ctx, envelope(10, event.CurrentWord{})); err == nil {
		t.Error("duplicate id must be rejected")
	}
}

type recordSink struct {
	got  []Envelope
	fail bool
}

func (s *recordSink) Send(_ context.Context, env Envelope) error {
	s.got = append(s.got, env)
	if s.fail {
		return errors.New("down")
	}
	return nil
}

func (s *recordSink) Close() error { return nil }

func TestRouter(t *testing.T) {
	all := &recordSink{}
	chatOnly := &recordSink{}
	broken := &recordSink{fail: true}
	r := NewRouter("page", nil,
		Route{Sink: broken},
		Route{Sink: all},
		Route{Sink: chatOnly, Topics: []event.Topic{event.TopicChat}},
	)

	bus := eventbus.New(nil)
	r.Attach(bus)
	ctx := context.Background()

	if err := bus.Publish(ctx, event.ChatMessage{Sender: "Alice", Message: "hi"}); err == nil {
		t.Error("the broken sink's error should surface")
	}
	_ = bus.Publish(ctx, event.DrawingChanged{})

	if len(all.got) != 2 {
		t.Fatalf("all: got %d envelopes, want 2", len(all.got))
	}
	if all.got[0].Seq != 1 || all.got[1].Seq != 2 || all.got[0].PageID != "page" || all.got[0].ID == "" {
		t.Errorf("envelopes: got %+v", all.got)
	}
	if len(chatOnly.got) != 1 || chatOnly.got[0].Topic != event.TopicChat {
		t.Errorf("chat only: got %+v", chatOnly.got)
	}
}
