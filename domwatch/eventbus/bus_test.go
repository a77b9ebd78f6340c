package eventbus

import (
	"context"
	"errors"
	"testing"

	"github.com/hazyhaar/streamermode/domwatch/event"
)

func TestPublish_Order(t *testing.T) {
	b := New(nil)
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		b.Subscribe(event.TopicChat, func(_ context.Context, _ event.Event) error {
			order = append(order, name)
			return nil
		})
	}

	if err := b.Publish(context.Background(), event.ChatMessage{Sender: "x", Message: "y"}); err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("calls: got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order[%d]: got %q, want %q", i, order[i], want[i])
		}
	}
}

func TestPublish_NoListeners(t *testing.T) {
	b := New(nil)
	if err := b.Publish(context.Background(), event.WordList{}); err != nil {
		t.Fatalf("publish without listeners: %v", err)
	}
}

func TestPublish_TopicIsolation(t *testing.T) {
	b := New(nil)
	called := false
	b.Subscribe(event.TopicPlayers, func(context.Context, event.Event) error {
		called = true
		return nil
	})
	b.Publish(context.Background(), event.PlayersLeft{})
	if called {
		t.Fatal("players listener received a playersLeft event")
	}
}

func TestPublish_FailureIsolation(t *testing.T) {
	b := New(nil)
	errBoom := errors.New("boom")
	ran := 0

	b.Subscribe(event.TopicDrawing, func(context.Context, event.Event) error {
		ran++
		return errBoom
	})
	b.Subscribe(event.TopicDrawing, func(context.Context, event.Event) error {
		ran++
		panic("listener bug")
	})
	b.Subscribe(event.TopicDrawing, func(context.Context, event.Event) error {
		ran++
		return nil
	})

	err := b.Publish(context.Background(), event.DrawingChanged{})
	if ran != 3 {
		t.Fatalf("listeners run: got %d, want 3", ran)
	}
	if !errors.Is(err, errBoom) {
		t.Fatalf("error: got %v, want it to wrap %v", err, errBoom)
	}
}

func TestSubscribe_Duplicate(t *testing.T) {
	b := New(nil)
	n := 0
	l := func(context.Context, event.Event) error { n++; return nil }
	b.Subscribe(event.TopicChat, l)
	b.Subscribe(event.TopicChat, l)

	b.Publish(context.Background(), event.ChatMessage{})
	if n != 2 {
		t.Fatalf("duplicate listener calls: got %d, want 2", n)
	}
	if b.Listeners(event.TopicChat) != 2 {
		t.Fatalf("Listeners: got %d, want 2", b.Listeners(event.TopicChat))
	}
}

func TestOn_Typed(t *testing.T) {
	b := New(nil)
	var got []string
	On(b, func(_ context.Context, ev event.WordList) error {
		got = ev.Words
		return nil
	})

	b.Publish(context.Background(), event.WordList{Words: []string{"cat", "dog"}})
	if len(got) != 2 || got[1] != "dog" {
		t.Fatalf("words: got %v", got)
	}
}

func TestSubscribe_DuringPublish(t *testing.T) {
	b := New(nil)
	late := 0
	b.Subscribe(event.TopicChat, func(context.Context, event.Event) error {
		b.Subscribe(event.TopicChat, func(context.Context, event.Event) error {
			late++
			return nil
		})
		return nil
	})

	b.Publish(context.Background(), event.ChatMessage{})
	if late != 0 {
		t.Fatalf("listener added during publish ran in the same publish: %d", late)
	}
	b.Publish(context.Background(), event.ChatMessage{})
	if late != 1 {
		t.Fatalf("late listener calls: got %d, want 1", late)
	}
}
