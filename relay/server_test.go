package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hazyhaar/streamermode/domwatch/event"
	"github.com/hazyhaar/streamermode/moderation"
)

type fakeModerator struct {
	muted  map[string]bool
	hidden map[string]bool
}

func newFakeModerator() *fakeModerator {
	return &fakeModerator{muted: map[string]bool{}, hidden: map[string]bool{}}
}

func (f *fakeModerator) toggle(m map[string]bool, name string) (bool, error) {
	switch name {
	case "me":
		return false, moderation.ErrSelf
	case "alice", "bob":
		m[name] = !m[name]
		return m[name], nil
	}
	return false, fmt.Errorf("%w %q", moderation.ErrUnknownPlayer, name)
}

func (f *fakeModerator) ToggleMute(_ context.Context, name string) (bool, error) {
	return f.toggle(f.muted, name)
}

func (f *fakeModerator) ToggleHide(_ context.Context, name string) (bool, error) {
	return f.toggle(f.hidden, name)
}

func (f *fakeModerator) State() moderation.State {
	var st moderation.State
	for n, on := range f.muted {
		if on {
			st.Muted = append(st.Muted, n)
		}
	}
	for n, on := range f.hidden {
		if on {
			st.Hidden = append(st.Hidden, n)
		}
	}
	return st
}

func (f *fakeModerator) Players() []event.Player {
	return []event.Player{{Name: "alice", Key: 1}, {Name: "bob", Key: 2}, {Name: "me", IsUs: true, Key: 3}}
}

func newTestServer(t *testing.T, mod Moderator) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(Config{Moderator: mod, MCP: true})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return s, ts
}

func post(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestServer_State(t *testing.T) {
	s, ts := newTestServer(t, nil)
	s.Hub().Update(ptr([]string{"cat", "dog"}), ptr(""))

	resp, err := http.Get(ts.URL + "/state")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("X-Frame-Options") != "DENY" {
		t.Error("security headers missing")
	}
	var st State
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if len(st.WordList) != 2 || st.WordList[1] != "dog" {
		t.Errorf("state: %+v", st)
	}
}

func TestServer_Select(t *testing.T) {
	s, ts := newTestServer(t, nil)
	s.Hub().OnSelect(func(_ context.Context, word string) (bool, error) {
		return word == "dog", nil
	})

	resp, out := post(t, ts.URL+"/select", `{"word":"dog"}`)
	if resp.StatusCode != http.StatusOK || out["selected"] != true {
		t.Errorf("select dog: %d %v", resp.StatusCode, out)
	}
	resp, out = post(t, ts.URL+"/select", `{"word":"horse"}`)
	if resp.StatusCode != http.StatusNotFound || out["selected"] != false {
		t.Errorf("select horse: %d %v", resp.StatusCode, out)
	}
	resp, _ = post(t, ts.URL+"/select", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty word: %d", resp.StatusCode)
	}
	resp, _ = post(t, ts.URL+"/select", `{"word":"`+strings.Repeat("x", 70*1024)+`"}`)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized body: %d", resp.StatusCode)
	}
}

func TestServer_Moderation(t *testing.T) {
	mod := newFakeModerator()
	_, ts := newTestServer(t, mod)

	tests := []struct {
		path   string
		status int
		field  string
		want   any
	}{
		{"/moderation/mute/alice", http.StatusOK, "muted", true},
		{"/moderation/mute/alice", http.StatusOK, "muted", false},
		{"/moderation/hide/bob", http.StatusOK, "hidden", true},
		{"/moderation/mute/me", http.StatusBadRequest, "", nil},
		{"/moderation/hide/zed", http.StatusNotFound, "", nil},
	}
	for _, tt := range tests {
		resp, out := post(t, ts.URL+tt.path, "")
		if resp.StatusCode != tt.status {
			t.Errorf("%s: status %d, want %d", tt.path, resp.StatusCode, tt.status)
			continue
		}
		if tt.field != "" && out[tt.field] != tt.want {
			t.Errorf("%s: %s = %v, want %v", tt.path, tt.field, out[tt.field], tt.want)
		}
	}
	if !mod.hidden["bob"] || mod.muted["alice"] {
		t.Errorf("moderator state: %+v", mod)
	}
}

func TestServer_ModerationUnavailable(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp, _ := post(t, ts.URL+"/moderation/mute/alice", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status: %d", resp.StatusCode)
	}
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var m Message
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("read: %v", err)
	}
	return m
}

func TestServer_WebsocketRelay(t *testing.T) {
	s, ts := newTestServer(t, nil)
	picked := make(chan string, 1)
	s.Hub().OnSelect(func(_ context.Context, word string) (bool, error) {
		picked <- word
		return true, nil
	})

	page := dial(t, ts)
	if err := page.WriteJSON(Message{Type: TypeRequest}); err != nil {
		t.Fatal(err)
	}
	readMessage(t, page)
	popup := dial(t, ts)

	// The popup asks for the state on load; both clients receive it.
	if err := popup.WriteJSON(Message{Type: TypeRequest}); err != nil {
		t.Fatal(err)
	}
	for _, c := range []*websocket.Conn{page, popup} {
		if m := readMessage(t, c); m.Type != TypeState || m.State == nil {
			t.Fatalf("request reply: %+v", m)
		}
	}

	var buf bytes.Buffer
	buf.WriteString(`{"type":"update","wordList":["cat","dog","fish"]}`)
	if err := page.WriteMessage(websocket.TextMessage, buf.Bytes()); err != nil {
		t.Fatal(err)
	}
	m := readMessage(t, popup)
	if m.Type != TypeState || len(m.State.WordList) != 3 {
		t.Fatalf("update broadcast: %+v", m)
	}
	readMessage(t, page)

	if err := popup.WriteJSON(Message{Type: TypeSelect, Word: "dog"}); err != nil {
		t.Fatal(err)
	}
	if m := readMessage(t, page); m.Type != TypeSelect || m.Word != "dog" {
		t.Fatalf("select broadcast: %+v", m)
	}
	select {
	case w := <-picked:
		if w != "dog" {
			t.Errorf("page selected %q", w)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("page client never selected")
	}
}

func TestServer_WebsocketIgnoresGarbage(t *testing.T) {
	_, ts := newTestServer(t, nil)
	c := dial(t, ts)

	c.WriteMessage(websocket.TextMessage, []byte("not json"))
	c.WriteJSON(Message{Type: "bogus"})
	c.WriteJSON(Message{Type: TypeRequest})

	if m := readMessage(t, c); m.Type != TypeState {
		t.Fatalf("connection must survive bad messages: %+v", m)
	}
}

func TestServer_CloseDisconnectsClients(t *testing.T) {
	s, ts := newTestServer(t, nil)
	c := dial(t, ts)

	// Wait for the subscription to be live.
	c.WriteJSON(Message{Type: TypeRequest})
	readMessage(t, c)

	s.Close()
	c.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := c.ReadMessage(); err == nil {
		t.Fatal("expected the connection to close")
	}
}
