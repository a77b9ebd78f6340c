package relay

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var testMCPImpl = &mcp.Implementation{Name: "relay-test", Version: "0.1.0"}

func mcpSession(t *testing.T, hub *Hub, mod Moderator) *mcp.ClientSession {
	t.Helper()
	srv := NewMCPServer(hub, mod, nil)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCall(t *testing.T, session *mcp.ClientSession, name string, args any) *mcp.CallToolResult {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return result
}

func mcpText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result.IsError {
		t.Fatalf("tool error: %+v", result.Content)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	return tc.Text
}

func TestMCP_State(t *testing.T) {
	hub := NewHub(nil)
	hub.Update(ptr([]string{"cat", "dog"}), ptr("cat"))
	session := mcpSession(t, hub, nil)

	var st State
	if err := json.Unmarshal([]byte(mcpText(t, mcpCall(t, session, "streamer_state", map[string]any{}))), &st); err != nil {
		t.Fatal(err)
	}
	if st.CurrentWord != "cat" || len(st.WordList) != 2 {
		t.Errorf("state: %+v", st)
	}
}

func TestMCP_SelectWord(t *testing.T) {
	hub := NewHub(nil)
	hub.OnSelect(func(_ context.Context, word string) (bool, error) { return word == "dog", nil })
	session := mcpSession(t, hub, nil)

	var resp selectResponse
	json.Unmarshal([]byte(mcpText(t, mcpCall(t, session, "streamer_select_word", map[string]any{"word": "dog"}))), &resp)
	if !resp.Selected {
		t.Errorf("dog: %+v", resp)
	}
	json.Unmarshal([]byte(mcpText(t, mcpCall(t, session, "streamer_select_word", map[string]any{"word": "horse"}))), &resp)
	if resp.Selected {
		t.Errorf("horse: %+v", resp)
	}
	if res := mcpCall(t, session, "streamer_select_word", map[string]any{}); !res.IsError {
		t.Error("missing word must be a tool error")
	}
}

func TestMCP_Moderation(t *testing.T) {
	mod := newFakeModerator()
	session := mcpSession(t, NewHub(nil), mod)

	var out map[string]any
	json.Unmarshal([]byte(mcpText(t, mcpCall(t, session, "streamer_toggle_mute", map[string]any{"name": "alice"}))), &out)
	if out["muted"] != true {
		t.Errorf("mute alice: %v", out)
	}
	json.Unmarshal([]byte(mcpText(t, mcpCall(t, session, "streamer_toggle_hide", map[string]any{"name": "bob"}))), &out)
	if out["hidden"] != true {
		t.Errorf("hide bob: %v", out)
	}
	if res := mcpCall(t, session, "streamer_toggle_mute", map[string]any{"name": "me"}); !res.IsError {
		t.Error("muting yourself must be a tool error")
	}

	var players struct {
		Players []map[string]any `json:"players"`
		Muted   []string         `json:"muted"`
	}
	json.Unmarshal([]byte(mcpText(t, mcpCall(t, session, "streamer_players", map[string]any{}))), &players)
	if len(players.Players) != 3 || len(players.Muted) != 1 || players.Muted[0] != "alice" {
		t.Errorf("players: %+v", players)
	}
}

func TestMCP_NoModerationTools(t *testing.T) {
	session := mcpSession(t, NewHub(nil), nil)
	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, tool := range res.Tools {
		if tool.Name == "streamer_toggle_mute" {
			t.Fatal("moderation tools registered without a moderator")
		}
	}
}
