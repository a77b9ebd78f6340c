package relay

import (
	"context"
	"errors"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/streamermode/kit"
)

// NewMCPServer creates an MCP server exposing the relay tools.
func NewMCPServer(hub *Hub, mod Moderator, logger *slog.Logger) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "streamermode", Version: "0.1.0"}, nil)
	RegisterMCP(srv, hub, mod, logger)
	return srv
}

// RegisterMCP registers the relay tools on srv. The moderation tools are
// only registered when mod is non-nil.
func RegisterMCP(srv *mcp.Server, hub *Hub, mod Moderator, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	t := &mcpTools{hub: hub, mod: mod, logger: logger}
	t.registerState(srv)
	t.registerSelect(srv)
	if mod != nil {
		t.registerToggle(srv, "streamer_toggle_mute",
			"Mute or unmute a player: their chat lines are hidden while muted.", "muted", mod.ToggleMute)
		t.registerToggle(srv, "streamer_toggle_hide",
			"Hide or unhide a player's drawings: the canvas is covered while they draw.", "hidden", mod.ToggleHide)
		t.registerPlayers(srv)
	}
}

type mcpTools struct {
	hub    *Hub
	mod    Moderator
	logger *slog.Logger
}

func (t *mcpTools) endpoint(name string, ep kit.Endpoint) kit.Endpoint {
	return kit.Chain(kit.Logging(t.logger, name))(ep)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func noArgs(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	return &kit.MCPDecodeResult{Request: nil}, nil
}

// --- state ---

func (t *mcpTools) registerState(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "streamer_state",
		Description: "Return the word list on offer and the current word to draw.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	endpoint := func(_ context.Context, _ any) (any, error) {
		return t.hub.State(), nil
	}
	kit.RegisterMCPTool(srv, tool, t.endpoint(tool.Name, endpoint), noArgs)
}

// --- select ---

type selectWordReq struct {
	Word string `json:"word"`
}

func (t *mcpTools) registerSelect(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "streamer_select_word",
		Description: "Select one of the offered words on the page.",
		InputSchema: inputSchema(map[string]any{
			"word": map[string]any{"type": "string", "description": "Word to select, as offered"},
		}, []string{"word"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*selectWordReq)
		ok, err := t.hub.Select(ctx, r.Word)
		if err != nil {
			return nil, err
		}
		return selectResponse{Word: r.Word, Selected: ok}, nil
	}
	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r selectWordReq
		if err := kit.DecodeArgs(req, &r); err != nil {
			return nil, err
		}
		if r.Word == "" {
			return nil, ErrEmptyWord
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}
	kit.RegisterMCPTool(srv, tool, t.endpoint(tool.Name, endpoint), decode)
}

// --- moderation ---

type playerReq struct {
	Name string `json:"name"`
}

func (t *mcpTools) registerToggle(srv *mcp.Server, name, desc, field string, toggle toggleFunc) {
	tool := &mcp.Tool{
		Name:        name,
		Description: desc,
		InputSchema: inputSchema(map[string]any{
			"name": map[string]any{"type": "string", "description": "Player display name"},
		}, []string{"name"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*playerReq)
		on, err := toggle(ctx, r.Name)
		if isRejection(err) {
			return nil, err
		}
		if err != nil {
			t.logger.Warn("relay: moderation side effect", "name", r.Name, "error", err)
		}
		return map[string]any{"name": r.Name, field: on}, nil
	}
	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r playerReq
		if err := kit.DecodeArgs(req, &r); err != nil {
			return nil, err
		}
		if r.Name == "" {
			return nil, errors.New("name is required")
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}
	kit.RegisterMCPTool(srv, tool, t.endpoint(tool.Name, endpoint), decode)
}

func (t *mcpTools) registerPlayers(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "streamer_players",
		Description: "List the players in the game with the current mute and hide lists.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	endpoint := func(_ context.Context, _ any) (any, error) {
		st := t.mod.State()
		return map[string]any{
			"players": t.mod.Players(),
			"muted":   st.Muted,
			"hidden":  st.Hidden,
		}, nil
	}
	kit.RegisterMCPTool(srv, tool, t.endpoint(tool.Name, endpoint), noArgs)
}
