package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/streamermode/domwatch/event"
	"github.com/hazyhaar/streamermode/idgen"
	"github.com/hazyhaar/streamermode/moderation"
	"github.com/hazyhaar/streamermode/shield"
)

// Moderator is the moderation surface exposed over HTTP and MCP.
type Moderator interface {
	ToggleMute(ctx context.Context, name string) (bool, error)
	ToggleHide(ctx context.Context, name string) (bool, error)
	State() moderation.State
	Players() []event.Player
}

// Config configures a Server.
type Config struct {
	Hub       *Hub
	Moderator Moderator // nil disables the moderation routes
	Logger    *slog.Logger
	MaxBody   int64 // default 64 KiB
	MCP       bool  // serve the MCP tools at /mcp
}

// Server exposes the hub over HTTP, websockets and MCP.
type Server struct {
	hub      *Hub
	mod      Moderator
	logger   *slog.Logger
	maxBody  int64
	upgrader websocket.Upgrader
	clientID idgen.Generator
	mcp      *mcp.Server

	base context.Context
	stop context.CancelFunc
}

// NewServer creates a Server.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxBody <= 0 {
		cfg.MaxBody = 64 * 1024
	}
	if cfg.Hub == nil {
		cfg.Hub = NewHub(cfg.Logger)
	}
	base, stop := context.WithCancel(context.Background())
	s := &Server{
		hub:     cfg.Hub,
		mod:     cfg.Moderator,
		logger:  cfg.Logger,
		maxBody: cfg.MaxBody,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Popups and the page live on other origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clientID: idgen.Prefixed("ws_", idgen.NanoID(12)),
		base:     base,
		stop:     stop,
	}
	if cfg.MCP {
		s.mcp = NewMCPServer(s.hub, s.mod, s.logger)
	}
	return s
}

// Hub returns the server's hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.Stack(s.maxBody, s.logger) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/state", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, s.hub.State())
	})
	r.Post("/select", s.handleSelect)
	r.Get("/ws", s.serveWS)

	r.Route("/moderation", func(r chi.Router) {
		r.Use(s.requireModerator)
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, s.mod.State())
		})
		r.Get("/players", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, s.mod.Players())
		})
		r.Post("/mute/{name}", s.handleToggle(s.toggleMute, "muted"))
		r.Post("/hide/{name}", s.handleToggle(s.toggleHide, "hidden"))
	})

	if s.mcp != nil {
		h := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcp }, nil)
		r.Handle("/mcp", h)
		r.Handle("/mcp/*", h)
	}
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully and closes every websocket client.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("relay: listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("relay: listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("relay: shutdown: %w", err)
	}
	s.logger.Info("relay: stopped")
	return nil
}

// Close disconnects every websocket client.
func (s *Server) Close() {
	s.stop()
}

type selectRequest struct {
	Word string `json:"word"`
}

type selectResponse struct {
	Word     string `json:"word"`
	Selected bool   `json:"selected"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	if req.Word == "" {
		writeError(w, http.StatusBadRequest, ErrEmptyWord)
		return
	}

	ok, err := s.hub.Select(r.Context(), req.Word)
	if err != nil {
		shield.GetLogger(r.Context()).Error("relay: select", "word", req.Word, "error", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}
	status := http.StatusOK
	if !ok {
		status = http.StatusNotFound
	}
	writeJSON(w, status, selectResponse{Word: req.Word, Selected: ok})
}

type toggleFunc func(ctx context.Context, name string) (bool, error)

func (s *Server) toggleMute(ctx context.Context, name string) (bool, error) {
	return s.mod.ToggleMute(ctx, name)
}

func (s *Server) toggleHide(ctx context.Context, name string) (bool, error) {
	return s.mod.ToggleHide(ctx, name)
}

func (s *Server) handleToggle(toggle toggleFunc, field string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		on, err := toggle(r.Context(), name)
		switch {
		case errors.Is(err, moderation.ErrUnknownPlayer):
			writeError(w, http.StatusNotFound, err)
			return
		case errors.Is(err, moderation.ErrSelf):
			writeError(w, http.StatusBadRequest, err)
			return
		case err != nil:
			// The list changed; only the page side effect failed.
			shield.GetLogger(r.Context()).Warn("relay: moderation side effect", "name", name, "error", err)
		}
		writeJSON(w, http.StatusOK, map[string]any{"name": name, field: on})
	}
}

// isRejection reports whether a moderation error left the lists unchanged.
func isRejection(err error) bool {
	return errors.Is(err, moderation.ErrUnknownPlayer) || errors.Is(err, moderation.ErrSelf)
}

func (s *Server) requireModerator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.mod == nil {
			writeError(w, http.StatusServiceUnavailable, errors.New("moderation unavailable"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
