// Command streamermode plays skribbl.io in a driven Chrome tab with the
// streamer's word hidden, and serves the word state, word selection and
// moderation on a local relay.
//
// Usage:
//
//	streamermode -addr 127.0.0.1:7777                 # open the game, serve the relay
//	streamermode -config streamermode.yaml            # everything from YAML
//	streamermode -capture game.jsonl                  # also record every mutation batch
//	streamermode -replay game.jsonl [-html page.html] # replay a capture, events to the sinks
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hazyhaar/streamermode/domwatch"
	"github.com/hazyhaar/streamermode/domwatch/eventbus"
	"github.com/hazyhaar/streamermode/relay"
)

type options struct {
	configPath string
	url        string
	addr       string
	headful    bool
	replay     string
	html       string
	capture    string
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "path to streamermode.yaml config file")
	flag.StringVar(&o.url, "url", "", "game URL (default https://skribbl.io/)")
	flag.StringVar(&o.addr, "addr", "", "relay listen address, e.g. 127.0.0.1:7777 (empty: no relay)")
	flag.BoolVar(&o.headful, "headful", false, "run Chrome with a display (Xvfb when none)")
	flag.StringVar(&o.replay, "replay", "", "replay a capture file instead of opening a browser")
	flag.StringVar(&o.html, "html", "", "page HTML the replayed capture applies to")
	flag.StringVar(&o.capture, "capture", "", "write every mutation batch to this file")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, o); err != nil {
		logger.Error("streamermode: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, o options) error {
	cfg := domwatch.DefaultConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = domwatch.LoadConfigFile(o.configPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	if o.url != "" {
		cfg.Page.URL = o.url
	}
	if o.addr != "" {
		cfg.Relay.Addr = o.addr
	}
	if o.headful {
		cfg.Browser.Stealth = "headful"
	}

	routes, err := domwatch.BuildRoutes(cfg.Sinks, logger)
	if err != nil {
		return err
	}

	if o.replay != "" {
		return runReplay(ctx, logger, cfg, routes, o)
	}
	return runLive(ctx, logger, cfg, routes, o)
}

func runReplay(ctx context.Context, logger *slog.Logger, cfg *domwatch.Config, routes []domwatch.Route, o options) error {
	batches, err := os.Open(o.replay)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	defer batches.Close()

	rc := domwatch.ReplayConfig{
		Batches: batches,
		Anchors: cfg.Anchors,
		Bus:     eventbus.New(logger),
		Logger:  logger,
	}
	if o.html != "" {
		page, err := os.Open(o.html)
		if err != nil {
			return fmt.Errorf("replay: %w", err)
		}
		defer page.Close()
		rc.Page = page
	}

	router := domwatch.NewRouter(cfg.Page.ID, logger, routes...)
	defer router.Close()
	router.Attach(rc.Bus)

	_, _, err = domwatch.Replay(ctx, rc)
	return err
}

func runLive(ctx context.Context, logger *slog.Logger, cfg *domwatch.Config, routes []domwatch.Route, o options) error {
	hub := relay.NewHub(logger)
	opts := []domwatch.Option{
		domwatch.WithLogger(logger),
		domwatch.WithHub(hub),
		domwatch.WithRoutes(routes...),
	}
	if o.capture != "" {
		f, err := os.Create(o.capture)
		if err != nil {
			return fmt.Errorf("capture: %w", err)
		}
		defer f.Close()
		opts = append(opts, domwatch.WithCapture(f))
	}

	w := domwatch.New(cfg, opts...)
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer w.Stop()

	errc := make(chan error, 2)
	if cfg.Relay.Addr != "" {
		srv := relay.NewServer(relay.Config{
			Hub:       hub,
			Moderator: w.Moderation(),
			Logger:    logger,
			MaxBody:   cfg.Relay.MaxBody,
			MCP:       cfg.MCP.Enabled,
		})
		go func() { errc <- srv.ListenAndServe(ctx, cfg.Relay.Addr) }()
	}
	go func() {
		if err := w.Wait(); err != nil {
			errc <- err
			return
		}
		errc <- errors.New("page closed")
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errc:
		return err
	}
}
