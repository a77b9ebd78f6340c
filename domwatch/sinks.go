package domwatch

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hazyhaar/streamermode/domwatch/event"
	"github.com/hazyhaar/streamermode/domwatch/internal/config"
	"github.com/hazyhaar/streamermode/domwatch/internal/sink"
)

// Sink is the output interface for domain events.
type Sink = sink.Sink

// Envelope is what a Sink receives.
type Envelope = sink.Envelope

// Route restricts a Sink to some topics.
type Route = sink.Route

// Router fans events out to routes.
type Router = sink.Router

// Journal is the SQLite event journal.
type Journal = sink.Journal

// NewStdoutSink creates a stdout JSON-lines sink.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewWebhookSink creates a webhook POST sink with retry.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return sink.NewWebhook(url, sink.WithWebhookLogger(logger))
}

// OpenJournal opens (or creates) the event journal at path.
func OpenJournal(path string) (*Journal, error) {
	return sink.OpenJournal(path)
}

// NewRouter creates a fan-out router for pageID.
func NewRouter(pageID string, logger *slog.Logger, routes ...Route) *Router {
	return sink.NewRouter(pageID, logger, routes...)
}

// BuildRoutes creates the configured sinks. With no configuration, events go
// to stdout. On error the sinks already opened are closed.
func BuildRoutes(cfgs []SinkConfig, logger *slog.Logger) ([]Route, error) {
	if len(cfgs) == 0 {
		return []Route{{Sink: NewStdoutSink(nil)}}, nil
	}

	var routes []Route
	for i, sc := range cfgs {
		var (
			s   Sink
			err error
		)
		switch sc.Type {
		case config.SinkStdout:
			s = NewStdoutSink(nil)
		case config.SinkWebhook:
			s = NewWebhookSink(sc.URL, logger)
		case config.SinkJournal:
			s, err = OpenJournal(sc.Path)
		default:
			err = fmt.Errorf("unknown sink type %q", sc.Type)
		}
		if err != nil {
			closeRoutes(routes)
			return nil, fmt.Errorf("domwatch: sink %d: %w", i, err)
		}

		topics := make([]event.Topic, 0, len(sc.Topics))
		for _, t := range sc.Topics {
			topics = append(topics, event.Topic(t))
		}
		routes = append(routes, Route{Sink: s, Topics: topics})
	}
	return routes, nil
}

func closeRoutes(routes []Route) error {
	var errs []error
	for _, r := range routes {
		errs = append(errs, r.Sink.Close())
	}
	return errors.Join(errs...)
}
