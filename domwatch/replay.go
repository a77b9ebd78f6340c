package domwatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/hazyhaar/streamermode/domwatch/anchor"
	"github.com/hazyhaar/streamermode/domwatch/eventbus"
	"github.com/hazyhaar/streamermode/domwatch/memdom"
	"github.com/hazyhaar/streamermode/domwatch/mutation"
	"github.com/hazyhaar/streamermode/domwatch/translate"
)

// ReplayConfig configures Replay.
type ReplayConfig struct {
	// Page is the HTML the recorded batches apply to. Nil means the bare
	// game layout (memdom.SkeletonPage).
	Page io.Reader
	// Batches is a capture: one JSON batch per line.
	Batches io.Reader
	// Anchors overrides anchor lookups, as in the configuration file.
	Anchors map[anchor.Name]anchor.Lookup
	Bus     *eventbus.Bus
	Logger  *slog.Logger
}

// Replay runs recorded batches through a translator against an in-memory
// page and returns it once every batch was handled. Events are published
// on cfg.Bus as they would have been live.
func Replay(ctx context.Context, cfg ReplayConfig) (*translate.Translator, *memdom.Document, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Bus == nil {
		cfg.Bus = eventbus.New(cfg.Logger)
	}

	doc := memdom.NewSkeleton()
	if cfg.Page != nil {
		var err error
		if doc, err = memdom.Parse(cfg.Page); err != nil {
			return nil, nil, fmt.Errorf("domwatch: replay: %w", err)
		}
	}
	anchors, err := anchor.NewRegistry(cfg.Anchors).Resolve(ctx, doc)
	if err != nil {
		return nil, nil, fmt.Errorf("domwatch: replay: %w", err)
	}

	batches, err := mutation.ReadBatches(cfg.Batches)
	if err != nil {
		return nil, nil, fmt.Errorf("domwatch: replay: %w", err)
	}

	tr := translate.New(anchors, cfg.Bus, translate.WithLogger(cfg.Logger))
	if err := tr.Run(ctx, newSliceSource(batches)); err != nil {
		return tr, doc, fmt.Errorf("domwatch: replay: %w", err)
	}
	cfg.Logger.Info("domwatch: replay done", "batches", len(batches))
	return tr, doc, nil
}

// sliceSource is a ChangeSource over batches known in advance.
type sliceSource chan mutation.Batch

func newSliceSource(batches []mutation.Batch) sliceSource {
	ch := make(chan mutation.Batch, len(batches))
	for _, b := range batches {
		ch <- b
	}
	close(ch)
	return ch
}

func (s sliceSource) Batches() <-chan mutation.Batch { return s }

// captureSource forwards the batches of src and writes each one to out.
type captureSource struct {
	out chan mutation.Batch
}

func (c *captureSource) Batches() <-chan mutation.Batch { return c.out }

// Capture returns a ChangeSource that tees src into out as JSON lines. A
// write failure is logged once and capture stops; batches keep flowing.
func Capture(ctx context.Context, src translate.ChangeSource, out io.Writer, logger *slog.Logger) translate.ChangeSource {
	if logger == nil {
		logger = slog.Default()
	}
	c := &captureSource{out: make(chan mutation.Batch)}
	go func() {
		defer close(c.out)
		writing := true
		for b := range src.Batches() {
			if writing {
				if err := writeBatch(out, &b); err != nil {
					logger.Error("domwatch: capture stopped", "error", err)
					writing = false
				}
			}
			select {
			case c.out <- b:
			case <-ctx.Done():
				return
			}
		}
	}()
	return c
}

func writeBatch(w io.Writer, b *mutation.Batch) error {
	data, err := mutation.MarshalBatch(b)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
