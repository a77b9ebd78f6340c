// Package observer is the live ChangeSource: it attaches one MutationObserver
// per concern through the page bridge and turns each delivery into a
// mutation.Batch, in delivery order.
package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/streamermode/domwatch/anchor"
	"github.com/hazyhaar/streamermode/domwatch/internal/browser"
	"github.com/hazyhaar/streamermode/domwatch/mutation"
	"github.com/hazyhaar/streamermode/idgen"
)

// Observer streams the page's mutation deliveries.
type Observer struct {
	tab    *browser.Tab
	logger *slog.Logger
	out    chan mutation.Batch

	// Sequence counter (monotonically increasing per page).
	seq atomic.Uint64

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Config for creating an Observer.
type Config struct {
	Tab *browser.Tab
	// Buffer is the number of batches held while the translator is busy.
	// Default: 1024.
	Buffer int
	Logger *slog.Logger
}

// New creates an Observer for the given tab. The bridge must already be
// installed.
func New(cfg Config) *Observer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 1024
	}
	return &Observer{
		tab:    cfg.Tab,
		logger: cfg.Logger,
		out:    make(chan mutation.Batch, cfg.Buffer),
		done:   make(chan struct{}),
	}
}

// Batches implements translate.ChangeSource. The channel is closed once the
// observer stops.
func (o *Observer) Batches() <-chan mutation.Batch { return o.out }

// Start subscribes to the bridge binding and attaches every concern's
// observer to the resolved anchors.
func (o *Observer) Start(ctx context.Context, anchors *anchor.Set) error {
	targets, err := Targets(anchors)
	if err != nil {
		return fmt.Errorf("observer: %w", err)
	}

	ctx, o.cancel = context.WithCancel(ctx)
	wait := o.tab.Page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != browser.BindingName {
			return
		}
		b, err := decodeDelivery(o.tab.PageID, e.Payload)
		if err != nil {
			o.logger.Warn("observer: parse binding payload", "error", err)
			return
		}
		b.Seq = o.seq.Add(1)
		select {
		case o.out <- b:
		case <-ctx.Done():
		}
	})
	go func() {
		defer close(o.done)
		defer close(o.out)
		wait()
	}()

	for _, c := range mutation.Concerns {
		if err := o.tab.Watch(ctx, string(c), targets[c]); err != nil {
			o.Stop()
			return fmt.Errorf("observer: %w", err)
		}
	}
	o.logger.Info("observer: watching", "url", o.tab.PageURL, "concerns", len(mutation.Concerns))
	return nil
}

// Stop detaches the page observers and closes the batch channel.
func (o *Observer) Stop() {
	o.once.Do(func() {
		if o.cancel == nil {
			close(o.out)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.tab.Unwatch(ctx); err != nil {
			o.logger.Debug("observer: unwatch", "error", err)
		}
		o.cancel()
		<-o.done
	})
}

// delivery is the payload posted by the bridge for one observer callback.
type delivery struct {
	Concern mutation.Concern  `json:"concern"`
	Records []mutation.Record `json:"records"`
}

func decodeDelivery(pageID, payload string) (mutation.Batch, error) {
	var d delivery
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return mutation.Batch{}, err
	}
	if !slices.Contains(mutation.Concerns, d.Concern) {
		return mutation.Batch{}, fmt.Errorf("unknown concern %q", d.Concern)
	}
	return mutation.Batch{
		ID:        idgen.New(),
		PageID:    pageID,
		Concern:   d.Concern,
		Records:   d.Records,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}
