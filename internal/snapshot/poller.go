package snapshot

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the snapshot refresh period when none is
// configured.
const DefaultInterval = 30 * time.Second

// PollerOptions configures a Poller.
type PollerOptions struct {
	Client   *Client
	Interval time.Duration
	Query    ListQuery
	// Apply receives each successful snapshot. It must be cheap; it runs
	// on the poller goroutine.
	Apply func(*ListResponse)
	// OnError observes fetch failures. The previous baseline is always
	// retained on failure; nothing partial is ever applied.
	OnError func(error)
	Log     *zap.Logger
}

// Poller refreshes the token baseline on a fixed interval. If a fetch is
// still in flight when the next tick fires, the tick is skipped, not
// queued, bounding concurrent snapshot requests to at most one.
type Poller struct {
	client   *Client
	interval time.Duration
	query    ListQuery
	apply    func(*ListResponse)
	onError  func(error)
	log      *zap.Logger

	inFlight atomic.Bool
}

// NewPoller creates a poller. Client and Apply are required.
func NewPoller(opts PollerOptions) *Poller {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	onError := opts.OnError
	if onError == nil {
		onError = func(error) {}
	}
	return &Poller{
		client:   opts.Client,
		interval: interval,
		query:    opts.Query,
		apply:    opts.Apply,
		onError:  onError,
		log:      log,
	}
}

// Run fetches immediately, then on every tick until the context is
// cancelled. It blocks; callers run it on its own goroutine.
func (p *Poller) Run(ctx context.Context) {
	p.fetch(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !p.inFlight.CompareAndSwap(false, true) {
				p.log.Debug("snapshot fetch still in flight, skipping tick")
				continue
			}
			go func() {
				defer p.inFlight.Store(false)
				p.fetchLocked(ctx)
			}()
		}
	}
}

// FetchNow performs one immediate fetch, used for the UI's manual retry
// affordance after a snapshot fault.
func (p *Poller) FetchNow(ctx context.Context) {
	p.fetch(ctx)
}

func (p *Poller) fetch(ctx context.Context) {
	if !p.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer p.inFlight.Store(false)
	p.fetchLocked(ctx)
}

func (p *Poller) fetchLocked(ctx context.Context) {
	resp, err := p.client.Tokens(ctx, p.query)
	if err != nil {
		// Stale-but-consistent: the previous baseline stays in place.
		p.log.Warn("snapshot fetch failed, retaining previous baseline", zap.Error(err))
		p.onError(err)
		return
	}
	p.apply(resp)
	p.log.Debug("snapshot applied", zap.Int("tokens", len(resp.Tokens)))
}
