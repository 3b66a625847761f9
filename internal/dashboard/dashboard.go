// Package dashboard is the composition root of the sync engine. It owns
// the entity store, the stream manager and the snapshot poller, routes
// decoded events into reducers, and exposes the operations the
// presentation layer calls.
package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"token-dashboard/internal/config"
	"token-dashboard/internal/domain"
	"token-dashboard/internal/snapshot"
	"token-dashboard/internal/store"
	"token-dashboard/internal/stream"
	"token-dashboard/internal/view"
)

// TokenChannel is the stream channel carrying token price updates.
const TokenChannel = "tokens"

// Options configures a Dashboard. Dialer and Client may be injected for
// tests; when nil they are built from the config.
type Options struct {
	Config config.Config
	Dialer stream.Dialer
	Client *snapshot.Client
	Log    *zap.Logger
}

// Dashboard is one independent dashboard instance. Multiple instances
// can coexist: nothing here is process-global.
type Dashboard struct {
	cfg     config.Config
	log     *zap.Logger
	store   *store.Store
	manager *stream.Manager
	client  *snapshot.Client
	poller  *snapshot.Poller

	mu          sync.Mutex
	viewState   view.State
	cancel      context.CancelFunc
	mounted     bool
	closed      bool
	snapshotErr string
}

// New wires a dashboard from its parts. Nothing connects until Mount.
func New(opts Options) *Dashboard {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	cfg := opts.Config

	d := &Dashboard{
		cfg:   cfg,
		log:   log,
		store: store.New(log.Named("store")),
		viewState: view.State{
			Category: view.CategoryAll,
			SortKey:  view.SortByVolume24h,
			SortDesc: true,
			Page:     1,
			PageSize: cfg.PageSize,
		},
	}

	dialer := opts.Dialer
	if dialer == nil {
		dialer = stream.NewWSDialer(cfg.WSURL, log.Named("ws"))
	}
	d.manager = stream.NewManager(stream.ManagerOptions{
		Dialer:  dialer,
		Policy:  stream.NewReconnectPolicy(cfg.ReconnectDelays, cfg.MaxReconnectAttempts),
		Handler: d.handleEvent,
		Log:     log.Named("stream"),
	})

	client := opts.Client
	if client == nil {
		client = snapshot.NewClient(cfg.APIBaseURL)
	}
	d.client = client
	d.poller = snapshot.NewPoller(snapshot.PollerOptions{
		Client:   client,
		Interval: cfg.SnapshotInterval,
		Query:    snapshot.ListQuery{Limit: cfg.SnapshotLimit},
		Apply:    d.applySnapshot,
		OnError:  d.snapshotFailed,
		Log:      log.Named("snapshot"),
	})

	return d
}

// Mount connects the stream, subscribes the token channel and starts the
// snapshot poller. Idempotent while mounted, and a no-op after Unmount:
// an instance mounts at most once, remounting means a fresh New.
func (d *Dashboard) Mount(ctx context.Context) {
	d.mu.Lock()
	if d.mounted || d.closed {
		d.mu.Unlock()
		return
	}
	d.mounted = true
	ctx, d.cancel = context.WithCancel(ctx)
	d.mu.Unlock()

	d.manager.Start(ctx)
	d.manager.Subscribe(TokenChannel)
	go d.poller.Run(ctx)
	go d.statsLoop(ctx)
}

// Unmount tears everything down: the pending reconnect timer, the
// snapshot interval and all transport listeners. Terminal, like the
// stream manager it closes; nothing outlives the instance.
func (d *Dashboard) Unmount() {
	d.mu.Lock()
	if !d.mounted {
		d.mu.Unlock()
		return
	}
	d.mounted = false
	d.closed = true
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	d.manager.Close()
}

// handleEvent routes one decoded stream event into its reducer. The
// switch is exhaustive over the closed event set; an unhandled kind is a
// bug surfaced by the log, never a crash.
func (d *Dashboard) handleEvent(ev stream.Event) {
	switch e := ev.(type) {
	case stream.PriceUpdate:
		d.store.ApplyPriceUpdate(e)
	case stream.TradeExecution:
		d.store.ApplyTrade(e)
	case stream.OrderBookUpdate:
		d.store.ApplyOrderBook(e)
	case stream.OrderLifecycle:
		d.store.ApplyOrderLifecycle(e)
	case stream.SubscriptionConfirmed:
		// Acknowledgement only; the manager normally swallows these.
	default:
		d.log.Warn("unhandled stream event", zap.String("kind", ev.Kind()))
	}
}

func (d *Dashboard) applySnapshot(resp *snapshot.ListResponse) {
	d.store.ApplySnapshot(resp.Tokens)
	d.mu.Lock()
	d.snapshotErr = ""
	d.mu.Unlock()
}

func (d *Dashboard) snapshotFailed(err error) {
	d.mu.Lock()
	d.snapshotErr = err.Error()
	d.mu.Unlock()
}

func (d *Dashboard) statsLoop(ctx context.Context) {
	fetch := func() {
		fctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		stats, err := d.client.MarketStats(fctx)
		if err != nil {
			d.log.Debug("market stats fetch failed", zap.Error(err))
			return
		}
		d.store.SetMarketStats(*stats)
	}

	fetch()
	ticker := time.NewTicker(d.cfg.SnapshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fetch()
		}
	}
}

// View recomputes the rendered token page from the current store
// contents and view state.
func (d *Dashboard) View() view.Result {
	d.mu.Lock()
	vs := d.viewState
	d.mu.Unlock()
	return view.Page(d.store.Tokens(), vs)
}

// ViewState returns the current filter/sort/page selection.
func (d *Dashboard) ViewState() view.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewState
}

// SetFilters replaces the active filters and resets to page 1.
func (d *Dashboard) SetFilters(category string, chains, tags []string, minLiquidity float64) {
	d.mu.Lock()
	d.viewState.Category = category
	d.viewState.Chains = append([]string(nil), chains...)
	d.viewState.Tags = append([]string(nil), tags...)
	d.viewState.MinLiquidity = minLiquidity
	d.viewState.Page = 1
	d.mu.Unlock()
}

// SetSort replaces the sort key/direction and resets to page 1.
func (d *Dashboard) SetSort(key view.SortKey, desc bool) {
	d.mu.Lock()
	d.viewState.SortKey = key
	d.viewState.SortDesc = desc
	d.viewState.Page = 1
	d.mu.Unlock()
}

// SetPage moves to the given page, clamped against the current total.
// The pipeline itself never clamps; that is this caller's job.
func (d *Dashboard) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	res := d.View()
	if res.TotalPages > 0 && page > res.TotalPages {
		page = res.TotalPages
	}
	d.mu.Lock()
	d.viewState.Page = page
	d.mu.Unlock()
}

// SetPageSize changes the page size and resets to page 1.
func (d *Dashboard) SetPageSize(size int) {
	if size <= 0 {
		return
	}
	d.mu.Lock()
	d.viewState.PageSize = size
	d.viewState.Page = 1
	d.mu.Unlock()
}

// PlaceOrder records a pending order and sends the placement frame. A
// send failure while disconnected is logged and left non-fatal: the
// order stays pending locally until a lifecycle event or REST response
// settles it.
func (d *Dashboard) PlaceOrder(tokenID string, side domain.Side, kind domain.OrderKind, amount, price float64) (*domain.Order, error) {
	tok := d.store.Token(tokenID)
	pair := ""
	if tok != nil {
		pair = tok.Pair
	}

	order := &domain.Order{
		ID:         uuid.NewString(),
		TokenID:    tokenID,
		Pair:       pair,
		Side:       side,
		Kind:       kind,
		Amount:     amount,
		LimitPrice: price,
		Status:     domain.OrderStatusPending,
		CreatedAt:  time.Now().UnixMilli(),
	}
	if err := d.store.PlaceOrder(order); err != nil {
		return nil, err
	}

	if err := d.manager.SendJSON(stream.PlaceOrderFrame{
		Type:      stream.TypePlaceOrder,
		OrderID:   order.ID,
		TokenID:   tokenID,
		Side:      side,
		Amount:    amount,
		Price:     price,
		OrderType: kind,
	}); err != nil {
		d.log.Warn("order placement frame not delivered",
			zap.String("orderId", order.ID), zap.Error(err))
	}
	return order, nil
}

// ToggleWatch flips a token's watch flag.
func (d *Dashboard) ToggleWatch(tokenID string) {
	d.store.ToggleWatch(tokenID)
}

// ClosePosition removes an open position.
func (d *Dashboard) ClosePosition(id string) {
	d.store.ClosePosition(id)
}

// AddMargin adds margin to an open position.
func (d *Dashboard) AddMargin(id string, amount float64) error {
	return d.store.AddMargin(id, amount)
}

// ConnState returns the stream connection state for the status
// indicator.
func (d *Dashboard) ConnState() stream.ConnState {
	return d.manager.State()
}

// Retry manually restarts the stream after GivenUp and forces a
// snapshot refresh; this is the UI's manual-retry affordance.
func (d *Dashboard) Retry(ctx context.Context) {
	d.manager.Retry()
	go d.poller.FetchNow(ctx)
}

// SnapshotError returns the last snapshot failure message, empty after
// a successful refresh.
func (d *Dashboard) SnapshotError() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotErr
}

// Store exposes the entity store read side.
func (d *Dashboard) Store() *store.Store {
	return d.store
}

// Search queries the snapshot endpoint for tokens matching q.
func (d *Dashboard) Search(ctx context.Context, q string) ([]*domain.Token, error) {
	return d.client.Search(ctx, q)
}
