// Package store holds the canonical in-memory table of dashboard
// entities. All mutation goes through reducers that are atomic and total:
// a rejected input logs and applies nothing.
package store

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"token-dashboard/internal/domain"
	"token-dashboard/internal/stream"
)

// ErrInvalidInput is returned for user-action inputs that fail
// validation before any state is touched.
var ErrInvalidInput = errors.New("invalid input")

// Store is the single source of truth for tokens, orders and positions.
// A mutex serializes every reducer, so no partially applied update is
// ever visible to readers.
type Store struct {
	mu  sync.RWMutex
	log *zap.Logger

	tokens    map[string]*domain.Token
	tokenIDs  []string          // baseline order, kept for stable sort ties
	byPair    map[string]string // pair -> token id
	priceTS   map[string]int64  // token id -> last applied price timestamp
	orders    map[string]*domain.Order
	orderIDs  []string // insertion order
	positions map[string]*domain.Position
	posByKey  map[string]string // tokenID|side -> position id
	books     map[string]*domain.OrderBook
	bookTS    map[string]int64 // pair -> last applied book timestamp
	trades    map[string][]domain.Trade
	stats     domain.MarketStats
}

// New creates an empty store.
func New(log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		log:       log,
		tokens:    make(map[string]*domain.Token),
		byPair:    make(map[string]string),
		priceTS:   make(map[string]int64),
		orders:    make(map[string]*domain.Order),
		positions: make(map[string]*domain.Position),
		posByKey:  make(map[string]string),
		books:     make(map[string]*domain.OrderBook),
		bookTS:    make(map[string]int64),
		trades:    make(map[string][]domain.Trade),
	}
}

// ApplySnapshot replaces the full token baseline. Per-token isWatched and
// chart history are preserved where the id survives across snapshots, so
// user-local state does not flicker; ids absent from the snapshot are
// removed entirely, along with their staleness guards.
func (s *Store) ApplySnapshot(tokens []*domain.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]*domain.Token, len(tokens))
	nextIDs := make([]string, 0, len(tokens))
	nextByPair := make(map[string]string, len(tokens))
	nextTS := make(map[string]int64, len(tokens))

	for _, in := range tokens {
		if in == nil || in.ID == "" {
			continue
		}
		if _, dup := next[in.ID]; dup {
			continue
		}
		tok := in.Clone()
		if prev, ok := s.tokens[tok.ID]; ok {
			tok.IsWatched = prev.IsWatched
			if len(prev.ChartData) > 0 {
				tok.ChartData = append([]domain.ChartPoint(nil), prev.ChartData...)
			}
			nextTS[tok.ID] = s.priceTS[tok.ID]
		}
		next[tok.ID] = tok
		nextIDs = append(nextIDs, tok.ID)
		nextByPair[tok.Pair] = tok.ID
	}

	s.tokens = next
	s.tokenIDs = nextIDs
	s.byPair = nextByPair
	s.priceTS = nextTS
}

// ApplyPriceUpdate patches one token's price fields. Unknown tokens are
// a no-op: a stream event never creates a token. Updates strictly older
// than the last applied timestamp for the same token are discarded, so
// the final price is last-write-wins by timestamp, not arrival order.
func (s *Store) ApplyPriceUpdate(u stream.PriceUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok := s.locateLocked(u.TokenID, u.Pair)
	if tok == nil {
		s.log.Debug("price update for unknown token",
			zap.String("tokenId", u.TokenID), zap.String("pair", u.Pair))
		return
	}
	if u.Timestamp < s.priceTS[tok.ID] {
		s.log.Debug("discarding out-of-order price update",
			zap.String("tokenId", tok.ID), zap.Int64("ts", u.Timestamp))
		return
	}

	tok.PreviousPrice = tok.Price
	tok.Price = u.Price
	tok.Change24h = u.Change24h
	tok.Volume24h = u.Volume24h
	tok.AppendChartPoint(domain.ChartPoint{Time: u.Timestamp, Value: u.Price})
	s.priceTS[tok.ID] = u.Timestamp

	// Positions on this token follow the mark price.
	for _, pos := range s.positions {
		if pos.TokenID == tok.ID {
			pos.MarkPrice(u.Price)
		}
	}
}

// ApplyTrade records an executed trade in the pair's bounded recent
// list and bumps the owning token's 24h trade count.
func (s *Store) ApplyTrade(t stream.TradeExecution) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := append(s.trades[t.Pair], domain.Trade{
		ID:        t.TradeID,
		Pair:      t.Pair,
		Side:      t.Side,
		Price:     t.Price,
		Amount:    t.Amount,
		Timestamp: t.Timestamp,
	})
	if len(list) > domain.RecentTradesCap {
		list = list[len(list)-domain.RecentTradesCap:]
	}
	s.trades[t.Pair] = list

	if id, ok := s.byPair[t.Pair]; ok {
		s.tokens[id].Trades24h++
	}
}

// ApplyOrderBook replaces the pair's book snapshot, subject to the same
// per-identity timestamp guard as price updates.
func (s *Store) ApplyOrderBook(u stream.OrderBookUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.Timestamp < s.bookTS[u.Pair] {
		s.log.Debug("discarding out-of-order book update", zap.String("pair", u.Pair))
		return
	}
	s.books[u.Pair] = &domain.OrderBook{
		Pair:      u.Pair,
		Bids:      append([]domain.BookLevel(nil), u.Bids...),
		Asks:      append([]domain.BookLevel(nil), u.Asks...),
		UpdatedAt: u.Timestamp,
	}
	s.bookTS[u.Pair] = u.Timestamp
}

// ApplyOrderLifecycle advances an order's status along legal transitions
// only. Illegal transitions and unknown order ids are rejected and
// logged, never applied. A fill additionally upserts the position
// derived from the order's token and side.
func (s *Store) ApplyOrderLifecycle(e stream.OrderLifecycle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[e.OrderID]
	if !ok {
		s.log.Warn("lifecycle event for unknown order", zap.String("orderId", e.OrderID))
		return
	}
	if order.Status == e.Status {
		return
	}
	if !domain.LegalOrderTransition(order.Status, e.Status) {
		s.log.Warn("rejecting illegal order transition",
			zap.String("orderId", e.OrderID),
			zap.String("from", string(order.Status)),
			zap.String("to", string(e.Status)))
		return
	}
	order.Status = e.Status

	if (e.Status == domain.OrderStatusFilled || e.Status == domain.OrderStatusPartiallyFilled) &&
		e.FilledAmount > 0 {
		s.absorbFillLocked(order, e.FilledPrice, e.FilledAmount, e.Timestamp)
	}
}

// absorbFillLocked merges a fill into the open position for the order's
// (token, side), creating it when absent. Entry is volume-weighted
// across constituent fills.
func (s *Store) absorbFillLocked(order *domain.Order, price, amount float64, ts int64) {
	key := order.TokenID + "|" + string(order.Side)
	if id, ok := s.posByKey[key]; ok {
		s.positions[id].AbsorbFill(price, amount)
		return
	}

	pos := &domain.Position{
		ID:           uuid.NewString(),
		TokenID:      order.TokenID,
		Pair:         order.Pair,
		Side:         order.Side,
		Amount:       amount,
		EntryPrice:   price,
		CurrentPrice: price,
		Margin:       price * amount,
		Leverage:     1,
		OpenedAt:     ts,
	}
	pos.Recompute()
	s.positions[pos.ID] = pos
	s.posByKey[key] = pos.ID
}

// PlaceOrder inserts a pending order. Orders enter the store only
// through this user-action path, never from the stream.
func (s *Store) PlaceOrder(o *domain.Order) error {
	if o == nil || o.ID == "" || o.TokenID == "" {
		return errors.Wrap(ErrInvalidInput, "order missing identity")
	}
	if !o.Side.IsValid() || !o.Kind.IsValid() {
		return errors.Wrap(ErrInvalidInput, "order side or type")
	}
	if o.Amount <= 0 {
		return errors.Wrap(ErrInvalidInput, "order amount must be positive")
	}
	if o.Kind != domain.OrderKindMarket && o.LimitPrice <= 0 {
		return errors.Wrap(ErrInvalidInput, "limit price required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.orders[o.ID]; dup {
		return errors.Wrap(ErrInvalidInput, "duplicate order id")
	}
	cp := *o
	cp.Status = domain.OrderStatusPending
	s.orders[cp.ID] = &cp
	s.orderIDs = append(s.orderIDs, cp.ID)
	return nil
}

// ClosePosition removes a position. Closing a non-existent id is a
// no-op.
func (s *Store) ClosePosition(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.positions[id]
	if !ok {
		s.log.Debug("close for unknown position", zap.String("id", id))
		return
	}
	delete(s.positions, id)
	delete(s.posByKey, pos.TokenID+"|"+string(pos.Side))
}

// AddMargin increases a position's margin and recomputes its
// liquidation price. The amount must be positive; violations are
// rejected without touching state.
func (s *Store) AddMargin(id string, amount float64) error {
	if amount <= 0 {
		return errors.Wrap(ErrInvalidInput, "margin amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.positions[id]
	if !ok {
		s.log.Debug("margin for unknown position", zap.String("id", id))
		return nil
	}
	pos.Margin += amount
	pos.Recompute()
	return nil
}

// ToggleWatch flips the token's watch flag. Unknown ids are a no-op.
func (s *Store) ToggleWatch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, ok := s.tokens[id]
	if !ok {
		s.log.Debug("watch toggle for unknown token", zap.String("id", id))
		return
	}
	tok.IsWatched = !tok.IsWatched
}

// SetMarketStats stores the latest aggregate stats from the snapshot
// endpoint.
func (s *Store) SetMarketStats(stats domain.MarketStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = stats
}

func (s *Store) locateLocked(tokenID, pair string) *domain.Token {
	if tokenID != "" {
		if tok, ok := s.tokens[tokenID]; ok {
			return tok
		}
	}
	if pair != "" {
		if id, ok := s.byPair[pair]; ok {
			return s.tokens[id]
		}
	}
	return nil
}
