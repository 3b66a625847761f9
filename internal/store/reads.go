package store

import (
	"sort"

	"token-dashboard/internal/domain"
)

// Read side. Every accessor returns copies so callers never observe a
// reducer mid-flight or mutate shared state.

// Tokens returns the token baseline in snapshot order.
func (s *Store) Tokens() []*domain.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Token, 0, len(s.tokenIDs))
	for _, id := range s.tokenIDs {
		out = append(out, s.tokens[id].Clone())
	}
	return out
}

// Token returns one token by id, or nil when absent.
func (s *Store) Token(id string) *domain.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tok, ok := s.tokens[id]
	if !ok {
		return nil
	}
	return tok.Clone()
}

// TokenByPair returns the token trading under the given pair label.
func (s *Store) TokenByPair(pair string) *domain.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byPair[pair]
	if !ok {
		return nil
	}
	return s.tokens[id].Clone()
}

// Order returns one order by id, or nil when absent.
func (s *Store) Order(id string) *domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil
	}
	cp := *o
	return &cp
}

// Orders returns all orders in placement order.
func (s *Store) Orders() []*domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Order, 0, len(s.orderIDs))
	for _, id := range s.orderIDs {
		cp := *s.orders[id]
		out = append(out, &cp)
	}
	return out
}

// Positions returns all open positions, ordered by open time then id
// for determinism.
func (s *Store) Positions() []*domain.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Position, 0, len(s.positions))
	for _, p := range s.positions {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt != out[j].OpenedAt {
			return out[i].OpenedAt < out[j].OpenedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Position returns one position by id, or nil when absent.
func (s *Store) Position(id string) *domain.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.positions[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// OrderBook returns the latest book snapshot for a pair, or nil.
func (s *Store) OrderBook(pair string) *domain.OrderBook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[pair]
	if !ok {
		return nil
	}
	return b.Clone()
}

// RecentTrades returns the bounded recent trade list for a pair, newest
// last.
func (s *Store) RecentTrades(pair string) []domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.Trade(nil), s.trades[pair]...)
}

// MarketStats returns the latest aggregate stats.
func (s *Store) MarketStats() domain.MarketStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Portfolio assembles the account view from current orders and
// positions.
func (s *Store) Portfolio() domain.Portfolio {
	orders := s.Orders()
	positions := s.Positions()

	var total float64
	for _, p := range positions {
		total += p.PnL
	}
	return domain.Portfolio{Orders: orders, Positions: positions, TotalPnL: total}
}
