package domain

// RecentTradesCap bounds the per-pair recent trades list.
const RecentTradesCap = 50

// BookLevel is one price level of an order book side.
type BookLevel struct {
	Price  float64 `json:"price"`
	Amount float64 `json:"amount"`
	Total  float64 `json:"total"`
}

// OrderBook is the latest book snapshot for a trading pair. Bids are
// ordered best-first descending, asks best-first ascending, as delivered
// by the feed.
type OrderBook struct {
	Pair      string      `json:"pair"`
	Bids      []BookLevel `json:"bids"`
	Asks      []BookLevel `json:"asks"`
	UpdatedAt int64       `json:"timestamp"` // Unix timestamp in milliseconds
}

// Clone returns a deep copy of the book.
func (b *OrderBook) Clone() *OrderBook {
	cp := *b
	cp.Bids = append([]BookLevel(nil), b.Bids...)
	cp.Asks = append([]BookLevel(nil), b.Asks...)
	return &cp
}

// Trade is a single executed trade observed on the stream.
type Trade struct {
	ID        string  `json:"tradeId"`
	Pair      string  `json:"pair"`
	Side      Side    `json:"side"`
	Price     float64 `json:"price"`
	Amount    float64 `json:"amount"`
	Timestamp int64   `json:"timestamp"` // Unix timestamp in milliseconds
}

// MarketStats is the aggregate market summary served by the snapshot
// endpoint.
type MarketStats struct {
	TotalTokens   int64   `json:"totalTokens"`
	TotalVolume   float64 `json:"totalVolume"`
	ActiveTraders int64   `json:"activeTraders"`
	MarketCap     float64 `json:"marketCap"`
}

// Portfolio is the REST-served account view: open orders plus derived
// positions.
type Portfolio struct {
	Orders    []*Order    `json:"orders"`
	Positions []*Position `json:"positions"`
	TotalPnL  float64     `json:"totalPnl"`
}
