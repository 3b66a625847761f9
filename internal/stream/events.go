// Package stream owns the dashboard's push-data path: the WebSocket
// transport, the reconnect policy, and the decoder that turns raw frames
// into typed events.
package stream

import "token-dashboard/internal/domain"

// Wire values for the "type" field of inbound and outbound frames.
const (
	TypePriceUpdate           = "price_update"
	TypeTradeExecution        = "trade_execution"
	TypeOrderBookUpdate       = "orderbook_update"
	TypeOrderConfirmation     = "order_confirmation"
	TypeOrderFilled           = "order_filled"
	TypeSubscriptionConfirmed = "subscription_confirmed"

	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypePlaceOrder  = "place_order"
)

// Event is the closed set of decoded stream events. Each concrete event
// implements the unexported marker so the dispatch switch stays
// exhaustive over this package's types.
type Event interface {
	isEvent()
	// Kind returns the wire type that produced the event.
	Kind() string
}

// PriceUpdate patches one token's price, 24h change and 24h volume.
type PriceUpdate struct {
	TokenID   string  `json:"tokenId"`
	Pair      string  `json:"pair"`
	Price     float64 `json:"price"`
	Change24h float64 `json:"change24h"`
	Volume24h float64 `json:"volume24h"`
	Timestamp int64   `json:"timestamp"`
}

func (PriceUpdate) isEvent()     {}
func (PriceUpdate) Kind() string { return TypePriceUpdate }

// TradeExecution reports a single executed trade on a pair.
type TradeExecution struct {
	TradeID   string      `json:"tradeId"`
	Pair      string      `json:"pair"`
	Side      domain.Side `json:"side"`
	Price     float64     `json:"price"`
	Amount    float64     `json:"amount"`
	Timestamp int64       `json:"timestamp"`
}

func (TradeExecution) isEvent()     {}
func (TradeExecution) Kind() string { return TypeTradeExecution }

// OrderBookUpdate replaces the book snapshot for a pair.
type OrderBookUpdate struct {
	Pair      string             `json:"pair"`
	Bids      []domain.BookLevel `json:"bids"`
	Asks      []domain.BookLevel `json:"asks"`
	Timestamp int64              `json:"timestamp"`
}

func (OrderBookUpdate) isEvent()     {}
func (OrderBookUpdate) Kind() string { return TypeOrderBookUpdate }

// OrderLifecycle advances an order's status. It covers both
// order_confirmation and order_filled wire frames; Filled* fields are
// only populated for fills.
type OrderLifecycle struct {
	OrderID      string             `json:"orderId"`
	Status       domain.OrderStatus `json:"status"`
	FilledPrice  float64            `json:"filledPrice"`
	FilledAmount float64            `json:"filledAmount"`
	Timestamp    int64              `json:"timestamp"`

	wireType string
}

func (OrderLifecycle) isEvent() {}

// Kind returns order_filled for fills and order_confirmation otherwise.
func (e OrderLifecycle) Kind() string {
	if e.wireType != "" {
		return e.wireType
	}
	return TypeOrderConfirmation
}

// SubscriptionConfirmed acknowledges a subscribe control frame. It never
// mutates the entity store.
type SubscriptionConfirmed struct {
	Channel   string `json:"channel"`
	Timestamp int64  `json:"timestamp"`
}

func (SubscriptionConfirmed) isEvent()     {}
func (SubscriptionConfirmed) Kind() string { return TypeSubscriptionConfirmed }

// SubscribeFrame is the outbound subscribe/unsubscribe control frame.
type SubscribeFrame struct {
	Type    string   `json:"type"`
	Channel string   `json:"channel"`
	Pairs   []string `json:"pairs,omitempty"`
}

// PlaceOrderFrame is the outbound order placement control frame.
type PlaceOrderFrame struct {
	Type      string           `json:"type"`
	OrderID   string           `json:"orderId"`
	TokenID   string           `json:"tokenId"`
	Side      domain.Side      `json:"side"`
	Amount    float64          `json:"amount"`
	Price     float64          `json:"price,omitempty"`
	OrderType domain.OrderKind `json:"orderType"`
}
