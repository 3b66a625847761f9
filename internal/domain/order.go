package domain

// Side is the direction of an order or position.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// String returns the string representation of Side.
func (s Side) String() string {
	return string(s)
}

// IsValid checks if the side is buy or sell.
func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// OrderKind is the execution style of an order.
type OrderKind string

const (
	OrderKindMarket OrderKind = "market"
	OrderKindLimit  OrderKind = "limit"
	OrderKindStop   OrderKind = "stop"
)

// IsValid checks if the kind is a recognized execution style.
func (k OrderKind) IsValid() bool {
	return k == OrderKindMarket || k == OrderKindLimit || k == OrderKindStop
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRejected        OrderStatus = "rejected"
)

// IsTerminal reports whether the status permits no further transitions.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled || s == OrderStatusRejected
}

// legalOrderTransitions enumerates every allowed status edge. Anything
// absent from this table is rejected by the store.
var legalOrderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {
		OrderStatusPartiallyFilled,
		OrderStatusFilled,
		OrderStatusCancelled,
		OrderStatusRejected,
	},
	OrderStatusPartiallyFilled: {
		OrderStatusFilled,
		OrderStatusCancelled,
	},
}

// LegalOrderTransition reports whether an order may move from one status
// to another. Terminal statuses admit no outgoing edges.
func LegalOrderTransition(from, to OrderStatus) bool {
	for _, next := range legalOrderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Order is a user-initiated trade request. Orders are created only by
// explicit user action, never by the stream; the stream may only advance
// their status along legal transitions.
type Order struct {
	ID         string      `json:"id"`
	TokenID    string      `json:"tokenId"`
	Pair       string      `json:"pair"`
	Side       Side        `json:"side"`
	Kind       OrderKind   `json:"orderType"`
	Amount     float64     `json:"amount"`
	LimitPrice float64     `json:"price,omitempty"` // zero for market orders
	Status     OrderStatus `json:"status"`
	CreatedAt  int64       `json:"createdAt"` // Unix timestamp in milliseconds
}
