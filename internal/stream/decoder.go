package stream

import (
	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"token-dashboard/internal/domain"
)

// Decode errors. Both are non-fatal: callers drop the frame and log.
var (
	// ErrUnknownEventType is returned for frames whose "type" is not a
	// recognized event kind.
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrMalformedFrame is returned for frames that fail to parse or are
	// missing required fields for their kind.
	ErrMalformedFrame = errors.New("malformed frame")
)

type envelope struct {
	Type string `json:"type"`
}

// Decode parses a raw text frame into a typed event. Unknown or
// malformed frames yield an error and must never be applied to the
// entity store; they are not fatal to the transport.
func Decode(raw []byte) (Event, error) {
	var env envelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrap(ErrMalformedFrame, err.Error())
	}

	switch env.Type {
	case TypePriceUpdate:
		var e PriceUpdate
		if err := sonic.Unmarshal(raw, &e); err != nil {
			return nil, errors.Wrap(ErrMalformedFrame, err.Error())
		}
		if e.TokenID == "" && e.Pair == "" {
			return nil, errors.Wrap(ErrMalformedFrame, "price_update missing token identity")
		}
		if e.Price < 0 {
			return nil, errors.Wrap(ErrMalformedFrame, "price_update negative price")
		}
		if e.Timestamp <= 0 {
			return nil, errors.Wrap(ErrMalformedFrame, "price_update missing timestamp")
		}
		return e, nil

	case TypeTradeExecution:
		var e TradeExecution
		if err := sonic.Unmarshal(raw, &e); err != nil {
			return nil, errors.Wrap(ErrMalformedFrame, err.Error())
		}
		if e.TradeID == "" || e.Pair == "" {
			return nil, errors.Wrap(ErrMalformedFrame, "trade_execution missing id or pair")
		}
		if !e.Side.IsValid() {
			return nil, errors.Wrapf(ErrMalformedFrame, "trade_execution bad side %q", e.Side)
		}
		if e.Timestamp <= 0 {
			return nil, errors.Wrap(ErrMalformedFrame, "trade_execution missing timestamp")
		}
		return e, nil

	case TypeOrderBookUpdate:
		var e OrderBookUpdate
		if err := sonic.Unmarshal(raw, &e); err != nil {
			return nil, errors.Wrap(ErrMalformedFrame, err.Error())
		}
		if e.Pair == "" {
			return nil, errors.Wrap(ErrMalformedFrame, "orderbook_update missing pair")
		}
		if e.Timestamp <= 0 {
			return nil, errors.Wrap(ErrMalformedFrame, "orderbook_update missing timestamp")
		}
		return e, nil

	case TypeOrderConfirmation, TypeOrderFilled:
		var e OrderLifecycle
		if err := sonic.Unmarshal(raw, &e); err != nil {
			return nil, errors.Wrap(ErrMalformedFrame, err.Error())
		}
		if e.OrderID == "" {
			return nil, errors.Wrap(ErrMalformedFrame, "order event missing orderId")
		}
		switch e.Status {
		case domain.OrderStatusPending, domain.OrderStatusPartiallyFilled,
			domain.OrderStatusFilled, domain.OrderStatusCancelled, domain.OrderStatusRejected:
		default:
			return nil, errors.Wrapf(ErrMalformedFrame, "order event bad status %q", e.Status)
		}
		if env.Type == TypeOrderFilled && e.FilledAmount <= 0 {
			return nil, errors.Wrap(ErrMalformedFrame, "order_filled missing filled amount")
		}
		if e.Timestamp <= 0 {
			return nil, errors.Wrap(ErrMalformedFrame, "order event missing timestamp")
		}
		e.wireType = env.Type
		return e, nil

	case TypeSubscriptionConfirmed:
		var e SubscriptionConfirmed
		if err := sonic.Unmarshal(raw, &e); err != nil {
			return nil, errors.Wrap(ErrMalformedFrame, err.Error())
		}
		if e.Channel == "" {
			return nil, errors.Wrap(ErrMalformedFrame, "subscription_confirmed missing channel")
		}
		return e, nil
	}

	return nil, errors.Wrapf(ErrUnknownEventType, "type %q", env.Type)
}
