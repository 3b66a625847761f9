package mock

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"token-dashboard/internal/domain"
	"token-dashboard/internal/stream"
)

// Feed streams generated market events to each connected WebSocket
// client, mirroring the cadence of the original mock feed: price ticks
// every second, occasional trades and book deltas.
type Feed struct {
	gen *Generator
	log *zap.Logger

	upgrader websocket.Upgrader

	// TickInterval controls the price-update cadence. Tests shorten it.
	TickInterval time.Duration
	// FillDelay is how long after order_confirmation the fill arrives.
	FillDelay time.Duration
	// UpdatesPerTick is how many tokens move each tick.
	UpdatesPerTick int
}

// NewFeed creates a feed over the generator's universe.
func NewFeed(gen *Generator, log *zap.Logger) *Feed {
	if log == nil {
		log = zap.NewNop()
	}
	return &Feed{
		gen: gen,
		log: log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		TickInterval:   time.Second,
		FillDelay:      time.Second,
		UpdatesPerTick: 10,
	}
}

// Handle upgrades the request and serves the connection until the
// client leaves.
func (f *Feed) Handle(c *gin.Context) {
	conn, err := f.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		f.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	f.serve(conn)
}

type feedConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (fc *feedConn) sendJSON(v interface{}) error {
	payload, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	fc.writeMu.Lock()
	defer fc.writeMu.Unlock()
	fc.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return fc.conn.WriteMessage(websocket.TextMessage, payload)
}

func (f *Feed) serve(conn *websocket.Conn) {
	fc := &feedConn{conn: conn}
	done := make(chan struct{})
	var once sync.Once
	closeDone := func() { once.Do(func() { close(done) }) }

	go f.pushLoop(fc, done)

	defer func() {
		closeDone()
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		f.handleControl(fc, raw)
	}
}

// pushLoop emits the continuous market noise.
func (f *Feed) pushLoop(fc *feedConn, done <-chan struct{}) {
	ticker := time.NewTicker(f.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			for _, u := range f.gen.PriceUpdates(f.UpdatesPerTick) {
				if err := fc.sendJSON(withType(stream.TypePriceUpdate, u)); err != nil {
					return
				}
			}
			if f.chance(0.3) {
				if err := fc.sendJSON(withType(stream.TypeTradeExecution, f.gen.Trade())); err != nil {
					return
				}
			}
			if f.chance(0.2) {
				if err := fc.sendJSON(withType(stream.TypeOrderBookUpdate, f.gen.Book())); err != nil {
					return
				}
			}
		}
	}
}

func (f *Feed) chance(p float64) bool {
	f.gen.mu.Lock()
	defer f.gen.mu.Unlock()
	return f.gen.rng.Float64() < p
}

// handleControl answers subscribe and place_order frames the way the
// real feed would: an ack, then for orders a pending confirmation
// followed by a fill that echoes the client's order id.
func (f *Feed) handleControl(fc *feedConn, raw []byte) {
	var ctl struct {
		Type    string  `json:"type"`
		Channel string  `json:"channel"`
		OrderID string  `json:"orderId"`
		TokenID string  `json:"tokenId"`
		Amount  float64 `json:"amount"`
		Price   float64 `json:"price"`
	}
	if err := sonic.Unmarshal(raw, &ctl); err != nil {
		f.log.Warn("dropping malformed control frame", zap.Error(err))
		return
	}

	switch ctl.Type {
	case stream.TypeSubscribe:
		fc.sendJSON(map[string]interface{}{
			"type":      stream.TypeSubscriptionConfirmed,
			"channel":   ctl.Channel,
			"timestamp": time.Now().UnixMilli(),
		})

	case stream.TypeUnsubscribe:
		// No ack in the original feed either.

	case stream.TypePlaceOrder:
		orderID := ctl.OrderID
		if orderID == "" {
			orderID = uuid.NewString()
		}
		fc.sendJSON(map[string]interface{}{
			"type":      stream.TypeOrderConfirmation,
			"orderId":   orderID,
			"status":    domain.OrderStatusPending,
			"timestamp": time.Now().UnixMilli(),
		})

		fillPrice := ctl.Price
		if fillPrice <= 0 {
			if tok := f.gen.Token(ctl.TokenID); tok != nil {
				fillPrice = tok.Price
			}
		}
		amount := ctl.Amount
		go func() {
			time.Sleep(f.FillDelay)
			fc.sendJSON(map[string]interface{}{
				"type":         stream.TypeOrderFilled,
				"orderId":      orderID,
				"status":       domain.OrderStatusFilled,
				"filledPrice":  fillPrice,
				"filledAmount": amount,
				"timestamp":    time.Now().UnixMilli(),
			})
		}()

	default:
		f.log.Debug("ignoring control frame", zap.String("type", ctl.Type))
	}
}

// withType flattens an event struct and its wire type into one frame.
func withType(typ string, event interface{}) map[string]interface{} {
	raw, err := sonic.Marshal(event)
	if err != nil {
		return map[string]interface{}{"type": typ}
	}
	frame := map[string]interface{}{}
	if err := sonic.Unmarshal(raw, &frame); err != nil {
		return map[string]interface{}{"type": typ}
	}
	frame["type"] = typ
	return frame
}
