package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// WSDialer dials gorilla/websocket transports against a fixed endpoint.
type WSDialer struct {
	URL              string
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
	Log              *zap.Logger
}

// NewWSDialer creates a dialer with default timeouts.
func NewWSDialer(url string, log *zap.Logger) *WSDialer {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSDialer{
		URL:              url,
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		PingInterval:     30 * time.Second,
		Log:              log,
	}
}

// Dial implements Dialer.
func (d *WSDialer) Dial(cb Callbacks) Transport {
	return &wsTransport{dialer: d, cb: cb, done: make(chan struct{})}
}

// wsTransport is a single-use WebSocket connection.
type wsTransport struct {
	dialer *WSDialer
	cb     Callbacks

	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup
}

func (t *wsTransport) Connect(ctx context.Context) error {
	if t.closed.Load() {
		return errors.New("transport closed")
	}

	dialer := websocket.Dialer{HandshakeTimeout: t.dialer.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, t.dialer.URL, nil)
	if err != nil {
		return errors.Wrap(err, "websocket dial")
	}
	t.conn = conn

	if t.cb.OnOpen != nil {
		t.cb.OnOpen()
	}

	t.wg.Add(1)
	go t.readLoop()

	if t.dialer.PingInterval > 0 {
		t.wg.Add(1)
		go t.pingLoop()
	}
	return nil
}

func (t *wsTransport) Send(payload []byte) error {
	if t.closed.Load() || t.conn == nil {
		t.dialer.Log.Warn("send while not connected, frame dropped",
			zap.Int("bytes", len(payload)))
		return ErrNotConnected
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.conn.SetWriteDeadline(time.Now().Add(t.dialer.WriteTimeout))
	if err := t.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.dialer.Log.Warn("websocket write failed", zap.Error(err))
		return errors.Wrap(err, "websocket write")
	}
	return nil
}

func (t *wsTransport) Close() error {
	if t.closed.Swap(true) {
		return nil // already closed
	}
	close(t.done)

	if t.conn != nil {
		t.writeMu.Lock()
		t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		t.writeMu.Unlock()
		t.conn.Close()
	}
	t.wg.Wait()
	return nil
}

func (t *wsTransport) readLoop() {
	defer t.wg.Done()

	for {
		if t.dialer.ReadTimeout > 0 {
			t.conn.SetReadDeadline(time.Now().Add(t.dialer.ReadTimeout))
		}
		_, msg, err := t.conn.ReadMessage()
		if err != nil {
			if t.closed.Load() {
				return // explicit close, no signals
			}
			code := websocket.CloseAbnormalClosure
			reason := err.Error()
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				code = closeErr.Code
				reason = closeErr.Text
			} else if t.cb.OnError != nil {
				t.cb.OnError(err)
			}
			if t.cb.OnClose != nil {
				t.cb.OnClose(code, reason)
			}
			return
		}
		if t.cb.OnMessage != nil {
			t.cb.OnMessage(msg)
		}
	}
}

func (t *wsTransport) pingLoop() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.dialer.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.writeMu.Lock()
			err := t.conn.WriteControl(websocket.PingMessage, nil,
				time.Now().Add(t.dialer.WriteTimeout))
			t.writeMu.Unlock()
			if err != nil {
				// Reader will observe the dead connection and signal close.
				return
			}
		}
	}
}

var _ Transport = (*wsTransport)(nil)
