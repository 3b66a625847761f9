package stream

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotConnected is returned by Send when no connection is open. Callers
// treat it as non-fatal: a trading UI must not crash on a transient
// disconnect, so the send is logged and dropped.
var ErrNotConnected = errors.New("transport not connected")

// Callbacks receives transport lifecycle signals. A nil field is simply
// not invoked. After Close returns, no callback fires again.
type Callbacks struct {
	// OnOpen fires once the connection is established.
	OnOpen func()
	// OnMessage delivers one raw inbound frame.
	OnMessage func(raw []byte)
	// OnError reports a transport fault. Always followed by OnClose
	// unless the close was explicitly requested.
	OnError func(err error)
	// OnClose fires when the connection closes without the caller
	// requesting it.
	OnClose func(code int, reason string)
}

// Transport is one logical connection to a push-event source. It has no
// knowledge of business semantics; frames pass through opaque.
//
// A Transport is single-use: Connect at most once, then Close. The
// manager dials a fresh one per attempt.
type Transport interface {
	// Connect establishes the connection and starts continuous frame
	// delivery via Callbacks until either side closes.
	Connect(ctx context.Context) error

	// Send writes one frame. Returns ErrNotConnected when no connection
	// is open.
	Send(payload []byte) error

	// Close is idempotent and terminal regardless of prior state. An
	// explicitly requested close never fires OnClose.
	Close() error
}

// Dialer creates a fresh Transport bound to the given callbacks for each
// connection attempt.
type Dialer interface {
	Dial(cb Callbacks) Transport
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(cb Callbacks) Transport

// Dial implements Dialer.
func (f DialerFunc) Dial(cb Callbacks) Transport { return f(cb) }
