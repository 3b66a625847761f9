package stream

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// fakeTransport satisfies Transport without sockets. Connect succeeds or
// fails per configuration; the test drives callbacks directly.
type fakeTransport struct {
	cb         Callbacks
	connectErr error

	mu     sync.Mutex
	sent   [][]byte
	closed bool
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	if f.cb.OnOpen != nil {
		f.cb.OnOpen()
	}
	return nil
}

func (f *fakeTransport) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrNotConnected
	}
	f.sent = append(f.sent, append([]byte(nil), payload...))
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) sentFrames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.sent...)
}

// fakeDialer hands out one fakeTransport per attempt and remembers them.
type fakeDialer struct {
	mu         sync.Mutex
	transports []*fakeTransport
	connectErr error
}

func (d *fakeDialer) Dial(cb Callbacks) Transport {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := &fakeTransport{cb: cb, connectErr: d.connectErr}
	d.transports = append(d.transports, t)
	return t
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.transports)
}

func (d *fakeDialer) last() *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.transports) == 0 {
		return nil
	}
	return d.transports[len(d.transports)-1]
}

func (d *fakeDialer) setConnectErr(err error) {
	d.mu.Lock()
	d.connectErr = err
	d.mu.Unlock()
}

// fastPolicy keeps retry timers out of the way of test wall time.
func fastPolicy(maxAttempts int) ReconnectPolicy {
	return NewReconnectPolicy([]time.Duration{time.Millisecond}, maxAttempts)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func TestManager_ConnectsAndResetsAttempts(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(ManagerOptions{Dialer: d, Policy: fastPolicy(3)})
	defer m.Close()

	m.Start(context.Background())

	waitFor(t, "connected", func() bool { return m.State().Status == StatusConnected })

	st := m.State()
	if st.Attempts != 0 {
		t.Errorf("Expected attempts reset to 0 on connect, got %d", st.Attempts)
	}
	if d.dialCount() != 1 {
		t.Errorf("Expected a single dial, got %d", d.dialCount())
	}
}

func TestManager_GivesUpAfterMaxAttempts(t *testing.T) {
	d := &fakeDialer{connectErr: errors.New("connection refused")}
	m := NewManager(ManagerOptions{Dialer: d, Policy: fastPolicy(3)})
	defer m.Close()

	m.Start(context.Background())

	waitFor(t, "given up", func() bool { return m.State().Status == StatusGivenUp })

	// Initial attempt plus exactly maxAttempts scheduled retries.
	if got := d.dialCount(); got != 4 {
		t.Errorf("Expected 4 dials (1 initial + 3 retries), got %d", got)
	}

	// No further dials once given up.
	time.Sleep(20 * time.Millisecond)
	if got := d.dialCount(); got != 4 {
		t.Errorf("Dialing continued after giving up: %d dials", got)
	}
}

func TestManager_RetryResetsBudget(t *testing.T) {
	d := &fakeDialer{connectErr: errors.New("connection refused")}
	m := NewManager(ManagerOptions{Dialer: d, Policy: fastPolicy(2)})
	defer m.Close()

	m.Start(context.Background())
	waitFor(t, "given up", func() bool { return m.State().Status == StatusGivenUp })

	// Upstream comes back; a manual retry must leave GivenUp.
	d.setConnectErr(nil)
	m.Retry()

	waitFor(t, "connected after retry", func() bool { return m.State().Status == StatusConnected })
	if got := m.State().Attempts; got != 0 {
		t.Errorf("Expected attempts 0 after successful retry, got %d", got)
	}
}

func TestManager_ReconnectsOnUnexpectedClose(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(ManagerOptions{Dialer: d, Policy: fastPolicy(3)})
	defer m.Close()

	m.Start(context.Background())
	waitFor(t, "connected", func() bool { return m.State().Status == StatusConnected })

	first := d.last()
	first.cb.OnClose(1006, "abnormal closure")

	waitFor(t, "reconnected", func() bool {
		return d.dialCount() == 2 && m.State().Status == StatusConnected
	})
	if got := m.State().Attempts; got != 0 {
		t.Errorf("Expected attempts reset after reconnect, got %d", got)
	}
}

func TestManager_ResubscribesAfterReconnect(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(ManagerOptions{Dialer: d, Policy: fastPolicy(3)})
	defer m.Close()

	m.Start(context.Background())
	waitFor(t, "connected", func() bool { return m.State().Status == StatusConnected })

	m.Subscribe("tokens", "ETH/USDT")

	d.last().cb.OnClose(1006, "abnormal closure")
	waitFor(t, "reconnected", func() bool {
		return d.dialCount() == 2 && m.State().Status == StatusConnected
	})

	// The fresh transport must have received the subscribe replay.
	waitFor(t, "subscription replay", func() bool {
		for _, raw := range d.last().sentFrames() {
			var f SubscribeFrame
			if sonic.Unmarshal(raw, &f) == nil && f.Type == TypeSubscribe && f.Channel == "tokens" {
				return true
			}
		}
		return false
	})
}

func TestManager_CloseIsTerminalIdle(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(ManagerOptions{Dialer: d, Policy: fastPolicy(3)})

	m.Start(context.Background())
	waitFor(t, "connected", func() bool { return m.State().Status == StatusConnected })

	m.Close()
	if got := m.State().Status; got != StatusIdle {
		t.Errorf("Expected Idle after Close, got %s", got)
	}

	// Closed managers ignore Retry and further Starts.
	m.Retry()
	m.Start(context.Background())
	time.Sleep(10 * time.Millisecond)
	if got := d.dialCount(); got != 1 {
		t.Errorf("Expected no dials after Close, got %d", got)
	}
}

func TestManager_SendWhileDisconnected(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(ManagerOptions{Dialer: d, Policy: fastPolicy(3)})
	defer m.Close()

	err := m.SendJSON(SubscribeFrame{Type: TypeSubscribe, Channel: "tokens"})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
}

func TestManager_DispatchesDecodedEvents(t *testing.T) {
	var mu sync.Mutex
	var received []Event

	d := &fakeDialer{}
	m := NewManager(ManagerOptions{
		Dialer: d,
		Policy: fastPolicy(3),
		Handler: func(ev Event) {
			mu.Lock()
			received = append(received, ev)
			mu.Unlock()
		},
	})
	defer m.Close()

	m.Start(context.Background())
	waitFor(t, "connected", func() bool { return m.State().Status == StatusConnected })

	cb := d.last().cb
	cb.OnMessage([]byte(`{"type":"price_update","pair":"ETH/USDT","price":1850,"timestamp":1700000000000}`))
	// Acks and garbage must not reach the handler.
	cb.OnMessage([]byte(`{"type":"subscription_confirmed","channel":"tokens","timestamp":1700000000000}`))
	cb.OnMessage([]byte(`not json`))

	waitFor(t, "event dispatch", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if _, ok := received[0].(PriceUpdate); !ok {
		t.Errorf("Expected PriceUpdate, got %T", received[0])
	}
}

func TestManager_ErrorLogIsBounded(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(ManagerOptions{Dialer: d, Policy: fastPolicy(3)})
	defer m.Close()

	for i := 0; i < connErrorCap*2; i++ {
		m.recordError("boom")
	}
	if got := len(m.State().Errors); got != connErrorCap {
		t.Errorf("Expected error log capped at %d, got %d", connErrorCap, got)
	}
}
