package stream

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Status is the connection lifecycle state surfaced to the UI.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusError        Status = "error"
	StatusGivenUp      Status = "given_up"
)

// connErrorCap bounds the recent-error log kept on the connection state.
const connErrorCap = 20

// ConnState is a point-in-time copy of the connection's observable
// state. It survives across reconnect attempts: the attempt counter
// increments and the status cycles while identity persists.
type ConnState struct {
	Status          Status
	Attempts        int
	LastConnectedAt time.Time
	SubscribedPairs []string
	Errors          []string
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Dialer Dialer
	Policy ReconnectPolicy
	// Handler receives every decoded event except subscription acks.
	// Invoked from the transport read goroutine, which is the single
	// stream consumer.
	Handler func(Event)
	// OnStatus, if set, observes every status change.
	OnStatus func(Status)
	Log      *zap.Logger
}

// Manager owns one logical stream connection: it dials transports,
// decodes frames, applies the reconnect policy on unexpected closes, and
// tracks subscription state for replay after reconnect.
type Manager struct {
	dialer   Dialer
	policy   ReconnectPolicy
	handler  func(Event)
	onStatus func(Status)
	log      *zap.Logger

	mu            sync.Mutex
	ctx           context.Context
	status        Status
	attempts      int
	lastConnected time.Time
	subs          map[string][]string // channel -> pairs
	errs          []string
	transport     Transport
	retryTimer    *time.Timer // single pending slot
	closed        bool
}

// NewManager creates a Manager. Dialer is required.
func NewManager(opts ManagerOptions) *Manager {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	handler := opts.Handler
	if handler == nil {
		handler = func(Event) {}
	}
	return &Manager{
		dialer:   opts.Dialer,
		policy:   opts.Policy,
		handler:  handler,
		onStatus: opts.OnStatus,
		log:      log,
		status:   StatusIdle,
		subs:     make(map[string][]string),
	}
}

// Start begins connecting. It returns immediately; connection completion
// is reported through the status.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.ctx = ctx
	m.mu.Unlock()

	go m.attemptConnect()
}

// Close tears the connection down. It transitions directly to terminal
// Idle, cancels any pending scheduled retry and detaches all transport
// listeners. Idempotent.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.cancelRetryLocked()
	t := m.transport
	m.transport = nil
	m.setStatusLocked(StatusIdle)
	m.mu.Unlock()

	if t != nil {
		t.Close()
	}
}

// Retry exits GivenUp (or any disconnected state) with a fresh attempt
// budget. No-op after Close.
func (m *Manager) Retry() {
	m.mu.Lock()
	if m.closed || m.status == StatusConnected || m.status == StatusConnecting {
		m.mu.Unlock()
		return
	}
	m.attempts = 0
	m.cancelRetryLocked()
	m.mu.Unlock()

	go m.attemptConnect()
}

// State returns a copy of the current connection state.
func (m *Manager) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()

	pairs := make([]string, 0)
	for _, chPairs := range m.subs {
		pairs = append(pairs, chPairs...)
	}
	sort.Strings(pairs)

	return ConnState{
		Status:          m.status,
		Attempts:        m.attempts,
		LastConnectedAt: m.lastConnected,
		SubscribedPairs: pairs,
		Errors:          append([]string(nil), m.errs...),
	}
}

// Subscribe records the subscription for replay after reconnect and
// sends the control frame if currently connected.
func (m *Manager) Subscribe(channel string, pairs ...string) {
	m.mu.Lock()
	m.subs[channel] = mergePairs(m.subs[channel], pairs)
	m.mu.Unlock()

	m.SendJSON(SubscribeFrame{Type: TypeSubscribe, Channel: channel, Pairs: pairs})
}

// Unsubscribe drops the subscription and sends the control frame.
func (m *Manager) Unsubscribe(channel string) {
	m.mu.Lock()
	delete(m.subs, channel)
	m.mu.Unlock()

	m.SendJSON(SubscribeFrame{Type: TypeUnsubscribe, Channel: channel})
}

// SendJSON marshals and sends one outbound frame. A send while not
// connected is logged and reported as ErrNotConnected; it is never
// fatal.
func (m *Manager) SendJSON(v interface{}) error {
	payload, err := sonic.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshal frame")
	}

	m.mu.Lock()
	t := m.transport
	connected := m.status == StatusConnected
	m.mu.Unlock()

	if t == nil || !connected {
		m.log.Warn("send while disconnected, frame dropped")
		return ErrNotConnected
	}
	return t.Send(payload)
}

func (m *Manager) attemptConnect() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.setStatusLocked(StatusConnecting)
	ctx := m.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	var t Transport
	t = m.dialer.Dial(Callbacks{
		OnOpen:    func() { m.handleOpen(t) },
		OnMessage: func(raw []byte) { m.handleMessage(t, raw) },
		OnError:   func(err error) { m.recordError(err.Error()) },
		OnClose:   func(code int, reason string) { m.handleClose(t, code, reason) },
	})
	m.transport = t
	m.mu.Unlock()

	if err := t.Connect(ctx); err != nil {
		m.log.Warn("connect failed", zap.Error(err))
		m.recordError(err.Error())
		m.connectionLost(t, StatusError)
	}
}

func (m *Manager) handleOpen(t Transport) {
	m.mu.Lock()
	if m.closed || t != m.transport {
		m.mu.Unlock()
		return
	}
	m.attempts = 0
	m.lastConnected = time.Now()
	m.setStatusLocked(StatusConnected)
	frames := make([]SubscribeFrame, 0, len(m.subs))
	for channel, pairs := range m.subs {
		frames = append(frames, SubscribeFrame{Type: TypeSubscribe, Channel: channel, Pairs: pairs})
	}
	m.mu.Unlock()

	m.log.Info("stream connected")

	// Replay subscriptions on the fresh connection.
	for _, f := range frames {
		payload, err := sonic.Marshal(f)
		if err != nil {
			continue
		}
		if err := t.Send(payload); err != nil {
			m.log.Warn("resubscribe failed", zap.String("channel", f.Channel), zap.Error(err))
		}
	}
}

func (m *Manager) handleMessage(t Transport, raw []byte) {
	m.mu.Lock()
	stale := m.closed || t != m.transport
	m.mu.Unlock()
	if stale {
		return
	}

	event, err := Decode(raw)
	if err != nil {
		// Decode faults are dropped, never surfaced as fatal.
		m.log.Warn("dropping undecodable frame", zap.Error(err))
		return
	}

	if ack, ok := event.(SubscriptionConfirmed); ok {
		m.log.Debug("subscription confirmed", zap.String("channel", ack.Channel))
		return
	}
	m.handler(event)
}

func (m *Manager) handleClose(t Transport, code int, reason string) {
	m.log.Warn("stream closed unexpectedly", zap.Int("code", code), zap.String("reason", reason))
	m.recordError(reason)
	m.connectionLost(t, StatusDisconnected)
}

// connectionLost applies the reconnect policy after an unexpected close
// or a failed connect attempt.
func (m *Manager) connectionLost(t Transport, status Status) {
	m.mu.Lock()
	if m.closed || t != m.transport {
		m.mu.Unlock()
		return
	}
	m.transport = nil

	if !m.policy.ShouldRetry(m.attempts) {
		m.setStatusLocked(StatusGivenUp)
		m.mu.Unlock()
		m.log.Warn("reconnect attempts exhausted",
			zap.Int("attempts", m.attempts))
		go t.Close()
		return
	}

	delay := m.policy.Delay(m.attempts)
	m.attempts++
	m.setStatusLocked(status)
	m.scheduleRetryLocked(delay)
	attempts := m.attempts
	m.mu.Unlock()

	m.log.Info("reconnect scheduled",
		zap.Duration("delay", delay), zap.Int("attempt", attempts))
	go t.Close()
}

// scheduleRetryLocked arms the single pending-timer slot; a new schedule
// cancels any previously scheduled retry. Caller holds mu.
func (m *Manager) scheduleRetryLocked(delay time.Duration) {
	m.cancelRetryLocked()
	m.retryTimer = time.AfterFunc(delay, func() {
		m.mu.Lock()
		skip := m.closed || m.status == StatusGivenUp || m.status == StatusConnected
		m.mu.Unlock()
		if skip {
			return
		}
		m.attemptConnect()
	})
}

func (m *Manager) cancelRetryLocked() {
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
}

func (m *Manager) setStatusLocked(s Status) {
	if m.status == s {
		return
	}
	m.status = s
	if m.onStatus != nil {
		go m.onStatus(s)
	}
}

func (m *Manager) recordError(msg string) {
	if msg == "" {
		return
	}
	m.mu.Lock()
	m.errs = append(m.errs, msg)
	if len(m.errs) > connErrorCap {
		m.errs = m.errs[len(m.errs)-connErrorCap:]
	}
	m.mu.Unlock()
}

func mergePairs(have, add []string) []string {
	seen := make(map[string]struct{}, len(have)+len(add))
	merged := make([]string, 0, len(have)+len(add))
	for _, p := range append(append([]string(nil), have...), add...) {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		merged = append(merged, p)
	}
	return merged
}
