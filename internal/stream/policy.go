package stream

import "time"

// DefaultReconnectDelays is the fixed backoff table used when no delays
// are configured. The last value repeats for later attempts.
var DefaultReconnectDelays = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	5 * time.Second,
	10 * time.Second,
	30 * time.Second,
}

// DefaultMaxReconnectAttempts bounds consecutive automatic retries
// before the connection gives up.
const DefaultMaxReconnectAttempts = 5

// ReconnectPolicy decides retry timing and limits for the transport. It
// is pure so it can be tested independently of socket mechanics.
type ReconnectPolicy struct {
	delays      []time.Duration
	maxAttempts int
}

// NewReconnectPolicy builds a policy from a non-decreasing delay table
// and an attempt limit. Zero values fall back to the defaults.
func NewReconnectPolicy(delays []time.Duration, maxAttempts int) ReconnectPolicy {
	if len(delays) == 0 {
		delays = DefaultReconnectDelays
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxReconnectAttempts
	}
	return ReconnectPolicy{delays: delays, maxAttempts: maxAttempts}
}

// Delay returns the wait before retry number attempt (0-based). Attempts
// beyond the table length repeat the last value, keeping the sequence
// monotonically non-decreasing.
func (p ReconnectPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(p.delays) {
		return p.delays[len(p.delays)-1]
	}
	return p.delays[attempt]
}

// ShouldRetry reports whether another automatic reconnect is allowed
// after the given number of consecutive failed attempts.
func (p ReconnectPolicy) ShouldRetry(attempts int) bool {
	return attempts < p.maxAttempts
}

// MaxAttempts returns the configured attempt limit.
func (p ReconnectPolicy) MaxAttempts() int {
	return p.maxAttempts
}
