// Package breaker guards the upstream content service with a circuit
// breaker so a dead endpoint fails builds fast instead of stalling every
// attempt on its timeout.
package breaker

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrOpen reports a short-circuited call: the breaker is open and the
// protected call was never made.
var ErrOpen = errors.New("circuit open")

// #region state

// State is the breaker's position.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// #endregion

// #region breaker

// Breaker trips open after a run of consecutive failures and probes the
// upstream with a single trial call once the cooldown passes. A successful
// probe closes it; a failed probe reopens it for another cooldown.
type Breaker struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	stats    Stats
}

// Stats counts breaker activity since construction.
type Stats struct {
	Calls         int
	Failures      int
	ShortCircuits int
	Trips         int
}

// New returns a closed breaker that opens after threshold consecutive
// failures and stays open for the cooldown.
func New(threshold int, cooldown time.Duration) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	return &Breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// State returns the breaker's current position, accounting for cooldown
// expiry.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && b.now().Sub(b.openedAt) >= b.cooldown {
		return HalfOpen
	}
	return b.state
}

// Stats returns a snapshot of the activity counters.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// Do runs fn under the breaker. While open it returns ErrOpen without
// calling fn; in half-open exactly the first caller probes the upstream.
func (b *Breaker) Do(fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) < b.cooldown {
			b.stats.ShortCircuits++
			return fmt.Errorf("%w: retry after %s", ErrOpen, b.cooldown)
		}
		b.state = HalfOpen
	case HalfOpen:
		// Only one probe per cooldown window.
		b.stats.ShortCircuits++
		return fmt.Errorf("%w: probe in flight", ErrOpen)
	}
	b.stats.Calls++
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.state = Closed
		b.failures = 0
		return
	}

	b.stats.Failures++
	b.failures++
	if b.state == HalfOpen || b.failures >= b.threshold {
		if b.state != Open {
			b.stats.Trips++
		}
		b.state = Open
		b.openedAt = b.now()
		b.failures = 0
	}
}

// #endregion
