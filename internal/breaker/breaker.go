// Package breaker implements a consecutive-failure circuit breaker that keeps
// a failing provider out of the routing path until a cooldown has passed.
package breaker

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrOpen is returned when a call is short-circuited by an open breaker.
var ErrOpen = errors.New("circuit breaker open")

// State is a breaker state.
type State int

const (
	// StateClosed lets calls through and counts consecutive failures.
	StateClosed State = iota
	// StateOpen rejects calls without attempting them.
	StateOpen
	// StateHalfOpen admits a single probe call.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config controls state transitions.
type Config struct {
	// Threshold is the number of consecutive failures that opens the breaker.
	Threshold int
	// Cooldown is how long the breaker stays open before admitting a probe.
	Cooldown time.Duration
}

// DefaultConfig returns the breaker defaults.
func DefaultConfig() Config {
	return Config{Threshold: 5, Cooldown: 60 * time.Second}
}

// Snapshot is a point-in-time view of a breaker.
type Snapshot struct {
	Name                string
	State               State
	ConsecutiveFailures int
	OpenedAt            time.Time
}

// Breaker guards one provider's outbound calls.
type Breaker struct {
	name string
	cfg  Config
	now  func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// New creates a closed breaker.
func New(name string, cfg Config) *Breaker {
	def := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	return &Breaker{name: name, cfg: cfg, now: time.Now}
}

// Name returns the guarded provider name.
func (b *Breaker) Name() string {
	return b.name
}

// Allow reports whether a call may proceed. After the cooldown exactly one
// caller is admitted as the half-open probe; others get ErrOpen until the
// probe's outcome is recorded.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
			return ErrOpen
		}
		b.transitionLocked(StateHalfOpen)
		b.probing = true
		return nil
	default:
		if b.probing {
			return ErrOpen
		}
		b.probing = true
		return nil
	}
}

// Record feeds a call outcome into the breaker. A nil error is a success.
// Caller cancellation says nothing about provider health and only releases
// a pending probe.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if errors.Is(err, context.Canceled) {
		if b.state == StateHalfOpen {
			b.probing = false
		}
		return
	}

	switch b.state {
	case StateClosed:
		if err == nil {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.cfg.Threshold {
			b.openLocked()
		}
	case StateHalfOpen:
		b.probing = false
		if err == nil {
			b.failures = 0
			b.transitionLocked(StateClosed)
			return
		}
		b.failures++
		b.openLocked()
	case StateOpen:
		// Late outcome of a call admitted before the breaker opened.
		if err != nil {
			b.failures++
		}
	}
}

// Execute runs fn if the breaker allows it and records the outcome.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.Allow(); err != nil {
		return err
	}
	err := fn(ctx)
	b.Record(err)
	return err
}

// State returns the effective state. An open breaker whose cooldown has
// elapsed reports StateHalfOpen.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		return StateHalfOpen
	}
	return b.state
}

// Snapshot returns the breaker's current counters.
func (b *Breaker) Snapshot() Snapshot {
	state := b.State()
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		Name:                b.name,
		State:               state,
		ConsecutiveFailures: b.failures,
		OpenedAt:            b.openedAt,
	}
}

func (b *Breaker) openLocked() {
	b.openedAt = b.now()
	b.transitionLocked(StateOpen)
}

func (b *Breaker) transitionLocked(to State) {
	if b.state == to {
		return
	}
	log.Printf("[breaker] %s: %s -> %s (failures=%d)", b.name, b.state, to, b.failures)
	b.state = to
}
