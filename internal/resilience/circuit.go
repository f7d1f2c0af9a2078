package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// BreakerState represents the state of a provider circuit breaker.
type BreakerState int

const (
	// BreakerClosed is the normal operating state — calls flow through.
	BreakerClosed BreakerState = iota
	// BreakerOpen means too many consecutive failures — calls are rejected.
	BreakerOpen
	// BreakerHalfOpen allows a probe call to test recovery.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen is returned when a call is rejected because the breaker is open.
var ErrBreakerOpen = eris.New("circuit breaker is open")

// BreakerConfig controls circuit breaker behavior.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before the
	// breaker opens. Default: 5.
	FailureThreshold int

	// ResetTimeout is how long the breaker stays open before allowing a
	// probe call. Default: 30s.
	ResetTimeout time.Duration

	// ShouldTrip optionally limits which errors count toward the threshold.
	// If nil, every error counts.
	ShouldTrip func(err error) bool

	// OnStateChange is called on each state transition.
	OnStateChange func(from, to BreakerState)
}

// DefaultBreakerConfig returns sensible defaults for enrichment providers.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
	}
}

// Breaker implements the circuit breaker pattern for one provider.
type Breaker struct {
	cfg BreakerConfig

	mu                  sync.Mutex
	state               BreakerState
	consecutiveFailures int
	lastFailureTime     time.Time

	nowFunc func() time.Time // injectable for tests
}

// NewBreaker creates a circuit breaker with the given config.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	return &Breaker{cfg: cfg, state: BreakerClosed, nowFunc: time.Now}
}

// Execute runs fn through the breaker. Returns ErrBreakerOpen without calling
// fn if the breaker is open.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn(ctx)
	b.record(err)
	return err
}

// ExecuteVal is like Execute but preserves a return value.
func ExecuteVal[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.allow(); err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	b.record(err)
	return val, err
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.nowFunc().Sub(b.lastFailureTime) >= b.cfg.ResetTimeout {
		return BreakerHalfOpen
	}
	return b.state
}

// Reset forces the breaker closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	old := b.state
	b.state = BreakerClosed
	b.consecutiveFailures = 0
	if old != BreakerClosed && b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(old, BreakerClosed)
	}
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.nowFunc().Sub(b.lastFailureTime) >= b.cfg.ResetTimeout {
			b.transition(BreakerHalfOpen)
			return nil // probe allowed
		}
		return ErrBreakerOpen
	default:
		return nil
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	shouldTrip := b.cfg.ShouldTrip
	if shouldTrip == nil {
		shouldTrip = func(e error) bool { return e != nil }
	}

	if err == nil || !shouldTrip(err) {
		if b.state == BreakerHalfOpen {
			b.transition(BreakerClosed)
		}
		b.consecutiveFailures = 0
		return
	}

	b.consecutiveFailures++
	b.lastFailureTime = b.nowFunc()

	switch b.state {
	case BreakerClosed:
		if b.consecutiveFailures >= b.cfg.FailureThreshold {
			b.transition(BreakerOpen)
		}
	case BreakerHalfOpen:
		// A failed probe reopens the breaker.
		b.transition(BreakerOpen)
	}
}

func (b *Breaker) transition(to BreakerState) {
	from := b.state
	b.state = to
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
}

// ProviderBreakers manages one breaker per enrichment provider.
type ProviderBreakers struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	cfg      BreakerConfig
}

// NewProviderBreakers creates a registry of per-provider circuit breakers.
func NewProviderBreakers(cfg BreakerConfig) *ProviderBreakers {
	return &ProviderBreakers{breakers: make(map[string]*Breaker), cfg: cfg}
}

// Get returns the breaker for the named provider, creating one if needed.
func (pb *ProviderBreakers) Get(provider string) *Breaker {
	pb.mu.RLock()
	b, ok := pb.breakers[provider]
	pb.mu.RUnlock()
	if ok {
		return b
	}

	pb.mu.Lock()
	defer pb.mu.Unlock()
	if b, ok = pb.breakers[provider]; ok {
		return b
	}
	b = NewBreaker(pb.cfg)
	pb.breakers[provider] = b
	return b
}
