package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

var ErrBreakerOpen = errors.New("session store circuit is open")

type BreakerConfig struct {
	MaxFailures      int           `json:"max_failures"`
	Timeout          time.Duration `json:"timeout"`
	HalfOpenMaxCalls int           `json:"half_open_max_calls"`
}

func DefaultBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 3,
	}
}

// CircuitBreaker stops calling a failing dependency for Timeout after
// MaxFailures consecutive failures, then lets HalfOpenMaxCalls trial calls through.
type CircuitBreaker struct {
	mu              sync.Mutex
	state           BreakerState
	failureCount    int
	successCount    int
	inFlight        int
	lastFailureTime time.Time

	maxFailures      int
	timeout          time.Duration
	halfOpenMaxCalls int
	now              func() time.Time
}

func NewCircuitBreaker(config *BreakerConfig) *CircuitBreaker {
	if config == nil {
		config = DefaultBreakerConfig()
	}

	cb := &CircuitBreaker{
		state:            BreakerClosed,
		maxFailures:      config.MaxFailures,
		timeout:          config.Timeout,
		halfOpenMaxCalls: config.HalfOpenMaxCalls,
		now:              time.Now,
	}
	if cb.maxFailures < 1 {
		cb.maxFailures = 1
	}
	if cb.halfOpenMaxCalls < 1 {
		cb.halfOpenMaxCalls = 1
	}
	return cb
}

// Execute runs fn unless the circuit is open. Only errors for which
// isFailure returns true count against the circuit.
func (cb *CircuitBreaker) Execute(fn func() error, isFailure func(error) bool) error {
	if !cb.allow() {
		return ErrBreakerOpen
	}

	err := fn()
	if err != nil && isFailure(err) {
		cb.recordFailure()
		return err
	}

	cb.recordSuccess()
	return err
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if cb.now().Sub(cb.lastFailureTime) < cb.timeout {
			return false
		}
		cb.state = BreakerHalfOpen
		cb.successCount = 0
		cb.inFlight = 1
		return true
	case BreakerHalfOpen:
		if cb.successCount+cb.inFlight >= cb.halfOpenMaxCalls {
			return false
		}
		cb.inFlight++
		return true
	default:
		return false
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailureTime = cb.now()

	switch cb.state {
	case BreakerClosed:
		if cb.failureCount >= cb.maxFailures {
			cb.state = BreakerOpen
		}
	case BreakerHalfOpen:
		cb.state = BreakerOpen
		cb.successCount = 0
		cb.inFlight = 0
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerClosed:
		cb.failureCount = 0
	case BreakerHalfOpen:
		cb.inFlight--
		cb.successCount++
		if cb.successCount >= cb.halfOpenMaxCalls {
			cb.state = BreakerClosed
			cb.failureCount = 0
			cb.successCount = 0
			cb.inFlight = 0
		}
	}
}

func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Stats() map[string]interface{} {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return map[string]interface{}{
		"state":           cb.state.String(),
		"failure_count":   cb.failureCount,
		"success_count":   cb.successCount,
		"last_failure":    cb.lastFailureTime.Unix(),
		"max_failures":    cb.maxFailures,
		"timeout_seconds": cb.timeout.Seconds(),
	}
}

// BreakerStore guards a remote Store with a CircuitBreaker so that an outage
// fails requests fast instead of waiting on every dial timeout.
type BreakerStore struct {
	store   Store
	breaker *CircuitBreaker
}

func NewBreakerStore(store Store, config *BreakerConfig) *BreakerStore {
	return &BreakerStore{store: store, breaker: NewCircuitBreaker(config)}
}

func isOutage(err error) bool {
	return errors.Is(err, ErrStoreDown)
}

func (s *BreakerStore) run(fn func() error) error {
	err := s.breaker.Execute(fn, isOutage)
	if errors.Is(err, ErrBreakerOpen) {
		return fmt.Errorf("%w: %v", ErrStoreDown, err)
	}
	return err
}

func (s *BreakerStore) Save(ctx context.Context, sid string, userID uint, ttl time.Duration) error {
	return s.run(func() error {
		return s.store.Save(ctx, sid, userID, ttl)
	})
}

func (s *BreakerStore) Load(ctx context.Context, sid string) (uint, error) {
	var userID uint
	err := s.run(func() error {
		var err error
		userID, err = s.store.Load(ctx, sid)
		return err
	})
	return userID, err
}

func (s *BreakerStore) Delete(ctx context.Context, sid string) error {
	return s.run(func() error {
		return s.store.Delete(ctx, sid)
	})
}

// Health always asks the wrapped store so health checks see the real state.
func (s *BreakerStore) Health(ctx context.Context) error {
	return s.store.Health(ctx)
}

// Stats merges the wrapped store's stats, when it has any, with the
// breaker state under "breaker".
func (s *BreakerStore) Stats() map[string]interface{} {
	stats := map[string]interface{}{}
	if reporter, ok := s.store.(interface{ Stats() map[string]interface{} }); ok {
		for k, v := range reporter.Stats() {
			stats[k] = v
		}
	}
	stats["breaker"] = s.breaker.Stats()
	return stats
}

func (s *BreakerStore) Breaker() *CircuitBreaker {
	return s.breaker
}
