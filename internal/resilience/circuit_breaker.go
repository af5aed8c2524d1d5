package resilience

import (
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// CircuitBreakerState represents the state of the circuit breaker
type CircuitBreakerState int32

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitBreakerState) String() string {
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

func (s CircuitBreakerState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// CircuitBreakerConfig holds configuration for the circuit breaker
type CircuitBreakerConfig struct {
	FailureThreshold int           `json:"failure_threshold"` // consecutive failures before opening
	RecoveryTimeout  time.Duration `json:"recovery_timeout"`  // open duration before a trial call
	SuccessThreshold int           `json:"success_threshold"` // half-open successes needed to close
}

// CircuitBreaker stops calling a collaborator after repeated failures and
// lets a trial call through once the recovery timeout has passed.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	now    func() time.Time

	mu          sync.Mutex
	state       CircuitBreakerState
	failures    int
	successes   int
	nextAttempt time.Time
}

func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = 30 * time.Second
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 2
	}

	return &CircuitBreaker{
		config: config,
		now:    time.Now,
		state:  StateClosed,
	}
}

// Call runs fn unless the breaker is open. Any error from fn counts as a
// failure.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.before(); err != nil {
		return err
	}

	err := fn()
	cb.after(err)
	return err
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Before(cb.nextAttempt) {
			return &CircuitBreakerError{Message: "circuit breaker is open", State: StateOpen}
		}
		cb.state = StateHalfOpen
		cb.successes = 0
	}
	return nil
}

func (cb *CircuitBreaker) after(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.successes = 0
		if cb.state == StateHalfOpen || cb.failures >= cb.config.FailureThreshold {
			cb.state = StateOpen
			cb.nextAttempt = cb.now().Add(cb.config.RecoveryTimeout)
		}
		return
	}

	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.state = StateClosed
		}
	}
}

func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the current consecutive failure count
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
}

// CircuitBreakerError is returned without calling through while the breaker
// is open
type CircuitBreakerError struct {
	Message string
	State   CircuitBreakerState
}

func (e *CircuitBreakerError) Error() string {
	return e.Message
}

// BreakerStats is the reported state of one breaker
type BreakerStats struct {
	State    CircuitBreakerState `json:"state"`
	Failures int                 `json:"failures"`
}

// CircuitBreakerRegistry hands out one breaker per collaborator name
type CircuitBreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

func NewCircuitBreakerRegistry() *CircuitBreakerRegistry {
	return &CircuitBreakerRegistry{breakers: make(map[string]*CircuitBreaker)}
}

// GetOrCreate returns the breaker for name, creating it with config on first use
func (r *CircuitBreakerRegistry) GetOrCreate(name string, config CircuitBreakerConfig) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := NewCircuitBreaker(config)
	r.breakers[name] = b
	return b
}

func (r *CircuitBreakerRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *CircuitBreakerRegistry) Stats() map[string]BreakerStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := make(map[string]BreakerStats, len(r.breakers))
	for name, b := range r.breakers {
		stats[name] = BreakerStats{State: b.State(), Failures: b.Failures()}
	}
	return stats
}

func (r *CircuitBreakerRegistry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.breakers {
		b.Reset()
	}
}
