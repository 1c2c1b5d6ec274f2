// Package breaker provides a per-endpoint circuit breaker used to shed load
// from failing external model providers. State is in-memory only: it is a
// liveness signal, not durable state, and never the sole correctness
// mechanism for a call.
package breaker

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// State represents the condition of a single circuit.
type State int

const (
	// StateClosed allows all calls.
	StateClosed State = iota
	// StateOpen rejects calls until the timeout elapses.
	StateOpen
	// StateHalfOpen allows trial calls to probe recovery.
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

// Config holds the breaker tunables. Zero values fall back to the defaults.
type Config struct {
	// FailureThreshold is the failure count within MonitoringPeriod that
	// trips a closed circuit.
	FailureThreshold int

	// SuccessThreshold is the consecutive successes required in half-open
	// state to close the circuit again.
	SuccessThreshold int

	// Timeout is how long an open circuit rejects calls before allowing a
	// half-open trial.
	Timeout time.Duration

	// MonitoringPeriod is the sliding window failures are counted over.
	MonitoringPeriod time.Duration

	// MaxTrackedKeys bounds the number of (provider, model) circuits held in
	// memory; the least recently touched circuit is evicted beyond it.
	MaxTrackedKeys int
}

// DefaultConfig returns the default breaker configuration.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          60 * time.Second,
		MonitoringPeriod: 5 * time.Minute,
		MaxTrackedKeys:   1024,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()

	if c.FailureThreshold <= 0 {
		c.FailureThreshold = defaults.FailureThreshold
	}

	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = defaults.SuccessThreshold
	}

	if c.Timeout <= 0 {
		c.Timeout = defaults.Timeout
	}

	if c.MonitoringPeriod <= 0 {
		c.MonitoringPeriod = defaults.MonitoringPeriod
	}

	if c.MaxTrackedKeys <= 0 {
		c.MaxTrackedKeys = defaults.MaxTrackedKeys
	}

	return c
}

// circuit is the state for one (provider, model) key.
type circuit struct {
	mu              sync.Mutex
	state           State
	failures        []time.Time
	successes       int
	lastFailureTime time.Time
	lastStateChange time.Time

	// lastTouched is read during eviction without taking the circuit lock.
	lastTouched atomic.Int64
}

// Status is a read-only view of one circuit, exposed for admin endpoints.
type Status struct {
	Provider        string    `json:"provider"`
	Model           string    `json:"model"`
	State           string    `json:"state"`
	FailureCount    int       `json:"failure_count"`
	Successes       int       `json:"successes"`
	LastFailureTime time.Time `json:"last_failure_time,omitzero"`
	LastStateChange time.Time `json:"last_state_change,omitzero"`
}

// Manager tracks circuits keyed by (provider, model). Circuits are created
// lazily on first reference and live for the process lifetime unless evicted
// or reset.
type Manager struct {
	config Config
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	circuits map[string]*circuit
	names    map[string][2]string
}

// NewManager creates a circuit breaker manager.
func NewManager(config Config, logger *slog.Logger) *Manager {
	return &Manager{
		config:   config.withDefaults(),
		logger:   logger,
		now:      time.Now,
		circuits: make(map[string]*circuit),
		names:    make(map[string][2]string),
	}
}

func key(provider, model string) string {
	return provider + "/" + model
}

// CanExecute reports whether a call to the endpoint is currently allowed. An
// open circuit whose timeout has elapsed transitions to half-open and the
// call is allowed as a trial.
func (m *Manager) CanExecute(provider, model string) bool {
	c := m.circuit(provider, model)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := m.now()
	m.prune(c, now)

	switch c.state {
	case StateClosed:
		return true
	case StateOpen:
		if now.Sub(c.lastFailureTime) >= m.config.Timeout {
			m.transition(c, provider, model, StateHalfOpen, now)
			c.successes = 0

			return true
		}

		return false
	case StateHalfOpen:
		return true
	default:
		return false
	}
}

// RecordSuccess reports a successful call to the endpoint.
func (m *Manager) RecordSuccess(provider, model string) {
	c := m.circuit(provider, model)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := m.now()
	c.successes++

	switch c.state {
	case StateHalfOpen:
		if c.successes >= m.config.SuccessThreshold {
			m.transition(c, provider, model, StateClosed, now)
			c.failures = nil
			c.successes = 0
			c.lastFailureTime = time.Time{}
		}
	case StateClosed:
		// A success in closed state is a clean recovery signal; drop the
		// accumulated window without waiting for it to age out.
		if len(c.failures) > 0 {
			c.failures = nil
		}
	case StateOpen:
		// No calls should reach the endpoint while open; nothing to do.
	}
}

// RecordFailure reports a failed call to the endpoint. Any failure during a
// half-open trial reopens the circuit immediately.
func (m *Manager) RecordFailure(provider, model, errorType string) {
	c := m.circuit(provider, model)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := m.now()
	c.failures = append(c.failures, now)
	c.lastFailureTime = now
	m.prune(c, now)

	switch c.state {
	case StateHalfOpen:
		m.transition(c, provider, model, StateOpen, now)
		c.successes = 0
	case StateClosed:
		if len(c.failures) >= m.config.FailureThreshold {
			m.logger.Warn("Circuit breaker tripped",
				"provider", provider,
				"model", model,
				"failures", len(c.failures),
				"error_type", errorType)
			m.transition(c, provider, model, StateOpen, now)
		}
	case StateOpen:
		// Already open; the failure only refreshes lastFailureTime.
	}
}

// Reset forces the circuit back to closed with all counters cleared.
func (m *Manager) Reset(provider, model string) {
	c := m.circuit(provider, model)

	c.mu.Lock()
	defer c.mu.Unlock()

	m.transition(c, provider, model, StateClosed, m.now())
	c.failures = nil
	c.successes = 0
	c.lastFailureTime = time.Time{}
}

// State returns the current state of the circuit for the endpoint.
func (m *Manager) State(provider, model string) State {
	c := m.circuit(provider, model)

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Snapshot returns a view of all tracked circuits.
func (m *Manager) Snapshot() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statuses := make([]Status, 0, len(m.circuits))

	for k, c := range m.circuits {
		names := m.names[k]

		c.mu.Lock()
		statuses = append(statuses, Status{
			Provider:        names[0],
			Model:           names[1],
			State:           c.state.String(),
			FailureCount:    len(c.failures),
			Successes:       c.successes,
			LastFailureTime: c.lastFailureTime,
			LastStateChange: c.lastStateChange,
		})
		c.mu.Unlock()
	}

	return statuses
}

// circuit returns the tracked circuit for the key, creating it lazily and
// evicting the least recently touched entry when the bound is exceeded.
func (m *Manager) circuit(provider, model string) *circuit {
	k := key(provider, model)

	m.mu.RLock()
	c, ok := m.circuits[k]
	m.mu.RUnlock()

	if ok {
		c.lastTouched.Store(m.now().UnixNano())

		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.circuits[k]; ok {
		c.lastTouched.Store(m.now().UnixNano())

		return c
	}

	if len(m.circuits) >= m.config.MaxTrackedKeys {
		m.evictOldest()
	}

	c = &circuit{state: StateClosed, lastStateChange: m.now()}
	c.lastTouched.Store(m.now().UnixNano())
	m.circuits[k] = c
	m.names[k] = [2]string{provider, model}

	return c
}

// evictOldest removes the least recently touched circuit. Callers must hold
// the manager write lock.
func (m *Manager) evictOldest() {
	var (
		oldestKey string
		oldest    int64
	)

	for k, c := range m.circuits {
		touched := c.lastTouched.Load()
		if oldestKey == "" || touched < oldest {
			oldestKey = k
			oldest = touched
		}
	}

	if oldestKey != "" {
		delete(m.circuits, oldestKey)
		delete(m.names, oldestKey)
	}
}

// prune drops failure timestamps older than the monitoring window. Callers
// must hold the circuit lock.
func (m *Manager) prune(c *circuit, now time.Time) {
	cutoff := now.Add(-m.config.MonitoringPeriod)

	kept := c.failures[:0]

	for _, t := range c.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	c.failures = kept
}

// transition changes the circuit state and records the change. Callers must
// hold the circuit lock.
func (m *Manager) transition(c *circuit, provider, model string, to State, now time.Time) {
	if c.state == to {
		c.lastStateChange = now

		return
	}

	m.logger.Info("Circuit breaker state change",
		"provider", provider,
		"model", model,
		"from", c.state.String(),
		"to", to.String())

	c.state = to
	c.lastStateChange = now
}
