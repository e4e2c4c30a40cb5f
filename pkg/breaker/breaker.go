// Package breaker implements per-source circuit breakers for the ingestion pipeline.
// Each source has an independent entry; a failing source is short-circuited until a
// cooldown passes and a single probe request succeeds.
package breaker

import (
	"sort"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/feedpipe/pkg/domain"
)

// Config defines breaker thresholds shared by all sources
type Config struct {
	FailureThreshold int           // consecutive failures to open the circuit
	Window           time.Duration // failures further apart than this restart the count
	Cooldown         time.Duration // time in open state before a probe is allowed
}

// Registry keeps one circuit breaker per source name
type Registry struct {
	cfg      Config
	now      func() time.Time
	observer Observer

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu              sync.Mutex
	state           domain.BreakerState
	failureCount    int
	lastFailure     time.Time
	lastStateChange time.Time
	probing         bool
}

// Observer is notified about state changes and recorded failures, used for metrics
type Observer interface {
	BreakerStateChanged(source string, state domain.BreakerState)
	BreakerFailure(source string)
}

type nopObserver struct{}

func (nopObserver) BreakerStateChanged(string, domain.BreakerState) {}
func (nopObserver) BreakerFailure(string)                           {}

// Option configures Registry
type Option func(*Registry)

// WithClock sets the time source, used in tests
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithObserver sets the observer of state changes and failures
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		if o != nil {
			r.observer = o
		}
	}
}

// New makes a registry with the given thresholds, zero values replaced by defaults
func New(cfg Config, opts ...Option) *Registry {
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 60 * time.Second
	}
	res := &Registry{cfg: cfg, now: time.Now, observer: nopObserver{}, entries: make(map[string]*entry)}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Allow reports whether a request to the source may proceed.
// In open state after the cooldown exactly one caller gets true and becomes the probe.
func (r *Registry) Allow(source string) bool {
	e := r.entry(source)
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case domain.BreakerClosed:
		return true
	case domain.BreakerOpen:
		if r.now().Sub(e.lastStateChange) < r.cfg.Cooldown {
			return false
		}
		r.transition(source, e, domain.BreakerHalfOpen)
		e.probing = true
		return true
	case domain.BreakerHalfOpen:
		// probe already in flight
		if e.probing {
			return false
		}
		e.probing = true
		return true
	}
	return false
}

// RecordSuccess resets the failure count and closes a half-open circuit
func (r *Registry) RecordSuccess(source string) {
	e := r.entry(source)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.failureCount = 0
	e.probing = false
	if e.state != domain.BreakerClosed {
		r.transition(source, e, domain.BreakerClosed)
	}
}

// RecordFailure counts a failure and opens the circuit when the threshold is reached.
// A failed probe reopens the circuit immediately.
func (r *Registry) RecordFailure(source string) {
	e := r.entry(source)
	e.mu.Lock()
	defer e.mu.Unlock()

	now := r.now()
	if r.cfg.Window > 0 && !e.lastFailure.IsZero() && now.Sub(e.lastFailure) > r.cfg.Window {
		e.failureCount = 0
	}
	e.failureCount++
	e.lastFailure = now
	r.observer.BreakerFailure(source)

	switch e.state {
	case domain.BreakerHalfOpen:
		e.probing = false
		r.transition(source, e, domain.BreakerOpen)
	case domain.BreakerClosed:
		if e.failureCount >= r.cfg.FailureThreshold {
			r.transition(source, e, domain.BreakerOpen)
		}
	case domain.BreakerOpen:
		// late report from a request started before the circuit opened
	}
}

// State returns the current state of the source breaker
func (r *Registry) State(source string) domain.CircuitState {
	e := r.entry(source)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view(source)
}

// Snapshot returns states of all known breakers sorted by source
func (r *Registry) Snapshot() []domain.CircuitState {
	r.mu.Lock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	r.mu.Unlock()
	sort.Strings(names)

	res := make([]domain.CircuitState, 0, len(names))
	for _, name := range names {
		res = append(res, r.State(name))
	}
	return res
}

func (r *Registry) entry(source string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[source]
	if !ok {
		e = &entry{state: domain.BreakerClosed, lastStateChange: r.now()}
		r.entries[source] = e
		r.observer.BreakerStateChanged(source, domain.BreakerClosed)
	}
	return e
}

// transition must be called with e.mu held
func (r *Registry) transition(source string, e *entry, to domain.BreakerState) {
	from := e.state
	e.state = to
	e.lastStateChange = r.now()
	r.observer.BreakerStateChanged(source, to)
	lgr.Printf("[INFO] breaker source=%s %s -> %s, failures=%d", source, from, to, e.failureCount)
}

func (e *entry) view(source string) domain.CircuitState {
	return domain.CircuitState{
		Source:          source,
		State:           e.state,
		FailureCount:    e.failureCount,
		LastFailure:     e.lastFailure,
		LastStateChange: e.lastStateChange,
	}
}
