package session

import (
	"context"
	"sync"
	"time"

	"github.com/evyataryagoni/iptracker/internal/controller"
	"github.com/evyataryagoni/iptracker/internal/metrics"
	"github.com/google/uuid"
)

// Factory builds the controller for a new session
type Factory func() *controller.ViewController

type entry struct {
	controller *controller.ViewController
	lastSeen   time.Time
}

// Registry keeps one view controller per browser session.
// Idle sessions are dropped by Sweep.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	factory Factory
	ttl     time.Duration
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewRegistry creates an empty registry. m may be nil.
func NewRegistry(factory Factory, ttl time.Duration, m *metrics.Metrics) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		factory: factory,
		ttl:     ttl,
		metrics: m,
		now:     time.Now,
	}
}

// NewID returns a fresh session id
func NewID() string {
	return uuid.New().String()
}

// ValidID reports whether id looks like one we issued
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Get returns the controller for an existing session
func (r *Registry) Get(id string) (*controller.ViewController, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.controller, true
}

// GetOrCreate returns the session's controller, creating it on first use.
// The boolean is true when a new session was created.
func (r *Registry) GetOrCreate(id string) (*controller.ViewController, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[id]; ok {
		e.lastSeen = r.now()
		return e.controller, false
	}

	e := &entry{controller: r.factory(), lastSeen: r.now()}
	r.entries[id] = e
	r.updateGauge()

	return e.controller, true
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep removes sessions idle for longer than the TTL and returns how many went
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	threshold := r.now().Add(-r.ttl)
	removed := 0
	for id, e := range r.entries {
		if e.lastSeen.Before(threshold) {
			delete(r.entries, id)
			removed++
		}
	}
	r.updateGauge()

	return removed
}

// Run sweeps on every interval until ctx is done
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// must be called with mu held
func (r *Registry) updateGauge() {
	if r.metrics != nil {
		r.metrics.ActiveSessions.Set(float64(len(r.entries)))
	}
}

type ctxKey struct{}

type ctxValue struct {
	id         string
	controller *controller.ViewController
}

// WithController stores the session's controller in the context
func WithController(ctx context.Context, id string, c *controller.ViewController) context.Context {
	return context.WithValue(ctx, ctxKey{}, ctxValue{id: id, controller: c})
}

// FromContext returns the controller stored by WithController
func FromContext(ctx context.Context) (*controller.ViewController, bool) {
	v, ok := ctx.Value(ctxKey{}).(ctxValue)
	if !ok || v.controller == nil {
		return nil, false
	}
	return v.controller, true
}

// IDFromContext returns the session id stored by WithController
func IDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKey{}).(ctxValue)
	return v.id
}
