package resilience

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ProviderHealth is a point-in-time view of one outbound client.
type ProviderHealth struct {
	Name     string
	Kind     Kind
	Critical bool

	CircuitState gobreaker.State
	Counts       gobreaker.Counts

	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string
}

func (h *ProviderHealth) IsHealthy() bool   { return h.CircuitState == gobreaker.StateClosed }
func (h *ProviderHealth) IsDegraded() bool  { return h.CircuitState == gobreaker.StateHalfOpen }
func (h *ProviderHealth) IsUnhealthy() bool { return h.CircuitState == gobreaker.StateOpen }

// Registry is the set of outbound clients reported on /ops/status, with the
// outcome of each one's latest calls. Clients join it through
// ClientConfig.Registry.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*tracked
	now     func() time.Time
}

type tracked struct {
	client    *Client
	succeeded time.Time
	failed    time.Time
	lastErr   string
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*tracked), now: time.Now}
}

// Register adds client under name, replacing any earlier client of that name.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	r.clients[name] = &tracked{client: client}
	r.mu.Unlock()
}

// RecordSuccess notes a successful call. Unknown names are ignored.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.clients[name]; ok {
		t.succeeded = r.now()
	}
}

// RecordFailure notes a failed call. Unknown names are ignored.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.clients[name]; ok {
		t.failed = r.now()
		if err != nil {
			t.lastErr = err.Error()
		}
	}
}

// GetHealth returns one client's health, or nil for an unknown name.
func (r *Registry) GetHealth(name string) *ProviderHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.clients[name]; ok {
		return t.snapshot(name)
	}
	return nil
}

// GetAllHealth returns every client's health ordered by name.
func (r *Registry) GetAllHealth() []*ProviderHealth {
	r.mu.RLock()
	out := make([]*ProviderHealth, 0, len(r.clients))
	for name, t := range r.clients {
		out = append(out, t.snapshot(name))
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *ProviderHealth) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// CriticalDown names the critical clients whose breaker is open. Any entry
// means SOS notifications are failing fast.
func (r *Registry) CriticalDown() []string {
	var down []string
	for _, h := range r.GetAllHealth() {
		if h.Critical && h.IsUnhealthy() {
			down = append(down, h.Name)
		}
	}
	return down
}

func (t *tracked) snapshot(name string) *ProviderHealth {
	return &ProviderHealth{
		Name:          name,
		Kind:          t.client.config.Kind,
		Critical:      t.client.config.Critical,
		CircuitState:  t.client.CircuitBreakerState(),
		Counts:        t.client.CircuitBreakerCounts(),
		LastSuccessAt: optionalTime(t.succeeded),
		LastFailureAt: optionalTime(t.failed),
		LastError:     t.lastErr,
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
