package sessions

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"portal-booking/internal/wizard"
)

var ErrNotFound = errors.New("wizard session not found")

type entry struct {
	wizard   *wizard.Wizard
	lastSeen time.Time
}

// Registry keeps wizards in memory, keyed by a random id.
type Registry struct {
	mu      sync.Mutex
	items   map[string]*entry
	ttl     time.Duration
	factory func() *wizard.Wizard
	now     func() time.Time
	log     *slog.Logger
}

func NewRegistry(ttl time.Duration, factory func() *wizard.Wizard, log *slog.Logger) *Registry {
	return &Registry{
		items:   make(map[string]*entry),
		ttl:     ttl,
		factory: factory,
		now:     time.Now,
		log:     log,
	}
}

func (r *Registry) Create() (string, *wizard.Wizard) {
	id := uuid.NewString()
	w := r.factory()

	r.mu.Lock()
	r.items[id] = &entry{wizard: w, lastSeen: r.now()}
	r.mu.Unlock()
	return id, w
}

func (r *Registry) Get(id string) (*wizard.Wizard, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.lastSeen = r.now()
	return e.wizard, nil
}

func (r *Registry) Delete(id string) {
	r.mu.Lock()
	delete(r.items, id)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Sweep evicts wizards idle longer than the TTL. Wizards with a running
// submission are kept.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, e := range r.items {
		if e.lastSeen.After(cutoff) || e.wizard.Busy() {
			continue
		}
		delete(r.items, id)
		evicted++
	}
	return evicted
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.log.Info("wizard sessions sweep: evicted idle", slog.Int("count", n), slog.Int("remaining", r.Len()))
			}
		}
	}
}
