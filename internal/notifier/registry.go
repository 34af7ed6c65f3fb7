package notifier

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry manages notifier instances
type Registry struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
}

// NewRegistry creates a new notifier registry
func NewRegistry() *Registry {
	return &Registry{
		notifiers: make(map[string]Notifier),
	}
}

// Register adds a notifier to the registry
func (r *Registry) Register(n Notifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := n.Name()
	if _, exists := r.notifiers[name]; exists {
		return fmt.Errorf("notifier %s already registered", name)
	}

	r.notifiers[name] = n
	return nil
}

// Get retrieves a notifier by name
func (r *Registry) Get(name string) (Notifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, exists := r.notifiers[name]
	if !exists {
		return nil, fmt.Errorf("notifier %s not found", name)
	}
	return n, nil
}

// GetAll returns all registered notifiers sorted by name
func (r *Registry) GetAll() []Notifier {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Notifier, 0, len(r.notifiers))
	for _, n := range r.notifiers {
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Len returns the number of registered notifiers
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.notifiers)
}

// NotifyAll sends an event to all registered notifiers
func (r *Registry) NotifyAll(ctx context.Context, event Event) map[string]error {
	errs := make(map[string]error)
	for _, n := range r.GetAll() {
		if err := n.Send(ctx, event); err != nil {
			errs[n.Name()] = err
		}
	}
	return errs
}

// NotifyAllBatch sends multiple events to all registered notifiers
func (r *Registry) NotifyAllBatch(ctx context.Context, events []Event) map[string]error {
	errs := make(map[string]error)
	if len(events) == 0 {
		return errs
	}
	for _, n := range r.GetAll() {
		if err := n.SendBatch(ctx, events); err != nil {
			errs[n.Name()] = err
		}
	}
	return errs
}
