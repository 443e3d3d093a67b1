package router

import (
	"fmt"
	"sync"
)

// Registry holds the provider adapters keyed by provider id. Adapters are
// replaced wholesale on config reload; the chat path only reads.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Sender
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Sender)}
}

// Register adds or replaces the adapter for its provider id.
func (r *Registry) Register(s Sender) {
	r.mu.Lock()
	r.adapters[s.ID()] = s
	r.mu.Unlock()
}

// Replace swaps the full adapter set atomically.
func (r *Registry) Replace(adapters []Sender) {
	m := make(map[string]Sender, len(adapters))
	for _, a := range adapters {
		m[a.ID()] = a
	}
	r.mu.Lock()
	r.adapters = m
	r.mu.Unlock()
}

// Resolve splits a model id and returns the adapter for its provider along
// with the bare model name. Unknown providers fail before any upstream call.
func (r *Registry) Resolve(modelID string) (Sender, string, error) {
	provider, model := SplitModelID(modelID)
	r.mu.RLock()
	a, ok := r.adapters[provider]
	r.mu.RUnlock()
	if !ok {
		return nil, "", fmt.Errorf("model %q: unknown provider %q", modelID, provider)
	}
	return a, model, nil
}

// IDs returns the registered provider ids.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	return ids
}
