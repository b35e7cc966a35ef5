package ai

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Registry routes a model name to its Provider.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	fallback  Provider
}

// NewRegistry returns a registry with TemplateProvider registered under
// MockModel and used as the fallback for unknown models.
func NewRegistry() *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		fallback:  TemplateProvider{},
	}
	r.Register(MockModel, r.fallback)
	return r
}

func (r *Registry) Register(model string, p Provider) {
	model = strings.ToLower(strings.TrimSpace(model))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[model] = p
}

func (r *Registry) Get(model string) (Provider, error) {
	model = strings.ToLower(strings.TrimSpace(model))
	r.mu.RLock()
	p, ok := r.providers[model]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", model)
	}
	return p, nil
}

// Resolve is Get without the error: unknown models get the fallback.
func (r *Registry) Resolve(model string) Provider {
	if p, err := r.Get(model); err == nil {
		return p
	}
	return r.fallback
}

// Models lists registered model names in order.
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
