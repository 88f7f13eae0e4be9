package collector

import (
	"context"
	"fmt"

	"github.com/sylvlondon/hotelmonitoring/pkg/model"
)

// Adapter collects availability for one booking engine.
type Adapter interface {
	Provider() model.Provider
	Collect(ctx context.Context, s Session, hotel model.HotelConfig, targetDate string) (model.CollectResult, error)
}

// Registry maps provider tags to adapters.
type Registry struct {
	adapters map[model.Provider]Adapter
}

// NewRegistry indexes adapters by provider, rejecting duplicates.
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{adapters: make(map[model.Provider]Adapter, len(adapters))}
	for _, a := range adapters {
		if a == nil {
			return nil, fmt.Errorf("nil adapter")
		}
		p := a.Provider()
		if p == "" {
			return nil, fmt.Errorf("adapter %T has empty provider", a)
		}
		if _, exists := r.adapters[p]; exists {
			return nil, fmt.Errorf("duplicate adapter for provider %s", p)
		}
		r.adapters[p] = a
	}
	return r, nil
}

// Get returns the adapter registered for p.
func (r *Registry) Get(p model.Provider) (Adapter, bool) {
	if r == nil {
		return nil, false
	}
	a, ok := r.adapters[p]
	return a, ok
}
