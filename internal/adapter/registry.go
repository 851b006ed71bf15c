package adapter

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
)

// Registry is the ordered set of adapters the engine fans out over.
// It is constructed once at startup and read-only afterwards, so
// concurrent readers need no locking. The order — priority ascending,
// ties kept in registration order — is the fallback chain for
// ownership routing.
type Registry struct {
	adapters []Adapter
}

// NewRegistry builds a registry from the given adapters. Adapter IDs
// must be unique.
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	ids := lo.Map(adapters, func(a Adapter, _ int) string { return a.ID() })
	if dup := lo.FindDuplicates(ids); len(dup) > 0 {
		return nil, fmt.Errorf("duplicate adapter id %q", dup[0])
	}

	ordered := make([]Adapter, len(adapters))
	copy(ordered, adapters)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})

	return &Registry{adapters: ordered}, nil
}

// Adapters returns the adapters in routing order. Callers must not
// mutate the returned slice.
func (r *Registry) Adapters() []Adapter {
	return r.adapters
}

// Len reports the number of registered adapters.
func (r *Registry) Len() int {
	return len(r.adapters)
}

// Get returns the adapter with the given id.
func (r *Registry) Get(id string) (Adapter, bool) {
	return lo.Find(r.adapters, func(a Adapter) bool { return a.ID() == id })
}
