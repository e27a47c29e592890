package adapter

import (
	"sync"

	"github.com/Alia5/CONDUIT/source"
)

// Registration builds adapters for one device family.
type Registration interface {
	// NewAdapter returns a fresh, unconfigured adapter for one source.
	NewAdapter(o *CreateOptions) (Adapter, error)
}

var (
	registry   = make(map[source.Family]Registration)
	registryMu sync.RWMutex
)

// Register registers a device family for dynamic adapter creation. It is
// meant to be called from variant package init() functions. Family tags are
// case-insensitive and stored lowercased.
func Register(family source.Family, reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[family.Norm()] = reg
}

// Lookup retrieves the registration for a family, nil if none is
// registered. Lookup is case-insensitive.
func Lookup(family source.Family) Registration {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[family.Norm()]
}

// Families returns the registered family tags, in no particular order.
func Families() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for f := range registry {
		out = append(out, string(f))
	}
	return out
}
