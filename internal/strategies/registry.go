package strategies

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Policy)
)

// Register makes a policy selectable by its id. Policies call this
// from init(); a duplicate id is a programming error and panics.
func Register(p Policy) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[p.ID()]; exists {
		panic(errors.Errorf("strategy %q already registered", p.ID()))
	}
	registry[p.ID()] = p
}

// Get resolves a policy by id.
func Get(id string) (Policy, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	p, ok := registry[id]
	if !ok {
		names := make([]string, 0, len(registry))
		for name := range registry {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, errors.Errorf("unknown strategy %q (registered: %s)", id, strings.Join(names, ", "))
	}
	return p, nil
}

// List returns the registered ids, sorted for stable output.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
