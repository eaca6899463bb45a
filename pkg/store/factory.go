package store

import (
	"sort"
	"sync"

	"github.com/vango-go/trackstore/pkg/reactive"
)

// DefaultID is the identifier used for the empty id.
const DefaultID = "default"

// Factory lazily creates one independent Store per identifier, all starting
// from the same initial state and sharing the same actions.
type Factory struct {
	seed    *reactive.Map
	actions Actions
	opts    []Option

	mu     sync.Mutex
	stores map[string]*Store
}

// Create validates initial and returns a factory for stores built from it.
// Initial state that is not a map is rejected here rather than on first use.
func Create(initial any, actions Actions, opts ...Option) (*Factory, error) {
	probe, err := reactive.New(initial)
	if err != nil {
		return nil, err
	}

	return &Factory{
		seed:    probe.GetSubscribableState(nil).Node(),
		actions: actions,
		opts:    opts,
		stores:  make(map[string]*Store),
	}, nil
}

// Get returns the store for id, creating it on first use. The empty id
// selects DefaultID.
func (f *Factory) Get(id string) (*Store, error) {
	if id == "" {
		id = DefaultID
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if s, ok := f.stores[id]; ok {
		return s, nil
	}

	s, err := New(id, f.seed, f.actions, f.opts...)
	if err != nil {
		return nil, err
	}
	f.stores[id] = s
	return s, nil
}

// Default returns the store for DefaultID.
func (f *Factory) Default() (*Store, error) {
	return f.Get(DefaultID)
}

// IDs returns the identifiers of the stores created so far, in ascending order.
func (f *Factory) IDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]string, 0, len(f.stores))
	for id := range f.stores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
