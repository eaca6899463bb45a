// Package trackstore provides the public API for trackstore, a state
// container with fine-grained read tracking.
//
// This is the recommended import for most applications:
//
//	import "github.com/vango-go/trackstore"
//
// Usage:
//
//	todos, err := trackstore.CreateStore(map[string]any{"items": []any{}}, trackstore.Actions{
//	    "add": func(s *trackstore.WriteMap, args ...any) error {
//	        return s.List("items").Append(args[0])
//	    },
//	})
//
//	st, _ := todos.Get("")
//	sub := trackstore.NewSubscriber(rerender)
//	n := st.State(sub).List("items").Len() // sub now depends on the length
//	st.Dispatch(ctx, "add", "milk")          // rerender runs once
package trackstore

import (
	"github.com/vango-go/trackstore/pkg/reactive"
	"github.com/vango-go/trackstore/pkg/store"
)

// =============================================================================
// State tree
// =============================================================================

// Map is a state node with string keys.
type Map = reactive.Map

// List is an ordered state node.
type List = reactive.List

// Symbol is a leaf value compared by identity.
type Symbol = reactive.Symbol

// Path names one slot of one node.
type Path = reactive.Path

// NewSymbol creates a unique Symbol.
func NewSymbol(desc string) *Symbol {
	return reactive.NewSymbol(desc)
}

// FromValue builds a fresh state tree from plain values.
func FromValue(v any) (any, error) {
	return reactive.FromValue(v)
}

// ToValue converts a node or view into plain values.
func ToValue(v any) (any, error) {
	return reactive.ToValue(v)
}

// =============================================================================
// Subscribers and views
// =============================================================================

// Subscriber is notified when a path it read changes.
type Subscriber = reactive.Subscriber

// ReadMap is the subscribable, read-only view of a Map.
type ReadMap = reactive.ReadMap

// ReadList is the subscribable, read-only view of a List.
type ReadList = reactive.ReadList

// WriteMap is the changable view of a Map handed to actions.
type WriteMap = reactive.WriteMap

// WriteList is the changable view of a List handed to actions.
type WriteList = reactive.WriteList

// NewSubscriber returns a Subscriber that calls fn when marked dirty.
func NewSubscriber(fn func()) Subscriber {
	return reactive.NewSubscriber(fn)
}

// =============================================================================
// Containers
// =============================================================================

// Container owns one state tree and its dependency tracker.
type Container = reactive.Container

// FlushStats describes one flush.
type FlushStats = reactive.FlushStats

// NewContainer creates a Container over a copy of initial, which must be a map.
func NewContainer(initial any, opts ...reactive.Option) (*Container, error) {
	return reactive.New(initial, opts...)
}

// =============================================================================
// Stores
// =============================================================================

// Store binds named actions to a Container.
type Store = store.Store

// Factory creates independent stores per identifier.
type Factory = store.Factory

// Action mutates state inside one action boundary.
type Action = store.Action

// Actions maps action names to their bodies.
type Actions = store.Actions

// Observer is notified around every outermost action.
type Observer = store.Observer

// ActionEvent describes one finished action.
type ActionEvent = store.ActionEvent

// NewStore creates a single store named id.
func NewStore(id string, initial any, actions Actions, opts ...store.Option) (*Store, error) {
	return store.New(id, initial, actions, opts...)
}

// CreateStore returns a Factory that lazily creates one store per identifier,
// each starting from its own copy of initial.
func CreateStore(initial any, actions Actions, opts ...store.Option) (*Factory, error) {
	return store.Create(initial, actions, opts...)
}

// =============================================================================
// Errors
// =============================================================================

var (
	ErrImmutable         = reactive.ErrImmutable
	ErrInvalidStateShape = reactive.ErrInvalidStateShape
	ErrUnsupportedValue  = reactive.ErrUnsupportedValue
	ErrIndexOutOfRange   = reactive.ErrIndexOutOfRange
	ErrActionEnded       = reactive.ErrActionEnded
	ErrCyclicState       = reactive.ErrCyclicState
	ErrUnknownAction     = store.ErrUnknownAction
)
