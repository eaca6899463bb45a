package store

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	storeerrors "github.com/vango-go/trackstore/internal/errors"
	"github.com/vango-go/trackstore/pkg/reactive"
)

// ErrUnknownAction is returned by Dispatch for names not in the store's Actions.
var ErrUnknownAction = errors.New("store: unknown action")

// Action mutates state. It runs synchronously inside one action boundary.
type Action func(state *reactive.WriteMap, args ...any) error

// Actions maps action names to their bodies.
type Actions map[string]Action

// ActionEvent describes one finished outermost action.
type ActionEvent struct {
	Store    *Store
	StoreID  string
	Action   string
	Duration time.Duration

	// Err is the error returned by the action body, if any.
	Err error

	// Panicked is set when the body panicked; the panic keeps propagating
	// after observers ran.
	Panicked bool

	// Flush describes the flush that ended the action.
	Flush reactive.FlushStats
}

// Observer is notified around every outermost action of a store.
type Observer interface {
	// BeforeAction runs before the action body and may return a derived context
	// that is passed back to AfterAction.
	BeforeAction(ctx context.Context, storeID, action string) context.Context

	// AfterAction runs after the action's flush.
	AfterAction(ctx context.Context, ev ActionEvent)
}

// Option configures a Store.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	observers []Observer
}

// WithLogger sets the store's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver adds an action observer.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// Store is one state container plus the actions allowed to change it.
type Store struct {
	id        string
	c         *reactive.Container
	actions   Actions
	observers []Observer
	logger    *slog.Logger

	// flushTarget receives the stats of the next flush. Each outermost action
	// points it at its own variable and restores the previous one afterwards,
	// since a subscriber may start another action during the flush.
	flushTarget *reactive.FlushStats
}

// New creates a store named id over a copy of initial.
func New(id string, initial any, actions Actions, opts ...Option) (*Store, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store{
		id:        id,
		actions:   actions,
		observers: o.observers,
		logger:    o.logger.With("component", "store", "store", id),
	}

	c, err := reactive.New(initial,
		reactive.WithLogger(s.logger),
		reactive.WithFlushHook(func(stats reactive.FlushStats) {
			if s.flushTarget != nil {
				*s.flushTarget = stats
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	s.c = c
	return s, nil
}

// ID returns the store's identifier.
func (s *Store) ID() string {
	return s.id
}

// Container returns the underlying reactive container.
func (s *Store) Container() *reactive.Container {
	return s.c
}

// State returns the subscribable view of the state for sub. Call it once per
// render with a stable subscriber; a nil subscriber gives an untracked view.
// Call Unsubscribe before re-rendering so dependencies on replaced subtrees
// are dropped:
//
//	st.Unsubscribe(sub)
//	render(st.State(sub))
func (s *Store) State(sub reactive.Subscriber) *reactive.ReadMap {
	return s.c.GetSubscribableState(sub)
}

// Unsubscribe drops every dependency of sub. Call it on unmount.
func (s *Store) Unsubscribe(sub reactive.Subscriber) {
	s.c.CleanUpdate(sub)
}

// Snapshot returns a plain copy of the state.
func (s *Store) Snapshot() (map[string]any, error) {
	return s.c.Snapshot()
}

// Actions returns the registered action names in ascending order.
func (s *Store) Actions() []string {
	names := make([]string, 0, len(s.actions))
	for name := range s.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddObserver adds an action observer.
func (s *Store) AddObserver(obs Observer) {
	if obs != nil {
		s.observers = append(s.observers, obs)
	}
}

// Dispatch runs the registered action name with args.
func (s *Store) Dispatch(ctx context.Context, name string, args ...any) error {
	action, ok := s.actions[name]
	if !ok {
		return storeerrors.New("T010").
			WithDetailf("%q is not registered on store %q", name, s.id).
			Wrap(ErrUnknownAction)
	}
	return s.Do(ctx, name, func(state *reactive.WriteMap) error {
		return action(state, args...)
	})
}

// Do runs fn as an action labelled name. The flush happens when fn returns,
// fails or panics; errors and panics reach the caller unchanged.
func (s *Store) Do(ctx context.Context, name string, fn func(state *reactive.WriteMap) error) (err error) {
	if s.c.InAction() {
		return s.c.Run(fn)
	}

	for _, obs := range s.observers {
		ctx = obs.BeforeAction(ctx, s.id, name)
	}

	var stats reactive.FlushStats
	prev := s.flushTarget
	s.flushTarget = &stats

	start := time.Now()
	panicked := true
	defer func() {
		s.flushTarget = prev
		ev := ActionEvent{
			Store:    s,
			StoreID:  s.id,
			Action:   name,
			Duration: time.Since(start),
			Err:      err,
			Panicked: panicked,
			Flush:    stats,
		}
		s.logAction(ev)
		for _, obs := range s.observers {
			obs.AfterAction(ctx, ev)
		}
	}()

	err = s.c.Run(fn)
	panicked = false
	return err
}

func (s *Store) logAction(ev ActionEvent) {
	attrs := []any{
		"action", ev.Action,
		"changed", ev.Flush.Changed,
		"notified", ev.Flush.Notified,
		"duration", ev.Duration,
	}
	switch {
	case ev.Panicked:
		s.logger.Error("action panicked", attrs...)
	case ev.Err != nil:
		s.logger.Warn("action failed", append(attrs, "error", ev.Err)...)
	default:
		s.logger.Debug("action", attrs...)
	}
}
