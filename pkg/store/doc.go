// Package store binds named actions to a reactive state container.
//
// A Store owns one reactive.Container. Views read state through State, and
// every mutation goes through Dispatch (a registered action) or Do (an inline
// one), which run the body against the container's changable state and flush
// exactly once afterwards, on success, error and panic alike:
//
//	counter, err := store.New("counter", map[string]any{"count": 0}, store.Actions{
//	    "inc": func(s *reactive.WriteMap, _ ...any) error {
//	        return s.Set("count", s.Get("count").(int)+1)
//	    },
//	})
//
//	sub := reactive.NewSubscriber(rerender)
//	count := counter.State(sub).Get("count")
//	counter.Dispatch(ctx, "inc") // rerender runs once
//
// A Factory lazily creates independent stores per identifier from the same
// initial state and actions.
//
// Observers see every outermost action with its duration, error and flush
// stats. Actions dispatched from inside another action join it and are not
// reported separately.
package store
