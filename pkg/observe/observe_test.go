package observe

import (
	"context"
	"errors"
	"testing"

	"github.com/vango-go/trackstore/pkg/reactive"
	"github.com/vango-go/trackstore/pkg/store"
)

func testActions() store.Actions {
	return store.Actions{
		"inc": func(s *reactive.WriteMap, _ ...any) error {
			return s.Set("count", s.Get("count").(int)+1)
		},
		"fail": func(*reactive.WriteMap, ...any) error {
			return errors.New("boom")
		},
		"explode": func(*reactive.WriteMap, ...any) error {
			panic("kaboom")
		},
	}
}

func newTestStore(t *testing.T, obs store.Observer) *store.Store {
	t.Helper()
	s, err := store.New("counter", map[string]any{"count": 0}, testActions(), store.WithObserver(obs))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	return s
}

// runAll dispatches inc, fail and explode once each.
func runAll(t *testing.T, s *store.Store) {
	t.Helper()
	ctx := context.Background()

	sub := reactive.NewSubscriber(func() {})
	s.State(sub).Get("count")

	if err := s.Dispatch(ctx, "inc"); err != nil {
		t.Fatalf("inc: %v", err)
	}
	if err := s.Dispatch(ctx, "fail"); err == nil {
		t.Fatal("fail: expected error")
	}
	func() {
		defer func() { recover() }()
		s.Dispatch(ctx, "explode")
	}()
}
