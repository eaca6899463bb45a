package reactive

import (
	"errors"
	"testing"

	storeerrors "github.com/vango-go/trackstore/internal/errors"
)

func mustNew(t *testing.T, initial any, opts ...Option) *Container {
	t.Helper()
	c, err := New(initial, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestCounterScenario(t *testing.T) {
	c := mustNew(t, map[string]any{"count": 0})
	sub := newTestSubscriber()

	if got := c.GetSubscribableState(sub).Get("count"); got != 0 {
		t.Fatalf("count = %v, want 0", got)
	}

	if err := c.Run(func(s *WriteMap) error { return s.Set("count", 1) }); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sub.getDirtyCount() != 1 {
		t.Fatalf("expected 1 notification, got %d", sub.getDirtyCount())
	}

	// Same value again is a no-op.
	if err := c.Run(func(s *WriteMap) error { return s.Set("count", 1) }); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sub.getDirtyCount() != 1 {
		t.Errorf("no-op write notified: got %d notifications, want 1", sub.getDirtyCount())
	}
}

func TestNestedPathScenario(t *testing.T) {
	c := mustNew(t, map[string]any{
		"a": map[string]any{"x": 1},
		"b": 2,
	})
	sub := newTestSubscriber()

	if got := c.GetSubscribableState(sub).Map("a").Get("x"); got != 1 {
		t.Fatalf("a.x = %v, want 1", got)
	}

	c.Run(func(s *WriteMap) error { return s.Set("b", 5) })
	if sub.getDirtyCount() != 0 {
		t.Fatalf("write to b notified a.x reader %d times", sub.getDirtyCount())
	}

	c.Run(func(s *WriteMap) error { return s.Map("a").Set("x", 2) })
	if sub.getDirtyCount() != 1 {
		t.Errorf("expected 1 notification, got %d", sub.getDirtyCount())
	}
}

func TestDeleteScenario(t *testing.T) {
	c := mustNew(t, map[string]any{"y": 1})
	sub := newTestSubscriber()
	_ = c.GetSubscribableState(sub).Get("y")

	c.Run(func(s *WriteMap) error { return s.Delete("y") })

	if sub.getDirtyCount() != 1 {
		t.Errorf("expected 1 notification, got %d", sub.getDirtyCount())
	}
	if c.GetSubscribableState(nil).Has("y") {
		t.Error("y should be gone")
	}
}

func TestDeleteAbsentKeyIsAChange(t *testing.T) {
	var stats FlushStats
	c := mustNew(t, map[string]any{}, WithFlushHook(func(s FlushStats) { stats = s }))
	sub := newTestSubscriber()
	_ = c.GetSubscribableState(sub).Get("missing")

	c.Run(func(s *WriteMap) error { return s.Delete("missing") })

	if sub.getDirtyCount() != 1 {
		t.Errorf("deleting an absent key notified %d times, want 1", sub.getDirtyCount())
	}
	if stats.Changed != 1 {
		t.Errorf("Changed = %d, want 1", stats.Changed)
	}
}

func TestBatchingManyPaths(t *testing.T) {
	c := mustNew(t, map[string]any{"a": 0, "b": 0, "c": 0, "d": map[string]any{"e": 0}})
	sub := newTestSubscriber()

	view := c.GetSubscribableState(sub)
	_ = view.Get("a")
	_ = view.Get("b")
	_ = view.Get("c")
	_ = view.Map("d").Get("e")

	c.Run(func(s *WriteMap) error {
		s.Set("a", 1)
		s.Set("b", 2)
		s.Set("c", 3)
		return s.Map("d").Set("e", 4)
	})

	if sub.getDirtyCount() != 1 {
		t.Errorf("expected 1 notification for 4 changes, got %d", sub.getDirtyCount())
	}
}

func TestUntouchedSubscriberNeverNotified(t *testing.T) {
	c := mustNew(t, map[string]any{"a": 0, "b": 0})
	reader := newTestSubscriber()
	idle := newTestSubscriber()

	_ = c.GetSubscribableState(reader).Get("a")
	_ = c.GetSubscribableState(idle)

	c.Run(func(s *WriteMap) error { return s.Set("a", 1) })

	if idle.getDirtyCount() != 0 {
		t.Errorf("subscriber without reads notified %d times", idle.getDirtyCount())
	}
	if reader.getDirtyCount() != 1 {
		t.Errorf("reader notified %d times, want 1", reader.getDirtyCount())
	}
}

func TestNestedRunFlushesAtOutermostBoundary(t *testing.T) {
	c := mustNew(t, map[string]any{"count": 0})
	sub := newTestSubscriber()
	_ = c.GetSubscribableState(sub).Get("count")

	err := c.Run(func(s *WriteMap) error {
		s.Set("count", 1)

		if err := c.Run(func(inner *WriteMap) error {
			return inner.Set("count", 2)
		}); err != nil {
			return err
		}

		if sub.getDirtyCount() != 0 {
			t.Errorf("inner action flushed early: %d notifications", sub.getDirtyCount())
		}
		if !c.InAction() {
			t.Error("InAction() = false inside outer action")
		}
		return s.Set("count", 3)
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if sub.getDirtyCount() != 1 {
		t.Errorf("expected 1 notification, got %d", sub.getDirtyCount())
	}
	if c.InAction() {
		t.Error("InAction() = true after outer action")
	}
}

func TestRunErrorStillFlushes(t *testing.T) {
	c := mustNew(t, map[string]any{"count": 0})
	sub := newTestSubscriber()
	_ = c.GetSubscribableState(sub).Get("count")

	boom := errors.New("boom")
	err := c.Run(func(s *WriteMap) error {
		s.Set("count", 1)
		return boom
	})

	if err != boom {
		t.Errorf("Run() error = %v, want the action's error unchanged", err)
	}
	if sub.getDirtyCount() != 1 {
		t.Errorf("failing action must still flush: got %d notifications", sub.getDirtyCount())
	}
	if got := c.GetSubscribableState(nil).Get("count"); got != 1 {
		t.Errorf("count = %v, want 1 (applied change is kept)", got)
	}
}

func TestRunPanicStillFlushes(t *testing.T) {
	c := mustNew(t, map[string]any{"count": 0})
	sub := newTestSubscriber()
	_ = c.GetSubscribableState(sub).Get("count")

	func() {
		defer func() {
			if r := recover(); r != "boom" {
				t.Errorf("recovered %v, want the original panic value", r)
			}
		}()
		c.Run(func(s *WriteMap) error {
			s.Set("count", 1)
			panic("boom")
		})
	}()

	if sub.getDirtyCount() != 1 {
		t.Errorf("panicking action must still flush: got %d notifications", sub.getDirtyCount())
	}
	if c.InAction() {
		t.Error("InAction() = true after panic")
	}
	if c.Tracker().Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", c.Tracker().Pending())
	}
}

func TestWriteAfterActionEnded(t *testing.T) {
	c := mustNew(t, map[string]any{"count": 0, "nested": map[string]any{"v": 1}})

	var kept *WriteMap
	c.Run(func(s *WriteMap) error {
		kept = s
		return nil
	})

	if err := kept.Set("count", 5); !errors.Is(err, ErrActionEnded) {
		t.Errorf("Set after action: error = %v, want ErrActionEnded", err)
	}
	if err := kept.Map("nested").Delete("v"); !errors.Is(err, ErrActionEnded) {
		t.Errorf("Delete after action: error = %v, want ErrActionEnded", err)
	}
	if got := c.GetSubscribableState(nil).Get("count"); got != 0 {
		t.Errorf("count = %v, want 0", got)
	}
}

func TestGetChangableStateManualFlush(t *testing.T) {
	c := mustNew(t, map[string]any{"count": 0})
	sub := newTestSubscriber()
	_ = c.GetSubscribableState(sub).Get("count")

	w := c.GetChangableState()
	if err := w.Set("count", 1); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if sub.getDirtyCount() != 0 {
		t.Error("notification before flush")
	}
	if c.Tracker().Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", c.Tracker().Pending())
	}

	stats := c.Flush()
	if sub.getDirtyCount() != 1 {
		t.Errorf("expected 1 notification after flush, got %d", sub.getDirtyCount())
	}
	if stats.Notified != 1 {
		t.Errorf("Notified = %d, want 1", stats.Notified)
	}
}

func TestGetChangableStateIsFresh(t *testing.T) {
	c := mustNew(t, map[string]any{"a": map[string]any{}})
	first := c.GetChangableState()
	second := c.GetChangableState()

	if first == second {
		t.Error("each call must return a fresh write view")
	}
	if first.Map("a") != first.Map("a") {
		t.Error("nested write views must be cached within one write phase")
	}
}

func TestCleanUpdateStopsNotifications(t *testing.T) {
	c := mustNew(t, map[string]any{"count": 0, "user": map[string]any{"name": "Ada"}})
	sub := newTestSubscriber()

	view := c.GetSubscribableState(sub)
	_ = view.Get("count")
	_ = view.Map("user").Get("name")

	c.CleanUpdate(sub)

	c.Run(func(s *WriteMap) error {
		s.Set("count", 1)
		return s.Map("user").Set("name", "Grace")
	})

	if sub.getDirtyCount() != 0 {
		t.Errorf("cleaned up subscriber notified %d times", sub.getDirtyCount())
	}
	if c.Tracker().Edges() != 0 {
		t.Errorf("Edges() = %d, want 0", c.Tracker().Edges())
	}
	if c.cachedViews(sub) != 0 {
		t.Errorf("cachedViews() = %d, want 0", c.cachedViews(sub))
	}

	c.CleanUpdate(newTestSubscriber())
	c.CleanUpdate(nil)
}

func TestMountUnmountChurnDoesNotGrow(t *testing.T) {
	c := mustNew(t, map[string]any{
		"count": 0,
		"user":  map[string]any{"name": "Ada", "tags": []any{"a", "b"}},
	})
	stable := newTestSubscriber()
	_ = c.GetSubscribableState(stable).Get("count")
	baseline := c.Tracker().Edges()

	for i := 0; i < 200; i++ {
		sub := newTestSubscriber()
		view := c.GetSubscribableState(sub)
		_ = view.Get("count")
		_ = view.Map("user").Get("name")
		_ = view.Map("user").List("tags").Len()
		c.CleanUpdate(sub)
	}

	if got := c.Tracker().Edges(); got != baseline {
		t.Errorf("Edges() = %d after churn, want %d", got, baseline)
	}
	if got := c.Tracker().Subscribers(); got != 1 {
		t.Errorf("Subscribers() = %d after churn, want 1", got)
	}
	if got := len(c.readCache); got != 1 {
		t.Errorf("read cache holds %d subscribers, want 1", got)
	}
}

func TestSubscriberStartsActionFromMarkDirty(t *testing.T) {
	c := mustNew(t, map[string]any{"count": 0, "doubled": 0})
	doubler := newTestSubscriber()
	reader := newTestSubscriber()

	doubler.onDirty = func() {
		n := c.GetSubscribableState(doubler).Get("count").(int)
		c.Run(func(s *WriteMap) error { return s.Set("doubled", n*2) })
	}
	_ = c.GetSubscribableState(doubler).Get("count")
	_ = c.GetSubscribableState(reader).Get("doubled")

	c.Run(func(s *WriteMap) error { return s.Set("count", 4) })

	if reader.getDirtyCount() != 1 {
		t.Errorf("reader notified %d times, want 1", reader.getDirtyCount())
	}
	if got := c.GetSubscribableState(nil).Get("doubled"); got != 8 {
		t.Errorf("doubled = %v, want 8", got)
	}
}

func TestNewRejectsInvalidShape(t *testing.T) {
	tests := []struct {
		name    string
		initial any
	}{
		{"nil", nil},
		{"int", 5},
		{"string", "state"},
		{"list root", []any{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.initial)
			if !errors.Is(err, ErrInvalidStateShape) {
				t.Fatalf("New(%v) error = %v, want ErrInvalidStateShape", tt.initial, err)
			}
			if storeerrors.Code(err) != "T002" {
				t.Errorf("code = %q, want T002", storeerrors.Code(err))
			}
		})
	}
}

func TestNewRejectsUnsupportedValue(t *testing.T) {
	_, err := New(map[string]any{"ch": make(chan int)})
	if !errors.Is(err, ErrUnsupportedValue) {
		t.Errorf("error = %v, want ErrUnsupportedValue", err)
	}
}

func TestNewCopiesInitialState(t *testing.T) {
	initial := map[string]any{"user": map[string]any{"name": "Ada"}}
	c := mustNew(t, initial)

	c.Run(func(s *WriteMap) error { return s.Map("user").Set("name", "Grace") })

	if initial["user"].(map[string]any)["name"] != "Ada" {
		t.Error("container must not mutate the caller's initial value")
	}
}

func TestRootIdentityIsStable(t *testing.T) {
	c := mustNew(t, map[string]any{"count": 0})
	before := c.GetSubscribableState(nil).Node()

	c.Run(func(s *WriteMap) error {
		s.Set("count", 1)
		return s.Set("extra", map[string]any{"k": "v"})
	})

	if c.GetSubscribableState(nil).Node() != before {
		t.Error("root node identity changed")
	}
}

func TestSnapshotAndDecode(t *testing.T) {
	c := mustNew(t, map[string]any{
		"count": 3,
		"user":  map[string]any{"name": "Ada"},
		"tags":  []any{"x", "y"},
	})

	snap, err := c.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap["count"] != 3 {
		t.Errorf("count = %v, want 3", snap["count"])
	}
	if snap["user"].(map[string]any)["name"] != "Ada" {
		t.Errorf("user = %v", snap["user"])
	}
	if len(snap["tags"].([]any)) != 2 {
		t.Errorf("tags = %v", snap["tags"])
	}

	var out struct {
		Count int `json:"count"`
		User  struct {
			Name string `json:"name"`
		} `json:"user"`
		Tags []string `json:"tags"`
	}
	if err := c.Decode(&out); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if out.Count != 3 || out.User.Name != "Ada" || len(out.Tags) != 2 {
		t.Errorf("Decode() = %+v", out)
	}
}

func TestSnapshotDetectsCycle(t *testing.T) {
	c := mustNew(t, map[string]any{"a": map[string]any{}})

	c.Run(func(s *WriteMap) error {
		return s.Map("a").Set("self", s.Get("a"))
	})

	if _, err := c.Snapshot(); !errors.Is(err, ErrCyclicState) {
		t.Errorf("Snapshot() error = %v, want ErrCyclicState", err)
	}
}

func TestFlushHook(t *testing.T) {
	var got []FlushStats
	c := mustNew(t, map[string]any{"a": 0}, WithFlushHook(func(s FlushStats) {
		got = append(got, s)
	}))
	sub := newTestSubscriber()
	_ = c.GetSubscribableState(sub).Get("a")

	c.Run(func(s *WriteMap) error { return s.Set("a", 1) })
	c.Run(func(s *WriteMap) error { return nil })

	if len(got) != 2 {
		t.Fatalf("hook called %d times, want 2", len(got))
	}
	if got[0] != (FlushStats{Changed: 1, Notified: 1}) {
		t.Errorf("first flush = %+v", got[0])
	}
	if got[1] != (FlushStats{}) {
		t.Errorf("second flush = %+v, want zero", got[1])
	}
}
