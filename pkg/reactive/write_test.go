package reactive

import (
	"errors"
	"math"
	"math/big"
	"testing"
)

func TestWriteNoOpIsNotCollected(t *testing.T) {
	sym := NewSymbol("s")
	c := mustNew(t, map[string]any{
		"n":   1,
		"s":   "x",
		"b":   true,
		"nil": nil,
		"big": big.NewInt(7),
		"sym": sym,
	})

	w := c.GetChangableState()
	w.Set("n", 1)
	w.Set("s", "x")
	w.Set("b", true)
	w.Set("nil", nil)
	w.Set("big", big.NewInt(7))
	w.Set("sym", sym)

	if got := c.Tracker().Pending(); got != 0 {
		t.Errorf("Pending() = %d after no-op writes, want 0", got)
	}
}

func TestWriteChangeIsCollected(t *testing.T) {
	c := mustNew(t, map[string]any{"n": 1, "obj": map[string]any{}})

	w := c.GetChangableState()
	w.Set("n", 2)
	w.Set("added", "new")
	// A fresh map is a new node, never equal to the old one.
	w.Set("obj", map[string]any{})

	if got := c.Tracker().Pending(); got != 3 {
		t.Errorf("Pending() = %d, want 3", got)
	}
}

func TestWriteNestedValuesBecomeWriteViews(t *testing.T) {
	c := mustNew(t, map[string]any{})

	c.Run(func(s *WriteMap) error {
		if err := s.Set("user", map[string]any{"tags": []string{"a"}}); err != nil {
			return err
		}
		user := s.Map("user")
		if user == nil {
			t.Fatal("user should be a *WriteMap")
		}
		if user.List("tags") == nil {
			t.Fatal("tags should be a *WriteList")
		}
		return user.List("tags").Append("b")
	})

	snap, _ := c.Snapshot()
	tags := snap["user"].(map[string]any)["tags"].([]any)
	if len(tags) != 2 || tags[0] != "a" || tags[1] != "b" {
		t.Errorf("tags = %v, want [a b]", tags)
	}
}

func TestWriteMovesSubtreeByReference(t *testing.T) {
	c := mustNew(t, map[string]any{"a": map[string]any{"x": 1}})

	c.Run(func(s *WriteMap) error {
		return s.Set("b", s.Get("a"))
	})

	view := c.GetSubscribableState(nil)
	if view.Map("a").Node() != view.Map("b").Node() {
		t.Error("assigning a view must store its node, not a copy")
	}
}

func TestWriteRejectsUnsupportedValue(t *testing.T) {
	c := mustNew(t, map[string]any{})

	err := c.Run(func(s *WriteMap) error {
		return s.Set("fn", func() {})
	})
	if !errors.Is(err, ErrUnsupportedValue) {
		t.Errorf("error = %v, want ErrUnsupportedValue", err)
	}
	if c.GetSubscribableState(nil).Has("fn") {
		t.Error("rejected value must not be stored")
	}
}

func TestWriteListBounds(t *testing.T) {
	c := mustNew(t, map[string]any{"items": []any{1}})
	items := c.GetChangableState().List("items")

	if err := items.SetAt(1, 2); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("SetAt(1) error = %v, want ErrIndexOutOfRange", err)
	}
	if err := items.RemoveAt(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("RemoveAt(-1) error = %v, want ErrIndexOutOfRange", err)
	}
	if err := items.Append(); err != nil {
		t.Errorf("Append() error = %v", err)
	}
	if c.Tracker().Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", c.Tracker().Pending())
	}
}

func TestWriteListOperations(t *testing.T) {
	c := mustNew(t, map[string]any{"items": []any{"a", "b", "c"}})
	items := c.GetChangableState().List("items")

	if err := items.SetAt(0, "a"); err != nil {
		t.Fatal(err)
	}
	if c.Tracker().Pending() != 0 {
		t.Error("SetAt with the same value must not collect")
	}

	if err := items.RemoveAt(1); err != nil {
		t.Fatal(err)
	}
	// Slots 1 and 2 shifted, plus the length.
	if got := c.Tracker().Pending(); got != 3 {
		t.Errorf("Pending() = %d, want 3", got)
	}
	if items.Len() != 2 || items.At(1) != "c" {
		t.Errorf("items = %v, want [a c]", items.Values())
	}
	if items.At(5) != nil {
		t.Error("At out of range must return nil")
	}
}

func TestWriteListElementsAreRaw(t *testing.T) {
	c := mustNew(t, map[string]any{"items": []any{map[string]any{"k": 1}}})
	items := c.GetChangableState().List("items")

	if _, ok := items.At(0).(*Map); !ok {
		t.Errorf("At(0) = %T, want raw *Map", items.At(0))
	}
}

func TestSame(t *testing.T) {
	sym := NewSymbol("x")
	m := newMap(0)

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"equal ints", 1, 1, true},
		{"different ints", 1, 2, false},
		{"int vs int64", 1, int64(1), false},
		{"strings", "a", "a", true},
		{"nil nil", nil, nil, true},
		{"nil vs zero", nil, 0, false},
		{"NaN", math.NaN(), math.NaN(), false},
		{"big by value", big.NewInt(5), big.NewInt(5), true},
		{"big differ", big.NewInt(5), big.NewInt(6), false},
		{"big vs int", big.NewInt(5), 5, false},
		{"same symbol", sym, sym, true},
		{"symbols with same desc", NewSymbol("x"), NewSymbol("x"), false},
		{"same node", m, m, true},
		{"distinct nodes", newMap(0), newMap(0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := same(tt.a, tt.b); got != tt.want {
				t.Errorf("same(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
