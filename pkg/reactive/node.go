package reactive

import (
	"math/big"
	"reflect"
	"sort"
	"strconv"
)

// lengthKey is the key under which a list's length is tracked.
const lengthKey = "length"

// Node is one State Node of the tree: a *Map or a *List.
// Nodes are identified by pointer; two equal-looking nodes are distinct paths.
type Node interface {
	// Len returns the number of keys of a Map or elements of a List.
	Len() int

	isNode()
}

// Map is a State Node with string keys.
//
// Its exported methods only read. Mutation happens through a WriteMap handed
// to an action, which is what makes every change observable.
type Map struct {
	fields map[string]any
	owner  *Container
}

func newMap(size int) *Map {
	return &Map{fields: make(map[string]any, size)}
}

func (m *Map) isNode() {}

// Len returns the number of keys.
func (m *Map) Len() int {
	return len(m.fields)
}

// Get returns the value stored under key, or nil.
func (m *Map) Get(key string) any {
	return detach(m.fields[key])
}

// Lookup returns the value stored under key and whether the key exists.
func (m *Map) Lookup(key string) (any, bool) {
	v, ok := m.fields[key]
	return detach(v), ok
}

// Keys returns the keys in ascending order.
func (m *Map) Keys() []string {
	keys := make([]string, 0, len(m.fields))
	for k := range m.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *Map) set(key string, v any) {
	if m.fields == nil {
		m.fields = make(map[string]any)
	}
	m.fields[key] = v
}

func (m *Map) remove(key string) {
	delete(m.fields, key)
}

// List is an ordered State Node.
type List struct {
	items []any
	owner *Container
}

func newList(size int) *List {
	return &List{items: make([]any, 0, size)}
}

func (l *List) isNode() {}

// Len returns the number of elements.
func (l *List) Len() int {
	return len(l.items)
}

// At returns the element at index i, or nil when i is out of range.
func (l *List) At(i int) any {
	if i < 0 || i >= len(l.items) {
		return nil
	}
	return detach(l.items[i])
}

// Values returns a copy of the elements.
func (l *List) Values() []any {
	out := make([]any, len(l.items))
	for i, v := range l.items {
		out[i] = detach(v)
	}
	return out
}

func (l *List) setAt(i int, v any) {
	l.items[i] = v
}

func (l *List) append(vs ...any) {
	l.items = append(l.items, vs...)
}

func (l *List) removeAt(i int) {
	copy(l.items[i:], l.items[i+1:])
	l.items[len(l.items)-1] = nil
	l.items = l.items[:len(l.items)-1]
}

// Symbol is a unique leaf value compared by identity.
type Symbol struct {
	desc string
}

// NewSymbol returns a new Symbol. Two symbols with the same description are
// still different values.
func NewSymbol(desc string) *Symbol {
	return &Symbol{desc: desc}
}

// String implements fmt.Stringer.
func (s *Symbol) String() string {
	return "Symbol(" + s.desc + ")"
}

// detach returns v as it may leave the tree. *big.Int is mutable in place,
// so callers get their own copy.
func detach(v any) any {
	if b, ok := v.(*big.Int); ok && b != nil {
		return new(big.Int).Set(b)
	}
	return v
}

// indexKey is the tracked key of list slot i.
func indexKey(i int) string {
	return strconv.Itoa(i)
}

// same reports whether a write of b over a is a no-op.
// Nodes, symbols and other pointers compare by identity, *big.Int by value,
// everything else with == when both sides share a comparable type.
func same(a, b any) bool {
	if ab, ok := a.(*big.Int); ok {
		bb, ok := b.(*big.Int)
		if !ok {
			return false
		}
		if ab == nil || bb == nil {
			return ab == bb
		}
		return ab.Cmp(bb) == 0
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
