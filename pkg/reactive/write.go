package reactive

// writeScope is the lifetime of one write phase. It caches the views it
// hands out and records whether the phase is over.
type writeScope struct {
	c      *Container
	cache  map[Node]any
	closed bool
}

func newWriteScope(c *Container) *writeScope {
	return &writeScope{c: c, cache: make(map[Node]any)}
}

func (s *writeScope) close() {
	s.closed = true
	s.cache = nil
}

func (s *writeScope) wrapMap(m *Map) *WriteMap {
	if s.closed {
		return &WriteMap{scope: s, node: m}
	}
	if wm, ok := s.cache[m].(*WriteMap); ok {
		return wm
	}
	wm := &WriteMap{scope: s, node: m}
	s.cache[m] = wm
	return wm
}

func (s *writeScope) wrapList(l *List) *WriteList {
	if s.closed {
		return &WriteList{scope: s, node: l}
	}
	if wl, ok := s.cache[l].(*WriteList); ok {
		return wl
	}
	wl := &WriteList{scope: s, node: l}
	s.cache[l] = wl
	return wl
}

func (s *writeScope) wrap(v any) any {
	switch x := v.(type) {
	case *Map:
		return s.wrapMap(x)
	case *List:
		return s.wrapList(x)
	}
	return v
}

func (s *writeScope) collect(node Node, key string) {
	s.c.tracker.CollectUpdate(node, key)
}

// WriteMap is the changable view of a Map handed to an action. Writes go to
// the real node and every write that changes a value is recorded.
type WriteMap struct {
	scope *writeScope
	node  *Map
}

// Get returns the value under key. Nested maps and lists come back as write
// views. Reads are not tracked.
func (m *WriteMap) Get(key string) any {
	v, _ := m.Lookup(key)
	return v
}

// Lookup is Get plus whether the key exists.
func (m *WriteMap) Lookup(key string) (any, bool) {
	v, ok := m.node.Lookup(key)
	return m.scope.wrap(v), ok
}

// Has reports whether key exists.
func (m *WriteMap) Has(key string) bool {
	_, ok := m.node.Lookup(key)
	return ok
}

// Map returns the nested map under key, or nil when it is not a map.
func (m *WriteMap) Map(key string) *WriteMap {
	wm, _ := m.Get(key).(*WriteMap)
	return wm
}

// List returns the nested list under key, or nil when it is not a list.
func (m *WriteMap) List(key string) *WriteList {
	wl, _ := m.Get(key).(*WriteList)
	return wl
}

// Keys returns the current keys in ascending order.
func (m *WriteMap) Keys() []string {
	return m.node.Keys()
}

// Len returns the number of keys.
func (m *WriteMap) Len() int {
	return m.node.Len()
}

// Node returns the underlying node.
func (m *WriteMap) Node() *Map {
	return m.node
}

// Set stores v under key. Plain maps and slices are converted to new nodes,
// views are unwrapped. The write is recorded only when the key was absent or
// its value differs from v.
func (m *WriteMap) Set(key string, v any) error {
	if m.scope.closed {
		return endedError("set", key)
	}
	nv, err := m.scope.c.normalize(v)
	if err != nil {
		return err
	}

	old, ok := m.node.Lookup(key)
	m.node.set(key, nv)
	if ok && same(old, nv) {
		return nil
	}
	m.scope.collect(m.node, key)
	return nil
}

// Delete removes key. A delete is always recorded as a change, even when the
// key was already absent.
func (m *WriteMap) Delete(key string) error {
	if m.scope.closed {
		return endedError("delete", key)
	}
	m.node.remove(key)
	m.scope.collect(m.node, key)
	return nil
}

// WriteList is the changable view of a List. Elements are returned raw.
type WriteList struct {
	scope *writeScope
	node  *List
}

// At returns the raw element at i, or nil when out of range.
func (l *WriteList) At(i int) any {
	return l.node.At(i)
}

// Len returns the number of elements.
func (l *WriteList) Len() int {
	return l.node.Len()
}

// Values returns a copy of the elements.
func (l *WriteList) Values() []any {
	return l.node.Values()
}

// Node returns the underlying node.
func (l *WriteList) Node() *List {
	return l.node
}

// SetAt replaces the element at i, recording the slot when the value differs.
func (l *WriteList) SetAt(i int, v any) error {
	if l.scope.closed {
		return endedError("set", indexKey(i))
	}
	if i < 0 || i >= l.node.Len() {
		return rangeError(i, l.node.Len())
	}
	nv, err := l.scope.c.normalize(v)
	if err != nil {
		return err
	}

	old := l.node.At(i)
	l.node.setAt(i, nv)
	if !same(old, nv) {
		l.scope.collect(l.node, indexKey(i))
	}
	return nil
}

// Append adds elements at the end, recording each new slot and the length.
func (l *WriteList) Append(vs ...any) error {
	if l.scope.closed {
		return endedError("append to", lengthKey)
	}
	if len(vs) == 0 {
		return nil
	}

	items := make([]any, 0, len(vs))
	for _, v := range vs {
		nv, err := l.scope.c.normalize(v)
		if err != nil {
			return err
		}
		items = append(items, nv)
	}

	start := l.node.Len()
	l.node.append(items...)
	for i := start; i < l.node.Len(); i++ {
		l.scope.collect(l.node, indexKey(i))
	}
	l.scope.collect(l.node, lengthKey)
	return nil
}

// RemoveAt removes the element at i. Every slot from i to the old end shifts,
// so all of them are recorded along with the length.
func (l *WriteList) RemoveAt(i int) error {
	if l.scope.closed {
		return endedError("delete", indexKey(i))
	}
	n := l.node.Len()
	if i < 0 || i >= n {
		return rangeError(i, n)
	}

	l.node.removeAt(i)
	for j := i; j < n; j++ {
		l.scope.collect(l.node, indexKey(j))
	}
	l.scope.collect(l.node, lengthKey)
	return nil
}
