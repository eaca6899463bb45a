package reactive

// ReadMap is the subscribable view of a Map. Reads are recorded as
// dependencies of the bound subscriber; writes always fail.
type ReadMap struct {
	c    *Container
	node *Map
	sub  Subscriber
}

func (m *ReadMap) track(key string) {
	if m.sub != nil {
		m.c.tracker.TrackUpdate(m.node, key, m.sub)
	}
}

// Get returns the value under key. Nested maps and lists come back as views
// bound to the same subscriber, and the same view is returned every time.
func (m *ReadMap) Get(key string) any {
	v, _ := m.Lookup(key)
	return v
}

// Lookup is Get plus whether the key exists.
func (m *ReadMap) Lookup(key string) (any, bool) {
	m.track(key)
	v, ok := m.node.Lookup(key)
	return m.c.wrapRead(v, m.sub), ok
}

// Has reports whether key exists. It is a tracked read.
func (m *ReadMap) Has(key string) bool {
	m.track(key)
	_, ok := m.node.Lookup(key)
	return ok
}

// Map returns the nested map under key, or nil when it is not a map.
func (m *ReadMap) Map(key string) *ReadMap {
	rm, _ := m.Get(key).(*ReadMap)
	return rm
}

// List returns the nested list under key, or nil when it is not a list.
func (m *ReadMap) List(key string) *ReadList {
	rl, _ := m.Get(key).(*ReadList)
	return rl
}

// Keys returns the current keys in ascending order. Enumerating keys is not
// a dependency on any of them.
func (m *ReadMap) Keys() []string {
	return m.node.Keys()
}

// Len returns the number of keys. Not tracked.
func (m *ReadMap) Len() int {
	return m.node.Len()
}

// Node returns the underlying node, which only exposes reads.
func (m *ReadMap) Node() *Map {
	return m.node
}

// Set always fails with ErrImmutable.
func (m *ReadMap) Set(key string, _ any) error {
	return immutableError("set", key)
}

// Delete always fails with ErrImmutable.
func (m *ReadMap) Delete(key string) error {
	return immutableError("delete", key)
}

// ReadList is the subscribable view of a List. Elements are returned raw,
// never wrapped; index and length reads are recorded on the list.
type ReadList struct {
	c    *Container
	node *List
	sub  Subscriber
}

func (l *ReadList) track(key string) {
	if l.sub != nil {
		l.c.tracker.TrackUpdate(l.node, key, l.sub)
	}
}

// At returns the raw element at i, or nil when out of range.
func (l *ReadList) At(i int) any {
	l.track(indexKey(i))
	return l.node.At(i)
}

// Len returns the number of elements. It is a tracked read of "length".
func (l *ReadList) Len() int {
	l.track(lengthKey)
	return l.node.Len()
}

// Values returns a copy of the elements, tracking the length and every index.
func (l *ReadList) Values() []any {
	n := l.Len()
	for i := 0; i < n; i++ {
		l.track(indexKey(i))
	}
	return l.node.Values()
}

// Node returns the underlying node, which only exposes reads.
func (l *ReadList) Node() *List {
	return l.node
}

// SetAt always fails with ErrImmutable.
func (l *ReadList) SetAt(i int, _ any) error {
	return immutableError("set", indexKey(i))
}

// Append always fails with ErrImmutable.
func (l *ReadList) Append(...any) error {
	return immutableError("append to", lengthKey)
}

// RemoveAt always fails with ErrImmutable.
func (l *ReadList) RemoveAt(i int) error {
	return immutableError("delete", indexKey(i))
}
