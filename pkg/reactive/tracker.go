package reactive

import "sync"

// Path is one observable slot of the tree: a node and a key of that node.
// List slots use the decimal index as key, and "length" for the length.
type Path struct {
	Node Node
	Key  string
}

// FlushStats describes one flush.
type FlushStats struct {
	// Changed is the number of distinct paths changed since the previous flush.
	Changed int

	// Notified is the number of subscribers that were marked dirty.
	Notified int
}

// edgeSet holds the subscribers depending on one path.
type edgeSet struct {
	path Path
	subs map[uint64]Subscriber
}

// subscription is the reverse index entry of one subscriber: every edge set
// it was inserted into, so teardown never scans the whole graph.
type subscription struct {
	sub   Subscriber
	edges map[*edgeSet]struct{}
}

// Tracker owns the dependency graph between paths and subscribers, and the
// set of paths changed by the action in progress.
type Tracker struct {
	mu sync.Mutex

	// edges maps a path to the subscribers that read it.
	edges map[Path]*edgeSet

	// subs is the reverse index, keyed by subscriber ID.
	subs map[uint64]*subscription

	// changed deduplicates changed paths; order keeps first-change order.
	changed map[Path]struct{}
	order   []Path
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		edges:   make(map[Path]*edgeSet),
		subs:    make(map[uint64]*subscription),
		changed: make(map[Path]struct{}),
	}
}

// TrackUpdate records that sub depends on (node, key). Recording an existing
// edge is a no-op. A nil subscriber records nothing.
func (t *Tracker) TrackUpdate(node Node, key string, sub Subscriber) {
	if sub == nil || node == nil {
		return
	}

	p := Path{Node: node, Key: key}
	id := sub.ID()

	t.mu.Lock()
	defer t.mu.Unlock()

	es := t.edges[p]
	if es == nil {
		es = &edgeSet{path: p, subs: make(map[uint64]Subscriber)}
		t.edges[p] = es
	}
	es.subs[id] = sub

	s := t.subs[id]
	if s == nil {
		s = &subscription{sub: sub, edges: make(map[*edgeSet]struct{})}
		t.subs[id] = s
	}
	s.edges[es] = struct{}{}
}

// CollectUpdate records (node, key) as changed. Nobody is notified until Flush.
func (t *Tracker) CollectUpdate(node Node, key string) {
	if node == nil {
		return
	}

	p := Path{Node: node, Key: key}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.changed[p]; ok {
		return
	}
	t.changed[p] = struct{}{}
	t.order = append(t.order, p)
}

// Flush resolves the changed paths to the set of subscribers depending on
// them, clears the changed set, and marks each of those subscribers dirty
// exactly once. Subscribers are called without the tracker lock held and in
// no particular order; one may start a new action from MarkDirty.
func (t *Tracker) Flush() FlushStats {
	t.mu.Lock()
	stats := FlushStats{Changed: len(t.order)}

	var notify []Subscriber
	seen := make(map[uint64]struct{})
	for _, p := range t.order {
		es := t.edges[p]
		if es == nil {
			continue
		}
		for id, sub := range es.subs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			notify = append(notify, sub)
		}
	}

	t.changed = make(map[Path]struct{})
	t.order = nil
	t.mu.Unlock()

	for _, sub := range notify {
		// An earlier subscriber in this flush may have torn this one down.
		if !t.subscribed(sub.ID()) {
			continue
		}
		stats.Notified++
		sub.MarkDirty()
	}

	return stats
}

// Cleanup removes every dependency of sub. Edge sets left empty are dropped
// so repeated mount/unmount does not grow the graph. Unknown subscribers are
// ignored. A cleaned-up subscriber that reads again simply registers anew.
func (t *Tracker) Cleanup(sub Subscriber) {
	if sub == nil {
		return
	}
	id := sub.ID()

	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.subs[id]
	if s == nil {
		return
	}
	for es := range s.edges {
		delete(es.subs, id)
		if len(es.subs) == 0 {
			delete(t.edges, es.path)
		}
	}
	delete(t.subs, id)
}

func (t *Tracker) subscribed(id uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.subs[id]
	return ok
}

// Edges returns the number of paths with at least one dependent subscriber.
func (t *Tracker) Edges() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.edges)
}

// Subscribers returns the number of subscribers with at least one dependency.
func (t *Tracker) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Pending returns the number of changed paths awaiting a flush.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.order)
}

// Dependents returns the number of subscribers depending on (node, key).
func (t *Tracker) Dependents(node Node, key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if es := t.edges[Path{Node: node, Key: key}]; es != nil {
		return len(es.subs)
	}
	return 0
}

// Dependencies returns the number of paths sub depends on.
func (t *Tracker) Dependencies(sub Subscriber) int {
	if sub == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if s := t.subs[sub.ID()]; s != nil {
		return len(s.edges)
	}
	return 0
}
