package reactive

import (
	"log/slog"
	"sync"

	"github.com/mitchellh/mapstructure"
)

// Container owns one state tree and the tracker observing it.
// The root node is fixed at construction and only ever mutated in place.
type Container struct {
	root    *Map
	tracker *Tracker
	logger  *slog.Logger
	onFlush func(FlushStats)

	// readCache maps subscriber ID -> node -> view, so a subscriber gets the
	// same view for the same node on every pass until CleanUpdate.
	readCache   map[uint64]map[Node]any
	readCacheMu sync.Mutex

	// depth is the action nesting level; scope is the write phase of the
	// outermost action in progress.
	depth int
	scope *writeScope
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger used for flush diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithFlushHook registers fn to run after every flush with its stats.
func WithFlushHook(fn func(FlushStats)) Option {
	return func(c *Container) {
		c.onFlush = fn
	}
}

// New creates a Container from initial, which must convert to a map (see
// FromValue). The container works on its own copy of initial.
func New(initial any, opts ...Option) (*Container, error) {
	c := &Container{
		tracker:   NewTracker(),
		logger:    slog.Default().With("component", "reactive"),
		readCache: make(map[uint64]map[Node]any),
	}

	converted, err := convert(initial, c, 0)
	if err != nil {
		return nil, err
	}
	root, ok := converted.(*Map)
	if !ok {
		return nil, shapeError(initial)
	}
	c.root = root

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Tracker returns the container's dependency tracker.
func (c *Container) Tracker() *Tracker {
	return c.tracker
}

// GetSubscribableState returns the read view of the root bound to sub.
// With a nil subscriber the view tracks nothing; it is meant for debugging.
//
// Views and dependencies of sub accumulate until CleanUpdate, including those
// on nodes an action has since replaced. A subscriber that stays mounted
// should call CleanUpdate before each re-read so replaced nodes can be freed.
func (c *Container) GetSubscribableState(sub Subscriber) *ReadMap {
	return c.readMap(c.root, sub)
}

// GetChangableState returns a fresh write view of the root. The caller owns
// the write phase and must call Flush once it is over, whether the code using
// the view succeeded or not. Run does all of that.
func (c *Container) GetChangableState() *WriteMap {
	return newWriteScope(c).wrapMap(c.root)
}

// CleanUpdate removes every dependency of sub and forgets its cached views.
func (c *Container) CleanUpdate(sub Subscriber) {
	if sub == nil {
		return
	}
	c.tracker.Cleanup(sub)

	c.readCacheMu.Lock()
	delete(c.readCache, sub.ID())
	c.readCacheMu.Unlock()
}

// Flush notifies the subscribers of every path changed since the last flush.
func (c *Container) Flush() FlushStats {
	stats := c.tracker.Flush()
	if stats.Changed > 0 {
		c.logger.Debug("flush", "changed", stats.Changed, "notified", stats.Notified)
	}
	if c.onFlush != nil {
		c.onFlush(stats)
	}
	return stats
}

// Run executes fn as one action.
//
// Actions started from inside fn join the running one: they share its write
// phase, and the flush happens once, when the outermost action ends. That
// flush runs on every exit path, including an error or a panic in fn, and the
// error or panic is passed on unchanged. Write views handed to fn reject
// writes once the outermost action has ended.
func (c *Container) Run(fn func(state *WriteMap) error) error {
	c.depth++
	if c.depth == 1 {
		c.scope = newWriteScope(c)
	}
	scope := c.scope

	defer func() {
		c.depth--
		if c.depth == 0 {
			c.scope = nil
			scope.close()
			c.Flush()
		}
	}()

	return fn(scope.wrapMap(c.root))
}

// InAction reports whether an action is running.
func (c *Container) InAction() bool {
	return c.depth > 0
}

// Snapshot returns a plain copy of the whole tree.
func (c *Container) Snapshot() (map[string]any, error) {
	v, err := ToValue(c.root)
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

// Decode copies the current state into out, a pointer to a struct or map,
// matching keys against json tags.
func (c *Container) Decode(out any) error {
	snap, err := c.Snapshot()
	if err != nil {
		return err
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(snap)
}

func (c *Container) wrapRead(v any, sub Subscriber) any {
	switch x := v.(type) {
	case *Map:
		return c.readMap(x, sub)
	case *List:
		return c.readList(x, sub)
	}
	return v
}

func (c *Container) readMap(m *Map, sub Subscriber) *ReadMap {
	if sub == nil {
		return &ReadMap{c: c, node: m}
	}
	return c.cachedView(m, sub, func() any {
		return &ReadMap{c: c, node: m, sub: sub}
	}).(*ReadMap)
}

func (c *Container) readList(l *List, sub Subscriber) *ReadList {
	if sub == nil {
		return &ReadList{c: c, node: l}
	}
	return c.cachedView(l, sub, func() any {
		return &ReadList{c: c, node: l, sub: sub}
	}).(*ReadList)
}

func (c *Container) cachedView(n Node, sub Subscriber, build func() any) any {
	c.readCacheMu.Lock()
	defer c.readCacheMu.Unlock()

	id := sub.ID()
	views := c.readCache[id]
	if views == nil {
		views = make(map[Node]any)
		c.readCache[id] = views
	}
	if v, ok := views[n]; ok {
		return v
	}
	v := build()
	views[n] = v
	return v
}

// cachedViews returns how many views are cached for sub.
func (c *Container) cachedViews(sub Subscriber) int {
	c.readCacheMu.Lock()
	defer c.readCacheMu.Unlock()
	return len(c.readCache[sub.ID()])
}
