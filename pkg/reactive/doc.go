// Package reactive provides the dependency-tracking core of trackstore.
//
// A Container owns one mutable state tree made of Map and List nodes. Reads
// made through a subscribable view are recorded per subscriber, writes made
// through a changable view inside an action are recorded as changed paths, and
// a flush resolves the two into one notification per affected subscriber.
//
// # Reading
//
// GetSubscribableState returns a ReadMap bound to a subscriber. Every key read
// through it (and through the nested views it hands out) becomes a dependency
// of that subscriber:
//
//	view := c.GetSubscribableState(sub)
//	name := view.Map("user").Get("name") // sub now depends on user.name only
//
// Read views never mutate: Set, Delete, Append, SetAt and RemoveAt return an
// error wrapping ErrImmutable at every depth.
//
// # Writing
//
// Run executes an action against a WriteMap. Writes that change a value are
// collected; when the outermost Run returns (or fails, or panics) the
// container flushes once:
//
//	err := c.Run(func(state *WriteMap) error {
//	    state.Map("user").Set("name", "Ada")
//	    return state.Set("count", 1)
//	}) // subscribers of user.name or count are notified exactly once
//
// # Lists
//
// List contents are tracked in bulk: index and length reads are recorded on
// the list itself, and elements are returned as raw read-only nodes rather
// than as views.
//
// # Lifetime
//
// Dependencies live until CleanUpdate is called for their subscriber. There
// is no weak-reference collection; the binding layer must clean up on unmount.
//
// # Concurrency
//
// A Container is meant to be driven from one goroutine. The tracker guards its
// own maps, but the state tree itself is not synchronized, so concurrent
// actions or reads racing an action are undefined behavior.
package reactive
