package reactive

// Subscriber is anything that must be told to re-evaluate when state it read
// has changed. Identity is the value returned by ID, not the Go value itself.
type Subscriber interface {
	// MarkDirty notifies the subscriber that at least one path it read changed.
	// It is called at most once per flush.
	MarkDirty()

	// ID returns a unique identifier for this subscriber.
	ID() uint64
}

// funcSubscriber adapts a plain callback to Subscriber.
type funcSubscriber struct {
	id uint64
	fn func()
}

// NewSubscriber returns a Subscriber that calls fn when marked dirty.
// Every call allocates a new identity, so keep the returned value around for
// as long as the consumer stays mounted.
func NewSubscriber(fn func()) Subscriber {
	return &funcSubscriber{id: nextID(), fn: fn}
}

func (s *funcSubscriber) MarkDirty() {
	if s.fn != nil {
		s.fn()
	}
}

func (s *funcSubscriber) ID() uint64 {
	return s.id
}
