package shadow

// Rendering subscribes to the store instead of the store calling into a
// global "content changed" hook; subscriptions are cancelled on teardown.

// EventKind distinguishes the kinds of document change notifications.
type EventKind string

const (
	// EventLoaded - a document replaced the previous one wholesale.
	EventLoaded EventKind = "loaded"
	// EventBlocksChanged - payload content of the listed blocks changed.
	EventBlocksChanged EventKind = "blocks-changed"
	// EventStructureChanged - blocks were added, removed, reordered or
	// re-paired; listed ids are the ones involved.
	EventStructureChanged EventKind = "structure-changed"
	// EventCleared - the document was dropped.
	EventCleared EventKind = "cleared"
)

// Event describes one document change.
type Event struct {
	Kind     EventKind
	PageID   string
	BlockIDs []string
}

// Subscribe registers an observer for document changes and returns its
// cancel function. Observers are invoked synchronously on the mutating
// goroutine, after the mutation completed and outside the store lock.
func (s *Store) Subscribe(fn func(Event)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// subscribers snapshots the observer list; the caller holds s.mu.
func (s *Store) subscribers() []func(Event) {
	out := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}

func emit(subs []func(Event), ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}
