// Package shadow owns the locally editable copy of the currently open page:
// the block sequence, its dirtiness and the queue of outbound commands. All
// edits flow through the operations here - nothing outside this package may
// touch block state directly, rendering and input layers observe it through
// subscriptions and snapshots.
package shadow

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"blockpad/block"
	"blockpad/plugin"
)

// Store owns at most one document. Opening a new page replaces the previous
// one - callers flush pending edits first (the scheduler's SwitchPage does).
type Store struct {
	mu  sync.Mutex
	log *zap.Logger

	doc *document

	subs    map[int]func(Event)
	nextSub int
}

// document is the shadow state of one page. dirty is true iff at least one
// local mutation happened since the last successful drain with no mutations
// after it.
type document struct {
	pageID string
	blocks []*block.Block

	dirty      bool
	inFlight   bool
	generation uint64
	drainedGen uint64

	queue []plugin.Command

	// Rapid text updates overwrite a per-block slot instead of queueing one
	// command per keystroke; slots promote to the queue at drain time in
	// first-touch order.
	textSlots map[string]string
	textOrder []string
}

// New creates an empty store.
func New(log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		log:  log.Named("shadow"),
		subs: make(map[int]func(Event)),
	}
}

// Load replaces the document wholesale with a backend supplied block array.
// It is a silent no-op when a non-empty document for the same page is
// already loaded - the store never overwrites its own authoritative copy
// with a fresh load for the same page. Reports whether the load happened.
func (s *Store) Load(pageID string, blocks []*block.Block) bool {
	s.mu.Lock()
	if s.doc != nil && s.doc.pageID == pageID && len(s.doc.blocks) > 0 {
		s.mu.Unlock()
		s.log.Debug("Ignoring reload of already loaded page", zap.String("page", pageID))
		return false
	}
	s.doc = &document{
		pageID:    pageID,
		blocks:    block.Sanitize(block.CloneBlocks(blocks), s.log),
		textSlots: make(map[string]string),
	}
	count := len(s.doc.blocks)
	subs := s.subscribers()
	s.mu.Unlock()

	s.log.Debug("Page loaded", zap.String("page", pageID), zap.Int("blocks", count))
	emit(subs, Event{Kind: EventLoaded, PageID: pageID})
	return true
}

// Loaded reports whether a document is open.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc != nil
}

// PageID returns the open page's identity, empty when nothing is loaded.
func (s *Store) PageID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ""
	}
	return s.doc.pageID
}

// Dirty reports whether local mutations await a drain.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc != nil && s.doc.dirty
}

// Len returns the number of blocks in the open document.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return 0
	}
	return len(s.doc.blocks)
}

// Block returns a deep copy of one block, nil when absent. Read accessors
// never touch dirty state.
func (s *Store) Block(id string) *block.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil
	}
	if b := s.doc.find(id); b != nil {
		if s.doc.hasTextSlot(id) {
			clone := b.Clone()
			clone.Text.Text = s.doc.textSlots[id]
			return clone
		}
		return b.Clone()
	}
	return nil
}

// Snapshot returns a deep copy of the ordered block sequence with pending
// text slots folded in, so render layers always see the latest local state
// without aliasing store-owned memory.
func (s *Store) Snapshot() []*block.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil
	}
	out := block.CloneBlocks(s.doc.blocks)
	for _, b := range out {
		if s.doc.hasTextSlot(b.ID) {
			b.Text.Text = s.doc.textSlots[b.ID]
		}
	}
	return out
}

// SerializeBlock returns one block in the wire shape.
func (s *Store) SerializeBlock(id string) ([]byte, error) {
	b := s.Block(id)
	if b == nil {
		return nil, fmt.Errorf("no block '%s' in the open document", id)
	}
	return block.Marshal([]*block.Block{b})
}

// SerializeAll returns the whole document in the wire shape.
func (s *Store) SerializeAll() ([]byte, error) {
	return block.Marshal(s.Snapshot())
}

// Clear drops the document and every pending command without flushing.
// Callers responsible for durability flush first.
func (s *Store) Clear() {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return
	}
	pageID := s.doc.pageID
	s.doc = nil
	subs := s.subscribers()
	s.mu.Unlock()

	s.log.Debug("Page cleared", zap.String("page", pageID))
	emit(subs, Event{Kind: EventCleared, PageID: pageID})
}

// BeginDrain promotes pending text slots to the queue (first-touch order)
// and hands the whole queue over for delivery. It reports false when there
// is nothing to drain or a drain is already in flight - drains never overlap
// for the same document.
func (s *Store) BeginDrain() (pageID string, cmds []plugin.Command, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil || !s.doc.dirty || s.doc.inFlight {
		return "", nil, false
	}
	d := s.doc
	for _, id := range d.textOrder {
		text, pending := d.textSlots[id]
		if !pending {
			continue
		}
		d.queue = append(d.queue, plugin.NewCommand(plugin.CmdUpdateBlock, plugin.TextArgs{
			PageID:  d.pageID,
			BlockID: id,
			Text:    text,
		}))
	}
	d.textSlots = make(map[string]string)
	d.textOrder = nil

	cmds = d.queue
	d.queue = nil
	d.inFlight = true
	d.drainedGen = d.generation
	return d.pageID, cmds, true
}

// EndDrain completes the drain started by BeginDrain. On failure the batch
// is put back at the head of the queue and the document stays dirty, so the
// next tick retries naturally. On success dirtiness clears unless a mutation
// arrived while the drain was in flight.
func (s *Store) EndDrain(pageID string, cmds []plugin.Command, drainErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil || s.doc.pageID != pageID {
		// page switched mid-flight, nothing to reconcile
		return
	}
	d := s.doc
	d.inFlight = false
	if drainErr != nil {
		d.queue = append(cmds, d.queue...)
		return
	}
	if d.generation == d.drainedGen {
		d.dirty = false
	}
}

func (d *document) find(id string) *block.Block {
	if i := d.index(id); i >= 0 {
		return d.blocks[i]
	}
	return nil
}

func (d *document) index(id string) int {
	if id == "" {
		return -1
	}
	for i, b := range d.blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func (d *document) hasTextSlot(id string) bool {
	_, ok := d.textSlots[id]
	return ok
}

// touch records a mutation: the document is dirty and anything drained
// before this point no longer proves cleanliness.
func (d *document) touch() {
	d.dirty = true
	d.generation++
}

func (d *document) enqueue(name string, args any) {
	d.queue = append(d.queue, plugin.NewCommand(name, args))
}
