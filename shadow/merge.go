package shadow

import (
	"go.uber.org/zap"

	"blockpad/block"
)

// MergeNewBlocks folds a backend supplied block array into the open
// document: only ids absent from the shadow are appended, in their relative
// order from incoming, and the newly appended ids are returned. Blocks the
// shadow already knows are never overwritten, reordered or removed - local
// edits always win over a stale backend snapshot.
//
// The backend may create blocks on its own faster than our optimistic
// update completes; this guarantees at-most-once insertion and leaves
// in-flight local edits untouched. Appending is not a local mutation: it
// does not dirty the document and enqueues nothing.
func (s *Store) MergeNewBlocks(incoming []*block.Block) []string {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		s.log.Debug("Merge without an open document, ignoring")
		return nil
	}
	d := s.doc

	known := make(map[string]struct{}, len(d.blocks))
	for _, b := range d.blocks {
		known[b.ID] = struct{}{}
	}

	var appended []string
	for _, b := range incoming {
		if !b.Validate() {
			s.log.Warn("Skipping malformed incoming block", zap.Any("block", b))
			continue
		}
		if _, ok := known[b.ID]; ok {
			continue
		}
		known[b.ID] = struct{}{}
		clone := b.Clone()
		// pairing state of an appended block can only be valid against
		// blocks appended in the same batch; settled below
		d.blocks = append(d.blocks, clone)
		appended = append(appended, clone.ID)
	}
	if len(appended) == 0 {
		s.mu.Unlock()
		return nil
	}
	head := len(d.blocks) - len(appended)
	block.RepairAppendedPairs(d.blocks[:head], d.blocks[head:])

	pageID := d.pageID
	subs := s.subscribers()
	s.mu.Unlock()

	s.log.Debug("Merged backend blocks", zap.String("page", pageID), zap.Int("appended", len(appended)))
	emit(subs, Event{Kind: EventStructureChanged, PageID: pageID, BlockIDs: appended})
	return appended
}
