package shadow

import (
	"strings"

	"go.uber.org/zap"

	"blockpad/block"
	"blockpad/plugin"
)

// Structural edit operations. Each one is synchronous, mutates the block
// model in place, marks the document dirty and enqueues exactly one outbound
// command (plus the unpair command of any pairing it had to dissolve to keep
// the adjacency invariant). Operations referencing unknown ids are logged
// no-ops: no mutation, no command - a stale reference from the UI must
// never corrupt the document.

// mutate runs fn under the store lock and, when fn reports a change, marks
// the document dirty and notifies subscribers.
func (s *Store) mutate(op string, fn func(d *document) (Event, bool)) bool {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		s.log.Debug("Operation without an open document", zap.String("op", op))
		return false
	}
	ev, changed := fn(s.doc)
	if !changed {
		s.mu.Unlock()
		s.log.Debug("Operation was a no-op", zap.String("op", op))
		return false
	}
	s.doc.touch()
	ev.PageID = s.doc.pageID
	subs := s.subscribers()
	s.mu.Unlock()

	emit(subs, ev)
	return true
}

// UpdateText replaces a block's text. Rapid updates to the same block before
// the next drain coalesce into the latest value only - exactly one outbound
// command per touched block per drain carries the final text.
func (s *Store) UpdateText(blockID, text string) bool {
	return s.mutate("update_text", func(d *document) (Event, bool) {
		b := d.find(blockID)
		if b == nil || b.Text == nil {
			return Event{}, false
		}
		if _, touched := d.textSlots[blockID]; !touched {
			d.textOrder = append(d.textOrder, blockID)
		}
		d.textSlots[blockID] = block.NormalizeText(text)
		return Event{Kind: EventBlocksChanged, BlockIDs: []string{blockID}}, true
	})
}

// Split keeps the text before the split point in the source block and
// inserts a new block of the same type right after it, seeded with
// afterText. Heading level, code language and callout icon carry over. Any
// pending text edit of the source folds into the split command, so one
// command describes the whole change.
func (s *Store) Split(blockID, afterText, newBlockID string) bool {
	return s.mutate("split", func(d *document) (Event, bool) {
		i := d.index(blockID)
		if i < 0 || newBlockID == "" || d.index(newBlockID) >= 0 {
			return Event{}, false
		}
		src := d.blocks[i]
		if src.Text == nil {
			return Event{}, false
		}
		// a new neighbor between pair members would break adjacency
		d.dissolvePair(src.PairID)
		d.promoteTextSlot(src)

		afterText = block.NormalizeText(afterText)
		src.Text.Text = strings.TrimSuffix(src.Text.Text, afterText)

		next := src.Clone()
		next.ID = newBlockID
		next.Text.Text = afterText
		d.insertAt(i+1, next)

		d.enqueue(plugin.CmdSplitBlock, plugin.SplitArgs{
			PageID:     d.pageID,
			BlockID:    blockID,
			NewBlockID: newBlockID,
			Text:       src.Text.Text,
			AfterText:  afterText,
		})
		return Event{Kind: EventStructureChanged, BlockIDs: []string{blockID, newBlockID}}, true
	})
}

// MergeWithPrevious concatenates the block's text onto the immediately
// preceding block and removes it. No-op when the block is first in sequence
// or either side carries no text.
func (s *Store) MergeWithPrevious(blockID string) bool {
	return s.mutate("merge_with_previous", func(d *document) (Event, bool) {
		i := d.index(blockID)
		if i <= 0 {
			return Event{}, false
		}
		curr, prev := d.blocks[i], d.blocks[i-1]
		if curr.Text == nil || prev.Text == nil {
			return Event{}, false
		}
		d.dissolvePair(curr.PairID)
		d.dissolvePair(prev.PairID)
		d.promoteTextSlot(curr)
		d.promoteTextSlot(prev)

		prev.Text.Text += curr.Text.Text
		d.removeAt(i)

		d.enqueue(plugin.CmdMergeBlock, plugin.MergeArgs{PageID: d.pageID, BlockID: blockID, Text: prev.Text.Text})
		return Event{Kind: EventStructureChanged, BlockIDs: []string{prev.ID, blockID}}, true
	})
}

// Pair links two adjacent unpaired blocks side by side under a fresh shared
// pair id. Existing pairings of either member are dissolved first. Pairing
// two blocks already paired with each other is an idempotent no-op.
func (s *Store) Pair(idA, idB string) bool {
	return s.mutate("pair", func(d *document) (Event, bool) {
		i, j := d.index(idA), d.index(idB)
		if i < 0 || j < 0 || (j != i+1 && i != j+1) {
			return Event{}, false
		}
		a, b := d.blocks[i], d.blocks[j]
		if !a.Type.Pairable() || !b.Type.Pairable() {
			return Event{}, false
		}
		if a.Paired() && a.PairID == b.PairID {
			// already exactly this pair
			return Event{}, false
		}
		d.dissolvePair(a.PairID)
		d.dissolvePair(b.PairID)

		pairID := block.NewID()
		for _, m := range []*block.Block{a, b} {
			m.Layout = block.LayoutSideBySide
			m.PairID = pairID
		}
		d.enqueue(plugin.CmdPairBlocks, plugin.PairArgs{
			PageID: d.pageID,
			BlockA: idA,
			BlockB: idB,
			PairID: pairID,
		})
		return Event{Kind: EventStructureChanged, BlockIDs: []string{idA, idB}}, true
	})
}

// Unpair returns both members of a pair to normal layout keeping their
// relative order. Unknown pair ids are idempotent no-ops.
func (s *Store) Unpair(pairID string) bool {
	return s.mutate("unpair", func(d *document) (Event, bool) {
		ids := d.dissolvePair(pairID)
		if len(ids) == 0 {
			return Event{}, false
		}
		return Event{Kind: EventStructureChanged, BlockIDs: ids}, true
	})
}

// Reorder removes the source block from its position, dissolving any
// pairings of source and target, and reinserts it immediately before or
// after the target. Position is "before" or "after".
func (s *Store) Reorder(sourceID, targetID, position string) bool {
	return s.mutate("reorder", func(d *document) (Event, bool) {
		if position != "before" && position != "after" {
			return Event{}, false
		}
		i, j := d.index(sourceID), d.index(targetID)
		if i < 0 || j < 0 || sourceID == targetID {
			return Event{}, false
		}
		d.dissolvePair(d.blocks[i].PairID)
		d.dissolvePair(d.blocks[j].PairID)

		moved := d.blocks[i]
		d.removeAt(i)
		j = d.index(targetID)
		if position == "after" {
			j++
		}
		d.insertAt(j, moved)

		d.enqueue(plugin.CmdReorderBlock, plugin.ReorderArgs{
			PageID:   d.pageID,
			BlockID:  sourceID,
			TargetID: targetID,
			Position: position,
		})
		return Event{Kind: EventStructureChanged, BlockIDs: []string{sourceID, targetID}}, true
	})
}

// IndentItem moves a list item one level deeper in its list's tree.
func (s *Store) IndentItem(blockID, itemID string) bool {
	return s.listItemOp("indent_item", plugin.CmdIndentListItem, blockID, itemID, func(lc *block.ListContent) bool {
		return lc.Indent(itemID)
	})
}

// OutdentItem moves a list item one level shallower; outdenting the top
// level is a no-op.
func (s *Store) OutdentItem(blockID, itemID string) bool {
	return s.listItemOp("outdent_item", plugin.CmdOutdentListItem, blockID, itemID, func(lc *block.ListContent) bool {
		return lc.Outdent(itemID)
	})
}

func (s *Store) listItemOp(op, cmd, blockID, itemID string, apply func(*block.ListContent) bool) bool {
	return s.mutate(op, func(d *document) (Event, bool) {
		b := d.find(blockID)
		if b == nil || b.List == nil || !apply(b.List) {
			return Event{}, false
		}
		d.enqueue(cmd, plugin.ListItemArgs{PageID: d.pageID, BlockID: blockID, ItemID: itemID})
		return Event{Kind: EventBlocksChanged, BlockIDs: []string{blockID}}, true
	})
}

// UpdateItem replaces a list item's text and, for task lists, its checked
// state (nil leaves it untouched).
func (s *Store) UpdateItem(blockID, itemID, text string, checked *bool) bool {
	return s.mutate("update_item", func(d *document) (Event, bool) {
		b := d.find(blockID)
		if b == nil || b.List == nil {
			return Event{}, false
		}
		item := b.List.Item(itemID)
		if item == nil {
			return Event{}, false
		}
		item.Text = block.NormalizeText(text)
		if checked != nil && b.Type == block.BlockTypeTaskList {
			item.Checked = *checked
		}
		d.enqueue(plugin.CmdUpdateListItem, plugin.ListItemArgs{
			PageID:  d.pageID,
			BlockID: blockID,
			ItemID:  itemID,
			Text:    item.Text,
			Checked: checked,
		})
		return Event{Kind: EventBlocksChanged, BlockIDs: []string{blockID}}, true
	})
}

// AppendBlock adds a block to the end of the document. Used by paste import
// and the host's "insert block" affordance. Blocks failing validation or
// colliding with an existing id are no-ops.
func (s *Store) AppendBlock(b *block.Block) bool {
	return s.mutate("append_block", func(d *document) (Event, bool) {
		if !b.Validate() || d.index(b.ID) >= 0 {
			return Event{}, false
		}
		clone := b.Clone()
		clone.Layout, clone.PairID = block.LayoutNormal, ""
		after := ""
		if len(d.blocks) > 0 {
			after = d.blocks[len(d.blocks)-1].ID
		}
		d.blocks = append(d.blocks, clone)

		d.enqueue(plugin.CmdAddBlock, plugin.AddBlockArgs{PageID: d.pageID, Block: clone.Clone(), After: after})
		return Event{Kind: EventStructureChanged, BlockIDs: []string{clone.ID}}, true
	})
}

// RemoveBlock deletes a block, dissolving any pairing it was part of.
// Its id is never reused.
func (s *Store) RemoveBlock(blockID string) bool {
	return s.mutate("remove_block", func(d *document) (Event, bool) {
		i := d.index(blockID)
		if i < 0 {
			return Event{}, false
		}
		d.dissolvePair(d.blocks[i].PairID)
		delete(d.textSlots, blockID)
		d.removeAt(i)

		d.enqueue(plugin.CmdRemoveBlock, plugin.BlockArgs{PageID: d.pageID, BlockID: blockID})
		return Event{Kind: EventStructureChanged, BlockIDs: []string{blockID}}, true
	})
}

// MovePage emits the hierarchical placement command for the open page: the
// page-tree drop computed by the placement resolver. It does not touch
// block content.
func (s *Store) MovePage(targetID, position string) bool {
	return s.mutate("move_page", func(d *document) (Event, bool) {
		if targetID == "" || (position != "before" && position != "after" && position != "child") {
			return Event{}, false
		}
		d.enqueue(plugin.CmdMovePage, plugin.MovePageArgs{PageID: d.pageID, TargetID: targetID, Position: position})
		return Event{Kind: EventStructureChanged}, true
	})
}

// dissolvePair clears pairing state on both members of a pair and enqueues
// the matching unpair command, returning the affected block ids. Pairing and
// unpairing stay atomic with respect to sequence order - either both members
// change or neither does.
func (d *document) dissolvePair(pairID string) []string {
	if pairID == "" {
		return nil
	}
	var ids []string
	for _, b := range d.blocks {
		if b.PairID == pairID {
			b.PairID = ""
			b.Layout = block.LayoutNormal
			ids = append(ids, b.ID)
		}
	}
	if len(ids) > 0 {
		d.enqueue(plugin.CmdUnpairBlocks, plugin.UnpairArgs{PageID: d.pageID, PairID: pairID})
	}
	return ids
}

// promoteTextSlot folds a pending text slot into the block before a
// structural operation snapshots its text, so split/merge always see the
// latest keystrokes. The structural command carries the final text, so the
// slot does not become a command of its own.
func (d *document) promoteTextSlot(b *block.Block) {
	if text, ok := d.textSlots[b.ID]; ok && b.Text != nil {
		b.Text.Text = text
		delete(d.textSlots, b.ID)
		for i, id := range d.textOrder {
			if id == b.ID {
				d.textOrder = append(d.textOrder[:i:i], d.textOrder[i+1:]...)
				break
			}
		}
	}
}

func (d *document) insertAt(at int, b *block.Block) {
	at = min(max(at, 0), len(d.blocks))
	d.blocks = append(d.blocks, nil)
	copy(d.blocks[at+1:], d.blocks[at:])
	d.blocks[at] = b
}

func (d *document) removeAt(at int) {
	d.blocks = append(d.blocks[:at:at], d.blocks[at+1:]...)
}
