package block

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Wire (de)serialization of block arrays. The plugin speaks exactly this
// shape, so the shadow store and the reference plugin host share it.

// Marshal serializes an ordered block sequence to the wire shape.
func Marshal(blocks []*Block) ([]byte, error) {
	data, err := json.Marshal(blocks)
	if err != nil {
		return nil, fmt.Errorf("unable to marshal blocks: %w", err)
	}
	return data, nil
}

// Unmarshal parses a backend supplied block array. Malformed or empty data is
// treated as "no blocks" rather than an error - callers render an empty page.
// Entries failing validation are dropped with a warning.
func Unmarshal(data []byte, log *zap.Logger) []*Block {
	if log == nil {
		log = zap.NewNop()
	}
	if len(data) == 0 {
		return nil
	}
	var blocks []*Block
	if err := json.Unmarshal(data, &blocks); err != nil {
		log.Warn("Malformed block data, treating page as empty", zap.Error(err))
		return nil
	}
	return Sanitize(blocks, log)
}

// Sanitize drops malformed entries and duplicated ids keeping the relative
// order of survivors. The returned sequence always satisfies the model
// invariants regardless of what the backend sent.
func Sanitize(blocks []*Block, log *zap.Logger) []*Block {
	if log == nil {
		log = zap.NewNop()
	}
	seen := make(map[string]struct{}, len(blocks))
	out := make([]*Block, 0, len(blocks))
	for _, b := range blocks {
		if !b.Validate() {
			log.Warn("Dropping malformed block", zap.Any("block", b))
			continue
		}
		if _, dup := seen[b.ID]; dup {
			log.Warn("Dropping block with duplicate id", zap.String("id", b.ID))
			continue
		}
		seen[b.ID] = struct{}{}
		out = append(out, b)
	}
	return repairPairs(out)
}

// RepairAppendedPairs settles pairing state on blocks appended after the
// existing sequence. Appended pairing can only hold between two adjacent
// blocks of the same appended batch; a pair id colliding with one already
// present clears too. Blocks in existing are never modified.
func RepairAppendedPairs(existing, appended []*Block) {
	reserved := make(map[string]struct{}, len(existing))
	for _, b := range existing {
		if b.PairID != "" {
			reserved[b.PairID] = struct{}{}
		}
	}
	count := make(map[string]int)
	for _, b := range appended {
		if b.PairID != "" {
			count[b.PairID]++
		}
	}
	adjacent := func(i int) bool {
		b := appended[i]
		if i > 0 && appended[i-1].PairID == b.PairID {
			return true
		}
		return i+1 < len(appended) && appended[i+1].PairID == b.PairID
	}
	for i, b := range appended {
		if b.PairID == "" && b.Layout != LayoutSideBySide {
			continue
		}
		_, clash := reserved[b.PairID]
		if b.PairID == "" || clash || count[b.PairID] != 2 || !adjacent(i) {
			b.PairID = ""
			b.Layout = LayoutNormal
		}
	}
}

// repairPairs clears pairing state that does not satisfy the invariant:
// a pair id must be shared by exactly two blocks adjacent in the sequence.
func repairPairs(blocks []*Block) []*Block {
	count := make(map[string]int)
	for _, b := range blocks {
		if b.PairID != "" {
			count[b.PairID]++
		}
	}
	adjacent := func(i int) bool {
		b := blocks[i]
		if i > 0 && blocks[i-1].PairID == b.PairID {
			return true
		}
		return i+1 < len(blocks) && blocks[i+1].PairID == b.PairID
	}
	for i, b := range blocks {
		if b.PairID == "" && b.Layout != LayoutSideBySide {
			continue
		}
		if b.PairID == "" || count[b.PairID] != 2 || !adjacent(i) {
			b.PairID = ""
			b.Layout = LayoutNormal
		}
	}
	return blocks
}
