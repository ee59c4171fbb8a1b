package plugin

import (
	"encoding/json"
	"fmt"

	"blockpad/block"
)

// Apply replays one command onto a page's block array the way the real
// backend of record would, returning the updated sequence. It backs the
// loopback transport and the reference plugin host, which makes drained
// command streams verifiable end to end in tests.
//
// Unknown block references are ignored without error - the editor may
// legitimately reference blocks the backend already dropped.
func Apply(blocks []*block.Block, cmd Command) ([]*block.Block, error) {
	switch cmd.Name {

	case CmdUpdateBlock:
		var a TextArgs
		if err := decode(cmd, &a); err != nil {
			return blocks, err
		}
		if b := find(blocks, a.BlockID); b != nil && b.Text != nil {
			b.Text.Text = a.Text
		}

	case CmdAddBlock:
		var a AddBlockArgs
		if err := decode(cmd, &a); err != nil {
			return blocks, err
		}
		if !a.Block.Validate() || find(blocks, a.Block.ID) != nil {
			return blocks, nil
		}
		if after := index(blocks, a.After); after >= 0 {
			blocks = insertAt(blocks, after+1, a.Block)
		} else {
			blocks = append(blocks, a.Block)
		}

	case CmdRemoveBlock:
		var a BlockArgs
		if err := decode(cmd, &a); err != nil {
			return blocks, err
		}
		if i := index(blocks, a.BlockID); i >= 0 {
			dissolvePair(blocks, blocks[i].PairID)
			blocks = append(blocks[:i:i], blocks[i+1:]...)
		}

	case CmdSplitBlock:
		var a SplitArgs
		if err := decode(cmd, &a); err != nil {
			return blocks, err
		}
		if i := index(blocks, a.BlockID); i >= 0 && blocks[i].Text != nil {
			src := blocks[i]
			src.Text.Text = a.Text
			next := src.Clone()
			next.ID = a.NewBlockID
			next.Layout, next.PairID = block.LayoutNormal, ""
			next.Text.Text = a.AfterText
			blocks = insertAt(blocks, i+1, next)
		}

	case CmdMergeBlock:
		var a MergeArgs
		if err := decode(cmd, &a); err != nil {
			return blocks, err
		}
		if i := index(blocks, a.BlockID); i > 0 && blocks[i].Text != nil && blocks[i-1].Text != nil {
			blocks[i-1].Text.Text = a.Text
			dissolvePair(blocks, blocks[i].PairID)
			blocks = append(blocks[:i:i], blocks[i+1:]...)
		}

	case CmdReorderBlock:
		var a ReorderArgs
		if err := decode(cmd, &a); err != nil {
			return blocks, err
		}
		i := index(blocks, a.BlockID)
		if i < 0 || a.BlockID == a.TargetID {
			return blocks, nil
		}
		dissolvePair(blocks, blocks[i].PairID)
		moved := blocks[i]
		blocks = append(blocks[:i:i], blocks[i+1:]...)
		j := index(blocks, a.TargetID)
		if j < 0 {
			return insertAt(blocks, i, moved), nil
		}
		dissolvePair(blocks, blocks[j].PairID)
		if a.Position == "after" {
			j++
		}
		blocks = insertAt(blocks, j, moved)

	case CmdPairBlocks:
		var a PairArgs
		if err := decode(cmd, &a); err != nil {
			return blocks, err
		}
		i, j := index(blocks, a.BlockA), index(blocks, a.BlockB)
		if i < 0 || j < 0 || (j != i+1 && i != j+1) {
			return blocks, nil
		}
		for _, b := range []*block.Block{blocks[i], blocks[j]} {
			b.Layout = block.LayoutSideBySide
			b.PairID = a.PairID
		}

	case CmdUnpairBlocks:
		var a UnpairArgs
		if err := decode(cmd, &a); err != nil {
			return blocks, err
		}
		dissolvePair(blocks, a.PairID)

	case CmdIndentListItem, CmdOutdentListItem, CmdUpdateListItem:
		var a ListItemArgs
		if err := decode(cmd, &a); err != nil {
			return blocks, err
		}
		b := find(blocks, a.BlockID)
		if b == nil || b.List == nil {
			return blocks, nil
		}
		switch cmd.Name {
		case CmdIndentListItem:
			b.List.Indent(a.ItemID)
		case CmdOutdentListItem:
			b.List.Outdent(a.ItemID)
		default:
			if item := b.List.Item(a.ItemID); item != nil {
				item.Text = a.Text
				if a.Checked != nil {
					item.Checked = *a.Checked
				}
			}
		}

	case CmdAddTableRow:
		var a TableRowArgs
		if err := decode(cmd, &a); err != nil {
			return blocks, err
		}
		if b := find(blocks, a.BlockID); b != nil && b.Table != nil {
			b.Table.InsertRow(a.At)
		}

	case CmdRemoveTableRow:
		var a TableRowArgs
		if err := decode(cmd, &a); err != nil {
			return blocks, err
		}
		if b := find(blocks, a.BlockID); b != nil && b.Table != nil {
			b.Table.RemoveRow(a.RowID)
		}

	case CmdAddTableColumn:
		var a TableColumnArgs
		if err := decode(cmd, &a); err != nil {
			return blocks, err
		}
		if b := find(blocks, a.BlockID); b != nil && b.Table != nil {
			b.Table.InsertColumn(a.At)
		}

	case CmdRemoveTableColumn:
		var a TableColumnArgs
		if err := decode(cmd, &a); err != nil {
			return blocks, err
		}
		if b := find(blocks, a.BlockID); b != nil && b.Table != nil {
			b.Table.RemoveColumn(a.At)
		}

	case CmdUpdateTableCell:
		var a TableCellArgs
		if err := decode(cmd, &a); err != nil {
			return blocks, err
		}
		if b := find(blocks, a.BlockID); b != nil && b.Table != nil {
			if cell := b.Table.Cell(a.RowID, a.CellID); cell != nil {
				cell.Text = a.Text
			}
		}

	case CmdSortTableColumn:
		var a SortTableArgs
		if err := decode(cmd, &a); err != nil {
			return blocks, err
		}
		if b := find(blocks, a.BlockID); b != nil && b.Table != nil {
			b.Table.SortRows(a.Column, a.Descending)
		}

	case CmdSetColumnWidths:
		var a ColumnWidthsArgs
		if err := decode(cmd, &a); err != nil {
			return blocks, err
		}
		if b := find(blocks, a.BlockID); b != nil && b.Table != nil {
			b.Table.SetWidths(a.Widths)
		}

	case CmdToggleTableHeader:
		var a BlockArgs
		if err := decode(cmd, &a); err != nil {
			return blocks, err
		}
		if b := find(blocks, a.BlockID); b != nil && b.Table != nil {
			b.Table.ShowHeader = !b.Table.ShowHeader
		}

	case CmdToggleTableAltRows:
		var a BlockArgs
		if err := decode(cmd, &a); err != nil {
			return blocks, err
		}
		if b := find(blocks, a.BlockID); b != nil && b.Table != nil {
			b.Table.AlternatingRows = !b.Table.AlternatingRows
		}

	case CmdUpdateImageURL, CmdUpdateImageAlt, CmdUpdateImageAlign:
		var a ImageValueArgs
		if err := decode(cmd, &a); err != nil {
			return blocks, err
		}
		b := find(blocks, a.BlockID)
		if b == nil || b.Image == nil {
			return blocks, nil
		}
		switch cmd.Name {
		case CmdUpdateImageURL:
			b.Image.URL = a.Value
		case CmdUpdateImageAlt:
			b.Image.Alt = a.Value
		default:
			if al, err := block.ParseAlign(a.Value); err == nil {
				b.Image.Align = al
			}
		}

	case CmdUpdateImageWidth:
		var a ImageWidthArgs
		if err := decode(cmd, &a); err != nil {
			return blocks, err
		}
		if b := find(blocks, a.BlockID); b != nil && b.Image != nil {
			b.Image.Width = a.Width
		}

	case CmdMovePage, CmdSavePage:
		// page-level commands do not touch block content

	default:
		return blocks, fmt.Errorf("unknown command %q", cmd.Name)
	}
	return blocks, nil
}

func decode(cmd Command, into any) error {
	if err := json.Unmarshal(cmd.Args, into); err != nil {
		return fmt.Errorf("malformed %s args: %w", cmd.Name, err)
	}
	return nil
}

func find(blocks []*block.Block, id string) *block.Block {
	if i := index(blocks, id); i >= 0 {
		return blocks[i]
	}
	return nil
}

func index(blocks []*block.Block, id string) int {
	if id == "" {
		return -1
	}
	for i, b := range blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func insertAt(blocks []*block.Block, at int, b *block.Block) []*block.Block {
	at = min(max(at, 0), len(blocks))
	blocks = append(blocks, nil)
	copy(blocks[at+1:], blocks[at:])
	blocks[at] = b
	return blocks
}

func dissolvePair(blocks []*block.Block, pairID string) {
	if pairID == "" {
		return
	}
	for _, b := range blocks {
		if b.PairID == pairID {
			b.PairID = ""
			b.Layout = block.LayoutNormal
		}
	}
}
