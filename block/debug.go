package block

import (
	"blockpad/utils/debug"
)

type treeWriter struct {
	*debug.TreeWriter
}

// DumpBlocks returns a readable tree of a block sequence. It exists solely
// for manual inspection during debugging and for the debug report.
func DumpBlocks(blocks []*Block) string {
	tw := treeWriter{debug.NewTreeWriter()}
	tw.Line(0, "Blocks: %d", len(blocks))
	for i, b := range blocks {
		tw.block(1, i, b)
	}
	return tw.String()
}

func (tw treeWriter) block(depth, idx int, b *Block) {
	if b == nil {
		tw.Line(depth, "Block[%d] <nil>", idx)
		return
	}
	if b.Paired() {
		tw.Line(depth, "Block[%d] id=%q type=%s pair=%q", idx, b.ID, b.Type, b.PairID)
	} else {
		tw.Line(depth, "Block[%d] id=%q type=%s", idx, b.ID, b.Type)
	}
	switch {
	case b.Text != nil:
		tw.TextBlock(depth+1, "text", b.Text.Text)
		if b.Text.Level > 0 {
			tw.Line(depth+1, "level=%d", b.Text.Level)
		}
		if b.Text.Language != "" {
			tw.Line(depth+1, "language=%q", b.Text.Language)
		}
		if b.Text.Icon != "" {
			tw.Line(depth+1, "icon=%q", b.Text.Icon)
		}
	case b.List != nil:
		b.List.Walk(func(item *ListItem, itemDepth int) {
			check := ""
			if b.Type == BlockTypeTaskList {
				check = " [ ]"
				if item.Checked {
					check = " [x]"
				}
			}
			tw.TextBlock(depth+1+itemDepth, "item"+check, item.Text)
		})
	case b.Table != nil:
		tw.Line(depth+1, "columns=%d widths=%v header=%t alternating=%t", len(b.Table.Columns), b.Table.ColumnWidths, b.Table.ShowHeader, b.Table.AlternatingRows)
		if b.Table.HeaderRow != nil {
			tw.row(depth+1, "header", *b.Table.HeaderRow)
		}
		for i := range b.Table.Rows {
			tw.row(depth+1, "row", b.Table.Rows[i])
		}
	case b.Image != nil:
		tw.Line(depth+1, "url=%q alt=%q align=%s", b.Image.URL, b.Image.Alt, b.Image.Align)
		if b.Image.Width != nil {
			tw.Line(depth+1, "width=%d", *b.Image.Width)
		}
	}
}

func (tw treeWriter) row(depth int, label string, row TableRow) {
	tw.Line(depth, "%s id=%q", label, row.ID)
	for i := range row.Cells {
		tw.TextBlock(depth+1, "cell", row.Cells[i].Text)
	}
}
