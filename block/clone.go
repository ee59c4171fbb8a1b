package block

// Deep copy helpers. The shadow store hands out clones so nothing outside it
// can alias store-owned memory.

// Clone creates a deep copy of the block.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	clone := *b
	clone.Text = b.Text.clone()
	clone.List = b.List.clone()
	clone.Table = b.Table.clone()
	clone.Image = b.Image.clone()
	return &clone
}

// CloneBlocks deep copies an ordered block sequence.
func CloneBlocks(blocks []*Block) []*Block {
	if blocks == nil {
		return nil
	}
	result := make([]*Block, len(blocks))
	for i := range blocks {
		result[i] = blocks[i].Clone()
	}
	return result
}

func (tc *TextContent) clone() *TextContent {
	if tc == nil {
		return nil
	}
	clone := *tc
	return &clone
}

func (ic *ImageContent) clone() *ImageContent {
	if ic == nil {
		return nil
	}
	clone := *ic
	if ic.Width != nil {
		w := *ic.Width
		clone.Width = &w
	}
	return &clone
}

func (lc *ListContent) clone() *ListContent {
	if lc == nil {
		return nil
	}
	clone := &ListContent{
		Roots: append([]string(nil), lc.Roots...),
	}
	if lc.Items != nil {
		clone.Items = make(map[string]*ListItem, len(lc.Items))
		for id, item := range lc.Items {
			ic := *item
			ic.Children = append([]string(nil), item.Children...)
			clone.Items[id] = &ic
		}
	}
	return clone
}

func (tc *TableContent) clone() *TableContent {
	if tc == nil {
		return nil
	}
	clone := &TableContent{
		Columns:         append([]ColumnSpec(nil), tc.Columns...),
		ColumnWidths:    append([]float64(nil), tc.ColumnWidths...),
		ShowHeader:      tc.ShowHeader,
		AlternatingRows: tc.AlternatingRows,
	}
	if tc.HeaderRow != nil {
		hr := cloneRow(*tc.HeaderRow)
		clone.HeaderRow = &hr
	}
	if tc.Rows != nil {
		clone.Rows = make([]TableRow, len(tc.Rows))
		for i := range tc.Rows {
			clone.Rows[i] = cloneRow(tc.Rows[i])
		}
	}
	return clone
}

func cloneRow(row TableRow) TableRow {
	return TableRow{
		ID:    row.ID,
		Cells: append([]TableCell(nil), row.Cells...),
	}
}
