package shadow

import (
	"blockpad/block"
	"blockpad/plugin"
)

// Table operations mutate TableContent in place. All of them are no-ops
// when the block is missing or is not a table.

// tableOp runs apply on a table block's content; apply reports whether the
// table changed and returns the command describing the change.
func (s *Store) tableOp(op, blockID string, apply func(tc *block.TableContent) (string, any, bool)) bool {
	return s.mutate(op, func(d *document) (Event, bool) {
		b := d.find(blockID)
		if b == nil || b.Table == nil {
			return Event{}, false
		}
		name, args, changed := apply(b.Table)
		if !changed {
			return Event{}, false
		}
		d.enqueue(name, args)
		return Event{Kind: EventBlocksChanged, BlockIDs: []string{blockID}}, true
	})
}

// AddTableRow inserts an empty row at the given index (clamped).
func (s *Store) AddTableRow(blockID string, at int) bool {
	return s.tableOp("add_table_row", blockID, func(tc *block.TableContent) (string, any, bool) {
		rowID := tc.InsertRow(at)
		return plugin.CmdAddTableRow, plugin.TableRowArgs{PageID: s.doc.pageID, BlockID: blockID, RowID: rowID, At: at}, true
	})
}

// RemoveTableRow removes the row with the given id.
func (s *Store) RemoveTableRow(blockID, rowID string) bool {
	return s.tableOp("remove_table_row", blockID, func(tc *block.TableContent) (string, any, bool) {
		if !tc.RemoveRow(rowID) {
			return "", nil, false
		}
		return plugin.CmdRemoveTableRow, plugin.TableRowArgs{PageID: s.doc.pageID, BlockID: blockID, RowID: rowID}, true
	})
}

// AddTableColumn inserts an empty column at the given index (clamped).
func (s *Store) AddTableColumn(blockID string, at int) bool {
	return s.tableOp("add_table_column", blockID, func(tc *block.TableContent) (string, any, bool) {
		tc.InsertColumn(at)
		return plugin.CmdAddTableColumn, plugin.TableColumnArgs{PageID: s.doc.pageID, BlockID: blockID, At: at}, true
	})
}

// RemoveTableColumn removes the column at the given index; the last column
// always stays.
func (s *Store) RemoveTableColumn(blockID string, at int) bool {
	return s.tableOp("remove_table_column", blockID, func(tc *block.TableContent) (string, any, bool) {
		if !tc.RemoveColumn(at) {
			return "", nil, false
		}
		return plugin.CmdRemoveTableColumn, plugin.TableColumnArgs{PageID: s.doc.pageID, BlockID: blockID, At: at}, true
	})
}

// SortTableRows reorders rows by the text of one column, stable for ties.
func (s *Store) SortTableRows(blockID string, column int, descending bool) bool {
	return s.tableOp("sort_table_rows", blockID, func(tc *block.TableContent) (string, any, bool) {
		if !tc.SortRows(column, descending) {
			return "", nil, false
		}
		return plugin.CmdSortTableColumn, plugin.SortTableArgs{PageID: s.doc.pageID, BlockID: blockID, Column: column, Descending: descending}, true
	})
}

// SetColumnWidths replaces the proportional column weights wholesale.
func (s *Store) SetColumnWidths(blockID string, weights []float64) bool {
	return s.tableOp("set_column_widths", blockID, func(tc *block.TableContent) (string, any, bool) {
		if !tc.SetWidths(weights) {
			return "", nil, false
		}
		return plugin.CmdSetColumnWidths, plugin.ColumnWidthsArgs{PageID: s.doc.pageID, BlockID: blockID, Widths: weights}, true
	})
}

// ToggleHeader flips header row visibility.
func (s *Store) ToggleHeader(blockID string) bool {
	return s.tableOp("toggle_header", blockID, func(tc *block.TableContent) (string, any, bool) {
		tc.ShowHeader = !tc.ShowHeader
		return plugin.CmdToggleTableHeader, plugin.BlockArgs{PageID: s.doc.pageID, BlockID: blockID}, true
	})
}

// ToggleAlternatingRows flips alternating row shading.
func (s *Store) ToggleAlternatingRows(blockID string) bool {
	return s.tableOp("toggle_alternating_rows", blockID, func(tc *block.TableContent) (string, any, bool) {
		tc.AlternatingRows = !tc.AlternatingRows
		return plugin.CmdToggleTableAltRows, plugin.BlockArgs{PageID: s.doc.pageID, BlockID: blockID}, true
	})
}

// UpdateCell replaces one table cell's text.
func (s *Store) UpdateCell(blockID, rowID, cellID, text string) bool {
	return s.tableOp("update_cell", blockID, func(tc *block.TableContent) (string, any, bool) {
		cell := tc.Cell(rowID, cellID)
		if cell == nil {
			return "", nil, false
		}
		cell.Text = block.NormalizeText(text)
		return plugin.CmdUpdateTableCell, plugin.TableCellArgs{PageID: s.doc.pageID, BlockID: blockID, RowID: rowID, CellID: cellID, Text: cell.Text}, true
	})
}
