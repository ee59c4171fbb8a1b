package block

import (
	"sort"
	"strings"

	"github.com/maruel/natural"
)

// TableContent is the payload of table blocks. ColumnWidths are proportional
// weights, one per column; the renderer decides what a weight of 1 means.
type TableContent struct {
	Columns         []ColumnSpec `json:"columns"`
	ColumnWidths    []float64    `json:"column_widths,omitempty"`
	ShowHeader      bool         `json:"show_header,omitempty"`
	AlternatingRows bool         `json:"alternating_rows,omitempty"`
	HeaderRow       *TableRow    `json:"header_row,omitempty"`
	Rows            []TableRow   `json:"rows"`
}

// ColumnSpec describes one table column.
type ColumnSpec struct {
	Align Align `json:"align,omitempty"`
}

// TableRow is one ordered row of cells.
type TableRow struct {
	ID    string      `json:"id"`
	Cells []TableCell `json:"cells"`
}

// TableCell holds one cell's text.
type TableCell struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// NewTable creates a table block with the requested dimensions, one equal
// width weight per column.
func NewTable(columns, rows int) *Block {
	columns = max(columns, 1)
	tc := &TableContent{
		Columns:      make([]ColumnSpec, columns),
		ColumnWidths: make([]float64, columns),
	}
	for i := range tc.ColumnWidths {
		tc.ColumnWidths[i] = 1
	}
	for range max(rows, 1) {
		tc.Rows = append(tc.Rows, tc.newRow())
	}
	return &Block{ID: NewID(), Type: BlockTypeTable, Layout: LayoutNormal, Table: tc}
}

func (tc *TableContent) newRow() TableRow {
	row := TableRow{ID: NewID()}
	for range tc.Columns {
		row.Cells = append(row.Cells, TableCell{ID: NewID()})
	}
	return row
}

// InsertRow inserts an empty row at the given index (clamped) and returns its id.
func (tc *TableContent) InsertRow(at int) string {
	at = min(max(at, 0), len(tc.Rows))
	row := tc.newRow()
	tc.Rows = append(tc.Rows, TableRow{})
	copy(tc.Rows[at+1:], tc.Rows[at:])
	tc.Rows[at] = row
	return row.ID
}

// RemoveRow removes the row with the given id, reporting whether it existed.
func (tc *TableContent) RemoveRow(rowID string) bool {
	for i := range tc.Rows {
		if tc.Rows[i].ID == rowID {
			tc.Rows = append(tc.Rows[:i:i], tc.Rows[i+1:]...)
			return true
		}
	}
	return false
}

// InsertColumn inserts an empty column at the given index (clamped) into the
// column specs, widths, header and every row. New column weight is 1.
func (tc *TableContent) InsertColumn(at int) {
	at = min(max(at, 0), len(tc.Columns))

	tc.Columns = append(tc.Columns, ColumnSpec{})
	copy(tc.Columns[at+1:], tc.Columns[at:])
	tc.Columns[at] = ColumnSpec{}

	if len(tc.ColumnWidths) > 0 {
		tc.ColumnWidths = append(tc.ColumnWidths, 0)
		copy(tc.ColumnWidths[at+1:], tc.ColumnWidths[at:])
		tc.ColumnWidths[at] = 1
	}

	insertCell := func(row *TableRow) {
		row.Cells = append(row.Cells, TableCell{})
		copy(row.Cells[at+1:], row.Cells[at:])
		row.Cells[at] = TableCell{ID: NewID()}
	}
	if tc.HeaderRow != nil {
		insertCell(tc.HeaderRow)
	}
	for i := range tc.Rows {
		insertCell(&tc.Rows[i])
	}
}

// RemoveColumn removes the column at the given index from specs, widths,
// header and rows. The last remaining column cannot be removed.
func (tc *TableContent) RemoveColumn(at int) bool {
	if at < 0 || at >= len(tc.Columns) || len(tc.Columns) == 1 {
		return false
	}
	tc.Columns = append(tc.Columns[:at:at], tc.Columns[at+1:]...)
	if at < len(tc.ColumnWidths) {
		tc.ColumnWidths = append(tc.ColumnWidths[:at:at], tc.ColumnWidths[at+1:]...)
	}
	removeCell := func(row *TableRow) {
		if at < len(row.Cells) {
			row.Cells = append(row.Cells[:at:at], row.Cells[at+1:]...)
		}
	}
	if tc.HeaderRow != nil {
		removeCell(tc.HeaderRow)
	}
	for i := range tc.Rows {
		removeCell(&tc.Rows[i])
	}
	return true
}

// SortRows reorders rows by the text of the given column, stable with
// respect to ties, using human friendly ordering ("item2" before "item10").
func (tc *TableContent) SortRows(column int, descending bool) bool {
	if column < 0 || column >= len(tc.Columns) {
		return false
	}
	key := func(row TableRow) string {
		if column < len(row.Cells) {
			return row.Cells[column].Text
		}
		return ""
	}
	sort.SliceStable(tc.Rows, func(i, j int) bool {
		if descending {
			i, j = j, i
		}
		return natural.Less(key(tc.Rows[i]), key(tc.Rows[j]))
	})
	return true
}

// SetWidths replaces the proportional column weights. Weight count must
// match the column count and weights must be positive.
func (tc *TableContent) SetWidths(weights []float64) bool {
	if len(weights) != len(tc.Columns) {
		return false
	}
	for _, w := range weights {
		if w <= 0 {
			return false
		}
	}
	tc.ColumnWidths = append([]float64(nil), weights...)
	return true
}

// Cell looks up a cell by row and cell id, nil when absent.
func (tc *TableContent) Cell(rowID, cellID string) *TableCell {
	find := func(row *TableRow) *TableCell {
		for i := range row.Cells {
			if row.Cells[i].ID == cellID {
				return &row.Cells[i]
			}
		}
		return nil
	}
	if tc.HeaderRow != nil && tc.HeaderRow.ID == rowID {
		return find(tc.HeaderRow)
	}
	for i := range tc.Rows {
		if tc.Rows[i].ID == rowID {
			return find(&tc.Rows[i])
		}
	}
	return nil
}

// AsPlainText extracts the text of all cells in display order.
func (tc *TableContent) AsPlainText() string {
	var buf strings.Builder
	if tc.HeaderRow != nil {
		joinNonEmpty(&buf, tc.HeaderRow.AsPlainText())
	}
	for i := range tc.Rows {
		joinNonEmpty(&buf, tc.Rows[i].AsPlainText())
	}
	return buf.String()
}

// AsPlainText extracts the text of all cells in the row.
func (tr *TableRow) AsPlainText() string {
	var buf strings.Builder
	for i := range tr.Cells {
		joinNonEmpty(&buf, strings.TrimSpace(tr.Cells[i].Text))
	}
	return buf.String()
}
