package block

import "testing"

func seedTable(t *testing.T, cells ...string) *TableContent {
	t.Helper()
	tc := NewTable(1, len(cells)).Table
	for i, text := range cells {
		tc.Rows[i].Cells[0].Text = text
	}
	return tc
}

func TestTableRowColumnEdits(t *testing.T) {
	t.Run("insert and remove row", func(t *testing.T) {
		tc := seedTable(t, "one", "two")
		id := tc.InsertRow(1)
		if len(tc.Rows) != 3 || tc.Rows[1].ID != id {
			t.Fatalf("row not inserted at position 1: %v", tc.Rows)
		}
		if !tc.RemoveRow(id) {
			t.Fatal("remove of existing row failed")
		}
		if tc.RemoveRow(id) {
			t.Fatal("remove of missing row should report false")
		}
	})

	t.Run("insert column extends every row and widths", func(t *testing.T) {
		tc := seedTable(t, "one", "two")
		tc.InsertColumn(1)
		if len(tc.Columns) != 2 || len(tc.ColumnWidths) != 2 {
			t.Fatalf("column bookkeeping wrong: %d cols, %d widths", len(tc.Columns), len(tc.ColumnWidths))
		}
		for i := range tc.Rows {
			if len(tc.Rows[i].Cells) != 2 {
				t.Fatalf("row %d not extended", i)
			}
			if tc.Rows[i].Cells[1].ID == "" {
				t.Fatalf("new cell in row %d has no id", i)
			}
		}
	})

	t.Run("last column cannot be removed", func(t *testing.T) {
		tc := seedTable(t, "one")
		if tc.RemoveColumn(0) {
			t.Fatal("single column table must keep its column")
		}
	})
}

func TestTableSortRows(t *testing.T) {
	tc := seedTable(t, "item10", "item2", "item1")
	if !tc.SortRows(0, false) {
		t.Fatal("sort failed")
	}
	got := []string{tc.Rows[0].Cells[0].Text, tc.Rows[1].Cells[0].Text, tc.Rows[2].Cells[0].Text}
	want := []string{"item1", "item2", "item10"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("natural sort order %v, want %v", got, want)
		}
	}

	if !tc.SortRows(0, true) {
		t.Fatal("descending sort failed")
	}
	if tc.Rows[0].Cells[0].Text != "item10" {
		t.Fatalf("descending sort starts with %q", tc.Rows[0].Cells[0].Text)
	}

	if tc.SortRows(5, false) {
		t.Fatal("sort by missing column should report false")
	}
}

func TestTableSortStable(t *testing.T) {
	tc := NewTable(2, 3).Table
	for i, pair := range [][2]string{{"same", "first"}, {"same", "second"}, {"same", "third"}} {
		tc.Rows[i].Cells[0].Text = pair[0]
		tc.Rows[i].Cells[1].Text = pair[1]
	}
	tc.SortRows(0, false)
	got := []string{tc.Rows[0].Cells[1].Text, tc.Rows[1].Cells[1].Text, tc.Rows[2].Cells[1].Text}
	want := []string{"first", "second", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ties reordered: %v", got)
		}
	}
}

func TestTableSetWidths(t *testing.T) {
	tc := NewTable(2, 1).Table
	if tc.SetWidths([]float64{1}) {
		t.Fatal("width count mismatch should be rejected")
	}
	if tc.SetWidths([]float64{1, -1}) {
		t.Fatal("non-positive weight should be rejected")
	}
	if !tc.SetWidths([]float64{2, 3}) {
		t.Fatal("valid weights rejected")
	}
	if tc.ColumnWidths[0] != 2 || tc.ColumnWidths[1] != 3 {
		t.Fatalf("weights not applied: %v", tc.ColumnWidths)
	}
}
