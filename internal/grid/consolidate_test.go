package grid

import (
	"reflect"
	"testing"

	"shiftboard/api/internal/store"
)

func snapshot(people []string, slotIDs []string, cells [][]string) store.Snapshot {
	slots := make([]store.Slot, len(slotIDs))
	for i, id := range slotIDs {
		slots[i] = store.Slot{ID: id, Label: id, Position: i}
	}
	return store.Snapshot{People: people, Slots: slots, Cells: cells}
}

// assertTiling checks that the emitted blocks exactly partition the grid.
func assertTiling(t *testing.T, layout Layout, numRows, numCols int) {
	t.Helper()
	covered := make([][]bool, numRows)
	for i := range covered {
		covered[i] = make([]bool, numCols)
	}
	for _, block := range layout.Blocks {
		for r := block.Row; r < block.Row+block.RowSpan; r++ {
			for c := block.Col; c < block.Col+block.ColSpan; c++ {
				if r < 0 || r >= numRows || c < 0 || c >= numCols {
					t.Fatalf("block %+v escapes the %dx%d grid", block, numRows, numCols)
				}
				if covered[r][c] {
					t.Fatalf("cell (%d,%d) covered twice", r, c)
				}
				covered[r][c] = true
			}
		}
	}
	for r := 0; r < numRows; r++ {
		for c := 0; c < numCols; c++ {
			if !covered[r][c] {
				t.Fatalf("cell (%d,%d) not covered", r, c)
			}
		}
	}
}

func findBlock(t *testing.T, layout Layout, row, col int) Block {
	t.Helper()
	for _, block := range layout.Blocks {
		if block.Row == row && block.Col == col {
			return block
		}
	}
	t.Fatalf("no block anchored at (%d,%d)", row, col)
	return Block{}
}

func TestSimilarityIsSymmetric(t *testing.T) {
	rowA := []string{"Feed goats", "Clean barn", "", "Feed goats"}
	rowB := []string{"Feed goats", "Clean barn", "Lunch prep", ""}
	if got, want := Similarity(rowA, rowB), Similarity(rowB, rowA); got != want {
		t.Fatalf("similarity not symmetric: %v vs %v", got, want)
	}
}

func TestSimilarityRewardsStreaks(t *testing.T) {
	base := []string{"A", "B", "C", "D"}
	contiguous := []string{"A", "B", "", ""}
	scattered := []string{"A", "", "C", ""}
	if Similarity(base, contiguous) <= Similarity(base, scattered) {
		t.Fatalf("contiguous matches should score higher: %v vs %v",
			Similarity(base, contiguous), Similarity(base, scattered))
	}
	// Two matches plus a streak of two.
	if got := Similarity(base, contiguous); got != 3.0 {
		t.Fatalf("expected score 3.0, got %v", got)
	}
	// Two scattered matches, best streak of one.
	if got := Similarity(base, scattered); got != 2.5 {
		t.Fatalf("expected score 2.5, got %v", got)
	}
}

func TestSimilarityIgnoresEmptyCells(t *testing.T) {
	if got := Similarity([]string{"", ""}, []string{"", ""}); got != 0 {
		t.Fatalf("empty rows should not match, got %v", got)
	}
}

func TestOrderRowsSeedsViewer(t *testing.T) {
	cells := [][]string{
		{"Feed goats"},
		{"Clean barn"},
		{"Feed goats"},
	}
	people := []string{"Ana", "Bo", "Cy"}
	order := OrderRows(cells, people, "Bo")
	if order[0] != 1 {
		t.Fatalf("viewer row should come first, got order %v", order)
	}
}

func TestOrderRowsIsDeterministic(t *testing.T) {
	cells := [][]string{
		{"A", "B"},
		{"C", "D"},
		{"E", "F"},
	}
	first := OrderRows(cells, []string{"p0", "p1", "p2"}, "")
	for i := 0; i < 10; i++ {
		again := OrderRows(cells, []string{"p0", "p1", "p2"}, "")
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("ordering not deterministic: %v vs %v", first, again)
		}
	}
	// All rows are mutually dissimilar; ties fall back to canonical order.
	if !reflect.DeepEqual(first, []int{0, 1, 2}) {
		t.Fatalf("expected canonical order on ties, got %v", first)
	}
}

func TestOrderRowsClustersSimilarRows(t *testing.T) {
	cells := [][]string{
		{"Feed goats", "Clean barn"},
		{"Lunch prep", "Dishes"},
		{"Feed goats", "Clean barn"},
	}
	order := OrderRows(cells, []string{"Ana", "Bo", "Cy"}, "")
	// Row 2 matches row 0 on both slots and should be placed right after it.
	if order[0] != 0 || order[1] != 2 {
		t.Fatalf("expected [0 2 1], got %v", order)
	}
}

func TestConsolidateMergesSharedColumn(t *testing.T) {
	snap := snapshot(
		[]string{"Ana", "Bo"},
		[]string{"AM", "PM"},
		[][]string{
			{"Feed goats", "Clean barn"},
			{"Feed goats", ""},
		},
	)
	layout := Consolidate(snap, "")
	assertTiling(t, layout, 2, 2)

	am := findBlock(t, layout, 0, 0)
	if am.RowSpan != 2 || am.ColSpan != 1 {
		t.Fatalf("AM block should span both rows: %+v", am)
	}
	if len(am.Tasks) != 1 || am.Tasks[0].Base != "Feed goats" {
		t.Fatalf("unexpected AM tasks: %+v", am.Tasks)
	}
	if !reflect.DeepEqual(am.Tasks[0].Assignees, []string{"Ana", "Bo"}) {
		t.Fatalf("unexpected AM assignees: %v", am.Tasks[0].Assignees)
	}

	// PM stays unmerged: Bo's cell is empty.
	pmAna := findBlock(t, layout, 0, 1)
	if pmAna.RowSpan != 1 || pmAna.ColSpan != 1 {
		t.Fatalf("Ana's PM block should be 1x1: %+v", pmAna)
	}
	pmBo := findBlock(t, layout, 1, 1)
	if pmBo.RowSpan != 1 || pmBo.ColSpan != 1 || pmBo.Raw != "" {
		t.Fatalf("Bo's PM block should be an empty 1x1: %+v", pmBo)
	}
}

func TestConsolidateAllEmptyMatrix(t *testing.T) {
	snap := snapshot(
		[]string{"Ana", "Bo", "Cy"},
		[]string{"AM", "PM"},
		[][]string{{"", ""}, {"", ""}, {"", ""}},
	)
	layout := Consolidate(snap, "")
	assertTiling(t, layout, 3, 2)
	if len(layout.Blocks) != 6 {
		t.Fatalf("every empty cell should be its own 1x1 block, got %d blocks", len(layout.Blocks))
	}
	for _, block := range layout.Blocks {
		if block.RowSpan != 1 || block.ColSpan != 1 {
			t.Fatalf("empty cells must never merge: %+v", block)
		}
	}
}

func TestConsolidateFullyIdenticalMatrix(t *testing.T) {
	snap := snapshot(
		[]string{"Ana", "Bo", "Cy"},
		[]string{"AM", "PM"},
		[][]string{
			{"Feed goats", "Feed goats"},
			{"Feed goats", "Feed goats"},
			{"Feed goats", "Feed goats"},
		},
	)
	layout := Consolidate(snap, "")
	assertTiling(t, layout, 3, 2)
	if len(layout.Blocks) != 1 {
		t.Fatalf("expected a single block, got %d", len(layout.Blocks))
	}
	block := layout.Blocks[0]
	if block.RowSpan != 3 || block.ColSpan != 2 {
		t.Fatalf("expected 3x2 block, got %+v", block)
	}
}

func TestConsolidateColumnMergeRequiresEqualRowSpan(t *testing.T) {
	// AM merges rows 0-1; PM merges rows 0-2. Unequal heights must not
	// column-merge even though row 0's signatures match across columns.
	snap := snapshot(
		[]string{"Ana", "Bo", "Cy"},
		[]string{"AM", "PM"},
		[][]string{
			{"Feed goats", "Feed goats"},
			{"Feed goats", "Feed goats"},
			{"Dishes", "Feed goats"},
		},
	)
	layout := Consolidate(snap, "")
	assertTiling(t, layout, 3, 2)
	am := findBlock(t, layout, 0, 0)
	if am.ColSpan != 1 {
		t.Fatalf("unequal rowSpans must not column-merge: %+v", am)
	}
}

func TestConsolidateMergesMatchingColumns(t *testing.T) {
	snap := snapshot(
		[]string{"Ana", "Bo"},
		[]string{"AM", "Midday", "PM"},
		[][]string{
			{"Feed goats", "Feed goats", "Dishes"},
			{"Feed goats", "Feed goats", "Lunch prep"},
		},
	)
	layout := Consolidate(snap, "")
	assertTiling(t, layout, 2, 3)
	block := findBlock(t, layout, 0, 0)
	if block.RowSpan != 2 || block.ColSpan != 2 {
		t.Fatalf("expected 2x2 block over AM+Midday, got %+v", block)
	}
}

func TestConsolidateSignatureIgnoresTaskOrderAndNotes(t *testing.T) {
	snap := snapshot(
		[]string{"Ana", "Bo"},
		[]string{"AM"},
		[][]string{
			{"Feed goats, Clean barn\nAna's note"},
			{"clean barn, Feed Goats"},
		},
	)
	layout := Consolidate(snap, "")
	assertTiling(t, layout, 2, 1)
	block := findBlock(t, layout, 0, 0)
	if block.RowSpan != 2 {
		t.Fatalf("order and note differences must still merge: %+v", block)
	}
	if block.Note != "Ana's note" {
		t.Fatalf("anchor cell's note should surface: %+v", block)
	}
}

func TestConsolidateViewerListedFirstInAssignees(t *testing.T) {
	snap := snapshot(
		[]string{"Ana", "Bo"},
		[]string{"AM"},
		[][]string{
			{"Feed goats"},
			{"Feed goats"},
		},
	)
	layout := Consolidate(snap, "Bo")
	block := findBlock(t, layout, 0, 0)
	if len(block.Tasks) != 1 {
		t.Fatalf("unexpected tasks: %+v", block.Tasks)
	}
	if block.Tasks[0].Assignees[0] != "Bo" {
		t.Fatalf("viewer should lead the assignee list: %v", block.Tasks[0].Assignees)
	}
}

func TestConsolidateEmptyMatrixDimensions(t *testing.T) {
	layout := Consolidate(store.Snapshot{}, "")
	if len(layout.Blocks) != 0 {
		t.Fatalf("empty snapshot should produce no blocks: %+v", layout.Blocks)
	}
}
