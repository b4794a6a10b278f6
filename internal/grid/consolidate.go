package grid

import (
	"strings"

	"shiftboard/api/internal/cell"
	"shiftboard/api/internal/store"
)

// TaskItem is one task rendered inside a block. Assignees is the task's own
// assignee list across the block's covered rows; a block can merge visually
// while its tasks fan out over different people. The viewer, when covered,
// is listed first.
type TaskItem struct {
	Ref       string   `json:"ref"`
	Base      string   `json:"base"`
	Assignees []string `json:"assignees"`
}

// Block is one visible rectangle of the consolidated grid. Row and Col index
// into the layout's reordered people and the slot list. Empty cells are
// emitted as 1x1 blocks with no tasks.
type Block struct {
	Row     int        `json:"row"`
	Col     int        `json:"col"`
	RowSpan int        `json:"rowSpan"`
	ColSpan int        `json:"colSpan"`
	Raw     string     `json:"raw"`
	Tasks   []TaskItem `json:"tasks,omitempty"`
	Note    string     `json:"note,omitempty"`
}

// Layout is the render geometry for one matrix: people in display order,
// slots in canonical order, and blocks that exactly tile the grid with no
// gaps and no overlaps.
type Layout struct {
	People []string     `json:"people"`
	Slots  []store.Slot `json:"slots"`
	Blocks []Block      `json:"blocks"`
}

// Consolidate reorders the snapshot's rows and computes the merge geometry.
// Vertical runs of signature-equal non-empty cells collapse first, then
// surviving anchors absorb equal-height, signature-equal neighbours to the
// right. Blocks are emitted row-major.
func Consolidate(snap store.Snapshot, viewer string) Layout {
	order := OrderRows(snap.Cells, snap.People, viewer)
	numRows := len(order)
	numCols := len(snap.Slots)

	people := make([]string, numRows)
	cells := make([][]string, numRows)
	for i, src := range order {
		people[i] = snap.People[src]
		cells[i] = snap.Cells[src]
	}

	layout := Layout{People: people, Slots: snap.Slots, Blocks: []Block{}}
	if numRows == 0 || numCols == 0 {
		return layout
	}

	sigs := make([][]string, numRows)
	for i := 0; i < numRows; i++ {
		sigs[i] = make([]string, numCols)
		for j := 0; j < numCols; j++ {
			sigs[i][j] = cell.SignatureOf(cells[i][j])
		}
	}

	// Vertical pass: per column, collapse runs of matching signatures.
	// rowSpan is set on run anchors; covered rows are hidden.
	rowSpan := make([][]int, numRows)
	hidden := make([][]bool, numRows)
	for i := range rowSpan {
		rowSpan[i] = make([]int, numCols)
		hidden[i] = make([]bool, numCols)
	}
	for j := 0; j < numCols; j++ {
		for i := 0; i < numRows; {
			span := 1
			if sigs[i][j] != "" {
				for i+span < numRows && cell.SignaturesEqual(sigs[i][j], sigs[i+span][j]) {
					hidden[i+span][j] = true
					span++
				}
			}
			rowSpan[i][j] = span
			i += span
		}
	}

	// Horizontal pass: a surviving anchor absorbs the next column's anchor
	// when it starts at the same row with the same rowSpan and every covered
	// row matches signatures across the two columns.
	for i := 0; i < numRows; i++ {
		for j := 0; j < numCols; {
			if hidden[i][j] {
				j++
				continue
			}
			span := rowSpan[i][j]
			colSpan := 1
			for next := j + colSpan; next < numCols; next++ {
				if hidden[i][next] || rowSpan[i][next] != span {
					break
				}
				matched := true
				for r := i; r < i+span; r++ {
					if !cell.SignaturesEqual(sigs[r][j], sigs[r][next]) {
						matched = false
						break
					}
				}
				if !matched {
					break
				}
				for r := i; r < i+span; r++ {
					hidden[r][next] = true
				}
				colSpan++
			}

			content := cell.Decode(cells[i][j])
			layout.Blocks = append(layout.Blocks, Block{
				Row:     i,
				Col:     j,
				RowSpan: span,
				ColSpan: colSpan,
				Raw:     cells[i][j],
				Tasks:   blockTasks(content, cells, people, i, span, j, viewer),
				Note:    content.Note,
			})
			j += colSpan
		}
	}
	return layout
}

// blockTasks builds the per-task assignee lists for a block anchored at
// (row, col) covering span rows. Assignees are computed from each covered
// row's own cell rather than inherited from the block, with the viewer
// listed first when present.
func blockTasks(content cell.Content, cells [][]string, people []string, row, span, col int, viewer string) []TaskItem {
	if len(content.Tasks) == 0 {
		return nil
	}
	items := make([]TaskItem, 0, len(content.Tasks))
	for _, ref := range content.Tasks {
		base := cell.BaseName(ref)
		var assignees []string
		for r := row; r < row+span; r++ {
			if rowHasTask(cells[r][col], base) {
				assignees = append(assignees, people[r])
			}
		}
		if viewer != "" {
			assignees = moveToFront(assignees, viewer)
		}
		items = append(items, TaskItem{Ref: ref, Base: base, Assignees: assignees})
	}
	return items
}

func rowHasTask(raw, base string) bool {
	for _, ref := range cell.Decode(raw).Tasks {
		if strings.EqualFold(cell.BaseName(ref), base) {
			return true
		}
	}
	return false
}

func moveToFront(names []string, name string) []string {
	for i, candidate := range names {
		if candidate == name && i > 0 {
			reordered := make([]string, 0, len(names))
			reordered = append(reordered, name)
			reordered = append(reordered, names[:i]...)
			reordered = append(reordered, names[i+1:]...)
			return reordered
		}
	}
	return names
}
