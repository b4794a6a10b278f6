package store

import "time"

// Slot is one ordered shift column of the matrix. TimeRange is display text
// only; IsMeal routes the slot to a different presentation downstream and has
// no effect on merge logic.
type Slot struct {
	ID        string
	Label     string
	TimeRange string
	IsMeal    bool
	Position  int
}

// Snapshot is a full matrix read: people and slots in canonical order, cells
// indexed [personIndex][slotIndex], and the per-cell write versions the store
// reported for them. An empty cell is the empty string.
type Snapshot struct {
	People   []string
	Slots    []Slot
	Cells    [][]string
	Versions [][]int64
}

// Clone returns a deep copy so callers can hand snapshots out without
// aliasing the store's or editor's internal state.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		People: append([]string(nil), s.People...),
		Slots:  append([]Slot(nil), s.Slots...),
	}
	out.Cells = make([][]string, len(s.Cells))
	for i, row := range s.Cells {
		out.Cells[i] = append([]string(nil), row...)
	}
	out.Versions = make([][]int64, len(s.Versions))
	for i, row := range s.Versions {
		out.Versions[i] = append([]int64(nil), row...)
	}
	return out
}

// PersonIndex returns the canonical row index for a person name, or -1.
func (s Snapshot) PersonIndex(person string) int {
	for i, name := range s.People {
		if name == person {
			return i
		}
	}
	return -1
}

// SlotIndex returns the column index for a slot ID, or -1.
func (s Snapshot) SlotIndex(slotID string) int {
	for i, slot := range s.Slots {
		if slot.ID == slotID {
			return i
		}
	}
	return -1
}

// CellRecord is one stored cell row, as persisted.
type CellRecord struct {
	Person    string
	SlotID    string
	Value     string
	Version   int64
	UpdatedAt time.Time
}
