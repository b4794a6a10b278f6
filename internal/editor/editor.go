// Package editor applies drag, drop, add, and remove gestures to the
// in-memory shift matrix and coordinates optimistic local state with
// asynchronous cell writes to the scheduling store.
//
// Every edit mutates the matrix immediately and schedules persistence for
// only the touched cells. Writes are keyed "{person}-{slotId}" and serialized
// per key through a single-slot queue with a newest-value-wins buffer, so the
// last edit to a cell wins predictably. A failed write surfaces a message but
// never rolls the optimistic state back; the next full refetch reconciles.
package editor

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"shiftboard/api/internal/cell"
	"shiftboard/api/internal/store"
)

const defaultWriteTimeout = 10 * time.Second

// Store is the external scheduling data store contract. PersistCell replaces
// one cell's raw value and returns the cell's new write version; the version
// lets refetch reconciliation skip cells whose local state is newer than the
// snapshot it just read.
type Store interface {
	FetchMatrix(ctx context.Context) (store.Snapshot, error)
	PersistCell(ctx context.Context, person, slotID, raw string) (int64, error)
}

// CellRef addresses one task position inside a cell. Index < 0 means "not
// provided": operations fall back to a base-name lookup.
type CellRef struct {
	Person string `json:"person"`
	SlotID string `json:"slotId"`
	Index  int    `json:"index"`
}

// MoveRequest moves a task reference between cells, or into a cell when
// Source is nil (a free-text/custom add).
type MoveRequest struct {
	Task   string   `json:"task"`
	Source *CellRef `json:"source,omitempty"`
	Dest   CellRef  `json:"dest"`
}

// writeQueue serializes writes to one cell: at most one in flight, with the
// newest queued value replacing any older one still waiting.
type writeQueue struct {
	inflight bool
	next     *string
}

// Manager holds the in-memory matrix between refetches and is the only thing
// that mutates it.
type Manager struct {
	store        Store
	writeTimeout time.Duration

	mu     sync.Mutex
	snap   store.Snapshot
	queues map[string]*writeQueue
	errs   map[string]string
}

func New(s Store, writeTimeout time.Duration) *Manager {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Manager{
		store:        s,
		writeTimeout: writeTimeout,
		queues:       make(map[string]*writeQueue),
		errs:         make(map[string]string),
	}
}

// Load performs the initial full fetch, replacing any local state.
func (m *Manager) Load(ctx context.Context) error {
	snap, err := m.store.FetchMatrix(ctx)
	if err != nil {
		return fmt.Errorf("fetch matrix: %w", err)
	}
	m.mu.Lock()
	m.snap = normalize(snap)
	m.mu.Unlock()
	return nil
}

// Run refetches on a fixed interval until the context is cancelled,
// reconciling each snapshot against local optimistic state.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Refresh(ctx); err != nil {
				log.Printf("editor: periodic refresh: %v", err)
			}
		}
	}
}

// Refresh fetches a fresh snapshot and merges it in. Cells with a pending or
// in-flight write, and cells whose local version is newer than the refetched
// one, keep their local value; everything else takes the store's.
func (m *Manager) Refresh(ctx context.Context) error {
	fresh, err := m.store.FetchMatrix(ctx)
	if err != nil {
		return fmt.Errorf("fetch matrix: %w", err)
	}
	fresh = normalize(fresh)

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, person := range fresh.People {
		for j, slot := range fresh.Slots {
			li := m.snap.PersonIndex(person)
			lj := m.snap.SlotIndex(slot.ID)
			if li < 0 || lj < 0 {
				continue
			}
			if m.dirtyLocked(writeKey(person, slot.ID)) || m.snap.Versions[li][lj] > fresh.Versions[i][j] {
				fresh.Cells[i][j] = m.snap.Cells[li][lj]
				fresh.Versions[i][j] = m.snap.Versions[li][lj]
			}
		}
	}
	m.snap = fresh
	return nil
}

// Matrix returns a copy of the current in-memory snapshot.
func (m *Manager) Matrix() store.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Clone()
}

// PendingKeys lists the cell keys with a pending or in-flight write, for the
// per-cell "saving" indicator.
func (m *Manager) PendingKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.queues))
	for key := range m.queues {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Errors returns the last write failure message per cell key. Entries clear
// when a later write to the same cell succeeds.
func (m *Manager) Errors() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.errs))
	for key, msg := range m.errs {
		out[key] = msg
	}
	return out
}

// MoveTask removes a task reference from the optional source cell and
// inserts it into the destination cell at the clamped index. A sourced move
// whose task lookup misses is a silent no-op: neither cell changes. Both
// touched cells are re-encoded, updated in memory, and scheduled for
// independent persistence.
func (m *Manager) MoveTask(req MoveRequest) error {
	if strings.TrimSpace(req.Task) == "" {
		return fmt.Errorf("task is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	di := m.snap.PersonIndex(req.Dest.Person)
	dj := m.snap.SlotIndex(req.Dest.SlotID)
	if di < 0 || dj < 0 {
		return fmt.Errorf("unknown destination cell %s/%s", req.Dest.Person, req.Dest.SlotID)
	}

	// The insertion index is clamped against the destination's task count as
	// the caller saw it, before any same-cell removal shortens the list.
	destContent := cell.Decode(m.snap.Cells[di][dj])
	destIdx := clamp(req.Dest.Index, 0, len(destContent.Tasks))

	moved := req.Task
	sameCell := false

	var sourceContent cell.Content
	si, sj := -1, -1
	if req.Source != nil {
		si = m.snap.PersonIndex(req.Source.Person)
		sj = m.snap.SlotIndex(req.Source.SlotID)
		if si < 0 || sj < 0 {
			return fmt.Errorf("unknown source cell %s/%s", req.Source.Person, req.Source.SlotID)
		}
		sameCell = si == di && sj == dj
		sourceContent = cell.Decode(m.snap.Cells[si][sj])
		idx := taskIndex(sourceContent.Tasks, req.Source.Index, cell.BaseName(req.Task))
		if idx < 0 {
			// Nothing to move: a sourced lookup miss must not mint a new
			// copy at the destination.
			return nil
		}
		moved = sourceContent.Tasks[idx]
		sourceContent.Tasks = append(sourceContent.Tasks[:idx], sourceContent.Tasks[idx+1:]...)
		if sameCell {
			destContent = sourceContent
			if idx < destIdx {
				destIdx--
			}
		}
	}

	destContent.Tasks = insertAt(destContent.Tasks, destIdx, moved)

	m.applyLocked(di, dj, destContent)
	if req.Source != nil && !sameCell {
		m.applyLocked(si, sj, sourceContent)
	}
	return nil
}

// AddTask inserts a free-text or custom task reference; it is a move with no
// source.
func (m *Manager) AddTask(task string, dest CellRef) error {
	return m.MoveTask(MoveRequest{Task: task, Dest: dest})
}

// RemoveTask splices a task out of a cell by explicit index or by base-name
// lookup. A lookup miss leaves the cell untouched and is not an error.
func (m *Manager) RemoveTask(person, slotID string, index int, base string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pi := m.snap.PersonIndex(person)
	sj := m.snap.SlotIndex(slotID)
	if pi < 0 || sj < 0 {
		return fmt.Errorf("unknown cell %s/%s", person, slotID)
	}
	content := cell.Decode(m.snap.Cells[pi][sj])
	idx := taskIndex(content.Tasks, index, base)
	if idx < 0 {
		return nil
	}
	content.Tasks = append(content.Tasks[:idx], content.Tasks[idx+1:]...)
	m.applyLocked(pi, sj, content)
	return nil
}

// applyLocked re-encodes one cell, stores it optimistically, and schedules
// its write. Caller holds m.mu.
func (m *Manager) applyLocked(pi, sj int, content cell.Content) {
	raw := cell.Encode(content)
	m.snap.Cells[pi][sj] = raw
	person := m.snap.People[pi]
	slotID := m.snap.Slots[sj].ID
	key := writeKey(person, slotID)

	queue, ok := m.queues[key]
	if !ok {
		queue = &writeQueue{}
		m.queues[key] = queue
	}
	if queue.inflight {
		value := raw
		queue.next = &value
		return
	}
	queue.inflight = true
	go m.flush(key, person, slotID, raw)
}

// flush drives one cell's queue until it drains. Each write is an
// independent call with its own timeout; there is no cancellation of
// in-flight writes.
func (m *Manager) flush(key, person, slotID, raw string) {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), m.writeTimeout)
		version, err := m.store.PersistCell(ctx, person, slotID, raw)
		cancel()

		m.mu.Lock()
		if err != nil {
			m.errs[key] = err.Error()
		} else {
			delete(m.errs, key)
			if pi, sj := m.snap.PersonIndex(person), m.snap.SlotIndex(slotID); pi >= 0 && sj >= 0 {
				m.snap.Versions[pi][sj] = version
			}
		}
		queue := m.queues[key]
		if queue != nil && queue.next != nil {
			raw = *queue.next
			queue.next = nil
			m.mu.Unlock()
			continue
		}
		delete(m.queues, key)
		m.mu.Unlock()
		return
	}
}

func (m *Manager) dirtyLocked(key string) bool {
	_, ok := m.queues[key]
	return ok
}

// writeKey is the persistence key for one cell.
func writeKey(person, slotID string) string {
	return person + "-" + slotID
}

// taskIndex resolves which task an operation targets: the explicit index
// when it is in range and matches the base name, otherwise the first
// case-insensitive base-name match. Returns -1 when nothing matches.
func taskIndex(tasks []string, index int, base string) int {
	if index >= 0 && index < len(tasks) {
		if base == "" || strings.EqualFold(cell.BaseName(tasks[index]), base) {
			return index
		}
	}
	if base == "" {
		return -1
	}
	for i, ref := range tasks {
		if strings.EqualFold(cell.BaseName(ref), base) {
			return i
		}
	}
	return -1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func insertAt(tasks []string, idx int, task string) []string {
	tasks = append(tasks, "")
	copy(tasks[idx+1:], tasks[idx:])
	tasks[idx] = task
	return tasks
}

// normalize pads a snapshot so Cells and Versions are full rectangles; fake
// and remote stores are not trusted to return them fully populated.
func normalize(snap store.Snapshot) store.Snapshot {
	rows := len(snap.People)
	cols := len(snap.Slots)
	cells := make([][]string, rows)
	versions := make([][]int64, rows)
	for i := 0; i < rows; i++ {
		cells[i] = make([]string, cols)
		versions[i] = make([]int64, cols)
		if i < len(snap.Cells) {
			copy(cells[i], snap.Cells[i])
		}
		if i < len(snap.Versions) {
			copy(versions[i], snap.Versions[i])
		}
	}
	snap.Cells = cells
	snap.Versions = versions
	return snap
}
