package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"shiftboard/api/internal/cache"
	"shiftboard/api/internal/cell"
	"shiftboard/api/internal/config"
	"shiftboard/api/internal/editor"
	"shiftboard/api/internal/export"
	"shiftboard/api/internal/grid"
	"shiftboard/api/internal/search"
	"shiftboard/api/internal/store"
)

const (
	cacheKeyMatrix = "matrix"
)

// dataStore is the slice of the scheduling store the service needs beyond
// what the editor already drives.
type dataStore interface {
	AddPerson(ctx context.Context, name string) error
	RemovePerson(ctx context.Context, name string) error
	AddSlot(ctx context.Context, slot store.Slot) error
	RemoveSlot(ctx context.Context, slotID string) error
	Ping(ctx context.Context) error
}

// editorService is the edit transaction manager surface the API exposes.
type editorService interface {
	Matrix() store.Snapshot
	MoveTask(req editor.MoveRequest) error
	RemoveTask(person, slotID string, index int, base string) error
	PendingKeys() []string
	Errors() map[string]string
	Refresh(ctx context.Context) error
}

// responseCache fronts the schedule read path. May be absent.
type responseCache interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Set(ctx context.Context, name string, payload []byte) error
	Invalidate(ctx context.Context) error
}

// searchService indexes and queries schedule entities. May be absent.
type searchService interface {
	Search(q search.Query) search.Response
	IndexAssignment(a search.AssignmentRecord)
	IndexPerson(p search.PersonRecord)
	IndexSlot(rec search.SlotRecord)
	DeletePerson(id string)
	DeleteSlot(id string)
	DeleteAssignment(id string)
	ReindexAllFromPG(ctx context.Context)
}

// exporter renders the consolidated schedule to a document format.
type exporter interface {
	Export(ctx context.Context, req export.Request) (*export.Result, error)
}

type Service struct {
	cfg    config.Config
	store  dataStore
	editor editorService
	cache  responseCache
	search searchService
	export exporter
}

// New wires the service. cacheClient and searchSvc may be nil; the service
// degrades to uncached reads and no search.
func New(cfg config.Config, dataStore *store.PostgresStore, ed *editor.Manager, cacheClient *cache.RedisCache, searchSvc *search.Service, exportSvc *export.Service) *Service {
	s := &Service{
		cfg:    cfg,
		store:  dataStore,
		editor: ed,
	}
	if cacheClient != nil {
		s.cache = cacheClient
	}
	if searchSvc != nil {
		s.search = searchSvc
	}
	if exportSvc != nil {
		s.export = exportSvc
	}
	return s
}

// Bootstrap seeds a demo roster when the store is empty, then fills the
// search index from the store.
func (s *Service) Bootstrap(ctx context.Context) error {
	snap := s.editor.Matrix()
	if len(snap.People) == 0 && len(snap.Slots) == 0 {
		for _, name := range []string{"Ana", "Bo", "Casey"} {
			if err := s.store.AddPerson(ctx, name); err != nil {
				return fmt.Errorf("seed person %s: %w", name, err)
			}
		}
		seeds := []store.Slot{
			{ID: "AM", Label: "Morning", TimeRange: "08:00-12:30"},
			{ID: "LU", Label: "Lunch", TimeRange: "12:30-13:30", IsMeal: true},
			{ID: "PM", Label: "Afternoon", TimeRange: "13:30-18:00"},
		}
		for _, slot := range seeds {
			if err := s.store.AddSlot(ctx, slot); err != nil {
				return fmt.Errorf("seed slot %s: %w", slot.ID, err)
			}
		}
		if err := s.editor.Refresh(ctx); err != nil {
			return err
		}
	}

	if s.search != nil {
		s.search.ReindexAllFromPG(ctx)
	}
	return nil
}

// schedulePayload is the full-matrix response body.
type schedulePayload struct {
	People   []string          `json:"people"`
	Slots    []store.Slot      `json:"slots"`
	Cells    [][]string        `json:"cells"`
	Versions [][]int64         `json:"versions"`
	Pending  []string          `json:"pending"`
	Errors   map[string]string `json:"errors"`
}

// Schedule returns the raw matrix with per-cell save state, served from the
// cache when a write has not invalidated it. Cells with a pending write are
// never cached, so the "saving" indicator stays live.
func (s *Service) Schedule(ctx context.Context) (json.RawMessage, error) {
	pending := s.editor.PendingKeys()
	if s.cache != nil && len(pending) == 0 {
		if payload, err := s.cache.Get(ctx, cacheKeyMatrix); err == nil {
			return payload, nil
		}
	}

	snap := s.editor.Matrix()
	payload, err := json.Marshal(schedulePayload{
		People:   snap.People,
		Slots:    snap.Slots,
		Cells:    snap.Cells,
		Versions: snap.Versions,
		Pending:  pending,
		Errors:   s.editor.Errors(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal schedule: %w", err)
	}

	if s.cache != nil && len(pending) == 0 {
		if err := s.cache.Set(ctx, cacheKeyMatrix, payload); err != nil {
			log.Printf("app: cache schedule: %v", err)
		}
	}
	return payload, nil
}

// Grid returns the consolidated block layout, with rows ordered for the
// viewer. The layout is computed per request; viewer ordering makes shared
// cache entries useless here.
func (s *Service) Grid(ctx context.Context, viewer string) (grid.Layout, error) {
	return grid.Consolidate(s.editor.Matrix(), viewer), nil
}

// Move applies a drag gesture: remove from source (when given), insert at
// dest. The edit lands locally first; persistence runs behind it.
func (s *Service) Move(ctx context.Context, req editor.MoveRequest) (map[string]any, error) {
	if strings.TrimSpace(req.Task) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "task is required", nil)
	}
	if req.Dest.Person == "" || req.Dest.SlotID == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "dest person and slotId are required", nil)
	}
	if err := s.editor.MoveTask(req); err != nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	}

	s.afterEdit(ctx, req.Dest.Person, req.Dest.SlotID)
	if req.Source != nil {
		s.afterEdit(ctx, req.Source.Person, req.Source.SlotID)
	}
	return map[string]any{"ok": true, "pending": s.editor.PendingKeys()}, nil
}

// RemoveAssignment splices a task out of a cell. A lookup miss succeeds
// without changing anything.
func (s *Service) RemoveAssignment(ctx context.Context, person, slotID string, index int, task string) (map[string]any, error) {
	if person == "" || slotID == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "person and slotId are required", nil)
	}
	if err := s.editor.RemoveTask(person, slotID, index, cell.BaseName(task)); err != nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	}
	s.afterEdit(ctx, person, slotID)
	return map[string]any{"ok": true, "pending": s.editor.PendingKeys()}, nil
}

// Pending reports cells with in-flight writes and the last failure per cell.
func (s *Service) Pending(ctx context.Context) map[string]any {
	return map[string]any{
		"pending": s.editor.PendingKeys(),
		"errors":  s.editor.Errors(),
	}
}

// Export renders the consolidated schedule for the viewer.
func (s *Service) Export(ctx context.Context, viewer string, format export.Format, title string) (*export.Result, error) {
	if s.export == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export is not configured", nil)
	}
	switch format {
	case export.FormatPDF, export.FormatDOCX:
	default:
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be pdf or docx", nil)
	}
	return s.export.Export(ctx, export.Request{Viewer: viewer, Format: format, Title: title})
}

// Search queries the schedule index.
func (s *Service) Search(ctx context.Context, text, filterType, slotID string, limit, offset int) (search.Response, error) {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}, nil
	}
	return s.search.Search(search.Query{
		Text:         text,
		FilterType:   search.ResultType(filterType),
		FilterSlotID: slotID,
		Limit:        limit,
		Offset:       offset,
	}), nil
}

// AddPerson appends a roster row and refreshes local state.
func (s *Service) AddPerson(ctx context.Context, name string) (map[string]any, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	if err := s.store.AddPerson(ctx, name); err != nil {
		return nil, err
	}
	s.afterRosterChange(ctx)
	if s.search != nil {
		s.search.IndexPerson(search.PersonRecord{ID: name, Name: name})
	}
	return map[string]any{"ok": true, "name": name}, nil
}

// RemovePerson deletes a roster row; their cells go with them.
func (s *Service) RemovePerson(ctx context.Context, name string) (map[string]any, error) {
	if err := s.store.RemovePerson(ctx, name); err != nil {
		return nil, err
	}
	s.afterRosterChange(ctx)
	if s.search != nil {
		s.search.DeletePerson(name)
		for _, slot := range s.editor.Matrix().Slots {
			s.search.DeleteAssignment(name + "-" + slot.ID)
		}
	}
	return map[string]any{"ok": true}, nil
}

// AddSlot appends a shift column.
func (s *Service) AddSlot(ctx context.Context, slot store.Slot) (map[string]any, error) {
	slot.ID = strings.TrimSpace(slot.ID)
	if slot.ID == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "id is required", nil)
	}
	if err := s.store.AddSlot(ctx, slot); err != nil {
		return nil, err
	}
	s.afterRosterChange(ctx)
	if s.search != nil {
		s.search.IndexSlot(search.SlotRecord{ID: slot.ID, Label: slot.Label, TimeRange: slot.TimeRange})
	}
	return map[string]any{"ok": true, "id": slot.ID}, nil
}

// RemoveSlot deletes a shift column and its cells.
func (s *Service) RemoveSlot(ctx context.Context, slotID string) (map[string]any, error) {
	// Snapshot the roster before the column disappears from the matrix.
	people := s.editor.Matrix().People
	if err := s.store.RemoveSlot(ctx, slotID); err != nil {
		return nil, err
	}
	s.afterRosterChange(ctx)
	if s.search != nil {
		s.search.DeleteSlot(slotID)
		for _, person := range people {
			s.search.DeleteAssignment(person + "-" + slotID)
		}
	}
	return map[string]any{"ok": true}, nil
}

// Ping verifies the backing store connection.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// afterEdit drops stale cached reads and refreshes one cell's search record
// from the optimistic matrix.
func (s *Service) afterEdit(ctx context.Context, person, slotID string) {
	s.invalidateCache(ctx)
	if s.search == nil {
		return
	}
	snap := s.editor.Matrix()
	pi := snap.PersonIndex(person)
	sj := snap.SlotIndex(slotID)
	if pi < 0 || sj < 0 {
		return
	}
	s.search.IndexAssignment(search.NewAssignmentRecord(person, slotID, snap.Slots[sj].Label, snap.Cells[pi][sj]))
}

// afterRosterChange refetches the matrix so new rows and columns appear
// immediately, then drops cached reads.
func (s *Service) afterRosterChange(ctx context.Context) {
	if err := s.editor.Refresh(ctx); err != nil {
		log.Printf("app: refresh after roster change: %v", err)
	}
	s.invalidateCache(ctx)
}

func (s *Service) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Printf("app: invalidate cache: %v", err)
	}
}
