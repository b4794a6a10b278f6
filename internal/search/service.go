package search

import (
	"context"
	"log"
	"strings"

	"shiftboard/api/internal/cell"
)

// NewAssignmentRecord builds the index record for one cell from its raw
// stored value, splitting it into searchable task text and the note.
func NewAssignmentRecord(person, slotID, slotLabel, raw string) AssignmentRecord {
	content := cell.Decode(raw)
	return AssignmentRecord{
		ID:        person + "-" + slotID,
		Person:    person,
		SlotID:    slotID,
		SlotLabel: slotLabel,
		Tasks:     strings.Join(content.Tasks, ", "),
		Note:      content.Note,
	}
}

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili *Meili
	pgfts *PgFTS
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	results, total, err := s.pgfts.Search(q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexAssignment indexes one cell's assignment record (fire-and-forget).
// An empty cell deletes the record instead, so cleared cells stop matching.
func (s *Service) IndexAssignment(a AssignmentRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	if strings.TrimSpace(a.Tasks) == "" && strings.TrimSpace(a.Note) == "" {
		s.DeleteAssignment(a.ID)
		return
	}
	go func() {
		if err := s.meili.IndexAssignment(a); err != nil {
			log.Printf("search: index assignment %s: %v", a.ID, err)
		}
	}()
}

// IndexPerson indexes a roster member (fire-and-forget to Meilisearch).
func (s *Service) IndexPerson(p PersonRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexPerson(p); err != nil {
			log.Printf("search: index person %s: %v", p.ID, err)
		}
	}()
}

// IndexSlot indexes a slot (fire-and-forget to Meilisearch).
func (s *Service) IndexSlot(rec SlotRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexSlot(rec); err != nil {
			log.Printf("search: index slot %s: %v", rec.ID, err)
		}
	}()
}

// DeleteAssignment removes one cell's record from the search index (fire-and-forget).
func (s *Service) DeleteAssignment(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteAssignment(id); err != nil {
			log.Printf("search: delete assignment %s: %v", id, err)
		}
	}()
}

// DeletePerson removes a roster member from the search index (fire-and-forget).
func (s *Service) DeletePerson(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeletePerson(id); err != nil {
			log.Printf("search: delete person %s: %v", id, err)
		}
	}()
}

// DeleteSlot removes a slot from the search index (fire-and-forget).
func (s *Service) DeleteSlot(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteSlot(id); err != nil {
			log.Printf("search: delete slot %s: %v", id, err)
		}
	}()
}

// ReindexAll pushes a full set of records to Meilisearch.
func (s *Service) ReindexAll(assignments []AssignmentRecord, people []PersonRecord, slots []SlotRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}

	if len(assignments) > 0 {
		if err := s.meili.IndexAssignments(assignments); err != nil {
			log.Printf("search: reindex assignments: %v", err)
		}
	}
	if len(people) > 0 {
		if err := s.meili.IndexPeople(people); err != nil {
			log.Printf("search: reindex people: %v", err)
		}
	}
	if len(slots) > 0 {
		if err := s.meili.IndexSlots(slots); err != nil {
			log.Printf("search: reindex slots: %v", err)
		}
	}
}

// ReindexAllFromPG reindexes all searchable entities from PostgreSQL into Meilisearch.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return
	}
	assignments, people, slots, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	s.ReindexAll(assignments, people, slots)
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
