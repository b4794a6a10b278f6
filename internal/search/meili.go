package search

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const (
	idxAssignments = "shiftboard_assignments"
	idxPeople      = "shiftboard_people"
	idxSlots       = "shiftboard_slots"
)

// Meili implements Searcher and Indexer via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures indexes.
// The caller should proceed without search if the instance stays unhealthy.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	// Initial health check
	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndexes()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndexes() {
	indexes := []struct {
		uid        string
		primaryKey string
		filterable []string
		searchable []string
	}{
		{
			uid:        idxAssignments,
			primaryKey: "id",
			filterable: []string{"person", "slotId"},
			searchable: []string{"tasks", "note", "person", "slotLabel"},
		},
		{
			uid:        idxPeople,
			primaryKey: "id",
			searchable: []string{"name"},
		},
		{
			uid:        idxSlots,
			primaryKey: "id",
			searchable: []string{"label", "timeRange"},
		},
	}

	for _, idx := range indexes {
		if _, err := m.client.CreateIndex(&meili.IndexConfig{
			Uid:        idx.uid,
			PrimaryKey: idx.primaryKey,
		}); err != nil {
			log.Printf("search: create index %s (may already exist): %v", idx.uid, err)
		}

		index := m.client.Index(idx.uid)
		if len(idx.filterable) > 0 {
			filterableInterface := make([]interface{}, len(idx.filterable))
			for i, v := range idx.filterable {
				filterableInterface[i] = v
			}
			if _, err := index.UpdateFilterableAttributes(&filterableInterface); err != nil {
				log.Printf("search: update filterable attrs for %s: %v", idx.uid, err)
			}
		}
		if _, err := index.UpdateSearchableAttributes(&idx.searchable); err != nil {
			log.Printf("search: update searchable attrs for %s: %v", idx.uid, err)
		}
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring indexes")
				m.configureIndexes()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries all three indexes (or a filtered subset) and merges results.
func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 20
	}

	var queries []*meili.SearchRequest
	targetIndexes := []struct {
		uid  string
		rtyp ResultType
	}{
		{idxAssignments, ResultAssignment},
		{idxPeople, ResultPerson},
		{idxSlots, ResultSlot},
	}

	for _, ti := range targetIndexes {
		if q.FilterType != "" && q.FilterType != ti.rtyp {
			continue
		}
		sr := &meili.SearchRequest{
			IndexUID:              ti.uid,
			Limit:                 limit,
			Offset:                int64(q.Offset),
			AttributesToHighlight: []string{"*"},
			HighlightPreTag:       "<mark>",
			HighlightPostTag:      "</mark>",
			ShowRankingScore:      true,
		}

		if q.FilterSlotID != "" && ti.rtyp == ResultAssignment {
			sr.Filter = []string{fmt.Sprintf("slotId = %q", q.FilterSlotID)}
		}
		queries = append(queries, sr)
	}

	if len(queries) == 0 {
		return nil, 0, nil
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: queries,
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var results []Result
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		rtyp := indexToResultType(sr.IndexUID)
		for _, hit := range sr.Hits {
			results = append(results, hitToResult(hit, rtyp))
		}
	}

	return results, total, nil
}

func indexToResultType(uid string) ResultType {
	switch uid {
	case idxAssignments:
		return ResultAssignment
	case idxPeople:
		return ResultPerson
	case idxSlots:
		return ResultSlot
	default:
		return ""
	}
}

func hitToResult(hit meili.Hit, rtyp ResultType) Result {
	r := Result{Type: rtyp}
	r.ID = decodeString(hit, "id")
	r.Person = decodeString(hit, "person")
	r.SlotID = decodeString(hit, "slotId")

	switch rtyp {
	case ResultAssignment:
		r.Title = firstNonBlank(decodeFormattedString(hit, "tasks"), decodeString(hit, "tasks"))
		r.Snippet = firstNonBlank(decodeFormattedString(hit, "note"), decodeString(hit, "note"))
	case ResultPerson:
		r.Title = firstNonBlank(decodeFormattedString(hit, "name"), decodeString(hit, "name"))
		r.Person = r.Title
	case ResultSlot:
		r.Title = firstNonBlank(decodeFormattedString(hit, "label"), decodeString(hit, "label"))
		r.Snippet = firstNonBlank(decodeFormattedString(hit, "timeRange"), decodeString(hit, "timeRange"))
		r.SlotID = r.ID
	}
	return r
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]string
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	return strings.TrimSpace(formatted[key])
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// IndexAssignment adds or updates one cell's assignment record.
func (m *Meili) IndexAssignment(a AssignmentRecord) error {
	_, err := m.client.Index(idxAssignments).AddDocuments([]AssignmentRecord{a}, nil)
	return err
}

// IndexPerson adds or updates a roster member in the search index.
func (m *Meili) IndexPerson(p PersonRecord) error {
	_, err := m.client.Index(idxPeople).AddDocuments([]PersonRecord{p}, nil)
	return err
}

// IndexSlot adds or updates a slot in the search index.
func (m *Meili) IndexSlot(s SlotRecord) error {
	_, err := m.client.Index(idxSlots).AddDocuments([]SlotRecord{s}, nil)
	return err
}

// DeleteAssignment removes one cell's record from the search index.
func (m *Meili) DeleteAssignment(id string) error {
	_, err := m.client.Index(idxAssignments).DeleteDocument(id, nil)
	return err
}

// DeletePerson removes a roster member from the search index.
func (m *Meili) DeletePerson(id string) error {
	_, err := m.client.Index(idxPeople).DeleteDocument(id, nil)
	return err
}

// DeleteSlot removes a slot from the search index.
func (m *Meili) DeleteSlot(id string) error {
	_, err := m.client.Index(idxSlots).DeleteDocument(id, nil)
	return err
}

// IndexAssignments bulk-indexes assignment records.
func (m *Meili) IndexAssignments(assignments []AssignmentRecord) error {
	if len(assignments) == 0 {
		return nil
	}
	_, err := m.client.Index(idxAssignments).AddDocuments(assignments, nil)
	return err
}

// IndexPeople bulk-indexes roster members.
func (m *Meili) IndexPeople(people []PersonRecord) error {
	if len(people) == 0 {
		return nil
	}
	_, err := m.client.Index(idxPeople).AddDocuments(people, nil)
	return err
}

// IndexSlots bulk-indexes slots.
func (m *Meili) IndexSlots(slots []SlotRecord) error {
	if len(slots) == 0 {
		return nil
	}
	_, err := m.client.Index(idxSlots).AddDocuments(slots, nil)
	return err
}
