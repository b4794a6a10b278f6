package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across cells, people, and slots using
// plainto_tsquery and ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	var subQueries []string

	// Assignments sub-query
	if q.FilterType == "" || q.FilterType == ResultAssignment {
		cellWhere := "c.fts @@ " + tsQuery
		if q.FilterSlotID != "" {
			cellWhere += fmt.Sprintf(" AND c.slot_id = $%d", argN)
			args = append(args, q.FilterSlotID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'assignment'::text AS type, c.person || '-' || c.slot_id AS id,
				ts_headline('english', c.value, %s, 'MaxFragments=1,MaxWords=30') AS title,
				''::text AS snippet,
				c.person, c.slot_id,
				ts_rank(c.fts, %s) AS rank
			FROM cells c
			WHERE %s`, tsQuery, tsQuery, cellWhere))
	}

	// People sub-query
	if q.FilterType == "" || q.FilterType == ResultPerson {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'person'::text AS type, p.name AS id,
				p.name AS title,
				''::text AS snippet,
				p.name AS person, ''::text AS slot_id,
				ts_rank(p.fts, %s) AS rank
			FROM people p
			WHERE p.fts @@ %s`, tsQuery, tsQuery))
	}

	// Slots sub-query
	if q.FilterType == "" || q.FilterType == ResultSlot {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'slot'::text AS type, s.id,
				s.label AS title,
				s.time_range AS snippet,
				''::text AS person, s.id AS slot_id,
				ts_rank(s.fts, %s) AS rank
			FROM slots s
			WHERE s.fts @@ %s`, tsQuery, tsQuery))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	// Count query
	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	// Data query
	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, person, slot_id
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.Person, &r.SlotID); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]AssignmentRecord, []PersonRecord, []SlotRecord, error) {
	cellRows, err := p.db.QueryContext(ctx, `
		SELECT c.person, c.slot_id, COALESCE(s.label, ''), c.value
		FROM cells c
		LEFT JOIN slots s ON s.id = c.slot_id
		WHERE c.value <> ''
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load cells: %w", err)
	}
	defer cellRows.Close()

	assignments := make([]AssignmentRecord, 0)
	for cellRows.Next() {
		var person, slotID, slotLabel, value string
		if err := cellRows.Scan(&person, &slotID, &slotLabel, &value); err != nil {
			return nil, nil, nil, fmt.Errorf("scan cell: %w", err)
		}
		assignments = append(assignments, NewAssignmentRecord(person, slotID, slotLabel, value))
	}
	if err := cellRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate cells: %w", err)
	}

	peopleRows, err := p.db.QueryContext(ctx, `SELECT name FROM people`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load people: %w", err)
	}
	defer peopleRows.Close()

	people := make([]PersonRecord, 0)
	for peopleRows.Next() {
		var name string
		if err := peopleRows.Scan(&name); err != nil {
			return nil, nil, nil, fmt.Errorf("scan person: %w", err)
		}
		people = append(people, PersonRecord{ID: name, Name: name})
	}
	if err := peopleRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate people: %w", err)
	}

	slotRows, err := p.db.QueryContext(ctx, `SELECT id, label, time_range FROM slots`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load slots: %w", err)
	}
	defer slotRows.Close()

	slots := make([]SlotRecord, 0)
	for slotRows.Next() {
		var s SlotRecord
		if err := slotRows.Scan(&s.ID, &s.Label, &s.TimeRange); err != nil {
			return nil, nil, nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, s)
	}
	if err := slotRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate slots: %w", err)
	}

	return assignments, people, slots, nil
}
