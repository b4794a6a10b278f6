package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// FetchMatrix reads the whole schedule in one pass: people and slots in
// their stored order, plus every cell value and its write version. Cells
// that were never written come back as empty strings at version 0.
func (s *PostgresStore) FetchMatrix(ctx context.Context) (Snapshot, error) {
	var snap Snapshot

	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM people ORDER BY position ASC, name ASC
	`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list people: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return Snapshot{}, fmt.Errorf("scan person: %w", err)
		}
		snap.People = append(snap.People, name)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("iterate people: %w", err)
	}

	slotRows, err := s.db.QueryContext(ctx, `
		SELECT id, label, time_range, is_meal, position
		FROM slots
		ORDER BY position ASC, id ASC
	`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list slots: %w", err)
	}
	defer slotRows.Close()
	for slotRows.Next() {
		var slot Slot
		if err := slotRows.Scan(&slot.ID, &slot.Label, &slot.TimeRange, &slot.IsMeal, &slot.Position); err != nil {
			return Snapshot{}, fmt.Errorf("scan slot: %w", err)
		}
		snap.Slots = append(snap.Slots, slot)
	}
	if err := slotRows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("iterate slots: %w", err)
	}

	snap.Cells = make([][]string, len(snap.People))
	snap.Versions = make([][]int64, len(snap.People))
	for i := range snap.People {
		snap.Cells[i] = make([]string, len(snap.Slots))
		snap.Versions[i] = make([]int64, len(snap.Slots))
	}

	cellRows, err := s.db.QueryContext(ctx, `
		SELECT person, slot_id, value, version FROM cells
	`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list cells: %w", err)
	}
	defer cellRows.Close()
	for cellRows.Next() {
		var person, slotID, value string
		var version int64
		if err := cellRows.Scan(&person, &slotID, &value, &version); err != nil {
			return Snapshot{}, fmt.Errorf("scan cell: %w", err)
		}
		// Cells for people or slots removed since the write are skipped;
		// RemovePerson/RemoveSlot cascade, so these are transient at worst.
		pi := snap.PersonIndex(person)
		sj := snap.SlotIndex(slotID)
		if pi < 0 || sj < 0 {
			continue
		}
		snap.Cells[pi][sj] = value
		snap.Versions[pi][sj] = version
	}
	if err := cellRows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("iterate cells: %w", err)
	}

	return snap, nil
}

// PersistCell replaces one cell's raw value and returns the cell's new
// version. Each write bumps the version by one so pollers can tell a stale
// snapshot from a newer local edit.
func (s *PostgresStore) PersistCell(ctx context.Context, person, slotID, raw string) (int64, error) {
	var version int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO cells (person, slot_id, value, version)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (person, slot_id)
		DO UPDATE SET value=EXCLUDED.value, version=cells.version+1, updated_at=NOW()
		RETURNING version
	`, person, slotID, raw).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("persist cell %s/%s: %w", person, slotID, err)
	}
	return version, nil
}

// CellRecords lists every stored cell row, for search indexing.
func (s *PostgresStore) CellRecords(ctx context.Context) ([]CellRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT person, slot_id, value, version, updated_at
		FROM cells
		ORDER BY person ASC, slot_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list cell records: %w", err)
	}
	defer rows.Close()

	items := make([]CellRecord, 0)
	for rows.Next() {
		var item CellRecord
		if err := rows.Scan(&item.Person, &item.SlotID, &item.Value, &item.Version, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan cell record: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cell records: %w", err)
	}
	return items, nil
}

// AddPerson appends a person to the bottom of the roster. Re-adding an
// existing name is a no-op.
func (s *PostgresStore) AddPerson(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO people (name, position)
		VALUES ($1, COALESCE((SELECT MAX(position) FROM people), 0) + 1)
		ON CONFLICT (name) DO NOTHING
	`, name)
	if err != nil {
		return fmt.Errorf("add person: %w", err)
	}
	return nil
}

// RemovePerson deletes a person and, through the cells FK, their row of
// cell values. Unknown names report sql.ErrNoRows.
func (s *PostgresStore) RemovePerson(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM people WHERE name=$1`, name)
	if err != nil {
		return fmt.Errorf("remove person: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove person rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AddSlot appends a shift column. Position 0 means "after the last slot".
func (s *PostgresStore) AddSlot(ctx context.Context, slot Slot) error {
	if slot.ID == "" {
		return errors.New("slot id is required")
	}
	if slot.Position > 0 {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO slots (id, label, time_range, is_meal, position)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`, slot.ID, slot.Label, slot.TimeRange, slot.IsMeal, slot.Position)
		if err != nil {
			return fmt.Errorf("add slot: %w", err)
		}
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO slots (id, label, time_range, is_meal, position)
		VALUES ($1, $2, $3, $4, COALESCE((SELECT MAX(position) FROM slots), 0) + 1)
		ON CONFLICT (id) DO NOTHING
	`, slot.ID, slot.Label, slot.TimeRange, slot.IsMeal)
	if err != nil {
		return fmt.Errorf("add slot: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveSlot(ctx context.Context, slotID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE id=$1`, slotID)
	if err != nil {
		return fmt.Errorf("remove slot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove slot rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
