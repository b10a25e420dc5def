package sqlite

import (
	"fmt"
	"time"

	"labelstation/internal/model"
)

// EventRepository implements repository.EventRepository for SQLite.
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new SQLite event repository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// Record appends an event to the journal.
func (r *EventRepository) Record(ev *model.Event) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}

	result, err := r.db.Conn().Exec(`
		INSERT INTO events (kind, filename, detail, created_at) VALUES (?, ?, ?, ?)
	`, ev.Kind, ev.Filename, ev.Detail, ev.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	ev.ID = id
	return id, nil
}

// Recent returns the newest events first.
func (r *EventRepository) Recent(limit int) ([]model.Event, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, kind, filename, detail, created_at FROM events ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var ev model.Event
		if err := rows.Scan(&ev.ID, &ev.Kind, &ev.Filename, &ev.Detail, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, ev)
	}

	return events, rows.Err()
}
