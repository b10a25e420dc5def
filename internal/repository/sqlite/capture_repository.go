package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"labelstation/internal/model"
)

// CaptureRepository implements repository.CaptureRepository for SQLite.
type CaptureRepository struct {
	db *DB
}

// NewCaptureRepository creates a new SQLite capture repository.
func NewCaptureRepository(db *DB) *CaptureRepository {
	return &CaptureRepository{db: db}
}

const captureColumns = `seq, filename, state, width, height, filesize, created_at, updated_at`

// Insert adds a capture to the queue and returns its sequence number.
func (r *CaptureRepository) Insert(item *model.CaptureItem) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	if item.State == "" {
		item.State = model.CapturePending
	}
	item.UpdatedAt = now

	result, err := r.db.Conn().Exec(`
		INSERT INTO captures (filename, state, width, height, filesize, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, item.Filename, item.State, item.Width, item.Height, item.FileSize, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert capture: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read capture seq: %w", err)
	}
	item.Seq = seq
	return seq, nil
}

// GetByFilename retrieves a capture by filename, or nil when unknown.
func (r *CaptureRepository) GetByFilename(filename string) (*model.CaptureItem, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	item, err := scanCapture(r.db.Conn().QueryRow(`
		SELECT `+captureColumns+` FROM captures WHERE filename = ?
	`, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to get capture: %w", err)
	}
	return item, nil
}

// Oldest returns the pending capture with the lowest sequence number.
func (r *CaptureRepository) Oldest() (*model.CaptureItem, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	item, err := scanCapture(r.db.Conn().QueryRow(`
		SELECT `+captureColumns+` FROM captures WHERE state = ? ORDER BY seq ASC LIMIT 1
	`, model.CapturePending))
	if err != nil {
		return nil, fmt.Errorf("failed to get oldest capture: %w", err)
	}
	return item, nil
}

// ListByState returns captures in the given state in queue order.
func (r *CaptureRepository) ListByState(state model.CaptureState) ([]model.CaptureItem, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT `+captureColumns+` FROM captures WHERE state = ? ORDER BY seq ASC
	`, state)
	if err != nil {
		return nil, fmt.Errorf("failed to query captures: %w", err)
	}
	defer rows.Close()

	var items []model.CaptureItem
	for rows.Next() {
		var item model.CaptureItem
		if err := rows.Scan(&item.Seq, &item.Filename, &item.State, &item.Width, &item.Height,
			&item.FileSize, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan capture: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// CountByState returns the number of captures per state.
func (r *CaptureRepository) CountByState() (map[model.CaptureState]int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT state, COUNT(*) FROM captures GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("failed to count captures: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.CaptureState]int)
	for rows.Next() {
		var state model.CaptureState
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[state] = n
	}

	return counts, rows.Err()
}

// Transition is a compare-and-set on the capture state.
func (r *CaptureRepository) Transition(filename string, from, to model.CaptureState) (bool, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		UPDATE captures SET state = ?, updated_at = ? WHERE filename = ? AND state = ?
	`, to, time.Now(), filename, from)
	if err != nil {
		return false, fmt.Errorf("failed to transition capture: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

func scanCapture(row *sql.Row) (*model.CaptureItem, error) {
	var item model.CaptureItem
	err := row.Scan(&item.Seq, &item.Filename, &item.State, &item.Width, &item.Height,
		&item.FileSize, &item.CreatedAt, &item.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}
