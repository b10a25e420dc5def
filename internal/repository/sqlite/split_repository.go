package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"labelstation/internal/model"
)

// SplitRepository implements repository.SplitRepository for SQLite.
type SplitRepository struct {
	db *DB
}

// NewSplitRepository creates a new SQLite split run repository.
func NewSplitRepository(db *DB) *SplitRepository {
	return &SplitRepository{db: db}
}

// Insert stores a split run.
func (r *SplitRepository) Insert(run *model.SplitRun) error {
	r.db.Lock()
	defer r.db.Unlock()

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	_, err := r.db.Conn().Exec(`
		INSERT INTO split_runs (id, ratio, train_count, val_count, skipped, descriptor, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Ratio, run.TrainCount, run.ValCount, run.Skipped, run.Descriptor, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert split run: %w", err)
	}
	return nil
}

// Latest returns the most recent split run, or nil if none ran yet.
func (r *SplitRepository) Latest() (*model.SplitRun, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var run model.SplitRun
	err := r.db.Conn().QueryRow(`
		SELECT id, ratio, train_count, val_count, skipped, descriptor, created_at
		FROM split_runs ORDER BY created_at DESC, rowid DESC LIMIT 1
	`).Scan(&run.ID, &run.Ratio, &run.TrainCount, &run.ValCount, &run.Skipped, &run.Descriptor, &run.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest split run: %w", err)
	}
	return &run, nil
}
