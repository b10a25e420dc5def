package memory

import (
	"sync"
	"time"

	"labelstation/internal/model"
)

// EventRepository keeps the most recent events up to a fixed capacity.
type EventRepository struct {
	mu     sync.Mutex
	nextID int64
	limit  int
	events []model.Event
}

func NewEventRepository(limit int) *EventRepository {
	if limit <= 0 {
		limit = 1000
	}
	return &EventRepository{limit: limit}
}

func (r *EventRepository) Record(ev *model.Event) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	ev.ID = r.nextID
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	r.events = append(r.events, *ev)
	if len(r.events) > r.limit {
		r.events = r.events[len(r.events)-r.limit:]
	}
	return ev.ID, nil
}

// Recent returns up to limit events, newest first.
func (r *EventRepository) Recent(limit int) ([]model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 || limit > len(r.events) {
		limit = len(r.events)
	}
	out := make([]model.Event, 0, limit)
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.events[i])
	}
	return out, nil
}

// SplitRepository remembers split runs for the lifetime of the process.
type SplitRepository struct {
	mu   sync.Mutex
	runs []model.SplitRun
}

func NewSplitRepository() *SplitRepository {
	return &SplitRepository{}
}

func (r *SplitRepository) Insert(run *model.SplitRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	r.runs = append(r.runs, *run)
	return nil
}

func (r *SplitRepository) Latest() (*model.SplitRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.runs) == 0 {
		return nil, nil
	}
	latest := r.runs[len(r.runs)-1]
	return &latest, nil
}
