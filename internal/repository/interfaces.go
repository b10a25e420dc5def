package repository

import "labelstation/internal/model"

// CaptureRepository indexes the labeling queue. Seq is assigned on insert and
// defines queue order.
type CaptureRepository interface {
	// Create operations
	Insert(item *model.CaptureItem) (int64, error)

	// Read operations
	GetByFilename(filename string) (*model.CaptureItem, error)
	Oldest() (*model.CaptureItem, error)
	ListByState(state model.CaptureState) ([]model.CaptureItem, error)
	CountByState() (map[model.CaptureState]int, error)

	// Transition moves filename from one state to another only if it is
	// currently in from. It reports whether this caller made the move.
	Transition(filename string, from, to model.CaptureState) (bool, error)
}

// EventRepository stores the lifecycle journal.
type EventRepository interface {
	Record(ev *model.Event) (int64, error)
	Recent(limit int) ([]model.Event, error)
}

// SplitRepository stores split runs.
type SplitRepository interface {
	Insert(run *model.SplitRun) error
	Latest() (*model.SplitRun, error)
}
