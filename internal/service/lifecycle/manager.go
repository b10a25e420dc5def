// Package lifecycle moves captured frames through the labeling queue into the
// dataset or the rejection directory.
//
// Every destructive step is guarded by a lease taken with a compare-and-set
// on the capture index (pending -> integrating or pending -> discarding).
// Of two callers racing on the same file exactly one obtains the lease; the
// other sees ErrNotFound and nothing is written twice.
package lifecycle

import (
	"errors"
	"fmt"
	"io/fs"

	"labelstation/internal/imaging"
	"labelstation/internal/logger"
	"labelstation/internal/metrics"
	"labelstation/internal/model"
	"labelstation/internal/repository"
	"labelstation/internal/service/annotation"
	"labelstation/internal/service/storage"
)

// Notifier receives lifecycle events, e.g. to refresh labeling clients.
type Notifier interface {
	Notify(ev model.Event)
}

type Manager struct {
	captures *storage.CaptureStore
	dataset  *storage.DatasetStore
	rejects  *storage.RejectionStore
	logger   *logger.Logger

	events   repository.EventRepository
	notifier Notifier
	metrics  *metrics.Metrics
}

// Option configures optional collaborators of the Manager.
type Option func(*Manager)

// WithEvents journals every transition.
func WithEvents(repo repository.EventRepository) Option {
	return func(m *Manager) { m.events = repo }
}

// WithNotifier publishes every transition.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithMetrics counts transitions.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

func NewManager(captures *storage.CaptureStore, dataset *storage.DatasetStore, rejects *storage.RejectionStore,
	logger *logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		captures: captures,
		dataset:  dataset,
		rejects:  rejects,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Capture saves a frame to the labeling queue. Non-JPEG input is re-encoded.
func (m *Manager) Capture(data []byte) (*model.CaptureItem, error) {
	frame, width, height, err := imaging.NormalizeJPEG(data)
	if err != nil {
		return nil, err
	}

	item, err := m.captures.Enqueue(frame, width, height)
	if err != nil {
		return nil, err
	}

	m.logger.Info("📸 Captured %s (%dx%d)", item.Filename, width, height)
	m.metrics.CaptureAdded()
	m.record(model.EventCaptured, item.Filename, fmt.Sprintf("%dx%d", width, height))
	return item, nil
}

// Next returns the oldest pending capture and its bytes, or nil when the
// queue is empty. It does not reserve the item.
func (m *Manager) Next() (*model.CaptureItem, []byte, error) {
	for {
		item, err := m.captures.PeekOldest()
		if err != nil {
			return nil, nil, err
		}
		if item == nil {
			return nil, nil, nil
		}

		data, err := m.captures.Read(item.Filename)
		if err == nil {
			return item, data, nil
		}
		if !errors.Is(err, model.ErrNotFound) {
			return nil, nil, err
		}

		// The file vanished behind our back; drop it from the queue so the
		// next item can be served.
		m.logger.Warning("Capture %s is queued but its file is missing; dropping it", item.Filename)
		dropped, err := m.captures.Repository().Transition(item.Filename, model.CapturePending, model.CaptureMissing)
		if err != nil {
			return nil, nil, err
		}
		if dropped {
			m.record(model.EventMissing, item.Filename, "file missing")
		}
	}
}

// SubmitLabel validates record against the stored capture and, if accepted,
// integrates the pair into the dataset. It returns the number of boxes written.
func (m *Manager) SubmitLabel(filename string, record []model.Annotation) (int, error) {
	if _, err := m.captures.Lookup(filename); err != nil {
		return 0, err
	}

	data, err := m.captures.Read(filename)
	if err != nil {
		return 0, err
	}
	width, height, _, err := imaging.Check(data)
	if err != nil {
		return 0, err
	}

	if err := annotation.Validate(record, width, height); err != nil {
		var invalid *annotation.InvalidError
		if errors.As(err, &invalid) {
			m.metrics.LabelRejected(invalid.Reason.String())
		}
		m.logger.Warning("Rejected labels for %s: %v", filename, err)
		return 0, err
	}

	if err := m.captures.Claim(filename, model.CaptureIntegrating); err != nil {
		return 0, err
	}

	if err := m.dataset.Insert(filename, data, annotation.Format(record)); err != nil {
		m.release(filename, model.CaptureIntegrating)
		return 0, err
	}

	if err := m.captures.Remove(filename); err != nil {
		m.logger.Error("Integrated %s but could not remove the capture: %v", filename, err)
	}
	if err := m.captures.Settle(filename, model.CaptureIntegrating, model.CaptureIntegrated); err != nil {
		return 0, err
	}

	m.logger.Info("✅ Integrated %s with %d label(s)", filename, len(record))
	m.metrics.Integrated()
	m.record(model.EventIntegrated, filename, fmt.Sprintf("%d labels", len(record)))
	return len(record), nil
}

// Discard moves a pending capture into the rejection directory.
func (m *Manager) Discard(filename string) error {
	if _, err := m.captures.Lookup(filename); err != nil {
		return err
	}

	if err := m.captures.Claim(filename, model.CaptureDiscarding); err != nil {
		return err
	}

	if err := m.rejects.Accept(m.captures.Path(filename), filename); err != nil {
		m.release(filename, model.CaptureDiscarding)
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("capture file %s: %w", filename, model.ErrNotFound)
		}
		return err
	}

	if err := m.captures.Settle(filename, model.CaptureDiscarding, model.CaptureDiscarded); err != nil {
		return err
	}

	m.logger.Info("🗑 Discarded %s", filename)
	m.metrics.Discarded()
	m.record(model.EventDiscarded, filename, "")
	return nil
}

// release hands a lease back after a failed destructive step.
func (m *Manager) release(filename string, from model.CaptureState) {
	if err := m.captures.Settle(filename, from, model.CapturePending); err != nil {
		m.logger.Error("Could not return %s to the queue: %v", filename, err)
	}
}

func (m *Manager) record(kind model.EventKind, filename, detail string) {
	ev := model.Event{Kind: kind, Filename: filename, Detail: detail}
	if m.events != nil {
		if _, err := m.events.Record(&ev); err != nil {
			m.logger.Error("Error saving %s event for %s: %v", kind, filename, err)
		}
	}
	if m.notifier != nil {
		m.notifier.Notify(ev)
	}
}
