package lifecycle

import (
	"fmt"

	"labelstation/internal/model"
	"labelstation/internal/service/annotation"
)

// RecoveryReport summarizes what Recover repaired.
type RecoveryReport struct {
	Completed     int      `json:"completed"`
	RolledBack    int      `json:"rolled_back"`
	StagingPurged int      `json:"staging_purged"`
	Adopted       int      `json:"adopted"`
	Orphans       []string `json:"orphans"`
}

// Recover settles leases left behind by a crash and re-indexes the capture
// directory. It must run before the server accepts requests.
//
// An interrupted integration is completed when both dataset halves exist;
// otherwise the partial image is removed and the capture goes back to the
// queue. An interrupted discard is completed when the rejected file exists.
func (m *Manager) Recover() (*RecoveryReport, error) {
	report := &RecoveryReport{}
	repo := m.captures.Repository()

	purged, err := m.dataset.PurgeStaging()
	if err != nil {
		return nil, fmt.Errorf("purge staging: %w", err)
	}
	report.StagingPurged = purged

	integrating, err := repo.ListByState(model.CaptureIntegrating)
	if err != nil {
		return nil, err
	}
	for _, item := range integrating {
		hasImage, hasLabel := m.dataset.Has(item.Filename)
		if hasImage && hasLabel {
			if err := m.captures.Remove(item.Filename); err != nil {
				return nil, err
			}
			if err := m.captures.Settle(item.Filename, model.CaptureIntegrating, model.CaptureIntegrated); err != nil {
				return nil, err
			}
			report.Completed++
			m.record(model.EventRecovered, item.Filename, "integration completed")
			continue
		}

		if hasImage {
			if err := m.dataset.RemoveImage(item.Filename); err != nil {
				return nil, err
			}
		}
		if err := m.captures.Settle(item.Filename, model.CaptureIntegrating, model.CapturePending); err != nil {
			return nil, err
		}
		report.RolledBack++
		m.record(model.EventRecovered, item.Filename, "integration rolled back")
	}

	discarding, err := repo.ListByState(model.CaptureDiscarding)
	if err != nil {
		return nil, err
	}
	for _, item := range discarding {
		if m.rejects.Has(item.Filename) {
			if err := m.captures.Remove(item.Filename); err != nil {
				return nil, err
			}
			if err := m.captures.Settle(item.Filename, model.CaptureDiscarding, model.CaptureDiscarded); err != nil {
				return nil, err
			}
			report.Completed++
			m.record(model.EventRecovered, item.Filename, "discard completed")
			continue
		}

		if err := m.captures.Settle(item.Filename, model.CaptureDiscarding, model.CapturePending); err != nil {
			return nil, err
		}
		report.RolledBack++
		m.record(model.EventRecovered, item.Filename, "discard rolled back")
	}

	adopted, err := m.captures.Adopt()
	if err != nil {
		return nil, err
	}
	report.Adopted = adopted

	_, orphans, err := m.dataset.Entries()
	if err != nil {
		return nil, err
	}
	for _, name := range orphans {
		m.logger.Warning("Orphaned dataset file %s: %v", name, model.ErrOrphanedEntry)
	}
	report.Orphans = orphans

	if report.Completed+report.RolledBack+report.StagingPurged > 0 {
		m.logger.Warning("Recovery: %d completed, %d rolled back, %d staged file(s) purged",
			report.Completed, report.RolledBack, report.StagingPurged)
	}
	return report, nil
}

// Stats describes the queue and the dataset.
type Stats struct {
	Pending        int `json:"pending"`
	Integrated     int `json:"integrated"`
	Discarded      int `json:"discarded"`
	Missing        int `json:"missing"`
	InFlight       int `json:"in_flight"`
	DatasetEntries int `json:"dataset_entries"`
	DatasetOrphans int `json:"dataset_orphans"`
	Rejected       int `json:"rejected"`
}

// Stats counts captures per state and entries on disk.
func (m *Manager) Stats() (*Stats, error) {
	counts, err := m.captures.Repository().CountByState()
	if err != nil {
		return nil, err
	}
	entries, orphans, err := m.dataset.Entries()
	if err != nil {
		return nil, err
	}
	rejected, err := m.rejects.Count()
	if err != nil {
		return nil, err
	}

	return &Stats{
		Pending:        counts[model.CapturePending],
		Integrated:     counts[model.CaptureIntegrated],
		Discarded:      counts[model.CaptureDiscarded],
		Missing:        counts[model.CaptureMissing],
		InFlight:       counts[model.CaptureIntegrating] + counts[model.CaptureDiscarding],
		DatasetEntries: len(entries),
		DatasetOrphans: len(orphans),
		Rejected:       rejected,
	}, nil
}

// Entry returns a dataset image together with its parsed labels.
func (m *Manager) Entry(filename string) ([]byte, []model.Annotation, error) {
	image, err := m.dataset.ReadImage(filename)
	if err != nil {
		return nil, nil, err
	}
	text, err := m.dataset.ReadLabel(filename)
	if err != nil {
		return nil, nil, err
	}
	record, err := annotation.Parse(text)
	if err != nil {
		return nil, nil, err
	}
	return image, record, nil
}

// PendingCount is used by the queue gauge.
func (m *Manager) PendingCount() float64 {
	counts, err := m.captures.Repository().CountByState()
	if err != nil {
		return 0
	}
	return float64(counts[model.CapturePending])
}
