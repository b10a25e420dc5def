// Package maintenance runs the batch jobs over the dataset, on demand or on
// a cron schedule, and journals their outcome.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"labelstation/internal/logger"
	"labelstation/internal/metrics"
	"labelstation/internal/model"
	"labelstation/internal/repository"
	"labelstation/internal/service/dataset"
	"labelstation/internal/service/lifecycle"
)

// Runner serializes split and scrub runs.
type Runner struct {
	splitter *dataset.Splitter
	scrubber *dataset.Scrubber
	splits   repository.SplitRepository
	logger   *logger.Logger

	events   repository.EventRepository
	notifier lifecycle.Notifier
	metrics  *metrics.Metrics

	ratio   float64
	classes []string

	mu   sync.Mutex
	cron *cron.Cron
}

type Config struct {
	Ratio   float64
	Classes []string

	Events   repository.EventRepository
	Notifier lifecycle.Notifier
	Metrics  *metrics.Metrics
}

func NewRunner(splitter *dataset.Splitter, scrubber *dataset.Scrubber, splits repository.SplitRepository,
	logger *logger.Logger, cfg Config) *Runner {
	return &Runner{
		splitter: splitter,
		scrubber: scrubber,
		splits:   splits,
		logger:   logger,
		events:   cfg.Events,
		notifier: cfg.Notifier,
		metrics:  cfg.Metrics,
		ratio:    cfg.Ratio,
		classes:  cfg.Classes,
	}
}

// Split materializes the partitions. A zero ratio uses the configured one.
func (r *Runner) Split(ctx context.Context, ratio float64) (*model.SplitRun, *model.Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ratio == 0 {
		ratio = r.ratio
	}
	desc, err := r.splitter.Split(ctx, ratio, r.classes)
	if err != nil {
		return nil, nil, err
	}

	run := &model.SplitRun{
		ID:         uuid.New().String(),
		Ratio:      ratio,
		TrainCount: len(desc.TrainStems),
		ValCount:   len(desc.ValStems),
		Skipped:    desc.Skipped,
		Descriptor: desc.Path,
	}
	if err := r.splits.Insert(run); err != nil {
		return nil, nil, fmt.Errorf("save split run: %w", err)
	}

	r.metrics.SplitCompleted(run.TrainCount, run.ValCount)
	r.record(model.EventSplit, desc.Path, fmt.Sprintf("run %s: %d train, %d val", run.ID, run.TrainCount, run.ValCount))
	return run, desc, nil
}

// Scrub cleans the given partitions, or every partition when none is given.
// When scrubbing every partition, one that was never split is skipped.
func (r *Runner) Scrub(partitions ...model.Partition) ([]*dataset.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := len(partitions) == 0
	if all {
		partitions = model.Partitions
	}

	var reports []*dataset.Report
	for _, p := range partitions {
		report, err := r.scrubber.Scrub(p)
		if all && errors.Is(err, model.ErrNotFound) {
			r.logger.Warning("Skipping scrub of %s: %v", p, err)
			continue
		}
		if err != nil {
			return reports, err
		}

		r.metrics.Quarantined(string(p), report.Count())
		for _, stem := range report.Quarantined {
			r.record(model.EventQuarantined, stem, string(p))
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// LatestSplit returns the most recent split run, or nil.
func (r *Runner) LatestSplit() (*model.SplitRun, error) {
	return r.splits.Latest()
}

// Start schedules a split followed by a scrub of every partition. An empty
// schedule leaves the runner on-demand only.
func (r *Runner) Start(schedule string) error {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		r.logger.Info("Scheduled maintenance disabled")
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, r.runScheduled); err != nil {
		return fmt.Errorf("invalid maintenance schedule %q: %w", schedule, err)
	}
	r.cron = c
	c.Start()
	r.logger.Info("🕒 Maintenance scheduled (cron: %s)", schedule)
	return nil
}

// Stop waits for a running scheduled job to finish.
func (r *Runner) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}

func (r *Runner) runScheduled() {
	run, _, err := r.Split(context.Background(), 0)
	if err != nil {
		r.logger.Error("Scheduled split failed: %v", err)
		return
	}
	r.logger.Info("Scheduled split %s complete", run.ID)

	reports, err := r.Scrub()
	if err != nil {
		r.logger.Error("Scheduled scrub failed: %v", err)
		return
	}
	total := 0
	for _, report := range reports {
		total += report.Count()
	}
	r.logger.Info("Scheduled scrub complete: %d quarantined", total)
}

func (r *Runner) record(kind model.EventKind, filename, detail string) {
	ev := model.Event{Kind: kind, Filename: filename, Detail: detail}
	if r.events != nil {
		if _, err := r.events.Record(&ev); err != nil {
			r.logger.Error("Error saving %s event: %v", kind, err)
		}
	}
	if r.notifier != nil {
		r.notifier.Notify(ev)
	}
}
