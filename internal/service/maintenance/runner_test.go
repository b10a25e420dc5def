package maintenance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"labelstation/internal/config"
	"labelstation/internal/logger"
	"labelstation/internal/metrics"
	"labelstation/internal/model"
	"labelstation/internal/repository/memory"
	"labelstation/internal/service/dataset"
	"labelstation/internal/service/storage"
)

func newTestRunner(t *testing.T, entries int) (*Runner, *memory.EventRepository, string) {
	t.Helper()
	root := t.TempDir()
	log := logger.NewLogger(&config.Config{LogDirectory: t.TempDir()})
	t.Cleanup(func() { log.Close() })

	store, err := storage.NewDatasetStore(filepath.Join(root, "dataset_full"), log)
	if err != nil {
		t.Fatalf("NewDatasetStore failed: %v", err)
	}
	for i := 0; i < entries; i++ {
		store.Insert(fmt.Sprintf("%02d.jpg", i), []byte("img"), []byte("0 0.5 0.5 0.2 0.2\n"))
	}

	splitDir := filepath.Join(root, "dataset")
	scrubber, err := dataset.NewScrubber(splitDir, filepath.Join(root, "removed"), log)
	if err != nil {
		t.Fatalf("NewScrubber failed: %v", err)
	}

	events := memory.NewEventRepository(100)
	runner := NewRunner(dataset.NewSplitter(store, splitDir, log, 11), scrubber, memory.NewSplitRepository(), log, Config{
		Ratio:   0.8,
		Classes: []string{"display", "button"},
		Events:  events,
		Metrics: metrics.New(),
	})
	return runner, events, splitDir
}

func TestRunner_SplitRecordsRun(t *testing.T) {
	runner, events, _ := newTestRunner(t, 10)

	run, desc, err := runner.Split(context.Background(), 0)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if run.ID == "" || run.Ratio != 0.8 || run.TrainCount != 8 || run.ValCount != 2 {
		t.Errorf("Unexpected run: %+v", run)
	}
	if run.Descriptor != desc.Path {
		t.Errorf("Run should point at %s, got %s", desc.Path, run.Descriptor)
	}

	latest, _ := runner.LatestSplit()
	if latest == nil || latest.ID != run.ID {
		t.Errorf("Expected latest run %s, got %+v", run.ID, latest)
	}

	recent, _ := events.Recent(1)
	if len(recent) != 1 || recent[0].Kind != model.EventSplit {
		t.Errorf("Expected a split event, got %+v", recent)
	}
}

func TestRunner_SplitOverrideRatio(t *testing.T) {
	runner, _, _ := newTestRunner(t, 10)

	run, _, err := runner.Split(context.Background(), 0.5)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if run.TrainCount != 5 || run.ValCount != 5 {
		t.Errorf("Expected 5/5, got %d/%d", run.TrainCount, run.ValCount)
	}
}

func TestRunner_ScrubAll(t *testing.T) {
	runner, events, splitDir := newTestRunner(t, 4)

	reports, err := runner.Scrub()
	if err != nil {
		t.Fatalf("Scrub before any split should skip partitions, got %v", err)
	}
	if len(reports) != 0 {
		t.Errorf("Expected no reports, got %d", len(reports))
	}
	if _, err := runner.Scrub(model.PartitionTrain); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Explicit scrub of an unsplit partition should be ErrNotFound, got %v", err)
	}

	_, desc, err := runner.Split(context.Background(), 0.5)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	bad := desc.TrainStems[0] + ".txt"
	os.WriteFile(filepath.Join(splitDir, "labels", "train", bad), []byte("0 2 0.5 0.2 0.2\n"), 0644)

	reports, err = runner.Scrub()
	if err != nil {
		t.Fatalf("Scrub failed: %v", err)
	}
	if len(reports) != 2 || reports[0].Count() != 1 || reports[1].Count() != 0 {
		t.Errorf("Unexpected reports: %+v", reports)
	}

	recent, _ := events.Recent(1)
	if len(recent) != 1 || recent[0].Kind != model.EventQuarantined || recent[0].Filename != desc.TrainStems[0] {
		t.Errorf("Expected a quarantine event, got %+v", recent)
	}
}

func TestRunner_Schedule(t *testing.T) {
	runner, _, _ := newTestRunner(t, 2)

	if err := runner.Start(""); err != nil {
		t.Errorf("Empty schedule should be accepted, got %v", err)
	}
	if err := runner.Start("not a schedule"); err == nil {
		t.Error("Expected an error for an invalid schedule")
	}
	if err := runner.Start("0 3 * * *"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	runner.Stop()
}
