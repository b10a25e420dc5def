package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"labelstation/internal/config"
	"labelstation/internal/logger"
	"labelstation/internal/metrics"
	"labelstation/internal/repository"
	"labelstation/internal/repository/memory"
	"labelstation/internal/repository/sqlite"
	"labelstation/internal/route"
	"labelstation/internal/service"
	"labelstation/internal/service/ai"
	"labelstation/internal/service/dataset"
	"labelstation/internal/service/lifecycle"
	"labelstation/internal/service/maintenance"
	"labelstation/internal/service/storage"
	"labelstation/internal/service/websocket"
)

const (
	eventJournalLimit = 1000
	shutdownTimeout   = 10 * time.Second
)

// Index groups the repositories behind the capture queue, the event journal
// and the split history.
type Index struct {
	Captures repository.CaptureRepository
	Events   repository.EventRepository
	Splits   repository.SplitRepository
	db       *sqlite.DB
}

// OpenIndex opens the SQLite index at cfg.DatabasePath, or an in-memory one
// when the path is empty.
func OpenIndex(cfg *config.Config) (*Index, error) {
	if cfg.DatabasePath == "" {
		return &Index{
			Captures: memory.NewCaptureRepository(),
			Events:   memory.NewEventRepository(eventJournalLimit),
			Splits:   memory.NewSplitRepository(),
		}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	return &Index{
		Captures: sqlite.NewCaptureRepository(db),
		Events:   sqlite.NewEventRepository(db),
		Splits:   sqlite.NewSplitRepository(db),
		db:       db,
	}, nil
}

// Close releases the database, if any.
func (i *Index) Close() error {
	if i.db == nil {
		return nil
	}
	return i.db.Close()
}

type App struct {
	config           *config.Config
	logger           *logger.Logger
	index            *Index
	metrics          *metrics.Metrics
	detectorServices []*ai.DetectorService
	hubService       *websocket.HubService
	runner           *maintenance.Runner
	manager          *service.Manager
}

// openIndex is replaced in tests.
var openIndex = OpenIndex

func NewApp() (*App, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return newApp(cfg)
}

func newApp(cfg *config.Config) (_ *App, err error) {
	log := logger.NewLogger(cfg)
	defer func() {
		if err != nil {
			log.Close()
		}
	}()

	index, err := openIndex(cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			index.Close()
		}
	}()

	captures, err := storage.NewCaptureStore(cfg.CaptureDirectory, index.Captures, log)
	if err != nil {
		return nil, err
	}
	store, err := storage.NewDatasetStore(cfg.DatasetDirectory, log)
	if err != nil {
		return nil, err
	}
	rejects, err := storage.NewRejectionStore(cfg.RejectDirectory)
	if err != nil {
		return nil, err
	}

	mt := metrics.New()
	hub := websocket.NewHubService(log)

	lc := lifecycle.NewManager(captures, store, rejects, log,
		lifecycle.WithEvents(index.Events),
		lifecycle.WithNotifier(hub),
		lifecycle.WithMetrics(mt),
	)
	report, err := lc.Recover()
	if err != nil {
		return nil, fmt.Errorf("recovery failed: %w", err)
	}
	log.Info("🩹 Recovery: %d completed, %d rolled back, %d adopted, %d staged files purged",
		report.Completed, report.RolledBack, report.Adopted, report.StagingPurged)
	mt.RegisterQueueGauge(lc.PendingCount)

	scrubber, err := dataset.NewScrubber(cfg.SplitDirectory, cfg.QuarantineDirectory, log)
	if err != nil {
		return nil, err
	}
	splitter := dataset.NewSplitter(store, cfg.SplitDirectory, log, cfg.SplitSeed)
	runner := maintenance.NewRunner(splitter, scrubber, index.Splits, log, maintenance.Config{
		Ratio:    cfg.SplitRatio,
		Classes:  cfg.Classes,
		Events:   index.Events,
		Notifier: hub,
		Metrics:  mt,
	})

	detectors := make([]*ai.DetectorService, 0, cfg.ProcessingWorkers)
	workers := make([]service.Detector, 0, cfg.ProcessingWorkers)
	for i := 0; i < cfg.ProcessingWorkers; i++ {
		ds := ai.NewDetectorService(cfg, log) // każdy worker ładuje własną sieć
		detectors = append(detectors, ds)
		workers = append(workers, ds)
	}

	mng := service.NewManager(lc, runner, workers, hub, index.Events, mt, cfg, log)

	return &App{
		config:           cfg,
		logger:           log,
		index:            index,
		metrics:          mt,
		detectorServices: detectors,
		hubService:       hub,
		runner:           runner,
		manager:          mng,
	}, nil
}

// Run serves HTTP until SIGINT or SIGTERM, then shuts everything down.
func (a *App) Run() error {
	// Start background services
	go a.hubService.Run()
	if err := a.runner.Start(a.config.MaintenanceSchedule); err != nil {
		return err
	}

	// Setup routes
	router := route.SetupRoutes(a.manager, a.config, a.logger, a.metrics)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Printf("🚀 Label Station\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("📥 Captures: %s\n", a.config.CaptureDirectory)
	fmt.Printf("📁 Dataset: %s\n", a.config.DatasetDirectory)
	fmt.Printf("🤖 AI Model: %s\n", a.config.ModelPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
		a.logger.Info("🛑 Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("Graceful shutdown failed: %v", err)
		}
	}

	a.close()
	return serveErr
}

func (a *App) close() {
	a.runner.Stop()
	a.manager.Stop()
	a.hubService.Stop()
	for _, ds := range a.detectorServices {
		ds.Close()
	}
	if err := a.index.Close(); err != nil {
		a.logger.Error("Error closing database: %v", err)
	}
	a.logger.Close()
}
