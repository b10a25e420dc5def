package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"labelstation/internal/config"
	"labelstation/internal/imaging"
	"labelstation/internal/logger"
	"labelstation/internal/metrics"
	"labelstation/internal/model"
	"labelstation/internal/repository"
	"labelstation/internal/service/lifecycle"
	"labelstation/internal/service/maintenance"
	"labelstation/internal/service/websocket"
)

// ErrBusy is returned when every detection worker is occupied and the queue
// is full. The caller should drop the frame.
var ErrBusy = errors.New("processing queue full")

// ErrStopped is returned once Stop has been called.
var ErrStopped = errors.New("manager stopped")

// Detector finds objects in encoded frames and draws boxes on them.
type Detector interface {
	Ready() bool
	Detect(frame []byte) ([]model.Detection, error)
	DrawRectangle(detections []model.Detection, frame []byte) ([]byte, error)
	DrawAnnotations(record []model.Annotation, img []byte) ([]byte, error)
}

// FrameResult is an annotated frame returned to the operator.
type FrameResult struct {
	Image      []byte
	Detections []model.Detection
}

type Manager struct {
	lifecycle        *lifecycle.Manager
	runner           *maintenance.Runner
	detectorServices []Detector
	websocketService *websocket.HubService
	events           repository.EventRepository
	metrics          *metrics.Metrics
	logger           *logger.Logger

	processingQueue chan frameTask
	numWorkers      int

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type frameTask struct {
	ctx      context.Context
	frame    []byte
	queuedAt time.Time
	reply    chan frameReply
}

type frameReply struct {
	result *FrameResult
	err    error
}

// NewManager starts one processing worker per detector. Each worker owns its
// detector, so detectors are never shared between goroutines.
func NewManager(lc *lifecycle.Manager, runner *maintenance.Runner, detectorServices []Detector,
	websocketService *websocket.HubService, events repository.EventRepository, metrics *metrics.Metrics,
	config *config.Config, logger *logger.Logger) *Manager {
	manager := &Manager{
		lifecycle:        lc,
		runner:           runner,
		detectorServices: detectorServices,
		websocketService: websocketService,
		events:           events,
		metrics:          metrics,
		logger:           logger,
		numWorkers:       len(detectorServices),
		processingQueue:  make(chan frameTask, 2*len(detectorServices)),
		done:             make(chan struct{}),
	}

	for i := 0; i < manager.numWorkers; i++ {
		manager.wg.Add(1)
		go manager.processingWorker(i)
	}

	manager.logger.Info("🎬 Manager started with %d detection worker(s), classes %v", manager.numWorkers, config.Classes)
	return manager
}

func (m *Manager) GetLifecycle() *lifecycle.Manager {
	return m.lifecycle
}

func (m *Manager) GetRunner() *maintenance.Runner {
	return m.runner
}

func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.websocketService
}

// ProcessFrame runs live detection on a frame and returns it with boxes drawn.
// Frames that do not decode are rejected with ErrMalformedPayload. It returns
// ErrBusy instead of waiting when the queue is full.
func (m *Manager) ProcessFrame(ctx context.Context, frame []byte) (*FrameResult, error) {
	if _, _, _, err := imaging.Check(frame); err != nil {
		return nil, err
	}
	if m.numWorkers == 0 {
		return &FrameResult{Image: frame}, nil
	}

	task := frameTask{ctx: ctx, frame: frame, queuedAt: time.Now(), reply: make(chan frameReply, 1)}
	select {
	case <-m.done:
		return nil, ErrStopped
	default:
	}
	select {
	case m.processingQueue <- task:
	default:
		m.metrics.FrameDropped()
		return nil, ErrBusy
	}

	select {
	case r := <-task.reply:
		return r.result, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.done:
		return nil, ErrStopped
	}
}

// RenderEntry draws the stored labels of a dataset entry onto its image.
func (m *Manager) RenderEntry(filename string) ([]byte, []model.Annotation, error) {
	img, record, err := m.lifecycle.Entry(filename)
	if err != nil {
		return nil, nil, err
	}
	if len(m.detectorServices) == 0 {
		return img, record, nil
	}
	rendered, err := m.detectorServices[0].DrawAnnotations(record, img)
	if err != nil {
		return nil, nil, err
	}
	return rendered, record, nil
}

// RecentEvents returns the newest journal entries.
func (m *Manager) RecentEvents(limit int) ([]model.Event, error) {
	if m.events == nil {
		return nil, nil
	}
	return m.events.Recent(limit)
}

// processingWorker handles frames with its own detector until Stop.
func (m *Manager) processingWorker(workerID int) {
	defer m.wg.Done()

	m.logger.Info("🔧 Processing worker %d started", workerID)
	for {
		select {
		case task := <-m.processingQueue:
			if task.ctx.Err() != nil {
				continue
			}
			result, err := m.processFrame(task.frame, workerID)
			m.metrics.FrameProcessed(time.Since(task.queuedAt), len(resultDetections(result)))
			task.reply <- frameReply{result: result, err: err}
		case <-m.done:
			m.logger.Info("🔧 Processing worker %d stopped", workerID)
			return
		}
	}
}

func (m *Manager) processFrame(frame []byte, workerID int) (*FrameResult, error) {
	detector := m.detectorServices[workerID]
	if !detector.Ready() {
		return &FrameResult{Image: frame}, nil
	}

	detections, err := detector.Detect(frame)
	if err != nil {
		m.logger.Error("Object detection failed: %v", err)
		return nil, err
	}
	if len(detections) == 0 {
		return &FrameResult{Image: frame}, nil
	}

	annotated, err := detector.DrawRectangle(detections, frame)
	if err != nil {
		m.logger.Error("Failed to draw rectangles: %v", err)
		annotated = frame
	}
	m.logger.Info("✅ Total detections: %d", len(detections))
	return &FrameResult{Image: annotated, Detections: detections}, nil
}

func resultDetections(r *FrameResult) []model.Detection {
	if r == nil {
		return nil
	}
	return r.Detections
}

// Stop ends every worker. Frames still queued are abandoned.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
		m.logger.Info("🛑 All processing workers stopped")
	})
}
