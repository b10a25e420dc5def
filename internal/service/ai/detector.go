package ai

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"labelstation/internal/config"
	"labelstation/internal/logger"
	"labelstation/internal/model"
	"labelstation/internal/service/ai/yolo"
)

// NMSThreshold is the overlap above which same-class boxes are merged.
const NMSThreshold = 0.45

// ErrUnavailable is returned by Detect when no network could be loaded.
var ErrUnavailable = errors.New("detection network not initialized")

var (
	detectionColor = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	textColor      = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	// Label preview colors, one per class id, repeating.
	classColors = []color.RGBA{
		{R: 0, G: 255, B: 0, A: 0},
		{R: 0, G: 255, B: 255, A: 0},
		{R: 255, G: 0, B: 255, A: 0},
		{R: 255, G: 255, B: 0, A: 0},
	}
)

type DetectorService struct {
	net        gocv.Net
	netMutex   sync.Mutex
	ready      bool
	modelPath  string
	configPath string
	classes    []string
	threshold  float32
	logger     *logger.Logger
}

// NewDetectorService creates a detector from the configured model. A model
// that cannot be loaded is logged and leaves the service drawing-only.
func NewDetectorService(config *config.Config, logger *logger.Logger) *DetectorService {
	service := &DetectorService{
		modelPath:  config.ModelPath,
		configPath: config.ModelConfigPath,
		classes:    config.Classes,
		threshold:  float32(config.DetectionThreshold),
		logger:     logger,
	}

	if err := service.initializeNet(); err != nil {
		service.logger.Warning("Could not initialize detection network: %v", err)
		return service
	}

	return service
}

// initializeNet loads the DNN network and sets backend/target preferences.
func (s *DetectorService) initializeNet() error {
	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.modelPath)
	}
	if s.configPath != "" {
		if _, err := os.Stat(s.configPath); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", s.configPath)
		}
	}

	net := gocv.ReadNet(s.modelPath, s.configPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network")
	}
	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	s.net = net
	s.ready = true
	s.logger.Info("Detection network initialized successfully (%d classes)", len(s.classes))
	return nil
}

// Ready reports whether Detect can run.
func (s *DetectorService) Ready() bool {
	return s.ready
}

// Detect runs the network on an encoded frame and returns the boxes above
// the confidence threshold, in frame pixels.
func (s *DetectorService) Detect(frame []byte) ([]model.Detection, error) {
	if !s.ready {
		return nil, ErrUnavailable
	}

	mat, err := decode(frame)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(yolo.InputSize, yolo.InputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	// gocv.Net is not safe for concurrent Forward calls.
	s.netMutex.Lock()
	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	s.netMutex.Unlock()
	defer output.Close()

	// Output shape is [1, 4+nc, anchors].
	dims := output.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read network output: %v", err)
	}

	candidates, err := yolo.Decode(data, dims[1], dims[2], mat.Cols(), mat.Rows(), s.threshold)
	if err != nil {
		return nil, err
	}

	var results []model.Detection
	for _, c := range yolo.Suppress(candidates, NMSThreshold) {
		results = append(results, model.Detection{
			ClassID:    c.ClassID,
			Label:      s.className(c.ClassID),
			Confidence: float64(c.Confidence),
			Box:        c.Box,
		})
		s.logger.Info("🎯 Detected %s (%.2f)", s.className(c.ClassID), c.Confidence)
	}
	return results, nil
}

// DrawRectangle draws detection results on the frame and returns a re-encoded
// JPEG buffer.
func (s *DetectorService) DrawRectangle(detections []model.Detection, frame []byte) ([]byte, error) {
	mat, err := decode(frame)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	for _, detection := range detections {
		label := fmt.Sprintf("%s %.2f", detection.Label, detection.Confidence)
		if err := drawBox(&mat, detection.Box, label, detectionColor, 3); err != nil {
			return nil, err
		}
	}

	return encode(mat)
}

// DrawAnnotations renders stored YOLO boxes onto a dataset image so the
// labels can be checked by eye.
func (s *DetectorService) DrawAnnotations(record []model.Annotation, img []byte) ([]byte, error) {
	mat, err := decode(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	for _, a := range record {
		rect := a.PixelRect(mat.Cols(), mat.Rows())
		c := classColors[a.ClassID%len(classColors)]
		if err := drawBox(&mat, rect, s.className(a.ClassID), c, 2); err != nil {
			return nil, err
		}
	}

	return encode(mat)
}

// Close releases the network.
func (s *DetectorService) Close() error {
	if !s.ready {
		return nil
	}
	s.ready = false
	return s.net.Close()
}

func (s *DetectorService) className(classID int) string {
	if classID >= 0 && classID < len(s.classes) {
		return s.classes[classID]
	}
	return fmt.Sprintf("class %d", classID)
}

func drawBox(mat *gocv.Mat, rect image.Rectangle, label string, c color.RGBA, thickness int) error {
	if err := gocv.Rectangle(mat, rect, c, thickness); err != nil {
		return fmt.Errorf("failed to draw rectangle: %v", err)
	}

	size := gocv.GetTextSize(label, gocv.FontHersheySimplex, 0.5, 1)
	background := image.Rect(rect.Min.X, rect.Min.Y-size.Y-6, rect.Min.X+size.X+6, rect.Min.Y)
	if err := gocv.Rectangle(mat, background, c, -1); err != nil {
		return fmt.Errorf("failed to draw label background: %v", err)
	}
	if err := gocv.PutText(mat, label, image.Pt(rect.Min.X+3, rect.Min.Y-3), gocv.FontHersheySimplex, 0.5, textColor, 1); err != nil {
		return fmt.Errorf("failed to draw text: %v", err)
	}
	return nil
}

func decode(data []byte) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return mat, fmt.Errorf("failed to decode image: %w: %w", err, model.ErrMalformedPayload)
	}
	if mat.Empty() {
		mat.Close()
		return mat, fmt.Errorf("decoded image is empty: %w", model.ErrMalformedPayload)
	}
	return mat, nil
}

func encode(mat gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{int(gocv.IMWriteJpegQuality), 85})
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %v", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}
