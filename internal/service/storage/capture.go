package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"labelstation/internal/imaging"
	"labelstation/internal/logger"
	"labelstation/internal/model"
	"labelstation/internal/repository"
)

// captureLayout yields names like 20260206_190146_656283 once the dot is replaced.
const captureLayout = "20060102_150405.000000"

// CaptureStore keeps captured frames on disk and indexes them in a repository.
// The repository sequence number, not the file name, orders the queue.
type CaptureStore struct {
	dir    string
	repo   repository.CaptureRepository
	logger *logger.Logger
	now    func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewCaptureStore creates the capture directory if needed.
func NewCaptureStore(dir string, repo repository.CaptureRepository, logger *logger.Logger) (*CaptureStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create capture directory: %w", err)
	}
	return &CaptureStore{
		dir:    dir,
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Dir returns the capture directory.
func (s *CaptureStore) Dir() string {
	return s.dir
}

// Path returns the on-disk location of a capture.
func (s *CaptureStore) Path(filename string) string {
	return filepath.Join(s.dir, filename)
}

// Repository exposes the capture index.
func (s *CaptureStore) Repository() repository.CaptureRepository {
	return s.repo
}

// nextFilename returns a timestamped name strictly later than the previous one.
func (s *CaptureStore) nextFilename() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now().Truncate(time.Microsecond)
	for {
		if !t.After(s.last) {
			t = s.last.Add(time.Microsecond)
		}
		s.last = t
		name := strings.Replace(t.Format(captureLayout), ".", "_", 1) + ".jpg"
		if _, err := os.Lstat(s.Path(name)); os.IsNotExist(err) {
			return name
		}
	}
}

// Enqueue stores a JPEG frame and appends it to the queue.
func (s *CaptureStore) Enqueue(data []byte, width, height int) (*model.CaptureItem, error) {
	filename := s.nextFilename()

	if err := writeFileAtomic(s.Path(filename), data); err != nil {
		return nil, fmt.Errorf("write capture %s: %w", filename, err)
	}

	item := &model.CaptureItem{
		Filename: filename,
		State:    model.CapturePending,
		Width:    width,
		Height:   height,
		FileSize: int64(len(data)),
	}
	if _, err := s.repo.Insert(item); err != nil {
		os.Remove(s.Path(filename))
		return nil, err
	}

	return item, nil
}

// PeekOldest returns the first pending capture without reserving it.
func (s *CaptureStore) PeekOldest() (*model.CaptureItem, error) {
	return s.repo.Oldest()
}

// Lookup returns the pending capture with the given name or ErrNotFound.
func (s *CaptureStore) Lookup(filename string) (*model.CaptureItem, error) {
	if !ValidName(filename) {
		return nil, fmt.Errorf("capture name %q: %w", filename, model.ErrMalformedPayload)
	}

	item, err := s.repo.GetByFilename(filename)
	if err != nil {
		return nil, err
	}
	if item == nil || item.State != model.CapturePending {
		return nil, fmt.Errorf("capture %s: %w", filename, model.ErrNotFound)
	}
	return item, nil
}

// Read returns the stored frame bytes.
func (s *CaptureStore) Read(filename string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(filename))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("capture file %s: %w", filename, model.ErrNotFound)
	}
	return data, err
}

// Remove deletes the capture file. A file that is already gone is not an error.
func (s *CaptureStore) Remove(filename string) error {
	if err := os.Remove(s.Path(filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove capture %s: %w", filename, err)
	}
	return nil
}

// Adopt indexes capture files the repository does not know yet, in file name
// order, and returns how many were added.
func (s *CaptureStore) Adopt() (int, error) {
	names, err := listFiles(s.dir, IsImage)
	if err != nil {
		return 0, fmt.Errorf("list captures: %w", err)
	}

	adopted := 0
	for _, name := range names {
		known, err := s.repo.GetByFilename(name)
		if err != nil {
			return adopted, err
		}
		if known != nil {
			if known.State.Terminal() {
				s.logger.Warning("Capture %s is %s but its file is still queued", name, known.State)
			}
			continue
		}

		data, err := os.ReadFile(s.Path(name))
		if err != nil {
			s.logger.Warning("Skipping unreadable capture %s: %v", name, err)
			continue
		}
		width, height, _, err := imaging.Check(data)
		if err != nil {
			s.logger.Warning("Skipping undecodable capture %s: %v", name, err)
			continue
		}

		item := &model.CaptureItem{
			Filename: name,
			State:    model.CapturePending,
			Width:    width,
			Height:   height,
			FileSize: int64(len(data)),
		}
		if info, err := os.Stat(s.Path(name)); err == nil {
			item.CreatedAt = info.ModTime()
		}
		if _, err := s.repo.Insert(item); err != nil {
			return adopted, err
		}
		adopted++
	}

	if adopted > 0 {
		s.logger.Info("📥 Adopted %d capture(s) from %s", adopted, s.dir)
	}
	return adopted, nil
}

// ErrNotPending is returned by Claim when another caller holds the capture.
var ErrNotPending = errors.New("capture is not pending")

// Claim takes the lease on a pending capture by moving it to state to.
func (s *CaptureStore) Claim(filename string, to model.CaptureState) error {
	ok, err := s.repo.Transition(filename, model.CapturePending, to)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("capture %s: %w: %w", filename, ErrNotPending, model.ErrNotFound)
	}
	return nil
}

// Settle moves a leased capture to its next state.
func (s *CaptureStore) Settle(filename string, from, to model.CaptureState) error {
	ok, err := s.repo.Transition(filename, from, to)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("capture %s is no longer %s", filename, from)
	}
	return nil
}
