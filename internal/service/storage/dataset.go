package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"labelstation/internal/logger"
	"labelstation/internal/model"
)

const stagingDirName = ".staging"

// DatasetStore holds accepted entries in parallel images/ and labels/ dirs.
// Inserts share the gate; batch readers such as the splitter take it
// exclusively through Exclusive.
type DatasetStore struct {
	root       string
	imagesDir  string
	labelsDir  string
	stagingDir string
	logger     *logger.Logger

	gate sync.RWMutex
}

// NewDatasetStore creates the dataset layout under root if needed.
func NewDatasetStore(root string, logger *logger.Logger) (*DatasetStore, error) {
	s := &DatasetStore{
		root:       root,
		imagesDir:  filepath.Join(root, "images"),
		labelsDir:  filepath.Join(root, "labels"),
		stagingDir: filepath.Join(root, stagingDirName),
		logger:     logger,
	}

	for _, dir := range []string{s.imagesDir, s.labelsDir, s.stagingDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create dataset directory: %w", err)
		}
	}
	return s, nil
}

func (s *DatasetStore) Root() string      { return s.root }
func (s *DatasetStore) ImagesDir() string { return s.imagesDir }
func (s *DatasetStore) LabelsDir() string { return s.labelsDir }

// Insert adds an image and its label. Both halves are written to the staging
// directory first and then renamed into place, image before label.
func (s *DatasetStore) Insert(filename string, image, label []byte) error {
	if !ValidName(filename) {
		return fmt.Errorf("dataset name %q: %w", filename, model.ErrMalformedPayload)
	}

	s.gate.RLock()
	defer s.gate.RUnlock()

	labelName := LabelName(filename)
	stagedImage := filepath.Join(s.stagingDir, filename)
	stagedLabel := filepath.Join(s.stagingDir, labelName)

	if err := writeFileAtomic(stagedImage, image); err != nil {
		return fmt.Errorf("stage image %s: %w", filename, err)
	}
	if err := writeFileAtomic(stagedLabel, label); err != nil {
		os.Remove(stagedImage)
		return fmt.Errorf("stage label %s: %w", labelName, err)
	}

	if err := os.Rename(stagedImage, filepath.Join(s.imagesDir, filename)); err != nil {
		os.Remove(stagedImage)
		os.Remove(stagedLabel)
		return fmt.Errorf("place image %s: %w", filename, err)
	}
	if err := os.Rename(stagedLabel, filepath.Join(s.labelsDir, labelName)); err != nil {
		os.Remove(filepath.Join(s.imagesDir, filename))
		os.Remove(stagedLabel)
		return fmt.Errorf("place label %s: %w", labelName, err)
	}

	return nil
}

// Has reports which halves of an entry exist.
func (s *DatasetStore) Has(filename string) (image, label bool) {
	if _, err := os.Stat(filepath.Join(s.imagesDir, filename)); err == nil {
		image = true
	}
	if _, err := os.Stat(filepath.Join(s.labelsDir, LabelName(filename))); err == nil {
		label = true
	}
	return image, label
}

// RemoveImage deletes an image that never received its label.
func (s *DatasetStore) RemoveImage(filename string) error {
	if err := os.Remove(filepath.Join(s.imagesDir, filename)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ReadImage returns the stored image bytes.
func (s *DatasetStore) ReadImage(filename string) ([]byte, error) {
	if !ValidName(filename) {
		return nil, fmt.Errorf("dataset name %q: %w", filename, model.ErrMalformedPayload)
	}
	data, err := os.ReadFile(filepath.Join(s.imagesDir, filename))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("dataset image %s: %w", filename, model.ErrNotFound)
	}
	return data, err
}

// ReadLabel returns the label text paired with an image name.
func (s *DatasetStore) ReadLabel(filename string) ([]byte, error) {
	if !ValidName(filename) {
		return nil, fmt.Errorf("dataset name %q: %w", filename, model.ErrMalformedPayload)
	}
	data, err := os.ReadFile(filepath.Join(s.labelsDir, LabelName(filename)))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("dataset label for %s: %w", filename, model.ErrNotFound)
	}
	return data, err
}

// Entries lists stems present in both directories. Images without a label and
// labels without an image are returned as orphans.
func (s *DatasetStore) Entries() ([]model.DatasetEntry, []string, error) {
	images, err := listFiles(s.imagesDir, IsImage)
	if err != nil {
		return nil, nil, fmt.Errorf("list dataset images: %w", err)
	}
	labels, err := listFiles(s.labelsDir, IsLabel)
	if err != nil {
		return nil, nil, fmt.Errorf("list dataset labels: %w", err)
	}

	labelByStem := make(map[string]string, len(labels))
	for _, name := range labels {
		labelByStem[Stem(name)] = name
	}

	var entries []model.DatasetEntry
	var orphans []string
	seen := make(map[string]bool, len(images))
	for _, name := range images {
		stem := Stem(name)
		label, ok := labelByStem[stem]
		if !ok || seen[stem] {
			orphans = append(orphans, name)
			continue
		}
		seen[stem] = true
		entries = append(entries, model.DatasetEntry{
			Stem:      stem,
			ImagePath: filepath.Join(s.imagesDir, name),
			LabelPath: filepath.Join(s.labelsDir, label),
		})
	}
	for _, name := range labels {
		if !seen[Stem(name)] {
			orphans = append(orphans, name)
		}
	}

	return entries, orphans, nil
}

// PurgeStaging removes leftovers of interrupted inserts.
func (s *DatasetStore) PurgeStaging() (int, error) {
	entries, err := os.ReadDir(s.stagingDir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.stagingDir, entry.Name())); err != nil {
			return removed, err
		}
		removed++
	}
	if removed > 0 {
		s.logger.Warning("Purged %d staged file(s) left by interrupted inserts", removed)
	}
	return removed, nil
}

// Exclusive runs fn while no insert is in flight.
func (s *DatasetStore) Exclusive(fn func() error) error {
	s.gate.Lock()
	defer s.gate.Unlock()
	return fn()
}
