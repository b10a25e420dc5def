package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"labelstation/internal/logger"
	"labelstation/internal/model"
	"labelstation/internal/service/annotation"
	"labelstation/internal/service/storage"
)

// Report lists what a scrub pass moved and what it only warned about.
type Report struct {
	Partition   model.Partition `json:"partition"`
	Quarantined []string        `json:"quarantined"`
	Orphans     []string        `json:"orphans"`
}

// Count is the number of quarantined entries.
func (r *Report) Count() int {
	return len(r.Quarantined)
}

// Scrubber re-validates the labels of a materialized partition and moves
// failing entries into quarantine/{images,labels}.
type Scrubber struct {
	splitDir      string
	quarantineDir string
	logger        *logger.Logger
}

func NewScrubber(splitDir, quarantineDir string, logger *logger.Logger) (*Scrubber, error) {
	for _, sub := range []string{"images", "labels"} {
		if err := os.MkdirAll(filepath.Join(quarantineDir, sub), 0755); err != nil {
			return nil, fmt.Errorf("create quarantine: %w", err)
		}
	}
	return &Scrubber{
		splitDir:      splitDir,
		quarantineDir: quarantineDir,
		logger:        logger,
	}, nil
}

func (s *Scrubber) QuarantineDir() string {
	return s.quarantineDir
}

// ParsePartition accepts "train" or "val".
func ParsePartition(name string) (model.Partition, error) {
	for _, p := range model.Partitions {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("partition %q: %w", name, model.ErrMalformedPayload)
}

// Scrub quarantines every entry of partition whose label file has at least
// one invalid line. A label without an image is quarantined alone. Running it
// again on the same partition finds nothing.
func (s *Scrubber) Scrub(partition model.Partition) (*Report, error) {
	if _, err := ParsePartition(string(partition)); err != nil {
		return nil, err
	}

	imagesDir := filepath.Join(s.splitDir, "images", string(partition))
	labelsDir := filepath.Join(s.splitDir, "labels", string(partition))

	labels, err := storage.ListLabels(labelsDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("partition %s has not been split yet: %w", partition, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	report := &Report{Partition: partition}
	labelled := make(map[string]bool, len(labels))
	for _, name := range labels {
		stem := storage.Stem(name)
		labelled[stem] = true

		data, err := os.ReadFile(filepath.Join(labelsDir, name))
		if err != nil {
			s.logger.Warning("Unreadable label %s/%s: %v", partition, name, err)
			report.Orphans = append(report.Orphans, name)
			continue
		}
		verr := annotation.ValidateText(data)
		if verr == nil {
			continue
		}

		s.logger.Warning("⚠️ Invalid label in %s: %s (%v)", partition, name, verr)
		if err := storage.MoveFile(filepath.Join(labelsDir, name), filepath.Join(s.quarantineDir, "labels", name)); err != nil {
			return report, fmt.Errorf("quarantine label %s: %w", name, err)
		}
		if image := storage.FindImage(imagesDir, stem); image != "" {
			if err := storage.MoveFile(filepath.Join(imagesDir, image), filepath.Join(s.quarantineDir, "images", image)); err != nil {
				return report, fmt.Errorf("quarantine image %s: %w", image, err)
			}
		}
		report.Quarantined = append(report.Quarantined, stem)
	}

	images, err := storage.ListImages(imagesDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return report, err
	}
	for _, name := range images {
		if !labelled[storage.Stem(name)] {
			s.logger.Warning("Image %s/%s has no label: %v", partition, name, model.ErrOrphanedEntry)
			report.Orphans = append(report.Orphans, name)
		}
	}

	if report.Count() > 0 {
		s.logger.Info("🧹 Quarantined %d entr(ies) from %s", report.Count(), partition)
	}
	return report, nil
}
