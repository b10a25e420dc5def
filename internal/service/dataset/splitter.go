// Package dataset materializes train/val partitions from the accepted corpus
// and quarantines partition entries whose labels no longer validate.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"labelstation/internal/logger"
	"labelstation/internal/model"
	"labelstation/internal/service/storage"
)

// DescriptorName is the file written at the root of the split directory.
const DescriptorName = "dataset.yaml"

// ErrEmptyDataset is returned when there is nothing to split.
var ErrEmptyDataset = errors.New("dataset has no complete entries")

// Splitter copies every complete dataset entry into images/{train,val} and
// labels/{train,val} under its output directory.
type Splitter struct {
	source  *storage.DatasetStore
	outDir  string
	logger  *logger.Logger
	rand    *rand.Rand
	workers int
}

// NewSplitter builds a splitter. A zero seed shuffles differently every run.
func NewSplitter(source *storage.DatasetStore, outDir string, logger *logger.Logger, seed int64) *Splitter {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Splitter{
		source:  source,
		outDir:  outDir,
		logger:  logger,
		rand:    rand.New(rand.NewSource(seed)),
		workers: 4,
	}
}

func (s *Splitter) OutDir() string {
	return s.outDir
}

// ImagesDir returns the image directory of a partition.
func (s *Splitter) ImagesDir(p model.Partition) string {
	return filepath.Join(s.outDir, "images", string(p))
}

// LabelsDir returns the label directory of a partition.
func (s *Splitter) LabelsDir(p model.Partition) string {
	return filepath.Join(s.outDir, "labels", string(p))
}

// Split shuffles the complete entries, puts floor(ratio*N) of them in train
// and the rest in val, and writes the descriptor. Files left in the
// partitions by earlier runs are not removed.
func (s *Splitter) Split(ctx context.Context, ratio float64, classes []string) (*model.Descriptor, error) {
	if !(ratio > 0 && ratio < 1) {
		return nil, fmt.Errorf("split ratio %v outside (0,1): %w", ratio, model.ErrMalformedPayload)
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("no class names: %w", model.ErrMalformedPayload)
	}

	var desc *model.Descriptor
	err := s.source.Exclusive(func() error {
		var err error
		desc, err = s.split(ctx, ratio, classes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return desc, nil
}

func (s *Splitter) split(ctx context.Context, ratio float64, classes []string) (*model.Descriptor, error) {
	entries, orphans, err := s.source.Entries()
	if err != nil {
		return nil, err
	}
	for _, name := range orphans {
		s.logger.Warning("Skipping %s: %v", name, model.ErrOrphanedEntry)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", s.source.Root(), ErrEmptyDataset)
	}

	s.rand.Shuffle(len(entries), func(i, j int) {
		entries[i], entries[j] = entries[j], entries[i]
	})
	cut := int(math.Floor(ratio * float64(len(entries))))
	assignment := map[model.Partition][]model.DatasetEntry{
		model.PartitionTrain: entries[:cut],
		model.PartitionVal:   entries[cut:],
	}

	for _, p := range model.Partitions {
		for _, dir := range []string{s.ImagesDir(p), s.LabelsDir(p)} {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create %s: %w", dir, err)
			}
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, p := range model.Partitions {
		imagesDir, labelsDir := s.ImagesDir(p), s.LabelsDir(p)
		for _, entry := range assignment[p] {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := storage.CopyFile(entry.ImagePath, filepath.Join(imagesDir, filepath.Base(entry.ImagePath))); err != nil {
					return fmt.Errorf("copy image %s: %w", entry.Stem, err)
				}
				if err := storage.CopyFile(entry.LabelPath, filepath.Join(labelsDir, filepath.Base(entry.LabelPath))); err != nil {
					return fmt.Errorf("copy label %s: %w", entry.Stem, err)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	desc, err := s.writeDescriptor(classes, assignment)
	if err != nil {
		return nil, err
	}
	desc.Skipped = len(orphans)

	s.logger.Info("✂️ Split %d entries: %d train, %d val (%d skipped)",
		len(entries), len(desc.TrainStems), len(desc.ValStems), len(orphans))
	return desc, nil
}

func (s *Splitter) writeDescriptor(classes []string, assignment map[model.Partition][]model.DatasetEntry) (*model.Descriptor, error) {
	train, err := filepath.Abs(s.ImagesDir(model.PartitionTrain))
	if err != nil {
		return nil, err
	}
	val, err := filepath.Abs(s.ImagesDir(model.PartitionVal))
	if err != nil {
		return nil, err
	}
	path, err := filepath.Abs(filepath.Join(s.outDir, DescriptorName))
	if err != nil {
		return nil, err
	}

	desc := &model.Descriptor{
		Train:      train,
		Val:        val,
		NC:         len(classes),
		Names:      append([]string(nil), classes...),
		TrainStems: stems(assignment[model.PartitionTrain]),
		ValStems:   stems(assignment[model.PartitionVal]),
		Path:       path,
	}

	data, err := yaml.Marshal(desc)
	if err != nil {
		return nil, fmt.Errorf("encode descriptor: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("write descriptor: %w", err)
	}
	return desc, nil
}

// ReadDescriptor loads a descriptor written by Split.
func ReadDescriptor(path string) (*model.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var desc model.Descriptor
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("parse descriptor %s: %w", path, err)
	}
	desc.Path = path
	return &desc, nil
}

func stems(entries []model.DatasetEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Stem)
	}
	sort.Strings(out)
	return out
}
