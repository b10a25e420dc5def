package model

import "time"

// Partition names a materialized subset of the dataset.
type Partition string

const (
	PartitionTrain Partition = "train"
	PartitionVal   Partition = "val"
)

// Partitions lists every partition in the order they are written.
var Partitions = []Partition{PartitionTrain, PartitionVal}

// DatasetEntry pairs an image with its label file by stem.
type DatasetEntry struct {
	Stem      string
	ImagePath string
	LabelPath string
}

// Descriptor is the dataset document consumed by the training routine.
type Descriptor struct {
	Train string   `yaml:"train" json:"train"`
	Val   string   `yaml:"val" json:"val"`
	NC    int      `yaml:"nc" json:"nc"`
	Names []string `yaml:"names" json:"names"`

	TrainStems []string `yaml:"-" json:"-"`
	ValStems   []string `yaml:"-" json:"-"`
	Skipped    int      `yaml:"-" json:"skipped"`
	Path       string   `yaml:"-" json:"path"`
}

// SplitRun records one execution of the splitter.
type SplitRun struct {
	ID         string    `json:"id"`
	Ratio      float64   `json:"ratio"`
	TrainCount int       `json:"train_count"`
	ValCount   int       `json:"val_count"`
	Skipped    int       `json:"skipped"`
	Descriptor string    `json:"descriptor"`
	CreatedAt  time.Time `json:"created_at"`
}

// EventKind classifies journal entries.
type EventKind string

const (
	EventCaptured    EventKind = "captured"
	EventIntegrated  EventKind = "integrated"
	EventDiscarded   EventKind = "discarded"
	EventMissing     EventKind = "missing"
	EventRecovered   EventKind = "recovered"
	EventQuarantined EventKind = "quarantined"
	EventSplit       EventKind = "split"
)

// Event is one entry of the lifecycle journal.
type Event struct {
	ID        int64     `json:"id"`
	Kind      EventKind `json:"kind"`
	Filename  string    `json:"filename"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}
