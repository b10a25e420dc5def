package dto

import (
	"labelstation/internal/model"
	"labelstation/internal/service/dataset"
	"labelstation/internal/service/lifecycle"
)

// StatusResponse is the generic {status, message} body, used for errors too.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// StatsResponse summarizes the queue, the dataset and the last split.
type StatsResponse struct {
	Status    string           `json:"status"`
	Stats     *lifecycle.Stats `json:"stats"`
	LastSplit *model.SplitRun  `json:"last_split,omitempty"`
}

// SplitRequest optionally overrides the configured train ratio.
type SplitRequest struct {
	Ratio float64 `json:"ratio"`
}

// SplitResponse reports a finished split run.
type SplitResponse struct {
	Status     string            `json:"status"`
	Run        *model.SplitRun   `json:"run"`
	Descriptor *model.Descriptor `json:"descriptor"`
}

// ScrubRequest selects a partition; empty scrubs all of them.
type ScrubRequest struct {
	Partition string `json:"partition"`
}

// ScrubResponse lists the scrub report of every partition processed.
type ScrubResponse struct {
	Status  string            `json:"status"`
	Reports []*dataset.Report `json:"reports"`
}

// EventsResponse lists recent lifecycle events, newest first.
type EventsResponse struct {
	Status string        `json:"status"`
	Events []model.Event `json:"events"`
}
