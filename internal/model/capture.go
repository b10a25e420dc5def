package model

import "time"

// CaptureState is the lifecycle state of a captured frame.
type CaptureState string

const (
	CapturePending     CaptureState = "pending"
	CaptureIntegrating CaptureState = "integrating"
	CaptureDiscarding  CaptureState = "discarding"
	CaptureIntegrated  CaptureState = "integrated"
	CaptureDiscarded   CaptureState = "discarded"
	CaptureMissing     CaptureState = "missing"
)

// Terminal reports whether no further transition is allowed out of the state.
// CaptureMissing is terminal: the file vanished before anyone labeled it.
func (s CaptureState) Terminal() bool {
	return s == CaptureIntegrated || s == CaptureDiscarded || s == CaptureMissing
}

// CaptureItem is a frame waiting in the labeling queue.
type CaptureItem struct {
	Seq       int64        `json:"seq"`
	Filename  string       `json:"filename"`
	State     CaptureState `json:"state"`
	Width     int          `json:"width"`
	Height    int          `json:"height"`
	FileSize  int64        `json:"filesize"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
