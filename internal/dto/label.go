package dto

import "labelstation/internal/model"

// NextResponse is the next capture waiting for labels. Filename and Image are
// empty when Status is "empty".
type NextResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Filename string `json:"filename,omitempty"`
	Image    string `json:"image,omitempty"`
}

// LabelRequest submits the boxes drawn for a capture.
type LabelRequest struct {
	Filename string             `json:"filename"`
	Labels   []model.Annotation `json:"labels"`
}

// LabelResponse confirms an integration. Labels is the number of boxes written.
type LabelResponse struct {
	Status string `json:"status"`
	Image  string `json:"image"`
	Labels int    `json:"labels"`
}

// DeleteRequest discards a capture.
type DeleteRequest struct {
	Filename string `json:"filename"`
}

// PreviewResponse shows a dataset entry with its stored labels drawn on it.
type PreviewResponse struct {
	Status   string             `json:"status"`
	Filename string             `json:"filename"`
	Image    string             `json:"image"`
	Labels   []model.Annotation `json:"labels"`
}
