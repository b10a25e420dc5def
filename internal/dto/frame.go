package dto

import "labelstation/internal/model"

// ImageRequest carries one data-URI encoded frame. It is the body of both
// /api/frame and /api/capture.
type ImageRequest struct {
	Image string `json:"image"`
}

// FrameResponse is an annotated frame returned by live detection.
type FrameResponse struct {
	Status     string            `json:"status"`
	Image      string            `json:"image"`
	Detections int               `json:"detections"`
	Boxes      []model.Detection `json:"boxes,omitempty"`
}

// CaptureResponse names the capture created from a frame.
type CaptureResponse struct {
	Status   string `json:"status"`
	Filename string `json:"filename"`
}
