package model

import "image"

// Annotation is one normalized bounding box in YOLO form.
type Annotation struct {
	ClassID int     `json:"class_id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	W       float64 `json:"w"`
	H       float64 `json:"h"`
}

// PixelRect converts the normalized box to pixel corners, clamped to the image.
func (a Annotation) PixelRect(width, height int) image.Rectangle {
	x1 := int((a.X - a.W/2) * float64(width))
	y1 := int((a.Y - a.H/2) * float64(height))
	x2 := int((a.X + a.W/2) * float64(width))
	y2 := int((a.Y + a.H/2) * float64(height))

	return image.Rect(x1, y1, x2, y2).Intersect(image.Rect(0, 0, width, height))
}

// Detection is a single object returned by the detector, in pixel space.
type Detection struct {
	ClassID    int             `json:"class_id"`
	Label      string          `json:"label"`
	Confidence float64         `json:"confidence"`
	Box        image.Rectangle `json:"box"`
}
