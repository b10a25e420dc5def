package yolo

import (
	"image"
	"testing"
)

// tensor builds a [4+nc, anchors] output from per-anchor rows.
func tensor(nc int, rows [][]float32) []float32 {
	channels := 4 + nc
	data := make([]float32, channels*len(rows))
	for a, row := range rows {
		for c, v := range row {
			data[c*len(rows)+a] = v
		}
	}
	return data
}

func TestDecode(t *testing.T) {
	data := tensor(2, [][]float32{
		{320, 320, 64, 64, 0.1, 0.9},
		{100, 100, 20, 20, 0.2, 0.1},
		{630, 10, 40, 40, 0.7, 0.0},
	})

	got, err := Decode(data, 6, 3, 1280, 640, 0.4)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 candidates, got %+v", got)
	}

	if got[0].ClassID != 1 || got[0].Box != image.Rect(576, 288, 704, 352) {
		t.Errorf("Unexpected first candidate: %+v", got[0])
	}
	// Clipped to the frame.
	if got[1].ClassID != 0 || got[1].Box.Max.X != 1280 || got[1].Box.Min.Y != 0 {
		t.Errorf("Unexpected second candidate: %+v", got[1])
	}
}

func TestDecode_BadShape(t *testing.T) {
	if _, err := Decode(make([]float32, 10), 4, 2, 10, 10, 0.5); err == nil {
		t.Error("Expected an error for too few channels")
	}
	if _, err := Decode(make([]float32, 10), 6, 2, 10, 10, 0.5); err == nil {
		t.Error("Expected an error for a short tensor")
	}
}

func TestSuppress(t *testing.T) {
	candidates := []Candidate{
		{ClassID: 0, Confidence: 0.6, Box: image.Rect(0, 0, 100, 100)},
		{ClassID: 0, Confidence: 0.9, Box: image.Rect(5, 5, 105, 105)},
		{ClassID: 1, Confidence: 0.5, Box: image.Rect(5, 5, 105, 105)},
		{ClassID: 0, Confidence: 0.4, Box: image.Rect(300, 300, 350, 350)},
	}

	kept := Suppress(candidates, 0.45)
	if len(kept) != 3 {
		t.Fatalf("Expected 3 boxes, got %+v", kept)
	}
	if kept[0].Confidence != 0.9 {
		t.Errorf("Highest score should come first, got %+v", kept[0])
	}
}

func TestIoU(t *testing.T) {
	a := image.Rect(0, 0, 10, 10)
	if IoU(a, a) != 1 {
		t.Errorf("Expected 1 for identical boxes, got %v", IoU(a, a))
	}
	if IoU(a, image.Rect(20, 20, 30, 30)) != 0 {
		t.Error("Expected 0 for disjoint boxes")
	}
	if got := IoU(a, image.Rect(0, 0, 10, 5)); got != 0.5 {
		t.Errorf("Expected 0.5, got %v", got)
	}
}
