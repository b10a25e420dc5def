// Package yolo decodes the raw output tensor of a YOLOv8 detection model.
package yolo

import (
	"fmt"
	"image"
	"sort"
)

// InputSize is the square input edge the exported models expect.
const InputSize = 640

// Candidate is one box above the confidence threshold, in original image
// pixels.
type Candidate struct {
	ClassID    int
	Confidence float32
	Box        image.Rectangle
}

// Decode reads a [4+nc, anchors] row-major tensor. Each anchor column holds
// cx, cy, w, h in input pixels followed by one score per class. Boxes are
// scaled to a width x height frame and clipped to it.
func Decode(data []float32, channels, anchors int, width, height int, threshold float32) ([]Candidate, error) {
	if channels < 5 {
		return nil, fmt.Errorf("output has %d channels, expected at least 5", channels)
	}
	if len(data) < channels*anchors {
		return nil, fmt.Errorf("output has %d values, expected %d", len(data), channels*anchors)
	}

	sx := float32(width) / InputSize
	sy := float32(height) / InputSize
	bounds := image.Rect(0, 0, width, height)

	var out []Candidate
	for a := 0; a < anchors; a++ {
		best, score := -1, threshold
		for c := 4; c < channels; c++ {
			if v := data[c*anchors+a]; v >= score {
				best, score = c-4, v
			}
		}
		if best < 0 {
			continue
		}

		cx, cy := data[a], data[anchors+a]
		w, h := data[2*anchors+a], data[3*anchors+a]
		box := image.Rect(
			int((cx-w/2)*sx), int((cy-h/2)*sy),
			int((cx+w/2)*sx), int((cy+h/2)*sy),
		).Intersect(bounds)
		if box.Empty() {
			continue
		}
		out = append(out, Candidate{ClassID: best, Confidence: score, Box: box})
	}
	return out, nil
}

// Suppress keeps the highest scoring box of every group of same-class boxes
// overlapping by more than iou.
func Suppress(candidates []Candidate, iou float64) []Candidate {
	sorted := append([]Candidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	var kept []Candidate
	for _, c := range sorted {
		overlaps := false
		for _, k := range kept {
			if k.ClassID == c.ClassID && IoU(k.Box, c.Box) > iou {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, c)
		}
	}
	return kept
}

// IoU is the intersection over union of two rectangles.
func IoU(a, b image.Rectangle) float64 {
	inter := area(a.Intersect(b))
	if inter == 0 {
		return 0
	}
	return float64(inter) / float64(area(a)+area(b)-inter)
}

func area(r image.Rectangle) int {
	if r.Empty() {
		return 0
	}
	return r.Dx() * r.Dy()
}
