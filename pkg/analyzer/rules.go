package analyzer

import (
	"github.com/ocrdesk/ocrdesk/pkg/layout"
)

// FilterBySize drops candidates smaller than the configured thresholds.
func FilterBySize(boxes []*layout.Box, xThreshold, yThreshold int) []*layout.Box {
	var out []*layout.Box
	for _, b := range boxes {
		if b.W < xThreshold || b.H < yThreshold {
			continue
		}
		out = append(out, b)
	}
	return out
}

// RemoveTextInsideImages drops every text box whose rectangle is contained
// in or intersects an image box. Image regions win over text detected on
// top of them.
func RemoveTextInsideImages(boxes []*layout.Box) []*layout.Box {
	var images []*layout.Box
	for _, b := range boxes {
		if b.Type.IsImage() {
			images = append(images, b)
		}
	}
	var out []*layout.Box
	for _, b := range boxes {
		if b.Type.IsText() && collidesWithAny(b, images) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func collidesWithAny(b *layout.Box, others []*layout.Box) bool {
	for _, o := range others {
		if o.Contains(b) || o.Intersects(b) {
			return true
		}
	}
	return false
}

// MergeOverlappingText merges overlapping text boxes into their axis-aligned
// union, keeping the maximum confidence. Merging repeats until no two text
// boxes overlap, so chains of pairwise overlaps collapse into one box.
func MergeOverlappingText(boxes []*layout.Box) []*layout.Box {
	out := append([]*layout.Box(nil), boxes...)
	for {
		merged := false
		for i := 0; i < len(out) && !merged; i++ {
			if !out[i].Type.IsText() {
				continue
			}
			for j := i + 1; j < len(out); j++ {
				if !out[j].Type.IsText() {
					continue
				}
				if !out[i].Intersects(out[j]) && !out[i].Contains(out[j]) && !out[j].Contains(out[i]) {
					continue
				}
				out[i] = unionBoxes(out[i], out[j])
				out = append(out[:j], out[j+1:]...)
				merged = true
				break
			}
		}
		if !merged {
			return out
		}
	}
}

func unionBoxes(a, b *layout.Box) *layout.Box {
	x1 := min(a.X, b.X)
	y1 := min(a.Y, b.Y)
	x2 := max(a.X+a.W, b.X+b.W)
	y2 := max(a.Y+a.H, b.Y+b.H)
	u := a.Clone()
	u.X, u.Y, u.W, u.H = x1, y1, x2-x1, y2-y1
	if b.Confidence > u.Confidence {
		u.Confidence = b.Confidence
	}
	return u
}

// ApplyDetectionRules runs the post-detection cleanup in order: size filter,
// image-over-text removal, text overlap merge.
func ApplyDetectionRules(boxes []*layout.Box, cfg Config) []*layout.Box {
	boxes = FilterBySize(boxes, cfg.XSizeThreshold, cfg.YSizeThreshold)
	boxes = RemoveTextInsideImages(boxes)
	return MergeOverlappingText(boxes)
}
