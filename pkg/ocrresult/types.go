package ocrresult

import (
	"encoding/json"
	"fmt"
)

// BBox is a rectangle in image pixel coordinates.
// Serialized as the 4-tuple [x, y, w, h].
type BBox struct {
	X int
	Y int
	W int
	H int
}

// NewBBox creates a bounding box from position and size.
func NewBBox(x, y, w, h int) BBox {
	return BBox{X: x, Y: y, W: w, H: h}
}

// Right returns the x coordinate one past the right edge.
func (b BBox) Right() int { return b.X + b.W }

// Bottom returns the y coordinate one past the bottom edge.
func (b BBox) Bottom() int { return b.Y + b.H }

// Encloses reports whether b contains o (closed comparison).
func (b BBox) Encloses(o BBox) bool {
	return o.X >= b.X && o.Y >= b.Y && o.Right() <= b.Right() && o.Bottom() <= b.Bottom()
}

// Union returns the smallest box covering b and o.
func (b BBox) Union(o BBox) BBox {
	x := min(b.X, o.X)
	y := min(b.Y, o.Y)
	r := max(b.Right(), o.Right())
	bt := max(b.Bottom(), o.Bottom())
	return BBox{X: x, Y: y, W: r - x, H: bt - y}
}

// MarshalJSON emits the box as [x, y, w, h].
func (b BBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]int{b.X, b.Y, b.W, b.H})
}

// UnmarshalJSON accepts the [x, y, w, h] form.
func (b *BBox) UnmarshalJSON(data []byte) error {
	var arr [4]int
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("bbox must be a 4-tuple: %w", err)
	}
	b.X, b.Y, b.W, b.H = arr[0], arr[1], arr[2], arr[3]
	return nil
}

// Point is a pixel coordinate pair, serialized as [x, y].
type Point struct {
	X int
	Y int
}

// MarshalJSON emits the point as [x, y].
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.X, p.Y})
}

// UnmarshalJSON accepts the [x, y] form.
func (p *Point) UnmarshalJSON(data []byte) error {
	var arr [2]int
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("point must be a 2-tuple: %w", err)
	}
	p.X, p.Y = arr[0], arr[1]
	return nil
}

// FontAttributes describes the font Tesseract reported for a word.
type FontAttributes struct {
	Pointsize  int  `json:"pointsize"`
	Bold       bool `json:"bold"`
	Italic     bool `json:"italic"`
	Underlined bool `json:"underlined"`
	Monospace  bool `json:"monospace"`
	Serif      bool `json:"serif"`
	Smallcaps  bool `json:"smallcaps"`
}

// Symbol is a single recognized grapheme.
type Symbol struct {
	Text       string
	BBox       BBox
	Confidence float64
}

// Word is a recognized token. Text is authoritative; when a backend delivers
// per-symbol results the builder assembles Text by concatenating the symbols
// in order.
type Word struct {
	Text                string
	BBox                BBox
	Confidence          float64
	FontAttributes      FontAttributes
	RecognitionLanguage string
	Symbols             []Symbol
}

// Line is a sequence of words sharing a baseline. The baseline runs from
// Baseline[0] to Baseline[1].
type Line struct {
	BBox       BBox
	Confidence float64
	Baseline   [2]Point
	Words      []Word
}

// Paragraph groups lines. UserText, when non-empty, overrides the assembled
// text of the paragraph during export.
type Paragraph struct {
	BBox            BBox
	Confidence      float64
	Justification   string
	IsListItem      bool
	IsCrown         bool
	FirstLineIndent int
	UserText        string
	Lines           []Line
}

// Block is the root of a recognition result for one box.
type Block struct {
	BBox       BBox
	Confidence float64
	Language   string
	Paragraphs []Paragraph
}
