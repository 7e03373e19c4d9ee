package layout

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/ocrdesk/ocrdesk/pkg/xerror"
)

// Rect is a rectangle in image pixel coordinates.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"width"`
	H int `json:"height"`
}

// Area returns the rectangle's area.
func (r Rect) Area() int { return r.W * r.H }

// PageLayout is the ordered set of boxes on one page together with the
// header/footer bands. After every mutation, boxes[i].Order == i.
type PageLayout struct {
	boxes   []*Box
	Region  Rect
	HeaderY int
	FooterY int
}

// NewPageLayout creates a layout covering the given image extent.
func NewPageLayout(region Rect) *PageLayout {
	return &PageLayout{Region: region}
}

// Boxes returns the boxes in order. The slice must not be mutated directly.
func (l *PageLayout) Boxes() []*Box { return l.boxes }

// Len returns the number of boxes.
func (l *PageLayout) Len() int { return len(l.boxes) }

// Box returns the box at index i.
func (l *PageLayout) Box(i int) (*Box, error) {
	if i < 0 || i >= len(l.boxes) {
		return nil, xerror.New(xerror.KindIndexOutOfRange, "no box at index").WithEntity(itoa(i))
	}
	return l.boxes[i], nil
}

// BoxByID scans for the box with the given id and returns it with its index,
// or (nil, -1).
func (l *PageLayout) BoxByID(id string) (*Box, int) {
	for i, b := range l.boxes {
		if b.ID == id {
			return b, i
		}
	}
	return nil, -1
}

// AddBox appends the box and renumbers.
func (l *PageLayout) AddBox(b *Box) {
	l.boxes = append(l.boxes, b)
	l.renumber()
}

// InsertBox inserts the box at index, clamped to [0, len].
func (l *PageLayout) InsertBox(b *Box, index int) {
	if index < 0 {
		index = 0
	}
	if index > len(l.boxes) {
		index = len(l.boxes)
	}
	l.boxes = append(l.boxes, nil)
	copy(l.boxes[index+1:], l.boxes[index:])
	l.boxes[index] = b
	l.renumber()
}

// RemoveBox removes the box at index i and renumbers.
func (l *PageLayout) RemoveBox(i int) error {
	if i < 0 || i >= len(l.boxes) {
		return xerror.New(xerror.KindIndexOutOfRange, "no box at index").WithEntity(itoa(i))
	}
	l.boxes = append(l.boxes[:i], l.boxes[i+1:]...)
	l.renumber()
	return nil
}

// RemoveBoxByID removes the box with the given id; reports whether it was
// present.
func (l *PageLayout) RemoveBoxByID(id string) bool {
	if _, i := l.BoxByID(id); i >= 0 {
		l.boxes = append(l.boxes[:i], l.boxes[i+1:]...)
		l.renumber()
		return true
	}
	return false
}

// ReplaceBox substitutes the box at index i and renumbers.
func (l *PageLayout) ReplaceBox(i int, b *Box) error {
	if i < 0 || i >= len(l.boxes) {
		return xerror.New(xerror.KindIndexOutOfRange, "no box at index").WithEntity(itoa(i))
	}
	l.boxes[i] = b
	l.renumber()
	return nil
}

// ChangeBoxIndex moves the box at i to position j and renumbers.
func (l *PageLayout) ChangeBoxIndex(i, j int) error {
	n := len(l.boxes)
	if i < 0 || i >= n || j < 0 || j >= n {
		return xerror.New(xerror.KindIndexOutOfRange, "box move out of range").WithEntity(itoa(i))
	}
	if i == j {
		return nil
	}
	b := l.boxes[i]
	l.boxes = append(l.boxes[:i], l.boxes[i+1:]...)
	l.boxes = append(l.boxes, nil)
	copy(l.boxes[j+1:], l.boxes[j:])
	l.boxes[j] = b
	l.renumber()
	return nil
}

// SortBoxesByOrder stably sorts by the Order field and renumbers. Idempotent.
func (l *PageLayout) SortBoxesByOrder() {
	sort.SliceStable(l.boxes, func(i, j int) bool {
		return l.boxes[i].Order < l.boxes[j].Order
	})
	l.renumber()
}

// SplitYBox splits the box with the given id at absolute y and inserts the
// bottom slice directly after it.
func (l *PageLayout) SplitYBox(id string, y int) (*Box, error) {
	b, i := l.BoxByID(id)
	if b == nil {
		return nil, xerror.New(xerror.KindIndexOutOfRange, "no box with id").WithEntity(id)
	}
	bottom, err := b.SplitY(y)
	if err != nil {
		return nil, xerror.Wrap(xerror.KindInvalidRegion, "split failed", err).WithEntity(id)
	}
	l.InsertBox(bottom, i+1)
	return bottom, nil
}

// MaxOrder returns the highest order number, or -1 for an empty layout.
func (l *PageLayout) MaxOrder() int {
	return len(l.boxes) - 1
}

// ActiveRegion returns the content band between the header and footer lines.
// A zero footer means the band runs to the bottom of the page.
func (l *PageLayout) ActiveRegion() Rect {
	footer := l.FooterY
	if footer <= 0 {
		footer = l.Region.H
	}
	h := footer - l.HeaderY
	if h < 0 {
		h = 0
	}
	return Rect{X: l.Region.X, Y: l.HeaderY, W: l.Region.W, H: h}
}

// renumber restores the order invariant: boxes[i].Order == i.
func (l *PageLayout) renumber() {
	for i, b := range l.boxes {
		b.Order = i
	}
}

type layoutJSON struct {
	Region  Rect   `json:"region"`
	HeaderY int    `json:"header_y"`
	FooterY int    `json:"footer_y"`
	Boxes   []*Box `json:"boxes"`
}

// MarshalJSON serializes the layout with its boxes in order.
func (l *PageLayout) MarshalJSON() ([]byte, error) {
	return json.Marshal(layoutJSON{
		Region:  l.Region,
		HeaderY: l.HeaderY,
		FooterY: l.FooterY,
		Boxes:   l.boxes,
	})
}

// UnmarshalJSON restores the layout and renumbers the boxes.
func (l *PageLayout) UnmarshalJSON(data []byte) error {
	var w layoutJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	l.Region = w.Region
	l.HeaderY = w.HeaderY
	l.FooterY = w.FooterY
	l.boxes = w.Boxes
	l.SortBoxesByOrder()
	return nil
}

func itoa(i int) string { return strconv.Itoa(i) }
