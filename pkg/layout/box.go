// Package layout implements the page region model: typed boxes with geometry,
// recognition results and user overrides, and the ordered page layout that
// owns them.
package layout

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ocrdesk/ocrdesk/pkg/boxtype"
	"github.com/ocrdesk/ocrdesk/pkg/ocrresult"
)

// Mutation sources. A mutation tagged with a source does not notify observers
// registered under the same source, which keeps model and view from feeding
// each other's updates back.
const (
	SourceGUI     = "GUI"
	SourceBackend = "Backend"
)

// ChangeFunc observes box mutations.
type ChangeFunc func(*Box)

type observer struct {
	source string
	fn     ChangeFunc
}

// Box is a typed rectangular region on a page image. Width and height are
// always positive. UserText and FlowsIntoNext are meaningful for TEXT-family
// boxes only; IMAGE and LINE boxes never carry OCRResults.
type Box struct {
	ID         string
	X, Y       int
	W, H       int
	Type       boxtype.Type
	Order      int
	Confidence float64
	UserData   map[string]string
	OCRResults *ocrresult.Block

	UserText      string
	FlowsIntoNext bool

	// Recognized is cleared whenever the rectangle materially changes;
	// such boxes need re-recognition before export.
	Recognized bool

	observers []observer
}

// New creates a box with a fresh random identifier.
func New(t boxtype.Type, x, y, w, h int) *Box {
	return &Box{
		ID:       uuid.NewString(),
		X:        x,
		Y:        y,
		W:        w,
		H:        h,
		Type:     t,
		UserData: make(map[string]string),
	}
}

// Position returns (x, y, w, h).
func (b *Box) Position() (int, int, int, int) {
	return b.X, b.Y, b.W, b.H
}

// Expand inflates the box symmetrically by n pixels on every side.
func (b *Box) Expand(n int) {
	b.X -= n
	b.Y -= n
	b.W += 2 * n
	b.H += 2 * n
}

// Shrink deflates the box symmetrically by n pixels on every side, never
// inverting it: each dimension stops at one pixel.
func (b *Box) Shrink(n int) {
	for _, dim := range []struct {
		pos  *int
		size *int
	}{{&b.X, &b.W}, {&b.Y, &b.H}} {
		d := n
		if *dim.size-2*d < 1 {
			d = (*dim.size - 1) / 2
		}
		*dim.pos += d
		*dim.size -= 2 * d
	}
}

// Contains reports whether o lies entirely inside b (closed comparison).
func (b *Box) Contains(o *Box) bool {
	return o.X >= b.X && o.Y >= b.Y &&
		o.X+o.W <= b.X+b.W && o.Y+o.H <= b.Y+b.H
}

// Intersects reports whether b and o share interior area (strict overlap;
// touching edges do not count).
func (b *Box) Intersects(o *Box) bool {
	return b.X < o.X+o.W && b.X+b.W > o.X &&
		b.Y < o.Y+o.H && b.Y+b.H > o.Y
}

// Similarity scores how close o's rectangle is to b's. Used when aligning a
// user-drawn box to a freshly analyzed proposal; 1 means identical.
func (b *Box) Similarity(o *Box) float64 {
	diff := abs(b.X-o.X) + abs(b.Y-o.Y) + abs(b.W-o.W) + abs(b.H-o.H)
	return 1 - float64(diff)/float64(b.W+b.H)
}

// BBox returns the box rectangle as a result-tree bounding box.
func (b *Box) BBox() ocrresult.BBox {
	return ocrresult.NewBBox(b.X, b.Y, b.W, b.H)
}

// ConvertTo returns a new box of type t preserving id, order, confidence,
// geometry and user data. The recognition result survives only when t can
// carry one (TEXT and MATH families); IMAGE and LINE conversions drop it.
func (b *Box) ConvertTo(t boxtype.Type) *Box {
	nb := &Box{
		ID:         b.ID,
		X:          b.X,
		Y:          b.Y,
		W:          b.W,
		H:          b.H,
		Type:       t,
		Order:      b.Order,
		Confidence: b.Confidence,
		UserData:   make(map[string]string, len(b.UserData)),
		Recognized: b.Recognized,
		observers:  b.observers,
	}
	for k, v := range b.UserData {
		nb.UserData[k] = v
	}
	if t.CarriesOCRResults() {
		nb.OCRResults = b.OCRResults
	}
	if t.IsText() {
		nb.UserText = b.UserText
		nb.FlowsIntoNext = b.FlowsIntoNext
	}
	return nb
}

// SplitY splits the box horizontally at absolute y. The receiver keeps its
// identity and becomes the top slice; the returned box is the bottom slice
// with a fresh id and order directly after the receiver. Both keep the
// original recognition result; the caller decides reassignment.
func (b *Box) SplitY(y int) (*Box, error) {
	if y <= b.Y || y >= b.Y+b.H {
		return nil, fmt.Errorf("split position %d outside box [%d, %d)", y, b.Y, b.Y+b.H)
	}
	bottom := &Box{
		ID:         uuid.NewString(),
		X:          b.X,
		Y:          y,
		W:          b.W,
		H:          b.Y + b.H - y,
		Type:       b.Type,
		Order:      b.Order + 1,
		Confidence: b.Confidence,
		UserData:   make(map[string]string, len(b.UserData)),
		OCRResults: b.OCRResults,
	}
	for k, v := range b.UserData {
		bottom.UserData[k] = v
	}
	b.H = y - b.Y
	b.Recognized = false
	return bottom, nil
}

// AdoptIdentity copies identity and user state from o onto b: id, order,
// user data, registered observers, and for text boxes the text override and
// flow flag. Geometry, type and recognition state stay as they are.
func (b *Box) AdoptIdentity(o *Box) {
	b.ID = o.ID
	b.Order = o.Order
	b.UserData = o.UserData
	b.observers = o.observers
	if b.Type.IsText() {
		b.UserText = o.UserText
		b.FlowsIntoNext = o.FlowsIntoNext
	}
}

// AddObserver registers fn under the given source tag. Mutations carrying the
// same tag do not notify it.
func (b *Box) AddObserver(source string, fn ChangeFunc) {
	b.observers = append(b.observers, observer{source: source, fn: fn})
}

func (b *Box) notify(source string) {
	for _, o := range b.observers {
		if o.source != source {
			o.fn(b)
		}
	}
}

// UpdatePosition moves the box. The source tag records who mutated it.
func (b *Box) UpdatePosition(x, y int, source string) {
	if b.X == x && b.Y == y {
		return
	}
	b.X = x
	b.Y = y
	b.Recognized = false
	b.notify(source)
}

// UpdateSize resizes the box; zero or negative dimensions are refused.
func (b *Box) UpdateSize(w, h int, source string) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("box size must be positive, got %dx%d", w, h)
	}
	if b.W == w && b.H == h {
		return nil
	}
	b.W = w
	b.H = h
	b.Recognized = false
	b.notify(source)
	return nil
}

// SetOCRResults attaches a recognition result (Backend-tagged mutation).
// IMAGE and LINE boxes silently stay empty.
func (b *Box) SetOCRResults(block *ocrresult.Block, source string) {
	if !b.Type.CarriesOCRResults() {
		return
	}
	b.OCRResults = block
	b.Recognized = block != nil
	b.notify(source)
}

// SetConfidence updates the confidence without double-notifying the observer
// that caused it.
func (b *Box) SetConfidence(c float64, source string) {
	b.Confidence = c
	b.notify(source)
}

// HasText reports whether the box carries recognized text.
func (b *Box) HasText() bool {
	return b.OCRResults.HasText()
}

// Text returns the user override when set, otherwise the assembled text of
// the recognition result.
func (b *Box) Text() string {
	if b.UserText != "" {
		return b.UserText
	}
	if b.OCRResults == nil {
		return ""
	}
	return b.OCRResults.Text()
}

// positionJSON is the serialized rectangle shape.
type positionJSON struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type boxJSON struct {
	ID            string            `json:"id"`
	Order         int               `json:"order"`
	Position      positionJSON      `json:"position"`
	Type          string            `json:"type"`
	Confidence    float64           `json:"confidence"`
	UserData      map[string]string `json:"user_data"`
	OCRResults    *ocrresult.Block  `json:"ocr_results,omitempty"`
	UserText      *string           `json:"user_text,omitempty"`
	FlowsIntoNext *bool             `json:"flows_into_next,omitempty"`
}

// MarshalJSON serializes the box with its type encoded by stable name. Text
// boxes additionally carry user_text and flows_into_next.
func (b *Box) MarshalJSON() ([]byte, error) {
	w := boxJSON{
		ID:         b.ID,
		Order:      b.Order,
		Position:   positionJSON{X: b.X, Y: b.Y, Width: b.W, Height: b.H},
		Type:       b.Type.String(),
		Confidence: b.Confidence,
		UserData:   b.UserData,
		OCRResults: b.OCRResults,
	}
	if b.Type.IsText() {
		ut := b.UserText
		fl := b.FlowsIntoNext
		w.UserText = &ut
		w.FlowsIntoNext = &fl
	}
	return json.Marshal(w)
}

// UnmarshalJSON restores a box from its serialized form.
func (b *Box) UnmarshalJSON(data []byte) error {
	var w boxJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	t, err := boxtype.Parse(w.Type)
	if err != nil {
		return err
	}
	if w.Position.Width <= 0 || w.Position.Height <= 0 {
		return fmt.Errorf("box %s has non-positive size %dx%d", w.ID, w.Position.Width, w.Position.Height)
	}
	b.ID = w.ID
	b.Order = w.Order
	b.X = w.Position.X
	b.Y = w.Position.Y
	b.W = w.Position.Width
	b.H = w.Position.Height
	b.Type = t
	b.Confidence = w.Confidence
	b.UserData = w.UserData
	if b.UserData == nil {
		b.UserData = make(map[string]string)
	}
	if t.CarriesOCRResults() {
		b.OCRResults = w.OCRResults
		b.Recognized = w.OCRResults != nil
	}
	if t.IsText() {
		if w.UserText != nil {
			b.UserText = *w.UserText
		}
		if w.FlowsIntoNext != nil {
			b.FlowsIntoNext = *w.FlowsIntoNext
		}
	}
	return nil
}

// Clone returns a deep copy of the box sharing the (immutable) result tree.
// Observers are not copied.
func (b *Box) Clone() *Box {
	nb := *b
	nb.observers = nil
	nb.UserData = make(map[string]string, len(b.UserData))
	for k, v := range b.UserData {
		nb.UserData[k] = v
	}
	return &nb
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
