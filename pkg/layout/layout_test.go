package layout

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocrdesk/ocrdesk/pkg/boxtype"
	"github.com/ocrdesk/ocrdesk/pkg/ocrresult"
)

func textBlock(text string) *ocrresult.Block {
	return &ocrresult.Block{
		BBox: ocrresult.NewBBox(0, 0, 60, 20),
		Paragraphs: []ocrresult.Paragraph{{
			Lines: []ocrresult.Line{{
				Words: []ocrresult.Word{{Text: text, BBox: ocrresult.NewBBox(0, 0, 60, 20)}},
			}},
		}},
	}
}

func TestAddBoxKeepsOrderDense(t *testing.T) {
	l := NewPageLayout(Rect{W: 1000, H: 1500})
	for i := 0; i < 3; i++ {
		l.AddBox(New(boxtype.FlowingText, 0, i*100, 100, 50))
	}
	require.Equal(t, 3, l.Len())
	for i, b := range l.Boxes() {
		assert.Equal(t, i, b.Order)
	}
	assert.Equal(t, 2, l.MaxOrder())
}

func TestInsertAndRemoveRenumber(t *testing.T) {
	l := NewPageLayout(Rect{W: 1000, H: 1500})
	a := New(boxtype.FlowingText, 0, 0, 100, 50)
	b := New(boxtype.FlowingText, 0, 100, 100, 50)
	l.AddBox(a)
	l.AddBox(b)

	mid := New(boxtype.CaptionText, 0, 50, 100, 40)
	l.InsertBox(mid, 1)
	_, i := l.BoxByID(mid.ID)
	assert.Equal(t, 1, i)
	for idx, box := range l.Boxes() {
		assert.Equal(t, idx, box.Order)
	}

	require.NoError(t, l.RemoveBox(1))
	for idx, box := range l.Boxes() {
		assert.Equal(t, idx, box.Order)
	}
	assert.Error(t, l.RemoveBox(10))
	assert.False(t, l.RemoveBoxByID("no-such-id"))
	assert.True(t, l.RemoveBoxByID(b.ID))
	assert.Equal(t, 1, l.Len())
}

func TestChangeBoxIndex(t *testing.T) {
	l := NewPageLayout(Rect{W: 1000, H: 1500})
	a := New(boxtype.FlowingText, 0, 0, 100, 50)
	b := New(boxtype.FlowingText, 0, 100, 100, 50)
	c := New(boxtype.FlowingText, 0, 200, 100, 50)
	l.AddBox(a)
	l.AddBox(b)
	l.AddBox(c)

	require.NoError(t, l.ChangeBoxIndex(0, 2))
	_, i := l.BoxByID(a.ID)
	assert.Equal(t, 2, i)
	for idx, box := range l.Boxes() {
		assert.Equal(t, idx, box.Order)
	}
	assert.Error(t, l.ChangeBoxIndex(0, 9))
}

func TestActiveRegionRespectsHeaderFooter(t *testing.T) {
	l := NewPageLayout(Rect{W: 1000, H: 1500})
	full := l.ActiveRegion()
	assert.Equal(t, Rect{X: 0, Y: 0, W: 1000, H: 1500}, full)

	l.HeaderY = 100
	l.FooterY = 1400
	banded := l.ActiveRegion()
	assert.Equal(t, Rect{X: 0, Y: 100, W: 1000, H: 1300}, banded)
}

func TestSplitYBox(t *testing.T) {
	l := NewPageLayout(Rect{W: 1000, H: 1500})
	top := New(boxtype.FlowingText, 10, 100, 200, 100)
	l.AddBox(top)
	after := New(boxtype.FlowingText, 10, 300, 200, 50)
	l.AddBox(after)

	bottom, err := l.SplitYBox(top.ID, 140)
	require.NoError(t, err)
	assert.Equal(t, 100, top.Y)
	assert.Equal(t, 40, top.H)
	assert.Equal(t, 140, bottom.Y)
	assert.Equal(t, 60, bottom.H)
	assert.NotEqual(t, top.ID, bottom.ID)

	// The bottom slice sits directly after the top in the order.
	_, ti := l.BoxByID(top.ID)
	_, bi := l.BoxByID(bottom.ID)
	assert.Equal(t, ti+1, bi)
	for idx, box := range l.Boxes() {
		assert.Equal(t, idx, box.Order)
	}

	_, err = l.SplitYBox(top.ID, 5000)
	assert.Error(t, err)
	_, err = l.SplitYBox("no-such-id", 120)
	assert.Error(t, err)
}

func TestBoxGeometryPredicates(t *testing.T) {
	outer := New(boxtype.FlowingImage, 0, 0, 100, 100)
	inner := New(boxtype.FlowingText, 10, 10, 50, 50)
	apart := New(boxtype.FlowingText, 200, 200, 20, 20)
	touching := New(boxtype.FlowingText, 100, 0, 20, 20)

	assert.True(t, outer.Contains(inner))
	assert.False(t, inner.Contains(outer))
	assert.True(t, outer.Intersects(inner))
	assert.False(t, outer.Intersects(apart))
	// Shared edges do not count as overlap.
	assert.False(t, outer.Intersects(touching))
}

func TestSimilarity(t *testing.T) {
	b := New(boxtype.FlowingText, 100, 100, 200, 50)
	identical := New(boxtype.FlowingText, 100, 100, 200, 50)
	near := New(boxtype.FlowingText, 102, 101, 198, 52)
	far := New(boxtype.FlowingText, 500, 500, 20, 20)

	assert.InDelta(t, 1.0, b.Similarity(identical), 0.001)
	assert.Greater(t, b.Similarity(near), b.Similarity(far))
}

func TestExpandShrink(t *testing.T) {
	b := New(boxtype.FlowingText, 100, 100, 200, 50)
	b.Expand(10)
	assert.Equal(t, 90, b.X)
	assert.Equal(t, 220, b.W)

	b.Shrink(10)
	assert.Equal(t, 100, b.X)
	assert.Equal(t, 200, b.W)

	// Shrink never inverts the box.
	small := New(boxtype.FlowingText, 0, 0, 5, 5)
	small.Shrink(10)
	assert.GreaterOrEqual(t, small.W, 1)
	assert.GreaterOrEqual(t, small.H, 1)
}

func TestUpdateSizeClearsRecognized(t *testing.T) {
	b := New(boxtype.FlowingText, 0, 0, 100, 50)
	b.SetOCRResults(textBlock("hello"), SourceBackend)
	require.True(t, b.Recognized)

	require.NoError(t, b.UpdateSize(120, 50, SourceGUI))
	assert.False(t, b.Recognized)

	assert.Error(t, b.UpdateSize(0, 50, SourceGUI))
	assert.Error(t, b.UpdateSize(50, -1, SourceGUI))
}

func TestObserverSourceFiltering(t *testing.T) {
	b := New(boxtype.FlowingText, 0, 0, 100, 50)
	var guiNotified, backendNotified int
	b.AddObserver(SourceGUI, func(*Box) { guiNotified++ })
	b.AddObserver(SourceBackend, func(*Box) { backendNotified++ })

	// A GUI-tagged mutation notifies everyone but the GUI observer.
	b.UpdatePosition(10, 10, SourceGUI)
	assert.Equal(t, 0, guiNotified)
	assert.Equal(t, 1, backendNotified)

	b.SetConfidence(80, SourceBackend)
	assert.Equal(t, 1, guiNotified)
	assert.Equal(t, 1, backendNotified)

	// Unchanged position does not notify at all.
	b.UpdatePosition(10, 10, SourceBackend)
	assert.Equal(t, 1, guiNotified)
}

func TestSetOCRResultsRefusedForImageBoxes(t *testing.T) {
	img := New(boxtype.FlowingImage, 0, 0, 100, 50)
	img.SetOCRResults(textBlock("hello"), SourceBackend)
	assert.Nil(t, img.OCRResults)
	assert.False(t, img.Recognized)
}

func TestConvertToDropsResultsOutsideCarryingFamilies(t *testing.T) {
	b := New(boxtype.FlowingText, 0, 0, 100, 50)
	b.UserText = "override"
	b.FlowsIntoNext = true
	b.SetOCRResults(textBlock("hello"), SourceBackend)

	heading := b.ConvertTo(boxtype.HeadingText)
	assert.Equal(t, b.ID, heading.ID)
	assert.Equal(t, "override", heading.UserText)
	assert.NotNil(t, heading.OCRResults)

	img := b.ConvertTo(boxtype.FlowingImage)
	assert.Nil(t, img.OCRResults)
	assert.Empty(t, img.UserText)
	assert.False(t, img.FlowsIntoNext)

	eq := b.ConvertTo(boxtype.Equation)
	assert.NotNil(t, eq.OCRResults)
	assert.Empty(t, eq.UserText)
}

func TestBoxTextPrefersUserOverride(t *testing.T) {
	b := New(boxtype.FlowingText, 0, 0, 100, 50)
	assert.Empty(t, b.Text())
	assert.False(t, b.HasText())

	b.SetOCRResults(textBlock("recognized"), SourceBackend)
	assert.Equal(t, "recognized", b.Text())
	assert.True(t, b.HasText())

	b.UserText = "corrected"
	assert.Equal(t, "corrected", b.Text())
}

func TestLayoutJSONRoundTrip(t *testing.T) {
	l := NewPageLayout(Rect{W: 1000, H: 1500})
	l.HeaderY = 50
	l.FooterY = 1450
	text := New(boxtype.FlowingText, 10, 100, 200, 50)
	text.UserText = "kept"
	text.FlowsIntoNext = true
	text.UserData["tag"] = "h2"
	text.SetOCRResults(textBlock("hello"), SourceBackend)
	img := New(boxtype.FlowingImage, 10, 200, 300, 200)
	l.AddBox(text)
	l.AddBox(img)

	data, err := json.Marshal(l)
	require.NoError(t, err)

	var loaded PageLayout
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, l.Region, loaded.Region)
	assert.Equal(t, 50, loaded.HeaderY)
	require.Equal(t, 2, loaded.Len())

	got, _ := loaded.BoxByID(text.ID)
	require.NotNil(t, got)
	assert.Equal(t, boxtype.FlowingText, got.Type)
	assert.Equal(t, "kept", got.UserText)
	assert.True(t, got.FlowsIntoNext)
	assert.Equal(t, "h2", got.UserData["tag"])
	assert.True(t, got.Recognized)
	assert.Equal(t, "kept", got.Text())
	require.NotNil(t, got.OCRResults)
	assert.Equal(t, "hello", got.OCRResults.Text())

	gotImg, _ := loaded.BoxByID(img.ID)
	require.NotNil(t, gotImg)
	assert.Nil(t, gotImg.OCRResults)
}

func TestBoxUnmarshalRejectsBadInput(t *testing.T) {
	var b Box
	err := json.Unmarshal([]byte(`{"id":"x","position":{"x":0,"y":0,"width":0,"height":10},"type":"FLOWING_TEXT"}`), &b)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"id":"x","position":{"x":0,"y":0,"width":10,"height":10},"type":"NOT_A_TYPE"}`), &b)
	assert.Error(t, err)
}
