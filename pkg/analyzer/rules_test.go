package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocrdesk/ocrdesk/pkg/boxtype"
	"github.com/ocrdesk/ocrdesk/pkg/layout"
)

func TestFilterBySize(t *testing.T) {
	boxes := []*layout.Box{
		layout.New(boxtype.FlowingText, 0, 0, 100, 40),
		layout.New(boxtype.FlowingText, 0, 50, 10, 40),
		layout.New(boxtype.FlowingText, 0, 100, 100, 5),
	}
	got := FilterBySize(boxes, 20, 20)
	require.Len(t, got, 1)
	assert.Equal(t, 100, got[0].W)
}

func TestRemoveTextInsideImages(t *testing.T) {
	img := layout.New(boxtype.FlowingImage, 0, 0, 200, 200)
	inside := layout.New(boxtype.FlowingText, 20, 20, 50, 30)
	crossing := layout.New(boxtype.FlowingText, 180, 180, 100, 40)
	outside := layout.New(boxtype.FlowingText, 300, 300, 100, 40)

	got := RemoveTextInsideImages([]*layout.Box{img, inside, crossing, outside})
	require.Len(t, got, 2)
	assert.Equal(t, img, got[0])
	assert.Equal(t, outside, got[1])
}

func TestMergeOverlappingText(t *testing.T) {
	a := layout.New(boxtype.FlowingText, 0, 0, 100, 50)
	a.Confidence = 80
	b := layout.New(boxtype.FlowingText, 50, 20, 100, 50)
	b.Confidence = 92
	separate := layout.New(boxtype.FlowingText, 400, 400, 50, 50)

	got := MergeOverlappingText([]*layout.Box{a, b, separate})
	require.Len(t, got, 2)
	merged := got[0]
	assert.Equal(t, 0, merged.X)
	assert.Equal(t, 0, merged.Y)
	assert.Equal(t, 150, merged.W)
	assert.Equal(t, 70, merged.H)
	assert.Equal(t, 92.0, merged.Confidence)
}

func TestMergeOverlappingTextChainCollapses(t *testing.T) {
	// a overlaps b, b overlaps c, but a does not overlap c directly.
	a := layout.New(boxtype.FlowingText, 0, 0, 60, 40)
	b := layout.New(boxtype.FlowingText, 50, 0, 60, 40)
	c := layout.New(boxtype.FlowingText, 100, 0, 60, 40)

	got := MergeOverlappingText([]*layout.Box{a, b, c})
	require.Len(t, got, 1)
	assert.Equal(t, 160, got[0].W)
}

func TestMergeLeavesImagesAlone(t *testing.T) {
	text := layout.New(boxtype.FlowingText, 0, 0, 100, 50)
	img := layout.New(boxtype.FlowingImage, 10, 10, 100, 50)
	got := MergeOverlappingText([]*layout.Box{text, img})
	require.Len(t, got, 2)
}
