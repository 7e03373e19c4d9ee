package ocrengine

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocrdesk/ocrdesk/pkg/boxtype"
	"github.com/ocrdesk/ocrdesk/pkg/layout"
	"github.com/ocrdesk/ocrdesk/pkg/ocrresult"
)

type fakeHandle struct {
	mu    sync.Mutex
	calls int
	block func() *ocrresult.Block
}

func (f *fakeHandle) recognize(imagePath string) (*ocrresult.Block, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block == nil {
		return nil, nil
	}
	return f.block(), nil
}

func (f *fakeHandle) close() error { return nil }

func wordBlock(text string, conf float64) *ocrresult.Block {
	return &ocrresult.Block{
		BBox:       ocrresult.BBox{X: 0, Y: 0, W: 50, H: 20},
		Confidence: conf,
		Paragraphs: []ocrresult.Paragraph{{
			BBox: ocrresult.BBox{X: 0, Y: 0, W: 50, H: 20},
			Lines: []ocrresult.Line{{
				BBox:  ocrresult.BBox{X: 0, Y: 0, W: 50, H: 20},
				Words: []ocrresult.Word{{Text: text, BBox: ocrresult.BBox{X: 0, Y: 0, W: 50, H: 20}}},
			}},
		}},
	}
}

func testImage(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 400, 400))
	for y := 0; y < 400; y++ {
		for x := 0; x < 400; x++ {
			img.Set(x, y, color.White)
		}
	}
	path := filepath.Join(t.TempDir(), "page.png")
	require.NoError(t, imaging.Save(img, path))
	return path
}

func fakeEngine(t *testing.T, workers int, handle *fakeHandle) *Tesseract {
	t.Helper()
	e, err := newTesseract(Config{Workers: workers}, nil, func() (recognizer, error) {
		return handle, nil
	})
	require.NoError(t, err)
	return e
}

func TestRecognizeBoxesAttachesByIdentity(t *testing.T) {
	path := testImage(t)
	handle := &fakeHandle{block: func() *ocrresult.Block { return wordBlock("Hallo", 91) }}
	e := fakeEngine(t, 2, handle)

	text := layout.New(boxtype.FlowingText, 10, 20, 100, 50)
	img := layout.New(boxtype.FlowingImage, 200, 200, 100, 100)
	boxes := []*layout.Box{text, img}

	require.NoError(t, e.RecognizeBoxes(context.Background(), path, boxes, nil))

	require.NotNil(t, text.OCRResults)
	assert.Equal(t, "Hallo", text.OCRResults.Text())
	assert.Equal(t, 91.0, text.Confidence)
	assert.True(t, text.Recognized)
	// Coordinates come back page-relative, offset by the box origin.
	assert.Equal(t, 10, text.OCRResults.BBox.X)
	assert.Equal(t, 20, text.OCRResults.BBox.Y)
	// Image boxes never carry results.
	assert.Nil(t, img.OCRResults)
}

func TestRecognizeBoxesProgressMonotonic(t *testing.T) {
	path := testImage(t)
	handle := &fakeHandle{block: func() *ocrresult.Block { return wordBlock("x", 80) }}
	e := fakeEngine(t, 3, handle)

	var boxes []*layout.Box
	for i := 0; i < 8; i++ {
		boxes = append(boxes, layout.New(boxtype.FlowingText, i*40, 0, 30, 30))
	}

	var mu sync.Mutex
	var seen []int
	progress := func(done, total int, _ string) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 8, total)
		seen = append(seen, done)
	}
	require.NoError(t, e.RecognizeBoxes(context.Background(), path, boxes, progress))

	require.Len(t, seen, 8)
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i], seen[i-1])
	}
	assert.Equal(t, 8, handle.calls)
}

func TestRecognizeBoxesNilResultLeavesBoxEmpty(t *testing.T) {
	path := testImage(t)
	e := fakeEngine(t, 1, &fakeHandle{})

	box := layout.New(boxtype.FlowingText, 0, 0, 50, 50)
	require.NoError(t, e.RecognizeBoxes(context.Background(), path, []*layout.Box{box}, nil))
	assert.Nil(t, box.OCRResults)
	assert.False(t, box.Recognized)
}

func TestRecognizeBoxesCancellation(t *testing.T) {
	path := testImage(t)
	handle := &fakeHandle{block: func() *ocrresult.Block { return wordBlock("x", 80) }}
	e := fakeEngine(t, 1, handle)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var boxes []*layout.Box
	for i := 0; i < 4; i++ {
		boxes = append(boxes, layout.New(boxtype.FlowingText, i*40, 0, 30, 30))
	}
	err := e.RecognizeBoxes(ctx, path, boxes, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecognizeBoxesMissingImage(t *testing.T) {
	e := fakeEngine(t, 1, &fakeHandle{})
	box := layout.New(boxtype.FlowingText, 0, 0, 50, 50)
	err := e.RecognizeBoxes(context.Background(), "/nonexistent/page.png", []*layout.Box{box}, nil)
	require.Error(t, err)
}

func TestRecognizeBoxTextDoesNotMutate(t *testing.T) {
	path := testImage(t)
	handle := &fakeHandle{block: func() *ocrresult.Block { return wordBlock("Wort", 75) }}
	e := fakeEngine(t, 1, handle)

	box := layout.New(boxtype.FlowingText, 0, 0, 50, 50)
	text, err := e.RecognizeBoxText(context.Background(), path, box)
	require.NoError(t, err)
	assert.Equal(t, "Wort", text)
	assert.Nil(t, box.OCRResults)
}

func TestParseOptions(t *testing.T) {
	opts := ParseOptions("tessedit_char_whitelist=abc; preserve_interword_spaces=1 ;;broken")
	assert.Equal(t, map[string]string{
		"tessedit_char_whitelist":   "abc",
		"preserve_interword_spaces": "1",
	}, opts)
}

func TestCombineBlocks(t *testing.T) {
	a := wordBlock("eins", 80)
	b := wordBlock("zwei", 60)
	b.BBox = ocrresult.BBox{X: 100, Y: 0, W: 50, H: 20}
	got := combineBlocks([]ocrresult.Block{*a, *b})
	require.NotNil(t, got)
	assert.Len(t, got.Paragraphs, 2)
	assert.Equal(t, 70.0, got.Confidence)
	assert.Equal(t, 150, got.BBox.W)
}
