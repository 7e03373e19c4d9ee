package project

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocrdesk/ocrdesk/pkg/boxtype"
	"github.com/ocrdesk/ocrdesk/pkg/layout"
	"github.com/ocrdesk/ocrdesk/pkg/logger"
	"github.com/ocrdesk/ocrdesk/pkg/settings"
	"github.com/ocrdesk/ocrdesk/pkg/xerror"
)

func writeTestImage(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 100, 150))
	for y := 0; y < 150; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, color.White)
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func testProject(t *testing.T) *Project {
	t.Helper()
	return New("test project", t.TempDir(), settings.Defaults(), logger.Nop{})
}

func TestNewProjectHasIdentity(t *testing.T) {
	p := testProject(t)
	assert.NotEmpty(t, p.UUID)
	assert.NotNil(t, p.CreationDate)
	assert.Nil(t, p.ModificationDate)

	// Project settings fall back to the application layer.
	assert.Equal(t, 300, p.Settings.Int("ppi", 0))
}

func TestAddImageReadsExtentAndNumbers(t *testing.T) {
	p := testProject(t)
	dir := t.TempDir()
	first := writeTestImage(t, dir, "a.png")
	second := writeTestImage(t, dir, "b.png")

	pageA, err := p.AddImage(first)
	require.NoError(t, err)
	pageB, err := p.AddImage(second)
	require.NoError(t, err)

	assert.Equal(t, 0, pageA.Order)
	assert.Equal(t, 1, pageB.Order)
	region := pageA.Layout.ActiveRegion()
	assert.Equal(t, 100, region.W)
	assert.Equal(t, 150, region.H)
	assert.NotNil(t, p.ModificationDate)
}

func TestAddImageRefusesDuplicatePath(t *testing.T) {
	p := testProject(t)
	path := writeTestImage(t, t.TempDir(), "a.png")

	_, err := p.AddImage(path)
	require.NoError(t, err)
	_, err = p.AddImage(path)
	require.Error(t, err)
	assert.True(t, xerror.IsKind(err, xerror.KindDuplicate))
	assert.Len(t, p.Pages, 1)
}

func TestAddImagesCollectsFailures(t *testing.T) {
	p := testProject(t)
	dir := t.TempDir()
	good := writeTestImage(t, dir, "a.png")
	alsoGood := writeTestImage(t, dir, "b.png")

	err := p.AddImages([]string{good, filepath.Join(dir, "missing.png"), alsoGood})
	require.Error(t, err)
	// The failing path does not stop the rest.
	assert.Len(t, p.Pages, 2)
}

func TestRemovePageRenumbers(t *testing.T) {
	p := testProject(t)
	dir := t.TempDir()
	p.AddImage(writeTestImage(t, dir, "a.png"))
	p.AddImage(writeTestImage(t, dir, "b.png"))
	p.AddImage(writeTestImage(t, dir, "c.png"))

	require.NoError(t, p.RemovePage(1))
	require.Len(t, p.Pages, 2)
	assert.Equal(t, 0, p.Pages[0].Order)
	assert.Equal(t, 1, p.Pages[1].Order)
	assert.Error(t, p.RemovePage(5))
}

func TestMovePageRenumbers(t *testing.T) {
	p := testProject(t)
	dir := t.TempDir()
	a := writeTestImage(t, dir, "a.png")
	b := writeTestImage(t, dir, "b.png")
	c := writeTestImage(t, dir, "c.png")
	require.NoError(t, p.AddImages([]string{a, b, c}))

	require.NoError(t, p.MovePage(0, 2))
	assert.Equal(t, b, p.Pages[0].ImagePath)
	assert.Equal(t, c, p.Pages[1].ImagePath)
	assert.Equal(t, a, p.Pages[2].ImagePath)
	for i, page := range p.Pages {
		assert.Equal(t, i, page.Order)
	}
}

func TestSortPagesByImagePath(t *testing.T) {
	p := testProject(t)
	dir := t.TempDir()
	b := writeTestImage(t, dir, "b.png")
	a := writeTestImage(t, dir, "a.png")
	require.NoError(t, p.AddImages([]string{b, a}))

	byPath := func(x, y *Page) bool { return x.ImagePath < y.ImagePath }
	p.SortPages(byPath, false)
	assert.Equal(t, a, p.Pages[0].ImagePath)

	p.SortPages(byPath, true)
	assert.Equal(t, b, p.Pages[0].ImagePath)
}

func TestAnalyzePagesCoversEveryPage(t *testing.T) {
	p := testProject(t)
	dir := t.TempDir()
	require.NoError(t, p.AddImages([]string{
		writeTestImage(t, dir, "a.png"),
		writeTestImage(t, dir, "b.png"),
	}))

	fake := &fakeAnalyzer{boxes: []*layout.Box{layout.New(boxtype.FlowingText, 5, 5, 50, 20)}}
	require.NoError(t, p.AnalyzePages(context.Background(), fake))
	assert.Equal(t, 2, fake.calls)
	for _, page := range p.Pages {
		assert.Equal(t, 1, page.Layout.Len())
	}
}

func TestProjectJSONRoundTrip(t *testing.T) {
	p := testProject(t)
	p.Description = "scanned paperbacks"
	path := writeTestImage(t, t.TempDir(), "a.png")
	page, err := p.AddImage(path)
	require.NoError(t, err)
	box := layout.New(boxtype.FlowingText, 10, 10, 50, 20)
	box.UserText = "hello"
	page.Layout.AddBox(box)
	p.Settings.Set("ppi", 600)

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var loaded Project
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, p.UUID, loaded.UUID)
	assert.Equal(t, "test project", loaded.Name)
	assert.Equal(t, "scanned paperbacks", loaded.Description)
	require.Len(t, loaded.Pages, 1)
	assert.Equal(t, path, loaded.Pages[0].ImagePath)
	got, _ := loaded.Pages[0].Layout.BoxByID(box.ID)
	require.NotNil(t, got)
	assert.Equal(t, "hello", got.UserText)
	assert.Equal(t, 600, loaded.Settings.Int("ppi", 0))
	require.NotNil(t, loaded.CreationDate)
	assert.Equal(t, p.CreationDate.Unix(), loaded.CreationDate.Unix())
}

func TestProjectUnmarshalRefusesOtherVersions(t *testing.T) {
	data := []byte(`{"project": {"version": 99, "uuid": "x", "name": "old"}}`)
	var p Project
	err := json.Unmarshal(data, &p)
	require.Error(t, err)
	assert.True(t, xerror.IsKind(err, xerror.KindUnsupportedVersion))
}

func TestExportDataFlattensPages(t *testing.T) {
	p := testProject(t)
	p.Description = "desc"
	path := writeTestImage(t, t.TempDir(), "a.png")
	page, err := p.AddImage(path)
	require.NoError(t, err)
	page.Layout.AddBox(layout.New(boxtype.FlowingText, 10, 10, 50, 20))

	data := p.ExportData()
	assert.Equal(t, "test project", data.Name)
	assert.Equal(t, "desc", data.Description)
	require.Len(t, data.Pages, 1)
	assert.Equal(t, path, data.Pages[0].ImagePath)
	require.Len(t, data.Pages[0].Boxes, 1)
}
