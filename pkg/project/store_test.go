package project

import (
	"encoding/json"
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

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), logger.Nop{})
}

func storedProject(t *testing.T) (*Project, *layout.Box) {
	t.Helper()
	p := New("stored", "", settings.Defaults(), logger.Nop{})
	path := writeTestImage(t, t.TempDir(), "a.png")
	page, err := p.AddImage(path)
	require.NoError(t, err)

	box := layout.New(boxtype.FlowingText, 10, 10, 60, 20)
	box.SetOCRResults(wordBlock("hello"), layout.SourceBackend)
	page.Layout.AddBox(box)
	return p, box
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	s := testStore(t)
	p, box := storedProject(t)
	require.NoError(t, s.Save(p))

	dir := s.Dir(p.UUID)
	for _, name := range []string{"metadata.json", "project.json"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
	_, err := os.Stat(filepath.Join(dir, "pages", "0000.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "ocr_results", box.ID+".json"))
	assert.NoError(t, err)

	loaded, err := s.Load(p.UUID)
	require.NoError(t, err)
	assert.Equal(t, p.UUID, loaded.UUID)
	assert.Equal(t, "stored", loaded.Name)
	assert.Equal(t, dir, loaded.Folder)
	require.Len(t, loaded.Pages, 1)
	got, _ := loaded.Pages[0].Layout.BoxByID(box.ID)
	require.NotNil(t, got)
	assert.Equal(t, "hello", got.Text())
}

func TestStoreSidecarOverridesEmbeddedResults(t *testing.T) {
	s := testStore(t)
	p, box := storedProject(t)
	require.NoError(t, s.Save(p))

	// A hand-edited sidecar wins over the results inside project.json.
	replacement, err := json.Marshal(wordBlock("corrected"))
	require.NoError(t, err)
	sidecar := filepath.Join(s.Dir(p.UUID), "ocr_results", box.ID+".json")
	require.NoError(t, os.WriteFile(sidecar, replacement, 0o644))

	loaded, err := s.Load(p.UUID)
	require.NoError(t, err)
	got, _ := loaded.Pages[0].Layout.BoxByID(box.ID)
	require.NotNil(t, got)
	assert.Equal(t, "corrected", got.Text())
}

func TestStoreUnparsableSidecarIsSkipped(t *testing.T) {
	s := testStore(t)
	p, box := storedProject(t)
	require.NoError(t, s.Save(p))

	sidecar := filepath.Join(s.Dir(p.UUID), "ocr_results", box.ID+".json")
	require.NoError(t, os.WriteFile(sidecar, []byte("{not json"), 0o644))

	loaded, err := s.Load(p.UUID)
	require.NoError(t, err)
	got, _ := loaded.Pages[0].Layout.BoxByID(box.ID)
	require.NotNil(t, got)
	assert.Equal(t, "hello", got.Text())
}

func TestStoreLoadMissingProject(t *testing.T) {
	s := testStore(t)
	_, err := s.Load("does-not-exist")
	require.Error(t, err)
	assert.True(t, xerror.IsKind(err, xerror.KindInputMissing))
}

func TestStoreLoadRefusesOtherVersions(t *testing.T) {
	s := testStore(t)
	dir := s.Dir("old-project")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	data := []byte(`{"project": {"version": 0, "uuid": "old-project", "name": "old"}}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "project.json"), data, 0o644))

	_, err := s.Load("old-project")
	require.Error(t, err)
	assert.True(t, xerror.IsKind(err, xerror.KindUnsupportedVersion))
}

func TestStoreListSortsByName(t *testing.T) {
	s := testStore(t)
	for _, name := range []string{"zebra", "alpha"} {
		p := New(name, "", settings.Defaults(), logger.Nop{})
		require.NoError(t, s.Save(p))
	}
	// A stray file in the root is ignored.
	require.NoError(t, os.WriteFile(filepath.Join(s.Root, "junk.txt"), []byte("x"), 0o644))

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "zebra", list[1].Name)
	assert.NotEmpty(t, list[0].UUID)
}

func TestStoreDelete(t *testing.T) {
	s := testStore(t)
	p, _ := storedProject(t)
	require.NoError(t, s.Save(p))
	require.NoError(t, s.Delete(p.UUID))

	_, err := s.Load(p.UUID)
	assert.Error(t, err)
}

func TestStoreSavePrunesStaleSidecars(t *testing.T) {
	s := testStore(t)
	p, box := storedProject(t)
	require.NoError(t, s.Save(p))

	// Dropping the results and saving again removes the sidecar.
	got, _ := p.Pages[0].Layout.BoxByID(box.ID)
	require.NotNil(t, got)
	got.SetOCRResults(nil, layout.SourceGUI)
	require.NoError(t, s.Save(p))

	_, err := os.Stat(filepath.Join(s.Dir(p.UUID), "ocr_results", box.ID+".json"))
	assert.True(t, os.IsNotExist(err))
}
