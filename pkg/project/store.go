package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ocrdesk/ocrdesk/pkg/logger"
	"github.com/ocrdesk/ocrdesk/pkg/ocrresult"
	"github.com/ocrdesk/ocrdesk/pkg/xerror"
)

// Metadata is the lightweight project descriptor kept next to the full
// serialization so project lists load without parsing every page.
type Metadata struct {
	UUID             string  `json:"-"`
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	CreationDate     *string `json:"creation_date"`
	ModificationDate *string `json:"modification_date"`
}

// Store persists projects under a root directory, one folder per project
// uuid. Only one Store instance should mutate a given folder at a time.
type Store struct {
	Root string
	log  logger.Logger
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, log logger.Logger) *Store {
	if log == nil {
		log = logger.Nop{}
	}
	return &Store{Root: dir, log: log}
}

// Dir returns the folder for a project uuid.
func (s *Store) Dir(id string) string {
	return filepath.Join(s.Root, id)
}

// Save writes the project folder: metadata.json, the atomically replaced
// project.json, one page file per page and one result sidecar per
// recognized box.
func (s *Store) Save(p *Project) error {
	dir := s.Dir(p.UUID)
	for _, sub := range []string{"pages", "ocr_results", "training"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return xerror.Wrap(xerror.KindIO, fmt.Sprintf("failed to create %q", dir), err)
		}
	}

	meta := Metadata{
		Name:             p.Name,
		Description:      p.Description,
		CreationDate:     formatDate(p.CreationDate),
		ModificationDate: formatDate(p.ModificationDate),
	}
	if err := writeJSON(filepath.Join(dir, "metadata.json"), meta); err != nil {
		return err
	}

	if err := writeJSONAtomic(filepath.Join(dir, "project.json"), p); err != nil {
		return err
	}

	if err := clearDir(filepath.Join(dir, "pages")); err != nil {
		return err
	}
	if err := clearDir(filepath.Join(dir, "ocr_results")); err != nil {
		return err
	}
	for _, page := range p.Pages {
		name := fmt.Sprintf("%04d.json", page.Order)
		if err := writeJSON(filepath.Join(dir, "pages", name), page); err != nil {
			return err
		}
		for _, box := range page.Layout.Boxes() {
			if box.OCRResults == nil {
				continue
			}
			path := filepath.Join(dir, "ocr_results", box.ID+".json")
			if err := writeJSON(path, box.OCRResults); err != nil {
				return err
			}
		}
	}
	return nil
}

// Load reads the project with the given uuid. Result sidecars, when
// present, override the results embedded in the page files.
func (s *Store) Load(id string) (*Project, error) {
	dir := s.Dir(id)
	data, err := os.ReadFile(filepath.Join(dir, "project.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, xerror.Wrap(xerror.KindInputMissing, "project not found", err).WithEntity(id)
		}
		return nil, xerror.Wrap(xerror.KindIO, "failed to read project", err).WithEntity(id)
	}

	p := &Project{log: s.log}
	if err := json.Unmarshal(data, p); err != nil {
		if xerror.IsKind(err, xerror.KindUnsupportedVersion) {
			return nil, err
		}
		return nil, xerror.Wrap(xerror.KindIO, "failed to parse project", err).WithEntity(id)
	}
	p.Folder = dir

	if err := s.applySidecars(dir, p); err != nil {
		return nil, err
	}
	return p, nil
}

// applySidecars overrides embedded results with the sidecar files.
func (s *Store) applySidecars(dir string, p *Project) error {
	entries, err := os.ReadDir(filepath.Join(dir, "ocr_results"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return xerror.Wrap(xerror.KindIO, "failed to list result sidecars", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		boxID := strings.TrimSuffix(entry.Name(), ".json")
		data, err := os.ReadFile(filepath.Join(dir, "ocr_results", entry.Name()))
		if err != nil {
			return xerror.Wrap(xerror.KindIO, "failed to read result sidecar", err).WithEntity(boxID)
		}
		var block ocrresult.Block
		if err := json.Unmarshal(data, &block); err != nil {
			s.log.Warn("skipping unparsable result sidecar", "box", boxID, "error", err)
			continue
		}
		for _, page := range p.Pages {
			if box, _ := page.Layout.BoxByID(boxID); box != nil {
				box.OCRResults = &block
				break
			}
		}
	}
	return nil
}

// List returns the metadata of every stored project, sorted by name.
func (s *Store) List() ([]Metadata, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, xerror.Wrap(xerror.KindIO, "failed to list projects", err)
	}
	var out []Metadata
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.Root, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta Metadata
		if err := json.Unmarshal(data, &meta); err != nil {
			s.log.Warn("skipping unparsable metadata", "project", entry.Name(), "error", err)
			continue
		}
		meta.UUID = entry.Name()
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes a project folder.
func (s *Store) Delete(id string) error {
	if err := os.RemoveAll(s.Dir(id)); err != nil {
		return xerror.Wrap(xerror.KindIO, "failed to delete project", err).WithEntity(id)
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return xerror.Wrap(xerror.KindIO, fmt.Sprintf("failed to encode %q", path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return xerror.Wrap(xerror.KindIO, fmt.Sprintf("failed to write %q", path), err)
	}
	return nil
}

// writeJSONAtomic writes to a temp file in the same directory and renames it
// over the target, so readers never observe a partial file.
func writeJSONAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return xerror.Wrap(xerror.KindIO, fmt.Sprintf("failed to encode %q", path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return xerror.Wrap(xerror.KindIO, fmt.Sprintf("failed to create temp for %q", path), err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return xerror.Wrap(xerror.KindIO, fmt.Sprintf("failed to write %q", path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return xerror.Wrap(xerror.KindIO, fmt.Sprintf("failed to close %q", path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return xerror.Wrap(xerror.KindIO, fmt.Sprintf("failed to replace %q", path), err)
	}
	return nil
}

func clearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return xerror.Wrap(xerror.KindIO, fmt.Sprintf("failed to list %q", dir), err)
	}
	for _, entry := range entries {
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return xerror.Wrap(xerror.KindIO, fmt.Sprintf("failed to clear %q", dir), err)
		}
	}
	return nil
}
