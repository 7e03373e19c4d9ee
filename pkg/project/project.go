package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ocrdesk/ocrdesk/pkg/analyzer"
	"github.com/ocrdesk/ocrdesk/pkg/export"
	"github.com/ocrdesk/ocrdesk/pkg/logger"
	"github.com/ocrdesk/ocrdesk/pkg/ocrengine"
	"github.com/ocrdesk/ocrdesk/pkg/pdfimport"
	"github.com/ocrdesk/ocrdesk/pkg/settings"
	"github.com/ocrdesk/ocrdesk/pkg/xerror"
)

// Version is the serialization schema version. Loading any other version
// fails with an unsupported version error.
const Version = 1

// Progress reports long-running project operations monotonically.
type Progress func(done, total int, message string)

// Project is an ordered set of pages with project-scoped settings.
type Project struct {
	UUID             string
	Name             string
	Description      string
	CreationDate     *time.Time
	ModificationDate *time.Time
	Pages            []*Page
	Folder           string
	Settings         *settings.Settings

	log logger.Logger
}

// New creates an empty project. Its settings layer over the given
// application settings.
func New(name, folder string, appSettings *settings.Settings, log logger.Logger) *Project {
	if log == nil {
		log = logger.Nop{}
	}
	s := settings.New()
	s.SetFallback(appSettings)
	now := time.Now().UTC()
	return &Project{
		UUID:         uuid.NewString(),
		Name:         name,
		CreationDate: &now,
		Folder:       folder,
		Settings:     s,
		log:          log,
	}
}

// Touch updates the modification timestamp.
func (p *Project) Touch() {
	now := time.Now().UTC()
	p.ModificationDate = &now
}

// AddImage appends a page for the image at path. A path already used by
// another page is refused.
func (p *Project) AddImage(path string) (*Page, error) {
	for _, page := range p.Pages {
		if page.ImagePath == path {
			return nil, xerror.New(xerror.KindDuplicate, "image already in project").WithEntity(path)
		}
	}
	w, h, err := imageExtent(path)
	if err != nil {
		return nil, err
	}
	page := NewPage(path, w, h, p.Settings, p.log)
	page.Order = len(p.Pages)
	p.Pages = append(p.Pages, page)
	p.renumber()
	p.Touch()
	return page, nil
}

// AddImages adds every path in sequence. A failing path does not stop the
// rest; all failures come back joined.
func (p *Project) AddImages(paths []string) error {
	var errs []error
	for _, path := range paths {
		if _, err := p.AddImage(path); err != nil {
			p.log.Warn("failed to add image", "path", path, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ImportPDF rasterizes the page range [from, to] (zero-based, inclusive; a
// negative to means the last page) into the project folder and adds each
// written image as a page.
func (p *Project) ImportPDF(ctx context.Context, path string, from, to int, progress Progress) error {
	doc, err := pdfimport.Open(path)
	if err != nil {
		return err
	}
	defer doc.Close()

	count := doc.PageCount()
	if to < 0 || to >= count {
		to = count - 1
	}
	if from < 0 {
		from = 0
	}
	if from > to {
		return xerror.New(xerror.KindIndexOutOfRange,
			fmt.Sprintf("page range %d..%d invalid for %d pages", from, to, count))
	}

	dir := filepath.Join(p.Folder, "images")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return xerror.Wrap(xerror.KindIO, fmt.Sprintf("failed to create %q", dir), err)
	}

	ppi := float64(p.Settings.Int("ppi", 300))
	total := to - from + 1
	done := 0
	for i := from; i <= to; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		out := filepath.Join(dir, doc.PageImageName(i))
		if err := doc.RenderPage(i, ppi, out); err != nil {
			return err
		}
		if _, err := p.AddImage(out); err != nil {
			return err
		}
		done++
		if progress != nil {
			progress(done, total, fmt.Sprintf("imported page %d", i))
		}
	}
	return nil
}

// AnalyzePages runs layout analysis over every page in order.
func (p *Project) AnalyzePages(ctx context.Context, a analyzer.Analyzer) error {
	for _, page := range p.Pages {
		if err := page.AnalyzePage(ctx, a, nil, false); err != nil {
			return err
		}
	}
	p.Touch()
	return nil
}

// RecognizePageBoxes recognizes every page's boxes in order.
func (p *Project) RecognizePageBoxes(ctx context.Context, e ocrengine.Engine, progress ocrengine.Progress) error {
	for _, page := range p.Pages {
		if err := page.RecognizeBoxes(ctx, e, -1, true, progress); err != nil {
			return err
		}
	}
	p.Touch()
	return nil
}

// ExportData flattens the project into the record the exporters consume.
func (p *Project) ExportData() export.ProjectData {
	data := export.ProjectData{
		Name:        p.Name,
		Description: p.Description,
		Settings:    p.Settings,
	}
	for _, page := range p.Pages {
		data.Pages = append(data.Pages, export.PageData{
			ImagePath: page.ImagePath,
			Order:     page.Order,
			Boxes:     page.ExportData(),
		})
	}
	return data
}

// Export runs the exporter registered under kind and returns the output
// file path.
func (p *Project) Export(kind string, appSettings *settings.Settings) (string, error) {
	s := p.Settings
	if s == nil {
		s = appSettings
	}
	exp, err := export.New(kind, s, p.log)
	if err != nil {
		return "", err
	}
	return exp.ExportProject(p.ExportData())
}

// RemovePage removes the page at index i and renumbers.
func (p *Project) RemovePage(i int) error {
	if i < 0 || i >= len(p.Pages) {
		return xerror.New(xerror.KindIndexOutOfRange, "no page at index").WithEntity(fmt.Sprint(i))
	}
	p.Pages = append(p.Pages[:i], p.Pages[i+1:]...)
	p.renumber()
	p.Touch()
	return nil
}

// MovePage moves the page at i to position j and renumbers.
func (p *Project) MovePage(i, j int) error {
	n := len(p.Pages)
	if i < 0 || i >= n || j < 0 || j >= n {
		return xerror.New(xerror.KindIndexOutOfRange, "page move out of range").WithEntity(fmt.Sprint(i))
	}
	if i == j {
		return nil
	}
	page := p.Pages[i]
	p.Pages = append(p.Pages[:i], p.Pages[i+1:]...)
	p.Pages = append(p.Pages, nil)
	copy(p.Pages[j+1:], p.Pages[j:])
	p.Pages[j] = page
	p.renumber()
	p.Touch()
	return nil
}

// ReplacePage substitutes the page at index i.
func (p *Project) ReplacePage(i int, page *Page) error {
	if i < 0 || i >= len(p.Pages) {
		return xerror.New(xerror.KindIndexOutOfRange, "no page at index").WithEntity(fmt.Sprint(i))
	}
	p.Pages[i] = page
	p.renumber()
	p.Touch()
	return nil
}

// SortPages stably sorts the pages by the given key and renumbers.
func (p *Project) SortPages(less func(a, b *Page) bool, reverse bool) {
	sort.SliceStable(p.Pages, func(i, j int) bool {
		if reverse {
			return less(p.Pages[j], p.Pages[i])
		}
		return less(p.Pages[i], p.Pages[j])
	})
	p.renumber()
	p.Touch()
}

func (p *Project) renumber() {
	for i, page := range p.Pages {
		page.Order = i
	}
}

// projectJSON is the inner serialized shape; the file wraps it in
// {"project": …}.
type projectJSON struct {
	Version          int                `json:"version"`
	UUID             string             `json:"uuid"`
	Name             string             `json:"name"`
	Description      string             `json:"description"`
	CreationDate     *string            `json:"creation_date"`
	ModificationDate *string            `json:"modification_date"`
	Pages            []*Page            `json:"pages"`
	Settings         *settings.Settings `json:"settings"`
}

type projectEnvelope struct {
	Project projectJSON `json:"project"`
}

func (p *Project) MarshalJSON() ([]byte, error) {
	return json.Marshal(projectEnvelope{Project: projectJSON{
		Version:          Version,
		UUID:             p.UUID,
		Name:             p.Name,
		Description:      p.Description,
		CreationDate:     formatDate(p.CreationDate),
		ModificationDate: formatDate(p.ModificationDate),
		Pages:            p.Pages,
		Settings:         p.Settings,
	}})
}

func (p *Project) UnmarshalJSON(data []byte) error {
	var env projectEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	raw := env.Project
	if raw.Version != Version {
		return xerror.New(xerror.KindUnsupportedVersion,
			fmt.Sprintf("project version %d, expected %d", raw.Version, Version))
	}
	p.UUID = raw.UUID
	p.Name = raw.Name
	p.Description = raw.Description
	var err error
	if p.CreationDate, err = parseDate(raw.CreationDate); err != nil {
		return err
	}
	if p.ModificationDate, err = parseDate(raw.ModificationDate); err != nil {
		return err
	}
	p.Pages = raw.Pages
	p.Settings = raw.Settings
	if p.Settings == nil {
		p.Settings = settings.New()
	}
	if p.log == nil {
		p.log = logger.Nop{}
	}
	for _, page := range p.Pages {
		page.settings = p.Settings
		page.log = p.log
	}
	p.renumber()
	return nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse date %q: %w", *s, err)
	}
	return &t, nil
}

// imageExtent reads the pixel dimensions of an image file without decoding
// the full pixel data.
func imageExtent(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, xerror.Wrap(xerror.KindInputMissing, fmt.Sprintf("failed to open image %q", path), err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, xerror.Wrap(xerror.KindInputMissing, fmt.Sprintf("failed to read image %q", path), err)
	}
	return cfg.Width, cfg.Height, nil
}
