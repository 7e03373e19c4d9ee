package export

import (
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/text/language"

	"github.com/ocrdesk/ocrdesk/pkg/boxtype"
	"github.com/ocrdesk/ocrdesk/pkg/ocrresult"
	"github.com/ocrdesk/ocrdesk/pkg/reflow"
	"github.com/ocrdesk/ocrdesk/pkg/settings"
	"github.com/ocrdesk/ocrdesk/pkg/xerror"
)

// SanitizeFilename strips path separators and characters that are reserved
// on common filesystems.
func SanitizeFilename(name string) string {
	out := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return -1
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, name)
	out = strings.TrimSpace(out)
	if out == "" {
		out = "untitled"
	}
	return out
}

// PixelToCM converts a pixel length to centimeters at the given resolution,
// rounded to rasterize decimal places.
func PixelToCM(px, ppi int, rasterize int) float64 {
	if ppi <= 0 {
		ppi = 300
	}
	cm := float64(px) / float64(ppi) * 2.54
	factor := math.Pow(10, float64(rasterize))
	return math.Round(cm*factor) / factor
}

// MeanFontSize returns the arithmetic mean of the word point sizes in the
// block, clamped to [minSize, maxSize] and rounded to a multiple of step.
// A block with no sized words yields minSize.
func MeanFontSize(block *ocrresult.Block, minSize, maxSize float64, step float64) float64 {
	if block == nil {
		return minSize
	}
	var sum float64
	var count int
	for _, p := range block.Paragraphs {
		for _, l := range p.Lines {
			for _, w := range l.Words {
				if w.FontAttributes.Pointsize > 0 {
					sum += float64(w.FontAttributes.Pointsize)
					count++
				}
			}
		}
	}
	if count == 0 {
		return minSize
	}
	size := sum / float64(count)
	if size < minSize {
		size = minSize
	}
	if size > maxSize {
		size = maxSize
	}
	if step > 0 {
		size = math.Round(size/step) * step
	}
	return size
}

// ImageInfo describes one emitted image crop.
type ImageInfo struct {
	Path string
	Name string
	ID   string
}

// ImageRegistry emits box crops once per unique source rectangle into a
// companion directory and maps image names to their files.
type ImageRegistry struct {
	dir    string
	images map[string]ImageInfo
	pages  map[string]image.Image
}

// NewImageRegistry creates a registry writing into dir.
func NewImageRegistry(dir string) *ImageRegistry {
	return &ImageRegistry{
		dir:    dir,
		images: make(map[string]ImageInfo),
		pages:  make(map[string]image.Image),
	}
}

// Images returns the emitted image infos keyed by name.
func (r *ImageRegistry) Images() map[string]ImageInfo { return r.images }

// Emit crops the record's rectangle out of the page image and writes it as
// PNG, once per unique rectangle. It returns the info of the written file.
func (r *ImageRegistry) Emit(pagePath string, rec reflow.BoxRecord) (ImageInfo, error) {
	name := fmt.Sprintf("%s_%d_%d_%dx%d.png",
		strings.TrimSuffix(filepath.Base(pagePath), filepath.Ext(pagePath)),
		rec.X, rec.Y, rec.W, rec.H)
	if info, ok := r.images[name]; ok {
		return info, nil
	}

	img, ok := r.pages[pagePath]
	if !ok {
		var err error
		img, err = imaging.Open(pagePath)
		if err != nil {
			return ImageInfo{}, xerror.Wrap(xerror.KindExport, fmt.Sprintf("failed to open page image %q", pagePath), err)
		}
		r.pages[pagePath] = img
	}

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return ImageInfo{}, xerror.Wrap(xerror.KindExport, fmt.Sprintf("failed to create %q", r.dir), err)
	}
	crop := imaging.Crop(img, image.Rect(rec.X, rec.Y, rec.X+rec.W, rec.Y+rec.H))
	path := filepath.Join(r.dir, name)
	if err := imaging.Save(crop, path); err != nil {
		return ImageInfo{}, xerror.Wrap(xerror.KindExport, fmt.Sprintf("failed to write %q", path), err)
	}
	info := ImageInfo{Path: path, Name: name, ID: rec.ID}
	r.images[name] = info
	return info, nil
}

// boxTag returns the HTML tag for a text record: the explicit
// user_data["tag"] override when present, else the configured tag for its
// type, else "p".
func boxTag(rec reflow.BoxRecord, s *settings.Settings) string {
	if tag, ok := rec.UserData["tag"]; ok && tag != "" {
		return tag
	}
	tags := s.StringMap("box_type_tags", nil)
	if tag, ok := tags[rec.Type.String()]; ok && tag != "" {
		return tag
	}
	return "p"
}

// outputDir resolves and creates the exporter output directory.
func outputDir(s *settings.Settings, key string) (string, error) {
	dir := s.String(key, "")
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", xerror.Wrap(xerror.KindExport, fmt.Sprintf("failed to create output dir %q", dir), err)
	}
	return dir, nil
}

// dictionaryFromSettings loads the hyphenation wordlist named in settings,
// falling back to the empty dictionary (no merges) when unset or unreadable.
func dictionaryFromSettings(s *settings.Settings) reflow.Dictionary {
	path := s.String("wordlist_path", "")
	if path == "" {
		return reflow.Empty{}
	}
	tag := language.Und
	if code := s.String("wordlist_lang", ""); code != "" {
		if parsed, err := language.Parse(code); err == nil {
			tag = parsed
		}
	}
	dict, err := reflow.LoadWordlistFile(tag, path)
	if err != nil {
		return reflow.Empty{}
	}
	return dict
}

// mergePage reflows a single page's records.
func mergePage(page PageData, dict reflow.Dictionary) []reflow.BoxRecord {
	return reflow.MergeBoxes(page.Boxes, dict, reflow.Options{})
}

// textFamily reports whether a record renders as flowing text.
func textFamily(t boxtype.Type) bool {
	return t.IsText() || t.Family() == boxtype.FamilyMath
}
