package export

import (
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ocrdesk/ocrdesk/pkg/logger"
	"github.com/ocrdesk/ocrdesk/pkg/reflow"
	"github.com/ocrdesk/ocrdesk/pkg/settings"
	"github.com/ocrdesk/ocrdesk/pkg/xerror"
)

// SimpleHTML writes the project as flowing HTML: boxes are reflowed and
// merged first, then emitted in reading order without positioning. A box
// with user_data["class"] == "section" starts a new section file.
type SimpleHTML struct {
	s   *settings.Settings
	log logger.Logger
}

// NewSimpleHTML creates the flowing HTML exporter.
func NewSimpleHTML(s *settings.Settings, log logger.Logger) *SimpleHTML {
	return &SimpleHTML{s: s, log: log}
}

// ExportProject writes "<name>.html" and one extra file per section into
// the configured export path. The first page image is copied once as
// "image.<ext>".
func (e *SimpleHTML) ExportProject(data ProjectData) (string, error) {
	dir, err := outputDir(e.s, "export_path")
	if err != nil {
		return "", err
	}
	base := SanitizeFilename(data.Name)
	mainPath := filepath.Join(dir, base+".html")

	if len(data.Pages) > 0 {
		if err := e.copyCoverImage(data.Pages[0].ImagePath, dir); err != nil {
			e.log.Warn("failed to copy cover image", "error", err)
		}
	}

	dict := dictionaryFromSettings(data.Settings)
	merged := mergeProject(data, dict)

	sections := splitSections(merged)
	path := mainPath
	section := 0
	for i, recs := range sections {
		if i > 0 {
			path = filepath.Join(dir, fmt.Sprintf("%s_section_%d.html", base, i))
		}
		if err := e.writeSection(path, data.Name, recs); err != nil {
			return "", err
		}
		section++
	}
	if section == 0 {
		if err := e.writeSection(mainPath, data.Name, nil); err != nil {
			return "", err
		}
	}
	e.log.Info("wrote flowing HTML export", "path", mainPath, "sections", section)
	return mainPath, nil
}

// mergeProject reflows every page and concatenates the merged records in
// page order.
func mergeProject(data ProjectData, dict reflow.Dictionary) []reflow.BoxRecord {
	var all []reflow.BoxRecord
	for _, page := range data.Pages {
		all = append(all, page.Boxes...)
	}
	return reflow.MergeBoxes(all, dict, reflow.Options{})
}

// splitSections cuts the record stream at every section marker. The marker
// box starts the new section.
func splitSections(records []reflow.BoxRecord) [][]reflow.BoxRecord {
	var out [][]reflow.BoxRecord
	current := []reflow.BoxRecord{}
	for _, rec := range records {
		if rec.UserData["class"] == "section" && len(current) > 0 {
			out = append(out, current)
			current = []reflow.BoxRecord{}
		}
		current = append(current, rec)
	}
	if len(current) > 0 {
		out = append(out, current)
	}
	return out
}

func (e *SimpleHTML) writeSection(path, title string, records []reflow.BoxRecord) error {
	var out strings.Builder
	out.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	fmt.Fprintf(&out, "<meta charset=\"utf-8\">\n<title>%s</title>\n", html.EscapeString(title))
	out.WriteString("</head>\n<body>\n")
	for _, rec := range records {
		if !textFamily(rec.Type) {
			continue
		}
		tag := boxTag(rec, e.s)
		fmt.Fprintf(&out, "<%s>%s</%s>\n", tag, html.EscapeString(rec.Text()), tag)
	}
	out.WriteString("</body>\n</html>\n")
	if err := os.WriteFile(path, []byte(out.String()), 0644); err != nil {
		return xerror.Wrap(xerror.KindExport, "failed to write HTML section", err).WithEntity(path)
	}
	return nil
}

// copyCoverImage copies the first page image into the output directory under
// the fixed name "image.<ext>".
func (e *SimpleHTML) copyCoverImage(imagePath, dir string) error {
	if imagePath == "" {
		return nil
	}
	src, err := os.Open(imagePath)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(filepath.Join(dir, "image"+filepath.Ext(imagePath)))
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
