package export

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/ocrdesk/ocrdesk/pkg/logger"
	"github.com/ocrdesk/ocrdesk/pkg/settings"
	"github.com/ocrdesk/ocrdesk/pkg/xerror"
)

// Preview renders the merged text flow of the whole project into a single
// throwaway HTML file, for a quick look before a real export.
type Preview struct {
	s   *settings.Settings
	log logger.Logger
}

// NewPreview creates the preview exporter.
func NewPreview(s *settings.Settings, log logger.Logger) *Preview {
	return &Preview{s: s, log: log}
}

// ExportProject writes "<name>_preview.html" into the preview path.
func (e *Preview) ExportProject(data ProjectData) (string, error) {
	if len(data.Pages) == 0 {
		return "", xerror.New(xerror.KindExport, "nothing to preview").WithEntity(data.Name)
	}
	dir, err := outputDir(e.s, "export_preview_path")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, SanitizeFilename(data.Name)+"_preview.html")
	dict := dictionaryFromSettings(data.Settings)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	fmt.Fprintf(&b, "<meta charset=\"utf-8\">\n<title>%s</title>\n", html.EscapeString(data.Name))
	b.WriteString("</head>\n<body>\n")
	for _, page := range data.Pages {
		fmt.Fprintf(&b, "<!-- page %d -->\n", page.Order)
		for _, rec := range mergePage(page, dict) {
			if !textFamily(rec.Type) {
				continue
			}
			tag := boxTag(rec, e.s)
			fmt.Fprintf(&b, "<%s>%s</%s>\n", tag, html.EscapeString(rec.Text()), tag)
		}
	}
	b.WriteString("</body>\n</html>\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", xerror.Wrap(xerror.KindExport, "failed to write preview", err).WithEntity(path)
	}
	e.log.Debug("wrote preview", "path", path)
	return path, nil
}
