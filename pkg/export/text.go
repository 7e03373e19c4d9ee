package export

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ocrdesk/ocrdesk/pkg/logger"
	"github.com/ocrdesk/ocrdesk/pkg/settings"
	"github.com/ocrdesk/ocrdesk/pkg/xerror"
)

// Text writes the project as plain text, one line per text box.
type Text struct {
	s   *settings.Settings
	log logger.Logger
}

// NewText creates the plain text exporter.
func NewText(s *settings.Settings, log logger.Logger) *Text {
	return &Text{s: s, log: log}
}

// ExportProject writes "<name>.txt" into the configured export path.
func (e *Text) ExportProject(data ProjectData) (string, error) {
	dir, err := outputDir(e.s, "export_path")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, SanitizeFilename(data.Name)+".txt")

	var out strings.Builder
	for _, page := range data.Pages {
		for _, rec := range page.Boxes {
			if !textFamily(rec.Type) {
				continue
			}
			out.WriteString(rec.Text())
			out.WriteString("\n")
		}
	}
	if err := os.WriteFile(path, []byte(out.String()), 0644); err != nil {
		return "", xerror.Wrap(xerror.KindExport, "failed to write text export", err).WithEntity(path)
	}
	e.log.Info("wrote text export", "path", path, "pages", len(data.Pages))
	return path, nil
}
