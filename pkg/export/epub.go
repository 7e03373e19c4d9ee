package export

import (
	"fmt"
	"html"
	"path/filepath"
	"strings"

	goepub "github.com/go-shiori/go-epub"

	"github.com/ocrdesk/ocrdesk/pkg/logger"
	"github.com/ocrdesk/ocrdesk/pkg/settings"
	"github.com/ocrdesk/ocrdesk/pkg/xerror"
)

// EPUB writes the project as an EPUB book with one chapter per page. The
// table of contents follows page order.
type EPUB struct {
	s   *settings.Settings
	log logger.Logger
}

// NewEPUB creates the EPUB exporter.
func NewEPUB(s *settings.Settings, log logger.Logger) *EPUB {
	return &EPUB{s: s, log: log}
}

// ExportProject writes "<name>.epub" into the configured export path.
func (e *EPUB) ExportProject(data ProjectData) (string, error) {
	dir, err := outputDir(e.s, "export_path")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, SanitizeFilename(data.Name)+".epub")

	book, err := goepub.NewEpub(data.Name)
	if err != nil {
		return "", xerror.Wrap(xerror.KindExport, "failed to create EPUB", err)
	}
	if data.Description != "" {
		book.SetDescription(data.Description)
	}

	dict := dictionaryFromSettings(data.Settings)
	for _, page := range data.Pages {
		merged := mergePage(page, dict)
		var body strings.Builder
		for _, rec := range merged {
			if !textFamily(rec.Type) {
				continue
			}
			tag := boxTag(rec, e.s)
			fmt.Fprintf(&body, "<%s>%s</%s>\n", tag, html.EscapeString(rec.Text()), tag)
		}
		title := fmt.Sprintf("Page %d", page.Order+1)
		name := fmt.Sprintf("page-%04d.xhtml", page.Order)
		if _, err := book.AddSection(body.String(), title, name, ""); err != nil {
			return "", xerror.Wrap(xerror.KindExport, fmt.Sprintf("failed to add chapter for page %d", page.Order), err)
		}
	}

	if err := book.Write(path); err != nil {
		return "", xerror.Wrap(xerror.KindExport, "failed to write EPUB", err).WithEntity(path)
	}
	e.log.Info("wrote EPUB export", "path", path, "pages", len(data.Pages))
	return path, nil
}
