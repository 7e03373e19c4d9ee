// Package export turns a project's flattened page records into output files:
// plain text, positional and flowing HTML, EPUB, ODT, an HTML preview and a
// searchable PDF.
package export

import (
	"fmt"

	"github.com/ocrdesk/ocrdesk/pkg/logger"
	"github.com/ocrdesk/ocrdesk/pkg/reflow"
	"github.com/ocrdesk/ocrdesk/pkg/settings"
	"github.com/ocrdesk/ocrdesk/pkg/xerror"
)

// ProjectData is the export record a project hands to an exporter.
type ProjectData struct {
	Name        string
	Description string
	Pages       []PageData
	Settings    *settings.Settings
}

// PageData is one page's contribution to the export record.
type PageData struct {
	ImagePath string
	Order     int
	Boxes     []reflow.BoxRecord
}

// Exporter writes a project export record to disk and returns the path of
// the primary output file.
type Exporter interface {
	ExportProject(data ProjectData) (string, error)
}

// New instantiates the exporter registered under kind.
func New(kind string, s *settings.Settings, log logger.Logger) (Exporter, error) {
	if log == nil {
		log = logger.Nop{}
	}
	switch kind {
	case "text":
		return NewText(s, log), nil
	case "html":
		return NewPositionalHTML(s, log), nil
	case "simple_html":
		return NewSimpleHTML(s, log), nil
	case "epub":
		return NewEPUB(s, log), nil
	case "odt":
		return NewODT(s, log), nil
	case "preview":
		return NewPreview(s, log), nil
	case "pdf":
		return NewPDF(s, log), nil
	}
	return nil, xerror.New(xerror.KindExport, fmt.Sprintf("unknown exporter %q", kind))
}
