package export

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/ocrdesk/ocrdesk/pkg/logger"
	"github.com/ocrdesk/ocrdesk/pkg/settings"
	"github.com/ocrdesk/ocrdesk/pkg/xerror"
)

// ODT writes the project as an OpenDocument text file with one positioned
// text frame per text box, in centimeters on the configured paper size.
type ODT struct {
	s   *settings.Settings
	log logger.Logger
}

// NewODT creates the ODT exporter.
func NewODT(s *settings.Settings, log logger.Logger) *ODT {
	return &ODT{s: s, log: log}
}

type odtFrame struct {
	Name string
	Page int
	X    float64
	Y    float64
	W    float64
	H    float64
	Text string
}

type odtContent struct {
	Frames []odtFrame
}

type odtStyles struct {
	Width  float64
	Height float64
}

const odtMimetype = "application/vnd.oasis.opendocument.text"

const odtManifest = `<?xml version="1.0" encoding="UTF-8"?>
<manifest:manifest xmlns:manifest="urn:oasis:names:tc:opendocument:xmlns:manifest:1.0" manifest:version="1.2">
 <manifest:file-entry manifest:full-path="/" manifest:media-type="application/vnd.oasis.opendocument.text"/>
 <manifest:file-entry manifest:full-path="content.xml" manifest:media-type="text/xml"/>
 <manifest:file-entry manifest:full-path="styles.xml" manifest:media-type="text/xml"/>
</manifest:manifest>
`

var odtContentTmpl = template.Must(template.New("content").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<office:document-content
 xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
 xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0"
 xmlns:draw="urn:oasis:names:tc:opendocument:xmlns:drawing:1.0"
 xmlns:svg="urn:oasis:names:tc:opendocument:xmlns:svg-compatible:1.0"
 office:version="1.2">
 <office:body>
  <office:text>
   <text:p>{{range .Frames}}<draw:frame draw:name="{{.Name}}" text:anchor-type="page" text:anchor-page-number="{{.Page}}" svg:x="{{printf "%.2f" .X}}cm" svg:y="{{printf "%.2f" .Y}}cm" svg:width="{{printf "%.2f" .W}}cm" svg:height="{{printf "%.2f" .H}}cm"><draw:text-box><text:p>{{.Text}}</text:p></draw:text-box></draw:frame>{{end}}</text:p>
  </office:text>
 </office:body>
</office:document-content>
`))

var odtStylesTmpl = template.Must(template.New("styles").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<office:document-styles
 xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
 xmlns:style="urn:oasis:names:tc:opendocument:xmlns:style:1.0"
 xmlns:fo="urn:oasis:names:tc:opendocument:xmlns:xsl-fo-compatible:1.0"
 office:version="1.2">
 <office:automatic-styles>
  <style:page-layout style:name="pm1">
   <style:page-layout-properties fo:page-width="{{printf "%.1f" .Width}}cm" fo:page-height="{{printf "%.1f" .Height}}cm" fo:margin="0cm"/>
  </style:page-layout>
 </office:automatic-styles>
 <office:master-styles>
  <style:master-page style:name="Standard" style:page-layout-name="pm1"/>
 </office:master-styles>
</office:document-styles>
`))

// ExportProject writes "<name>.odt" into the configured export path.
func (e *ODT) ExportProject(data ProjectData) (string, error) {
	dir, err := outputDir(e.s, "export_path")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, SanitizeFilename(data.Name)+".odt")

	ppi := e.s.Int("ppi", 300)
	paper := LookupPaperSize(e.s.String("paper_size", "a4"))
	dict := dictionaryFromSettings(data.Settings)

	var content odtContent
	for _, page := range data.Pages {
		for i, rec := range mergePage(page, dict) {
			if !textFamily(rec.Type) {
				continue
			}
			content.Frames = append(content.Frames, odtFrame{
				Name: fmt.Sprintf("box-%d-%d", page.Order, i),
				Page: page.Order + 1,
				X:    PixelToCM(rec.X, ppi, 2),
				Y:    PixelToCM(rec.Y, ppi, 2),
				W:    PixelToCM(rec.W, ppi, 2),
				H:    PixelToCM(rec.H, ppi, 2),
				Text: xmlEscape(rec.Text()),
			})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return "", xerror.Wrap(xerror.KindExport, "failed to create ODT", err).WithEntity(path)
	}
	zw := zip.NewWriter(f)
	if err := writeODTEntries(zw, content, odtStyles{Width: paper.Width, Height: paper.Height}); err != nil {
		zw.Close()
		f.Close()
		os.Remove(path)
		return "", xerror.Wrap(xerror.KindExport, "failed to assemble ODT", err).WithEntity(path)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return "", xerror.Wrap(xerror.KindExport, "failed to finish ODT", err).WithEntity(path)
	}
	if err := f.Close(); err != nil {
		return "", xerror.Wrap(xerror.KindExport, "failed to close ODT", err).WithEntity(path)
	}
	e.log.Info("wrote ODT export", "path", path, "frames", len(content.Frames))
	return path, nil
}

func writeODTEntries(zw *zip.Writer, content odtContent, styles odtStyles) error {
	// The mimetype entry must come first and be stored uncompressed.
	mw, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return err
	}
	if _, err := mw.Write([]byte(odtMimetype)); err != nil {
		return err
	}
	w, err := zw.Create("META-INF/manifest.xml")
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(odtManifest)); err != nil {
		return err
	}
	if w, err = zw.Create("styles.xml"); err != nil {
		return err
	}
	if err := odtStylesTmpl.Execute(w, styles); err != nil {
		return err
	}
	if w, err = zw.Create("content.xml"); err != nil {
		return err
	}
	return odtContentTmpl.Execute(w, content)
}

func xmlEscape(s string) string {
	var out []rune
	for _, r := range s {
		switch r {
		case '&':
			out = append(out, []rune("&amp;")...)
		case '<':
			out = append(out, []rune("&lt;")...)
		case '>':
			out = append(out, []rune("&gt;")...)
		case '"':
			out = append(out, []rune("&quot;")...)
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
