package export

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/ocrdesk/ocrdesk/pkg/boxtype"
	"github.com/ocrdesk/ocrdesk/pkg/logger"
	"github.com/ocrdesk/ocrdesk/pkg/reflow"
	"github.com/ocrdesk/ocrdesk/pkg/settings"
	"github.com/ocrdesk/ocrdesk/pkg/xerror"
)

// PositionalHTML reproduces the page geometry: every box becomes an
// absolutely positioned element with centimeter coordinates.
type PositionalHTML struct {
	s   *settings.Settings
	log logger.Logger
}

// NewPositionalHTML creates the positional HTML exporter.
func NewPositionalHTML(s *settings.Settings, log logger.Logger) *PositionalHTML {
	return &PositionalHTML{s: s, log: log}
}

// ExportProject writes "<name>.html" plus a companion image directory.
func (e *PositionalHTML) ExportProject(data ProjectData) (string, error) {
	dir, err := outputDir(e.s, "export_path")
	if err != nil {
		return "", err
	}
	base := SanitizeFilename(data.Name)
	path := filepath.Join(dir, base+".html")
	registry := NewImageRegistry(filepath.Join(dir, base+"_images"))

	ppi := e.s.Int("ppi", 300)
	scale := e.s.Float("export_scaling_factor", 1.2)
	round := e.s.Int("round_font_size", 1)
	minFont := float64(e.s.Int("min_font_size", 8))
	maxFont := float64(e.s.Int("max_font_size", 32))

	cm := func(px int) float64 {
		return PixelToCM(int(float64(px)*scale), ppi, 2)
	}

	var out strings.Builder
	out.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	fmt.Fprintf(&out, "<meta charset=\"utf-8\">\n<title>%s</title>\n", html.EscapeString(data.Name))
	out.WriteString("<style>\n.page { position: relative; }\n.box { position: absolute; overflow: hidden; }\n</style>\n")
	out.WriteString("</head>\n<body>\n")

	var pageOffset float64
	for _, page := range data.Pages {
		fmt.Fprintf(&out, "<div class=\"page\" id=\"page-%d\">\n", page.Order)
		for _, rec := range page.Boxes {
			style := fmt.Sprintf("left: %.2fcm; top: %.2fcm; width: %.2fcm; height: %.2fcm;",
				cm(rec.X), pageOffset+cm(rec.Y), cm(rec.W), cm(rec.H))
			switch {
			case textFamily(rec.Type):
				tag := boxTag(rec, e.s)
				size := MeanFontSize(rec.OCRResults, minFont, maxFont, float64(round))
				fmt.Fprintf(&out, "<div class=\"box\" style=\"%s\"><%s style=\"font-size: %.0fpt;\">%s</%s></div>\n",
					style, tag, size, html.EscapeString(rec.Text()), tag)
			case rec.Type.IsImage():
				info, err := registry.Emit(page.ImagePath, rec)
				if err != nil {
					e.log.Warn("skipping image box", "box", rec.ID, "error", err)
					continue
				}
				fmt.Fprintf(&out, "<div class=\"box\" style=\"%s\"><img src=\"%s\" alt=\"\" style=\"width: 100%%; height: 100%%;\"></div>\n",
					style, filepath.Join(base+"_images", info.Name))
			case rec.Type.IsLine():
				border := lineBorder(rec)
				fmt.Fprintf(&out, "<div class=\"box\" style=\"%s %s\"></div>\n", style, border)
			}
		}
		out.WriteString("</div>\n")
		// Stack pages vertically in the single document.
		pageOffset += pageHeightCM(page, cm)
	}
	out.WriteString("</body>\n</html>\n")

	if err := os.WriteFile(path, []byte(out.String()), 0644); err != nil {
		return "", xerror.Wrap(xerror.KindExport, "failed to write HTML export", err).WithEntity(path)
	}
	e.log.Info("wrote positional HTML export", "path", path, "pages", len(data.Pages))
	return path, nil
}

func lineBorder(rec reflow.BoxRecord) string {
	if rec.Type == boxtype.VertLine {
		return "border-left: 1px solid #000;"
	}
	return "border-top: 1px solid #000;"
}

// pageHeightCM estimates the vertical extent of a page from its lowest box.
func pageHeightCM(page PageData, cm func(int) float64) float64 {
	bottom := 0
	for _, rec := range page.Boxes {
		if b := rec.Y + rec.H; b > bottom {
			bottom = b
		}
	}
	return cm(bottom) + 2
}
