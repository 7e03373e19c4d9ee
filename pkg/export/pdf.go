package export

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"

	"github.com/ocrdesk/ocrdesk/pkg/logger"
	"github.com/ocrdesk/ocrdesk/pkg/ocrresult"
	"github.com/ocrdesk/ocrdesk/pkg/settings"
	"github.com/ocrdesk/ocrdesk/pkg/xerror"
)

// PDF writes a searchable PDF: each page shows its scanned image with an
// invisible text layer aligned to the recognized words underneath.
type PDF struct {
	s   *settings.Settings
	log logger.Logger
}

// NewPDF creates the searchable PDF exporter.
func NewPDF(s *settings.Settings, log logger.Logger) *PDF {
	return &PDF{s: s, log: log}
}

type pdfFont struct {
	name        string
	style       string
	size        float64
	ascentRatio float64
}

// Helvetica positions reliably across PDF viewers for the hidden layer.
var defaultPDFFont = pdfFont{name: "Helvetica", style: "", size: 10, ascentRatio: 0.718}

// ExportProject writes "<name>.pdf" into the configured export path.
func (e *PDF) ExportProject(data ProjectData) (string, error) {
	dir, err := outputDir(e.s, "export_path")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, SanitizeFilename(data.Name)+".pdf")

	ppi := e.s.Int("ppi", 300)
	debug := e.s.Bool("pdf_show_text_layer", false)
	font := defaultPDFFont

	doc := fpdf.New("P", "pt", "A4", "")
	for _, page := range data.Pages {
		if err := e.addPage(doc, page, ppi, debug, font); err != nil {
			return "", err
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return "", xerror.Wrap(xerror.KindExport, "failed to generate PDF", err).WithEntity(path)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", xerror.Wrap(xerror.KindExport, "failed to write PDF", err).WithEntity(path)
	}
	e.log.Info("wrote PDF export", "path", path, "pages", len(data.Pages))
	return path, nil
}

func (e *PDF) addPage(doc *fpdf.Fpdf, page PageData, ppi int, debug bool, font pdfFont) error {
	imgData, err := os.ReadFile(page.ImagePath)
	if err != nil {
		return xerror.Wrap(xerror.KindIO, "failed to read page image", err).WithEntity(page.ImagePath)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(imgData))
	if err != nil {
		return xerror.Wrap(xerror.KindIO, "failed to decode page image", err).WithEntity(page.ImagePath)
	}

	// Pixel to point conversion at the configured scan resolution.
	scale := 72.0 / float64(ppi)
	w := float64(cfg.Width) * scale
	h := float64(cfg.Height) * scale

	doc.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})

	imageName := fmt.Sprintf("page%d", page.Order)
	opts := fpdf.ImageOptions{ReadDpi: false, ImageType: strings.ToUpper(format)}
	doc.RegisterImageOptionsReader(imageName, opts, bytes.NewReader(imgData))
	doc.ImageOptions(imageName, 0, 0, w, h, false, opts, 0, "")

	layer := doc.AddLayer(fmt.Sprintf("Text (Page %d)", page.Order+1), true)
	doc.BeginLayer(layer)
	doc.SetFont(font.name, font.style, font.size)
	if debug {
		doc.SetTextColor(255, 0, 0)
	} else {
		doc.SetAlpha(0.0, "Normal")
	}

	encodingErrors := 0
	wordCount := 0
	for _, rec := range page.Boxes {
		if rec.OCRResults == nil {
			continue
		}
		for _, para := range rec.OCRResults.Paragraphs {
			for _, line := range para.Lines {
				for _, word := range line.Words {
					drawPDFWord(doc, word, scale, font, debug, &encodingErrors)
					wordCount++
				}
			}
		}
	}
	doc.EndLayer()

	if wordCount > 0 && encodingErrors > wordCount/10 {
		e.log.Warn("character encoding issues in text layer",
			"page", page.Order, "errors", encodingErrors, "words", wordCount)
	}
	return nil
}

// drawPDFWord places one word at its scanned position, stretching the font
// so the selectable text spans the same width as the printed word.
func drawPDFWord(doc *fpdf.Fpdf, word ocrresult.Word, scale float64, font pdfFont, debug bool, encodingErrors *int) {
	x := float64(word.BBox.X) * scale
	y := float64(word.BBox.Y) * scale
	width := float64(word.BBox.W) * scale

	// Encode as ISO-8859-1 to sidestep PDF text encoding issues.
	latin1, err := charmap.ISO8859_1.NewEncoder().String(word.Text)
	if err != nil {
		*encodingErrors++
		latin1 = word.Text
	}

	strWidth := doc.GetStringWidth(latin1)
	if strWidth > 0 {
		doc.SetFontSize(font.size * width / strWidth)
	}

	fontSize, _ := doc.GetFontSize()
	baseline := y + fontSize*font.ascentRatio
	doc.Text(x, baseline, latin1)
	doc.SetFontSize(font.size)

	if debug {
		doc.Rect(x, y, width, float64(word.BBox.H)*scale, "D")
	}
}
