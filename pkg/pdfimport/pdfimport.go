// Package pdfimport rasterizes PDF pages into image files so they can be
// added to a project like any scanned page.
package pdfimport

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/ocrdesk/ocrdesk/pkg/xerror"
)

// Metadata describes an opened PDF document.
type Metadata struct {
	Title     string
	Author    string
	PageCount int
}

// ProgressFunc is called after each page has been written. page is 1-indexed.
type ProgressFunc func(page, total int)

// Document wraps an open PDF.
type Document struct {
	doc  *fitz.Document
	path string
}

// Open opens a PDF file for rasterization.
func Open(path string) (*Document, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, xerror.Wrap(xerror.KindInputMissing, fmt.Sprintf("PDF %q not found", path), err)
	}
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %q: %w", path, err)
	}
	return &Document{doc: doc, path: path}, nil
}

// Close releases the underlying document.
func (d *Document) Close() error {
	return d.doc.Close()
}

// Metadata returns title, author and page count.
func (d *Document) Metadata() Metadata {
	m := d.doc.Metadata()
	return Metadata{
		Title:     m["title"],
		Author:    m["author"],
		PageCount: d.doc.NumPage(),
	}
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return d.doc.NumPage()
}

// BaseName returns the PDF filename without directory and extension, used to
// derive page image names.
func (d *Document) BaseName() string {
	base := filepath.Base(d.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// PageImageName returns the image filename for a zero-based page index,
// "<pdf basename>_<index>_<pdf basename>.png".
func (d *Document) PageImageName(index int) string {
	return fmt.Sprintf("%s_%d_%s.png", d.BaseName(), index, d.BaseName())
}

// RenderPage rasterizes a zero-based page index at the given DPI and writes
// it as PNG to path.
func (d *Document) RenderPage(index int, dpi float64, path string) error {
	if index < 0 || index >= d.doc.NumPage() {
		return xerror.New(xerror.KindIndexOutOfRange, fmt.Sprintf("page index %d out of range (0..%d)", index, d.doc.NumPage()-1))
	}
	img, err := d.doc.ImageDPI(index, dpi)
	if err != nil {
		return fmt.Errorf("failed to render page %d of %q: %w", index, d.path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return xerror.Wrap(xerror.KindIO, fmt.Sprintf("failed to create %q", path), err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return xerror.Wrap(xerror.KindIO, fmt.Sprintf("failed to encode %q", path), err)
	}
	return f.Close()
}

// RenderAll rasterizes every page into dir and returns the written image
// paths in page order. progress may be nil.
func (d *Document) RenderAll(dir string, dpi float64, progress ProgressFunc) ([]string, error) {
	total := d.doc.NumPage()
	paths := make([]string, 0, total)
	for i := 0; i < total; i++ {
		out := filepath.Join(dir, d.PageImageName(i))
		if err := d.RenderPage(i, dpi, out); err != nil {
			return paths, err
		}
		paths = append(paths, out)
		if progress != nil {
			progress(i+1, total)
		}
	}
	return paths, nil
}
