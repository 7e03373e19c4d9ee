package ocrengine

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/ocrdesk/ocrdesk/pkg/layout"
	"github.com/ocrdesk/ocrdesk/pkg/logger"
	"github.com/ocrdesk/ocrdesk/pkg/ocrresult"
	"github.com/ocrdesk/ocrdesk/pkg/xerror"
)

// recognizer is one reusable OCR handle. Handles are not safe for concurrent
// use; the pool hands each one to a single worker at a time.
type recognizer interface {
	recognize(imagePath string) (*ocrresult.Block, error)
	close() error
}

// Tesseract recognizes boxes with a bounded pool of gosseract handles.
type Tesseract struct {
	cfg     Config
	log     logger.Logger
	handles chan recognizer
}

// NewTesseract creates the pooled engine. Workers defaults to 4 when the
// config leaves it unset.
func NewTesseract(cfg Config, log logger.Logger) (*Tesseract, error) {
	return newTesseract(cfg, log, func() (recognizer, error) {
		return newGosseractHandle(cfg)
	})
}

func newTesseract(cfg Config, log logger.Logger, factory func() (recognizer, error)) (*Tesseract, error) {
	if log == nil {
		log = logger.Nop{}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	handles := make(chan recognizer, cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		h, err := factory()
		if err != nil {
			close(handles)
			for h := range handles {
				h.close()
			}
			return nil, fmt.Errorf("failed to create OCR handle: %w", err)
		}
		handles <- h
	}
	return &Tesseract{cfg: cfg, log: log, handles: handles}, nil
}

// Close releases every pooled handle.
func (e *Tesseract) Close() error {
	close(e.handles)
	var first error
	for h := range e.handles {
		if err := h.close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// AvailableLanguages returns the language tags the installation can
// recognize.
func (e *Tesseract) AvailableLanguages() ([]string, error) {
	langs, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return nil, xerror.Wrap(xerror.KindBackendFailure, "failed to list languages", err)
	}
	return langs, nil
}

// RecognizeBoxes recognizes every text box against imagePath. Each worker
// draws a handle from the pool, crops the box region to a temporary file and
// attaches the parsed result to the originating box. Failures on individual
// boxes are logged and skipped; the remaining boxes still run.
func (e *Tesseract) RecognizeBoxes(ctx context.Context, imagePath string, boxes []*layout.Box, progress Progress) error {
	img, err := imaging.Open(imagePath)
	if err != nil {
		return xerror.Wrap(xerror.KindInputMissing, fmt.Sprintf("failed to open image %q", imagePath), err)
	}

	var work []*layout.Box
	for _, b := range boxes {
		if b.Type.IsText() {
			work = append(work, b)
		}
	}
	total := len(work)
	if total == 0 {
		return nil
	}

	tasks := make(chan *layout.Box)
	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0

	workers := e.cfg.Workers
	if workers > total {
		workers = total
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := <-e.handles
			defer func() { e.handles <- h }()
			for box := range tasks {
				e.recognizeBox(h, img, box)
				mu.Lock()
				done++
				d := done
				mu.Unlock()
				if progress != nil {
					progress(d, total, fmt.Sprintf("recognized box %s", box.ID))
				}
			}
		}()
	}

	err = nil
feed:
	for _, box := range work {
		if ctx.Err() != nil {
			err = ctx.Err()
			break
		}
		select {
		case tasks <- box:
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		}
	}
	close(tasks)
	wg.Wait()
	return err
}

// recognizeBox crops, recognizes and attaches the result. Errors leave the
// box without results and are logged with its id.
func (e *Tesseract) recognizeBox(h recognizer, img image.Image, box *layout.Box) {
	crop, err := cropBox(img, box)
	if err != nil {
		e.log.Warn("skipping box with invalid region", "box", box.ID, "error", err)
		return
	}
	path, cleanup, err := writeTempPNG(crop)
	if err != nil {
		e.log.Error("failed to write crop", err, "box", box.ID)
		return
	}
	defer cleanup()

	block, err := h.recognize(path)
	if err != nil {
		e.log.Warn("recognition failed", "box", box.ID, "error", err)
		return
	}
	if block == nil {
		return
	}
	offsetBlock(block, box.X, box.Y)
	box.SetOCRResults(block, layout.SourceBackend)
	box.SetConfidence(block.Confidence, layout.SourceBackend)
}

// RecognizeBoxText recognizes a single box and returns its concatenated
// text. The box itself is not mutated.
func (e *Tesseract) RecognizeBoxText(ctx context.Context, imagePath string, box *layout.Box) (string, error) {
	img, err := imaging.Open(imagePath)
	if err != nil {
		return "", xerror.Wrap(xerror.KindInputMissing, fmt.Sprintf("failed to open image %q", imagePath), err)
	}
	crop, err := cropBox(img, box)
	if err != nil {
		return "", err
	}
	path, cleanup, err := writeTempPNG(crop)
	if err != nil {
		return "", err
	}
	defer cleanup()

	select {
	case h := <-e.handles:
		defer func() { e.handles <- h }()
		block, err := h.recognize(path)
		if err != nil {
			return "", xerror.Wrap(xerror.KindBackendFailure, fmt.Sprintf("recognition failed for box %s", box.ID), err)
		}
		if block == nil {
			return "", nil
		}
		return block.Text(), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func cropBox(img image.Image, box *layout.Box) (image.Image, error) {
	bounds := img.Bounds()
	r := image.Rect(box.X, box.Y, box.X+box.W, box.Y+box.H).Intersect(bounds)
	if r.Empty() {
		return nil, xerror.New(xerror.KindInvalidRegion,
			fmt.Sprintf("box %s lies outside the image", box.ID))
	}
	return imaging.Crop(img, r), nil
}

func writeTempPNG(img image.Image) (string, func(), error) {
	f, err := os.CreateTemp("", "ocrdesk-box-*.png")
	if err != nil {
		return "", nil, xerror.Wrap(xerror.KindIO, "failed to create temp image", err)
	}
	path := f.Name()
	f.Close()
	if err := imaging.Save(img, path); err != nil {
		os.Remove(path)
		return "", nil, xerror.Wrap(xerror.KindIO, fmt.Sprintf("failed to write temp image %q", path), err)
	}
	return path, func() { os.Remove(path) }, nil
}

// gosseractHandle is the production recognizer: one long-lived gosseract
// client producing hOCR that is parsed into the result tree.
type gosseractHandle struct {
	client *gosseract.Client
}

func newGosseractHandle(cfg Config) (*gosseractHandle, error) {
	client := gosseract.NewClient()
	if cfg.DataPath != "" {
		if err := client.SetTessdataPrefix(cfg.DataPath); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	if len(cfg.Languages) > 0 {
		if err := client.SetLanguage(cfg.Languages...); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set languages: %w", err)
		}
	}
	for k, v := range cfg.Options {
		if err := client.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set option %s=%s: %w", k, v, err)
		}
	}
	return &gosseractHandle{client: client}, nil
}

func (g *gosseractHandle) recognize(imagePath string) (*ocrresult.Block, error) {
	if err := g.client.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("failed to set image %q: %w", filepath.Base(imagePath), err)
	}
	hocr, err := g.client.HOCRText()
	if err != nil {
		return nil, fmt.Errorf("hOCR recognition failed: %w", err)
	}
	blocks, err := ocrresult.ParseHOCR([]byte(hocr))
	if err != nil {
		return nil, fmt.Errorf("failed to parse hOCR: %w", err)
	}
	return combineBlocks(blocks), nil
}

func (g *gosseractHandle) close() error {
	return g.client.Close()
}

// combineBlocks folds the parsed areas of one crop into a single block. A
// crop corresponds to one box, so multiple detected areas collapse.
func combineBlocks(blocks []ocrresult.Block) *ocrresult.Block {
	if len(blocks) == 0 {
		return nil
	}
	if len(blocks) == 1 {
		return &blocks[0]
	}
	out := blocks[0]
	sum := blocks[0].Confidence
	for _, b := range blocks[1:] {
		out.BBox = out.BBox.Union(b.BBox)
		out.Paragraphs = append(out.Paragraphs, b.Paragraphs...)
		sum += b.Confidence
	}
	out.Confidence = sum / float64(len(blocks))
	return &out
}

// offsetBlock translates every bounding box in the tree by (dx, dy), mapping
// crop-local coordinates back onto the page.
func offsetBlock(b *ocrresult.Block, dx, dy int) {
	b.BBox.X += dx
	b.BBox.Y += dy
	for pi := range b.Paragraphs {
		p := &b.Paragraphs[pi]
		p.BBox.X += dx
		p.BBox.Y += dy
		for li := range p.Lines {
			l := &p.Lines[li]
			l.BBox.X += dx
			l.BBox.Y += dy
			for i := range l.Baseline {
				l.Baseline[i].X += dx
				l.Baseline[i].Y += dy
			}
			for wi := range l.Words {
				w := &l.Words[wi]
				w.BBox.X += dx
				w.BBox.Y += dy
				for si := range w.Symbols {
					w.Symbols[si].BBox.X += dx
					w.Symbols[si].BBox.Y += dy
				}
			}
		}
	}
}
