package analyzer

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/ocrdesk/ocrdesk/pkg/boxtype"
	"github.com/ocrdesk/ocrdesk/pkg/layout"
	"github.com/ocrdesk/ocrdesk/pkg/logger"
	"github.com/ocrdesk/ocrdesk/pkg/xerror"
)

// Tesseract segments pages with gosseract at block level. The underlying
// handle is not safe for concurrent calls, so all analysis is serialized
// behind a mutex.
type Tesseract struct {
	cfg Config
	log logger.Logger

	mu sync.Mutex
}

// NewTesseract returns a block-level layout analyzer.
func NewTesseract(cfg Config, log logger.Logger) *Tesseract {
	if log == nil {
		log = logger.Nop{}
	}
	return &Tesseract{cfg: cfg, log: log}
}

// Close releases analyzer resources. The gosseract client is created per
// call, so there is nothing to free.
func (t *Tesseract) Close() error { return nil }

// AnalyzeLayout segments imagePath (or the given region of it) into typed
// boxes. Coordinates in the result are relative to the full image.
func (t *Tesseract) AnalyzeLayout(ctx context.Context, imagePath string, region *layout.Rect) ([]*layout.Box, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := imaging.Open(imagePath)
	if err != nil {
		return nil, xerror.Wrap(xerror.KindInputMissing, fmt.Sprintf("failed to open image %q", imagePath), err)
	}

	offsetX, offsetY := 0, 0
	source := imagePath
	var cleanup func()
	if region != nil {
		bounds := img.Bounds()
		if region.W <= 0 || region.H <= 0 ||
			region.X < 0 || region.Y < 0 ||
			region.X+region.W > bounds.Dx() || region.Y+region.H > bounds.Dy() {
			return nil, xerror.New(xerror.KindInvalidRegion,
				fmt.Sprintf("region %dx%d+%d+%d outside image %q", region.W, region.H, region.X, region.Y, imagePath))
		}
		crop := imaging.Crop(img, image.Rect(region.X, region.Y, region.X+region.W, region.Y+region.H))
		source, cleanup, err = writeTempPNG(crop)
		if err != nil {
			return nil, err
		}
		offsetX, offsetY = region.X, region.Y
	}
	if cleanup != nil {
		defer cleanup()
	}

	client := gosseract.NewClient()
	defer client.Close()
	if t.cfg.DataPath != "" {
		if err := client.SetTessdataPrefix(t.cfg.DataPath); err != nil {
			return nil, xerror.Wrap(xerror.KindBackendFailure, "failed to set tessdata path", err)
		}
	}
	if len(t.cfg.Languages) > 0 {
		if err := client.SetLanguage(t.cfg.Languages...); err != nil {
			return nil, xerror.Wrap(xerror.KindBackendFailure, "failed to set languages", err)
		}
	}
	if err := client.SetImage(source); err != nil {
		return nil, xerror.Wrap(xerror.KindBackendFailure, fmt.Sprintf("failed to set image %q", source), err)
	}

	blocks, err := client.GetBoundingBoxes(gosseract.RIL_BLOCK)
	if err != nil {
		return nil, xerror.Wrap(xerror.KindBackendFailure, "block detection failed", err)
	}

	candidates := make([]*layout.Box, 0, len(blocks))
	for _, blk := range blocks {
		r := blk.Box
		bt := boxtype.FlowingText
		if strings.TrimSpace(blk.Word) == "" {
			bt = boxtype.FlowingImage
		}
		box := layout.New(bt,
			offsetX+r.Min.X-t.cfg.Padding,
			offsetY+r.Min.Y-t.cfg.Padding,
			r.Dx()+2*t.cfg.Padding,
			r.Dy()+2*t.cfg.Padding)
		if box.X < 0 {
			box.W += box.X
			box.X = 0
		}
		if box.Y < 0 {
			box.H += box.Y
			box.Y = 0
		}
		box.Confidence = blk.Confidence
		candidates = append(candidates, box)
	}

	result := ApplyDetectionRules(candidates, t.cfg)
	t.log.Debug("layout analysis finished", "image", filepath.Base(imagePath), "detected", len(blocks), "kept", len(result))
	return result, nil
}

func writeTempPNG(img image.Image) (string, func(), error) {
	f, err := os.CreateTemp("", "ocrdesk-region-*.png")
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
