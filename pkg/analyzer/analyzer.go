// Package analyzer segments page images into typed layout boxes.
//
// The concrete analyzer drives Tesseract through gosseract at block level.
// Classification is deliberately coarse: blocks that carry recognizable text
// become text boxes, blocks without any become image boxes. The detection
// rules in rules.go then clean up the raw candidates.
package analyzer

import (
	"context"

	"github.com/ocrdesk/ocrdesk/pkg/layout"
	"github.com/ocrdesk/ocrdesk/pkg/settings"
)

// Analyzer segments a rectangular region of an image into typed boxes.
// Boxes come back in the analyzer's discovery order; the caller renumbers.
type Analyzer interface {
	AnalyzeLayout(ctx context.Context, imagePath string, region *layout.Rect) ([]*layout.Box, error)
	Close() error
}

// Config holds the analyzer knobs read from settings.
type Config struct {
	DataPath       string
	Languages      []string
	XSizeThreshold int
	YSizeThreshold int
	Padding        int
}

// ConfigFromSettings extracts the analyzer configuration.
func ConfigFromSettings(s *settings.Settings) Config {
	return Config{
		DataPath:       s.String("tesseract_data_path", ""),
		Languages:      s.StringSlice("langs", []string{"eng"}),
		XSizeThreshold: s.Int("x_size_threshold", 20),
		YSizeThreshold: s.Int("y_size_threshold", 20),
		Padding:        s.Int("padding", 5),
	}
}
