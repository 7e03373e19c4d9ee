// Package ocrengine adapts OCR backends to the box model. An Engine receives
// a page image plus layout boxes and attaches recognition result trees to the
// text boxes; non-text boxes are left untouched.
package ocrengine

import (
	"context"
	"strings"

	"github.com/ocrdesk/ocrdesk/pkg/layout"
	"github.com/ocrdesk/ocrdesk/pkg/settings"
)

// Progress reports recognition progress. done counts finished boxes out of
// total; message names the entity just processed.
type Progress func(done, total int, message string)

// Engine is the recognition interface the core consumes.
type Engine interface {
	// RecognizeBoxes recognizes every text box in boxes against imagePath,
	// attaching results and confidences by box identity. Result arrival
	// order is unspecified.
	RecognizeBoxes(ctx context.Context, imagePath string, boxes []*layout.Box, progress Progress) error
	// RecognizeBoxText returns the concatenated text for a single box
	// without mutating it.
	RecognizeBoxText(ctx context.Context, imagePath string, box *layout.Box) (string, error)
	// AvailableLanguages returns the recognizable language tags.
	AvailableLanguages() ([]string, error)
	Close() error
}

// Config holds the engine knobs read from settings.
type Config struct {
	Languages []string
	DataPath  string
	Options   map[string]string
	Workers   int
}

// ConfigFromSettings extracts the engine configuration.
func ConfigFromSettings(s *settings.Settings) Config {
	return Config{
		Languages: s.StringSlice("langs", []string{"eng"}),
		DataPath:  s.String("tesseract_data_path", ""),
		Options:   ParseOptions(s.String("tesseract_options", "")),
		Workers:   s.Int("worker_count", 4),
	}
}

// ParseOptions parses the "k=v;k=v" option string used in settings.
// Malformed entries are skipped.
func ParseOptions(raw string) map[string]string {
	opts := make(map[string]string)
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		opts[k] = strings.TrimSpace(v)
	}
	return opts
}
