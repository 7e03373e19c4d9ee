// Package settings implements the layered configuration store: project
// settings override application settings, which fall back to built-in
// defaults. Values are JSON-shaped and persisted with an atomic file replace.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Settings is a JSON-shaped key/value mapping with typed accessors and an
// optional fallback layer consulted for missing keys.
type Settings struct {
	values   map[string]interface{}
	fallback *Settings
}

// New creates an empty settings layer.
func New() *Settings {
	return &Settings{values: make(map[string]interface{})}
}

// NewLayered creates a settings layer that falls back to parent for keys it
// does not hold itself. The parent is referenced, never owned.
func NewLayered(parent *Settings) *Settings {
	return &Settings{values: make(map[string]interface{}), fallback: parent}
}

// Defaults returns the application defaults for every known key.
func Defaults() *Settings {
	s := New()
	s.values = map[string]interface{}{
		"ppi":                        300,
		"paper_size":                 "a4",
		"langs":                      []interface{}{"eng"},
		"layout_analyzer":            "tesseract",
		"ocr_engine":                 "tesseract",
		"worker_count":               4,
		"tesseract_data_path":        "",
		"tesseract_options":          "",
		"x_size_threshold":           20,
		"y_size_threshold":           20,
		"padding":                    5,
		"confidence_color_threshold": 85,
		"max_font_size":              32,
		"min_font_size":              8,
		"round_font_size":            1,
		"export_scaling_factor":      1.2,
		"export_path":                "",
		"export_preview_path":        "",
		"wordlist_path":              "",
		"wordlist_lang":              "",
		"box_types":                  defaultBoxTypeNames(),
		"box_type_tags": map[string]interface{}{
			"FLOWING_TEXT":  "p",
			"PULLOUT_TEXT":  "p",
			"VERTICAL_TEXT": "p",
			"HEADING_TEXT":  "h1",
			"CAPTION_TEXT":  "caption",
		},
		"box_flow_line_color":                   "#1565c0",
		"box_flow_line_alpha":                   0.6,
		"max_training_lines":                    100,
		"training_line_confidence_threshold":    90,
		"remove_training_lines_before_training": true,
		"training_iterations":                   400,
	}
	return s
}

func defaultBoxTypeNames() []interface{} {
	return []interface{}{
		"FLOWING_TEXT", "HEADING_TEXT", "PULLOUT_TEXT", "CAPTION_TEXT",
		"VERTICAL_TEXT", "FLOWING_IMAGE", "HEADING_IMAGE", "PULLOUT_IMAGE",
		"EQUATION", "INLINE_EQUATION", "TABLE", "HORZ_LINE", "VERT_LINE",
	}
}

// Get returns the raw value for key, consulting the fallback chain.
func (s *Settings) Get(key string) (interface{}, bool) {
	if v, ok := s.values[key]; ok {
		return v, true
	}
	if s.fallback != nil {
		return s.fallback.Get(key)
	}
	return nil, false
}

// Set stores a value in this layer.
func (s *Settings) Set(key string, value interface{}) {
	s.values[key] = value
}

// Delete removes a key from this layer (fallback values become visible again).
func (s *Settings) Delete(key string) {
	delete(s.values, key)
}

// Int returns the value as an int, or def when absent or mistyped. JSON
// numbers arrive as float64 and are accepted.
func (s *Settings) Int(key string, def int) int {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return def
}

// Float returns the value as a float64, or def.
func (s *Settings) Float(key string, def float64) float64 {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return def
}

// String returns the value as a string, or def.
func (s *Settings) String(key, def string) string {
	if v, ok := s.Get(key); ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return def
}

// Bool returns the value as a bool, or def.
func (s *Settings) Bool(key string, def bool) bool {
	if v, ok := s.Get(key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// StringSlice returns the value as a []string, or def. JSON arrays arrive as
// []interface{} and are converted.
func (s *Settings) StringSlice(key string, def []string) []string {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	switch arr := v.(type) {
	case []string:
		return arr
	case []interface{}:
		out := make([]string, 0, len(arr))
		for _, e := range arr {
			str, ok := e.(string)
			if !ok {
				return def
			}
			out = append(out, str)
		}
		return out
	}
	return def
}

// StringMap returns the value as a map[string]string, or def.
func (s *Settings) StringMap(key string, def map[string]string) map[string]string {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	switch m := v.(type) {
	case map[string]string:
		return m
	case map[string]interface{}:
		out := make(map[string]string, len(m))
		for k, e := range m {
			str, ok := e.(string)
			if !ok {
				return def
			}
			out[k] = str
		}
		return out
	}
	return def
}

// MarshalJSON emits only this layer's own values, never the fallback's.
func (s *Settings) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.values)
}

// UnmarshalJSON replaces this layer's values.
func (s *Settings) UnmarshalJSON(data []byte) error {
	values := make(map[string]interface{})
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	s.values = values
	return nil
}

// SetFallback wires the fallback layer (used after deserialization).
func (s *Settings) SetFallback(parent *Settings) {
	s.fallback = parent
}

// Save writes this layer to path via a temp file and an atomic rename, so a
// failed write never leaves a truncated settings file behind.
func (s *Settings) Save(path string) error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".settings-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp settings file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close settings file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}

// Load reads a settings layer from path.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	s := New()
	if err := json.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	return s, nil
}
