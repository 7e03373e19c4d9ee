package export

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed papersizes.yaml
var paperSizesYAML []byte

// PaperSize is a page format in centimeters.
type PaperSize struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

var paperSizes map[string]PaperSize

func init() {
	if err := yaml.Unmarshal(paperSizesYAML, &paperSizes); err != nil {
		panic(fmt.Sprintf("invalid embedded paper size table: %v", err))
	}
}

// LookupPaperSize returns the paper format for a paper_size setting value,
// defaulting to A4 for unknown keys.
func LookupPaperSize(key string) PaperSize {
	if size, ok := paperSizes[key]; ok {
		return size
	}
	return paperSizes["a4"]
}
