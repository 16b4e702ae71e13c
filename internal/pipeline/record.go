package pipeline

import (
	"github.com/ironsheep/object-metrics/internal/detection"
	"github.com/ironsheep/object-metrics/internal/imaging"
)

// Header is the column row of the measurement table, in Record field order.
var Header = []string{
	"filename",
	"object_major",
	"object_minor",
	"object_area",
	"object_circularity",
	"object_perimeter",
	"object_width",
	"object_height",
	"object_sharpness",
	"object_saturation",
	"object_redness",
	"object_greeness",
	"object_blueness",
	"object_colorfulness",
}

// Record is one row of the measurement table.
type Record struct {
	Filename     string  `json:"filename" yaml:"filename"`
	Major        float64 `json:"object_major" yaml:"object_major"`
	Minor        float64 `json:"object_minor" yaml:"object_minor"`
	Area         float64 `json:"object_area" yaml:"object_area"`
	Circularity  float64 `json:"object_circularity" yaml:"object_circularity"`
	Perimeter    float64 `json:"object_perimeter" yaml:"object_perimeter"`
	Width        int     `json:"object_width" yaml:"object_width"`
	Height       int     `json:"object_height" yaml:"object_height"`
	Sharpness    float64 `json:"object_sharpness" yaml:"object_sharpness"`
	Saturation   float64 `json:"object_saturation" yaml:"object_saturation"`
	Red          float64 `json:"object_redness" yaml:"object_redness"`
	Green        float64 `json:"object_greeness" yaml:"object_greeness"`
	Blue         float64 `json:"object_blueness" yaml:"object_blueness"`
	Colorfulness float64 `json:"object_colorfulness" yaml:"object_colorfulness"`
}

// NewRecord assembles a Record from the geometry of the dominant object and
// the whole-image color and sharpness metrics.
func NewRecord(filename string, shape detection.Shape, color imaging.ColorStats, sharpness float64) Record {
	return Record{
		Filename:     filename,
		Major:        shape.Ellipse.Major(),
		Minor:        shape.Ellipse.Minor(),
		Area:         shape.Area,
		Circularity:  shape.Circularity,
		Perimeter:    shape.Perimeter,
		Width:        shape.Box.Width,
		Height:       shape.Box.Height,
		Sharpness:    sharpness,
		Saturation:   color.Saturation,
		Red:          color.Red,
		Green:        color.Green,
		Blue:         color.Blue,
		Colorfulness: color.Colorfulness,
	}
}
