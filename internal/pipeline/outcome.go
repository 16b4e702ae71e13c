package pipeline

import (
	"fmt"

	"github.com/ironsheep/object-metrics/internal/detection"
)

// Kind names an Outcome variant. The values appear in logs and the manifest.
type Kind string

const (
	KindMeasured     Kind = "measured"
	KindNoContour    Kind = "no_contour"
	KindTooSmall     Kind = "too_small"
	KindDecodeFailed Kind = "decode_failed"
)

// Kinds lists every Kind in a fixed order.
var Kinds = []Kind{KindMeasured, KindNoContour, KindTooSmall, KindDecodeFailed}

// Outcome is the terminal state of measuring one image. It is one of
// Measured, NoContour, TooSmall or DecodeFailed; callers switch on the
// concrete type.
type Outcome interface {
	// Path is the file the outcome belongs to.
	Path() string
	Kind() Kind
	outcome()
}

// Measured carries the record of a successfully measured image.
type Measured struct {
	Source string
	Record Record
	Shape  detection.Shape
}

// NoContour means the mask had no foreground region.
type NoContour struct {
	Source string
}

// TooSmall means the largest contour had fewer than
// detection.MinEllipsePoints points.
type TooSmall struct {
	Source string
	Points int
}

// DecodeFailed means the file could not be read as an image.
type DecodeFailed struct {
	Source string
	Err    error
}

func (o Measured) Path() string     { return o.Source }
func (o NoContour) Path() string    { return o.Source }
func (o TooSmall) Path() string     { return o.Source }
func (o DecodeFailed) Path() string { return o.Source }

func (Measured) Kind() Kind     { return KindMeasured }
func (NoContour) Kind() Kind    { return KindNoContour }
func (TooSmall) Kind() Kind     { return KindTooSmall }
func (DecodeFailed) Kind() Kind { return KindDecodeFailed }

func (Measured) outcome()     {}
func (NoContour) outcome()    {}
func (TooSmall) outcome()     {}
func (DecodeFailed) outcome() {}

// Reason describes why an image produced no record. It is empty for Measured.
func Reason(o Outcome) string {
	switch v := o.(type) {
	case NoContour:
		return "no contour was found"
	case TooSmall:
		return fmt.Sprintf("contour has %d points, an ellipse fit needs %d", v.Points, detection.MinEllipsePoints)
	case DecodeFailed:
		if v.Err != nil {
			return v.Err.Error()
		}
		return "decode failed"
	default:
		return ""
	}
}
