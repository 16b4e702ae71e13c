package detection

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

// ErrNoContour is returned by an Analyzer when the mask has no foreground
// region.
var ErrNoContour = errors.New("no contour found")

// ErrBackendUnavailable is returned when a backend was requested that this
// binary was built without.
var ErrBackendUnavailable = errors.New("shape analysis backend not available in this build")

// Backend names a shape analysis implementation.
type Backend string

const (
	// BackendNative is the pure Go implementation in this package.
	BackendNative Backend = "native"

	// BackendOpenCV delegates the fixed strategy's morphology, contour
	// extraction and fitting to OpenCV via gocv. Only available when built
	// with -tags gocv.
	BackendOpenCV Backend = "opencv"
)

// ParseBackend maps a configuration value to a Backend.
func ParseBackend(name string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(name))); b {
	case "", BackendNative:
		return BackendNative, nil
	case BackendOpenCV:
		return BackendOpenCV, nil
	default:
		return "", fmt.Errorf("unknown backend %q (want native or opencv)", name)
	}
}

// Analysis is what an Analyzer extracted from one mask.
type Analysis struct {
	// Contours is the number of external contours found.
	Contours int

	// Largest is the contour with the greatest area, nil when Contours is 0.
	Largest Contour

	// Shape is set only when Analyze returned a nil error.
	Shape Shape
}

// Analyzer finds the dominant object in a binary mask and measures it.
//
// Analyze returns ErrNoContour when the mask is empty and ErrTooFewPoints
// (wrapped) when the largest contour cannot be fitted. In both cases the
// returned Analysis still carries what was found. Implementations must be
// safe for concurrent use.
type Analyzer interface {
	Analyze(mask *image.Gray) (Analysis, error)
	Backend() Backend
}

// segmenterProvider is implemented by analyzers that bring their own
// segmentation for some strategies.
type segmenterProvider interface {
	Segmenter(s Strategy) (SegmentFunc, error)
}

// SegmenterFor returns the segmentation function that goes with a: the
// analyzer's own when it provides one, otherwise s.Segmenter().
func SegmenterFor(a Analyzer, s Strategy) (SegmentFunc, error) {
	if p, ok := a.(segmenterProvider); ok {
		return p.Segmenter(s)
	}
	return s.Segmenter()
}

// NewAnalyzer returns the Analyzer for backend.
func NewAnalyzer(backend Backend, chain ChainApprox) (Analyzer, error) {
	switch backend {
	case BackendNative, "":
		return NativeAnalyzer{Chain: chain}, nil
	case BackendOpenCV:
		return newOpenCVAnalyzer(chain)
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}

// NativeAnalyzer implements Analyzer with FindExternalContours, LargestContour
// and MeasureShape.
type NativeAnalyzer struct {
	Chain ChainApprox
}

// Backend implements Analyzer.
func (NativeAnalyzer) Backend() Backend { return BackendNative }

// Analyze implements Analyzer.
func (a NativeAnalyzer) Analyze(mask *image.Gray) (Analysis, error) {
	contours := FindExternalContours(mask, a.Chain)
	largest, ok := LargestContour(contours)
	if !ok {
		return Analysis{}, ErrNoContour
	}

	result := Analysis{Contours: len(contours), Largest: largest}
	shape, err := MeasureShape(largest)
	if err != nil {
		return result, err
	}
	result.Shape = shape
	return result, nil
}
