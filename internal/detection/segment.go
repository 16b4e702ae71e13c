package detection

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/ironsheep/object-metrics/internal/imaging"
)

// Fixed strategy parameters. These were calibrated against manual
// measurements and must stay as they are.
const (
	// FixedThreshold is the 8-bit cutoff; gray values above it are foreground.
	FixedThreshold = 15

	openKernel     = 5
	openIterations = 2

	shrinkKernel     = 3
	shrinkIterations = 4
)

// Mask sample values.
const (
	Background uint8 = 0
	Foreground uint8 = 255
)

// ErrUnknownStrategy is returned for a strategy name or value that is not
// one of the supported variants.
var ErrUnknownStrategy = errors.New("unknown thresholding strategy")

// Strategy selects how a grayscale image is turned into a binary mask.
type Strategy int

const (
	// AdaptiveMean stretches contrast (2nd to 98th percentile) and keeps pixels
	// brighter than the mean of the stretched image. No morphology.
	AdaptiveMean Strategy = iota

	// Fixed keeps pixels brighter than FixedThreshold, opens the mask with a
	// 5x5 rectangle twice and then erodes it with a 3x3 rectangle four times.
	Fixed
)

// ParseStrategy maps a configuration value to a Strategy.
//
// Accepted names (case-insensitive): "mean" or "adaptive-mean" for
// AdaptiveMean, "fixed" or "original" for Fixed.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mean", "adaptive-mean":
		return AdaptiveMean, nil
	case "fixed", "original":
		return Fixed, nil
	default:
		return 0, fmt.Errorf("%w: %q (want fixed or mean)", ErrUnknownStrategy, name)
	}
}

// String returns the short name, also used as the diagnostics directory name.
func (s Strategy) String() string {
	switch s {
	case AdaptiveMean:
		return "mean"
	case Fixed:
		return "fixed"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// Title is the human readable heading used on diagnostic panels.
func (s Strategy) Title() string {
	switch s {
	case AdaptiveMean:
		return "Adaptive threshold (mean)"
	case Fixed:
		return "Original threshold (fixed)"
	default:
		return s.String()
	}
}

// Segmentation is the result of applying a strategy.
type Segmentation struct {
	// Threshold is the raw binary image before any morphological cleanup.
	Threshold *image.Gray

	// Mask is the cleaned mask that contours are extracted from. For
	// AdaptiveMean it is the same buffer as Threshold.
	Mask *image.Gray
}

// SegmentFunc turns a grayscale image into a Segmentation. Implementations
// are pure and safe for concurrent use.
type SegmentFunc func(gray *image.Gray) Segmentation

// Segmenter returns the function implementing s.
func (s Strategy) Segmenter() (SegmentFunc, error) {
	switch s {
	case AdaptiveMean:
		return SegmentAdaptiveMean, nil
	case Fixed:
		return SegmentFixed, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, int(s))
	}
}

// SegmentFixed implements the Fixed strategy.
func SegmentFixed(gray *image.Gray) Segmentation {
	thresh := Binarize(gray, FixedThreshold)
	mask := Open(thresh, openKernel, openIterations)
	mask = Erode(mask, shrinkKernel, shrinkIterations)
	return Segmentation{Threshold: thresh, Mask: mask}
}

// SegmentAdaptiveMean implements the AdaptiveMean strategy.
func SegmentAdaptiveMean(gray *image.Gray) Segmentation {
	stretched := imaging.StretchContrast(gray, imaging.DefaultLowPercentile, imaging.DefaultHighPercentile)
	mean := imaging.GrayMean(stretched)

	w, h := stretched.Rect.Dx(), stretched.Rect.Dy()
	mask := image.NewGray(image.Rect(0, 0, w, h))
	for i, v := range stretched.Pix[:w*h] {
		if float64(v) > mean {
			mask.Pix[i] = Foreground
		}
	}
	return Segmentation{Threshold: mask, Mask: mask}
}

// Binarize marks pixels strictly brighter than cutoff as Foreground.
func Binarize(gray *image.Gray, cutoff uint8) *image.Gray {
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := gray.Pix[y*gray.Stride : y*gray.Stride+w]
		dst := out.Pix[y*w : y*w+w]
		for x, v := range src {
			if v > cutoff {
				dst[x] = Foreground
			}
		}
	}
	return out
}
