package imaging

import (
	"image"
	"math"
	"sort"
)

// Default percentile pair used by the adaptive segmentation path.
const (
	DefaultLowPercentile  = 2.0
	DefaultHighPercentile = 98.0
)

// FloatGray is a grayscale buffer with float64 samples in [0,1].
type FloatGray struct {
	Width  int
	Height int
	Pix    []float64 // row-major, len = Width*Height
}

// NewFloatGray allocates a zeroed buffer.
func NewFloatGray(width, height int) FloatGray {
	return FloatGray{Width: width, Height: height, Pix: make([]float64, width*height)}
}

// At returns the sample at (x, y).
func (f FloatGray) At(x, y int) float64 {
	return f.Pix[y*f.Width+x]
}

// GrayToFloat rescales an 8-bit buffer into [0,1].
func GrayToFloat(g *image.Gray) FloatGray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := NewFloatGray(w, h)
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		for x, v := range row {
			out.Pix[y*w+x] = float64(v) / 255.0
		}
	}
	return out
}

// StretchContrast rescales intensities so the pLow-th percentile maps to 0 and
// the pUp-th percentile maps to 255.
//
// Parameters:
//   - g: Source grayscale buffer. It is not modified.
//   - pLow, pUp: Percentiles in [0,100] with pLow < pUp. Typical: 2 and 98.
//
// Returns a new buffer with origin (0,0). Samples below the low percentile
// clip to 0 and samples above the high percentile clip to 255. Scaled values
// are truncated toward zero.
//
// # Flat Images
//
// When both percentiles have the same value (a flat or nearly flat image)
// there is no range to stretch; the result is a buffer of zeros.
func StretchContrast(g *image.Gray, pLow, pUp float64) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))

	hist, n := grayHistogram(g)
	if n == 0 {
		return out
	}
	lo := histPercentile(&hist, n, pLow)
	hi := histPercentile(&hist, n, pUp)
	if hi <= lo {
		return out
	}

	span := hi - lo
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		dst := out.Pix[y*out.Stride : y*out.Stride+w]
		for x, v := range row {
			f := math.Min(math.Max(float64(v), lo), hi)
			dst[x] = uint8((f - lo) * 255 / span)
		}
	}
	return out
}

// StretchContrastFloat is StretchContrast for float buffers. Output samples lie
// in [0,1]; a flat buffer maps to all zeros.
func StretchContrastFloat(f FloatGray, pLow, pUp float64) FloatGray {
	out := NewFloatGray(f.Width, f.Height)
	if len(f.Pix) == 0 {
		return out
	}

	sorted := make([]float64, len(f.Pix))
	copy(sorted, f.Pix)
	sort.Float64s(sorted)
	lo := sortedPercentile(sorted, pLow)
	hi := sortedPercentile(sorted, pUp)
	if hi <= lo {
		return out
	}

	span := hi - lo
	for i, v := range f.Pix {
		c := math.Min(math.Max(v, lo), hi)
		out.Pix[i] = (c - lo) / span
	}
	return out
}

// Percentile returns the p-th percentile of the samples in g.
func Percentile(g *image.Gray, p float64) float64 {
	hist, n := grayHistogram(g)
	if n == 0 {
		return 0
	}
	return histPercentile(&hist, n, p)
}

func grayHistogram(g *image.Gray) ([256]int, int) {
	var hist [256]int
	w, h := g.Rect.Dx(), g.Rect.Dy()
	for y := 0; y < h; y++ {
		for _, v := range g.Pix[y*g.Stride : y*g.Stride+w] {
			hist[v]++
		}
	}
	return hist, w * h
}

// histPercentile interpolates between the order statistics at floor(rank)
// and floor(rank)+1, rank = p/100*(n-1).
func histPercentile(hist *[256]int, n int, p float64) float64 {
	rank := clampPercent(p) / 100 * float64(n-1)
	k := int(math.Floor(rank))
	frac := rank - float64(k)

	lo := histKth(hist, k)
	if frac == 0 || k+1 >= n {
		return lo
	}
	hi := histKth(hist, k+1)
	return lo + frac*(hi-lo)
}

// histKth returns the k-th smallest sample (0-based).
func histKth(hist *[256]int, k int) float64 {
	cum := 0
	for v, c := range hist {
		cum += c
		if cum > k {
			return float64(v)
		}
	}
	return 255
}

func sortedPercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	rank := clampPercent(p) / 100 * float64(n-1)
	k := int(math.Floor(rank))
	frac := rank - float64(k)
	if frac == 0 || k+1 >= n {
		return sorted[k]
	}
	return sorted[k] + frac*(sorted[k+1]-sorted[k])
}

func clampPercent(p float64) float64 {
	return math.Min(math.Max(p, 0), 100)
}
