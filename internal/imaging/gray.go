package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/effect"
	"gonum.org/v1/gonum/stat"
)

// ITU-R BT.601 luma weights.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// ToGray converts a color image to 8-bit luminance using BT.601 weights
// (0.299*R + 0.587*G + 0.114*B, rounded half up). The result has its origin
// at (0,0).
func ToGray(img image.Image) *image.Gray {
	// bild writes the luminance into all three channels of an RGBA buffer.
	rgba := effect.GrayscaleWithWeights(img, lumaR, lumaG, lumaB)
	w, h := rgba.Rect.Dx(), rgba.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := rgba.Pix[y*rgba.Stride : y*rgba.Stride+w*4]
		dst := out.Pix[y*out.Stride : y*out.Stride+w]
		for x := range dst {
			dst[x] = src[x*4]
		}
	}
	return out
}

// GrayMean returns the mean sample value of a grayscale buffer, 0 for an empty one.
func GrayMean(g *image.Gray) float64 {
	samples := graySamples(g)
	if len(samples) == 0 {
		return 0
	}
	return stat.Mean(samples, nil)
}

// graySamples copies the samples of g into a row-major float64 slice.
func graySamples(g *image.Gray) []float64 {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := make([]float64, 0, w*h)
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		for _, v := range row {
			out = append(out, float64(v))
		}
	}
	return out
}
