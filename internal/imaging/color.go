package imaging

import (
	"image"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/stat"
)

// colorfulnessMeanWeight weights the mean term of the Hasler–Süsstrunk metric.
const colorfulnessMeanWeight = 0.3

// ColorStats summarizes the color content of an image.
//
// All values are on the 8-bit scale (0-255) except Colorfulness, which is
// unbounded but typically 0-150 for natural images.
type ColorStats struct {
	Red        float64 `json:"red"`        // Mean red sample
	Green      float64 `json:"green"`      // Mean green sample
	Blue       float64 `json:"blue"`       // Mean blue sample
	Gray       float64 `json:"gray"`       // Mean BT.601 luminance
	Saturation float64 `json:"saturation"` // Mean HSV saturation, 0-255
	// Colorfulness is the Hasler–Süsstrunk perceptual colorfulness score.
	Colorfulness float64 `json:"colorfulness"`
}

// MeasureColor computes channel means, mean saturation and colorfulness.
//
// Parameters:
//   - img: Opaque color buffer, as returned by Load.
//   - gray: Luminance of img, as returned by ToGray. If nil it is computed.
//
// # Saturation
//
// Each pixel is converted to HSV with go-colorful. Saturation is
// (max-min)/max, scaled to 0-255 and rounded per pixel the way an 8-bit HSV
// image stores it; black pixels have saturation 0. The result is the mean.
//
// # Colorfulness
//
// Following Hasler and Süsstrunk (2003):
//
//	rg = |R - G|
//	yb = |0.5*(R + G) - B|
//	colorfulness = sqrt(std(rg)² + std(yb)²) + 0.3*sqrt(mean(rg)² + mean(yb)²)
//
// Standard deviations are population deviations. A pure gray image
// (R = G = B everywhere) scores exactly 0.
func MeasureColor(img *image.NRGBA, gray *image.Gray) ColorStats {
	if gray == nil {
		gray = ToGray(img)
	}

	w, h := img.Rect.Dx(), img.Rect.Dy()
	n := w * h
	if n == 0 {
		return ColorStats{}
	}

	rs := make([]float64, 0, n)
	gs := make([]float64, 0, n)
	bs := make([]float64, 0, n)
	sats := make([]float64, 0, n)
	rg := make([]float64, 0, n)
	yb := make([]float64, 0, n)

	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			r := float64(row[x*4])
			g := float64(row[x*4+1])
			b := float64(row[x*4+2])

			rs = append(rs, r)
			gs = append(gs, g)
			bs = append(bs, b)

			_, s, _ := colorful.Color{R: r / 255, G: g / 255, B: b / 255}.Hsv()
			sats = append(sats, math.Round(s*255))

			rg = append(rg, math.Abs(r-g))
			yb = append(yb, math.Abs(0.5*(r+g)-b))
		}
	}

	return ColorStats{
		Red:          stat.Mean(rs, nil),
		Green:        stat.Mean(gs, nil),
		Blue:         stat.Mean(bs, nil),
		Gray:         GrayMean(gray),
		Saturation:   stat.Mean(sats, nil),
		Colorfulness: colorfulness(rg, yb),
	}
}

func colorfulness(rg, yb []float64) float64 {
	rgMean, rgStd := stat.PopMeanStdDev(rg, nil)
	ybMean, ybStd := stat.PopMeanStdDev(yb, nil)

	stdRoot := math.Sqrt(rgStd*rgStd + ybStd*ybStd)
	meanRoot := math.Sqrt(rgMean*rgMean + ybMean*ybMean)
	return stdRoot + colorfulnessMeanWeight*meanRoot
}
