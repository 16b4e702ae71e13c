package imaging

import (
	"image"

	"gonum.org/v1/gonum/stat"
)

// Sharpness returns the variance of the Laplacian of g, a focus measure.
//
// Higher values mean more high-frequency energy and therefore a sharper image.
// A constant image scores 0.
//
// # Algorithm
//
//  1. Convolve with the 4-neighbour Laplacian kernel
//
//     0  1  0
//     1 -4  1
//     0  1  0
//
//     Border pixels read mirrored neighbours without repeating the edge sample
//     (reflect-101: index -1 reads 1, index n reads n-2).
//
//  2. Return the population variance of the filtered samples.
func Sharpness(g *image.Gray) float64 {
	lap := Laplacian(g)
	if len(lap) == 0 {
		return 0
	}
	return stat.PopVariance(lap, nil)
}

// Laplacian returns the row-major second-derivative response of g.
func Laplacian(g *image.Gray) []float64 {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	at := func(x, y int) float64 {
		return float64(g.Pix[reflect101(y, h)*g.Stride+reflect101(x, w)])
	}

	out := make([]float64, 0, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out = append(out, at(x, y-1)+at(x-1, y)-4*at(x, y)+at(x+1, y)+at(x, y+1))
		}
	}
	return out
}

// reflect101 mirrors an out-of-range index back into [0, n) without
// duplicating the border sample.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}
