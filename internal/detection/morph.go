package detection

import (
	"image"

	"github.com/anthonynsimon/bild/effect"
)

// Erode applies a k x k minimum filter to a binary mask, iterations times.
//
// k should be odd; the kernel anchor is its center. Pixels outside the image
// repeat the nearest edge pixel, which for a minimum filter is the same as
// ignoring them: an object touching the border does not shrink from that
// side.
func Erode(mask *image.Gray, k, iterations int) *image.Gray {
	return morph(mask, k, iterations, effect.Erode)
}

// Dilate applies a k x k maximum filter to a binary mask, iterations times.
// Pixels outside the image are ignored.
func Dilate(mask *image.Gray, k, iterations int) *image.Gray {
	return morph(mask, k, iterations, effect.Dilate)
}

// Open performs a morphological opening with a k x k rectangle: iterations
// erosions followed by iterations dilations.
func Open(mask *image.Gray, k, iterations int) *image.Gray {
	return Dilate(Erode(mask, k, iterations), k, iterations)
}

// morph runs filter with radius k/2 and converts the RGBA result back to a
// mask. A mask is gray, so the red channel carries the value.
func morph(mask *image.Gray, k, iterations int, filter func(image.Image, float64) *image.RGBA) *image.Gray {
	out := cloneGray(mask)
	if iterations < 1 || k < 2 {
		return out
	}

	radius := float64(k / 2)
	var cur image.Image = out
	for it := 0; it < iterations; it++ {
		cur = filter(cur, radius)
	}

	rgba := cur.(*image.RGBA)
	w, h := out.Rect.Dx(), out.Rect.Dy()
	for y := 0; y < h; y++ {
		src := rgba.Pix[y*rgba.Stride : y*rgba.Stride+4*w]
		dst := out.Pix[y*out.Stride : y*out.Stride+w]
		for x := range dst {
			dst[x] = src[4*x]
		}
	}
	return out
}

// cloneGray copies g into a new buffer with its origin at (0,0).
func cloneGray(g *image.Gray) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+w], g.Pix[y*g.Stride:y*g.Stride+w])
	}
	return out
}
