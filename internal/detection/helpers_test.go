package detection

import "image"

// newGray creates a w x h grayscale image filled with v.
func newGray(w, h int, v uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

// fillRect sets the pixels in [x0, x1) x [y0, y1) to v.
func fillRect(g *image.Gray, x0, y0, x1, y1 int, v uint8) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			g.Pix[y*g.Stride+x] = v
		}
	}
}

// fillDisk sets every pixel within radius r of (cx, cy) to v.
func fillDisk(g *image.Gray, cx, cy, r int, v uint8) {
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r && image.Pt(x, y).In(g.Rect) {
				g.Pix[y*g.Stride+x] = v
			}
		}
	}
}

// foregroundBox returns the bounding box of nonzero pixels, or false when
// there are none.
func foregroundBox(g *image.Gray) (BoundingBox, bool) {
	var pts Contour
	w, h := g.Rect.Dx(), g.Rect.Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if g.Pix[y*g.Stride+x] != 0 {
				pts = append(pts, image.Pt(x, y))
			}
		}
	}
	if len(pts) == 0 {
		return BoundingBox{}, false
	}
	return BoundingRect(pts), true
}

func countForeground(g *image.Gray) int {
	n := 0
	for _, v := range g.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// signedArea is the shoelace sum without the absolute value. It is positive
// for contours running clockwise in image coordinates.
func signedArea(c Contour) float64 {
	var sum int
	for i := range c {
		j := (i + 1) % len(c)
		sum += c[i].X*c[j].Y - c[j].X*c[i].Y
	}
	return float64(sum) / 2
}
