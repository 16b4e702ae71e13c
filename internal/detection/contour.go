package detection

import (
	"fmt"
	"image"
	"strings"
)

// Contour is a closed boundary polyline in image coordinates. Points run
// clockwise (with Y pointing down) starting at the top-most, left-most pixel
// of the region. The last point connects back to the first.
type Contour []image.Point

// ChainApprox controls how many boundary pixels a traced contour keeps.
type ChainApprox int

const (
	// ChainNone keeps every boundary pixel.
	ChainNone ChainApprox = iota

	// ChainSimple keeps only the pixels where the boundary changes direction,
	// so a straight run is reduced to its two end points.
	ChainSimple
)

// ParseChainApprox maps "none" or "simple" to a ChainApprox.
func ParseChainApprox(name string) (ChainApprox, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none", "":
		return ChainNone, nil
	case "simple":
		return ChainSimple, nil
	default:
		return 0, fmt.Errorf("unknown chain approximation %q (want none or simple)", name)
	}
}

func (c ChainApprox) String() string {
	if c == ChainSimple {
		return "simple"
	}
	return "none"
}

// Moore neighbourhood, clockwise from east in image coordinates.
var neighbours = [8]image.Point{
	{1, 0},   // 0 E
	{1, 1},   // 1 SE
	{0, 1},   // 2 S
	{-1, 1},  // 3 SW
	{-1, 0},  // 4 W
	{-1, -1}, // 5 NW
	{0, -1},  // 6 N
	{1, -1},  // 7 NE
}

// FindExternalContours returns the outer boundary of every 8-connected
// foreground region of mask that is not enclosed by another region.
//
// Any nonzero sample is foreground. Holes are ignored, and so are regions
// sitting inside a hole of another region. Contours are returned in raster
// order of their starting pixel. An empty mask yields an empty slice.
//
// # Algorithm
//
//  1. Flood the background 4-connected from outside the image. Background
//     that this flood does not reach is a hole.
//  2. Label 8-connected foreground regions with an iterative flood fill.
//     A region is external when one of its pixels touches the outside
//     background (or the image border) through a 4-neighbour.
//  3. Trace each external region with Moore-neighbour tracing and Jacob's
//     stopping criterion, starting from its first pixel in raster order.
//  4. Optionally compress straight runs (ChainSimple).
func FindExternalContours(mask *image.Gray, approx ChainApprox) []Contour {
	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	fg := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x, v := range mask.Pix[y*mask.Stride : y*mask.Stride+w] {
			fg[y*w+x] = v != 0
		}
	}

	outside := floodOutside(fg, w, h)
	isOutside := func(x, y int) bool {
		if x < 0 || y < 0 || x >= w || y >= h {
			return true
		}
		return outside[y*w+x]
	}

	visited := make([]bool, w*h)
	contours := make([]Contour, 0)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if !fg[i] || visited[i] {
				continue
			}

			external := false
			stack := []image.Point{{x, y}}
			visited[i] = true
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]

				if !external && (isOutside(p.X+1, p.Y) || isOutside(p.X-1, p.Y) ||
					isOutside(p.X, p.Y+1) || isOutside(p.X, p.Y-1)) {
					external = true
				}

				for _, d := range neighbours {
					nx, ny := p.X+d.X, p.Y+d.Y
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					j := ny*w + nx
					if fg[j] && !visited[j] {
						visited[j] = true
						stack = append(stack, image.Point{nx, ny})
					}
				}
			}

			if !external {
				continue
			}

			c := traceBoundary(fg, w, h, image.Point{x, y})
			if approx == ChainSimple {
				c = compressChain(c)
			}
			contours = append(contours, c)
		}
	}

	return contours
}

// floodOutside marks background pixels 4-connected to the image frame.
func floodOutside(fg []bool, w, h int) []bool {
	outside := make([]bool, w*h)
	stack := make([]image.Point, 0, 2*(w+h))

	push := func(x, y int) {
		i := y*w + x
		if !fg[i] && !outside[i] {
			outside[i] = true
			stack = append(stack, image.Point{x, y})
		}
	}

	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.X > 0 {
			push(p.X-1, p.Y)
		}
		if p.X < w-1 {
			push(p.X+1, p.Y)
		}
		if p.Y > 0 {
			push(p.X, p.Y-1)
		}
		if p.Y < h-1 {
			push(p.X, p.Y+1)
		}
	}
	return outside
}

// traceBoundary follows the outer border of the region containing start,
// which must be the region's first pixel in raster order.
func traceBoundary(fg []bool, w, h int, start image.Point) Contour {
	at := func(p image.Point) bool {
		return p.X >= 0 && p.Y >= 0 && p.X < w && p.Y < h && fg[p.Y*w+p.X]
	}

	// search returns the first foreground direction clockwise from dir.
	search := func(p image.Point, dir int) (int, bool) {
		for k := 0; k < 8; k++ {
			d := (dir + k) % 8
			if at(p.Add(neighbours[d])) {
				return d, true
			}
		}
		return 0, false
	}

	// Everything west of and above start is background, so the search can
	// begin north-west.
	first, ok := search(start, 5)
	if !ok {
		return Contour{start}
	}

	contour := Contour{start}
	cur, dir := start, first
	limit := 4*w*h + 8

	for step := 0; step < limit; step++ {
		cur = cur.Add(neighbours[dir])
		next, _ := search(cur, backtrack(dir))
		if cur == start && next == first {
			break
		}
		contour = append(contour, cur)
		dir = next
	}
	return contour
}

// backtrack gives the direction to resume the clockwise search from after
// arriving through dir. It points at the last background pixel checked.
func backtrack(dir int) int {
	if dir%2 == 0 {
		return (dir + 7) % 8
	}
	return (dir + 6) % 8
}

// compressChain drops points that lie in the middle of a straight run.
func compressChain(c Contour) Contour {
	n := len(c)
	if n < 3 {
		return c
	}
	out := make(Contour, 0, n)
	for i := range c {
		prev := c[(i+n-1)%n]
		next := c[(i+1)%n]
		if c[i].Sub(prev) != next.Sub(c[i]) {
			out = append(out, c[i])
		}
	}
	return out
}

// LargestContour returns the contour with the greatest enclosed area. Ties
// keep the earliest one. It returns false when contours is empty.
func LargestContour(contours []Contour) (Contour, bool) {
	if len(contours) == 0 {
		return nil, false
	}
	best, bestArea := 0, ContourArea(contours[0])
	for i := 1; i < len(contours); i++ {
		if a := ContourArea(contours[i]); a > bestArea {
			best, bestArea = i, a
		}
	}
	return contours[best], true
}
