package detection

import (
	"errors"
	"fmt"
	"math"
)

// MinEllipsePoints is the minimum contour length accepted by FitEllipse.
const MinEllipsePoints = 5

// ErrTooFewPoints is returned when a contour is too short for an ellipse fit.
var ErrTooFewPoints = errors.New("contour has too few points for an ellipse fit")

// BoundingBox is an axis-aligned rectangle. Width and Height count pixels, so
// a single pixel has a 1x1 box.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Shape holds the geometry measured from one contour.
type Shape struct {
	Ellipse     Ellipse     `json:"ellipse"`
	Area        float64     `json:"area"`
	Perimeter   float64     `json:"perimeter"`
	Circularity float64     `json:"circularity"`
	Box         BoundingBox `json:"bounding_box"`
	Points      int         `json:"points"`
}

// MeasureShape fits an ellipse to c and derives area, perimeter, bounding box
// and circularity.
//
// Returns ErrTooFewPoints (wrapped) when c has fewer than MinEllipsePoints
// points. Circularity is NaN when the perimeter is 0.
func MeasureShape(c Contour) (Shape, error) {
	ellipse, err := FitEllipse(c)
	if err != nil {
		return Shape{}, err
	}

	area := ContourArea(c)
	perimeter := ArcLength(c)
	return Shape{
		Ellipse:     ellipse,
		Area:        area,
		Perimeter:   perimeter,
		Circularity: Circularity(area, perimeter),
		Box:         BoundingRect(c),
		Points:      len(c),
	}, nil
}

// ContourArea returns the absolute polygon area of c (shoelace formula).
//
// The area is that of the polygon through the pixel centers, so a filled
// W x H rectangle of pixels has area (W-1)*(H-1).
func ContourArea(c Contour) float64 {
	n := len(c)
	if n < 3 {
		return 0
	}
	var sum int
	for i := range c {
		j := (i + 1) % n
		sum += c[i].X*c[j].Y - c[j].X*c[i].Y
	}
	return math.Abs(float64(sum)) / 2
}

// ArcLength returns the length of the closed polyline c.
func ArcLength(c Contour) float64 {
	n := len(c)
	if n < 2 {
		return 0
	}
	var length float64
	for i := range c {
		j := (i + 1) % n
		length += math.Hypot(float64(c[j].X-c[i].X), float64(c[j].Y-c[i].Y))
	}
	return length
}

// BoundingRect returns the smallest axis-aligned box containing every point.
func BoundingRect(c Contour) BoundingBox {
	if len(c) == 0 {
		return BoundingBox{}
	}
	minX, minY := c[0].X, c[0].Y
	maxX, maxY := minX, minY
	for _, p := range c[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return BoundingBox{X: minX, Y: minY, Width: maxX - minX + 1, Height: maxY - minY + 1}
}

// Circularity returns 4π·area/perimeter², 1 for a circle and smaller for
// elongated or ragged shapes. A zero perimeter returns NaN.
func Circularity(area, perimeter float64) float64 {
	if perimeter == 0 {
		return math.NaN()
	}
	return 4 * math.Pi * area / (perimeter * perimeter)
}

func tooFewPoints(n int) error {
	return fmt.Errorf("%w: got %d, need %d", ErrTooFewPoints, n, MinEllipsePoints)
}
