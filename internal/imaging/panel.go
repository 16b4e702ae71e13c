package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Panel layout constants.
const (
	panelGap      = 8
	panelLabelPad = 4

	// headerLine is the vertical step between title rows.
	headerLine = 13 + panelLabelPad
)

// PanelHeaderHeight is the height of the title band TitlePanel adds.
const PanelHeaderHeight = panelLabelPad + 2*headerLine

// Colors used when drawing diagnostics.
var (
	ContourColor    = color.NRGBA{R: 0, G: 255, B: 0, A: 255}
	panelBackground = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	labelForeground = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	labelBackground = color.NRGBA{R: 0, G: 0, B: 0, A: 180}
)

// ComposePanel places left and right next to each other on a white canvas.
//
// The right image is scaled with nearest-neighbour sampling to the height of
// the left one when they differ, so binary masks stay binary. An 8 pixel gap
// separates the two halves.
func ComposePanel(left, right image.Image) *image.NRGBA {
	lb := left.Bounds()
	rb := right.Bounds()
	if rb.Dy() != lb.Dy() && rb.Dy() > 0 {
		right = imaging.Resize(right, 0, lb.Dy(), imaging.NearestNeighbor)
		rb = right.Bounds()
	}

	height := lb.Dy()
	if rb.Dy() > height {
		height = rb.Dy()
	}

	canvas := imaging.New(lb.Dx()+panelGap+rb.Dx(), height, panelBackground)
	canvas = imaging.Paste(canvas, left, image.Pt(0, 0))
	canvas = imaging.Paste(canvas, right, image.Pt(lb.Dx()+panelGap, 0))
	return canvas
}

// DrawContour returns a copy of img with the closed polyline pts drawn on it.
//
// Parameters:
//   - img: Source image. It is not modified.
//   - pts: Polyline vertices in img coordinates. The last vertex connects back
//     to the first. A single point draws a dot.
//   - c: Stroke color.
//   - thickness: Stroke width in pixels; values below 1 are treated as 1.
func DrawContour(img image.Image, pts []image.Point, c color.NRGBA, thickness int) *image.NRGBA {
	dst := imaging.Clone(img)
	if len(pts) == 0 {
		return dst
	}
	if thickness < 1 {
		thickness = 1
	}

	for i := range pts {
		next := pts[(i+1)%len(pts)]
		drawLine(dst, pts[i], next, c, thickness)
	}
	return dst
}

// drawLine rasterizes a segment with Bresenham's algorithm and a square brush.
func drawLine(dst *image.NRGBA, a, b image.Point, c color.NRGBA, thickness int) {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	err := dx + dy

	x, y := a.X, a.Y
	for {
		stamp(dst, x, y, c, thickness)
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func stamp(dst *image.NRGBA, x, y int, c color.NRGBA, size int) {
	off := (size - 1) / 2
	bounds := dst.Bounds()
	for py := y - off; py < y-off+size; py++ {
		for px := x - off; px < x-off+size; px++ {
			if image.Pt(px, py).In(bounds) {
				dst.SetNRGBA(px, py, c)
			}
		}
	}
}

// DrawLabel draws text with its top-left corner at (x, y) on img, over a
// translucent backing box. It uses the 7x13 basic font; pixels outside img
// are skipped.
func DrawLabel(img *image.NRGBA, x, y int, text string) {
	if text == "" {
		return
	}
	face := basicfont.Face7x13
	metrics := face.Metrics()
	labelWidth := font.MeasureString(face, text).Ceil()
	labelHeight := metrics.Height.Ceil()

	bounds := img.Bounds()
	for dy := -1; dy <= labelHeight; dy++ {
		for dx := -1; dx <= labelWidth; dx++ {
			px, py := x+dx, y+dy
			if image.Pt(px, py).In(bounds) {
				blend(img, px, py, labelBackground)
			}
		}
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelForeground),
		Face: face,
		Dot:  fixed.P(x, y+metrics.Ascent.Ceil()),
	}
	d.DrawString(text)
}

// TitlePanel returns panel below a white title band. The first row carries
// title; the second carries leftTitle over the left half and rightTitle over
// the right half, which starts leftWidth+8 pixels in. rightTitle moves right
// when leftTitle is wider than the left half, and the canvas widens so no
// title is cut off.
func TitlePanel(panel *image.NRGBA, leftWidth int, title, leftTitle, rightTitle string) *image.NRGBA {
	rightX := max(leftWidth+panelGap, panelLabelPad+textWidth(leftTitle)+panelGap) + panelLabelPad
	width := max(
		panel.Bounds().Dx(),
		panelLabelPad+textWidth(title)+panelLabelPad,
		rightX+textWidth(rightTitle)+panelLabelPad,
	)

	canvas := imaging.New(width, PanelHeaderHeight+panel.Bounds().Dy(), panelBackground)
	canvas = imaging.Paste(canvas, panel, image.Pt(0, PanelHeaderHeight))
	DrawLabel(canvas, panelLabelPad, panelLabelPad, title)
	DrawLabel(canvas, panelLabelPad, panelLabelPad+headerLine, leftTitle)
	DrawLabel(canvas, rightX, panelLabelPad+headerLine, rightTitle)
	return canvas
}

func textWidth(text string) int {
	return font.MeasureString(basicfont.Face7x13, text).Ceil()
}

// blend composites c over the pixel at (x, y).
func blend(img *image.NRGBA, x, y int, c color.NRGBA) {
	under := img.NRGBAAt(x, y)
	a := uint32(c.A)
	mix := func(top, bottom uint8) uint8 {
		return uint8((uint32(top)*a + uint32(bottom)*(255-a)) / 255)
	}
	img.SetNRGBA(x, y, color.NRGBA{
		R: mix(c.R, under.R),
		G: mix(c.G, under.G),
		B: mix(c.B, under.B),
		A: 255,
	})
}

// LabelOrigin returns where DrawLabel should start to sit inside the top-left
// corner of the right half of a panel built from a left image of leftWidth.
func LabelOrigin(leftWidth int) image.Point {
	return image.Pt(leftWidth+panelGap+panelLabelPad, panelLabelPad)
}

// EncodePNG encodes img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodePNGBase64 encodes img as base64 PNG for transport in JSON.
func EncodePNGBase64(img image.Image) (string, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
