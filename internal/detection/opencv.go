//go:build gocv

package detection

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// OpenCVAnalyzer implements Analyzer with OpenCV's findContours, contourArea,
// arcLength, boundingRect and fitEllipse, and segments the Fixed strategy
// with morphologyEx and erode. It is used to cross-check the native
// implementation.
type OpenCVAnalyzer struct {
	Chain ChainApprox
}

func newOpenCVAnalyzer(chain ChainApprox) (Analyzer, error) {
	return OpenCVAnalyzer{Chain: chain}, nil
}

// Backend implements Analyzer.
func (OpenCVAnalyzer) Backend() Backend { return BackendOpenCV }

// Analyze implements Analyzer.
func (a OpenCVAnalyzer) Analyze(mask *image.Gray) (Analysis, error) {
	src := cloneGray(mask)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if w == 0 || h == 0 {
		return Analysis{}, ErrNoContour
	}

	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, src.Pix)
	if err != nil {
		return Analysis{}, fmt.Errorf("failed to wrap mask: %w", err)
	}
	defer mat.Close()

	method := gocv.ChainApproxNone
	if a.Chain == ChainSimple {
		method = gocv.ChainApproxSimple
	}

	contours := gocv.FindContours(mat, gocv.RetrievalExternal, method)
	defer contours.Close()

	if contours.Size() == 0 {
		return Analysis{}, ErrNoContour
	}

	best, bestArea := 0, gocv.ContourArea(contours.At(0))
	for i := 1; i < contours.Size(); i++ {
		if area := gocv.ContourArea(contours.At(i)); area > bestArea {
			best, bestArea = i, area
		}
	}

	pv := contours.At(best)
	result := Analysis{
		Contours: contours.Size(),
		Largest:  Contour(pv.ToPoints()),
	}
	if pv.Size() < MinEllipsePoints {
		return result, tooFewPoints(pv.Size())
	}

	rr := gocv.FitEllipse(pv)
	rect := gocv.BoundingRect(pv)
	perimeter := gocv.ArcLength(pv, true)

	result.Shape = Shape{
		Ellipse: Ellipse{
			CenterX: float64(rr.Center.X),
			CenterY: float64(rr.Center.Y),
			Axes:    [2]float64{float64(rr.Width), float64(rr.Height)},
			Angle:   rr.Angle,
		},
		Area:        bestArea,
		Perimeter:   perimeter,
		Circularity: Circularity(bestArea, perimeter),
		Box: BoundingBox{
			X:      rect.Min.X,
			Y:      rect.Min.Y,
			Width:  rect.Dx(),
			Height: rect.Dy(),
		},
		Points: pv.Size(),
	}
	return result, nil
}

// Segmenter returns the OpenCV morphology for Fixed and the native function
// for every other strategy.
func (OpenCVAnalyzer) Segmenter(s Strategy) (SegmentFunc, error) {
	if s == Fixed {
		return segmentFixedOpenCV, nil
	}
	return s.Segmenter()
}

// segmentFixedOpenCV is SegmentFixed on OpenCV. The constant border keeps
// OpenCV's default morphology border value, so pixels outside the image are
// ignored as in the native version.
func segmentFixedOpenCV(gray *image.Gray) Segmentation {
	thresh := Binarize(gray, FixedThreshold)
	w, h := thresh.Rect.Dx(), thresh.Rect.Dy()
	if w == 0 || h == 0 {
		return Segmentation{Threshold: thresh, Mask: cloneGray(thresh)}
	}

	src, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, thresh.Pix)
	if err != nil {
		return SegmentFixed(gray)
	}
	defer src.Close()

	openK := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(openKernel, openKernel))
	defer openK.Close()
	shrinkK := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(shrinkKernel, shrinkKernel))
	defer shrinkK.Close()

	opened := gocv.NewMat()
	defer opened.Close()
	gocv.MorphologyExWithParams(src, &opened, gocv.MorphOpen, openK, openIterations, gocv.BorderConstant)

	cur := opened.Clone()
	for i := 0; i < shrinkIterations; i++ {
		next := gocv.NewMat()
		gocv.Erode(cur, &next, shrinkK)
		cur.Close()
		cur = next
	}
	defer cur.Close()

	mask := image.NewGray(image.Rect(0, 0, w, h))
	copy(mask.Pix, cur.ToBytes())
	return Segmentation{Threshold: thresh, Mask: mask}
}
