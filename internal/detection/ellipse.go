package detection

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Ellipse is a rotated ellipse in image coordinates.
type Ellipse struct {
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`

	// Axes holds the two full axis lengths (diameters), major first.
	Axes [2]float64 `json:"axes"`

	// Angle is the direction of the major axis in degrees, in [0, 180),
	// measured clockwise from the X axis because Y points down.
	Angle float64 `json:"angle"`
}

// Major returns the longer full axis length.
func (e Ellipse) Major() float64 { return math.Max(e.Axes[0], e.Axes[1]) }

// Minor returns the shorter full axis length.
func (e Ellipse) Minor() float64 { return math.Min(e.Axes[0], e.Axes[1]) }

// FitEllipse returns the least-squares ellipse through the points of c.
//
// Parameters:
//   - c: Contour with at least MinEllipsePoints points.
//
// Returns:
//   - Ellipse: Center, full axis lengths and major axis angle. Both axes are >= 0.
//   - error: ErrTooFewPoints (wrapped) when c is too short. No other errors.
//
// # Algorithm
//
// The direct least-squares fit of Fitzgibbon, Pilu and Fisher in the
// numerically stable form of Halír and Flusser:
//
//  1. Center the points on their mean and scale them to unit RMS radius.
//  2. Split the design matrix into quadratic [x² xy y²] and linear [x y 1]
//     parts and reduce the constrained problem to a 3x3 eigenproblem.
//  3. Keep the eigenvector satisfying the ellipse constraint 4ac - b² > 0
//     and recover the linear coefficients.
//  4. Convert the conic to center, semi-axes and rotation, then undo the
//     normalization.
//
// # Degenerate Input
//
// Collinear points, point sets with no elliptic solution and conic fits that
// escape the points (see plausible) fall back to the second moments of the
// points: each full axis is 2·sqrt(2λ) for the
// covariance eigenvalue λ, which is exact for points spread evenly around an
// ellipse. A contour that passes the length check therefore always yields an
// ellipse.
func FitEllipse(c Contour) (Ellipse, error) {
	if len(c) < MinEllipsePoints {
		return Ellipse{}, tooFewPoints(len(c))
	}

	xs := make([]float64, len(c))
	ys := make([]float64, len(c))
	for i, p := range c {
		xs[i] = float64(p.X)
		ys[i] = float64(p.Y)
	}

	if e, ok := fitConic(xs, ys); ok && plausible(e, xs, ys) {
		return e, nil
	}
	return fitMoments(xs, ys), nil
}

// Limits for accepting a conic fit, relative to the pixel extent of the points.
const (
	centerMargin = 1.0
	maxAxisRatio = 3.0
)

// plausible reports whether e stays with the points it was fitted to: the
// center lies within their bounding box widened by centerMargin and the major
// axis is at most maxAxisRatio times the box diagonal. Nearly collinear
// contours give elliptic but ill-conditioned conics that fail this.
func plausible(e Ellipse, xs, ys []float64) bool {
	minX, maxX := floats.Min(xs), floats.Max(xs)
	minY, maxY := floats.Min(ys), floats.Max(ys)

	if e.CenterX < minX-centerMargin || e.CenterX > maxX+centerMargin ||
		e.CenterY < minY-centerMargin || e.CenterY > maxY+centerMargin {
		return false
	}
	diag := math.Hypot(maxX-minX+1, maxY-minY+1)
	return e.Major() <= maxAxisRatio*diag
}

// fitConic runs the Halír–Flusser fit. It reports false when the data has no
// elliptic solution.
func fitConic(xs, ys []float64) (Ellipse, bool) {
	n := len(xs)
	mx, my := stat.Mean(xs, nil), stat.Mean(ys, nil)

	var ss float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		ss += dx*dx + dy*dy
	}
	scale := math.Sqrt(ss / float64(n))
	if scale == 0 {
		return Ellipse{}, false
	}

	d1 := mat.NewDense(n, 3, nil)
	d2 := mat.NewDense(n, 3, nil)
	for i := range xs {
		x := (xs[i] - mx) / scale
		y := (ys[i] - my) / scale
		d1.SetRow(i, []float64{x * x, x * y, y * y})
		d2.SetRow(i, []float64{x, y, 1})
	}

	var s1, s2, s3 mat.Dense
	s1.Mul(d1.T(), d1)
	s2.Mul(d1.T(), d2)
	s3.Mul(d2.T(), d2)

	var s3inv mat.Dense
	if err := s3inv.Inverse(&s3); err != nil {
		return Ellipse{}, false
	}

	// t maps quadratic coefficients to linear ones: a2 = t·a1.
	var t mat.Dense
	t.Mul(&s3inv, s2.T())
	t.Scale(-1, &t)

	var reduced, m mat.Dense
	reduced.Mul(&s2, &t)
	m.Add(&s1, &reduced)

	// Premultiply by the inverse of the constraint matrix.
	c1m := mat.NewDense(3, 3, nil)
	for j := 0; j < 3; j++ {
		c1m.Set(0, j, m.At(2, j)/2)
		c1m.Set(1, j, -m.At(1, j))
		c1m.Set(2, j, m.At(0, j)/2)
	}

	var eig mat.Eigen
	if !eig.Factorize(c1m, mat.EigenRight) {
		return Ellipse{}, false
	}
	var vecs mat.CDense
	eig.VectorsTo(&vecs)

	var a1 []float64
	bestCond := 0.0
	for k := 0; k < 3; k++ {
		v := make([]float64, 3)
		isReal := true
		for i := 0; i < 3; i++ {
			z := vecs.At(i, k)
			if math.Abs(imag(z)) > 1e-9*cmplx.Abs(z) {
				isReal = false
				break
			}
			v[i] = real(z)
		}
		if !isReal {
			continue
		}
		if cond := 4*v[0]*v[2] - v[1]*v[1]; cond > bestCond {
			bestCond, a1 = cond, v
		}
	}
	if a1 == nil {
		return Ellipse{}, false
	}

	a2 := mat.NewVecDense(3, nil)
	a2.MulVec(&t, mat.NewVecDense(3, a1))

	e, ok := conicToEllipse(a1[0], a1[1], a1[2], a2.AtVec(0), a2.AtVec(1), a2.AtVec(2))
	if !ok {
		return Ellipse{}, false
	}

	e.CenterX = mx + scale*e.CenterX
	e.CenterY = my + scale*e.CenterY
	e.Axes[0] *= scale
	e.Axes[1] *= scale
	return e, true
}

// conicToEllipse converts Ax² + Bxy + Cy² + Dx + Ey + F = 0 to geometric form.
func conicToEllipse(a, b, c, d, e, f float64) (Ellipse, bool) {
	den := b*b - 4*a*c
	if den >= 0 {
		return Ellipse{}, false
	}

	num := 2 * (a*e*e + c*d*d - b*d*e + den*f)
	root := math.Hypot(a-c, b)
	semiA := -math.Sqrt(num*(a+c+root)) / den
	semiB := -math.Sqrt(num*(a+c-root)) / den
	if math.IsNaN(semiA) || math.IsNaN(semiB) || math.IsInf(semiA, 0) || math.IsInf(semiB, 0) {
		return Ellipse{}, false
	}

	// theta is the direction of the semiA axis.
	theta := 0.5 * math.Atan2(-b, c-a)
	if semiA < semiB {
		semiA, semiB = semiB, semiA
		theta += math.Pi / 2
	}

	return Ellipse{
		CenterX: (2*c*d - b*e) / den,
		CenterY: (2*a*e - b*d) / den,
		Axes:    [2]float64{2 * semiA, 2 * semiB},
		Angle:   normalizeAngle(theta),
	}, true
}

// fitMoments derives an ellipse from the covariance of the points.
func fitMoments(xs, ys []float64) Ellipse {
	n := len(xs)
	data := mat.NewDense(n, 2, nil)
	for i := range xs {
		data.Set(i, 0, xs[i])
		data.Set(i, 1, ys[i])
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)
	// Population moments.
	cov.ScaleSym(float64(n-1)/float64(n), &cov)

	e := Ellipse{CenterX: stat.Mean(xs, nil), CenterY: stat.Mean(ys, nil)}

	var eig mat.EigenSym
	if !eig.Factorize(&cov, true) {
		return e
	}
	vals := eig.Values(nil) // ascending
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	axis := func(lambda float64) float64 {
		return 2 * math.Sqrt(2*math.Max(lambda, 0))
	}
	e.Axes = [2]float64{axis(vals[1]), axis(vals[0])}
	e.Angle = normalizeAngle(math.Atan2(vecs.At(1, 1), vecs.At(0, 1)))
	return e
}

// normalizeAngle converts radians to degrees in [0, 180).
func normalizeAngle(theta float64) float64 {
	deg := math.Mod(theta*180/math.Pi, 180)
	if deg < 0 {
		deg += 180
	}
	return deg
}
