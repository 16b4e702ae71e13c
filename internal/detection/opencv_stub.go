//go:build !gocv

package detection

// newOpenCVAnalyzer reports that OpenCV support was not compiled in.
// Build with -tags gocv (and OpenCV 4 installed) to enable it.
func newOpenCVAnalyzer(ChainApprox) (Analyzer, error) {
	return nil, ErrBackendUnavailable
}
