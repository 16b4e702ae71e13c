package pipeline

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/anthonynsimon/bild/imgio"

	"github.com/ironsheep/object-metrics/internal/config"
	"github.com/ironsheep/object-metrics/internal/detection"
	"github.com/ironsheep/object-metrics/internal/imaging"
	"github.com/ironsheep/object-metrics/internal/logger"
)

// PlotsDirName is the directory, next to the image root, that receives saved
// diagnostic panels.
const PlotsDirName = "thresholding_plots"

// contourThickness is the stroke width of the contour overlay.
const contourThickness = 2

// jpegQuality is used when a panel is saved under a .jpg name.
const jpegQuality = 95

// Figure is the diagnostic view of one image: the original on the left and
// either the contour overlay or the raw binary image on the right.
type Figure struct {
	Filename   string
	Title      string
	LeftTitle  string
	RightTitle string
	Left       image.Image
	Right      image.Image

	// ContourPoints is drawn as a label on the right half. It is -1 when no
	// contour was found.
	ContourPoints int
}

// Panel renders the figure as a single image: the titles in a band on top,
// the two halves below.
func (f Figure) Panel() *image.NRGBA {
	leftWidth := f.Left.Bounds().Dx()
	panel := imaging.ComposePanel(f.Left, f.Right)
	if f.ContourPoints >= 0 {
		at := imaging.LabelOrigin(leftWidth)
		imaging.DrawLabel(panel, at.X, at.Y, strconv.Itoa(f.ContourPoints))
	}
	return imaging.TitlePanel(panel, leftWidth, f.Title, f.LeftTitle, f.RightTitle)
}

// measuredFigure shows the original with the largest contour drawn on a copy.
func measuredFigure(filename string, strategy detection.Strategy, img *image.NRGBA, largest detection.Contour) Figure {
	return Figure{
		Filename:      filename,
		Title:         strategy.Title(),
		LeftTitle:     filename,
		RightTitle:    fmt.Sprintf("contour length: %d", len(largest)),
		Left:          img,
		Right:         imaging.DrawContour(img, largest, imaging.ContourColor, contourThickness),
		ContourPoints: len(largest),
	}
}

// binaryFigure shows the original next to the raw thresholded image. points is
// -1 when there was no contour.
func binaryFigure(filename string, strategy detection.Strategy, img *image.NRGBA, thresh *image.Gray, points int) Figure {
	right := "Binary image, no contour was found"
	if points >= 0 {
		right = fmt.Sprintf("Binary image, contour length: %d", points)
	}
	return Figure{
		Filename:      filename,
		Title:         strategy.Title(),
		LeftTitle:     filename,
		RightTitle:    right,
		Left:          img,
		Right:         thresh,
		ContourPoints: points,
	}
}

// Presenter receives diagnostic figures. Implementations must be safe for
// concurrent use; a returned error is logged and never changes an Outcome.
type Presenter interface {
	Present(fig Figure) error
}

// NewPresenter returns the Presenter for mode.
//
// Parameters:
//   - mode: Diagnostics mode from the run configuration.
//   - root: Image root directory. Saved panels go to
//     <parent of root>/thresholding_plots/<strategy>/.
//   - strategy: Names the output subdirectory.
//   - log: Receives the show-mode summaries.
func NewPresenter(mode config.DiagnosticsMode, root string, strategy detection.Strategy, log logger.Logger) Presenter {
	switch mode {
	case config.DiagnosticsSave:
		return &FilePresenter{Dir: PlotsDir(root, strategy)}
	case config.DiagnosticsShow:
		return &LogPresenter{Logger: log}
	default:
		return nopPresenter{}
	}
}

// PlotsDir returns the directory saved panels for root are written to.
func PlotsDir(root string, strategy detection.Strategy) string {
	parent := filepath.Dir(filepath.Clean(root))
	return filepath.Join(parent, PlotsDirName, strategy.String())
}

// FilePresenter saves each panel under Dir with the image's own file name.
type FilePresenter struct {
	Dir string
}

// Present implements Presenter.
func (p *FilePresenter) Present(fig Figure) error {
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create plots directory: %w", err)
	}

	path := filepath.Join(p.Dir, fig.Filename)
	encoder := imgio.PNGEncoder()
	switch strings.ToLower(filepath.Ext(fig.Filename)) {
	case ".jpg", ".jpeg":
		encoder = imgio.JPEGEncoder(jpegQuality)
	case ".png":
	default:
		path += ".png"
	}

	if err := imgio.Save(path, fig.Panel(), encoder); err != nil {
		return fmt.Errorf("failed to save diagnostic panel: %w", err)
	}
	return nil
}

// LogPresenter reports each figure at info level. A batch run has no window
// to draw on, so the panel is described rather than displayed.
type LogPresenter struct {
	Logger logger.Logger
}

// Present implements Presenter.
func (p *LogPresenter) Present(fig Figure) error {
	panel := fig.Panel()
	p.Logger.Info("diagnostics", fig.Title, map[string]interface{}{
		"left":   fig.LeftTitle,
		"right":  fig.RightTitle,
		"width":  panel.Rect.Dx(),
		"height": panel.Rect.Dy(),
	})
	return nil
}

type nopPresenter struct{}

func (nopPresenter) Present(Figure) error { return nil }
