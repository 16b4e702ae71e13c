package pipeline

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"

	"github.com/ironsheep/object-metrics/internal/detection"
	"github.com/ironsheep/object-metrics/internal/imaging"
	"github.com/ironsheep/object-metrics/internal/logger"
)

// LoadFunc decodes the image at path.
type LoadFunc func(path string) (*image.NRGBA, error)

// Pipeline measures single images. It holds no mutable state and is safe for
// concurrent use.
type Pipeline struct {
	strategy  detection.Strategy
	segment   detection.SegmentFunc
	analyzer  detection.Analyzer
	presenter Presenter
	load      LoadFunc
	log       logger.Logger
}

// NewPipeline resolves the segmenter for strategy and analyzer.
//
// Parameters:
//   - strategy: Thresholding strategy.
//   - analyzer: Finds and measures the dominant contour.
//   - presenter: Receives diagnostic figures. Nil disables diagnostics.
//   - load: Image decoder. Nil means imaging.Load.
//   - log: Nil means logger.Nop().
//
// Returns an error wrapping detection.ErrUnknownStrategy when strategy is not
// one of the defined values.
func NewPipeline(strategy detection.Strategy, analyzer detection.Analyzer, presenter Presenter, load LoadFunc, log logger.Logger) (*Pipeline, error) {
	if analyzer == nil {
		return nil, errors.New("pipeline requires an analyzer")
	}
	segment, err := detection.SegmenterFor(analyzer, strategy)
	if err != nil {
		return nil, err
	}
	if presenter == nil {
		presenter = nopPresenter{}
	}
	if load == nil {
		load = imaging.Load
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{
		strategy:  strategy,
		segment:   segment,
		analyzer:  analyzer,
		presenter: presenter,
		load:      load,
		log:       log,
	}, nil
}

// Strategy returns the thresholding strategy in use.
func (p *Pipeline) Strategy() detection.Strategy {
	return p.strategy
}

// Inspection is everything derived from one decoded image. Outcome is never a
// DecodeFailed; Figure is always set.
type Inspection struct {
	Outcome      Outcome
	Segmentation detection.Segmentation
	Analysis     detection.Analysis
	Figure       Figure
}

// Measure loads the image at path and measures it.
//
// Decode failures are reported as DecodeFailed. All other per-image results
// come from Inspect. The figure of an inspected image is passed to the
// presenter; a presenter error is logged and does not change the outcome.
func (p *Pipeline) Measure(path string) Outcome {
	img, err := p.load(path)
	if err != nil {
		p.log.Warning("pipeline", "Skipping unreadable image", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return DecodeFailed{Source: path, Err: err}
	}

	insp := p.Inspect(path, img)
	if err := p.presenter.Present(insp.Figure); err != nil {
		p.log.Error("pipeline", err, map[string]interface{}{"path": path})
	}
	return insp.Outcome
}

// Inspect runs an already decoded image through segmentation, contour
// analysis and measurement.
//
// # Algorithm
//
//  1. Convert to grayscale (BT.601).
//  2. Segment with the configured strategy.
//  3. Find the largest external contour of the mask.
//  4. No contour yields NoContour; fewer than detection.MinEllipsePoints
//     points yields TooSmall. Neither computes color or sharpness metrics.
//  5. Otherwise fit the ellipse, measure color on the original buffer and
//     sharpness on the unstretched grayscale, and build the Record.
//
// The Record's filename is the base name of path.
func (p *Pipeline) Inspect(path string, img *image.NRGBA) Inspection {
	filename := filepath.Base(path)
	gray := imaging.ToGray(img)
	seg := p.segment(gray)

	analysis, err := p.analyzer.Analyze(seg.Mask)
	switch {
	case err == nil:
	case errors.Is(err, detection.ErrTooFewPoints):
		p.log.Info("pipeline", "Contour too small for an ellipse fit", map[string]interface{}{
			"path":   path,
			"points": len(analysis.Largest),
		})
		return Inspection{
			Outcome:      TooSmall{Source: path, Points: len(analysis.Largest)},
			Segmentation: seg,
			Analysis:     analysis,
			Figure:       binaryFigure(filename, p.strategy, img, seg.Threshold, len(analysis.Largest)),
		}
	default:
		if !errors.Is(err, detection.ErrNoContour) {
			p.log.Error("pipeline", fmt.Errorf("failed to analyze mask: %w", err), map[string]interface{}{"path": path})
		} else {
			p.log.Info("pipeline", "No contour found", map[string]interface{}{"path": path})
		}
		return Inspection{
			Outcome:      NoContour{Source: path},
			Segmentation: seg,
			Analysis:     analysis,
			Figure:       binaryFigure(filename, p.strategy, img, seg.Threshold, -1),
		}
	}

	color := imaging.MeasureColor(img, gray)
	sharpness := imaging.Sharpness(gray)
	record := NewRecord(filename, analysis.Shape, color, sharpness)

	p.log.Debug("pipeline", "Measured image", map[string]interface{}{
		"path":        path,
		"contours":    analysis.Contours,
		"points":      analysis.Shape.Points,
		"major":       record.Major,
		"minor":       record.Minor,
		"circularity": record.Circularity,
	})

	return Inspection{
		Outcome:      Measured{Source: path, Record: record, Shape: analysis.Shape},
		Segmentation: seg,
		Analysis:     analysis,
		Figure:       measuredFigure(filename, p.strategy, img, analysis.Largest),
	}
}
