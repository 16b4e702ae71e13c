package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ironsheep/object-metrics/internal/config"
	"github.com/ironsheep/object-metrics/internal/detection"
	"github.com/ironsheep/object-metrics/internal/imaging"
	"github.com/ironsheep/object-metrics/internal/logger"
)

// Candidate extensions, in discovery order. Matching is case-sensitive.
var candidateExts = []string{".png", ".jpg"}

// Runner measures every candidate image under a root directory.
type Runner struct {
	cfg       config.Config
	analyzer  detection.Analyzer
	presenter Presenter
	load      LoadFunc
	log       logger.Logger
}

// Option customizes a Runner.
type Option func(*Runner)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithPresenter replaces the presenter derived from the diagnostics mode.
func WithPresenter(p Presenter) Option {
	return func(r *Runner) { r.presenter = p }
}

// WithLoader replaces the image decoder.
func WithLoader(load LoadFunc) Option {
	return func(r *Runner) { r.load = load }
}

// WithAnalyzer replaces the analyzer selected by the configured backend.
func WithAnalyzer(a detection.Analyzer) Option {
	return func(r *Runner) { r.analyzer = a }
}

// NewRunner validates cfg and prepares the shape analyzer.
//
// Returns an error for an invalid configuration or a backend that is not
// compiled into this build (detection.ErrBackendUnavailable).
func NewRunner(cfg config.Config, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{cfg: cfg, log: logger.Nop()}
	for _, opt := range opts {
		opt(r)
	}

	if r.analyzer == nil {
		a, err := detection.NewAnalyzer(cfg.Backend, cfg.Chain)
		if err != nil {
			return nil, fmt.Errorf("failed to create analyzer: %w", err)
		}
		r.analyzer = a
	}
	return r, nil
}

// Config returns the configuration the runner was built with.
func (r *Runner) Config() config.Config {
	return r.cfg
}

// Report summarizes one run.
type Report struct {
	Root     string
	Started  time.Time
	Finished time.Time

	// Candidates is the number of images discovered; Opened is how many of
	// them were processed after applying the ceiling.
	Candidates int
	Opened     int

	// Outcomes holds one entry per opened image, in candidate order.
	Outcomes []Outcome

	// Records holds the Measured records, in candidate order.
	Records []Record

	Counts map[Kind]int
}

// Skipped returns the outcomes that produced no record.
func (r *Report) Skipped() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Kind() != KindMeasured {
			out = append(out, o)
		}
	}
	return out
}

// Discover lists the candidate images under root: every .png file followed by
// every .jpg file, each group in walk order.
//
// An unreadable root is returned as an error. Unreadable subdirectories are
// logged and skipped.
func (r *Runner) Discover(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("failed to read root directory: %s is not a directory", root)
	}

	groups := make([][]string, len(candidateExts))
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			r.log.Warning("batch", "Skipping unreadable path", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !imaging.IsCandidate(d.Name()) {
			return nil
		}
		ext := filepath.Ext(d.Name())
		for i, want := range candidateExts {
			if ext == want {
				groups[i] = append(groups[i], path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read root directory: %w", err)
	}

	var candidates []string
	for _, g := range groups {
		candidates = append(candidates, g...)
	}
	return candidates, nil
}

// Run discovers and measures the images under root. An empty root means the
// configured one.
//
// At most Config.Ceiling() candidates are opened, counting every opened file
// whatever its outcome. With Workers > 1 images are measured concurrently;
// Outcomes and Records keep candidate order either way.
//
// Cancelling ctx stops dispatching further images and Run returns ctx.Err().
func (r *Runner) Run(ctx context.Context, root string) (*Report, error) {
	if root == "" {
		root = r.cfg.Root
	}

	presenter := r.presenter
	if presenter == nil {
		presenter = NewPresenter(r.cfg.Diagnostics, root, r.cfg.Strategy, r.log)
	}
	p, err := NewPipeline(r.cfg.Strategy, r.analyzer, presenter, r.load, r.log)
	if err != nil {
		return nil, err
	}

	report := &Report{Root: root, Started: time.Now(), Counts: make(map[Kind]int)}

	candidates, err := r.Discover(root)
	if err != nil {
		return nil, err
	}
	report.Candidates = len(candidates)

	if ceiling := r.cfg.Ceiling(); ceiling > 0 && len(candidates) > ceiling {
		candidates = candidates[:ceiling]
	}

	r.log.Info("batch", "Starting run", map[string]interface{}{
		"root":       root,
		"strategy":   r.cfg.Strategy.String(),
		"backend":    string(r.analyzer.Backend()),
		"candidates": report.Candidates,
		"opening":    len(candidates),
		"workers":    r.cfg.Workers,
	})

	outcomes := make([]Outcome, len(candidates))
	if r.cfg.Workers > 1 && len(candidates) > 1 {
		err = r.runParallel(ctx, p, candidates, outcomes)
	} else {
		err = r.runSequential(ctx, p, candidates, outcomes)
	}
	if err != nil {
		return nil, err
	}

	report.Opened = len(outcomes)
	report.Outcomes = outcomes
	for _, o := range outcomes {
		report.Counts[o.Kind()]++
		if m, ok := o.(Measured); ok {
			report.Records = append(report.Records, m.Record)
		}
	}
	report.Finished = time.Now()

	r.log.Info("batch", "Run complete", map[string]interface{}{
		"opened":        report.Opened,
		"measured":      report.Counts[KindMeasured],
		"no_contour":    report.Counts[KindNoContour],
		"too_small":     report.Counts[KindTooSmall],
		"decode_failed": report.Counts[KindDecodeFailed],
		"elapsed":       report.Finished.Sub(report.Started).String(),
	})
	return report, nil
}

func (r *Runner) runSequential(ctx context.Context, p *Pipeline, paths []string, out []Outcome) error {
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		out[i] = p.Measure(path)
	}
	return nil
}

// runParallel measures paths on a worker pool. Each job writes only its own
// slot of out.
func (r *Runner) runParallel(ctx context.Context, p *Pipeline, paths []string, out []Outcome) error {
	pool := NewWorkerPool(r.cfg.Workers)
	pool.Start()
	defer pool.Close()

	var submitErr error
	for i, path := range paths {
		i, path := i, path
		if err := pool.Submit(ctx, func() { out[i] = p.Measure(path) }); err != nil {
			submitErr = err
			break
		}
	}
	pool.Wait()
	return submitErr
}
