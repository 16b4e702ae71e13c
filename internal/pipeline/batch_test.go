package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ironsheep/object-metrics/internal/config"
	"github.com/ironsheep/object-metrics/internal/detection"
	"github.com/ironsheep/object-metrics/internal/logger"
)

func testConfig(root string) config.Config {
	cfg := config.Default()
	cfg.Root = root
	return cfg
}

func newTestRunner(t *testing.T, cfg config.Config, opts ...Option) *Runner {
	t.Helper()
	opts = append([]Option{WithLogger(logger.Nop())}, opts...)
	r, err := NewRunner(cfg, opts...)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	return r
}

// relPaths strips root from every path.
func relPaths(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, len(paths))
	for i, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			t.Fatalf("Rel failed: %v", err)
		}
		out[i] = filepath.ToSlash(rel)
	}
	return out
}

func TestNewRunner_Errors(t *testing.T) {
	cfg := testConfig("r")
	cfg.Workers = 0
	if _, err := NewRunner(cfg); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("invalid config: got %v", err)
	}

	cfg = testConfig("r")
	cfg.Strategy = detection.Strategy(7)
	if _, err := NewRunner(cfg); err == nil {
		t.Error("unknown strategy should fail")
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.jpg", "b.png", "sub/c.png", "sub/deeper/d.jpg", "notes.txt", "E.PNG", "f.jpeg"} {
		writeFile(t, root, name, "x")
	}

	r := newTestRunner(t, testConfig(root))
	got, err := r.Discover(root)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	want := []string{"b.png", "sub/c.png", "a.jpg", "sub/deeper/d.jpg"}
	if strings.Join(relPaths(t, root, got), ",") != strings.Join(want, ",") {
		t.Errorf("got %v, want %v", relPaths(t, root, got), want)
	}
}

func TestDiscover_Errors(t *testing.T) {
	r := newTestRunner(t, testConfig(""))

	if _, err := r.Discover(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("missing root should fail")
	}

	file := writeFile(t, t.TempDir(), "file.png", "x")
	if _, err := r.Discover(file); err == nil {
		t.Error("a file root should fail")
	}
}

func TestRun_MeasuresFolder(t *testing.T) {
	root := t.TempDir()
	writePNG(t, root, "rect.png", rectImage(80, 60, 10, 10, 50, 40, white))
	writePNG(t, root, "blank.png", blackImage(40, 40))
	writePNG(t, root, "nested/speck.png", rectImage(10, 10, 4, 4, 6, 5, white))
	writeFile(t, root, "broken.jpg", "garbage")

	r := newTestRunner(t, testConfig(root))
	report, err := r.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Candidates != 4 || report.Opened != 4 {
		t.Errorf("candidates %d, opened %d, want 4 and 4", report.Candidates, report.Opened)
	}
	if len(report.Records) != 1 || report.Records[0].Filename != "rect.png" {
		t.Fatalf("records: %+v", report.Records)
	}
	if report.Records[0].Width != 40 || report.Records[0].Height != 30 {
		t.Errorf("size: got %dx%d", report.Records[0].Width, report.Records[0].Height)
	}

	wantCounts := map[Kind]int{KindMeasured: 1, KindNoContour: 1, KindTooSmall: 1, KindDecodeFailed: 1}
	for kind, want := range wantCounts {
		if report.Counts[kind] != want {
			t.Errorf("%s: got %d, want %d", kind, report.Counts[kind], want)
		}
	}
	if len(report.Skipped()) != 3 {
		t.Errorf("skipped: got %d, want 3", len(report.Skipped()))
	}
	if report.Finished.Before(report.Started) {
		t.Error("finished before started")
	}
}

// countingLoader returns a fixed image and counts how often it was called.
type countingLoader struct {
	calls atomic.Int64
	img   *image.NRGBA
}

func (l *countingLoader) load(path string) (*image.NRGBA, error) {
	l.calls.Add(1)
	return l.img, nil
}

func TestRun_Ceiling(t *testing.T) {
	const n = 3
	root := t.TempDir()
	for i := 0; i < n+5; i++ {
		writeFile(t, root, fmt.Sprintf("img%02d.png", i), "x")
	}

	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			loader := &countingLoader{img: blackImage(20, 20)}
			cfg := testConfig(root)
			cfg.MaxImages = n
			cfg.Workers = workers

			r := newTestRunner(t, cfg, WithLoader(loader.load))
			report, err := r.Run(context.Background(), root)
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}

			if got := loader.calls.Load(); got != n {
				t.Errorf("opened %d images, want %d", got, n)
			}
			if report.Opened != n || report.Candidates != n+5 {
				t.Errorf("opened %d of %d candidates", report.Opened, report.Candidates)
			}
			if len(report.Records) > n {
				t.Errorf("got %d records, want at most %d", len(report.Records), n)
			}
		})
	}
}

func TestRun_ParallelMatchesSequential(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 12; i++ {
		w := 20 + 2*i
		writePNG(t, root, fmt.Sprintf("img%02d.png", i), rectImage(80, 80, 10, 10, 10+w, 10+w/2, white))
	}
	writePNG(t, root, "blank.png", blackImage(30, 30))

	run := func(workers int) *Report {
		cfg := testConfig(root)
		cfg.Workers = workers
		report, err := newTestRunner(t, cfg).Run(context.Background(), root)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		return report
	}

	seq := run(1)
	par := run(4)

	if len(seq.Outcomes) != len(par.Outcomes) {
		t.Fatalf("outcome count: %d vs %d", len(seq.Outcomes), len(par.Outcomes))
	}
	for i := range seq.Outcomes {
		if seq.Outcomes[i].Path() != par.Outcomes[i].Path() || seq.Outcomes[i].Kind() != par.Outcomes[i].Kind() {
			t.Errorf("outcome %d: %s/%s vs %s/%s", i,
				seq.Outcomes[i].Path(), seq.Outcomes[i].Kind(),
				par.Outcomes[i].Path(), par.Outcomes[i].Kind())
		}
	}
	if len(seq.Records) != 12 || len(par.Records) != 12 {
		t.Fatalf("records: %d vs %d, want 12", len(seq.Records), len(par.Records))
	}
	for i := range seq.Records {
		if seq.Records[i] != par.Records[i] {
			t.Errorf("record %d differs: %+v vs %+v", i, seq.Records[i], par.Records[i])
		}
	}
}

func TestRun_Cancelled(t *testing.T) {
	root := t.TempDir()
	writePNG(t, root, "a.png", blackImage(10, 10))
	writePNG(t, root, "b.png", blackImage(10, 10))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 2} {
		cfg := testConfig(root)
		cfg.Workers = workers
		loader := &countingLoader{img: blackImage(10, 10)}

		_, err := newTestRunner(t, cfg, WithLoader(loader.load)).Run(ctx, root)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("workers=%d: got %v, want context.Canceled", workers, err)
		}
		if loader.calls.Load() != 0 {
			t.Errorf("workers=%d: opened %d images after cancel", workers, loader.calls.Load())
		}
	}
}

func TestRun_MissingRoot(t *testing.T) {
	r := newTestRunner(t, testConfig(""))
	if _, err := r.Run(context.Background(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("missing root should fail")
	}
}

func TestRun_SavesDiagnostics(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "images")
	writePNG(t, root, "rect.png", rectImage(60, 40, 10, 10, 40, 30, white))
	writePNG(t, root, "blank.png", blackImage(30, 30))

	cfg := testConfig(root)
	cfg.Diagnostics = config.DiagnosticsSave

	if _, err := newTestRunner(t, cfg).Run(context.Background(), root); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	dir := filepath.Join(base, PlotsDirName, "mean")
	for _, name := range []string{"rect.png", "blank.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected panel %s: %v", name, err)
		}
	}
}
