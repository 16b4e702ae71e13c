package detection

import (
	"errors"
	"image"
	"testing"
)

func TestNativeAnalyzer(t *testing.T) {
	a := NativeAnalyzer{Chain: ChainNone}

	t.Run("empty mask", func(t *testing.T) {
		res, err := a.Analyze(newGray(30, 30, 0))
		if !errors.Is(err, ErrNoContour) {
			t.Fatalf("got %v, want ErrNoContour", err)
		}
		if res.Contours != 0 || res.Largest != nil {
			t.Errorf("unexpected analysis: %+v", res)
		}
	})

	t.Run("tiny blob", func(t *testing.T) {
		g := newGray(10, 10, 0)
		fillRect(g, 4, 4, 6, 5, 255) // 2x1

		res, err := a.Analyze(g)
		if !errors.Is(err, ErrTooFewPoints) {
			t.Fatalf("got %v, want ErrTooFewPoints", err)
		}
		if res.Contours != 1 || len(res.Largest) != 2 {
			t.Errorf("got %d contours, largest %v", res.Contours, res.Largest)
		}
	})

	t.Run("measurable object", func(t *testing.T) {
		g := newGray(60, 60, 0)
		fillRect(g, 2, 2, 6, 6, 255)
		fillDisk(g, 35, 35, 15, 255)

		res, err := a.Analyze(g)
		if err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}
		if res.Contours != 2 {
			t.Errorf("contours: got %d, want 2", res.Contours)
		}
		if res.Shape.Box.Width != 31 || res.Shape.Points != len(res.Largest) {
			t.Errorf("measured the wrong contour: %+v", res.Shape.Box)
		}
	})
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		input   string
		want    Backend
		wantErr bool
	}{
		{"", BackendNative, false},
		{"native", BackendNative, false},
		{"OpenCV", BackendOpenCV, false},
		{"cuda", "", true},
	}
	for _, tt := range tests {
		got, err := ParseBackend(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: got %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNewAnalyzer_Native(t *testing.T) {
	a, err := NewAnalyzer(BackendNative, ChainSimple)
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}
	if a.Backend() != BackendNative {
		t.Errorf("backend: got %q", a.Backend())
	}
	if _, err := NewAnalyzer("cuda", ChainNone); err == nil {
		t.Error("unknown backend should fail")
	}
}

// segmentingAnalyzer brings its own segmentation for every strategy.
type segmentingAnalyzer struct {
	NativeAnalyzer
}

func (segmentingAnalyzer) Segmenter(Strategy) (SegmentFunc, error) {
	return func(gray *image.Gray) Segmentation {
		mask := newGray(gray.Rect.Dx(), gray.Rect.Dy(), Foreground)
		return Segmentation{Threshold: mask, Mask: mask}
	}, nil
}

func TestSegmenterFor(t *testing.T) {
	g := newGray(20, 20, 0)
	fillRect(g, 5, 5, 15, 15, 255)

	t.Run("native uses the strategy", func(t *testing.T) {
		segment, err := SegmenterFor(NativeAnalyzer{}, AdaptiveMean)
		if err != nil {
			t.Fatalf("SegmenterFor failed: %v", err)
		}
		if n := countForeground(segment(g).Mask); n != 100 {
			t.Errorf("foreground: got %d, want 100", n)
		}
	})

	t.Run("native unknown strategy", func(t *testing.T) {
		if _, err := SegmenterFor(NativeAnalyzer{}, Strategy(9)); !errors.Is(err, ErrUnknownStrategy) {
			t.Errorf("got %v, want ErrUnknownStrategy", err)
		}
	})

	t.Run("analyzer segmentation wins", func(t *testing.T) {
		segment, err := SegmenterFor(segmentingAnalyzer{}, Fixed)
		if err != nil {
			t.Fatalf("SegmenterFor failed: %v", err)
		}
		if n := countForeground(segment(g).Mask); n != 400 {
			t.Errorf("foreground: got %d, want 400", n)
		}
	})
}
