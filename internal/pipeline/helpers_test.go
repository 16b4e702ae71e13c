package pipeline

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// blackImage returns an opaque black image.
func blackImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

// rectImage returns a black image with a filled rectangle of color c covering
// [x0,x1) x [y0,y1).
func rectImage(w, h, x0, y0, x1, y1 int, c color.NRGBA) *image.NRGBA {
	img := blackImage(w, h)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

var white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// writePNG encodes img at dir/name, creating parent directories.
func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// writeFile creates dir/name with the given contents.
func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	return path
}

// recordingPresenter keeps every figure it is given.
type recordingPresenter struct {
	mu      sync.Mutex
	figures []Figure
}

func (p *recordingPresenter) Present(fig Figure) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.figures = append(p.figures, fig)
	return nil
}

func (p *recordingPresenter) all() []Figure {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Figure(nil), p.figures...)
}
