package imaging

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// Load decodes an image file into an opaque 8-bit color buffer.
//
// Parameters:
//   - path: Path to a PNG or JPEG file. Other formats registered with the
//     standard library decoders also load, but the batch runner never offers them.
//
// Returns:
//   - *image.NRGBA: The decoded image with origin (0,0) and every alpha sample
//     set to 255. Transparency is discarded, not composited, so the stored color
//     values are measured as they are.
//   - error: Non-nil if the file cannot be opened or decoded.
//
// EXIF orientation is not applied; measurements refer to the stored pixel grid.
func Load(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, err := imaging.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return Opaque(img), nil
}

// Opaque copies img into a new NRGBA buffer and drops its alpha channel.
func Opaque(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// ImageCache keeps decoded color buffers keyed by path.
//
// The tool server measures the same file repeatedly (segment, then measure,
// then metrics), so decoded images are kept until evicted. ImageCache is safe
// for concurrent use by multiple goroutines.
//
// Cached buffers are shared between callers and must be treated as read-only.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]*image.NRGBA
}

// NewImageCache creates an empty cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]*image.NRGBA),
	}
}

// Load returns the cached buffer for path or decodes it with Load.
//
// The cache key is the cleaned absolute path when it can be resolved, so
// "./a.png" and "a.png" share one entry.
func (c *ImageCache) Load(path string) (*image.NRGBA, error) {
	key := cacheKey(path)

	c.mu.RLock()
	if img, ok := c.images[key]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := Load(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[key] = img
	c.mu.Unlock()

	return img, nil
}

// Len reports the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]*image.NRGBA)
	c.mu.Unlock()
}

// Evict removes a single path from the cache. Unknown paths are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, cacheKey(path))
	c.mu.Unlock()
}

func cacheKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// IsCandidate reports whether a file name has one of the accepted extensions.
// Matching is case-sensitive: ".png" and ".jpg" only.
func IsCandidate(name string) bool {
	return strings.HasSuffix(name, ".png") || strings.HasSuffix(name, ".jpg")
}
