// Package imaging provides the pixel-level building blocks of the measurement
// pipeline: decoding, grayscale conversion, contrast stretching, color and
// sharpness metrics, and composition of diagnostic panels.
//
// # Pixel Buffers
//
// Three buffer kinds are used throughout:
//   - Color: *image.NRGBA with its origin at (0,0) and alpha forced to 255.
//     Decoders may hand back paletted, YCbCr or 16-bit images; Load normalizes
//     all of them to this form so every metric sees 8-bit RGB samples.
//   - Grayscale: *image.Gray, 8-bit luminance (ITU-R BT.601 weights).
//   - FloatGray: row-major float64 samples in [0,1], used when a stretch must
//     keep floating point precision.
//
// No function in this package mutates its input. Each transform returns a new
// buffer.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner,
// X increasing rightward and Y increasing downward.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. All other functions are stateless and
// may be called concurrently on different buffers.
//
// # Numeric Conventions
//
// Means, standard deviations and variances are population statistics (divide
// by N), computed with gonum/stat. Percentiles use linear interpolation between
// the closest ranks, index = p/100 * (N-1).
package imaging
