// Package detection turns a grayscale image into a binary mask and measures
// the dominant object in it.
//
// # Segmentation
//
// Two strategies are available as the closed Strategy enum:
//
//   - Fixed: threshold at 15, open with a 5x5 rectangle (2 iterations), then
//     erode with a 3x3 rectangle (4 iterations). The final erosion compensates
//     for the opening overestimating object size and removes 4 pixels from
//     every side of an object.
//   - AdaptiveMean: stretch contrast between the 2nd and 98th percentile and
//     keep pixels brighter than the mean of the stretched image.
//
// Masks use 0 for background and 255 for foreground.
//
// # Contours
//
// FindExternalContours traces the outer border of every 8-connected region
// that is not inside another region. Contours run clockwise in image
// coordinates and, by default, keep every border pixel.
//
// # Shape Measurement
//
// MeasureShape fits an ellipse (direct least squares, solved with gonum) and
// computes shoelace area, closed arc length, bounding box and circularity.
// The ellipse fit needs at least 5 points.
//
// An optional OpenCV Analyzer is compiled in with the gocv build tag.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Bounding box width and height count pixels (inclusive on both ends)
package detection
