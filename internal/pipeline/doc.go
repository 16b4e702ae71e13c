// Package pipeline measures the dominant object of each image in a folder.
//
// A Pipeline takes one image through grayscale conversion, segmentation,
// contour analysis and measurement, and ends in exactly one Outcome:
//
//	LOADED -> GRAYSCALE -> SEGMENTED -> CONTOURED -+-> ELLIPSE_FIT   -> Measured
//	                                               +-> SMALL_CONTOUR -> TooSmall
//	                                               +-> NO_CONTOUR    -> NoContour
//	(decode error)                                                   -> DecodeFailed
//
// Per-image failures never abort a batch. A Runner discovers candidate files,
// applies the configured ceiling and collects the Measured records in
// candidate order, whether images are processed sequentially or on a
// WorkerPool.
//
// # Diagnostics
//
// Every decoded image yields a Figure: the original next to either the contour
// overlay or the raw binary image. The configured Presenter saves it, logs it
// or drops it.
package pipeline
