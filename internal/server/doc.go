// Package server implements the MCP (Model Context Protocol) server for object
// measurement tools.
//
// This package provides a JSON-RPC 2.0 server that exposes the measurement
// pipeline through the MCP protocol, so an MCP client can measure single
// images, inspect segmentation results and run whole folders interactively.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Logs go to stderr so they never interleave with protocol messages.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Measurement:
//   - measure_image: Outcome and record for one image, optional diagnostic panel
//   - measure_folder: Batch run over a folder, optional CSV and manifest
//
// Segmentation:
//   - segment_image: Binary mask and contour count
//   - contrast_stretch: Percentile contrast stretch
//
// Whole-image metrics:
//   - color_metrics: Channel means, saturation, colorfulness
//   - sharpness: Variance of the Laplacian
//
// Options a call leaves out (strategy, chain mode, workers) come from the
// configuration the server was started with.
//
// # Image Caching
//
// Single-image tools share an in-memory cache keyed by absolute path, so
// measuring, segmenting and scoring the same file decodes it once.
// measure_image accepts "reload": true to drop a stale entry. Folder runs
// bypass the cache.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// An image that decodes but has no measurable object is not an error: the
// result reports the outcome and the reason.
//
// # Usage
//
//	srv := server.New(cfg, log, version)
//	if err := srv.Run(); err != nil {
//	    log.Error("server", err, nil)
//	}
package server
