package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/ironsheep/object-metrics/internal/config"
	"github.com/ironsheep/object-metrics/internal/detection"
	"github.com/ironsheep/object-metrics/internal/export"
	"github.com/ironsheep/object-metrics/internal/imaging"
	"github.com/ironsheep/object-metrics/internal/pipeline"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "measure_image", "sharpness").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.Warning("server", "Tool failed", map[string]interface{}{
			"tool":  params.Name,
			"error": err.Error(),
		})
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Falls back to the server configuration for omitted options
//  3. Loads images from cache as needed
//  4. Calls the pipeline, detection or imaging function
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "measure_image":
		return s.handleMeasureImage(args)
	case "measure_folder":
		return s.handleMeasureFolder(args)
	case "segment_image":
		return s.handleSegmentImage(args)
	case "contrast_stretch":
		return s.handleContrastStretch(args)
	case "color_metrics":
		return s.handleColorMetrics(args)
	case "sharpness":
		return s.handleSharpness(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// finite maps NaN and infinities to nil, which JSON encodes as null.
func finite(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// recordJSON renders a record with the CSV column names as keys.
func recordJSON(r pipeline.Record) map[string]interface{} {
	return map[string]interface{}{
		"filename":            r.Filename,
		"object_major":        finite(r.Major),
		"object_minor":        finite(r.Minor),
		"object_area":         finite(r.Area),
		"object_circularity":  finite(r.Circularity),
		"object_perimeter":    finite(r.Perimeter),
		"object_width":        r.Width,
		"object_height":       r.Height,
		"object_sharpness":    finite(r.Sharpness),
		"object_saturation":   finite(r.Saturation),
		"object_redness":      finite(r.Red),
		"object_greeness":     finite(r.Green),
		"object_blueness":     finite(r.Blue),
		"object_colorfulness": finite(r.Colorfulness),
	}
}

// measureOptions are the per-call overrides shared by several tools.
type measureOptions struct {
	Strategy string `json:"strategy"`
	Chain    string `json:"chain"`
}

// resolve applies the overrides to the server defaults.
func (o measureOptions) resolve(defaults config.Config) (detection.Strategy, detection.ChainApprox, error) {
	strategy, chain := defaults.Strategy, defaults.Chain
	var err error
	if o.Strategy != "" {
		if strategy, err = detection.ParseStrategy(o.Strategy); err != nil {
			return 0, 0, err
		}
	}
	if o.Chain != "" {
		if chain, err = detection.ParseChainApprox(o.Chain); err != nil {
			return 0, 0, err
		}
	}
	return strategy, chain, nil
}

// === Measurement Handlers ===

type measureImageArgs struct {
	Path string `json:"path"`
	measureOptions
	IncludePanel bool `json:"include_panel"`
	Reload       bool `json:"reload"`
}

type measureImageResult struct {
	Path          string                 `json:"path"`
	Outcome       pipeline.Kind          `json:"outcome"`
	Reason        string                 `json:"reason,omitempty"`
	Strategy      string                 `json:"strategy"`
	Backend       string                 `json:"backend"`
	Contours      int                    `json:"contours"`
	ContourPoints int                    `json:"contour_points"`
	Record        map[string]interface{} `json:"record,omitempty"`
	Ellipse       *detection.Ellipse     `json:"ellipse,omitempty"`
	BoundingBox   *detection.BoundingBox `json:"bounding_box,omitempty"`
	PanelTitle    string                 `json:"panel_title,omitempty"`
	PanelLeft     string                 `json:"panel_left_title,omitempty"`
	PanelRight    string                 `json:"panel_right_title,omitempty"`
	Panel         string                 `json:"panel_png_base64,omitempty"`
}

func (s *Server) handleMeasureImage(args json.RawMessage) (interface{}, error) {
	var a measureImageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	strategy, chain, err := a.resolve(s.defaults)
	if err != nil {
		return nil, err
	}

	analyzer, err := detection.NewAnalyzer(s.defaults.Backend, chain)
	if err != nil {
		return nil, err
	}
	p, err := pipeline.NewPipeline(strategy, analyzer, nil, s.cache.Load, s.log)
	if err != nil {
		return nil, err
	}

	if a.Reload {
		s.cache.Evict(a.Path)
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	insp := p.Inspect(a.Path, img)
	result := measureImageResult{
		Path:          a.Path,
		Outcome:       insp.Outcome.Kind(),
		Reason:        pipeline.Reason(insp.Outcome),
		Strategy:      strategy.String(),
		Backend:       string(analyzer.Backend()),
		Contours:      insp.Analysis.Contours,
		ContourPoints: len(insp.Analysis.Largest),
	}
	if m, ok := insp.Outcome.(pipeline.Measured); ok {
		result.Record = recordJSON(m.Record)
		result.Ellipse = &m.Shape.Ellipse
		result.BoundingBox = &m.Shape.Box
	}
	if a.IncludePanel {
		encoded, err := imaging.EncodePNGBase64(insp.Figure.Panel())
		if err != nil {
			return nil, err
		}
		result.Panel = encoded
		result.PanelTitle = insp.Figure.Title
		result.PanelLeft = insp.Figure.LeftTitle
		result.PanelRight = insp.Figure.RightTitle
	}
	return result, nil
}

type measureFolderArgs struct {
	Root string `json:"root"`
	measureOptions
	MaxImages int    `json:"max_images"`
	Workers   int    `json:"workers"`
	WriteCSV  bool   `json:"write_csv"`
	OutDir    string `json:"out_dir"`
}

type skippedImage struct {
	Path    string        `json:"path"`
	Outcome pipeline.Kind `json:"outcome"`
	Reason  string        `json:"reason"`
}

type measureFolderResult struct {
	Root         string                   `json:"root"`
	Strategy     string                   `json:"strategy"`
	Candidates   int                      `json:"candidates"`
	Opened       int                      `json:"opened"`
	Counts       map[pipeline.Kind]int    `json:"counts"`
	Records      []map[string]interface{} `json:"records"`
	Skipped      []skippedImage           `json:"skipped,omitempty"`
	CSVPath      string                   `json:"csv_path,omitempty"`
	ManifestPath string                   `json:"manifest_path,omitempty"`
}

func (s *Server) handleMeasureFolder(args json.RawMessage) (interface{}, error) {
	var a measureFolderArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Root == "" {
		return nil, errors.New("root is required")
	}

	cfg := s.defaults
	cfg.Root = a.Root
	cfg.Diagnostics = config.DiagnosticsOff
	cfg.MaxImages = a.MaxImages
	if a.Workers > 0 {
		cfg.Workers = a.Workers
	}
	if a.OutDir != "" {
		cfg.OutDir = a.OutDir
	}
	var err error
	if cfg.Strategy, cfg.Chain, err = a.resolve(s.defaults); err != nil {
		return nil, err
	}

	runner, err := pipeline.NewRunner(cfg, pipeline.WithLogger(s.log))
	if err != nil {
		return nil, err
	}
	report, err := runner.Run(context.Background(), cfg.Root)
	if err != nil {
		return nil, err
	}

	result := measureFolderResult{
		Root:       report.Root,
		Strategy:   cfg.Strategy.String(),
		Candidates: report.Candidates,
		Opened:     report.Opened,
		Counts:     report.Counts,
		Records:    make([]map[string]interface{}, 0, len(report.Records)),
	}
	for _, r := range report.Records {
		result.Records = append(result.Records, recordJSON(r))
	}
	for _, o := range report.Skipped() {
		result.Skipped = append(result.Skipped, skippedImage{Path: o.Path(), Outcome: o.Kind(), Reason: pipeline.Reason(o)})
	}

	if a.WriteCSV {
		result.CSVPath = export.CSVPath(cfg.Root, cfg.OutDir)
		if err := export.WriteCSVFile(result.CSVPath, report.Records); err != nil {
			return nil, err
		}
		if cfg.Manifest {
			result.ManifestPath = export.ManifestPath(cfg.Root, cfg.OutDir)
			m := export.NewManifest(s.version, cfg, report, result.CSVPath)
			if err := export.WriteManifest(result.ManifestPath, m); err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

// === Segmentation Handlers ===

type segmentImageArgs struct {
	Path string `json:"path"`
	measureOptions
}

type segmentImageResult struct {
	Strategy         string `json:"strategy"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	ForegroundPixels int    `json:"foreground_pixels"`
	Contours         int    `json:"contours"`
	LargestPoints    int    `json:"largest_contour_points"`
	Mask             string `json:"mask_png_base64"`
}

func (s *Server) handleSegmentImage(args json.RawMessage) (interface{}, error) {
	var a segmentImageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	strategy, chain, err := a.resolve(s.defaults)
	if err != nil {
		return nil, err
	}
	analyzer, err := detection.NewAnalyzer(s.defaults.Backend, chain)
	if err != nil {
		return nil, err
	}
	segment, err := detection.SegmenterFor(analyzer, strategy)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	seg := segment(imaging.ToGray(img))
	contours := detection.FindExternalContours(seg.Mask, chain)
	largest, _ := detection.LargestContour(contours)

	encoded, err := imaging.EncodePNGBase64(seg.Mask)
	if err != nil {
		return nil, err
	}
	return segmentImageResult{
		Strategy:         strategy.String(),
		Width:            seg.Mask.Rect.Dx(),
		Height:           seg.Mask.Rect.Dy(),
		ForegroundPixels: countForeground(seg.Mask),
		Contours:         len(contours),
		LargestPoints:    len(largest),
		Mask:             encoded,
	}, nil
}

func countForeground(mask *image.Gray) int {
	n := 0
	for _, v := range mask.Pix {
		if v != detection.Background {
			n++
		}
	}
	return n
}

type contrastStretchArgs struct {
	Path string   `json:"path"`
	Low  *float64 `json:"low"`
	High *float64 `json:"high"`
}

type contrastStretchResult struct {
	LowPercentile  float64 `json:"low_percentile"`
	HighPercentile float64 `json:"high_percentile"`
	LowValue       float64 `json:"low_value"`
	HighValue      float64 `json:"high_value"`
	Image          string  `json:"image_png_base64"`
}

func (s *Server) handleContrastStretch(args json.RawMessage) (interface{}, error) {
	var a contrastStretchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	low, high := imaging.DefaultLowPercentile, imaging.DefaultHighPercentile
	if a.Low != nil {
		low = *a.Low
	}
	if a.High != nil {
		high = *a.High
	}
	if low < 0 || high > 100 || low > high {
		return nil, fmt.Errorf("percentiles must satisfy 0 <= low <= high <= 100 (got %v, %v)", low, high)
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	gray := imaging.ToGray(img)
	encoded, err := imaging.EncodePNGBase64(imaging.StretchContrast(gray, low, high))
	if err != nil {
		return nil, err
	}
	return contrastStretchResult{
		LowPercentile:  low,
		HighPercentile: high,
		LowValue:       imaging.Percentile(gray, low),
		HighValue:      imaging.Percentile(gray, high),
		Image:          encoded,
	}, nil
}

// === Whole-Image Metric Handlers ===

type imagePathArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleColorMetrics(args json.RawMessage) (interface{}, error) {
	var a imagePathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.MeasureColor(img, nil), nil
}

func (s *Server) handleSharpness(args json.RawMessage) (interface{}, error) {
	var a imagePathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"sharpness": imaging.Sharpness(imaging.ToGray(img)),
	}, nil
}
