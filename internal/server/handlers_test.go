package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/object-metrics/internal/imaging"
)

// createTestImageFile writes img as a PNG named name inside dir and returns
// its path.
func createTestImageFile(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()

	path := filepath.Join(dir, name)
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

// objectImage is a black w x h image with a white rectangle [x0,x1) x [y0,y1).
func objectImage(w, h, x0, y0, x1, y1 int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{0, 0, 0, 255}
			if x >= x0 && x < x1 && y >= y0 && y < y1 {
				c = color.RGBA{255, 255, 255, 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// callTool runs a tools/call request and decodes the JSON text content.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) (map[string]interface{}, *MCPError) {
	t.Helper()

	params, _ := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	content := resp.Result.(map[string]interface{})["content"].([]map[string]interface{})
	if len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("unexpected content: %v", content)
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), &out); err != nil {
		t.Fatalf("tool result is not JSON: %v", err)
	}
	return out, nil
}

// decodePNG decodes a base64 PNG returned by a tool.
func decodePNG(t *testing.T, encoded interface{}) image.Image {
	t.Helper()
	s, ok := encoded.(string)
	if !ok || s == "" {
		t.Fatalf("expected base64 data, got %v", encoded)
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
	return img
}

func TestHandleToolsCall_MeasureImage(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, t.TempDir(), "rect.png", objectImage(80, 60, 10, 10, 50, 40))

	result, rpcErr := callTool(t, s, "measure_image", map[string]interface{}{"path": path, "include_panel": true})
	if rpcErr != nil {
		t.Fatalf("Unexpected error: %v", rpcErr)
	}

	if result["outcome"] != "measured" {
		t.Fatalf("outcome: got %v", result["outcome"])
	}
	record := result["record"].(map[string]interface{})
	if record["object_width"] != float64(40) || record["object_height"] != float64(30) {
		t.Errorf("size: %v x %v", record["object_width"], record["object_height"])
	}
	if record["filename"] != "rect.png" {
		t.Errorf("filename: got %v", record["filename"])
	}
	if result["strategy"] != "mean" || result["backend"] != "native" {
		t.Errorf("strategy/backend: %v / %v", result["strategy"], result["backend"])
	}

	panel := decodePNG(t, result["panel_png_base64"])
	// The right title "contour length: 136" starts 4px into the right half and
	// runs past its edge, widening the canvas.
	if panel.Bounds().Dx() != 80+8+4+19*7+4 || panel.Bounds().Dy() != imaging.PanelHeaderHeight+60 {
		t.Errorf("panel size: got %v", panel.Bounds())
	}
	if result["panel_right_title"] != "contour length: 136" {
		t.Errorf("right title: got %v", result["panel_right_title"])
	}
}

func TestHandleToolsCall_MeasureImage_FixedStrategy(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, t.TempDir(), "rect.png", objectImage(80, 60, 10, 10, 50, 40))

	result, rpcErr := callTool(t, s, "measure_image", map[string]interface{}{"path": path, "strategy": "original"})
	if rpcErr != nil {
		t.Fatalf("Unexpected error: %v", rpcErr)
	}
	record := result["record"].(map[string]interface{})
	if record["object_width"] != float64(32) || record["object_height"] != float64(22) {
		t.Errorf("size: %v x %v, want 32 x 22", record["object_width"], record["object_height"])
	}
	if _, ok := result["panel_png_base64"]; ok {
		t.Error("panel should only be returned on request")
	}
}

func TestHandleToolsCall_MeasureImage_NoContour(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, t.TempDir(), "blank.png", solidImage(30, 30, color.Black))

	result, rpcErr := callTool(t, s, "measure_image", map[string]interface{}{"path": path})
	if rpcErr != nil {
		t.Fatalf("Unexpected error: %v", rpcErr)
	}
	if result["outcome"] != "no_contour" || result["reason"] != "no contour was found" {
		t.Errorf("got %v / %v", result["outcome"], result["reason"])
	}
	if _, ok := result["record"]; ok {
		t.Error("a skipped image must not carry a record")
	}
}

func TestHandleToolsCall_MeasureFolder(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "batch")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	createTestImageFile(t, root, "rect.png", objectImage(80, 60, 10, 10, 50, 40))
	createTestImageFile(t, root, "blank.png", solidImage(30, 30, color.Black))

	s := newTestServer()
	result, rpcErr := callTool(t, s, "measure_folder", map[string]interface{}{"root": root, "write_csv": true})
	if rpcErr != nil {
		t.Fatalf("Unexpected error: %v", rpcErr)
	}

	if result["opened"] != float64(2) {
		t.Errorf("opened: got %v", result["opened"])
	}
	if records := result["records"].([]interface{}); len(records) != 1 {
		t.Errorf("records: got %d, want 1", len(records))
	}
	if skipped := result["skipped"].([]interface{}); len(skipped) != 1 {
		t.Errorf("skipped: got %d, want 1", len(skipped))
	}

	csvPath := filepath.Join(base, "ellipse_data_batch.csv")
	if result["csv_path"] != csvPath {
		t.Errorf("csv_path: got %v, want %s", result["csv_path"], csvPath)
	}
	if _, err := os.Stat(csvPath); err != nil {
		t.Errorf("csv not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "ellipse_data_batch.yaml")); err != nil {
		t.Errorf("manifest not written: %v", err)
	}
}

func TestHandleToolsCall_MeasureFolder_MissingRoot(t *testing.T) {
	s := newTestServer()
	_, rpcErr := callTool(t, s, "measure_folder", map[string]interface{}{"root": filepath.Join(t.TempDir(), "nope")})
	if rpcErr == nil || rpcErr.Code != -32000 {
		t.Errorf("expected a tool execution error, got %v", rpcErr)
	}
}

func TestHandleToolsCall_SegmentImage(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, t.TempDir(), "rect.png", objectImage(80, 60, 10, 10, 50, 40))

	result, rpcErr := callTool(t, s, "segment_image", map[string]interface{}{"path": path})
	if rpcErr != nil {
		t.Fatalf("Unexpected error: %v", rpcErr)
	}
	if result["foreground_pixels"] != float64(1200) || result["contours"] != float64(1) {
		t.Errorf("got %v pixels in %v contours", result["foreground_pixels"], result["contours"])
	}
	mask := decodePNG(t, result["mask_png_base64"])
	if mask.Bounds().Dx() != 80 || mask.Bounds().Dy() != 60 {
		t.Errorf("mask size: got %v", mask.Bounds())
	}
}

func TestHandleToolsCall_ContrastStretch(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, t.TempDir(), "gray.png", solidImage(20, 20, color.Gray{Y: 100}))

	result, rpcErr := callTool(t, s, "contrast_stretch", map[string]interface{}{"path": path})
	if rpcErr != nil {
		t.Fatalf("Unexpected error: %v", rpcErr)
	}
	if result["low_value"] != float64(100) || result["high_value"] != float64(100) {
		t.Errorf("percentiles: %v / %v", result["low_value"], result["high_value"])
	}
	decodePNG(t, result["image_png_base64"])

	_, rpcErr = callTool(t, s, "contrast_stretch", map[string]interface{}{"path": path, "low": 90, "high": 10})
	if rpcErr == nil {
		t.Error("low > high should fail")
	}
}

func TestHandleToolsCall_ColorMetrics(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, t.TempDir(), "gray.png", solidImage(20, 20, color.RGBA{90, 90, 90, 255}))

	result, rpcErr := callTool(t, s, "color_metrics", map[string]interface{}{"path": path})
	if rpcErr != nil {
		t.Fatalf("Unexpected error: %v", rpcErr)
	}
	if result["red"] != float64(90) || result["colorfulness"] != float64(0) || result["saturation"] != float64(0) {
		t.Errorf("unexpected metrics: %v", result)
	}
}

func TestHandleToolsCall_Sharpness(t *testing.T) {
	s := newTestServer()
	dir := t.TempDir()
	flat := createTestImageFile(t, dir, "flat.png", solidImage(20, 20, color.White))
	edge := createTestImageFile(t, dir, "edge.png", objectImage(20, 20, 5, 5, 15, 15))

	flatResult, rpcErr := callTool(t, s, "sharpness", map[string]interface{}{"path": flat})
	if rpcErr != nil {
		t.Fatalf("Unexpected error: %v", rpcErr)
	}
	edgeResult, rpcErr := callTool(t, s, "sharpness", map[string]interface{}{"path": edge})
	if rpcErr != nil {
		t.Fatalf("Unexpected error: %v", rpcErr)
	}

	if flatResult["sharpness"] != float64(0) {
		t.Errorf("flat image: got %v", flatResult["sharpness"])
	}
	if edgeResult["sharpness"].(float64) <= 0 {
		t.Errorf("edge image: got %v", edgeResult["sharpness"])
	}
}

func TestHandleToolsCall_Errors(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, t.TempDir(), "x.png", solidImage(10, 10, color.White))

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
	}{
		{"unknown tool", "image_crop", map[string]interface{}{"path": path}},
		{"missing file", "sharpness", map[string]interface{}{"path": "/nonexistent/file.png"}},
		{"missing path", "measure_image", map[string]interface{}{}},
		{"bad strategy", "measure_image", map[string]interface{}{"path": path, "strategy": "otsu"}},
		{"bad chain", "segment_image", map[string]interface{}{"path": path, "chain": "tc89"}},
		{"missing root", "measure_folder", map[string]interface{}{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rpcErr := callTool(t, s, tt.tool, tt.args)
			if rpcErr == nil {
				t.Fatal("expected an error")
			}
			if rpcErr.Code != -32000 {
				t.Errorf("code: got %d, want -32000", rpcErr.Code)
			}
		})
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer()
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: json.RawMessage(`{invalid`)})
	if resp == nil || resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("expected -32602, got %+v", resp)
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := newTestServer()
	if _, err := s.executeTool("sharpness", json.RawMessage(`{invalid`)); err == nil {
		t.Error("executeTool should fail for invalid JSON")
	}
}

func TestFinite(t *testing.T) {
	if finite(math.NaN()) != nil || finite(math.Inf(1)) != nil {
		t.Error("non-finite values should map to nil")
	}
	if finite(1.5) != 1.5 {
		t.Error("finite values should pass through")
	}
}
