package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// pathProperty is the schema of the image path argument shared by most tools.
func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to a PNG or JPEG image",
	}
}

func strategyProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        []string{"mean", "adaptive-mean", "fixed", "original"},
		"description": "Thresholding strategy. Defaults to the server's configured strategy",
	}
}

func chainProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        []string{"none", "simple"},
		"description": "Contour chain approximation. Defaults to the server's configured mode",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Measurement
		{
			Name:        "measure_image",
			Description: "Segment an image, find its largest object and measure it: ellipse axes, area, perimeter, circularity, bounding box, color and sharpness. Reports why no measurement was possible when the object is missing or too small.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":     pathProperty(),
					"strategy": strategyProperty(),
					"chain":    chainProperty(),
					"include_panel": map[string]interface{}{
						"type":        "boolean",
						"description": "Also return the diagnostic panel (original next to contour overlay or binary image) as base64 PNG. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "measure_folder",
			Description: "Measure every .png and .jpg image under a folder, recursively. Returns one record per measured image plus the skipped images with their reasons, and optionally writes the ellipse_data_<folder>.csv table.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"root": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the folder to process",
					},
					"strategy": strategyProperty(),
					"chain":    chainProperty(),
					"max_images": map[string]interface{}{
						"type":        "integer",
						"description": "Open at most this many images. 0 processes all of them. Default 0",
						"default":     0,
						"minimum":     0,
					},
					"workers": map[string]interface{}{
						"type":        "integer",
						"description": "Number of images measured concurrently. Default from server configuration",
						"minimum":     1,
					},
					"write_csv": map[string]interface{}{
						"type":        "boolean",
						"description": "Write the CSV table (and the YAML manifest if enabled) next to the folder. Default false",
						"default":     false,
					},
					"out_dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory for the CSV instead of the folder's parent",
					},
				},
				"required": []string{"root"},
			},
		},

		// Segmentation
		{
			Name:        "segment_image",
			Description: "Threshold an image with the selected strategy and return the binary mask as base64 PNG together with the number of external contours and foreground pixels.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":     pathProperty(),
					"strategy": strategyProperty(),
					"chain":    chainProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "contrast_stretch",
			Description: "Rescale the grayscale image so the low and high percentiles map to 0 and 255. Returns the stretched image as base64 PNG and the percentile values used.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"low": map[string]interface{}{
						"type":        "number",
						"description": "Low percentile (0-100). Default 2",
						"default":     2.0,
					},
					"high": map[string]interface{}{
						"type":        "number",
						"description": "High percentile (0-100). Default 98",
						"default":     98.0,
					},
				},
				"required": []string{"path"},
			},
		},

		// Whole-image metrics
		{
			Name:        "color_metrics",
			Description: "Mean red, green, blue and gray levels, mean HSV saturation (0-255) and the Hasler-Süsstrunk colorfulness of the whole image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "sharpness",
			Description: "Focus score: variance of the Laplacian of the grayscale image. Higher is sharper.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
