package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// linkerConfigSchema is the shared schema fragment for the optional
// linking parameters a tool call may override.
func linkerConfigSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"cell_size": map[string]interface{}{
				"type":        "number",
				"description": "Spatial index cell edge length (default 50)",
				"default":     50.0,
			},
			"search_radius_factor": map[string]interface{}{
				"type":        "number",
				"description": "Search radius as a multiple of the crescent's derived radius (default 3)",
				"default":     3.0,
			},
			"min_area_ratio": map[string]interface{}{
				"type":        "number",
				"description": "Minimum globule area as a fraction of the crescent area (default 0.25)",
				"default":     0.25,
			},
		},
		"description": "Optional linking parameters. Omitted fields keep their defaults.",
	}
}

// particleArraySchema describes an inline particle measurement list.
func particleArraySchema(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type": "array",
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"area":      map[string]interface{}{"type": "number", "description": "Particle area in square pixels"},
				"x":         map[string]interface{}{"type": "number", "description": "Centroid X"},
				"y":         map[string]interface{}{"type": "number", "description": "Centroid Y"},
				"perimeter": map[string]interface{}{"type": "number", "description": "Optional perimeter"},
			},
			"required": []string{"area", "x", "y"},
		},
		"description": desc,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Linking
		{
			Name:        "particles_link",
			Description: "Link crescent particles to globule particles passed inline as measurement arrays. Returns linked pairs, free particles, ambiguous particles and summary statistics.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"globules":  particleArraySchema("Globule measurements"),
					"crescents": particleArraySchema("Crescent measurements"),
					"config":    linkerConfigSchema(),
				},
				"required": []string{"globules", "crescents"},
			},
		},
		{
			Name:        "tables_link",
			Description: "Link one image's detection tables from disk (ImageJ results format). Optionally writes the per-category result tables to an output directory.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"globule_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the globule table (DIC_ file)",
					},
					"crescent_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the crescent table (RG_ file)",
					},
					"output_dir": map[string]interface{}{
						"type":        "string",
						"description": "Optional directory for the result tables. Omit to only return the result.",
					},
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Image name used in output file names (default: derived from the globule table)",
					},
					"config": linkerConfigSchema(),
				},
				"required": []string{"globule_path", "crescent_path"},
			},
		},

		// Rendering
		{
			Name:        "linkage_render_map",
			Description: "Link one image's detection tables and render the result as a validation map: circles per particle, segments per linked pair, review rings on ambiguous particles. Returns base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"globule_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the globule table (DIC_ file)",
					},
					"crescent_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the crescent table (RG_ file)",
					},
					"contamination_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional path to the contamination table (RG_*CONT file)",
					},
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Field width in pixels (default: derived from particle extents)",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Field height in pixels (default: derived from particle extents)",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor for the rendered map. Default 1.0",
						"default":     1.0,
					},
					"config": linkerConfigSchema(),
				},
				"required": []string{"globule_path", "crescent_path"},
			},
		},

		// Batch
		{
			Name:        "batch_link",
			Description: "Discover and link every DIC_/RG_ table pair in a directory, writing result tables (and optionally maps) to an output directory. Failed images are reported, not fatal.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"input_dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory holding the detection tables",
					},
					"output_dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory for the result tables",
					},
					"render_maps": map[string]interface{}{
						"type":        "boolean",
						"description": "Whether to render a validation map per image (default false)",
						"default":     false,
					},
					"workers": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum images processed concurrently (default: CPU count)",
					},
					"config": linkerConfigSchema(),
				},
				"required": []string{"input_dir", "output_dir"},
			},
		},
		{
			Name:        "results_summarize",
			Description: "Aggregate the per-image STAT_ tables in a results directory into batch totals and write the summary table.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"dir": map[string]interface{}{
						"type":        "string",
						"description": "Results directory holding STAT_ tables",
					},
				},
				"required": []string{"dir"},
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
