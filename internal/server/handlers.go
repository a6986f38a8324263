package server

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/globulab/globulator/internal/batch"
	"github.com/globulab/globulator/internal/linker"
	"github.com/globulab/globulator/internal/particle"
	"github.com/globulab/globulator/internal/render"
	"github.com/globulab/globulator/internal/tables"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "particles_link", "tables_link").
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
//  2. Applies default values for optional parameters
//  3. Reads detection tables as needed
//  4. Calls the appropriate linker/render/batch function
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Linking
	case "particles_link":
		return s.handleParticlesLink(args)
	case "tables_link":
		return s.handleTablesLink(args)

	// Rendering
	case "linkage_render_map":
		return s.handleLinkageRenderMap(args)

	// Batch
	case "batch_link":
		return s.handleBatchLink(args)
	case "results_summarize":
		return s.handleResultsSummarize(args)

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

// linkerConfig overlays a per-call override on the server's defaults.
// Zero-valued fields keep the defaults, matching the tool schemas.
func (s *Server) linkerConfig(override *linker.Config) linker.Config {
	cfg := s.cfg.Linker
	if override == nil {
		return cfg
	}
	if override.CellSize != 0 {
		cfg.CellSize = override.CellSize
	}
	if override.SearchRadiusFactor != 0 {
		cfg.SearchRadiusFactor = override.SearchRadiusFactor
	}
	if override.MinAreaRatio != 0 {
		cfg.MinAreaRatio = override.MinAreaRatio
	}
	return cfg
}

// imageName derives the output name from a detection table path.
func imageName(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name = strings.TrimPrefix(name, tables.PrefixGlobuleTable)
	return strings.TrimPrefix(name, tables.PrefixCrescentTable)
}

// === Linking Handlers ===

type inlineParticle struct {
	Area      float64 `json:"area"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Perimeter float64 `json:"perimeter"`
}

type particlesLinkArgs struct {
	Globules  []inlineParticle `json:"globules"`
	Crescents []inlineParticle `json:"crescents"`
	Config    *linker.Config   `json:"config,omitempty"`
}

func toStore(pop particle.Population, in []inlineParticle) *particle.Store {
	ps := make([]*particle.Particle, len(in))
	for i, p := range in {
		ps[i] = particle.New(i+1, pop, p.X, p.Y, p.Area, p.Perimeter)
	}
	return particle.NewStore(pop, ps)
}

func (s *Server) handleParticlesLink(args json.RawMessage) (interface{}, error) {
	var a particlesLinkArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return linker.Link(toStore(particle.Globule, a.Globules), toStore(particle.Crescent, a.Crescents), s.linkerConfig(a.Config))
}

type tablesLinkArgs struct {
	GlobulePath  string         `json:"globule_path"`
	CrescentPath string         `json:"crescent_path"`
	OutputDir    string         `json:"output_dir"`
	Name         string         `json:"name"`
	Config       *linker.Config `json:"config,omitempty"`
}

// tablesLinkResult pairs the image name with its full linkage result.
type tablesLinkResult struct {
	Name   string         `json:"name"`
	Result *linker.Result `json:"result"`
}

func (s *Server) handleTablesLink(args json.RawMessage) (interface{}, error) {
	var a tablesLinkArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Name == "" {
		a.Name = imageName(a.GlobulePath)
	}

	globs, err := tables.ReadTable(a.GlobulePath, particle.Globule)
	if err != nil {
		return nil, err
	}
	cress, err := tables.ReadTable(a.CrescentPath, particle.Crescent)
	if err != nil {
		return nil, err
	}

	res, err := linker.Link(globs, cress, s.linkerConfig(a.Config))
	if err != nil {
		return nil, err
	}

	if a.OutputDir != "" {
		w := &tables.Writer{Dir: a.OutputDir}
		if err := w.WriteAll(a.Name, res); err != nil {
			return nil, err
		}
	}
	return &tablesLinkResult{Name: a.Name, Result: res}, nil
}

// === Rendering Handlers ===

type linkageRenderMapArgs struct {
	GlobulePath       string         `json:"globule_path"`
	CrescentPath      string         `json:"crescent_path"`
	ContaminationPath string         `json:"contamination_path"`
	Width             int            `json:"width"`
	Height            int            `json:"height"`
	Scale             float64        `json:"scale"`
	Config            *linker.Config `json:"config,omitempty"`
}

func (s *Server) handleLinkageRenderMap(args json.RawMessage) (interface{}, error) {
	var a linkageRenderMapArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}

	globs, err := tables.ReadTable(a.GlobulePath, particle.Globule)
	if err != nil {
		return nil, err
	}
	cress, err := tables.ReadTable(a.CrescentPath, particle.Crescent)
	if err != nil {
		return nil, err
	}

	var contamination []*particle.Particle
	if a.ContaminationPath != "" {
		cont, err := tables.ReadTable(a.ContaminationPath, particle.Contamination)
		if err != nil {
			return nil, err
		}
		contamination = cont.Particles
	}

	res, err := linker.Link(globs, cress, s.linkerConfig(a.Config))
	if err != nil {
		return nil, err
	}
	return render.LinkageMap(nil, res, contamination, render.Options{Width: a.Width, Height: a.Height, Scale: a.Scale})
}

// === Batch Handlers ===

type batchLinkArgs struct {
	InputDir   string         `json:"input_dir"`
	OutputDir  string         `json:"output_dir"`
	RenderMaps bool           `json:"render_maps"`
	Workers    int            `json:"workers"`
	Config     *linker.Config `json:"config,omitempty"`
}

func (s *Server) handleBatchLink(args json.RawMessage) (interface{}, error) {
	var a batchLinkArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	cfg := s.cfg
	cfg.InputDir = a.InputDir
	cfg.OutputDir = a.OutputDir
	cfg.RenderMaps = a.RenderMaps
	cfg.Linker = s.linkerConfig(a.Config)
	if a.Workers > 0 {
		cfg.Workers = a.Workers
	}
	return batch.Run(context.Background(), cfg)
}

type resultsSummarizeArgs struct {
	Dir string `json:"dir"`
}

func (s *Server) handleResultsSummarize(args json.RawMessage) (interface{}, error) {
	var a resultsSummarizeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return tables.Summarize(a.Dir)
}
