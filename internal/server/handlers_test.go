package server

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/globulab/globulator/internal/config"
	"github.com/globulab/globulator/internal/linker"
)

const (
	testGlobuleTable = "Area\tX\tY\tPerim.\tCirc.\n" +
		"100.000\t0.000\t0.000\t35.400\t1.000\n"
	testCrescentTable = "Area\tX\tY\tPerim.\tCirc.\n" +
		"30.000\t5.000\t0.000\t19.500\t0.992\n"
)

// writeTestTables writes one image's detection tables and returns their paths.
func writeTestTables(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	globPath := filepath.Join(dir, "DIC_test.txt")
	cresPath := filepath.Join(dir, "RG_test.txt")
	if err := os.WriteFile(globPath, []byte(testGlobuleTable), 0o644); err != nil {
		t.Fatalf("failed to write globule table: %v", err)
	}
	if err := os.WriteFile(cresPath, []byte(testCrescentTable), 0o644); err != nil {
		t.Fatalf("failed to write crescent table: %v", err)
	}
	return globPath, cresPath
}

// callTool runs one tools/call round trip and returns the response.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}

	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	}
	resp := s.handleRequest(req)
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// contentText extracts the JSON text payload from a tool response.
func contentText(t *testing.T, resp *MCPResponse) string {
	t.Helper()

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) == 0 {
		t.Fatal("Result should contain content")
	}
	text, ok := content[0]["text"].(string)
	if !ok {
		t.Fatal("content[0].text should be a string")
	}
	return text
}

func TestHandleToolsCall_ParticlesLink(t *testing.T) {
	s := New(config.Default())

	resp := callTool(t, s, "particles_link", map[string]interface{}{
		"globules": []map[string]interface{}{
			{"area": 100.0, "x": 0.0, "y": 0.0},
			{"area": 80.0, "x": 200.0, "y": 200.0},
		},
		"crescents": []map[string]interface{}{
			{"area": 30.0, "x": 5.0, "y": 0.0},
		},
	})

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	var res linker.Result
	if err := json.Unmarshal([]byte(contentText(t, resp)), &res); err != nil {
		t.Fatalf("Failed to parse result: %v", err)
	}
	if len(res.Pairs) != 1 {
		t.Fatalf("Pairs: got %d, want 1", len(res.Pairs))
	}
	if res.Summary.FreeGlobules != 1 {
		t.Errorf("FreeGlobules: got %d, want 1", res.Summary.FreeGlobules)
	}
}

func TestHandleToolsCall_ParticlesLink_ConfigOverride(t *testing.T) {
	s := New(config.Default())

	// A quarter-area floor would accept this pair; the override raises it
	// past the globule's area so the crescent is flagged instead.
	resp := callTool(t, s, "particles_link", map[string]interface{}{
		"globules":  []map[string]interface{}{{"area": 100.0, "x": 5.0, "y": 0.0}},
		"crescents": []map[string]interface{}{{"area": 30.0, "x": 0.0, "y": 0.0}},
		"config":    map[string]interface{}{"min_area_ratio": 5.0},
	})

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	var res linker.Result
	if err := json.Unmarshal([]byte(contentText(t, resp)), &res); err != nil {
		t.Fatalf("Failed to parse result: %v", err)
	}
	if len(res.Pairs) != 0 {
		t.Errorf("Pairs: got %d, want 0", len(res.Pairs))
	}
	if len(res.Ambiguous) != 1 {
		t.Errorf("Ambiguous: got %d, want 1", len(res.Ambiguous))
	}
}

func TestHandleToolsCall_TablesLink(t *testing.T) {
	s := New(config.Default())
	globPath, cresPath := writeTestTables(t)
	outDir := t.TempDir()

	resp := callTool(t, s, "tables_link", map[string]interface{}{
		"globule_path":  globPath,
		"crescent_path": cresPath,
		"output_dir":    outDir,
	})

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	text := contentText(t, resp)
	if !strings.Contains(text, `"name": "test"`) {
		t.Errorf("Result should carry the derived image name, got: %s", text)
	}

	if _, err := os.Stat(filepath.Join(outDir, "LINK_test.txt")); err != nil {
		t.Errorf("Expected LINK_test.txt in output dir: %v", err)
	}
}

func TestHandleToolsCall_TablesLink_MissingFile(t *testing.T) {
	s := New(config.Default())

	resp := callTool(t, s, "tables_link", map[string]interface{}{
		"globule_path":  "/nonexistent/DIC_x.txt",
		"crescent_path": "/nonexistent/RG_x.txt",
	})

	if resp.Error == nil {
		t.Fatal("Expected error for missing tables")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
}

func TestHandleToolsCall_LinkageRenderMap(t *testing.T) {
	s := New(config.Default())
	globPath, cresPath := writeTestTables(t)

	resp := callTool(t, s, "linkage_render_map", map[string]interface{}{
		"globule_path":  globPath,
		"crescent_path": cresPath,
		"width":         64,
		"height":        64,
	})

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	var m struct {
		Width       int    `json:"width"`
		ImageBase64 string `json:"image_base64"`
		MimeType    string `json:"mime_type"`
	}
	if err := json.Unmarshal([]byte(contentText(t, resp)), &m); err != nil {
		t.Fatalf("Failed to parse result: %v", err)
	}
	if m.Width != 64 {
		t.Errorf("Width: got %d, want 64", m.Width)
	}
	if m.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", m.MimeType)
	}
	if m.ImageBase64 == "" {
		t.Error("ImageBase64 should not be empty")
	}
}

func TestHandleToolsCall_BatchLink(t *testing.T) {
	s := New(config.Default())
	globPath, _ := writeTestTables(t)
	outDir := t.TempDir()

	resp := callTool(t, s, "batch_link", map[string]interface{}{
		"input_dir":  filepath.Dir(globPath),
		"output_dir": outDir,
	})

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	if _, err := os.Stat(filepath.Join(outDir, "STAT_test.txt")); err != nil {
		t.Errorf("Expected STAT_test.txt in output dir: %v", err)
	}
}

func TestHandleToolsCall_ResultsSummarize_EmptyDir(t *testing.T) {
	s := New(config.Default())

	resp := callTool(t, s, "results_summarize", map[string]interface{}{
		"dir": t.TempDir(),
	})

	if resp.Error == nil {
		t.Fatal("Expected error for a results dir without statistics tables")
	}
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	s := New(config.Default())

	resp := callTool(t, s, "nonexistent_tool", map[string]interface{}{})

	if resp.Error == nil {
		t.Fatal("Expected error for unknown tool")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New(config.Default())

	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`not json`),
	}
	resp := s.handleRequest(req)

	if resp.Error == nil {
		t.Fatal("Expected error for invalid params")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Error code: got %d, want -32602", resp.Error.Code)
	}
}

func TestLinkerConfig_Override(t *testing.T) {
	s := New(config.Default())

	got := s.linkerConfig(nil)
	if got != linker.DefaultConfig() {
		t.Errorf("nil override: got %+v, want defaults", got)
	}

	got = s.linkerConfig(&linker.Config{CellSize: 25})
	if got.CellSize != 25 {
		t.Errorf("CellSize: got %v, want 25", got.CellSize)
	}
	if got.SearchRadiusFactor != linker.DefaultSearchRadiusFactor {
		t.Errorf("SearchRadiusFactor should keep its default, got %v", got.SearchRadiusFactor)
	}
}

func TestImageName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/data/DIC_slide1.txt", "slide1"},
		{"/data/RG_slide1.txt", "slide1"},
		{"plain.txt", "plain"},
	}
	for _, tt := range tests {
		if got := imageName(tt.path); got != tt.want {
			t.Errorf("imageName(%s): got %s, want %s", tt.path, got, tt.want)
		}
	}
}
