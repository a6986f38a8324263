// Package server implements the MCP (Model Context Protocol) server for
// particle linkage tools.
//
// This package provides a JSON-RPC 2.0 server that exposes the linking
// pipeline through the MCP protocol, so MCP-compatible clients can link
// detection tables, render validation maps and aggregate results without
// shelling out to the CLI.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Linking:
//   - particles_link: Link inline globule/crescent measurement arrays
//   - tables_link: Link one image's detection tables from disk
//
// Rendering:
//   - linkage_render_map: Render a linkage result as a validation map
//
// Batch:
//   - batch_link: Link every table pair in a directory
//   - results_summarize: Aggregate per-image statistics tables
//
// # Configuration
//
// The server is constructed with a pipeline configuration whose linking
// parameters act as defaults; every tool accepts a per-call override.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
// The server is typically started by an MCP client:
//
//	srv := server.New(config.Default())
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
