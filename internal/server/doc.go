// Package server implements the MCP (Model Context Protocol) server for document
// preprocessing and text-block recognition.
//
// This package provides a JSON-RPC 2.0 server that exposes the docprep pipeline
// through the MCP protocol, so MCP-compatible clients can clean up photographed
// or scanned pages, inspect the detected text blocks and read the page text.
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
// Basic Image Information:
//   - image_load: Load image and get metadata
//
// Region Operations:
//   - image_crop: Extract rectangular region
//
// Edge Analysis:
//   - image_edge_detect: Canny edge detection
//
// Document Operations:
//   - document_preprocess: Grayscale, polarity, denoise, deskew and binarize a page
//   - document_segment: Detect text blocks, optionally with a labelled overlay
//   - document_ocr: Run the full pipeline and recognize every block
//   - ocr_info: Report the recognition backend and installed languages
//
// # Image Caching
//
// The server maintains an in-memory cache of loaded images. Images are cached
// by path and reused across multiple tool calls, avoiding redundant disk I/O.
// The cache persists for the lifetime of the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// A document_ocr call interrupted by cancellation still returns its partial
// result with "partial": true.
//
// # Usage
//
// The server is typically started by an MCP client through the serve command:
//
//	srv := server.New(server.WithVersion(version))
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
