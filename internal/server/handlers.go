package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"time"

	"github.com/ironsheep/docprep-mcp/internal/detection"
	"github.com/ironsheep/docprep-mcp/internal/imaging"
	"github.com/ironsheep/docprep-mcp/internal/ocr"
	"github.com/ironsheep/docprep-mcp/internal/preprocess"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "document_ocr").
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
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	s.logger.Debug("tool complete", "tool", params.Name, "elapsed", time.Since(start))

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
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)

	// Region Operations
	case "image_crop":
		return s.handleImageCrop(args)

	// Edge Analysis
	case "image_edge_detect":
		return s.handleImageEdgeDetect(args)

	// Document Operations
	case "document_preprocess":
		return s.handleDocumentPreprocess(ctx, args)
	case "document_segment":
		return s.handleDocumentSegment(ctx, args)
	case "document_ocr":
		return s.handleDocumentOCR(ctx, args)
	case "ocr_info":
		return ocr.GetOCRInfo(), nil

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
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments; a missing arguments object is
// treated as empty.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	return json.Unmarshal(args, v)
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

// === Region Operation Handlers ===

type imageCropArgs struct {
	Path  string  `json:"path"`
	X1    int     `json:"x1"`
	Y1    int     `json:"y1"`
	X2    int     `json:"x2"`
	Y2    int     `json:"y2"`
	Scale float64 `json:"scale"`
}

func (s *Server) handleImageCrop(args json.RawMessage) (interface{}, error) {
	var a imageCropArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.Crop(img, a.X1, a.Y1, a.X2, a.Y2, a.Scale)
}

// === Edge Analysis Handlers ===

type imageEdgeDetectArgs struct {
	Path          string `json:"path"`
	ThresholdLow  int    `json:"threshold_low"`
	ThresholdHigh int    `json:"threshold_high"`
}

func (s *Server) handleImageEdgeDetect(args json.RawMessage) (interface{}, error) {
	var a imageEdgeDetectArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.ThresholdLow == 0 {
		a.ThresholdLow = 50
	}
	if a.ThresholdHigh == 0 {
		a.ThresholdHigh = 200
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.EdgeDetect(img, a.ThresholdLow, a.ThresholdHigh)
}

// === Document Operation Handlers ===

type documentPreprocessArgs struct {
	Path         string `json:"path"`
	Binarize     *bool  `json:"binarize"`
	IncludeImage *bool  `json:"include_image"`
}

// DocumentPreprocessResult describes a preprocessed page.
type DocumentPreprocessResult struct {
	Width       int                   `json:"width"`
	Height      int                   `json:"height"`
	Inverted    bool                  `json:"inverted"`
	Skew        preprocess.SkewResult `json:"skew"`
	Binarized   bool                  `json:"binarized"`
	ImageBase64 string                `json:"image_base64,omitempty"`
	MimeType    string                `json:"mime_type,omitempty"`
}

func (s *Server) handleDocumentPreprocess(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a documentPreprocessArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	prepared, err := s.pipeline.Prepare(ctx, img)
	if err != nil {
		return nil, err
	}

	page := prepared.Deskewed
	binarize := boolOr(a.Binarize, true)
	if binarize {
		page = prepared.Binarized
		if page == nil {
			page, err = preprocess.Binarize(prepared.Deskewed, s.pipeline.Config().Binarize)
			if err != nil {
				return nil, err
			}
		}
	}

	result := &DocumentPreprocessResult{
		Width:     page.Bounds().Dx(),
		Height:    page.Bounds().Dy(),
		Inverted:  prepared.Inverted,
		Skew:      prepared.Skew,
		Binarized: binarize,
	}
	if boolOr(a.IncludeImage, true) {
		encoded, err := imaging.EncodePNGBase64(page)
		if err != nil {
			return nil, fmt.Errorf("failed to encode processed image: %w", err)
		}
		result.ImageBase64 = encoded
		result.MimeType = "image/png"
	}
	return result, nil
}

type documentSegmentArgs struct {
	Path    string `json:"path"`
	Overlay bool   `json:"overlay"`
}

// DocumentSegmentResult lists the text blocks of a page.
type DocumentSegmentResult struct {
	Strategy detection.StrategyKind `json:"strategy"`
	Fallback bool                   `json:"fallback"`
	Count    int                    `json:"count"`
	Blocks   []detection.TextBlock  `json:"blocks"`
	Skew     preprocess.SkewResult  `json:"skew"`
	Width    int                    `json:"width"`
	Height   int                    `json:"height"`

	Overlay *imaging.OverlayResult `json:"overlay,omitempty"`
}

func (s *Server) handleDocumentSegment(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a documentSegmentArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	prepared, seg, err := s.pipeline.Segment(ctx, img)
	if err != nil {
		return nil, err
	}

	result := &DocumentSegmentResult{
		Strategy: seg.Strategy,
		Fallback: seg.Fallback,
		Count:    len(seg.Blocks),
		Blocks:   seg.Blocks,
		Skew:     prepared.Skew,
		Width:    prepared.Deskewed.Bounds().Dx(),
		Height:   prepared.Deskewed.Bounds().Dy(),
	}
	if a.Overlay {
		result.Overlay, err = imaging.EncodeBlockOverlay(prepared.Deskewed, blockRects(seg.Blocks))
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

type documentOCRArgs struct {
	Path string `json:"path"`
	Lang string `json:"lang"`
}

func (s *Server) handleDocumentOCR(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a documentOCRArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	result, err := s.pipeline.Run(ctx, img, a.Lang)
	if err != nil && result == nil {
		return nil, err
	}
	if err != nil {
		// A partial result is still useful to the client
		s.logger.Warn("document_ocr returned a partial result", "run_id", result.RunID, "error", err)
	}
	return result, nil
}

func blockRects(blocks []detection.TextBlock) []image.Rectangle {
	rects := make([]image.Rectangle, len(blocks))
	for i, b := range blocks {
		rects[i] = b.Rect()
	}
	return rects
}
