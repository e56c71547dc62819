// Package detection finds line segments and text blocks in document images.
//
// # Line Segments
//
// DetectLineSegments implements the progressive probabilistic Hough
// transform over a binary edge map. It is used by skew estimation and is
// deterministic for a fixed HoughParams.Seed.
//
// # Text Blocks
//
// DetectBlocks runs one segmentation Strategy:
//
//  1. Gaussian smoothing
//  2. Otsu global threshold, with configurable polarity
//  3. Rectangular dilation that merges strokes into regions
//  4. Bounding boxes of the outermost connected components
//  5. Left-to-right ordering and a size filter
//
// SegmentBlocks tries a primary strategy and falls back to a second one when
// the first finds nothing. LineOrientedStrategy and BlockOrientedStrategy
// return the two standard configurations.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Rectangles use inclusive top-left and exclusive bottom-right
//
// Every function here is a pure transform over its arguments and is safe to
// call concurrently.
package detection
