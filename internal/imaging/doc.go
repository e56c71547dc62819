// Package imaging provides the raster primitives shared by the document
// pipeline and the MCP tools.
//
// Every pipeline stage works on *image.Gray buffers anchored at (0,0). ToGray
// is the single entry point that turns an arbitrary decoded image into such a
// buffer; it always allocates, so pipeline stages never mutate caller-owned
// pixels.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, Min is inclusive (top-left), Max is exclusive (bottom-right)
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Individual image operations
// are stateless and can be called concurrently on different images.
//
// # Error Handling
//
// Malformed inputs (nil images, empty bounds, truncated pixel buffers) are
// reported with errors wrapping ErrInvalidImage. Out-of-range crop regions,
// file I/O problems and encoding failures are reported as ordinary errors.
package imaging
