// Package preprocess normalizes document images before segmentation.
//
// The stages are pure functions over *image.Gray buffers. Each returns a new
// buffer and never modifies its input:
//
//   - NormalizePolarity: light background, dark ink
//   - Denoise: non-local-means smoothing
//   - EstimateSkew: dominant text-line angle from Canny edges and a
//     probabilistic Hough transform, averaged on the circle
//   - Rotate: pad, rotate about the centre and grow the canvas so nothing
//     is clipped
//   - Binarize: Gaussian adaptive threshold to pure black and white
//
// Expected "nothing to do" outcomes of skew estimation are reported through
// SkewResult.Status, never as errors.
package preprocess
