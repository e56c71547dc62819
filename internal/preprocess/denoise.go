//go:build !gocv

package preprocess

import "image"

// Denoise applies non-local-means smoothing to g and returns a new image.
//
// This build uses the pure Go filter. Building with -tags gocv delegates to
// OpenCV's fastNlMeansDenoising with the same parameters.
func Denoise(g *image.Gray, opts DenoiseOptions) *image.Gray {
	return nlMeans(g, opts)
}

// DenoiseBackend names the active implementation.
func DenoiseBackend() string {
	return "go"
}
