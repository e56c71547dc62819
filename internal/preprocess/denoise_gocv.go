//go:build gocv

package preprocess

import (
	"image"
	"log/slog"

	"gocv.io/x/gocv"
)

// Denoise applies non-local-means smoothing to g using OpenCV's
// fastNlMeansDenoising and returns a new image.
//
// If the Mat cannot be built the pure Go filter is used instead.
func Denoise(g *image.Gray, opts DenoiseOptions) *image.Gray {
	b := g.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return image.NewGray(image.Rect(0, 0, width, height))
	}

	packed := make([]byte, width*height)
	for y := 0; y < height; y++ {
		copy(packed[y*width:(y+1)*width], g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):])
	}

	src, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC1, packed)
	if err != nil {
		slog.Warn("opencv mat creation failed, using go denoiser", "error", err)
		return nlMeans(g, opts)
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	gocv.FastNlMeansDenoisingWithParams(src, &dst, float32(opts.H), opts.TemplateWindow, opts.SearchWindow)

	out := image.NewGray(image.Rect(0, 0, width, height))
	copy(out.Pix, dst.ToBytes())
	return out
}

// DenoiseBackend names the active implementation.
func DenoiseBackend() string {
	return "opencv"
}
