package imaging

import (
	"image"
	"math"
)

// GaussianSigma returns the standard deviation implied by a kernel size when
// no explicit sigma is requested: 0.3*((ksize-1)*0.5 - 1) + 0.8.
func GaussianSigma(ksize int) float64 {
	return 0.3*((float64(ksize)-1)*0.5-1) + 0.8
}

// GaussianKernel returns a normalized 1-D Gaussian kernel of odd length ksize.
//
// A non-positive sigma is replaced by GaussianSigma(ksize). Even sizes are
// bumped to the next odd size.
func GaussianKernel(ksize int, sigma float64) []float64 {
	if ksize < 1 {
		ksize = 1
	}
	if ksize%2 == 0 {
		ksize++
	}
	if sigma <= 0 {
		sigma = GaussianSigma(ksize)
	}

	kernel := make([]float64, ksize)
	half := ksize / 2
	var sum float64
	for i := range kernel {
		d := float64(i - half)
		kernel[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// GaussianBlurGray smooths g with a separable ksize x ksize Gaussian.
//
// Border samples are replicated. The result is rounded back to 8 bits and
// anchored at (0,0).
func GaussianBlurGray(g *image.Gray, ksize int, sigma float64) *image.Gray {
	b := g.Bounds()
	width, height := b.Dx(), b.Dy()
	kernel := GaussianKernel(ksize, sigma)
	half := len(kernel) / 2

	// Horizontal pass into a float buffer
	tmp := make([]float64, width*height)
	for y := 0; y < height; y++ {
		row := g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < width; x++ {
			var sum float64
			for k := -half; k <= half; k++ {
				px := clamp(x+k, 0, width-1)
				sum += float64(row[px]) * kernel[k+half]
			}
			tmp[y*width+x] = sum
		}
	}

	// Vertical pass
	dst := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sum float64
			for k := -half; k <= half; k++ {
				py := clamp(y+k, 0, height-1)
				sum += tmp[py*width+x] * kernel[k+half]
			}
			dst.Pix[y*dst.Stride+x] = uint8(math.Min(255, math.Max(0, math.Round(sum))))
		}
	}
	return dst
}
