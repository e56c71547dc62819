package preprocess

import (
	"image"
	"math"

	"github.com/ironsheep/docprep-mcp/internal/imaging"
)

// Binarize converts img to pure black and white with a Gaussian adaptive
// threshold.
//
// The local mean of each pixel is its Gaussian-weighted neighbourhood
// average over an opts.BlockSize square (replicated borders), rounded to 8
// bits. A pixel becomes 255 when its value exceeds mean - opts.C, and 0
// otherwise. Color input is collapsed to gray first.
func Binarize(img image.Image, opts BinarizeOptions) (*image.Gray, error) {
	g, err := imaging.ToGray(img)
	if err != nil {
		return nil, err
	}

	block := max(opts.BlockSize, 3)
	if block%2 == 0 {
		block++
	}
	mean := imaging.GaussianBlurGray(g, block, imaging.GaussianSigma(block))
	delta := int(math.Ceil(opts.C))

	for i, v := range g.Pix {
		if int(v)-int(mean.Pix[i]) > -delta {
			g.Pix[i] = 255
		} else {
			g.Pix[i] = 0
		}
	}
	return g, nil
}
