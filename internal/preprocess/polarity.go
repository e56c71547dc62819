package preprocess

import (
	"image"

	"github.com/ironsheep/docprep-mcp/internal/imaging"
)

// PolarityThreshold is the mean intensity below which an image is treated
// as light-on-dark and inverted.
const PolarityThreshold = 127

// NormalizePolarity returns a copy of g with a light background.
//
// If the mean sample value is below PolarityThreshold every sample v becomes
// 255 - v; otherwise the copy is unchanged. The second return value reports
// whether inversion happened. Applying NormalizePolarity to its own output
// never inverts again.
func NormalizePolarity(g *image.Gray) (*image.Gray, bool) {
	if imaging.MeanIntensity(g) < PolarityThreshold {
		return imaging.Invert(g), true
	}
	return imaging.Clone(g), false
}
