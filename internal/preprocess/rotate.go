package preprocess

import (
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/ironsheep/docprep-mcp/internal/imaging"
)

// RotationMatrix returns the 2x3 affine matrix rotating by angle degrees
// about (cx, cy). Positive angles turn the content counter-clockwise on
// screen.
func RotationMatrix(cx, cy, angle float64) f64.Aff3 {
	rad := angle * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)
	return f64.Aff3{
		c, s, (1-c)*cx - s*cy,
		-s, c, s*cx + (1-c)*cy,
	}
}

// Rotate pads g by padding background samples on every side, then rotates it
// by angle degrees about the padded centre.
//
// The canvas grows to the bounding box of the rotated padded image so no
// content is clipped. Samples are resampled bilinearly; canvas areas with no
// source data are filled with imaging.BackgroundValue.
func Rotate(g *image.Gray, angle float64, padding int) (*image.Gray, error) {
	if err := imaging.Validate(g); err != nil {
		return nil, err
	}

	padded := imaging.Pad(g, padding, imaging.BackgroundValue)
	w, h := padded.Bounds().Dx(), padded.Bounds().Dy()
	cx, cy := float64(w/2), float64(h/2)

	m := RotationMatrix(cx, cy, angle)
	cos, sin := math.Abs(m[0]), math.Abs(m[1])
	newW := int(float64(h)*sin + float64(w)*cos)
	newH := int(float64(h)*cos + float64(w)*sin)
	m[2] += float64(newW)/2 - cx
	m[5] += float64(newH)/2 - cy

	// The matrix maps pixel indices; draw works on pixel centres.
	m[2] += 0.5 - 0.5*(m[0]+m[1])
	m[5] += 0.5 - 0.5*(m[3]+m[4])

	dst := image.NewGray(image.Rect(0, 0, newW, newH))
	for i := range dst.Pix {
		dst.Pix[i] = imaging.BackgroundValue
	}
	draw.BiLinear.Transform(dst, m, padded, padded.Bounds(), draw.Src, nil)
	return dst, nil
}
