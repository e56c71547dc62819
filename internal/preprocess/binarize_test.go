package preprocess

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/docprep-mcp/internal/imaging"
)

func TestBinarize_UniformIsWhite(t *testing.T) {
	out, err := Binarize(blankGray(20, 20, 90), DefaultBinarizeOptions())
	require.NoError(t, err)
	for _, v := range out.Pix {
		assert.Equal(t, uint8(255), v)
	}
}

func TestBinarize_DarkMarkOnLightPaper(t *testing.T) {
	g := blankGray(40, 40, 220)
	fillRect(g, image.Rect(18, 18, 23, 23), 40)

	out, err := Binarize(g, DefaultBinarizeOptions())
	require.NoError(t, err)
	assert.Equal(t, uint8(0), out.GrayAt(20, 20).Y)
	assert.Equal(t, uint8(255), out.GrayAt(5, 5).Y)
	assert.Equal(t, uint8(255), out.GrayAt(30, 20).Y)
}

func TestBinarize_IlluminationGradient(t *testing.T) {
	// Paper brightens left to right; ink is always 60 below the paper.
	g := image.NewGray(image.Rect(0, 0, 100, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 100; x++ {
			g.SetGray(x, y, color.Gray{Y: uint8(100 + x)})
		}
	}
	fillRect(g, image.Rect(10, 13, 12, 17), 50)
	fillRect(g, image.Rect(90, 13, 92, 17), 130)

	out, err := Binarize(g, DefaultBinarizeOptions())
	require.NoError(t, err)
	assert.Equal(t, uint8(0), out.GrayAt(11, 15).Y)
	assert.Equal(t, uint8(0), out.GrayAt(91, 15).Y)
	assert.Equal(t, uint8(255), out.GrayAt(50, 5).Y)
}

func TestBinarize_ColorInput(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	out, err := Binarize(img, DefaultBinarizeOptions())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 20), out.Bounds())
	assert.Equal(t, uint8(255), out.Pix[0])
}

func TestBinarize_Invalid(t *testing.T) {
	_, err := Binarize(nil, DefaultBinarizeOptions())
	assert.ErrorIs(t, err, imaging.ErrInvalidImage)
}
