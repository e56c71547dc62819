package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// uniformGray returns a w x h gray image filled with v.
func uniformGray(w, h int, v uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

func createInMemoryImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		img     image.Image
		wantErr bool
	}{
		{"nil", nil, true},
		{"typed nil gray", (*image.Gray)(nil), true},
		{"empty bounds", image.NewGray(image.Rect(0, 0, 0, 0)), true},
		{"short gray buffer", &image.Gray{Pix: make([]uint8, 2), Stride: 2, Rect: image.Rect(0, 0, 2, 2)}, true},
		{"short rgba buffer", &image.RGBA{Pix: make([]uint8, 4), Stride: 8, Rect: image.Rect(0, 0, 2, 2)}, true},
		{"typed nil gray16", (*image.Gray16)(nil), true},
		{"typed nil ycbcr", (*image.YCbCr)(nil), true},
		{"typed nil paletted", (*image.Paletted)(nil), true},
		{"short gray16 buffer", &image.Gray16{Pix: make([]uint8, 6), Stride: 4, Rect: image.Rect(0, 0, 2, 2)}, true},
		{"short rgba64 buffer", &image.RGBA64{Pix: make([]uint8, 16), Stride: 16, Rect: image.Rect(0, 0, 2, 2)}, true},
		{"short nrgba64 buffer", &image.NRGBA64{Pix: make([]uint8, 16), Stride: 16, Rect: image.Rect(0, 0, 2, 2)}, true},
		{"short cmyk buffer", &image.CMYK{Pix: make([]uint8, 4), Stride: 8, Rect: image.Rect(0, 0, 2, 2)}, true},
		{"short ycbcr luma", truncatedYCbCr(image.YCbCrSubsampleRatio420, "y"), true},
		{"short ycbcr cb", truncatedYCbCr(image.YCbCrSubsampleRatio420, "cb"), true},
		{"short ycbcr cr", truncatedYCbCr(image.YCbCrSubsampleRatio422, "cr"), true},
		{"empty palette", image.NewPaletted(image.Rect(0, 0, 2, 2), nil), true},
		{"palette index out of range", outOfRangePaletted(), true},
		{"gray", image.NewGray(image.Rect(0, 0, 3, 3)), false},
		{"rgba", image.NewRGBA(image.Rect(0, 0, 3, 3)), false},
		{"gray16", image.NewGray16(image.Rect(0, 0, 3, 3)), false},
		{"cmyk", image.NewCMYK(image.Rect(0, 0, 3, 3)), false},
		{"ycbcr 420", image.NewYCbCr(image.Rect(0, 0, 5, 5), image.YCbCrSubsampleRatio420), false},
		{"ycbcr 410 odd origin", image.NewYCbCr(image.Rect(3, 1, 10, 8), image.YCbCrSubsampleRatio410), false},
		{"ycbcr sub-image", image.NewYCbCr(image.Rect(0, 0, 8, 8), image.YCbCrSubsampleRatio420).SubImage(image.Rect(3, 3, 7, 7)), false},
		{"nycbcra", image.NewNYCbCrA(image.Rect(0, 0, 4, 4), image.YCbCrSubsampleRatio444), false},
		{"paletted", image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{color.White}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.img)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidImage)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// truncatedYCbCr returns a 100x100 YCbCr image with one plane cut short.
func truncatedYCbCr(ratio image.YCbCrSubsampleRatio, plane string) *image.YCbCr {
	m := image.NewYCbCr(image.Rect(0, 0, 100, 100), ratio)
	switch plane {
	case "y":
		m.Y = m.Y[:10]
	case "cb":
		m.Cb = m.Cb[:len(m.Cb)-1]
	case "cr":
		m.Cr = m.Cr[:len(m.Cr)/2]
	}
	return m
}

func outOfRangePaletted() *image.Paletted {
	m := image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{color.Black, color.White})
	m.Pix[3] = 7
	return m
}

// brokenImage reports valid bounds but panics when sampled.
type brokenImage struct{}

func (brokenImage) ColorModel() color.Model { return color.GrayModel }
func (brokenImage) Bounds() image.Rectangle { return image.Rect(0, 0, 4, 4) }
func (brokenImage) At(x, y int) color.Color  { panic("no pixel data") }

func TestToGray_CorruptInputs(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
	}{
		{"short ycbcr luma", truncatedYCbCr(image.YCbCrSubsampleRatio420, "y")},
		{"typed nil gray16", (*image.Gray16)(nil)},
		{"typed nil nrgba64", (*image.NRGBA64)(nil)},
		{"panicking image", brokenImage{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var g *image.Gray
			var err error
			require.NotPanics(t, func() { g, err = ToGray(tt.img) })
			assert.ErrorIs(t, err, ErrInvalidImage)
			assert.Nil(t, g)
		})
	}
}

func TestToGray_YCbCr(t *testing.T) {
	m := image.NewYCbCr(image.Rect(0, 0, 6, 4), image.YCbCrSubsampleRatio420)
	for i := range m.Y {
		m.Y[i] = 200
	}
	for i := range m.Cb {
		m.Cb[i], m.Cr[i] = 128, 128
	}

	g, err := ToGray(m)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 6, 4), g.Bounds())
	for _, v := range g.Pix {
		assert.InDelta(t, 200, int(v), 1)
	}
}

func TestChannels(t *testing.T) {
	assert.Equal(t, 1, Channels(image.NewGray(image.Rect(0, 0, 1, 1))))
	assert.Equal(t, 3, Channels(image.NewRGBA(image.Rect(0, 0, 1, 1))))
	assert.Equal(t, 3, Channels(image.NewNRGBA(image.Rect(0, 0, 1, 1))))
}

func TestToGray_ColorWeights(t *testing.T) {
	tests := []struct {
		name string
		c    color.RGBA
		want uint8
	}{
		{"white", color.RGBA{255, 255, 255, 255}, 255},
		{"black", color.RGBA{0, 0, 0, 255}, 0},
		{"red", color.RGBA{255, 0, 0, 255}, 76},
		{"green", color.RGBA{0, 255, 0, 255}, 150},
		{"blue", color.RGBA{0, 0, 255, 255}, 29},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ToGray(createInMemoryImage(4, 3, tt.c))
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 4, 3), g.Bounds())
			for _, v := range g.Pix {
				assert.Equal(t, tt.want, v)
			}
		})
	}
}

func TestToGray_SubImageIsRebasedAndOwned(t *testing.T) {
	src := uniformGray(10, 10, 200)
	src.SetGray(5, 5, color.Gray{Y: 7})
	sub := src.SubImage(image.Rect(4, 4, 8, 8)).(*image.Gray)

	g, err := ToGray(sub)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 4), g.Bounds())
	assert.Equal(t, uint8(7), g.GrayAt(1, 1).Y)

	g.SetGray(1, 1, color.Gray{Y: 99})
	assert.Equal(t, uint8(7), src.GrayAt(5, 5).Y, "ToGray must not alias its input")
}

func TestToGray_Invalid(t *testing.T) {
	_, err := ToGray(nil)
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestCloneAndInvert(t *testing.T) {
	g := uniformGray(3, 2, 40)
	c := Clone(g)
	c.Pix[0] = 1
	assert.Equal(t, uint8(40), g.Pix[0])

	inv := Invert(g)
	for _, v := range inv.Pix {
		assert.Equal(t, uint8(215), v)
	}
	assert.Equal(t, uint8(40), g.Pix[0], "Invert must not modify its input")
}

func TestMeanIntensity(t *testing.T) {
	g := uniformGray(4, 4, 0)
	for i := 0; i < 8; i++ {
		g.Pix[i] = 255
	}
	assert.InDelta(t, 127.5, MeanIntensity(g), 1e-9)
	assert.Equal(t, 0.0, MeanIntensity(image.NewGray(image.Rect(0, 0, 0, 0))))
}

func TestPad(t *testing.T) {
	g := uniformGray(2, 2, 10)
	p := Pad(g, 3, BackgroundValue)

	require.Equal(t, image.Rect(0, 0, 8, 8), p.Bounds())
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			want := uint8(BackgroundValue)
			if x >= 3 && x < 5 && y >= 3 && y < 5 {
				want = 10
			}
			assert.Equal(t, want, p.GrayAt(x, y).Y, "pixel (%d,%d)", x, y)
		}
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, clamp(-5, 0, 10))
	assert.Equal(t, 10, clamp(15, 0, 10))
	assert.Equal(t, 7, clamp(7, 0, 10))
}
