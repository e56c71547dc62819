package imaging

import (
	"errors"
	"fmt"
	"image"
	"reflect"
)

// ErrInvalidImage is returned when an image reaching the pipeline is nil,
// has an empty bounds rectangle, or carries a pixel buffer too short for its
// declared geometry.
var ErrInvalidImage = errors.New("invalid image")

// BackgroundValue is the fill sample used for padding and for canvas areas
// that have no source data after a geometric transform.
const BackgroundValue = 255

// Validate reports whether img can be processed.
//
// Nil images (including typed nil pointers), empty bounds and pixel buffers
// too short for the declared geometry are rejected. Buffers are checked for
// every concrete type of the image package, including the chroma planes of
// *image.YCbCr produced by the JPEG decoder.
//
// The returned error always wraps ErrInvalidImage so callers can test for it
// with errors.Is.
func Validate(img image.Image) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrInvalidImage)
	}
	if v := reflect.ValueOf(img); v.Kind() == reflect.Pointer && v.IsNil() {
		return fmt.Errorf("%w: nil %T", ErrInvalidImage, img)
	}
	b := img.Bounds()
	if b.Empty() {
		return fmt.Errorf("%w: empty bounds %v", ErrInvalidImage, b)
	}

	switch m := img.(type) {
	case *image.Gray:
		return checkPlane("gray", len(m.Pix), m.Stride, b.Dx(), b.Dy(), 1)
	case *image.Gray16:
		return checkPlane("gray16", len(m.Pix), m.Stride, b.Dx(), b.Dy(), 2)
	case *image.Alpha:
		return checkPlane("alpha", len(m.Pix), m.Stride, b.Dx(), b.Dy(), 1)
	case *image.Alpha16:
		return checkPlane("alpha16", len(m.Pix), m.Stride, b.Dx(), b.Dy(), 2)
	case *image.RGBA:
		return checkPlane("rgba", len(m.Pix), m.Stride, b.Dx(), b.Dy(), 4)
	case *image.RGBA64:
		return checkPlane("rgba64", len(m.Pix), m.Stride, b.Dx(), b.Dy(), 8)
	case *image.NRGBA:
		return checkPlane("nrgba", len(m.Pix), m.Stride, b.Dx(), b.Dy(), 4)
	case *image.NRGBA64:
		return checkPlane("nrgba64", len(m.Pix), m.Stride, b.Dx(), b.Dy(), 8)
	case *image.CMYK:
		return checkPlane("cmyk", len(m.Pix), m.Stride, b.Dx(), b.Dy(), 4)
	case *image.Paletted:
		return checkPaletted(m)
	case *image.YCbCr:
		return checkYCbCr(m)
	case *image.NYCbCrA:
		if err := checkYCbCr(&m.YCbCr); err != nil {
			return err
		}
		return checkPlane("alpha plane", len(m.A), m.AStride, b.Dx(), b.Dy(), 1)
	}
	return nil
}

// checkPlane verifies that a buffer of n bytes with the given stride holds
// w x h samples of bpp bytes each.
func checkPlane(kind string, n, stride, w, h, bpp int) error {
	if stride < w*bpp || n < (h-1)*stride+w*bpp {
		return fmt.Errorf("%w: %s buffer of %d bytes too short for %dx%d (stride %d)",
			ErrInvalidImage, kind, n, w, h, stride)
	}
	return nil
}

func checkPaletted(m *image.Paletted) error {
	b := m.Bounds()
	if err := checkPlane("paletted", len(m.Pix), m.Stride, b.Dx(), b.Dy(), 1); err != nil {
		return err
	}
	if len(m.Palette) == 0 {
		return fmt.Errorf("%w: empty palette", ErrInvalidImage)
	}
	for y := 0; y < b.Dy(); y++ {
		for _, idx := range m.Pix[y*m.Stride : y*m.Stride+b.Dx()] {
			if int(idx) >= len(m.Palette) {
				return fmt.Errorf("%w: palette index %d out of range (%d colors)",
					ErrInvalidImage, idx, len(m.Palette))
			}
		}
	}
	return nil
}

func checkYCbCr(m *image.YCbCr) error {
	r := m.Rect
	w, h := r.Dx(), r.Dy()
	if err := checkPlane("ycbcr luma", len(m.Y), m.YStride, w, h, 1); err != nil {
		return err
	}

	// Chroma plane size per subsample ratio, as allocated by image.NewYCbCr
	cw, ch := w, h
	switch m.SubsampleRatio {
	case image.YCbCrSubsampleRatio444:
	case image.YCbCrSubsampleRatio422:
		cw = (r.Max.X+1)/2 - r.Min.X/2
	case image.YCbCrSubsampleRatio420:
		cw = (r.Max.X+1)/2 - r.Min.X/2
		ch = (r.Max.Y+1)/2 - r.Min.Y/2
	case image.YCbCrSubsampleRatio440:
		ch = (r.Max.Y+1)/2 - r.Min.Y/2
	case image.YCbCrSubsampleRatio411:
		cw = (r.Max.X+3)/4 - r.Min.X/4
	case image.YCbCrSubsampleRatio410:
		cw = (r.Max.X+3)/4 - r.Min.X/4
		ch = (r.Max.Y+1)/2 - r.Min.Y/2
	default:
		return fmt.Errorf("%w: unknown subsample ratio %v", ErrInvalidImage, m.SubsampleRatio)
	}

	if err := checkPlane("ycbcr cb", len(m.Cb), m.CStride, cw, ch, 1); err != nil {
		return err
	}
	return checkPlane("ycbcr cr", len(m.Cr), m.CStride, cw, ch, 1)
}

// Channels returns 1 for single-channel images and 3 for everything else.
// Alpha is ignored by the pipeline, so RGBA counts as three channels.
func Channels(img image.Image) int {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return 1
	}
	return 3
}

// ToGray returns an owned single-channel copy of img anchored at (0,0).
//
// Color inputs are collapsed with ITU-R BT.601 luminance weights
// (0.299*R + 0.587*G + 0.114*B), rounded to the nearest sample. The result
// never shares its pixel buffer with img.
func ToGray(img image.Image) (_ *image.Gray, err error) {
	if err := Validate(img); err != nil {
		return nil, err
	}
	// Image implementations outside the image package are only checked for
	// nil and bounds; a sampling panic is reported as an invalid image.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidImage, r)
		}
	}()

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))

	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < h; y++ {
			src := g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):]
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+w], src[:w])
		}
		return dst, nil
	}

	for y := 0; y < h; y++ {
		row := dst.Pix[y*dst.Stride:]
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
			row[x] = uint8(lum + 0.5)
		}
	}
	return dst, nil
}

// Clone returns a deep copy of g.
func Clone(g *image.Gray) *image.Gray {
	dst := &image.Gray{
		Pix:    make([]uint8, len(g.Pix)),
		Stride: g.Stride,
		Rect:   g.Rect,
	}
	copy(dst.Pix, g.Pix)
	return dst
}

// MeanIntensity returns the average sample value of g.
func MeanIntensity(g *image.Gray) float64 {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return 0
	}
	var sum uint64
	for y := 0; y < h; y++ {
		off := g.PixOffset(b.Min.X, b.Min.Y+y)
		for _, v := range g.Pix[off : off+w] {
			sum += uint64(v)
		}
	}
	return float64(sum) / float64(w*h)
}

// Invert returns a copy of g with every sample replaced by 255 - v.
func Invert(g *image.Gray) *image.Gray {
	dst := Clone(g)
	for i, v := range dst.Pix {
		dst.Pix[i] = 255 - v
	}
	return dst
}

// Pad returns a copy of g with n samples of fill added on every side.
func Pad(g *image.Gray, n int, fill uint8) *image.Gray {
	if n < 0 {
		n = 0
	}
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w+2*n, h+2*n))
	for i := range dst.Pix {
		dst.Pix[i] = fill
	}
	for y := 0; y < h; y++ {
		src := g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):]
		off := (y+n)*dst.Stride + n
		copy(dst.Pix[off:off+w], src[:w])
	}
	return dst
}

// clamp constrains an integer value to the range [lo, hi].
// Used for boundary handling in convolution operations.
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
