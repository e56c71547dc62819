package ocr

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"testing"

	"github.com/otiai10/gosseract/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// requireLanguage skips the test unless Tesseract language data for lang is installed.
func requireLanguage(t *testing.T, lang string) {
	t.Helper()
	langs, err := gosseract.GetAvailableLanguages()
	if err != nil {
		t.Skipf("Tesseract language data not available: %v", err)
	}
	for _, l := range langs {
		if l == lang {
			return
		}
	}
	t.Skipf("Tesseract language %q not installed", lang)
}

// createTextRegion renders text with basicfont and scales it up so that
// glyphs are large enough for Tesseract.
func createTextRegion(text string, scale int) *image.Gray {
	width := len(text)*7 + 40
	height := 40

	small := image.NewGray(image.Rect(0, 0, width, height))
	draw.Draw(small, small.Bounds(), image.White, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  small,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(20), Y: fixed.I(25)},
	}
	d.DrawString(text)

	img := image.NewGray(image.Rect(0, 0, width*scale, height*scale))
	for y := 0; y < height*scale; y++ {
		for x := 0; x < width*scale; x++ {
			img.Pix[y*img.Stride+x] = small.Pix[(y/scale)*small.Stride+x/scale]
		}
	}
	return img
}

func TestLanguages(t *testing.T) {
	tests := []struct {
		hint string
		want []string
	}{
		{"", []string{"chi_sim", "eng"}},
		{"  ", []string{"chi_sim", "eng"}},
		{"eng", []string{"eng"}},
		{"chi_sim+eng", []string{"chi_sim", "eng"}},
		{"deu + eng", []string{"deu", "eng"}},
		{"eng++fra+", []string{"eng", "fra"}},
		{"+", []string{"chi_sim", "eng"}},
	}
	for _, tt := range tests {
		t.Run(tt.hint, func(t *testing.T) {
			assert.Equal(t, tt.want, Languages(tt.hint))
		})
	}
}

func TestMissingLanguages(t *testing.T) {
	assert.Equal(t, []string{"chi_sim"}, missingLanguages([]string{"chi_sim", "eng"}, []string{"eng", "osd"}))
	assert.Empty(t, missingLanguages([]string{"eng"}, []string{"eng"}))
	assert.Equal(t, []string{"eng"}, missingLanguages([]string{"eng"}, nil))
}

func TestRecognitionError(t *testing.T) {
	cause := errors.New("engine crashed")
	var err error = &RecognitionError{Block: 3, Err: cause}

	assert.Equal(t, "recognition failed for block 3: engine crashed", err.Error())
	assert.ErrorIs(t, err, cause)

	var recErr *RecognitionError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, 3, recErr.Block)
}

func TestRecognizerFunc(t *testing.T) {
	var gotLang string
	var r Recognizer = RecognizerFunc(func(_ context.Context, region *image.Gray, lang string) (string, error) {
		gotLang = lang
		return strings.Repeat("x", region.Bounds().Dx()), nil
	})

	text, err := r.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 4, 2)), "eng")
	require.NoError(t, err)
	assert.Equal(t, "xxxx", text)
	assert.Equal(t, "eng", gotLang)
}

func TestTesseract_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTesseract("").Recognize(ctx, createTextRegion("HELLO", 2), "eng")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTesseract_InvalidRegion(t *testing.T) {
	tess := NewTesseract("")

	_, err := tess.Recognize(context.Background(), nil, "eng")
	assert.Error(t, err)

	_, err = tess.Recognize(context.Background(), image.NewGray(image.Rectangle{}), "eng")
	assert.Error(t, err)
}

func TestTesseract_RealText(t *testing.T) {
	requireLanguage(t, "eng")

	text, err := NewTesseract("").Recognize(context.Background(), createTextRegion("HELLO WORLD", 4), "eng")
	require.NoError(t, err)

	t.Logf("Extracted text: %q", text)
	if !strings.Contains(strings.ToUpper(text), "HELLO") {
		t.Log("Warning: expected word not recognized - may need larger scale or different font")
	}
}

func TestTesseract_Upscale(t *testing.T) {
	requireLanguage(t, "eng")

	tess := &Tesseract{UpscaleBelow: 120}
	text, err := tess.Recognize(context.Background(), createTextRegion("12345", 1), "eng")
	require.NoError(t, err)
	t.Logf("Input: %q, Output: %q", "12345", strings.TrimSpace(text))
}

func TestTesseract_BlankRegion(t *testing.T) {
	requireLanguage(t, "eng")

	blank := image.NewGray(image.Rect(0, 0, 200, 80))
	for i := range blank.Pix {
		blank.Pix[i] = 255
	}

	text, err := NewTesseract("").Recognize(context.Background(), blank, "eng")
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(text))
}

func TestGetOCRInfo(t *testing.T) {
	info := GetOCRInfo()

	assert.Equal(t, "gosseract", info.Backend)
	assert.Equal(t, DefaultLanguage, info.DefaultLanguage)
	assert.NotEmpty(t, info.Version)
	if info.Available {
		assert.NotEmpty(t, info.Languages)
	} else {
		assert.NotEmpty(t, info.Error)
	}
	t.Logf("OCR info: %+v", info)
}
