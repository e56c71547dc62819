package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// OverlayResult contains an annotated image encoded as base64 PNG
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Blocks      int    `json:"blocks"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// BlockPalette returns n visually distinct colors for outlining blocks.
//
// Hues are spread evenly around the HCL wheel at fixed chroma and luminance
// so that neighbouring block indices never share a color.
func BlockPalette(n int) []color.RGBA {
	palette := make([]color.RGBA, n)
	for i := range palette {
		hue := float64(i) * 360 / float64(max(n, 1))
		c := colorful.Hcl(hue, 0.8, 0.55).Clamped()
		r, g, b := c.RGB255()
		palette[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return palette
}

// BlockOverlay draws the outline and reading-order index of every rectangle
// in blocks on top of img.
//
// Rectangles are in img's coordinate space. Each outline is 2 pixels wide and
// clipped to the image; the index label sits inside the top-left corner.
func BlockOverlay(img image.Image, blocks []image.Rectangle) *image.RGBA {
	bounds := img.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	palette := BlockPalette(len(blocks))
	labelColor := color.RGBA{255, 255, 255, 255}

	for i, r := range blocks {
		r = r.Intersect(bounds)
		if r.Empty() {
			continue
		}
		c := palette[i]
		for t := 0; t < 2; t++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				result.SetRGBA(x, r.Min.Y+t, c)
				result.SetRGBA(x, r.Max.Y-1-t, c)
			}
			for y := r.Min.Y; y < r.Max.Y; y++ {
				result.SetRGBA(r.Min.X+t, y, c)
				result.SetRGBA(r.Max.X-1-t, y, c)
			}
		}
		drawLabel(result, r.Min.X+3, r.Min.Y+3, strconv.Itoa(i), labelColor, c)
	}

	return result
}

// EncodeBlockOverlay renders BlockOverlay and encodes it as PNG.
func EncodeBlockOverlay(img image.Image, blocks []image.Rectangle) (*OverlayResult, error) {
	annotated := BlockOverlay(img, blocks)
	encoded, err := EncodePNGBase64(annotated)
	if err != nil {
		return nil, fmt.Errorf("failed to encode overlay: %w", err)
	}
	return &OverlayResult{
		Width:       annotated.Bounds().Dx(),
		Height:      annotated.Bounds().Dy(),
		Blocks:      len(blocks),
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

// drawLabel draws a digit label at the given position using a 3x5 pixel font.
// Characters outside the font advance the cursor without drawing.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
	}

	bounds := img.Bounds()
	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			p := image.Pt(x+dx, y+dy)
			if p.In(bounds) {
				img.SetRGBA(p.X, p.Y, bg)
			}
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel != '1' {
					continue
				}
				p := image.Pt(cx+col, y+row)
				if p.In(bounds) {
					img.SetRGBA(p.X, p.Y, fg)
				}
			}
		}
		cx += charWidth
	}
}
