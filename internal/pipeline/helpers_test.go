package pipeline

import (
	"context"
	"image"
	"math"
	"sync"
)

// blankGray returns a w x h gray image filled with v.
func blankGray(w, h int, v uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

// fillRect sets every pixel of r in g to v.
func fillRect(g *image.Gray, r image.Rectangle, v uint8) {
	r = r.Intersect(g.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			g.Pix[g.PixOffset(x, y)] = v
		}
	}
}

// threeColumnPage returns a 400x400 white page with three tall dark columns
// of heights 250, 280 and 300, left to right.
func threeColumnPage() *image.Gray {
	g := blankGray(400, 400, 255)
	fillRect(g, image.Rect(300, 50, 340, 350), 0)
	fillRect(g, image.Rect(40, 80, 80, 330), 0)
	fillRect(g, image.Rect(170, 60, 210, 340), 0)
	return g
}

// skewedLines draws dark 3px-thick parallel lines at angle degrees (positive
// descending to the right) on a white w x h canvas.
func skewedLines(w, h, x0, length int, starts []int, angle float64) *image.Gray {
	g := blankGray(w, h, 255)
	rad := angle * math.Pi / 180
	ux, uy := math.Cos(rad), math.Sin(rad)
	for _, y0 := range starts {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				px, py := float64(x-x0), float64(y-y0)
				along := px*ux + py*uy
				across := -px*uy + py*ux
				if along >= 0 && along <= float64(length) && math.Abs(across) <= 1.5 {
					g.Pix[g.PixOffset(x, y)] = 0
				}
			}
		}
	}
	return g
}

// unrotatedConfig returns DefaultConfig with skew estimation disabled so
// tests about segmentation and recognition see the page unrotated.
func unrotatedConfig() Config {
	cfg := DefaultConfig()
	cfg.Skew.MinImageSize = math.MaxInt32
	return cfg
}

// fakeRecognizer records calls and delegates to fn.
type fakeRecognizer struct {
	mu    sync.Mutex
	calls int
	langs []string
	fn    func(ctx context.Context, call int, region *image.Gray) (string, error)
}

func (f *fakeRecognizer) Recognize(ctx context.Context, region *image.Gray, lang string) (string, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.langs = append(f.langs, lang)
	f.mu.Unlock()

	if f.fn == nil {
		return "", nil
	}
	return f.fn(ctx, call, region)
}

func (f *fakeRecognizer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
