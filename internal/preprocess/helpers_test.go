package preprocess

import (
	"image"
	"math"
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

// skewedLines draws dark 3px-thick parallel lines of the given length on a
// white w x h canvas. Each line starts at (x0, y) for y in starts and runs at
// angle degrees, positive descending to the right.
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

// noisyGray returns a w x h image of base +/- amp using a fixed linear
// congruential sequence.
func noisyGray(w, h int, base, amp int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	state := uint32(12345)
	for i := range g.Pix {
		state = state*1664525 + 1013904223
		v := base + int(state>>24)%(2*amp+1) - amp
		g.Pix[i] = uint8(min(max(v, 0), 255))
	}
	return g
}

func variance(g *image.Gray) float64 {
	var sum, sq float64
	for _, v := range g.Pix {
		sum += float64(v)
		sq += float64(v) * float64(v)
	}
	n := float64(len(g.Pix))
	mean := sum / n
	return sq/n - mean*mean
}
