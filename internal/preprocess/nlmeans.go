package preprocess

import (
	"image"
	"math"
	"runtime"
	"sync"
)

// nlMeansCutoff drops candidates whose normalized patch distance exceeds
// this value; their weight is below e^-30.
const nlMeansCutoff = 30

// nlMeans is the pure Go non-local-means filter.
//
// For every pixel p and every offset d in the search window, the weight of
// candidate p+d is exp(-D/h^2), where D is the mean squared difference
// between the template patches centred on p and p+d. The output is the
// weighted mean of the candidates. Patch sums come from a per-offset
// integral image, so the cost is independent of the template size. Borders
// are replicated. Rows are split into bands processed concurrently.
func nlMeans(g *image.Gray, opts DenoiseOptions) *image.Gray {
	b := g.Bounds()
	width, height := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, width, height))
	if width == 0 || height == 0 {
		return dst
	}

	tr := max(opts.TemplateWindow, 1) / 2
	sr := max(opts.SearchWindow, 1) / 2
	if opts.H <= 0 || sr == 0 {
		for y := 0; y < height; y++ {
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+width], g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		return dst
	}

	pad := tr + sr
	pw, ph := width+2*pad, height+2*pad
	padded := make([]int32, pw*ph)
	for y := 0; y < ph; y++ {
		row := g.Pix[g.PixOffset(b.Min.X, b.Min.Y+min(max(y-pad, 0), height-1)):]
		for x := 0; x < pw; x++ {
			padded[y*pw+x] = int32(row[min(max(x-pad, 0), width-1)])
		}
	}

	tw := 2*tr + 1
	f := nlMeansFilter{
		padded: padded,
		pw:     pw,
		pad:    pad,
		tr:     tr,
		sr:     sr,
		width:  width,
		norm:   1 / (float64(tw*tw) * opts.H * opts.H),
		dst:    dst,
	}

	bandH := max((height+runtime.NumCPU()-1)/runtime.NumCPU(), 16)
	var wg sync.WaitGroup
	for y0 := 0; y0 < height; y0 += bandH {
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			f.band(y0, y1)
		}(y0, min(y0+bandH, height))
	}
	wg.Wait()

	return dst
}

type nlMeansFilter struct {
	padded []int32
	pw     int
	pad    int
	tr, sr int
	width  int
	norm   float64
	dst    *image.Gray
}

// band filters output rows [y0, y1). Bands write disjoint rows of dst.
func (f *nlMeansFilter) band(y0, y1 int) {
	rows := y1 - y0
	tw := 2*f.tr + 1
	iw := f.width + 2*f.tr + 1
	ih := rows + 2*f.tr + 1

	// integral[j*iw+i] sums squared differences over region rows < j and
	// columns < i; row and column 0 stay zero.
	integral := make([]int64, iw*ih)
	wsum := make([]float64, f.width*rows)
	vsum := make([]float64, f.width*rows)

	for dy := -f.sr; dy <= f.sr; dy++ {
		for dx := -f.sr; dx <= f.sr; dx++ {
			for j := 1; j < ih; j++ {
				py := y0 - f.tr + j - 1 + f.pad
				a := f.padded[py*f.pw:]
				c := f.padded[(py+dy)*f.pw:]
				var rowSum int64
				for i := 1; i < iw; i++ {
					px := i - 1 - f.tr + f.pad
					d := int64(a[px] - c[px+dx])
					rowSum += d * d
					integral[j*iw+i] = integral[(j-1)*iw+i] + rowSum
				}
			}

			for y := 0; y < rows; y++ {
				cand := f.padded[(y0+y+f.pad+dy)*f.pw+f.pad+dx:]
				top := integral[y*iw:]
				bottom := integral[(y+tw)*iw:]
				for x := 0; x < f.width; x++ {
					s := bottom[x+tw] - top[x+tw] - bottom[x] + top[x]
					e := float64(s) * f.norm
					if e > nlMeansCutoff {
						continue
					}
					w := math.Exp(-e)
					wsum[y*f.width+x] += w
					vsum[y*f.width+x] += w * float64(cand[x])
				}
			}
		}
	}

	for y := 0; y < rows; y++ {
		row := f.dst.Pix[(y0+y)*f.dst.Stride:]
		for x := 0; x < f.width; x++ {
			v := vsum[y*f.width+x] / wsum[y*f.width+x]
			row[x] = uint8(math.Min(255, math.Max(0, math.Round(v))))
		}
	}
}
