package detection

import (
	"fmt"
	"image"
	"sort"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/histogram"

	"github.com/ironsheep/docprep-mcp/internal/imaging"
)

// StrategyKind tags the two block segmentation layouts.
type StrategyKind int

const (
	// LineOriented merges vertically stacked strokes into tall column-like
	// blocks. It is tried first.
	LineOriented StrategyKind = iota

	// BlockOriented uses a width-proportional kernel and a lower height bar
	// for block-form scripts. It is the fallback.
	BlockOriented
)

// String returns "line-oriented" or "block-oriented".
func (k StrategyKind) String() string {
	switch k {
	case LineOriented:
		return "line-oriented"
	case BlockOriented:
		return "block-oriented"
	default:
		return fmt.Sprintf("StrategyKind(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k StrategyKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Strategy parametrizes one block segmentation pass.
type Strategy struct {
	Kind StrategyKind

	// BlurRadius is the radius of the Gaussian smoothing applied before
	// thresholding. The kernel spans 2r+1 samples with sigma sqrt(2r), so a
	// radius of 2 gives a 5-tap kernel close to a 7x7 sigma 1.4 blur.
	BlurRadius float64

	// Invert selects the threshold polarity. When true, samples at or below
	// the Otsu level become foreground (dark ink on light paper). When false,
	// samples above it do.
	Invert bool

	// KernelWidth is the fixed dilation kernel width, used when
	// KernelWidthRatio is zero.
	KernelWidth int

	// KernelWidthRatio, when positive, sizes the kernel width as this
	// fraction of the image width.
	KernelWidthRatio float64

	// KernelHeight is the dilation kernel height.
	KernelHeight int

	// MinHeight and MinWidth are exclusive lower bounds on kept blocks.
	MinHeight int
	MinWidth  int
}

// LineOrientedStrategy returns the default line-oriented configuration.
func LineOrientedStrategy() Strategy {
	return Strategy{
		Kind:         LineOriented,
		BlurRadius:   2,
		Invert:       true,
		KernelWidth:  3,
		KernelHeight: 13,
		MinHeight:    200,
		MinWidth:     20,
	}
}

// BlockOrientedStrategy returns the default block-oriented configuration.
func BlockOrientedStrategy() Strategy {
	return Strategy{
		Kind:             BlockOriented,
		BlurRadius:       2,
		Invert:           false,
		KernelWidthRatio: 0.02,
		KernelHeight:     13,
		MinHeight:        50,
		MinWidth:         20,
	}
}

// KernelSize returns the dilation kernel dimensions for an image of the given
// width. Both dimensions are at least 1.
func (s Strategy) KernelSize(imageWidth int) (int, int) {
	kw := s.KernelWidth
	if s.KernelWidthRatio > 0 {
		kw = int(s.KernelWidthRatio * float64(imageWidth))
	}
	return max(kw, 1), max(s.KernelHeight, 1)
}

// TextBlock is an axis-aligned text region in image coordinates.
type TextBlock struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect returns the block as an image.Rectangle.
func (b TextBlock) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Segmentation is the outcome of SegmentBlocks.
type Segmentation struct {
	Blocks   []TextBlock  `json:"blocks"`
	Strategy StrategyKind `json:"strategy"`

	// Fallback reports that the primary strategy found nothing and the
	// fallback strategy produced Blocks.
	Fallback bool `json:"fallback"`
}

// SegmentBlocks runs primary on g and, if it yields no blocks, runs fallback
// on the same input.
func SegmentBlocks(g *image.Gray, primary, fallback Strategy) (*Segmentation, error) {
	blocks, err := DetectBlocks(g, primary)
	if err != nil {
		return nil, err
	}
	if len(blocks) > 0 {
		return &Segmentation{Blocks: blocks, Strategy: primary.Kind}, nil
	}

	blocks, err = DetectBlocks(g, fallback)
	if err != nil {
		return nil, err
	}
	return &Segmentation{Blocks: blocks, Strategy: fallback.Kind, Fallback: true}, nil
}

// DetectBlocks finds candidate text blocks in g with a single strategy.
//
// # Algorithm
//
//  1. Gaussian smoothing
//  2. Global threshold at the Otsu level, polarity per s.Invert
//  3. Dilation with a rectangular kernel anchored at its centre
//  4. Bounding boxes of the outermost connected components
//  5. Sort by X, then Y
//  6. Keep boxes with Height > s.MinHeight and Width > s.MinWidth
//
// An image whose smoothed samples all share one value has no meaningful
// threshold and yields no blocks. The result is never nil.
func DetectBlocks(g *image.Gray, s Strategy) ([]TextBlock, error) {
	if err := imaging.Validate(g); err != nil {
		return nil, err
	}
	b := g.Bounds()
	width, height := b.Dx(), b.Dy()

	smoothed := blur.Gaussian(g, s.BlurRadius)
	level, ok := OtsuThreshold(histogram.NewRGBAHistogram(smoothed).R.Bins)
	if !ok {
		return []TextBlock{}, nil
	}

	bin := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := smoothed.Pix[y*smoothed.Stride+x*4]
			if (v <= level) == s.Invert {
				bin.Pix[y*bin.Stride+x] = 255
			}
		}
	}

	kw, kh := s.KernelSize(width)
	dilated := Dilate(bin, kw, kh)

	blocks := make([]TextBlock, 0)
	// Boxes are traced on a zero-based mask; report them in page coordinates.
	for _, r := range ExternalBoundingBoxes(dilated) {
		r = r.Add(b.Min)
		blocks = append(blocks, TextBlock{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()})
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].X != blocks[j].X {
			return blocks[i].X < blocks[j].X
		}
		return blocks[i].Y < blocks[j].Y
	})

	kept := blocks[:0]
	for _, blk := range blocks {
		if blk.Height > s.MinHeight && blk.Width > s.MinWidth {
			kept = append(kept, blk)
		}
	}
	return kept, nil
}

// OtsuThreshold selects the level t maximizing the between-class variance of
// the classes v <= t and v > t.
//
// ok is false when no level splits the histogram into two non-empty classes.
func OtsuThreshold(bins []int) (level uint8, ok bool) {
	var total, sum float64
	for i, c := range bins {
		total += float64(c)
		sum += float64(i) * float64(c)
	}
	if total == 0 {
		return 0, false
	}

	var w1, s1, best float64
	for i := 0; i < len(bins) && i < 256; i++ {
		w1 += float64(bins[i])
		s1 += float64(i) * float64(bins[i])
		w2 := total - w1
		if w1 == 0 || w2 == 0 {
			continue
		}
		mu1 := s1 / w1
		mu2 := (sum - s1) / w2
		q1, q2 := w1/total, w2/total
		sigma := q1 * q2 * (mu1 - mu2) * (mu1 - mu2)
		if sigma > best {
			best = sigma
			level = uint8(i)
			ok = true
		}
	}
	return level, ok
}

// Dilate returns the grayscale dilation of g by a kw x kh rectangle whose
// anchor is (kw/2, kh/2). Samples outside the image do not contribute.
func Dilate(g *image.Gray, kw, kh int) *image.Gray {
	b := g.Bounds()
	width, height := b.Dx(), b.Dy()
	kw, kh = max(kw, 1), max(kh, 1)
	ax, ay := kw/2, kh/2

	// Horizontal pass: dst(x) = max src(x - ax .. x - ax + kw - 1)
	tmp := make([]uint8, width*height)
	for y := 0; y < height; y++ {
		row := g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < width; x++ {
			lo, hi := max(x-ax, 0), min(x-ax+kw-1, width-1)
			var m uint8
			for i := lo; i <= hi; i++ {
				if row[i] > m {
					m = row[i]
				}
			}
			tmp[y*width+x] = m
		}
	}

	dst := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		lo, hi := max(y-ay, 0), min(y-ay+kh-1, height-1)
		for x := 0; x < width; x++ {
			var m uint8
			for j := lo; j <= hi; j++ {
				if v := tmp[j*width+x]; v > m {
					m = v
				}
			}
			dst.Pix[y*dst.Stride+x] = m
		}
	}
	return dst
}
