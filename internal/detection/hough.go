package detection

import (
	"image"
	"math"
	"math/rand"
)

// LineSegment is a straight segment between two pixel centres.
type LineSegment struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Dx returns the signed horizontal extent of the segment.
func (s LineSegment) Dx() int { return s.X2 - s.X1 }

// Dy returns the signed vertical extent of the segment.
func (s LineSegment) Dy() int { return s.Y2 - s.Y1 }

// Length returns the Euclidean length of the segment.
func (s LineSegment) Length() float64 {
	return math.Hypot(float64(s.Dx()), float64(s.Dy()))
}

// HoughParams configures DetectLineSegments.
type HoughParams struct {
	// Rho is the distance resolution of the accumulator in pixels.
	Rho float64

	// ThetaDegrees is the angular resolution of the accumulator.
	ThetaDegrees float64

	// Threshold is the minimum number of accumulator votes for a line.
	Threshold int

	// MinLineLength is the minimum extent, along x or y, of an accepted segment.
	MinLineLength int

	// MaxLineGap is the largest run of non-edge pixels bridged while walking
	// along a candidate line.
	MaxLineGap int

	// MaxLines stops detection after this many segments. Zero means no limit.
	MaxLines int

	// Seed drives the random visiting order of edge pixels. Equal seeds on
	// equal inputs give identical output.
	Seed int64
}

// DefaultHoughParams returns the parameters used for skew estimation on a
// width x height image.
func DefaultHoughParams(width, height int) HoughParams {
	return HoughParams{
		Rho:           1,
		ThetaDegrees:  1,
		Threshold:     80,
		MinLineLength: int(0.05 * float64(width+height)),
		MaxLineGap:    10,
		Seed:          1,
	}
}

// DetectLineSegments finds straight segments in a binary edge map using the
// progressive probabilistic Hough transform.
//
// # Algorithm
//
//  1. Every non-zero pixel of edges is a candidate. Candidates are visited in
//     random order (seeded from params.Seed).
//  2. Each visited pixel votes in a (theta, rho) accumulator. When the best
//     bin for that pixel reaches params.Threshold, a line is hypothesised.
//  3. The line is walked in both directions from the pixel in 16-bit fixed
//     point, bridging gaps up to params.MaxLineGap, to find its endpoints.
//  4. Pixels on the walked segment are removed from the candidate set. If the
//     segment is long enough their votes are also withdrawn and the segment
//     is reported.
//
// Pixels with value 0 are background; any other value is an edge.
func DetectLineSegments(edges *image.Gray, params HoughParams) []LineSegment {
	b := edges.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return nil
	}
	if params.Rho <= 0 {
		params.Rho = 1
	}
	if params.ThetaDegrees <= 0 {
		params.ThetaDegrees = 1
	}

	irho := 1 / params.Rho
	theta := params.ThetaDegrees * math.Pi / 180
	numAngle := int(math.RoundToEven(math.Pi / theta))
	numRho := int(math.RoundToEven(float64((width+height)*2+1) / params.Rho))
	rhoOffset := (numRho - 1) / 2

	trig := make([]float64, numAngle*2)
	for n := 0; n < numAngle; n++ {
		trig[n*2] = math.Cos(float64(n)*theta) * irho
		trig[n*2+1] = math.Sin(float64(n)*theta) * irho
	}

	accum := make([]int, numAngle*numRho)
	mask := make([]bool, width*height)
	points := make([]image.Point, 0, width*height/16)
	for y := 0; y < height; y++ {
		row := edges.Pix[edges.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < width; x++ {
			if row[x] != 0 {
				mask[y*width+x] = true
				points = append(points, image.Point{X: x, Y: y})
			}
		}
	}

	vote := func(x, y, delta int) (best, bestN int) {
		best = params.Threshold - 1
		for n := 0; n < numAngle; n++ {
			r := int(math.RoundToEven(float64(x)*trig[n*2]+float64(y)*trig[n*2+1])) + rhoOffset
			bin := n*numRho + r
			accum[bin] += delta
			if best < accum[bin] {
				best = accum[bin]
				bestN = n
			}
		}
		return best, bestN
	}

	const shift = 16
	rng := rand.New(rand.NewSource(params.Seed))
	var lines []LineSegment

	for count := len(points); count > 0; count-- {
		idx := rng.Intn(count)
		pt := points[idx]
		points[idx] = points[count-1]

		if !mask[pt.Y*width+pt.X] {
			continue
		}

		best, bestN := vote(pt.X, pt.Y, 1)
		if best < params.Threshold {
			continue
		}

		// Walk direction perpendicular to the winning normal
		a := -trig[bestN*2+1]
		c := trig[bestN*2]
		x0, y0 := pt.X, pt.Y
		var dx0, dy0 int
		xflag := math.Abs(a) > math.Abs(c)
		if xflag {
			dx0 = 1
			if a <= 0 {
				dx0 = -1
			}
			dy0 = int(math.RoundToEven(c * (1 << shift) / math.Abs(a)))
			y0 = (y0 << shift) + (1 << (shift - 1))
		} else {
			dy0 = 1
			if c <= 0 {
				dy0 = -1
			}
			dx0 = int(math.RoundToEven(a * (1 << shift) / math.Abs(c)))
			x0 = (x0 << shift) + (1 << (shift - 1))
		}

		pixel := func(x, y int) (int, int) {
			if xflag {
				return x, y >> shift
			}
			return x >> shift, y
		}

		var ends [2]image.Point
		for k := 0; k < 2; k++ {
			gap := 0
			x, y, dx, dy := x0, y0, dx0, dy0
			if k > 0 {
				dx, dy = -dx, -dy
			}
			for ; ; x, y = x+dx, y+dy {
				j, i := pixel(x, y)
				if j < 0 || j >= width || i < 0 || i >= height {
					break
				}
				if mask[i*width+j] {
					gap = 0
					ends[k] = image.Point{X: j, Y: i}
				} else if gap++; gap > params.MaxLineGap {
					break
				}
			}
		}

		good := abs(ends[1].X-ends[0].X) >= params.MinLineLength ||
			abs(ends[1].Y-ends[0].Y) >= params.MinLineLength

		for k := 0; k < 2; k++ {
			x, y, dx, dy := x0, y0, dx0, dy0
			if k > 0 {
				dx, dy = -dx, -dy
			}
			for ; ; x, y = x+dx, y+dy {
				j, i := pixel(x, y)
				if mask[i*width+j] {
					if good {
						vote(j, i, -1)
					}
					mask[i*width+j] = false
				}
				if i == ends[k].Y && j == ends[k].X {
					break
				}
			}
		}

		if good {
			lines = append(lines, LineSegment{X1: ends[0].X, Y1: ends[0].Y, X2: ends[1].X, Y2: ends[1].Y})
			if params.MaxLines > 0 && len(lines) >= params.MaxLines {
				break
			}
		}
	}

	return lines
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
