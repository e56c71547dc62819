package preprocess

import (
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/docprep-mcp/internal/detection"
	"github.com/ironsheep/docprep-mcp/internal/imaging"
)

// SkewStatus tags the outcome of EstimateSkew.
type SkewStatus int

const (
	// SkewRotated means a usable angle was found and should be corrected.
	SkewRotated SkewStatus = iota

	// SkewTooSmall means the image is below the minimum analysable size.
	SkewTooSmall

	// SkewNoLines means no line segment survived the angle filter.
	SkewNoLines

	// SkewBelowMin means the estimate is too small to be worth correcting.
	SkewBelowMin
)

// String returns a short lowercase name for the status.
func (s SkewStatus) String() string {
	switch s {
	case SkewRotated:
		return "rotated"
	case SkewTooSmall:
		return "too_small"
	case SkewNoLines:
		return "no_lines"
	case SkewBelowMin:
		return "below_min"
	default:
		return fmt.Sprintf("SkewStatus(%d)", int(s))
	}
}

// MarshalText encodes the status by name.
func (s SkewStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SkewResult is the outcome of EstimateSkew.
type SkewResult struct {
	Status SkewStatus `json:"status"`

	// Angle is the circular mean of the kept segment angles in degrees,
	// positive for lines descending to the right. It is set for SkewRotated
	// and SkewBelowMin.
	Angle float64 `json:"angle"`

	// Lines is the number of segments found by the line detector.
	Lines int `json:"lines"`

	// Kept is the number of segments inside the angle range.
	Kept int `json:"kept"`

	// Spread is the standard deviation of the kept angles in degrees.
	Spread float64 `json:"spread"`
}

// NeedsRotation reports whether the result calls for Rotate.
func (r SkewResult) NeedsRotation() bool {
	return r.Status == SkewRotated
}

// EstimateSkew measures the dominant text-line angle of g.
//
// # Algorithm
//
//  1. Images narrower or shorter than opts.MinImageSize are not analysed
//  2. Canny edges (3x3 Sobel, L1 magnitude)
//  3. Probabilistic Hough segments with minimum length
//     opts.HoughMinLengthRatio * (width + height)
//  4. Segment angles atan2(dy, dx), folded into (-90, 90]; vertical
//     segments and those steeper than opts.AngleRange are discarded
//  5. Circular mean of the survivors
//
// The result never carries an error: every non-rotating outcome is a
// distinct Status.
func EstimateSkew(g *image.Gray, opts SkewOptions) SkewResult {
	b := g.Bounds()
	width, height := b.Dx(), b.Dy()
	if width < opts.MinImageSize || height < opts.MinImageSize {
		return SkewResult{Status: SkewTooSmall}
	}

	edges := imaging.CannyEdges(g, opts.CannyLow, opts.CannyHigh)
	params := detection.DefaultHoughParams(width, height)
	params.Threshold = opts.HoughThreshold
	params.MaxLineGap = opts.HoughMaxGap
	params.MinLineLength = int(opts.HoughMinLengthRatio * float64(width+height))
	segments := detection.DetectLineSegments(edges, params)

	angles := make([]float64, 0, len(segments))
	for _, s := range segments {
		if s.Dx() == 0 {
			continue
		}
		angle := SegmentAngle(s)
		if math.Abs(angle) > opts.AngleRange {
			continue
		}
		angles = append(angles, angle*math.Pi/180)
	}

	result := SkewResult{Lines: len(segments), Kept: len(angles)}
	if len(angles) == 0 {
		result.Status = SkewNoLines
		return result
	}

	result.Angle = stat.CircularMean(angles, nil) * 180 / math.Pi
	if len(angles) > 1 {
		result.Spread = stat.StdDev(angles, nil) * 180 / math.Pi
	}

	if math.Abs(result.Angle) < opts.MinAngle {
		result.Status = SkewBelowMin
		return result
	}
	result.Status = SkewRotated
	return result
}

// SegmentAngle returns the direction of s in degrees folded into (-90, 90].
func SegmentAngle(s detection.LineSegment) float64 {
	angle := math.Atan2(float64(s.Dy()), float64(s.Dx())) * 180 / math.Pi
	if angle > 90 {
		angle -= 180
	} else if angle <= -90 {
		angle += 180
	}
	return angle
}
