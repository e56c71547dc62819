package preprocess

// DenoiseOptions configures non-local-means denoising.
type DenoiseOptions struct {
	// H is the filter strength. Larger values remove more noise and more detail.
	H float64

	// TemplateWindow is the side of the square patch compared between pixels.
	TemplateWindow int

	// SearchWindow is the side of the square neighbourhood searched for
	// similar patches.
	SearchWindow int
}

// DefaultDenoiseOptions returns H=10 with 7px patches searched over 21px.
func DefaultDenoiseOptions() DenoiseOptions {
	return DenoiseOptions{H: 10, TemplateWindow: 7, SearchWindow: 21}
}

// SkewOptions configures EstimateSkew.
type SkewOptions struct {
	// AngleRange discards segments steeper than this many degrees.
	AngleRange float64

	// MinAngle is the smallest estimate, in degrees, worth correcting.
	MinAngle float64

	// MinImageSize is the smallest width and height analysed.
	MinImageSize int

	CannyLow  float64
	CannyHigh float64

	HoughThreshold int
	HoughMaxGap    int

	// HoughMinLengthRatio scales the minimum segment length by the sum of
	// the image width and height.
	HoughMinLengthRatio float64
}

// DefaultSkewOptions returns the standard skew estimation parameters.
func DefaultSkewOptions() SkewOptions {
	return SkewOptions{
		AngleRange:          45,
		MinAngle:            0.5,
		MinImageSize:        50,
		CannyLow:            50,
		CannyHigh:           200,
		HoughThreshold:      80,
		HoughMaxGap:         10,
		HoughMinLengthRatio: 0.05,
	}
}

// BinarizeOptions configures adaptive thresholding.
type BinarizeOptions struct {
	// BlockSize is the odd side of the Gaussian neighbourhood.
	BlockSize int

	// C is subtracted from the local mean before comparison.
	C float64
}

// DefaultBinarizeOptions returns an 11px window with C=2.
func DefaultBinarizeOptions() BinarizeOptions {
	return BinarizeOptions{BlockSize: 11, C: 2}
}
