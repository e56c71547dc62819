package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/docprep-mcp/internal/detection"
	"github.com/ironsheep/docprep-mcp/internal/imaging"
	"github.com/ironsheep/docprep-mcp/internal/ocr"
	"github.com/ironsheep/docprep-mcp/internal/preprocess"
)

// ErrNoRecognizer is returned by Run when the pipeline was built without a
// Recognizer.
var ErrNoRecognizer = errors.New("pipeline has no recognizer")

// Config holds the parameters of every stage.
type Config struct {
	Denoise  preprocess.DenoiseOptions
	Skew     preprocess.SkewOptions
	Binarize preprocess.BinarizeOptions

	// Padding is the background border added before rotation.
	Padding int

	// EmitBinarized makes Prepare produce Prepared.Binarized.
	EmitBinarized bool

	// Primary is tried first; Fallback runs when Primary finds no blocks.
	Primary  detection.Strategy
	Fallback detection.Strategy

	// Language is the recognizer hint used when Run receives an empty one.
	Language string

	// Workers bounds concurrent Recognize calls (0 = runtime.NumCPU()).
	Workers int
}

// DefaultConfig returns the standard document preparation settings.
func DefaultConfig() Config {
	return Config{
		Denoise:       preprocess.DefaultDenoiseOptions(),
		Skew:          preprocess.DefaultSkewOptions(),
		Binarize:      preprocess.DefaultBinarizeOptions(),
		Padding:       100,
		EmitBinarized: false,
		Primary:       detection.LineOrientedStrategy(),
		Fallback:      detection.BlockOrientedStrategy(),
		Language:      ocr.DefaultLanguage,
		Workers:       runtime.NumCPU(),
	}
}

// Pipeline runs documents through the configured stages. It holds no
// per-run state and is safe for concurrent use.
type Pipeline struct {
	cfg        Config
	recognizer ocr.Recognizer
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for per-stage debug records.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRecognizer sets the text recognizer used by Run.
func WithRecognizer(r ocr.Recognizer) Option {
	return func(p *Pipeline) { p.recognizer = r }
}

// WithWorkers overrides Config.Workers.
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.cfg.Workers = n }
}

// New builds a Pipeline from cfg.
func New(cfg Config, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.cfg.Workers <= 0 {
		p.cfg.Workers = runtime.NumCPU()
	}
	if p.cfg.Language == "" {
		p.cfg.Language = ocr.DefaultLanguage
	}
	return p
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Prepared holds the output of every preprocessing stage.
type Prepared struct {
	// Gray is the input collapsed to a single channel.
	Gray *image.Gray

	// Inverted reports whether polarity normalization flipped the image.
	Inverted bool

	// Normalized is Gray after polarity normalization.
	Normalized *image.Gray

	Denoised *image.Gray
	Skew     preprocess.SkewResult

	// Deskewed is Denoised rotated by Skew.Angle, or an unrotated copy of
	// Denoised when Skew does not call for rotation.
	Deskewed *image.Gray

	// Binarized is set only when Config.EmitBinarized is true.
	Binarized *image.Gray
}

// Prepare runs the preprocessing stages on img.
func (p *Pipeline) Prepare(ctx context.Context, img image.Image) (*Prepared, error) {
	return p.prepare(ctx, img, p.logger.With("run_id", uuid.NewString()))
}

func (p *Pipeline) prepare(ctx context.Context, img image.Image, log *slog.Logger) (*Prepared, error) {
	gray, err := imaging.ToGray(img)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	out := &Prepared{Gray: gray}

	start := time.Now()
	out.Normalized, out.Inverted = preprocess.NormalizePolarity(gray)
	p.stageDone(log, "polarity", start, "inverted", out.Inverted)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("prepare canceled before denoise: %w", err)
	}
	start = time.Now()
	out.Denoised = preprocess.Denoise(out.Normalized, p.cfg.Denoise)
	p.stageDone(log, "denoise", start, "backend", preprocess.DenoiseBackend())

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("prepare canceled before skew estimation: %w", err)
	}
	start = time.Now()
	out.Skew = preprocess.EstimateSkew(out.Denoised, p.cfg.Skew)
	skewResults.WithLabelValues(out.Skew.Status.String()).Inc()
	p.stageDone(log, "skew", start,
		"status", out.Skew.Status.String(),
		"angle", out.Skew.Angle,
		"lines", out.Skew.Lines,
		"kept", out.Skew.Kept,
		"spread", out.Skew.Spread,
	)

	start = time.Now()
	if out.Skew.NeedsRotation() {
		out.Deskewed, err = preprocess.Rotate(out.Denoised, out.Skew.Angle, p.cfg.Padding)
		if err != nil {
			return nil, fmt.Errorf("failed to rotate: %w", err)
		}
		p.stageDone(log, "rotate", start, "angle", out.Skew.Angle)
	} else {
		out.Deskewed = imaging.Clone(out.Denoised)
	}

	if p.cfg.EmitBinarized {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("prepare canceled before binarization: %w", err)
		}
		start = time.Now()
		out.Binarized, err = preprocess.Binarize(out.Deskewed, p.cfg.Binarize)
		if err != nil {
			return nil, fmt.Errorf("failed to binarize: %w", err)
		}
		p.stageDone(log, "binarize", start)
	}

	return out, nil
}

// Segment prepares img and detects its text blocks.
//
// Segmentation works on the deskewed grayscale page, the same raster the
// blocks are later cropped from.
func (p *Pipeline) Segment(ctx context.Context, img image.Image) (*Prepared, *detection.Segmentation, error) {
	log := p.logger.With("run_id", uuid.NewString())
	prepared, err := p.prepare(ctx, img, log)
	if err != nil {
		return nil, nil, err
	}
	seg, err := p.segment(ctx, prepared, log)
	if err != nil {
		return prepared, nil, err
	}
	return prepared, seg, nil
}

func (p *Pipeline) segment(ctx context.Context, prepared *Prepared, log *slog.Logger) (*detection.Segmentation, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("segmentation canceled: %w", err)
	}
	start := time.Now()
	seg, err := detection.SegmentBlocks(prepared.Deskewed, p.cfg.Primary, p.cfg.Fallback)
	if err != nil {
		return nil, fmt.Errorf("failed to segment blocks: %w", err)
	}
	blocksDetected.WithLabelValues(seg.Strategy.String()).Observe(float64(len(seg.Blocks)))
	p.stageDone(log, "segment", start,
		"blocks", len(seg.Blocks),
		"strategy", seg.Strategy.String(),
		"fallback", seg.Fallback,
	)
	return seg, nil
}

func (p *Pipeline) stageDone(log *slog.Logger, stage string, start time.Time, attrs ...any) {
	elapsed := time.Since(start)
	stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	log.Debug("stage complete", append([]any{"stage", stage, "elapsed", elapsed}, attrs...)...)
}
