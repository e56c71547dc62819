package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/docprep-mcp/internal/detection"
	"github.com/ironsheep/docprep-mcp/internal/imaging"
	"github.com/ironsheep/docprep-mcp/internal/ocr"
	"github.com/ironsheep/docprep-mcp/internal/preprocess"
)

// FragmentSeparator joins block fragments into Result.Text.
const FragmentSeparator = "\n\n"

// BlockFailure records a block whose recognition failed.
type BlockFailure struct {
	Block int    `json:"block"`
	Error string `json:"error"`

	// Err is the underlying failure.
	Err *ocr.RecognitionError `json:"-"`
}

// Result is the outcome of Run.
type Result struct {
	// RunID identifies the run in logs.
	RunID string `json:"run_id"`

	Skew     preprocess.SkewResult  `json:"skew"`
	Strategy detection.StrategyKind `json:"strategy"`
	Fallback bool                   `json:"fallback"`
	Blocks   []detection.TextBlock  `json:"blocks"`

	// Fragments holds one recognized string per block, in block order.
	// Failed and skipped blocks hold the empty string.
	Fragments []string `json:"fragments"`

	// Text is Fragments joined with FragmentSeparator.
	Text string `json:"text"`

	Failed []BlockFailure `json:"failed,omitempty"`

	// Skipped lists blocks never recognized because the run was cancelled.
	Skipped []int `json:"skipped,omitempty"`

	// Partial reports that the run stopped before every block was attempted.
	Partial bool `json:"partial"`

	// Prepared carries the intermediate images. It is not serialized.
	Prepared *Prepared `json:"-"`
}

// Run prepares img, segments it and recognizes every block with lang (empty
// means Config.Language).
//
// Recognizer failures are isolated per block and reported in Result.Failed;
// Run still returns a nil error for them. If ctx is cancelled after
// segmentation, Run returns the partial Result together with the wrapped
// context error.
func (p *Pipeline) Run(ctx context.Context, img image.Image, lang string) (*Result, error) {
	if p.recognizer == nil {
		return nil, ErrNoRecognizer
	}
	if lang == "" {
		lang = p.cfg.Language
	}

	runID := uuid.NewString()
	log := p.logger.With("run_id", runID)
	start := time.Now()

	prepared, err := p.prepare(ctx, img, log)
	if err != nil {
		pipelineRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	seg, err := p.segment(ctx, prepared, log)
	if err != nil {
		pipelineRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	result := &Result{
		RunID:     runID,
		Skew:      prepared.Skew,
		Strategy:  seg.Strategy,
		Fallback:  seg.Fallback,
		Blocks:    seg.Blocks,
		Fragments: make([]string, len(seg.Blocks)),
		Prepared:  prepared,
	}

	recStart := time.Now()
	outcomes := p.recognizeBlocks(ctx, prepared.Deskewed, seg.Blocks, lang)
	for i, o := range outcomes {
		switch {
		case o.skipped:
			result.Skipped = append(result.Skipped, i)
			recognitions.WithLabelValues("skipped").Inc()
		case o.err != nil:
			result.Failed = append(result.Failed, BlockFailure{Block: i, Error: o.err.Error(), Err: o.err})
			recognitions.WithLabelValues("failed").Inc()
			log.Warn("block recognition failed", "block", i, "error", o.err)
		default:
			result.Fragments[i] = o.text
			recognitions.WithLabelValues("ok").Inc()
		}
	}
	result.Text = strings.Join(result.Fragments, FragmentSeparator)
	result.Partial = len(result.Skipped) > 0
	p.stageDone(log, "recognize", recStart,
		"blocks", len(seg.Blocks),
		"failed", len(result.Failed),
		"skipped", len(result.Skipped),
	)

	textLength.Observe(float64(len(result.Text)))
	runDuration.Observe(time.Since(start).Seconds())

	if result.Partial {
		pipelineRuns.WithLabelValues("partial").Inc()
		cause := ctx.Err()
		if cause == nil {
			cause = context.Canceled
		}
		return result, fmt.Errorf("run %s stopped after %d of %d blocks: %w",
			runID, len(seg.Blocks)-len(result.Skipped), len(seg.Blocks), cause)
	}
	pipelineRuns.WithLabelValues("ok").Inc()
	log.Info("run complete",
		"blocks", len(seg.Blocks),
		"strategy", seg.Strategy.String(),
		"failed", len(result.Failed),
		"elapsed", time.Since(start),
	)
	return result, nil
}

// blockJob represents a single block recognition job.
type blockJob struct {
	index int
	block detection.TextBlock
}

// blockOutcome represents the result of recognizing a single block.
type blockOutcome struct {
	index   int
	text    string
	err     *ocr.RecognitionError
	skipped bool
}

// recognizeBlocks recognizes blocks on a pool of at most Config.Workers
// goroutines. The returned slice is indexed by block; blocks that were never
// attempted, or that were interrupted by cancellation, are marked skipped.
func (p *Pipeline) recognizeBlocks(ctx context.Context, page *image.Gray, blocks []detection.TextBlock, lang string) []blockOutcome {
	outcomes := make([]blockOutcome, len(blocks))
	for i := range outcomes {
		outcomes[i] = blockOutcome{index: i, skipped: true}
	}
	if len(blocks) == 0 {
		return outcomes
	}

	workers := min(p.cfg.Workers, len(blocks))
	jobs := make(chan blockJob, len(blocks))
	results := make(chan blockOutcome, len(blocks))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go p.worker(ctx, page, lang, jobs, results, &wg)
	}

	go func() {
		defer close(jobs)
		for i, b := range blocks {
			select {
			case jobs <- blockJob{index: i, block: b}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		outcomes[r.index] = r
	}
	return outcomes
}

// worker recognizes blocks from the jobs channel until it closes or ctx is done.
func (p *Pipeline) worker(
	ctx context.Context,
	page *image.Gray,
	lang string,
	jobs <-chan blockJob,
	results chan<- blockOutcome,
	wg *sync.WaitGroup,
) {
	defer wg.Done()

	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}
			// results is buffered for every block, so sends never block.
			results <- p.recognizeBlock(ctx, page, lang, job)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pipeline) recognizeBlock(ctx context.Context, page *image.Gray, lang string, job blockJob) blockOutcome {
	if ctx.Err() != nil {
		return blockOutcome{index: job.index, skipped: true}
	}

	region, err := imaging.CropGray(page, job.block.Rect())
	if err != nil {
		return blockOutcome{index: job.index, err: &ocr.RecognitionError{Block: job.index, Err: err}}
	}

	text, err := p.recognizer.Recognize(ctx, region, lang)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return blockOutcome{index: job.index, skipped: true}
		}
		return blockOutcome{index: job.index, err: &ocr.RecognitionError{Block: job.index, Err: err}}
	}
	return blockOutcome{index: job.index, text: text}
}

