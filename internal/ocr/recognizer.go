package ocr

import (
	"context"
	"fmt"
	"image"
)

// DefaultLanguage is the language hint used when none is supplied.
const DefaultLanguage = "chi_sim+eng"

// Recognizer turns the pixels of one text block into text.
//
// Implementations must be safe for concurrent use: the pipeline calls
// Recognize from several workers at once, each with its own region.
type Recognizer interface {
	Recognize(ctx context.Context, region *image.Gray, lang string) (string, error)
}

// RecognizerFunc adapts an ordinary function to the Recognizer interface.
type RecognizerFunc func(ctx context.Context, region *image.Gray, lang string) (string, error)

// Recognize calls f(ctx, region, lang).
func (f RecognizerFunc) Recognize(ctx context.Context, region *image.Gray, lang string) (string, error) {
	return f(ctx, region, lang)
}

// RecognitionError reports that the recognizer failed on a single block.
type RecognitionError struct {
	// Block is the index of the block in segmentation order.
	Block int

	// Err is the error returned by the recognizer.
	Err error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("recognition failed for block %d: %v", e.Block, e.Err)
}

func (e *RecognitionError) Unwrap() error {
	return e.Err
}
