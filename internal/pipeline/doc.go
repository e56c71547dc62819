// Package pipeline wires the preprocessing, segmentation and recognition
// stages into a single page-level operation.
//
// A run moves strictly forward through the stages:
//
//	image -> gray -> polarity -> denoise -> skew -> rotate -> (binarize)
//	      -> segment -> recognize per block -> ordered text
//
// Prepare stops after preprocessing, Segment after block detection, and Run
// performs the full pass. Each stage returns a new image, so the Prepared
// value exposes every intermediate for previews and debugging.
//
// Block recognition runs on a bounded worker pool. Results are reassembled by
// block index, so the output order always matches the left-to-right block
// order no matter which worker finishes first. A recognizer failure on one
// block is recorded in Result.Failed and leaves an empty fragment; it never
// aborts the run. Cancelling the context stops dispatch and returns whatever
// fragments were already collected.
package pipeline
