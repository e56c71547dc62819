// Package ocr defines the text recognition capability consumed by the
// pipeline and provides a Tesseract-backed implementation.
//
// The pipeline never talks to an OCR engine directly. It hands each detected
// block, cropped from the deskewed grayscale page, to a Recognizer and
// collects the returned strings by block index. Any engine can be plugged in
// by satisfying the interface; tests use in-memory fakes.
//
// # Prerequisites
//
// The Tesseract recognizer links against libtesseract through gosseract/v2,
// so cgo and the Tesseract development headers are required at build time:
//   - Ubuntu/Debian: apt-get install libtesseract-dev tesseract-ocr
//   - macOS: brew install tesseract
//
// Language data files are required for every language in the hint:
//   - Ubuntu/Debian: apt-get install tesseract-ocr-eng tesseract-ocr-chi-sim
//
// # Language Hints
//
// The default hint is "chi_sim+eng" (Simplified Chinese plus English). Hints
// use Tesseract's "+"-joined syntax, for example "eng", "deu+eng" or
// "chi_sim+chi_tra+eng".
//
// # Error Handling
//
// Recognition failures are reported per block as *RecognitionError, which
// wraps the engine error and records the block index. The pipeline isolates
// these failures: one bad block leaves an empty fragment in its slot and
// does not abort the run.
package ocr
