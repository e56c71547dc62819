package cmd

import (
	"bytes"
	"errors"

	"github.com/spf13/cobra"

	"github.com/ironsheep/docprep-mcp/internal/pipeline"
)

// ocrOutput is the JSON record written for one input file.
type ocrOutput struct {
	File   string           `json:"file"`
	Result *pipeline.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func newOCRCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ocr <image>...",
		Short: "Recognize the text of document images",
		Long: `Run the full pipeline on one or more images: preprocess, segment into text
blocks and recognize every block with Tesseract. Block texts are joined in
reading order, separated by blank lines.

A file whose run is interrupted or fails to preprocess is reported and the
remaining files are still processed.

Examples:
  docprep-mcp ocr page.jpg
  docprep-mcp ocr scans/*.png --format json --output results.json
  docprep-mcp ocr page.jpg --lang eng --workers 4`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, file, err := a.outputSettings(cmd)
			if err != nil {
				return err
			}

			p := a.newPipeline()
			outputs := make([]ocrOutput, 0, len(args))
			var errs []error
			for _, path := range args {
				out := ocrOutput{File: path}
				img, err := a.loadImage(path)
				if err == nil {
					out.Result, err = p.Run(cmd.Context(), img, "")
				}
				if err != nil {
					out.Error = err.Error()
					errs = append(errs, err)
					a.logger.Error("ocr failed", "file", path, "error", err)
				}
				outputs = append(outputs, out)
			}

			var data []byte
			if format == outputFormatJSON {
				data, err = marshalJSON(outputs)
				if err != nil {
					return err
				}
			} else {
				data = formatOCRText(outputs)
			}
			if err := writeOutput(cmd, file, data); err != nil {
				return err
			}
			return errors.Join(errs...)
		},
	}
	addOutputFlags(cmd)
	return cmd
}

func formatOCRText(outputs []ocrOutput) []byte {
	var buf bytes.Buffer
	for i, out := range outputs {
		if len(outputs) > 1 {
			if i > 0 {
				buf.WriteString("\n")
			}
			printf(&buf, "== %s ==\n", out.File)
		}
		if out.Result == nil {
			printf(&buf, "error: %s\n", out.Error)
			continue
		}
		buf.WriteString(out.Result.Text)
		buf.WriteString("\n")
		for _, f := range out.Result.Failed {
			printf(&buf, "warning: block %d failed: %s\n", f.Block, f.Error)
		}
		if out.Result.Partial {
			printf(&buf, "warning: partial result, %d blocks skipped\n", len(out.Result.Skipped))
		}
	}
	return buf.Bytes()
}
