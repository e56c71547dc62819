package cmd

import (
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/spf13/cobra"
)

const (
	outputFormatJSON = "json"
	outputFormatText = "text"
)

// outputSettings resolves --format and --output against the configuration.
func (a *app) outputSettings(cmd *cobra.Command) (format, file string, err error) {
	format = a.cfg.Output.Format
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	file = a.cfg.Output.File
	if cmd.Flags().Changed("output") {
		file, _ = cmd.Flags().GetString("output")
	}
	if format != outputFormatJSON && format != outputFormatText {
		return "", "", fmt.Errorf("unsupported output format %q (use text or json)", format)
	}
	return format, file, nil
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", outputFormatText, "output format (text, json)")
	cmd.Flags().StringP("output", "o", "", "write results to this file instead of stdout")
}

// writeOutput sends data to file, or to the command's stdout when file is empty.
func writeOutput(cmd *cobra.Command, file string, data []byte) error {
	if file == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(file, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", file, err)
	}
	return nil
}

func marshalJSON(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (a *app) loadImage(path string) (image.Image, error) {
	img, err := a.cache.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

func printf(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format, args...)
}
