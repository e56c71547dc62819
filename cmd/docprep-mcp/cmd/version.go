package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ironsheep/docprep-mcp/internal/ocr"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			printf(w, "docprep-mcp %s\n", a.info.Version)
			printf(w, "  Build time: %s\n", a.info.BuildTime)
			printf(w, "  Git commit: %s\n", a.info.GitCommit)
			printf(w, "  Tesseract:  %s\n", ocr.TesseractVersion())
			return nil
		},
	}
}
