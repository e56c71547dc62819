// Package cmd implements the docprep-mcp command line.
//
// Running the binary without a subcommand starts the MCP server on stdio, so
// it can be registered with an MCP client directly. The ocr, preprocess and
// segment subcommands run the same pipeline on local files.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ironsheep/docprep-mcp/internal/config"
	"github.com/ironsheep/docprep-mcp/internal/imaging"
	"github.com/ironsheep/docprep-mcp/internal/pipeline"
)

// BuildInfo carries the version stamped into the binary at build time.
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", b.Version, b.GitCommit, b.BuildTime)
}

// app holds the state shared by all subcommands of one root command.
type app struct {
	info    BuildInfo
	v       *viper.Viper
	cfgFile string

	// Set by the persistent pre-run hook.
	loader *config.Loader
	cfg    *config.Config
	logger *slog.Logger
	cache  *imaging.ImageCache
}

// NewRootCommand builds the docprep-mcp command tree. Each call returns an
// independent tree with its own configuration state.
func NewRootCommand(info BuildInfo) *cobra.Command {
	a := &app{
		info:  info,
		v:     viper.New(),
		cache: imaging.NewImageCache(),
	}
	defaults := config.DefaultConfig()

	root := &cobra.Command{
		Use:   "docprep-mcp",
		Short: "Document preprocessing and text-block OCR over MCP",
		Long: `docprep-mcp cleans up photographed or scanned document pages, finds their
text blocks and reads them with Tesseract.

Pages are converted to grayscale, normalized to dark text on a light
background, denoised and deskewed. Text blocks are found with a line-oriented
strategy, falling back to a block-oriented one, and recognized in parallel.

Without a subcommand the MCP server is started on stdin/stdout.

Examples:
  docprep-mcp
  docprep-mcp ocr page.jpg
  docprep-mcp segment page.jpg --overlay blocks.png
  docprep-mcp preprocess page.jpg --out clean.png --binarize`,
		Version:           info.String(),
		SilenceUsage:      true,
		PersistentPreRunE: a.initConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd, a.cfg.Server.MetricsAddr)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "",
		"config file (default is docprep.yaml in ., $XDG_CONFIG_HOME/docprep, /etc/docprep)")
	pf.String("log-level", defaults.LogLevel, "log level (debug, info, warn, error)")
	pf.String("lang", defaults.Recognition.Language, "Tesseract language hint, e.g. eng or chi_sim+eng")
	pf.Int("workers", defaults.Recognition.Workers, "number of concurrent block recognitions")
	pf.String("tessdata-prefix", "", "directory containing Tesseract traineddata files")

	_ = a.v.BindPFlag("log_level", pf.Lookup("log-level"))
	_ = a.v.BindPFlag("recognition.language", pf.Lookup("lang"))
	_ = a.v.BindPFlag("recognition.workers", pf.Lookup("workers"))
	_ = a.v.BindPFlag("recognition.tessdata_prefix", pf.Lookup("tessdata-prefix"))

	root.AddCommand(
		newServeCmd(a),
		newOCRCmd(a),
		newPreprocessCmd(a),
		newSegmentCmd(a),
		newConfigCmd(a),
		newVersionCmd(a),
	)
	return root
}

// initConfig loads and validates the configuration and installs the logger.
// Logs always go to stderr; stdout carries the MCP protocol or command output.
func (a *app) initConfig(cmd *cobra.Command, _ []string) error {
	a.loader = config.NewLoaderWithViper(a.v)
	cfg, err := a.loader.Load(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(a.logger)

	if used := a.loader.ConfigFileUsed(); used != "" {
		a.logger.Debug("configuration loaded", "file", used)
	}
	return nil
}

// newPipeline builds a pipeline with the configured Tesseract recognizer.
func (a *app) newPipeline() *pipeline.Pipeline {
	return pipeline.New(a.cfg.ToPipelineConfig(),
		pipeline.WithRecognizer(a.cfg.NewRecognizer()),
		pipeline.WithLogger(a.logger),
	)
}
