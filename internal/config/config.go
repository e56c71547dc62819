package config

import (
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"strings"

	"github.com/ironsheep/docprep-mcp/internal/detection"
	"github.com/ironsheep/docprep-mcp/internal/ocr"
	"github.com/ironsheep/docprep-mcp/internal/pipeline"
	"github.com/ironsheep/docprep-mcp/internal/preprocess"
)

// Config represents the complete configuration for docprep-mcp.
// It is loaded from a configuration file, a .env file, environment variables
// and command-line flags, in increasing order of precedence.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`

	// Pipeline stage settings
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`

	// Recognition settings
	Recognition RecognitionConfig `mapstructure:"recognition" yaml:"recognition" json:"recognition"`

	// MCP server settings (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Output settings (for process and segment commands)
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`
}

// PipelineConfig contains preprocessing and segmentation settings.
type PipelineConfig struct {
	Denoise       DenoiseConfig  `mapstructure:"denoise" yaml:"denoise" json:"denoise"`
	Skew          SkewConfig     `mapstructure:"skew" yaml:"skew" json:"skew"`
	Padding       int            `mapstructure:"padding" yaml:"padding" json:"padding"`
	Binarize      BinarizeConfig `mapstructure:"binarize" yaml:"binarize" json:"binarize"`
	LineOriented  StrategyConfig `mapstructure:"line_oriented" yaml:"line_oriented" json:"line_oriented"`
	BlockOriented StrategyConfig `mapstructure:"block_oriented" yaml:"block_oriented" json:"block_oriented"`
}

// DenoiseConfig contains non-local-means settings.
type DenoiseConfig struct {
	H              float64 `mapstructure:"h" yaml:"h" json:"h"`
	TemplateWindow int     `mapstructure:"template_window" yaml:"template_window" json:"template_window"`
	SearchWindow   int     `mapstructure:"search_window" yaml:"search_window" json:"search_window"`
}

// SkewConfig contains skew estimation settings.
type SkewConfig struct {
	AngleRange          float64 `mapstructure:"angle_range" yaml:"angle_range" json:"angle_range"`
	MinAngle            float64 `mapstructure:"min_angle" yaml:"min_angle" json:"min_angle"`
	MinImageSize        int     `mapstructure:"min_image_size" yaml:"min_image_size" json:"min_image_size"`
	CannyLow            float64 `mapstructure:"canny_low" yaml:"canny_low" json:"canny_low"`
	CannyHigh           float64 `mapstructure:"canny_high" yaml:"canny_high" json:"canny_high"`
	HoughThreshold      int     `mapstructure:"hough_threshold" yaml:"hough_threshold" json:"hough_threshold"`
	HoughMaxGap         int     `mapstructure:"hough_max_gap" yaml:"hough_max_gap" json:"hough_max_gap"`
	HoughMinLengthRatio float64 `mapstructure:"hough_min_length_ratio" yaml:"hough_min_length_ratio" json:"hough_min_length_ratio"`
}

// BinarizeConfig contains adaptive threshold settings.
type BinarizeConfig struct {
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	BlockSize int     `mapstructure:"block_size" yaml:"block_size" json:"block_size"`
	C         float64 `mapstructure:"c" yaml:"c" json:"c"`
}

// StrategyConfig contains the tunable values of one segmentation strategy.
// Threshold polarity is fixed per strategy and not configurable.
type StrategyConfig struct {
	BlurRadius       float64 `mapstructure:"blur_radius" yaml:"blur_radius" json:"blur_radius"`
	KernelWidth      int     `mapstructure:"kernel_width" yaml:"kernel_width" json:"kernel_width"`
	KernelWidthRatio float64 `mapstructure:"kernel_width_ratio" yaml:"kernel_width_ratio" json:"kernel_width_ratio"`
	KernelHeight     int     `mapstructure:"kernel_height" yaml:"kernel_height" json:"kernel_height"`
	MinHeight        int     `mapstructure:"min_height" yaml:"min_height" json:"min_height"`
	MinWidth         int     `mapstructure:"min_width" yaml:"min_width" json:"min_width"`
}

// RecognitionConfig contains Tesseract and worker pool settings.
type RecognitionConfig struct {
	Language       string `mapstructure:"language" yaml:"language" json:"language"`
	Workers        int    `mapstructure:"workers" yaml:"workers" json:"workers"`
	TessdataPrefix string `mapstructure:"tessdata_prefix" yaml:"tessdata_prefix" json:"tessdata_prefix"`
	UpscaleBelow   int    `mapstructure:"upscale_below" yaml:"upscale_below" json:"upscale_below"`
}

// ServerConfig contains MCP server settings.
type ServerConfig struct {
	// MetricsAddr, when set, serves Prometheus metrics on this address.
	MetricsAddr string `mapstructure:"metrics_addr" yaml:"metrics_addr" json:"metrics_addr"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	denoise := preprocess.DefaultDenoiseOptions()
	skew := preprocess.DefaultSkewOptions()
	binarize := preprocess.DefaultBinarizeOptions()

	return Config{
		LogLevel: "info",
		Pipeline: PipelineConfig{
			Denoise: DenoiseConfig{
				H:              denoise.H,
				TemplateWindow: denoise.TemplateWindow,
				SearchWindow:   denoise.SearchWindow,
			},
			Skew: SkewConfig{
				AngleRange:          skew.AngleRange,
				MinAngle:            skew.MinAngle,
				MinImageSize:        skew.MinImageSize,
				CannyLow:            skew.CannyLow,
				CannyHigh:           skew.CannyHigh,
				HoughThreshold:      skew.HoughThreshold,
				HoughMaxGap:         skew.HoughMaxGap,
				HoughMinLengthRatio: skew.HoughMinLengthRatio,
			},
			Padding: 100,
			Binarize: BinarizeConfig{
				Enabled:   false,
				BlockSize: binarize.BlockSize,
				C:         binarize.C,
			},
			LineOriented:  fromStrategy(detection.LineOrientedStrategy()),
			BlockOriented: fromStrategy(detection.BlockOrientedStrategy()),
		},
		Recognition: RecognitionConfig{
			Language: ocr.DefaultLanguage,
			Workers:  runtime.NumCPU(),
		},
		Output: OutputConfig{
			Format: "text",
		},
	}
}

func fromStrategy(s detection.Strategy) StrategyConfig {
	return StrategyConfig{
		BlurRadius:       s.BlurRadius,
		KernelWidth:      s.KernelWidth,
		KernelWidthRatio: s.KernelWidthRatio,
		KernelHeight:     s.KernelHeight,
		MinHeight:        s.MinHeight,
		MinWidth:         s.MinWidth,
	}
}

// ValidationError reports an invalid configuration value.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v (%s)", e.Field, e.Value, e.Reason)
}

// Validate validates the configuration and returns the first problem found
// as a *ValidationError.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		return &ValidationError{"log_level", c.LogLevel, "must be one of: " + strings.Join(validLogLevels, ", ")}
	}

	validFormats := []string{"text", "json"}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return &ValidationError{"output.format", c.Output.Format, "must be one of: " + strings.Join(validFormats, ", ")}
	}

	p := c.Pipeline
	if p.Denoise.H <= 0 {
		return &ValidationError{"pipeline.denoise.h", p.Denoise.H, "must be positive"}
	}
	if err := validateOddWindow("pipeline.denoise.template_window", p.Denoise.TemplateWindow); err != nil {
		return err
	}
	if err := validateOddWindow("pipeline.denoise.search_window", p.Denoise.SearchWindow); err != nil {
		return err
	}
	if p.Denoise.SearchWindow < p.Denoise.TemplateWindow {
		return &ValidationError{"pipeline.denoise.search_window", p.Denoise.SearchWindow, "must not be smaller than template_window"}
	}
	if p.Skew.AngleRange <= 0 || p.Skew.AngleRange > 90 {
		return &ValidationError{"pipeline.skew.angle_range", p.Skew.AngleRange, "must be in (0, 90]"}
	}
	if p.Skew.MinAngle < 0 {
		return &ValidationError{"pipeline.skew.min_angle", p.Skew.MinAngle, "must not be negative"}
	}
	if p.Skew.CannyLow < 0 || p.Skew.CannyHigh < p.Skew.CannyLow {
		return &ValidationError{"pipeline.skew.canny_high", p.Skew.CannyHigh, "must be at least canny_low"}
	}
	if p.Skew.HoughThreshold <= 0 {
		return &ValidationError{"pipeline.skew.hough_threshold", p.Skew.HoughThreshold, "must be positive"}
	}
	if p.Padding < 0 {
		return &ValidationError{"pipeline.padding", p.Padding, "must not be negative"}
	}
	if err := validateOddWindow("pipeline.binarize.block_size", p.Binarize.BlockSize); err != nil {
		return err
	}
	if p.Binarize.BlockSize < 3 {
		return &ValidationError{"pipeline.binarize.block_size", p.Binarize.BlockSize, "must be at least 3"}
	}
	if err := validateStrategy("pipeline.line_oriented", p.LineOriented); err != nil {
		return err
	}
	if err := validateStrategy("pipeline.block_oriented", p.BlockOriented); err != nil {
		return err
	}

	if c.Recognition.Workers <= 0 {
		return &ValidationError{"recognition.workers", c.Recognition.Workers, "must be positive"}
	}
	if strings.TrimSpace(c.Recognition.Language) == "" {
		return &ValidationError{"recognition.language", c.Recognition.Language, "must not be empty"}
	}
	return nil
}

func validateOddWindow(field string, v int) error {
	if v <= 0 || v%2 == 0 {
		return &ValidationError{field, v, "must be a positive odd number"}
	}
	return nil
}

func validateStrategy(prefix string, s StrategyConfig) error {
	if s.BlurRadius < 0 {
		return &ValidationError{prefix + ".blur_radius", s.BlurRadius, "must not be negative"}
	}
	if s.KernelWidth <= 0 && s.KernelWidthRatio <= 0 {
		return &ValidationError{prefix + ".kernel_width", s.KernelWidth, "kernel_width or kernel_width_ratio must be positive"}
	}
	if s.KernelHeight <= 0 {
		return &ValidationError{prefix + ".kernel_height", s.KernelHeight, "must be positive"}
	}
	if s.MinHeight < 0 || s.MinWidth < 0 {
		return &ValidationError{prefix + ".min_height", s.MinHeight, "size filters must not be negative"}
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level; unknown values yield Info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ToPipelineConfig converts the config to the pipeline configuration format.
func (c *Config) ToPipelineConfig() pipeline.Config {
	p := c.Pipeline
	return pipeline.Config{
		Denoise: preprocess.DenoiseOptions{
			H:              p.Denoise.H,
			TemplateWindow: p.Denoise.TemplateWindow,
			SearchWindow:   p.Denoise.SearchWindow,
		},
		Skew: preprocess.SkewOptions{
			AngleRange:          p.Skew.AngleRange,
			MinAngle:            p.Skew.MinAngle,
			MinImageSize:        p.Skew.MinImageSize,
			CannyLow:            p.Skew.CannyLow,
			CannyHigh:           p.Skew.CannyHigh,
			HoughThreshold:      p.Skew.HoughThreshold,
			HoughMaxGap:         p.Skew.HoughMaxGap,
			HoughMinLengthRatio: p.Skew.HoughMinLengthRatio,
		},
		Binarize: preprocess.BinarizeOptions{
			BlockSize: p.Binarize.BlockSize,
			C:         p.Binarize.C,
		},
		Padding:       p.Padding,
		EmitBinarized: p.Binarize.Enabled,
		Primary:       p.LineOriented.toStrategy(detection.LineOrientedStrategy()),
		Fallback:      p.BlockOriented.toStrategy(detection.BlockOrientedStrategy()),
		Language:      c.Recognition.Language,
		Workers:       c.Recognition.Workers,
	}
}

func (s StrategyConfig) toStrategy(base detection.Strategy) detection.Strategy {
	base.BlurRadius = s.BlurRadius
	base.KernelWidth = s.KernelWidth
	base.KernelWidthRatio = s.KernelWidthRatio
	base.KernelHeight = s.KernelHeight
	base.MinHeight = s.MinHeight
	base.MinWidth = s.MinWidth
	return base
}

// NewRecognizer builds the Tesseract recognizer described by the
// recognition settings.
func (c *Config) NewRecognizer() *ocr.Tesseract {
	t := ocr.NewTesseract(c.Recognition.TessdataPrefix)
	t.UpscaleBelow = c.Recognition.UpscaleBelow
	return t
}
