package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "docprep"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "DOCPREP"

	// DefaultEnvFile is loaded into the process environment before the
	// configuration is resolved, when it exists.
	DefaultEnvFile = ".env"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper

	// EnvFile is the dotenv file read before resolving; empty disables it.
	EnvFile string

	// SearchPaths replaces the standard configuration directories when set.
	SearchPaths []string
}

// NewLoader creates a loader backed by the global viper instance, so that
// flags bound by the CLI take part in resolution.
func NewLoader() *Loader {
	return NewLoaderWithViper(viper.GetViper())
}

// NewLoaderWithViper creates a loader backed by v.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v, EnvFile: DefaultEnvFile}
}

// Load resolves the configuration from configFile (or the standard search
// paths when empty), the dotenv file, environment variables and defaults,
// then validates it.
func (l *Loader) Load(configFile string) (*Config, error) {
	cfg, err := l.LoadWithoutValidation(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadWithoutValidation is Load without the final Validate call.
func (l *Loader) LoadWithoutValidation(configFile string) (*Config, error) {
	if err := l.loadEnvFile(); err != nil {
		return nil, err
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		// A missing config file is fine when none was requested explicitly
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// ConfigFileUsed returns the path of the config file used, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Viper returns the underlying viper instance.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

func (l *Loader) loadEnvFile() error {
	if l.EnvFile == "" {
		return nil
	}
	// godotenv never overrides variables already present in the environment
	if err := godotenv.Load(l.EnvFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", l.EnvFile, err)
	}
	return nil
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	if len(l.SearchPaths) > 0 {
		for _, p := range l.SearchPaths {
			l.v.AddConfigPath(p)
		}
		return
	}

	l.v.AddConfigPath(".")

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		l.v.AddConfigPath(filepath.Join(configDir, "docprep"))
	} else if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "docprep"))
	}

	l.v.AddConfigPath("/etc/docprep")
}

// setupEnvironmentVariables configures environment variable handling.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	// DOCPREP_PIPELINE_SKEW_MIN_ANGLE maps to pipeline.skew.min_angle
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults sets default values for all configuration options.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("log_level", d.LogLevel)

	l.v.SetDefault("pipeline.denoise.h", d.Pipeline.Denoise.H)
	l.v.SetDefault("pipeline.denoise.template_window", d.Pipeline.Denoise.TemplateWindow)
	l.v.SetDefault("pipeline.denoise.search_window", d.Pipeline.Denoise.SearchWindow)

	l.v.SetDefault("pipeline.skew.angle_range", d.Pipeline.Skew.AngleRange)
	l.v.SetDefault("pipeline.skew.min_angle", d.Pipeline.Skew.MinAngle)
	l.v.SetDefault("pipeline.skew.min_image_size", d.Pipeline.Skew.MinImageSize)
	l.v.SetDefault("pipeline.skew.canny_low", d.Pipeline.Skew.CannyLow)
	l.v.SetDefault("pipeline.skew.canny_high", d.Pipeline.Skew.CannyHigh)
	l.v.SetDefault("pipeline.skew.hough_threshold", d.Pipeline.Skew.HoughThreshold)
	l.v.SetDefault("pipeline.skew.hough_max_gap", d.Pipeline.Skew.HoughMaxGap)
	l.v.SetDefault("pipeline.skew.hough_min_length_ratio", d.Pipeline.Skew.HoughMinLengthRatio)

	l.v.SetDefault("pipeline.padding", d.Pipeline.Padding)

	l.v.SetDefault("pipeline.binarize.enabled", d.Pipeline.Binarize.Enabled)
	l.v.SetDefault("pipeline.binarize.block_size", d.Pipeline.Binarize.BlockSize)
	l.v.SetDefault("pipeline.binarize.c", d.Pipeline.Binarize.C)

	setStrategyDefaults(l.v, "pipeline.line_oriented", d.Pipeline.LineOriented)
	setStrategyDefaults(l.v, "pipeline.block_oriented", d.Pipeline.BlockOriented)

	l.v.SetDefault("recognition.language", d.Recognition.Language)
	l.v.SetDefault("recognition.workers", d.Recognition.Workers)
	l.v.SetDefault("recognition.tessdata_prefix", d.Recognition.TessdataPrefix)
	l.v.SetDefault("recognition.upscale_below", d.Recognition.UpscaleBelow)

	l.v.SetDefault("server.metrics_addr", d.Server.MetricsAddr)

	l.v.SetDefault("output.format", d.Output.Format)
	l.v.SetDefault("output.file", d.Output.File)
}

func setStrategyDefaults(v *viper.Viper, prefix string, s StrategyConfig) {
	v.SetDefault(prefix+".blur_radius", s.BlurRadius)
	v.SetDefault(prefix+".kernel_width", s.KernelWidth)
	v.SetDefault(prefix+".kernel_width_ratio", s.KernelWidthRatio)
	v.SetDefault(prefix+".kernel_height", s.KernelHeight)
	v.SetDefault(prefix+".min_height", s.MinHeight)
	v.SetDefault(prefix+".min_width", s.MinWidth)
}
