package docstamp

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Config is the service and CLI configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Stamp     StampConfig     `yaml:"stamp"`
	Converter ConverterConfig `yaml:"converter"`
	Layout    LayoutConfig    `yaml:"layout"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Listen          string        `yaml:"listen"`
	OutputRoot      string        `yaml:"output_root"`
	TemplatesDir    string        `yaml:"templates_dir"`
	UploadLimitMB   int64         `yaml:"upload_limit_mb"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StampConfig holds the stamp inputs and styling.
type StampConfig struct {
	QRPath       string   `yaml:"qr_path"`
	LogoPath     string   `yaml:"logo_path"`
	Caption1     string   `yaml:"caption1"`
	Caption2     string   `yaml:"caption2"`
	FontDirs     []string          `yaml:"font_dirs"`
	FontFiles    map[string]string `yaml:"font_files"` // family -> .ttf/.otf path
	Fonts        []string          `yaml:"fonts"`
	BorderColor  string            `yaml:"border_color"`
	TextColor    string            `yaml:"text_color"`
	FallbackText string            `yaml:"fallback_text"`
}

// ConverterConfig configures the PDF converter.
type ConverterConfig struct {
	Binary  string        `yaml:"binary"`
	Timeout time.Duration `yaml:"timeout"`
}

// LayoutConfig configures the section geometry applied while stamping.
type LayoutConfig struct {
	Apply            bool    `yaml:"apply"`
	FooterDistanceCM float64 `yaml:"footer_distance_cm"`
	LeftMarginCM     float64 `yaml:"left_margin_cm"`
	RightMarginCM    float64 `yaml:"right_margin_cm"`
	FooterRule       bool    `yaml:"footer_rule"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:          ":8500",
			OutputRoot:      "output",
			TemplatesDir:    "uploads",
			UploadLimitMB:   32,
			ShutdownTimeout: 10 * time.Second,
		},
		Stamp: StampConfig{
			QRPath:       "assets/qr.png",
			Caption1:     "This document is signed with a digital signature.",
			Caption2:     "Verify it with the QR code",
			Fonts:        []string{"calibri", "arial"},
			BorderColor:  ColorDarkGray.ARGB,
			TextColor:    ColorBlack.ARGB,
			FallbackText: "DocX",
		},
		Converter: ConverterConfig{
			Binary:  DefaultSofficeBinary,
			Timeout: DefaultConversionTimeout,
		},
		Layout: LayoutConfig{
			Apply:            true,
			FooterDistanceCM: 0,
			LeftMarginCM:     1.5,
			RightMarginCM:    2,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads a YAML file over the defaults and applies DOCSTAMP_*
// environment overrides. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	const errCtx = "loading config"

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", errCtx, path, err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from DOCSTAMP_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	overrides := []struct {
		key string
		dst *string
	}{
		{"DOCSTAMP_LISTEN", &c.Server.Listen},
		{"DOCSTAMP_OUTPUT_ROOT", &c.Server.OutputRoot},
		{"DOCSTAMP_TEMPLATES_DIR", &c.Server.TemplatesDir},
		{"DOCSTAMP_QR_PATH", &c.Stamp.QRPath},
		{"DOCSTAMP_LOGO_PATH", &c.Stamp.LogoPath},
		{"DOCSTAMP_SOFFICE", &c.Converter.Binary},
		{"DOCSTAMP_LOG_LEVEL", &c.Log.Level},
	}
	for _, o := range overrides {
		if v, ok := lookup(o.key); ok && v != "" {
			*o.dst = v
		}
	}
}

// Validate checks the configuration for values no component can work with.
func (c *Config) Validate() error {
	var errs []string
	if c.Server.OutputRoot == "" {
		errs = append(errs, "server.output_root is empty")
	}
	if c.Server.UploadLimitMB <= 0 {
		errs = append(errs, "server.upload_limit_mb must be positive")
	}
	if c.Converter.Timeout <= 0 {
		errs = append(errs, "converter.timeout must be positive")
	}
	if c.Layout.FooterDistanceCM < 0 || c.Layout.LeftMarginCM < 0 || c.Layout.RightMarginCM < 0 {
		errs = append(errs, "layout lengths must not be negative")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err.Error())
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q is not text or json", c.Log.Format))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration:\n  %s", strings.Join(errs, "\n  "))
}

// StampInputs returns the configured stamp inputs.
func (c *Config) StampInputs() StampInputs {
	return StampInputs{
		QRPath:   c.Stamp.QRPath,
		LogoPath: c.Stamp.LogoPath,
		Caption:  [2]string{c.Stamp.Caption1, c.Stamp.Caption2},
	}
}

// PipelineOptions builds pipeline options from the configuration.
func (c *Config) PipelineOptions(logger *slog.Logger) *Options {
	stamp := DefaultStampOptions()
	if len(c.Stamp.Fonts) > 0 {
		stamp.FontFamilies = c.Stamp.Fonts
	}
	if c.Stamp.BorderColor != "" {
		stamp.BorderColor = NewColor(c.Stamp.BorderColor)
	}
	if c.Stamp.TextColor != "" {
		stamp.TextColor = NewColor(c.Stamp.TextColor)
	}
	if c.Stamp.FallbackText != "" {
		stamp.LogoFallbackText = c.Stamp.FallbackText
	}

	fonts := NewFontCache(c.Stamp.FontDirs...)
	for family, path := range c.Stamp.FontFiles {
		if err := fonts.LoadFont(family, path); err != nil && logger != nil {
			logger.Warn("font file skipped", "family", family, "path", path, "error", err)
		}
	}

	opts := &Options{
		Converter: &SofficeConverter{Binary: c.Converter.Binary, Logger: logger},
		Timeout:   c.Converter.Timeout,
		Stamp:     stamp,
		Fonts:     fonts,
		Logger:    logger,
	}
	if c.Layout.Apply {
		opts.Layout = &SectionLayout{
			FooterDistance: TwipsFromCentimeter(c.Layout.FooterDistanceCM),
			LeftMargin:     TwipsFromCentimeter(c.Layout.LeftMarginCM),
			RightMargin:    TwipsFromCentimeter(c.Layout.RightMarginCM),
		}
	}
	if c.Layout.FooterRule {
		rule := NewBorder()
		rule.Color = stamp.BorderColor
		opts.FooterRule = &rule
	}
	return opts
}

// NewLogger builds a slog logger writing to w in the configured format.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	hopts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q is not a level", s)
	}
	return level, nil
}
