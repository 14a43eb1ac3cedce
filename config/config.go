// Package config loads the estimator.yaml settings that tune parsing,
// reconciliation and the HTTP surface.
package config

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"budgetledger/services"
)

// PathEnv names the environment variable holding the config file path.
const PathEnv = "ESTIMATOR_CONFIG"

// DefaultPath is used when PathEnv is unset.
const DefaultPath = "estimator.yaml"

// Config represents the estimator.yaml file.
type Config struct {
	CurrencyTolerance float64                 `yaml:"currency_tolerance"`
	QuantityPlaces    int32                   `yaml:"quantity_places"`
	MaxUploadMB       int64                   `yaml:"max_upload_mb"`
	HeaderScanRows    int                     `yaml:"header_scan_rows"`
	SkipSheets        []string                `yaml:"skip_sheets"`
	LogLevel          string                  `yaml:"log_level"`
	PDFFont           string                  `yaml:"pdf_font,omitempty"`
	Categories        []services.CategoryRule `yaml:"categories,omitempty"`
	SeedDemo          bool                    `yaml:"seed_demo"`
}

// Default returns the built-in settings.
func Default() *Config {
	parse := services.DefaultParseOptions()
	return &Config{
		CurrencyTolerance: 0,
		QuantityPlaces:    services.DefaultQuantityPlaces,
		MaxUploadMB:       10,
		HeaderScanRows:    parse.HeaderScanRows,
		SkipSheets:        parse.SkipSheets,
		LogLevel:          "info",
		SeedDemo:          true,
	}
}

// PathFromEnv returns the config path from PathEnv or DefaultPath.
func PathFromEnv() string {
	if p := os.Getenv(PathEnv); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads a config file from disk. Keys absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate rejects settings that cannot be applied.
func (c *Config) Validate() error {
	if c.CurrencyTolerance < 0 {
		return fmt.Errorf("currency_tolerance must not be negative, got %v", c.CurrencyTolerance)
	}
	if c.QuantityPlaces < 0 || c.QuantityPlaces > 6 {
		return fmt.Errorf("quantity_places must be between 0 and 6, got %d", c.QuantityPlaces)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive, got %d", c.MaxUploadMB)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	// Rules may name a category by its Japanese label (材料費); store the value.
	for i, r := range c.Categories {
		cat, err := services.ParseCategory(string(r.Category))
		if err != nil {
			return fmt.Errorf("categories[%d]: %w", i, err)
		}
		c.Categories[i].Category = cat
	}
	return nil
}

// Level returns the zap level for LogLevel, falling back to info.
func (c *Config) Level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// MaxUploadBytes is the request body limit for estimate uploads.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// ReconcileOptions returns the numeric reconciliation settings.
func (c *Config) ReconcileOptions() services.ReconcileOptions {
	places := c.QuantityPlaces
	if places == 0 {
		places = services.DefaultQuantityPlaces
	}
	return services.ReconcileOptions{Tolerance: c.CurrencyTolerance, QuantityPlaces: places}
}

// ParseOptions returns the workbook parser settings.
func (c *Config) ParseOptions() services.ParseOptions {
	return services.ParseOptions{HeaderScanRows: c.HeaderScanRows, SkipSheets: c.SkipSheets}
}

// Reconciler builds a reconciler from the configured rules, using the
// built-in dictionary when none are configured.
func (c *Config) Reconciler() *services.Reconciler {
	var classifier *services.Classifier
	if len(c.Categories) > 0 {
		classifier = services.NewClassifier(c.Categories)
	}
	return services.NewReconciler(classifier, c.ReconcileOptions())
}
