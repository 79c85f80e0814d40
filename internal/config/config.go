// Package config loads the forge configuration file and supplies defaults
// for everything it omits.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// #region duration

// Duration accepts Go duration strings ("30s", "1m") in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String formats the duration the way time.Duration does.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// #endregion

// #region types

// Config is the full runtime configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Paths   PathsConfig   `yaml:"paths"`
	Build   BuildConfig   `yaml:"build"`
	Audit   AuditConfig   `yaml:"audit"`
	Content ContentConfig `yaml:"content"`
	Train   TrainConfig   `yaml:"train"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PathsConfig locates the working tree: output pages, model artifacts, the
// training database, and the content cache.
type PathsConfig struct {
	OutputDir  string `yaml:"output_dir"`
	ModelDir   string `yaml:"model_dir"`
	DatasetDB  string `yaml:"dataset_db"`
	CacheDir   string `yaml:"cache_dir"`
	ThemesFile string `yaml:"themes_file"`
}

// BuildConfig controls the repair loop.
type BuildConfig struct {
	MaxAttempts         int     `yaml:"max_attempts"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	Workers             int     `yaml:"workers"`
	UseGenerator        bool    `yaml:"use_generator"`
}

// AuditConfig controls the headless browser audit.
type AuditConfig struct {
	ViewportWidth  int      `yaml:"viewport_width"`
	ViewportHeight int      `yaml:"viewport_height"`
	Timeout        Duration `yaml:"timeout"`
}

// ContentConfig controls the upstream content service.
type ContentConfig struct {
	BaseURL          string   `yaml:"base_url"`
	APIKey           string   `yaml:"api_key"`
	Model            string   `yaml:"model"`
	Timeout          Duration `yaml:"timeout"`
	CacheTTL         Duration `yaml:"cache_ttl"`
	BreakerThreshold int      `yaml:"breaker_threshold"`
	BreakerCooldown  Duration `yaml:"breaker_cooldown"`
}

// TrainConfig carries the quality floor for deploying new classifiers.
type TrainConfig struct {
	MinF1        float64 `yaml:"min_f1"`
	MinPrecision float64 `yaml:"min_precision"`
	MinRecall    float64 `yaml:"min_recall"`
}

// #endregion

// #region load

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Paths: PathsConfig{
			OutputDir: "out",
			ModelDir:  "models",
			DatasetDB: "forge.db",
			CacheDir:  ".forge-cache",
		},
		Build: BuildConfig{
			MaxAttempts:         5,
			ConfidenceThreshold: 0.6,
			Workers:             4,
			UseGenerator:        true,
		},
		Audit: AuditConfig{
			ViewportWidth:  1024,
			ViewportHeight: 768,
			Timeout:        Duration(30 * time.Second),
		},
		Content: ContentConfig{
			Timeout:          Duration(30 * time.Second),
			CacheTTL:         Duration(24 * time.Hour),
			BreakerThreshold: 3,
			BreakerCooldown:  Duration(time.Minute),
		},
		Train: TrainConfig{
			MinF1:        0.6,
			MinPrecision: 0.5,
			MinRecall:    0.5,
		},
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Build.MaxAttempts < 1 {
		return fmt.Errorf("config: max_attempts must be at least 1")
	}
	if c.Build.ConfidenceThreshold < 0 || c.Build.ConfidenceThreshold > 1 {
		return fmt.Errorf("config: confidence_threshold must be in [0, 1]")
	}
	if c.Build.Workers < 1 {
		return fmt.Errorf("config: workers must be at least 1")
	}
	return nil
}

// #endregion
