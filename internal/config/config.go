package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the voicecore service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Cache      CacheConfig      `yaml:"cache"`
	Matcher    MatcherConfig    `yaml:"matcher"`
	Tracks     TracksConfig     `yaml:"tracks"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generators GeneratorsConfig `yaml:"generators"`
	Speech     SpeechConfig     `yaml:"speech"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings for the response cache and
// the embedding cache.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
}

// ArchiveConfig holds the clip manifest settings.
type ArchiveConfig struct {
	DataDir string `yaml:"data_dir"` // ":memory:" for tests
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Capacity       int     `yaml:"capacity"`
	MergeThreshold float64 `yaml:"merge_threshold"` // similarity above which store() merges
}

// MatcherConfig holds matching tier thresholds. These are stated targets from
// tuning, not hard invariants — adjust per deployment.
type MatcherConfig struct {
	FuzzyThreshold    float64 `yaml:"fuzzy_threshold"`
	SemanticThreshold float64 `yaml:"semantic_threshold"`
	SemanticBudgetMs  int     `yaml:"semantic_budget_ms"`
}

// TracksConfig holds per-track deadlines for the racing phase.
type TracksConfig struct {
	FastDeadlineMs int `yaml:"fast_deadline_ms"`
	SlowDeadlineMs int `yaml:"slow_deadline_ms"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	Provider   string `yaml:"provider"`
}

// GeneratorsConfig holds the fast/slow LLM backend settings.
type GeneratorsConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	FastModel string `yaml:"fast_model"`
	SlowModel string `yaml:"slow_model"`
}

// SpeechConfig holds on-demand synthesis settings.
type SpeechConfig struct {
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	Voice    string `yaml:"voice"`
	MediaDir string `yaml:"media_dir"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Turn streams stay open for the slow track's whole deadline.
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "voicecore:"
	}
	if c.Archive.DataDir == "" {
		c.Archive.DataDir = "data"
	}
	if c.Cache.Capacity <= 0 {
		c.Cache.Capacity = 512
	}
	if c.Cache.MergeThreshold <= 0 {
		c.Cache.MergeThreshold = 0.92
	}
	if c.Matcher.FuzzyThreshold <= 0 {
		c.Matcher.FuzzyThreshold = 0.85
	}
	if c.Matcher.SemanticThreshold <= 0 {
		c.Matcher.SemanticThreshold = 0.65
	}
	if c.Matcher.SemanticBudgetMs <= 0 {
		c.Matcher.SemanticBudgetMs = 250
	}
	if c.Tracks.FastDeadlineMs <= 0 {
		c.Tracks.FastDeadlineMs = 5000
	}
	if c.Tracks.SlowDeadlineMs <= 0 {
		c.Tracks.SlowDeadlineMs = 45000
	}
	if c.Speech.MediaDir == "" {
		c.Speech.MediaDir = "media"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Cache.MergeThreshold > 1 {
		return fmt.Errorf("cache.merge_threshold must be <= 1, got %f", c.Cache.MergeThreshold)
	}
	if c.Matcher.FuzzyThreshold > 1 {
		return fmt.Errorf("matcher.fuzzy_threshold must be <= 1, got %f", c.Matcher.FuzzyThreshold)
	}
	if c.Matcher.SemanticThreshold > 1 {
		return fmt.Errorf("matcher.semantic_threshold must be <= 1, got %f", c.Matcher.SemanticThreshold)
	}
	if c.Tracks.FastDeadlineMs >= c.Tracks.SlowDeadlineMs {
		return fmt.Errorf(
			"tracks.fast_deadline_ms (%d) must be below tracks.slow_deadline_ms (%d)",
			c.Tracks.FastDeadlineMs, c.Tracks.SlowDeadlineMs,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
