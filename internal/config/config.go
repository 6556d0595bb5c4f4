package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultMetadataURL   = "http://169.254.169.254"
	defaultManagementURL = "https://servicemanagement.googleapis.com"
	defaultHTTPTimeout   = 30 * time.Second

	defaultRateLimitRPS   = 10.0
	defaultRateLimitBurst = 20
)

// Rollout strategies. A fixed strategy trusts the supplied or
// metadata-provided config ID; a managed strategy consults the rollout
// history for the version currently receiving traffic.
const (
	StrategyFixed   = "fixed"
	StrategyManaged = "managed"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	MetadataURL       string
	ManagementURL     string
	ServiceName       string
	ConfigID          string
	RolloutStrategy   string
	ServiceAccountKey string
	AccessToken       string
	OutputPath        string
	HTTPTimeout       time.Duration
	RateLimitRPS      float64
	RateLimitBurst    int
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	MetadataURL       string        `yaml:"metadata_url"`
	ManagementURL     string        `yaml:"management_url"`
	ServiceName       string        `yaml:"service_name"`
	ConfigID          string        `yaml:"config_id"`
	RolloutStrategy   string        `yaml:"rollout_strategy"`
	ServiceAccountKey string        `yaml:"service_account_key"`
	OutputPath        string        `yaml:"output"`
	HTTPTimeout       string        `yaml:"http_timeout"`
	RateLimit         yamlRateLimit `yaml:"rate_limit"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile        string
	MetadataURL       *string
	ManagementURL     *string
	ServiceName       *string
	ConfigID          *string
	RolloutStrategy   *string
	ServiceAccountKey *string
	AccessToken       *string
	OutputPath        *string
	HTTPTimeout       *time.Duration
	RateLimitRPS      *float64
	RateLimitBurst    *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		applyYAMLConfig(&cfg, yamlCfg)
	}

	applyEnvConfig(&cfg)

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		MetadataURL:     defaultMetadataURL,
		ManagementURL:   defaultManagementURL,
		RolloutStrategy: StrategyFixed,
		HTTPTimeout:     defaultHTTPTimeout,
		RateLimitRPS:    defaultRateLimitRPS,
		RateLimitBurst:  defaultRateLimitBurst,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) {
	if yamlCfg.MetadataURL != "" {
		cfg.MetadataURL = yamlCfg.MetadataURL
	}
	if yamlCfg.ManagementURL != "" {
		cfg.ManagementURL = yamlCfg.ManagementURL
	}
	if yamlCfg.ServiceName != "" {
		cfg.ServiceName = yamlCfg.ServiceName
	}
	if yamlCfg.ConfigID != "" {
		cfg.ConfigID = yamlCfg.ConfigID
	}
	if yamlCfg.RolloutStrategy != "" {
		cfg.RolloutStrategy = yamlCfg.RolloutStrategy
	}
	if yamlCfg.ServiceAccountKey != "" {
		cfg.ServiceAccountKey = yamlCfg.ServiceAccountKey
	}
	if yamlCfg.OutputPath != "" {
		cfg.OutputPath = yamlCfg.OutputPath
	}

	if yamlCfg.HTTPTimeout != "" {
		if d, err := time.ParseDuration(yamlCfg.HTTPTimeout); err == nil {
			cfg.HTTPTimeout = d
		}
	}

	if yamlCfg.RateLimit.RPS > 0 {
		cfg.RateLimitRPS = yamlCfg.RateLimit.RPS
	}
	if yamlCfg.RateLimit.Burst > 0 {
		cfg.RateLimitBurst = yamlCfg.RateLimit.Burst
	}
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("METADATA_URL")); v != "" {
		cfg.MetadataURL = v
	}
	if v := strings.TrimSpace(os.Getenv("MANAGEMENT_URL")); v != "" {
		cfg.ManagementURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SERVICE_NAME")); v != "" {
		cfg.ServiceName = v
	}
	if v := strings.TrimSpace(os.Getenv("SERVICE_CONFIG_ID")); v != "" {
		cfg.ConfigID = v
	}
	if v := strings.TrimSpace(os.Getenv("ROLLOUT_STRATEGY")); v != "" {
		cfg.RolloutStrategy = v
	}
	if v := strings.TrimSpace(os.Getenv("SERVICE_ACCOUNT_KEY")); v != "" {
		cfg.ServiceAccountKey = v
	}

	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); v != "" {
		if value, err := strconv.ParseFloat(v, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); v != "" {
		if value, err := strconv.Atoi(v); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.MetadataURL != nil && *overrides.MetadataURL != "" {
		cfg.MetadataURL = *overrides.MetadataURL
	}
	if overrides.ManagementURL != nil && *overrides.ManagementURL != "" {
		cfg.ManagementURL = *overrides.ManagementURL
	}
	if overrides.ServiceName != nil && *overrides.ServiceName != "" {
		cfg.ServiceName = *overrides.ServiceName
	}
	if overrides.ConfigID != nil && *overrides.ConfigID != "" {
		cfg.ConfigID = *overrides.ConfigID
	}
	if overrides.RolloutStrategy != nil && *overrides.RolloutStrategy != "" {
		cfg.RolloutStrategy = *overrides.RolloutStrategy
	}
	if overrides.ServiceAccountKey != nil && *overrides.ServiceAccountKey != "" {
		cfg.ServiceAccountKey = *overrides.ServiceAccountKey
	}
	if overrides.AccessToken != nil && *overrides.AccessToken != "" {
		cfg.AccessToken = *overrides.AccessToken
	}
	if overrides.OutputPath != nil && *overrides.OutputPath != "" {
		cfg.OutputPath = *overrides.OutputPath
	}
	if overrides.HTTPTimeout != nil && *overrides.HTTPTimeout > 0 {
		cfg.HTTPTimeout = *overrides.HTTPTimeout
	}
	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}
	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.MetadataURL == "" {
		return fmt.Errorf("metadata URL cannot be empty")
	}
	if cfg.ManagementURL == "" {
		return fmt.Errorf("management URL cannot be empty")
	}
	if cfg.RolloutStrategy != StrategyFixed && cfg.RolloutStrategy != StrategyManaged {
		return fmt.Errorf("rollout strategy must be %q or %q, got %q", StrategyFixed, StrategyManaged, cfg.RolloutStrategy)
	}
	if cfg.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP timeout must be positive")
	}
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	return nil
}
