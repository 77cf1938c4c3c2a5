package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable read by LoadFromEnv
const EnvPrefix = "IGOSINT_"

// Config holds all configuration options for igosint
type Config struct {
	Session   SessionConfig   `yaml:"session" json:"session"`
	Collect   CollectConfig   `yaml:"collect" json:"collect"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry" json:"retry"`
	Output    OutputConfig    `yaml:"output" json:"output"`
	Geocoder  GeocoderConfig  `yaml:"geocoder" json:"geocoder"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// SessionConfig locates persisted credentials and configures the remote session.
// Paths are resolved by the caller; nothing is written outside them.
type SessionConfig struct {
	CredentialsPath string        `yaml:"credentials_path" json:"credentials_path"`
	SettingsPath    string        `yaml:"settings_path" json:"settings_path"`
	BaseURL         string        `yaml:"base_url" json:"base_url"`
	UserAgent       string        `yaml:"user_agent" json:"user_agent"`
	Timeout         time.Duration `yaml:"timeout" json:"timeout"`
	UseKeyring      bool          `yaml:"use_keyring" json:"use_keyring"`
}

// CollectConfig holds the per-pipeline concurrency caps
type CollectConfig struct {
	CommentWorkers  int               `yaml:"comment_workers" json:"comment_workers"`
	LikerWorkers    int               `yaml:"liker_workers" json:"liker_workers"`
	DefaultWorkers  int               `yaml:"default_workers" json:"default_workers"`
	DownloadWorkers int               `yaml:"download_workers" json:"download_workers"`
	InfoWorkers     AdaptiveCapConfig `yaml:"info_workers" json:"info_workers"`
}

// AdaptiveCapConfig shrinks the worker cap as the batch grows.
// Batches of at least LargeAt items use Large workers, at least MediumAt use Medium.
type AdaptiveCapConfig struct {
	Base     int `yaml:"base" json:"base"`
	Medium   int `yaml:"medium" json:"medium"`
	Large    int `yaml:"large" json:"large"`
	MediumAt int `yaml:"medium_at" json:"medium_at"`
	LargeAt  int `yaml:"large_at" json:"large_at"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int            `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int            `yaml:"burst_size" json:"burst_size"`
	Endpoints         map[string]int `yaml:"endpoints" json:"endpoints"`
}

// RetryConfig holds retry configuration for remote calls
type RetryConfig struct {
	Enabled          bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts      int           `yaml:"max_attempts" json:"max_attempts"`
	InitialBackoff   time.Duration `yaml:"initial_backoff" json:"initial_backoff"`
	MaxBackoff       time.Duration `yaml:"max_backoff" json:"max_backoff"`
	Multiplier       float64       `yaml:"multiplier" json:"multiplier"`
	RateLimitBackoff time.Duration `yaml:"rate_limit_backoff" json:"rate_limit_backoff"`
}

// OutputConfig holds output configuration
type OutputConfig struct {
	Directory  string `yaml:"directory" json:"directory"`
	JSON       bool   `yaml:"json" json:"json"`
	TXT        bool   `yaml:"txt" json:"txt"`
	TableStyle string `yaml:"table_style" json:"table_style"`
}

// GeocoderConfig configures the reverse geocoder used by the locations pipeline
type GeocoderConfig struct {
	Endpoint          string  `yaml:"endpoint" json:"endpoint"`
	UserAgent         string  `yaml:"user_agent" json:"user_agent"`
	CachePath         string  `yaml:"cache_path" json:"cache_path"`
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	File   string `yaml:"file" json:"file"`
	Format string `yaml:"format" json:"format"`
}

// TableStyles lists the accepted table style names
var TableStyles = []string{"default", "single_border", "double_border", "markdown", "plain_columns", "rounded", "thick"}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			CredentialsPath: filepath.Join("config", "credentials.enc"),
			SettingsPath:    filepath.Join("config", "settings.json"),
			BaseURL:         "https://i.instagram.com/api/v1",
			UserAgent:       "Instagram 269.0.0.18.75 Android (26/8.0.0; 480dpi; 1080x1920; OnePlus; 6T Dev; devitron; qcom; en_US; 314665256)",
			Timeout:         30 * time.Second,
			UseKeyring:      true,
		},
		Collect: CollectConfig{
			CommentWorkers:  4,
			LikerWorkers:    4,
			DefaultWorkers:  0, // min(32, NumCPU+4)
			DownloadWorkers: 0,
			InfoWorkers: AdaptiveCapConfig{
				Base:     4,
				Medium:   2,
				Large:    1,
				MediumAt: 100,
				LargeAt:  200,
			},
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 120,
			BurstSize:         10,
			Endpoints: map[string]int{
				"user_info": 30,
			},
		},
		Retry: RetryConfig{
			Enabled:          true,
			MaxAttempts:      3,
			InitialBackoff:   time.Second,
			MaxBackoff:       60 * time.Second,
			Multiplier:       2.0,
			RateLimitBackoff: 30 * time.Second,
		},
		Output: OutputConfig{
			Directory:  "output",
			TableStyle: "default",
		},
		Geocoder: GeocoderConfig{
			Endpoint:          "https://nominatim.openstreetmap.org",
			UserAgent:         "igosint",
			CachePath:         filepath.Join("config", "geocode.db"),
			RequestsPerSecond: 1,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := getenv("CREDENTIALS_PATH"); v != "" {
		c.Session.CredentialsPath = v
	}
	if v := getenv("SETTINGS_PATH"); v != "" {
		c.Session.SettingsPath = v
	}
	if v := getenv("BASE_URL"); v != "" {
		c.Session.BaseURL = v
	}
	if v := getenv("USER_AGENT"); v != "" {
		c.Session.UserAgent = v
	}

	if v := getenv("REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sREQUESTS_PER_MINUTE: %w", EnvPrefix, err))
		} else if n > 0 {
			c.RateLimit.RequestsPerMinute = n
		}
	}
	if v := getenv("DEFAULT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sDEFAULT_WORKERS: %w", EnvPrefix, err))
		} else {
			c.Collect.DefaultWorkers = n
		}
	}

	if v := getenv("OUTPUT_DIR"); v != "" {
		c.Output.Directory = v
	}
	if v := getenv("JSON"); v != "" {
		c.Output.JSON = parseBool(v)
	}
	if v := getenv("TXT"); v != "" {
		c.Output.TXT = parseBool(v)
	}
	if v := getenv("TABLE_STYLE"); v != "" {
		c.Output.TableStyle = v
	}

	if v := getenv("GEOCODER_ENDPOINT"); v != "" {
		c.Geocoder.Endpoint = v
	}
	if v := getenv("GEOCODER_CACHE"); v != "" {
		c.Geocoder.CachePath = v
	}

	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	return errors.Join(errs...)
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + key))
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"igosint.yaml",
		".igosint.yaml",
		".igosint.yml",
		filepath.Join(home, ".config", "igosint", "config.yaml"),
		filepath.Join(home, ".igosint.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Session.CredentialsPath == "" {
		errs = append(errs, errors.New("session credentials path is required"))
	}
	if c.Session.SettingsPath == "" {
		errs = append(errs, errors.New("session settings path is required"))
	}
	if c.Session.BaseURL == "" {
		errs = append(errs, errors.New("session base URL is required"))
	}
	if c.Session.Timeout <= 0 {
		errs = append(errs, errors.New("session timeout must be positive"))
	}

	if c.Collect.CommentWorkers <= 0 {
		errs = append(errs, errors.New("comment workers must be positive"))
	}
	if c.Collect.LikerWorkers <= 0 {
		errs = append(errs, errors.New("liker workers must be positive"))
	}
	if c.Collect.DefaultWorkers < 0 || c.Collect.DownloadWorkers < 0 {
		errs = append(errs, errors.New("worker counts cannot be negative"))
	}
	if err := c.Collect.InfoWorkers.validate(); err != nil {
		errs = append(errs, err)
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}
	for endpoint, rpm := range c.RateLimit.Endpoints {
		if rpm <= 0 {
			errs = append(errs, fmt.Errorf("rate limit for endpoint %q must be positive", endpoint))
		}
	}

	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("max retry attempts cannot be negative"))
	}
	if c.Retry.Multiplier < 1 {
		errs = append(errs, errors.New("retry multiplier must be at least 1"))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if !validTableStyle(c.Output.TableStyle) {
		errs = append(errs, fmt.Errorf("invalid table style %q (valid: %s)", c.Output.TableStyle, strings.Join(TableStyles, ", ")))
	}

	if c.Geocoder.Endpoint == "" {
		errs = append(errs, errors.New("geocoder endpoint is required"))
	}
	if c.Geocoder.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("geocoder requests per second must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	if c.Logging.Format != "" && c.Logging.Format != "console" && c.Logging.Format != "json" {
		errs = append(errs, errors.New("log format must be console or json"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

func (a AdaptiveCapConfig) validate() error {
	if a.Base <= 0 || a.Medium <= 0 || a.Large <= 0 {
		return errors.New("info worker caps must be positive")
	}
	if a.MediumAt <= 0 || a.LargeAt < a.MediumAt {
		return errors.New("info worker thresholds must satisfy 0 < medium_at <= large_at")
	}
	return nil
}

func validTableStyle(style string) bool {
	if style == "" {
		return true
	}
	for _, s := range TableStyles {
		if s == style {
			return true
		}
	}
	return false
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map override the loaded values.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.Directory = v
	}
	if v, ok := flags["json"].(bool); ok && v {
		c.Output.JSON = true
	}
	if v, ok := flags["txt"].(bool); ok && v {
		c.Output.TXT = true
	}
	if v, ok := flags["style"].(string); ok && v != "" {
		c.Output.TableStyle = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["credentials"].(string); ok && v != "" {
		c.Session.CredentialsPath = v
	}
	if v, ok := flags["settings"].(string); ok && v != "" {
		c.Session.SettingsPath = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are not an error
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igosint.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
