package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// APIConfig holds settings for the platform REST API.
type APIConfig struct {
	// BaseURL is the root URL of the REST API (e.g., https://api.robolab.example).
	BaseURL string `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`

	// Timeout bounds each HTTP request.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`

	// RateLimitRetries is how many times a 429 is retried before it is
	// surfaced. Zero surfaces it immediately.
	RateLimitRetries int `mapstructure:"rate_limit_retries" yaml:"rate_limit_retries" validate:"gte=0,lte=10"`
}

// PushConfig holds the websocket push channel settings.
type PushConfig struct {
	URL         string        `mapstructure:"url" yaml:"url" validate:"omitempty,url"`
	BaseDelay   time.Duration `mapstructure:"base_delay" yaml:"base_delay" validate:"gt=0"`
	MaxDelay    time.Duration `mapstructure:"max_delay" yaml:"max_delay" validate:"gtefield=BaseDelay"`
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts" validate:"gte=0"`
}

// PollConfig controls the background notification refetch.
type PollConfig struct {
	IntervalSec int `mapstructure:"interval_sec" yaml:"interval_sec" validate:"gte=5"`
}

// NotificationsConfig holds bell display preferences.
type NotificationsConfig struct {
	PageSize int `mapstructure:"page_size" yaml:"page_size" validate:"gte=1,lte=100"`
}

// LogConfig controls the structured log output.
type LogConfig struct {
	Path  string `mapstructure:"path" yaml:"path"`
	Level string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Profile       string              `mapstructure:"profile" yaml:"profile"`
	API           APIConfig           `mapstructure:"api" yaml:"api"`
	Push          PushConfig          `mapstructure:"push" yaml:"push"`
	Poll          PollConfig          `mapstructure:"poll" yaml:"poll"`
	Notifications NotificationsConfig `mapstructure:"notifications" yaml:"notifications"`
	StorePath     string              `mapstructure:"store_path" yaml:"store_path"`
	Log           LogConfig           `mapstructure:"log" yaml:"log"`
}

// ConfigDir returns ~/.config/robolab, falling back to the working directory.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "robolab")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/robolab/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Profile: "default",
		API: APIConfig{
			BaseURL: "http://localhost:8080/api",
			Timeout: 30 * time.Second,
		},
		Push: PushConfig{
			BaseDelay:   time.Second,
			MaxDelay:    time.Minute,
			MaxAttempts: 10,
		},
		Poll:          PollConfig{IntervalSec: 60},
		Notifications: NotificationsConfig{PageSize: 20},
		StorePath:     filepath.Join(ConfigDir(), "robolab.db"),
		Log: LogConfig{
			Path:  filepath.Join(ConfigDir(), "robolab.log"),
			Level: "info",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A missing file yields the defaults. Values can be overridden by
// ROBOLAB_* environment variables, which may come from a .env file in the
// working directory.
func LoadConfig(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	def := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("robolab")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values and so
	// AutomaticEnv knows about every key.
	v.SetDefault("profile", def.Profile)
	v.SetDefault("api.base_url", def.API.BaseURL)
	v.SetDefault("api.timeout", def.API.Timeout)
	v.SetDefault("api.rate_limit_retries", def.API.RateLimitRetries)
	v.SetDefault("push.url", def.Push.URL)
	v.SetDefault("push.base_delay", def.Push.BaseDelay)
	v.SetDefault("push.max_delay", def.Push.MaxDelay)
	v.SetDefault("push.max_attempts", def.Push.MaxAttempts)
	v.SetDefault("poll.interval_sec", def.Poll.IntervalSec)
	v.SetDefault("notifications.page_size", def.Notifications.PageSize)
	v.SetDefault("store_path", def.StorePath)
	v.SetDefault("log.path", def.Log.Path)
	v.SetDefault("log.level", def.Log.Level)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Push.URL == "" {
		cfg.Push.URL = DerivePushURL(cfg.API.BaseURL)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks field constraints declared in the struct tags.
func (c *AppConfig) Validate() error {
	return validator.New().Struct(c)
}

// DerivePushURL maps an http(s) API base URL to the websocket endpoint
// serving notification pushes.
func DerivePushURL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws/notifications"
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("profile", cfg.Profile)
	v.Set("api", cfg.API)
	v.Set("push", cfg.Push)
	v.Set("poll", cfg.Poll)
	v.Set("notifications", cfg.Notifications)
	v.Set("store_path", cfg.StorePath)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
