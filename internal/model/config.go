package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Defaults shared by the config loader and the widget.
const (
	DefaultStorageKey = "thathwamasi_checkout_phone"
	DefaultPollMs     = 8000
	DefaultFeedLimit  = 30
	DefaultCSRFCookie = "csrftoken"
	DefaultCSRFHeader = "X-CSRFToken"

	DefaultSessionCookie = "sessionid"
)

// ServerConfig describes the storefront the bell talks to.
type ServerConfig struct {
	// BaseURL is the storefront origin, e.g. https://shop.example.com.
	BaseURL string `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`

	// TimeoutSec bounds each request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec" validate:"min=1,max=120"`

	// CSRFCookie names the cookie whose value is echoed on POST requests.
	CSRFCookie string `mapstructure:"csrf_cookie" yaml:"csrf_cookie" validate:"required"`

	// CSRFHeader names the header the token is sent in.
	CSRFHeader string `mapstructure:"csrf_header" yaml:"csrf_header" validate:"required"`

	// SessionCookie names the login cookie the storefront checks before
	// serving ADMIN notifications.
	SessionCookie string `mapstructure:"session_cookie" yaml:"session_cookie" validate:"required"`

	// SessionID is a logged-in session value. Empty sends no cookie.
	SessionID string `mapstructure:"session_id" yaml:"session_id,omitempty"`
}

// WidgetConfig holds the construction options of the notification widget.
type WidgetConfig struct {
	Mode       string `mapstructure:"mode" yaml:"mode"`
	StorageKey string `mapstructure:"storage_key" yaml:"storage_key"`
	PollMs     int    `mapstructure:"poll_ms" yaml:"poll_ms" validate:"min=250"`
	FeedLimit  int    `mapstructure:"feed_limit" yaml:"feed_limit" validate:"min=1,max=100"`
}

// IdentityConfig controls where the recipient phone number comes from.
type IdentityConfig struct {
	// Backend is the durable store for a prompted phone number.
	Backend string `mapstructure:"backend" yaml:"backend" validate:"oneof=sqlite keyring"`

	// Phone, when set, is returned by the resolver callback and takes
	// precedence over the stored value.
	Phone string `mapstructure:"phone" yaml:"phone"`
}

// StorageConfig locates the local database.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path" yaml:"db_path" validate:"required"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" validate:"oneof=trace debug info warn error"`
	File  string `mapstructure:"file" yaml:"file"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Widget   WidgetConfig   `mapstructure:"widget" yaml:"widget"`
	Identity IdentityConfig `mapstructure:"identity" yaml:"identity"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// configDir returns ~/.config/notification-bell, or "." without a home.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "notification-bell")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/notification-bell/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	dir := configDir()
	return &AppConfig{
		Server: ServerConfig{
			BaseURL:    "http://localhost:8000",
			TimeoutSec: 15,
			CSRFCookie: DefaultCSRFCookie,
			CSRFHeader: DefaultCSRFHeader,

			SessionCookie: DefaultSessionCookie,
		},
		Widget: WidgetConfig{
			Mode:       string(RecipientUser),
			StorageKey: DefaultStorageKey,
			PollMs:     DefaultPollMs,
			FeedLimit:  DefaultFeedLimit,
		},
		Identity: IdentityConfig{Backend: "sqlite"},
		Storage:  StorageConfig{DBPath: filepath.Join(dir, "bell.db")},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "bell.log"),
		},
	}
}

// setDefaults mirrors defaultAppConfig so missing keys resolve to
// sensible values.
func setDefaults(v *viper.Viper) {
	d := defaultAppConfig()
	v.SetDefault("server.base_url", d.Server.BaseURL)
	v.SetDefault("server.timeout_sec", d.Server.TimeoutSec)
	v.SetDefault("server.csrf_cookie", d.Server.CSRFCookie)
	v.SetDefault("server.csrf_header", d.Server.CSRFHeader)
	v.SetDefault("server.session_cookie", d.Server.SessionCookie)
	v.SetDefault("server.session_id", "")
	v.SetDefault("widget.mode", d.Widget.Mode)
	v.SetDefault("widget.storage_key", d.Widget.StorageKey)
	v.SetDefault("widget.poll_ms", d.Widget.PollMs)
	v.SetDefault("widget.feed_limit", d.Widget.FeedLimit)
	v.SetDefault("identity.backend", d.Identity.Backend)
	v.SetDefault("identity.phone", "")
	v.SetDefault("storage.db_path", d.Storage.DBPath)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("metrics.addr", "")
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, defaults are used. BELL_* environment
// variables override file values (BELL_WIDGET_MODE, BELL_SERVER_BASE_URL...).
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("bell")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Normalize fills zero values and expands ~ in paths.
func (c *AppConfig) Normalize() {
	c.Widget.Mode = string(ParseRecipientType(c.Widget.Mode))
	if strings.TrimSpace(c.Widget.StorageKey) == "" {
		c.Widget.StorageKey = DefaultStorageKey
	}
	if c.Widget.PollMs == 0 {
		c.Widget.PollMs = DefaultPollMs
	}
	if c.Widget.FeedLimit == 0 {
		c.Widget.FeedLimit = DefaultFeedLimit
	}
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")
	c.Identity.Phone = strings.TrimSpace(c.Identity.Phone)
	c.Server.SessionID = strings.TrimSpace(c.Server.SessionID)
	if c.Server.SessionCookie == "" {
		c.Server.SessionCookie = DefaultSessionCookie
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Storage.DBPath = expandHome(c.Storage.DBPath)
	c.Log.File = expandHome(c.Log.File)
}

// Validate checks the struct tags.
func (c *AppConfig) Validate() error {
	return validator.New().Struct(c)
}

// Mode returns the configured recipient type.
func (c *AppConfig) Mode() RecipientType {
	return ParseRecipientType(c.Widget.Mode)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
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

	v.Set("server", cfg.Server)
	v.Set("widget", cfg.Widget)
	v.Set("identity", cfg.Identity)
	v.Set("storage", cfg.Storage)
	v.Set("log", cfg.Log)
	v.Set("metrics", cfg.Metrics)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
