package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App  AppConfig
	Odoo OdooConfig
	Log  LogConfig
	HTTP HTTPConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// OdooConfig holds the connection settings for the Odoo backend.
// All four fields are required; the server refuses to start without them.
type OdooConfig struct {
	URL      string
	Database string
	Username string
	APIKey   string
	Timeout  time.Duration // per-call XML-RPC timeout
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables (ODOO_URL etc., or SALESIQ_-prefixed keys)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("SALESIQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The Odoo credentials are conventionally passed through their bare
	// names, so bind those alongside the prefixed form.
	_ = v.BindEnv("odoo.url", "SALESIQ_ODOO_URL", "ODOO_URL")
	_ = v.BindEnv("odoo.database", "SALESIQ_ODOO_DATABASE", "ODOO_DB")
	_ = v.BindEnv("odoo.username", "SALESIQ_ODOO_USERNAME", "ODOO_USERNAME")
	_ = v.BindEnv("odoo.api_key", "SALESIQ_ODOO_API_KEY", "ODOO_API_KEY")

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Odoo: OdooConfig{
			URL:      v.GetString("odoo.url"),
			Database: v.GetString("odoo.database"),
			Username: v.GetString("odoo.username"),
			APIKey:   v.GetString("odoo.api_key"),
			Timeout:  v.GetDuration("odoo.timeout"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "salesiq-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Odoo.Timeout == 0 {
		cfg.Odoo.Timeout = 60 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// Territorial and comprehensive reports fan out several backend
		// queries, so writes get a generous ceiling.
		cfg.HTTP.WriteTimeout = 120 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB, request bodies are small JSON filters
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	// CORS origins are left empty here; the middleware's wildcard default
	// applies when nothing is configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	var missing []string
	if c.Odoo.URL == "" {
		missing = append(missing, "ODOO_URL")
	}
	if c.Odoo.Database == "" {
		missing = append(missing, "ODOO_DB")
	}
	if c.Odoo.Username == "" {
		missing = append(missing, "ODOO_USERNAME")
	}
	if c.Odoo.APIKey == "" {
		missing = append(missing, "ODOO_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required Odoo connection parameters: %s", strings.Join(missing, ", "))
	}

	if _, err := url.Parse(c.Odoo.URL); err != nil {
		return fmt.Errorf("odoo.url is not a valid URL: %w", err)
	}

	return nil
}

// CommonEndpoint returns the XML-RPC endpoint used for authentication.
func (o *OdooConfig) CommonEndpoint() string {
	return strings.TrimRight(o.URL, "/") + "/xmlrpc/2/common"
}

// ObjectEndpoint returns the XML-RPC endpoint used for model queries.
func (o *OdooConfig) ObjectEndpoint() string {
	return strings.TrimRight(o.URL, "/") + "/xmlrpc/2/object"
}
