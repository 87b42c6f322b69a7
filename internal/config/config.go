// Package config loads and validates scan engine configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Provider ProviderConfig `mapstructure:"provider"`
	DB       DBConfig       `mapstructure:"db"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// ProviderConfig selects and configures the scraping provider.
type ProviderConfig struct {
	Kind           string            `mapstructure:"kind"`
	BaseURL        string            `mapstructure:"base_url"`
	APIToken       string            `mapstructure:"api_token"`
	TimeoutSeconds int               `mapstructure:"timeout_seconds"`
	ActorIDs       map[string]string `mapstructure:"actor_ids"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	Kind     string `mapstructure:"kind"`
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// StorageConfig sets bucket and path layout for media blob persistence.
type StorageConfig struct {
	Kind      string `mapstructure:"kind"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// NotifyConfig holds metadata for publish-subscribe notifications.
type NotifyConfig struct {
	Kind      string `mapstructure:"kind"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// MonitorConfig governs the run poll loop.
type MonitorConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
}

// CrawlerConfig governs the web crawler and sitemap resolver.
type CrawlerConfig struct {
	UserAgent       string `mapstructure:"user_agent"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	MaxBodyBytes    int64  `mapstructure:"max_body_bytes"`
	MaxPagesDefault int    `mapstructure:"max_pages_default"`
	MaxDepthDefault int    `mapstructure:"max_depth_default"`
	MaxSitemapURLs  int    `mapstructure:"max_sitemap_urls"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("provider.kind", "memory")
	v.SetDefault("provider.timeout_seconds", 120)
	v.SetDefault("db.kind", "memory")
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("storage.kind", "memory")
	v.SetDefault("storage.prefix", "media")
	v.SetDefault("notify.kind", "memory")
	v.SetDefault("monitor.interval_seconds", 30)
	v.SetDefault("crawler.user_agent", "content-scan-engine/0.1")
	v.SetDefault("crawler.timeout_seconds", 15)
	v.SetDefault("crawler.max_body_bytes", 10*1024*1024)
	v.SetDefault("crawler.max_pages_default", 50)
	v.SetDefault("crawler.max_depth_default", 2)
	v.SetDefault("crawler.max_sitemap_urls", 500)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	switch c.Provider.Kind {
	case "apify":
		if c.Provider.APIToken == "" {
			return fmt.Errorf("provider.api_token must be set when provider.kind is apify")
		}
	case "memory":
	default:
		return fmt.Errorf("provider.kind must be apify or memory")
	}
	switch c.DB.Kind {
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when db.kind is postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("db.kind must be postgres or memory")
	}
	switch c.Storage.Kind {
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set when storage.kind is gcs")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.kind must be gcs or memory")
	}
	switch c.Notify.Kind {
	case "pubsub":
		if c.Notify.ProjectID == "" || c.Notify.TopicName == "" {
			return fmt.Errorf("notify.project_id and notify.topic_name must be set when notify.kind is pubsub")
		}
	case "memory":
	default:
		return fmt.Errorf("notify.kind must be pubsub or memory")
	}
	if c.Monitor.IntervalSeconds <= 0 {
		return fmt.Errorf("monitor.interval_seconds must be > 0")
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.timeout_seconds must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// PollInterval converts the monitor cadence into a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalSeconds) * time.Second
}

// CrawlTimeout converts the crawler HTTP timeout into a duration.
func (c Config) CrawlTimeout() time.Duration {
	return time.Duration(c.Crawler.TimeoutSeconds) * time.Second
}

// ProviderTimeout converts the provider HTTP timeout into a duration.
func (c Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}
