package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/samirrijal/srimap/internal/core/domain"
	"github.com/samirrijal/srimap/internal/pkg/geospatial"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Data      DataConfig      `mapstructure:"data"`
	Query     QueryConfig     `mapstructure:"query"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Web       WebConfig       `mapstructure:"web"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// DataConfig locates the dataset files. When BaseURL is set the files are
// fetched over HTTP, otherwise they are read from Dir.
type DataConfig struct {
	Dir     string            `mapstructure:"dir"`
	BaseURL string            `mapstructure:"base_url"`
	Files   map[string]string `mapstructure:"files"`
}

// FileMap returns the dataset to file binding with defaults filled in.
func (d DataConfig) FileMap() map[domain.DatasetID]string {
	files := domain.DefaultFiles()
	for k, v := range d.Files {
		id, err := domain.ParseDatasetID(k)
		if err != nil || v == "" {
			continue
		}
		files[id] = v
	}
	return files
}

type QueryConfig struct {
	Centroid string `mapstructure:"centroid"`
	CacheTTL int    `mapstructure:"cache_ttl"`
}

type ChatConfig struct {
	MinInterval time.Duration `mapstructure:"min_interval"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

type GeminiConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// NATSConfig: an empty URL disables events.
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// ValkeyConfig: an empty address disables the result cache.
type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SyncConfig struct {
	UpstreamURL  string `mapstructure:"upstream_url"`
	TemporalHost string `mapstructure:"temporal_host"`
	TaskQueue    string `mapstructure:"task_queue"`
}

type WebConfig struct {
	Dir string `mapstructure:"dir"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 60)
	v.SetDefault("data.dir", "./data")
	v.SetDefault("data.base_url", "")
	v.SetDefault("query.centroid", string(geospatial.CentroidFirst))
	v.SetDefault("query.cache_ttl", 300)
	v.SetDefault("chat.min_interval", 2*time.Second)
	v.SetDefault("chat.idle_timeout", 30*time.Minute)
	v.SetDefault("chat.max_retries", 2)
	v.SetDefault("chat.base_delay", 3*time.Second)
	v.SetDefault("chat.max_delay", 10*time.Second)
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.timeout", 30*time.Second)
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "srimap")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "srimap")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "")
	v.SetDefault("valkey.addr", "")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("sync.upstream_url", "")
	v.SetDefault("sync.temporal_host", "localhost:7233")
	v.SetDefault("sync.task_queue", "srimap-dataset-sync")
	v.SetDefault("web.dir", "")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: SRIMAP_GEMINI_API_KEY → gemini.api_key
	v.SetEnvPrefix("SRIMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Data.Dir == "" && c.Data.BaseURL == "" {
		errs = append(errs, "data.dir or data.base_url is required")
	}
	for k := range c.Data.Files {
		if _, err := domain.ParseDatasetID(k); err != nil {
			errs = append(errs, fmt.Sprintf("data.files: unknown dataset %q", k))
		}
	}
	if _, err := geospatial.ParseCentroidMode(c.Query.Centroid); err != nil {
		errs = append(errs, fmt.Sprintf("query.centroid: %v", err))
	}
	if c.Query.CacheTTL < 0 {
		errs = append(errs, "query.cache_ttl must not be negative")
	}
	if c.Chat.MinInterval < 0 {
		errs = append(errs, "chat.min_interval must not be negative")
	}
	if c.Chat.IdleTimeout < 0 {
		errs = append(errs, "chat.idle_timeout must not be negative")
	}
	if c.Chat.MaxRetries < 0 {
		errs = append(errs, "chat.max_retries must not be negative")
	}
	if c.Chat.BaseDelay <= 0 {
		errs = append(errs, "chat.base_delay must be positive")
	}
	if c.Chat.MaxDelay < c.Chat.BaseDelay {
		errs = append(errs, "chat.max_delay must be >= chat.base_delay")
	}
	if c.Gemini.APIKey != "" && c.Gemini.Model == "" {
		errs = append(errs, "gemini.model is required when gemini.api_key is set")
	}
	if c.Database.Enabled {
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required")
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
