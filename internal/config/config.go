// Package config loads and validates scraper configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Server       ServerConfig      `mapstructure:"server"`
	Auth         AuthConfig        `mapstructure:"auth"`
	Crawler      CrawlerConfig     `mapstructure:"crawler"`
	HTTP         HTTPConfig        `mapstructure:"http"`
	Storage      StorageConfig     `mapstructure:"storage"`
	DB           DBConfig          `mapstructure:"db"`
	PubSub       PubSubConfig      `mapstructure:"pubsub"`
	Logging      LoggingConfig     `mapstructure:"logging"`
	Ingest       IngestConfig      `mapstructure:"ingest"`
	Telemetry    TelemetryConfig   `mapstructure:"telemetry"`
	Policymakers map[string]string `mapstructure:"policymakers"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port               int `mapstructure:"port"`
	RequestTimeoutSecs int `mapstructure:"request_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// CrawlerConfig governs page download behavior.
type CrawlerConfig struct {
	PolicymakerURLTemplate string          `mapstructure:"policymaker_url_template"`
	IndexHeadingPrefix     string          `mapstructure:"index_heading_prefix"`
	DownloadDir            string          `mapstructure:"download_dir"`
	MinInterval            time.Duration   `mapstructure:"min_interval"`
	UserAgent              string          `mapstructure:"user_agent"`
	RespectRobots          bool            `mapstructure:"respect_robots"`
	Force                  bool            `mapstructure:"force"`
	MaxAttempts            int             `mapstructure:"max_attempts"`
	RetryBaseDelay         time.Duration   `mapstructure:"retry_base_delay"`
	RetryMaxDelay          time.Duration   `mapstructure:"retry_max_delay"`
	Encodings              EncodingsConfig `mapstructure:"encodings"`
}

// EncodingsConfig names the character encoding of each ktweb page type.
type EncodingsConfig struct {
	Policymaker string `mapstructure:"policymaker"`
	Index       string `mapstructure:"index"`
	Cover       string `mapstructure:"cover"`
	Issue       string `mapstructure:"issue"`
}

// HTTPConfig configures the HTTP client.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// StorageConfig configures the optional page archive mirror.
type StorageConfig struct {
	ArchiveBucket string `mapstructure:"archive_bucket"`
	ArchivePrefix string `mapstructure:"archive_prefix"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	Driver      string `mapstructure:"driver"`
	DSN         string `mapstructure:"dsn"`
	MaxConns    int    `mapstructure:"max_conns"`
	MinConns    int    `mapstructure:"min_conns"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// PubSubConfig holds metadata for ingest notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// IngestConfig tunes the extraction and persistence pipeline.
type IngestConfig struct {
	Concurrency int    `mapstructure:"concurrency"`
	Timezone    string `mapstructure:"timezone"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	ServiceName    string  `mapstructure:"service_name"`
	TracingEnabled bool    `mapstructure:"tracing_enabled"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// Database drivers understood by DBConfig.Driver.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

var supportedEncodings = map[string]struct{}{
	"windows-1252": {},
	"iso-8859-1":   {},
	"utf-8":        {},
}

// Load builds a Config from an optional .env file, an optional config file and the environment.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("KTWEB")
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
	v.SetDefault("server.request_timeout_seconds", 30)
	v.SetDefault("crawler.policymaker_url_template", "http://www3.jkl.fi/paatokset/%s.htm")
	v.SetDefault("crawler.index_heading_prefix", "")
	v.SetDefault("crawler.download_dir", "downloads")
	v.SetDefault("crawler.min_interval", "1s")
	v.SetDefault("crawler.user_agent", "ktweb-minutes/0.1")
	v.SetDefault("crawler.respect_robots", false)
	v.SetDefault("crawler.force", false)
	v.SetDefault("crawler.max_attempts", 3)
	v.SetDefault("crawler.retry_base_delay", "500ms")
	v.SetDefault("crawler.retry_max_delay", "10s")
	v.SetDefault("crawler.encodings.policymaker", "windows-1252")
	v.SetDefault("crawler.encodings.index", "iso-8859-1")
	v.SetDefault("crawler.encodings.cover", "windows-1252")
	v.SetDefault("crawler.encodings.issue", "windows-1252")
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("storage.archive_prefix", "pages")
	v.SetDefault("db.driver", DriverMemory)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("pubsub.topic_name", "ktweb-meeting-documents")
	v.SetDefault("logging.development", true)
	v.SetDefault("ingest.concurrency", 4)
	v.SetDefault("ingest.timezone", "Europe/Helsinki")
	v.SetDefault("telemetry.service_name", "ktweb-minutes")
	v.SetDefault("telemetry.tracing_enabled", false)
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if strings.Count(c.Crawler.PolicymakerURLTemplate, "%s") != 1 {
		return fmt.Errorf("crawler.policymaker_url_template must contain exactly one %%s")
	}
	if strings.TrimSpace(c.Crawler.DownloadDir) == "" {
		return fmt.Errorf("crawler.download_dir is required")
	}
	if c.Crawler.MinInterval < 0 {
		return fmt.Errorf("crawler.min_interval must be >= 0")
	}
	if c.Crawler.MaxAttempts < 1 {
		return fmt.Errorf("crawler.max_attempts must be >= 1")
	}
	if c.Crawler.RetryBaseDelay < 0 || c.Crawler.RetryMaxDelay < c.Crawler.RetryBaseDelay {
		return fmt.Errorf("crawler.retry_max_delay must be >= crawler.retry_base_delay >= 0")
	}
	for key, enc := range map[string]string{
		"policymaker": c.Crawler.Encodings.Policymaker,
		"index":       c.Crawler.Encodings.Index,
		"cover":       c.Crawler.Encodings.Cover,
		"issue":       c.Crawler.Encodings.Issue,
	} {
		if _, ok := supportedEncodings[strings.ToLower(enc)]; !ok {
			return fmt.Errorf("crawler.encodings.%s: unsupported encoding %q", key, enc)
		}
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	switch c.DB.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("db.driver must be %q or %q", DriverMemory, DriverPostgres)
	}
	if c.Ingest.Concurrency <= 0 {
		return fmt.Errorf("ingest.concurrency must be > 0")
	}
	if _, err := time.LoadLocation(c.Ingest.Timezone); err != nil {
		return fmt.Errorf("ingest.timezone: %w", err)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be within [0, 1]")
	}
	return nil
}

// HTTPTimeout converts the HTTP timeout into a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// RequestTimeout converts the API request timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSecs) * time.Second
}

// PolicymakerURL expands the policymaker URL template for id.
func (c Config) PolicymakerURL(id string) string {
	return fmt.Sprintf(c.Crawler.PolicymakerURLTemplate, id)
}

// PolicymakerName returns the configured display name for an abbreviation, or the abbreviation itself.
func (c Config) PolicymakerName(abbreviation string) string {
	if name, ok := c.Policymakers[strings.ToLower(abbreviation)]; ok && name != "" {
		return name
	}
	return abbreviation
}
