package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, time.Second, cfg.Crawler.MinInterval)
	assert.Equal(t, "iso-8859-1", cfg.Crawler.Encodings.Index)
	assert.Equal(t, "windows-1252", cfg.Crawler.Encodings.Cover)
	assert.Equal(t, DriverMemory, cfg.DB.Driver)
	assert.Equal(t, 4, cfg.Ingest.Concurrency)
	assert.Equal(t, "http://www3.jkl.fi/paatokset/kh.htm", cfg.PolicymakerURL("kh"))
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout())
	assert.Equal(t, 3, cfg.Crawler.MaxAttempts)
	assert.Equal(t, "ktweb-minutes", cfg.Telemetry.ServiceName)
	assert.False(t, cfg.Telemetry.TracingEnabled)
	assert.Equal(t, 500*time.Millisecond, cfg.Crawler.RetryBaseDelay)
}

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
auth:
  enabled: true
  api_key: secret
crawler:
  download_dir: /tmp/ktweb
  min_interval: 250ms
  force: true
  index_heading_prefix: pöytäkirja
db:
  driver: postgres
  dsn: postgres://localhost/ktweb
ingest:
  concurrency: 8
  timezone: UTC
policymakers:
  kh: Kaupunginhallitus
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, "/tmp/ktweb", cfg.Crawler.DownloadDir)
	assert.Equal(t, 250*time.Millisecond, cfg.Crawler.MinInterval)
	assert.True(t, cfg.Crawler.Force)
	assert.Equal(t, "pöytäkirja", cfg.Crawler.IndexHeadingPrefix)
	assert.Equal(t, DriverPostgres, cfg.DB.Driver)
	assert.Equal(t, 8, cfg.Ingest.Concurrency)
	assert.Equal(t, "Kaupunginhallitus", cfg.PolicymakerName("KH"))
	assert.Equal(t, "ltk", cfg.PolicymakerName("ltk"))
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("KTWEB_SERVER_PORT", "7070")
	t.Setenv("KTWEB_CRAWLER_MIN_INTERVAL", "2s")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Crawler.MinInterval)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server: ServerConfig{Port: 8080},
			Crawler: CrawlerConfig{
				PolicymakerURLTemplate: "http://example.com/%s.htm",
				DownloadDir:            "downloads",
				MaxAttempts:            1,
				Encodings: EncodingsConfig{
					Policymaker: "windows-1252",
					Index:       "iso-8859-1",
					Cover:       "windows-1252",
					Issue:       "windows-1252",
				},
			},
			HTTP:   HTTPConfig{TimeoutSeconds: 10},
			DB:     DBConfig{Driver: DriverMemory},
			Ingest: IngestConfig{Concurrency: 1, Timezone: "UTC"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port"},
		{name: "auth key", mutate: func(c *Config) { c.Auth.Enabled = true }, wantErr: "auth.api_key"},
		{name: "template", mutate: func(c *Config) { c.Crawler.PolicymakerURLTemplate = "http://x" }, wantErr: "policymaker_url_template"},
		{name: "attempts", mutate: func(c *Config) { c.Crawler.MaxAttempts = 0 }, wantErr: "crawler.max_attempts"},
		{name: "retry delay", mutate: func(c *Config) { c.Crawler.RetryBaseDelay = time.Second }, wantErr: "crawler.retry_max_delay"},
		{name: "encoding", mutate: func(c *Config) { c.Crawler.Encodings.Index = "koi8-r" }, wantErr: "crawler.encodings.index"},
		{name: "postgres dsn", mutate: func(c *Config) { c.DB.Driver = DriverPostgres }, wantErr: "db.dsn"},
		{name: "driver", mutate: func(c *Config) { c.DB.Driver = "sqlite" }, wantErr: "db.driver"},
		{name: "concurrency", mutate: func(c *Config) { c.Ingest.Concurrency = 0 }, wantErr: "ingest.concurrency"},
		{name: "sample ratio", mutate: func(c *Config) { c.Telemetry.SampleRatio = 2 }, wantErr: "telemetry.sample_ratio"},
		{name: "timezone", mutate: func(c *Config) { c.Ingest.Timezone = "Mars/Base" }, wantErr: "ingest.timezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
