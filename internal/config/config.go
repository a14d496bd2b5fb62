package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/sitehub/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehub/internal/retry"
)

// Config represents the sitehub configuration file.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Remote    RemoteConfig    `yaml:"remote"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Warmup    WarmupConfig    `yaml:"warmup"`
	Sites     []Site          `yaml:"sites"`
}

// Site is one managed site. Name is the registry key.
type Site struct {
	Name       string `yaml:"name"`
	ServiceURL string `yaml:"service_url"`
	SiteURL    string `yaml:"site_url,omitempty"`
}

// ServerConfig configures the admin HTTP server (API, SSE channels, metrics).
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	ClientBuffer int    `yaml:"client_buffer"`
	Heartbeat    string `yaml:"heartbeat"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// RemoteConfig tunes the site service handles.
type RemoteConfig struct {
	RequestTimeout   string      `yaml:"request_timeout"`
	HandshakeTimeout string      `yaml:"handshake_timeout"`
	Retry            RetryConfig `yaml:"retry"`
}

// RetryConfig controls retries of idempotent site service reads after
// transport failures. MaxRetries 0 disables retrying.
type RetryConfig struct {
	Backoff    retry.BackoffMode `yaml:"backoff"`
	Initial    string            `yaml:"initial"`
	Max        string            `yaml:"max"`
	MaxRetries int               `yaml:"max_retries"`
}

// BroadcastConfig configures sinks besides the built-in SSE hub.
type BroadcastConfig struct {
	NATS NATSConfig `yaml:"nats"`
}

// NATSConfig enables relaying every broadcast to NATS subjects
// "<subject_prefix>.<channel>.<signal>".
type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// WarmupConfig schedules periodic lookups of every configured site so dead
// deployment sessions are replaced without waiting for a request.
type WarmupConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Interval string `yaml:"interval"`
}

// Load reads, expands, defaults and validates the configuration at configPath.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.ConfigError("configuration file not found").WithContext("path", configPath).Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "read configuration").WithContext("path", configPath).Build()
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML (with ${VAR} expansion), applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "parse configuration").Build()
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8070"
	}
	if c.Server.ClientBuffer <= 0 {
		c.Server.ClientBuffer = 32
	}
	if c.Server.Heartbeat == "" {
		c.Server.Heartbeat = "30s"
	}
	c.Logging.Level = NormalizeLogLevel(string(c.Logging.Level))
	c.Logging.Format = NormalizeLogFormat(string(c.Logging.Format))
	if c.Remote.RequestTimeout == "" {
		c.Remote.RequestTimeout = "30s"
	}
	if c.Remote.HandshakeTimeout == "" {
		c.Remote.HandshakeTimeout = "10s"
	}
	if c.Remote.Retry.Backoff == "" {
		c.Remote.Retry.Backoff = retry.BackoffLinear
	}
	if c.Remote.Retry.Initial == "" {
		c.Remote.Retry.Initial = "250ms"
	}
	if c.Remote.Retry.Max == "" {
		c.Remote.Retry.Max = "2s"
	}
	if c.Broadcast.NATS.SubjectPrefix == "" {
		c.Broadcast.NATS.SubjectPrefix = "sitehub"
	}
	if c.Warmup.Interval == "" {
		c.Warmup.Interval = "1m"
	}
	for i := range c.Sites {
		// Handle endpoints are built by plain suffix concatenation.
		if u := c.Sites[i].ServiceURL; u != "" && !strings.HasSuffix(u, "/") {
			c.Sites[i].ServiceURL = u + "/"
		}
	}
}

// HeartbeatInterval returns the parsed SSE heartbeat interval.
func (c *Config) HeartbeatInterval() time.Duration { return mustDuration(c.Server.Heartbeat) }

// RequestTimeout returns the parsed per-request timeout for site service calls.
func (c *Config) RequestTimeout() time.Duration { return mustDuration(c.Remote.RequestTimeout) }

// HandshakeTimeout returns the parsed event stream handshake timeout.
func (c *Config) HandshakeTimeout() time.Duration { return mustDuration(c.Remote.HandshakeTimeout) }

// RetryPolicy returns the retry policy for site service reads.
func (c *Config) RetryPolicy() retry.Policy {
	r := c.Remote.Retry
	return retry.NewPolicy(r.Backoff, mustDuration(r.Initial), mustDuration(r.Max), r.MaxRetries)
}

// WarmupInterval returns the parsed warm-up period.
func (c *Config) WarmupInterval() time.Duration { return mustDuration(c.Warmup.Interval) }

// Site returns the configured site with the given name.
func (c *Config) Site(name string) (Site, bool) {
	for _, s := range c.Sites {
		if s.Name == name {
			return s, true
		}
	}
	return Site{}, false
}

// mustDuration is only used after Validate has accepted the value.
func mustDuration(raw string) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return d
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return ferrors.ConfigError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).Build()
	}

	example := Config{
		Server:  ServerConfig{Addr: ":8070", ClientBuffer: 32, Heartbeat: "30s"},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
		Remote: RemoteConfig{
			RequestTimeout:   "30s",
			HandshakeTimeout: "10s",
			Retry:            RetryConfig{Backoff: retry.BackoffLinear, Initial: "250ms", Max: "2s", MaxRetries: 2},
		},
		Broadcast: BroadcastConfig{NATS: NATSConfig{
			Enabled:       false,
			URL:           "nats://127.0.0.1:4222",
			SubjectPrefix: "sitehub",
		}},
		Warmup: WarmupConfig{Enabled: true, Interval: "1m"},
		Sites: []Site{{
			Name:       "example",
			ServiceURL: "http://localhost:8080/",
			SiteURL:    "http://localhost:8081/",
		}},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "marshal example configuration").Build()
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "write configuration").WithContext("path", configPath).Build()
	}
	return nil
}
