package config

import (
	"fmt"
	"net/url"
	"time"

	ferrors "git.home.luguber.info/inful/sitehub/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehub/internal/retry"
)

// Validate checks the configuration after defaults have been applied.
func (c *Config) Validate() error {
	durations := map[string]string{
		"server.heartbeat":         c.Server.Heartbeat,
		"remote.request_timeout":   c.Remote.RequestTimeout,
		"remote.handshake_timeout": c.Remote.HandshakeTimeout,
		"remote.retry.initial":     c.Remote.Retry.Initial,
		"remote.retry.max":         c.Remote.Retry.Max,
		"warmup.interval":          c.Warmup.Interval,
	}
	for field, raw := range durations {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return ferrors.ConfigError("invalid duration").
				WithContext("field", field).
				WithContext("value", raw).
				Build()
		}
	}

	switch c.Remote.Retry.Backoff {
	case retry.BackoffFixed, retry.BackoffLinear, retry.BackoffExponential:
	default:
		return ferrors.ConfigError("remote.retry.backoff must be fixed, linear or exponential").
			WithContext("value", string(c.Remote.Retry.Backoff)).
			Build()
	}
	if c.Remote.Retry.MaxRetries < 0 {
		return ferrors.ConfigError("remote.retry.max_retries cannot be negative").Build()
	}

	if c.Broadcast.NATS.Enabled && c.Broadcast.NATS.URL == "" {
		return ferrors.ConfigError("broadcast.nats.url is required when nats is enabled").Build()
	}

	seen := make(map[string]bool, len(c.Sites))
	for i, s := range c.Sites {
		if s.Name == "" {
			return ferrors.ConfigError(fmt.Sprintf("sites[%d]: name cannot be empty", i)).Build()
		}
		if seen[s.Name] {
			return ferrors.ConfigError("duplicate site name").WithContext("site", s.Name).Build()
		}
		seen[s.Name] = true

		u, err := url.Parse(s.ServiceURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return ferrors.ConfigError("site service_url must be an absolute URL").
				WithContext("site", s.Name).
				WithContext("service_url", s.ServiceURL).
				Build()
		}
	}
	return nil
}
