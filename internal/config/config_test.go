package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/sitehub/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehub/internal/retry"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(`
sites:
  - name: siteA
    service_url: http://svc
    site_url: http://site/
`))
	require.NoError(t, err)

	assert.Equal(t, ":8070", cfg.Server.Addr)
	assert.Equal(t, 32, cfg.Server.ClientBuffer)
	assert.Equal(t, 30*time.Second, cfg.HeartbeatInterval())
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 10*time.Second, cfg.HandshakeTimeout())
	assert.Equal(t, time.Minute, cfg.WarmupInterval())
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
	assert.Equal(t, LogFormatText, cfg.Logging.Format)
	assert.Equal(t, "sitehub", cfg.Broadcast.NATS.SubjectPrefix)
	assert.Equal(t, retry.Policy{Mode: retry.BackoffLinear, Initial: 250 * time.Millisecond, Max: 2 * time.Second}, cfg.RetryPolicy())

	site, ok := cfg.Site("siteA")
	require.True(t, ok)
	assert.Equal(t, "http://svc/", site.ServiceURL, "service URL gains a trailing slash")
	_, ok = cfg.Site("missing")
	assert.False(t, ok)
}

func TestParse_ExpandsEnvironment(t *testing.T) {
	t.Setenv("SITEHUB_TEST_SVC", "http://from-env:9000/")

	cfg, err := Parse([]byte(`
sites:
  - name: envsite
    service_url: ${SITEHUB_TEST_SVC}
`))
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:9000/", cfg.Sites[0].ServiceURL)
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty site name", "sites:\n  - service_url: http://svc/\n"},
		{"duplicate site", "sites:\n  - name: a\n    service_url: http://svc/\n  - name: a\n    service_url: http://svc2/\n"},
		{"relative service url", "sites:\n  - name: a\n    service_url: svc/\n"},
		{"bad duration", "warmup:\n  interval: soon\n"},
		{"unknown backoff", "remote:\n  retry:\n    backoff: random\n"},
		{"negative retries", "remote:\n  retry:\n    max_retries: -1\n"},
		{"nats without url", "broadcast:\n  nats:\n    enabled: true\n    url: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
		})
	}
}

func TestNormalizeLogging(t *testing.T) {
	assert.Equal(t, LogLevelDebug, NormalizeLogLevel(" DEBUG "))
	assert.Equal(t, LogLevelWarn, NormalizeLogLevel("warning"))
	assert.Equal(t, LogLevelInfo, NormalizeLogLevel("chatty"))
	assert.Equal(t, LogFormatJSON, NormalizeLogFormat("JSON"))
	assert.Equal(t, LogFormatText, NormalizeLogFormat(""))
}

func TestLoadAndInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sitehub.yaml")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))

	require.NoError(t, Init(path, false))
	require.Error(t, Init(path, false), "refuses to overwrite without force")
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Sites, 1)
	assert.Equal(t, "example", cfg.Sites[0].Name)
	assert.True(t, cfg.Warmup.Enabled)
	assert.Equal(t, 2, cfg.RetryPolicy().MaxRetries)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
