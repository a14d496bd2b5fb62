package remote

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"git.home.luguber.info/inful/sitehub/internal/retry"
)

// Options configures HTTPFactory.
type Options struct {
	RequestTimeout   time.Duration
	HandshakeTimeout time.Duration
	// Retry applies to idempotent reads; the zero value never retries.
	Retry  retry.Policy
	Logger *slog.Logger
}

// HTTPFactory builds the HTTP/WebSocket handle implementations. All handles
// it creates share one http.Client and one websocket.Dialer.
type HTTPFactory struct {
	client *http.Client
	dialer *websocket.Dialer
	logger *slog.Logger
	opts   []ClientOption
}

var _ Factory = (*HTTPFactory)(nil)

// NewHTTPFactory returns a factory using opts; zero values get defaults.
func NewHTTPFactory(opts Options) *HTTPFactory {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &HTTPFactory{
		client: &http.Client{Timeout: opts.RequestTimeout},
		dialer: &websocket.Dialer{
			Proxy:             http.ProxyFromEnvironment,
			HandshakeTimeout:  opts.HandshakeTimeout,
			EnableCompression: true,
		},
		logger: opts.Logger,
		opts:   []ClientOption{WithRetry(opts.Retry)},
	}
}

func (f *HTTPFactory) NewRepository(baseURL string) (Repository, error) {
	return NewHTTPRepository(baseURL, f.client, f.opts...), nil
}

func (f *HTTPFactory) NewFileSystem(baseURL string) (FileSystem, error) {
	return NewHTTPFileSystem(baseURL, f.client, f.opts...), nil
}

func (f *HTTPFactory) NewDeploymentManager(baseURL string) (DeploymentManager, error) {
	return NewHTTPDeploymentManager(baseURL, f.client, f.dialer, f.logger, f.opts...), nil
}

func (f *HTTPFactory) NewRepositoryManager(baseURL string) (RepositoryManager, error) {
	return NewHTTPRepositoryManager(baseURL, f.client, f.opts...), nil
}

func (f *HTTPFactory) NewCommandExecutor(baseURL string) (CommandExecutor, error) {
	return NewHTTPCommandExecutor(baseURL, f.client, f.dialer, f.logger, f.opts...), nil
}
