package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"git.home.luguber.info/inful/sitehub/internal/bridge"
	ferrors "git.home.luguber.info/inful/sitehub/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehub/internal/logfields"
	"git.home.luguber.info/inful/sitehub/internal/server/handlers"
	smw "git.home.luguber.info/inful/sitehub/internal/server/middleware"
)

// Server is the sitehub admin HTTP server: site API, SSE channels, health
// and metrics.
type Server struct {
	opts    Options
	logger  *slog.Logger
	handler http.Handler

	server   *http.Server
	listener net.Listener
}

// New constructs the server and its routes. Nothing listens until Start.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{opts: opts, logger: logger}

	siteHandlers := handlers.NewSiteHandlers(opts.Registry, opts.Directory, logger)
	monitoring := handlers.NewMonitoringHandlers(opts.Registry, time.Now(), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", monitoring.HandleHealthCheck)
	mux.HandleFunc("GET /api/sites", siteHandlers.HandleList)
	mux.HandleFunc("GET /api/sites/{name}", siteHandlers.HandleGet)
	mux.HandleFunc("GET /api/sites/{name}/deployments", siteHandlers.HandleDeployments)
	mux.HandleFunc("POST /api/sites/{name}/deployments/{id}", siteHandlers.HandleDeploy)
	mux.HandleFunc("POST /api/sites/{name}/commands", siteHandlers.HandleCommand)
	if opts.Hub != nil {
		mux.Handle("GET /events/"+string(bridge.SourceControl), opts.Hub.Handler(bridge.SourceControl))
		mux.Handle("GET /events/"+string(bridge.CommandLine), opts.Hub.Handler(bridge.CommandLine))
	}
	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	s.handler = smw.Chain(logger, ferrors.NewHTTPErrorAdapter(logger), opts.Recorder)(mux)
	return s
}

// Handler returns the fully wrapped route tree.
func (s *Server) Handler() http.Handler { return s.handler }

// Start binds the listen address and serves in the background. Binding
// happens synchronously so an address in use fails fast.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return ferrors.RuntimeError("failed to bind admin server").
			WithCause(err).
			WithContext("addr", s.opts.Addr).
			Build()
	}
	s.listener = ln
	// No WriteTimeout: SSE responses stay open.
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Admin server error", logfields.Error(err))
		}
	}()
	s.logger.Info("HTTP server started", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.opts.Addr
	}
	return s.listener.Addr().String()
}

// Stop disconnects SSE clients and gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.opts.Hub != nil {
		s.opts.Hub.Shutdown()
	}
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return ferrors.RuntimeError("admin server shutdown").WithCause(err).Build()
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
