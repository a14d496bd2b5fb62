package httpserver

import (
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/sitehub/internal/bridge"
	"git.home.luguber.info/inful/sitehub/internal/metrics"
	"git.home.luguber.info/inful/sitehub/internal/server/handlers"
)

// EventHub serves the real-time channels.
type EventHub interface {
	Handler(channel bridge.Channel) http.Handler
	Shutdown()
}

// Options wires the admin server's dependencies.
type Options struct {
	Addr      string
	Registry  handlers.Registry
	Directory handlers.Directory
	Hub       EventHub

	// Optional.
	PrometheusHandler http.Handler
	Recorder          metrics.Recorder
	Logger            *slog.Logger
}
