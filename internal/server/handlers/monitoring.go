package handlers

import (
	"log/slog"
	"net/http"
	"time"

	ferrors "git.home.luguber.info/inful/sitehub/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehub/internal/server/responses"
	"git.home.luguber.info/inful/sitehub/internal/version"
)

// MonitoringHandlers contains monitoring-related HTTP handlers.
type MonitoringHandlers struct {
	registry     interface{ Len() int }
	startTime    time.Time
	errorAdapter *ferrors.HTTPErrorAdapter
}

func NewMonitoringHandlers(registry interface{ Len() int }, startTime time.Time, logger *slog.Logger) *MonitoringHandlers {
	return &MonitoringHandlers{
		registry:     registry,
		startTime:    startTime,
		errorAdapter: ferrors.NewHTTPErrorAdapter(logger),
	}
}

// HandleHealthCheck handles the health check endpoint.
func (h *MonitoringHandlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := &responses.HealthResponse{
		Status:      "healthy",
		Timestamp:   time.Now().UTC(),
		Version:     version.Version,
		Uptime:      time.Since(h.startTime).Seconds(),
		CachedSites: h.registry.Len(),
	}
	if err := writeJSONPretty(w, r, http.StatusOK, health); err != nil {
		internalErr := ferrors.WrapError(err, ferrors.CategoryInternal, "failed to write health response").Build()
		h.errorAdapter.WriteErrorResponse(w, r, internalErr)
	}
}
