package remote

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// HTTPDeploymentManager is the deployment-manager handle. Requests go over
// HTTP; status changes arrive over the handle's event session, which also
// decides IsActive.
type HTTPDeploymentManager struct {
	c      jsonClient
	events *eventStream[DeployResult]
}

// NewHTTPDeploymentManager returns a deployment manager bound to baseURL.
func NewHTTPDeploymentManager(baseURL string, client *http.Client, dialer *websocket.Dialer, logger *slog.Logger, opts ...ClientOption) *HTTPDeploymentManager {
	return &HTTPDeploymentManager{
		c:      newJSONClient(baseURL, client, opts...),
		events: newEventStream[DeployResult]("deploy", baseURL, dialer, logger),
	}
}

// IsActive reports whether the event session has not been torn down.
func (m *HTTPDeploymentManager) IsActive() bool { return m.events.alive() }

func (m *HTTPDeploymentManager) Results(ctx context.Context) ([]DeployResult, error) {
	var out []DeployResult
	err := m.c.getJSON(ctx, m.c.url("log"), &out)
	return out, err
}

func (m *HTTPDeploymentManager) Result(ctx context.Context, id string) (*DeployResult, error) {
	var out DeployResult
	if err := m.c.getJSON(ctx, m.c.url("details", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *HTTPDeploymentManager) LogEntries(ctx context.Context, id string) ([]LogEntry, error) {
	var out []LogEntry
	err := m.c.getJSON(ctx, m.c.url("log", id), &out)
	return out, err
}

// Deploy starts a deployment of id, or of the current head when id is empty.
func (m *HTTPDeploymentManager) Deploy(ctx context.Context, id string) error {
	return m.c.postJSON(ctx, m.c.url(id), struct{}{}, nil)
}

// OnStatusChanged registers fn for every status change. The first
// registration dials the event session.
func (m *HTTPDeploymentManager) OnStatusChanged(fn func(DeployResult)) Subscription {
	return m.events.subscribe(fn)
}

// Close tears down the event session; IsActive reports false afterwards.
func (m *HTTPDeploymentManager) Close() error { return m.events.close() }
