package remote

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	ferrors "git.home.luguber.info/inful/sitehub/internal/foundation/errors"
)

// HTTPCommandExecutor is the command-executor handle. ExecuteCommand returns
// the final result; incremental output and completion arrive as events.
type HTTPCommandExecutor struct {
	c      jsonClient
	events *eventStream[CommandEvent]
}

// NewHTTPCommandExecutor returns a command executor bound to baseURL.
func NewHTTPCommandExecutor(baseURL string, client *http.Client, dialer *websocket.Dialer, logger *slog.Logger, opts ...ClientOption) *HTTPCommandExecutor {
	return &HTTPCommandExecutor{
		c:      newJSONClient(baseURL, client, opts...),
		events: newEventStream[CommandEvent]("command", baseURL, dialer, logger),
	}
}

func (e *HTTPCommandExecutor) ExecuteCommand(ctx context.Context, command, workingDir string) (CommandResult, error) {
	if command == "" {
		return CommandResult{}, ferrors.ValidationError("command is required").Build()
	}
	in := struct {
		Command string `json:"command"`
		Dir     string `json:"dir,omitempty"`
	}{command, workingDir}

	var out CommandResult
	err := e.c.postJSON(ctx, e.c.url(), in, &out)
	return out, err
}

func (e *HTTPCommandExecutor) CancelCommand(ctx context.Context) error {
	return e.c.postJSON(ctx, e.c.url("cancel"), struct{}{}, nil)
}

// OnCommandEvent registers fn for every command event. The first
// registration dials the event session.
func (e *HTTPCommandExecutor) OnCommandEvent(fn func(CommandEvent)) Subscription {
	return e.events.subscribe(fn)
}

// Close tears down the event session.
func (e *HTTPCommandExecutor) Close() error { return e.events.close() }
