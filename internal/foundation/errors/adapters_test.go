package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPErrorAdapter_StatusCodeFor(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.Default())

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", ValidationError("bad").Build(), http.StatusBadRequest},
		{"not found", NotFoundError("missing").Build(), http.StatusNotFound},
		{"remote", RemoteError("down").Build(), http.StatusBadGateway},
		{"broadcast", BroadcastError("slow").Build(), http.StatusServiceUnavailable},
		{"plain", stderrors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, adapter.StatusCodeFor(tt.err))
		})
	}
}

func TestHTTPErrorAdapter_WriteErrorResponse(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sites/x", nil)

	adapter.WriteErrorResponse(rec, req, NotFoundError("site not configured").WithContext("site", "x").Build())

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "site not configured", body.Error)
	assert.Equal(t, "not_found", body.Code)
	assert.Equal(t, "x", body.Details["site"])
}

func TestCLIErrorAdapter(t *testing.T) {
	var out bytes.Buffer
	var code int
	adapter := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	adapter.out = &out
	adapter.exit = func(c int) { code = c }

	adapter.HandleError(ConfigError("missing sites").Build())

	assert.Equal(t, 7, code)
	assert.Equal(t, "Error: missing sites\n", out.String())
	assert.Equal(t, 0, adapter.ExitCodeFor(nil))
	assert.Equal(t, 1, adapter.ExitCodeFor(stderrors.New("plain")))
	assert.Equal(t, 8, adapter.ExitCodeFor(RemoteError("x").Build()))
}
