package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitehub/internal/bridge"
	"git.home.luguber.info/inful/sitehub/internal/remote"
	"git.home.luguber.info/inful/sitehub/internal/remote/remotetest"
	"git.home.luguber.info/inful/sitehub/internal/server/responses"
	"git.home.luguber.info/inful/sitehub/internal/site"
)

type fixture struct {
	mux      *http.ServeMux
	factory  *remotetest.Factory
	registry *site.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	factory := remotetest.NewFactory()
	reg := site.NewRegistry(factory, bridge.New(bridge.SinkFunc(func(bridge.Channel, string, any) error { return nil })))
	dir := site.NewDirectory(site.Identity{Name: "alpha", ServiceURL: "http://alpha/", SiteURL: "http://alpha.example"})
	h := NewSiteHandlers(reg, dir, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/sites", h.HandleList)
	mux.HandleFunc("GET /api/sites/{name}", h.HandleGet)
	mux.HandleFunc("GET /api/sites/{name}/deployments", h.HandleDeployments)
	mux.HandleFunc("POST /api/sites/{name}/deployments/{id}", h.HandleDeploy)
	mux.HandleFunc("POST /api/sites/{name}/commands", h.HandleCommand)
	mux.Handle("GET /healthz", http.HandlerFunc(NewMonitoringHandlers(reg, time.Now(), nil).HandleHealthCheck))
	return &fixture{mux: mux, factory: factory, registry: reg}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHandleList_ReportsCacheState(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/sites", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[responses.SitesResponse](t, rec)
	require.Len(t, list.Sites, 1)
	assert.False(t, list.Sites[0].Cached)
	assert.Equal(t, 0, f.factory.Count(remotetest.KindRepository), "listing must not create handles")

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/sites/alpha", "").Code)

	list = decode[responses.SitesResponse](t, f.do(t, http.MethodGet, "/api/sites", ""))
	assert.True(t, list.Sites[0].Cached)
	assert.True(t, list.Sites[0].DeploymentActive)
	assert.Equal(t, 1, list.Cached)
}

func TestHandleGet(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/sites/alpha", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	got := decode[responses.SiteResponse](t, rec)
	assert.Equal(t, "alpha", got.Name)
	assert.Equal(t, "http://alpha.example", got.SiteURL)

	rec = f.do(t, http.MethodGet, "/api/sites/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGet_ConstructionFailureIsBadGateway(t *testing.T) {
	f := newFixture(t)
	f.factory.Fail(remotetest.KindDeploymentManager, errors.New("refused"))

	rec := f.do(t, http.MethodGet, "/api/sites/alpha", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, 0, f.registry.Len())
}

func TestHandleDeployments(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/sites/alpha", "").Code)
	f.factory.Deployments()[0].SetResults(remote.DeployResult{ID: "abc", Status: remote.DeploySuccess})

	rec := f.do(t, http.MethodGet, "/api/sites/alpha/deployments", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[responses.DeploymentsResponse](t, rec)
	require.Len(t, got.Deployments, 1)
	assert.Equal(t, "abc", got.Deployments[0].ID)
}

func TestHandleDeploy(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/sites/alpha/deployments/c0ffee", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"c0ffee"}, f.factory.Deployments()[0].Deployed())
}

func TestHandleCommand(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/sites/alpha/commands", `{"command":"ls -la","dir":"site"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[responses.CommandResponse](t, rec)
	assert.Equal(t, "ls -la", got.Output)
	assert.Equal(t, []string{"ls -la"}, f.factory.Commands()[0].Commands())

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/sites/alpha/commands", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/sites/alpha/commands", `{"command":"  "}`).Code)
}

func TestHandleHealthCheck(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz?pretty=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "\n  \"status\": \"healthy\"")
	got := decode[responses.HealthResponse](t, rec)
	assert.Equal(t, 0, got.CachedSites)
}
