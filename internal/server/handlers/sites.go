package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/sitehub/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehub/internal/server/responses"
	"git.home.luguber.info/inful/sitehub/internal/site"
)

// Registry is the part of site.Registry the handlers use.
type Registry interface {
	GetOrCreate(ctx context.Context, id site.Identity) (*site.Bundle, error)
	Lookup(name string) (*site.Bundle, bool)
	Len() int
}

// Directory resolves site names to identities.
type Directory interface {
	Get(name string) (site.Identity, bool)
	List() []site.Identity
}

// SiteHandlers serves the /api/sites endpoints.
type SiteHandlers struct {
	registry     Registry
	directory    Directory
	errorAdapter *ferrors.HTTPErrorAdapter
}

func NewSiteHandlers(registry Registry, directory Directory, logger *slog.Logger) *SiteHandlers {
	return &SiteHandlers{
		registry:     registry,
		directory:    directory,
		errorAdapter: ferrors.NewHTTPErrorAdapter(logger),
	}
}

// HandleList lists configured sites without creating handles.
func (h *SiteHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	ids := h.directory.List()
	resp := responses.SitesResponse{
		Sites:     make([]responses.SiteResponse, 0, len(ids)),
		Cached:    h.registry.Len(),
		Timestamp: time.Now().UTC(),
	}
	for _, id := range ids {
		sr := responses.SiteResponse{Name: id.Name, ServiceURL: id.ServiceURL, SiteURL: id.SiteURL}
		if b, ok := h.registry.Lookup(id.Name); ok {
			sr.Cached = true
			sr.DeploymentActive = b.DeploymentManager().IsActive()
		}
		resp.Sites = append(resp.Sites, sr)
	}
	h.write(w, r, http.StatusOK, resp)
}

// HandleGet resolves the site's handles, creating or refreshing them.
func (h *SiteHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	b, err := h.bundle(r)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	h.write(w, r, http.StatusOK, responses.SiteResponse{
		Name:             b.Name(),
		ServiceURL:       b.ServiceURL(),
		SiteURL:          b.SiteURL(),
		Cached:           true,
		DeploymentActive: b.DeploymentManager().IsActive(),
	})
}

// HandleDeployments lists deployment results reported by the site service.
func (h *SiteHandlers) HandleDeployments(w http.ResponseWriter, r *http.Request) {
	b, err := h.bundle(r)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	results, err := b.DeploymentManager().Results(r.Context())
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	h.write(w, r, http.StatusOK, responses.DeploymentsResponse{Site: b.Name(), Deployments: results})
}

// HandleDeploy triggers a deployment of the given commit id.
func (h *SiteHandlers) HandleDeploy(w http.ResponseWriter, r *http.Request) {
	b, err := h.bundle(r)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	id := r.PathValue("id")
	if err := b.Deployments().Deploy(r.Context(), id); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	h.write(w, r, http.StatusAccepted, responses.DeployTriggerResponse{Status: "accepted", Site: b.Name(), ID: id})
}

// HandleCommand runs a command in the site's working directory.
func (h *SiteHandlers) HandleCommand(w http.ResponseWriter, r *http.Request) {
	var req responses.CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, ferrors.ValidationError("invalid command request body").WithCause(err).Build())
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		h.errorAdapter.WriteErrorResponse(w, r, ferrors.ValidationError("command is required").Build())
		return
	}

	b, err := h.bundle(r)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	res, err := b.CommandExecutor().ExecuteCommand(r.Context(), req.Command, req.WorkingDir)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	h.write(w, r, http.StatusOK, responses.CommandResponse{
		Site:     b.Name(),
		Output:   res.Output,
		Error:    res.Error,
		ExitCode: res.ExitCode,
	})
}

func (h *SiteHandlers) bundle(r *http.Request) (*site.Bundle, error) {
	name := r.PathValue("name")
	id, ok := h.directory.Get(name)
	if !ok {
		return nil, ferrors.NotFoundError("unknown site").WithContext("site", name).Build()
	}
	return h.registry.GetOrCreate(r.Context(), id)
}

func (h *SiteHandlers) write(w http.ResponseWriter, r *http.Request, status int, v any) {
	if err := writeJSONPretty(w, r, status, v); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, ferrors.WrapError(err, ferrors.CategoryInternal, "failed to write response").Build())
	}
}
