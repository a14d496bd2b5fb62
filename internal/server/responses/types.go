// Package responses defines API response types used by sitehub HTTP handlers.
package responses

import (
	"time"

	"git.home.luguber.info/inful/sitehub/internal/remote"
)

// SiteResponse describes one site and the state of its cached handles.
type SiteResponse struct {
	Name             string `json:"name"`
	ServiceURL       string `json:"service_url"`
	SiteURL          string `json:"site_url,omitempty"`
	Cached           bool   `json:"cached"`
	DeploymentActive bool   `json:"deployment_active"`
}

// SitesResponse lists configured sites.
type SitesResponse struct {
	Sites     []SiteResponse `json:"sites"`
	Cached    int            `json:"cached"`
	Timestamp time.Time      `json:"timestamp"`
}

// DeploymentsResponse lists deployment results for a site.
type DeploymentsResponse struct {
	Site        string                `json:"site"`
	Deployments []remote.DeployResult `json:"deployments"`
}

// DeployTriggerResponse acknowledges a deployment request. Progress arrives
// on the source-control channel.
type DeployTriggerResponse struct {
	Status string `json:"status"`
	Site   string `json:"site"`
	ID     string `json:"id"`
}

// CommandRequest is the body of a command execution request.
type CommandRequest struct {
	Command    string `json:"command"`
	WorkingDir string `json:"dir,omitempty"`
}

// CommandResponse is the synchronous result of a command. Output also
// streams on the command-line channel while it runs.
type CommandResponse struct {
	Site     string `json:"site"`
	Output   string `json:"output"`
	Error    string `json:"error,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// HealthResponse represents the health check API response.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Version     string    `json:"version"`
	Uptime      float64   `json:"uptime"`
	CachedSites int       `json:"cached_sites"`
}
