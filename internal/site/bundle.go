package site

import (
	"strings"

	"git.home.luguber.info/inful/sitehub/internal/remote"
)

// Endpoint suffixes appended to a site's service URL for each handle.
const (
	RepositorySuffix        = "scm"
	FileSystemSuffix        = "files"
	DeploymentSuffix        = "deploy"
	RepositoryManagerSuffix = "scm"
	CommandSuffix           = "command"
)

// Identity names a site and where its service lives. Name is the cache key.
type Identity struct {
	Name       string
	ServiceURL string
	SiteURL    string
}

// Endpoint returns the service URL with suffix appended verbatim. A missing
// trailing slash on ServiceURL is not corrected.
func (id Identity) Endpoint(suffix string) string {
	return id.ServiceURL + suffix
}

// Bundle is the caller's view of a site's handles at lookup time. It carries
// the identity of the lookup that produced it, which may differ from the one
// that first created the cached handles.
type Bundle struct {
	id                Identity
	repository        remote.Repository
	fileSystem        remote.FileSystem
	repositoryManager remote.RepositoryManager
	deployment        remote.DeploymentManager
	command           remote.CommandExecutor
}

func (b *Bundle) Name() string       { return b.id.Name }
func (b *Bundle) ServiceURL() string { return b.id.ServiceURL }
func (b *Bundle) SiteURL() string    { return b.id.SiteURL }

func (b *Bundle) Repository() remote.Repository               { return b.repository }
func (b *Bundle) FileSystem() remote.FileSystem               { return b.fileSystem }
func (b *Bundle) RepositoryManager() remote.RepositoryManager { return b.repositoryManager }
func (b *Bundle) CommandExecutor() remote.CommandExecutor     { return b.command }

// DeploymentManager exposes the read-only status capability of the
// deployment manager. Use Deployments to trigger or inspect logs.
func (b *Bundle) DeploymentManager() remote.DeploymentStatus { return b.deployment }

// Deployments returns the full deployment manager.
func (b *Bundle) Deployments() remote.DeploymentManager { return b.deployment }

func (b *Bundle) String() string {
	return b.id.Name + "@" + strings.TrimSuffix(b.id.ServiceURL, "/")
}
