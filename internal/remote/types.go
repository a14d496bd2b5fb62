package remote

import (
	"context"
	"time"
)

// DeployStatus is the lifecycle state of one deployment.
type DeployStatus string

const (
	DeployPending   DeployStatus = "pending"
	DeployBuilding  DeployStatus = "building"
	DeployDeploying DeployStatus = "deploying"
	DeployFailed    DeployStatus = "failed"
	DeploySuccess   DeployStatus = "success"
)

// DeployResult describes a deployment as reported by the site service.
type DeployResult struct {
	ID          string       `json:"id"`
	Status      DeployStatus `json:"status"`
	StatusText  string       `json:"statusText,omitempty"`
	AuthorName  string       `json:"authorName,omitempty"`
	AuthorEmail string       `json:"authorEmail,omitempty"`
	Message     string       `json:"message,omitempty"`
	StartTime   time.Time    `json:"startTime"`
	EndTime     *time.Time   `json:"endTime,omitempty"`
	Complete    bool         `json:"complete"`
}

// LogEntry is one line of a deployment log.
type LogEntry struct {
	LogTime time.Time `json:"logTime"`
	Message string    `json:"message"`
	Type    string    `json:"type,omitempty"`
}

// CommandEventType distinguishes streamed output from the completion marker.
type CommandEventType string

const (
	CommandData     CommandEventType = "data"
	CommandComplete CommandEventType = "complete"
)

// CommandEvent is one item of a command executor's event stream.
type CommandEvent struct {
	EventType CommandEventType `json:"eventType"`
	Data      string           `json:"data,omitempty"`
}

// CommandResult is the synchronous reply to ExecuteCommand.
type CommandResult struct {
	Output   string `json:"output"`
	Error    string `json:"error"`
	ExitCode int    `json:"exitCode"`
}

// Branch is a source-control branch.
type Branch struct {
	Name   string `json:"name"`
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

// FileStatus is the working-copy state of one file.
type FileStatus struct {
	Path   string `json:"path"`
	Status string `json:"status"`
}

// ChangeSet is one commit in the repository history.
type ChangeSet struct {
	ID          string    `json:"id"`
	AuthorName  string    `json:"authorName"`
	AuthorEmail string    `json:"authorEmail"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
}

// Project lists the files served by the file-system handle.
type Project struct {
	Name  string   `json:"name"`
	Files []string `json:"files"`
}

// RepositoryType is the kind of source-control repository backing a site.
type RepositoryType string

const (
	RepositoryNone RepositoryType = "none"
	RepositoryGit  RepositoryType = "git"
	RepositoryHg   RepositoryType = "mercurial"
)

// Subscription identifies an observer registered on an event stream. The
// site service offers no way to unsubscribe; an observer lives as long as
// the handle it was registered on.
type Subscription struct {
	ID       string
	Handle   string
	Instance string
}

// Repository reads source-control state.
type Repository interface {
	CurrentID(ctx context.Context) (string, error)
	Branches(ctx context.Context) ([]Branch, error)
	Status(ctx context.Context) ([]FileStatus, error)
	Changes(ctx context.Context, limit int) ([]ChangeSet, error)
}

// FileSystem reads and writes site files.
type FileSystem interface {
	Project(ctx context.Context) (*Project, error)
	ReadFile(ctx context.Context, path string) (string, error)
	WriteFile(ctx context.Context, path, content string) error
}

// RepositoryManager handles repository lifecycle.
type RepositoryManager interface {
	RepositoryType(ctx context.Context) (RepositoryType, error)
	CreateRepository(ctx context.Context, kind RepositoryType) error
	Delete(ctx context.Context) error
}

// DeploymentStatus is the read-only slice of a deployment manager handed to
// consumers outside the registry.
type DeploymentStatus interface {
	// IsActive reports whether the manager's event session is still usable.
	// It is a local state check and never does I/O.
	IsActive() bool
	Results(ctx context.Context) ([]DeployResult, error)
	Result(ctx context.Context, id string) (*DeployResult, error)
}

// DeploymentManager triggers and observes deployments.
type DeploymentManager interface {
	DeploymentStatus
	Deploy(ctx context.Context, id string) error
	LogEntries(ctx context.Context, id string) ([]LogEntry, error)
	OnStatusChanged(fn func(DeployResult)) Subscription
}

// CommandExecutor runs commands in the site's working directory. Output
// arrives asynchronously through OnCommandEvent.
type CommandExecutor interface {
	ExecuteCommand(ctx context.Context, command, workingDir string) (CommandResult, error)
	CancelCommand(ctx context.Context) error
	OnCommandEvent(fn func(CommandEvent)) Subscription
}

// Factory constructs handles bound to a base URL. Implementations must not
// block on network I/O.
type Factory interface {
	NewRepository(baseURL string) (Repository, error)
	NewFileSystem(baseURL string) (FileSystem, error)
	NewDeploymentManager(baseURL string) (DeploymentManager, error)
	NewRepositoryManager(baseURL string) (RepositoryManager, error)
	NewCommandExecutor(baseURL string) (CommandExecutor, error)
}
