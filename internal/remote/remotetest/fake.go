// Package remotetest provides in-memory remote handles and a counting factory
// for tests of code built on package remote.
package remotetest

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitehub/internal/remote"
)

// Kind names one handle kind produced by the factory.
type Kind string

const (
	KindRepository        Kind = "repository"
	KindFileSystem        Kind = "filesystem"
	KindDeploymentManager Kind = "deployment_manager"
	KindRepositoryManager Kind = "repository_manager"
	KindCommandExecutor   Kind = "command_executor"
)

// Factory is a remote.Factory that counts constructions, records base URLs
// and can be told to fail for a given kind.
type Factory struct {
	mu          sync.Mutex
	counts      map[Kind]int
	urls        map[Kind][]string
	failures    map[Kind]error
	deployments []*DeploymentManager
	commands    []*CommandExecutor
}

var _ remote.Factory = (*Factory)(nil)

// NewFactory returns an empty counting factory.
func NewFactory() *Factory {
	return &Factory{
		counts:   make(map[Kind]int),
		urls:     make(map[Kind][]string),
		failures: make(map[Kind]error),
	}
}

// Fail makes every construction of kind return err until cleared with a nil err.
func (f *Factory) Fail(kind Kind, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, kind)
		return
	}
	f.failures[kind] = err
}

// Count returns how many handles of kind were successfully constructed.
func (f *Factory) Count(kind Kind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[kind]
}

// URLs returns the base URLs handed to constructions of kind, in order.
func (f *Factory) URLs(kind Kind) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.urls[kind]...)
}

// Deployments returns every deployment manager constructed so far.
func (f *Factory) Deployments() []*DeploymentManager {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*DeploymentManager(nil), f.deployments...)
}

// Commands returns every command executor constructed so far.
func (f *Factory) Commands() []*CommandExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*CommandExecutor(nil), f.commands...)
}

func (f *Factory) record(kind Kind, baseURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures[kind]; err != nil {
		return err
	}
	f.counts[kind]++
	f.urls[kind] = append(f.urls[kind], baseURL)
	return nil
}

func (f *Factory) NewRepository(baseURL string) (remote.Repository, error) {
	if err := f.record(KindRepository, baseURL); err != nil {
		return nil, err
	}
	return &Repository{BaseURL: baseURL}, nil
}

func (f *Factory) NewFileSystem(baseURL string) (remote.FileSystem, error) {
	if err := f.record(KindFileSystem, baseURL); err != nil {
		return nil, err
	}
	return &FileSystem{BaseURL: baseURL, Files: map[string]string{}}, nil
}

func (f *Factory) NewRepositoryManager(baseURL string) (remote.RepositoryManager, error) {
	if err := f.record(KindRepositoryManager, baseURL); err != nil {
		return nil, err
	}
	return &RepositoryManager{BaseURL: baseURL, Type: remote.RepositoryGit}, nil
}

func (f *Factory) NewDeploymentManager(baseURL string) (remote.DeploymentManager, error) {
	if err := f.record(KindDeploymentManager, baseURL); err != nil {
		return nil, err
	}
	dm := NewDeploymentManager(baseURL)
	f.mu.Lock()
	f.deployments = append(f.deployments, dm)
	f.mu.Unlock()
	return dm, nil
}

func (f *Factory) NewCommandExecutor(baseURL string) (remote.CommandExecutor, error) {
	if err := f.record(KindCommandExecutor, baseURL); err != nil {
		return nil, err
	}
	ce := NewCommandExecutor(baseURL)
	f.mu.Lock()
	f.commands = append(f.commands, ce)
	f.mu.Unlock()
	return ce, nil
}

// observers is a concurrency-safe observer list with synchronous delivery.
type observers[T any] struct {
	mu  sync.Mutex
	fns []func(T)
}

func (o *observers[T]) add(handle string, fn func(T)) remote.Subscription {
	o.mu.Lock()
	o.fns = append(o.fns, fn)
	o.mu.Unlock()
	return remote.Subscription{ID: uuid.NewString(), Handle: handle}
}

func (o *observers[T]) emit(v T) {
	o.mu.Lock()
	fns := slices.Clone(o.fns)
	o.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

func (o *observers[T]) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.fns)
}

// DeploymentManager is an in-memory deployment manager whose liveness is
// controlled by the test.
type DeploymentManager struct {
	BaseURL string

	dead      atomic.Bool
	observers observers[remote.DeployResult]

	mu       sync.Mutex
	results  []remote.DeployResult
	deployed []string
}

// NewDeploymentManager returns an active fake bound to baseURL.
func NewDeploymentManager(baseURL string) *DeploymentManager {
	return &DeploymentManager{BaseURL: baseURL}
}

// SetActive flips the liveness reported by IsActive.
func (d *DeploymentManager) SetActive(active bool) { d.dead.Store(!active) }

// Emit delivers r to every registered observer on the calling goroutine.
func (d *DeploymentManager) Emit(r remote.DeployResult) { d.observers.emit(r) }

// Observers returns how many observers were registered.
func (d *DeploymentManager) Observers() int { return d.observers.len() }

// SetResults sets what Results returns.
func (d *DeploymentManager) SetResults(rs ...remote.DeployResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.results = rs
}

// Deployed returns the ids passed to Deploy.
func (d *DeploymentManager) Deployed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.deployed...)
}

func (d *DeploymentManager) IsActive() bool { return !d.dead.Load() }

func (d *DeploymentManager) Results(context.Context) ([]remote.DeployResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]remote.DeployResult(nil), d.results...), nil
}

func (d *DeploymentManager) Result(_ context.Context, id string) (*remote.DeployResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.results {
		if d.results[i].ID == id {
			r := d.results[i]
			return &r, nil
		}
	}
	return nil, nil
}

func (d *DeploymentManager) Deploy(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deployed = append(d.deployed, id)
	return nil
}

func (d *DeploymentManager) LogEntries(context.Context, string) ([]remote.LogEntry, error) {
	return nil, nil
}

func (d *DeploymentManager) OnStatusChanged(fn func(remote.DeployResult)) remote.Subscription {
	return d.observers.add("deploy", fn)
}

// CommandExecutor is an in-memory command executor.
type CommandExecutor struct {
	BaseURL string

	observers observers[remote.CommandEvent]

	mu       sync.Mutex
	commands []string
	closed   bool
}

// NewCommandExecutor returns a fake bound to baseURL.
func NewCommandExecutor(baseURL string) *CommandExecutor {
	return &CommandExecutor{BaseURL: baseURL}
}

// Emit delivers e to every registered observer on the calling goroutine.
func (c *CommandExecutor) Emit(e remote.CommandEvent) { c.observers.emit(e) }

// Observers returns how many observers were registered.
func (c *CommandExecutor) Observers() int { return c.observers.len() }

// Commands returns every command passed to ExecuteCommand.
func (c *CommandExecutor) Commands() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.commands...)
}

// Closed reports whether Close was called.
func (c *CommandExecutor) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *CommandExecutor) ExecuteCommand(_ context.Context, command, _ string) (remote.CommandResult, error) {
	c.mu.Lock()
	c.commands = append(c.commands, command)
	c.mu.Unlock()
	return remote.CommandResult{Output: command}, nil
}

func (c *CommandExecutor) CancelCommand(context.Context) error { return nil }

func (c *CommandExecutor) OnCommandEvent(fn func(remote.CommandEvent)) remote.Subscription {
	return c.observers.add("command", fn)
}

func (c *CommandExecutor) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Repository is a static remote.Repository.
type Repository struct{ BaseURL string }

func (r *Repository) CurrentID(context.Context) (string, error)                { return "head", nil }
func (r *Repository) Branches(context.Context) ([]remote.Branch, error)        { return nil, nil }
func (r *Repository) Status(context.Context) ([]remote.FileStatus, error)      { return nil, nil }
func (r *Repository) Changes(context.Context, int) ([]remote.ChangeSet, error) { return nil, nil }

// FileSystem is a map-backed remote.FileSystem.
type FileSystem struct {
	BaseURL string

	mu    sync.Mutex
	Files map[string]string
}

func (f *FileSystem) Project(context.Context) (*remote.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &remote.Project{Name: f.BaseURL}
	for name := range f.Files {
		p.Files = append(p.Files, name)
	}
	return p, nil
}

func (f *FileSystem) ReadFile(_ context.Context, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Files[path], nil
}

func (f *FileSystem) WriteFile(_ context.Context, path, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Files[path] = content
	return nil
}

// RepositoryManager is an in-memory remote.RepositoryManager.
type RepositoryManager struct {
	BaseURL string
	Type    remote.RepositoryType
}

func (m *RepositoryManager) RepositoryType(context.Context) (remote.RepositoryType, error) {
	return m.Type, nil
}

func (m *RepositoryManager) CreateRepository(_ context.Context, kind remote.RepositoryType) error {
	m.Type = kind
	return nil
}

func (m *RepositoryManager) Delete(context.Context) error {
	m.Type = remote.RepositoryNone
	return nil
}
