package site

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/sitehub/internal/bridge"
	"git.home.luguber.info/inful/sitehub/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehub/internal/logfields"
	"git.home.luguber.info/inful/sitehub/internal/metrics"
	"git.home.luguber.info/inful/sitehub/internal/remote"
)

// Forwarder attaches event forwarding to deployment and command handles.
// *bridge.Bridge implements it.
type Forwarder interface {
	AttachDeployment(site string, dm remote.DeploymentManager) *bridge.Attachment
	AttachCommand(site string, ce remote.CommandExecutor) *bridge.Attachment
}

// deployPair is replaced as a unit. attachments is nil until forwarding is
// attached under the entry lock.
type deployPair struct {
	deployment  remote.DeploymentManager
	command     remote.CommandExecutor
	attachments []*bridge.Attachment
}

func (p *deployPair) active() bool { return p.deployment.IsActive() }

type entry struct {
	serviceURL        string
	repository        remote.Repository
	fileSystem        remote.FileSystem
	repositoryManager remote.RepositoryManager

	pair atomic.Pointer[deployPair]
	// urlMismatch is set once a lookup named a different service URL.
	urlMismatch atomic.Bool
	// mu serialises forwarding attachment and pair replacement.
	mu sync.Mutex
}

// Registry is the process-wide cache of site handles. It is safe for
// concurrent use.
type Registry struct {
	factory   remote.Factory
	forwarder Forwarder
	logger    *slog.Logger
	recorder  metrics.Recorder

	entries sync.Map // site name -> *entry
	size    atomic.Int64
}

// Option configures a Registry.
type Option func(*Registry)

func WithLogger(l *slog.Logger) Option       { return func(r *Registry) { r.logger = l } }
func WithRecorder(m metrics.Recorder) Option { return func(r *Registry) { r.recorder = m } }

// NewRegistry returns an empty registry building handles with factory and
// forwarding their events through forwarder.
func NewRegistry(factory remote.Factory, forwarder Forwarder, opts ...Option) *Registry {
	r := &Registry{
		factory:   factory,
		forwarder: forwarder,
		logger:    slog.Default(),
		recorder:  metrics.NoopRecorder{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// GetOrCreate returns the handles for id, creating them on first use and
// replacing the deployment pair when its deployment manager is no longer
// active. A failed lookup leaves the registry as it was.
func (r *Registry) GetOrCreate(ctx context.Context, id Identity) (*Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id.Name == "" {
		return nil, errors.ValidationError("site name is required").Build()
	}

	if v, ok := r.entries.Load(id.Name); ok {
		return r.hit(id, v.(*entry), metrics.LookupHit)
	}

	candidate, err := r.build(id)
	if err != nil {
		r.recorder.IncLookup(metrics.LookupFailed)
		return nil, err
	}

	// Hold the candidate's lock across publication so no lookup can replace
	// its pair before forwarding is attached.
	candidate.mu.Lock()
	v, loaded := r.entries.LoadOrStore(id.Name, candidate)
	if loaded {
		candidate.mu.Unlock()
		r.discard(id, candidate)
		return r.hit(id, v.(*entry), metrics.LookupRaceLost)
	}
	r.attach(id.Name, candidate.pair.Load())
	candidate.mu.Unlock()

	n := r.size.Add(1)
	r.recorder.SetCachedSites(int(n))
	r.recorder.IncLookup(metrics.LookupMiss)
	r.logger.Info("Site handles created",
		logfields.Site(id.Name), logfields.ServiceURL(id.ServiceURL))
	return bundleOf(id, candidate, candidate.pair.Load()), nil
}

func (r *Registry) hit(id Identity, e *entry, result metrics.LookupResult) (*Bundle, error) {
	if id.ServiceURL != e.serviceURL && e.urlMismatch.CompareAndSwap(false, true) {
		r.logger.Warn("Site looked up with a different service URL; handles stay bound to the original until restart",
			logfields.Site(id.Name), logfields.ServiceURL(e.serviceURL), slog.String("requested_service_url", id.ServiceURL))
	}
	p := e.pair.Load()
	if p.active() {
		r.recorder.IncLookup(result)
		return bundleOf(id, e, p), nil
	}

	p, replaced, err := r.replace(id.Name, e)
	if err != nil {
		r.recorder.IncLookup(metrics.LookupFailed)
		return nil, err
	}
	if replaced {
		result = metrics.LookupReplaced
	}
	r.recorder.IncLookup(result)
	return bundleOf(id, e, p), nil
}

// replace swaps in a fresh deployment pair unless another lookup already did.
// On failure the current pair stays installed so the next lookup retries.
func (r *Registry) replace(name string, e *entry) (*deployPair, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	old := e.pair.Load()
	if old.active() {
		return old, false, nil
	}

	log := r.logger.With(logfields.Site(name), logfields.ServiceURL(e.serviceURL))
	log.Info("Deployment manager inactive, rebuilding deployment pair")

	id := Identity{Name: name, ServiceURL: e.serviceURL}
	fresh, err := r.buildPair(id)
	if err != nil {
		log.Warn("Deployment pair rebuild failed, keeping previous pair", logfields.Error(err))
		return nil, false, err
	}

	r.attach(name, fresh)
	e.pair.Store(fresh)
	retire(old)
	closeHandles(log, old.deployment, old.command)
	return fresh, true, nil
}

func (r *Registry) attach(name string, p *deployPair) {
	p.attachments = []*bridge.Attachment{
		r.forwarder.AttachDeployment(name, p.deployment),
		r.forwarder.AttachCommand(name, p.command),
	}
}

func retire(p *deployPair) {
	for _, a := range p.attachments {
		if a != nil {
			a.Retire()
		}
	}
}

func (r *Registry) build(id Identity) (*entry, error) {
	repo, err := construct(r, id, "repository", RepositorySuffix, r.factory.NewRepository)
	if err != nil {
		return nil, err
	}
	fs, err := construct(r, id, "filesystem", FileSystemSuffix, r.factory.NewFileSystem)
	if err != nil {
		closeHandles(r.logger, repo)
		return nil, err
	}
	rm, err := construct(r, id, "repository_manager", RepositoryManagerSuffix, r.factory.NewRepositoryManager)
	if err != nil {
		closeHandles(r.logger, repo, fs)
		return nil, err
	}
	p, err := r.buildPair(id)
	if err != nil {
		closeHandles(r.logger, repo, fs, rm)
		return nil, err
	}

	e := &entry{
		serviceURL:        id.ServiceURL,
		repository:        repo,
		fileSystem:        fs,
		repositoryManager: rm,
	}
	e.pair.Store(p)
	return e, nil
}

func (r *Registry) buildPair(id Identity) (*deployPair, error) {
	dm, err := construct(r, id, "deployment_manager", DeploymentSuffix, r.factory.NewDeploymentManager)
	if err != nil {
		return nil, err
	}
	ce, err := construct(r, id, "command_executor", CommandSuffix, r.factory.NewCommandExecutor)
	if err != nil {
		closeHandles(r.logger, dm)
		return nil, err
	}
	return &deployPair{deployment: dm, command: ce}, nil
}

func construct[T any](r *Registry, id Identity, kind, suffix string, fn func(string) (T, error)) (T, error) {
	url := id.Endpoint(suffix)
	start := time.Now()
	h, err := fn(url)
	r.recorder.ObserveConstruction(kind, time.Since(start))
	if err != nil {
		var zero T
		return zero, errors.RemoteError("failed to construct site handle").
			WithCause(err).
			WithContext("site", id.Name).
			WithContext("handle", kind).
			WithContext("url", url).
			Build()
	}
	return h, nil
}

// discard releases a bundle that lost the insert race. It never had
// forwarding attached.
func (r *Registry) discard(id Identity, e *entry) {
	p := e.pair.Load()
	closeHandles(r.logger, e.repository, e.fileSystem, e.repositoryManager, p.deployment, p.command)
	r.logger.Debug("Discarded duplicate site handles", logfields.Site(id.Name))
}

func closeHandles(log *slog.Logger, handles ...any) {
	for _, h := range handles {
		c, ok := h.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			log.Debug("Closing handle failed", logfields.Error(err))
		}
	}
}

// Lookup returns the cached handles for name without creating or refreshing
// anything. The bundle carries the identity the entry was created with.
func (r *Registry) Lookup(name string) (*Bundle, bool) {
	v, ok := r.entries.Load(name)
	if !ok {
		return nil, false
	}
	e := v.(*entry)
	return bundleOf(Identity{Name: name, ServiceURL: e.serviceURL}, e, e.pair.Load()), true
}

// Sites returns the cached site names in sorted order.
func (r *Registry) Sites() []string {
	var names []string
	r.entries.Range(func(k, _ any) bool {
		names = append(names, k.(string))
		return true
	})
	sort.Strings(names)
	return names
}

// Close retires forwarding and closes every cached handle that holds a
// connection. The registry must not be used afterwards.
func (r *Registry) Close() {
	r.entries.Range(func(k, v any) bool {
		e := v.(*entry)
		e.mu.Lock()
		p := e.pair.Load()
		retire(p)
		closeHandles(r.logger, e.repository, e.fileSystem, e.repositoryManager, p.deployment, p.command)
		e.mu.Unlock()
		return true
	})
}

// Len returns the number of cached sites.
func (r *Registry) Len() int { return int(r.size.Load()) }

func bundleOf(id Identity, e *entry, p *deployPair) *Bundle {
	return &Bundle{
		id:                id,
		repository:        e.repository,
		fileSystem:        e.fileSystem,
		repositoryManager: e.repositoryManager,
		deployment:        p.deployment,
		command:           p.command,
	}
}
