package site_test

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitehub/internal/bridge"
	"git.home.luguber.info/inful/sitehub/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehub/internal/remote"
	"git.home.luguber.info/inful/sitehub/internal/remote/remotetest"
	"git.home.luguber.info/inful/sitehub/internal/site"
)

type broadcast struct {
	Channel bridge.Channel
	Signal  string
	Payload any
}

type memorySink struct {
	mu  sync.Mutex
	got []broadcast
}

func (s *memorySink) Broadcast(channel bridge.Channel, signal string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, broadcast{Channel: channel, Signal: signal, Payload: payload})
	return nil
}

func (s *memorySink) messages() []broadcast {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]broadcast(nil), s.got...)
}

func newRegistry(t *testing.T) (*site.Registry, *remotetest.Factory, *memorySink) {
	t.Helper()
	factory := remotetest.NewFactory()
	sink := &memorySink{}
	return site.NewRegistry(factory, bridge.New(sink)), factory, sink
}

var alpha = site.Identity{Name: "alpha", ServiceURL: "http://alpha.local/", SiteURL: "http://alpha.example"}

func allKinds() []remotetest.Kind {
	return []remotetest.Kind{
		remotetest.KindRepository,
		remotetest.KindFileSystem,
		remotetest.KindDeploymentManager,
		remotetest.KindRepositoryManager,
		remotetest.KindCommandExecutor,
	}
}

func TestGetOrCreate_BindsHandlesToSuffixedURLs(t *testing.T) {
	reg, factory, _ := newRegistry(t)

	b, err := reg.GetOrCreate(t.Context(), alpha)
	require.NoError(t, err)

	assert.Equal(t, []string{"http://alpha.local/scm"}, factory.URLs(remotetest.KindRepository))
	assert.Equal(t, []string{"http://alpha.local/files"}, factory.URLs(remotetest.KindFileSystem))
	assert.Equal(t, []string{"http://alpha.local/deploy"}, factory.URLs(remotetest.KindDeploymentManager))
	assert.Equal(t, []string{"http://alpha.local/scm"}, factory.URLs(remotetest.KindRepositoryManager))
	assert.Equal(t, []string{"http://alpha.local/command"}, factory.URLs(remotetest.KindCommandExecutor))

	assert.Equal(t, "alpha", b.Name())
	assert.Equal(t, alpha.ServiceURL, b.ServiceURL())
	assert.Equal(t, alpha.SiteURL, b.SiteURL())
	assert.NotNil(t, b.Repository())
	assert.NotNil(t, b.FileSystem())
	assert.NotNil(t, b.RepositoryManager())
	assert.NotNil(t, b.CommandExecutor())
	assert.True(t, b.DeploymentManager().IsActive())
}

func TestGetOrCreate_SuffixAppendedVerbatim(t *testing.T) {
	reg, factory, _ := newRegistry(t)

	_, err := reg.GetOrCreate(t.Context(), site.Identity{Name: "bare", ServiceURL: "http://bare.local"})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://bare.localdeploy"}, factory.URLs(remotetest.KindDeploymentManager))
}

func TestGetOrCreate_ReusesWhileActive(t *testing.T) {
	reg, factory, _ := newRegistry(t)

	first, err := reg.GetOrCreate(t.Context(), alpha)
	require.NoError(t, err)
	second, err := reg.GetOrCreate(t.Context(), alpha)
	require.NoError(t, err)

	assert.Same(t, first.Repository(), second.Repository())
	assert.Same(t, first.FileSystem(), second.FileSystem())
	assert.Same(t, first.RepositoryManager(), second.RepositoryManager())
	assert.Same(t, first.Deployments(), second.Deployments())
	assert.Same(t, first.CommandExecutor(), second.CommandExecutor())

	for _, kind := range allKinds() {
		assert.Equal(t, 1, factory.Count(kind), kind)
	}
	require.Len(t, factory.Deployments(), 1)
	assert.Equal(t, 1, factory.Deployments()[0].Observers(), "reuse must not re-subscribe")
	assert.Equal(t, 1, factory.Commands()[0].Observers(), "reuse must not re-subscribe")
}

func TestGetOrCreate_ReplacesInactivePairTogether(t *testing.T) {
	reg, factory, sink := newRegistry(t)

	first, err := reg.GetOrCreate(t.Context(), alpha)
	require.NoError(t, err)
	oldDM := factory.Deployments()[0]
	oldCE := factory.Commands()[0]
	oldDM.SetActive(false)

	second, err := reg.GetOrCreate(t.Context(), alpha)
	require.NoError(t, err)

	assert.Same(t, first.Repository(), second.Repository())
	assert.Same(t, first.FileSystem(), second.FileSystem())
	assert.Same(t, first.RepositoryManager(), second.RepositoryManager())
	assert.NotSame(t, first.Deployments(), second.Deployments())
	assert.NotSame(t, first.CommandExecutor(), second.CommandExecutor())
	assert.True(t, second.DeploymentManager().IsActive())

	assert.Equal(t, 1, factory.Count(remotetest.KindRepository))
	assert.Equal(t, 1, factory.Count(remotetest.KindFileSystem))
	assert.Equal(t, 1, factory.Count(remotetest.KindRepositoryManager))
	assert.Equal(t, 2, factory.Count(remotetest.KindDeploymentManager))
	assert.Equal(t, 2, factory.Count(remotetest.KindCommandExecutor))
	assert.True(t, oldCE.Closed())

	newDM := factory.Deployments()[1]
	newCE := factory.Commands()[1]
	assert.Equal(t, 1, newDM.Observers())
	assert.Equal(t, 1, newCE.Observers())

	oldDM.Emit(remote.DeployResult{ID: "stale"})
	oldCE.Emit(remote.CommandEvent{EventType: remote.CommandData, Data: "stale"})
	assert.Empty(t, sink.messages(), "replaced pair must not reach the sink")

	newDM.Emit(remote.DeployResult{ID: "fresh", Status: remote.DeploySuccess})
	msgs := sink.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, bridge.SourceControl, msgs[0].Channel)
	assert.Equal(t, bridge.SignalUpdateDeployStatus, msgs[0].Signal)
	view, ok := msgs[0].Payload.(bridge.DeployResultView)
	require.True(t, ok)
	assert.Equal(t, "fresh", view.ID)
}

func TestGetOrCreate_ForwardsCommandEvents(t *testing.T) {
	reg, factory, sink := newRegistry(t)

	_, err := reg.GetOrCreate(t.Context(), alpha)
	require.NoError(t, err)
	ce := factory.Commands()[0]

	ce.Emit(remote.CommandEvent{EventType: remote.CommandData, Data: "building..."})
	ce.Emit(remote.CommandEvent{EventType: remote.CommandComplete})

	assert.Equal(t, []broadcast{
		{Channel: bridge.CommandLine, Signal: bridge.SignalData, Payload: "building..."},
		{Channel: bridge.CommandLine, Signal: bridge.SignalDone},
	}, sink.messages())
}

func TestGetOrCreate_ConcurrentCallersShareOneEntry(t *testing.T) {
	reg, factory, sink := newRegistry(t)

	const callers = 32
	bundles := make([]*site.Bundle, callers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			b, err := reg.GetOrCreate(context.Background(), alpha)
			assert.NoError(t, err)
			bundles[i] = b
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, 1, reg.Len())
	for _, b := range bundles[1:] {
		require.NotNil(t, b)
		assert.Same(t, bundles[0].Repository(), b.Repository())
		assert.Same(t, bundles[0].Deployments(), b.Deployments())
		assert.Same(t, bundles[0].CommandExecutor(), b.CommandExecutor())
	}

	attached := 0
	for _, dm := range factory.Deployments() {
		attached += dm.Observers()
	}
	assert.Equal(t, 1, attached, "only the cached deployment manager forwards")

	attached = 0
	for _, ce := range factory.Commands() {
		attached += ce.Observers()
	}
	assert.Equal(t, 1, attached, "only the cached command executor forwards")

	cached, ok := bundles[0].Deployments().(*remotetest.DeploymentManager)
	require.True(t, ok)
	cached.Emit(remote.DeployResult{ID: "once"})
	assert.Len(t, sink.messages(), 1)
}

func TestGetOrCreate_ConcurrentReplacementBuildsOnePair(t *testing.T) {
	reg, factory, _ := newRegistry(t)

	_, err := reg.GetOrCreate(t.Context(), alpha)
	require.NoError(t, err)
	factory.Deployments()[0].SetActive(false)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.GetOrCreate(context.Background(), alpha)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, factory.Count(remotetest.KindDeploymentManager))
	assert.Equal(t, 2, factory.Count(remotetest.KindCommandExecutor))
}

func TestGetOrCreate_ConstructionFailureCachesNothing(t *testing.T) {
	reg, factory, _ := newRegistry(t)
	cause := stderrors.New("connection refused")
	factory.Fail(remotetest.KindCommandExecutor, cause)

	b, err := reg.GetOrCreate(t.Context(), alpha)
	require.Error(t, err)
	assert.Nil(t, b)
	assert.ErrorIs(t, err, cause)
	assert.True(t, errors.HasCategory(err, errors.CategoryRemote))
	assert.Equal(t, 0, reg.Len())
	assert.Empty(t, reg.Sites())
	_, ok := reg.Lookup("alpha")
	assert.False(t, ok)

	factory.Fail(remotetest.KindCommandExecutor, nil)
	b, err = reg.GetOrCreate(t.Context(), alpha)
	require.NoError(t, err)
	assert.NotNil(t, b)
	assert.Equal(t, []string{"alpha"}, reg.Sites())
}

func TestGetOrCreate_ReplacementFailureKeepsOldPair(t *testing.T) {
	reg, factory, _ := newRegistry(t)

	first, err := reg.GetOrCreate(t.Context(), alpha)
	require.NoError(t, err)
	factory.Deployments()[0].SetActive(false)

	factory.Fail(remotetest.KindCommandExecutor, stderrors.New("unavailable"))
	_, err = reg.GetOrCreate(t.Context(), alpha)
	require.Error(t, err)

	cached, ok := reg.Lookup("alpha")
	require.True(t, ok)
	assert.Same(t, first.Deployments(), cached.Deployments())
	assert.Same(t, first.CommandExecutor(), cached.CommandExecutor())

	factory.Fail(remotetest.KindCommandExecutor, nil)
	retried, err := reg.GetOrCreate(t.Context(), alpha)
	require.NoError(t, err)
	assert.NotSame(t, first.Deployments(), retried.Deployments())
	assert.Same(t, first.Repository(), retried.Repository())
}

func TestGetOrCreate_BundleCarriesCallerIdentity(t *testing.T) {
	reg, factory, _ := newRegistry(t)

	_, err := reg.GetOrCreate(t.Context(), alpha)
	require.NoError(t, err)

	other := site.Identity{Name: "alpha", ServiceURL: "http://moved.local/", SiteURL: "http://moved.example"}
	b, err := reg.GetOrCreate(t.Context(), other)
	require.NoError(t, err)
	assert.Equal(t, other.ServiceURL, b.ServiceURL())
	assert.Equal(t, other.SiteURL, b.SiteURL())
	assert.Equal(t, 1, factory.Count(remotetest.KindRepository))
}

func TestGetOrCreate_WarnsOnceWhenServiceURLDiffers(t *testing.T) {
	factory := remotetest.NewFactory()
	var logs bytes.Buffer
	reg := site.NewRegistry(factory, bridge.New(&memorySink{}),
		site.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	_, err := reg.GetOrCreate(t.Context(), site.Identity{Name: "a", ServiceURL: "http://old/"})
	require.NoError(t, err)
	moved := site.Identity{Name: "a", ServiceURL: "http://new/"}
	_, err = reg.GetOrCreate(t.Context(), moved)
	require.NoError(t, err)

	factory.Deployments()[0].SetActive(false)
	_, err = reg.GetOrCreate(t.Context(), moved)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(logs.String(), "requested_service_url=http://new/"))
	assert.Equal(t, "http://old/deploy", factory.Deployments()[1].BaseURL)
	cached, ok := reg.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "http://old/", cached.ServiceURL())
}

func TestGetOrCreate_RejectsInvalidInput(t *testing.T) {
	reg, factory, _ := newRegistry(t)

	_, err := reg.GetOrCreate(t.Context(), site.Identity{ServiceURL: "http://x/"})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err = reg.GetOrCreate(ctx, alpha)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, factory.Count(remotetest.KindRepository))
}

func TestSites_SortedAndCounted(t *testing.T) {
	reg, _, _ := newRegistry(t)
	for _, name := range []string{"charlie", "alpha", "bravo"} {
		_, err := reg.GetOrCreate(t.Context(), site.Identity{Name: name, ServiceURL: "http://" + name + "/"})
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, reg.Sites())
	assert.Equal(t, 3, reg.Len())
}

func TestClose_RetiresForwarding(t *testing.T) {
	reg, factory, sink := newRegistry(t)
	_, err := reg.GetOrCreate(t.Context(), alpha)
	require.NoError(t, err)

	reg.Close()
	assert.True(t, factory.Commands()[0].Closed())
	factory.Commands()[0].Emit(remote.CommandEvent{EventType: remote.CommandComplete})
	assert.Empty(t, sink.messages())
}
