package daemon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitehub/internal/bridge"
	"git.home.luguber.info/inful/sitehub/internal/config"
	"git.home.luguber.info/inful/sitehub/internal/remote/remotetest"
	"git.home.luguber.info/inful/sitehub/internal/site"
)

type recordingLookup struct {
	mu    sync.Mutex
	names []string
	fail  map[string]error
}

func (r *recordingLookup) GetOrCreate(_ context.Context, id site.Identity) (*site.Bundle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, id.Name)
	if err := r.fail[id.Name]; err != nil {
		return nil, err
	}
	return nil, nil
}

func (r *recordingLookup) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func TestWarmer_WarmAllContinuesPastFailures(t *testing.T) {
	boom := errors.New("unreachable")
	lookup := &recordingLookup{fail: map[string]error{"b": boom}}
	w := NewWarmer(lookup, site.NewDirectory(site.Identity{Name: "a"}, site.Identity{Name: "b"}, site.Identity{Name: "c"}), time.Second, nil)

	warmed, err := w.WarmAll(t.Context())
	assert.Equal(t, 2, warmed)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "b", "c"}, lookup.calls())
}

func TestWarmer_ReplacesDeadDeploymentPair(t *testing.T) {
	factory := remotetest.NewFactory()
	reg := site.NewRegistry(factory, bridge.New(bridge.SinkFunc(func(bridge.Channel, string, any) error { return nil })))
	dir := site.NewDirectory(Identities([]config.Site{{Name: "alpha", ServiceURL: "http://alpha/"}})...)
	w := NewWarmer(reg, dir, time.Second, nil)

	_, err := w.WarmAll(t.Context())
	require.NoError(t, err)
	require.Len(t, factory.Deployments(), 1)

	factory.Deployments()[0].SetActive(false)
	_, err = w.WarmAll(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 2, factory.Count(remotetest.KindDeploymentManager))
	assert.Equal(t, 1, factory.Count(remotetest.KindRepository))
	assert.Equal(t, 1, factory.Deployments()[1].Observers())
}

func TestWarmer_Schedule(t *testing.T) {
	lookup := &recordingLookup{}
	w := NewWarmer(lookup, site.NewDirectory(site.Identity{Name: "a"}), 0, nil)
	w.Run(t.Context())

	s, err := NewScheduler(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	_, err = w.Schedule(s, 20*time.Millisecond)
	require.NoError(t, err)
	s.Start(t.Context())

	require.Eventually(t, func() bool { return len(lookup.calls()) >= 2 }, 2*time.Second, 5*time.Millisecond)
}
