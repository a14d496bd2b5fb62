package site

import (
	"sort"
	"sync"
)

// Directory is the set of known sites, keyed by name. It resolves request
// paths to identities and feeds warm-up; it is replaced wholesale on config
// reload and never touches the registry.
type Directory struct {
	mu    sync.RWMutex
	sites map[string]Identity
}

// NewDirectory returns a directory holding ids. Later duplicates win.
func NewDirectory(ids ...Identity) *Directory {
	d := &Directory{}
	d.Replace(ids)
	return d
}

// Replace swaps the whole site set.
func (d *Directory) Replace(ids []Identity) {
	m := make(map[string]Identity, len(ids))
	for _, id := range ids {
		m[id.Name] = id
	}
	d.mu.Lock()
	d.sites = m
	d.mu.Unlock()
}

// Get returns the identity registered under name.
func (d *Directory) Get(name string) (Identity, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.sites[name]
	return id, ok
}

// List returns every identity sorted by name.
func (d *Directory) List() []Identity {
	d.mu.RLock()
	ids := make([]Identity, 0, len(d.sites))
	for _, id := range d.sites {
		ids = append(ids, id)
	}
	d.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i].Name < ids[j].Name })
	return ids
}
