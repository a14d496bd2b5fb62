package remote

import (
	"context"
	"net/http"
)

type httpRepositoryManager struct {
	c jsonClient
}

// NewHTTPRepositoryManager returns a RepositoryManager talking to baseURL.
func NewHTTPRepositoryManager(baseURL string, client *http.Client, opts ...ClientOption) RepositoryManager {
	return &httpRepositoryManager{c: newJSONClient(baseURL, client, opts...)}
}

func (m *httpRepositoryManager) RepositoryType(ctx context.Context) (RepositoryType, error) {
	var out struct {
		Type RepositoryType `json:"type"`
	}
	if err := m.c.getJSON(ctx, m.c.url("kind"), &out); err != nil {
		return RepositoryNone, err
	}
	if out.Type == "" {
		return RepositoryNone, nil
	}
	return out.Type, nil
}

func (m *httpRepositoryManager) CreateRepository(ctx context.Context, kind RepositoryType) error {
	return m.c.postJSON(ctx, m.c.url("create"), map[string]RepositoryType{"type": kind}, nil)
}

func (m *httpRepositoryManager) Delete(ctx context.Context) error {
	return m.c.do(ctx, http.MethodDelete, m.c.url(), nil, nil)
}
