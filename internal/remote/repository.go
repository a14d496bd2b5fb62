package remote

import (
	"context"
	"net/http"
	"strconv"
)

type httpRepository struct {
	c jsonClient
}

// NewHTTPRepository returns a Repository talking to baseURL.
func NewHTTPRepository(baseURL string, client *http.Client, opts ...ClientOption) Repository {
	return &httpRepository{c: newJSONClient(baseURL, client, opts...)}
}

func (r *httpRepository) CurrentID(ctx context.Context) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := r.c.getJSON(ctx, r.c.url("id"), &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (r *httpRepository) Branches(ctx context.Context) ([]Branch, error) {
	var out []Branch
	err := r.c.getJSON(ctx, r.c.url("branches"), &out)
	return out, err
}

func (r *httpRepository) Status(ctx context.Context) ([]FileStatus, error) {
	var out []FileStatus
	err := r.c.getJSON(ctx, r.c.url("status"), &out)
	return out, err
}

func (r *httpRepository) Changes(ctx context.Context, limit int) ([]ChangeSet, error) {
	u := r.c.url("log")
	if limit > 0 {
		u += "?limit=" + strconv.Itoa(limit)
	}
	var out []ChangeSet
	err := r.c.getJSON(ctx, u, &out)
	return out, err
}
