package remote

import (
	"context"
	"io"
	"net/http"
	"strings"

	ferrors "git.home.luguber.info/inful/sitehub/internal/foundation/errors"
)

type httpFileSystem struct {
	c jsonClient
}

// NewHTTPFileSystem returns a FileSystem talking to baseURL.
func NewHTTPFileSystem(baseURL string, client *http.Client, opts ...ClientOption) FileSystem {
	return &httpFileSystem{c: newJSONClient(baseURL, client, opts...)}
}

func (f *httpFileSystem) Project(ctx context.Context) (*Project, error) {
	var out Project
	if err := f.c.getJSON(ctx, f.c.url(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (f *httpFileSystem) ReadFile(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", ferrors.ValidationError("file path is required").Build()
	}
	resp, err := f.c.send(ctx, http.MethodGet, f.c.url(path), nil, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryNetwork, "read file body").
			WithContext("path", path).
			Build()
	}
	return string(b), nil
}

func (f *httpFileSystem) WriteFile(ctx context.Context, path, content string) error {
	if path == "" {
		return ferrors.ValidationError("file path is required").Build()
	}
	resp, err := f.c.send(ctx, http.MethodPut, f.c.url(path), strings.NewReader(content), "text/plain; charset=utf-8")
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}
