package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	ferrors "git.home.luguber.info/inful/sitehub/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehub/internal/retry"
)

// jsonClient issues JSON requests relative to one handle's base URL.
type jsonClient struct {
	baseURL string
	http    *http.Client
	retry   retry.Policy
}

// ClientOption tunes the JSON client behind an HTTP handle.
type ClientOption func(*jsonClient)

// WithRetry retries idempotent reads that fail at the transport level.
func WithRetry(p retry.Policy) ClientOption {
	return func(c *jsonClient) { c.retry = p }
}

func newJSONClient(baseURL string, client *http.Client, opts ...ClientOption) jsonClient {
	c := jsonClient{baseURL: baseURL, http: client}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// url joins path segments onto the base URL with single slashes.
func (c jsonClient) url(segments ...string) string {
	u := strings.TrimRight(c.baseURL, "/")
	for _, s := range segments {
		u += "/" + strings.Trim(s, "/")
	}
	return u
}

func (c jsonClient) getJSON(ctx context.Context, url string, out any) error {
	return retry.Do(ctx, c.retry, func(ctx context.Context) error {
		return c.do(ctx, http.MethodGet, url, nil, out)
	})
}

func (c jsonClient) postJSON(ctx context.Context, url string, in, out any) error {
	return c.do(ctx, http.MethodPost, url, in, out)
}

func (c jsonClient) do(ctx context.Context, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryInternal, "encode request").Build()
		}
		body = bytes.NewReader(b)
	}
	resp, err := c.send(ctx, method, url, body, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRemote, "decode response").
			WithContext("url", url).
			Build()
	}
	return nil
}

// send performs the request and turns transport failures and non-2xx
// replies into classified errors. The caller owns the returned body.
func (c jsonClient) send(ctx context.Context, method, url string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryRemote, "build request").
			WithContext("url", url).
			Build()
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryNetwork, "site service request failed").
			Retryable().
			WithContext("method", method).
			WithContext("url", url).
			Build()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		b := ferrors.RemoteError("site service returned an error").
			WithContext("method", method).
			WithContext("url", url).
			WithContext("status", resp.StatusCode)
		if s := strings.TrimSpace(string(msg)); s != "" {
			b = b.WithContext("body", s)
		}
		if resp.StatusCode == http.StatusNotFound {
			b = ferrors.NotFoundError("site service resource not found").
				WithContext("url", url)
		}
		return nil, b.Build()
	}
	return resp, nil
}
