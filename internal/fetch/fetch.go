// Package fetch is the network boundary: every upstream request made by the
// offline engine goes through a Fetcher.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"openbee/internal/cache"
)

// ErrTransport wraps every failed fetch. Get and GetEntry also report
// non-2xx responses with it.
var ErrTransport = errors.New("transport error")

// Fetcher performs one network request. Any response the server produced is
// returned, whatever its status; the caller must close its body.
type Fetcher interface {
	Fetch(ctx context.Context, req *http.Request) (*http.Response, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, req *http.Request) (*http.Response, error)

func (f FetcherFunc) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	return f(ctx, req)
}

// Client fetches with an http.Client.
type Client struct {
	HTTP *http.Client
}

// NewClient returns a Client whose requests time out after timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{Timeout: timeout}}
}

func (c *Client) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	out := req.Clone(ctx)
	out.RequestURI = ""
	resp, err := c.HTTP.Do(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, req.Method, req.URL, err)
	}
	return resp, nil
}

// OK reports whether status is a 2xx code.
func OK(status int) bool {
	return status >= 200 && status <= 299
}

// Get fetches rawURL with a GET request and fails on a non-2xx response.
func Get(ctx context.Context, f Fetcher, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if !OK(resp.StatusCode) {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: GET %s: %s", ErrTransport, rawURL, resp.Status)
	}
	return resp, nil
}

// ToEntry drains and closes resp into a cache entry.
func ToEntry(resp *http.Response) (*cache.Entry, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}
	return &cache.Entry{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
	}, nil
}

// GetEntry fetches rawURL and returns it as an entry.
func GetEntry(ctx context.Context, f Fetcher, rawURL string) (*cache.Entry, error) {
	resp, err := Get(ctx, f, rawURL)
	if err != nil {
		return nil, err
	}
	return ToEntry(resp)
}
