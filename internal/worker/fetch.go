package worker

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/lifelink-community/pushtray/internal/assets"
	"github.com/lifelink-community/pushtray/internal/logging"
)

// Response is a fetch result crossing the worker boundary.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Fetcher retrieves a URL from the network.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Response, error)
}

// HTTPFetcher is the http-backed Fetcher.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher. A nil client uses http.DefaultClient.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Response{}, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, err
	}
	return Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// FetchRequest describes a request routed through the worker.
type FetchRequest struct {
	Method string
	URL    string
	// Accept is the request's Accept header; HTML navigations advertise
	// text/html and fall back to the offline page instead of a bare 503.
	Accept string
}

// FetchResult is the worker's answer to a fetch.
type FetchResult struct {
	// Intercepted reports whether the worker answered the request. Cross-origin
	// and non-GET requests pass through untouched.
	Intercepted bool
	Response    Response
	// FromCache reports whether the response was served from the offline cache.
	FromCache bool
}

// HandleFetch applies the network-first strategy for same-origin GET requests:
// try the network, cache successful responses, and on network failure fall
// back to the cache, then to the offline page for HTML navigations or a 503
// for other resources.
func (reg *Registration) HandleFetch(ctx context.Context, req FetchRequest) FetchResult {
	if req.Method != "" && req.Method != http.MethodGet {
		return FetchResult{}
	}
	if !reg.sameOrigin(req.URL) {
		return FetchResult{}
	}

	resp, err := reg.opts.Fetcher.Fetch(ctx, req.URL)
	if err == nil {
		if resp.Status == 200 {
			reg.cache.Put(req.URL, resp)
		}
		return FetchResult{Intercepted: true, Response: resp}
	}

	logging.Debug("fetch fell back to cache", "url", req.URL, "error", err)
	if entry, ok := reg.cache.Get(req.URL); ok {
		return FetchResult{
			Intercepted: true,
			FromCache:   true,
			Response:    Response{Status: entry.Status, ContentType: entry.ContentType, Body: entry.Body},
		}
	}

	if isHTMLNavigation(req.Accept) {
		return FetchResult{
			Intercepted: true,
			FromCache:   true,
			Response: Response{
				Status:      200,
				ContentType: "text/html; charset=utf-8",
				Body:        assets.OfflinePage,
			},
		}
	}
	return FetchResult{
		Intercepted: true,
		Response:    Response{Status: http.StatusServiceUnavailable, ContentType: "text/plain; charset=utf-8", Body: []byte("offline")},
	}
}

// sameOrigin reports whether rawURL shares the configured origin. Relative
// URLs count as same-origin.
func (reg *Registration) sameOrigin(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Host == "" {
		return true
	}
	origin, err := url.Parse(reg.opts.Origin)
	if err != nil || origin.Host == "" {
		return false
	}
	return u.Scheme == origin.Scheme && u.Host == origin.Host
}

func isHTMLNavigation(accept string) bool {
	return strings.Contains(accept, "text/html")
}
