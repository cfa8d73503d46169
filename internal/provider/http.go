package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"
)

// httpSource bundles the outbound plumbing shared by all HTTP adapters:
// a client without its own timeout (the executor owns deadlines via ctx)
// and a per-adapter rate limiter.
type httpSource struct {
	client  *http.Client
	limiter *rate.Limiter
}

func newHTTPSource(ratePerSec float64) httpSource {
	limit := rate.Inf
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
	}
	return httpSource{
		client:  &http.Client{Transport: http.DefaultTransport},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// getJSON performs a rate-limited GET and returns the response body.
// Non-2xx responses become errors carrying the status code and a body
// snippet so executor status refinement can classify 402/429.
func (h httpSource) getJSON(ctx context.Context, baseURL string, params url.Values) ([]byte, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Snippet: snippet(body, 120)}
	}
	return body, nil
}

// StatusError is a non-2xx provider response.
type StatusError struct {
	Code    int
	Snippet string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Snippet)
}

func snippet(body []byte, n int) string {
	if len(body) > n {
		body = body[:n]
	}
	return string(body)
}
