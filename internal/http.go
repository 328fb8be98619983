package internal

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// HeaderTransport is a custom RoundTripper that adds default headers to requests
type HeaderTransport struct {
	Base    http.RoundTripper
	Headers http.Header
}

func (t *HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request.
	req = req.Clone(req.Context())
	for key, values := range t.Headers {
		req.Header.Del(key)
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// HTTPClientConfig describes the client used to reach a model endpoint.
type HTTPClientConfig struct {
	Timeout time.Duration
	Headers http.Header
	Logger  *slog.Logger
}

// NewHTTPClient returns a client that sends every request once, with the
// configured headers and timeout. Non-2xx responses are returned to the
// caller rather than turned into errors.
func NewHTTPClient(cfg HTTPClientConfig) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.CheckRetry = noRetry
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.Logger = nil
	if cfg.Logger != nil {
		retryClient.Logger = cfg.Logger
	}
	if len(cfg.Headers) > 0 {
		retryClient.HTTPClient.Transport = &HeaderTransport{
			Base:    retryClient.HTTPClient.Transport,
			Headers: cfg.Headers,
		}
	}
	return retryClient.StandardClient()
}

// noRetry hands every response back as-is, including 429 and 5xx, so the
// caller can decode the error body.
func noRetry(ctx context.Context, _ *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return false, err
}
