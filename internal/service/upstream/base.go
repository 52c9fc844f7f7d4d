package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	xhttp "ChartVerdict/pkg/http"
)

// HTTPServiceBase is the shared foundation for third-party HTTP clients:
// one base URL, one timeout, JSON in and out, bounded retries on transient failures.
type HTTPServiceBase struct {
	name    string
	baseURL string
	client  *xhttp.Client
	retries int
}

// Option configures HTTPServiceBase.
type Option func(*HTTPServiceBase)

// WithRetries sets the number of attempts for transient failures (min 1).
func WithRetries(n int) Option {
	return func(b *HTTPServiceBase) {
		if n > 0 {
			b.retries = n
		}
	}
}

// NewHTTPServiceBase builds a client for baseURL. name labels errors.
func NewHTTPServiceBase(name, baseURL string, timeout time.Duration, opts ...Option) *HTTPServiceBase {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	b := &HTTPServiceBase{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		retries: 1,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the provider label.
func (b *HTTPServiceBase) Name() string { return b.name }

// GetJSON issues GET baseURL+path?query and decodes JSON into dest.
func (b *HTTPServiceBase) GetJSON(ctx context.Context, path string, query url.Values, dest interface{}) error {
	return b.do(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         b.baseURL + path,
		QueryParams: query,
		Headers:     map[string]string{"Accept": "application/json"},
	}, dest)
}

// PostJSON posts payload as JSON and decodes the JSON response into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	return b.do(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     b.baseURL + path,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    payload,
	}, dest)
}

// PostBytes posts a raw body with contentType and decodes the JSON response into dest.
func (b *HTTPServiceBase) PostBytes(ctx context.Context, path, contentType string, body []byte, dest interface{}) error {
	return b.do(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     b.baseURL + path,
		Headers: map[string]string{"Content-Type": contentType},
		Body:    body,
	}, dest)
}

func (b *HTTPServiceBase) do(ctx context.Context, opts *xhttp.RequestOptions, dest interface{}) error {
	if b.baseURL == "" {
		return fmt.Errorf("%s: base url not configured", b.name)
	}
	var err error
	for attempt := 1; attempt <= b.retries; attempt++ {
		err = b.client.SendAndParse(ctx, opts, dest)
		if err == nil || !retryable(err) || attempt == b.retries {
			break
		}
		select {
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", b.name, ctx.Err())
		}
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", b.name, redact(opts), err)
	}
	return nil
}

// retryable reports 5xx and 429 responses and transport errors; 4xx are final.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Code >= http.StatusInternalServerError || se.Code == http.StatusTooManyRequests
	}
	return true
}

// redact renders the request path without query secrets.
func redact(opts *xhttp.RequestOptions) string {
	if u, err := url.Parse(opts.URL); err == nil {
		return opts.Method + " " + u.Path
	}
	return opts.Method
}
