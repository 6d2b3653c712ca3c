package lookanalyst

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lookanalyst/lookanalyst/metrics"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// RequestKind selects the header profile of a fetch
type RequestKind int

const (
	KindDocument RequestKind = iota // top-level page navigation
	KindImage                       // image subresource
	KindProxy                       // request to a retrieval proxy
)

func (k RequestKind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindImage:
		return "image"
	case KindProxy:
		return "proxy"
	default:
		return "unknown"
	}
}

// Response is an accepted (2xx-3xx) response whose body is still streaming.
// Closing Body releases the request and its timeout.
type Response struct {
	URL         string // final URL after redirects
	StatusCode  int
	ContentType string
	Body        io.ReadCloser
}

// Fetcher performs browser-like GET requests
type Fetcher struct {
	httpClient *http.Client
	policies   Policies
}

// NewFetcher creates a Fetcher that follows at most maxRedirects redirects.
// Per-request timeouts are passed to Fetch; the client itself has none so
// that streamed bodies are bounded by the caller's deadline only.
func NewFetcher(maxRedirects int, policies Policies) *Fetcher {
	return newFetcher(maxRedirects, policies, http.DefaultTransport)
}

// newFetcher builds the client over base, which is always wrapped by otelhttp
func newFetcher(maxRedirects int, policies Policies, base http.RoundTripper) *Fetcher {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Fetcher{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(base),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		policies: policies,
	}
}

// Fetch issues a GET for rawURL. Any final status in [200, 400) is accepted;
// everything else, including timeouts and connection failures, is a *NetworkError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, kind RequestKind, timeout time.Duration) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = f.headersFor(u, kind)

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	metrics.FetchDuration.WithLabelValues(kind.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		cancel()
		metrics.FetchesTotal.WithLabelValues(kind.String(), "failure").Inc()
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %v: %w", timeout, err)
		}
		return nil, &NetworkError{URL: rawURL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		resp.Body.Close()
		cancel()
		metrics.FetchesTotal.WithLabelValues(kind.String(), "failure").Inc()
		slog.DebugContext(ctx, "fetch rejected", "url", rawURL, "kind", kind.String(), "status", resp.StatusCode)
		return nil, &NetworkError{URL: rawURL, StatusCode: resp.StatusCode, Err: errors.New(resp.Status)}
	}

	metrics.FetchesTotal.WithLabelValues(kind.String(), "success").Inc()

	return &Response{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        &cancelOnClose{ReadCloser: resp.Body, cancel: cancel},
	}, nil
}

// headersFor builds the header set for a request of the given kind to u
func (f *Fetcher) headersFor(u *url.URL, kind RequestKind) http.Header {
	h := http.Header{}
	h.Set("User-Agent", browserUserAgent)

	switch kind {
	case KindDocument:
		h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7")
		h.Set("Accept-Language", "en-US,en;q=0.9")
		h.Set("DNT", "1")
		h.Set("Upgrade-Insecure-Requests", "1")
		h.Set("Sec-Fetch-Dest", "document")
		h.Set("Sec-Fetch-Mode", "navigate")
		h.Set("Sec-Fetch-Site", "none")
		h.Set("Sec-Fetch-User", "?1")
		h.Set("Cache-Control", "max-age=0")
		h.Set("Sec-Ch-Ua", `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`)
		h.Set("Sec-Ch-Ua-Mobile", "?0")
		h.Set("Sec-Ch-Ua-Platform", `"Windows"`)
	case KindImage:
		h.Set("Accept", "image/webp,image/apng,image/svg+xml,image/*,*/*;q=0.8")
		h.Set("Accept-Language", "en-US,en;q=0.9,es;q=0.8")
		h.Set("DNT", "1")
		h.Set("Sec-Fetch-Dest", "image")
		h.Set("Sec-Fetch-Mode", "no-cors")
		h.Set("Sec-Fetch-Site", "cross-site")
		h.Set("Cache-Control", "no-cache")
		h.Set("Pragma", "no-cache")
	case KindProxy:
		return h
	}

	if policy, ok := f.policies.Match(u.Hostname()); ok {
		if policy.Referer != "" {
			h.Set("Referer", policy.Referer)
		}
		if policy.Origin != "" {
			h.Set("Origin", policy.Origin)
		}
	}

	return h
}

// cancelOnClose ties a request's context to the lifetime of its body
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
