package lookanalyst

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lookanalyst/lookanalyst/metrics"
)

// fallbackPolicy returns the policy whose proxy should be tried after err, if any.
// Only a 403 from a host covered by a policy with a proxy qualifies.
func (ps Policies) fallbackPolicy(rawURL string, err error) (*HostPolicy, bool) {
	var netErr *NetworkError
	if !errors.As(err, &netErr) || netErr.StatusCode != http.StatusForbidden {
		return nil, false
	}
	policy, ok := ps.MatchURL(rawURL)
	if !ok || policy.ProxyURL == "" {
		return nil, false
	}
	return policy, true
}

// fetchWithFallback fetches rawURL directly and, when the origin denies the
// request, retries once through the host family's retrieval proxy.
// The second return value reports whether the proxy served the response.
func (p *Pipeline) fetchWithFallback(ctx context.Context, rawURL string, kind RequestKind, timeout time.Duration) (*Response, bool, error) {
	resp, err := p.fetcher.Fetch(ctx, rawURL, kind, timeout)
	if err == nil {
		return resp, false, nil
	}

	policy, ok := p.config.Policies.fallbackPolicy(rawURL, err)
	if !ok {
		return nil, false, err
	}

	proxyURL, buildErr := policy.ProxyRequestURL(rawURL)
	if buildErr != nil {
		metrics.ProxyFallbacksTotal.WithLabelValues(policy.Family, "failure").Inc()
		return nil, false, &ProxyError{URL: rawURL, ProxyURL: policy.ProxyURL, Cause: err, ProxyErr: buildErr}
	}

	slog.InfoContext(ctx, "direct fetch denied, retrying through proxy",
		"url", rawURL,
		"family", policy.Family,
		"proxy", policy.ProxyURL,
	)

	proxyTimeout := policy.ProxyTimeout
	if proxyTimeout <= 0 {
		proxyTimeout = DefaultProxyTimeout
	}

	resp, proxyErr := p.fetcher.Fetch(ctx, proxyURL, KindProxy, proxyTimeout)
	if proxyErr != nil {
		metrics.ProxyFallbacksTotal.WithLabelValues(policy.Family, "failure").Inc()
		return nil, false, &ProxyError{URL: rawURL, ProxyURL: proxyURL, Cause: err, ProxyErr: proxyErr}
	}

	metrics.ProxyFallbacksTotal.WithLabelValues(policy.Family, "success").Inc()
	return resp, true, nil
}
