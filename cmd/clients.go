package main

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/prospector/internal/resilience"
	"github.com/sells-group/prospector/pkg/firecrawl"
	"github.com/sells-group/prospector/pkg/places"
)

// retryingPlaces wraps the raw-source client with exponential-backoff
// retries. The pipeline core never retries; transient upstream hiccups are
// absorbed here.
type retryingPlaces struct {
	inner places.Client
	cfg   resilience.RetryConfig
}

func newRetryingPlaces(inner places.Client) *retryingPlaces {
	cfg := resilience.DefaultRetryConfig()
	cfg.ShouldRetry = retryableStatusError
	cfg.OnRetry = func(attempt int, err error) {
		zap.L().Warn("places call retrying",
			zap.Int("attempt", attempt), zap.Error(err))
	}
	return &retryingPlaces{inner: inner, cfg: cfg}
}

func (r *retryingPlaces) TextSearch(ctx context.Context, query string, maxResults int) (*places.TextSearchResponse, error) {
	return resilience.DoVal(ctx, r.cfg, func(ctx context.Context) (*places.TextSearchResponse, error) {
		return r.inner.TextSearch(ctx, query, maxResults)
	})
}

// retryableStatusError extends the transient check to the status codes the
// HTTP clients surface in their error text.
func retryableStatusError(err error) bool {
	if resilience.IsTransient(err) {
		return true
	}
	msg := err.Error()
	for _, code := range []string{"status 408", "status 429", "status 500", "status 502", "status 503", "status 504"} {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}

// guardedFirecrawl runs the paid rendering tier behind a circuit breaker so
// an outage stops costing credits after a few consecutive failures.
type guardedFirecrawl struct {
	inner firecrawl.Client
	cb    *resilience.CircuitBreaker
}

func newGuardedFirecrawl(inner firecrawl.Client) *guardedFirecrawl {
	cbCfg := resilience.DefaultCircuitBreakerConfig()
	cbCfg.ShouldTrip = firecrawlShouldTrip
	cbCfg.OnStateChange = func(from, to resilience.CircuitState) {
		zap.L().Warn("firecrawl circuit state changed",
			zap.Stringer("from", from), zap.Stringer("to", to))
	}
	return &guardedFirecrawl{inner: inner, cb: resilience.NewCircuitBreaker(cbCfg)}
}

func (g *guardedFirecrawl) Scrape(ctx context.Context, req firecrawl.ScrapeRequest) (*firecrawl.ScrapeResponse, error) {
	var resp *firecrawl.ScrapeResponse
	err := g.cb.Execute(ctx, func(ctx context.Context) error {
		var callErr error
		resp, callErr = g.inner.Scrape(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func firecrawlShouldTrip(err error) bool {
	var apiErr *firecrawl.APIError
	if errors.As(err, &apiErr) {
		return resilience.IsTransientHTTPStatus(apiErr.StatusCode)
	}
	return resilience.IsTransient(err)
}
