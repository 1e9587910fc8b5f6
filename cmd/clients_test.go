package main

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospector/internal/resilience"
	"github.com/sells-group/prospector/pkg/firecrawl"
	"github.com/sells-group/prospector/pkg/places"
)

type flakyPlaces struct {
	failures int
	calls    int
}

func (f *flakyPlaces) TextSearch(context.Context, string, int) (*places.TextSearchResponse, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, eris.New("places: unexpected status 503: overloaded")
	}
	return &places.TextSearchResponse{}, nil
}

func TestRetryingPlacesRetriesTransientStatus(t *testing.T) {
	inner := &flakyPlaces{failures: 2}
	client := newRetryingPlaces(inner)
	client.cfg.InitialBackoff = time.Millisecond
	client.cfg.MaxBackoff = time.Millisecond

	resp, err := client.TextSearch(context.Background(), "restaurante en Palermo", 20)
	require.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingPlacesGivesUpOnClientError(t *testing.T) {
	inner := &flakyPlaces{failures: 10}
	client := newRetryingPlaces(inner)
	client.cfg.InitialBackoff = time.Millisecond
	client.cfg.ShouldRetry = func(error) bool { return false }

	_, err := client.TextSearch(context.Background(), "restaurante", 20)
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestRetryableStatusError(t *testing.T) {
	assert.True(t, retryableStatusError(eris.New("places: unexpected status 429: slow down")))
	assert.True(t, retryableStatusError(eris.New("jina: unexpected status 502")))
	assert.False(t, retryableStatusError(eris.New("places: unexpected status 403: forbidden")))
	assert.False(t, retryableStatusError(eris.New("invalid request")))
}

type failingFirecrawl struct {
	calls int
}

func (f *failingFirecrawl) Scrape(context.Context, firecrawl.ScrapeRequest) (*firecrawl.ScrapeResponse, error) {
	f.calls++
	return nil, &firecrawl.APIError{StatusCode: 503, Message: "upstream down"}
}

func TestGuardedFirecrawlOpensCircuit(t *testing.T) {
	inner := &failingFirecrawl{}
	client := newGuardedFirecrawl(inner)

	for i := 0; i < 5; i++ {
		_, err := client.Scrape(context.Background(), firecrawl.ScrapeRequest{URL: "https://example.com.ar"})
		require.Error(t, err)
	}
	assert.Equal(t, 5, inner.calls)

	// Circuit is open now; the inner client must not be hit again.
	_, err := client.Scrape(context.Background(), firecrawl.ScrapeRequest{URL: "https://example.com.ar"})
	require.Error(t, err)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, 5, inner.calls)
}

func TestGuardedFirecrawlIgnoresClientErrors(t *testing.T) {
	assert.False(t, firecrawlShouldTrip(&firecrawl.APIError{StatusCode: 402, Message: "payment required"}))
	assert.True(t, firecrawlShouldTrip(&firecrawl.APIError{StatusCode: 500, Message: "boom"}))
}
