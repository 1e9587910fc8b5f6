package firecrawl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrapeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/scrape", r.URL.Path)
		assert.Equal(t, "Bearer fc-key", r.Header.Get("Authorization"))

		var req ScrapeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://elcafedemartin.com.ar", req.URL)
		assert.Equal(t, []string{"markdown", "html"}, req.Formats)

		_, _ = w.Write([]byte(`{"success":true,"data":{"url":"https://elcafedemartin.com.ar","title":"El Café de Martín","markdown":"# Bienvenidos","html":"<h1>Bienvenidos</h1>","statusCode":200}}`))
	}))
	defer srv.Close()

	c := NewClient("fc-key", WithBaseURL(srv.URL))
	resp, err := c.Scrape(context.Background(), ScrapeRequest{
		URL:     "https://elcafedemartin.com.ar",
		Formats: []string{"markdown", "html"},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "El Café de Martín", resp.Data.Title)
	assert.Equal(t, "<h1>Bienvenidos</h1>", resp.Data.HTML)
	assert.Equal(t, 200, resp.Data.StatusCode)
}

func TestScrapeDefaultsFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ScrapeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"markdown"}, req.Formats)
		_, _ = w.Write([]byte(`{"success":true,"data":{}}`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	_, err := c.Scrape(context.Background(), ScrapeRequest{URL: "https://example.com"})
	require.NoError(t, err)
}

func TestScrapeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":"insufficient credits"}`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	_, err := c.Scrape(context.Background(), ScrapeRequest{URL: "https://example.com"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusPaymentRequired, apiErr.StatusCode)
	assert.Equal(t, "insufficient credits", apiErr.Message)
}

func TestScrapeMissingURL(t *testing.T) {
	c := NewClient("k")
	_, err := c.Scrape(context.Background(), ScrapeRequest{})
	require.Error(t, err)
}
