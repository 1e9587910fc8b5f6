package enrich

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/prospector/internal/dedupe"
	"github.com/sells-group/prospector/pkg/jina"
)

// Searcher discovers a business website via a web search when the raw
// source has none.
type Searcher interface {
	FindWebsite(ctx context.Context, name, area string) (string, error)
}

// directoryHosts are listing and delivery platforms whose results are about
// the business but are not its website.
var directoryHosts = []string{
	"pedidosya.com", "pedidosya.com.ar", "rappi.com", "rappi.com.ar",
	"tripadvisor.com", "tripadvisor.com.ar", "guiaoleo.com.ar",
	"restorando.com", "yelp.com", "foursquare.com", "paginasamarillas.com",
	"mercadolibre.com", "mercadolibre.com.ar",
}

// JinaSearcher implements Searcher on the Jina search API.
type JinaSearcher struct {
	client  jina.Client
	country string
	log     *zap.Logger
}

// NewJinaSearcher creates a JinaSearcher. country biases results toward a
// market (e.g. "AR") and may be empty.
func NewJinaSearcher(client jina.Client, country string) *JinaSearcher {
	return &JinaSearcher{
		client:  client,
		country: country,
		log:     zap.L().With(zap.String("component", "websearch")),
	}
}

// FindWebsite searches for the business by name and area and returns the
// most plausible own-website URL, or "" when nothing usable turns up.
// Social and directory hosts are skipped; a host sharing a token of the
// business name is preferred over earlier results.
func (s *JinaSearcher) FindWebsite(ctx context.Context, name, area string) (string, error) {
	query := `"` + name + `" ` + area
	opts := []jina.SearchOption{}
	if s.country != "" {
		opts = append(opts, jina.WithCountry(s.country))
	}

	resp, err := s.client.Search(ctx, query, opts...)
	if err != nil {
		return "", err
	}

	nameTokens := nameTokens(name)
	var fallback string
	for _, r := range resp.Data {
		host, err := hostOf(r.URL)
		if err != nil || host == "" {
			continue
		}
		if IsSocialHost(host) || isDirectoryHost(host) {
			continue
		}
		if hostMatchesName(host, nameTokens) {
			s.log.Debug("website discovered by name match",
				zap.String("name", name), zap.String("url", r.URL))
			return r.URL, nil
		}
		if fallback == "" {
			fallback = r.URL
		}
	}
	return fallback, nil
}

func isDirectoryHost(host string) bool {
	host = strings.TrimPrefix(host, "www.")
	for _, d := range directoryHosts {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// nameTokens returns the normalized tokens of a business name worth matching
// against a hostname. Short tokens are noise.
func nameTokens(name string) []string {
	var tokens []string
	for _, word := range strings.Fields(name) {
		t := dedupe.NormalizeName(word)
		if len(t) >= 4 {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		if full := dedupe.NormalizeName(name); full != "" {
			tokens = append(tokens, full)
		}
	}
	return tokens
}

func hostMatchesName(host string, tokens []string) bool {
	host = strings.ReplaceAll(host, "-", "")
	for _, t := range tokens {
		if strings.Contains(host, t) {
			return true
		}
	}
	return false
}
