package enrich

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospector/internal/antidetect"
)

// Verifier probes whether a website actually exists and belongs to a real
// business, as opposed to a parked domain or a social-profile URL that the
// raw source reported as "website".
type Verifier interface {
	Verify(ctx context.Context, websiteURL string) (bool, error)
}

// socialHosts are domains that never count as a real business website even
// when the raw source lists them in the website field.
var socialHosts = []string{
	"instagram.com", "facebook.com", "wa.me", "whatsapp.com",
	"linktr.ee", "bio.link", "twitter.com", "x.com", "tiktok.com",
	"youtube.com", "google.com", "goo.gl",
}

// parkedPhrases mark registrar placeholder pages, Spanish first since most
// targets are Spanish-language markets.
var parkedPhrases = []string{
	"dominio registrado",
	"este dominio está en venta",
	"este dominio esta en venta",
	"dominio en venta",
	"página en construcción",
	"pagina en construccion",
	"sitio en construcción",
	"comprar este dominio",
	"domain is for sale",
	"buy this domain",
	"this domain is parked",
	"parked domain",
	"under construction",
	"coming soon",
	"default web page",
}

// HTTPVerifier implements Verifier with a cheap HEAD probe, falling back to
// GET when the server rejects HEAD, then sniffs the body for parked-page
// phrases.
type HTTPVerifier struct {
	http     *http.Client
	profiler *antidetect.Profiler
	log      *zap.Logger
}

// NewHTTPVerifier creates an HTTPVerifier.
func NewHTTPVerifier(profiler *antidetect.Profiler) *HTTPVerifier {
	return &HTTPVerifier{
		http: &http.Client{
			Timeout: 8 * time.Second,
		},
		profiler: profiler,
		log:      zap.L().With(zap.String("component", "verifier")),
	}
}

// WithTimeout overrides the probe timeout.
func (v *HTTPVerifier) WithTimeout(d time.Duration) *HTTPVerifier {
	if d > 0 {
		v.http.Timeout = d
	}
	return v
}

const verifyBodyLimit = 64 * 1024

// Verify reports whether websiteURL resolves to a live, non-parked site.
// Inconclusive probes (network errors, timeouts) return false with the error
// so the caller can treat the site as unverified without failing enrichment.
func (v *HTTPVerifier) Verify(ctx context.Context, websiteURL string) (bool, error) {
	host, err := hostOf(websiteURL)
	if err != nil {
		return false, eris.Wrapf(err, "verify: parse url %s", websiteURL)
	}
	if IsSocialHost(host) {
		return false, nil
	}

	status, err := v.probe(ctx, http.MethodHead, websiteURL)
	if err != nil || status == http.StatusMethodNotAllowed || status == http.StatusForbidden {
		// Some servers reject or misreport HEAD; retry with GET before
		// giving up.
		status, err = v.probe(ctx, http.MethodGet, websiteURL)
	}
	if err != nil {
		return false, eris.Wrapf(err, "verify: probe %s", websiteURL)
	}
	if status < 200 || status >= 400 {
		return false, nil
	}

	parked, err := v.isParked(ctx, websiteURL)
	if err != nil {
		// Live by status but body unreadable: call it verified rather than
		// discarding a site that answered.
		v.log.Debug("body sniff failed, accepting by status",
			zap.String("url", websiteURL), zap.Error(err))
		return true, nil
	}
	return !parked, nil
}

func (v *HTTPVerifier) probe(ctx context.Context, method, targetURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, targetURL, nil)
	if err != nil {
		return 0, err
	}
	v.applyHeaders(req)

	resp, err := v.http.Do(req)
	if err != nil {
		return 0, err
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, verifyBodyLimit))
	resp.Body.Close()
	return resp.StatusCode, nil
}

func (v *HTTPVerifier) isParked(ctx context.Context, targetURL string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return false, err
	}
	v.applyHeaders(req)

	resp, err := v.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, verifyBodyLimit))
	if err != nil {
		return false, err
	}

	lower := strings.ToLower(string(body))
	for _, phrase := range parkedPhrases {
		if strings.Contains(lower, phrase) {
			return true, nil
		}
	}
	return false, nil
}

func (v *HTTPVerifier) applyHeaders(req *http.Request) {
	if v.profiler == nil {
		return
	}
	fp := v.profiler.Profile()
	req.Header.Set("User-Agent", fp.UserAgent)
	req.Header.Set("Accept-Language", fp.AcceptLanguage)
	for k, val := range fp.Headers {
		req.Header.Set(k, val)
	}
}

// IsSocialHost reports whether host belongs to a social or link-aggregator
// platform rather than a business's own site.
func IsSocialHost(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	for _, s := range socialHosts {
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) (string, error) {
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", eris.Errorf("no host in url: %s", rawURL)
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www."), nil
}
