package scrape

import (
	"context"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospector/internal/antidetect"
	"github.com/sells-group/prospector/internal/model"
	"github.com/sells-group/prospector/internal/resilience"
)

// maxBodyBytes caps how much of a page is read.
const maxBodyBytes = 512 * 1024

// LocalScraper fetches HTML via net/http with a randomized fingerprint,
// detects blocks, and keeps both the raw HTML and a plaintext rendering.
// Free, no API calls. Falls through to Jina/Firecrawl when blocked.
type LocalScraper struct {
	client   *http.Client
	profiler *antidetect.Profiler
	retries  int
}

// NewLocalScraper creates a LocalScraper. A nil profiler gets a fresh one.
func NewLocalScraper(profiler *antidetect.Profiler) *LocalScraper {
	if profiler == nil {
		profiler = antidetect.New()
	}
	return &LocalScraper{
		profiler: profiler,
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// WithTimeout overrides the per-request timeout.
func (l *LocalScraper) WithTimeout(d time.Duration) *LocalScraper {
	if d > 0 {
		l.client.Timeout = d
	}
	return l
}

// WithRetries retries transient fetch failures up to n extra attempts.
// Blocks and HTTP errors never retry; the chain escalates those instead.
func (l *LocalScraper) WithRetries(n int) *LocalScraper {
	if n > 0 {
		l.retries = n
	}
	return l
}

func (l *LocalScraper) Name() string           { return "local_http" }
func (l *LocalScraper) Supports(_ string) bool { return true }

// Scrape fetches a URL, detects blocks, and strips HTML to plaintext.
func (l *LocalScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	if l.retries <= 0 {
		return l.fetch(ctx, targetURL)
	}
	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = l.retries + 1
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*Result, error) {
		return l.fetch(ctx, targetURL)
	})
}

func (l *LocalScraper) fetch(ctx context.Context, targetURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	for k, v := range l.profiler.Profile().Headers {
		req.Header.Set(k, v)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: read body")
	}

	if blocked, blockType := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("local_http: blocked (%s)", blockType)
	}

	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("local_http: status %d", resp.StatusCode)
	}

	if len(body) < 100 {
		return nil, eris.New("local_http: empty page")
	}

	return &Result{
		Page: model.CrawledPage{
			URL:        targetURL,
			Title:      extractTitle(body),
			HTML:       string(body),
			Text:       StripHTML(string(body)),
			StatusCode: resp.StatusCode,
		},
		Source: "local_http",
	}, nil
}

var titleRe = regexp.MustCompile(`(?i)<title[^>]*>(.*?)</title>`)

func extractTitle(body []byte) string {
	m := titleRe.FindSubmatch(body)
	if len(m) > 1 {
		return strings.TrimSpace(string(m[1]))
	}
	return ""
}

// StripHTML removes scripts/styles/nav/footer, strips tags, decodes entities,
// and collapses whitespace into plaintext.
func StripHTML(html string) string {
	for _, tag := range []string{"script", "style", "nav", "footer"} {
		re := regexp.MustCompile(`(?is)<` + tag + `[^>]*>.*?</` + tag + `>`)
		html = re.ReplaceAllString(html, "")
	}

	tagRe := regexp.MustCompile(`<[^>]+>`)
	html = tagRe.ReplaceAllString(html, " ")

	r := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	html = r.Replace(html)

	spaceRe := regexp.MustCompile(`[ \t]+`)
	html = spaceRe.ReplaceAllString(html, " ")

	nlRe := regexp.MustCompile(`\n{3,}`)
	html = nlRe.ReplaceAllString(html, "\n\n")

	return strings.TrimSpace(html)
}
