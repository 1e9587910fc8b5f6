package enrich

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/sells-group/prospector/internal/model"
	"github.com/sells-group/prospector/internal/scrape"
)

// SiteContacts is everything a deep scan of a business website yields.
type SiteContacts struct {
	Emails    []string
	Phones    []string
	WhatsApp  string
	Instagram string
	Facebook  string
}

// SiteScanner crawls a business website for contact data.
type SiteScanner interface {
	Scan(ctx context.Context, siteURL string) (*SiteContacts, error)
}

// contactPaths are probed in addition to the landing page, Spanish paths
// first. Misses are cheap: the scrape chain just skips failed URLs.
var contactPaths = []string{
	"/contacto",
	"/contactanos",
	"/contact",
	"/nosotros",
	"/quienes-somos",
	"/about",
}

// ChainSiteScanner implements SiteScanner on the scrape chain, parsing pages
// with goquery when HTML is available and falling back to text extraction.
type ChainSiteScanner struct {
	chain       *scrape.Chain
	concurrency int
	maxPages    int
	log         *zap.Logger
}

// NewChainSiteScanner creates a ChainSiteScanner.
func NewChainSiteScanner(chain *scrape.Chain, concurrency int) *ChainSiteScanner {
	if concurrency <= 0 {
		concurrency = 3
	}
	return &ChainSiteScanner{
		chain:       chain,
		concurrency: concurrency,
		log:         zap.L().With(zap.String("component", "sitescan")),
	}
}

// WithMaxPages caps how many pages are fetched per site, landing page
// included.
func (s *ChainSiteScanner) WithMaxPages(n int) *ChainSiteScanner {
	if n > 0 {
		s.maxPages = n
	}
	return s
}

// Scan fetches the landing page plus the fixed contact paths and merges
// everything found. Contact-page data is ordered before landing-page data so
// deliberately published contacts win the primary slots.
func (s *ChainSiteScanner) Scan(ctx context.Context, siteURL string) (*SiteContacts, error) {
	base, err := url.Parse(siteURL)
	if err != nil {
		return nil, err
	}

	paths := contactPaths
	if s.maxPages > 0 && len(paths) > s.maxPages-1 {
		paths = paths[:s.maxPages-1]
	}

	urls := make([]string, 0, len(paths)+1)
	for _, p := range paths {
		ref, err := base.Parse(p)
		if err != nil {
			continue
		}
		urls = append(urls, ref.String())
	}
	urls = append(urls, siteURL)

	pages := s.chain.ScrapeAll(ctx, urls, s.concurrency)
	if len(pages) == 0 {
		s.log.Debug("no pages fetched", zap.String("site", siteURL))
		return &SiteContacts{}, nil
	}

	// ScrapeAll returns pages in completion order; restore request order so
	// contact pages stay ahead of the landing page.
	ordered := orderPages(urls, pages)

	contacts := &SiteContacts{}
	emailSeen := make(map[string]struct{})
	phoneSeen := make(map[string]struct{})
	for _, page := range ordered {
		pc := extractPageContacts(page)
		for _, e := range pc.Emails {
			if _, ok := emailSeen[e]; ok {
				continue
			}
			emailSeen[e] = struct{}{}
			contacts.Emails = append(contacts.Emails, e)
		}
		for _, p := range pc.Phones {
			if _, ok := phoneSeen[p]; ok {
				continue
			}
			phoneSeen[p] = struct{}{}
			contacts.Phones = append(contacts.Phones, p)
		}
		if contacts.WhatsApp == "" {
			contacts.WhatsApp = pc.WhatsApp
		}
		if contacts.Instagram == "" {
			contacts.Instagram = pc.Instagram
		}
		if contacts.Facebook == "" {
			contacts.Facebook = pc.Facebook
		}
	}
	return contacts, nil
}

func orderPages(urls []string, pages []model.CrawledPage) []model.CrawledPage {
	byURL := make(map[string]model.CrawledPage, len(pages))
	for _, p := range pages {
		byURL[p.URL] = p
	}
	ordered := make([]model.CrawledPage, 0, len(pages))
	matched := make(map[string]struct{}, len(pages))
	for _, u := range urls {
		if p, ok := byURL[u]; ok {
			ordered = append(ordered, p)
			matched[u] = struct{}{}
		}
	}
	// Pages whose final URL differs from the requested one (redirects) go
	// last in whatever order they completed.
	for _, p := range pages {
		if _, ok := matched[p.URL]; !ok {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

// extractPageContacts pulls contacts from one page: structured hrefs first
// (mailto:, tel:, wa.me, social links) via goquery, then the visible text.
func extractPageContacts(page model.CrawledPage) SiteContacts {
	var pc SiteContacts

	if page.HTML != "" {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
		if err == nil {
			doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
				href, _ := sel.Attr("href")
				switch {
				case strings.HasPrefix(href, "mailto:"):
					addr := strings.SplitN(strings.TrimPrefix(href, "mailto:"), "?", 2)[0]
					pc.Emails = append(pc.Emails, ExtractEmails(addr)...)
				case strings.HasPrefix(href, "tel:"):
					pc.Phones = append(pc.Phones, ExtractPhones(strings.TrimPrefix(href, "tel:"))...)
				case strings.Contains(href, "wa.me/") || strings.Contains(href, "api.whatsapp.com"):
					if wa := ExtractWhatsApp(href); wa != "" && pc.WhatsApp == "" {
						pc.WhatsApp = wa
					}
				case strings.Contains(href, "instagram.com/"):
					if pc.Instagram == "" {
						pc.Instagram = cleanSocialURL(href)
					}
				case strings.Contains(href, "facebook.com/"):
					if pc.Facebook == "" {
						pc.Facebook = cleanSocialURL(href)
					}
				}
			})
			// Obfuscated addresses live in the rendered text, not in hrefs.
			pc.Emails = append(pc.Emails, ExtractEmails(doc.Text())...)
			pc.Phones = append(pc.Phones, ExtractPhones(doc.Text())...)
		}
	}

	if page.Text != "" {
		pc.Emails = append(pc.Emails, ExtractEmails(page.Text)...)
		pc.Phones = append(pc.Phones, ExtractPhones(page.Text)...)
		if pc.WhatsApp == "" {
			pc.WhatsApp = ExtractWhatsApp(page.Text)
		}
	}
	return pc
}

// cleanSocialURL strips query noise like utm parameters from a social link.
func cleanSocialURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimSuffix(u.String(), "/")
}
