package enrich

import (
	"context"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospector/pkg/firecrawl"
	"github.com/sells-group/prospector/pkg/jina"
)

// Profile is what a social-profile fetch yields: bio contact data plus an
// external website if the profile links one.
type Profile struct {
	Bio       string
	Emails    []string
	Phones    []string
	WhatsApp  string
	Website   string
	Followers int
}

// SocialFetcher fetches a public social profile page.
type SocialFetcher interface {
	Fetch(ctx context.Context, profileURL string) (*Profile, error)
}

// loginWallPhrases indicate the cheap fetch got a login interstitial instead
// of the profile content.
var loginWallPhrases = []string{
	"log in to see",
	"log in to continue",
	"sign up to see",
	"inicia sesión",
	"iniciar sesión",
	"crea una cuenta",
	"create an account",
}

// markdownLinkRe pulls link targets out of markdown content returned by the
// textual fetch tiers.
var markdownLinkRe = regexp.MustCompile(`\]\((https?://[^)\s]+)\)`)

// TieredSocialFetcher tries the cheap textual fetch first and escalates to
// the rendering tier only when the cheap tier hits a login wall or returns
// nothing usable.
type TieredSocialFetcher struct {
	jina      jina.Client
	firecrawl firecrawl.Client
	log       *zap.Logger
}

// NewTieredSocialFetcher creates a TieredSocialFetcher. firecrawl may be nil,
// in which case only the cheap tier is used.
func NewTieredSocialFetcher(jinaClient jina.Client, firecrawlClient firecrawl.Client) *TieredSocialFetcher {
	return &TieredSocialFetcher{
		jina:      jinaClient,
		firecrawl: firecrawlClient,
		log:       zap.L().With(zap.String("component", "social")),
	}
}

// Fetch retrieves a profile page and extracts contact data from its text.
// The rendering tier is consulted when the cheap fetch fails, hits a login
// wall, or yields no email.
func (f *TieredSocialFetcher) Fetch(ctx context.Context, profileURL string) (*Profile, error) {
	content, err := f.fetchCheap(ctx, profileURL)
	if err != nil || hitLoginWall(content) {
		if f.firecrawl == nil {
			if err != nil {
				return nil, err
			}
			return nil, eris.Errorf("social: login wall at %s", profileURL)
		}
		f.log.Debug("cheap fetch insufficient, escalating to rendering tier",
			zap.String("url", profileURL), zap.Error(err))
		content, err = f.fetchRendered(ctx, profileURL)
		if err != nil {
			return nil, err
		}
		return parseProfile(content), nil
	}

	p := parseProfile(content)
	if len(p.Emails) > 0 || f.firecrawl == nil {
		return p, nil
	}

	// Profiles often hide the email behind rendered-only elements. One more
	// fetch through the rendering tier before settling for the cheap parse.
	f.log.Debug("cheap fetch has no email, escalating to rendering tier",
		zap.String("url", profileURL))
	rendered, err := f.fetchRendered(ctx, profileURL)
	if err != nil {
		return p, nil
	}
	if rp := parseProfile(rendered); len(rp.Emails) > 0 {
		return rp, nil
	}
	return p, nil
}

func (f *TieredSocialFetcher) fetchCheap(ctx context.Context, profileURL string) (string, error) {
	resp, err := f.jina.Read(ctx, profileURL)
	if err != nil {
		return "", eris.Wrap(err, "social: cheap fetch")
	}
	if resp.Data.Content == "" {
		return "", eris.Errorf("social: empty content for %s", profileURL)
	}
	return resp.Data.Content, nil
}

func (f *TieredSocialFetcher) fetchRendered(ctx context.Context, profileURL string) (string, error) {
	resp, err := f.firecrawl.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:     profileURL,
		Formats: []string{"markdown"},
	})
	if err != nil {
		return "", eris.Wrap(err, "social: rendered fetch")
	}
	if !resp.Success || resp.Data.Markdown == "" {
		return "", eris.Errorf("social: rendered fetch empty for %s", profileURL)
	}
	return resp.Data.Markdown, nil
}

func hitLoginWall(content string) bool {
	if content == "" {
		return true
	}
	lower := strings.ToLower(content)
	for _, phrase := range loginWallPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// parseProfile extracts contact data from profile page text. The first
// non-social external link is taken as the bio website.
func parseProfile(content string) *Profile {
	p := &Profile{
		Emails:    ExtractEmails(content),
		Phones:    ExtractPhones(content),
		WhatsApp:  ExtractWhatsApp(content),
		Followers: ExtractFollowers(content),
	}

	for _, m := range markdownLinkRe.FindAllStringSubmatch(content, -1) {
		host, err := hostOf(m[1])
		if err != nil || host == "" {
			continue
		}
		if IsSocialHost(host) {
			continue
		}
		p.Website = m[1]
		break
	}

	// A short first paragraph makes a serviceable bio.
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 20 && len(line) < 300 && !strings.HasPrefix(line, "#") && !strings.HasPrefix(line, "[") {
			p.Bio = line
			break
		}
	}
	return p
}
