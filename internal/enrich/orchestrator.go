package enrich

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/prospector/internal/model"
)

// DefaultBatchBudget is the wall-clock budget per lead in batch flows.
// Single-lead flows pass a larger budget via Options.
const DefaultBatchBudget = 12 * time.Second

// DefaultBatchConcurrency bounds how many leads enrich in parallel.
const DefaultBatchConcurrency = 5

// Options controls which enrichment paths run for one lead.
type Options struct {
	SearchWebsite bool
	ScrapeSocial  bool
	ScrapeWebsite bool
	MaxDuration   time.Duration
}

// Orchestrator fans out the enrichment subtasks for one lead against a
// shared deadline and merges whatever landed in time. The deadline context
// is propagated into every subtask so exceeding the budget aborts the
// in-flight I/O instead of leaking it.
type Orchestrator struct {
	verifier Verifier
	searcher Searcher
	social   SocialFetcher
	sites    SiteScanner
	now      func() time.Time
	log      *zap.Logger
}

// NewOrchestrator creates an Orchestrator. searcher, social, and sites may
// be nil; the corresponding paths are skipped.
func NewOrchestrator(verifier Verifier, searcher Searcher, social SocialFetcher, sites SiteScanner) *Orchestrator {
	return &Orchestrator{
		verifier: verifier,
		searcher: searcher,
		social:   social,
		sites:    sites,
		now:      time.Now,
		log:      zap.L().With(zap.String("component", "enrich")),
	}
}

// WithNow overrides the clock, for tests.
func (o *Orchestrator) WithNow(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// websiteOutcome is what the website subtask resolved.
type websiteOutcome struct {
	url      string
	source   model.ContactSource
	verified bool
	contacts *SiteContacts
}

// Enrich resolves missing contact data for one lead. Subtask errors are
// swallowed: a failed path contributes nothing, and whatever the other
// paths gathered before the budget expired is still merged and returned.
func (o *Orchestrator) Enrich(ctx context.Context, name, area string, known model.PartialContact, opts Options) (*model.EnrichmentResult, error) {
	budget := opts.MaxDuration
	if budget <= 0 {
		budget = DefaultBatchBudget
	}
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	// A social URL in the website field is a social profile, not a website.
	known = reclassifySocialWebsite(known)

	var (
		mu        sync.Mutex
		web       *websiteOutcome
		igProfile *Profile
		fbProfile *Profile

		// Completion order of the social fetches; the primary-email slot
		// goes to whichever profile resolved first.
		socialOrder []model.ContactSource
	)

	var g errgroup.Group

	g.Go(func() error {
		out := o.resolveWebsite(ctx, name, area, known.Website, opts)
		mu.Lock()
		web = out
		mu.Unlock()
		return nil
	})

	if opts.ScrapeSocial && o.social != nil {
		if known.Instagram != "" {
			g.Go(func() error {
				p, err := o.social.Fetch(ctx, known.Instagram)
				if err != nil {
					o.log.Debug("instagram fetch failed", zap.String("url", known.Instagram), zap.Error(err))
					return nil
				}
				mu.Lock()
				igProfile = p
				socialOrder = append(socialOrder, model.SourceInstagram)
				mu.Unlock()
				return nil
			})
		}
		if known.Facebook != "" {
			g.Go(func() error {
				p, err := o.social.Fetch(ctx, known.Facebook)
				if err != nil {
					o.log.Debug("facebook fetch failed", zap.String("url", known.Facebook), zap.Error(err))
					return nil
				}
				mu.Lock()
				fbProfile = p
				socialOrder = append(socialOrder, model.SourceFacebook)
				mu.Unlock()
				return nil
			})
		}
	}

	_ = g.Wait()

	res := o.merge(ctx, known, web, igProfile, fbProfile, socialOrder)
	res.Score = completenessScore(res)
	res.EnrichedAt = o.now().UTC()
	return res, nil
}

// resolveWebsite verifies a known website or discovers one by search, then
// deep-scans it when requested. Never returns nil.
func (o *Orchestrator) resolveWebsite(ctx context.Context, name, area, knownURL string, opts Options) *websiteOutcome {
	out := &websiteOutcome{}

	if knownURL != "" && o.verifier != nil {
		ok, err := o.verifier.Verify(ctx, knownURL)
		if err != nil {
			o.log.Debug("verification inconclusive", zap.String("url", knownURL), zap.Error(err))
		}
		if ok {
			out.url = knownURL
			out.source = model.SourceVerified
			out.verified = true
		}
	}

	if out.url == "" && opts.SearchWebsite && o.searcher != nil {
		found, err := o.searcher.FindWebsite(ctx, name, area)
		if err != nil {
			o.log.Debug("website search failed", zap.String("name", name), zap.Error(err))
		}
		if found != "" && o.verifier != nil {
			// Discovered websites are never trusted unverified.
			ok, err := o.verifier.Verify(ctx, found)
			if err != nil {
				o.log.Debug("verification of discovered site inconclusive",
					zap.String("url", found), zap.Error(err))
			}
			if ok {
				out.url = found
				out.source = model.SourceSearch
				out.verified = true
			}
		}
	}

	if out.url != "" && out.verified && opts.ScrapeWebsite && o.sites != nil {
		contacts, err := o.sites.Scan(ctx, out.url)
		if err != nil {
			o.log.Debug("site scan failed", zap.String("url", out.url), zap.Error(err))
		} else {
			out.contacts = contacts
		}
	}
	return out
}

// merge combines all subtask outcomes. Email priority is strict: website >
// first resolved social profile > anything else. Website origin priority:
// verified > search > social-bio, with bio-discovered sites re-verified
// before they count as real.
func (o *Orchestrator) merge(ctx context.Context, known model.PartialContact, web *websiteOutcome, ig, fb *Profile, socialOrder []model.ContactSource) *model.EnrichmentResult {
	res := &model.EnrichmentResult{
		Instagram: known.Instagram,
		Facebook:  known.Facebook,
	}
	var sources []string

	if web != nil && web.verified {
		res.Website = web.url
		res.WebsiteSource = web.source
		res.HasRealWebsite = true
		switch web.source {
		case model.SourceVerified:
			sources = append(sources, string(model.SourceWebsite))
		case model.SourceSearch:
			sources = append(sources, string(model.SourceSearch))
		}
	}

	// Emails in priority order; dedupe keeps the first occurrence.
	var emails []string
	if web != nil && web.contacts != nil {
		emails = append(emails, web.contacts.Emails...)
		if len(web.contacts.Emails) > 0 {
			res.PrimaryEmail = web.contacts.Emails[0]
			res.EmailSource = model.SourceWebsite
		}
	}
	appendProfileEmails := func(p *Profile, src model.ContactSource) {
		if p == nil {
			return
		}
		emails = append(emails, p.Emails...)
		if res.PrimaryEmail == "" && len(p.Emails) > 0 {
			res.PrimaryEmail = p.Emails[0]
			res.EmailSource = src
		}
	}
	if len(socialOrder) == 0 {
		socialOrder = []model.ContactSource{model.SourceInstagram, model.SourceFacebook}
	}
	for _, src := range socialOrder {
		switch src {
		case model.SourceInstagram:
			appendProfileEmails(ig, model.SourceInstagram)
		case model.SourceFacebook:
			appendProfileEmails(fb, model.SourceFacebook)
		}
	}
	res.Emails = dedupeOrdered(emails)

	var phones []string
	if known.Phone != "" {
		phones = append(phones, known.Phone)
	}
	if web != nil && web.contacts != nil {
		phones = append(phones, web.contacts.Phones...)
	}
	if ig != nil {
		phones = append(phones, ig.Phones...)
	}
	if fb != nil {
		phones = append(phones, fb.Phones...)
	}
	res.Phones = dedupeOrdered(phones)

	res.WhatsApp = firstNonEmpty(
		siteWhatsApp(web),
		profileWhatsApp(ig),
		profileWhatsApp(fb),
	)

	// Socials discovered through site-internal links.
	if web != nil && web.contacts != nil {
		if res.Instagram == "" && web.contacts.Instagram != "" {
			res.Instagram = web.contacts.Instagram
			sources = append(sources, string(model.SourceSiteLink))
		}
		if res.Facebook == "" && web.contacts.Facebook != "" {
			res.Facebook = web.contacts.Facebook
			sources = append(sources, string(model.SourceSiteLink))
		}
	}

	// Bio and followers: prefer the instagram profile.
	for _, p := range []*Profile{ig, fb} {
		if p == nil {
			continue
		}
		if res.Bio == "" {
			res.Bio = p.Bio
		}
		if res.Followers == 0 {
			res.Followers = p.Followers
		}
	}
	if ig != nil {
		sources = append(sources, string(model.SourceInstagram))
	}
	if fb != nil {
		sources = append(sources, string(model.SourceFacebook))
	}

	// A website linked from a social bio is the last-resort origin, and it
	// still has to survive verification to count as real.
	if !res.HasRealWebsite {
		bioURL := firstNonEmpty(profileWebsite(ig), profileWebsite(fb))
		if bioURL != "" {
			res.Website = bioURL
			res.WebsiteSource = model.SourceSocialBio
			if o.verifier != nil {
				if ok, _ := o.verifier.Verify(ctx, bioURL); ok {
					res.HasRealWebsite = true
				}
			}
			sources = append(sources, string(model.SourceSocialBio))
		}
	}

	res.Sources = dedupeOrdered(sources)
	return res
}

// reclassifySocialWebsite moves a social URL out of the website field into
// the matching social field.
func reclassifySocialWebsite(known model.PartialContact) model.PartialContact {
	if known.Website == "" {
		return known
	}
	host, err := hostOf(known.Website)
	if err != nil || !IsSocialHost(host) {
		return known
	}
	switch {
	case strings.Contains(host, "instagram.com"):
		if known.Instagram == "" {
			known.Instagram = known.Website
		}
	case strings.Contains(host, "facebook.com"):
		if known.Facebook == "" {
			known.Facebook = known.Website
		}
	}
	known.Website = ""
	return known
}

// EnrichBatch enriches leads with bounded concurrency and returns them with
// results merged in. limit <= 0 uses DefaultBatchConcurrency.
func (o *Orchestrator) EnrichBatch(ctx context.Context, leads []model.LeadRecord, area string, opts Options, limit int) []model.LeadRecord {
	if limit <= 0 {
		limit = DefaultBatchConcurrency
	}
	out := make([]model.LeadRecord, len(leads))
	copy(out, leads)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range out {
		g.Go(func() error {
			lead := &out[i]
			known := model.PartialContact{
				Phone:     lead.Phone,
				Website:   lead.Website,
				Instagram: lead.Instagram,
				Facebook:  lead.Facebook,
			}
			res, err := o.Enrich(gCtx, lead.Name, area, known, opts)
			if err != nil {
				o.log.Warn("enrichment failed", zap.String("place_id", lead.PlaceID), zap.Error(err))
				return nil
			}
			model.PatchFromEnrichment(res).Apply(lead)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func dedupeOrdered(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func siteWhatsApp(web *websiteOutcome) string {
	if web == nil || web.contacts == nil {
		return ""
	}
	return web.contacts.WhatsApp
}

func profileWhatsApp(p *Profile) string {
	if p == nil {
		return ""
	}
	return p.WhatsApp
}

func profileWebsite(p *Profile) string {
	if p == nil {
		return ""
	}
	return p.Website
}
