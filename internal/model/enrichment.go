package model

import "time"

// ContactSource tags where a piece of contact data came from.
type ContactSource string

const (
	SourceWebsite   ContactSource = "website"
	SourceVerified  ContactSource = "verified"
	SourceSearch    ContactSource = "search"
	SourceInstagram ContactSource = "instagram"
	SourceFacebook  ContactSource = "facebook"
	SourceSocialBio ContactSource = "social_bio"
	SourceSiteLink  ContactSource = "site_link"
)

// PartialContact is the contact data already known about a business before
// enrichment starts.
type PartialContact struct {
	Phone     string `json:"phone,omitempty"`
	Website   string `json:"website,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
}

// EnrichmentResult holds everything one enrichment invocation gathered.
// It is ephemeral; its fields are merged into a LeadRecord via ContactPatch.
type EnrichmentResult struct {
	Emails         []string      `json:"emails,omitempty"`
	PrimaryEmail   string        `json:"primary_email,omitempty"`
	EmailSource    ContactSource `json:"email_source,omitempty"`
	Phones         []string      `json:"phones,omitempty"`
	WhatsApp       string        `json:"whatsapp,omitempty"`
	Website        string        `json:"website,omitempty"`
	WebsiteSource  ContactSource `json:"website_source,omitempty"`
	HasRealWebsite bool          `json:"has_real_website"`
	Instagram      string        `json:"instagram,omitempty"`
	Facebook       string        `json:"facebook,omitempty"`
	Bio            string        `json:"bio,omitempty"`
	Followers      int           `json:"followers,omitempty"`
	Sources        []string      `json:"sources,omitempty"`
	Score          int           `json:"score"` // completeness, 0..100
	EnrichedAt     time.Time     `json:"enriched_at"`
}

// ContactPatch is an explicit partial update for a LeadRecord. Nil fields
// leave the record untouched.
type ContactPatch struct {
	Phone         *string
	Website       *string
	Emails        []string
	Instagram     *string
	Facebook      *string
	WhatsApp      *string
	EnrichScore   *int
	EnrichSources []string
	EnrichedAt    *time.Time
}

// PatchFromEnrichment converts an EnrichmentResult into a ContactPatch.
// Only fields the enrichment actually resolved are set; the website is
// included only when it was verified as real.
func PatchFromEnrichment(res *EnrichmentResult) ContactPatch {
	if res == nil {
		return ContactPatch{}
	}
	p := ContactPatch{
		Emails:        res.Emails,
		EnrichSources: res.Sources,
	}
	if res.HasRealWebsite && res.Website != "" {
		p.Website = &res.Website
	}
	if len(res.Phones) > 0 {
		p.Phone = &res.Phones[0]
	}
	if res.WhatsApp != "" {
		p.WhatsApp = &res.WhatsApp
	}
	if res.Instagram != "" {
		p.Instagram = &res.Instagram
	}
	if res.Facebook != "" {
		p.Facebook = &res.Facebook
	}
	p.EnrichScore = &res.Score
	if !res.EnrichedAt.IsZero() {
		t := res.EnrichedAt
		p.EnrichedAt = &t
	}
	return p
}

// Apply merges the patch into a LeadRecord. Existing values win only when the
// patch carries nothing for that field; patch emails are prepended and
// deduplicated so higher-priority sources stay first.
func (p ContactPatch) Apply(lead *LeadRecord) {
	if lead == nil {
		return
	}
	if p.Phone != nil && *p.Phone != "" {
		lead.Phone = *p.Phone
	}
	if p.Website != nil && *p.Website != "" {
		lead.Website = *p.Website
	}
	if len(p.Emails) > 0 {
		lead.Emails = dedupeStrings(append(append([]string{}, p.Emails...), lead.Emails...))
	}
	if p.Instagram != nil && *p.Instagram != "" {
		lead.Instagram = *p.Instagram
	}
	if p.Facebook != nil && *p.Facebook != "" {
		lead.Facebook = *p.Facebook
	}
	if p.WhatsApp != nil && *p.WhatsApp != "" {
		lead.WhatsApp = *p.WhatsApp
	}
	if p.EnrichScore != nil {
		lead.EnrichScore = *p.EnrichScore
	}
	if len(p.EnrichSources) > 0 {
		lead.EnrichSources = dedupeStrings(append(append([]string{}, lead.EnrichSources...), p.EnrichSources...))
	}
	if p.EnrichedAt != nil {
		lead.EnrichedAt = p.EnrichedAt
	}
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
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
