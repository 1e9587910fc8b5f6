package enrich

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospector/internal/model"
)

type stubVerifier struct {
	real map[string]bool
}

func (v *stubVerifier) Verify(_ context.Context, url string) (bool, error) {
	ok, known := v.real[url]
	if !known {
		return false, nil
	}
	return ok, nil
}

type stubSearcher struct {
	url string
	err error
}

func (s *stubSearcher) FindWebsite(context.Context, string, string) (string, error) {
	return s.url, s.err
}

type stubSocial struct {
	profiles map[string]*Profile
	delay    time.Duration
}

func (s *stubSocial) Fetch(ctx context.Context, url string) (*Profile, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p, ok := s.profiles[url]
	if !ok {
		return nil, eris.Errorf("no profile: %s", url)
	}
	return p, nil
}

type stubSites struct {
	contacts map[string]*SiteContacts
}

func (s *stubSites) Scan(_ context.Context, url string) (*SiteContacts, error) {
	c, ok := s.contacts[url]
	if !ok {
		return &SiteContacts{}, nil
	}
	return c, nil
}

var fixedNow = func() time.Time {
	return time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
}

func allOpts() Options {
	return Options{SearchWebsite: true, ScrapeSocial: true, ScrapeWebsite: true, MaxDuration: 5 * time.Second}
}

func TestEnrichWebsiteEmailWinsPrimary(t *testing.T) {
	o := NewOrchestrator(
		&stubVerifier{real: map[string]bool{"https://laparrilla.com.ar": true}},
		nil,
		&stubSocial{profiles: map[string]*Profile{
			"https://instagram.com/laparrillaba": {Emails: []string{"dm@laparrilla.com.ar"}},
		}},
		&stubSites{contacts: map[string]*SiteContacts{
			"https://laparrilla.com.ar": {Emails: []string{"reservas@laparrilla.com.ar"}},
		}},
	).WithNow(fixedNow)

	res, err := o.Enrich(context.Background(), "La Parrilla", "Palermo, Buenos Aires", model.PartialContact{
		Website:   "https://laparrilla.com.ar",
		Instagram: "https://instagram.com/laparrillaba",
	}, allOpts())
	require.NoError(t, err)

	assert.Equal(t, "reservas@laparrilla.com.ar", res.PrimaryEmail)
	assert.Equal(t, model.SourceWebsite, res.EmailSource)
	assert.Equal(t, []string{"reservas@laparrilla.com.ar", "dm@laparrilla.com.ar"}, res.Emails)
	assert.True(t, res.HasRealWebsite)
	assert.Equal(t, model.SourceVerified, res.WebsiteSource)
	assert.Equal(t, fixedNow().UTC(), res.EnrichedAt)
}

func TestEnrichSocialEmailWhenNoWebsite(t *testing.T) {
	o := NewOrchestrator(
		&stubVerifier{},
		&stubSearcher{},
		&stubSocial{profiles: map[string]*Profile{
			"https://instagram.com/lodetito": {Emails: []string{"pedidos@lodetito.com.ar"}},
		}},
		&stubSites{},
	).WithNow(fixedNow)

	res, err := o.Enrich(context.Background(), "Lo de Tito", "Caballito, Buenos Aires", model.PartialContact{
		Instagram: "https://instagram.com/lodetito",
	}, allOpts())
	require.NoError(t, err)

	assert.Equal(t, "pedidos@lodetito.com.ar", res.PrimaryEmail)
	assert.Equal(t, model.SourceInstagram, res.EmailSource)
	assert.False(t, res.HasRealWebsite)
}

// pacedSocial delays per profile URL so completion order is controlled.
type pacedSocial struct {
	profiles map[string]*Profile
	delays   map[string]time.Duration
}

func (s *pacedSocial) Fetch(ctx context.Context, url string) (*Profile, error) {
	if d := s.delays[url]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p, ok := s.profiles[url]
	if !ok {
		return nil, eris.Errorf("no profile: %s", url)
	}
	return p, nil
}

func TestEnrichFirstResolvedSocialWinsPrimary(t *testing.T) {
	ig := "https://instagram.com/lodetito"
	fb := "https://facebook.com/lodetito"
	o := NewOrchestrator(
		&stubVerifier{},
		&stubSearcher{},
		&pacedSocial{
			profiles: map[string]*Profile{
				ig: {Emails: []string{"dm@lodetito.com.ar"}},
				fb: {Emails: []string{"pedidos@lodetito.com.ar"}},
			},
			delays: map[string]time.Duration{ig: 200 * time.Millisecond},
		},
		&stubSites{},
	).WithNow(fixedNow)

	res, err := o.Enrich(context.Background(), "Lo de Tito", "Caballito, Buenos Aires", model.PartialContact{
		Instagram: ig,
		Facebook:  fb,
	}, allOpts())
	require.NoError(t, err)

	assert.Equal(t, "pedidos@lodetito.com.ar", res.PrimaryEmail)
	assert.Equal(t, model.SourceFacebook, res.EmailSource)
	assert.ElementsMatch(t, []string{"pedidos@lodetito.com.ar", "dm@lodetito.com.ar"}, res.Emails)
}

func TestMergeSocialCompletionOrder(t *testing.T) {
	o := NewOrchestrator(nil, nil, nil, nil)
	ig := &Profile{Emails: []string{"dm@lodetito.com.ar"}}
	fb := &Profile{Emails: []string{"pedidos@lodetito.com.ar"}}

	res := o.merge(context.Background(), model.PartialContact{}, nil, ig, fb,
		[]model.ContactSource{model.SourceFacebook, model.SourceInstagram})
	assert.Equal(t, "pedidos@lodetito.com.ar", res.PrimaryEmail)
	assert.Equal(t, model.SourceFacebook, res.EmailSource)

	res = o.merge(context.Background(), model.PartialContact{}, nil, ig, fb, nil)
	assert.Equal(t, "dm@lodetito.com.ar", res.PrimaryEmail,
		"without completion data the instagram profile leads")
}

func TestEnrichSearchDiscoversWebsite(t *testing.T) {
	o := NewOrchestrator(
		&stubVerifier{real: map[string]bool{"https://lodetito.com.ar": true}},
		&stubSearcher{url: "https://lodetito.com.ar"},
		nil,
		&stubSites{contacts: map[string]*SiteContacts{
			"https://lodetito.com.ar": {WhatsApp: "5491155443322"},
		}},
	).WithNow(fixedNow)

	res, err := o.Enrich(context.Background(), "Lo de Tito", "Caballito, Buenos Aires", model.PartialContact{}, allOpts())
	require.NoError(t, err)

	assert.True(t, res.HasRealWebsite)
	assert.Equal(t, model.SourceSearch, res.WebsiteSource)
	assert.Equal(t, "5491155443322", res.WhatsApp)
}

func TestEnrichBioWebsiteLastResort(t *testing.T) {
	o := NewOrchestrator(
		&stubVerifier{real: map[string]bool{"https://elcafe.com.ar": true}},
		&stubSearcher{},
		&stubSocial{profiles: map[string]*Profile{
			"https://instagram.com/elcafe": {Website: "https://elcafe.com.ar"},
		}},
		&stubSites{},
	).WithNow(fixedNow)

	res, err := o.Enrich(context.Background(), "El Café", "Recoleta, Buenos Aires", model.PartialContact{
		Instagram: "https://instagram.com/elcafe",
	}, allOpts())
	require.NoError(t, err)

	assert.Equal(t, "https://elcafe.com.ar", res.Website)
	assert.Equal(t, model.SourceSocialBio, res.WebsiteSource)
	assert.True(t, res.HasRealWebsite)
	assert.Contains(t, res.Sources, string(model.SourceSocialBio))
}

func TestEnrichReclassifiesSocialWebsite(t *testing.T) {
	o := NewOrchestrator(
		&stubVerifier{},
		nil,
		&stubSocial{profiles: map[string]*Profile{
			"https://www.instagram.com/laparrillaba": {Emails: []string{"dm@laparrilla.com.ar"}},
		}},
		&stubSites{},
	).WithNow(fixedNow)

	// The raw source reported an instagram URL in the website field.
	res, err := o.Enrich(context.Background(), "La Parrilla", "Palermo, Buenos Aires", model.PartialContact{
		Website: "https://www.instagram.com/laparrillaba",
	}, allOpts())
	require.NoError(t, err)

	assert.False(t, res.HasRealWebsite)
	assert.Equal(t, "https://www.instagram.com/laparrillaba", res.Instagram)
	assert.Equal(t, "dm@laparrilla.com.ar", res.PrimaryEmail)
}

func TestEnrichBudgetCancelsSlowSubtask(t *testing.T) {
	o := NewOrchestrator(
		&stubVerifier{real: map[string]bool{"https://laparrilla.com.ar": true}},
		nil,
		&stubSocial{
			delay: 5 * time.Second,
			profiles: map[string]*Profile{
				"https://instagram.com/laparrillaba": {Emails: []string{"late@laparrilla.com.ar"}},
			},
		},
		&stubSites{contacts: map[string]*SiteContacts{
			"https://laparrilla.com.ar": {Emails: []string{"reservas@laparrilla.com.ar"}},
		}},
	).WithNow(fixedNow)

	opts := allOpts()
	opts.MaxDuration = 150 * time.Millisecond

	start := time.Now()
	res, err := o.Enrich(context.Background(), "La Parrilla", "Palermo, Buenos Aires", model.PartialContact{
		Website:   "https://laparrilla.com.ar",
		Instagram: "https://instagram.com/laparrillaba",
	}, opts)
	require.NoError(t, err)

	// The slow social fetch aborts at the deadline instead of running out
	// its full delay; the website path's data is still merged.
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, "reservas@laparrilla.com.ar", res.PrimaryEmail)
	assert.NotContains(t, res.Emails, "late@laparrilla.com.ar")
}

func TestEnrichBatchBoundedConcurrency(t *testing.T) {
	var inflight, peak atomic.Int32
	social := &gaugeSocial{inflight: &inflight, peak: &peak}

	o := NewOrchestrator(&stubVerifier{}, nil, social, &stubSites{}).WithNow(fixedNow)

	leads := make([]model.LeadRecord, 8)
	for i := range leads {
		leads[i] = model.LeadRecord{
			PlaceID:   "p" + string(rune('a'+i)),
			Name:      "Negocio",
			Instagram: "https://instagram.com/negocio",
		}
	}

	opts := Options{ScrapeSocial: true, MaxDuration: time.Second}
	out := o.EnrichBatch(context.Background(), leads, "Buenos Aires", opts, 2)

	require.Len(t, out, 8)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	for _, lead := range out {
		assert.Contains(t, lead.Emails, "hola@negocio.com.ar")
		assert.NotNil(t, lead.EnrichedAt)
	}
}

// gaugeSocial records peak concurrent fetches.
type gaugeSocial struct {
	inflight *atomic.Int32
	peak     *atomic.Int32
}

func (g *gaugeSocial) Fetch(context.Context, string) (*Profile, error) {
	n := g.inflight.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	g.inflight.Add(-1)
	return &Profile{Emails: []string{"hola@negocio.com.ar"}}, nil
}
