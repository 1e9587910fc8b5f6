// Package antidetect supplies randomized request fingerprints and timing
// jitter for the scraping collaborators.
package antidetect

import (
	"math/rand/v2"
	"time"
)

// userAgents is a static pool of current desktop browser identities.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.2478.80",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:126.0) Gecko/20100101 Firefox/126.0",
}

// acceptLanguages biases toward the markets the pipeline targets.
var acceptLanguages = []string{
	"es-AR,es;q=0.9,en;q=0.8",
	"es-ES,es;q=0.9,en;q=0.7",
	"es-MX,es;q=0.9,en;q=0.8",
	"en-US,en;q=0.9,es;q=0.6",
}

var viewports = []string{
	"1920x1080",
	"1536x864",
	"1440x900",
	"1366x768",
	"2560x1440",
}

// Fingerprint is one randomized request identity.
type Fingerprint struct {
	UserAgent      string
	AcceptLanguage string
	Viewport       string
	Headers        map[string]string
}

// Profiler draws fingerprints and jitter from bounded distributions.
// The rng is injectable so tests can seed it.
type Profiler struct {
	rng *rand.Rand
}

// New creates a Profiler with its own PCG source.
func New() *Profiler {
	return &Profiler{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeeded creates a deterministic Profiler for tests.
func NewSeeded(seed uint64) *Profiler {
	return &Profiler{rng: rand.New(rand.NewPCG(seed, seed))}
}

// Profile returns a randomized fingerprint.
func (p *Profiler) Profile() Fingerprint {
	ua := userAgents[p.rng.IntN(len(userAgents))]
	lang := acceptLanguages[p.rng.IntN(len(acceptLanguages))]
	return Fingerprint{
		UserAgent:      ua,
		AcceptLanguage: lang,
		Viewport:       viewports[p.rng.IntN(len(viewports))],
		Headers: map[string]string{
			"User-Agent":      ua,
			"Accept-Language": lang,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Sec-Fetch-Mode":  "navigate",
			"Sec-Fetch-Site":  "none",
			"Upgrade-Insecure-Requests": "1",
		},
	}
}

// Jitter returns a random duration in [min, max].
func (p *Profiler) Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(p.rng.Int64N(int64(max-min)+1))
}
