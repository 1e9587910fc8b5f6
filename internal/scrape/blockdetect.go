package scrape

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of anti-bot block detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockRateLimit  BlockType = "rate_limit"
	BlockJSShell    BlockType = "js_shell"
)

// cloudflareMarkers appear on challenge interstitials.
var cloudflareMarkers = []string{
	"checking your browser",
	"cf-browser-verification",
	"verificando tu navegador",
}

// captchaMarkers cover the common captcha vendors plus the Spanish prompts
// Argentine hosting providers put in front of them.
var captchaMarkers = []string{
	"captcha",
	"recaptcha",
	"hcaptcha",
	"no soy un robot",
	"verifique que no es un robot",
}

// rateLimitMarkers are body-level throttle notices served with a 200.
var rateLimitMarkers = []string{
	"too many requests",
	"demasiadas solicitudes",
	"acceso denegado",
	"access denied",
}

// DetectBlock checks an HTTP response for signs of anti-bot protection.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	// Cloudflare: 403/503 with cf-* headers.
	if resp.StatusCode == 403 || resp.StatusCode == 503 {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("cf-cache-status") != "" {
			return true, BlockCloudflare
		}
		if resp.Header.Get("server") == "cloudflare" {
			return true, BlockCloudflare
		}
	}
	if resp.StatusCode == 429 {
		return true, BlockRateLimit
	}

	lower := strings.ToLower(string(body))

	if containsAny(lower, cloudflareMarkers) ||
		(strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge")) {
		return true, BlockCloudflare
	}
	if containsAny(lower, captchaMarkers) {
		return true, BlockCaptcha
	}
	if containsAny(lower, rateLimitMarkers) {
		return true, BlockRateLimit
	}

	// JS-only shell: very small body with noscript or meta refresh.
	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, `meta http-equiv="refresh"`) {
			return true, BlockJSShell
		}
	}

	return false, BlockNone
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
