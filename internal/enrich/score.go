package enrich

import "github.com/sells-group/prospector/internal/model"

// completenessScore rates how contactable an enrichment left the lead,
// 0..100. Email dominates because outreach runs on it.
func completenessScore(res *model.EnrichmentResult) int {
	score := 0
	if len(res.Emails) > 0 {
		score += 35
	}
	if len(res.Phones) > 0 {
		score += 15
	}
	if res.WhatsApp != "" {
		score += 10
	}
	if res.HasRealWebsite {
		score += 20
	}
	if res.Instagram != "" {
		score += 5
	}
	if res.Facebook != "" {
		score += 5
	}
	if res.Bio != "" {
		score += 5
	}
	if res.Followers >= 1000 {
		score += 5
	}
	if score > 100 {
		score = 100
	}
	return score
}
