package search

import "github.com/sells-group/prospector/internal/model"

// LeadScore rates how commercially valuable and contactable a candidate is,
// 0..100. No website is the strongest buy signal: the business likely has
// nobody doing its digital presence.
func LeadScore(c model.Candidate) int {
	score := 0
	if c.Website == "" {
		score += 35
	}
	if c.Phone != "" {
		score += 15
	}
	score += ratingPoints(c.Rating)
	score += reviewPoints(c.ReviewCount)
	score += c.RelevanceScore / 10
	return clampScore(score)
}

// EnrichedLeadScore recomputes a lead's score after enrichment, adding
// bonuses for the contact channels enrichment resolved.
func EnrichedLeadScore(lead model.LeadRecord) int {
	score := 0
	if lead.Website == "" {
		score += 35
	}
	if lead.Phone != "" {
		score += 15
	}
	score += ratingPoints(lead.Rating)
	score += reviewPoints(lead.ReviewCount)
	score += lead.RelevanceScore / 10

	if len(lead.Emails) > 0 {
		score += 10
	}
	if lead.WhatsApp != "" {
		score += 5
	}
	if lead.Instagram != "" || lead.Facebook != "" {
		score += 5
	}
	return clampScore(score)
}

func ratingPoints(rating float64) int {
	switch {
	case rating >= 4.5:
		return 15
	case rating >= 4.0:
		return 10
	case rating >= 3.5:
		return 5
	default:
		return 0
	}
}

func reviewPoints(count int) int {
	switch {
	case count >= 200:
		return 15
	case count >= 50:
		return 10
	case count >= 10:
		return 5
	default:
		return 0
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
