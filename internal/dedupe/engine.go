package dedupe

import (
	"github.com/agext/levenshtein"

	"github.com/sells-group/prospector/internal/model"
)

const (
	// DefaultThreshold is the name-similarity percentage above which two
	// records with matching addresses are considered duplicates.
	DefaultThreshold = 85

	// addressThreshold is the address-similarity floor for the same_address rule.
	addressThreshold = 70

	// similarNameThreshold classifies near-identical names as duplicates even
	// without address confirmation.
	similarNameThreshold = 90
)

// Engine compares candidate records for duplicates.
type Engine struct {
	threshold int
}

// NewEngine creates an Engine. A non-positive threshold falls back to
// DefaultThreshold.
func NewEngine(threshold int) *Engine {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Engine{threshold: threshold}
}

// DeduplicateResult partitions a candidate list into unique items and the
// duplicates that collapsed into them.
type DeduplicateResult struct {
	Unique     []model.Candidate
	Duplicates []model.Candidate
	Matches    []model.DuplicateMatch
}

// Compare decides whether two candidates denote the same business. Rules are
// evaluated in a fixed order and the first match wins.
func (e *Engine) Compare(a, b model.Candidate) model.DuplicateMatch {
	match := model.DuplicateMatch{Name: a.Name, MatchedWith: b.Name}

	// 1. Identical phone numbers.
	if pa, pb := NormalizePhone(a.Phone), NormalizePhone(b.Phone); pa != "" && pa == pb {
		match.IsDuplicate = true
		match.Signal = model.MatchSamePhone
		match.Similarity = 100
		return match
	}

	// 2. Identical website hosts.
	if ha, hb := NormalizeHost(a.Website), NormalizeHost(b.Website); ha != "" && ha == hb {
		match.IsDuplicate = true
		match.Signal = model.MatchSameWebsite
		match.Similarity = 100
		return match
	}

	// 3. Identical normalized names.
	na, nb := NormalizeName(a.Name), NormalizeName(b.Name)
	if na != "" && na == nb {
		match.IsDuplicate = true
		match.Signal = model.MatchExactName
		match.Similarity = 100
		return match
	}

	// 4. Similar names confirmed by similar addresses.
	nameSim := similarity(na, nb)
	if nameSim >= e.threshold && a.Address != "" && b.Address != "" {
		addrSim := similarity(NormalizeAddress(a.Address), NormalizeAddress(b.Address))
		if addrSim >= addressThreshold {
			match.IsDuplicate = true
			match.Signal = model.MatchSameAddress
			match.Similarity = (nameSim + addrSim) / 2
			return match
		}
	}

	// 5. Near-identical names stand on their own.
	if nameSim >= similarNameThreshold {
		match.IsDuplicate = true
		match.Signal = model.MatchSimilarName
		match.Similarity = nameSim
		return match
	}

	// 6. Not a duplicate; report the name similarity for diagnostics.
	match.Similarity = nameSim
	return match
}

// Deduplicate compares each item against every already-accepted unique item.
// The first match wins and classifies the item as a duplicate of it.
func (e *Engine) Deduplicate(items []model.Candidate) DeduplicateResult {
	res := DeduplicateResult{}
	for _, item := range items {
		dup := false
		for _, u := range res.Unique {
			m := e.Compare(item, u)
			if m.IsDuplicate {
				res.Duplicates = append(res.Duplicates, item)
				res.Matches = append(res.Matches, m)
				dup = true
				break
			}
		}
		if !dup {
			res.Unique = append(res.Unique, item)
		}
	}
	return res
}

// similarity returns an edit-distance based percentage in [0,100].
func similarity(a, b string) int {
	if a == "" && b == "" {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	dist := levenshtein.Distance(a, b, nil)
	if dist >= maxLen {
		return 0
	}
	return (maxLen - dist) * 100 / maxLen
}
