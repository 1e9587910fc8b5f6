// Package relevance scores how well a candidate's category matches a search
// term, independent of lead quality.
package relevance

import (
	"strings"

	"github.com/sells-group/prospector/internal/dedupe"
)

// Scorer is the category/synonym matcher consumed by the search coordinator.
type Scorer interface {
	Score(category, name, term string) int
}

// KeywordScorer matches via an immutable synonym table injected at
// construction.
type KeywordScorer struct {
	synonyms map[string][]string
}

// NewKeywordScorer creates a KeywordScorer. A nil table uses the built-in
// synonyms.
func NewKeywordScorer(synonyms map[string][]string) *KeywordScorer {
	if synonyms == nil {
		synonyms = DefaultSynonyms()
	}
	return &KeywordScorer{synonyms: synonyms}
}

// DefaultSynonyms returns the built-in ES/EN category synonym table.
func DefaultSynonyms() map[string][]string {
	return map[string][]string{
		"restaurante": {"restaurant", "parrilla", "comida", "food", "bistro", "cantina", "bodegon", "grill"},
		"cafe":        {"cafeteria", "coffee", "coffee_shop", "confiteria", "bakery", "panaderia"},
		"bar":         {"pub", "cerveceria", "brewery", "wine_bar", "vinoteca"},
		"pizzeria":    {"pizza", "pizza_restaurant"},
		"heladeria":   {"ice_cream", "ice_cream_shop", "gelato"},
		"gimnasio":    {"gym", "fitness", "fitness_center", "crossfit"},
		"peluqueria":  {"hair_salon", "barberia", "barber", "salon", "estetica"},
		"hotel":       {"hostel", "hospedaje", "lodging", "alojamiento"},
		"farmacia":    {"pharmacy", "drugstore", "perfumeria"},
		"ferreteria":  {"hardware_store", "corralon"},
		"veterinaria": {"veterinary", "pet_store", "mascotas"},
		"dentista":    {"dental", "odontologia", "dentist"},
		"abogado":     {"lawyer", "estudio_juridico", "legal"},
		"inmobiliaria": {"real_estate", "real_estate_agency", "propiedades"},
		"taller":      {"mecanico", "car_repair", "auto_repair", "gomeria"},
	}
}

// Score returns 0..100: 100 for a direct category/term hit, 80 for a synonym
// hit, 60/40 for name-token overlap, 0 otherwise.
func (s *KeywordScorer) Score(category, name, term string) int {
	termNorm := normToken(term)
	if termNorm == "" {
		return 0
	}
	catNorm := normToken(category)

	if catNorm != "" && (catNorm == termNorm ||
		strings.Contains(catNorm, termNorm) || strings.Contains(termNorm, catNorm)) {
		return 100
	}

	if syns, ok := s.synonyms[termNorm]; ok {
		for _, syn := range syns {
			sn := normToken(syn)
			if catNorm != "" && (catNorm == sn || strings.Contains(catNorm, sn)) {
				return 80
			}
		}
	}

	// Fall back to name tokens: the business name often carries the category
	// ("Pizzería Güerrín").
	nameNorm := " " + strings.Join(tokens(name), " ") + " "
	if strings.Contains(nameNorm, " "+termNorm+" ") {
		return 60
	}
	if syns, ok := s.synonyms[termNorm]; ok {
		for _, syn := range syns {
			if strings.Contains(nameNorm, " "+normToken(syn)+" ") {
				return 40
			}
		}
	}

	return 0
}

func normToken(s string) string {
	return dedupe.NormalizeName(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
}

func tokens(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := dedupe.NormalizeName(f); t != "" {
			out = append(out, t)
		}
	}
	return out
}
