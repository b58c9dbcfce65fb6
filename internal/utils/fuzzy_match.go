package utils

import (
	"fmt"
	"sort"
	"strings"
)

// amenityAliases maps a canonical amenity to the spellings users and listings use
var amenityAliases = map[string][]string{
	"Swimming pool":    {"swimming pool", "pool", "infinity pool", "rooftop pool", "in-ground pool"},
	"Gym":              {"gym", "gymnasium", "fitness", "fitness center", "fitness centre"},
	"Garden":           {"garden", "lawn", "backyard", "green area"},
	"Parking":          {"parking", "garage", "car park", "covered parking", "stilt parking"},
	"Clubhouse":        {"clubhouse", "club house", "community hall", "function room"},
	"Power backup":     {"power backup", "power back-up", "generator", "inverter"},
	"24-hour security": {"security", "24-hour security", "24x7 security", "gated", "gated community", "concierge"},
	"Lift":             {"lift", "elevator"},
	"Balcony":          {"balcony", "terrace", "sit-out"},
	"Play area":        {"playground", "play area", "kids play area", "children's play area"},
	"Near metro":       {"metro", "close to metro", "near metro", "metro station"},
	"Good schools":     {"school", "schools", "top-rated schools", "good schools"},
	"Modular kitchen":  {"modular kitchen", "renovated kitchen", "modern kitchen"},
	"Air conditioning": {"air conditioner", "air conditioning", "aircon", "a/c"},
}

// canonicalAmenity returns the canonical name for a term, or "" if unknown.
// Longer aliases win so that "rooftop pool" does not resolve through "pool" of another group.
func canonicalAmenity(term string) string {
	termLower := strings.ToLower(strings.TrimSpace(term))
	if termLower == "" {
		return ""
	}
	best, bestLen := "", 0
	for canonical, aliases := range amenityAliases {
		for _, alias := range aliases {
			if (termLower == alias || strings.Contains(termLower, alias)) && len(alias) > bestLen {
				best, bestLen = canonical, len(alias)
			}
		}
	}
	return best
}

// FuzzyMatchAmenity performs fuzzy matching for amenity names
// Returns true if the search term fuzzy matches the amenity
func FuzzyMatchAmenity(searchTerm, amenity string) bool {
	searchLower := strings.ToLower(strings.TrimSpace(searchTerm))
	amenityLower := strings.ToLower(strings.TrimSpace(amenity))
	if searchLower == "" || amenityLower == "" {
		return false
	}

	if searchLower == amenityLower || strings.Contains(amenityLower, searchLower) {
		return true
	}

	canonical := canonicalAmenity(searchLower)
	return canonical != "" && canonical == canonicalAmenity(amenityLower)
}

// NormalizeAmenity normalizes amenity names to standard form
func NormalizeAmenity(amenity string) string {
	if canonical := canonicalAmenity(amenity); canonical != "" {
		return canonical
	}
	trimmed := strings.TrimSpace(amenity)
	if trimmed == "" {
		return ""
	}
	return strings.ToUpper(trimmed[:1]) + strings.ToLower(trimmed[1:])
}

// BuildFuzzyAmenityQuery builds JSONB conditions for fuzzy amenity matching.
// Each search term becomes one EXISTS condition over the amenities array whose
// ILIKE patterns cover every alias of the term. Placeholders start at paramIndex;
// the next free index is returned.
func BuildFuzzyAmenityQuery(searchTerms []string, paramIndex int) ([]string, []interface{}, int) {
	if len(searchTerms) == 0 {
		return nil, nil, paramIndex
	}

	var conditions []string
	var params []interface{}

	for _, term := range searchTerms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}

		patterns := []string{term}
		if canonical := canonicalAmenity(term); canonical != "" {
			patterns = append([]string(nil), amenityAliases[canonical]...)
			sort.Strings(patterns)
		}

		orConditions := make([]string, 0, len(patterns))
		for _, pattern := range patterns {
			orConditions = append(orConditions, fmt.Sprintf("elem ILIKE $%d", paramIndex))
			params = append(params, "%"+pattern+"%")
			paramIndex++
		}

		conditions = append(conditions,
			"EXISTS (SELECT 1 FROM jsonb_array_elements_text(amenities) elem WHERE "+strings.Join(orConditions, " OR ")+")")
	}

	return conditions, params, paramIndex
}
