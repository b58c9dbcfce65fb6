package service

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"righthome/internal/model"
	"righthome/internal/utils"
)

// Match reason constants
const (
	ReasonBedroomsMatch  = "Bedrooms match"
	ReasonBathroomsMatch = "Enough bathrooms"
	ReasonTypeMatch      = "Property type match"
	ReasonPriceMatch     = "Within budget"
	ReasonNewlyListed    = "Newly listed"
	ReasonGeneralMatch   = "General match"
)

// Ranker scores candidate listings against the requirement filters
type Ranker struct {
	weightMatch   float64
	weightPrice   float64
	weightRecency float64
	now           func() time.Time
}

// NewRanker creates a new ranker with specified weights
func NewRanker(weightMatch, weightPrice, weightRecency float64) *Ranker {
	return &Ranker{
		weightMatch:   weightMatch,
		weightPrice:   weightPrice,
		weightRecency: weightRecency,
		now:           time.Now,
	}
}

// RankResults scores listings and sorts them best first. Ties keep the
// input order, which carries the database ordering.
func (r *Ranker) RankResults(listings []model.Listing, filters *model.PropertyFilters) []model.ListingSearchResult {
	results := make([]model.ListingSearchResult, 0, len(listings))

	for _, listing := range listings {
		matchScore, reasons := r.matchListing(listing, filters)
		priceScore := r.calculatePriceScore(listing.Price, filters)
		recencyScore := r.calculateRecencyScore(listing.ListedAt)

		if priceScore > 0.8 && filters != nil && (filters.PriceMin != nil || filters.PriceMax != nil) {
			reasons = append(reasons, ReasonPriceMatch)
		}
		if listing.ListedAt != nil && r.now().Sub(*listing.ListedAt) < 7*24*time.Hour {
			reasons = append(reasons, ReasonNewlyListed)
		}
		if len(reasons) == 0 {
			reasons = append(reasons, ReasonGeneralMatch)
		}

		results = append(results, model.ListingSearchResult{
			Listing: listing,
			Score: (r.weightMatch * matchScore) +
				(r.weightPrice * priceScore) +
				(r.weightRecency * recencyScore),
			MatchedReasons: reasons,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results
}

// matchListing returns the share of requested criteria the listing meets
// and a reason for each one met.
func (r *Ranker) matchListing(listing model.Listing, filters *model.PropertyFilters) (float64, []string) {
	reasons := []string{}
	if filters == nil {
		return 1.0, reasons
	}

	requested, met := 0, 0
	check := func(ok bool, reason string) {
		requested++
		if ok {
			met++
			reasons = append(reasons, reason)
		}
	}

	if len(filters.PropertyTypes) > 0 {
		check(containsFold(filters.PropertyTypes, listing.PropertyType), ReasonTypeMatch)
	}
	if len(filters.Locations) > 0 {
		if loc := matchedLocation(listing, filters.Locations); loc != "" {
			check(true, "In "+loc)
		} else {
			check(false, "")
		}
	}
	if filters.Bedrooms != nil {
		check(listing.Bedrooms == *filters.Bedrooms, fmt.Sprintf("%s (%d BHK)", ReasonBedroomsMatch, listing.Bedrooms))
	}
	if filters.BathroomsMin != nil {
		check(listing.Bathrooms >= *filters.BathroomsMin, ReasonBathroomsMatch)
	}
	for _, wanted := range filters.Amenities {
		found := ""
		for _, amenity := range listing.Amenities {
			if utils.FuzzyMatchAmenity(wanted, amenity) {
				found = amenity
				break
			}
		}
		check(found != "", "Has "+found)
	}

	if requested == 0 {
		return 1.0, reasons
	}
	return float64(met) / float64(requested), reasons
}

// calculatePriceScore calculates how well the price matches the budget
func (r *Ranker) calculatePriceScore(price float64, filters *model.PropertyFilters) float64 {
	if price <= 0 {
		return 0.5
	}
	if filters == nil || (filters.PriceMin == nil && filters.PriceMax == nil) {
		return 1.0
	}

	if filters.PriceMin != nil && filters.PriceMax != nil {
		minPrice, maxPrice := *filters.PriceMin, *filters.PriceMax
		if price < minPrice || price > maxPrice {
			return 0.0
		}
		priceRange := maxPrice - minPrice
		if priceRange <= 0 {
			return 1.0
		}
		// closest to the midpoint scores highest
		midpoint := (minPrice + maxPrice) / 2
		score := 1.0 - (math.Abs(price-midpoint) / (priceRange / 2))
		return math.Max(score, 0)
	}

	if filters.PriceMin != nil {
		if price < *filters.PriceMin {
			return 0.0
		}
		return 1.0
	}

	if price > *filters.PriceMax {
		return 0.0
	}
	// closer to the ceiling is better value for the stated budget
	return math.Min(price / *filters.PriceMax, 1.0)
}

// calculateRecencyScore decays with listing age: ~0.74 after 30 days, ~0.41 after 90
func (r *Ranker) calculateRecencyScore(listedAt *time.Time) float64 {
	if listedAt == nil {
		return 0.5
	}
	days := r.now().Sub(*listedAt).Hours() / 24
	score := math.Exp(-0.01 * days)
	return math.Max(0, math.Min(score, 1.0))
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return true
		}
	}
	return false
}

func matchedLocation(listing model.Listing, locations []string) string {
	fields := []string{listing.Address}
	if listing.City != nil {
		fields = append(fields, *listing.City)
	}
	if listing.Locality != nil {
		fields = append(fields, *listing.Locality)
	}
	for _, loc := range locations {
		needle := strings.ToLower(strings.TrimSpace(loc))
		if needle == "" {
			continue
		}
		for _, field := range fields {
			if strings.Contains(strings.ToLower(field), needle) {
				return loc
			}
		}
	}
	return ""
}
