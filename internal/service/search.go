package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"righthome/internal/config"
	"righthome/internal/logger"
	"righthome/internal/model"
)

// PropertyRepository is the listing storage the search service reads
type PropertyRepository interface {
	SearchProperties(ctx context.Context, filters *model.PropertyFilters, queryEmbedding []float32, limit, offset int) ([]model.Listing, int, error)
	GetPropertyByID(ctx context.Context, id int64) (*model.Listing, error)
	BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string)
}

// QueryEmbedder turns search text into a vector for semantic ordering
type QueryEmbedder interface {
	EmbeddingsEnabled() bool
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// candidateOverfetch widens the database page so ranking has room to reorder
const candidateOverfetch = 3

// SearchService finds and ranks property listings
type SearchService struct {
	repo     PropertyRepository
	ranker   *Ranker
	embedder QueryEmbedder
	cfg      config.SearchConfig
	logger   *logger.Logger
}

// NewSearchService creates a new search service. embedder may be nil.
func NewSearchService(
	repo PropertyRepository,
	ranker *Ranker,
	embedder QueryEmbedder,
	cfg config.SearchConfig,
	log *logger.Logger,
) *SearchService {
	if log == nil {
		log = logger.Nop()
	}
	return &SearchService{
		repo:     repo,
		ranker:   ranker,
		embedder: embedder,
		cfg:      cfg,
		logger:   log.With("component", "search"),
	}
}

// FiltersFromRequirements maps accumulated requirements onto listing filters
func FiltersFromRequirements(reqs model.RequirementMap) *model.PropertyFilters {
	filters := &model.PropertyFilters{
		PropertyTypes: reqs.PropertyTypes(),
		Locations:     reqs.Locations(),
		Bedrooms:      reqs.Bedrooms(),
		Currency:      reqs.Currency(),
		Amenities:     reqs.Amenities(),
	}
	if baths := reqs.Bathrooms(); baths != nil {
		b := float64(*baths)
		filters.BathroomsMin = &b
	}
	filters.PriceMin, filters.PriceMax = reqs.PriceRange()
	if filters.PriceMin != nil && filters.PriceMax != nil && *filters.PriceMin > *filters.PriceMax {
		filters.PriceMin, filters.PriceMax = filters.PriceMax, filters.PriceMin
	}
	return filters
}

// FindCandidates returns up to limit ranked listings for the requirements
func (s *SearchService) FindCandidates(ctx context.Context, reqs model.RequirementMap, limit int) ([]model.ListingSearchResult, error) {
	if limit <= 0 {
		limit = 5
	}
	filters := FiltersFromRequirements(reqs)

	listings, _, err := s.repo.SearchProperties(ctx, filters, s.queryEmbedding(ctx, reqs.Summary()), limit*candidateOverfetch, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to search candidates: %w", err)
	}

	results := s.ranker.RankResults(listings, filters)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Search serves the query-string property search
func (s *SearchService) Search(ctx context.Context, query *model.PropertyQuery) (*model.PropertySearchResponse, error) {
	startTime := time.Now()

	limit := query.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if s.cfg.MaxLimit > 0 && limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}
	offset := query.Offset
	if offset < 0 {
		offset = s.cfg.DefaultOffset
	}

	filters := &model.PropertyFilters{
		Bedrooms:     query.Bedrooms,
		BathroomsMin: query.Bathrooms,
		PriceMin:     query.MinPrice,
		PriceMax:     query.MaxPrice,
	}
	if t := strings.TrimSpace(query.PropertyType); t != "" {
		filters.PropertyTypes = []string{t}
	}
	if loc := strings.TrimSpace(query.Location); loc != "" {
		filters.Locations = []string{loc}
	}

	listings, total, err := s.repo.SearchProperties(ctx, filters, nil, limit, offset)
	if err != nil {
		return nil, err
	}

	return &model.PropertySearchResponse{
		Results: s.ranker.RankResults(listings, filters),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+len(listings) < total,
		Took:    time.Since(startTime).Milliseconds(),
	}, nil
}

// GetProperty retrieves a single listing by ID; nil when absent
func (s *SearchService) GetProperty(ctx context.Context, id int64) (*model.Listing, error) {
	return s.repo.GetPropertyByID(ctx, id)
}

// UpdateEmbeddings updates embeddings for multiple listings
func (s *SearchService) UpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	return s.repo.BatchUpdateEmbeddings(ctx, items)
}

// queryEmbedding is best effort: without it results fall back to recency order
func (s *SearchService) queryEmbedding(ctx context.Context, text string) []float32 {
	if s.embedder == nil || !s.embedder.EmbeddingsEnabled() || strings.TrimSpace(text) == "" {
		return nil
	}
	vec, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		s.logger.Warn("query embedding failed, using recency order", "error", err.Error())
		return nil
	}
	return vec
}
