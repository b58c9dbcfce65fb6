package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"righthome/internal/model"
)

type fakeReply struct {
	text string
	err  error
}

// fakeGateway answers prompts from a script, or from fn when set
type fakeGateway struct {
	mu      sync.Mutex
	replies []fakeReply
	fn      func(prompt string) (string, error)
	prompts []string
}

func scripted(replies ...fakeReply) *fakeGateway {
	return &fakeGateway{replies: replies}
}

func (f *fakeGateway) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	fn := f.fn
	if fn == nil {
		defer f.mu.Unlock()
		if len(f.replies) == 0 {
			return "", gatewayError(ErrUnavailable, 0, errors.New("no scripted reply"))
		}
		r := f.replies[0]
		f.replies = f.replies[1:]
		return r.text, r.err
	}
	f.mu.Unlock()
	return fn(prompt)
}

func (f *fakeGateway) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

func (f *fakeGateway) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// fakeStreamingGateway splits replies on spaces and streams the pieces
type fakeStreamingGateway struct {
	*fakeGateway
	failAfter int // stream this many pieces then fail; 0 streams everything
}

func (f *fakeStreamingGateway) GenerateStream(ctx context.Context, prompt string, onDelta func(string) error) (string, error) {
	text, err := f.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	var full strings.Builder
	for i, piece := range strings.SplitAfter(text, " ") {
		if f.failAfter > 0 && i == f.failAfter {
			return full.String(), gatewayError(ErrUnavailable, 0, errors.New("stream reset"))
		}
		full.WriteString(piece)
		if err := onDelta(piece); err != nil {
			return full.String(), err
		}
	}
	return full.String(), nil
}

func isExtractionPrompt(prompt string) bool {
	return strings.Contains(prompt, "Return ONLY")
}

// failingStore fails every operation
type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) Get(context.Context, string) (model.ConversationState, error) {
	return model.ConversationState{}, errStoreDown
}

func (failingStore) Put(context.Context, string, int, model.RequirementMap) error {
	return errStoreDown
}

func (failingStore) Delete(context.Context, string) error {
	return errStoreDown
}

// fakeFinder returns fixed candidates and records the requirements it saw
type fakeFinder struct {
	mu      sync.Mutex
	results []model.ListingSearchResult
	err     error
	seen    []model.RequirementMap
}

func (f *fakeFinder) FindCandidates(_ context.Context, reqs model.RequirementMap, limit int) ([]model.ListingSearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, reqs)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) > limit {
		return f.results[:limit], nil
	}
	return f.results, nil
}

func strPtr(s string) *string { return &s }

func sampleCandidates() []model.ListingSearchResult {
	return []model.ListingSearchResult{
		{
			Listing: model.Listing{
				ID: 1, Address: "DLF Camellias, Golf Course Road", City: strPtr("Gurgaon"),
				PropertyType: "Flat", Price: 14500000, Currency: "INR", Bedrooms: 3, Bathrooms: 3,
				Amenities: model.JSONArray{"Swimming pool", "Gym"},
			},
			Score:          0.9,
			MatchedReasons: []string{"Bedrooms match (3 BHK)", "In Gurgaon", "Within budget"},
		},
		{
			Listing: model.Listing{
				ID: 2, Address: "M3M Golf Estate, Sector 65", City: strPtr("Gurgaon"),
				PropertyType: "Flat", Price: 13000000, Currency: "INR", Bedrooms: 3, Bathrooms: 2,
				Amenities: model.JSONArray{"Clubhouse"},
			},
			Score:          0.8,
			MatchedReasons: []string{"Bedrooms match (3 BHK)", "In Gurgaon"},
		},
	}
}
