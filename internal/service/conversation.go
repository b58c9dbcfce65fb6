package service

import (
	"context"
	"fmt"
	"time"

	"righthome/internal/config"
	"righthome/internal/logger"
	"righthome/internal/metrics"
	"righthome/internal/model"
	"righthome/internal/repository"
)

// CandidateFinder looks up properties for accumulated requirements
type CandidateFinder interface {
	FindCandidates(ctx context.Context, reqs model.RequirementMap, limit int) ([]model.ListingSearchResult, error)
}

// TurnEventCallback receives streaming turn events: requirements,
// properties, delta and done.
type TurnEventCallback func(event string, data any) error

// ConversationService runs one chat turn end to end: extraction, candidate
// lookup once recommendations are due, and the reply.
type ConversationService struct {
	store     repository.StateStore
	extractor *Extractor
	responder *Responder
	finder    CandidateFinder
	cfg       config.ChatConfig
	locks     *keyedMutex
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

// NewConversationService wires the turn pipeline. finder may be nil, in
// which case recommendation replies get no candidates.
func NewConversationService(
	store repository.StateStore,
	gateway ModelGateway,
	finder CandidateFinder,
	cfg config.ChatConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *ConversationService {
	if log == nil {
		log = logger.Nop()
	}
	s := &ConversationService{
		store:     store,
		extractor: NewExtractor(store, gateway, log, m),
		responder: NewResponder(store, gateway, log, m),
		finder:    finder,
		cfg:       cfg,
		logger:    log.With("component", "conversation"),
		metrics:   m,
	}
	if cfg.SerializeTurns {
		s.locks = newKeyedMutex()
	}
	return s
}

// AdvanceConversation runs the extraction protocol alone
func (s *ConversationService) AdvanceConversation(ctx context.Context, id, utterance string) (*model.TurnResult, error) {
	return s.extractor.AdvanceConversation(ctx, id, utterance)
}

// GenerateReply runs the reply protocol alone
func (s *ConversationService) GenerateReply(ctx context.Context, id, utterance string, candidates []model.ListingSearchResult) (string, error) {
	return s.responder.GenerateReply(ctx, id, utterance, candidates)
}

// HandleTurn processes one user utterance and returns the full chat response
func (s *ConversationService) HandleTurn(ctx context.Context, id, utterance string) (*model.ChatResponse, error) {
	startTime := time.Now()
	unlock := s.lock(id)
	defer unlock()

	band := ""
	done := s.metrics.TurnStarted()
	defer func() { done(band) }()

	turn, err := s.extractor.AdvanceConversation(ctx, id, utterance)
	if err != nil {
		return nil, err
	}
	band = model.BandOf(turn.Stage).String()

	candidates := s.candidates(ctx, id, turn)

	reply, err := s.responder.GenerateReply(ctx, id, utterance, candidates)
	if err != nil {
		return nil, err
	}

	return s.response(id, turn, reply, candidates, startTime), nil
}

// HandleTurnStream is HandleTurn delivering progress through emit
func (s *ConversationService) HandleTurnStream(ctx context.Context, id, utterance string, emit TurnEventCallback) (*model.ChatResponse, error) {
	startTime := time.Now()
	unlock := s.lock(id)
	defer unlock()

	band := ""
	done := s.metrics.TurnStarted()
	defer func() { done(band) }()

	turn, err := s.extractor.AdvanceConversation(ctx, id, utterance)
	if err != nil {
		return nil, err
	}
	band = model.BandOf(turn.Stage).String()

	if err := emit("requirements", map[string]any{
		"conversationId": id,
		"stage":          turn.Stage,
		"intent":         turn.Intent,
		"nextQuestion":   turn.NextQuestion,
		"requirements":   turn.Requirements,
		"degraded":       turn.Degraded,
	}); err != nil {
		return nil, err
	}

	candidates := s.candidates(ctx, id, turn)
	if turn.Stage >= model.StageRecommendation {
		if err := emit("properties", candidates); err != nil {
			return nil, err
		}
	}

	reply, err := s.responder.StreamReply(ctx, id, utterance, candidates, func(delta string) error {
		return emit("delta", map[string]string{"content": delta})
	})
	if err != nil {
		return nil, err
	}

	resp := s.response(id, turn, reply, candidates, startTime)
	if err := emit("done", resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetConversation returns the stored state for id
func (s *ConversationService) GetConversation(ctx context.Context, id string) (*model.ConversationResponse, error) {
	state, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation state: %w", err)
	}
	missing := state.Requirements.MissingSlots()
	if missing == nil {
		missing = []model.Slot{}
	}
	return &model.ConversationResponse{
		ConversationID: id,
		Stage:          state.Stage,
		Band:           model.BandOf(state.Stage).String(),
		Requirements:   state.Requirements,
		MissingSlots:   missing,
	}, nil
}

// ResetConversation forgets everything known about id
func (s *ConversationService) ResetConversation(ctx context.Context, id string) error {
	unlock := s.lock(id)
	defer unlock()
	return s.store.Delete(ctx, id)
}

func (s *ConversationService) lock(id string) func() {
	if s.locks == nil {
		return func() {}
	}
	return s.locks.Lock(id)
}

// candidates is best effort: a failed lookup yields an empty list and the
// reply proceeds.
func (s *ConversationService) candidates(ctx context.Context, id string, turn *model.TurnResult) []model.ListingSearchResult {
	if turn.Stage < model.StageRecommendation || s.finder == nil {
		return nil
	}

	results, err := s.finder.FindCandidates(ctx, turn.Requirements, s.cfg.CandidateLimit)
	if err != nil {
		s.metrics.CandidateSearch("error")
		s.logger.Warn("candidate search failed", "conversation_id", id, "error", err.Error())
		return []model.ListingSearchResult{}
	}
	if len(results) == 0 {
		s.metrics.CandidateSearch("empty")
	} else {
		s.metrics.CandidateSearch("found")
	}
	return results
}

func (s *ConversationService) response(
	id string,
	turn *model.TurnResult,
	reply string,
	candidates []model.ListingSearchResult,
	startTime time.Time,
) *model.ChatResponse {
	return &model.ChatResponse{
		ConversationID: id,
		Message:        reply,
		Stage:          turn.Stage,
		Intent:         turn.Intent,
		NextQuestion:   turn.NextQuestion,
		Requirements:   turn.Requirements,
		Properties:     candidates,
		Suggestions:    Suggestions(turn.Stage, turn.NextQuestion),
		Degraded:       turn.Degraded,
		Took:           time.Since(startTime).Milliseconds(),
	}
}
