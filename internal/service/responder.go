package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"righthome/internal/logger"
	"righthome/internal/metrics"
	"righthome/internal/model"
	"righthome/internal/repository"
)

// Responder writes the assistant's reply for the current stage
type Responder struct {
	store   repository.StateStore
	gateway ModelGateway
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewResponder creates a responder. log and m may be nil.
func NewResponder(store repository.StateStore, gateway ModelGateway, log *logger.Logger, m *metrics.Metrics) *Responder {
	if log == nil {
		log = logger.Nop()
	}
	return &Responder{
		store:   store,
		gateway: gateway,
		logger:  log.With("component", "responder"),
		metrics: m,
	}
}

// GenerateReply returns the reply for utterance given the stored state and
// the candidate properties. Model failures other than ErrUnconfigured fall
// back to a canned reply for the stage.
func (r *Responder) GenerateReply(ctx context.Context, id, utterance string, candidates []model.ListingSearchResult) (string, error) {
	state, err := r.store.Get(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to read conversation state: %w", err)
	}

	started := time.Now()
	reply, err := r.gateway.Generate(ctx, ReplyPrompt(state, utterance, candidates))
	r.metrics.ObserveGatewayCall("reply", FailureKind(err), started)
	if err != nil {
		return r.fallback(id, state.Stage, len(candidates), err)
	}

	return strings.TrimSpace(reply), nil
}

// StreamReply is GenerateReply with incremental delivery when the gateway
// supports streaming. Fallback text is delivered as a single delta.
func (r *Responder) StreamReply(
	ctx context.Context,
	id, utterance string,
	candidates []model.ListingSearchResult,
	onDelta func(string) error,
) (string, error) {
	streamer, ok := r.gateway.(StreamingGateway)
	if !ok {
		reply, err := r.GenerateReply(ctx, id, utterance, candidates)
		if err != nil {
			return "", err
		}
		return reply, onDelta(reply)
	}

	state, err := r.store.Get(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to read conversation state: %w", err)
	}

	sent := false
	started := time.Now()
	reply, err := streamer.GenerateStream(ctx, ReplyPrompt(state, utterance, candidates), func(delta string) error {
		sent = true
		return onDelta(delta)
	})
	r.metrics.ObserveGatewayCall("reply", FailureKind(err), started)
	if err == nil {
		return strings.TrimSpace(reply), nil
	}
	if sent && !errors.Is(err, ErrUnconfigured) {
		// part of the reply already reached the client; keep what was sent
		r.logger.Warn("reply stream interrupted", "conversation_id", id, "error", err.Error())
		return strings.TrimSpace(reply), nil
	}

	fallback, ferr := r.fallback(id, state.Stage, len(candidates), err)
	if ferr != nil {
		return "", ferr
	}
	return fallback, onDelta(fallback)
}

func (r *Responder) fallback(id string, stage, candidateCount int, cause error) (string, error) {
	if errors.Is(cause, ErrUnconfigured) {
		r.logger.Error("model gateway not configured", "conversation_id", id)
		return "", cause
	}

	band := model.BandOf(stage)
	r.metrics.ReplyFallback(band.String())
	r.logger.Warn("reply generation degraded",
		"conversation_id", id,
		"stage", stage,
		"cause", FailureKind(cause),
		"error", cause.Error())

	return FallbackReply(stage, candidateCount), nil
}

// FallbackReply is the canned reply for a stage when the model is unavailable
func FallbackReply(stage, candidateCount int) string {
	switch model.BandOf(stage) {
	case model.BandInitial:
		return IntroLine + " What type of property are you looking for?"
	case model.BandGathering:
		return "Thanks for that information. Could you tell me more about your budget range and location preferences?"
	case model.BandRecommendation:
		return fmt.Sprintf("I found %d properties matching your criteria. %s", candidateCount, ClosingQuestion)
	default:
		return "Thank you for your interest. I've noted your preferences and will keep you updated on new properties that match your criteria."
	}
}
