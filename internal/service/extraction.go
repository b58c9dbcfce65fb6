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
	"righthome/internal/utils"
)

// Extractor turns utterances into accumulated requirements and stage moves
type Extractor struct {
	store   repository.StateStore
	gateway ModelGateway
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewExtractor creates an extractor. log and m may be nil.
func NewExtractor(store repository.StateStore, gateway ModelGateway, log *logger.Logger, m *metrics.Metrics) *Extractor {
	if log == nil {
		log = logger.Nop()
	}
	return &Extractor{
		store:   store,
		gateway: gateway,
		logger:  log.With("component", "extractor"),
		metrics: m,
	}
}

// AdvanceConversation reads the stored state for id, asks the model to fold
// utterance into the requirements, and stores the merged result.
//
// Model failures and unparseable output leave the state untouched and yield a
// degraded result with a nil error. Only ErrUnconfigured and state store
// failures are returned.
func (e *Extractor) AdvanceConversation(ctx context.Context, id, utterance string) (*model.TurnResult, error) {
	state, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation state: %w", err)
	}

	prompt := ExtractionPrompt(state, utterance)

	started := time.Now()
	raw, err := e.gateway.Generate(ctx, prompt)
	e.metrics.ObserveGatewayCall("extraction", FailureKind(err), started)
	if err != nil {
		if errors.Is(err, ErrUnconfigured) {
			e.logger.Error("model gateway not configured", "conversation_id", id)
			return nil, err
		}
		return e.degraded(id, state, err), nil
	}

	update, err := utils.ParseJSONObject(raw)
	if err != nil {
		return e.degraded(id, state, err), nil
	}

	merged := state.Requirements.Merge(update)
	stage := NextStage(state.Stage, update[model.KeyStage])

	if err := e.store.Put(ctx, id, stage, merged); err != nil {
		return nil, fmt.Errorf("failed to store conversation state: %w", err)
	}

	nextQuestion := ""
	if q, ok := update[model.KeyNextQuestion].(string); ok {
		nextQuestion = strings.TrimSpace(q)
	}
	if nextQuestion == "" && stage < model.StageRecommendation {
		nextQuestion = NextQuestionFor(merged)
	}

	e.logger.Debug("conversation advanced",
		"conversation_id", id,
		"from_stage", state.Stage,
		"to_stage", stage,
		"intent", string(merged.Intent()))

	return &model.TurnResult{
		Requirements: merged,
		Intent:       merged.Intent(),
		Stage:        stage,
		NextQuestion: nextQuestion,
	}, nil
}

func (e *Extractor) degraded(id string, state model.ConversationState, cause error) *model.TurnResult {
	kind := FailureKind(cause)
	e.metrics.ExtractionFallback(kind)
	e.logger.Warn("requirement extraction degraded",
		"conversation_id", id,
		"stage", state.Stage,
		"cause", kind,
		"error", cause.Error())

	return &model.TurnResult{
		Requirements: state.Requirements,
		Intent:       model.IntentUnknown,
		Stage:        state.Stage,
		NextQuestion: DefaultNextQuestion,
		Degraded:     true,
	}
}
