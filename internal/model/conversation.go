package model

// Conventional stage values
const (
	StageInitial        = 1
	StageRecommendation = 5
	StageWrapUp         = 6
)

// StageBand groups stages that share prompts and fallbacks
type StageBand int

const (
	BandInitial StageBand = iota + 1
	BandGathering
	BandRecommendation
	BandWrapUp
)

// BandOf maps any stage, including out-of-range values, to its band:
// anything at or below 1 is initial and anything at or above 6 is wrap-up.
func BandOf(stage int) StageBand {
	switch {
	case stage <= StageInitial:
		return BandInitial
	case stage < StageRecommendation:
		return BandGathering
	case stage == StageRecommendation:
		return BandRecommendation
	default:
		return BandWrapUp
	}
}

func (b StageBand) String() string {
	switch b {
	case BandInitial:
		return "initial"
	case BandGathering:
		return "gathering"
	case BandRecommendation:
		return "recommendation"
	case BandWrapUp:
		return "wrap_up"
	default:
		return "unknown"
	}
}

// ConversationState is what the engine knows about one conversation
type ConversationState struct {
	Stage        int            `json:"stage"`
	Requirements RequirementMap `json:"requirements"`
}

// NewConversationState returns the state of a conversation never seen before
func NewConversationState() ConversationState {
	return ConversationState{Stage: StageInitial, Requirements: RequirementMap{}}
}

// TurnResult is the outcome of advancing a conversation by one utterance
type TurnResult struct {
	Requirements RequirementMap `json:"requirements"`
	Intent       Intent         `json:"intent"`
	Stage        int            `json:"stage"`
	NextQuestion string         `json:"nextQuestion,omitempty"`
	// Degraded is set when the model call or JSON recovery failed and the
	// stored state was left untouched.
	Degraded bool `json:"degraded,omitempty"`
}
