package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"righthome/internal/model"
)

func TestNextQuestionFor(t *testing.T) {
	tests := []struct {
		name string
		reqs model.RequirementMap
		want string
	}{
		{"empty asks purpose", model.RequirementMap{}, QuestionFor(model.SlotPurpose)},
		{"purpose known asks budget", model.RequirementMap{"intent": "rent"}, "What's your budget range?"},
		{"budget known asks location", model.RequirementMap{
			"intent": "buy", "priceRange": map[string]interface{}{"max": 5000000.0},
		}, QuestionFor(model.SlotLocation)},
		{"only bedrooms missing", model.RequirementMap{
			"intent": "buy", "priceRange": map[string]interface{}{"min": 1.0},
			"location": []interface{}{"Pune"}, "propertyType": []interface{}{"Villa"},
		}, QuestionFor(model.SlotBedrooms)},
		{"all known", model.RequirementMap{
			"intent": "buy", "priceRange": map[string]interface{}{"min": 1.0},
			"location": []interface{}{"Pune"}, "propertyType": []interface{}{"Villa"}, "bedrooms": 4.0,
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextQuestionFor(tt.reqs))
		})
	}
}

func TestExtractionPrompt_Bands(t *testing.T) {
	initial := ExtractionPrompt(model.NewConversationState(), "hello")
	assert.Contains(t, initial, `Always set "stage" to 2`)
	assert.Contains(t, initial, "purpose, budget, location, propertyType, bedrooms")

	refinement := ExtractionPrompt(model.ConversationState{Stage: 5, Requirements: model.RequirementMap{"intent": "buy"}}, "cheaper please")
	assert.Contains(t, refinement, `set "stage" to 6`)
	assert.Contains(t, refinement, `{"intent":"buy"}`)
	assert.Contains(t, refinement, "Return ONLY")
}

func TestReplyPrompt_GreetingSkipsKnownPurpose(t *testing.T) {
	prompt := ReplyPrompt(model.ConversationState{Stage: 1, Requirements: model.RequirementMap{"intent": "buy"}}, "hi", nil)
	assert.Contains(t, prompt, IntroLine)
	assert.NotContains(t, prompt, QuestionFor(model.SlotPurpose))
}

func TestReplyPrompt_NoCandidates(t *testing.T) {
	prompt := ReplyPrompt(model.ConversationState{Stage: 5, Requirements: model.RequirementMap{}}, "show me", nil)
	assert.Contains(t, prompt, "no exact matches yet")
	assert.Contains(t, prompt, "none yet")
	assert.Contains(t, prompt, "[]")
}
