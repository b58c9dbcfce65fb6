package service

import (
	"strings"

	"righthome/internal/model"
)

var stageSuggestions = map[int][]model.Suggestion{
	1: {
		{Text: "I want to buy a flat in Gurgaon", Message: "I want to buy a flat in Gurgaon"},
		{Text: "Looking for a 3BHK in Dubai under 2 Cr", Message: "Looking for a 3BHK in Dubai under 2 Cr"},
		{Text: "Show me top builder projects", Message: "Show me top builder projects"},
	},
	2: {
		{Text: "2 BHK", Message: "I'm looking for a 2 BHK"},
		{Text: "3 BHK", Message: "I need a 3 BHK"},
		{Text: "4 BHK", Message: "I want to see 4 BHK options"},
	},
	3: {
		{Text: "Under 1.5 Cr", Message: "My budget is under 1.5 Cr"},
		{Text: "1.5 Cr - 2.5 Cr", Message: "My budget is between 1.5 and 2.5 Cr"},
		{Text: "Above 2.5 Cr", Message: "My budget is more than 2.5 Cr"},
	},
	4: {
		{Text: "Good schools nearby", Message: "I need a place with good schools nearby"},
		{Text: "Close to metro", Message: "Location should be close to metro"},
		{Text: "Gated community", Message: "I prefer a gated community"},
	},
	5: {
		{Text: "Ready to move in", Message: "I want a ready to move in property"},
		{Text: "Within 6 months", Message: "Possession within 6 months would be ideal"},
		{Text: "Future possession is fine", Message: "I'm okay with future possession date"},
	},
	6: {
		{Text: "Show more options", Message: "Can you show me more options?"},
		{Text: "Different location", Message: "I'd like to look at a different location"},
		{Text: "Lower budget", Message: "These are above my budget, can you show cheaper options?"},
	},
	7: {
		{Text: "Schedule a visit", Message: "I'd like to schedule a visit"},
		{Text: "Talk to sales representative", Message: "Can I talk to a sales representative?"},
		{Text: "More details about payment plan", Message: "Tell me more about the payment plan"},
	},
}

var budgetSuggestions = []model.Suggestion{
	{Text: "Under 1 Cr", Message: "Under 1 Cr"},
	{Text: "1 Cr - 2 Cr", Message: "Between 1 Cr and 2 Cr"},
	{Text: "Above 2 Cr", Message: "Above 2 Cr"},
}

// Suggestions returns quick replies for a stage. Stages without a fixed set
// fall back to keywords in nextQuestion.
func Suggestions(stage int, nextQuestion string) []model.Suggestion {
	if s, ok := stageSuggestions[stage]; ok {
		return append([]model.Suggestion(nil), s...)
	}

	q := strings.ToLower(nextQuestion)
	switch {
	case strings.Contains(q, "budget") || strings.Contains(q, "price"):
		return append([]model.Suggestion(nil), budgetSuggestions...)
	case strings.Contains(q, "bedroom") || strings.Contains(q, "bhk"):
		return append([]model.Suggestion(nil), stageSuggestions[2]...)
	default:
		return nil
	}
}
