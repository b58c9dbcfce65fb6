package service

import (
	"fmt"
	"strings"

	"righthome/internal/model"
	"righthome/internal/utils"
)

const assistantPersona = "You are RightHome AI, a property co-pilot helping real estate customers find and shortlist homes."

// IntroLine opens every first reply
const IntroLine = "Hi, I'm your property co-pilot. Looking for a home or investment? I'll help you shortlist the best ones and book visits too."

// ClosingQuestion ends every recommendation reply
const ClosingQuestion = "Would you like to know more about any of these properties or schedule a site visit?"

// DefaultNextQuestion is asked when a turn could not be understood
const DefaultNextQuestion = "Could you provide more details about what you're looking for?"

// slotQuestions are the follow-up questions, one per requirement slot
var slotQuestions = map[model.Slot]string{
	model.SlotPurpose:      "What's your goal – personal use or investment?",
	model.SlotBudget:       "What's your budget range?",
	model.SlotLocation:     "Which city or localities are you interested in?",
	model.SlotPropertyType: "Are you looking for an apartment, house, or another property type?",
	model.SlotBedrooms:     "How many bedrooms do you need?",
}

// QuestionFor returns the follow-up question for a slot
func QuestionFor(slot model.Slot) string {
	return slotQuestions[slot]
}

// NextQuestionFor returns the question for the highest-priority missing slot,
// or "" when every slot is filled.
func NextQuestionFor(reqs model.RequirementMap) string {
	missing := reqs.MissingSlots()
	if len(missing) == 0 {
		return ""
	}
	return QuestionFor(missing[0])
}

const initialExtractionTemplate = `%s
Parse the user's first real estate message into structured preferences.

User message: %q

Return ONLY a JSON object with this shape:
{
  "intent": "buy" | "rent" | "invest" | "info",
  "propertyType": ["House", "Apartment", "Flat", "Villa", "Plot"] or null,
  "location": ["City or locality"] or null,
  "bedrooms": number or null,
  "bathrooms": number or null,
  "priceRange": {"min": number or null, "max": number or null},
  "currency": "INR" | "USD" | "AED" | null,
  "amenities": ["Pool", "Gym", "Parking", ...],
  "stage": 2,
  "nextQuestion": "one short follow-up question"
}

Rules:
- Include only what the message states or clearly implies; use null otherwise.
- Convert amounts to plain numbers: "1.5 Cr" = 15000000, "80 lakh" = 8000000, "2M" = 2000000.
- Always set "stage" to 2.
- "nextQuestion" should ask for: %s`

const gatheringExtractionTemplate = `%s
The conversation is at stage %d of gathering requirements.

Current requirements (JSON): %s

User message: %q

Update the requirements with anything new in the message and return the FULL updated JSON object,
using the same field names as the current requirements.

Rules:
- Keep every known value unless the user changes it.
- If location, property type and at least one of budget, bedrooms or purpose are known, set "stage" to 5.
- Otherwise set "stage" to %d and set "nextQuestion" to a question about the single most important missing item.
- Missing items in priority order: %s
- Return ONLY the JSON object.`

const refinementExtractionTemplate = `%s
The user has already seen recommendations (stage %d).

Current requirements (JSON): %s

User message: %q

Return the FULL updated JSON object, using the same field names as the current requirements.

Rules:
- If the user is unhappy with the options or changes a requirement, update the object and set "stage" to 5.
- If the user asks for a summary, next steps or wants to wrap up, set "stage" to 6.
- Return ONLY the JSON object.`

// ExtractionPrompt builds the requirement extraction prompt for the stored state
func ExtractionPrompt(state model.ConversationState, utterance string) string {
	reqs := state.Requirements
	switch model.BandOf(state.Stage) {
	case model.BandInitial:
		return fmt.Sprintf(initialExtractionTemplate, assistantPersona, utterance, describeMissing(reqs))
	case model.BandGathering:
		return fmt.Sprintf(gatheringExtractionTemplate,
			assistantPersona, state.Stage, utils.CompactJSON(reqs), utterance, state.Stage+1, describeMissing(reqs))
	default:
		return fmt.Sprintf(refinementExtractionTemplate,
			assistantPersona, state.Stage, utils.CompactJSON(reqs), utterance)
	}
}

const greetingReplyTemplate = `%s
The user has just started the conversation.

User message: %q

Write a short, friendly reply that:
1. Starts with exactly: "%s"
2. Responds directly to the message if you can.
3. %s`

const gatheringReplyTemplate = `%s
You are still learning what the user needs.

Known requirements: %s
User message: %q

Write a short, conversational reply that acknowledges what you have learned so far and then asks ONE question.
Pick the first question in this list whose information is still missing:
%s
Ask: %q`

const recommendationReplyTemplate = `%s
The user has shared enough for recommendations.

Requirements: %s
Matching properties (JSON):
%s

Write a friendly reply that:
1. Briefly summarizes what the user is looking for.
2. Presents %s.
3. Highlights 2-3 features of each property that match the requirements (use "matchedReasons").
4. Ends with exactly: "%s"`

const wrapUpReplyTemplate = `%s
The conversation is wrapping up.

Requirements: %s
Properties shown (JSON):
%s

Write an appreciative reply that:
1. Summarizes the requirements and the properties shown.
2. Offers to email or WhatsApp this list to you.
3. Says: "We'll keep tracking better options and alert you if prices change."
4. Invites the user to come back any time with more questions.`

// ReplyPrompt builds the reply generation prompt for the stored state
func ReplyPrompt(state model.ConversationState, utterance string, candidates []model.ListingSearchResult) string {
	reqs := state.Requirements
	switch model.BandOf(state.Stage) {
	case model.BandInitial:
		goal := "Keep it concise."
		if !reqs.HasPurpose() {
			goal = fmt.Sprintf("Ends by asking about their goal: %q", QuestionFor(model.SlotPurpose))
		}
		return fmt.Sprintf(greetingReplyTemplate, assistantPersona, utterance, IntroLine, goal)
	case model.BandGathering:
		next := NextQuestionFor(reqs)
		if next == "" {
			next = DefaultNextQuestion
		}
		return fmt.Sprintf(gatheringReplyTemplate,
			assistantPersona, summaryOrNone(reqs), utterance, questionList(), next)
	case model.BandRecommendation:
		return fmt.Sprintf(recommendationReplyTemplate,
			assistantPersona, summaryOrNone(reqs), candidatesJSON(candidates), presentCount(len(candidates)), ClosingQuestion)
	default:
		return fmt.Sprintf(wrapUpReplyTemplate,
			assistantPersona, summaryOrNone(reqs), candidatesJSON(candidates))
	}
}

func describeMissing(reqs model.RequirementMap) string {
	missing := reqs.MissingSlots()
	if len(missing) == 0 {
		return "nothing, all key details are known"
	}
	names := make([]string, len(missing))
	for i, slot := range missing {
		names[i] = string(slot)
	}
	return strings.Join(names, ", ")
}

func questionList() string {
	var b strings.Builder
	for i, slot := range model.SlotPriority {
		fmt.Fprintf(&b, "%d. %s: %q\n", i+1, slot, QuestionFor(slot))
	}
	return strings.TrimRight(b.String(), "\n")
}

func summaryOrNone(reqs model.RequirementMap) string {
	if s := reqs.Summary(); s != "" {
		return s
	}
	return "none yet"
}

func presentCount(n int) string {
	switch {
	case n == 0:
		return "no exact matches yet, so suggest relaxing one requirement"
	case n < 3:
		return fmt.Sprintf("the %d matching properties", n)
	default:
		return "3-5 of the matching properties"
	}
}

type promptCandidate struct {
	ID             int64    `json:"id"`
	Address        string   `json:"address"`
	City           string   `json:"city,omitempty"`
	PropertyType   string   `json:"propertyType"`
	Price          float64  `json:"price"`
	Currency       string   `json:"currency"`
	Bedrooms       int      `json:"bedrooms"`
	Bathrooms      float64  `json:"bathrooms"`
	Amenities      []string `json:"amenities,omitempty"`
	MatchedReasons []string `json:"matchedReasons,omitempty"`
}

func candidatesJSON(candidates []model.ListingSearchResult) string {
	out := make([]promptCandidate, 0, len(candidates))
	for _, c := range candidates {
		pc := promptCandidate{
			ID:             c.ID,
			Address:        c.Address,
			PropertyType:   c.PropertyType,
			Price:          c.Price,
			Currency:       c.Currency,
			Bedrooms:       c.Bedrooms,
			Bathrooms:      c.Bathrooms,
			Amenities:      c.Amenities,
			MatchedReasons: c.MatchedReasons,
		}
		if c.City != nil {
			pc.City = *c.City
		}
		out = append(out, pc)
	}
	pretty, err := utils.PrettyPrintJSON(out)
	if err != nil {
		return "[]"
	}
	return pretty
}
