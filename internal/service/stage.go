package service

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"righthome/internal/model"
)

const maxStage = model.StageWrapUp

// NextStage applies the transition policy to a model-reported stage.
//
// Below the recommendation stage the dialogue only moves forward, one step
// per turn, unless the model jumps straight to recommendation. Once at or
// past recommendation it may move between 5 and 6 but never back below 5.
// A missing or non-numeric report keeps the current stage.
func NextStage(current int, reported interface{}) int {
	if current < model.StageInitial {
		current = model.StageInitial
	}
	if current > maxStage {
		current = maxStage
	}

	proposed, ok := parseStage(reported)
	if !ok {
		return current
	}
	proposed = clampStage(proposed)

	if current >= model.StageRecommendation {
		if proposed < model.StageRecommendation {
			return model.StageRecommendation
		}
		return proposed
	}

	switch {
	case proposed <= current:
		return current
	case proposed == model.StageRecommendation:
		return proposed
	case proposed > current+1:
		return current + 1
	default:
		return proposed
	}
}

func clampStage(stage int) int {
	if stage < model.StageInitial {
		return model.StageInitial
	}
	if stage > maxStage {
		return maxStage
	}
	return stage
}

// parseStage accepts JSON numbers and numeric strings such as "3" or "3.0"
func parseStage(v interface{}) (int, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		return n, true
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(math.Round(f)), true
}
