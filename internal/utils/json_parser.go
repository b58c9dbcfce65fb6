package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrExtractionFailed is returned when model output holds no parseable JSON object
var ErrExtractionFailed = errors.New("extraction failed")

// ExtractJSONSpan returns the substring from the first '{' to the last '}'
// of input, inclusive. Surrounding prose and markdown fences are tolerated;
// nothing inside the span is repaired.
func ExtractJSONSpan(input string) (string, bool) {
	start := strings.Index(input, "{")
	end := strings.LastIndex(input, "}")
	if start < 0 || end < start {
		return "", false
	}
	return input[start : end+1], true
}

// ParseJSONObject extracts the JSON object span from model output and decodes it.
// Failures wrap ErrExtractionFailed.
func ParseJSONObject(input string) (map[string]interface{}, error) {
	span, ok := ExtractJSONSpan(input)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in output: %s", ErrExtractionFailed, truncateString(input, 100))
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(span), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if obj == nil {
		obj = map[string]interface{}{}
	}
	return obj, nil
}

// PrettyPrintJSON formats JSON with indentation
func PrettyPrintJSON(v interface{}) (string, error) {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CompactJSON marshals v on one line, falling back to "{}" when it cannot be encoded
func CompactJSON(v interface{}) string {
	bytes, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(bytes)
}

// truncateString truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
