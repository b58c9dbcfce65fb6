package utils

import (
	"errors"
	"testing"
)

func TestExtractJSONSpan(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{
			name:   "Pure JSON",
			input:  `{"bedrooms": 3}`,
			want:   `{"bedrooms": 3}`,
			wantOK: true,
		},
		{
			name:   "Surrounding prose",
			input:  `Sure! {"bedrooms": 3} Thanks.`,
			want:   `{"bedrooms": 3}`,
			wantOK: true,
		},
		{
			name:   "Markdown code block",
			input:  "```json\n{\"intent\": \"buy\"}\n```",
			want:   `{"intent": "buy"}`,
			wantOK: true,
		},
		{
			name:   "Nested objects span to last brace",
			input:  `x {"priceRange": {"min": 1}} y`,
			want:   `{"priceRange": {"min": 1}}`,
			wantOK: true,
		},
		{
			name:   "Two objects span both",
			input:  `{"a": 1} and {"b": 2}`,
			want:   `{"a": 1} and {"b": 2}`,
			wantOK: true,
		},
		{
			name:   "No braces",
			input:  "I could not understand that.",
			wantOK: false,
		},
		{
			name:   "Closing before opening",
			input:  "} oops {",
			wantOK: false,
		},
		{
			name:   "Empty string",
			input:  "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSONSpan(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ExtractJSONSpan() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ExtractJSONSpan() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseJSONObject(t *testing.T) {
	got, err := ParseJSONObject(`Sure! {"bedrooms": 3} Thanks.`)
	if err != nil {
		t.Fatalf("ParseJSONObject() error = %v", err)
	}
	if len(got) != 1 || got["bedrooms"] != float64(3) {
		t.Errorf("ParseJSONObject() = %v, want map[bedrooms:3]", got)
	}

	empty, err := ParseJSONObject("{}")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("ParseJSONObject({}) = %v, %v, want empty map", empty, err)
	}

	failures := []string{
		"no json at all",
		`{"a": 1} and {"b": 2}`,
		`{name: "unquoted"}`,
		`{"trailing": 1,}`,
	}
	for _, input := range failures {
		if _, err := ParseJSONObject(input); !errors.Is(err, ErrExtractionFailed) {
			t.Errorf("ParseJSONObject(%q) error = %v, want ErrExtractionFailed", input, err)
		}
	}
}

func TestCompactJSON(t *testing.T) {
	if got := CompactJSON(map[string]int{"a": 1}); got != `{"a":1}` {
		t.Errorf("CompactJSON() = %s", got)
	}
	if got := CompactJSON(make(chan int)); got != "{}" {
		t.Errorf("CompactJSON(chan) = %s, want {}", got)
	}
}
