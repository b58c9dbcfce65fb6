package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextStage(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		reported interface{}
		want     int
	}{
		{"initial always advances to two", 1, 2.0, 2},
		{"absent keeps stage", 3, nil, 3},
		{"non numeric ignored", 3, "next", 3},
		{"numeric string accepted", 2, "3", 3},
		{"gathering increments by one", 2, 3.0, 3},
		{"skip ahead capped to one step", 2, 4.0, 3},
		{"explicit recommendation jump", 2, 5.0, 5},
		{"never decreases below five", 4, 2.0, 4},
		{"same stage holds", 3, 3.0, 3},
		{"recommendation holds", 5, 5.0, 5},
		{"recommendation to wrap up", 5, 6.0, 6},
		{"wrap up back to recommendation", 6, 5.0, 5},
		{"never below five once reached", 6, 2.0, 5},
		{"above six clamped", 5, 9.0, 6},
		{"above six clamped in gathering", 4, 42.0, 5},
		{"zero clamped to one", 1, 0.0, 1},
		{"negative clamped", 3, -2.0, 3},
		{"out of range current treated as wrap up", 9, nil, 6},
		{"out of range current treated as initial", 0, 2.0, 2},
		{"fractional rounds", 2, 2.6, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextStage(tt.current, tt.reported))
		})
	}
}

func TestParseStage(t *testing.T) {
	_, ok := parseStage(map[string]interface{}{})
	assert.False(t, ok)

	n, ok := parseStage(" 5 ")
	assert.True(t, ok)
	assert.Equal(t, 5, n)
}
