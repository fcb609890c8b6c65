package livability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractScore(t *testing.T) {
	tests := []struct {
		name        string
		reply       string
		score       float64
		explanation string
	}{
		{
			name:        "trailing object after prose",
			reply:       `Reasoning... {"score": 72, "explanation": "Good schools, moderate crime."}`,
			score:       72,
			explanation: "Good schools, moderate crime.",
		},
		{
			name:        "bare object",
			reply:       `{"score": 88.5, "explanation": "Walkable."}`,
			score:       88.5,
			explanation: "Walkable.",
		},
		{
			name:        "only the last object counts",
			reply:       `Draft {"score": 10, "explanation": "draft"} final {"score": 55, "explanation": "final"} done`,
			score:       55,
			explanation: "final",
		},
		{
			name:        "numeric string score",
			reply:       `{"score": "64", "explanation": "ok"}`,
			score:       64,
			explanation: "ok",
		},
		{
			name:        "extra keys are ignored",
			reply:       `{"score": 0, "explanation": "", "confidence": "low"}`,
			score:       0,
			explanation: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractScore(tt.reply)
			require.NoError(t, err)
			assert.Equal(t, tt.score, got.Score)
			assert.Equal(t, tt.explanation, got.Explanation)
		})
	}
}

func TestExtractScoreUnparseable(t *testing.T) {
	replies := map[string]string{
		"no braces":            "I cannot score this location.",
		"close before open":    `} score 50 {`,
		"only open":            `{"score": 50`,
		"nested object":        `{"score": 50, "explanation": "x", "detail": {"a": 1}}`,
		"missing score":        `{"explanation": "x"}`,
		"missing explanation":  `{"score": 50}`,
		"non-numeric score":    `{"score": "high", "explanation": "x"}`,
		"explanation not text": `{"score": 50, "explanation": 3}`,
		"empty":                "",
	}

	for name, reply := range replies {
		t.Run(name, func(t *testing.T) {
			_, err := ExtractScore(reply)
			assert.ErrorIs(t, err, ErrUnparseableReply)
		})
	}
}
