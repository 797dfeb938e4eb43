package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{
			name:     "bare object",
			input:    `{"intent": "count_students"}`,
			expected: `{"intent": "count_students"}`,
		},
		{
			name:     "object inside prose",
			input:    `Sure, here you go: {"intent": "count_students", "confidence": 0.9} Hope that helps!`,
			expected: `{"intent": "count_students", "confidence": 0.9}`,
		},
		{
			name:     "object inside code fence",
			input:    "```json\n{\"intent\": \"list_fees\"}\n```",
			expected: `{"intent": "list_fees"}`,
		},
		{
			name:     "think tags stripped",
			input:    "<think>reasoning about the question</think>\n{\"intent\": \"count_attendance\"}",
			expected: `{"intent": "count_attendance"}`,
		},
		{
			name:     "nested braces",
			input:    `{"a": {"b": 1}, "c": 2}`,
			expected: `{"a": {"b": 1}, "c": 2}`,
		},
		{
			name:     "braces inside string literal",
			input:    `{"note": "use {SCHOOL_ID} here"}`,
			expected: `{"note": "use {SCHOOL_ID} here"}`,
		},
		{
			name:     "array",
			input:    `[1, 2, 3]`,
			expected: `[1, 2, 3]`,
		},
		{
			name:    "no JSON at all",
			input:   "I cannot answer that.",
			wantErr: true,
		},
		{
			name:    "unbalanced object",
			input:   `{"intent": "count`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseJSONResponse(t *testing.T) {
	type payload struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}

	got, err := ParseJSONResponse[payload](`The classification is {"intent": "count_fees", "confidence": 0.8}.`)
	require.NoError(t, err)
	assert.Equal(t, "count_fees", got.Intent)
	assert.Equal(t, 0.8, got.Confidence)

	_, err = ParseJSONResponse[payload]("no json here")
	assert.Error(t, err)
}
