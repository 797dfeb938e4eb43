package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{
			name:     "plain select",
			input:    "SELECT * FROM students",
			expected: "SELECT * FROM students",
		},
		{
			name:     "code fence with language tag",
			input:    "```sql\nSELECT * FROM students;\n```",
			expected: "SELECT * FROM students",
		},
		{
			name:     "code fence without language tag",
			input:    "```\nSELECT id FROM students\n```",
			expected: "SELECT id FROM students",
		},
		{
			name:     "prose before the statement",
			input:    "Here is the query you asked for:\nSELECT COUNT(*) FROM students WHERE school_id = '{SCHOOL_ID}'",
			expected: "SELECT COUNT(*) FROM students WHERE school_id = '{SCHOOL_ID}'",
		},
		{
			name:     "trailing semicolon stripped",
			input:    "SELECT id FROM students;",
			expected: "SELECT id FROM students",
		},
		{
			name:    "empty response",
			input:   "",
			wantErr: true,
		},
		{
			name:    "no select statement",
			input:   "I could not produce a query for that question.",
			wantErr: true,
		},
		{
			name:    "drop statement",
			input:   "DROP TABLE students",
			wantErr: true,
		},
		{
			name:    "delete smuggled into select",
			input:   "SELECT * FROM students; DELETE FROM students",
			wantErr: true,
		},
		{
			name:    "update statement",
			input:   "UPDATE students SET first_name = 'x'",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sanitize(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSanitize_DangerousKeywordWordBoundary(t *testing.T) {
	// created_at contains "create" but must not trip the keyword check.
	got, err := Sanitize("SELECT created_at FROM students WHERE school_id = '{SCHOOL_ID}'")
	require.NoError(t, err)
	assert.Contains(t, got, "created_at")
}

func TestSubstituteTenant(t *testing.T) {
	statement := "SELECT * FROM students WHERE school_id = '{SCHOOL_ID}'"
	got := SubstituteTenant(statement, "abc-123")
	assert.Equal(t, "SELECT * FROM students WHERE school_id = 'abc-123'", got)
}

func TestContainsDangerousKeyword(t *testing.T) {
	kw, found := ContainsDangerousKeyword("SELECT 1; TRUNCATE students")
	require.True(t, found)
	assert.Equal(t, "TRUNCATE", kw)

	_, found = ContainsDangerousKeyword("SELECT updated_at FROM students")
	assert.False(t, found)
}
