package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSemanticQuery() *SemanticQuery {
	return &SemanticQuery{
		PrimaryTable: "students",
		PrimaryAlias: "s",
		Joins: []Join{
			{Table: "attendance", Alias: "a", On: "s.id = a.student_id", Type: "INNER"},
		},
		Conditions:   []string{"s.school_id = 'sch-1'", "a.status = 'absent'"},
		SelectFields: []string{"COUNT(DISTINCT s.id) AS count"},
		IsCount:      true,
	}
}

func TestEvaluateSemanticQuery_Valid(t *testing.T) {
	e := NewEvaluator()

	result := e.EvaluateSemanticQuery(validSemanticQuery())
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestEvaluateSemanticQuery_Errors(t *testing.T) {
	e := NewEvaluator()

	t.Run("nil query", func(t *testing.T) {
		result := e.EvaluateSemanticQuery(nil)
		assert.False(t, result.Valid)
	})

	t.Run("no primary table", func(t *testing.T) {
		result := e.EvaluateSemanticQuery(&SemanticQuery{})
		assert.False(t, result.Valid)
		assert.Contains(t, result.Errors[0], "primary table")
	})

	t.Run("missing tenant predicate", func(t *testing.T) {
		sq := validSemanticQuery()
		sq.Conditions = []string{"a.status = 'absent'"}
		result := e.EvaluateSemanticQuery(sq)
		assert.False(t, result.Valid)
		assert.Contains(t, result.Errors[0], "school_id")
	})

	t.Run("join without on clause", func(t *testing.T) {
		sq := validSemanticQuery()
		sq.Joins[0].On = ""
		result := e.EvaluateSemanticQuery(sq)
		assert.False(t, result.Valid)
	})
}

func TestEvaluateSemanticQuery_Suggestions(t *testing.T) {
	e := NewEvaluator()

	sq := validSemanticQuery()
	sq.IsCount = false
	sq.SelectFields = []string{"s.first_name"}

	result := e.EvaluateSemanticQuery(sq)
	assert.True(t, result.Valid)
	assert.NotEmpty(t, result.Suggestions, "list query with joins should suggest DISTINCT")
}

func TestEvaluateSQL(t *testing.T) {
	e := NewEvaluator()

	tests := []struct {
		name      string
		statement string
		valid     bool
		errHint   string
	}{
		{
			name:      "valid count",
			statement: "SELECT COUNT(DISTINCT s.id) AS count FROM students s INNER JOIN attendance a ON s.id = a.student_id WHERE s.school_id = 'x' AND a.status = 'absent'",
			valid:     true,
		},
		{
			name:      "drop table",
			statement: "DROP TABLE students",
			valid:     false,
			errHint:   "DROP",
		},
		{
			name:      "not a select",
			statement: "WITH x AS (SELECT 1) SELECT * FROM x",
			valid:     false,
			errHint:   "SELECT",
		},
		{
			name:      "missing tenant reference",
			statement: "SELECT * FROM students",
			valid:     false,
			errHint:   "school_id",
		},
		{
			name:      "join without on",
			statement: "SELECT s.id FROM students s JOIN attendance a WHERE s.school_id = 'x'",
			valid:     false,
			errHint:   "ON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.EvaluateSQL(tt.statement)
			assert.Equal(t, tt.valid, result.Valid)
			if tt.errHint != "" {
				require.NotEmpty(t, result.Errors)
				found := false
				for _, errMsg := range result.Errors {
					if strings.Contains(strings.ToUpper(errMsg), strings.ToUpper(tt.errHint)) {
						found = true
					}
				}
				assert.True(t, found, "no error mentioning %q in %v", tt.errHint, result.Errors)
			}
		})
	}
}

func TestEvaluateSQL_Warnings(t *testing.T) {
	e := NewEvaluator()

	result := e.EvaluateSQL("SELECT * FROM students s INNER JOIN attendance a ON s.id = a.student_id WHERE s.school_id = 'x'")
	assert.True(t, result.Valid)
	assert.NotEmpty(t, result.Warnings, "SELECT * with JOIN should warn")
}

func TestEvaluateSQL_Deterministic(t *testing.T) {
	e := NewEvaluator()
	statement := "SELECT s.id FROM students s WHERE s.school_id = 'x'"

	first := e.EvaluateSQL(statement)
	second := e.EvaluateSQL(statement)
	assert.Equal(t, first, second)
}
