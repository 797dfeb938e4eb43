package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	sqlutil "github.com/schoolgrid/schoolgrid-engine/pkg/sql"
)

// tenantColumn is the column every generated statement must reference.
const tenantColumn = "school_id"

// Evaluator statically validates semantic queries and generated SQL
// text. Both checks are rule-based, side-effect-free and deterministic:
// evaluating the same input twice yields identical results.
type Evaluator struct{}

// NewEvaluator creates an evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

var joinPattern = regexp.MustCompile(`(?i)\bJOIN\b`)
var onPattern = regexp.MustCompile(`(?i)\bON\b`)
var fromPattern = regexp.MustCompile(`(?i)\bFROM\b`)

// EvaluateSemanticQuery checks the structural invariants of a semantic
// query before SQL generation.
func (e *Evaluator) EvaluateSemanticQuery(sq *SemanticQuery) *ValidationResult {
	result := &ValidationResult{}

	if sq == nil || sq.PrimaryTable == "" {
		result.Errors = append(result.Errors, "no primary table resolved")
		return finish(result)
	}

	if !hasTenantCondition(sq.Conditions) {
		result.Errors = append(result.Errors,
			fmt.Sprintf("missing tenant isolation predicate on %s", tenantColumn))
	}

	for _, j := range sq.Joins {
		if strings.TrimSpace(j.On) == "" {
			result.Errors = append(result.Errors,
				fmt.Sprintf("join to %s has no ON clause", j.Table))
		}
	}

	if len(sq.Conditions) == 0 {
		result.Warnings = append(result.Warnings, "query has no conditions")
	}

	if len(sq.Joins) > 0 && !sq.IsCount && !selectsDistinct(sq.SelectFields) {
		result.Suggestions = append(result.Suggestions,
			"joins can duplicate rows; consider SELECT DISTINCT")
	}
	if !sq.IsCount && sq.OrderBy == "" {
		result.Suggestions = append(result.Suggestions, "consider adding ORDER BY")
	}
	if !sq.IsCount && sq.Limit == 0 {
		result.Suggestions = append(result.Suggestions, "consider adding a LIMIT")
	}

	return finish(result)
}

// EvaluateSQL checks generated SQL text for safety and tenant
// isolation. Pure function of its input.
func (e *Evaluator) EvaluateSQL(statement string) *ValidationResult {
	result := &ValidationResult{}
	trimmed := strings.TrimSpace(statement)
	upper := strings.ToUpper(trimmed)

	if !strings.HasPrefix(upper, "SELECT") {
		result.Errors = append(result.Errors, "statement does not start with SELECT")
	}

	if kw, found := sqlutil.ContainsDangerousKeyword(trimmed); found {
		result.Errors = append(result.Errors,
			fmt.Sprintf("dangerous keyword %s is not allowed", kw))
		return finish(result)
	}

	if !strings.Contains(strings.ToLower(trimmed), tenantColumn) {
		result.Errors = append(result.Errors,
			fmt.Sprintf("statement does not reference %s", tenantColumn))
	}

	joins := len(joinPattern.FindAllString(trimmed, -1))
	ons := len(onPattern.FindAllString(trimmed, -1))
	if joins > ons {
		result.Errors = append(result.Errors, "JOIN without ON clause")
	}

	if joins > 0 && strings.Contains(upper, "SELECT *") {
		result.Warnings = append(result.Warnings, "SELECT * with JOIN duplicates columns")
	}

	froms := len(fromPattern.FindAllString(trimmed, -1))
	if froms+joins > 1 && !strings.Contains(upper, "WHERE") {
		result.Warnings = append(result.Warnings,
			"multiple tables with no WHERE clause; possible cross product")
	}

	if joins > 0 && !strings.Contains(upper, "DISTINCT") && !strings.Contains(upper, "COUNT") {
		result.Warnings = append(result.Warnings,
			"JOIN without DISTINCT may return duplicate rows")
	}

	return finish(result)
}

func hasTenantCondition(conditions []string) bool {
	for _, c := range conditions {
		if strings.Contains(strings.ToLower(c), tenantColumn) {
			return true
		}
	}
	return false
}

func selectsDistinct(fields []string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToUpper(f), "DISTINCT") {
			return true
		}
	}
	return false
}

// finish sets Valid and a summary message. Valid is exactly "no
// errors"; warnings and suggestions are advisory.
func finish(result *ValidationResult) *ValidationResult {
	result.Valid = len(result.Errors) == 0
	switch {
	case !result.Valid:
		result.Message = fmt.Sprintf("validation failed: %s", strings.Join(result.Errors, "; "))
	case len(result.Warnings) > 0:
		result.Message = fmt.Sprintf("valid with %d warning(s)", len(result.Warnings))
	default:
		result.Message = "valid"
	}
	return result
}
