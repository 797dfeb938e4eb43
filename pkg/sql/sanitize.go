// Package sql provides sanitization and validation utilities for
// LLM-generated SQL text.
package sql

import (
	"fmt"
	"regexp"
	"strings"
)

// TenantPlaceholder is the token used in prompt worked examples in
// place of the real school id. It is substituted after sanitization so
// the raw tenant id never appears in the prompt.
const TenantPlaceholder = "{SCHOOL_ID}"

var (
	codeFencePattern = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")
	selectPattern    = regexp.MustCompile(`(?is)\bSELECT\b.*?(;|$)`)
)

// dangerousKeywords are DDL/DML keywords that must never appear in a
// generated statement.
var dangerousKeywords = []string{
	"DROP", "DELETE", "TRUNCATE", "ALTER", "CREATE",
	"INSERT", "UPDATE", "GRANT", "REVOKE",
}

// dangerousKeywordPatterns match keywords on word boundaries so column
// values like 'created_at' do not trip the check.
var dangerousKeywordPatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(dangerousKeywords))
	for i, kw := range dangerousKeywords {
		patterns[i] = regexp.MustCompile(`(?i)\b` + kw + `\b`)
	}
	return patterns
}()

// Sanitize turns raw LLM output into a single safe SELECT statement:
// code fences are stripped, the first SELECT span is extracted,
// trailing semicolons are removed, and the result is rejected if it
// contains any DDL/DML keyword or does not start with SELECT.
func Sanitize(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", fmt.Errorf("empty response")
	}

	if m := codeFencePattern.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	m := selectPattern.FindString(text)
	if m == "" {
		return "", fmt.Errorf("response does not contain a SELECT statement")
	}

	result := ValidateAndNormalize(m)
	if result.Error != nil {
		return "", result.Error
	}
	statement := result.NormalizedSQL

	for i, pattern := range dangerousKeywordPatterns {
		if pattern.MatchString(statement) {
			return "", fmt.Errorf("dangerous keyword %s in generated SQL", dangerousKeywords[i])
		}
	}

	if !strings.HasPrefix(strings.ToUpper(statement), "SELECT") {
		return "", fmt.Errorf("statement does not start with SELECT")
	}

	return statement, nil
}

// SubstituteTenant replaces the tenant placeholder with the real school
// id. Applied post-sanitization.
func SubstituteTenant(statement, tenantID string) string {
	return strings.ReplaceAll(statement, TenantPlaceholder, tenantID)
}

// ContainsDangerousKeyword reports whether any DDL/DML keyword appears
// in the statement, and which one.
func ContainsDangerousKeyword(statement string) (string, bool) {
	for i, pattern := range dangerousKeywordPatterns {
		if pattern.MatchString(statement) {
			return dangerousKeywords[i], true
		}
	}
	return "", false
}
