package pipeline

import "strings"

// The count-vs-list decision used to live in three places (intent
// fallback, keyword extraction, disambiguation) with slightly different
// rules. This file is the single authoritative predicate all three now
// share: list cues always win over count cues, and a request for a
// specific field forces a list even when the literal word "count"
// appears.

// listActionPhrases are checked first, in order. If any match, count
// phrases are not consulted at all.
var listActionPhrases = []string{
	"which", "who", "list", "show", "find", "get", "display", "give me",
}

// countActionPhrases are bare counting cues.
var countActionPhrases = []string{"how many", "number of", "count"}

// explicitFieldCues are field requests that always force a list intent.
var explicitFieldCues = []string{"contact", "phone", "name", "address", "parent"}

// modifierWords is the fixed modifier vocabulary.
var modifierWords = []string{
	"top", "best", "highest", "lowest", "new", "recent",
	"active", "pending", "unpaid", "overdue",
}

// matchedListActions returns the list-action phrases present in the
// lower-cased query, in checking order.
func matchedListActions(query string) []string {
	var matched []string
	for _, phrase := range listActionPhrases {
		if strings.Contains(query, phrase) {
			matched = append(matched, phrase)
		}
	}
	return matched
}

// matchedCountActions returns the count-action phrases present in the
// lower-cased query.
func matchedCountActions(query string) []string {
	var matched []string
	for _, phrase := range countActionPhrases {
		if strings.Contains(query, phrase) {
			matched = append(matched, phrase)
		}
	}
	return matched
}

// hasExplicitFieldCue reports whether the query asks for a specific
// field (contact, phone, name, address, parent).
func hasExplicitFieldCue(query string) bool {
	for _, cue := range explicitFieldCues {
		if strings.Contains(query, cue) {
			return true
		}
	}
	return false
}

// isCountQuery is the shared predicate: the query counts only when a
// bare count phrase is present, no list verb appears anywhere, and no
// explicit field is requested.
func isCountQuery(query string) bool {
	q := strings.ToLower(query)
	if hasExplicitFieldCue(q) {
		return false
	}
	if len(matchedListActions(q)) > 0 {
		return false
	}
	return len(matchedCountActions(q)) > 0
}

// domainKeywordTable is the fixed fallback table for domain inference,
// checked in order; the first domain with a matching keyword wins.
var domainKeywordTable = []struct {
	domain string
	words  []string
}{
	{"attendance", []string{"attendance", "absent", "present", "late", "leave"}},
	{"fees", []string{"fee", "fees", "payment", "dues", "unpaid", "overdue", "defaulter"}},
	{"exams", []string{"exam", "marks", "result", "grade", "score", "topper"}},
	{"staff", []string{"teacher", "staff", "employee", "department"}},
	{"students", []string{"student", "admission", "roll"}},
}

// inferDomain maps a lower-cased query to a domain by substring match,
// defaulting to students.
func inferDomain(query string) string {
	for _, entry := range domainKeywordTable {
		for _, word := range entry.words {
			if strings.Contains(query, word) {
				return entry.domain
			}
		}
	}
	return "students"
}
