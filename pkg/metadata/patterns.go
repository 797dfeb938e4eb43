package metadata

import (
	"regexp"
	"strings"
)

// PatternMatch is the result of scoring worked question patterns
// against a query.
type PatternMatch struct {
	Domain  string
	Pattern QuestionPattern
	Score   float64
}

// looseRegexScore is the flat score awarded when the query only matches
// the pattern template's wildcard form.
const looseRegexScore = 0.7

// FindMatchingPattern scores every domain's worked question patterns
// against the query and returns the best match. An exact
// case-insensitive hit on a variation scores 1.0 and returns
// immediately. Otherwise each pattern is scored by substring overlap
// (min/max length), keyword-set overlap (matched/total) and a loose
// regex built from the pattern template; the highest score across all
// domains wins, ties keeping the first found. Domains are visited in
// sorted order so results are deterministic.
func (s *Store) FindMatchingPattern(query string) (*PatternMatch, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, false
	}

	var best *PatternMatch

	for _, name := range s.Domains() {
		domain := s.domains[name]
		for _, pattern := range domain.QuestionPatterns {
			for _, variation := range pattern.Variations {
				if strings.EqualFold(strings.TrimSpace(variation), q) {
					return &PatternMatch{Domain: name, Pattern: pattern, Score: 1.0}, true
				}
			}

			score := scorePattern(q, pattern)
			if score > 0 && (best == nil || score > best.Score) {
				best = &PatternMatch{Domain: name, Pattern: pattern, Score: score}
			}
		}
	}

	if best == nil {
		return nil, false
	}
	return best, true
}

// scorePattern computes the best non-exact score for one pattern.
func scorePattern(query string, pattern QuestionPattern) float64 {
	var best float64

	for _, variation := range pattern.Variations {
		v := strings.ToLower(strings.TrimSpace(variation))
		if v == "" {
			continue
		}
		if strings.Contains(query, v) || strings.Contains(v, query) {
			score := overlapRatio(len(query), len(v))
			if score > best {
				best = score
			}
		}
	}

	if len(pattern.Keywords) > 0 {
		matched := 0
		for _, kw := range pattern.Keywords {
			if strings.Contains(query, strings.ToLower(kw)) {
				matched++
			}
		}
		score := float64(matched) / float64(len(pattern.Keywords))
		if score > best {
			best = score
		}
	}

	if re := looseRegex(pattern.Pattern); re != nil && re.MatchString(query) {
		if looseRegexScore > best {
			best = looseRegexScore
		}
	}

	return best
}

func overlapRatio(a, b int) float64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a < b {
		return float64(a) / float64(b)
	}
	return float64(b) / float64(a)
}

// looseRegex turns a pattern template into a case-insensitive regex:
// parenthesized spans become wildcards, everything else is matched
// literally. Returns nil for templates that produce an invalid regex.
func looseRegex(template string) *regexp.Regexp {
	if template == "" {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("(?i)")

	depth := 0
	var literal strings.Builder
	for _, r := range template {
		switch r {
		case '(':
			if depth == 0 {
				sb.WriteString(regexp.QuoteMeta(literal.String()))
				literal.Reset()
				sb.WriteString(".*")
			}
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				literal.WriteRune(r)
			}
		}
	}
	sb.WriteString(regexp.QuoteMeta(literal.String()))

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil
	}
	return re
}
