package pipeline

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/jinzhu/inflection"

	"github.com/schoolgrid/schoolgrid-engine/pkg/metadata"
)

// wordPatterns caches one compiled pattern per phrase; the phrases come
// from the metadata bundles, so the set is small and fixed.
var wordPatterns sync.Map

// containsWord matches a phrase on word boundaries, so "paid" does not
// match inside "unpaid".
func containsWord(q, phrase string) bool {
	if cached, ok := wordPatterns.Load(phrase); ok {
		return cached.(*regexp.Regexp).MatchString(q)
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(phrase) + `\b`)
	wordPatterns.Store(phrase, re)
	return re.MatchString(q)
}

// defaultEntity is used when no entity phrase matches the query.
const defaultEntity = "students"

// KeywordExtractor pulls entities, a domain, a temporal phrase, filter
// terms, action verbs and modifiers out of query text. It is a pure
// function over (query, intent) given the metadata store: no network,
// no persistence, fully deterministic.
type KeywordExtractor struct {
	store *metadata.Store
}

// NewKeywordExtractor creates an extractor.
func NewKeywordExtractor(store *metadata.Store) *KeywordExtractor {
	return &KeywordExtractor{store: store}
}

// Extract scans the lower-cased query against the metadata bundles.
// The intent result, when present, supplies the domain; otherwise the
// fixed keyword table infers it.
func (e *KeywordExtractor) Extract(query string, intent *IntentResult) (*ExtractedKeywords, error) {
	q := strings.ToLower(query)

	keywords := &ExtractedKeywords{
		Entities:  e.extractEntities(q),
		Filters:   []string{},
		Actions:   []string{},
		Modifiers: []string{},
	}

	if intent != nil && intent.Domain != "" {
		keywords.Domain = intent.Domain
	} else {
		keywords.Domain = inferDomain(q)
	}

	keywords.Temporal = e.extractTemporal(q)
	keywords.Filters = e.extractFilters(q, keywords.Domain)

	// List actions are checked first; if any match, count phrases are
	// not consulted at all.
	if listActions := matchedListActions(q); len(listActions) > 0 {
		keywords.Actions = listActions
	} else {
		keywords.Actions = matchedCountActions(q)
	}

	for _, word := range modifierWords {
		if containsWord(q, word) {
			keywords.Modifiers = append(keywords.Modifiers, word)
		}
	}

	if len(keywords.Entities) == 0 {
		keywords.Entities = []string{defaultEntity}
	}

	return keywords, nil
}

// extractEntities scans common entity names (and their singular/plural
// variants) as substrings. Matches are ordered by their position in the
// query, deduplicated by table, so the entity the question leads with
// resolves the primary table. Ties break on name for determinism.
func (e *KeywordExtractor) extractEntities(q string) []string {
	common, err := e.store.Common()
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(common.CommonEntities))
	for name := range common.CommonEntities {
		names = append(names, name)
	}
	sort.Strings(names)

	type match struct {
		name string
		pos  int
	}
	byTable := make(map[string]match)
	for _, name := range names {
		pos := earliestIndex(q, name)
		if pos < 0 {
			continue
		}
		ref := common.CommonEntities[name]
		if prev, ok := byTable[ref.Table]; !ok || pos < prev.pos {
			byTable[ref.Table] = match{name: name, pos: pos}
		}
	}

	matches := make([]match, 0, len(byTable))
	for _, m := range byTable {
		matches = append(matches, m)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].pos != matches[j].pos {
			return matches[i].pos < matches[j].pos
		}
		return matches[i].name < matches[j].name
	})

	entities := make([]string, len(matches))
	for i, m := range matches {
		entities[i] = m.name
	}
	return entities
}

// earliestIndex returns the first position at which the name or one of
// its singular/plural variants occurs in the query, or -1.
func earliestIndex(q, name string) int {
	pos := -1
	for _, variant := range []string{name, inflection.Singular(name), inflection.Plural(name)} {
		if i := strings.Index(q, variant); i >= 0 && (pos < 0 || i < pos) {
			pos = i
		}
	}
	return pos
}

// extractTemporal returns the first temporal phrase found as a
// substring, in sorted key order.
func (e *KeywordExtractor) extractTemporal(q string) string {
	common, err := e.store.Common()
	if err != nil {
		return ""
	}

	phrases := make([]string, 0, len(common.TemporalPatterns))
	for phrase := range common.TemporalPatterns {
		phrases = append(phrases, phrase)
	}
	sort.Strings(phrases)

	for _, phrase := range phrases {
		if strings.Contains(q, phrase) {
			return phrase
		}
	}
	return ""
}

// extractFilters scans the domain's column synonyms and trigger
// keywords as substrings.
func (e *KeywordExtractor) extractFilters(q, domain string) []string {
	filters := []string{}
	if domain == "" {
		return filters
	}
	d, ok := e.store.Domain(domain)
	if !ok {
		return filters
	}

	terms := make([]string, 0, len(d.ColumnSynonyms))
	for term := range d.ColumnSynonyms {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	seen := make(map[string]bool)
	for _, term := range terms {
		if containsWord(q, term) && !seen[term] {
			seen[term] = true
			filters = append(filters, term)
		}
	}
	for _, kw := range d.Keywords {
		if containsWord(q, kw) && !seen[kw] {
			seen[kw] = true
			filters = append(filters, kw)
		}
	}
	return filters
}
