// Package metadata holds the read-only query metadata bundles: a common
// cross-domain bundle plus one bundle per business domain (attendance,
// fees, exams, staff, students). Bundles are shipped as embedded YAML,
// loaded once and never mutated.
package metadata

import (
	"fmt"
	"strings"
)

// EntityRef maps a natural-language entity name to its table and alias.
type EntityRef struct {
	Table       string `yaml:"table"`
	Alias       string `yaml:"alias"`
	Description string `yaml:"description"`
}

// TemporalPattern maps a temporal phrase to a SQL date predicate. The
// condition contains a {col} placeholder for the qualified date column.
type TemporalPattern struct {
	Condition   string `yaml:"condition"`
	Description string `yaml:"description"`
}

// Apply substitutes the qualified date column into the condition.
func (t TemporalPattern) Apply(qualifiedColumn string) string {
	return strings.ReplaceAll(t.Condition, "{col}", qualifiedColumn)
}

// Predicate is a structured WHERE fragment written against a canonical
// table name. The alias is resolved at disambiguation time from the
// semantic query's alias table, which avoids the substring-collision
// problems of textual rewriting.
type Predicate struct {
	Table  string `yaml:"table"`
	Column string `yaml:"column"`
	Op     string `yaml:"op"`
	Value  string `yaml:"value"`
}

// Render produces the SQL fragment using the resolved alias.
func (p Predicate) Render(alias string) string {
	if p.Value == "" {
		return fmt.Sprintf("%s.%s %s", alias, p.Column, p.Op)
	}
	return fmt.Sprintf("%s.%s %s %s", alias, p.Column, p.Op, p.Value)
}

// ColumnSynonym maps a query phrase to a predicate on a domain column.
type ColumnSynonym struct {
	Predicate   Predicate `yaml:"predicate"`
	Description string    `yaml:"description"`
}

// JoinTemplate describes a join between two canonical tables. The ON
// clause is written with the aliases the join introduces.
type JoinTemplate struct {
	From  string `yaml:"from"`
	To    string `yaml:"to"`
	On    string `yaml:"on"`
	Alias string `yaml:"alias"`
	Type  string `yaml:"type"`
}

// BusinessLogic is a named domain condition/join fragment that is not
// expressible as a simple column synonym (e.g. "absent" implies a join
// to attendance plus a status predicate).
type BusinessLogic struct {
	Condition   *Predicate    `yaml:"condition,omitempty"`
	Join        *JoinTemplate `yaml:"join,omitempty"`
	Description string        `yaml:"description"`
}

// QuestionPattern is a worked example used for fast intent matching.
type QuestionPattern struct {
	Pattern    string   `yaml:"pattern"`
	Intent     string   `yaml:"intent"`
	Variations []string `yaml:"variations"`
	Keywords   []string `yaml:"keywords"`
}

// CommonMetadata is the cross-domain bundle. Immutable after load.
type CommonMetadata struct {
	TemporalPatterns map[string]TemporalPattern `yaml:"temporal_patterns"`
	CountPatterns    map[string]string          `yaml:"count_patterns"`
	CommonEntities   map[string]EntityRef       `yaml:"common_entities"`
}

// DomainMetadata is one business domain's bundle. Immutable after load.
type DomainMetadata struct {
	Name             string                   `yaml:"-"`
	Table            string                   `yaml:"table"`
	Alias            string                   `yaml:"alias"`
	DateColumn       string                   `yaml:"date_column"`
	Keywords         []string                 `yaml:"keywords"`
	ColumnSynonyms   map[string]ColumnSynonym `yaml:"column_synonyms"`
	BusinessLogic    map[string]BusinessLogic `yaml:"business_logic"`
	CommonJoins      []JoinTemplate           `yaml:"common_joins"`
	QuestionPatterns []QuestionPattern        `yaml:"question_patterns"`
}
