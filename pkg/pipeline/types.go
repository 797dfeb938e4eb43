// Package pipeline implements the five-stage natural-language-to-SQL
// query pipeline: intent classification, keyword extraction,
// disambiguation into a semantic query, prompt-driven SQL generation
// with error-feedback retry, and rule-based validation, sequenced by an
// orchestrator that can pause for user clarification and streams
// progress events.
package pipeline

import "fmt"

// Pipeline stage names used in progress events and errors.
const (
	StageIntent        = "intent"
	StageKeywords      = "keywords"
	StageDisambiguate  = "disambiguate"
	StageGenerate      = "generate"
	StageValidate      = "validate"
	StageExecute       = "execute"
	StageClarification = "clarification"
	StageAnswer        = "answer"
	StageError         = "error"
)

// IntentConversational marks questions that do not require data
// retrieval; they are answered directly by the streaming LLM branch.
const IntentConversational = "conversational"

// IntentResult is the outcome of intent classification. When
// NeedsClarification is set the pipeline stops before keyword
// extraction and surfaces the question to the user.
type IntentResult struct {
	Intent                string   `json:"intent"`
	Domain                string   `json:"domain,omitempty"`
	Confidence            float64  `json:"confidence"`
	NeedsClarification    bool     `json:"needs_clarification"`
	ClarificationQuestion string   `json:"clarification_question,omitempty"`
	ClarificationOptions  []string `json:"clarification_options,omitempty"`
	Reasoning             string   `json:"reasoning,omitempty"`
}

// ExtractedKeywords is the keyword extractor's output. Entities is
// never empty; it defaults to ["students"] when nothing matches.
type ExtractedKeywords struct {
	Entities  []string `json:"entities"`
	Domain    string   `json:"domain,omitempty"`
	Temporal  string   `json:"temporal,omitempty"`
	Filters   []string `json:"filters,omitempty"`
	Actions   []string `json:"actions,omitempty"`
	Modifiers []string `json:"modifiers,omitempty"`
}

// Join is a resolved join in a semantic query.
type Join struct {
	Table string `json:"table"`
	Alias string `json:"alias"`
	On    string `json:"on"`
	Type  string `json:"type"`
}

// SemanticQuery is the intermediate table/join/predicate representation
// between natural language and literal SQL. Conditions[0] is always the
// tenant-isolation predicate.
type SemanticQuery struct {
	PrimaryTable string   `json:"primary_table"`
	PrimaryAlias string   `json:"primary_alias"`
	Joins        []Join   `json:"joins,omitempty"`
	Conditions   []string `json:"conditions"`
	SelectFields []string `json:"select_fields"`
	OrderBy      string   `json:"order_by,omitempty"`
	GroupBy      []string `json:"group_by,omitempty"`
	Limit        int      `json:"limit,omitempty"`
	IsCount      bool     `json:"is_count"`

	// aliases resolves canonical table names to the aliases in play,
	// replacing textual alias rewriting with a structured lookup.
	aliases map[string]string
}

// AliasFor returns the alias for a canonical table name, falling back
// to the table name itself when the table is not part of the query.
func (q *SemanticQuery) AliasFor(table string) string {
	if alias, ok := q.aliases[table]; ok {
		return alias
	}
	return table
}

// HasJoin reports whether a join with the given alias is present.
func (q *SemanticQuery) HasJoin(alias string) bool {
	for _, j := range q.Joins {
		if j.Alias == alias {
			return true
		}
	}
	return false
}

// ValidationResult is the evaluator's verdict. Valid is true exactly
// when Errors is empty; warnings and suggestions never block execution.
type ValidationResult struct {
	Valid       bool     `json:"valid"`
	Errors      []string `json:"errors,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Message     string   `json:"message,omitempty"`
}

// PipelineResult is the terminal success value of ProcessQuery. A
// result with Clarification set means the pipeline is awaiting a user
// answer and produced no SQL; this is distinct from an error.
type PipelineResult struct {
	SQL            string             `json:"sql,omitempty"`
	SemanticQuery  *SemanticQuery     `json:"semantic_query,omitempty"`
	Intent         *IntentResult      `json:"intent,omitempty"`
	Keywords       *ExtractedKeywords `json:"keywords,omitempty"`
	Validation     *ValidationResult  `json:"validation,omitempty"`
	Clarification  *IntentResult      `json:"clarification,omitempty"`
	Conversational bool               `json:"conversational,omitempty"`
}

// AwaitingClarification reports whether the run paused for user input.
func (r *PipelineResult) AwaitingClarification() bool {
	return r != nil && r.Clarification != nil
}

// ProgressSink receives per-stage progress notifications. Delivery is
// best-effort; the pipeline never blocks on or fails because of it.
type ProgressSink func(stage, message string)

// notify tolerates a nil sink.
func (s ProgressSink) notify(stage, message string) {
	if s != nil {
		s(stage, message)
	}
}

// PipelineError is the typed error surfaced on unrecoverable pipeline
// failure. Stage names which stage failed.
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
