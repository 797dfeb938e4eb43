package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/schoolgrid/schoolgrid-engine/pkg/llm"
	"github.com/schoolgrid/schoolgrid-engine/pkg/models"
	"github.com/schoolgrid/schoolgrid-engine/pkg/schema"
	sqlutil "github.com/schoolgrid/schoolgrid-engine/pkg/sql"
)

// historyTurnsForGeneration is how many recent turns the generation
// prompt includes.
const historyTurnsForGeneration = 10

// SampleSource supplies example rows for the generation prompt. A nil
// source or an empty set simply weakens the prompt.
type SampleSource interface {
	SampleRows(ctx context.Context, tenantID string) schema.SampleSet
}

// SQLGenerator turns a semantic query into a literal SQL statement via
// the LLM, sanitizes the response, and substitutes the tenant id for
// the placeholder. Regenerate feeds the failing statement and the
// database error back into a correction prompt.
type SQLGenerator struct {
	client  llm.CompletionClient
	samples SampleSource
	logger  *zap.Logger
}

// NewSQLGenerator creates a generator.
func NewSQLGenerator(client llm.CompletionClient, samples SampleSource, logger *zap.Logger) *SQLGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLGenerator{
		client:  client,
		samples: samples,
		logger:  logger.Named("generator"),
	}
}

const generatorSystemPrompt = "You translate questions about a school records database into a single " +
	"PostgreSQL SELECT statement. Respond with the SQL statement only, no explanation."

// Generate produces a sanitized SQL statement for the semantic query.
func (g *SQLGenerator) Generate(ctx context.Context, query string, sq *SemanticQuery, qc *models.QueryContext) (string, error) {
	prompt := g.buildPrompt(ctx, query, sq, qc, "")

	response, err := g.client.Complete(ctx, prompt, generatorSystemPrompt)
	if err != nil {
		return "", fmt.Errorf("sql generation: %w", err)
	}

	return g.finalize(response, qc.TenantID)
}

// Regenerate retries generation after a database rejection. The failing
// statement and the verbatim error are embedded in the prompt together
// with common correction hints.
func (g *SQLGenerator) Regenerate(ctx context.Context, query string, sq *SemanticQuery, qc *models.QueryContext, failedSQL string, dbErr error) (string, error) {
	correction := g.buildCorrection(failedSQL, dbErr)
	prompt := g.buildPrompt(ctx, query, sq, qc, correction)

	response, err := g.client.Complete(ctx, prompt, generatorSystemPrompt)
	if err != nil {
		return "", fmt.Errorf("sql regeneration: %w", err)
	}

	return g.finalize(response, qc.TenantID)
}

func (g *SQLGenerator) finalize(response, tenantID string) (string, error) {
	statement, err := sqlutil.Sanitize(response)
	if err != nil {
		g.logger.Warn("generated SQL rejected", zap.Error(err))
		return "", err
	}
	return sqlutil.SubstituteTenant(statement, tenantID), nil
}

func (g *SQLGenerator) buildPrompt(ctx context.Context, query string, sq *SemanticQuery, qc *models.QueryContext, correction string) string {
	var sb strings.Builder

	sb.WriteString("Database schema:\n")
	sb.WriteString(schema.Description)
	sb.WriteString("\n")

	if g.samples != nil {
		g.writeSamples(&sb, g.samples.SampleRows(ctx, qc.TenantID))
	}

	sb.WriteString("\nRules:\n")
	sb.WriteString("- Generate exactly one SELECT statement. Never modify data.\n")
	fmt.Fprintf(&sb, "- Every statement must filter by school: use the literal placeholder %s for the school id, e.g. WHERE s.school_id = '%s'.\n",
		sqlutil.TenantPlaceholder, sqlutil.TenantPlaceholder)
	sb.WriteString("- Table names are plural (students, fees, exam_results). Column references use the aliases below.\n")
	sb.WriteString("- COUNT questions (\"how many\", \"number of\") return COUNT(DISTINCT ...) AS count. Questions asking for specific fields (contact, phone, name, address) return those columns, never a count.\n")
	sb.WriteString("- When joining, add DISTINCT to list queries to avoid duplicate rows.\n")

	g.writeSemanticQuery(&sb, sq)

	turns := qc.LastTurns(historyTurnsForGeneration)
	if len(turns) > 0 {
		sb.WriteString("\nRecent conversation:\n")
		for _, turn := range turns {
			fmt.Fprintf(&sb, "%s: %s\n", turn.Role, turn.Content)
		}
	}

	if correction != "" {
		sb.WriteString(correction)
	}

	fmt.Fprintf(&sb, "\nQuestion: %s\nSQL:", query)
	return sb.String()
}

// writeSemanticQuery renders the structured analysis so the model
// follows the resolved tables, joins and predicates instead of
// re-deriving them.
func (g *SQLGenerator) writeSemanticQuery(sb *strings.Builder, sq *SemanticQuery) {
	if sq == nil {
		return
	}

	sb.WriteString("\nQuery analysis:\n")
	fmt.Fprintf(sb, "- Primary table: %s (alias %s)\n", sq.PrimaryTable, sq.PrimaryAlias)
	for _, j := range sq.Joins {
		fmt.Fprintf(sb, "- Join: %s JOIN %s %s ON %s\n", j.Type, j.Table, j.Alias, j.On)
	}
	for _, c := range sq.Conditions {
		fmt.Fprintf(sb, "- Condition: %s\n", maskTenant(c, sq.PrimaryAlias))
	}
	if len(sq.SelectFields) > 0 {
		fmt.Fprintf(sb, "- Select: %s\n", strings.Join(sq.SelectFields, ", "))
	}
	if sq.IsCount {
		sb.WriteString("- This is a COUNT query.\n")
	}
	if sq.OrderBy != "" {
		fmt.Fprintf(sb, "- Order by: %s\n", sq.OrderBy)
	}
	if sq.Limit > 0 {
		fmt.Fprintf(sb, "- Limit: %d\n", sq.Limit)
	}
}

// maskTenant swaps the literal tenant id back to the placeholder in the
// tenant condition so the real id never reaches the prompt.
func maskTenant(condition, primaryAlias string) string {
	prefix := primaryAlias + ".school_id = "
	if strings.HasPrefix(condition, prefix) {
		return prefix + "'" + sqlutil.TenantPlaceholder + "'"
	}
	return condition
}

func (g *SQLGenerator) writeSamples(sb *strings.Builder, samples schema.SampleSet) {
	if len(samples) == 0 {
		return
	}
	sb.WriteString("\nExample rows:\n")
	for _, table := range schema.MajorTables {
		rows := samples[table]
		if len(rows) == 0 {
			continue
		}
		fmt.Fprintf(sb, "%s:\n", table)
		for _, row := range rows {
			encoded, err := json.Marshal(row)
			if err != nil {
				continue
			}
			sb.WriteString("  ")
			sb.Write(encoded)
			sb.WriteString("\n")
		}
	}
}

// buildCorrection formats the retry feedback block. The database error
// is passed through verbatim; the hints cover the failure modes seen in
// practice, missing pluralization above all.
func (g *SQLGenerator) buildCorrection(failedSQL string, dbErr error) string {
	var sb strings.Builder

	sb.WriteString("\nThe previous statement failed. Fix it.\n")
	fmt.Fprintf(&sb, "Failed SQL: %s\n", failedSQL)
	fmt.Fprintf(&sb, "Database error: %v\n", dbErr)
	sb.WriteString("Corrections to check:\n")
	sb.WriteString("- Table names are plural")
	if hints := pluralHints(failedSQL); len(hints) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(hints, ", "))
	}
	sb.WriteString(".\n")
	sb.WriteString("- Column names must exist in the schema above; do not invent columns.\n")
	sb.WriteString("- Every JOIN needs an ON clause relating the two tables.\n")
	sb.WriteString("- Qualify ambiguous columns with their table alias.\n")

	return sb.String()
}

// pluralHints spots singular major-table names in the failed statement
// and suggests the plural form.
func pluralHints(failedSQL string) []string {
	lower := strings.ToLower(failedSQL)
	var hints []string
	for _, table := range schema.MajorTables {
		singular := inflection.Singular(table)
		if singular == table {
			continue
		}
		if strings.Contains(lower, " "+singular+" ") || strings.HasSuffix(lower, " "+singular) {
			hints = append(hints, singular+" -> "+table)
		}
	}
	return hints
}

const conversationalSystemPrompt = "You are a helpful assistant for a school records system. " +
	"Answer briefly and do not invent data."

// Conversational streams a direct answer for questions that need no
// data retrieval. Chunks are forwarded to the sink as they arrive.
func (g *SQLGenerator) Conversational(ctx context.Context, query string, qc *models.QueryContext, chunks chan<- string) error {
	var sb strings.Builder
	turns := qc.LastTurns(historyTurnsForGeneration)
	for _, turn := range turns {
		fmt.Fprintf(&sb, "%s: %s\n", turn.Role, turn.Content)
	}
	fmt.Fprintf(&sb, "user: %s\n", query)

	return g.client.CompleteStream(ctx, sb.String(), conversationalSystemPrompt, chunks)
}

const summarySystemPrompt = "You summarize database query results for school administrators. " +
	"Be concise and factual; mention the count and any notable values. Do not show SQL."

// maxRowsForSummary caps how many rows the summary prompt includes.
const maxRowsForSummary = 20

// Summarize produces a short natural-language summary of execution
// results. Failures degrade to an empty summary rather than failing the
// query.
func (g *SQLGenerator) Summarize(ctx context.Context, query string, columns []string, rows []map[string]any) (string, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Question: %s\n", query)
	fmt.Fprintf(&sb, "Columns: %s\n", strings.Join(columns, ", "))
	fmt.Fprintf(&sb, "Row count: %d\n", len(rows))

	limit := len(rows)
	if limit > maxRowsForSummary {
		limit = maxRowsForSummary
	}
	if limit > 0 {
		sb.WriteString("Rows:\n")
		for _, row := range rows[:limit] {
			encoded, err := json.Marshal(row)
			if err != nil {
				continue
			}
			sb.Write(encoded)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\nSummarize these results in one or two sentences.")

	summary, err := g.client.Complete(ctx, sb.String(), summarySystemPrompt)
	if err != nil {
		return "", fmt.Errorf("result summary: %w", err)
	}
	return strings.TrimSpace(summary), nil
}
