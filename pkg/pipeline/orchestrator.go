package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/schoolgrid/schoolgrid-engine/pkg/apperrors"
	"github.com/schoolgrid/schoolgrid-engine/pkg/executor"
	"github.com/schoolgrid/schoolgrid-engine/pkg/metrics"
	"github.com/schoolgrid/schoolgrid-engine/pkg/models"
	sqlutil "github.com/schoolgrid/schoolgrid-engine/pkg/sql"
)

// ExecutionResult is the terminal value of ProcessAndExecute: the
// pipeline result plus execution output and an optional natural
// language summary.
type ExecutionResult struct {
	*PipelineResult
	Result   *executor.QueryResult `json:"result,omitempty"`
	Summary  string                `json:"summary,omitempty"`
	Attempts int                   `json:"attempts,omitempty"`
}

// Orchestrator sequences the pipeline stages and owns the
// execute-regenerate retry loop. Stages are pluggable for testing but
// the sequencing is fixed.
type Orchestrator struct {
	classifier   *IntentClassifier
	extractor    *KeywordExtractor
	disambiguate *Disambiguator
	generator    *SQLGenerator
	evaluator    *Evaluator
	maxAttempts  int
	logger       *zap.Logger
}

// NewOrchestrator creates an orchestrator. maxAttempts is the total
// number of execution attempts, including the first; values below 1 are
// raised to 1.
func NewOrchestrator(
	classifier *IntentClassifier,
	extractor *KeywordExtractor,
	disambiguate *Disambiguator,
	generator *SQLGenerator,
	evaluator *Evaluator,
	maxAttempts int,
	logger *zap.Logger,
) *Orchestrator {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		classifier:   classifier,
		extractor:    extractor,
		disambiguate: disambiguate,
		generator:    generator,
		evaluator:    evaluator,
		maxAttempts:  maxAttempts,
		logger:       logger.Named("orchestrator"),
	}
}

// ProcessQuery runs the pipeline through validation without executing
// anything. Clarification and conversational intents short-circuit with
// a success result; every other path ends with validated SQL or a
// stage-tagged error.
func (o *Orchestrator) ProcessQuery(ctx context.Context, query string, qc *models.QueryContext, sink ProgressSink) (*PipelineResult, error) {
	logger := o.logger.With(zap.String("request_id", qc.RequestID.String()))

	if check := sqlutil.ScreenUserInput(query); check != nil {
		logger.Warn("input rejected by injection screen",
			zap.String("fingerprint", check.Fingerprint))
		metrics.QueriesTotal.WithLabelValues("rejected").Inc()
		return nil, o.fail(sink, StageIntent, apperrors.ErrUnsafeInput)
	}

	sink.notify(StageIntent, "Understanding your question")
	intent, err := timed(StageIntent, func() (*IntentResult, error) {
		return o.classifier.Classify(ctx, query, qc.ConversationHistory)
	})
	if err != nil {
		return nil, o.fail(sink, StageIntent, err)
	}
	logger.Debug("intent classified",
		zap.String("intent", intent.Intent),
		zap.Float64("confidence", intent.Confidence))

	if intent.NeedsClarification {
		sink.notify(StageClarification, intent.ClarificationQuestion)
		metrics.Clarifications.Inc()
		metrics.QueriesTotal.WithLabelValues("clarification").Inc()
		return &PipelineResult{Intent: intent, Clarification: intent}, nil
	}

	if intent.Intent == IntentConversational {
		metrics.QueriesTotal.WithLabelValues("conversational").Inc()
		return &PipelineResult{Intent: intent, Conversational: true}, nil
	}

	sink.notify(StageKeywords, "Identifying what to look for")
	keywords, err := timed(StageKeywords, func() (*ExtractedKeywords, error) {
		return o.extractor.Extract(query, intent)
	})
	if err != nil {
		return nil, o.fail(sink, StageKeywords, err)
	}

	sink.notify(StageDisambiguate, "Working out tables and filters")
	sq, err := timed(StageDisambiguate, func() (*SemanticQuery, error) {
		return o.disambiguate.Build(query, keywords, intent, qc.TenantID)
	})
	if err != nil {
		return nil, o.fail(sink, StageDisambiguate, err)
	}

	if semCheck := o.evaluator.EvaluateSemanticQuery(sq); !semCheck.Valid {
		metrics.ValidationFailures.Inc()
		return nil, o.fail(sink, StageDisambiguate,
			fmt.Errorf("%w: %s", apperrors.ErrValidationFailed, strings.Join(semCheck.Errors, "; ")))
	}

	sink.notify(StageGenerate, "Writing the query")
	statement, err := timed(StageGenerate, func() (string, error) {
		return o.generator.Generate(ctx, query, sq, qc)
	})
	if err != nil {
		return nil, o.fail(sink, StageGenerate, fmt.Errorf("%w: %v", apperrors.ErrSQLGeneration, err))
	}
	if statement == "" {
		return nil, o.fail(sink, StageGenerate, apperrors.ErrSQLGeneration)
	}

	sink.notify(StageValidate, "Checking the query")
	validation := o.evaluator.EvaluateSQL(statement)
	if !validation.Valid {
		metrics.ValidationFailures.Inc()
		return nil, o.fail(sink, StageValidate,
			fmt.Errorf("%w: %s", apperrors.ErrValidationFailed, strings.Join(validation.Errors, "; ")))
	}

	return &PipelineResult{
		SQL:           statement,
		SemanticQuery: sq,
		Intent:        intent,
		Keywords:      keywords,
		Validation:    validation,
	}, nil
}

// ProcessAndExecute runs the full pipeline and then the
// execute-regenerate loop: up to maxAttempts total execution attempts,
// each failure feeding the statement and the verbatim database error
// back into regeneration. The last database error is surfaced when all
// attempts fail.
func (o *Orchestrator) ProcessAndExecute(ctx context.Context, query string, qc *models.QueryContext, exec executor.SQLExecutor, sink ProgressSink) (*ExecutionResult, error) {
	pr, err := o.ProcessQuery(ctx, query, qc, sink)
	if err != nil {
		return nil, err
	}
	if pr.AwaitingClarification() || pr.Conversational {
		return &ExecutionResult{PipelineResult: pr}, nil
	}

	logger := o.logger.With(zap.String("request_id", qc.RequestID.String()))
	statement := pr.SQL

	var result *executor.QueryResult
	var execErr error
	attempts := 0

	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		attempts = attempt
		sink.notify(StageExecute, "Running the query")

		start := time.Now()
		result, execErr = exec.Execute(ctx, statement)
		metrics.StageDuration.WithLabelValues(StageExecute).Observe(time.Since(start).Seconds())

		if execErr == nil {
			break
		}

		logger.Warn("execution failed",
			zap.Int("attempt", attempt),
			zap.Error(execErr))

		if attempt == o.maxAttempts {
			break
		}

		metrics.ExecutionRetries.Inc()
		sink.notify(StageGenerate, "Correcting the query")
		regenerated, regenErr := o.generator.Regenerate(ctx, query, pr.SemanticQuery, qc, statement, execErr)
		if regenErr != nil {
			return nil, o.fail(sink, StageGenerate,
				fmt.Errorf("%w: %v", apperrors.ErrSQLGeneration, regenErr))
		}

		if check := o.evaluator.EvaluateSQL(regenerated); !check.Valid {
			metrics.ValidationFailures.Inc()
			return nil, o.fail(sink, StageValidate,
				fmt.Errorf("%w: %s", apperrors.ErrValidationFailed, strings.Join(check.Errors, "; ")))
		}

		statement = regenerated
		pr.SQL = regenerated
	}

	if execErr != nil {
		metrics.QueriesTotal.WithLabelValues("failed").Inc()
		return nil, o.fail(sink, StageExecute,
			fmt.Errorf("%w after %d attempts: %v", apperrors.ErrExecutionFailed, attempts, execErr))
	}

	sink.notify(StageAnswer, "Preparing the answer")
	summary, sumErr := o.generator.Summarize(ctx, query, result.Columns, result.Rows)
	if sumErr != nil {
		logger.Warn("summary failed", zap.Error(sumErr))
		summary = ""
	}

	metrics.QueriesTotal.WithLabelValues("success").Inc()
	return &ExecutionResult{
		PipelineResult: pr,
		Result:         result,
		Summary:        summary,
		Attempts:       attempts,
	}, nil
}

// Conversational streams a direct answer for non-data questions.
func (o *Orchestrator) Conversational(ctx context.Context, query string, qc *models.QueryContext, chunks chan<- string) error {
	return o.generator.Conversational(ctx, query, qc, chunks)
}

// timed runs a stage function and records its duration.
func timed[T any](stage string, fn func() (T, error)) (T, error) {
	start := time.Now()
	out, err := fn()
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	return out, err
}

// fail emits the error progress event and wraps the error with its
// stage.
func (o *Orchestrator) fail(sink ProgressSink, stage string, err error) error {
	sink.notify(StageError, err.Error())
	return &PipelineError{Stage: stage, Err: err}
}
