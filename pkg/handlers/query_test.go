package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolgrid/schoolgrid-engine/pkg/executor"
	"github.com/schoolgrid/schoolgrid-engine/pkg/llm"
	"github.com/schoolgrid/schoolgrid-engine/pkg/metadata"
	"github.com/schoolgrid/schoolgrid-engine/pkg/pipeline"
)

type stubExecutor struct {
	result *executor.QueryResult
	err    error
}

func (s *stubExecutor) Execute(ctx context.Context, statement string) (*executor.QueryResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubExecutor) Close() error { return nil }

func newTestHandler(t *testing.T, completeFn func(ctx context.Context, prompt, system string) (string, error), exec executor.SQLExecutor) *QueryHandler {
	t.Helper()

	store := metadata.NewStore()
	require.NoError(t, store.Load())

	mock := llm.NewMockClient()
	mock.CompleteFunc = completeFn

	orchestrator := pipeline.NewOrchestrator(
		pipeline.NewIntentClassifier(store, mock, nil),
		pipeline.NewKeywordExtractor(store),
		pipeline.NewDisambiguator(store, nil),
		pipeline.NewSQLGenerator(mock, nil, nil),
		pipeline.NewEvaluator(),
		3,
		nil,
	)
	return NewQueryHandler(orchestrator, exec, nil)
}

func sqlComplete(ctx context.Context, prompt, system string) (string, error) {
	return "SELECT COUNT(DISTINCT s.id) AS count FROM students s INNER JOIN attendance a ON s.id = a.student_id WHERE s.school_id = '{SCHOOL_ID}' AND a.status = 'absent'", nil
}

func postQuery(t *testing.T, h *QueryHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Query(w, req)
	return w
}

func TestQuery_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, sqlComplete, &stubExecutor{})

	req := httptest.NewRequest(http.MethodGet, "/api/query", nil)
	w := httptest.NewRecorder()
	h.Query(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestQuery_ValidatesBody(t *testing.T) {
	h := newTestHandler(t, sqlComplete, &stubExecutor{})

	w := postQuery(t, h, `{"school_id": "sch-1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "question is required")

	w = postQuery(t, h, `{"question": "how many students are absent today"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "school_id is required")

	w = postQuery(t, h, `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuery_StreamsProgressAndResult(t *testing.T) {
	exec := &stubExecutor{result: &executor.QueryResult{
		Columns:  []string{"count"},
		Rows:     []map[string]any{{"count": 12}},
		RowCount: 1,
	}}
	h := newTestHandler(t, sqlComplete, exec)

	w := postQuery(t, h, `{"question": "how many students are absent today", "school_id": "sch-1"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, "event: progress")
	assert.Contains(t, body, `"stage":"intent"`)
	assert.Contains(t, body, `"stage":"execute"`)
	assert.Contains(t, body, "event: result")
	assert.Contains(t, body, `"row_count":1`)
}

func TestQuery_EmitsErrorEvent(t *testing.T) {
	h := newTestHandler(t, sqlComplete, &stubExecutor{})

	w := postQuery(t, h, `{"question": "1' OR '1'='1", "school_id": "sch-1"}`)

	body := w.Body.String()
	assert.Contains(t, body, "event: error")
	assert.Contains(t, body, `"code":"unsafe_input"`)
}

func TestQuery_ClarificationResult(t *testing.T) {
	clarify := func(ctx context.Context, prompt, system string) (string, error) {
		return `{"intent": "list_students", "domain": "students", "confidence": 0.3,
			"needs_clarification": true, "clarification_question": "Which class?"}`, nil
	}
	h := newTestHandler(t, clarify, &stubExecutor{})

	w := postQuery(t, h, `{"question": "show me the data", "school_id": "sch-1"}`)

	body := w.Body.String()
	assert.Contains(t, body, "event: result")
	assert.Contains(t, body, "Which class?")
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "internal_error", errorCode(context.Canceled))
}
