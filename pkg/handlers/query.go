package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/schoolgrid/schoolgrid-engine/pkg/apperrors"
	"github.com/schoolgrid/schoolgrid-engine/pkg/executor"
	"github.com/schoolgrid/schoolgrid-engine/pkg/models"
	"github.com/schoolgrid/schoolgrid-engine/pkg/pipeline"
)

// QueryRequest is the POST /api/query body.
type QueryRequest struct {
	Question            string                    `json:"question"`
	SchoolID            string                    `json:"school_id"`
	ConversationHistory []models.ConversationTurn `json:"conversation_history,omitempty"`
}

// progressEvent is the SSE payload for stage notifications.
type progressEvent struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// QueryHandler serves the natural-language query endpoint. Responses
// are server-sent events: one "progress" event per pipeline stage, then
// a terminal "result" or "error" event.
type QueryHandler struct {
	orchestrator *pipeline.Orchestrator
	executor     executor.SQLExecutor
	logger       *zap.Logger
}

// NewQueryHandler creates a query handler.
func NewQueryHandler(orchestrator *pipeline.Orchestrator, exec executor.SQLExecutor, logger *zap.Logger) *QueryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryHandler{
		orchestrator: orchestrator,
		executor:     exec,
		logger:       logger.Named("query"),
	}
}

// RegisterRoutes registers the query handler's routes on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/query", h.Query)
}

// Query handles POST /api/query requests.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "question is required")
		return
	}
	if req.SchoolID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "school_id is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support streaming")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	stream := &eventStream{w: w, flusher: flusher}

	qc := models.NewQueryContext(req.SchoolID, req.ConversationHistory)
	logger := h.logger.With(zap.String("request_id", qc.RequestID.String()))

	sink := pipeline.ProgressSink(func(stage, message string) {
		stream.send("progress", progressEvent{Stage: stage, Message: message})
	})

	result, err := h.orchestrator.ProcessAndExecute(r.Context(), req.Question, &qc, h.executor, sink)
	if err != nil {
		logger.Warn("query failed", zap.Error(err))
		stream.send("error", map[string]string{
			"code":    errorCode(err),
			"message": err.Error(),
		})
		return
	}

	if result.Conversational {
		h.streamConversational(r, stream, req.Question, &qc, logger)
		return
	}

	stream.send("result", result)
}

// streamConversational answers a non-data question directly, forwarding
// each model chunk as its own event.
func (h *QueryHandler) streamConversational(r *http.Request, stream *eventStream, question string, qc *models.QueryContext, logger *zap.Logger) {
	chunks := make(chan string)
	done := make(chan error, 1)

	go func() {
		done <- h.orchestrator.Conversational(r.Context(), question, qc, chunks)
	}()

	for chunk := range chunks {
		stream.send("chunk", map[string]string{"text": chunk})
	}

	if err := <-done; err != nil {
		logger.Warn("conversational stream failed", zap.Error(err))
		stream.send("error", map[string]string{
			"code":    "llm_error",
			"message": err.Error(),
		})
		return
	}
	stream.send("done", map[string]bool{"ok": true})
}

// eventStream serializes SSE writes; the progress sink and the handler
// body may touch it from different goroutines.
type eventStream struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *eventStream) send(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data)
	s.flusher.Flush()
}

// writeError is the JSON error shape for failures before the event
// stream starts; once streaming begins, errors go out as "error" events
// instead.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrUnsafeInput):
		return "unsafe_input"
	case errors.Is(err, apperrors.ErrTenantRequired):
		return "tenant_required"
	case errors.Is(err, apperrors.ErrValidationFailed):
		return "validation_failed"
	case errors.Is(err, apperrors.ErrSQLGeneration):
		return "generation_failed"
	case errors.Is(err, apperrors.ErrExecutionFailed):
		return "execution_failed"
	default:
		return "internal_error"
	}
}
