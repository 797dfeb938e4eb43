// Package models defines the shared value objects that flow through the
// query pipeline.
package models

import "github.com/google/uuid"

// Conversation role constants.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is a single entry in the chat history supplied by the
// caller. The pipeline only reads history; it never appends to it.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// QueryContext carries the per-request context the pipeline needs.
// TenantID is the school identifier every generated statement must be
// scoped to; a missing TenantID is a configuration error.
type QueryContext struct {
	TenantID            string             `json:"tenant_id"`
	ConversationHistory []ConversationTurn `json:"conversation_history,omitempty"`
	RequestID           uuid.UUID          `json:"request_id"`
}

// NewQueryContext creates a context with a fresh request id.
func NewQueryContext(tenantID string, history []ConversationTurn) QueryContext {
	return QueryContext{
		TenantID:            tenantID,
		ConversationHistory: history,
		RequestID:           uuid.New(),
	}
}

// LastTurns returns up to n most recent history turns, oldest first.
func (c QueryContext) LastTurns(n int) []ConversationTurn {
	if n <= 0 || len(c.ConversationHistory) <= n {
		return c.ConversationHistory
	}
	return c.ConversationHistory[len(c.ConversationHistory)-n:]
}
