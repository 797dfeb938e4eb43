package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/schoolgrid/schoolgrid-engine/pkg/jsonutil"
	"github.com/schoolgrid/schoolgrid-engine/pkg/llm"
	"github.com/schoolgrid/schoolgrid-engine/pkg/metadata"
	"github.com/schoolgrid/schoolgrid-engine/pkg/models"
)

// patternScoreThreshold is the minimum worked-pattern score that skips
// the LLM call entirely.
const patternScoreThreshold = 0.7

// historyTurnsForIntent is how many recent turns the classification
// prompt includes.
const historyTurnsForIntent = 4

// IntentClassifier maps a raw query plus conversation context to an
// intent label, domain, confidence and optional clarification request.
type IntentClassifier struct {
	store  *metadata.Store
	client llm.CompletionClient
	logger *zap.Logger
}

// NewIntentClassifier creates a classifier.
func NewIntentClassifier(store *metadata.Store, client llm.CompletionClient, logger *zap.Logger) *IntentClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntentClassifier{
		store:  store,
		client: client,
		logger: logger.Named("intent"),
	}
}

// Classify runs the two-path state machine. Path A matches worked
// question patterns locally; a score above 0.7 returns immediately with
// no LLM call. Path B asks the model and falls back to rule-based
// inference on any failure, so classification itself never fails.
func (c *IntentClassifier) Classify(ctx context.Context, query string, history []models.ConversationTurn) (*IntentResult, error) {
	if match, ok := c.store.FindMatchingPattern(query); ok && match.Score > patternScoreThreshold {
		c.logger.Debug("pattern match",
			zap.String("intent", match.Pattern.Intent),
			zap.String("domain", match.Domain),
			zap.Float64("score", match.Score))
		return &IntentResult{
			Intent:     match.Pattern.Intent,
			Domain:     match.Domain,
			Confidence: match.Score,
		}, nil
	}

	prompt := c.buildPrompt(query, history)

	response, err := c.client.Complete(ctx, prompt, intentSystemPrompt)
	if err != nil {
		c.logger.Warn("classification call failed, using rule-based fallback", zap.Error(err))
		return c.fallback(query), nil
	}

	parsed, err := parseIntentResponse(response)
	if err != nil {
		c.logger.Warn("classification response unparsable, using rule-based fallback", zap.Error(err))
		return c.fallback(query), nil
	}

	return parsed, nil
}

const intentSystemPrompt = "You classify questions about a school records database. " +
	"Respond with a single JSON object and nothing else."

func (c *IntentClassifier) buildPrompt(query string, history []models.ConversationTurn) string {
	var sb strings.Builder

	sb.WriteString("Classify the user's question.\n\n")
	sb.WriteString("Available domains: ")
	sb.WriteString(strings.Join(c.store.Domains(), ", "))
	sb.WriteString("\n\nRules:\n")
	sb.WriteString("- COUNT intents are bare counting questions: \"how many\", \"number of\", \"count\" with no specific field requested.\n")
	sb.WriteString("- LIST intents request specific fields (contact, phone, name, address, parent) or records. A field request ALWAYS wins over a literal \"count\" token.\n")
	sb.WriteString("- Use intent \"" + IntentConversational + "\" for greetings and questions that need no data.\n")
	sb.WriteString("- Set needs_clarification true only when the question cannot be answered without more information, and propose options.\n")

	turns := history
	if len(turns) > historyTurnsForIntent {
		turns = turns[len(turns)-historyTurnsForIntent:]
	}
	if len(turns) > 0 {
		sb.WriteString("\nRecent conversation:\n")
		for _, turn := range turns {
			fmt.Fprintf(&sb, "%s: %s\n", turn.Role, turn.Content)
		}
	}

	fmt.Fprintf(&sb, "\nQuestion: %s\n", query)
	sb.WriteString("\nRespond with one JSON object:\n")
	sb.WriteString(`{"intent": "...", "domain": "...", "confidence": 0.0, "needs_clarification": false, "clarification_question": "", "clarification_options": [], "reasoning": ""}`)

	return sb.String()
}

// rawIntent defers field decoding so that models returning numbers as
// strings (or vice versa) still parse.
type rawIntent struct {
	Intent                json.RawMessage `json:"intent"`
	Domain                json.RawMessage `json:"domain"`
	Confidence            json.RawMessage `json:"confidence"`
	NeedsClarification    json.RawMessage `json:"needs_clarification"`
	ClarificationQuestion json.RawMessage `json:"clarification_question"`
	ClarificationOptions  []string        `json:"clarification_options"`
	Reasoning             json.RawMessage `json:"reasoning"`
}

// parseIntentResponse extracts the first balanced JSON object from the
// response and coerces its fields. Returns an error rather than a
// default so the caller decides the fallback.
func parseIntentResponse(response string) (*IntentResult, error) {
	raw, err := llm.ParseJSONResponse[rawIntent](response)
	if err != nil {
		return nil, err
	}

	intent := jsonutil.FlexibleString(raw.Intent)
	if intent == "" {
		return nil, fmt.Errorf("response missing intent")
	}

	confidence := jsonutil.FlexibleFloat(raw.Confidence, 0.5)
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return &IntentResult{
		Intent:                intent,
		Domain:                jsonutil.FlexibleString(raw.Domain),
		Confidence:            confidence,
		NeedsClarification:    jsonutil.FlexibleBool(raw.NeedsClarification),
		ClarificationQuestion: jsonutil.FlexibleString(raw.ClarificationQuestion),
		ClarificationOptions:  raw.ClarificationOptions,
		Reasoning:             jsonutil.FlexibleString(raw.Reasoning),
	}, nil
}

// fallback is the last line of defense: deterministic, rule-based, and
// it never fails. Explicit field requests force a list intent even when
// the query contains a count token.
func (c *IntentClassifier) fallback(query string) *IntentResult {
	q := strings.ToLower(query)
	domain := inferDomain(q)

	switch {
	case hasExplicitFieldCue(q):
		return &IntentResult{Intent: "list_" + domain, Domain: domain, Confidence: 0.5}
	case isCountQuery(q):
		return &IntentResult{Intent: "count_" + domain, Domain: domain, Confidence: 0.5}
	default:
		return &IntentResult{Intent: "list_" + domain, Domain: domain, Confidence: 0.4}
	}
}
