package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/sashabaranov/go-openai"
)

// ErrorType categorizes LLM transport failures.
type ErrorType string

const (
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeAuth       ErrorType = "auth"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeServer     ErrorType = "server"
	ErrorTypeBadRequest ErrorType = "bad_request"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error is a classified LLM transport error. It implements
// retry.RetryableError so the retry package can decide eligibility
// without string matching.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("llm %s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the failure is transient.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit, ErrorTypeTimeout, ErrorTypeServer:
		return true
	default:
		return false
	}
}

// ClassifyError wraps a provider error with a category.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Type: ErrorTypeTimeout, Message: err.Error(), Err: err}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Type: typeFromStatus(apiErr.HTTPStatusCode), Message: apiErr.Message, Err: err}
	}

	var anthropicErr *anthropic.APIError
	if errors.As(err, &anthropicErr) {
		return &Error{Type: typeFromAnthropic(anthropicErr), Message: anthropicErr.Message, Err: err}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return &Error{Type: ErrorTypeTimeout, Message: err.Error(), Err: err}
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "429"):
		return &Error{Type: ErrorTypeRateLimit, Message: err.Error(), Err: err}
	default:
		return &Error{Type: ErrorTypeUnknown, Message: err.Error(), Err: err}
	}
}

func typeFromStatus(status int) ErrorType {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorTypeAuth
	case status == http.StatusRequestTimeout:
		return ErrorTypeTimeout
	case status >= 500:
		return ErrorTypeServer
	case status >= 400:
		return ErrorTypeBadRequest
	default:
		return ErrorTypeUnknown
	}
}

func typeFromAnthropic(err *anthropic.APIError) ErrorType {
	switch {
	case err.IsRateLimitErr():
		return ErrorTypeRateLimit
	case err.IsAuthenticationErr(), err.IsPermissionErr():
		return ErrorTypeAuth
	case err.IsApiErr(), err.IsOverloadedErr():
		return ErrorTypeServer
	case err.IsInvalidRequestErr():
		return ErrorTypeBadRequest
	default:
		return ErrorTypeUnknown
	}
}
