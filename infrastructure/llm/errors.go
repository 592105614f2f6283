package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ahrav/gavel-bench/internal/ports"
)

var (
	// ErrEmptyAPIKey is returned when a provider is built without credentials.
	ErrEmptyAPIKey = errors.New("API key cannot be empty")

	// ErrEmptyResponse is returned when a provider answers with no content.
	ErrEmptyResponse = fmt.Errorf("empty response from API: %w", ports.ErrInvalidResponse)

	// ErrNoResponseChoice is returned when a chat completion has no choices.
	ErrNoResponseChoice = fmt.Errorf("no response choices returned: %w", ports.ErrInvalidResponse)
)

// ErrorType is the provider-independent category of a failed request. Its
// value doubles as the status label of the request metrics.
type ErrorType string

// Error categories.
const (
	ErrorTypeUnknown        ErrorType = "unknown"
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeBadRequest     ErrorType = "bad_request"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeServerError    ErrorType = "server_error"
	ErrorTypeContentPolicy  ErrorType = "content_policy"
	ErrorTypeNetwork        ErrorType = "network"
	ErrorTypeTimeout        ErrorType = "timeout"
)

func (t ErrorType) String() string { return string(t) }

// sentinels maps categories onto the shared port errors.
var sentinels = map[ErrorType]error{
	ErrorTypeRateLimit:   ports.ErrRateLimited,
	ErrorTypeServerError: ports.ErrServiceUnavailable,
	ErrorTypeTimeout:     ports.ErrTimeout,
}

// ProviderError is a classified failure from one provider.
type ProviderError struct {
	Type       ErrorType
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := e.Provider + " error"
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Type != "" && e.Type != ErrorTypeUnknown {
		msg += fmt.Sprintf(" [%s]", e.Type)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is matches the ports sentinel for the error's category, so a rate limit
// from any provider satisfies errors.Is(err, ports.ErrRateLimited).
func (e *ProviderError) Is(target error) bool {
	sentinel, ok := sentinels[e.Type]
	return ok && target == sentinel
}

// NewProviderError creates a ProviderError.
func NewProviderError(provider string, errType ErrorType, statusCode int, message string, err error) *ProviderError {
	return &ProviderError{
		Type:       errType,
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// ErrorClassifier turns provider SDK errors into ProviderErrors.
type ErrorClassifier struct {
	Provider string
}

// ClassifyHTTPError classifies a failed HTTP exchange by status code.
func (ec *ErrorClassifier) ClassifyHTTPError(statusCode int, message string, err error) *ProviderError {
	errType := statusType(statusCode)
	switch errType {
	case ErrorTypeAuthentication:
		message = ec.Provider + " authentication failed"
	case ErrorTypeRateLimit:
		message = ec.Provider + " rate limit exceeded"
	}
	return NewProviderError(ec.Provider, errType, statusCode, message, err)
}

func statusType(code int) ErrorType {
	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ErrorTypeAuthentication
	case code == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case code == http.StatusNotFound:
		return ErrorTypeNotFound
	case code == http.StatusRequestTimeout:
		return ErrorTypeTimeout
	case code >= 400 && code < 500:
		return ErrorTypeBadRequest
	case code >= 500:
		return ErrorTypeServerError
	default:
		return ErrorTypeUnknown
	}
}

// ClassifyContextError classifies a deadline or cancellation.
func (ec *ErrorClassifier) ClassifyContextError(err error) *ProviderError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewProviderError(ec.Provider, ErrorTypeTimeout, 0, "context deadline exceeded", err)
	case errors.Is(err, context.Canceled):
		return NewProviderError(ec.Provider, ErrorTypeNetwork, 0, "request canceled", err)
	default:
		return NewProviderError(ec.Provider, ErrorTypeUnknown, 0, "", err)
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
