package ports

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the adapters. Provider failures match them
// through errors.Is regardless of which provider produced them.
var (
	// ErrRateLimited reports that the provider rejected a call for quota.
	ErrRateLimited = errors.New("rate limited by provider")

	// ErrServiceUnavailable reports a provider-side failure.
	ErrServiceUnavailable = errors.New("provider unavailable")

	// ErrTimeout reports a model call that exceeded its deadline.
	ErrTimeout = errors.New("model call timed out")

	// ErrInvalidResponse reports a provider answer with no usable text.
	ErrInvalidResponse = errors.New("invalid model response")

	// ErrLocationNotFound reports an input or result location that does
	// not exist.
	ErrLocationNotFound = errors.New("location not found")

	// ErrConfigNotFound reports a required setting that was not supplied.
	ErrConfigNotFound = errors.New("required setting missing")
)

// LLMError identifies the batch item whose model call aborted a batch.
type LLMError struct {
	// Model is the model the call was sent to.
	Model string

	// Operation is "dispatch" or "judge".
	Operation string

	// Index is the zero-based position of the item in its batch.
	Index int

	Err error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("%s item %d (model %s): %v", e.Operation, e.Index, e.Model, e.Err)
}

func (e *LLMError) Unwrap() error { return e.Err }

// NewLLMError wraps err with the batch position it occurred at.
func NewLLMError(model, operation string, index int, err error) *LLMError {
	return &LLMError{
		Model:     model,
		Operation: operation,
		Index:     index,
		Err:       err,
	}
}

// ConfigError reports an unusable setting, input location or catalog.
// Key names what was wrong: an environment variable, "input_dir",
// "location" or "catalog".
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a ConfigError for key.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{Key: key, Err: err}
}
