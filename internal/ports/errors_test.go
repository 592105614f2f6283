package ports

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMError(t *testing.T) {
	tests := []struct {
		name      string
		err       *LLMError
		wantMsg   string
		wantCause error
	}{
		{
			name:      "dispatch failure",
			err:       NewLLMError("gpt-4.1", "dispatch", 3, ErrServiceUnavailable),
			wantMsg:   "dispatch item 3 (model gpt-4.1): provider unavailable",
			wantCause: ErrServiceUnavailable,
		},
		{
			name:      "judge failure wrapping a rate limit",
			err:       NewLLMError("claude-sonnet-4-0", "judge", 0, fmt.Errorf("anthropic: %w", ErrRateLimited)),
			wantMsg:   "judge item 0 (model claude-sonnet-4-0): anthropic: rate limited by provider",
			wantCause: ErrRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
			assert.ErrorIs(t, tt.err, tt.wantCause)

			wrapped := fmt.Errorf("run: %w", tt.err)
			var target *LLMError
			require.True(t, errors.As(wrapped, &target))
			assert.Equal(t, tt.err.Index, target.Index)
		})
	}
}

func TestConfigError(t *testing.T) {
	err := NewConfigError("input_dir", fmt.Errorf("inputs/ does not exist: %w", ErrLocationNotFound))

	assert.Equal(t, "invalid input_dir: inputs/ does not exist: location not found", err.Error())
	assert.ErrorIs(t, err, ErrLocationNotFound)
	assert.NotErrorIs(t, err, ErrConfigNotFound)
}
