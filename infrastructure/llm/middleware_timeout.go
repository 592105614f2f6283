package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahrav/gavel-bench/internal/ports"
)

// deadlineLLM caps how long a single model call may run.
type deadlineLLM struct {
	next  CoreLLM
	limit time.Duration
}

// TimeoutMiddleware bounds every call by limit. A call cut short by the
// limit fails with an error matching ports.ErrTimeout. Zero or negative
// limits disable the bound.
func TimeoutMiddleware(limit time.Duration) Middleware {
	return func(next CoreLLM) CoreLLM {
		if limit <= 0 {
			return next
		}
		return &deadlineLLM{next: next, limit: limit}
	}
}

func (d *deadlineLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	cause := fmt.Errorf("%w after %s", ports.ErrTimeout, d.limit)
	ctx, cancel := context.WithTimeoutCause(ctx, d.limit, cause)
	defer cancel()

	text, in, out, err := d.next.DoRequest(ctx, prompt, opts)
	if err != nil && errors.Is(context.Cause(ctx), ports.ErrTimeout) && !errors.Is(err, ports.ErrTimeout) {
		err = fmt.Errorf("%w: %w", cause, err)
	}
	return text, in, out, err
}

func (d *deadlineLLM) GetModel() string  { return d.next.GetModel() }
func (d *deadlineLLM) SetModel(m string) { d.next.SetModel(m) }
