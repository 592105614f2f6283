package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"

	"github.com/ahrav/gavel-bench/internal/domain"
	"github.com/ahrav/gavel-bench/internal/ports"
)

// InvocationTemperature is the sampling temperature of every dispatched call.
const InvocationTemperature = 0.0

// Dispatcher sends one model call per work item, applying the same system
// instruction to each, with a bounded number of calls in flight.
type Dispatcher struct {
	client   ports.LLMClient
	settings batchSettings
}

// NewDispatcher creates a Dispatcher calling client.
func NewDispatcher(client ports.LLMClient, opts ...BatchOption) (*Dispatcher, error) {
	if client == nil {
		return nil, errors.New("dispatcher requires an LLM client")
	}
	return &Dispatcher{client: client, settings: newBatchSettings(opts)}, nil
}

// Dispatch calls the model once per item with instruction as the system
// prompt and returns the results in item order.
//
// An empty item list is not an error: Dispatch logs that there is nothing
// to do and returns an empty slice. Any failed call aborts the batch and
// no results are returned.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	instruction string,
	items []domain.WorkItem,
) ([]domain.InvocationResult, error) {
	log := clog.FromContext(ctx).With("model", d.client.GetModel())

	if len(items) == 0 {
		log.Info("nothing to do: no inputs to dispatch")
		return []domain.InvocationResult{}, nil
	}
	if instruction == "" {
		return nil, fmt.Errorf("dispatch instruction: %w", domain.ErrEmptyValue)
	}

	log.Infof("Processing %d inputs through LLM...", len(items))

	var results []domain.InvocationResult
	err := d.settings.observe(ctx, "dispatch", len(items), func(ctx context.Context) error {
		var err error
		results, err = RunBatch(ctx, items, d.settings.concurrency, d.invoke(instruction))
		return err
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (d *Dispatcher) invoke(instruction string) func(context.Context, int, domain.WorkItem) (domain.InvocationResult, error) {
	return func(ctx context.Context, _ int, item domain.WorkItem) (domain.InvocationResult, error) {
		output, err := d.client.Complete(ctx, item.Text, map[string]any{
			ports.OptionSystem:      instruction,
			ports.OptionTemperature: InvocationTemperature,
		})
		if err != nil {
			return domain.InvocationResult{}, ports.NewLLMError(d.client.GetModel(), "dispatch", item.Index, err)
		}
		return domain.InvocationResult{
			Index:  item.Index,
			Input:  item.Text,
			Output: output,
		}, nil
	}
}
