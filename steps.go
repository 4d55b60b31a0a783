package stepflow

import (
	"context"
	"fmt"
	"time"

	"github.com/averho/stepflow/pkg/workflow"
)

// ContentStep wraps a text transformation as a leaf step. The function
// receives the chained content (previous step's output, or the run
// message on the first step) rendered as a string.
func ContentStep(name string, fn func(ctx context.Context, content string) (string, error), opts ...workflow.StepOption) *Step {
	if fn == nil {
		panic(fmt.Sprintf("stepflow: step %q has nil function", name))
	}
	return NewStep(name, func(ctx context.Context, input *StepInput) (*StepOutput, error) {
		text := input.MessageString()
		if input.PreviousStepContent != nil {
			text = workflow.StepOutput{Content: input.PreviousStepContent}.ContentString()
		}
		out, err := fn(ctx, text)
		if err != nil {
			return nil, err
		}
		result := NewStepOutput(name, out)
		return &result, nil
	}, opts...)
}

// TypedStep wraps a strongly-typed function into a leaf step. The
// chained value (previous content, or the run message on the first
// step) must be assignable to I; a mismatch is a soft failure.
//
// Example:
//
//	stepflow.TypedStep("score", func(ctx context.Context, r Report) (Score, error) { ... })
func TypedStep[I, O any](name string, fn func(context.Context, I) (O, error), opts ...workflow.StepOption) *Step {
	if fn == nil {
		panic(fmt.Sprintf("stepflow: step %q has nil function", name))
	}
	return NewStep(name, func(ctx context.Context, input *StepInput) (*StepOutput, error) {
		chained := input.PreviousStepContent
		if chained == nil {
			chained = input.Message
		}
		typed, ok := chained.(I)
		if !ok && chained != nil {
			return nil, fmt.Errorf("step %q: input is %T, want %T", name, chained, typed)
		}
		out, err := fn(ctx, typed)
		if err != nil {
			return nil, err
		}
		result := NewStepOutput(name, out)
		return &result, nil
	}, opts...)
}

// SleepStep returns a leaf step that waits for the given duration and
// passes the chained content through unchanged. It respects context
// cancellation.
func SleepStep(name string, d time.Duration) *Step {
	return NewStep(name, func(ctx context.Context, input *StepInput) (*StepOutput, error) {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		result := NewStepOutput(name, input.PreviousStepContent)
		return &result, nil
	})
}

// StopStep returns a leaf step that requests early termination of the
// enclosing chain while reporting success, carrying the given content.
func StopStep(name string, content any) *Step {
	return NewStep(name, func(ctx context.Context, input *StepInput) (*StepOutput, error) {
		result := StopOutput(name, content)
		return &result, nil
	})
}
