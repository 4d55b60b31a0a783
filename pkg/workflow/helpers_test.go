package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
)

var errAttempt = errors.New("attempt failed")

// echoStep produces "<name>: <chained text>" so tests can assert on
// both execution and chaining.
func echoStep(name string) *Step {
	return NewStep(name, func(ctx context.Context, input *StepInput) (*StepOutput, error) {
		text := input.MessageString()
		if input.PreviousStepContent != nil {
			text = fmt.Sprintf("%v", input.PreviousStepContent)
		}
		out := NewStepOutput(name, fmt.Sprintf("%s: %s", name, text))
		return &out, nil
	})
}

// constStep always produces the same content.
func constStep(name string, content any) *Step {
	return NewStep(name, func(ctx context.Context, input *StepInput) (*StepOutput, error) {
		out := NewStepOutput(name, content)
		return &out, nil
	})
}

// upperStep uppercases the chained content.
func upperStep(name string) *Step {
	return NewStep(name, func(ctx context.Context, input *StepInput) (*StepOutput, error) {
		text := input.MessageString()
		if input.PreviousStepContent != nil {
			text = fmt.Sprintf("%v", input.PreviousStepContent)
		}
		out := NewStepOutput(name, strings.ToUpper(text))
		return &out, nil
	})
}

// countingStep increments calls each time it runs.
func countingStep(name string, calls *atomic.Int32) *Step {
	return NewStep(name, func(ctx context.Context, input *StepInput) (*StepOutput, error) {
		n := calls.Add(1)
		out := NewStepOutput(name, fmt.Sprintf("call %d", n))
		return &out, nil
	})
}

// failingStep always returns an error, counting its attempts.
func failingStep(name string, attempts *atomic.Int32) *Step {
	return NewStep(name, func(ctx context.Context, input *StepInput) (*StepOutput, error) {
		if attempts != nil {
			attempts.Add(1)
		}
		return nil, errAttempt
	})
}

// stoppingFailureStep fails and requests termination in one output.
func stoppingFailureStep(name string) *Step {
	return NewStep(name, func(ctx context.Context, input *StepInput) (*StepOutput, error) {
		out := ErrorOutput(name, errAttempt)
		out.Stop = true
		return &out, nil
	})
}

// successfulStopStep succeeds while requesting termination.
func successfulStopStep(name string, content any) *Step {
	return NewStep(name, func(ctx context.Context, input *StepInput) (*StepOutput, error) {
		out := StopOutput(name, content)
		return &out, nil
	})
}

// collect drains a stream into events and outputs.
func collect(ch <-chan StreamItem) (events []Event, outputs Outputs) {
	for item := range ch {
		switch v := item.(type) {
		case Event:
			events = append(events, v)
		case StepOutput:
			outputs = append(outputs, v)
		}
	}
	return events, outputs
}

// eventTypes lists the stream's event types in order.
func eventTypes(events []Event) []EventType {
	types := make([]EventType, len(events))
	for i, e := range events {
		types[i] = e.Type()
	}
	return types
}
