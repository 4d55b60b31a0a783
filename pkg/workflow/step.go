package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// StepFunc is a single unit of work wrapped by a leaf Step. Returning
// an error marks the step's output as a soft failure; it never aborts
// the run by itself. Returning (nil, nil) yields an empty successful
// output.
type StepFunc func(ctx context.Context, input *StepInput) (*StepOutput, error)

// Runner is implemented by external collaborators (model callers, tool
// invokers) embedded as leaf steps. The engine asks for exactly one
// output per invocation and treats a returned error as a soft failure.
type Runner interface {
	Run(ctx context.Context, input *StepInput, sess Session) (*StepOutput, error)
}

const (
	executorFunc   = "func"
	executorRunner = "runner"
)

// Step adapts one unit of work, either a StepFunc or a Runner
// delegate, to the uniform node contract.
type Step struct {
	name   string
	fn     StepFunc
	runner Runner

	maxRetries    int
	stopOnFailure bool
}

// StepOption configures a leaf step.
type StepOption func(*Step)

// WithMaxRetries makes the step re-invoke its work up to n additional
// times after a failure before giving up.
func WithMaxRetries(n int) StepOption {
	return func(s *Step) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithStopOnFailure makes an exhausted failure also request early
// termination of the enclosing composite chain.
func WithStopOnFailure() StepOption {
	return func(s *Step) { s.stopOnFailure = true }
}

// NewStep wraps fn as a leaf step. It panics when fn is nil, matching
// builder validation.
func NewStep(name string, fn StepFunc, opts ...StepOption) *Step {
	if fn == nil {
		panic(fmt.Sprintf("stepflow: step %q has nil function", name))
	}
	s := &Step{name: name, fn: fn}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRunnerStep wraps an external collaborator as a leaf step. It
// panics when r is nil.
func NewRunnerStep(name string, r Runner, opts ...StepOption) *Step {
	if r == nil {
		panic(fmt.Sprintf("stepflow: step %q has nil runner", name))
	}
	s := &Step{name: name, runner: r}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *Step) Name() string { return s.name }

func (s *Step) executorType() string {
	if s.runner != nil {
		return executorRunner
	}
	return executorFunc
}

func (s *Step) run(ctx context.Context, ec *execContext, idx StepIndex, input *StepInput) Outputs {
	input = s.prepareInput(input)

	ec.event(StepStartedEvent{EventMeta: ec.meta(s.name, idx)})
	ec.obs.OnStepStarted(ctx, ec.runID, s.name, idx)

	start := time.Now()
	out := s.invoke(ctx, ec, input)
	duration := time.Since(start)

	ec.obs.OnStepCompleted(ctx, ec.runID, s.name, idx, out, duration)

	if !out.Success {
		ec.event(StepErrorEvent{EventMeta: ec.meta(s.name, idx), Error: out.Error})
	}
	ec.event(StepCompletedEvent{EventMeta: ec.meta(s.name, idx), Output: out})
	ec.output(out)

	return Outputs{out}
}

// prepareInput keeps the default-chaining field consistent when a
// caller hands in recorded outputs without a previous content value.
func (s *Step) prepareInput(input *StepInput) *StepInput {
	input = ensureInput(input)
	if input.PreviousStepContent == nil && input.PreviousStepOutputs != nil {
		if last, ok := input.PreviousStepOutputs.Last(); ok {
			next := input.clone()
			next.PreviousStepContent = last.Content
			return next
		}
	}
	return input
}

// invoke runs the unit of work with bounded retries, converting every
// fault (returned error or panic) into a soft-failure output.
func (s *Step) invoke(ctx context.Context, ec *execContext, input *StepInput) StepOutput {
	var lastErr error
	attempts := s.maxRetries + 1

	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := s.tryOnce(ctx, input, ec.sess)
		if err == nil {
			return s.normalize(out)
		}
		lastErr = err
		ec.logger.Warn("step attempt failed",
			slog.String("step", s.name),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Any("error", err),
		)
		if ctx.Err() != nil {
			break
		}
	}

	failed := ErrorOutput(s.name, lastErr)
	failed.ExecutorType = s.executorType()
	failed.ExecutorName = s.name
	failed.Stop = s.stopOnFailure
	return failed
}

func (s *Step) tryOnce(ctx context.Context, input *StepInput, sess Session) (out *StepOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			var ok bool
			if err, ok = r.(error); !ok {
				err = fmt.Errorf("%v", r)
			}
		}
	}()
	if s.fn != nil {
		return s.fn(ctx, input)
	}
	return s.runner.Run(ctx, input, sess)
}

// normalize stamps identity fields onto the produced output without
// clobbering anything the unit of work set deliberately.
func (s *Step) normalize(out *StepOutput) StepOutput {
	if out == nil {
		fresh := NewStepOutput(s.name, nil)
		fresh.ExecutorType = s.executorType()
		fresh.ExecutorName = s.name
		return fresh
	}
	result := *out
	if result.StepName == "" {
		result.StepName = s.name
	}
	if result.ExecutorType == "" {
		result.ExecutorType = s.executorType()
	}
	if result.ExecutorName == "" {
		result.ExecutorName = s.name
	}
	// An output built literally defaults Success to false; treat the
	// zero value as success unless an error is present.
	if !result.Success && result.Error == "" {
		result.Success = true
	}
	return result
}
