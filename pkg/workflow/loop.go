package workflow

import (
	"context"
	"log/slog"
)

const kindLoop = "loop"

// DefaultMaxIterations bounds a loop when no explicit limit is set.
const DefaultMaxIterations = 3

// EndCondition inspects one iteration's results and reports whether the
// loop should stop before reaching its iteration limit.
type EndCondition func(iterationResults Outputs) bool

// Loop repeats its body up to a bounded number of iterations, stopping
// early when the end condition is satisfied or a body output requests
// termination. Each iteration chains from the previous iteration's
// results.
type Loop struct {
	name          string
	nodes         []Node
	maxIterations int
	endCondition  EndCondition
}

// LoopOption configures a loop composite.
type LoopOption func(*Loop)

// WithMaxIterations caps the loop at n iterations. A cap of zero or
// less means the body never runs.
func WithMaxIterations(n int) LoopOption {
	return func(l *Loop) { l.maxIterations = n }
}

// WithEndCondition stops the loop as soon as fn reports true for an
// iteration's results.
func WithEndCondition(fn EndCondition) LoopOption {
	return func(l *Loop) { l.endCondition = fn }
}

// NewLoop builds a loop over the given body nodes. Without options the
// loop runs DefaultMaxIterations iterations.
func NewLoop(name string, nodes []Node, opts ...LoopOption) *Loop {
	l := &Loop{name: name, nodes: nodes, maxIterations: DefaultMaxIterations}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns the loop name.
func (l *Loop) Name() string { return l.name }

func (l *Loop) run(ctx context.Context, ec *execContext, idx StepIndex, input *StepInput) (results Outputs) {
	defer ec.recoverComposite(l.name, kindLoop, &results)

	ec.event(LoopExecutionStartedEvent{
		EventMeta:     ec.meta(l.name, idx),
		MaxIterations: l.maxIterations,
	})

	var all []Outputs
	current := ensureInput(input)

	for iter := 1; iter <= l.maxIterations; iter++ {
		ec.event(LoopIterationStartedEvent{
			EventMeta:     ec.meta(l.name, idx),
			Iteration:     iter,
			MaxIterations: l.maxIterations,
		})

		iterResults, _ := runSequence(ctx, ec, idx, current, l.nodes)
		all = append(all, iterResults)
		results = append(results, iterResults...)

		stopped := iterResults.HasStop()
		conditionMet := l.endCondition != nil && l.endCondition(iterResults)
		shouldContinue := !stopped && !conditionMet && iter < l.maxIterations

		ec.event(LoopIterationCompletedEvent{
			EventMeta:        ec.meta(l.name, idx),
			Iteration:        iter,
			MaxIterations:    l.maxIterations,
			IterationResults: iterResults,
			ShouldContinue:   shouldContinue,
		})

		if !shouldContinue {
			if stopped {
				ec.logger.Info("loop halted by early termination",
					slog.String("loop", l.name),
					slog.Int("iteration", iter),
				)
			} else if conditionMet {
				ec.logger.Debug("loop end condition met",
					slog.String("loop", l.name),
					slog.Int("iteration", iter),
				)
			}
			break
		}
		current = chainInput(current, iterResults, nil)
	}

	ec.event(LoopExecutionCompletedEvent{
		EventMeta:       ec.meta(l.name, idx),
		TotalIterations: len(all),
		MaxIterations:   l.maxIterations,
		AllResults:      all,
	})
	return results
}
