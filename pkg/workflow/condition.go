package workflow

import (
	"context"
	"fmt"
	"log/slog"
)

const kindCondition = "condition"

// Predicate decides whether a condition composite's body runs. It is
// evaluated exactly once per execution, against the input the
// composite receives.
type Predicate func(input *StepInput) bool

// Condition gates a sequential body behind a predicate. When the
// predicate reports false the composite contributes nothing to the
// chain and the surrounding sequence continues from its own prior
// state.
type Condition struct {
	name      string
	predicate Predicate
	nodes     []Node
}

// NewCondition builds a gated composite. It panics when predicate is
// nil, matching builder validation.
func NewCondition(name string, predicate Predicate, nodes ...Node) *Condition {
	if predicate == nil {
		panic(fmt.Sprintf("stepflow: condition %q has nil predicate", name))
	}
	return &Condition{name: name, predicate: predicate, nodes: nodes}
}

// Name returns the composite name.
func (c *Condition) Name() string { return c.name }

func (c *Condition) run(ctx context.Context, ec *execContext, idx StepIndex, input *StepInput) (results Outputs) {
	defer ec.recoverComposite(c.name, kindCondition, &results)

	input = ensureInput(input)
	met := c.predicate(input)

	ec.event(ConditionExecutionStartedEvent{
		EventMeta:       ec.meta(c.name, idx),
		ConditionResult: met,
	})

	executed := 0
	if met {
		results, executed = runSequence(ctx, ec, idx, input, c.nodes)
	} else {
		ec.logger.Debug("condition not met, skipping body",
			slog.String("condition", c.name),
		)
	}

	ec.event(ConditionExecutionCompletedEvent{
		EventMeta:       ec.meta(c.name, idx),
		ConditionResult: met,
		ExecutedSteps:   executed,
		StepResults:     results,
	})
	return results
}
