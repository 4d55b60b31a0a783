package workflow

import (
	"context"
	"fmt"
)

const kindRouter = "router"

// Selector picks which of a router's choices run for a given input.
// The returned nodes execute sequentially in the order returned;
// returning none is valid and skips the composite.
type Selector func(input *StepInput) []Node

// Router dispatches to a subset of its choices, re-evaluating the
// selector on every execution. Choices declare the routable set for
// introspection; the selector is free to return any nodes, typically
// drawn from that set.
type Router struct {
	name     string
	selector Selector
	choices  []Node
}

// NewRouter builds a routing composite. It panics when selector is
// nil, matching builder validation.
func NewRouter(name string, selector Selector, choices ...Node) *Router {
	if selector == nil {
		panic(fmt.Sprintf("stepflow: router %q has nil selector", name))
	}
	return &Router{name: name, selector: selector, choices: choices}
}

// Name returns the composite name.
func (r *Router) Name() string { return r.name }

// Choices returns the declared routable nodes.
func (r *Router) Choices() []Node { return r.choices }

func (r *Router) run(ctx context.Context, ec *execContext, idx StepIndex, input *StepInput) (results Outputs) {
	defer ec.recoverComposite(r.name, kindRouter, &results)

	input = ensureInput(input)
	selected := r.selector(input)

	names := make([]string, len(selected))
	for i, n := range selected {
		names[i] = nodeName(n, i)
	}

	ec.event(RouterExecutionStartedEvent{
		EventMeta:     ec.meta(r.name, idx),
		SelectedSteps: names,
	})

	results, executed := runSequence(ctx, ec, idx, input, selected)

	ec.event(RouterExecutionCompletedEvent{
		EventMeta:     ec.meta(r.name, idx),
		SelectedSteps: names,
		ExecutedSteps: executed,
		StepResults:   results,
	})
	return results
}
