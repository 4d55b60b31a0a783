package workflow

import "context"

const kindSteps = "steps"

// Steps executes its children strictly in order, feeding each child's
// results forward through the chaining rule. It is the sequential
// grouping composite and the default shape of a workflow body.
type Steps struct {
	name  string
	nodes []Node
}

// NewSteps groups nodes into a named sequential composite. An empty
// group is valid and produces no outputs.
func NewSteps(name string, nodes ...Node) *Steps {
	return &Steps{name: name, nodes: nodes}
}

// Name returns the group name.
func (s *Steps) Name() string { return s.name }

// Nodes returns the direct children in execution order.
func (s *Steps) Nodes() []Node { return s.nodes }

func (s *Steps) run(ctx context.Context, ec *execContext, idx StepIndex, input *StepInput) (results Outputs) {
	defer ec.recoverComposite(s.name, kindSteps, &results)

	ec.event(StepsExecutionStartedEvent{
		EventMeta:  ec.meta(s.name, idx),
		StepsCount: len(s.nodes),
	})

	results, executed := runSequence(ctx, ec, idx, input, s.nodes)

	ec.event(StepsExecutionCompletedEvent{
		EventMeta:     ec.meta(s.name, idx),
		StepsCount:    len(s.nodes),
		ExecutedSteps: executed,
		StepResults:   results,
	})
	return results
}
