package stepflow

import (
	"fmt"
	"log/slog"

	"github.com/averho/stepflow/pkg/workflow"
)

// WorkflowBuilder provides a fluent API for assembling workflows:
//
//	wf := stepflow.New("Research").
//	    Step("fetch", fetch).
//	    Loop("refine", []stepflow.Node{draftStep},
//	        workflow.WithMaxIterations(5)).
//	    Step("publish", publish).
//	    Build()
//
//	resp, err := wf.Run(ctx, "quantum computing")
type WorkflowBuilder struct {
	name  string
	nodes []Node
	opts  []workflow.Option
}

// New creates a new workflow builder with the given name.
// It panics on an empty name.
func New(name string) *WorkflowBuilder {
	if name == "" {
		panic("stepflow: workflow name must not be empty")
	}
	return &WorkflowBuilder{name: name}
}

// Name returns the workflow name.
func (b *WorkflowBuilder) Name() string {
	return b.name
}

// Node appends an already-constructed node to the workflow.
func (b *WorkflowBuilder) Node(n Node) *WorkflowBuilder {
	if n == nil {
		panic(fmt.Sprintf("stepflow: workflow %q given nil node", b.name))
	}
	b.nodes = append(b.nodes, n)
	return b
}

// Step appends a basic leaf step to the workflow.
func (b *WorkflowBuilder) Step(name string, fn StepFunc, opts ...workflow.StepOption) *WorkflowBuilder {
	if name == "" {
		panic("stepflow: step name must not be empty")
	}
	return b.Node(NewStep(name, fn, opts...))
}

// RunnerStep appends a leaf step backed by an external Runner.
func (b *WorkflowBuilder) RunnerStep(name string, r Runner, opts ...workflow.StepOption) *WorkflowBuilder {
	if name == "" {
		panic("stepflow: step name must not be empty")
	}
	return b.Node(NewRunnerStep(name, r, opts...))
}

// Steps appends a named sequential group.
func (b *WorkflowBuilder) Steps(name string, nodes ...Node) *WorkflowBuilder {
	return b.Node(NewSteps(name, nodes...))
}

// Loop appends a bounded loop over the given body nodes.
func (b *WorkflowBuilder) Loop(name string, nodes []Node, opts ...workflow.LoopOption) *WorkflowBuilder {
	return b.Node(NewLoop(name, nodes, opts...))
}

// Parallel appends a fan-out over the given branches.
func (b *WorkflowBuilder) Parallel(name string, nodes ...Node) *WorkflowBuilder {
	return b.Node(NewParallel(name, nodes...))
}

// Condition appends a predicate-gated sequential body.
func (b *WorkflowBuilder) Condition(name string, predicate Predicate, nodes ...Node) *WorkflowBuilder {
	return b.Node(NewCondition(name, predicate, nodes...))
}

// Router appends a selector-dispatched composite.
func (b *WorkflowBuilder) Router(name string, selector Selector, choices ...Node) *WorkflowBuilder {
	return b.Node(NewRouter(name, selector, choices...))
}

// WithDescription attaches a human-readable description.
func (b *WorkflowBuilder) WithDescription(desc string) *WorkflowBuilder {
	b.opts = append(b.opts, workflow.WithDescription(desc))
	return b
}

// WithObserver attaches an observer to the built workflow.
func (b *WorkflowBuilder) WithObserver(obs Observer) *WorkflowBuilder {
	b.opts = append(b.opts, workflow.WithObserver(obs))
	return b
}

// WithStore persists completed runs to the given store.
func (b *WorkflowBuilder) WithStore(store RunStore) *WorkflowBuilder {
	b.opts = append(b.opts, workflow.WithStore(store))
	return b
}

// WithLogger sets the structured logger used by the engine.
func (b *WorkflowBuilder) WithLogger(logger *slog.Logger) *WorkflowBuilder {
	b.opts = append(b.opts, workflow.WithLogger(logger))
	return b
}

// Build constructs the immutable Workflow. The builder can be reused
// afterwards; the workflow keeps its own copy of the node list.
func (b *WorkflowBuilder) Build() *Workflow {
	nodes := make([]Node, len(b.nodes))
	copy(nodes, b.nodes)
	return workflow.New(b.name, nodes, b.opts...)
}
