package workflow

import (
	"context"
	"fmt"
	"sync"
)

const kindParallel = "parallel"

// Parallel executes its children concurrently against clones of the
// same input. Branch results are merged back in submission order, so
// blocking results are deterministic regardless of completion order.
// The composite always waits for every branch; a branch requesting
// early termination does not interrupt its siblings, its stop flag
// simply survives the merge.
type Parallel struct {
	name           string
	nodes          []Node
	maxConcurrency int
}

// NewParallel builds a fan-out composite over the given branches.
func NewParallel(name string, nodes ...Node) *Parallel {
	return &Parallel{name: name, nodes: nodes}
}

// WithConcurrencyLimit caps how many branches run at once. A limit of
// zero or less means unbounded.
func (p *Parallel) WithConcurrencyLimit(n int) *Parallel {
	p.maxConcurrency = n
	return p
}

// Name returns the composite name.
func (p *Parallel) Name() string { return p.name }

func (p *Parallel) run(ctx context.Context, ec *execContext, idx StepIndex, input *StepInput) (results Outputs) {
	defer ec.recoverComposite(p.name, kindParallel, &results)

	ec.event(ParallelExecutionStartedEvent{
		EventMeta:         ec.meta(p.name, idx),
		ParallelStepCount: len(p.nodes),
	})

	input = ensureInput(input)
	branchResults := make([]Outputs, len(p.nodes))

	var sem chan struct{}
	if p.maxConcurrency > 0 {
		sem = make(chan struct{}, p.maxConcurrency)
	}

	var wg sync.WaitGroup
	for i, n := range p.nodes {
		wg.Add(1)
		go func(i int, n Node) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					err, ok := r.(error)
					if !ok {
						err = fmt.Errorf("%v", r)
					}
					out := ErrorOutput(nodeName(n, i), err)
					out.ExecutorType = kindParallel
					branchResults[i] = Outputs{out}
				}
			}()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			branchResults[i] = n.run(ctx, ec, idx.Child(i), input.clone())
		}(i, n)
	}
	wg.Wait()

	for _, br := range branchResults {
		results = append(results, br...)
	}

	ec.event(ParallelExecutionCompletedEvent{
		EventMeta:         ec.meta(p.name, idx),
		ParallelStepCount: len(p.nodes),
		StepResults:       results,
	})
	return results
}
