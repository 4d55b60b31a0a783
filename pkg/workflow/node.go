package workflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Node is any executable unit in a workflow tree: a leaf Step or one of
// the composites (Steps, Loop, Parallel, Condition, Router). The set is
// closed; composites are themselves valid nodes inside other
// composites, so the tree is self-similar.
//
// A node never lets a failure escape across this boundary: faults are
// converted into outputs with Success=false, and early termination is
// expressed only through the Stop flag.
type Node interface {
	// Name returns the node's identifier, or "" for anonymous nodes.
	Name() string

	// run executes the node against input within an execution context.
	// The interface is sealed on this method; nodes are built from the
	// constructors in this package.
	run(ctx context.Context, ec *execContext, idx StepIndex, input *StepInput) Outputs
}

// execContext carries the per-run plumbing every node shares: identity
// for event labelling, the observer, the logger, and (when streaming)
// the emit hook. One value serves a whole run; it is never mutated
// after construction.
type execContext struct {
	runID        string
	workflowName string
	sess         Session
	logger       *slog.Logger
	obs          Observer

	// emit pushes an item onto the stream; nil in blocking mode. It
	// returns false once the consumer is gone.
	emit         func(StreamItem) bool
	intermediate bool
}

func (ec *execContext) streaming() bool { return ec.emit != nil }

// event emits a lifecycle event when intermediate events are enabled.
func (ec *execContext) event(e Event) {
	if ec.emit != nil && ec.intermediate {
		ec.emit(e)
	}
}

// output emits a StepOutput stream item. Outputs flow regardless of the
// intermediate-events setting.
func (ec *execContext) output(out StepOutput) {
	if ec.emit != nil {
		ec.emit(out)
	}
}

func (ec *execContext) meta(stepName string, idx StepIndex) EventMeta {
	return EventMeta{
		RunID:        ec.runID,
		WorkflowName: ec.workflowName,
		SessionID:    ec.sess.SessionID,
		StepName:     stepName,
		StepIndex:    idx,
		CreatedAt:    now(),
	}
}

// recoverComposite converts a panic inside a composite's own
// control-flow code into a single failing output for the whole
// composite. Leaf soft failures never reach this path.
func (ec *execContext) recoverComposite(name, kind string, results *Outputs) {
	r := recover()
	if r == nil {
		return
	}
	err, ok := r.(error)
	if !ok {
		err = fmt.Errorf("%v", r)
	}
	ec.logger.Error("composite execution failed",
		slog.String("kind", kind),
		slog.String("step", name),
		slog.Any("error", err),
	)
	out := ErrorOutput(name, err)
	out.ExecutorType = kind
	out.ExecutorName = name
	*results = Outputs{out}
	ec.output(out)
}

func newExecContext(sess Session, obs Observer, logger *slog.Logger) *execContext {
	if obs == nil {
		obs = NoopObserver{}
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &execContext{sess: sess, logger: logger, obs: obs}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Execute runs a node to completion and returns its outputs. It is the
// blocking form of the execution contract and is safe to call from a
// goroutine for cooperative use.
func Execute(ctx context.Context, n Node, input *StepInput, sess Session) Outputs {
	ec := newExecContext(sess, nil, nil)
	return n.run(ctx, ec, nil, ensureInput(input))
}

// StreamOption configures a streaming execution.
type StreamOption func(*streamConfig)

type streamConfig struct {
	intermediate bool
}

// WithIntermediateEvents enables lifecycle events on the stream. When
// disabled only StepOutput items flow.
func WithIntermediateEvents() StreamOption {
	return func(c *streamConfig) { c.intermediate = true }
}

// Stream runs a node and returns a single-consumer channel of lifecycle
// events interleaved with outputs. The channel is closed when the
// node's work is done; closure is the only termination signal. If ctx
// is cancelled while the consumer has stopped reading, the producing
// goroutine stops emitting and winds down.
func Stream(ctx context.Context, n Node, input *StepInput, sess Session, opts ...StreamOption) <-chan StreamItem {
	var cfg streamConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	ch := make(chan StreamItem)
	go func() {
		defer close(ch)
		ec := newExecContext(sess, nil, nil)
		ec.intermediate = cfg.intermediate
		ec.emit = func(item StreamItem) bool {
			select {
			case ch <- item:
				return true
			case <-ctx.Done():
				return false
			}
		}
		n.run(ctx, ec, nil, ensureInput(input))
	}()
	return ch
}

func ensureInput(input *StepInput) *StepInput {
	if input == nil {
		return &StepInput{}
	}
	return input
}

// nodeName returns the node's name, synthesizing one from its position
// when the node is anonymous.
func nodeName(n Node, pos int) string {
	if name := n.Name(); name != "" {
		return name
	}
	return fmt.Sprintf("step_%d", pos+1)
}

// chainInput builds the input for the next node from the current input
// and the outputs just produced: previous content becomes the last
// output's content, media lists are unioned, and the produced outputs
// are merged into the ordered name map. The current input is never
// mutated.
func chainInput(input *StepInput, produced Outputs, scope *StepOutputs) *StepInput {
	next := input.clone()
	if last, ok := produced.Last(); ok {
		next.PreviousStepContent = last.Content
	}
	for _, out := range produced {
		next.Images = append(next.Images, out.Images...)
		next.Videos = append(next.Videos, out.Videos...)
		next.Audio = append(next.Audio, out.Audio...)
	}
	if scope != nil && scope.Len() > 0 {
		if next.PreviousStepOutputs == nil {
			next.PreviousStepOutputs = NewStepOutputs()
		}
		scope.Range(func(name string, out StepOutput) bool {
			next.PreviousStepOutputs.Set(name, out)
			return true
		})
	}
	return next
}

// runSequence executes nodes in order with chaining, recording each
// node's last output by name into scope and stopping early when any
// produced output requests it. It is the shared engine behind Steps,
// Loop iterations, Condition bodies, and Router selections. The second
// return value is the number of direct children that actually ran.
func runSequence(ctx context.Context, ec *execContext, idx StepIndex, input *StepInput, nodes []Node) (Outputs, int) {
	var results Outputs
	current := ensureInput(input)
	scope := NewStepOutputs()
	executed := 0

	for i, n := range nodes {
		name := nodeName(n, i)
		produced := n.run(ctx, ec, idx.Child(i), current)
		results = append(results, produced...)
		executed++

		if last, ok := produced.Last(); ok {
			scope.Set(name, last)
		}
		if produced.HasStop() {
			ec.logger.Info("early termination requested", slog.String("step", name))
			break
		}
		current = chainInput(current, produced, scope)
	}
	return results, executed
}
